package notify

import (
	"errors"
	"fmt"
	"testing"

	"github.com/corex/corex-api/internal/models"
	"github.com/corex/corex-api/internal/progress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type sentMail struct {
	kind string
	to   string
}

// fakeMailer records deliveries and optionally fails every send.
type fakeMailer struct {
	sent []sentMail
	fail bool
}

func (f *fakeMailer) err() error {
	if f.fail {
		return errors.New("smtp down")
	}
	return nil
}

func (f *fakeMailer) SendGroupInvitation(to, groupName, code string) error {
	f.sent = append(f.sent, sentMail{"invitation", to})
	return f.err()
}

func (f *fakeMailer) SendGoalShared(to, goalTitle, groupName, code string) error {
	f.sent = append(f.sent, sentMail{"shared", to})
	return f.err()
}

func (f *fakeMailer) SendGoalAchievement(to, goalTitle, groupName string) error {
	f.sent = append(f.sent, sentMail{"achievement", to})
	return f.err()
}

func (f *fakeMailer) SendGoalProgress(to, goalTitle, groupName string, progress, target float64, unit string) error {
	f.sent = append(f.sent, sentMail{"progress", to})
	return f.err()
}

func TestDecideProgressBandCrossing(t *testing.T) {
	goal := models.Goal{TargetValue: 100}

	cases := []struct {
		name     string
		before   float64
		after    float64
		wantKind EventKind
		wantFire bool
	}{
		{"40 to 60 crosses the 50 band", 40, 60, EventProgress, true},
		{"within the same band", 30, 45, "", false},
		{"no movement", 60, 60, "", false},
		{"jumping two bands still one event", 10, 60, EventProgress, true},
		{"backwards movement never fires", 60, 40, "", false},
		{"exactly onto a band edge", 20, 25, EventProgress, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			kind, ok := Decide(goal,
				progress.Snapshot{CurrentValue: tc.before, Status: models.StatusInProgress},
				progress.Snapshot{CurrentValue: tc.after, Status: models.StatusInProgress},
			)
			assert.Equal(t, tc.wantFire, ok)
			assert.Equal(t, tc.wantKind, kind)
		})
	}
}

func TestDecideAchievementTakesPrecedence(t *testing.T) {
	goal := models.Goal{TargetValue: 100}

	// 90% -> 100% crosses a band AND completes: only Achievement fires
	kind, ok := Decide(goal,
		progress.Snapshot{CurrentValue: 90, Status: models.StatusInProgress},
		progress.Snapshot{CurrentValue: 100, Status: models.StatusCompleted},
	)
	require.True(t, ok)
	assert.Equal(t, EventAchievement, kind)
}

func TestDecideAchievementFiresOnEdgeOnly(t *testing.T) {
	goal := models.Goal{TargetValue: 100}

	// Already completed: no repeat achievement
	_, ok := Decide(goal,
		progress.Snapshot{CurrentValue: 100, Status: models.StatusCompleted},
		progress.Snapshot{CurrentValue: 110, Status: models.StatusCompleted},
	)
	assert.False(t, ok)
}

func TestDecideZeroTargetNeverFiresProgress(t *testing.T) {
	goal := models.Goal{TargetValue: 0}

	_, ok := Decide(goal,
		progress.Snapshot{CurrentValue: 0, Status: models.StatusInProgress},
		progress.Snapshot{CurrentValue: 50, Status: models.StatusInProgress},
	)
	assert.False(t, ok)
}

func dispatcherFixture(t *testing.T) (*gorm.DB, models.User, models.User, models.User, models.Group) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Goal{}, &models.Group{},
		&models.GroupMember{}, &models.Notification{},
	))

	owner := models.User{Username: "owner", Email: "owner@example.com"}
	alice := models.User{Username: "alice", Email: "alice@example.com"}
	bob := models.User{Username: "bob", Email: "bob@example.com"}
	require.NoError(t, db.Create(&owner).Error)
	require.NoError(t, db.Create(&alice).Error)
	require.NoError(t, db.Create(&bob).Error)

	group := models.Group{Name: "Runners", CreatedBy: owner.ID}
	require.NoError(t, db.Create(&group).Error)
	for _, u := range []models.User{owner, alice, bob} {
		require.NoError(t, db.Create(&models.GroupMember{GroupID: group.ID, UserID: u.ID}).Error)
	}

	return db, owner, alice, bob, group
}

func TestGoalTransitionNotifiesCoMembersOnly(t *testing.T) {
	db, owner, _, _, _ := dispatcherFixture(t)
	mail := &fakeMailer{}
	d := NewDispatcher(db, mail, zap.NewNop())

	goal := models.Goal{UserID: owner.ID, Title: "Burn 500", Type: models.GoalCaloriesBurned, TargetValue: 500}
	require.NoError(t, db.Create(&goal).Error)

	d.GoalTransition(progress.Transition{
		Goal:   goal,
		Before: progress.Snapshot{CurrentValue: 450, Status: models.StatusInProgress},
		After:  progress.Snapshot{CurrentValue: 500, Status: models.StatusCompleted},
	})

	require.Len(t, mail.sent, 2)
	recipients := map[string]bool{}
	for _, m := range mail.sent {
		assert.Equal(t, "achievement", m.kind)
		recipients[m.to] = true
	}
	assert.False(t, recipients["owner@example.com"], "owner must not be notified")
	assert.True(t, recipients["alice@example.com"])
	assert.True(t, recipients["bob@example.com"])

	// In-app rows mirror the emails
	var count int64
	db.Model(&models.Notification{}).Where("type = ?", string(EventAchievement)).Count(&count)
	assert.EqualValues(t, 2, count)
}

func TestGoalTransitionDeduplicatesAcrossGroups(t *testing.T) {
	db, owner, alice, _, _ := dispatcherFixture(t)
	mail := &fakeMailer{}
	d := NewDispatcher(db, mail, zap.NewNop())

	// Alice shares a second group with the owner
	second := models.Group{Name: "Lifters", CreatedBy: owner.ID}
	require.NoError(t, db.Create(&second).Error)
	require.NoError(t, db.Create(&models.GroupMember{GroupID: second.ID, UserID: owner.ID}).Error)
	require.NoError(t, db.Create(&models.GroupMember{GroupID: second.ID, UserID: alice.ID}).Error)

	goal := models.Goal{UserID: owner.ID, Title: "Protein 150", Type: models.GoalProtein, TargetValue: 150}
	require.NoError(t, db.Create(&goal).Error)

	d.GoalTransition(progress.Transition{
		Goal:   goal,
		Before: progress.Snapshot{CurrentValue: 40, Status: models.StatusInProgress},
		After:  progress.Snapshot{CurrentValue: 90, Status: models.StatusInProgress},
	})

	aliceCount := 0
	for _, m := range mail.sent {
		assert.Equal(t, "progress", m.kind)
		if m.to == "alice@example.com" {
			aliceCount++
		}
	}
	assert.Equal(t, 1, aliceCount, "one event per recipient even across shared groups")
}

func TestGoalTransitionNoEventNoMail(t *testing.T) {
	db, owner, _, _, _ := dispatcherFixture(t)
	mail := &fakeMailer{}
	d := NewDispatcher(db, mail, zap.NewNop())

	goal := models.Goal{UserID: owner.ID, Title: "Slow burn", Type: models.GoalCaloriesBurned, TargetValue: 1000}
	require.NoError(t, db.Create(&goal).Error)

	d.GoalTransition(progress.Transition{
		Goal:   goal,
		Before: progress.Snapshot{CurrentValue: 10, Status: models.StatusInProgress},
		After:  progress.Snapshot{CurrentValue: 20, Status: models.StatusInProgress},
	})

	assert.Empty(t, mail.sent)
}

func TestGoalTransitionSwallowsDeliveryFailures(t *testing.T) {
	db, owner, _, _, _ := dispatcherFixture(t)
	mail := &fakeMailer{fail: true}
	d := NewDispatcher(db, mail, zap.NewNop())

	goal := models.Goal{UserID: owner.ID, Title: "Burn 500", Type: models.GoalCaloriesBurned, TargetValue: 500}
	require.NoError(t, db.Create(&goal).Error)

	// Must not panic or error out; both recipients are still attempted.
	d.GoalTransition(progress.Transition{
		Goal:   goal,
		Before: progress.Snapshot{CurrentValue: 0, Status: models.StatusInProgress},
		After:  progress.Snapshot{CurrentValue: 500, Status: models.StatusCompleted},
	})

	assert.Len(t, mail.sent, 2)
}

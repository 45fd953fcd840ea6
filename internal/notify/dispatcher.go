// Package notify turns goal state transitions into notification fan-out
// to group co-members. Delivery is decoupled from the state write: a
// failed email is logged and dropped, never surfaced to the request that
// moved the goal.
package notify

import (
	"encoding/json"
	"math"

	"github.com/corex/corex-api/internal/mailer"
	"github.com/corex/corex-api/internal/metrics"
	"github.com/corex/corex-api/internal/models"
	"github.com/corex/corex-api/internal/progress"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type EventKind string

const (
	EventAchievement EventKind = "goal_achievement"
	EventProgress    EventKind = "goal_progress"
)

// Decide picks at most one event for a transition. Achievement fires on
// the edge into completed and always wins over Progress; Progress fires
// when the percentage crosses into a higher 25% band.
func Decide(goal models.Goal, before, after progress.Snapshot) (EventKind, bool) {
	if after.Status == models.StatusCompleted && before.Status != models.StatusCompleted {
		return EventAchievement, true
	}
	if goal.TargetValue <= 0 {
		return "", false
	}
	beforeBand := math.Floor(before.CurrentValue / goal.TargetValue * 100 / 25)
	afterBand := math.Floor(after.CurrentValue / goal.TargetValue * 100 / 25)
	if afterBand > beforeBand {
		return EventProgress, true
	}
	return "", false
}

type Dispatcher struct {
	db   *gorm.DB
	mail mailer.Mailer
	log  *zap.Logger
}

func NewDispatcher(db *gorm.DB, mail mailer.Mailer, log *zap.Logger) *Dispatcher {
	return &Dispatcher{db: db, mail: mail, log: log}
}

// GoalTransition fans a transition out to every co-member of every group
// the goal's owner belongs to, once per recipient. Errors are logged and
// swallowed.
func (d *Dispatcher) GoalTransition(t progress.Transition) {
	kind, ok := Decide(t.Goal, t.Before, t.After)
	if !ok {
		return
	}

	groups, err := d.ownerGroups(t.Goal.UserID)
	if err != nil {
		d.log.Warn("notification fan-out skipped", zap.Error(err))
		return
	}

	seen := map[uuid.UUID]bool{t.Goal.UserID: true}
	for _, group := range groups {
		members, err := d.coMembers(group.ID, t.Goal.UserID)
		if err != nil {
			d.log.Warn("member lookup failed",
				zap.String("group", group.ID.String()), zap.Error(err))
			continue
		}

		for _, m := range members {
			if seen[m.UserID] {
				continue
			}
			seen[m.UserID] = true
			d.deliver(kind, t, group, m)
		}
	}
}

func (d *Dispatcher) deliver(kind EventKind, t progress.Transition, group models.Group, m models.GroupMember) {
	var err error
	switch kind {
	case EventAchievement:
		err = d.mail.SendGoalAchievement(m.User.Email, t.Goal.Title, group.Name)
	case EventProgress:
		err = d.mail.SendGoalProgress(m.User.Email, t.Goal.Title, group.Name,
			t.After.CurrentValue, t.Goal.TargetValue, t.Goal.Unit)
	}

	result := "ok"
	if err != nil {
		result = "error"
		d.log.Warn("notification email failed",
			zap.String("kind", string(kind)),
			zap.String("recipient", m.User.Email),
			zap.Error(err),
		)
	}
	metrics.NotificationsSent.WithLabelValues(string(kind), result).Inc()

	d.record(m.UserID, kind, t, group)
}

// record mirrors the email as an in-app notification row.
func (d *Dispatcher) record(userID uuid.UUID, kind EventKind, t progress.Transition, group models.Group) {
	title := "Goal progress in " + group.Name
	body := "There's been progress on the goal \"" + t.Goal.Title + "\""
	if kind == EventAchievement {
		title = "Goal achieved in " + group.Name
		body = "A member of " + group.Name + " achieved the goal \"" + t.Goal.Title + "\""
	}

	meta, _ := json.Marshal(map[string]string{
		"goalId":  t.Goal.ID.String(),
		"groupId": group.ID.String(),
	})
	metaStr := string(meta)

	notif := models.Notification{
		UserID:   userID,
		Type:     string(kind),
		Title:    title,
		Body:     body,
		Metadata: &metaStr,
	}
	if err := d.db.Create(&notif).Error; err != nil {
		d.log.Warn("notification row not written", zap.Error(err))
	}
}

func (d *Dispatcher) ownerGroups(ownerID uuid.UUID) ([]models.Group, error) {
	var groups []models.Group
	err := d.db.
		Joins("JOIN group_members ON group_members.group_id = groups.id").
		Where("group_members.user_id = ?", ownerID).
		Find(&groups).Error
	return groups, err
}

func (d *Dispatcher) coMembers(groupID, excludeUserID uuid.UUID) ([]models.GroupMember, error) {
	var members []models.GroupMember
	err := d.db.Where("group_id = ? AND user_id != ?", groupID, excludeUserID).
		Preload("User").
		Find(&members).Error
	return members, err
}

package codes

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/corex/corex-api/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.GroupInvite{}, &models.SharedGoal{}))
	return db
}

func TestTokenShape(t *testing.T) {
	for i := 0; i < 100; i++ {
		code, err := Token()
		require.NoError(t, err)
		assert.Len(t, code, 8)
		for _, r := range code {
			assert.Contains(t, alphabet, string(r))
		}
		assert.Equal(t, strings.ToUpper(code), code)
	}
}

func TestIssueGroupInvite(t *testing.T) {
	db := testDB(t)
	r := NewRegistry(db)
	now := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

	invite, err := r.IssueGroupInvite(uuid.New(), uuid.New(), "friend@example.com", now)
	require.NoError(t, err)

	assert.Len(t, invite.Code, 8)
	assert.Equal(t, now.Add(DefaultTTL), invite.ExpiresAt)

	var stored models.GroupInvite
	require.NoError(t, db.First(&stored, "code = ?", invite.Code).Error)
	assert.Equal(t, "friend@example.com", stored.Email)
}

func TestIssuedCodesUniqueAgainstPopulatedRegistry(t *testing.T) {
	db := testDB(t)
	r := NewRegistry(db)
	now := time.Now()
	groupID, userID := uuid.New(), uuid.New()

	seen := make(map[string]bool, 10000)
	for i := 0; i < 10000; i++ {
		invite, err := r.IssueGroupInvite(groupID, userID, "x@example.com", now)
		require.NoError(t, err)
		require.False(t, seen[invite.Code], "duplicate live code %s", invite.Code)
		seen[invite.Code] = true
	}
}

func TestIssueRetriesOnCollisionThenExhausts(t *testing.T) {
	db := testDB(t)
	r := NewRegistry(db)
	now := time.Now()

	// Occupy a code, then force the generator to keep producing it.
	require.NoError(t, db.Create(&models.GroupInvite{
		GroupID:   uuid.New(),
		Email:     "taken@example.com",
		Code:      "COLLIDED",
		ExpiresAt: now.Add(DefaultTTL),
		CreatedBy: uuid.New(),
	}).Error)

	attempts := 0
	r.token = func() (string, error) {
		attempts++
		return "COLLIDED", nil
	}
	_, err := r.IssueGroupInvite(uuid.New(), uuid.New(), "y@example.com", now)
	assert.ErrorIs(t, err, ErrExhaustedRetries)
	assert.Equal(t, maxAttempts, attempts)

	// The two namespaces don't collide with each other: the same token is
	// fine for a goal share.
	shared, err := r.IssueGoalShare(uuid.New(), uuid.New(), uuid.New(), now)
	require.NoError(t, err)
	assert.Equal(t, "COLLIDED", shared.Code)
}

func TestIssueRetriesPastRedeemedCode(t *testing.T) {
	db := testDB(t)
	r := NewRegistry(db)
	now := time.Now()

	// Redeemed rows leave the unique index occupied even though no live
	// code exists; issuance must draw again, not fail.
	invite, err := r.IssueGroupInvite(uuid.New(), uuid.New(), "first@example.com", now)
	require.NoError(t, err)
	dead := invite.Code
	_, err = r.RedeemGroupInvite(dead, now)
	require.NoError(t, err)

	drawn := []string{dead, "FRESH123"}
	r.token = func() (string, error) {
		code := drawn[0]
		drawn = drawn[1:]
		return code, nil
	}

	issued, err := r.IssueGroupInvite(uuid.New(), uuid.New(), "second@example.com", now)
	require.NoError(t, err)
	assert.Equal(t, "FRESH123", issued.Code)
}

func TestIssueRetriesPastExpiredCode(t *testing.T) {
	db := testDB(t)
	r := NewRegistry(db)
	now := time.Now()

	require.NoError(t, db.Create(&models.GroupInvite{
		GroupID:   uuid.New(),
		Email:     "old@example.com",
		Code:      "EXPIRED1",
		ExpiresAt: now.Add(-time.Hour),
		CreatedBy: uuid.New(),
	}).Error)

	drawn := []string{"EXPIRED1", "FRESH456"}
	r.token = func() (string, error) {
		code := drawn[0]
		drawn = drawn[1:]
		return code, nil
	}

	issued, err := r.IssueGroupInvite(uuid.New(), uuid.New(), "new@example.com", now)
	require.NoError(t, err)
	assert.Equal(t, "FRESH456", issued.Code)
}

func TestRedeemGroupInviteExactlyOnce(t *testing.T) {
	db := testDB(t)
	r := NewRegistry(db)
	now := time.Now()

	invite, err := r.IssueGroupInvite(uuid.New(), uuid.New(), "friend@example.com", now)
	require.NoError(t, err)

	redeemed, err := r.RedeemGroupInvite(invite.Code, now)
	require.NoError(t, err)
	assert.Equal(t, invite.GroupID, redeemed.GroupID)
	assert.Equal(t, invite.Email, redeemed.Email)

	// Second attempt observes NotFound, not Expired or success
	_, err = r.RedeemGroupInvite(invite.Code, now)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedeemExpiredCode(t *testing.T) {
	db := testDB(t)
	r := NewRegistry(db)
	issued := time.Now().Add(-8 * 24 * time.Hour)

	invite, err := r.IssueGroupInvite(uuid.New(), uuid.New(), "late@example.com", issued)
	require.NoError(t, err)

	_, err = r.RedeemGroupInvite(invite.Code, time.Now())
	assert.ErrorIs(t, err, ErrExpired)

	// Expired codes are not consumed; they stay until redemption keeps
	// failing or the row ages out.
	_, err = r.RedeemGroupInvite(invite.Code, time.Now())
	assert.ErrorIs(t, err, ErrExpired)
}

func TestRedeemUnknownCode(t *testing.T) {
	db := testDB(t)
	r := NewRegistry(db)

	_, err := r.RedeemGroupInvite("NOPE1234", time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedeemGoalShareReturnsSubject(t *testing.T) {
	db := testDB(t)
	r := NewRegistry(db)
	now := time.Now()
	goalID, groupID, sharer := uuid.New(), uuid.New(), uuid.New()

	shared, err := r.IssueGoalShare(goalID, groupID, sharer, now)
	require.NoError(t, err)

	redeemed, err := r.RedeemGoalShare(shared.Code, now)
	require.NoError(t, err)
	assert.Equal(t, goalID, redeemed.GoalID)
	assert.Equal(t, groupID, redeemed.GroupID)
	assert.Equal(t, sharer, redeemed.SharedBy)

	_, err = r.RedeemGoalShare(shared.Code, now)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLookupGroupInviteDoesNotConsume(t *testing.T) {
	db := testDB(t)
	r := NewRegistry(db)
	now := time.Now()

	invite, err := r.IssueGroupInvite(uuid.New(), uuid.New(), "peek@example.com", now)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		got, err := r.LookupGroupInvite(invite.Code, now)
		require.NoError(t, err)
		assert.Equal(t, invite.GroupID, got.GroupID)
	}

	_, err = r.RedeemGroupInvite(invite.Code, now)
	require.NoError(t, err)
}

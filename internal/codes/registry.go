// Package codes issues and redeems the expiring single-use codes behind
// group invitations and goal sharing. Codes are 8 uppercase alphanumeric
// characters, unique within their namespace, valid for 7 days and deleted
// on redemption.
package codes

import (
	"crypto/rand"
	"errors"
	"strings"
	"time"

	"github.com/corex/corex-api/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotFound         = errors.New("code not found")
	ErrExpired          = errors.New("code expired")
	ErrExhaustedRetries = errors.New("could not generate a unique code")
)

const (
	alphabet    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength  = 8
	maxAttempts = 5

	// DefaultTTL is how long an issued code stays redeemable.
	DefaultTTL = 7 * 24 * time.Hour
)

type Registry struct {
	db *gorm.DB

	// token is swappable in tests to force collisions.
	token func() (string, error)
}

func NewRegistry(db *gorm.DB) *Registry {
	return &Registry{db: db, token: Token}
}

// Token draws an 8-character code uniformly over the 36-character
// alphabet. Rejection sampling keeps the distribution uniform.
func Token() (string, error) {
	out := make([]byte, 0, codeLength)
	buf := make([]byte, codeLength)
	for len(out) < codeLength {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			// 252 is the largest multiple of 36 below 256; larger
			// bytes would skew the tail of the alphabet.
			if b >= 252 {
				continue
			}
			out = append(out, alphabet[int(b)%len(alphabet)])
			if len(out) == codeLength {
				break
			}
		}
	}
	return string(out), nil
}

// IssueGroupInvite creates an invitation code for an email address. The
// insert itself is the collision check: the unique index on code spans
// redeemed and expired rows too, so a duplicate-key failure means draw
// again, regardless of which kind of row the candidate hit.
func (r *Registry) IssueGroupInvite(groupID, createdBy uuid.UUID, email string, now time.Time) (*models.GroupInvite, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		code, err := r.token()
		if err != nil {
			return nil, err
		}

		invite := models.GroupInvite{
			GroupID:   groupID,
			Email:     email,
			Code:      code,
			ExpiresAt: now.Add(DefaultTTL),
			CreatedBy: createdBy,
		}
		err = r.db.Create(&invite).Error
		if err == nil {
			return &invite, nil
		}
		if !isDuplicate(err) {
			return nil, err
		}
	}
	return nil, ErrExhaustedRetries
}

// IssueGoalShare creates a sharing code for a goal posted into a group.
// Same insert-as-collision-check protocol as IssueGroupInvite.
func (r *Registry) IssueGoalShare(goalID, groupID, sharedBy uuid.UUID, now time.Time) (*models.SharedGoal, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		code, err := r.token()
		if err != nil {
			return nil, err
		}

		shared := models.SharedGoal{
			GoalID:    goalID,
			GroupID:   groupID,
			Code:      code,
			ExpiresAt: now.Add(DefaultTTL),
			SharedBy:  sharedBy,
		}
		err = r.db.Create(&shared).Error
		if err == nil {
			return &shared, nil
		}
		if !isDuplicate(err) {
			return nil, err
		}
	}
	return nil, ErrExhaustedRetries
}

// isDuplicate reports whether an insert failed on the code unique index.
// The drivers don't all translate to gorm.ErrDuplicatedKey, so fall back
// to the sqlite and postgres message shapes.
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint") ||
		strings.Contains(msg, "duplicate key")
}

// LookupGroupInvite reads an invitation without consuming it, applying
// the same absent/expired classification as redemption. Callers use it to
// run domain checks that should not burn the code when they fail.
func (r *Registry) LookupGroupInvite(code string, now time.Time) (*models.GroupInvite, error) {
	var invite models.GroupInvite
	if err := r.db.Where("code = ?", code).First(&invite).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !invite.ExpiresAt.After(now) {
		return nil, ErrExpired
	}
	return &invite, nil
}

// LookupGoalShare reads a sharing code without consuming it, same
// contract as LookupGroupInvite.
func (r *Registry) LookupGoalShare(code string, now time.Time) (*models.SharedGoal, error) {
	var shared models.SharedGoal
	if err := r.db.Where("code = ?", code).First(&shared).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !shared.ExpiresAt.After(now) {
		return nil, ErrExpired
	}
	return &shared, nil
}

// RedeemGroupInvite consumes an invitation code exactly once. The lookup
// and delete run in one transaction with the row locked, so a concurrent
// second redemption observes ErrNotFound.
func (r *Registry) RedeemGroupInvite(code string, now time.Time) (*models.GroupInvite, error) {
	var invite models.GroupInvite
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("code = ?", code).First(&invite).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if !invite.ExpiresAt.After(now) {
			return ErrExpired
		}
		return tx.Delete(&invite).Error
	})
	if err != nil {
		return nil, err
	}
	return &invite, nil
}

// RedeemGoalShare consumes a sharing code exactly once and returns its
// subject. Same atomicity contract as RedeemGroupInvite.
func (r *Registry) RedeemGoalShare(code string, now time.Time) (*models.SharedGoal, error) {
	var shared models.SharedGoal
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("code = ?", code).First(&shared).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if !shared.ExpiresAt.After(now) {
			return ErrExpired
		}
		return tx.Delete(&shared).Error
	})
	if err != nil {
		return nil, err
	}
	return &shared, nil
}

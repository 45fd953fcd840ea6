package database

import (
	"strings"

	"github.com/corex/corex-api/internal/config"
	"github.com/corex/corex-api/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to the store and returns the handle. There is no package
// global: the handle is threaded explicitly through everything that
// touches the store.
func Open(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector

	// Use PostgreSQL if URL starts with postgres, otherwise SQLite
	if strings.HasPrefix(cfg.DatabaseURL, "postgres") {
		dialector = postgres.Open(cfg.DatabaseURL)
	} else {
		dialector = sqlite.Open(cfg.DatabaseURL)
	}

	return gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Activity{},
		&models.Goal{},
		&models.Group{},
		&models.GroupMember{},
		&models.GroupInvite{},
		&models.SharedGoal{},
		&models.Notification{},
	)
}

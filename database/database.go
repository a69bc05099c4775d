package database

import (
	"log"

	"content-gate/internal/domain/plans"
	"content-gate/internal/domain/users"
	"content-gate/internal/infra/audit"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// InitDB connects to postgres and migrates the tables the gate reads and writes.
func InitDB(dsn string) *gorm.DB {
	if dsn == "" {
		log.Fatal("DB_URL not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	if err := Migrate(db); err != nil {
		log.Fatal("AutoMigrate error:", err)
	}

	log.Println("Connected and migrated successfully")
	return db
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&plans.Plan{},
		&users.User{},
		&audit.Entry{},
	)
}

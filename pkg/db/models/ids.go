package models

import "github.com/google/uuid"

// ensureID assigns a v4 id when the caller left it empty so inserts work the
// same on Postgres and the sqlite test/dev driver.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// All lists every table in dependency order, for gorm AutoMigrate on sqlite.
func All() []any {
	return []any{
		&Category{},
		&Product{},
		&ProductVariant{},
		&Campaign{},
		&Influencer{},
		&Order{},
		&OrderItem{},
		&OrderCounter{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}

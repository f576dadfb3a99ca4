package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE TABLE IF NOT EXISTS review_decision (
		id UUID PRIMARY KEY,
		contract_id BIGINT NOT NULL,
		task_id BIGINT NOT NULL,
		decision VARCHAR(16) NOT NULL,
		comments TEXT,
		user_id VARCHAR(64),
		role VARCHAR(32),
		succeeded BOOLEAN NOT NULL,
		message TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'review_decision_decision_check') THEN
			ALTER TABLE review_decision ADD CONSTRAINT review_decision_decision_check CHECK (decision IN ('accept', 'reject'));
		END IF;
	END
	$$;`,
	`CREATE INDEX IF NOT EXISTS idx_review_decision_contract_id ON review_decision (contract_id);`,
	`CREATE INDEX IF NOT EXISTS idx_review_decision_created_at ON review_decision (created_at);`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}

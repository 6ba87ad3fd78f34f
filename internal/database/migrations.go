package database

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type compositeIndex struct {
	table   string
	name    string
	columns string
}

// compositeIndexes back the hot queries that single column tags cannot.
var compositeIndexes = []compositeIndex{
	// Auto-complete sweep
	{"tasks", "idx_tasks_status_auto_complete", "status, auto_complete_at"},
	// Customer portal listing
	{"tasks", "idx_tasks_customer_created", "customer_id, created_at"},
	// Engineer visibility
	{"tasks", "idx_tasks_assignee_field", "assigned_to, field_engineer_id"},
}

// AddIndexes adds performance-critical indexes to the database
func AddIndexes(db *gorm.DB, log *zap.Logger) error {
	migrator := db.Migrator()

	for _, idx := range compositeIndexes {
		if migrator.HasIndex(idx.table, idx.name) {
			log.Debug("index already exists, skipping", zap.String("index", idx.name))
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		log.Info("created index", zap.String("index", idx.name), zap.String("table", idx.table))
	}

	return nil
}

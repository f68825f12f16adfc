package models

import (
	"time"

	"github.com/Ramsey-B/organizer/pkg/database"
	"github.com/google/uuid"
)

// FinanceTracker is the personal finance blob kept for a user, at most one per user
type FinanceTracker struct {
	ID        uuid.UUID                      `db:"id" json:"id"`
	TenantID  uuid.UUID                      `db:"tenant_id" json:"tenant_id"`
	UserID    string                         `db:"user_id" json:"user_id"`
	Data      database.JSONB[map[string]any] `db:"data" json:"data"`
	CreatedAt time.Time                      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time                      `db:"updated_at" json:"updated_at"`
}

func (FinanceTracker) TableName() string {
	return "finance_trackers"
}

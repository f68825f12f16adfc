package models

import (
	"time"

	"github.com/Ramsey-B/organizer/pkg/database"
	"github.com/google/uuid"
)

type AuditAction string

const (
	AuditActionCreated               AuditAction = "created"
	AuditActionUpdated               AuditAction = "updated"
	AuditActionPartialUpdate         AuditAction = "partial_update"
	AuditActionSectionUpdated        AuditAction = "section_updated"
	AuditActionQuestionUpdated       AuditAction = "question_updated"
	AuditActionDependentsUpdated     AuditAction = "dependents_updated"
	AuditActionBusinessOwnersUpdated AuditAction = "business_owners_updated"
	AuditActionStatusUpdated         AuditAction = "status_updated"
)

// AuditLog is an append-only record of one mutation of a submission
type AuditLog struct {
	ID           uuid.UUID                      `db:"id" json:"id"`
	SubmissionID uuid.UUID                      `db:"submission_id" json:"submission_id"`
	Action       AuditAction                    `db:"action" json:"action"`
	UserID       string                         `db:"user_id" json:"user_id"`
	Timestamp    time.Time                      `db:"timestamp" json:"timestamp"`
	Changes      database.JSONB[map[string]any] `db:"changes" json:"changes"`
	IPAddress    *string                        `db:"ip_address" json:"ip_address,omitempty"`
	UserAgent    *string                        `db:"user_agent" json:"user_agent,omitempty"`
}

func (AuditLog) TableName() string {
	return "form_audit_logs"
}

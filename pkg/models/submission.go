package models

import (
	"time"

	"github.com/Ramsey-B/organizer/pkg/database"
	"github.com/google/uuid"
)

type SubmissionStatus string

const (
	SubmissionStatusDraft      SubmissionStatus = "draft"
	SubmissionStatusSubmitted  SubmissionStatus = "submitted"
	SubmissionStatusProcessing SubmissionStatus = "processing"
	SubmissionStatusCompleted  SubmissionStatus = "completed"
	SubmissionStatusRejected   SubmissionStatus = "rejected"
)

var SubmissionStatuses = []SubmissionStatus{
	SubmissionStatusDraft,
	SubmissionStatusSubmitted,
	SubmissionStatusProcessing,
	SubmissionStatusCompleted,
	SubmissionStatusRejected,
}

var submissionStatusLabels = map[SubmissionStatus]string{
	SubmissionStatusDraft:      "Draft",
	SubmissionStatusSubmitted:  "Submitted",
	SubmissionStatusProcessing: "Processing",
	SubmissionStatusCompleted:  "Completed",
	SubmissionStatusRejected:   "Rejected",
}

func (s SubmissionStatus) Valid() bool {
	_, ok := submissionStatusLabels[s]
	return ok
}

func (s SubmissionStatus) Label() string {
	return submissionStatusLabels[s]
}

// IsTerminal reports whether no forward transition exists from s.
func (s SubmissionStatus) IsTerminal() bool {
	return s == SubmissionStatusCompleted || s == SubmissionStatusRejected
}

// CanTransitionTo holds the status graph. Transitions are caller driven: any valid status may be
// set from any other, except that a submitted form can not be moved back to draft.
func (s SubmissionStatus) CanTransitionTo(next SubmissionStatus) bool {
	if !next.Valid() {
		return false
	}
	if s == SubmissionStatusSubmitted && next == SubmissionStatusDraft {
		return false
	}
	return true
}

type ClientInfo struct {
	IPAddress   string    `json:"ip_address,omitempty"`
	UserAgent   string    `json:"user_agent,omitempty"`
	ProcessedAt time.Time `json:"processed_at"`
}

// Submission is one intake instance of a form type and owns every derived child row
type Submission struct {
	ID              uuid.UUID                  `db:"id" json:"id"`
	TenantID        uuid.UUID                  `db:"tenant_id" json:"tenant_id"`
	UserID          string                     `db:"user_id" json:"user_id"`
	UserEmail       string                     `db:"user_email" json:"user_email,omitempty"`
	FormTypeID      uuid.UUID                  `db:"form_type_id" json:"form_type_id"`
	FormTypeName    string                     `db:"form_type_name" json:"form_type"`
	Status          SubmissionStatus           `db:"status" json:"status"`
	SubmissionDate  time.Time                  `db:"submission_date" json:"submission_date"`
	ClientInfo      database.JSONB[ClientInfo] `db:"client_info" json:"client_info"`
	ProcessingNotes *string                    `db:"processing_notes" json:"processing_notes,omitempty"`
	CreatedAt       time.Time                  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time                  `db:"updated_at" json:"updated_at"`
}

func (Submission) TableName() string {
	return "submissions"
}

// IsOwnedBy reports whether userID created the submission.
func (s *Submission) IsOwnedBy(userID string) bool {
	return userID != "" && s.UserID == userID
}

type SubmissionFilter struct {
	UserID   string
	FormType string
	Status   SubmissionStatus
	Limit    int
	Offset   int
}

type SubmissionStatistics struct {
	Total             int                  `json:"total_submissions"`
	ByStatus          map[string]int       `json:"by_status"`
	ByFormType        map[string]int       `json:"by_form_type"`
	RecentSubmissions []SubmissionOverview `json:"recent_submissions"`
}

type SubmissionOverview struct {
	ID        uuid.UUID        `db:"id" json:"id"`
	FormType  string           `db:"form_type_name" json:"form_type"`
	Status    SubmissionStatus `db:"status" json:"status"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}

type StatusCount struct {
	Key   string `db:"key"`
	Count int    `db:"count"`
}

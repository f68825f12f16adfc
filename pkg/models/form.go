package models

import (
	"time"

	"github.com/Ramsey-B/organizer/pkg/database"
	"github.com/Ramsey-B/organizer/pkg/fieldtype"
	"github.com/google/uuid"
)

// FormType is a named category of form, e.g. "personal" or "business"
type FormType struct {
	ID          uuid.UUID `db:"id" json:"id"`
	TenantID    uuid.UUID `db:"tenant_id" json:"tenant_id"`
	Name        string    `db:"name" json:"name"`
	DisplayName string    `db:"display_name" json:"display_name"`
	Description *string   `db:"description" json:"description,omitempty"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

func (FormType) TableName() string {
	return "form_types"
}

// FormSection groups questions of a form type under a caller supplied key
type FormSection struct {
	ID          uuid.UUID `db:"id" json:"id"`
	FormTypeID  uuid.UUID `db:"form_type_id" json:"form_type_id"`
	SectionKey  string    `db:"section_key" json:"section_key"`
	Title       string    `db:"title" json:"title"`
	Description *string   `db:"description" json:"description,omitempty"`
	Order       int       `db:"display_order" json:"order"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

func (FormSection) TableName() string {
	return "form_sections"
}

// FormQuestion is created the first time a question key is seen in a section.
// FieldType and IsSensitive are fixed at creation and never re-inferred.
type FormQuestion struct {
	ID              uuid.UUID                      `db:"id" json:"id"`
	SectionID       uuid.UUID                      `db:"section_id" json:"section_id"`
	QuestionKey     string                         `db:"question_key" json:"question_key"`
	QuestionText    string                         `db:"question_text" json:"question_text"`
	FieldType       fieldtype.FieldType            `db:"field_type" json:"field_type"`
	IsRequired      bool                           `db:"is_required" json:"is_required"`
	IsSensitive     bool                           `db:"is_sensitive" json:"is_sensitive"`
	Order           int                            `db:"display_order" json:"order"`
	Options         database.JSONB[[]any]          `db:"options" json:"options"`
	ValidationRules database.JSONB[map[string]any] `db:"validation_rules" json:"validation_rules"`
	CreatedAt       time.Time                      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time                      `db:"updated_at" json:"updated_at"`
}

func (FormQuestion) TableName() string {
	return "form_questions"
}

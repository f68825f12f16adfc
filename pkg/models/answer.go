package models

import (
	"time"

	"github.com/Ramsey-B/organizer/pkg/answer"
	"github.com/Ramsey-B/organizer/pkg/database"
	"github.com/Ramsey-B/organizer/pkg/fieldtype"
	"github.com/google/uuid"
)

// SectionData is the section payload exactly as received, one row per (submission, section)
type SectionData struct {
	ID           uuid.UUID                      `db:"id" json:"id"`
	SubmissionID uuid.UUID                      `db:"submission_id" json:"submission_id"`
	SectionID    uuid.UUID                      `db:"section_id" json:"section_id"`
	SectionKey   string                         `db:"section_key" json:"section_key"`
	Data         database.JSONB[map[string]any] `db:"data" json:"data"`
	CreatedAt    time.Time                      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time                      `db:"updated_at" json:"updated_at"`
}

func (SectionData) TableName() string {
	return "form_section_data"
}

const QuestionsAndAnswersKey = "questionsAndAnswers"

// QuestionsAndAnswers returns the stored question map, creating it when absent.
func (d *SectionData) QuestionsAndAnswers() map[string]any {
	if d.Data.Data == nil {
		d.Data.Data = map[string]any{}
	}
	qa, ok := d.Data.Data[QuestionsAndAnswersKey].(map[string]any)
	if !ok {
		qa = map[string]any{}
		d.Data.Data[QuestionsAndAnswersKey] = qa
	}
	return qa
}

// Answer is the typed answer of one question within one submission. At most one of the value
// columns is non-null.
type Answer struct {
	ID             uuid.UUID          `db:"id" json:"id"`
	SubmissionID   uuid.UUID          `db:"submission_id" json:"submission_id"`
	QuestionID     uuid.UUID          `db:"question_id" json:"question_id"`
	QuestionKey    string             `db:"question_key" json:"question_key"`
	ValueText      *string            `db:"value_text" json:"-"`
	ValueNumber    *float64           `db:"value_number" json:"-"`
	ValueBoolean   *bool              `db:"value_boolean" json:"-"`
	ValueDate      *time.Time         `db:"value_date" json:"-"`
	ValueJSON      database.NullJSONB `db:"value_json" json:"-"`
	ValueEncrypted *string            `db:"value_encrypted" json:"-"`
	CreatedAt      time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time          `db:"updated_at" json:"updated_at"`
}

func (Answer) TableName() string {
	return "form_answers"
}

// TypedValue reads the answer from the column selected by the question's field type.
func (a *Answer) TypedValue(ft fieldtype.FieldType) answer.Value {
	return answer.FromSlots(ft, answer.Slots{
		Text:      a.ValueText,
		Number:    a.ValueNumber,
		Boolean:   a.ValueBoolean,
		Date:      a.ValueDate,
		JSON:      a.ValueJSON.Data,
		HasJSON:   a.ValueJSON.Valid,
		Encrypted: a.ValueEncrypted,
	})
}

// SetValue clears every column and stores v in its own.
func (a *Answer) SetValue(v answer.Value) {
	slots := v.Slots()
	a.ValueText = slots.Text
	a.ValueNumber = slots.Number
	a.ValueBoolean = slots.Boolean
	a.ValueDate = slots.Date
	a.ValueJSON = database.NullJSONB{Data: slots.JSON, Valid: slots.HasJSON}
	a.ValueEncrypted = slots.Encrypted
}

// AnswerDetail joins an answer with its question and section for reads
type AnswerDetail struct {
	Answer
	SectionKey   string `db:"section_key" json:"section_key"`
	QuestionText string `db:"question_text" json:"question_text"`
	FieldType    string `db:"field_type" json:"field_type"`
	IsSensitive  bool   `db:"is_sensitive" json:"is_sensitive"`
}

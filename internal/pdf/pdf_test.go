package pdf_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/organizer/internal/pdf"
	"github.com/Ramsey-B/organizer/pkg/answer"
	"github.com/Ramsey-B/organizer/pkg/fieldtype"
	"github.com/Ramsey-B/organizer/pkg/models"
)

func snapshot() *models.SubmissionSnapshot {
	dob := time.Date(2015, 6, 1, 0, 0, 0, 0, time.UTC)
	return &models.SubmissionSnapshot{
		Submission: models.Submission{
			ID:             uuid.MustParse("6f1c2a8e-3d4b-4c6a-9e2f-1a2b3c4d5e6f"),
			Status:         models.SubmissionStatusSubmitted,
			SubmissionDate: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		},
		FormType: models.FormType{Name: "personal", DisplayName: "Personal"},
		Sections: []models.SectionSnapshot{
			{
				Section: models.FormSection{SectionKey: "basicInfo", Title: "Basic Information", Order: 1},
				Answers: []models.AnswerSnapshot{
					{QuestionKey: "firstName", QuestionText: "First name", FieldType: fieldtype.Text, Value: answer.Text("Ada")},
					{QuestionKey: "ssn", QuestionText: "SSN", FieldType: fieldtype.Encrypted, IsSensitive: true, Value: answer.Encrypted("123-45-6789")},
					{QuestionKey: "taxpayerSignature", QuestionText: "Signature", FieldType: fieldtype.Signature, IsSensitive: true, Value: answer.Text("data:image/png;base64,AAAA")},
					{QuestionKey: "middleName", QuestionText: "Middle name", FieldType: fieldtype.Text, Value: answer.Empty()},
				},
			},
		},
		Dependents: []models.Dependent{{FirstName: "Grace", LastName: "Hopper", Relationship: "daughter", DateOfBirth: &dob, ChildCareExpense: 1200}},
		Owners:     []models.BusinessOwner{{FirstName: "Ada", Initial: "B", LastName: "Lovelace", OwnershipPercentage: 60}},
	}
}

func TestRender(t *testing.T) {
	out, err := pdf.NewRenderer(pdf.WithoutCompression()).Render(snapshot())
	require.NoError(t, err)

	require.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
	assert.Contains(t, string(out), "***-**-6789")
	assert.NotContains(t, string(out), "123-45-6789")
	assert.Contains(t, string(out), "[Digital Signature Present]")
	assert.NotContains(t, string(out), "base64,AAAA")
	assert.Contains(t, string(out), "Grace Hopper")
	assert.Contains(t, string(out), "Ada B Lovelace")
	assert.Contains(t, string(out), "$1200.00")
	assert.NotContains(t, string(out), "Middle name")
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "personal_submission_6f1c2a8e-3d4b-4c6a-9e2f-1a2b3c4d5e6f.pdf", pdf.Filename(snapshot()))
}

func TestFormatAnswer(t *testing.T) {
	cases := []struct {
		name   string
		answer models.AnswerSnapshot
		want   string
	}{
		{"text", models.AnswerSnapshot{QuestionKey: "city", Value: answer.Text("Tucson")}, "Tucson"},
		{"empty", models.AnswerSnapshot{QuestionKey: "city", Value: answer.Empty()}, ""},
		{"boolean", models.AnswerSnapshot{QuestionKey: "hasSpouse", Value: answer.Boolean(false)}, "No"},
		{"number", models.AnswerSnapshot{QuestionKey: "wages", Value: answer.Number(52000.5)}, "52000.5"},
		{"date", models.AnswerSnapshot{QuestionKey: "dateOfBirth", Value: answer.Date(time.Date(1990, 4, 1, 0, 0, 0, 0, time.UTC))}, "04/01/1990"},
		{"short ssn", models.AnswerSnapshot{QuestionKey: "spouseSSN", IsSensitive: true, Value: answer.Encrypted("12")}, "***"},
		{"json list", models.AnswerSnapshot{QuestionKey: "accounts", Value: answer.JSON([]any{
			map[string]any{"bank": "First", "type": "checking"},
			map[string]any{"bank": "Second", "balance": 10.0},
		})}, "Item 1: bank: First, type: checking; Item 2: balance: 10, bank: Second"},
		{"empty list", models.AnswerSnapshot{QuestionKey: "accounts", Value: answer.JSON([]any{})}, "No items"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, pdf.FormatAnswer(tc.answer))
		})
	}
}

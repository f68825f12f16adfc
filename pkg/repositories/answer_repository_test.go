package repositories_test

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/organizer/pkg/answer"
	"github.com/Ramsey-B/organizer/pkg/models"
	"github.com/Ramsey-B/organizer/pkg/repositories"
)

func TestAnswerRepository_UpsertMany(t *testing.T) {
	db, mock := getMockDB(t)
	repo := repositories.NewAnswerRepository(db, getTestLogger())
	ctx := getTestContext(uuid.New())
	submissionID := uuid.New()

	t.Run("empty set issues no query", func(t *testing.T) {
		require.NoError(t, repo.UpsertMany(ctx, nil))
	})

	t.Run("overwrites every value column on conflict", func(t *testing.T) {
		first := models.Answer{SubmissionID: submissionID, QuestionID: uuid.New(), QuestionKey: "firstName"}
		first.SetValue(answer.Text("Ada"))
		second := models.Answer{SubmissionID: submissionID, QuestionID: uuid.New(), QuestionKey: "ssn"}
		second.SetValue(answer.Encrypted("gAAAAB..."))

		mock.ExpectExec(`INSERT INTO form_answers \(id, submission_id, question_id, question_key, value_text, value_number, ` +
			`value_boolean, value_date, value_json, value_encrypted, created_at, updated_at\) VALUES .* ` +
			`ON CONFLICT \(submission_id, question_id\) DO UPDATE SET question_key = EXCLUDED.question_key, ` +
			`value_text = EXCLUDED.value_text, value_number = EXCLUDED.value_number, value_boolean = EXCLUDED.value_boolean, ` +
			`value_date = EXCLUDED.value_date, value_json = EXCLUDED.value_json, value_encrypted = EXCLUDED.value_encrypted, ` +
			`updated_at = EXCLUDED.updated_at`).
			WillReturnResult(sqlmock.NewResult(0, 2))

		answers := []models.Answer{first, second}
		require.NoError(t, repo.UpsertMany(ctx, answers))
		assert.NotEqual(t, uuid.Nil, answers[0].ID)
		assert.NotEqual(t, uuid.Nil, answers[1].ID)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnswerRepository_GetNotFound(t *testing.T) {
	db, mock := getMockDB(t)
	repo := repositories.NewAnswerRepository(db, getTestLogger())
	ctx := getTestContext(uuid.New())

	mock.ExpectQuery(`SELECT .* FROM form_answers WHERE submission_id = \$1 AND question_id = \$2`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.Get(ctx, uuid.New(), uuid.New())
	assertNotFound(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

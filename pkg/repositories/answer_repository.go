package repositories

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/organizer/pkg/database"
	"github.com/Ramsey-B/organizer/pkg/models"
	"github.com/Ramsey-B/organizer/pkg/tracing"
)

const formAnswersTable = "form_answers"

var answerStruct = database.NewStruct(new(models.Answer))

var answerValueColumns = []string{
	"value_text", "value_number", "value_boolean", "value_date", "value_json", "value_encrypted",
}

// AnswerRepository stores typed answers, one per (submission, question)
type AnswerRepository struct {
	*Repository
}

func NewAnswerRepository(db database.DB, logger ectologger.Logger) *AnswerRepository {
	return &AnswerRepository{
		Repository: NewRepository(db, logger),
	}
}

// UpsertMany writes answers, overwriting every value column of an existing
// (submission_id, question_id) row so that exactly the new slot is populated.
func (r *AnswerRepository) UpsertMany(ctx context.Context, answers []models.Answer) error {
	ctx, span := tracing.StartSpan(ctx, "AnswerRepository.UpsertMany")
	defer span.End()

	if _, err := GetTenantID(ctx); err != nil {
		return err
	}
	if len(answers) == 0 {
		return nil
	}

	columns := append([]string{"id", "submission_id", "question_id", "question_key"}, answerValueColumns...)
	columns = append(columns, "created_at", "updated_at")
	updated := append([]string{"question_key"}, answerValueColumns...)
	updated = append(updated, "updated_at")

	for _, batch := range batches(answers, insertBatchSize) {
		ib := database.NewInsertBuilder()
		ib.InsertInto(formAnswersTable).Cols(columns...)
		for i := range batch {
			a := &batch[i]
			if a.ID == uuid.Nil {
				a.ID = uuid.New()
			}
			ib.Values(a.ID, a.SubmissionID, a.QuestionID, a.QuestionKey, a.ValueText, a.ValueNumber, a.ValueBoolean,
				a.ValueDate, a.ValueJSON, a.ValueEncrypted, database.Now(), database.Now())
		}
		ib.OnConflictUpdate([]string{"submission_id", "question_id"}, updated...)

		query, args := ib.Build()
		if _, err := r.exec(ctx).ExecContext(ctx, query, args...); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"answer_count": len(batch),
			}).Error("failed to upsert answers")
			return Internal("failed to save answers")
		}
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"answer_count": len(answers),
	}).Debugf("Upserted %s", formAnswersTable)
	return nil
}

func (r *AnswerRepository) Get(ctx context.Context, submissionID, questionID uuid.UUID) (*models.Answer, error) {
	ctx, span := tracing.StartSpan(ctx, "AnswerRepository.Get")
	defer span.End()

	if _, err := GetTenantID(ctx); err != nil {
		return nil, err
	}

	sb := answerStruct.SelectFrom(formAnswersTable)
	sb.Where(sb.Equal("submission_id", submissionID), sb.Equal("question_id", questionID))

	query, args := sb.Build()
	var answer models.Answer
	err := r.exec(ctx).GetContext(ctx, &answer, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "answer for question %s does not exist", questionID)
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"submission_id": submissionID,
			"question_id":   questionID,
		}).Error("failed to get answer")
		return nil, Internal("failed to get answer")
	}

	return &answer, nil
}

// ListDetails returns every answer of a submission joined with its question and section,
// ordered by section then question display order.
func (r *AnswerRepository) ListDetails(ctx context.Context, submissionID uuid.UUID) ([]models.AnswerDetail, error) {
	ctx, span := tracing.StartSpan(ctx, "AnswerRepository.ListDetails")
	defer span.End()

	if _, err := GetTenantID(ctx); err != nil {
		return nil, err
	}

	sb := database.NewSelectBuilder()
	sb.Select(
		"a.id", "a.submission_id", "a.question_id", "a.question_key",
		"a.value_text", "a.value_number", "a.value_boolean", "a.value_date", "a.value_json", "a.value_encrypted",
		"a.created_at", "a.updated_at",
		"fs.section_key", "q.question_text", "q.field_type", "q.is_sensitive",
	).
		From(formAnswersTable+" a").
		Join(formQuestionsTable+" q", "q.id = a.question_id").
		Join(formSectionsTable+" fs", "fs.id = q.section_id").
		Where(sb.Equal("a.submission_id", submissionID)).
		OrderBy("fs.display_order", "q.display_order", "q.question_key")

	query, args := sb.Build()
	var details []models.AnswerDetail
	if err := r.exec(ctx).SelectContext(ctx, &details, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"submission_id": submissionID,
		}).Error("failed to list answers")
		return nil, Internal("failed to list answers")
	}
	return details, nil
}

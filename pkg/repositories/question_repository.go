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

const formQuestionsTable = "form_questions"

var formQuestionStruct = database.NewStruct(new(models.FormQuestion))

// QuestionRepository handles database operations for form questions
type QuestionRepository struct {
	*Repository
}

func NewQuestionRepository(db database.DB, logger ectologger.Logger) *QuestionRepository {
	return &QuestionRepository{
		Repository: NewRepository(db, logger),
	}
}

// Create inserts question unless its key already exists in the section, then returns the stored
// row. The stored field type wins over the one on question.
func (r *QuestionRepository) Create(ctx context.Context, question *models.FormQuestion) (*models.FormQuestion, error) {
	ctx, span := tracing.StartSpan(ctx, "QuestionRepository.Create")
	defer span.End()

	if _, err := GetTenantID(ctx); err != nil {
		return nil, err
	}

	if question.ID == uuid.Nil {
		question.ID = uuid.New()
	}

	ib := database.NewInsertBuilder()
	ib.InsertInto(formQuestionsTable).
		Cols("id", "section_id", "question_key", "question_text", "field_type", "is_required", "is_sensitive",
			"display_order", "options", "validation_rules", "created_at", "updated_at").
		Values(question.ID, question.SectionID, question.QuestionKey, question.QuestionText, question.FieldType,
			question.IsRequired, question.IsSensitive, question.Order, question.Options, question.ValidationRules,
			database.Now(), database.Now()).
		OnConflictDoNothing()

	query, args := ib.Build()
	if _, err := r.exec(ctx).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"section_id":   question.SectionID,
			"question_key": question.QuestionKey,
		}).Error("failed to create form question")
		return nil, Internal("failed to create form question")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"section_id":   question.SectionID,
		"question_key": question.QuestionKey,
		"field_type":   question.FieldType,
	}).Debugf("Created %s", formQuestionsTable)
	return r.GetByKey(ctx, question.SectionID, question.QuestionKey)
}

func (r *QuestionRepository) GetByKey(ctx context.Context, sectionID uuid.UUID, questionKey string) (*models.FormQuestion, error) {
	ctx, span := tracing.StartSpan(ctx, "QuestionRepository.GetByKey")
	defer span.End()

	if _, err := GetTenantID(ctx); err != nil {
		return nil, err
	}

	sb := formQuestionStruct.SelectFrom(formQuestionsTable)
	sb.Where(sb.Equal("section_id", sectionID), sb.Equal("question_key", questionKey))

	query, args := sb.Build()
	var question models.FormQuestion
	err := r.exec(ctx).GetContext(ctx, &question, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "question '%s' does not exist", questionKey)
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"section_id":   sectionID,
			"question_key": questionKey,
		}).Error("failed to get form question")
		return nil, Internal("failed to get form question")
	}

	return &question, nil
}

func (r *QuestionRepository) Count(ctx context.Context, sectionID uuid.UUID) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "QuestionRepository.Count")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select("COUNT(*)").From(formQuestionsTable).Where(sb.Equal("section_id", sectionID))

	query, args := sb.Build()
	var count int
	if err := r.exec(ctx).GetContext(ctx, &count, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"section_id": sectionID,
		}).Error("failed to count form questions")
		return 0, Internal("failed to count form questions")
	}
	return count, nil
}

func (r *QuestionRepository) ListBySection(ctx context.Context, sectionID uuid.UUID) ([]models.FormQuestion, error) {
	ctx, span := tracing.StartSpan(ctx, "QuestionRepository.ListBySection")
	defer span.End()

	if _, err := GetTenantID(ctx); err != nil {
		return nil, err
	}

	sb := formQuestionStruct.SelectFrom(formQuestionsTable)
	sb.Where(sb.Equal("section_id", sectionID))
	sb.OrderBy("display_order", "question_key")

	query, args := sb.Build()
	var questions []models.FormQuestion
	if err := r.exec(ctx).SelectContext(ctx, &questions, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"section_id": sectionID,
		}).Error("failed to list form questions")
		return nil, Internal("failed to list form questions")
	}
	return questions, nil
}

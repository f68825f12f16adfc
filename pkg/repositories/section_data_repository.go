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

const formSectionDataTable = "form_section_data"

var sectionDataStruct = database.NewStruct(new(models.SectionData))

// SectionDataRepository stores the raw section payload of each submission
type SectionDataRepository struct {
	*Repository
}

func NewSectionDataRepository(db database.DB, logger ectologger.Logger) *SectionDataRepository {
	return &SectionDataRepository{
		Repository: NewRepository(db, logger),
	}
}

// Upsert writes the blob for (submission, section), replacing any previous one.
func (r *SectionDataRepository) Upsert(ctx context.Context, data *models.SectionData) error {
	ctx, span := tracing.StartSpan(ctx, "SectionDataRepository.Upsert")
	defer span.End()

	if _, err := GetTenantID(ctx); err != nil {
		return err
	}

	if data.ID == uuid.Nil {
		data.ID = uuid.New()
	}

	ib := database.NewInsertBuilder()
	ib.InsertInto(formSectionDataTable).
		Cols("id", "submission_id", "section_id", "section_key", "data", "created_at", "updated_at").
		Values(data.ID, data.SubmissionID, data.SectionID, data.SectionKey, data.Data, database.Now(), database.Now()).
		OnConflictUpdate([]string{"submission_id", "section_id"}, "section_key", "data", "updated_at").
		Returning("id", "created_at", "updated_at")

	query, args := ib.Build()
	err := r.exec(ctx).QueryRowxContext(ctx, query, args...).Scan(&data.ID, &data.CreatedAt, &data.UpdatedAt)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"submission_id": data.SubmissionID,
			"section_key":   data.SectionKey,
		}).Error("failed to upsert section data")
		return Internal("failed to save section data")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"submission_id": data.SubmissionID,
		"section_key":   data.SectionKey,
	}).Debugf("Upserted %s", formSectionDataTable)
	return nil
}

func (r *SectionDataRepository) Get(ctx context.Context, submissionID, sectionID uuid.UUID) (*models.SectionData, error) {
	ctx, span := tracing.StartSpan(ctx, "SectionDataRepository.Get")
	defer span.End()

	if _, err := GetTenantID(ctx); err != nil {
		return nil, err
	}

	sb := sectionDataStruct.SelectFrom(formSectionDataTable)
	sb.Where(sb.Equal("submission_id", submissionID), sb.Equal("section_id", sectionID))

	query, args := sb.Build()
	var data models.SectionData
	err := r.exec(ctx).GetContext(ctx, &data, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "section data for submission %s does not exist", submissionID)
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"submission_id": submissionID,
			"section_id":    sectionID,
		}).Error("failed to get section data")
		return nil, Internal("failed to get section data")
	}

	return &data, nil
}

func (r *SectionDataRepository) ListBySubmission(ctx context.Context, submissionID uuid.UUID) ([]models.SectionData, error) {
	ctx, span := tracing.StartSpan(ctx, "SectionDataRepository.ListBySubmission")
	defer span.End()

	if _, err := GetTenantID(ctx); err != nil {
		return nil, err
	}

	sb := sectionDataStruct.SelectFrom(formSectionDataTable)
	sb.Where(sb.Equal("submission_id", submissionID))
	sb.OrderBy("created_at")

	query, args := sb.Build()
	var data []models.SectionData
	if err := r.exec(ctx).SelectContext(ctx, &data, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"submission_id": submissionID,
		}).Error("failed to list section data")
		return nil, Internal("failed to list section data")
	}
	return data, nil
}

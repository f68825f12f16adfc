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

const formSectionsTable = "form_sections"

var formSectionStruct = database.NewStruct(new(models.FormSection))

// SectionRepository handles database operations for form sections
type SectionRepository struct {
	*Repository
}

func NewSectionRepository(db database.DB, logger ectologger.Logger) *SectionRepository {
	return &SectionRepository{
		Repository: NewRepository(db, logger),
	}
}

// GetOrCreate resolves a section of formTypeID by key. A new section is titled title and
// ordered after every existing section of the form type.
func (r *SectionRepository) GetOrCreate(ctx context.Context, formTypeID uuid.UUID, sectionKey, title string) (*models.FormSection, error) {
	ctx, span := tracing.StartSpan(ctx, "SectionRepository.GetOrCreate")
	defer span.End()

	section, err := r.GetByKey(ctx, formTypeID, sectionKey)
	if err == nil {
		return section, nil
	}
	if httperror.GetStatusCode(err) != http.StatusNotFound {
		return nil, err
	}

	count, err := r.Count(ctx, formTypeID)
	if err != nil {
		return nil, err
	}

	ib := database.NewInsertBuilder()
	ib.InsertInto(formSectionsTable).
		Cols("id", "form_type_id", "section_key", "title", "display_order", "is_active", "created_at", "updated_at").
		Values(uuid.New(), formTypeID, sectionKey, title, count+1, true, database.Now(), database.Now()).
		OnConflictDoNothing()

	query, args := ib.Build()
	if _, err := r.exec(ctx).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"form_type_id": formTypeID,
			"section_key":  sectionKey,
		}).Error("failed to create form section")
		return nil, Internal("failed to create form section")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"form_type_id": formTypeID,
		"section_key":  sectionKey,
	}).Debugf("Created %s", formSectionsTable)
	return r.GetByKey(ctx, formTypeID, sectionKey)
}

func (r *SectionRepository) GetByKey(ctx context.Context, formTypeID uuid.UUID, sectionKey string) (*models.FormSection, error) {
	ctx, span := tracing.StartSpan(ctx, "SectionRepository.GetByKey")
	defer span.End()

	if _, err := GetTenantID(ctx); err != nil {
		return nil, err
	}

	sb := formSectionStruct.SelectFrom(formSectionsTable)
	sb.Where(sb.Equal("form_type_id", formTypeID), sb.Equal("section_key", sectionKey))

	query, args := sb.Build()
	var section models.FormSection
	err := r.exec(ctx).GetContext(ctx, &section, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "section '%s' does not exist", sectionKey)
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"form_type_id": formTypeID,
			"section_key":  sectionKey,
		}).Error("failed to get form section")
		return nil, Internal("failed to get form section")
	}

	return &section, nil
}

func (r *SectionRepository) Count(ctx context.Context, formTypeID uuid.UUID) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "SectionRepository.Count")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select("COUNT(*)").From(formSectionsTable).Where(sb.Equal("form_type_id", formTypeID))

	query, args := sb.Build()
	var count int
	if err := r.exec(ctx).GetContext(ctx, &count, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"form_type_id": formTypeID,
		}).Error("failed to count form sections")
		return 0, Internal("failed to count form sections")
	}
	return count, nil
}

// ListByFormType returns the sections of a form type ordered for display.
func (r *SectionRepository) ListByFormType(ctx context.Context, formTypeID uuid.UUID) ([]models.FormSection, error) {
	ctx, span := tracing.StartSpan(ctx, "SectionRepository.ListByFormType")
	defer span.End()

	if _, err := GetTenantID(ctx); err != nil {
		return nil, err
	}

	sb := formSectionStruct.SelectFrom(formSectionsTable)
	sb.Where(sb.Equal("form_type_id", formTypeID))
	sb.OrderBy("display_order", "section_key")

	query, args := sb.Build()
	var sections []models.FormSection
	if err := r.exec(ctx).SelectContext(ctx, &sections, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"form_type_id": formTypeID,
		}).Error("failed to list form sections")
		return nil, Internal("failed to list form sections")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"section_count": len(sections),
	}).Debugf("Listed %s", formSectionsTable)
	return sections, nil
}

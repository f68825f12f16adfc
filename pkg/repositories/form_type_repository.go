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

const formTypesTable = "form_types"

var formTypeStruct = database.NewStruct(new(models.FormType))

// FormTypeRepository handles database operations for form types
type FormTypeRepository struct {
	*Repository
}

func NewFormTypeRepository(db database.DB, logger ectologger.Logger) *FormTypeRepository {
	return &FormTypeRepository{
		Repository: NewRepository(db, logger),
	}
}

// GetOrCreate returns the tenant's form type called name, creating it on first use.
func (r *FormTypeRepository) GetOrCreate(ctx context.Context, name string) (*models.FormType, error) {
	ctx, span := tracing.StartSpan(ctx, "FormTypeRepository.GetOrCreate")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return nil, err
	}

	ib := database.NewInsertBuilder()
	ib.InsertInto(formTypesTable).
		Cols("id", "tenant_id", "name", "display_name", "is_active", "created_at", "updated_at").
		Values(uuid.New(), tenantID, name, models.Humanize(name), true, database.Now(), database.Now()).
		OnConflictDoNothing()

	query, args := ib.Build()
	if _, err := r.exec(ctx).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"form_type": name,
		}).Error("failed to create form type")
		return nil, Internal("failed to create form type")
	}

	return r.GetByName(ctx, name)
}

func (r *FormTypeRepository) GetByName(ctx context.Context, name string) (*models.FormType, error) {
	ctx, span := tracing.StartSpan(ctx, "FormTypeRepository.GetByName")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return nil, err
	}

	sb := formTypeStruct.SelectFrom(formTypesTable)
	sb.Where(sb.Equal("tenant_id", tenantID), sb.Equal("name", name))

	query, args := sb.Build()
	var formType models.FormType
	err = r.exec(ctx).GetContext(ctx, &formType, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "form type '%s' does not exist", name)
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"form_type": name,
		}).Error("failed to get form type by name")
		return nil, Internal("failed to get form type by name")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"form_type_id": formType.ID,
	}).Debugf("Retrieved %s by name: %s", formTypesTable, name)
	return &formType, nil
}

func (r *FormTypeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.FormType, error) {
	ctx, span := tracing.StartSpan(ctx, "FormTypeRepository.GetByID")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return nil, err
	}

	sb := formTypeStruct.SelectFrom(formTypesTable)
	sb.Where(sb.Equal("tenant_id", tenantID), sb.Equal("id", id))

	query, args := sb.Build()
	var formType models.FormType
	err = r.exec(ctx).GetContext(ctx, &formType, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "form type %s does not exist", id)
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"form_type_id": id,
		}).Error("failed to get form type by ID")
		return nil, Internal("failed to get form type by ID")
	}

	return &formType, nil
}

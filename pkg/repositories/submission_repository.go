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

const submissionsTable = "submissions"

// submissionChildTables are cleared on full replace. Audit logs are kept.
var submissionChildTables = []string{
	formSectionDataTable,
	formAnswersTable,
	dependentsTable,
	businessOwnersTable,
	vehiclesTable,
	charitableContributionsTable,
}

var submissionColumns = []string{
	"s.id", "s.tenant_id", "s.user_id", "s.user_email", "s.form_type_id", "ft.name AS form_type_name",
	"s.status", "s.submission_date", "s.client_info", "s.processing_notes", "s.created_at", "s.updated_at",
}

// SubmissionRepository handles database operations for submissions
type SubmissionRepository struct {
	*Repository
}

func NewSubmissionRepository(db database.DB, logger ectologger.Logger) *SubmissionRepository {
	return &SubmissionRepository{
		Repository: NewRepository(db, logger),
	}
}

func selectSubmissions() *database.SelectBuilder {
	sb := database.NewSelectBuilder()
	sb.Select(submissionColumns...).
		From(submissionsTable+" s").
		Join(formTypesTable+" ft", "ft.id = s.form_type_id")
	return sb
}

func (r *SubmissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	ctx, span := tracing.StartSpan(ctx, "SubmissionRepository.Create")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return err
	}
	submission.TenantID = tenantID

	if submission.ID == uuid.Nil {
		submission.ID = uuid.New()
	}

	ib := database.NewInsertBuilder()
	ib.InsertInto(submissionsTable).
		Cols("id", "tenant_id", "user_id", "user_email", "form_type_id", "status", "submission_date",
			"client_info", "processing_notes", "created_at", "updated_at").
		Values(submission.ID, submission.TenantID, submission.UserID, submission.UserEmail, submission.FormTypeID,
			submission.Status, submission.SubmissionDate, submission.ClientInfo, submission.ProcessingNotes,
			database.Now(), database.Now()).
		Returning("created_at", "updated_at")

	query, args := ib.Build()
	err = r.exec(ctx).QueryRowxContext(ctx, query, args...).Scan(&submission.CreatedAt, &submission.UpdatedAt)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"submission_id": submission.ID,
		}).Error("failed to create submission")
		return Internal("failed to create submission")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"submission_id": submission.ID,
	}).Debugf("Created %s", submissionsTable)
	return nil
}

// GetByID retrieves a submission by ID (tenant-scoped)
func (r *SubmissionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Submission, error) {
	ctx, span := tracing.StartSpan(ctx, "SubmissionRepository.GetByID")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return nil, err
	}

	sb := selectSubmissions()
	sb.Where(sb.Equal("s.tenant_id", tenantID), sb.Equal("s.id", id))

	query, args := sb.Build()
	var submission models.Submission
	err = r.exec(ctx).GetContext(ctx, &submission, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "submission %s does not exist", id)
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"submission_id": id,
		}).Error("failed to get submission by ID")
		return nil, Internal("failed to get submission by ID")
	}

	return &submission, nil
}

// List returns the tenant's submissions, newest first.
func (r *SubmissionRepository) List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, error) {
	ctx, span := tracing.StartSpan(ctx, "SubmissionRepository.List")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return nil, err
	}

	sb := selectSubmissions()
	sb.Where(sb.Equal("s.tenant_id", tenantID))
	if filter.UserID != "" {
		sb.Where(sb.Equal("s.user_id", filter.UserID))
	}
	if filter.FormType != "" {
		sb.Where(sb.Equal("ft.name", filter.FormType))
	}
	if filter.Status != "" {
		sb.Where(sb.Equal("s.status", filter.Status))
	}
	sb.OrderBy("s.created_at").Desc()
	if filter.Limit > 0 {
		sb.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		sb.Offset(filter.Offset)
	}

	query, args := sb.Build()
	submissions := []models.Submission{}
	if err := r.exec(ctx).SelectContext(ctx, &submissions, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"user_id":   filter.UserID,
			"form_type": filter.FormType,
			"status":    filter.Status,
		}).Error("failed to list submissions")
		return nil, Internal("failed to list submissions")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"submission_count": len(submissions),
	}).Debugf("Listed %s", submissionsTable)
	return submissions, nil
}

// Update writes the mutable submission fields and refreshes updated_at.
func (r *SubmissionRepository) Update(ctx context.Context, submission *models.Submission) error {
	ctx, span := tracing.StartSpan(ctx, "SubmissionRepository.Update")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return err
	}

	ub := database.NewUpdateBuilder()
	ub.Update(submissionsTable).
		Set(
			ub.Assign("status", submission.Status),
			ub.Assign("submission_date", submission.SubmissionDate),
			ub.Assign("client_info", submission.ClientInfo),
			ub.Assign("processing_notes", submission.ProcessingNotes),
			ub.Assign("updated_at", database.Now()),
		).
		Where(ub.Equal("tenant_id", tenantID), ub.Equal("id", submission.ID))
	ub.SQL("RETURNING updated_at")

	query, args := ub.Build()
	err = r.exec(ctx).QueryRowxContext(ctx, query, args...).Scan(&submission.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "submission %s does not exist", submission.ID)
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"submission_id": submission.ID,
		}).Error("failed to update submission")
		return Internal("failed to update submission")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"submission_id": submission.ID,
		"status":        submission.Status,
	}).Debugf("Updated %s", submissionsTable)
	return nil
}

// Delete removes a submission. Child rows go with it through ON DELETE CASCADE.
func (r *SubmissionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, span := tracing.StartSpan(ctx, "SubmissionRepository.Delete")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return err
	}

	db := database.NewDeleteBuilder()
	db.DeleteFrom(submissionsTable).
		Where(db.Equal("tenant_id", tenantID), db.Equal("id", id))

	query, args := db.Build()
	result, err := r.exec(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"submission_id": id,
		}).Error("failed to delete submission")
		return Internal("failed to delete submission")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"submission_id": id,
		}).Error("failed to delete submission")
		return Internal("failed to delete submission")
	}
	if rows == 0 {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "submission %s does not exist", id)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"submission_id": id,
	}).Debugf("Deleted %s", submissionsTable)
	return nil
}

// DeleteChildren clears every derived row of a submission except its audit trail.
func (r *SubmissionRepository) DeleteChildren(ctx context.Context, id uuid.UUID) error {
	ctx, span := tracing.StartSpan(ctx, "SubmissionRepository.DeleteChildren")
	defer span.End()

	if _, err := GetTenantID(ctx); err != nil {
		return err
	}

	for _, table := range submissionChildTables {
		db := database.NewDeleteBuilder()
		db.DeleteFrom(table).Where(db.Equal("submission_id", id))

		query, args := db.Build()
		if _, err := r.exec(ctx).ExecContext(ctx, query, args...); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"submission_id": id,
				"table":         table,
			}).Error("failed to delete submission children")
			return Internal("failed to delete submission children")
		}
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"submission_id": id,
	}).Debug("Deleted submission children")
	return nil
}

// Statistics aggregates the tenant's submissions by status and form type. A non-empty userID
// limits them to that user's submissions.
func (r *SubmissionRepository) Statistics(ctx context.Context, userID string, recent int) (*models.SubmissionStatistics, error) {
	ctx, span := tracing.StartSpan(ctx, "SubmissionRepository.Statistics")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return nil, err
	}

	stats := &models.SubmissionStatistics{
		ByStatus:          map[string]int{},
		ByFormType:        map[string]int{},
		RecentSubmissions: []models.SubmissionOverview{},
	}

	byStatus := database.NewSelectBuilder()
	byStatus.Select("status AS key", "COUNT(*) AS count").
		From(submissionsTable).
		Where(byStatus.Equal("tenant_id", tenantID))
	if userID != "" {
		byStatus.Where(byStatus.Equal("user_id", userID))
	}
	byStatus.GroupBy("status")
	statusCounts, err := r.counts(ctx, byStatus)
	if err != nil {
		return nil, err
	}
	for _, count := range statusCounts {
		label := models.SubmissionStatus(count.Key).Label()
		if label == "" {
			label = count.Key
		}
		stats.ByStatus[label] = count.Count
		stats.Total += count.Count
	}

	byFormType := database.NewSelectBuilder()
	byFormType.Select("ft.display_name AS key", "COUNT(*) AS count").
		From(submissionsTable+" s").
		Join(formTypesTable+" ft", "ft.id = s.form_type_id").
		Where(byFormType.Equal("s.tenant_id", tenantID))
	if userID != "" {
		byFormType.Where(byFormType.Equal("s.user_id", userID))
	}
	byFormType.GroupBy("ft.display_name")
	formTypeCounts, err := r.counts(ctx, byFormType)
	if err != nil {
		return nil, err
	}
	for _, count := range formTypeCounts {
		stats.ByFormType[count.Key] = count.Count
	}

	sb := database.NewSelectBuilder()
	sb.Select("s.id", "ft.name AS form_type_name", "s.status", "s.created_at").
		From(submissionsTable+" s").
		Join(formTypesTable+" ft", "ft.id = s.form_type_id").
		Where(sb.Equal("s.tenant_id", tenantID))
	if userID != "" {
		sb.Where(sb.Equal("s.user_id", userID))
	}
	sb.OrderBy("s.created_at").Desc()
	sb.Limit(recent)

	query, args := sb.Build()
	if err := r.exec(ctx).SelectContext(ctx, &stats.RecentSubmissions, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list recent submissions")
		return nil, Internal("failed to get submission statistics")
	}

	return stats, nil
}

func (r *SubmissionRepository) counts(ctx context.Context, sb *database.SelectBuilder) ([]models.StatusCount, error) {
	query, args := sb.Build()
	var counts []models.StatusCount
	if err := r.exec(ctx).SelectContext(ctx, &counts, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to count submissions")
		return nil, Internal("failed to get submission statistics")
	}
	return counts, nil
}

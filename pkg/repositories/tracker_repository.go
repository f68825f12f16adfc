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

const financeTrackersTable = "finance_trackers"

var trackerStruct = database.NewStruct(new(models.FinanceTracker))

// TrackerRepository stores the per-user finance tracker blob
type TrackerRepository struct {
	*Repository
}

func NewTrackerRepository(db database.DB, logger ectologger.Logger) *TrackerRepository {
	return &TrackerRepository{
		Repository: NewRepository(db, logger),
	}
}

func (r *TrackerRepository) GetByUser(ctx context.Context, userID string) (*models.FinanceTracker, error) {
	ctx, span := tracing.StartSpan(ctx, "TrackerRepository.GetByUser")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return nil, err
	}

	sb := trackerStruct.SelectFrom(financeTrackersTable)
	sb.Where(sb.Equal("tenant_id", tenantID), sb.Equal("user_id", userID))

	query, args := sb.Build()
	var tracker models.FinanceTracker
	err = r.exec(ctx).GetContext(ctx, &tracker, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "tracker data does not exist")
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"user_id": userID,
		}).Error("failed to get tracker")
		return nil, Internal("failed to get tracker")
	}

	return &tracker, nil
}

// Upsert creates the user's tracker or overwrites its data. created reports which happened.
func (r *TrackerRepository) Upsert(ctx context.Context, tracker *models.FinanceTracker) (created bool, err error) {
	ctx, span := tracing.StartSpan(ctx, "TrackerRepository.Upsert")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return false, err
	}
	tracker.TenantID = tenantID

	if tracker.ID == uuid.Nil {
		tracker.ID = uuid.New()
	}

	ib := database.NewInsertBuilder()
	ib.InsertInto(financeTrackersTable).
		Cols("id", "tenant_id", "user_id", "data", "created_at", "updated_at").
		Values(tracker.ID, tracker.TenantID, tracker.UserID, tracker.Data, database.Now(), database.Now()).
		OnConflictUpdate([]string{"tenant_id", "user_id"}, "data", "updated_at").
		Returning("id", "created_at", "updated_at", "(xmax = 0) AS inserted")

	query, args := ib.Build()
	err = r.exec(ctx).QueryRowxContext(ctx, query, args...).Scan(&tracker.ID, &tracker.CreatedAt, &tracker.UpdatedAt, &created)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"user_id": tracker.UserID,
		}).Error("failed to upsert tracker")
		return false, Internal("failed to save tracker")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"user_id": tracker.UserID,
		"created": created,
	}).Debugf("Upserted %s", financeTrackersTable)
	return created, nil
}

func (r *TrackerRepository) DeleteByUser(ctx context.Context, userID string) error {
	ctx, span := tracing.StartSpan(ctx, "TrackerRepository.DeleteByUser")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return err
	}

	db := database.NewDeleteBuilder()
	db.DeleteFrom(financeTrackersTable).
		Where(db.Equal("tenant_id", tenantID), db.Equal("user_id", userID))

	query, args := db.Build()
	result, err := r.exec(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"user_id": userID,
		}).Error("failed to delete tracker")
		return Internal("failed to delete tracker")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"user_id": userID,
		}).Error("failed to delete tracker")
		return Internal("failed to delete tracker")
	}
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, "tracker data does not exist")
	}

	return nil
}

package repositories_test

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Gobusters/ectoerror/httperror"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "github.com/Ramsey-B/organizer/pkg/context"
	"github.com/Ramsey-B/organizer/pkg/database"
	"github.com/Ramsey-B/organizer/pkg/models"
	"github.com/Ramsey-B/organizer/pkg/repositories"
)

func TestSubmissionRepository_RequiresTenant(t *testing.T) {
	db, mock := getMockDB(t)
	repo := repositories.NewSubmissionRepository(db, getTestLogger())

	_, err := repo.GetByID(context.Background(), uuid.New())
	assertUnauthorized(t, err)

	ctx := appctx.SetTenantID(context.Background(), "not-a-uuid")
	_, err = repo.List(ctx, models.SubmissionFilter{})
	assertUnauthorized(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepository_GetByID(t *testing.T) {
	db, mock := getMockDB(t)
	repo := repositories.NewSubmissionRepository(db, getTestLogger())

	tenantID := uuid.New()
	ctx := getTestContext(tenantID)

	t.Run("joins the form type name", func(t *testing.T) {
		id := uuid.New()
		now := time.Now()
		rows := sqlmock.NewRows([]string{
			"id", "tenant_id", "user_id", "user_email", "form_type_id", "form_type_name", "status",
			"submission_date", "client_info", "processing_notes", "created_at", "updated_at",
		}).AddRow(id.String(), tenantID.String(), "user-1", "a@example.com", uuid.NewString(), "personal", "draft",
			now, []byte(`{"ip_address":"10.0.0.1"}`), nil, now, now)

		mock.ExpectQuery(`SELECT .* FROM submissions s JOIN form_types ft ON ft.id = s.form_type_id WHERE s.tenant_id = \$1 AND s.id = \$2`).
			WithArgs(tenantID, id).
			WillReturnRows(rows)

		submission, err := repo.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, id, submission.ID)
		assert.Equal(t, "personal", submission.FormTypeName)
		assert.Equal(t, models.SubmissionStatusDraft, submission.Status)
		assert.Equal(t, "10.0.0.1", submission.ClientInfo.Data.IPAddress)
		assert.Nil(t, submission.ProcessingNotes)
	})

	t.Run("missing row is 404", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .* FROM submissions s`).WillReturnError(sql.ErrNoRows)

		_, err := repo.GetByID(ctx, uuid.New())
		assertNotFound(t, err)
	})

	t.Run("driver failure is 500", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .* FROM submissions s`).WillReturnError(errors.New("connection reset"))

		_, err := repo.GetByID(ctx, uuid.New())
		require.Error(t, err)
		assert.Equal(t, http.StatusInternalServerError, httperror.GetStatusCode(err))
		assert.NotContains(t, err.Error(), "connection reset")
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepository_Delete(t *testing.T) {
	db, mock := getMockDB(t)
	repo := repositories.NewSubmissionRepository(db, getTestLogger())
	ctx := getTestContext(uuid.New())

	mock.ExpectExec(`DELETE FROM submissions WHERE tenant_id = \$1 AND id = \$2`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Delete(ctx, uuid.New()))

	mock.ExpectExec(`DELETE FROM submissions`).WillReturnResult(sqlmock.NewResult(0, 0))
	assertNotFound(t, repo.Delete(ctx, uuid.New()))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepository_DeleteChildrenKeepsAuditTrail(t *testing.T) {
	db, mock := getMockDB(t)
	repo := repositories.NewSubmissionRepository(db, getTestLogger())
	ctx := getTestContext(uuid.New())
	id := uuid.New()

	for _, table := range []string{
		"form_section_data", "form_answers", "dependents", "business_owners", "vehicles", "charitable_contributions",
	} {
		mock.ExpectExec(`DELETE FROM ` + table + ` WHERE submission_id = \$1`).
			WithArgs(id).
			WillReturnResult(sqlmock.NewResult(0, 3))
	}

	require.NoError(t, repo.DeleteChildren(ctx, id))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepository_UpdateInTransaction(t *testing.T) {
	db, mock := getMockDB(t)
	repo := repositories.NewSubmissionRepository(db, getTestLogger())
	ctx := getTestContext(uuid.New())

	submission := &models.Submission{ID: uuid.New(), Status: models.SubmissionStatusProcessing}
	updatedAt := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE submissions SET status = \$1, .* RETURNING updated_at`).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(updatedAt))
	mock.ExpectCommit()

	err := database.RunInTx(ctx, db, func(ctx context.Context) error {
		return repo.Update(ctx, submission)
	})
	require.NoError(t, err)
	assert.Equal(t, updatedAt, submission.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepository_Statistics(t *testing.T) {
	db, mock := getMockDB(t)
	repo := repositories.NewSubmissionRepository(db, getTestLogger())
	ctx := getTestContext(uuid.New())

	mock.ExpectQuery(`SELECT status AS key, COUNT\(\*\) AS count FROM submissions .* GROUP BY status`).
		WillReturnRows(sqlmock.NewRows([]string{"key", "count"}).
			AddRow("draft", 2).
			AddRow("submitted", 3))
	mock.ExpectQuery(`SELECT ft.display_name AS key, COUNT\(\*\) AS count .* GROUP BY ft.display_name`).
		WillReturnRows(sqlmock.NewRows([]string{"key", "count"}).
			AddRow("Personal", 4).
			AddRow("Business", 1))
	mock.ExpectQuery(`SELECT s.id, ft.name AS form_type_name, s.status, s.created_at .* ORDER BY s.created_at DESC LIMIT`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "form_type_name", "status", "created_at"}).
			AddRow(uuid.NewString(), "personal", "submitted", time.Now()))

	stats, err := repo.Statistics(ctx, "", 5)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, map[string]int{"Draft": 2, "Submitted": 3}, stats.ByStatus)
	assert.Equal(t, map[string]int{"Personal": 4, "Business": 1}, stats.ByFormType)
	require.Len(t, stats.RecentSubmissions, 1)
	assert.Equal(t, "personal", stats.RecentSubmissions[0].FormType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepository_StatisticsForUser(t *testing.T) {
	db, mock := getMockDB(t)
	repo := repositories.NewSubmissionRepository(db, getTestLogger())
	tenantID := uuid.New()
	ctx := getTestContext(tenantID)

	mock.ExpectQuery(`FROM submissions WHERE tenant_id = \$1 AND user_id = \$2 GROUP BY status`).
		WithArgs(tenantID, "client-1").
		WillReturnRows(sqlmock.NewRows([]string{"key", "count"}).AddRow("draft", 1))
	mock.ExpectQuery(`WHERE s.tenant_id = \$1 AND s.user_id = \$2 GROUP BY ft.display_name`).
		WithArgs(tenantID, "client-1").
		WillReturnRows(sqlmock.NewRows([]string{"key", "count"}).AddRow("Personal", 1))
	mock.ExpectQuery(`WHERE s.tenant_id = \$1 AND s.user_id = \$2 ORDER BY s.created_at DESC LIMIT`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "form_type_name", "status", "created_at"}))

	stats, err := repo.Statistics(ctx, "client-1", 5)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, map[string]int{"Draft": 1}, stats.ByStatus)
	assert.Empty(t, stats.RecentSubmissions)
	assert.NoError(t, mock.ExpectationsWereMet())
}

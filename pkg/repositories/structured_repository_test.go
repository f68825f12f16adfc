package repositories_test

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/organizer/pkg/models"
	"github.com/Ramsey-B/organizer/pkg/repositories"
)

func TestStructuredRepository_ReplaceDependents(t *testing.T) {
	db, mock := getMockDB(t)
	repo := repositories.NewStructuredRepository(db, getTestLogger())
	ctx := getTestContext(uuid.New())
	submissionID := uuid.New()

	t.Run("empty list only clears", func(t *testing.T) {
		mock.ExpectExec(`DELETE FROM dependents WHERE submission_id = \$1`).
			WithArgs(submissionID).
			WillReturnResult(sqlmock.NewResult(0, 2))

		require.NoError(t, repo.ReplaceDependents(ctx, submissionID, []models.Dependent{}))
	})

	t.Run("clears then inserts in order", func(t *testing.T) {
		mock.ExpectExec(`DELETE FROM dependents WHERE submission_id = \$1`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`INSERT INTO dependents \(id, submission_id, first_name, .*, position\) VALUES`).
			WillReturnResult(sqlmock.NewResult(0, 2))

		dependents := []models.Dependent{{FirstName: "Amy"}, {FirstName: "Ben"}}
		require.NoError(t, repo.ReplaceDependents(ctx, submissionID, dependents))
		assert.Equal(t, submissionID, dependents[0].SubmissionID)
		assert.NotEqual(t, uuid.Nil, dependents[1].ID)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStructuredRepository_ReplaceBatches(t *testing.T) {
	db, mock := getMockDB(t)
	repo := repositories.NewStructuredRepository(db, getTestLogger())
	ctx := getTestContext(uuid.New())

	contributions := make([]models.CharitableContribution, 1001)
	for i := range contributions {
		contributions[i].OrganizationName = "Food Bank"
	}

	mock.ExpectExec(`DELETE FROM charitable_contributions`).WillReturnResult(sqlmock.NewResult(0, 0))
	for range 3 {
		mock.ExpectExec(`INSERT INTO charitable_contributions`).WillReturnResult(sqlmock.NewResult(0, 500))
	}

	require.NoError(t, repo.ReplaceContributions(ctx, uuid.New(), contributions))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStructuredRepository_ListVehicles(t *testing.T) {
	db, mock := getMockDB(t)
	repo := repositories.NewStructuredRepository(db, getTestLogger())
	ctx := getTestContext(uuid.New())
	submissionID := uuid.New()

	mock.ExpectQuery(`SELECT .* FROM vehicles WHERE submission_id = \$1 ORDER BY position`).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "submission_id", "description", "date_placed_in_service", "total_miles", "business_miles", "created_at",
		}).AddRow(uuid.NewString(), submissionID.String(), "Truck", nil, 12000, 8000, time.Now()))

	vehicles, err := repo.ListVehicles(ctx, submissionID)
	require.NoError(t, err)
	require.Len(t, vehicles, 1)
	assert.Equal(t, "Truck", vehicles[0].Description)
	assert.Equal(t, 8000, vehicles[0].BusinessMiles)
	assert.Nil(t, vehicles[0].DatePlacedInService)
	assert.NoError(t, mock.ExpectationsWereMet())
}

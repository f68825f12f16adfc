package audit_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/organizer/internal/memstore"
	"github.com/Ramsey-B/organizer/internal/services/audit"
	appctx "github.com/Ramsey-B/organizer/pkg/context"
	"github.com/Ramsey-B/organizer/pkg/models"
)

func TestRecorder(t *testing.T) {
	logger := ectologger.NewEctoLogger(func(ectologger.EctoLogMessage) {})
	ctx := appctx.WithActor(context.Background(), appctx.Actor{
		TenantID:  uuid.NewString(),
		UserID:    "user-1",
		RemoteIP:  "203.0.113.7",
		UserAgent: "test-agent",
	})

	t.Run("records actor and changes", func(t *testing.T) {
		store := memstore.New()
		recorder := audit.NewRecorder(store.Audit(), logger)
		submissionID := uuid.New()

		require.NoError(t, recorder.Record(ctx, submissionID, models.AuditActionStatusUpdated, map[string]any{
			"old_status": "draft",
			"new_status": "submitted",
		}))
		require.NoError(t, recorder.Record(ctx, submissionID, models.AuditActionSectionUpdated, nil))

		logs, err := recorder.ListBySubmission(ctx, submissionID)
		require.NoError(t, err)
		require.Len(t, logs, 2)

		// newest first
		assert.Equal(t, models.AuditActionSectionUpdated, logs[0].Action)
		assert.Equal(t, map[string]any{}, logs[0].Changes.Data)

		entry := logs[1]
		assert.Equal(t, "user-1", entry.UserID)
		require.NotNil(t, entry.IPAddress)
		assert.Equal(t, "203.0.113.7", *entry.IPAddress)
		require.NotNil(t, entry.UserAgent)
		assert.Equal(t, "test-agent", *entry.UserAgent)
		assert.Equal(t, "submitted", entry.Changes.Data["new_status"])
		assert.False(t, entry.Timestamp.IsZero())
	})

	t.Run("missing ip and agent are null", func(t *testing.T) {
		store := memstore.New()
		recorder := audit.NewRecorder(store.Audit(), logger)
		bare := appctx.SetTenantID(context.Background(), uuid.NewString())

		require.NoError(t, recorder.Record(bare, uuid.New(), models.AuditActionCreated, nil))
		entry := store.AllAudit()[0]
		assert.Nil(t, entry.IPAddress)
		assert.Nil(t, entry.UserAgent)
	})

	t.Run("failure propagates", func(t *testing.T) {
		store := memstore.New()
		store.Fail = func(string) error { return errors.New("boom") }
		recorder := audit.NewRecorder(store.Audit(), logger)

		err := recorder.Record(ctx, uuid.New(), models.AuditActionCreated, nil)
		assert.Error(t, err)
		assert.Empty(t, store.AllAudit())
	})
}

package submission_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/organizer/internal/materializer"
	"github.com/Ramsey-B/organizer/internal/memstore"
	"github.com/Ramsey-B/organizer/internal/services/audit"
	"github.com/Ramsey-B/organizer/internal/services/submission"
	appctx "github.com/Ramsey-B/organizer/pkg/context"
	"github.com/Ramsey-B/organizer/pkg/encryption"
	"github.com/Ramsey-B/organizer/pkg/kafka"
	"github.com/Ramsey-B/organizer/pkg/models"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []kafka.Event
}

func (p *recordingPublisher) Publish(_ context.Context, evt *kafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, *evt)
	return nil
}

func (p *recordingPublisher) statuses() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, evt := range p.events {
		out = append(out, evt.Status)
	}
	return out
}

type fixture struct {
	owner  context.Context
	other  context.Context
	staff  context.Context
	store  *memstore.Store
	cipher *encryption.FernetCipher
	events *recordingPublisher
	svc    *submission.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := ectologger.NewEctoLogger(func(ectologger.EctoLogMessage) {})
	tenantID := uuid.NewString()

	key, err := encryption.GenerateKey()
	require.NoError(t, err)
	cipher, err := encryption.NewFernetCipher(key)
	require.NoError(t, err)

	store := memstore.New()
	events := &recordingPublisher{}
	svc := submission.New(submission.Config{
		Transactor:  store,
		FormTypes:   store.FormTypes(),
		Sections:    store.Sections(),
		Submissions: store.Submissions(),
		SectionData: store.SectionData(),
		Answers:     store.Answers(),
		Structured:  store.Structured(),
		Materializer: materializer.New(materializer.Config{
			Sections:    store.Sections(),
			Questions:   store.Questions(),
			SectionData: store.SectionData(),
			Answers:     store.Answers(),
			Structured:  store.Structured(),
			Cipher:      cipher,
			Logger:      logger,
		}),
		Recorder: audit.NewRecorder(store.Audit(), logger),
		Cipher:   cipher,
		Events:   events,
		Logger:   logger,
	})

	actor := func(userID string, staff bool) context.Context {
		return appctx.WithActor(context.Background(), appctx.Actor{
			TenantID:  tenantID,
			UserID:    userID,
			Email:     userID + "@example.com",
			IsStaff:   staff,
			RemoteIP:  "198.51.100.4",
			UserAgent: "test",
		})
	}

	return &fixture{
		owner:  actor("client-1", false),
		other:  actor("client-2", false),
		staff:  actor("preparer-1", true),
		store:  store,
		cipher: cipher,
		events: events,
		svc:    svc,
	}
}

func payload(t *testing.T, body string) models.SubmissionPayload {
	t.Helper()
	var p models.SubmissionPayload
	require.NoError(t, json.Unmarshal([]byte(body), &p))
	return p
}

func sections(t *testing.T, body string) *models.OrderedSection {
	t.Helper()
	var s models.OrderedSection
	require.NoError(t, json.Unmarshal([]byte(body), &s))
	return &s
}

func statusOf(err error) int {
	return httperror.GetStatusCode(err)
}

const basicInfoPayload = `{
	"formType": "personal",
	"submissionDate": "2024-03-01T10:00:00Z",
	"sections": {
		"basicInfo": {
			"sectionTitle": "Basic Information",
			"questionsAndAnswers": {
				"firstName": {"question": "First name", "answer": "Ada"},
				"ssn": {"question": "SSN", "answer": "123-45-6789"}
			}
		},
		"income": {"questionsAndAnswers": {"wages": 52000}}
	}
}`

func (f *fixture) create(t *testing.T) *models.Submission {
	t.Helper()
	created, err := f.svc.Create(f.owner, payload(t, basicInfoPayload))
	require.NoError(t, err)
	return created
}

func (f *fixture) sectionKeys(t *testing.T, id uuid.UUID) []string {
	t.Helper()
	detail, err := f.svc.Get(f.staff, id)
	require.NoError(t, err)
	var keys []string
	for _, d := range detail.SectionData {
		keys = append(keys, d.SectionKey)
	}
	return keys
}

func TestCreate(t *testing.T) {
	f := newFixture(t)

	created := f.create(t)
	assert.Equal(t, models.SubmissionStatusSubmitted, created.Status)
	assert.Equal(t, "client-1", created.UserID)
	assert.Equal(t, "personal", created.FormTypeName)
	assert.Equal(t, 2024, created.SubmissionDate.Year())
	assert.Equal(t, "198.51.100.4", created.ClientInfo.Data.IPAddress)
	assert.False(t, created.ClientInfo.Data.ProcessedAt.IsZero())

	assert.Equal(t, []string{"basicInfo", "income"}, f.sectionKeys(t, created.ID))

	formatted, err := f.svc.Formatted(f.owner, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Personal", formatted.SubmissionInfo.FormType)
	assert.Equal(t, "Submitted", formatted.SubmissionInfo.Status)
	require.Len(t, formatted.Sections, 2)
	basicInfo := formatted.Sections[0]
	assert.Equal(t, "basicInfo", basicInfo.SectionKey)
	assert.Equal(t, 1, basicInfo.Order)
	require.Len(t, basicInfo.Questions, 2)
	assert.Equal(t, "SSN", basicInfo.Questions[1].Question)
	assert.Equal(t, "123-45-6789", basicInfo.Questions[1].Answer)
	assert.Equal(t, "encrypted", basicInfo.Questions[1].FieldType)
	assert.True(t, basicInfo.Questions[1].IsSensitive)

	logs, err := f.svc.AuditHistory(f.owner, created.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.AuditActionCreated, logs[0].Action)
	assert.Equal(t, []any{"basicInfo", "income"}, logs[0].Changes.Data["sections"])

	require.Len(t, f.events.events, 1)
	evt := f.events.events[0]
	assert.Equal(t, kafka.EventSubmissionStatus, evt.Type)
	assert.Equal(t, "submitted", evt.Status)
	assert.Equal(t, "client-1@example.com", evt.Email)
	assert.Equal(t, created.ID.String(), evt.SubmissionID)

	t.Run("form type is required", func(t *testing.T) {
		_, err := f.svc.Create(f.owner, payload(t, `{"sections": {}}`))
		assert.Equal(t, http.StatusBadRequest, statusOf(err))
	})

	t.Run("bad submission date", func(t *testing.T) {
		_, err := f.svc.Create(f.owner, payload(t, `{"formType": "personal", "submissionDate": "March"}`))
		assert.Equal(t, http.StatusBadRequest, statusOf(err))
	})
}

func TestReplaceAndPartialUpdateDiverge(t *testing.T) {
	t.Run("replace drops sections missing from the payload", func(t *testing.T) {
		f := newFixture(t)
		created := f.create(t)

		_, err := f.svc.Replace(f.owner, created.ID, payload(t, `{
			"formType": "personal",
			"sections": {"income": {"questionsAndAnswers": {"wages": 60000}}}
		}`))
		require.NoError(t, err)
		assert.Equal(t, []string{"income"}, f.sectionKeys(t, created.ID))

		logs, err := f.svc.AuditHistory(f.owner, created.ID)
		require.NoError(t, err)
		require.Len(t, logs, 2)
		assert.Equal(t, models.AuditActionUpdated, logs[0].Action)
		assert.Equal(t, []any{"income"}, logs[0].Changes.Data["sections_updated"])
	})

	t.Run("partial update keeps untouched sections", func(t *testing.T) {
		f := newFixture(t)
		created := f.create(t)

		_, err := f.svc.PartialUpdate(f.owner, created.ID, models.SubmissionPatch{
			Sections: sections(t, `{"income": {"questionsAndAnswers": {"wages": 60000}}}`),
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"basicInfo", "income"}, f.sectionKeys(t, created.ID))

		logs, err := f.svc.AuditHistory(f.owner, created.ID)
		require.NoError(t, err)
		assert.Equal(t, models.AuditActionPartialUpdate, logs[0].Action)
		assert.Equal(t, []any{"Section: income"}, logs[0].Changes.Data["updated_fields"])
	})

	t.Run("partial update of status and notes", func(t *testing.T) {
		f := newFixture(t)
		created := f.create(t)
		notes := "waiting on W-2"
		status := models.SubmissionStatusProcessing

		updated, err := f.svc.PartialUpdate(f.staff, created.ID, models.SubmissionPatch{Status: &status, ProcessingNotes: &notes})
		require.NoError(t, err)
		assert.Equal(t, status, updated.Status)
		require.NotNil(t, updated.ProcessingNotes)
		assert.Equal(t, notes, *updated.ProcessingNotes)

		logs, err := f.svc.AuditHistory(f.staff, created.ID)
		require.NoError(t, err)
		assert.Equal(t, []any{"status: submitted → processing", "processing_notes:  → waiting on W-2"}, logs[0].Changes.Data["updated_fields"])
		assert.Equal(t, []string{"submitted", "processing"}, f.events.statuses())
	})
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t)
	created := f.create(t)

	t.Run("submitted can not go back to draft", func(t *testing.T) {
		_, err := f.svc.UpdateStatus(f.owner, created.ID, models.SubmissionStatusDraft)
		assert.Equal(t, http.StatusBadRequest, statusOf(err))
	})

	t.Run("unknown status", func(t *testing.T) {
		_, err := f.svc.UpdateStatus(f.owner, created.ID, "archived")
		assert.Equal(t, http.StatusBadRequest, statusOf(err))
	})

	t.Run("forward transition", func(t *testing.T) {
		updated, err := f.svc.UpdateStatus(f.staff, created.ID, models.SubmissionStatusCompleted)
		require.NoError(t, err)
		assert.Equal(t, models.SubmissionStatusCompleted, updated.Status)

		logs, err := f.svc.AuditHistory(f.staff, created.ID)
		require.NoError(t, err)
		assert.Equal(t, models.AuditActionStatusUpdated, logs[0].Action)
		assert.Equal(t, "submitted", logs[0].Changes.Data["old_status"])
		assert.Equal(t, "completed", logs[0].Changes.Data["new_status"])
		assert.Equal(t, []string{"submitted", "completed"}, f.events.statuses())
	})

	t.Run("same status emits nothing", func(t *testing.T) {
		_, err := f.svc.UpdateStatus(f.staff, created.ID, models.SubmissionStatusCompleted)
		require.NoError(t, err)
		assert.Len(t, f.events.statuses(), 2)
	})
}

func TestPermissions(t *testing.T) {
	f := newFixture(t)
	created := f.create(t)

	t.Run("other users can not see the submission", func(t *testing.T) {
		_, err := f.svc.Get(f.other, created.ID)
		assert.Equal(t, http.StatusNotFound, statusOf(err))
		_, err = f.svc.Formatted(f.other, created.ID)
		assert.Equal(t, http.StatusNotFound, statusOf(err))
	})

	t.Run("other users can not modify the submission", func(t *testing.T) {
		_, err := f.svc.UpdateStatus(f.other, created.ID, models.SubmissionStatusRejected)
		assert.Equal(t, http.StatusForbidden, statusOf(err))
		assert.Equal(t, http.StatusForbidden, statusOf(f.svc.Delete(f.other, created.ID)))
	})

	t.Run("list is scoped to the caller", func(t *testing.T) {
		_, err := f.svc.Create(f.other, payload(t, `{"formType": "business", "sections": {}}`))
		require.NoError(t, err)

		mine, err := f.svc.List(f.owner, models.SubmissionFilter{})
		require.NoError(t, err)
		require.Len(t, mine, 1)
		assert.Equal(t, created.ID, mine[0].ID)

		all, err := f.svc.List(f.staff, models.SubmissionFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 2)

		business, err := f.svc.List(f.staff, models.SubmissionFilter{FormType: "business"})
		require.NoError(t, err)
		assert.Len(t, business, 1)
	})

	t.Run("statistics are scoped to the caller", func(t *testing.T) {
		mine, err := f.svc.Statistics(f.owner)
		require.NoError(t, err)
		assert.Equal(t, 1, mine.Total)
		assert.Equal(t, 1, mine.ByStatus["Submitted"])
		require.Len(t, mine.RecentSubmissions, 1)
		assert.Equal(t, created.ID, mine.RecentSubmissions[0].ID)

		stats, err := f.svc.Statistics(f.staff)
		require.NoError(t, err)
		assert.Equal(t, 2, stats.Total)
		assert.Equal(t, 2, stats.ByStatus["Submitted"])
	})

	t.Run("missing submission", func(t *testing.T) {
		_, err := f.svc.UpdateStatus(f.staff, uuid.New(), models.SubmissionStatusCompleted)
		assert.Equal(t, http.StatusNotFound, statusOf(err))
	})
}

func TestUpdateQuestion(t *testing.T) {
	f := newFixture(t)
	created := f.create(t)

	result, err := f.svc.UpdateQuestion(f.owner, created.ID, "basicInfo", "ssn", "987-65-4321")
	require.NoError(t, err)
	assert.Equal(t, "987-65-4321", result.New.String())

	logs, err := f.svc.AuditHistory(f.owner, created.ID)
	require.NoError(t, err)
	changes := logs[0].Changes.Data
	assert.Equal(t, models.AuditActionQuestionUpdated, logs[0].Action)
	assert.Equal(t, "***-**-6789", changes["old_value"])
	assert.Equal(t, "***-**-4321", changes["new_value"])

	formatted, err := f.svc.Formatted(f.owner, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", formatted.Sections[0].Questions[0].Answer)
	assert.Equal(t, "987-65-4321", formatted.Sections[0].Questions[1].Answer)

	t.Run("unknown question", func(t *testing.T) {
		_, err := f.svc.UpdateQuestion(f.owner, created.ID, "basicInfo", "middleName", "B")
		assert.Equal(t, http.StatusNotFound, statusOf(err))
	})

	t.Run("keys are required", func(t *testing.T) {
		_, err := f.svc.UpdateQuestion(f.owner, created.ID, "", "ssn", "1")
		assert.Equal(t, http.StatusBadRequest, statusOf(err))
	})
}

func TestUpdateSection(t *testing.T) {
	f := newFixture(t)
	created := f.create(t)

	section := sections(t, `{"basicInfo": {"questionsAndAnswers": {"lastName": "Lovelace"}}}`).Items["basicInfo"]
	data, err := f.svc.UpdateSection(f.owner, created.ID, "basicInfo", section)
	require.NoError(t, err)
	assert.Equal(t, "Lovelace", data.QuestionsAndAnswers()["lastName"])

	logs, err := f.svc.AuditHistory(f.owner, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "basicInfo", logs[0].Changes.Data["section_key"])
	assert.Equal(t, []any{"lastName"}, logs[0].Changes.Data["questions_updated"])

	_, err = f.svc.UpdateSection(f.owner, created.ID, " ", section)
	assert.Equal(t, http.StatusBadRequest, statusOf(err))
}

func TestUpdateDependents(t *testing.T) {
	f := newFixture(t)
	created := f.create(t)

	items := []map[string]any{
		{"firstName": "Grace", "lastName": "Hopper", "relationship": "daughter", "ssn": "111-22-3333", "dateOfBirth": "2015-06-01"},
		{"firstName": "Alan", "relationship": "son"},
		{"lastName": "no first name"},
	}
	dependents, err := f.svc.UpdateDependents(f.owner, created.ID, items)
	require.NoError(t, err)
	require.Len(t, dependents, 2)
	assert.NotEqual(t, "111-22-3333", dependents[0].SSN)
	assert.Equal(t, "111-22-3333", f.cipher.Decrypt(dependents[0].SSN))

	_, err = f.svc.UpdateDependents(f.owner, created.ID, items[1:2])
	require.NoError(t, err)

	formatted, err := f.svc.Formatted(f.owner, created.ID)
	require.NoError(t, err)
	require.Len(t, formatted.Dependents, 1)
	assert.Equal(t, "Alan", formatted.Dependents[0].Name)

	detail, err := f.svc.Get(f.owner, created.ID)
	require.NoError(t, err)
	var blob map[string]any
	for _, d := range detail.SectionData {
		if d.SectionKey == "dependents" {
			blob = d.QuestionsAndAnswers()
		}
	}
	require.NotNil(t, blob)
	assert.Equal(t, map[string]any{
		"question": "List of Dependents",
		"answer":   `[{"firstName":"Alan","relationship":"son"}]`,
	}, blob["dependents"])

	logs, err := f.svc.AuditHistory(f.owner, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AuditActionDependentsUpdated, logs[0].Action)
	assert.Equal(t, float64(1), logs[0].Changes.Data["dependents_count"])
	assert.Equal(t, []any{"Alan"}, logs[0].Changes.Data["dependent_names"])
}

func TestUpdateBusinessOwners(t *testing.T) {
	f := newFixture(t)
	created, err := f.svc.Create(f.owner, payload(t, `{"formType": "business", "sections": {}}`))
	require.NoError(t, err)

	owners, err := f.svc.UpdateBusinessOwners(f.owner, created.ID, []map[string]any{
		{"firstName": "Ada", "lastName": "Lovelace", "ownershipPercentage": 60, "address": "1 Main St", "city": "Springfield", "state": "IL", "zip": "62701", "workTel": "555-0100"},
	})
	require.NoError(t, err)
	require.Len(t, owners, 1)
	assert.Equal(t, 60.0, owners[0].OwnershipPercentage)

	formatted, err := f.svc.Formatted(f.owner, created.ID)
	require.NoError(t, err)
	require.Len(t, formatted.BusinessOwners, 1)
	assert.Equal(t, "1 Main St, Springfield, IL 62701", formatted.BusinessOwners[0].Address)

	logs, err := f.svc.AuditHistory(f.owner, created.ID)
	require.NoError(t, err)
	assert.Equal(t, []any{"Ada Lovelace"}, logs[0].Changes.Data["owner_names"])
}

func TestAuditFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	created := f.create(t)

	f.store.Fail = func(op string) error {
		if op == "Audit.Create" {
			return errors.New("audit store down")
		}
		return nil
	}

	_, err := f.svc.Replace(f.owner, created.ID, payload(t, `{"formType": "personal", "sections": {"income": {"questionsAndAnswers": {"wages": 1}}}}`))
	require.Error(t, err)
	_, err = f.svc.UpdateStatus(f.owner, created.ID, models.SubmissionStatusRejected)
	require.Error(t, err)
	f.store.Fail = nil

	assert.Equal(t, []string{"basicInfo", "income"}, f.sectionKeys(t, created.ID))
	current, err := f.svc.Get(f.owner, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStatusSubmitted, current.Status)
	assert.Len(t, f.events.statuses(), 1)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	created := f.create(t)

	require.NoError(t, f.svc.Delete(f.owner, created.ID))

	_, err := f.svc.Get(f.owner, created.ID)
	assert.Equal(t, http.StatusNotFound, statusOf(err))
	assert.Empty(t, f.store.AllAnswers(created.ID))
	assert.Empty(t, f.store.AllAudit())
}

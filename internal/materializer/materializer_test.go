package materializer_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/organizer/internal/materializer"
	"github.com/Ramsey-B/organizer/internal/memstore"
	"github.com/Ramsey-B/organizer/pkg/answer"
	appctx "github.com/Ramsey-B/organizer/pkg/context"
	"github.com/Ramsey-B/organizer/pkg/encryption"
	"github.com/Ramsey-B/organizer/pkg/fieldtype"
	"github.com/Ramsey-B/organizer/pkg/models"
)

type fixture struct {
	ctx        context.Context
	store      *memstore.Store
	cipher     *encryption.FernetCipher
	m          *materializer.Materializer
	submission *models.Submission
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := appctx.SetTenantID(context.Background(), uuid.NewString())
	ctx = appctx.SetUserID(ctx, "user-1")

	key, err := encryption.GenerateKey()
	require.NoError(t, err)
	cipher, err := encryption.NewFernetCipher(key)
	require.NoError(t, err)

	store := memstore.New()
	m := materializer.New(materializer.Config{
		Sections:    store.Sections(),
		Questions:   store.Questions(),
		SectionData: store.SectionData(),
		Answers:     store.Answers(),
		Structured:  store.Structured(),
		Cipher:      cipher,
		Logger:      ectologger.NewEctoLogger(func(ectologger.EctoLogMessage) {}),
	})

	formType, err := store.FormTypes().GetOrCreate(ctx, "personal")
	require.NoError(t, err)
	submission := &models.Submission{
		UserID:     "user-1",
		FormTypeID: formType.ID,
		Status:     models.SubmissionStatusDraft,
	}
	require.NoError(t, store.Submissions().Create(ctx, submission))

	return &fixture{ctx: ctx, store: store, cipher: cipher, m: m, submission: submission}
}

func section(t *testing.T, body string) models.SectionPayload {
	t.Helper()
	var payload models.SectionPayload
	require.NoError(t, json.Unmarshal([]byte(body), &payload))
	return payload
}

func (f *fixture) answers() map[string]models.Answer {
	out := map[string]models.Answer{}
	for _, a := range f.store.AllAnswers(f.submission.ID) {
		out[a.QuestionKey] = a
	}
	return out
}

func (f *fixture) questions() map[string]models.FormQuestion {
	out := map[string]models.FormQuestion{}
	for _, q := range f.store.AllQuestions() {
		out[q.QuestionKey] = q
	}
	return out
}

func TestMaterializeSection_BasicInfo(t *testing.T) {
	f := newFixture(t)

	result, err := f.m.MaterializeSection(f.ctx, f.submission, "basicInfo", section(t, `{
		"sectionTitle": "Basic Information",
		"questionsAndAnswers": {
			"firstName": {"question": "First name", "answer": "Ada"},
			"ssn": {"question": "SSN", "answer": "123-45-6789"},
			"dateOfBirth": "1990-04-01",
			"hasSpouse": "yes",
			"grossReceipts": 1500.5
		}
	}`))
	require.NoError(t, err)
	assert.Equal(t, "Basic Information", result.Section.Title)
	assert.Equal(t, 1, result.Section.Order)
	assert.Equal(t, 5, result.QuestionsUpdated)

	questions := f.questions()
	assert.Equal(t, fieldtype.Text, questions["firstName"].FieldType)
	assert.Equal(t, "First name", questions["firstName"].QuestionText)
	assert.Equal(t, fieldtype.Encrypted, questions["ssn"].FieldType)
	assert.True(t, questions["ssn"].IsSensitive)
	assert.Equal(t, fieldtype.Date, questions["dateOfBirth"].FieldType)
	assert.Equal(t, "Date Of Birth", questions["dateOfBirth"].QuestionText)
	assert.Equal(t, fieldtype.Boolean, questions["hasSpouse"].FieldType)
	assert.Equal(t, fieldtype.Number, questions["grossReceipts"].FieldType)

	// payload order numbers new questions
	assert.Equal(t, 1, questions["firstName"].Order)
	assert.Equal(t, 2, questions["ssn"].Order)
	assert.Equal(t, 5, questions["grossReceipts"].Order)

	answers := f.answers()
	require.NotNil(t, answers["firstName"].ValueText)
	assert.Equal(t, "Ada", *answers["firstName"].ValueText)

	ssn := answers["ssn"]
	assert.Nil(t, ssn.ValueText)
	require.NotNil(t, ssn.ValueEncrypted)
	assert.NotContains(t, *ssn.ValueEncrypted, "6789")
	assert.Equal(t, "123-45-6789", f.cipher.Decrypt(*ssn.ValueEncrypted))

	require.NotNil(t, answers["dateOfBirth"].ValueDate)
	assert.Equal(t, time.Date(1990, 4, 1, 0, 0, 0, 0, time.UTC), answers["dateOfBirth"].ValueDate.UTC())
	require.NotNil(t, answers["hasSpouse"].ValueBoolean)
	assert.True(t, *answers["hasSpouse"].ValueBoolean)
	require.NotNil(t, answers["grossReceipts"].ValueNumber)
	assert.Equal(t, 1500.5, *answers["grossReceipts"].ValueNumber)

	data, err := f.store.SectionData().Get(f.ctx, f.submission.ID, result.Section.ID)
	require.NoError(t, err)
	qa := data.QuestionsAndAnswers()
	assert.Equal(t, "1990-04-01", qa["dateOfBirth"])
	assert.Equal(t, map[string]any{"question": "SSN", "answer": "123-45-6789"}, qa["ssn"])
}

func TestMaterializeSection_Idempotent(t *testing.T) {
	f := newFixture(t)
	payload := section(t, `{"questionsAndAnswers": {"firstName": "Ada", "totalMiles": "1200", "notes": {"a": 1}}}`)

	_, err := f.m.MaterializeSection(f.ctx, f.submission, "basicInfo", payload)
	require.NoError(t, err)
	first := f.answers()
	firstQuestions := f.questions()

	_, err = f.m.MaterializeSection(f.ctx, f.submission, "basicInfo", payload)
	require.NoError(t, err)
	second := f.answers()

	assert.Len(t, second, len(first))
	assert.Len(t, f.questions(), len(firstQuestions))
	questions := f.questions()
	for key, a := range first {
		b := second[key]
		ft := questions[key].FieldType
		assert.Equal(t, a.ID, b.ID, key)
		assert.Equal(t, a.TypedValue(ft), b.TypedValue(ft), key)
	}
}

func TestMaterializeSection_FieldTypeIsSticky(t *testing.T) {
	f := newFixture(t)

	_, err := f.m.MaterializeSection(f.ctx, f.submission, "income", section(t, `{"questionsAndAnswers": {"wages": 52000}}`))
	require.NoError(t, err)
	assert.Equal(t, fieldtype.Number, f.questions()["wages"].FieldType)

	_, err = f.m.MaterializeSection(f.ctx, f.submission, "income", section(t, `{"questionsAndAnswers": {"wages": {"question": "Wages", "answer": "about fifty thousand"}}}`))
	require.NoError(t, err)

	question := f.questions()["wages"]
	assert.Equal(t, fieldtype.Number, question.FieldType)
	assert.Equal(t, "Wages", question.QuestionText)

	// the coercion failure stores no value
	a := f.answers()["wages"]
	assert.True(t, a.TypedValue(question.FieldType).IsEmpty())
}

func TestMaterializeSection_BooleanStaysBoolean(t *testing.T) {
	f := newFixture(t)

	_, err := f.m.MaterializeSection(f.ctx, f.submission, "household", section(t, `{"questionsAndAnswers": {"hasRentalIncome": true}}`))
	require.NoError(t, err)
	question := f.questions()["hasRentalIncome"]
	require.Equal(t, fieldtype.Boolean, question.FieldType)

	_, err = f.m.MaterializeSection(f.ctx, f.submission, "household", section(t, `{"questionsAndAnswers": {"hasRentalIncome": ["duplex", "condo"]}}`))
	require.NoError(t, err)
	assert.Equal(t, fieldtype.Boolean, f.questions()["hasRentalIncome"].FieldType)

	a := f.answers()["hasRentalIncome"]
	require.NotNil(t, a.ValueBoolean)
	assert.True(t, *a.ValueBoolean)
	assert.Nil(t, a.ValueText)
	assert.False(t, a.ValueJSON.Valid)
	assert.Equal(t, true, a.TypedValue(question.FieldType).Get(fieldtype.Boolean))

	_, err = f.m.MaterializeSection(f.ctx, f.submission, "household", section(t, `{"questionsAndAnswers": {"hasRentalIncome": "maybe"}}`))
	require.NoError(t, err)
	assert.Equal(t, fieldtype.Boolean, f.questions()["hasRentalIncome"].FieldType)

	a = f.answers()["hasRentalIncome"]
	require.NotNil(t, a.ValueBoolean)
	assert.False(t, *a.ValueBoolean)
	assert.Nil(t, a.ValueText)
}

func TestMaterializeSection_NewQuestionsAppend(t *testing.T) {
	f := newFixture(t)

	_, err := f.m.MaterializeSection(f.ctx, f.submission, "basicInfo", section(t, `{"questionsAndAnswers": {"a": "1", "b": "2"}}`))
	require.NoError(t, err)
	_, err = f.m.MaterializeSection(f.ctx, f.submission, "basicInfo", section(t, `{"questionsAndAnswers": {"c": "3", "a": "1", "d": "4"}}`))
	require.NoError(t, err)

	questions := f.questions()
	assert.Equal(t, 1, questions["a"].Order)
	assert.Equal(t, 2, questions["b"].Order)
	assert.Equal(t, 3, questions["c"].Order)
	assert.Equal(t, 4, questions["d"].Order)

	// answers absent from the second payload are kept
	assert.Contains(t, f.answers(), "b")
}

func TestMaterializeSection_Dependents(t *testing.T) {
	t.Run("list replaces rows", func(t *testing.T) {
		f := newFixture(t)

		result, err := f.m.MaterializeSection(f.ctx, f.submission, "dependents", section(t, `{"questionsAndAnswers": {
			"dependents": {"question": "Dependents", "answer": [
				{"firstName": "Sam", "lastName": "Lee", "ssn": "111-22-3333", "dateOfBirth": "2015-06-01T00:00:00Z", "monthsLivedWithYou": "12", "isFullTimeStudent": "yes"},
				{"lastName": "Nobody"},
				{"firstName": "Kim", "childCareExpense": 250.75}
			]}
		}}`))
		require.NoError(t, err)
		require.Len(t, result.Structured.Dependents, 2)

		dependents, err := f.store.Structured().ListDependents(f.ctx, f.submission.ID)
		require.NoError(t, err)
		require.Len(t, dependents, 2)
		assert.Equal(t, "Sam", dependents[0].FirstName)
		assert.Equal(t, "111-22-3333", f.cipher.Decrypt(dependents[0].SSN))
		assert.NotEqual(t, "111-22-3333", dependents[0].SSN)
		assert.Equal(t, 12, dependents[0].MonthsLivedWithYou)
		assert.True(t, dependents[0].IsFullTimeStudent)
		require.NotNil(t, dependents[0].DateOfBirth)
		assert.Equal(t, time.Date(2015, 6, 1, 0, 0, 0, 0, time.UTC), *dependents[0].DateOfBirth)
		assert.Equal(t, "Kim", dependents[1].FirstName)
		assert.Equal(t, 250.75, dependents[1].ChildCareExpense)
		assert.Empty(t, dependents[1].SSN)

		_, err = f.m.MaterializeSection(f.ctx, f.submission, "dependents", section(t, `{"questionsAndAnswers": {"dependents": [{"firstName": "Max"}]}}`))
		require.NoError(t, err)
		dependents, err = f.store.Structured().ListDependents(f.ctx, f.submission.ID)
		require.NoError(t, err)
		require.Len(t, dependents, 1)
		assert.Equal(t, "Max", dependents[0].FirstName)
	})

	t.Run("empty list clears rows", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.m.MaterializeSection(f.ctx, f.submission, "dependents", section(t, `{"questionsAndAnswers": {"dependents": [{"firstName": "Sam"}]}}`))
		require.NoError(t, err)
		_, err = f.m.MaterializeSection(f.ctx, f.submission, "dependents", section(t, `{"questionsAndAnswers": {"dependents": []}}`))
		require.NoError(t, err)

		dependents, err := f.store.Structured().ListDependents(f.ctx, f.submission.ID)
		require.NoError(t, err)
		assert.Empty(t, dependents)
	})

	t.Run("absent list leaves rows", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.m.MaterializeSection(f.ctx, f.submission, "dependents", section(t, `{"questionsAndAnswers": {"dependents": [{"firstName": "Sam"}]}}`))
		require.NoError(t, err)
		result, err := f.m.MaterializeSection(f.ctx, f.submission, "dependents", section(t, `{"questionsAndAnswers": {"hasDependents": "yes"}}`))
		require.NoError(t, err)
		assert.True(t, result.Structured.IsEmpty())

		dependents, err := f.store.Structured().ListDependents(f.ctx, f.submission.ID)
		require.NoError(t, err)
		assert.Len(t, dependents, 1)
	})

	t.Run("double encoded list", func(t *testing.T) {
		f := newFixture(t)

		inner, err := json.Marshal([]map[string]any{{"firstName": "Sam"}, {"firstName": "Ana"}})
		require.NoError(t, err)
		outer, err := json.Marshal(string(inner))
		require.NoError(t, err)
		body, err := json.Marshal(map[string]any{"questionsAndAnswers": map[string]any{"dependents": string(outer)}})
		require.NoError(t, err)

		_, err = f.m.MaterializeSection(f.ctx, f.submission, "dependents", section(t, string(body)))
		require.NoError(t, err)

		dependents, err := f.store.Structured().ListDependents(f.ctx, f.submission.ID)
		require.NoError(t, err)
		require.Len(t, dependents, 2)
		assert.Equal(t, "Ana", dependents[1].FirstName)
	})

	t.Run("malformed list leaves rows", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.m.MaterializeSection(f.ctx, f.submission, "dependents", section(t, `{"questionsAndAnswers": {"dependents": [{"firstName": "Sam"}]}}`))
		require.NoError(t, err)
		_, err = f.m.MaterializeSection(f.ctx, f.submission, "dependents", section(t, `{"questionsAndAnswers": {"dependents": "[{\"firstName\": "}}`))
		require.NoError(t, err)

		dependents, err := f.store.Structured().ListDependents(f.ctx, f.submission.ID)
		require.NoError(t, err)
		assert.Len(t, dependents, 1)
	})
}

func TestMaterializeSection_OtherSubEntities(t *testing.T) {
	f := newFixture(t)

	_, err := f.m.MaterializeSection(f.ctx, f.submission, "ownerInfo", section(t, `{"questionsAndAnswers": {"owners": [
		{"firstName": "Jo", "lastName": "Ray", "ssn": "999-88-7777", "zip": "10001", "workTel": "555-0100", "ownershipPercentage": "60"}
	]}}`))
	require.NoError(t, err)
	_, err = f.m.MaterializeSection(f.ctx, f.submission, "incomeExpenses", section(t, `{"questionsAndAnswers": {"vehicles": [
		{"description": "Van", "datePlacedInService": "2020-01-15", "totalMiles": 10000, "businessMiles": "6000"},
		{"totalMiles": 5}
	]}}`))
	require.NoError(t, err)
	_, err = f.m.MaterializeSection(f.ctx, f.submission, "deductions", section(t, `{"questionsAndAnswers": {"charitableOrganizations": [
		{"name": "Food Bank", "amount": "125.50"}, {"amount": 10}
	]}}`))
	require.NoError(t, err)

	owners, err := f.store.Structured().ListBusinessOwners(f.ctx, f.submission.ID)
	require.NoError(t, err)
	require.Len(t, owners, 1)
	assert.Equal(t, "10001", owners[0].ZipCode)
	assert.Equal(t, "555-0100", owners[0].WorkPhone)
	assert.Equal(t, 60.0, owners[0].OwnershipPercentage)
	assert.Equal(t, "999-88-7777", f.cipher.Decrypt(owners[0].SSN))

	vehicles, err := f.store.Structured().ListVehicles(f.ctx, f.submission.ID)
	require.NoError(t, err)
	require.Len(t, vehicles, 1)
	assert.Equal(t, 6000, vehicles[0].BusinessMiles)
	require.NotNil(t, vehicles[0].DatePlacedInService)

	contributions, err := f.store.Structured().ListContributions(f.ctx, f.submission.ID)
	require.NoError(t, err)
	require.Len(t, contributions, 1)
	assert.Equal(t, 125.5, contributions[0].Amount)
}

func TestMaterializeSection_StructuredKeyOutsideItsSection(t *testing.T) {
	f := newFixture(t)

	_, err := f.m.MaterializeSection(f.ctx, f.submission, "basicInfo", section(t, `{"questionsAndAnswers": {"dependents": [{"firstName": "Sam"}]}}`))
	require.NoError(t, err)

	dependents, err := f.store.Structured().ListDependents(f.ctx, f.submission.ID)
	require.NoError(t, err)
	assert.Empty(t, dependents)
	assert.Equal(t, fieldtype.JSON, f.questions()["dependents"].FieldType)
}

func TestMaterializeQuestion(t *testing.T) {
	t.Run("updates one answer and patches the blob", func(t *testing.T) {
		f := newFixture(t)
		result, err := f.m.MaterializeSection(f.ctx, f.submission, "basicInfo", section(t, `{"questionsAndAnswers": {
			"firstName": "Ada", "ssn": "123-45-6789"
		}}`))
		require.NoError(t, err)

		updated, err := f.m.MaterializeQuestion(f.ctx, f.submission, "basicInfo", "ssn", "987-65-4321")
		require.NoError(t, err)
		assert.Equal(t, answer.Encrypted("123-45-6789"), updated.Old)
		assert.Equal(t, answer.Encrypted("987-65-4321"), updated.New)

		answers := f.answers()
		assert.Equal(t, "987-65-4321", f.cipher.Decrypt(*answers["ssn"].ValueEncrypted))
		assert.Equal(t, "Ada", *answers["firstName"].ValueText)

		data, err := f.store.SectionData().Get(f.ctx, f.submission.ID, result.Section.ID)
		require.NoError(t, err)
		qa := data.QuestionsAndAnswers()
		assert.Equal(t, "Ada", qa["firstName"])
		assert.Equal(t, map[string]any{"question": "Ssn", "answer": "987-65-4321"}, qa["ssn"])
	})

	t.Run("unknown section", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.m.MaterializeQuestion(f.ctx, f.submission, "missing", "ssn", "x")
		require.Error(t, err)
		assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
	})

	t.Run("unknown question", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.m.MaterializeSection(f.ctx, f.submission, "basicInfo", section(t, `{"questionsAndAnswers": {"firstName": "Ada"}}`))
		require.NoError(t, err)

		_, err = f.m.MaterializeQuestion(f.ctx, f.submission, "basicInfo", "lastName", "Lovelace")
		require.Error(t, err)
		assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
	})
}

func TestMaterializeSection_WriteFailure(t *testing.T) {
	f := newFixture(t)
	f.store.Fail = func(op string) error {
		if op == "Answers.UpsertMany" {
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to save answers")
		}
		return nil
	}

	err := f.store.WithinTx(f.ctx, func(ctx context.Context) error {
		_, err := f.m.MaterializeSection(ctx, f.submission, "basicInfo", section(t, `{"questionsAndAnswers": {"firstName": "Ada"}}`))
		return err
	})
	require.Error(t, err)

	// the whole section rolled back, including the new catalog rows
	assert.Empty(t, f.store.AllQuestions())
	sections, err := f.store.Sections().ListByFormType(f.ctx, f.submission.FormTypeID)
	require.NoError(t, err)
	assert.Empty(t, sections)
}

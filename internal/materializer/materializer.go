// Package materializer turns a section payload into its three stored representations: the raw
// section blob, one typed answer per question and the relational sub-entities.
package materializer

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/organizer/pkg/answer"
	"github.com/Ramsey-B/organizer/pkg/database"
	"github.com/Ramsey-B/organizer/pkg/encryption"
	"github.com/Ramsey-B/organizer/pkg/fieldtype"
	"github.com/Ramsey-B/organizer/pkg/models"
	"github.com/Ramsey-B/organizer/pkg/repositories"
	"github.com/Ramsey-B/organizer/pkg/tracing"
)

type Materializer struct {
	sections  repositories.SectionRepo
	questions repositories.QuestionRepo
	answers   repositories.AnswerRepo
	data      repositories.SectionDataRepo
	store     *Store
	cipher    encryption.Cipher
	logger    ectologger.Logger
}

type Config struct {
	Sections    repositories.SectionRepo
	Questions   repositories.QuestionRepo
	SectionData repositories.SectionDataRepo
	Answers     repositories.AnswerRepo
	Structured  repositories.StructuredRepo
	Cipher      encryption.Cipher
	Logger      ectologger.Logger
}

func New(cfg Config) *Materializer {
	return &Materializer{
		sections:  cfg.Sections,
		questions: cfg.Questions,
		answers:   cfg.Answers,
		data:      cfg.SectionData,
		store:     NewStore(cfg.SectionData, cfg.Answers, cfg.Structured, cfg.Logger),
		cipher:    cfg.Cipher,
		logger:    cfg.Logger,
	}
}

// Result describes one materialized section.
type Result struct {
	Section          models.FormSection
	QuestionsUpdated int
	Structured       Structured
}

// MaterializeSection resolves the section and its questions, creating any that are new, and
// writes the section blob, the typed answers and any sub-entities found in it. Re-applying the
// same payload leaves the stored state unchanged.
func (m *Materializer) MaterializeSection(ctx context.Context, submission *models.Submission, sectionKey string, payload models.SectionPayload) (*Result, error) {
	ctx, span := tracing.StartSpan(ctx, "Materializer.MaterializeSection", tracing.Submission(submission.ID), tracing.Section(sectionKey))
	defer span.End()

	title := payload.SectionTitle
	if title == "" {
		title = models.Humanize(sectionKey)
	}

	section, err := m.sections.GetOrCreate(ctx, submission.FormTypeID, sectionKey, title)
	if err != nil {
		return nil, err
	}

	questions, err := m.resolveQuestions(ctx, section, payload.QuestionsAndAnswers)
	if err != nil {
		return nil, err
	}

	ws, err := BuildWriteSet(submission.ID, *section, payload.QuestionsAndAnswers, questions, m.cipher)
	if err != nil {
		m.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"submission_id": submission.ID,
			"section_key":   sectionKey,
		}).Error("failed to encrypt section answers")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to save section")
	}
	m.logWarnings(ctx, submission, sectionKey, ws.Warnings)

	if err := m.store.Apply(ctx, ws); err != nil {
		return nil, err
	}

	m.logger.WithContext(ctx).WithFields(map[string]any{
		"submission_id": submission.ID,
		"section_key":   sectionKey,
		"answer_count":  len(ws.Answers),
	}).Debug("Materialized section")

	return &Result{
		Section:          *section,
		QuestionsUpdated: len(ws.Answers),
		Structured:       ws.Structured,
	}, nil
}

// resolveQuestions returns the stored question of every key, creating and classifying the
// ones not seen before. Existing questions keep their field type.
func (m *Materializer) resolveQuestions(ctx context.Context, section *models.FormSection, qa models.OrderedMap) (map[string]models.FormQuestion, error) {
	questions := make(map[string]models.FormQuestion, qa.Len())
	next := -1

	for _, key := range qa.Keys {
		question, err := m.questions.GetByKey(ctx, section.ID, key)
		if err == nil {
			questions[key] = *question
			continue
		}
		if httperror.GetStatusCode(err) != http.StatusNotFound {
			return nil, err
		}

		if next < 0 {
			count, err := m.questions.Count(ctx, section.ID)
			if err != nil {
				return nil, err
			}
			next = count + 1
		}

		text, raw := splitEntry(key, qa.Values[key])
		ft, sensitive := fieldtype.Classify(key, raw)
		question, err = m.questions.Create(ctx, &models.FormQuestion{
			SectionID:       section.ID,
			QuestionKey:     key,
			QuestionText:    text,
			FieldType:       ft,
			IsSensitive:     sensitive,
			Order:           next,
			Options:         database.NewJSONB([]any{}),
			ValidationRules: database.NewJSONB(map[string]any{}),
		})
		if err != nil {
			return nil, err
		}
		next++
		questions[key] = *question
	}

	return questions, nil
}

// QuestionResult is the outcome of a single question update. Old and New hold plaintext.
type QuestionResult struct {
	Section  models.FormSection
	Question models.FormQuestion
	Old      answer.Value
	New      answer.Value
}

// MaterializeQuestion overwrites one answer of an existing question and patches the section
// blob with it. Sibling answers and sub-entities are left alone.
func (m *Materializer) MaterializeQuestion(ctx context.Context, submission *models.Submission, sectionKey, questionKey string, raw any) (*QuestionResult, error) {
	ctx, span := tracing.StartSpan(ctx, "Materializer.MaterializeQuestion", tracing.Submission(submission.ID), tracing.Section(sectionKey), tracing.Question(questionKey))
	defer span.End()

	section, err := m.sections.GetByKey(ctx, submission.FormTypeID, sectionKey)
	if err != nil {
		return nil, err
	}
	question, err := m.questions.GetByKey(ctx, section.ID, questionKey)
	if err != nil {
		return nil, err
	}

	old := answer.Empty()
	existing, err := m.answers.Get(ctx, submission.ID, question.ID)
	switch {
	case err == nil:
		old = m.Decrypt(existing.TypedValue(question.FieldType))
	case httperror.GetStatusCode(err) != http.StatusNotFound:
		return nil, err
	}

	plain, err := answer.New(question.FieldType, raw)
	if err != nil {
		m.logWarnings(ctx, submission, sectionKey, []string{questionKey + ": " + err.Error()})
		plain = answer.Empty()
	}
	stored, err := plain.WithCiphertext(m.cipher.Encrypt)
	if err != nil {
		m.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"submission_id": submission.ID,
			"question_key":  questionKey,
		}).Error("failed to encrypt answer")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to save answer")
	}

	write := AnswerWrite{Question: *question, Value: stored}
	if err := m.answers.UpsertMany(ctx, []models.Answer{write.ToAnswer(submission.ID)}); err != nil {
		return nil, err
	}

	data, err := m.data.Get(ctx, submission.ID, section.ID)
	switch {
	case err == nil:
	case httperror.GetStatusCode(err) == http.StatusNotFound:
		data = &models.SectionData{SubmissionID: submission.ID, SectionID: section.ID, SectionKey: sectionKey}
	default:
		return nil, err
	}
	data.QuestionsAndAnswers()[questionKey] = map[string]any{
		"question": question.QuestionText,
		"answer":   raw,
	}
	if err := m.data.Upsert(ctx, data); err != nil {
		return nil, err
	}

	return &QuestionResult{
		Section:  *section,
		Question: *question,
		Old:      old,
		New:      plain,
	}, nil
}

// Decrypt returns v with an encrypted payload replaced by its plaintext. Tokens that do not
// decrypt are returned as stored.
func (m *Materializer) Decrypt(v answer.Value) answer.Value {
	out, _ := v.WithCiphertext(func(s string) (string, error) {
		return m.cipher.Decrypt(s), nil
	})
	return out
}

func (m *Materializer) logWarnings(ctx context.Context, submission *models.Submission, sectionKey string, warnings []string) {
	for _, warning := range warnings {
		m.logger.WithContext(ctx).WithFields(map[string]any{
			"submission_id": submission.ID,
			"section_key":   sectionKey,
		}).Warnf("Skipped part of section: %s", warning)
	}
}

// Package memstore is an in-memory implementation of the repository interfaces, with the same
// tenant scoping, uniqueness and not-found behavior as the PostgreSQL repositories. Services and
// the materializer are tested against it.
package memstore

import (
	"context"
	"encoding/json"
	"maps"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/google/uuid"

	"github.com/Ramsey-B/organizer/pkg/models"
	"github.com/Ramsey-B/organizer/pkg/repositories"
)

type state struct {
	formTypes     map[uuid.UUID]models.FormType
	sections      map[uuid.UUID]models.FormSection
	questions     map[uuid.UUID]models.FormQuestion
	submissions   map[uuid.UUID]models.Submission
	sectionData   map[uuid.UUID]models.SectionData
	answers       map[uuid.UUID]models.Answer
	dependents    map[uuid.UUID][]models.Dependent
	owners        map[uuid.UUID][]models.BusinessOwner
	vehicles      map[uuid.UUID][]models.Vehicle
	contributions map[uuid.UUID][]models.CharitableContribution
	audit         []models.AuditLog
	trackers      map[string]models.FinanceTracker
}

func newState() state {
	return state{
		formTypes:     map[uuid.UUID]models.FormType{},
		sections:      map[uuid.UUID]models.FormSection{},
		questions:     map[uuid.UUID]models.FormQuestion{},
		submissions:   map[uuid.UUID]models.Submission{},
		sectionData:   map[uuid.UUID]models.SectionData{},
		answers:       map[uuid.UUID]models.Answer{},
		dependents:    map[uuid.UUID][]models.Dependent{},
		owners:        map[uuid.UUID][]models.BusinessOwner{},
		vehicles:      map[uuid.UUID][]models.Vehicle{},
		contributions: map[uuid.UUID][]models.CharitableContribution{},
		trackers:      map[string]models.FinanceTracker{},
	}
}

// clone copies every table. Rows are replaced, never mutated in place, so copying the maps is
// enough to restore a snapshot.
func (s state) clone() state {
	return state{
		formTypes:     maps.Clone(s.formTypes),
		sections:      maps.Clone(s.sections),
		questions:     maps.Clone(s.questions),
		submissions:   maps.Clone(s.submissions),
		sectionData:   maps.Clone(s.sectionData),
		answers:       maps.Clone(s.answers),
		dependents:    maps.Clone(s.dependents),
		owners:        maps.Clone(s.owners),
		vehicles:      maps.Clone(s.vehicles),
		contributions: maps.Clone(s.contributions),
		audit:         slices.Clone(s.audit),
		trackers:      maps.Clone(s.trackers),
	}
}

// Store holds every table. It is safe for concurrent use.
type Store struct {
	mu    sync.Mutex
	state state
	// Fail, when set, is consulted before every write and its error returned.
	Fail func(op string) error
}

func New() *Store {
	return &Store{state: newState()}
}

type txKey struct{}

// WithinTx runs fn atomically with respect to failure: when fn returns an error every change
// it made is discarded. Nested calls join the outer one. Concurrent transactions are not
// isolated from each other.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	s.mu.Lock()
	snapshot := s.state.clone()
	s.mu.Unlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.mu.Lock()
		s.state = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) fail(op string) error {
	if s.Fail == nil {
		return nil
	}
	return s.Fail(op)
}

func (s *Store) FormTypes() repositories.FormTypeRepo { return formTypeRepo{s} }
func (s *Store) Sections() repositories.SectionRepo { return sectionRepo{s} }
func (s *Store) Questions() repositories.QuestionRepo { return questionRepo{s} }
func (s *Store) Submissions() repositories.SubmissionRepo { return submissionRepo{s} }
func (s *Store) SectionData() repositories.SectionDataRepo { return sectionDataRepo{s} }
func (s *Store) Answers() repositories.AnswerRepo { return answerRepo{s} }
func (s *Store) Structured() repositories.StructuredRepo { return structuredRepo{s} }
func (s *Store) Audit() repositories.AuditRepo { return auditRepo{s} }
func (s *Store) Trackers() repositories.TrackerRepo { return trackerRepo{s} }

// Snapshot accessors for assertions.

func (s *Store) AllAnswers(submissionID uuid.UUID) []models.Answer {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Answer
	for _, a := range s.state.answers {
		if a.SubmissionID == submissionID {
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(a, b models.Answer) int {
		if a.QuestionKey < b.QuestionKey {
			return -1
		}
		if a.QuestionKey > b.QuestionKey {
			return 1
		}
		return 0
	})
	return out
}

func (s *Store) AllQuestions() []models.FormQuestion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Collect(maps.Values(s.state.questions))
}

func (s *Store) AllAudit() []models.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.state.audit)
}

func notFound(format string, args ...any) error {
	return httperror.NewHTTPErrorf(http.StatusNotFound, format, args...)
}

// cloneJSON deep-copies a JSON-shaped map so callers never share nested maps with the store.
func cloneJSON(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return maps.Clone(m)
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return maps.Clone(m)
	}
	return out
}

func now() time.Time {
	return time.Now().UTC()
}

package crm

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/organizer/pkg/kafka"
	"github.com/Ramsey-B/organizer/pkg/metrics"
	"github.com/Ramsey-B/organizer/pkg/tracing"
)

const (
	statusDraft     = "draft"
	statusSubmitted = "submitted"
	trackerPrefix   = "Tracker "
)

// ContactCache remembers contact ids by email.
type ContactCache interface {
	Get(ctx context.Context, email string) (string, bool, error)
	Set(ctx context.Context, email, contactID string) error
}

// DocumentSource renders the document attached to a submitted form.
type DocumentSource interface {
	Document(ctx context.Context, evt *kafka.Event) (data []byte, filename string, err error)
}

type SyncerConfig struct {
	Client Client
	// Cache is optional.
	Cache ContactCache
	// Documents is optional; without it or DocumentFieldID nothing is uploaded.
	Documents       DocumentSource
	DocumentFieldID string
	FrontendBaseURL string
	// LinkFieldIDs maps a form type to the custom field holding its resume link.
	LinkFieldIDs map[string]string
	Logger       ectologger.Logger
}

// Syncer applies submission and tracker events to the CRM contact of the event's user.
type Syncer struct {
	client          Client
	cache           ContactCache
	documents       DocumentSource
	documentFieldID string
	frontendBaseURL string
	linkFieldIDs    map[string]string
	logger          ectologger.Logger
}

func NewSyncer(cfg SyncerConfig) *Syncer {
	return &Syncer{
		client:          cfg.Client,
		cache:           cfg.Cache,
		documents:       cfg.Documents,
		documentFieldID: cfg.DocumentFieldID,
		frontendBaseURL: strings.TrimRight(cfg.FrontendBaseURL, "/"),
		linkFieldIDs:    cfg.LinkFieldIDs,
		logger:          cfg.Logger,
	}
}

// Handle is the kafka.MessageHandler of the CRM sync consumer.
func (s *Syncer) Handle(ctx context.Context, msg *kafka.ReceivedMessage) error {
	return s.Sync(ctx, msg.Event)
}

func (s *Syncer) Sync(ctx context.Context, evt *kafka.Event) error {
	ctx, span := tracing.StartSpan(ctx, "CRMSyncer.Sync")
	defer span.End()

	logger := s.logger.WithContext(ctx).WithFields(map[string]any{
		"event_type":    evt.Type,
		"user_id":       evt.UserID,
		"submission_id": evt.SubmissionID,
	})

	if evt.Email == "" {
		metrics.RecordCRMSync("skipped")
		logger.Warn("Event has no email, skipping CRM sync")
		return nil
	}

	contactID, err := s.contactID(ctx, evt.Email, evt.Name)
	if err != nil {
		metrics.RecordCRMSync("error")
		return err
	}

	switch evt.Type {
	case kafka.EventSubmissionStatus:
		err = s.syncSubmission(ctx, contactID, evt)
	case kafka.EventTrackerTag:
		err = s.syncTracker(ctx, contactID, evt)
	default:
		err = fmt.Errorf("unsupported event type %q", evt.Type)
	}
	if err != nil {
		metrics.RecordCRMSync("error")
		logger.WithError(err).Error("CRM sync failed")
		return err
	}

	metrics.RecordCRMSync("success")
	logger.Debug("CRM contact synced")
	return nil
}

func (s *Syncer) contactID(ctx context.Context, email, name string) (string, error) {
	if s.cache != nil {
		id, ok, err := s.cache.Get(ctx, email)
		switch {
		case err != nil:
			s.logger.WithContext(ctx).WithError(err).Warn("Contact cache lookup failed")
		case ok:
			return id, nil
		}
	}

	id, err := s.client.FindOrCreateContact(ctx, email, name)
	if err != nil {
		return "", err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, email, id); err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("Failed to cache contact id")
		}
	}
	return id, nil
}

// syncSubmission replaces the form type's status tag, points the link field at the form while
// it is a draft and attaches the document once submitted.
func (s *Syncer) syncSubmission(ctx context.Context, contactID string, evt *kafka.Event) error {
	prefix := StatusTagPrefix(evt.FormType)
	if err := s.replaceTag(ctx, contactID, prefix, StatusTag(evt.FormType, evt.Status)); err != nil {
		return err
	}

	if fieldID, ok := s.linkFieldIDs[evt.FormType]; ok {
		link := ""
		if evt.Status == statusDraft {
			link = s.ResumeLink(evt.FormType, evt.SubmissionID)
		}
		if err := s.client.SetCustomField(ctx, contactID, fieldID, link); err != nil {
			return err
		}
	}

	if evt.Status == statusSubmitted && s.documents != nil && s.documentFieldID != "" {
		data, filename, err := s.documents.Document(ctx, evt)
		if err != nil {
			return err
		}
		fileURL, err := s.client.UploadFile(ctx, data, filename)
		if err != nil {
			return err
		}
		return s.client.SetCustomField(ctx, contactID, s.documentFieldID, fileURL)
	}
	return nil
}

func (s *Syncer) syncTracker(ctx context.Context, contactID string, evt *kafka.Event) error {
	return s.replaceTag(ctx, contactID, trackerPrefix, evt.Tag)
}

// replaceTag drops every tag starting with prefix and adds tag.
func (s *Syncer) replaceTag(ctx context.Context, contactID, prefix, tag string) error {
	existing, err := s.client.GetTags(ctx, contactID)
	if err != nil {
		return err
	}

	tags := make([]string, 0, len(existing)+1)
	for _, t := range existing {
		if !strings.HasPrefix(t, prefix) {
			tags = append(tags, t)
		}
	}
	if !ectolinq.Contains(tags, tag) {
		tags = append(tags, tag)
	}
	return s.client.SetTags(ctx, contactID, tags)
}

// ResumeLink is the frontend url that reopens a draft.
func (s *Syncer) ResumeLink(formType, submissionID string) string {
	return fmt.Sprintf("%s/?type=%s&form_id=%s", s.frontendBaseURL, url.QueryEscape(formType), url.QueryEscape(submissionID))
}

func StatusTagPrefix(formType string) string {
	return formType + "_form_"
}

func StatusTag(formType, status string) string {
	return StatusTagPrefix(formType) + status
}

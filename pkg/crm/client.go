// Package crm keeps the client's CRM contact in step with their submissions: status tags, the
// resume link field and the submitted document.
package crm

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/Ramsey-B/organizer/pkg/httpclient"
)

// Client is the subset of the CRM contacts API the sync needs.
type Client interface {
	FindOrCreateContact(ctx context.Context, email, name string) (string, error)
	GetTags(ctx context.Context, contactID string) ([]string, error)
	SetTags(ctx context.Context, contactID string, tags []string) error
	SetCustomField(ctx context.Context, contactID, fieldID, value string) error
	UploadFile(ctx context.Context, data []byte, filename string) (string, error)
}

type HTTPConfig struct {
	BaseURL    string
	APIToken   string
	APIVersion string
	LocationID string
}

// Limiter paces outbound calls. *redis.RateLimiter shares the budget across instances.
type Limiter interface {
	Wait(ctx context.Context, key string) error
}

// HTTPClient talks to a LeadConnector style REST API.
type HTTPClient struct {
	http    *httpclient.Client
	cfg     HTTPConfig
	limiter Limiter
}

func NewHTTPClient(client *httpclient.Client, cfg HTTPConfig) *HTTPClient {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &HTTPClient{http: client, cfg: cfg}
}

// WithLimiter makes every call wait for room under the location's rate limit.
func (c *HTTPClient) WithLimiter(limiter Limiter) *HTTPClient {
	c.limiter = limiter
	return c
}

func (c *HTTPClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return errors.Wrap(c.limiter.Wait(ctx, "crm:"+c.cfg.LocationID), "crm rate limit")
}

func (c *HTTPClient) sendJSON(ctx context.Context, method, url string, in, out any) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	return c.http.SendJSON(ctx, method, url, c.headers(), in, out)
}

func (c *HTTPClient) headers() map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + c.cfg.APIToken,
		"Version":       c.cfg.APIVersion,
	}
}

func (c *HTTPClient) contactURL(contactID string) string {
	return fmt.Sprintf("%s/contacts/%s", c.cfg.BaseURL, url.PathEscape(contactID))
}

type contactEnvelope struct {
	Contact struct {
		ID   string   `json:"id"`
		Tags []string `json:"tags"`
	} `json:"contact"`
}

func (c *HTTPClient) FindOrCreateContact(ctx context.Context, email, name string) (string, error) {
	body := map[string]any{
		"locationId": c.cfg.LocationID,
		"email":      email,
	}
	if name != "" {
		body["name"] = name
	}

	var out contactEnvelope
	if err := c.sendJSON(ctx, http.MethodPost, c.cfg.BaseURL+"/contacts/upsert", body, &out); err != nil {
		return "", errors.Wrap(err, "failed to upsert contact")
	}
	if out.Contact.ID == "" {
		return "", errors.New("contact upsert returned no id")
	}
	return out.Contact.ID, nil
}

func (c *HTTPClient) GetTags(ctx context.Context, contactID string) ([]string, error) {
	var out contactEnvelope
	if err := c.sendJSON(ctx, http.MethodGet, c.contactURL(contactID), nil, &out); err != nil {
		return nil, errors.Wrap(err, "failed to fetch contact")
	}
	return out.Contact.Tags, nil
}

func (c *HTTPClient) SetTags(ctx context.Context, contactID string, tags []string) error {
	if tags == nil {
		tags = []string{}
	}
	err := c.sendJSON(ctx, http.MethodPut, c.contactURL(contactID), map[string]any{"tags": tags}, nil)
	return errors.Wrap(err, "failed to set contact tags")
}

func (c *HTTPClient) SetCustomField(ctx context.Context, contactID, fieldID, value string) error {
	body := map[string]any{
		"customFields": []map[string]string{{"id": fieldID, "field_value": value}},
	}
	err := c.sendJSON(ctx, http.MethodPut, c.contactURL(contactID), body, nil)
	return errors.Wrap(err, "failed to set contact custom field")
}

// UploadFile stores data in the CRM media library and returns its url.
func (c *HTTPClient) UploadFile(ctx context.Context, data []byte, filename string) (string, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return "", errors.Wrap(err, "failed to build upload")
	}
	if _, err := part.Write(data); err != nil {
		return "", errors.Wrap(err, "failed to build upload")
	}
	if err := form.WriteField("name", filename); err != nil {
		return "", errors.Wrap(err, "failed to build upload")
	}
	if err := form.Close(); err != nil {
		return "", errors.Wrap(err, "failed to build upload")
	}

	if err := c.wait(ctx); err != nil {
		return "", err
	}

	headers := c.headers()
	headers["Content-Type"] = form.FormDataContentType()
	headers["Accept"] = "application/json"

	resp, err := c.http.Send(ctx, http.MethodPost, c.cfg.BaseURL+"/medias/upload-file", headers, buf.Bytes())
	if err != nil {
		return "", errors.Wrap(err, "failed to upload file")
	}

	var out struct {
		FileID string `json:"fileId"`
		URL    string `json:"url"`
	}
	if err := resp.Decode(&out); err != nil {
		return "", err
	}
	if out.URL == "" {
		return "", errors.New("file upload returned no url")
	}
	return out.URL, nil
}

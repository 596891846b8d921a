// Package lacrm talks to the Less Annoying CRM API: one form-encoded POST
// endpoint where the Function parameter selects the call.
package lacrm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"salgsmotor/internal/crm"
	"salgsmotor/internal/platform/logger"
	"salgsmotor/pkg/platform/sentinel"
)

// DefaultBaseURL is the production API endpoint.
const DefaultBaseURL = "https://api.lessannoyingcrm.com"

// Pipeline item attributes that can be mapped to pipeline custom fields.
const (
	PipelineFieldCompany   = "company"
	PipelineFieldOrgNumber = "orgnr"
	PipelineFieldCategory  = "category"
	PipelineFieldPhone     = "phone"
	PipelineFieldEmail     = "email"
	PipelineFieldComment   = "comment"
)

// Pipeline describes the pipeline items are created in. It is created on
// first use when missing.
type Pipeline struct {
	Name     string
	Statuses []string
	// Fields maps Pipeline* attributes to pipeline custom field ids.
	Fields map[string]string
}

// Client implements crm.Client and crm.FieldLister.
type Client struct {
	baseURL  string
	userCode string
	apiToken string
	pageSize int
	pipeline Pipeline
	http     *http.Client
	logger   *slog.Logger

	pipelineMu sync.Mutex
	pipelineID string
}

// Option configures a Client.
type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

func WithPipeline(p Pipeline) Option {
	return func(c *Client) {
		if p.Name != "" {
			c.pipeline = p
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a client. Both credentials are required.
func New(userCode, apiToken string, opts ...Option) (*Client, error) {
	if userCode == "" {
		return nil, errors.New("user code is required")
	}
	if apiToken == "" {
		return nil, errors.New("api token is required")
	}
	c := &Client{
		baseURL:  DefaultBaseURL,
		userCode: userCode,
		apiToken: apiToken,
		pageSize: 500,
		pipeline: Pipeline{Name: "Potensielle kunder", Statuses: []string{"Foreslått"}},
		http:     &http.Client{Timeout: 30 * time.Second},
		logger:   logger.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// envelope is the common response shape. Some calls (GetCustomFields) put
// their payload next to Success instead of in Result.
type envelope struct {
	Success   bool            `json:"Success"`
	Result    json.RawMessage `json:"Result"`
	Error     string          `json:"Error"`
	ErrorCode json.RawMessage `json:"ErrorCode"`
}

// call posts one API function and returns the raw body of a successful
// response.
func (c *Client) call(ctx context.Context, function string, params any) ([]byte, *envelope, error) {
	form := url.Values{
		"UserCode": {c.userCode},
		"APIToken": {c.apiToken},
		"Function": {function},
	}
	if params != nil {
		p, err := json.Marshal(params)
		if err != nil {
			return nil, nil, fmt.Errorf("encode %s parameters: %w", function, err)
		}
		form.Set("Parameters", string(p))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, nil, fmt.Errorf("build %s request: %w", function, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("crm %s: %w: %w", function, sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, nil, fmt.Errorf("crm %s: read body: %w: %w", function, sentinel.ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, nil, fmt.Errorf("%s: %w (status %d)", function, crm.ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return nil, nil, fmt.Errorf("crm %s: %w (status %d)", function, sentinel.ErrUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, nil, fmt.Errorf("%s: %w (status %d)", function, crm.ErrRejected, resp.StatusCode)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, nil, fmt.Errorf("%s: %w: decode response: %v", function, crm.ErrRejected, err)
	}
	if !env.Success {
		msg := env.message()
		if isAuthMessage(msg) {
			return nil, nil, fmt.Errorf("%s: %w: %s", function, crm.ErrUnauthorized, msg)
		}
		return nil, nil, fmt.Errorf("%s: %w: %s", function, crm.ErrRejected, msg)
	}
	return body, &env, nil
}

func (e *envelope) message() string {
	if e.Error != "" {
		return e.Error
	}
	var s string
	if json.Unmarshal(e.Result, &s) == nil && s != "" {
		return s
	}
	return strings.TrimSpace(string(e.Result))
}

func isAuthMessage(msg string) bool {
	m := strings.ToLower(msg)
	for _, marker := range []string{"api token", "apitoken", "user code", "usercode", "authenticat", "not authorized", "permission"} {
		if strings.Contains(m, marker) {
			return true
		}
	}
	return false
}

// SearchRecords lists contacts and company cards. A RecordID filter reads
// that one record instead of searching.
func (c *Client) SearchRecords(ctx context.Context, filter crm.Filter) ([]crm.Record, error) {
	if filter.RecordID != "" {
		ct, err := c.getContact(ctx, filter.RecordID)
		if err != nil {
			return nil, err
		}
		return []crm.Record{ct.record()}, nil
	}

	var records []crm.Record
	for page := 1; ; page++ {
		_, env, err := c.call(ctx, "SearchContacts", map[string]any{
			"SearchText": filter.SearchTerm,
			"NumRows":    c.pageSize,
			"Page":       page,
		})
		if err != nil {
			return nil, err
		}
		var batch []contact
		if len(env.Result) > 0 && string(env.Result) != "null" {
			if err := json.Unmarshal(env.Result, &batch); err != nil {
				return nil, fmt.Errorf("SearchContacts: %w: decode contacts: %v", crm.ErrRejected, err)
			}
		}
		for _, ct := range batch {
			records = append(records, ct.record())
		}
		if len(batch) < c.pageSize {
			break
		}
	}
	c.logger.DebugContext(ctx, "crm records listed", "count", len(records))
	return records, nil
}

func (c *Client) getContact(ctx context.Context, id string) (*contact, error) {
	_, env, err := c.call(ctx, "GetContact", map[string]any{"ContactId": id})
	if err != nil {
		return nil, err
	}
	var ct contact
	if err := json.Unmarshal(env.Result, &ct); err != nil {
		// some accounts wrap the contact in a one-element list
		var list []contact
		if json.Unmarshal(env.Result, &list) != nil || len(list) == 0 {
			return nil, fmt.Errorf("GetContact %s: %w", id, crm.ErrRecordNotFound)
		}
		ct = list[0]
	}
	if ct.ContactID == "" {
		return nil, fmt.Errorf("GetContact %s: %w", id, crm.ErrRecordNotFound)
	}
	return &ct, nil
}

// ReadCustomFields returns the record's current custom field values.
func (c *Client) ReadCustomFields(ctx context.Context, recordID string) (map[crm.FieldID]string, error) {
	ct, err := c.getContact(ctx, recordID)
	if err != nil {
		return nil, err
	}
	return ct.CustomFields.values, nil
}

// WriteCustomField sets one custom field on a record.
func (c *Client) WriteCustomField(ctx context.Context, recordID string, field crm.FieldID, value string) error {
	_, _, err := c.call(ctx, "EditContact", map[string]any{
		"ContactId":   recordID,
		string(field): value,
	})
	return err
}

// CreatePipelineItem files item in the configured pipeline and returns the
// new item id.
func (c *Client) CreatePipelineItem(ctx context.Context, recordID string, item crm.PipelineItem) (string, error) {
	pipelineID, err := c.ensurePipeline(ctx)
	if err != nil {
		return "", err
	}

	custom := map[string]string{}
	for attr, value := range map[string]string{
		PipelineFieldCompany:   item.Company,
		PipelineFieldOrgNumber: item.OrgNumber,
		PipelineFieldCategory:  item.Category,
		PipelineFieldPhone:     item.Phone,
		PipelineFieldEmail:     item.Email,
		PipelineFieldComment:   item.Comment,
	} {
		if id := c.pipeline.Fields[attr]; id != "" {
			custom[id] = value
		}
	}

	_, env, err := c.call(ctx, "CreatePipelineItem", map[string]any{
		"ContactId":    recordID,
		"PipelineId":   pipelineID,
		"Name":         item.Name,
		"StatusName":   item.Status,
		"Note":         item.Comment,
		"CustomFields": custom,
	})
	if err != nil {
		return "", err
	}
	var res struct {
		PipelineItemID flexString `json:"PipelineItemId"`
	}
	if err := json.Unmarshal(env.Result, &res); err != nil {
		return "", fmt.Errorf("CreatePipelineItem: %w: decode: %v", crm.ErrRejected, err)
	}
	return string(res.PipelineItemID), nil
}

// ensurePipeline finds the configured pipeline by name, creating it when
// missing. The id is remembered for the client's lifetime.
func (c *Client) ensurePipeline(ctx context.Context) (string, error) {
	c.pipelineMu.Lock()
	defer c.pipelineMu.Unlock()
	if c.pipelineID != "" {
		return c.pipelineID, nil
	}

	_, env, err := c.call(ctx, "GetPipelines", nil)
	if err != nil {
		return "", err
	}
	var pipelines []struct {
		PipelineID flexString `json:"PipelineId"`
		Name       string     `json:"Name"`
	}
	if err := json.Unmarshal(env.Result, &pipelines); err != nil {
		return "", fmt.Errorf("GetPipelines: %w: decode: %v", crm.ErrRejected, err)
	}
	for _, p := range pipelines {
		if p.Name == c.pipeline.Name {
			c.pipelineID = string(p.PipelineID)
			return c.pipelineID, nil
		}
	}

	_, env, err = c.call(ctx, "CreatePipeline", map[string]any{
		"Name":        c.pipeline.Name,
		"StatusNames": c.pipeline.Statuses,
	})
	if err != nil {
		return "", err
	}
	var created struct {
		PipelineID flexString `json:"PipelineId"`
	}
	if err := json.Unmarshal(env.Result, &created); err != nil || created.PipelineID == "" {
		return "", fmt.Errorf("CreatePipeline: %w: no pipeline id returned", crm.ErrRejected)
	}
	c.logger.InfoContext(ctx, "crm pipeline created", "name", c.pipeline.Name, "pipeline_id", string(created.PipelineID))
	c.pipelineID = string(created.PipelineID)
	return c.pipelineID, nil
}

// ListCustomFields returns every custom field, tagged with its record type.
func (c *Client) ListCustomFields(ctx context.Context) ([]crm.CustomField, error) {
	body, env, err := c.call(ctx, "GetCustomFields", nil)
	if err != nil {
		return nil, err
	}

	type field struct {
		CustomFieldID flexString `json:"CustomFieldId"`
		Name          string     `json:"Name"`
		Type          string     `json:"Type"`
	}
	var grouped map[string]json.RawMessage
	if err := json.Unmarshal(body, &grouped); err != nil {
		return nil, fmt.Errorf("GetCustomFields: %w: decode: %v", crm.ErrRejected, err)
	}
	// newer accounts nest the groups under Result
	if len(env.Result) > 0 && env.Result[0] == '{' {
		var nested map[string]json.RawMessage
		if json.Unmarshal(env.Result, &nested) == nil {
			grouped = nested
		}
	}

	var out []crm.CustomField
	for _, recordType := range []string{"Company", "Contact", "Pipeline"} {
		raw, ok := grouped[recordType]
		if !ok {
			continue
		}
		var fields []field
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("GetCustomFields: %w: decode %s fields: %v", crm.ErrRejected, recordType, err)
		}
		for _, f := range fields {
			out = append(out, crm.CustomField{
				ID:         crm.FieldID(f.CustomFieldID),
				Name:       f.Name,
				Type:       f.Type,
				RecordType: recordType,
			})
		}
	}
	return out, nil
}

var (
	_ crm.Client      = (*Client)(nil)
	_ crm.FieldLister = (*Client)(nil)
)

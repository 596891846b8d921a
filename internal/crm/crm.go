// Package crm describes the CRM as the sync engine sees it: records with
// custom fields, and a pipeline that sales items are created in.
package crm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"salgsmotor/pkg/platform/sentinel"
)

var (
	// ErrUnauthorized means the CRM rejected our credentials. It is fatal
	// for a whole batch.
	ErrUnauthorized = fmt.Errorf("crm: %w", sentinel.ErrUnauthorized)
	// ErrRejected means the CRM refused one request (bad field id, bad value).
	ErrRejected = errors.New("crm: request rejected")
	// ErrRecordNotFound means the record id does not exist.
	ErrRecordNotFound = fmt.Errorf("crm record: %w", sentinel.ErrNotFound)
)

// FieldID is the CRM's identifier for a custom field.
type FieldID string

// Kind tells how a company is represented in the CRM. Some companies are
// company cards; others only exist as a contact person whose company name
// attribute names the business. Both are sync candidates.
type Kind string

const (
	KindCompany Kind = "company"
	KindContact Kind = "contact"
)

// Record is a CRM record summary.
type Record struct {
	ID          string
	Kind        Kind
	Name        string
	CompanyName string
	Email       string
	Phone       string
	Website     string
	Fields      map[FieldID]string
}

// CompanyDisplayName is the company the record stands for: the company
// name attribute, or the card's own name for company cards.
func (r Record) CompanyDisplayName() string {
	if n := strings.TrimSpace(r.CompanyName); n != "" {
		return n
	}
	if r.Kind == KindCompany {
		return strings.TrimSpace(r.Name)
	}
	return ""
}

// IsCandidate reports whether the record represents a company at all.
func (r Record) IsCandidate() bool {
	return r.CompanyDisplayName() != ""
}

// State is the part of a record that rules may look at.
type State struct {
	RecordID string
	Email    string
	Phone    string
}

// State returns the rule-visible view of the record.
func (r Record) State() State {
	return State{RecordID: r.ID, Email: r.Email, Phone: r.Phone}
}

// HasContactPoint reports whether the record carries an email or a phone.
func (s State) HasContactPoint() bool {
	return strings.TrimSpace(s.Email) != "" || strings.TrimSpace(s.Phone) != ""
}

// Filter narrows SearchRecords.
type Filter struct {
	SearchTerm string
	// RecordID restricts the search to one record when set.
	RecordID string
}

// PipelineItem is a sales opportunity created for a record.
type PipelineItem struct {
	Name      string
	Status    string
	Company   string
	OrgNumber string
	Category  string
	Phone     string
	Email     string
	Comment   string
}

// CustomField describes one configured custom field.
type CustomField struct {
	ID         FieldID
	Name       string
	Type       string
	RecordType string
}

// Client is the CRM collaborator consumed by the sync engine.
type Client interface {
	SearchRecords(ctx context.Context, filter Filter) ([]Record, error)
	ReadCustomFields(ctx context.Context, recordID string) (map[FieldID]string, error)
	WriteCustomField(ctx context.Context, recordID string, field FieldID, value string) error
	CreatePipelineItem(ctx context.Context, recordID string, item PipelineItem) (string, error)
}

// FieldLister is implemented by clients that can enumerate custom fields.
type FieldLister interface {
	ListCustomFields(ctx context.Context) ([]CustomField, error)
}

// IsUnauthorized reports whether err is a CRM credential failure.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

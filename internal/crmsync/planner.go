// Package crmsync turns an enriched company into CRM writes.
//
// The Planner computes the minimal set of custom field changes for one
// record, plus an update log entry and at most one pipeline item. The
// Executor applies a plan, or only reports it in dry-run mode. Planning is
// pure: the same input always gives the same plan.
package crmsync

import (
	"log/slog"
	"maps"
	"strconv"
	"strings"
	"time"

	"salgsmotor/internal/crm"
	"salgsmotor/internal/enrichment/models"
	"salgsmotor/internal/platform/logger"
	"salgsmotor/internal/rules"
	"salgsmotor/pkg/domain"
)

const (
	notesHeader = "Anbefalinger:"
	// aiSeparator starts the AI paragraph of the notes field. Everything
	// before it is the deterministic recommendation section.
	aiSeparator = "\n\nAI-analyse: "

	DefaultPipelineStatus = "Foreslått"
)

// Pipeline skip reasons.
const (
	SkipNoRecommendation = "no recommendation"
	SkipLogUnmapped      = "update log field not mapped"
	SkipAlreadyCreated   = "pipeline item already created"
)

// PlanInput is everything the planner needs for one record. LastKnown is
// the record's current custom field values, keyed by CRM field id.
type PlanInput struct {
	Record          crm.Record
	Identity        domain.CompanyIdentity
	Bundle          *models.Bundle
	Recommendations []rules.Recommendation
	Note            string
	LastKnown       map[crm.FieldID]string
	AsOf            time.Time
}

// Mutation is one planned custom field write.
type Mutation struct {
	Field    Field       `json:"field"`
	FieldID  crm.FieldID `json:"field_id"`
	Value    string      `json:"value"`
	Previous string      `json:"previous,omitempty"`
}

// LogIntent describes the update log write. The entry text is rendered by
// the executor once it knows what was actually written.
type LogIntent struct {
	FieldID  crm.FieldID `json:"field_id"`
	Previous string      `json:"previous,omitempty"`
	At       time.Time   `json:"at"`
}

// PipelineIntent is a planned pipeline item. Marker is appended to the
// update log when the item is created.
type PipelineIntent struct {
	Item   crm.PipelineItem `json:"item"`
	Marker string           `json:"marker"`
}

// Plan is the sync plan for one record.
type Plan struct {
	RecordID     string          `json:"record_id"`
	OrgNumber    string          `json:"orgnr"`
	Mutations    []Mutation      `json:"mutations,omitempty"`
	Unchanged    []Field         `json:"unchanged,omitempty"`
	Log          *LogIntent      `json:"log,omitempty"`
	Pipeline     *PipelineIntent `json:"pipeline,omitempty"`
	PipelineSkip string          `json:"pipeline_skip,omitempty"`
}

// Empty reports whether the plan has no work.
func (p *Plan) Empty() bool {
	return p == nil || (len(p.Mutations) == 0 && p.Log == nil && p.Pipeline == nil)
}

// Changed lists the abstract names of planned mutations, plus "pipeline"
// when an item is planned.
func (p *Plan) Changed() []string {
	if p == nil {
		return nil
	}
	out := make([]string, 0, len(p.Mutations)+1)
	for _, m := range p.Mutations {
		out = append(out, string(m.Field))
	}
	if p.Pipeline != nil {
		out = append(out, pipelineEntry)
	}
	return out
}

// LogValue is the update log value the plan writes when every step
// succeeds and, if pipelineCreated, the pipeline item exists.
func (p *Plan) LogValue(pipelineCreated bool) string {
	if p == nil || p.Log == nil {
		return ""
	}
	marker := ""
	if pipelineCreated && p.Pipeline != nil {
		marker = p.Pipeline.Marker
	}
	return AppendLog(p.Log.Previous, LogEntry(p.Log.At, p.Changed(), marker))
}

// Projected returns the field values the record has after the plan is fully
// applied on top of last.
func (p *Plan) Projected(last map[crm.FieldID]string, pipelineCreated bool) map[crm.FieldID]string {
	out := maps.Clone(last)
	if out == nil {
		out = map[crm.FieldID]string{}
	}
	if p == nil {
		return out
	}
	for _, m := range p.Mutations {
		out[m.FieldID] = m.Value
	}
	if p.Log != nil {
		out[p.Log.FieldID] = p.LogValue(pipelineCreated)
	}
	return out
}

// Planner computes sync plans for a fixed field mapping.
type Planner struct {
	mapping        FieldMapping
	pipelineStatus string
	logger         *slog.Logger
}

// PlannerOption configures a Planner.
type PlannerOption func(*Planner)

// WithPipelineStatus sets the status new pipeline items start in.
func WithPipelineStatus(status string) PlannerOption {
	return func(p *Planner) {
		if status != "" {
			p.pipelineStatus = status
		}
	}
}

func WithPlannerLogger(l *slog.Logger) PlannerOption {
	return func(p *Planner) { p.logger = l }
}

func NewPlanner(mapping FieldMapping, opts ...PlannerOption) *Planner {
	p := &Planner{
		mapping:        mapping,
		pipelineStatus: DefaultPipelineStatus,
		logger:         logger.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Mapping returns the planner's field mapping.
func (p *Planner) Mapping() FieldMapping {
	return p.mapping
}

// Plan diffs the desired field values against in.LastKnown.
func (p *Planner) Plan(in PlanInput) *Plan {
	orgnr := in.Identity.OrgNumber.String()
	plan := &Plan{RecordID: in.Record.ID, OrgNumber: orgnr}
	desired := p.desired(in)

	for _, f := range Fields() {
		if f == FieldUpdateLog {
			continue
		}
		id, ok := p.mapping.ID(f)
		if !ok {
			continue
		}
		want := strings.TrimSpace(desired[f])
		prev := in.LastKnown[id]
		if want == "" || sameValue(f, want, prev) {
			plan.Unchanged = append(plan.Unchanged, f)
			continue
		}
		plan.Mutations = append(plan.Mutations, Mutation{Field: f, FieldID: id, Value: want, Previous: prev})
	}

	logID, logMapped := p.mapping.ID(FieldUpdateLog)
	previousLog := ""
	if logMapped {
		previousLog = in.LastKnown[logID]
	}

	primary, hasPrimary := rules.Primary(in.Recommendations)
	switch {
	case !hasPrimary:
		plan.PipelineSkip = SkipNoRecommendation
	case !logMapped:
		plan.PipelineSkip = SkipLogUnmapped
	case HasPipelineMarker(previousLog, orgnr):
		plan.PipelineSkip = SkipAlreadyCreated
	default:
		plan.Pipeline = &PipelineIntent{
			Item:   p.pipelineItem(in, primary),
			Marker: PipelineMarker(orgnr),
		}
	}

	if logMapped && (len(plan.Mutations) > 0 || plan.Pipeline != nil) {
		plan.Log = &LogIntent{FieldID: logID, Previous: previousLog, At: in.AsOf}
	}

	p.logger.Debug("sync planned",
		"record_id", plan.RecordID,
		"orgnr", orgnr,
		"mutations", len(plan.Mutations),
		"unchanged", len(plan.Unchanged),
		"pipeline", plan.Pipeline != nil,
	)
	return plan
}

// NoteNeeded reports whether a plan for in would use the sales note: the
// recommendation section of the notes field changed, or a pipeline item
// would be created. Callers use it to skip generating a note nobody reads.
func (p *Planner) NoteNeeded(in PlanInput) bool {
	in.Note = ""
	plan := p.Plan(in)
	if plan.Pipeline != nil {
		return true
	}
	for _, m := range plan.Mutations {
		if m.Field == FieldNotes {
			return true
		}
	}
	return false
}

func (p *Planner) desired(in PlanInput) map[Field]string {
	b := in.Bundle
	out := map[Field]string{}
	if !in.Identity.OrgNumber.IsZero() {
		out[FieldOrgNumber] = in.Identity.OrgNumber.String()
		out[FieldRegistryLink] = in.Identity.OrgNumber.RegistryURL()
	}
	if b == nil {
		return out
	}

	if r := b.Registry; r != nil {
		out[FieldRegistryName] = r.Name
		out[FieldIndustry] = r.Industry
		if r.Employees != nil {
			out[FieldEmployees] = strconv.Itoa(*r.Employees)
		}
		if r.FoundedOn != nil {
			out[FieldFounded] = r.FoundedOn.Format(time.DateOnly)
		}
		out[FieldOrgForm] = r.OrganizationForm
		out[FieldMunicipality] = r.Municipality
	}
	if site := b.Website(); site != "" {
		out[FieldWebsite] = site
	}
	if c := b.Contact; c != nil && c.Email != "" {
		out[FieldCompanyEmail] = c.Email
		out[FieldEmailProvider] = string(c.ProviderClass)
	}
	if d := b.DomainHealth; d != nil {
		if d.TLSValid != nil {
			out[FieldTLSValid] = yesNo(*d.TLSValid)
		}
		if d.TLSExpiresAt != nil {
			out[FieldTLSExpires] = d.TLSExpiresAt.Format(time.DateOnly)
		}
		if d.Reachable {
			out[FieldMailServer] = yesNo(d.HasMX)
		}
		out[FieldTechnologies] = strings.Join(d.Technologies, ", ")
	}
	if reg := b.Registration; reg != nil {
		out[FieldRegistrar] = reg.Registrar
		if reg.ExpiresAt != nil {
			out[FieldDomainExpires] = reg.ExpiresAt.Format(time.DateOnly)
		}
	}
	if f := b.Financial; f != nil {
		out[FieldFinancialScore] = f.Rating
		out[FieldProfile] = f.Description
	}
	if primary, ok := rules.Primary(in.Recommendations); ok {
		out[FieldRecommended] = string(primary.Category)
	}
	if section := notesSection(in.Recommendations); section != "" {
		out[FieldNotes] = section
		if analysis := analysisParagraph(in.Note, b.WebsiteAnalysis); analysis != "" {
			out[FieldNotes] = section + aiSeparator + analysis
		}
	}
	return out
}

// analysisParagraph joins the sales note and the website assessment.
func analysisParagraph(note string, site *models.WebsiteAnalysis) string {
	var parts []string
	if note = strings.TrimSpace(note); note != "" {
		parts = append(parts, note)
	}
	if site != nil && strings.TrimSpace(site.Summary) != "" {
		parts = append(parts, "Nettside: "+strings.TrimSpace(site.Summary))
	}
	return strings.Join(parts, "\n")
}

func (p *Planner) pipelineItem(in PlanInput, primary rules.Recommendation) crm.PipelineItem {
	company := in.Bundle.CompanyName()
	if company == "" {
		company = in.Record.CompanyDisplayName()
	}
	item := crm.PipelineItem{
		Name:      company + " - " + string(primary.Category),
		Status:    p.pipelineStatus,
		Company:   company,
		OrgNumber: in.Identity.OrgNumber.String(),
		Category:  string(primary.Category),
		Phone:     in.Record.Phone,
		Email:     in.Record.Email,
		Comment:   strings.TrimSpace(in.Note),
	}
	if c := contactOf(in.Bundle); c != nil {
		if c.Email != "" {
			item.Email = c.Email
		}
		if c.Phone != "" {
			item.Phone = c.Phone
		}
	}
	if item.Comment == "" {
		item.Comment = primary.Rationale
	}
	return item
}

func contactOf(b *models.Bundle) *models.ContactData {
	if b == nil {
		return nil
	}
	return b.Contact
}

func notesSection(recs []rules.Recommendation) string {
	notes := rules.Notes(recs)
	if notes == "" {
		return ""
	}
	return notesHeader + "\n" + notes
}

// sameValue compares a desired value with the stored one. The notes field
// only compares its recommendation section.
func sameValue(f Field, want, prev string) bool {
	if f == FieldNotes {
		want, _, _ = strings.Cut(want, aiSeparator)
		prev, _, _ = strings.Cut(prev, aiSeparator)
	}
	return strings.TrimSpace(want) == strings.TrimSpace(prev)
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

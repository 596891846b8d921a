package crmsync

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"salgsmotor/internal/crm"
)

// Field is an abstract CRM field. Configuration maps each one to the id of
// a custom field in the CRM account.
type Field string

const (
	FieldOrgNumber      Field = "orgnr"
	FieldRegistryLink   Field = "brreg_lenke"
	FieldRegistryName   Field = "brreg_navn"
	FieldIndustry       Field = "bransje"
	FieldEmployees      Field = "antall_ansatte"
	FieldFounded        Field = "etablert"
	FieldOrgForm        Field = "organisasjonsform"
	FieldMunicipality   Field = "kommune"
	FieldWebsite        Field = "nettsted"
	FieldCompanyEmail   Field = "firma_epost"
	FieldEmailProvider  Field = "epost_leverandor"
	FieldMailServer     Field = "epost_mx"
	FieldTLSValid       Field = "ssl_gyldig"
	FieldTLSExpires     Field = "ssl_utloper"
	FieldRegistrar      Field = "domene_registrar"
	FieldDomainExpires  Field = "domene_utloper"
	FieldTechnologies   Field = "teknologi"
	FieldFinancialScore Field = "proff_rating"
	FieldProfile        Field = "proff_beskrivelse"
	FieldRecommended    Field = "pipeline_anbefalt"
	FieldNotes          Field = "salgsmotor_notat"
	FieldUpdateLog      Field = "oppdateringslogg"
)

// Fields lists every abstract field in write order. The update log is
// always last.
func Fields() []Field {
	return []Field{
		FieldOrgNumber,
		FieldRegistryLink,
		FieldRegistryName,
		FieldIndustry,
		FieldEmployees,
		FieldFounded,
		FieldOrgForm,
		FieldMunicipality,
		FieldWebsite,
		FieldCompanyEmail,
		FieldEmailProvider,
		FieldMailServer,
		FieldTLSValid,
		FieldTLSExpires,
		FieldRegistrar,
		FieldDomainExpires,
		FieldTechnologies,
		FieldFinancialScore,
		FieldProfile,
		FieldRecommended,
		FieldNotes,
		FieldUpdateLog,
	}
}

// FieldMapping maps abstract fields to CRM field ids. A missing entry
// leaves that field unmapped; the planner skips it.
type FieldMapping struct {
	ids map[Field]crm.FieldID
}

// ParseFieldMapping builds a mapping from configuration. Unknown field
// names are rejected so that a typo does not silently disable a field.
func ParseFieldMapping(raw map[string]string) (FieldMapping, error) {
	known := make(map[Field]struct{}, len(Fields()))
	for _, f := range Fields() {
		known[f] = struct{}{}
	}

	m := FieldMapping{ids: make(map[Field]crm.FieldID, len(raw))}
	var unknown []string
	for _, name := range slices.Sorted(maps.Keys(raw)) {
		f := Field(strings.TrimSpace(name))
		if _, ok := known[f]; !ok {
			unknown = append(unknown, name)
			continue
		}
		id := strings.TrimSpace(raw[name])
		if id == "" {
			continue
		}
		m.ids[f] = crm.FieldID(id)
	}
	if len(unknown) > 0 {
		return FieldMapping{}, fmt.Errorf("unknown CRM fields in mapping: %s", strings.Join(unknown, ", "))
	}
	return m, nil
}

// NewFieldMapping is a convenience for tests and callers holding typed ids.
func NewFieldMapping(ids map[Field]crm.FieldID) FieldMapping {
	return FieldMapping{ids: maps.Clone(ids)}
}

// ID returns the CRM field id for f.
func (m FieldMapping) ID(f Field) (crm.FieldID, bool) {
	id, ok := m.ids[f]
	return id, ok && id != ""
}

// Mapped lists the mapped fields in write order.
func (m FieldMapping) Mapped() []Field {
	var out []Field
	for _, f := range Fields() {
		if _, ok := m.ID(f); ok {
			out = append(out, f)
		}
	}
	return out
}

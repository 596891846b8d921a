package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"salgsmotor/internal/crm"
	"salgsmotor/internal/enrichment/models"
	"salgsmotor/internal/enrichment/providers"
	"salgsmotor/internal/enrichment/providers/mocks"
	"salgsmotor/pkg/domain"
)

const orgField crm.FieldID = "3001"

// =============================================================================
// Identity Resolver Test Suite
// =============================================================================

type ResolverSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	registry *mocks.MockRegistryClient
	ctx      context.Context
}

func TestResolverSuite(t *testing.T) {
	suite.Run(t, new(ResolverSuite))
}

func (s *ResolverSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.registry = mocks.NewMockRegistryClient(s.ctrl)
	s.ctx = context.Background()
}

func (s *ResolverSuite) resolver(opts ...Option) *Resolver {
	r, err := New(s.registry, append([]Option{WithOrgNumberField(orgField)}, opts...)...)
	s.Require().NoError(err)
	return r
}

func company(name, orgnr string) crm.Record {
	rec := crm.Record{ID: "rec-1", Kind: crm.KindCompany, Name: name, Fields: map[crm.FieldID]string{}}
	if orgnr != "" {
		rec.Fields[orgField] = orgnr
	}
	return rec
}

// =============================================================================
// Existing organization numbers
// =============================================================================

func (s *ResolverSuite) TestExistingNumberIsUsedAsIs() {
	res := s.resolver().Resolve(s.ctx, company("Acme Bygg AS", " 923609016 "))

	s.Require().True(res.Resolved())
	s.Equal("923609016", res.Identity.OrgNumber.String())
	s.Equal("rec-1", res.Identity.RecordID)
	s.False(res.Discovered)
}

func (s *ResolverSuite) TestRevalidationConfirms() {
	orgnr := domain.MustOrgNumber("923609016")
	s.registry.EXPECT().LookupByOrgNumber(gomock.Any(), orgnr).Return(&models.RegistryData{OrgNumber: "923609016"}, nil)

	res := s.resolver(WithRevalidation(true)).Resolve(s.ctx, company("Acme", "923609016"))
	s.True(res.Resolved())
}

func (s *ResolverSuite) TestRevalidationNotFoundUnresolves() {
	s.registry.EXPECT().LookupByOrgNumber(gomock.Any(), gomock.Any()).
		Return(nil, providers.NewProviderError(providers.ErrorNotFound, providers.IDBrreg, "unexpected status 404", nil))

	res := s.resolver(WithRevalidation(true)).Resolve(s.ctx, company("Acme", "923609016"))
	s.False(res.Resolved())
	s.Equal(ReasonNotInRegistry, res.Reason)
}

func (s *ResolverSuite) TestRevalidationOutageKeepsNumber() {
	s.registry.EXPECT().LookupByOrgNumber(gomock.Any(), gomock.Any()).
		Return(nil, providers.NewProviderError(providers.ErrorProviderOutage, providers.IDBrreg, "unexpected status 503", nil))

	res := s.resolver(WithRevalidation(true)).Resolve(s.ctx, company("Acme", "923609016"))
	s.True(res.Resolved())
}

func (s *ResolverSuite) TestInvalidNumberWithoutSearch() {
	res := s.resolver().Resolve(s.ctx, company("Acme", "923609017"))
	s.False(res.Resolved())
	s.Equal(ReasonInvalid, res.Reason)
	s.ErrorIs(res.Err, domain.ErrInvalidOrgNumber)
}

func (s *ResolverSuite) TestInvalidNumberFallsBackToSearch() {
	s.registry.EXPECT().SearchByName(gomock.Any(), "Acme Bygg AS").
		Return([]models.Candidate{{OrgNumber: "974760673", Name: "ACME BYGG AS"}}, nil)

	res := s.resolver(WithNameSearch(true)).Resolve(s.ctx, company("Acme Bygg AS", "12345"))
	s.Require().True(res.Resolved())
	s.Equal("974760673", res.Identity.OrgNumber.String())
	s.True(res.Discovered)
}

// =============================================================================
// Name search
// =============================================================================

func (s *ResolverSuite) TestMissingWithoutSearch() {
	res := s.resolver().Resolve(s.ctx, company("Acme", ""))
	s.False(res.Resolved())
	s.Equal(ReasonMissing, res.Reason)
}

func (s *ResolverSuite) TestSearchingByNameCopiesResolver() {
	s.registry.EXPECT().SearchByName(gomock.Any(), "Acme").Return([]models.Candidate{
		{OrgNumber: "974760673", Name: "ACME BYGG AS"},
	}, nil)
	base := s.resolver()

	res := base.SearchingByName(true).Resolve(s.ctx, company("Acme", ""))
	s.True(res.Resolved())
	s.Equal(ReasonMissing, base.Resolve(s.ctx, company("Acme", "")).Reason, "the original is unchanged")
	s.Equal("923609016", base.Existing(company("Acme", " 923609016 ")))
}

func (s *ResolverSuite) TestExactNameAmongSeveral() {
	s.registry.EXPECT().SearchByName(gomock.Any(), "Acme Bygg").Return([]models.Candidate{
		{OrgNumber: "984851006", Name: "ACME BYGG OG ANLEGG AS"},
		{OrgNumber: "974760673", Name: "ACME BYGG AS"},
	}, nil)

	res := s.resolver(WithNameSearch(true)).Resolve(s.ctx, company("Acme Bygg", ""))
	s.Require().True(res.Resolved())
	s.Equal("974760673", res.Identity.OrgNumber.String())
}

func (s *ResolverSuite) TestSingleCandidateAccepted() {
	s.registry.EXPECT().SearchByName(gomock.Any(), "Acme").Return([]models.Candidate{
		{OrgNumber: "974760673", Name: "ACME BYGG AS"},
	}, nil)

	res := s.resolver(WithNameSearch(true)).Resolve(s.ctx, company("Acme", ""))
	s.True(res.Resolved())
}

func (s *ResolverSuite) TestAmbiguousIsUnresolved() {
	s.registry.EXPECT().SearchByName(gomock.Any(), "Acme").Return([]models.Candidate{
		{OrgNumber: "974760673", Name: "ACME BYGG AS"},
		{OrgNumber: "984851006", Name: "ACME BYGG OG ANLEGG AS"},
	}, nil)

	res := s.resolver(WithNameSearch(true)).Resolve(s.ctx, company("Acme", ""))
	s.False(res.Resolved())
	s.Equal("ambiguous: 2 candidates", res.Reason)
}

func (s *ResolverSuite) TestNoCandidates() {
	s.registry.EXPECT().SearchByName(gomock.Any(), "Acme").Return(nil, nil)

	res := s.resolver(WithNameSearch(true)).Resolve(s.ctx, company("Acme", ""))
	s.Equal(ReasonNoMatch, res.Reason)
}

func (s *ResolverSuite) TestSearchFailure() {
	boom := errors.New("registry down")
	s.registry.EXPECT().SearchByName(gomock.Any(), gomock.Any()).Return(nil, boom)

	res := s.resolver(WithNameSearch(true)).Resolve(s.ctx, company("Acme", ""))
	s.False(res.Resolved())
	s.Equal(ReasonSearchFailed, res.Reason)
	s.ErrorIs(res.Err, boom)
}

func (s *ResolverSuite) TestContactPersonUsesCompanyName() {
	rec := crm.Record{ID: "rec-7", Kind: crm.KindContact, Name: "Kari Nordmann", CompanyName: "Acme Bygg AS"}
	s.registry.EXPECT().SearchByName(gomock.Any(), "Acme Bygg AS").
		Return([]models.Candidate{{OrgNumber: "974760673", Name: "ACME BYGG AS"}}, nil)

	res := s.resolver(WithNameSearch(true)).Resolve(s.ctx, rec)
	s.Require().True(res.Resolved())
	s.Equal("rec-7", res.Identity.RecordID)
}

func (s *ResolverSuite) TestContactWithoutCompanyName() {
	rec := crm.Record{ID: "rec-8", Kind: crm.KindContact, Name: "Kari Nordmann"}

	res := s.resolver(WithNameSearch(true)).Resolve(s.ctx, rec)
	s.Equal(ReasonNoName, res.Reason)
}

func TestNew_RequiresRegistry(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatal("expected error")
	}
}

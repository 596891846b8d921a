package orchestrator

//go:generate mockgen -source=orchestrator.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"salgsmotor/internal/crm"
	crmmocks "salgsmotor/internal/crm/mocks"
	"salgsmotor/internal/crmsync"
	"salgsmotor/internal/enrichment/cache"
	"salgsmotor/internal/enrichment/cache/store"
	"salgsmotor/internal/enrichment/models"
	"salgsmotor/internal/enrichment/providers"
	providermocks "salgsmotor/internal/enrichment/providers/mocks"
	"salgsmotor/internal/identity"
	"salgsmotor/internal/orchestrator/mocks"
	"salgsmotor/internal/platform/events"
	"salgsmotor/internal/rules"
	"salgsmotor/pkg/domain"
	"salgsmotor/pkg/requestcontext"
)

const (
	orgField  crm.FieldID = "3001"
	nameField crm.FieldID = "3003"
	recField  crm.FieldID = "3013"
	logField  crm.FieldID = "3015"
)

// =============================================================================
// Orchestrator Test Suite
// =============================================================================

type OrchestratorSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	crm      *crmmocks.MockClient
	registry *providermocks.MockRegistryClient
	enricher *mocks.MockEnricher
	store    *store.Memory
	recorder *events.Recorder
	orch     *Orchestrator
	ctx      context.Context
	now      time.Time
}

func TestOrchestratorSuite(t *testing.T) {
	suite.Run(t, new(OrchestratorSuite))
}

func (s *OrchestratorSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.crm = crmmocks.NewMockClient(s.ctrl)
	s.registry = providermocks.NewMockRegistryClient(s.ctrl)
	s.enricher = mocks.NewMockEnricher(s.ctrl)
	s.store = store.NewMemory()
	s.recorder = events.NewRecorder()
	s.now = time.Date(2026, 10, 19, 3, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.orch = s.newOrchestrator(s.crm)
}

func (s *OrchestratorSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *OrchestratorSuite) newOrchestrator(client crm.Client) *Orchestrator {
	reg := prometheus.NewRegistry()
	manager, err := cache.New(s.store, cache.WithMetrics(cache.NewMetrics(reg)))
	s.Require().NoError(err)
	resolver, err := identity.New(s.registry, identity.WithOrgNumberField(orgField))
	s.Require().NoError(err)
	mapping := crmsync.NewFieldMapping(map[crmsync.Field]crm.FieldID{
		crmsync.FieldOrgNumber:    orgField,
		crmsync.FieldRegistryName: nameField,
		crmsync.FieldRecommended:  recField,
		crmsync.FieldUpdateLog:    logField,
	})
	deps := Deps{
		Cache:    manager,
		Enricher: s.enricher,
		Engine:   rules.NewEngine(),
	}
	if client != nil {
		executor, err := crmsync.NewExecutor(client)
		s.Require().NoError(err)
		deps.CRM = client
		deps.Resolver = resolver
		deps.Planner = crmsync.NewPlanner(mapping)
		deps.Executor = executor
	}
	o, err := New(deps, WithWorkers(2), WithPublisher(s.recorder), WithMetrics(NewMetrics(reg)))
	s.Require().NoError(err)
	return o
}

func card(id, name, orgnr string) crm.Record {
	rec := crm.Record{ID: id, Kind: crm.KindCompany, Name: name, Phone: "22 33 44 55", Fields: map[crm.FieldID]string{}}
	if orgnr != "" {
		rec.Fields[orgField] = orgnr
	}
	return rec
}

func (s *OrchestratorSuite) startup(orgnr, name string) *models.Bundle {
	founded := s.now.AddDate(0, -3, 0)
	return &models.Bundle{
		OrgNumber: orgnr,
		Registry:  &models.RegistryData{OrgNumber: orgnr, Name: name, FoundedOn: &founded},
	}
}

// =============================================================================
// Run
// =============================================================================

func (s *OrchestratorSuite) TestRunSyncsResolvedAndSkipsUnresolved() {
	s.crm.EXPECT().SearchRecords(gomock.Any(), crm.Filter{}).Return([]crm.Record{
		card("1", "Acme Bygg AS", "923609016"),
		{ID: "2", Kind: crm.KindContact, Name: "Kari Nordmann", CompanyName: "Kari Frisør"},
		{ID: "3", Kind: crm.KindContact, Name: "Ola Nordmann"},
	}, nil)
	s.enricher.EXPECT().Enrich(gomock.Any(), domain.MustOrgNumber("923609016")).Return(s.startup("923609016", "ACME BYGG AS"), nil)
	s.crm.EXPECT().ReadCustomFields(gomock.Any(), "1").Return(map[crm.FieldID]string{orgField: "923609016"}, nil)
	s.enricher.EXPECT().Note(gomock.Any(), gomock.Any(), gomock.Any()).Return("Ring dem.")
	s.crm.EXPECT().WriteCustomField(gomock.Any(), "1", nameField, "ACME BYGG AS").Return(nil)
	s.crm.EXPECT().WriteCustomField(gomock.Any(), "1", recField, string(rules.CategoryStartup)).Return(nil)
	s.crm.EXPECT().CreatePipelineItem(gomock.Any(), "1", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, item crm.PipelineItem) (string, error) {
			s.Equal("ACME BYGG AS - Startup-pakke", item.Name)
			s.Equal("Ring dem.", item.Comment)
			return "77", nil
		})
	s.crm.EXPECT().WriteCustomField(gomock.Any(), "1", logField, gomock.Any()).Return(nil)

	summary, err := s.orch.Run(s.ctx, Options{})
	s.Require().NoError(err)

	s.NotEmpty(summary.RunID)
	s.Equal(2, summary.Candidates, "a contact without a company name is not a candidate")
	s.Require().Len(summary.Companies, 2)
	s.Equal(StatusSuccess, summary.Companies[0].Status)
	s.Equal("923609016", summary.Companies[0].OrgNumber)
	s.Equal(crmsync.PipelineCreated, summary.Companies[0].Sync.Pipeline)
	s.Equal(StatusSkipped, summary.Companies[1].Status)
	s.Equal(identity.ReasonMissing, summary.Companies[1].Reason)
	s.False(summary.Aborted)

	published := s.recorder.Events()
	s.Len(published, 2)
	for _, ev := range published {
		s.Equal(summary.RunID, ev.RunID)
	}
	s.Equal(1, s.store.Len(), "the bundle is cached")
}

func (s *OrchestratorSuite) TestDryRunMakesNoWrites() {
	s.crm.EXPECT().SearchRecords(gomock.Any(), gomock.Any()).Return([]crm.Record{card("1", "Acme", "923609016")}, nil)
	s.enricher.EXPECT().Enrich(gomock.Any(), gomock.Any()).Return(s.startup("923609016", "ACME BYGG AS"), nil)
	s.crm.EXPECT().ReadCustomFields(gomock.Any(), "1").Return(map[crm.FieldID]string{}, nil)
	s.enricher.EXPECT().Note(gomock.Any(), gomock.Any(), gomock.Any()).Return("")
	s.crm.EXPECT().WriteCustomField(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	s.crm.EXPECT().CreatePipelineItem(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	summary, err := s.orch.Run(s.ctx, Options{DryRun: true})
	s.Require().NoError(err)
	s.Require().Len(summary.Companies, 1)
	res := summary.Companies[0]
	s.Equal(StatusSuccess, res.Status)
	s.True(res.Sync.DryRun)
	s.Equal(crmsync.PipelinePlanned, res.Sync.Pipeline)
	s.Len(res.Sync.Written, 4, "orgnr, name, recommendation and log")
}

func (s *OrchestratorSuite) TestUnauthorizedAbortsBatch() {
	orch := s.orch
	orch.workers = 1
	s.crm.EXPECT().SearchRecords(gomock.Any(), gomock.Any()).Return([]crm.Record{
		card("1", "Acme", "923609016"),
		card("2", "Beta", "974760673"),
	}, nil)
	s.enricher.EXPECT().Enrich(gomock.Any(), domain.MustOrgNumber("923609016")).Return(s.startup("923609016", "ACME"), nil)
	s.crm.EXPECT().ReadCustomFields(gomock.Any(), "1").
		Return(nil, fmt.Errorf("GetContact: %w: Invalid API token", crm.ErrUnauthorized))

	summary, err := orch.Run(s.ctx, Options{})
	s.Require().Error(err)
	s.True(crm.IsUnauthorized(err))
	s.True(summary.Aborted)
	s.Require().Len(summary.Companies, 1, "the second company is never started")
	s.Equal(StatusFailed, summary.Companies[0].Status)
}

func (s *OrchestratorSuite) TestEnrichmentFailureWithoutCacheFails() {
	s.crm.EXPECT().SearchRecords(gomock.Any(), gomock.Any()).Return([]crm.Record{card("1", "Acme", "923609016")}, nil)
	s.enricher.EXPECT().Enrich(gomock.Any(), gomock.Any()).Return(nil, providers.ErrAllSourcesFailed)

	summary, err := s.orch.Run(s.ctx, Options{})
	s.Require().NoError(err)
	s.Equal(StatusFailed, summary.Companies[0].Status)
	s.Contains(summary.Companies[0].Reason, "enrichment failed")
	s.Equal(1, summary.Count(StatusFailed))
}

func (s *OrchestratorSuite) TestStaleEntryServedDegraded() {
	s.Require().NoError(s.store.Save(s.ctx, cache.Entry{
		OrgNumber: "923609016",
		Bundle:    s.startup("923609016", "ACME BYGG AS"),
		FetchedAt: s.now.AddDate(0, 0, -8),
	}))
	last := map[crm.FieldID]string{orgField: "923609016", nameField: "ACME BYGG AS", recField: string(rules.CategoryStartup), logField: "[pipeline:923609016]"}

	s.crm.EXPECT().SearchRecords(gomock.Any(), gomock.Any()).Return([]crm.Record{card("1", "Acme", "923609016")}, nil)
	s.enricher.EXPECT().Enrich(gomock.Any(), gomock.Any()).Return(nil, errors.New("registry timeout"))
	s.crm.EXPECT().ReadCustomFields(gomock.Any(), "1").Return(last, nil)

	summary, err := s.orch.Run(s.ctx, Options{})
	s.Require().NoError(err)
	res := summary.Companies[0]
	s.Equal(StatusSuccess, res.Status, "nothing changed, so nothing was written")
	s.True(res.Degraded)
	s.True(res.FromCache)
	s.Empty(res.Sync.Written)
	s.True(s.recorder.Events()[0].Degraded)
}

func (s *OrchestratorSuite) TestOnlyRestrictsCandidates() {
	s.crm.EXPECT().SearchRecords(gomock.Any(), gomock.Any()).Return([]crm.Record{
		card("1", "Acme", "923609016"),
		card("2", "Beta", "974760673"),
		card("3", "Gamma", ""),
	}, nil)
	s.enricher.EXPECT().Enrich(gomock.Any(), domain.MustOrgNumber("974760673")).Return(nil, providers.ErrAllSourcesFailed)

	summary, err := s.orch.Run(s.ctx, Options{Only: "974 760 673"})
	s.Require().NoError(err)
	s.Equal(1, summary.Candidates)
	s.Equal("2", summary.Companies[0].RecordID)
}

func (s *OrchestratorSuite) TestListingFailure() {
	s.crm.EXPECT().SearchRecords(gomock.Any(), gomock.Any()).Return(nil, crm.ErrUnauthorized)

	summary, err := s.orch.Run(s.ctx, Options{})
	s.Require().Error(err)
	s.True(crm.IsUnauthorized(err))
	s.True(summary.Aborted)
	s.Empty(summary.Companies)
}

// =============================================================================
// Preview
// =============================================================================

func (s *OrchestratorSuite) TestPreviewNeedsNoCRM() {
	orch := s.newOrchestrator(nil)
	s.enricher.EXPECT().Enrich(gomock.Any(), domain.MustOrgNumber("923609016")).Return(s.startup("923609016", "ACME BYGG AS"), nil)
	s.enricher.EXPECT().Note(gomock.Any(), gomock.Any(), gomock.Any()).Return("Anbefalt tjeneste: Startup-pakke basert på automatisk analyse.")

	p, err := orch.Preview(s.ctx, "923609016", false)
	s.Require().NoError(err)
	s.Equal("923609016", p.OrgNumber)
	s.False(p.FromCache)
	s.Require().NotEmpty(p.Recommendations)
	s.Equal(rules.CategoryStartup, p.Recommendations[0].Category)
	s.NotEmpty(p.Note)

	_, err = orch.Run(s.ctx, Options{})
	s.ErrorIs(err, ErrNoCRM)
}

func (s *OrchestratorSuite) TestPreviewRejectsInvalidNumber() {
	_, err := s.orch.Preview(s.ctx, "923609017", false)
	s.ErrorIs(err, domain.ErrInvalidOrgNumber)
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Deps{}); err == nil {
		t.Fatal("expected error without a cache manager")
	}
}

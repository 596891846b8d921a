package httptransport

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"salgsmotor/internal/enrichment/models"
	"salgsmotor/internal/enrichment/providers"
	"salgsmotor/internal/orchestrator"
	"salgsmotor/internal/rules"
	"salgsmotor/internal/transport/http/mocks"
	"salgsmotor/pkg/domain"
	"salgsmotor/pkg/platform/middleware/requestid"
)

type HandlerSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	previewer *mocks.MockPreviewer
	router    http.Handler
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.previewer = mocks.NewMockPreviewer(s.ctrl)
	reg := prometheus.NewRegistry()
	promauto.With(reg).NewCounter(prometheus.CounterOpts{Name: "salgsmotor_test_total", Help: "test"}).Inc()
	s.router = NewRouter(NewHandler(s.previewer, nil), reg)
}

func (s *HandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *HandlerSuite) get(path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

// =============================================================================
// Health and metrics
// =============================================================================

func (s *HandlerSuite) TestHealthz() {
	w := s.get("/healthz")
	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"status":"ok"}`, w.Body.String())
	s.NotEmpty(w.Header().Get(requestid.Header))
}

func (s *HandlerSuite) TestMetrics() {
	w := s.get("/metrics")
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "salgsmotor_test_total 1")
}

// =============================================================================
// Preview
// =============================================================================

func (s *HandlerSuite) TestPreview() {
	s.T().Run("returns bundle and recommendations - 200", func(t *testing.T) {
		s.previewer.EXPECT().Preview(gomock.Any(), "923609016", true).Return(&orchestrator.Preview{
			OrgNumber: "923609016",
			Bundle:    &models.Bundle{OrgNumber: "923609016", Registry: &models.RegistryData{Name: "ACME BYGG AS"}},
			Recommendations: []rules.Recommendation{
				{RuleID: "no_website", Category: rules.CategoryWebdesign, Priority: 2, Rationale: "Ingen nettside."},
			},
		}, nil)

		w := s.get("/companies/923609016?force=true")
		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			OrgNumber       string                 `json:"orgnr"`
			Recommendations []rules.Recommendation `json:"recommendations"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "923609016", body.OrgNumber)
		require.Len(t, body.Recommendations, 1)
		assert.Equal(t, rules.CategoryWebdesign, body.Recommendations[0].Category)
	})

	s.T().Run("invalid organization number - 400", func(t *testing.T) {
		s.previewer.EXPECT().Preview(gomock.Any(), "923609017", false).Return(nil, domain.ErrInvalidOrgNumber)

		w := s.get("/companies/923609017")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "bad_request")
	})

	s.T().Run("bad force flag - 400", func(t *testing.T) {
		w := s.get("/companies/923609016?force=maybe")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	s.T().Run("every source down - 503", func(t *testing.T) {
		s.previewer.EXPECT().Preview(gomock.Any(), "923609016", false).
			Return(nil, fmt.Errorf("enrich 923609016: fetch 923609016: %w", providers.ErrAllSourcesFailed))

		w := s.get("/companies/923609016")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.False(t, strings.Contains(w.Body.String(), "error_description"))
	})
}

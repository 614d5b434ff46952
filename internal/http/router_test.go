package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/householdpro/backend/internal/assignment"
	"github.com/householdpro/backend/internal/config"
	"github.com/householdpro/backend/internal/http/middleware"
	"github.com/householdpro/backend/internal/metrics"
	"github.com/householdpro/backend/internal/models"
	"github.com/householdpro/backend/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type emptyStore struct{}

func (emptyStore) Ping(context.Context) error { return nil }
func (emptyStore) GetBooking(context.Context, string) (models.Booking, error) {
	return models.Booking{}, models.ErrNotFound
}
func (emptyStore) ListBookings(context.Context, models.BookingFilter) ([]models.Booking, error) {
	return nil, nil
}
func (emptyStore) ListAudit(context.Context, string) ([]models.AuditEntry, error) { return nil, nil }
func (emptyStore) ListEmployees(context.Context, models.EmployeeFilter) ([]models.Employee, error) {
	return nil, nil
}
func (emptyStore) UpsertEmployees(context.Context, []models.Employee) (int64, error) { return 0, nil }
func (emptyStore) UpsertBookings(context.Context, []models.Booking) (int64, error) { return 0, nil }
func (emptyStore) GetLatestRun(context.Context) (models.Run, error) {
	return models.Run{}, models.ErrNotFound
}

type noopAssigner struct{}

func (noopAssigner) Assign(_ context.Context, req assignment.Request) assignment.Result {
	return assignment.Result{Code: assignment.CodeBookingNotFound, BookingID: req.BookingID}
}
func (noopAssigner) Unassign(_ context.Context, id, _, _ string) assignment.Result {
	return assignment.Result{Code: assignment.CodeBookingNotFound, BookingID: id}
}
func (noopAssigner) Preview(context.Context, string, *assignment.Configuration) (assignment.Preview, error) {
	return assignment.Preview{}, models.ErrNotFound
}

type noopBatch struct{}

func (noopBatch) ProcessPending(context.Context, service.BatchOptions) (service.RunSummary, error) {
	return service.RunSummary{Status: service.RunSuccess}, nil
}

func testConfig() config.Config {
	return config.Config{
		AdminKey:         "s3cret",
		CORSAllowed:      "*",
		RequestTimeout:   5 * time.Second,
		MaxUploadSizeMB:  1,
		AssignmentPreset: assignment.PresetDefault,
	}
}

func TestRouterAdminRoutesRequireKey(t *testing.T) {
	r := Router(testConfig(), Deps{
		Store:    emptyStore{},
		Assigner: noopAssigner{},
		Batch:    noopBatch{},
		Presets:  assignment.DefaultPresets(),
		Logger:   zerolog.Nop(),
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/bookings/b1/assign", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/bookings/b1/assign", nil)
	req.Header.Set(middleware.AdminKeyHeader, "s3cret")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/assignment/presets", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

func TestRouterMetricsEndpoint(t *testing.T) {
	prom := metrics.NewPrometheus()
	r := Router(testConfig(), Deps{
		Store:          emptyStore{},
		Assigner:       noopAssigner{},
		Batch:          noopBatch{},
		Presets:        assignment.DefaultPresets(),
		Metrics:        prom,
		MetricsHandler: prom.Handler(),
		Logger:         zerolog.Nop(),
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/bookings/b9", nil))
	require.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `householdpro_http_requests_total{method="GET",route="/api/bookings/:id",status="404"} 1`)
}

func TestRouterWithoutMetrics(t *testing.T) {
	r := Router(testConfig(), Deps{Store: emptyStore{}, Presets: assignment.DefaultPresets(), Logger: zerolog.Nop()})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSplitOrigins(t *testing.T) {
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, splitOrigins(" https://a.example, ,https://b.example"))
}

package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/catalogd/internal/domain"
	"github.com/MrSnakeDoc/catalogd/internal/httpserver/deps"
	"github.com/MrSnakeDoc/catalogd/internal/logger"
	"github.com/MrSnakeDoc/catalogd/internal/seed"
	"github.com/MrSnakeDoc/catalogd/internal/store"
	"github.com/MrSnakeDoc/catalogd/internal/store/memory"
	"github.com/MrSnakeDoc/catalogd/internal/tenant"
)

type testServer struct {
	handler http.Handler
	deps    deps.Deps
}

func newTestServer(t *testing.T, mutate ...func(*deps.Deps)) *testServer {
	t.Helper()
	log := logger.NewNop()
	d := deps.Deps{
		Logger:        log,
		StartTime:     time.Now(),
		Version:       "test",
		Registry:      tenant.NewRegistry(tenant.Options{Backend: memory.New(), Seed: seed.Default(), Logger: log}),
		DefaultTenant: "default",
		SyncTrigger:   make(chan struct{}, 1),
		RateBurst:     1000,
		RatePerMin:    1000,
	}
	for _, m := range mutate {
		m(&d)
	}
	return &testServer{handler: NewRouter(log, d), deps: d}
}

func (s *testServer) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func courseIDs(cs []domain.Course) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.ID
	}
	return out
}

func TestListCoursesOnlyActiveByDefault(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/courses", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	active := decodeBody[[]domain.Course](t, rec)
	for _, c := range active {
		assert.True(t, c.Status.IsActive(), c.ID)
	}

	all := decodeBody[[]domain.Course](t, s.do(t, http.MethodGet, "/api/courses?all=true", ""))
	assert.Greater(t, len(all), len(active))
}

func TestCourseLifecycle(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/courses", `{"id":"C2","name":"Power BI","status":"Ativo"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "/api/courses/C2", rec.Header().Get("Location"))
	created := decodeBody[domain.Course](t, rec)
	assert.Equal(t, domain.StatusPending, created.Status)

	// pending courses are hidden until approved
	assert.NotContains(t, courseIDs(decodeBody[[]domain.Course](t, s.do(t, http.MethodGet, "/api/courses", ""))), "C2")

	rec = s.do(t, http.MethodPut, "/api/courses/C2/status", `{"status":"active"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, domain.StatusActive, decodeBody[domain.Course](t, rec).Status)
	assert.Contains(t, courseIDs(decodeBody[[]domain.Course](t, s.do(t, http.MethodGet, "/api/courses", ""))), "C2")

	rec = s.do(t, http.MethodPatch, "/api/courses/C2", `{"name":"Power BI Avançado","id":"HIJACK"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeBody[domain.Course](t, rec)
	assert.Equal(t, "C2", updated.ID)
	assert.Equal(t, "Power BI Avançado", updated.Name)

	rec = s.do(t, http.MethodGet, "/api/courses/C2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, updated, decodeBody[domain.Course](t, rec))

	rec = s.do(t, http.MethodDelete, "/api/courses/C2", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/courses/C2", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, decodeBody[map[string]any](t, rec)["error"], "not found")

	rec = s.do(t, http.MethodDelete, "/api/courses/C2", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateErrors(t *testing.T) {
	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"duplicate", "/api/courses", `{"id":"C1","name":"Again"}`, http.StatusConflict},
		{"missing name", "/api/courses", `{"id":"C9"}`, http.StatusBadRequest},
		{"malformed json", "/api/courses", `{"id":`, http.StatusBadRequest},
		{"unknown status", "/api/courses", `{"id":"C9","name":"x","status":"Arquivado"}`, http.StatusBadRequest},
		{"job without title", "/api/jobs", `{}`, http.StatusBadRequest},
		{"test score out of range", "/api/tests", `{"id":"T9","title":"x","passingScore":101}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			rec := s.do(t, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decodeBody[map[string]any](t, rec)["error"])
		})
	}
}

func TestValidationErrorListsFields(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/courses", `{"modules":[{"title":"no id"}]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeBody[struct {
		Fields []domain.FieldError `json:"fields"`
	}](t, rec)
	var fields []string
	for _, f := range body.Fields {
		fields = append(fields, f.Field)
	}
	assert.ElementsMatch(t, []string{"id", "name", "modules[0].id"}, fields)
}

func TestJobsGenerateIDs(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/jobs", `{"title":"Desenvolvedor Go","closingDate":"2099-01-01"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	job := decodeBody[domain.JobPosting](t, rec)
	assert.NotEmpty(t, job.ID)
	assert.False(t, job.PostedAt.IsZero())

	jobs := decodeBody[[]domain.JobPosting](t, s.do(t, http.MethodGet, "/api/jobs", ""))
	require.NotEmpty(t, jobs)
	assert.Equal(t, job.ID, jobs[0].ID, "newest posting first")
}

func TestInsertionOrder(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/tests", `{"id":"T9","title":"Zzz"}`).Code)

	tests := decodeBody[[]domain.AssessmentTest](t, s.do(t, http.MethodGet, "/api/tests?order=insertion", ""))
	require.NotEmpty(t, tests)
	assert.Equal(t, "T9", tests[0].ID)
}

func TestStatusRoute(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPut, "/api/courses/C1/status", `{"status":"Arquivado"}`).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPut, "/api/courses/NOPE/status", `{"status":"Ativo"}`).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPut, "/api/jobs/J1/status", `{"status":"Ativo"}`).Code)
}

func TestPatchMissing(t *testing.T) {
	s := newTestServer(t)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPatch, "/api/tests/NOPE", `{"title":"x"}`).Code)
}

func TestTenantIsolation(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodDelete, "/api/courses/C1", "", "X-Tenant-ID", "acme")
	require.Equal(t, http.StatusNoContent, rec.Code)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/courses/C1", "", "X-Tenant-ID", "acme").Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/courses/C1", "").Code)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/courses", "", "X-Tenant-ID", "../etc").Code)
}

func TestRateLimitOnMutations(t *testing.T) {
	s := newTestServer(t, func(d *deps.Deps) {
		d.RateBurst = 1
		d.RatePerMin = 1
	})

	assert.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/tests", `{"id":"T8","title":"a"}`).Code)
	assert.Equal(t, http.StatusTooManyRequests, s.do(t, http.MethodPost, "/api/tests", `{"id":"T9","title":"b"}`).Code)

	// reads are not limited
	for range 3 {
		assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/tests", "").Code)
	}
}

func TestAllowedHosts(t *testing.T) {
	s := newTestServer(t, func(d *deps.Deps) {
		d.AllowedHosts = []string{"catalog.example.com"}
	})

	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/api/courses", "").Code)

	req := httptest.NewRequest(http.MethodGet, "/api/courses", nil)
	req.Host = "catalog.example.com"
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "memory", body["backend"])
}

func TestReadyz(t *testing.T) {
	s := newTestServer(t)
	assert.Equal(t, http.StatusServiceUnavailable, s.do(t, http.MethodGet, "/readyz", "").Code)

	s.do(t, http.MethodGet, "/api/courses", "")
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/readyz", "").Code)
}

func TestInfra(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodGet, "/api/courses", "")

	rec := s.do(t, http.MethodGet, "/infra", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody[struct {
		PersistenceMode string `json:"persistence_mode"`
		Backend         struct {
			Name string `json:"name"`
			OK   bool   `json:"ok"`
		} `json:"backend"`
		Tenants map[string]struct {
			Courses     int   `json:"courses"`
			Collections []any `json:"collections"`
		} `json:"tenants"`
	}](t, rec)

	assert.Equal(t, "durable", body.PersistenceMode)
	assert.Equal(t, "memory", body.Backend.Name)
	assert.True(t, body.Backend.OK)
	assert.Len(t, body.Tenants["default"].Collections, 3)
	assert.Equal(t, len(seed.Default().Courses), body.Tenants["default"].Courses)
}

func TestInfraMemoryOnly(t *testing.T) {
	s := newTestServer(t, func(d *deps.Deps) {
		d.Registry = tenant.NewRegistry(tenant.Options{Seed: seed.Default()})
	})
	body := decodeBody[map[string]any](t, s.do(t, http.MethodGet, "/infra", ""))
	assert.Equal(t, "memory-only", body["persistence_mode"])
}

func TestSyncTrigger(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusAccepted, s.do(t, http.MethodPost, "/sync", "").Code)
	// nobody drains the channel, so the second request finds it full
	assert.Equal(t, http.StatusTooManyRequests, s.do(t, http.MethodPost, "/sync", "").Code)

	disabled := newTestServer(t, func(d *deps.Deps) { d.SyncTrigger = nil })
	assert.Equal(t, http.StatusServiceUnavailable, disabled.do(t, http.MethodPost, "/sync", "").Code)
}

// ctxBackend fails every call made with a finished context, like a network
// client would.
type ctxBackend struct {
	*memory.Backend
}

func (b ctxBackend) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.Backend.Get(ctx, key)
}

func (b ctxBackend) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.Backend.Set(ctx, key, value)
}

func TestMutationsPersistAfterClientDisconnect(t *testing.T) {
	b := ctxBackend{Backend: memory.New()}
	key := store.CollectionKey("acme", "courses")
	require.NoError(t, b.Backend.Set(context.Background(), key,
		[]byte(`[{"id":"REAL","name":"Persisted","status":"Ativo"}]`)))

	s := newTestServer(t, func(d *deps.Deps) {
		d.Registry = tenant.NewRegistry(tenant.Options{Backend: b, Seed: seed.Default(), Logger: logger.NewNop()})
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/courses", strings.NewReader(`{"id":"C9","name":"Offline"}`)).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-ID", "acme")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	raw, err := b.Backend.Get(context.Background(), key)
	require.NoError(t, err)
	var stored []domain.Course
	require.NoError(t, json.Unmarshal(raw, &stored))
	assert.Equal(t, []string{"C9", "REAL"}, courseIDs(stored), "hydrated from the durable copy and mirrored despite the canceled request")
}

func TestTenantAllowListAndCap(t *testing.T) {
	s := newTestServer(t, func(d *deps.Deps) {
		d.Registry = tenant.NewRegistry(tenant.Options{
			Backend:    memory.New(),
			Seed:       seed.Default(),
			Allowed:    []string{"default", "acme", "globex"},
			MaxTenants: 2,
		})
	})

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/courses", "").Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/courses", "", "X-Tenant-ID", "acme").Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/courses", "", "X-Tenant-ID", "intruder").Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/jobs", "", "X-Tenant-ID", "globex").Code)
	assert.Equal(t, []string{"acme", "default"}, s.deps.Registry.Tenants())
}

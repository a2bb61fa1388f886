package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"dealer_crm_backend/internal/events"
	"dealer_crm_backend/internal/leads/dispatch"
	"dealer_crm_backend/internal/leads/leadstest"
	"dealer_crm_backend/internal/leads/management"
	"dealer_crm_backend/internal/leads/matching"
	"dealer_crm_backend/internal/leads/repository"
	"dealer_crm_backend/platform/httpkit"
	"dealer_crm_backend/platform/logger"
	"dealer_crm_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type testEnv struct {
	store     *leadstest.Store
	dir       *leadstest.Directory
	messenger *leadstest.Messenger
	engine    *gin.Engine
}

// newTestEnv mounts the handlers behind a stub auth middleware. A nil userID
// leaves the request unauthenticated.
func newTestEnv(userID *uuid.UUID, role string, tenantID *uuid.UUID) *testEnv {
	gin.SetMode(gin.TestMode)

	env := &testEnv{
		store:     leadstest.NewStore(),
		dir:       leadstest.NewDirectory(),
		messenger: &leadstest.Messenger{},
	}
	bus := events.NewInMemoryBus(logger.Discard())
	matcher := matching.New(env.dir, env.dir)
	d := dispatch.New(env.store, env.dir, matcher, env.messenger, &leadstest.RetryRecorder{}, bus, logger.Discard())
	svc := management.New(env.store, matcher, env.dir, env.dir, d, bus, logger.Discard(), "UZ")
	val := validator.New()

	r := gin.New()
	NewPublicHandler(svc, val).RegisterRoutes(r.Group("/api/v1/public/leads"))

	protected := r.Group("/api/v1/leads", func(c *gin.Context) {
		if userID != nil {
			c.Set(httpkit.ContextUserIDKey, *userID)
			c.Set(httpkit.ContextRoleKey, role)
			if tenantID != nil {
				c.Set(httpkit.ContextTenantIDKey, *tenantID)
			}
		}
		c.Next()
	})
	New(svc, d, val).RegisterRoutes(protected)

	env.engine = r
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.engine.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func adminEnv() *testEnv {
	id := uuid.New()
	return newTestEnv(&id, httpkit.RoleSuperAdmin, nil)
}

func TestPublicSubmitStoresLead(t *testing.T) {
	env := adminEnv()
	tenant := env.dir.AddTenant("Dealer", "Bukhara", nil)
	env.dir.AddManager(tenant.ID, "Sardor", 501)

	rec := env.do(t, http.MethodPost, "/api/v1/public/leads", map[string]string{
		"name": "Aziz", "phone": "+998901234567", "city": "Bukhara",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["success"] != true {
		t.Fatalf("expected success, got %v", body)
	}
	if _, leaked := body["id"]; leaked {
		t.Fatal("public response must not expose the lead id")
	}
	if len(env.store.Leads()) != 1 {
		t.Fatalf("expected one stored lead")
	}
	if env.messenger.Count() != 1 {
		t.Fatalf("expected the manager to be notified")
	}
}

func TestPublicSubmitRejectsMissingFields(t *testing.T) {
	env := adminEnv()

	rec := env.do(t, http.MethodPost, "/api/v1/public/leads", map[string]string{"phone": "+998901234567", "city": "Bukhara"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	body := decode(t, rec)
	if body["success"] != false || body["error"] == "" {
		t.Fatalf("unexpected body: %v", body)
	}
	if len(env.store.Leads()) != 0 {
		t.Fatal("expected nothing stored")
	}
}

func TestNotifyRequiresLeadID(t *testing.T) {
	env := adminEnv()

	rec := env.do(t, http.MethodPost, "/api/v1/leads/notify", map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if body := decode(t, rec); body["error"] != "leadId is required" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestNotifyUnknownLeadIsNotFound(t *testing.T) {
	env := adminEnv()

	rec := env.do(t, http.MethodPost, "/api/v1/leads/notify", map[string]string{"leadId": uuid.NewString()})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestNotifyAssignsThenReportsAlreadySent(t *testing.T) {
	env := adminEnv()
	tenant := env.dir.AddTenant("Dealer", "Bukhara", nil)
	env.dir.AddManager(tenant.ID, "Sardor", 501)
	lead := env.store.Put(repository.Lead{Name: "Aziz", Phone: "+998901234567", City: "Bukhara", TenantID: &tenant.ID})

	rec := env.do(t, http.MethodPost, "/api/v1/leads/notify", map[string]string{"leadId": lead.ID.String()})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["success"] != true || body["assignedTo"] != "Sardor" {
		t.Fatalf("unexpected body: %v", body)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/leads/notify", map[string]string{"leadId": lead.ID.String()})
	if body := decode(t, rec); body["message"] != msgAlreadySent {
		t.Fatalf("unexpected body: %v", body)
	}
	if env.messenger.Count() != 1 {
		t.Fatalf("expected a single delivery, got %d", env.messenger.Count())
	}
}

func TestNotifyWithoutManagerReportsNoManager(t *testing.T) {
	env := adminEnv()
	tenant := env.dir.AddTenant("Dealer", "Bukhara", nil)
	lead := env.store.Put(repository.Lead{Name: "Aziz", Phone: "+998901234567", City: "Bukhara", TenantID: &tenant.ID})

	rec := env.do(t, http.MethodPost, "/api/v1/leads/notify", map[string]string{"leadId": lead.ID.String()})
	if body := decode(t, rec); body["message"] != msgNoManager {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestProtectedRoutesRequireIdentity(t *testing.T) {
	env := newTestEnv(nil, "", nil)

	rec := env.do(t, http.MethodGet, "/api/v1/leads", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestGetByIDRejectsMalformedID(t *testing.T) {
	env := adminEnv()

	rec := env.do(t, http.MethodGet, "/api/v1/leads/not-a-uuid", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestDealerSeesOnlyOwnTenantLeads(t *testing.T) {
	tenantID := uuid.New()
	userID := uuid.New()
	env := newTestEnv(&userID, httpkit.RoleDealer, &tenantID)
	other := uuid.New()
	own := env.store.Put(repository.Lead{Name: "Own", Phone: "+998901234567", City: "Bukhara", TenantID: &tenantID})
	foreign := env.store.Put(repository.Lead{Name: "Foreign", Phone: "+998901234568", City: "Bukhara", TenantID: &other})

	if rec := env.do(t, http.MethodGet, "/api/v1/leads/"+own.ID.String(), nil); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for own lead, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/v1/leads/"+foreign.ID.String(), nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign lead, got %d", rec.Code)
	}

	rec := env.do(t, http.MethodGet, "/api/v1/leads", nil)
	body := decode(t, rec)
	if body["total"] != float64(1) {
		t.Fatalf("expected one visible lead, got %v", body)
	}
}

package stocksync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/warelink/stocksync_backend/middlewares"
	"github.com/warelink/stocksync_backend/models"
)

func testCtx() context.Context { return context.Background() }

func newOperatorRouter(svc *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/auth/login", LoginHandler(svc.DB))
	api := r.Group("/api", middlewares.JwtAuthMiddleware())
	api.GET("/connections", ListConnectionsHandler(svc.DB))
	api.POST("/connections", CreateConnectionHandler(svc.DB))
	api.GET("/connections/:id", GetConnectionHandler(svc.DB))
	api.PUT("/connections/:id", UpdateConnectionHandler(svc.DB))
	api.DELETE("/connections/:id", DeleteConnectionHandler(svc.DB))
	api.GET("/sync-runs", ListSyncRunsHandler(svc.DB))
	api.GET("/sync-runs/:id", GetSyncRunHandler(svc.DB))
	api.GET("/reports/external-stock", ExternalStockReportHandler(svc.DB))
	return r
}

func loginToken(t *testing.T, r *gin.Engine) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"username": "ops", "password": "hunter2hunter2"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.Token == "" {
		t.Fatalf("login response = %s", w.Body.String())
	}
	return resp.Token
}

func TestOperatorAPIRequiresJwt(t *testing.T) {
	svc := newTestService(t)
	if err := svc.DB.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("migrate users: %v", err)
	}
	r := newOperatorRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/connections", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status without token = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/connections", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status with a bad token = %d, want 401", w.Code)
	}
}

func TestConnectionLifecycleOverHTTP(t *testing.T) {
	svc := newTestService(t)
	if err := svc.DB.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("migrate users: %v", err)
	}
	if _, err := models.CreateUser(svc.DB, testCtx(), &models.NewUser{Username: "ops", Password: "hunter2hunter2"}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	r := newOperatorRouter(svc)
	token := loginToken(t, r)

	do := func(method string, path string, body string) *httptest.ResponseRecorder {
		var req *http.Request
		if body != "" {
			req = httptest.NewRequest(method, path, strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
		} else {
			req = httptest.NewRequest(method, path, nil)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := do(http.MethodPost, "/api/connections", `{"site_name": "east", "site_url": "https://east.example.com", "api_key": "k", "api_secret": "s"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", w.Code, w.Body.String())
	}
	var created models.SiteConnection
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created: %v", err)
	}
	if created.SiteURL != "https://east.example.com/" {
		t.Errorf("stored URL = %q, want the normalized form", created.SiteURL)
	}

	w = do(http.MethodPost, "/api/connections", `{"site_name": "bad", "site_url": "not a url", "api_key": "k"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid URL create status = %d, want 400", w.Code)
	}

	w = do(http.MethodPut, "/api/connections/999", `{"site_name": "x", "site_url": "https://x.example.com", "api_key": "k"}`)
	if w.Code != http.StatusNotFound {
		t.Errorf("update missing status = %d, want 404", w.Code)
	}

	w = do(http.MethodGet, "/api/connections", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var listed struct {
		Connections []models.SiteConnection `json:"connections"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed.Connections) != 1 {
		t.Errorf("connections = %d, want 1", len(listed.Connections))
	}

	w = do(http.MethodDelete, "/api/connections/1", "")
	if w.Code != http.StatusOK {
		t.Errorf("delete status = %d", w.Code)
	}
}

func TestSyncRunEndpoints(t *testing.T) {
	svc := newTestService(t)
	if err := svc.DB.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("migrate users: %v", err)
	}
	if _, err := models.CreateUser(svc.DB, testCtx(), &models.NewUser{Username: "ops", Password: "hunter2hunter2"}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	conn, err := models.CreateSiteConnection(svc.DB, testCtx(), &models.NewSiteConnection{
		SiteName: "east", SiteURL: "https://east.example.com", APIKey: "k",
	})
	if err != nil {
		t.Fatalf("create connection: %v", err)
	}
	run, err := models.CreateStartedSyncRun(svc.DB, testCtx(), conn, models.SyncTriggeredManual)
	if err != nil {
		t.Fatalf("create run: %v", err)
	}

	r := newOperatorRouter(svc)
	token := loginToken(t, r)

	req := httptest.NewRequest(http.MethodGet, "/api/sync-runs?site_name=east", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("list runs status = %d", w.Code)
	}
	var listed struct {
		Runs []models.StockSyncRun `json:"runs"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decode runs: %v", err)
	}
	if len(listed.Runs) != 1 || listed.Runs[0].ID != run.ID {
		t.Errorf("runs = %+v", listed.Runs)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/sync-runs/999", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing run status = %d, want 404", w.Code)
	}
}

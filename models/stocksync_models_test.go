package models_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/warelink/stocksync_backend/models"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(
		&models.SiteConnection{},
		&models.StockSyncRun{},
		&models.ExternalStockEntry{},
		&models.Bin{},
		&models.Item{},
		&models.ApiCredential{},
		&models.User{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestSiteURLNormalizedOnSave(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	cases := []struct {
		in   string
		want string
	}{
		{"https://other.example.com", "https://other.example.com/"},
		{"https://other.example.com/", "https://other.example.com/"},
		{"https://other.example.com///", "https://other.example.com/"},
		{"  https://other.example.com ", "https://other.example.com/"},
	}
	for i, tc := range cases {
		conn, err := models.CreateSiteConnection(db, ctx, &models.NewSiteConnection{
			SiteName: "site-" + strings.Repeat("x", i+1),
			SiteURL:  tc.in,
			APIKey:   "key",
		})
		if err != nil {
			t.Fatalf("create connection for %q: %v", tc.in, err)
		}
		if conn.SiteURL != tc.want {
			t.Errorf("URL %q stored as %q, want %q", tc.in, conn.SiteURL, tc.want)
		}
	}
}

func TestSyncRunLifecycleToSuccess(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	conn, err := models.CreateSiteConnection(db, ctx, &models.NewSiteConnection{
		SiteName: "warehouse-east",
		SiteURL:  "https://east.example.com",
		APIKey:   "key",
	})
	if err != nil {
		t.Fatalf("create connection: %v", err)
	}

	run, err := models.CreateStartedSyncRun(db, ctx, conn, models.SyncTriggeredManual)
	if err != nil {
		t.Fatalf("create run: %v", err)
	}
	if run.Status != models.SyncRunStatusStarted {
		t.Fatalf("new run status = %q, want Started", run.Status)
	}

	if err := run.MarkFetching(db, ctx); err != nil {
		t.Fatalf("mark fetching: %v", err)
	}
	if err := run.MarkProcessing(db, ctx); err != nil {
		t.Fatalf("mark processing: %v", err)
	}
	if run.FinishedAt != nil {
		t.Fatalf("run finished before a terminal state")
	}
	if err := run.MarkSuccess(db, ctx, 10, 9); err != nil {
		t.Fatalf("mark success: %v", err)
	}

	stored, err := models.GetStockSyncRun(db, ctx, run.ID)
	if err != nil {
		t.Fatalf("reload run: %v", err)
	}
	if stored.Status != models.SyncRunStatusSuccess {
		t.Errorf("status = %q, want Success", stored.Status)
	}
	if stored.ItemsReceived != 10 || stored.ItemsInserted != 9 {
		t.Errorf("counts = (%d, %d), want (10, 9)", stored.ItemsReceived, stored.ItemsInserted)
	}
	if stored.FinishedAt == nil {
		t.Errorf("terminal run has no finished_at")
	}
}

func TestSyncRunFailureTruncatesSnippet(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	conn, err := models.CreateSiteConnection(db, ctx, &models.NewSiteConnection{
		SiteName: "warehouse-west",
		SiteURL:  "https://west.example.com",
		APIKey:   "key",
	})
	if err != nil {
		t.Fatalf("create connection: %v", err)
	}
	run, err := models.CreateStartedSyncRun(db, ctx, conn, models.SyncTriggeredBatch)
	if err != nil {
		t.Fatalf("create run: %v", err)
	}

	long := strings.Repeat("<html>", 200)
	if err := run.MarkFailed(db, ctx, "decode_error", "could not parse stock response", long); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	stored, err := models.GetStockSyncRun(db, ctx, run.ID)
	if err != nil {
		t.Fatalf("reload run: %v", err)
	}
	if stored.Status != models.SyncRunStatusFailed {
		t.Errorf("status = %q, want Failed", stored.Status)
	}
	if len(stored.ResponseSnippet) != models.ResponseSnippetLimit {
		t.Errorf("snippet length = %d, want %d", len(stored.ResponseSnippet), models.ResponseSnippetLimit)
	}
	if stored.ErrorType != "decode_error" {
		t.Errorf("error type = %q, want decode_error", stored.ErrorType)
	}
}

func TestMarkSyncedNowUpdatesConnectionStatus(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	conn, err := models.CreateSiteConnection(db, ctx, &models.NewSiteConnection{
		SiteName: "warehouse-north",
		SiteURL:  "https://north.example.com",
		APIKey:   "key",
	})
	if err != nil {
		t.Fatalf("create connection: %v", err)
	}

	at := time.Now().UTC()
	if err := conn.MarkSyncedNow(db, ctx, 42, at); err != nil {
		t.Fatalf("mark synced: %v", err)
	}

	stored, err := models.GetSiteConnection(db, ctx, conn.ID)
	if err != nil {
		t.Fatalf("reload connection: %v", err)
	}
	if stored.ConnectionStatus != models.ConnectionStatusConnected {
		t.Errorf("status = %q, want Connected", stored.ConnectionStatus)
	}
	if stored.LastSyncItemCount != 42 {
		t.Errorf("last sync item count = %d, want 42", stored.LastSyncItemCount)
	}
	if stored.LastSyncAt == nil {
		t.Errorf("last_sync_at not recorded")
	}
}

func TestCreateSiteConnectionPersistsDisabledFlag(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	conn, err := models.CreateSiteConnection(db, ctx, &models.NewSiteConnection{
		SiteName: "dormant-site",
		SiteURL:  "https://dormant.example.com",
		APIKey:   "key",
		IsActive: boolPtr(false),
	})
	if err != nil {
		t.Fatalf("create connection: %v", err)
	}

	stored, err := models.GetSiteConnection(db, ctx, conn.ID)
	if err != nil {
		t.Fatalf("reload connection: %v", err)
	}
	if stored.IsActive {
		t.Errorf("connection created disabled but stored active")
	}
}

func TestMarkConnectionStatusPersists(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	conn, err := models.CreateSiteConnection(db, ctx, &models.NewSiteConnection{
		SiteName: "flaky-site",
		SiteURL:  "https://flaky.example.com",
		APIKey:   "key",
	})
	if err != nil {
		t.Fatalf("create connection: %v", err)
	}

	if err := conn.MarkConnectionStatus(db, ctx, models.ConnectionStatusFailed); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	stored, err := models.GetSiteConnection(db, ctx, conn.ID)
	if err != nil {
		t.Fatalf("reload connection: %v", err)
	}
	if stored.ConnectionStatus != models.ConnectionStatusFailed {
		t.Errorf("status = %q, want Failed", stored.ConnectionStatus)
	}
	if stored.SiteURL != "https://flaky.example.com/" {
		t.Errorf("status write touched site_url: %q", stored.SiteURL)
	}

	if err := conn.MarkConnectionStatus(db, ctx, models.ConnectionStatusConnected); err != nil {
		t.Fatalf("mark connected: %v", err)
	}
	stored, err = models.GetSiteConnection(db, ctx, conn.ID)
	if err != nil {
		t.Fatalf("reload connection: %v", err)
	}
	if stored.ConnectionStatus != models.ConnectionStatusConnected {
		t.Errorf("status = %q, want Connected", stored.ConnectionStatus)
	}
}

func TestListActiveSiteConnectionsSkipsDisabled(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	for _, c := range []models.NewSiteConnection{
		{SiteName: "alpha", SiteURL: "https://a.example.com", APIKey: "k", IsActive: boolPtr(true)},
		{SiteName: "beta", SiteURL: "https://b.example.com", APIKey: "k", IsActive: boolPtr(false)},
		{SiteName: "gamma", SiteURL: "https://c.example.com", APIKey: "k"},
	} {
		if _, err := models.CreateSiteConnection(db, ctx, &c); err != nil {
			t.Fatalf("create %s: %v", c.SiteName, err)
		}
	}

	active, err := models.ListActiveSiteConnections(db, ctx)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("active connections = %d, want 2", len(active))
	}
	if active[0].SiteName != "alpha" || active[1].SiteName != "gamma" {
		t.Errorf("active = [%s, %s], want [alpha, gamma]", active[0].SiteName, active[1].SiteName)
	}
}

func TestListStockSyncRunsClampsLimit(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	conn, err := models.CreateSiteConnection(db, ctx, &models.NewSiteConnection{
		SiteName: "busy-site",
		SiteURL:  "https://busy.example.com",
		APIKey:   "key",
	})
	if err != nil {
		t.Fatalf("create connection: %v", err)
	}
	for i := 0; i < 105; i++ {
		if _, err := models.CreateStartedSyncRun(db, ctx, conn, models.SyncTriggeredBatch); err != nil {
			t.Fatalf("create run %d: %v", i, err)
		}
	}

	runs, err := models.ListStockSyncRuns(db, ctx, "", 1000)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 100 {
		t.Errorf("runs with limit 1000 = %d, want clamped to 100", len(runs))
	}

	runs, err = models.ListStockSyncRuns(db, ctx, "", 0)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 20 {
		t.Errorf("runs with no limit = %d, want default 20", len(runs))
	}
}

func TestApiCredentialMatches(t *testing.T) {
	cred := models.ApiCredential{APIKey: "abc", APISecret: "s3cret", Enabled: true}
	if !cred.Matches("s3cret") {
		t.Errorf("valid secret rejected")
	}
	if cred.Matches("wrong") {
		t.Errorf("wrong secret accepted")
	}
	cred.Enabled = false
	if cred.Matches("s3cret") {
		t.Errorf("disabled credential accepted")
	}
}

func TestAuthenticateUser(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, err := models.CreateUser(db, ctx, &models.NewUser{
		Username: "ops",
		Password: "hunter2hunter2",
	}); err != nil {
		t.Fatalf("create user: %v", err)
	}

	if _, err := models.AuthenticateUser(db, ctx, "ops", "hunter2hunter2"); err != nil {
		t.Fatalf("valid login rejected: %v", err)
	}
	if _, err := models.AuthenticateUser(db, ctx, "ops", "nope"); err == nil {
		t.Fatalf("wrong password accepted")
	}
	if _, err := models.AuthenticateUser(db, ctx, "ghost", "hunter2hunter2"); err == nil {
		t.Fatalf("unknown user accepted")
	}
}

func boolPtr(b bool) *bool { return &b }

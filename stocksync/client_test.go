package stocksync

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/warelink/stocksync_backend/models"
)

func testConnection(url string) *models.SiteConnection {
	return &models.SiteConnection{
		ID:        1,
		SiteName:  "partner",
		SiteURL:   models.NormalizeSiteURL(url),
		APIKey:    "key",
		APISecret: "secret",
		IsActive:  true,
	}
}

func TestClientSendsTokenAuthHeader(t *testing.T) {
	var gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		w.Write([]byte(`{"message": []}`))
	}))
	defer srv.Close()

	conn := testConnection(srv.URL)
	if _, serr := newRemoteClient(conn).get(context.Background(), ProviderMethodStock, nil); serr != nil {
		t.Fatalf("get: %v", serr)
	}
	if gotAuth != "token key:secret" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "token key:secret")
	}
	if gotPath != "/api/method/"+ProviderMethodStock {
		t.Errorf("path = %q", gotPath)
	}
}

func TestClientClassifiesHTTPErrors(t *testing.T) {
	cases := []struct {
		name       string
		status     int
		body       string
		wantDetail string
	}{
		{"json message field", http.StatusForbidden, `{"message": "not permitted"}`, "not permitted"},
		{"json exc field", http.StatusInternalServerError, `{"exc": "Traceback: boom"}`, "Traceback: boom"},
		{"raw body prefix", http.StatusBadGateway, "upstream exploded", "upstream exploded"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, serr := newRemoteClient(testConnection(srv.URL)).get(context.Background(), ProviderMethodStock, nil)
			if serr == nil {
				t.Fatalf("expected an error for HTTP %d", tc.status)
			}
			if serr.Type != ErrTypeHTTP {
				t.Errorf("type = %q, want %q", serr.Type, ErrTypeHTTP)
			}
			if !strings.Contains(serr.Message, tc.wantDetail) {
				t.Errorf("message = %q, want it to contain %q", serr.Message, tc.wantDetail)
			}
		})
	}
}

func TestClientHTTPErrorBoundsRawPrefix(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(strings.Repeat("x", 5000)))
	}))
	defer srv.Close()

	_, serr := newRemoteClient(testConnection(srv.URL)).get(context.Background(), ProviderMethodStock, nil)
	if serr == nil {
		t.Fatalf("expected an error")
	}
	if len(serr.Message) > 300 {
		t.Errorf("message length = %d, raw prefix should be bounded", len(serr.Message))
	}
}

func TestClientClassifiesTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(3 * time.Second)
	}))
	defer srv.Close()

	conn := testConnection(srv.URL)
	conn.TimeoutSeconds = 1
	_, serr := newRemoteClient(conn).get(context.Background(), ProviderMethodStock, nil)
	if serr == nil {
		t.Fatalf("expected a timeout")
	}
	if serr.Type != ErrTypeTimeout {
		t.Errorf("type = %q, want %q", serr.Type, ErrTypeTimeout)
	}
}

func TestClientClassifiesConnectionRefused(t *testing.T) {
	conn := testConnection("http://127.0.0.1:1")
	conn.TimeoutSeconds = 2
	_, serr := newRemoteClient(conn).get(context.Background(), ProviderMethodStock, nil)
	if serr == nil {
		t.Fatalf("expected a connection error")
	}
	if serr.Type != ErrTypeConnection {
		t.Errorf("type = %q, want %q", serr.Type, ErrTypeConnection)
	}
}

func TestClientClassifiesTLSFailure(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message": []}`))
	}))
	defer srv.Close()

	conn := testConnection(srv.URL)
	_, serr := newRemoteClient(conn).get(context.Background(), ProviderMethodStock, nil)
	if serr == nil {
		t.Fatalf("expected a TLS error against a self-signed certificate")
	}
	if serr.Type != ErrTypeSSL {
		t.Errorf("type = %q, want %q", serr.Type, ErrTypeSSL)
	}
	if serr.Suggestion == "" {
		t.Errorf("TLS failures should suggest the SSL-verification toggle")
	}

	conn.DisableSSLVerification = true
	if _, serr := newRemoteClient(conn).get(context.Background(), ProviderMethodStock, nil); serr != nil {
		t.Errorf("get with verification disabled: %v", serr)
	}
}

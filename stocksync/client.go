package stocksync

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/warelink/stocksync_backend/models"
	"github.com/warelink/stocksync_backend/utils"
)

// remoteClient talks to one site's provider endpoint. A fresh client is
// built per call so each connection's timeout and TLS settings apply.
type remoteClient struct {
	conn *models.SiteConnection
	http *http.Client
}

func newRemoteClient(conn *models.SiteConnection) *remoteClient {
	transport := http.DefaultTransport
	if conn.DisableSSLVerification {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
	return &remoteClient{
		conn: conn,
		http: &http.Client{Timeout: conn.Timeout(), Transport: transport},
	}
}

func (c *remoteClient) methodURL(method string) string {
	return c.conn.SiteURL + "api/method/" + method
}

// get issues an authenticated GET and returns the raw body on 2xx. Any
// failure comes back as a classified *SyncError.
func (c *remoteClient) get(ctx context.Context, method string, params url.Values) ([]byte, *SyncError) {
	endpoint := c.methodURL(method)
	if len(params) > 0 {
		endpoint = endpoint + "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &SyncError{Type: ErrTypeRequest, Message: err.Error()}
	}
	req.Header.Set("Authorization", "token "+c.conn.APIKey+":"+c.conn.APISecret)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyTransportError(err, c.conn)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &SyncError{
			Type:    ErrTypeHTTP,
			Message: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, httpErrorDetail(body)),
			Snippet: snippet(body, models.ResponseSnippetLimit),
		}
	}
	return body, nil
}

// classifyTransportError maps a client.Do failure onto the error taxonomy.
// Order matters: timeouts first, then TLS, then connection refusals, with
// request_error as the fallback.
func classifyTransportError(err error, conn *models.SiteConnection) *SyncError {
	if isTimeout(err) {
		return &SyncError{
			Type:    ErrTypeTimeout,
			Message: fmt.Sprintf("request to %s timed out after %d seconds", conn.SiteURL, int(conn.Timeout().Seconds())),
		}
	}
	if isTLSError(err) {
		return &SyncError{
			Type:       ErrTypeSSL,
			Message:    "SSL certificate verification failed for " + conn.SiteURL,
			Suggestion: "enable 'Disable SSL Verification' on the site connection if the remote uses a self-signed certificate",
		}
	}
	if isConnectionError(err) {
		return &SyncError{
			Type:    ErrTypeConnection,
			Message: "could not connect to " + conn.SiteURL + ": " + rootCause(err).Error(),
		}
	}
	return &SyncError{Type: ErrTypeRequest, Message: err.Error()}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}

func isTLSError(err error) bool {
	var (
		certErr     *tls.CertificateVerificationError
		unknownAuth x509.UnknownAuthorityError
		hostErr     x509.HostnameError
		invalidErr  x509.CertificateInvalidError
		recordErr   tls.RecordHeaderError
	)
	return errors.As(err, &certErr) ||
		errors.As(err, &unknownAuth) ||
		errors.As(err, &hostErr) ||
		errors.As(err, &invalidErr) ||
		errors.As(err, &recordErr) ||
		strings.Contains(err.Error(), "tls:") ||
		strings.Contains(err.Error(), "x509:")
}

func isConnectionError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") || strings.Contains(msg, "no such host")
}

func rootCause(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return uerr.Err
	}
	return err
}

// httpErrorDetail extracts a human-readable error from a non-2xx body:
// a JSON `message` field first, then `exc`, then a bounded raw prefix.
func httpErrorDetail(body []byte) string {
	var parsed struct {
		Message string `json:"message"`
		Exc     string `json:"exc"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		if parsed.Exc != "" {
			return parsed.Exc
		}
	}
	return snippet(body, 200)
}

func snippet(body []byte, limit int) string {
	return utils.TruncateString(strings.TrimSpace(string(body)), limit)
}

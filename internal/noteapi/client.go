// Package noteapi implements notecore.RemoteAPIPort over HTTP using
// imroc/req/v3.
package noteapi

import (
	"crypto/tls"
	"fmt"
	"time"

	"github.com/imroc/req/v3"
	"github.com/openmined/notesync/internal/version"
)

const (
	headerAppVersion = "X-Notesync-Version"

	pathNotes      = "/api/v1/notes"
	pathFolders    = "/api/v1/folders"
	pathSyncPage   = "/api/v1/sync"
)

// Config configures the remote API client.
type Config struct {
	BaseURL     string
	AccessToken string
	Timeout     time.Duration
}

func (c Config) validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("noteapi: base url is required")
	}
	return nil
}

// Client implements notecore.RemoteAPIPort.
type Client struct {
	http *req.Client
}

// New builds a Client bound to cfg.BaseURL, mirroring the teacher's SDK
// client construction: TLS 1.3 floor, bounded retries, JSON codec, and a
// shared error result type populated on every non-2xx response.
func New(cfg Config) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	c := req.C().
		SetBaseURL(cfg.BaseURL).
		SetTLSClientConfig(&tls.Config{MinVersion: tls.VersionTLS13}).
		SetTimeout(timeout).
		SetCommonRetryCount(2).
		SetCommonRetryFixedInterval(500 * time.Millisecond).
		SetUserAgent("notesync/" + version.Version).
		SetCommonHeader(headerAppVersion, version.Version).
		SetCommonErrorResult(&apiError{})

	if cfg.AccessToken != "" {
		c = c.SetCommonBearerAuthToken(cfg.AccessToken)
	}

	return &Client{http: c}, nil
}

// apiError is the envelope the server returns alongside a non-success
// code; it also doubles as *notecore.StatusError's underlying cause once
// wrapped by wrapError.
type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("noteapi: request failed with code %d", e.Code)
}

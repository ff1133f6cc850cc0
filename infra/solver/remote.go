package solver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kilianp07/dessplan/auth"
	coresolver "github.com/kilianp07/dessplan/core/solver"
)

// maxResponseBytes caps the solver response read into memory.
const maxResponseBytes = 64 << 20

// RemoteSolver posts the LP text to an HTTP solve service and decodes its
// JSON reply. The reply may carry columns as a list or a map.
type RemoteSolver struct {
	URL    string
	Client *http.Client
	// Auth, when set, adds an OAuth2 bearer token to every request.
	Auth *auth.ClientCred
}

// RemoteConfig configures the HTTP solver.
type RemoteConfig struct {
	URL     string        `json:"url"`
	Timeout time.Duration `json:"timeout"`
	OAuth   auth.Conf     `json:"oauth"`
}

// NewRemoteSolver builds a RemoteSolver from its configuration.
func NewRemoteSolver(c RemoteConfig) (*RemoteSolver, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("remote solver: url is required")
	}
	s := &RemoteSolver{URL: c.URL, Client: &http.Client{Timeout: c.Timeout}}
	if c.OAuth.Enabled() {
		s.Auth = auth.NewClientCred(c.OAuth)
	}
	return s, nil
}

// Solve implements solver.Solver.
func (s *RemoteSolver) Solve(ctx context.Context, text string) (coresolver.Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, strings.NewReader(text))
	if err != nil {
		return coresolver.Result{}, fmt.Errorf("remote solver: create request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("Accept", "application/json")
	if s.Auth != nil {
		if err := s.Auth.SetAuthHeader(req); err != nil {
			return coresolver.Result{}, fmt.Errorf("remote solver: %w", err)
		}
	}

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return coresolver.Result{}, ctx.Err()
		}
		return coresolver.Result{}, fmt.Errorf("remote solver: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return coresolver.Result{}, fmt.Errorf("remote solver: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return coresolver.Result{}, fmt.Errorf("remote solver: unexpected status code %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	res, err := coresolver.DecodeJSON(body)
	if err != nil {
		return coresolver.Result{}, fmt.Errorf("remote solver: %w", err)
	}
	return res, nil
}

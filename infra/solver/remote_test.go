package solver

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/dessplan/core/factory"
	coresolver "github.com/kilianp07/dessplan/core/solver"
)

func TestRemoteSolverPostsModel(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		b, _ := io.ReadAll(r.Body)
		got = string(b)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"Optimal","objective_value":1.25,"columns":{"grid_to_load_0":500,"soc_0":{"primal":1000}}}`))
	}))
	defer srv.Close()

	s, err := NewRemoteSolver(RemoteConfig{URL: srv.URL, Timeout: time.Second})
	require.NoError(t, err)
	res, err := s.Solve(context.Background(), "Minimize\n obj: x\nEnd\n")
	require.NoError(t, err)
	assert.Equal(t, "Minimize\n obj: x\nEnd\n", got)
	assert.Equal(t, coresolver.StatusOptimal, res.Status)
	assert.Equal(t, 1.25, res.ObjectiveValue)
	assert.Equal(t, 2, res.Columns.Len())
}

func TestRemoteSolverUsesOAuthToken(t *testing.T) {
	tokens := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"abc","token_type":"bearer","expires_in":3600}`))
	}))
	defer tokens.Close()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer abc" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"Status":"Infeasible"}`))
	}))
	defer srv.Close()

	s, err := New(factory.ModuleConfig{Type: "remote", Conf: map[string]any{
		"url":     srv.URL,
		"timeout": "5s",
		"oauth":   map[string]any{"client_id": "id", "client_secret": "secret", "token_url": tokens.URL},
	}})
	require.NoError(t, err)
	res, err := s.Solve(context.Background(), "Minimize\n obj: x\nEnd\n")
	require.NoError(t, err)
	assert.Equal(t, coresolver.Status("Infeasible"), res.Status)
}

func TestRemoteSolverErrors(t *testing.T) {
	_, err := NewRemoteSolver(RemoteConfig{})
	assert.Error(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()
	s, err := NewRemoteSolver(RemoteConfig{URL: srv.URL})
	require.NoError(t, err)
	_, err = s.Solve(context.Background(), "x")
	assert.ErrorContains(t, err, "500")

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"Optimal","columns":"nope"}`))
	}))
	defer bad.Close()
	s, err = NewRemoteSolver(RemoteConfig{URL: bad.URL})
	require.NoError(t, err)
	_, err = s.Solve(context.Background(), "x")
	assert.ErrorIs(t, err, coresolver.ErrUnsupportedShape)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Solve(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}

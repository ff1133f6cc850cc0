package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func tokenServer(t *testing.T, calls *int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"token123","token_type":"bearer","expires_in":3600}`))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestGetTokenAndSetAuthHeader(t *testing.T) {
	var calls int32
	server := tokenServer(t, &calls)

	client := NewClientCred(Conf{ClientID: "id", ClientSecret: "secret", TokenURL: server.URL})

	token, err := client.GetToken(context.Background())
	if err != nil {
		t.Fatalf("GetToken returned error: %v", err)
	}
	if token != "token123" {
		t.Fatalf("unexpected token %s", token)
	}

	req, _ := http.NewRequest(http.MethodPost, "http://example.com", nil)
	if err := client.SetAuthHeader(req); err != nil {
		t.Fatalf("SetAuthHeader returned error: %v", err)
	}
	if auth := req.Header.Get("Authorization"); auth != "Bearer token123" {
		t.Fatalf("unexpected Authorization header %q", auth)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("expected cached token, endpoint called %d times", n)
	}
}

func TestForceRefresh(t *testing.T) {
	var calls int32
	server := tokenServer(t, &calls)
	client := NewClientCred(Conf{ClientID: "id", ClientSecret: "secret", TokenURL: server.URL})

	if _, err := client.GetToken(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := client.ForceRefresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Fatalf("expected 2 token requests, got %d", n)
	}
}

func TestGetTokenError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusUnauthorized)
	}))
	defer server.Close()
	client := NewClientCred(Conf{ClientID: "id", TokenURL: server.URL})
	if _, err := client.GetToken(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestConfEnabled(t *testing.T) {
	if (Conf{}).Enabled() {
		t.Fatal("empty conf should be disabled")
	}
	if !(Conf{ClientID: "id", TokenURL: "http://x"}).Enabled() {
		t.Fatal("conf should be enabled")
	}
}

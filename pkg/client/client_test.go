package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rahlplx/workforce/pkg/models"
)

func TestClientSendsAPIKey(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-Key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "abc")
	if err := c.Health(context.Background()); err != nil {
		t.Fatalf("Health: %v", err)
	}
	if gotKey != "abc" {
		t.Fatalf("key = %q", gotKey)
	}
}

func TestClientSurfacesErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"instruction required"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	_, err := c.Analyze(context.Background(), models.AnalyzeRequest{})
	if err == nil || !strings.Contains(err.Error(), "instruction required") {
		t.Fatalf("err = %v", err)
	}
}

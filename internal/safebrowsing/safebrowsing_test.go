package safebrowsing

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_Check(t *testing.T) {
	ctx := context.Background()

	t.Run("no matches means safe", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		}))
		defer srv.Close()

		client := New("test-key", WithEndpoint(srv.URL))
		safe, err := client.Check(ctx, "https://example.com")
		if err != nil {
			t.Fatalf("Check() failed: %v", err)
		}
		if !safe {
			t.Error("safe = false, want true")
		}
	})

	t.Run("a match means unsafe", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"matches":[{"threatType":"MALWARE","threat":{"url":"https://malware.example"}}]}`))
		}))
		defer srv.Close()

		client := New("test-key", WithEndpoint(srv.URL))
		safe, err := client.Check(ctx, "https://malware.example")
		if err != nil {
			t.Fatalf("Check() failed: %v", err)
		}
		if safe {
			t.Error("safe = true, want false")
		}
	})

	t.Run("sends the expected lookup payload", func(t *testing.T) {
		var gotKey string
		var gotBody lookupRequest

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotKey = r.URL.Query().Get("key")
			raw, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(raw, &gotBody)
			_, _ = w.Write([]byte(`{}`))
		}))
		defer srv.Close()

		client := New("test-key", WithEndpoint(srv.URL))
		if _, err := client.Check(ctx, "https://example.com/page"); err != nil {
			t.Fatalf("Check() failed: %v", err)
		}

		if gotKey != "test-key" {
			t.Errorf("key = %s, want test-key", gotKey)
		}
		if gotBody.Client.ClientID != clientID {
			t.Errorf("clientId = %s, want %s", gotBody.Client.ClientID, clientID)
		}
		if len(gotBody.ThreatInfo.ThreatEntries) != 1 ||
			gotBody.ThreatInfo.ThreatEntries[0].URL != "https://example.com/page" {
			t.Errorf("threatEntries = %+v, want the checked url", gotBody.ThreatInfo.ThreatEntries)
		}
		if len(gotBody.ThreatInfo.ThreatTypes) != 2 {
			t.Errorf("threatTypes = %v, want MALWARE and SOCIAL_ENGINEERING", gotBody.ThreatInfo.ThreatTypes)
		}
	})

	t.Run("non-200 response is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer srv.Close()

		client := New("bad-key", WithEndpoint(srv.URL))
		if _, err := client.Check(ctx, "https://example.com"); err == nil {
			t.Error("Check() should fail on a non-200 response")
		}
	})

	t.Run("unreachable endpoint is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close()

		client := New("test-key", WithEndpoint(srv.URL))
		if _, err := client.Check(ctx, "https://example.com"); err == nil {
			t.Error("Check() should fail when the endpoint is unreachable")
		}
	})
}

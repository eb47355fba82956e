package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"nurture_backend/internal/gateway"
	"nurture_backend/platform/logger"
)

type testConfig struct {
	url string
	key string
}

func (c testConfig) GetBridgeURL() string                { return c.url }
func (c testConfig) GetBridgeAPIKey() string             { return c.key }
func (c testConfig) GetBridgeRequestsPerSecond() float64 { return 100 }

func TestPlaceCallReturnsProviderID(t *testing.T) {
	var gotAuth string
	var gotParams gateway.PlaceCallParams
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/calls" {
			t.Errorf("path = %s, want /v1/calls", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotParams); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(gateway.CallRef{ProviderCallID: "prov-123"})
	}))
	defer srv.Close()

	client := NewClient(testConfig{url: srv.URL, key: "secret"}, logger.New("test"))
	ref, err := client.PlaceCall(context.Background(), gateway.PlaceCallParams{
		LeadID:        "lead-1",
		PhoneNumber:   "(415) 555-0123",
		CallType:      "new_lead",
		AttemptNumber: 1,
	})
	if err != nil {
		t.Fatalf("PlaceCall: %v", err)
	}
	if ref.ProviderCallID != "prov-123" {
		t.Fatalf("provider call id = %s, want prov-123", ref.ProviderCallID)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("auth header = %q", gotAuth)
	}
	if gotParams.PhoneNumber != "+14155550123" {
		t.Fatalf("phone sent as %q, want E.164", gotParams.PhoneNumber)
	}
}

func TestBridgeErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "line busy", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(testConfig{url: srv.URL}, logger.New("test"))
	_, err := client.SendMessage(context.Background(), gateway.SendMessageParams{
		LeadID:      "lead-1",
		PhoneNumber: "+14155550123",
		Body:        "hello",
	})
	if err == nil {
		t.Fatal("expected error from 502 response")
	}
}

func TestUnconfiguredBridgeIsNil(t *testing.T) {
	if client := NewClient(testConfig{}, logger.New("test")); client != nil {
		t.Fatal("expected nil client without bridge URL")
	}
}

// Package bridge is the HTTP client for the telephony/SMS bridge service.
// The bridge owns provider credentials and posts outcomes back through the
// webhook module.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"nurture_backend/internal/gateway"
	"nurture_backend/platform/config"
	"nurture_backend/platform/logger"
	"nurture_backend/platform/phone"
)

// Client talks to the bridge service. A nil client is a safe no-op, so
// deployments without a configured bridge still boot.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
	log     *logger.Logger
}

// NewClient creates a bridge client, or nil when no bridge URL is configured.
func NewClient(cfg config.GatewayConfig, log *logger.Logger) *Client {
	if cfg.GetBridgeURL() == "" {
		return nil
	}

	rps := cfg.GetBridgeRequestsPerSecond()
	if rps <= 0 {
		rps = 5
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.GetBridgeURL(), "/"),
		apiKey:  cfg.GetBridgeAPIKey(),
		http:    &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		log:     log,
	}
}

// PlaceCall asks the bridge to dial the lead. The returned provider call ID
// keys the in-memory session until the completion webhook arrives.
func (c *Client) PlaceCall(ctx context.Context, params gateway.PlaceCallParams) (gateway.CallRef, error) {
	if c == nil {
		return gateway.CallRef{}, fmt.Errorf("bridge not configured")
	}

	params.PhoneNumber = phone.NormalizeE164(params.PhoneNumber)

	var ref gateway.CallRef
	if err := c.post(ctx, "/v1/calls", params, &ref); err != nil {
		return gateway.CallRef{}, fmt.Errorf("placing call: %w", err)
	}
	if ref.ProviderCallID == "" {
		return gateway.CallRef{}, fmt.Errorf("bridge accepted call without a call id")
	}

	c.log.Info("bridge: call placed", "leadId", params.LeadID, "providerCallId", ref.ProviderCallID)
	return ref, nil
}

// SendMessage asks the bridge to deliver an SMS.
func (c *Client) SendMessage(ctx context.Context, params gateway.SendMessageParams) (gateway.MessageRef, error) {
	if c == nil {
		return gateway.MessageRef{}, fmt.Errorf("bridge not configured")
	}

	params.PhoneNumber = phone.NormalizeE164(params.PhoneNumber)

	var ref gateway.MessageRef
	if err := c.post(ctx, "/v1/messages", params, &ref); err != nil {
		return gateway.MessageRef{}, fmt.Errorf("sending message: %w", err)
	}

	c.log.Info("bridge: message accepted", "leadId", params.LeadID, "providerMessageId", ref.ProviderMessageID)
	return ref, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("bridge request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("bridge returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode bridge response: %w", err)
		}
	}
	return nil
}

var _ gateway.Gateway = (*Client)(nil)

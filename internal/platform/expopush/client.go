// Package expopush is a minimal client for the Expo push notification
// HTTP API, implementing batched sends and receipt checks.
package expopush

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sprintdeck/sprintdeck-api/internal/service/notify"
)

// Expo caps both send and receipt requests at 100 entries.
const maxBatchSize = 100

// deviceNotRegistered is the one provider error treated as permanent.
const deviceNotRegistered = "DeviceNotRegistered"

// Client talks to the Expo push API. It implements notify.PushSender.
type Client struct {
	sendURL     string
	receiptsURL string
	httpClient  *http.Client
}

// Ensure Client implements notify.PushSender.
var _ notify.PushSender = (*Client)(nil)

// NewClient creates a Client for the given endpoints.
func NewClient(sendURL, receiptsURL string, timeout time.Duration) *Client {
	if sendURL == "" {
		panic("sendURL cannot be empty")
	}
	if receiptsURL == "" {
		panic("receiptsURL cannot be empty")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		sendURL:     sendURL,
		receiptsURL: receiptsURL,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

// IsExpoPushToken reports whether the token has the Expo token shape.
// Invalid tokens are rejected locally instead of burning a provider call.
func IsExpoPushToken(token string) bool {
	return (strings.HasPrefix(token, "ExponentPushToken[") ||
		strings.HasPrefix(token, "ExpoPushToken[")) &&
		strings.HasSuffix(token, "]")
}

// ticketResponse mirrors the provider's per-message ticket.
type ticketResponse struct {
	Status  string `json:"status"` // "ok" or "error"
	ID      string `json:"id,omitempty"`
	Message string `json:"message,omitempty"`
	Details struct {
		Error string `json:"error,omitempty"`
	} `json:"details,omitempty"`
}

// SendBatch implements notify.PushSender. Messages with malformed tokens
// fail locally; the rest go to the provider in chunks of at most 100.
func (c *Client) SendBatch(ctx context.Context, messages []notify.PushMessage) ([]notify.PushResult, error) {
	results := make([]notify.PushResult, len(messages))

	// Partition out locally-invalid tokens first so chunk indexes line
	// up with provider responses.
	var valid []int
	for i, msg := range messages {
		if !IsExpoPushToken(msg.To) {
			results[i] = notify.PushResult{
				OK:                  false,
				DeviceNotRegistered: true,
				Message:             "token is not a valid Expo push token",
			}
			continue
		}
		valid = append(valid, i)
	}

	for start := 0; start < len(valid); start += maxBatchSize {
		end := start + maxBatchSize
		if end > len(valid) {
			end = len(valid)
		}
		chunk := valid[start:end]

		payload := make([]notify.PushMessage, len(chunk))
		for i, idx := range chunk {
			payload[i] = messages[idx]
		}

		tickets, err := c.postMessages(ctx, payload)
		if err != nil {
			return nil, err
		}
		if len(tickets) != len(chunk) {
			return nil, fmt.Errorf("provider returned %d tickets for %d messages", len(tickets), len(chunk))
		}

		for i, ticket := range tickets {
			results[chunk[i]] = notify.PushResult{
				ID:                  ticket.ID,
				OK:                  ticket.Status == "ok",
				DeviceNotRegistered: ticket.Details.Error == deviceNotRegistered,
				Message:             ticket.Message,
			}
		}
	}

	return results, nil
}

func (c *Client) postMessages(ctx context.Context, messages []notify.PushMessage) ([]ticketResponse, error) {
	body, err := json.Marshal(messages)
	if err != nil {
		return nil, fmt.Errorf("failed to encode push messages: %w", err)
	}

	var parsed struct {
		Data []ticketResponse `json:"data"`
	}
	if err := c.post(ctx, c.sendURL, body, &parsed); err != nil {
		return nil, err
	}
	return parsed.Data, nil
}

// CheckReceipts implements notify.PushSender.
func (c *Client) CheckReceipts(ctx context.Context, ids []string) (map[string]notify.ReceiptResult, error) {
	out := make(map[string]notify.ReceiptResult, len(ids))

	for start := 0; start < len(ids); start += maxBatchSize {
		end := start + maxBatchSize
		if end > len(ids) {
			end = len(ids)
		}

		body, err := json.Marshal(map[string][]string{"ids": ids[start:end]})
		if err != nil {
			return nil, fmt.Errorf("failed to encode receipt request: %w", err)
		}

		var parsed struct {
			Data map[string]ticketResponse `json:"data"`
		}
		if err := c.post(ctx, c.receiptsURL, body, &parsed); err != nil {
			return nil, err
		}

		for id, receipt := range parsed.Data {
			out[id] = notify.ReceiptResult{
				ID:                  id,
				OK:                  receipt.Status == "ok",
				DeviceNotRegistered: receipt.Details.Error == deviceNotRegistered,
				Message:             receipt.Message,
			}
		}
	}

	return out, nil
}

func (c *Client) post(ctx context.Context, url string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("push request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read push response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("push endpoint returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode push response: %w", err)
	}
	return nil
}

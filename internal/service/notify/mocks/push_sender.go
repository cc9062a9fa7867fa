// Package mocks provides mock implementations for testing notification
// components.
package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/sprintdeck/sprintdeck-api/internal/service/notify"
)

// MockPushSender is an in-memory notify.PushSender that records every
// batch and returns configurable per-token outcomes.
type MockPushSender struct {
	mu      sync.Mutex
	batches [][]notify.PushMessage
	tickets int

	// FailTokens maps a push token to the failure it should produce.
	// Tokens not present are accepted.
	FailTokens map[string]notify.PushResult

	// Receipts are returned by CheckReceipts, keyed by ticket ID.
	Receipts map[string]notify.ReceiptResult

	// SendBatchFn overrides SendBatch entirely when set.
	SendBatchFn func(ctx context.Context, messages []notify.PushMessage) ([]notify.PushResult, error)
}

// Ensure MockPushSender implements notify.PushSender.
var _ notify.PushSender = (*MockPushSender)(nil)

// NewMockPushSender creates an empty MockPushSender.
func NewMockPushSender() *MockPushSender {
	return &MockPushSender{
		FailTokens: make(map[string]notify.PushResult),
		Receipts:   make(map[string]notify.ReceiptResult),
	}
}

// SendBatch implements notify.PushSender.
func (s *MockPushSender) SendBatch(ctx context.Context, messages []notify.PushMessage) ([]notify.PushResult, error) {
	if s.SendBatchFn != nil {
		return s.SendBatchFn(ctx, messages)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batch := make([]notify.PushMessage, len(messages))
	copy(batch, messages)
	s.batches = append(s.batches, batch)

	results := make([]notify.PushResult, len(messages))
	for i, msg := range messages {
		if failure, ok := s.FailTokens[msg.To]; ok {
			results[i] = failure
			continue
		}
		s.tickets++
		results[i] = notify.PushResult{ID: fmt.Sprintf("ticket-%d", s.tickets), OK: true}
	}
	return results, nil
}

// CheckReceipts implements notify.PushSender.
func (s *MockPushSender) CheckReceipts(ctx context.Context, ids []string) (map[string]notify.ReceiptResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]notify.ReceiptResult)
	for _, id := range ids {
		if r, ok := s.Receipts[id]; ok {
			out[id] = r
		}
	}
	return out, nil
}

// Batches returns a copy of every batch sent so far.
func (s *MockPushSender) Batches() [][]notify.PushMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([][]notify.PushMessage, len(s.batches))
	copy(out, s.batches)
	return out
}

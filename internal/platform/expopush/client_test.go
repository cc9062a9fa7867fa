package expopush

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sprintdeck/sprintdeck-api/internal/service/notify"
)

func TestIsExpoPushToken(t *testing.T) {
	t.Parallel()

	assert.True(t, IsExpoPushToken("ExponentPushToken[abc123]"))
	assert.True(t, IsExpoPushToken("ExpoPushToken[abc123]"))
	assert.False(t, IsExpoPushToken("abc123"))
	assert.False(t, IsExpoPushToken("ExponentPushToken[abc123"))
	assert.False(t, IsExpoPushToken("fcm:abc123"))
}

func TestSendBatchParsesTickets(t *testing.T) {
	t.Parallel()

	var gotMessages []notify.PushMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotMessages))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[
			{"status":"ok","id":"ticket-1"},
			{"status":"error","message":"device gone","details":{"error":"DeviceNotRegistered"}}
		]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, server.URL, time.Second)
	results, err := client.SendBatch(context.Background(), []notify.PushMessage{
		{To: "ExponentPushToken[aaa]", Title: "Time to review", Body: "3 cards are ready for review"},
		{To: "ExponentPushToken[bbb]", Title: "Time to review", Body: "1 card is ready for review"},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.True(t, results[0].OK)
	assert.Equal(t, "ticket-1", results[0].ID)

	assert.False(t, results[1].OK)
	assert.True(t, results[1].DeviceNotRegistered)
	assert.Equal(t, "device gone", results[1].Message)

	require.Len(t, gotMessages, 2)
	assert.Equal(t, "ExponentPushToken[aaa]", gotMessages[0].To)
}

func TestSendBatchRejectsInvalidTokensLocally(t *testing.T) {
	t.Parallel()

	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		var msgs []notify.PushMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&msgs))
		require.Len(t, msgs, 1, "only the valid token reaches the provider")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"status":"ok","id":"ticket-1"}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, server.URL, time.Second)
	results, err := client.SendBatch(context.Background(), []notify.PushMessage{
		{To: "not-a-token"},
		{To: "ExponentPushToken[aaa]"},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 1, calls)

	assert.False(t, results[0].OK)
	assert.True(t, results[0].DeviceNotRegistered)
	assert.True(t, results[1].OK)
}

func TestSendBatchSurfacesHTTPErrors(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(server.URL, server.URL, time.Second)
	_, err := client.SendBatch(context.Background(), []notify.PushMessage{
		{To: "ExponentPushToken[aaa]"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestCheckReceipts(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string][]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"ticket-1", "ticket-2"}, req["ids"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{
			"ticket-1":{"status":"ok"},
			"ticket-2":{"status":"error","details":{"error":"DeviceNotRegistered"}}
		}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, server.URL, time.Second)
	receipts, err := client.CheckReceipts(context.Background(), []string{"ticket-1", "ticket-2"})
	require.NoError(t, err)
	require.Len(t, receipts, 2)

	assert.True(t, receipts["ticket-1"].OK)
	assert.False(t, receipts["ticket-2"].OK)
	assert.True(t, receipts["ticket-2"].DeviceNotRegistered)
}

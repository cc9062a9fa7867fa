package task_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sprintdeck/sprintdeck-api/internal/domain"
	"github.com/sprintdeck/sprintdeck-api/internal/domain/fsrs"
	"github.com/sprintdeck/sprintdeck-api/internal/mocks"
	"github.com/sprintdeck/sprintdeck-api/internal/service/notify"
	pushmock "github.com/sprintdeck/sprintdeck-api/internal/service/notify/mocks"
	"github.com/sprintdeck/sprintdeck-api/internal/service/selector"
	"github.com/sprintdeck/sprintdeck-api/internal/service/sprint"
	"github.com/sprintdeck/sprintdeck-api/internal/task"
)

func newTestOrchestrator(t *testing.T, sender *pushmock.MockPushSender) *notify.Orchestrator {
	t.Helper()

	users := mocks.NewMockUserStore()
	cards := mocks.NewMockCardStore()
	sprints := mocks.NewMockSprintStore()
	cards.Sprints = sprints

	user := domain.NewUser()
	token := "ExponentPushToken[sweeper]"
	user.PushToken = &token
	users.AddUser(user)

	deck, err := domain.NewDeck(user.ID, nil, 50)
	require.NoError(t, err)
	cards.AddDeck(deck)

	card, err := domain.NewCard(user.ID, deck.ID, 50)
	require.NoError(t, err)
	card.Memory.NextReviewDate = time.Now().UTC().Add(-time.Hour)
	cards.AddCard(card)

	sel := selector.NewService(cards, nil)
	sprintSvc := sprint.NewSprintService(sprints, cards, users, sel, fsrs.NewDefaultService(), nil)

	return notify.NewOrchestrator(
		users, cards, sprints, sprintSvc, notify.NewEvaluator(sprints), sender, nil, nil, 2)
}

func TestSweeperRunNow(t *testing.T) {
	t.Parallel()

	sender := pushmock.NewMockPushSender()
	sweeper := task.NewSweeper(newTestOrchestrator(t, sender), task.DefaultSweeperConfig(), nil)

	result, err := sweeper.RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.PushesSent)
	assert.Len(t, sender.Batches(), 1)
}

func TestSweeperTicksAndStops(t *testing.T) {
	t.Parallel()

	sender := pushmock.NewMockPushSender()
	sweeper := task.NewSweeper(newTestOrchestrator(t, sender), task.SweeperConfig{
		Interval:     20 * time.Millisecond,
		ReceiptDelay: time.Millisecond,
	}, nil)

	sweeper.Start()

	deadline := time.After(2 * time.Second)
	for len(sender.Batches()) == 0 {
		select {
		case <-deadline:
			t.Fatal("sweeper never ran a sweep")
		case <-time.After(5 * time.Millisecond):
		}
	}

	sweeper.Stop()
	sent := len(sender.Batches())

	// No more sweeps after Stop returns.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, sent, len(sender.Batches()))
}

func TestDefaultSweeperConfig(t *testing.T) {
	t.Parallel()

	cfg := task.DefaultSweeperConfig()
	assert.Equal(t, 15*time.Minute, cfg.Interval)
	assert.Equal(t, 5*time.Minute, cfg.ReceiptDelay)
}

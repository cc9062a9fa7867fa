package notify_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sprintdeck/sprintdeck-api/internal/domain"
	"github.com/sprintdeck/sprintdeck-api/internal/domain/fsrs"
	"github.com/sprintdeck/sprintdeck-api/internal/mocks"
	"github.com/sprintdeck/sprintdeck-api/internal/service/notify"
	pushmock "github.com/sprintdeck/sprintdeck-api/internal/service/notify/mocks"
	"github.com/sprintdeck/sprintdeck-api/internal/service/selector"
	"github.com/sprintdeck/sprintdeck-api/internal/service/sprint"
	"github.com/sprintdeck/sprintdeck-api/internal/store"
)

type sweepFixture struct {
	users   *mocks.MockUserStore
	cards   *mocks.MockCardStore
	sprints *mocks.MockSprintStore
	sender  *pushmock.MockPushSender
	orch    *notify.Orchestrator
}

func newSweepFixture(t *testing.T) *sweepFixture {
	t.Helper()

	f := &sweepFixture{
		users:   mocks.NewMockUserStore(),
		cards:   mocks.NewMockCardStore(),
		sprints: mocks.NewMockSprintStore(),
		sender:  pushmock.NewMockPushSender(),
	}
	f.cards.Sprints = f.sprints

	sel := selector.NewService(f.cards, nil)
	sprintSvc := sprint.NewSprintService(f.sprints, f.cards, f.users, sel, fsrs.NewDefaultService(), nil)
	evaluator := notify.NewEvaluator(f.sprints)

	f.orch = notify.NewOrchestrator(
		f.users, f.cards, f.sprints, sprintSvc, evaluator, f.sender, nil, nil, 4)
	return f
}

// addUserWithDueCards seeds a notifiable user with n due cards.
func (f *sweepFixture) addUserWithDueCards(t *testing.T, token string, n int) *domain.User {
	t.Helper()

	user := domain.NewUser()
	user.PushToken = &token
	f.users.AddUser(user)

	deck, err := domain.NewDeck(user.ID, nil, 50)
	require.NoError(t, err)
	f.cards.AddDeck(deck)

	for i := 0; i < n; i++ {
		card, err := domain.NewCard(user.ID, deck.ID, 50)
		require.NoError(t, err)
		card.Memory.NextReviewDate = time.Now().UTC().Add(-time.Duration(i+1) * time.Hour)
		f.cards.AddCard(card)
	}
	return user
}

func TestRunSweepSendsBatchAndCreatesSprints(t *testing.T) {
	t.Parallel()

	f := newSweepFixture(t)
	userA := f.addUserWithDueCards(t, "ExponentPushToken[aaa]", 3)
	userB := f.addUserWithDueCards(t, "ExponentPushToken[bbb]", 1)

	// A third user is on cooldown and must be counted, not sent to.
	cooled := f.addUserWithDueCards(t, "ExponentPushToken[ccc]", 2)
	justSent := time.Now().UTC().Add(-5 * time.Minute)
	cooled.LastPushSentAt = &justSent
	f.users.AddUser(cooled)

	result, err := f.orch.RunSweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, result.UsersConsidered)
	assert.Equal(t, 2, result.SprintsCreated)
	assert.Equal(t, 2, result.PushesSent)
	assert.Equal(t, 0, result.PushFailures)
	assert.Equal(t, 1, result.Ineligible[notify.ReasonCooldownActive])

	batches := f.sender.Batches()
	require.Len(t, batches, 1, "all messages go out in one provider call")
	require.Len(t, batches[0], 2)

	// Every message deep-links to a pending sprint owned by its user.
	for _, msg := range batches[0] {
		sprintID := msg.Data["sprint_id"]
		require.NotEmpty(t, sprintID)
	}

	for _, u := range []*domain.User{userA, userB} {
		stored, err := f.users.GetByID(context.Background(), u.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, stored.NotificationsCountToday)
		require.NotNil(t, stored.LastPushSentAt)
	}

	require.Len(t, result.Tickets, 2)
	for _, ticket := range result.Tickets {
		created, err := f.sprints.GetByID(context.Background(), ticket.SprintID)
		require.NoError(t, err)
		assert.Equal(t, domain.SprintStatusPending, created.Status)
	}
}

func TestRunSweepPushMessageContents(t *testing.T) {
	t.Parallel()

	f := newSweepFixture(t)
	// More cards due than fit in a sprint: the message must count the
	// sprint's cards, not the whole backlog.
	f.addUserWithDueCards(t, "ExponentPushToken[many]", domain.DefaultSprintSize+3)
	f.addUserWithDueCards(t, "ExponentPushToken[one]", 1)

	result, err := f.orch.RunSweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, result.PushesSent)

	batches := f.sender.Batches()
	require.Len(t, batches, 1)
	byToken := make(map[string]notify.PushMessage, 2)
	for _, msg := range batches[0] {
		byToken[msg.To] = msg
	}

	many, ok := byToken["ExponentPushToken[many]"]
	require.True(t, ok)
	assert.Equal(t, "Cards ready to review", many.Title)
	assert.Equal(t, "5 cards are ready for review", many.Body)
	assert.Equal(t, "5", many.Data["card_count"])
	sprintID := many.Data["sprint_id"]
	require.NotEmpty(t, sprintID)
	assert.Equal(t, "sprintdeck://sprints/"+sprintID, many.Data["url"])

	one, ok := byToken["ExponentPushToken[one]"]
	require.True(t, ok)
	assert.Equal(t, "Card ready to review", one.Title)
	assert.Equal(t, "1 card is ready for review", one.Body)
	assert.Equal(t, "1", one.Data["card_count"])
	require.NotEmpty(t, one.Data["sprint_id"])
	assert.Equal(t, "sprintdeck://sprints/"+one.Data["sprint_id"], one.Data["url"])
}

func TestRunSweepSkipsUsersWithoutDueCards(t *testing.T) {
	t.Parallel()

	f := newSweepFixture(t)
	f.addUserWithDueCards(t, "ExponentPushToken[aaa]", 0)

	result, err := f.orch.RunSweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.UsersConsidered)
	assert.Equal(t, 1, result.NoDueCards)
	assert.Equal(t, 0, result.SprintsCreated)
	assert.Empty(t, f.sender.Batches())
}

func TestRunSweepSkipsUsersWithResumableSprint(t *testing.T) {
	t.Parallel()

	f := newSweepFixture(t)
	user := f.addUserWithDueCards(t, "ExponentPushToken[aaa]", 6)

	now := time.Now().UTC()
	active, err := domain.NewSprint(user.ID, nil, domain.SprintSourceHome, domain.SprintStatusActive, now, sprint.ResumeWindow)
	require.NoError(t, err)
	require.NoError(t, f.sprints.CreateWithCards(context.Background(), active, nil))

	result, err := f.orch.RunSweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Ineligible[notify.ReasonResumableSprintExists])
	assert.Equal(t, 0, result.PushesSent)
}

func TestRunSweepDeviceNotRegisteredClearsToken(t *testing.T) {
	t.Parallel()

	f := newSweepFixture(t)
	user := f.addUserWithDueCards(t, "ExponentPushToken[dead]", 2)

	f.sender.FailTokens["ExponentPushToken[dead]"] = notify.PushResult{
		OK:                  false,
		DeviceNotRegistered: true,
		Message:             "DeviceNotRegistered",
	}

	result, err := f.orch.RunSweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.SprintsCreated)
	assert.Equal(t, 0, result.PushesSent)
	assert.Equal(t, 1, result.PushFailures)
	assert.Equal(t, 1, result.TokensCleared)

	stored, err := f.users.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.PushToken, "dead token is cleared")
	assert.Equal(t, 0, stored.NotificationsCountToday, "failed sends do not consume quota")
	assert.Nil(t, stored.LastPushSentAt)

	// The pending sprint created for the failed push is rolled back.
	batches := f.sender.Batches()
	require.Len(t, batches, 1)
	sprintID, err := uuid.Parse(batches[0][0].Data["sprint_id"])
	require.NoError(t, err)
	_, err = f.sprints.GetByID(context.Background(), sprintID)
	assert.ErrorIs(t, err, store.ErrSprintNotFound)
}

func TestRunSweepRejectsOverlap(t *testing.T) {
	t.Parallel()

	f := newSweepFixture(t)
	f.addUserWithDueCards(t, "ExponentPushToken[aaa]", 1)

	release := make(chan struct{})
	entered := make(chan struct{})
	f.sender.SendBatchFn = func(ctx context.Context, messages []notify.PushMessage) ([]notify.PushResult, error) {
		close(entered)
		<-release
		results := make([]notify.PushResult, len(messages))
		for i := range results {
			results[i] = notify.PushResult{ID: "t", OK: true}
		}
		return results, nil
	}

	done := make(chan error, 1)
	go func() {
		_, err := f.orch.RunSweep(context.Background())
		done <- err
	}()

	<-entered
	_, err := f.orch.RunSweep(context.Background())
	assert.ErrorIs(t, err, notify.ErrSweepInProgress)

	close(release)
	require.NoError(t, <-done)
}

func TestReconcileReceiptsClearsDeadTokens(t *testing.T) {
	t.Parallel()

	f := newSweepFixture(t)
	user := f.addUserWithDueCards(t, "ExponentPushToken[aaa]", 1)

	f.sender.Receipts["ticket-1"] = notify.ReceiptResult{
		ID:                  "ticket-1",
		OK:                  false,
		DeviceNotRegistered: true,
	}
	f.sender.Receipts["ticket-2"] = notify.ReceiptResult{ID: "ticket-2", OK: true}

	cleared, err := f.orch.ReconcileReceipts(context.Background(), []notify.Candidate{
		{UserID: user.ID, TicketID: "ticket-1"},
		{UserID: user.ID, TicketID: "ticket-2"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, cleared)
	stored, err := f.users.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.PushToken)
}

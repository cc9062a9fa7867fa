package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sprintdeck/sprintdeck-api/internal/domain"
	"github.com/sprintdeck/sprintdeck-api/internal/domain/fsrs"
	"github.com/sprintdeck/sprintdeck-api/internal/mocks"
	"github.com/sprintdeck/sprintdeck-api/internal/service/selector"
	"github.com/sprintdeck/sprintdeck-api/internal/service/sprint"
)

type handlerFixture struct {
	router *chi.Mux
	user   *domain.User
	deck   *domain.Deck
	cards  *mocks.MockCardStore
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()

	cards := mocks.NewMockCardStore()
	sprints := mocks.NewMockSprintStore()
	users := mocks.NewMockUserStore()
	cards.Sprints = sprints

	user := domain.NewUser()
	users.AddUser(user)

	deck, err := domain.NewDeck(user.ID, nil, 50)
	require.NoError(t, err)
	cards.AddDeck(deck)

	sel := selector.NewService(cards, nil)
	svc := sprint.NewSprintService(sprints, cards, users, sel, fsrs.NewDefaultService(), nil)
	handler := NewSprintHandler(svc, nil)

	router := chi.NewRouter()
	router.Post("/sprints", handler.StartSprint)
	router.Get("/sprints/{id}", handler.GetSprint)
	router.Post("/sprints/{id}/cards/{cardID}/review", handler.ReviewCard)
	router.Post("/sprints/{id}/complete", handler.CompleteSprint)
	router.Post("/sprints/{id}/abandon", handler.AbandonSprint)

	return &handlerFixture{router: router, user: user, deck: deck, cards: cards}
}

func (f *handlerFixture) addDueCards(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		card, err := domain.NewCard(f.user.ID, f.deck.ID, 50)
		require.NoError(t, err)
		card.Memory.NextReviewDate = time.Now().UTC().Add(-time.Duration(i+1) * time.Hour)
		f.cards.AddCard(card)
	}
}

func (f *handlerFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *handlerFixture) startSprint(t *testing.T) SprintResponse {
	t.Helper()

	rec := f.do(t, http.MethodPost, "/sprints", StartSprintRequest{
		UserID: f.user.ID,
		Source: "home",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp SprintResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestStartSprintEndpoint(t *testing.T) {
	t.Parallel()

	f := newHandlerFixture(t)
	f.addDueCards(t, 3)

	resp := f.startSprint(t)
	assert.Equal(t, "active", resp.Status)
	assert.Len(t, resp.Cards, 3)
	assert.False(t, resp.Resumed)

	// A second start resumes with 200 instead of creating.
	rec := f.do(t, http.MethodPost, "/sprints", StartSprintRequest{UserID: f.user.ID, Source: "home"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resumed SprintResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resumed))
	assert.Equal(t, resp.ID, resumed.ID)
	assert.True(t, resumed.Resumed)
}

func TestStartSprintNoEligibleCards(t *testing.T) {
	t.Parallel()

	f := newHandlerFixture(t)

	rec := f.do(t, http.MethodPost, "/sprints", StartSprintRequest{UserID: f.user.ID, Source: "home"})
	require.Equal(t, http.StatusConflict, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "NO_ELIGIBLE_CARDS", resp["code"])
}

func TestStartSprintRejectsBadSource(t *testing.T) {
	t.Parallel()

	f := newHandlerFixture(t)

	rec := f.do(t, http.MethodPost, "/sprints", map[string]any{
		"user_id": f.user.ID,
		"source":  "carrier-pigeon",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetSprintNotFound(t *testing.T) {
	t.Parallel()

	f := newHandlerFixture(t)

	rec := f.do(t, http.MethodGet,
		fmt.Sprintf("/sprints/%s?user_id=%s", uuid.New(), f.user.ID), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "SPRINT_NOT_FOUND", resp["code"])
}

func TestGetSprintWrongOwner(t *testing.T) {
	t.Parallel()

	f := newHandlerFixture(t)
	f.addDueCards(t, 1)
	created := f.startSprint(t)

	rec := f.do(t, http.MethodGet,
		fmt.Sprintf("/sprints/%s?user_id=%s", created.ID, uuid.New()), nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "SPRINT_NOT_OWNED", resp["code"])
}

func TestReviewAndCompleteFlow(t *testing.T) {
	t.Parallel()

	f := newHandlerFixture(t)
	f.addDueCards(t, 2)
	created := f.startSprint(t)

	// Completing early conflicts.
	rec := f.do(t, http.MethodPost,
		fmt.Sprintf("/sprints/%s/complete", created.ID),
		UserScopedRequest{UserID: f.user.ID})
	require.Equal(t, http.StatusConflict, rec.Code)

	for i, card := range created.Cards {
		rating := "good"
		if i == 0 {
			rating = "again"
		}
		rec = f.do(t, http.MethodPost,
			fmt.Sprintf("/sprints/%s/cards/%s/review", created.ID, card.CardID),
			ReviewCardRequest{UserID: f.user.ID, Rating: rating})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	// Re-reviewing the same card conflicts.
	rec = f.do(t, http.MethodPost,
		fmt.Sprintf("/sprints/%s/cards/%s/review", created.ID, created.Cards[0].CardID),
		ReviewCardRequest{UserID: f.user.ID, Rating: "good"})
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodPost,
		fmt.Sprintf("/sprints/%s/complete", created.ID),
		UserScopedRequest{UserID: f.user.ID})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp CompleteSprintResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "completed", resp.Status)
	assert.Equal(t, 1, resp.Stats.FailCount)
	assert.Equal(t, 1, resp.Stats.PassCount)
}

func TestAbandonSprintEndpoint(t *testing.T) {
	t.Parallel()

	f := newHandlerFixture(t)
	f.addDueCards(t, 2)
	created := f.startSprint(t)

	rec := f.do(t, http.MethodPost,
		fmt.Sprintf("/sprints/%s/abandon", created.ID),
		UserScopedRequest{UserID: f.user.ID})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp AbandonSprintResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "abandoned", resp.Status)
	assert.Equal(t, 2, resp.SnoozedCardCount)
}

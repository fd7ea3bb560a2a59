package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simufolio/internal/domain/convstate"
	"simufolio/internal/domain/market"
	"simufolio/internal/domain/subscription"
	"simufolio/internal/services/portfolio"
	"simufolio/pkg/errors"
	"simufolio/pkg/logger"
)

// fakeGateway serves canned market data.
type fakeGateway struct {
	prices     map[string]decimal.Decimal
	historical map[string]decimal.Decimal
	metadata   map[string]*market.Metadata
	searchHits []market.Coin
	top        []market.Coin

	historicalErr error
	searchErr     error
}

func (g *fakeGateway) CurrentPrice(_ context.Context, assetID string) (decimal.Decimal, error) {
	p, ok := g.prices[assetID]
	if !ok {
		return decimal.Zero, errors.Wrapf(errors.ErrNotFound, "no price for %s", assetID)
	}
	return p, nil
}

func (g *fakeGateway) HistoricalPrice(_ context.Context, assetID string, _ time.Time) (decimal.Decimal, error) {
	if g.historicalErr != nil {
		return decimal.Zero, g.historicalErr
	}
	p, ok := g.historical[assetID]
	if !ok {
		return decimal.Zero, errors.Wrapf(errors.ErrNotFound, "no history for %s", assetID)
	}
	return p, nil
}

func (g *fakeGateway) Metadata(_ context.Context, assetID string) (*market.Metadata, error) {
	md, ok := g.metadata[assetID]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "unknown asset %s", assetID)
	}
	return md, nil
}

func (g *fakeGateway) Search(_ context.Context, _ string) ([]market.Coin, error) {
	if g.searchErr != nil {
		return nil, g.searchErr
	}
	return g.searchHits, nil
}

func (g *fakeGateway) TopCoins(_ context.Context, limit int) ([]market.Coin, error) {
	if len(g.top) > limit {
		return g.top[:limit], nil
	}
	return g.top, nil
}

// memStateStore is an in-memory convstate.Store.
type memStateStore struct {
	states    map[int64]*convstate.State
	upsertErr error
}

func newMemStateStore() *memStateStore {
	return &memStateStore{states: make(map[int64]*convstate.State)}
}

func (s *memStateStore) Get(_ context.Context, ownerID int64) (*convstate.State, error) {
	state, ok := s.states[ownerID]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "no state for %d", ownerID)
	}
	return state, nil
}

func (s *memStateStore) Upsert(_ context.Context, state *convstate.State, _ time.Duration) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.states[state.OwnerID] = state
	return nil
}

func (s *memStateStore) Clear(_ context.Context, ownerID int64) error {
	delete(s.states, ownerID)
	return nil
}

// memSubStore is an in-memory subscription.Store.
type memSubStore struct {
	subs map[uuid.UUID]*subscription.Subscription
}

func newMemSubStore() *memSubStore {
	return &memSubStore{subs: make(map[uuid.UUID]*subscription.Subscription)}
}

func (s *memSubStore) Create(_ context.Context, sub *subscription.Subscription) error {
	s.subs[sub.ID] = sub
	return nil
}

func (s *memSubStore) GetByID(_ context.Context, id uuid.UUID) (*subscription.Subscription, error) {
	sub, ok := s.subs[id]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "subscription %s", id)
	}
	return sub, nil
}

func (s *memSubStore) ListByOwner(_ context.Context, ownerID int64) ([]*subscription.Subscription, error) {
	var out []*subscription.Subscription
	for _, sub := range s.subs {
		if sub.OwnerID == ownerID {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (s *memSubStore) ListAll(_ context.Context) ([]*subscription.Subscription, error) {
	var out []*subscription.Subscription
	for _, sub := range s.subs {
		out = append(out, sub)
	}
	return out, nil
}

func (s *memSubStore) UpdateLastNotified(_ context.Context, id uuid.UUID, at time.Time) error {
	sub, ok := s.subs[id]
	if !ok || !sub.LastNotifiedAt.Before(at) {
		return errors.Wrapf(errors.ErrNotFound, "subscription %s not updated", id)
	}
	sub.LastNotifiedAt = at
	return nil
}

func (s *memSubStore) Delete(_ context.Context, id uuid.UUID) error {
	delete(s.subs, id)
	return nil
}

const testOwner int64 = 7001

func newTestEngine(gateway *fakeGateway) (*Engine, *memStateStore, *memSubStore) {
	states := newMemStateStore()
	subs := newMemSubStore()
	svc := portfolio.NewService(subs, logger.Get())
	engine := NewEngine(gateway, states, svc, time.Hour, logger.Get())
	return engine, states, subs
}

func defaultGateway() *fakeGateway {
	return &fakeGateway{
		prices: map[string]decimal.Decimal{
			"bitcoin": decimal.RequireFromString("64000"),
		},
		historical: map[string]decimal.Decimal{
			"bitcoin": decimal.RequireFromString("60000"),
		},
		metadata: map[string]*market.Metadata{
			"bitcoin": {
				ID:           "bitcoin",
				Name:         "Bitcoin",
				Symbol:       "btc",
				Rank:         1,
				CurrentPrice: decimal.RequireFromString("64000"),
			},
		},
		searchHits: []market.Coin{{ID: "bitcoin", Symbol: "btc", Name: "Bitcoin"}},
		top: []market.Coin{
			{ID: "bitcoin", Symbol: "btc", Name: "Bitcoin"},
			{ID: "ethereum", Symbol: "eth", Name: "Ethereum"},
		},
	}
}

func TestEngine_StartShowsMenuAndClearsState(t *testing.T) {
	engine, states, _ := newTestEngine(defaultGateway())
	ctx := context.Background()

	// Simulate a wizard in flight.
	require.NoError(t, states.Upsert(ctx, convstate.Searching(testOwner), time.Hour))

	reply, err := engine.Advance(ctx, testOwner, StartRequested{})
	require.NoError(t, err)
	require.NotNil(t, reply)
	assert.NotEmpty(t, reply.Keyboard)

	_, err = states.Get(ctx, testOwner)
	assert.True(t, errors.Is(err, errors.ErrNotFound), "state must be cleared by /start")
}

func TestEngine_FullWizardHappyPath(t *testing.T) {
	engine, states, subs := newTestEngine(defaultGateway())
	ctx := context.Background()

	// Enter the wizard and choose search.
	_, err := engine.Advance(ctx, testOwner, StartSimulation{})
	require.NoError(t, err)

	_, err = engine.Advance(ctx, testOwner, StartSearch{})
	require.NoError(t, err)

	state, err := states.Get(ctx, testOwner)
	require.NoError(t, err)
	assert.Equal(t, convstate.ModeSearching, state.Mode)

	// Search query consumes the searching mode and offers coin buttons.
	reply, err := engine.Advance(ctx, testOwner, FreeText{Text: "bitcoin"})
	require.NoError(t, err)
	require.NotEmpty(t, reply.Keyboard)

	state, err = states.Get(ctx, testOwner)
	require.NoError(t, err)
	assert.Equal(t, convstate.ModeIdle, state.Mode)

	// Selecting the coin moves to awaiting amount with a forced reply.
	reply, err = engine.Advance(ctx, testOwner, SelectAsset{AssetID: "bitcoin"})
	require.NoError(t, err)
	assert.True(t, reply.ForceReply)

	state, err = states.Get(ctx, testOwner)
	require.NoError(t, err)
	assert.Equal(t, convstate.ModeAwaitingAmount, state.Mode)
	assert.Equal(t, "bitcoin", state.SelectedAssetID)

	// The amount answer produces the interval keyboard without persisting.
	reply, err = engine.Advance(ctx, testOwner, FreeText{Text: "$1,500"})
	require.NoError(t, err)
	require.NotEmpty(t, reply.Keyboard)
	assert.Empty(t, subs.subs, "nothing persisted before interval confirmation")

	// Confirming the interval creates the subscription and ends the wizard.
	amount := decimal.RequireFromString("1500")
	_, err = engine.Advance(ctx, testOwner, ChooseInterval{
		AssetID:  "bitcoin",
		Amount:   amount,
		Interval: subscription.IntervalDaily,
	})
	require.NoError(t, err)

	require.Len(t, subs.subs, 1)
	for _, sub := range subs.subs {
		assert.Equal(t, testOwner, sub.OwnerID)
		assert.Equal(t, "bitcoin", sub.AssetID)
		assert.True(t, sub.InvestedAmount.Equal(amount))
		assert.True(t, sub.InitialPrice.Equal(decimal.RequireFromString("60000")))
		assert.Equal(t, subscription.IntervalDaily, sub.UpdateInterval)
		assert.Equal(t, sub.StartDate, sub.LastNotifiedAt)
	}

	_, err = states.Get(ctx, testOwner)
	assert.True(t, errors.Is(err, errors.ErrNotFound), "state cleared after creation")
}

func TestEngine_FreeTextWithoutStateIsStale(t *testing.T) {
	engine, _, subs := newTestEngine(defaultGateway())

	reply, err := engine.Advance(context.Background(), testOwner, FreeText{Text: "500"})
	assert.True(t, errors.Is(err, errors.ErrStaleSession))
	require.NotNil(t, reply)
	assert.NotEmpty(t, reply.Text)
	assert.Empty(t, subs.subs)
}

func TestEngine_InvalidAmountKeepsState(t *testing.T) {
	engine, states, _ := newTestEngine(defaultGateway())
	ctx := context.Background()

	require.NoError(t, states.Upsert(ctx, convstate.AwaitingAmount(testOwner, "bitcoin"), time.Hour))

	_, err := engine.Advance(ctx, testOwner, FreeText{Text: "not-a-number"})
	assert.True(t, errors.Is(err, errors.ErrValidation))

	state, err := states.Get(ctx, testOwner)
	require.NoError(t, err)
	assert.Equal(t, convstate.ModeAwaitingAmount, state.Mode, "user can retry the amount")
	assert.Equal(t, "bitcoin", state.SelectedAssetID)
}

func TestEngine_EmptySearchQueryRejected(t *testing.T) {
	engine, states, _ := newTestEngine(defaultGateway())
	ctx := context.Background()

	require.NoError(t, states.Upsert(ctx, convstate.Searching(testOwner), time.Hour))

	_, err := engine.Advance(ctx, testOwner, FreeText{Text: "   "})
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestEngine_SearchNoMatchesConsumesMode(t *testing.T) {
	gateway := defaultGateway()
	gateway.searchHits = nil
	engine, states, _ := newTestEngine(gateway)
	ctx := context.Background()

	require.NoError(t, states.Upsert(ctx, convstate.Searching(testOwner), time.Hour))

	reply, err := engine.Advance(ctx, testOwner, FreeText{Text: "doesnotexist"})
	require.NoError(t, err)
	assert.Empty(t, reply.Keyboard)

	state, err := states.Get(ctx, testOwner)
	require.NoError(t, err)
	assert.Equal(t, convstate.ModeIdle, state.Mode, "search mode consumed even with no hits")
}

func TestEngine_SearchResultsCapped(t *testing.T) {
	gateway := defaultGateway()
	gateway.searchHits = make([]market.Coin, 0, 8)
	for i := 0; i < 8; i++ {
		gateway.searchHits = append(gateway.searchHits, market.Coin{
			ID: uuid.NewString(), Symbol: "c", Name: "Coin",
		})
	}
	engine, states, _ := newTestEngine(gateway)
	ctx := context.Background()

	require.NoError(t, states.Upsert(ctx, convstate.Searching(testOwner), time.Hour))

	reply, err := engine.Advance(ctx, testOwner, FreeText{Text: "coin"})
	require.NoError(t, err)

	// maxSearchResults coin rows plus the back row.
	assert.Len(t, reply.Keyboard, maxSearchResults+1)
}

func TestEngine_HistoricalFailureCreatesNothing(t *testing.T) {
	gateway := defaultGateway()
	gateway.historicalErr = errors.Wrap(errors.ErrUpstreamUnavailable, "history endpoint down")
	engine, _, subs := newTestEngine(gateway)

	reply, err := engine.Advance(context.Background(), testOwner, ChooseInterval{
		AssetID:  "bitcoin",
		Amount:   decimal.RequireFromString("100"),
		Interval: subscription.IntervalHourly,
	})
	require.Error(t, err)
	require.NotNil(t, reply)
	assert.Empty(t, subs.subs, "failed price fetch must not create a record")
}

func TestEngine_ReselectOverwritesPendingAsset(t *testing.T) {
	gateway := defaultGateway()
	gateway.metadata["ethereum"] = &market.Metadata{
		ID: "ethereum", Name: "Ethereum", Symbol: "eth", Rank: 2,
		CurrentPrice: decimal.RequireFromString("3200"),
	}
	engine, states, _ := newTestEngine(gateway)
	ctx := context.Background()

	_, err := engine.Advance(ctx, testOwner, SelectAsset{AssetID: "bitcoin"})
	require.NoError(t, err)

	_, err = engine.Advance(ctx, testOwner, SelectAsset{AssetID: "ethereum"})
	require.NoError(t, err)

	state, err := states.Get(ctx, testOwner)
	require.NoError(t, err)
	assert.Equal(t, "ethereum", state.SelectedAssetID)
}

func TestEngine_SelectUnknownAssetKeepsState(t *testing.T) {
	engine, states, _ := newTestEngine(defaultGateway())
	ctx := context.Background()

	require.NoError(t, states.Upsert(ctx, convstate.Searching(testOwner), time.Hour))

	_, err := engine.Advance(ctx, testOwner, SelectAsset{AssetID: "ghost-coin"})
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	state, err := states.Get(ctx, testOwner)
	require.NoError(t, err)
	assert.Equal(t, convstate.ModeSearching, state.Mode, "unknown asset leaves the wizard untouched")
}

func TestEngine_ViewDetailsEnforcesOwnership(t *testing.T) {
	engine, _, subs := newTestEngine(defaultGateway())
	ctx := context.Background()

	sub, err := subscription.New(999, "bitcoin",
		decimal.RequireFromString("50"), decimal.RequireFromString("60000"),
		subscription.IntervalDaily, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, subs.Create(ctx, sub))

	_, err = engine.Advance(ctx, testOwner, ViewDetails{SubscriptionID: sub.ID})
	assert.True(t, errors.Is(err, errors.ErrNotFound), "foreign subscriptions look nonexistent")
}

func TestEngine_DeleteSubscription(t *testing.T) {
	engine, _, subs := newTestEngine(defaultGateway())
	ctx := context.Background()

	sub, err := subscription.New(testOwner, "bitcoin",
		decimal.RequireFromString("50"), decimal.RequireFromString("60000"),
		subscription.IntervalDaily, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, subs.Create(ctx, sub))

	reply, err := engine.Advance(ctx, testOwner, DeleteSubscription{SubscriptionID: sub.ID})
	require.NoError(t, err)
	assert.NotEmpty(t, reply.Text)
	assert.Empty(t, subs.subs)
}

func TestEngine_StateStoreFailureSurfacesError(t *testing.T) {
	engine, states, _ := newTestEngine(defaultGateway())
	states.upsertErr = errors.Wrap(errors.ErrPersistence, "redis down")

	reply, err := engine.Advance(context.Background(), testOwner, StartSearch{})
	assert.True(t, errors.Is(err, errors.ErrPersistence))
	require.NotNil(t, reply, "the user still gets an explanation")
	assert.NotEmpty(t, reply.Text)
}

func TestEngine_ViewSubscriptionsEmpty(t *testing.T) {
	engine, _, _ := newTestEngine(defaultGateway())

	reply, err := engine.Advance(context.Background(), testOwner, ViewSubscriptions{})
	require.NoError(t, err)
	require.Len(t, reply.Keyboard, 1, "only the start-new button")
}

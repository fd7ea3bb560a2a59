package conversation

import (
	"context"
	"strings"
	"time"

	"simufolio/internal/domain/convstate"
	"simufolio/internal/domain/market"
	"simufolio/internal/metrics"
	"simufolio/internal/services/portfolio"
	"simufolio/pkg/errors"
	"simufolio/pkg/logger"
)

// maxSearchResults caps how many search hits become selection buttons.
const maxSearchResults = 5

// topCoinCount is how many coins the browse list shows.
const topCoinCount = 10

// Engine is the conversation state machine. Every chat event re-enters here
// with no in-process state; the wizard position lives in the convstate store.
type Engine struct {
	gateway   market.Gateway
	states    convstate.Store
	portfolio *portfolio.Service
	stateTTL  time.Duration
	log       *logger.Logger
	now       func() time.Time
}

// NewEngine creates the conversation engine
func NewEngine(
	gateway market.Gateway,
	states convstate.Store,
	portfolioSvc *portfolio.Service,
	stateTTL time.Duration,
	log *logger.Logger,
) *Engine {
	return &Engine{
		gateway:   gateway,
		states:    states,
		portfolio: portfolioSvc,
		stateTTL:  stateTTL,
		log:       log.With("component", "conversation_engine"),
		now:       time.Now,
	}
}

// Advance interprets one event against the owner's stored state and returns
// the reply to render. The returned error is for logging; the Reply is always
// usable when non-nil.
func (e *Engine) Advance(ctx context.Context, ownerID int64, event Event) (*Reply, error) {
	reply, err := e.advance(ctx, ownerID, event)

	outcome := "ok"
	switch {
	case err != nil && (errors.Is(err, errors.ErrValidation) || errors.Is(err, errors.ErrStaleSession)):
		outcome = "rejected"
	case err != nil:
		outcome = "error"
	}
	metrics.EngineEvents.WithLabelValues(event.Name(), outcome).Inc()

	return reply, err
}

func (e *Engine) advance(ctx context.Context, ownerID int64, event Event) (*Reply, error) {
	switch ev := event.(type) {
	case StartRequested:
		return e.handleStart(ctx, ownerID)
	case StartSimulation:
		return e.handleStartSimulation(ctx, ownerID)
	case BrowseTop:
		return e.handleBrowseTop(ctx)
	case StartSearch:
		return e.handleStartSearch(ctx, ownerID)
	case SelectAsset:
		return e.handleSelectAsset(ctx, ownerID, ev)
	case FreeText:
		return e.handleFreeText(ctx, ownerID, ev)
	case ChooseInterval:
		return e.handleChooseInterval(ctx, ownerID, ev)
	case ViewSubscriptions:
		return e.handleViewSubscriptions(ctx, ownerID)
	case ViewDetails:
		return e.handleViewDetails(ctx, ownerID, ev)
	case DeleteSubscription:
		return e.handleDelete(ctx, ownerID, ev)
	case BackToMenu:
		return &Reply{Text: msgBackMain(), Keyboard: mainMenuKeyboard(), Edit: true}, nil
	default:
		return nil, errors.Wrapf(errors.ErrInvalidInput, "unhandled event %q", event.Name())
	}
}

// loadState reads the owner's state, treating absence as Idle.
func (e *Engine) loadState(ctx context.Context, ownerID int64) (*convstate.State, error) {
	state, err := e.states.Get(ctx, ownerID)
	if errors.Is(err, errors.ErrNotFound) {
		return convstate.Idle(ownerID), nil
	}
	if err != nil {
		return nil, err
	}
	return state, nil
}

func (e *Engine) handleStart(ctx context.Context, ownerID int64) (*Reply, error) {
	// /start always cancels whatever wizard was in flight.
	if err := e.states.Clear(ctx, ownerID); err != nil {
		e.log.Warnw("Failed to clear conversation state on /start", "owner_id", ownerID, "error", err)
	}

	return &Reply{Text: msgWelcome(), Keyboard: mainMenuKeyboard()}, nil
}

func (e *Engine) handleStartSimulation(ctx context.Context, ownerID int64) (*Reply, error) {
	// Drop any stale asset selection before re-entering the wizard.
	if err := e.states.Upsert(ctx, convstate.Idle(ownerID), e.stateTTL); err != nil {
		return &Reply{Text: msgPersistenceError(), Edit: true}, err
	}

	return &Reply{Text: msgMethodSelect(), Keyboard: methodKeyboard(), Edit: true}, nil
}

func (e *Engine) handleBrowseTop(ctx context.Context) (*Reply, error) {
	coins, err := e.gateway.TopCoins(ctx, topCoinCount)
	if err != nil {
		return &Reply{Text: msgUpstreamDown(), Edit: true}, err
	}
	if len(coins) == 0 {
		return &Reply{Text: msgUpstreamDown(), Edit: true}, nil
	}

	keyboard := coinKeyboard(coins)
	return &Reply{
		Text:     "🏆 <b>Top 10 by Market Cap</b> 👇 Choose your giant.",
		Keyboard: keyboard,
		Edit:     true,
	}, nil
}

func (e *Engine) handleStartSearch(ctx context.Context, ownerID int64) (*Reply, error) {
	if err := e.states.Upsert(ctx, convstate.Searching(ownerID), e.stateTTL); err != nil {
		return &Reply{Text: msgPersistenceError(), Edit: true}, err
	}

	return &Reply{
		Text:     msgSearchPrompt(),
		Keyboard: [][]Button{row(Button{Label: "🔙 Back", Data: cbStartSim})},
		Edit:     true,
	}, nil
}

func (e *Engine) handleSelectAsset(ctx context.Context, ownerID int64, ev SelectAsset) (*Reply, error) {
	md, err := e.gateway.Metadata(ctx, ev.AssetID)
	if errors.Is(err, errors.ErrNotFound) {
		// Stay in the current state: the user can pick another button.
		return &Reply{Text: msgAssetNotFound()}, err
	}
	if err != nil {
		return &Reply{Text: msgUpstreamDown()}, err
	}

	// A second selection while awaiting an amount simply overwrites the
	// pending asset; nothing has been committed yet.
	if err := e.states.Upsert(ctx, convstate.AwaitingAmount(ownerID, ev.AssetID), e.stateTTL); err != nil {
		return &Reply{Text: msgPersistenceError()}, err
	}

	return &Reply{Text: msgAssetSelected(md), ForceReply: true}, nil
}

func (e *Engine) handleFreeText(ctx context.Context, ownerID int64, ev FreeText) (*Reply, error) {
	state, err := e.loadState(ctx, ownerID)
	if err != nil {
		return &Reply{Text: msgPersistenceError()}, err
	}

	switch state.Mode {
	case convstate.ModeSearching:
		return e.handleSearchQuery(ctx, ownerID, ev.Text)
	case convstate.ModeAwaitingAmount:
		return e.handleAmount(ctx, state, ev.Text)
	default:
		// An amount reply with no asset selected: a stale forced-reply prompt
		// answered out of order. Reject rather than guess.
		return &Reply{Text: msgStaleSession()}, errors.Wrapf(errors.ErrStaleSession, "free text with no wizard state: owner_id=%d", ownerID)
	}
}

func (e *Engine) handleSearchQuery(ctx context.Context, ownerID int64, query string) (*Reply, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return &Reply{Text: msgEmptyQuery()}, errors.Wrap(errors.ErrValidation, "empty search query")
	}

	coins, err := e.gateway.Search(ctx, trimmed)
	if err != nil {
		return &Reply{Text: msgUpstreamDown()}, err
	}

	// Either way the search mode is consumed; selection re-enters the wizard
	// through its own SelectAsset event.
	if err := e.states.Upsert(ctx, convstate.Idle(ownerID), e.stateTTL); err != nil {
		return &Reply{Text: msgPersistenceError()}, err
	}

	if len(coins) == 0 {
		return &Reply{Text: msgNoMatches()}, nil
	}

	total := len(coins)
	if len(coins) > maxSearchResults {
		coins = coins[:maxSearchResults]
	}

	return &Reply{Text: msgSearchResults(total), Keyboard: coinKeyboard(coins)}, nil
}

func (e *Engine) handleAmount(ctx context.Context, state *convstate.State, text string) (*Reply, error) {
	amount, err := ParseAmount(text)
	if err != nil {
		// State stays as-is; the user can just type the amount again.
		return &Reply{Text: msgInvalidAmount()}, err
	}

	assetID := state.SelectedAssetID

	// The interval step is not persisted: asset and amount travel inside the
	// button payloads, which avoids a third stored wizard step.
	keyboard := [][]Button{
		row(
			Button{Label: "Hourly", Data: ConfirmCallback(assetID, amount, "hourly")},
			Button{Label: "Daily", Data: ConfirmCallback(assetID, amount, "daily")},
		),
		row(Button{Label: "Monthly", Data: ConfirmCallback(assetID, amount, "monthly")}),
	}

	return &Reply{Text: msgIntervalPrompt(assetID, amount), Keyboard: keyboard}, nil
}

func (e *Engine) handleChooseInterval(ctx context.Context, ownerID int64, ev ChooseInterval) (*Reply, error) {
	startDate := e.now().UTC()

	initialPrice, err := e.gateway.HistoricalPrice(ctx, ev.AssetID, startDate)
	if err != nil {
		// No record is created and state is untouched; the user can retry the button.
		return &Reply{Text: msgHistoricalFailed(ev.AssetID), Edit: true}, err
	}

	sub, err := e.portfolio.CreateSubscription(ctx, ownerID, ev.AssetID, ev.Amount, initialPrice, ev.Interval, startDate)
	if err != nil {
		if errors.Is(err, errors.ErrValidation) {
			return &Reply{Text: msgInvalidAmount(), Edit: true}, err
		}
		return &Reply{Text: msgPersistenceError(), Edit: true}, err
	}

	// Wizard complete; drop the conversation state so a later free-text
	// message is treated as stale instead of re-running the amount step.
	if err := e.states.Clear(ctx, ownerID); err != nil {
		e.log.Warnw("Failed to clear conversation state after creation", "owner_id", ownerID, "error", err)
	}

	return &Reply{Text: msgCreated(sub), Edit: true}, nil
}

func (e *Engine) handleViewSubscriptions(ctx context.Context, ownerID int64) (*Reply, error) {
	subs, err := e.portfolio.ListSubscriptions(ctx, ownerID)
	if err != nil {
		return &Reply{Text: msgPersistenceError(), Edit: true}, err
	}

	if len(subs) == 0 {
		return &Reply{
			Text:     msgNoSubscriptions(),
			Keyboard: [][]Button{row(Button{Label: "🚀 Start New Simulation", Data: cbStartSim})},
			Edit:     true,
		}, nil
	}

	keyboard := make([][]Button, 0, len(subs)+1)
	for i, sub := range subs {
		keyboard = append(keyboard, row(Button{
			Label: subscriptionButtonLabel(i, sub),
			Data:  DetailsCallback(sub.ID),
		}))
	}
	keyboard = append(keyboard, backRow())

	return &Reply{Text: msgSubscriptionsHeader(), Keyboard: keyboard, Edit: true}, nil
}

func (e *Engine) handleViewDetails(ctx context.Context, ownerID int64, ev ViewDetails) (*Reply, error) {
	sub, err := e.portfolio.GetSubscription(ctx, ownerID, ev.SubscriptionID)
	if errors.Is(err, errors.ErrNotFound) {
		return &Reply{Text: msgDetailsNotFound(), Edit: true}, err
	}
	if err != nil {
		return &Reply{Text: msgPersistenceError(), Edit: true}, err
	}

	currentPrice, err := e.gateway.CurrentPrice(ctx, sub.AssetID)
	if err != nil {
		return &Reply{Text: msgDetailsNoPrice(sub), Edit: true}, err
	}

	perf := portfolio.Evaluate(sub.InvestedAmount, sub.InitialPrice, currentPrice)

	keyboard := [][]Button{
		row(Button{Label: "🔄 Refresh Data", Data: DetailsCallback(sub.ID)}),
		row(Button{Label: "🗑️ Delete Simulation", Data: DeleteCallback(sub.ID)}),
		row(Button{Label: "🔙 View All Subscriptions", Data: cbViewSubs}),
	}

	return &Reply{Text: msgDetails(sub, currentPrice, perf), Keyboard: keyboard, Edit: true}, nil
}

func (e *Engine) handleDelete(ctx context.Context, ownerID int64, ev DeleteSubscription) (*Reply, error) {
	err := e.portfolio.DeleteSubscription(ctx, ownerID, ev.SubscriptionID)
	if errors.Is(err, errors.ErrNotFound) {
		return &Reply{Text: msgDetailsNotFound(), Edit: true}, err
	}
	if err != nil {
		return &Reply{Text: msgPersistenceError(), Edit: true}, err
	}

	return &Reply{
		Text:     msgDeleted(),
		Keyboard: [][]Button{row(Button{Label: "🔙 View All Subscriptions", Data: cbViewSubs})},
		Edit:     true,
	}, nil
}

func coinKeyboard(coins []market.Coin) [][]Button {
	keyboard := make([][]Button, 0, len(coins)+1)
	for _, coin := range coins {
		label := strings.ToUpper(coin.Symbol) + " (" + coin.Name + ")"
		keyboard = append(keyboard, row(Button{Label: label, Data: SelectAssetCallback(coin.ID)}))
	}
	keyboard = append(keyboard, backRow())
	return keyboard
}

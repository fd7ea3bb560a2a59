package conversation

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"simufolio/internal/domain/subscription"
	"simufolio/pkg/errors"
)

// Event is one decoded chat interaction. The Telegram boundary decodes raw
// updates and callback payloads into this closed set exactly once; the engine
// matches on it exhaustively.
type Event interface {
	// Name identifies the event kind for logging and metrics.
	Name() string
}

// StartRequested is the /start command: reset and show the main menu.
type StartRequested struct{}

// StartSimulation begins the wizard: pick a discovery method.
type StartSimulation struct{}

// BrowseTop asks for the top coins by market cap.
type BrowseTop struct{}

// StartSearch switches the next free-text message into a search query.
type StartSearch struct{}

// SelectAsset picks a coin to simulate.
type SelectAsset struct {
	AssetID string
}

// FreeText is any non-command text message; its meaning depends on the
// stored conversation state.
type FreeText struct {
	Text string
}

// ChooseInterval completes the wizard. Asset and amount travel in the
// callback payload rather than persisted state.
type ChooseInterval struct {
	AssetID  string
	Amount   decimal.Decimal
	Interval subscription.Interval
}

// ViewSubscriptions lists the user's simulations.
type ViewSubscriptions struct{}

// ViewDetails shows live performance for one simulation.
type ViewDetails struct {
	SubscriptionID uuid.UUID
}

// DeleteSubscription removes one simulation.
type DeleteSubscription struct {
	SubscriptionID uuid.UUID
}

// BackToMenu returns to the main menu.
type BackToMenu struct{}

func (StartRequested) Name() string     { return "start" }
func (StartSimulation) Name() string    { return "start_sim" }
func (BrowseTop) Name() string          { return "browse_top" }
func (StartSearch) Name() string        { return "start_search" }
func (SelectAsset) Name() string        { return "select_asset" }
func (FreeText) Name() string           { return "free_text" }
func (ChooseInterval) Name() string     { return "choose_interval" }
func (ViewSubscriptions) Name() string  { return "view_subs" }
func (ViewDetails) Name() string        { return "view_details" }
func (DeleteSubscription) Name() string { return "delete_sub" }
func (BackToMenu) Name() string         { return "back_main" }

// Callback payload vocabulary. Telegram caps payloads at 64 bytes, so the
// prefixes stay short.
const (
	cbStartSim    = "start_sim"
	cbViewSubs    = "view_subs"
	cbBrowseTop   = "view_top"
	cbStartSearch = "start_search"
	cbBackMain    = "back_main"

	prefixSelect  = "coin:"
	prefixConfirm = "sub:"
	prefixDetails = "details:"
	prefixDelete  = "del:"
)

// SelectAssetCallback encodes a coin selection button payload.
func SelectAssetCallback(assetID string) string {
	return prefixSelect + assetID
}

// ConfirmCallback encodes an interval choice button payload carrying the
// pending asset and amount.
func ConfirmCallback(assetID string, amount decimal.Decimal, interval subscription.Interval) string {
	return prefixConfirm + assetID + ":" + amount.String() + ":" + string(interval)
}

// DetailsCallback encodes a subscription detail button payload.
func DetailsCallback(id uuid.UUID) string {
	return prefixDetails + id.String()
}

// DeleteCallback encodes a subscription delete button payload.
func DeleteCallback(id uuid.UUID) string {
	return prefixDelete + id.String()
}

// DecodeCallback turns a raw callback payload into a typed event.
// Unknown or malformed payloads yield errors.ErrInvalidInput.
func DecodeCallback(data string) (Event, error) {
	switch data {
	case cbStartSim:
		return StartSimulation{}, nil
	case cbViewSubs:
		return ViewSubscriptions{}, nil
	case cbBrowseTop:
		return BrowseTop{}, nil
	case cbStartSearch:
		return StartSearch{}, nil
	case cbBackMain:
		return BackToMenu{}, nil
	}

	switch {
	case strings.HasPrefix(data, prefixSelect):
		assetID := strings.TrimPrefix(data, prefixSelect)
		if assetID == "" {
			return nil, errors.Wrapf(errors.ErrInvalidInput, "empty asset in callback %q", data)
		}
		return SelectAsset{AssetID: assetID}, nil

	case strings.HasPrefix(data, prefixConfirm):
		parts := strings.Split(strings.TrimPrefix(data, prefixConfirm), ":")
		if len(parts) != 3 || parts[0] == "" {
			return nil, errors.Wrapf(errors.ErrInvalidInput, "malformed confirm callback %q", data)
		}
		amount, err := decimal.NewFromString(parts[1])
		if err != nil || !amount.IsPositive() {
			return nil, errors.Wrapf(errors.ErrInvalidInput, "bad amount in callback %q", data)
		}
		interval, err := subscription.ParseInterval(parts[2])
		if err != nil {
			return nil, errors.Wrapf(errors.ErrInvalidInput, "bad interval in callback %q", data)
		}
		return ChooseInterval{AssetID: parts[0], Amount: amount, Interval: interval}, nil

	case strings.HasPrefix(data, prefixDetails):
		id, err := uuid.Parse(strings.TrimPrefix(data, prefixDetails))
		if err != nil {
			return nil, errors.Wrapf(errors.ErrInvalidInput, "bad subscription id in callback %q", data)
		}
		return ViewDetails{SubscriptionID: id}, nil

	case strings.HasPrefix(data, prefixDelete):
		id, err := uuid.Parse(strings.TrimPrefix(data, prefixDelete))
		if err != nil {
			return nil, errors.Wrapf(errors.ErrInvalidInput, "bad subscription id in callback %q", data)
		}
		return DeleteSubscription{SubscriptionID: id}, nil
	}

	return nil, errors.Wrapf(errors.ErrInvalidInput, "unknown callback %q", data)
}

// ParseAmount parses a user-typed investment amount.
// Rejects non-numeric input and non-positive values.
func ParseAmount(text string) (decimal.Decimal, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "$")
	text = strings.ReplaceAll(text, ",", "")

	amount, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, errors.Wrapf(errors.ErrValidation, "not a number: %q", text)
	}
	if !amount.IsPositive() {
		return decimal.Zero, errors.Wrapf(errors.ErrValidation, "amount must be positive, got %s", amount)
	}

	return amount, nil
}

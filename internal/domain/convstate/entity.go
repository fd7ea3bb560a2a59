package convstate

import (
	"time"
)

// Mode is the wizard step the user is currently on. The zero value is Idle,
// so an absent state decodes to a usable one.
type Mode string

const (
	// ModeIdle means no wizard input is expected from the user.
	ModeIdle Mode = ""

	// ModeSearching means the next free-text message is a coin search query.
	ModeSearching Mode = "searching"

	// ModeAwaitingAmount means an asset is selected and the next free-text
	// message is the investment amount.
	ModeAwaitingAmount Mode = "awaiting_amount"
)

// State is the single per-user conversation record that carries the wizard
// across stateless chat events. Illegal combinations are unrepresentable:
// SelectedAssetID is only set together with ModeAwaitingAmount.
type State struct {
	OwnerID         int64     `json:"owner_id"`
	Mode            Mode      `json:"mode"`
	SelectedAssetID string    `json:"selected_asset_id,omitempty"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Idle returns the default state for a user with no stored record.
func Idle(ownerID int64) *State {
	return &State{OwnerID: ownerID, Mode: ModeIdle, UpdatedAt: time.Now().UTC()}
}

// Searching returns a state expecting a search query next.
func Searching(ownerID int64) *State {
	return &State{OwnerID: ownerID, Mode: ModeSearching, UpdatedAt: time.Now().UTC()}
}

// AwaitingAmount returns a state expecting an investment amount for the asset.
func AwaitingAmount(ownerID int64, assetID string) *State {
	return &State{
		OwnerID:         ownerID,
		Mode:            ModeAwaitingAmount,
		SelectedAssetID: assetID,
		UpdatedAt:       time.Now().UTC(),
	}
}

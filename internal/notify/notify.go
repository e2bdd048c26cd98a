// Package notify fans ingestion progress out to logs, webhooks, the
// platform log API and websocket subscribers.
package notify

import (
	"context"
	"time"
)

const (
	EventIngestion = "ingestion.state"
	EventProgress  = "ingestion.progress"
	EventWallet    = "wallet.changed"
)

// Ingestion states, in the order a run moves through them.
const (
	StatePending         = "pending"
	StateFetchingNetwork = "fetching_network"
	StateNetworkSuccess  = "network_success"
	StateNetworkFailed   = "network_failed"
	StateAggregating     = "aggregating"
	StatePersisting      = "persisting"
	StateDone            = "done"
)

// Event is one progress update. OwnerID scopes websocket delivery to the user
// that started the run and is never serialized.
type Event struct {
	Type     string         `json:"type"`
	OwnerID  string         `json:"-"`
	WalletID string         `json:"wallet_id,omitempty"`
	Network  string         `json:"network,omitempty"`
	State    string         `json:"state,omitempty"`
	Message  string         `json:"message,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
	At       time.Time      `json:"at"`
}

type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Notify(context.Context, Event) error { return nil }

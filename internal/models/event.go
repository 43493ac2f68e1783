package models

import (
	"bytes"
	"encoding/json"
)

// EventType discriminates the event variants. Each variant has its own endpoint.
type EventType string

const (
	EventInstall  EventType = "install"
	EventPurchase EventType = "purchase"
)

// Platform is the device platform an event originated on.
type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
)

// Store is the storefront that processed a purchase.
type Store string

const (
	StoreAppStore   Store = "app_store"
	StoreGooglePlay Store = "google_play"
	StoreOther      Store = "other"
)

// Properties is the open-ended bag of client attributes.
// Values are whatever JSON decodes to: scalars, nested objects or arrays.
type Properties map[string]any

// Event is implemented by every concrete event variant.
type Event interface {
	Type() EventType
	ID() string
	// Fields returns the normalized field map with absent optionals omitted.
	// Numbers are kept as json.Number so integers survive re-encoding exactly.
	Fields() (map[string]any, error)
}

// BaseEvent holds the envelope shared by all variants.
// event_id is the client-generated idempotency key.
type BaseEvent struct {
	EventType  EventType  `json:"event_type" binding:"oneof=install purchase"`
	EventID    string     `json:"event_id"`
	OccurredAt string     `json:"occurred_at"`
	PlayerID   string     `json:"player_id"`
	AppID      string     `json:"app_id"`
	Platform   Platform   `json:"platform" binding:"oneof=ios android"`
	SessionID  *string    `json:"session_id,omitempty"`
	DeviceID   *string    `json:"device_id,omitempty"`
	Country    *string    `json:"country,omitempty"`
	Properties Properties `json:"properties,omitzero"`
}

func (b BaseEvent) Type() EventType { return b.EventType }

func (b BaseEvent) ID() string { return b.EventID }

// InstallEvent records a game installation with optional attribution.
type InstallEvent struct {
	BaseEvent
	Campaign *string `json:"campaign,omitempty"`
	AdGroup  *string `json:"ad_group,omitempty"`
	Creative *string `json:"creative,omitempty"`
}

func (e InstallEvent) Fields() (map[string]any, error) { return fieldMap(e) }

// PurchaseEvent records an in-game purchase.
// AmountMicros is the price scaled by 1e6; Currency is always upper case.
type PurchaseEvent struct {
	BaseEvent
	ProductID     string  `json:"product_id"`
	Quantity      int     `json:"quantity" binding:"min=1"`
	AmountMicros  int64   `json:"amount_micros" binding:"min=0"`
	Currency      string  `json:"currency" binding:"len=3"`
	TransactionID *string `json:"transaction_id,omitempty"`
	Store         *Store  `json:"store,omitempty" binding:"omitempty,oneof=app_store google_play other"`
}

func (e PurchaseEvent) Fields() (map[string]any, error) { return fieldMap(e) }

func fieldMap(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	out := map[string]any{}
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// Accepted is returned by the ingestion endpoints for new and duplicate events alike.
type Accepted struct {
	Status  string `json:"status"`
	EventID string `json:"event_id"`
}

// NewAccepted builds the acknowledgment for eventID.
func NewAccepted(eventID string) Accepted {
	return Accepted{Status: "accepted", EventID: eventID}
}

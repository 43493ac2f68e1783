// Package sdk builds game events and sends them to the ingestion API.
package sdk

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/PratikDhanave/game-event-tracking/internal/models"
)

// The SDK shares its event types with the server so both sides agree on the schema.
type (
	Event         = models.Event
	EventType     = models.EventType
	BaseEvent     = models.BaseEvent
	InstallEvent  = models.InstallEvent
	PurchaseEvent = models.PurchaseEvent
	Platform      = models.Platform
	Store         = models.Store
	Properties    = models.Properties
	Ack           = models.Accepted
)

const (
	EventInstall  = models.EventInstall
	EventPurchase = models.EventPurchase

	PlatformIOS     = models.PlatformIOS
	PlatformAndroid = models.PlatformAndroid

	StoreAppStore   = models.StoreAppStore
	StoreGooglePlay = models.StoreGooglePlay
	StoreOther      = models.StoreOther
)

// BuildInstall completes e: sets event_type and fills event_id and
// occurred_at when the caller left them empty.
func BuildInstall(e InstallEvent) InstallEvent {
	e.BaseEvent = fillBase(e.BaseEvent, models.EventInstall)
	return e
}

// BuildPurchase completes e like BuildInstall, defaults quantity to 1 and
// upper-cases the currency.
func BuildPurchase(e PurchaseEvent) PurchaseEvent {
	e.BaseEvent = fillBase(e.BaseEvent, models.EventPurchase)
	if e.Quantity == 0 {
		e.Quantity = 1
	}
	e.Currency = strings.ToUpper(e.Currency)
	return e
}

func fillBase(b BaseEvent, t EventType) BaseEvent {
	b.EventType = t
	if b.EventID == "" {
		b.EventID = uuid.NewString()
	}
	if b.OccurredAt == "" {
		b.OccurredAt = time.Now().UTC().Format(time.RFC3339Nano)
	}
	return b
}

// String returns a pointer to s for the optional string fields.
func String(s string) *string { return &s }

// StorePtr returns a pointer to s for PurchaseEvent.Store.
func StorePtr(s Store) *Store { return &s }

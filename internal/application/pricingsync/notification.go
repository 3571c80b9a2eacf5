package pricingsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pricesync/backend/internal/domain/integration"
)

// ErrInvalidNotification is returned when a notification lacks a shop or a positive item id
var ErrInvalidNotification = errors.New("pricingsync: invalid notification")

// Notification is a verified item lifecycle notification
type Notification struct {
	Topic      integration.Topic
	Shop       string
	ItemID     int64
	DeliveryID string
	Payload    []byte
	ReceivedAt time.Time
}

// Validate checks the fields every run depends on
func (n Notification) Validate() error {
	if strings.TrimSpace(n.Shop) == "" {
		return fmt.Errorf("%w: shop is required", ErrInvalidNotification)
	}
	if n.ItemID <= 0 {
		return fmt.Errorf("%w: item id must be positive, got %d", ErrInvalidNotification, n.ItemID)
	}
	return nil
}

// ItemRef returns the global reference of the notified item
func (n Notification) ItemRef() string {
	return integration.ItemReference(n.ItemID)
}

// DeadLetter is the archived record of a faulted run
type DeadLetter struct {
	Topic      string          `json:"topic"`
	Shop       string          `json:"shop"`
	ItemID     int64           `json:"item_id"`
	DeliveryID string          `json:"delivery_id,omitempty"`
	Reason     string          `json:"reason"`
	Error      string          `json:"error"`
	Trail      []string        `json:"trail"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	ReceivedAt time.Time       `json:"received_at"`
	FailedAt   time.Time       `json:"failed_at"`
}

// DeadLetterSink archives faulted runs for later inspection.
// Archiving never changes the acknowledgement.
type DeadLetterSink interface {
	Archive(ctx context.Context, letter DeadLetter) error
}

// OutcomeRecorder observes every finished run
type OutcomeRecorder interface {
	RecordOutcome(ctx context.Context, outcome *Outcome)
}

type nopDeadLetterSink struct{}

func (nopDeadLetterSink) Archive(context.Context, DeadLetter) error { return nil }

type nopOutcomeRecorder struct{}

func (nopOutcomeRecorder) RecordOutcome(context.Context, *Outcome) {}

// newDeadLetter builds the archive record of a faulted outcome
func newDeadLetter(n Notification, o *Outcome, failedAt time.Time) DeadLetter {
	letter := DeadLetter{
		Topic:      n.Topic.String(),
		Shop:       n.Shop,
		ItemID:     n.ItemID,
		DeliveryID: n.DeliveryID,
		Reason:     o.Reason.String(),
		Trail:      o.TrailStrings(),
		ReceivedAt: n.ReceivedAt,
		FailedAt:   failedAt,
	}
	if o.Err != nil {
		letter.Error = o.Err.Error()
	}
	if json.Valid(n.Payload) {
		letter.Payload = json.RawMessage(n.Payload)
	}
	return letter
}

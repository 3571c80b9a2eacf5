package integration

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/pricesync/backend/internal/domain/pricing"
)

// ---------------------------------------------------------------------------
// CatalogPlatform Errors
// ---------------------------------------------------------------------------

var (
	// Platform errors
	ErrPlatformNotConfigured    = errors.New("integration: platform not configured")
	ErrPlatformUnavailable      = errors.New("integration: platform temporarily unavailable")
	ErrPlatformRequestFailed    = errors.New("integration: platform request failed")
	ErrPlatformInvalidResponse  = errors.New("integration: invalid platform response")
	ErrPlatformAuthFailed       = errors.New("integration: platform authentication failed")
	ErrPlatformRateLimited      = errors.New("integration: platform rate limited")
	ErrPlatformInvalidSignature = errors.New("integration: invalid platform signature")

	// Item and attribute errors
	ErrInvalidItemID        = errors.New("integration: invalid item ID")
	ErrInvalidItemReference = errors.New("integration: invalid item reference")
	ErrInvalidAttribute     = errors.New("integration: invalid attribute")
	ErrItemNotFound         = errors.New("integration: item not found")
)

// ---------------------------------------------------------------------------
// Topic represents an item lifecycle notification
// ---------------------------------------------------------------------------

// Topic represents an item lifecycle notification sent by the platform
type Topic string

const (
	// TopicItemCreated is delivered after an item is created
	TopicItemCreated Topic = "products/create"
	// TopicItemUpdated is delivered after an item is updated
	TopicItemUpdated Topic = "products/update"
)

// IsValid returns true if the topic is handled by the service
func (t Topic) IsValid() bool {
	switch t {
	case TopicItemCreated, TopicItemUpdated:
		return true
	default:
		return false
	}
}

// String returns the string representation of Topic
func (t Topic) String() string {
	return string(t)
}

// ---------------------------------------------------------------------------
// Item references
// ---------------------------------------------------------------------------

// ItemReferencePrefix prefixes every global item reference
const ItemReferencePrefix = "item/"

// ItemReference derives the global item reference from a platform-scoped item id
func ItemReference(itemID int64) string {
	return ItemReferencePrefix + strconv.FormatInt(itemID, 10)
}

// ParseItemReference extracts the platform-scoped id from an item reference
func ParseItemReference(ref string) (int64, error) {
	raw, ok := strings.CutPrefix(ref, ItemReferencePrefix)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidItemReference, ref)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidItemReference, ref)
	}
	return id, nil
}

// ---------------------------------------------------------------------------
// Attribute write types
// ---------------------------------------------------------------------------

// AttributeInput is one entry of a batched attribute write
type AttributeInput struct {
	OwnerID   string
	Namespace string
	Key       string
	Value     string
	Type      pricing.AttributeType
}

// Validate checks that the input is complete
func (a AttributeInput) Validate() error {
	if a.OwnerID == "" {
		return fmt.Errorf("%w: owner is required", ErrInvalidAttribute)
	}
	if a.Namespace == "" || a.Key == "" {
		return fmt.Errorf("%w: namespace and key are required", ErrInvalidAttribute)
	}
	switch a.Type {
	case pricing.AttributeTypeDecimal, pricing.AttributeTypeText:
	default:
		return fmt.Errorf("%w: unsupported type %q", ErrInvalidAttribute, a.Type)
	}
	return nil
}

// NewAttributeInputs binds rendered attribute values to an owner and namespace
func NewAttributeInputs(ownerID, namespace string, values []pricing.AttributeValue) []AttributeInput {
	inputs := make([]AttributeInput, 0, len(values))
	for _, v := range values {
		inputs = append(inputs, AttributeInput{
			OwnerID:   ownerID,
			Namespace: namespace,
			Key:       v.Key,
			Value:     v.Value,
			Type:      v.Type,
		})
	}
	return inputs
}

// FieldRejection is a remote-side validation failure of a single attribute
type FieldRejection struct {
	Field   string
	Message string
}

// WriteResult is the outcome of a batched attribute write.
// A batch may be partially applied: Written and Rejected can both be non-empty.
type WriteResult struct {
	Written  []string
	Rejected []FieldRejection
}

// HasRejections returns true if any attribute was rejected
func (r *WriteResult) HasRejections() bool {
	return r != nil && len(r.Rejected) > 0
}

// ---------------------------------------------------------------------------
// CatalogPlatform Port Interface
// ---------------------------------------------------------------------------

// CatalogPlatform defines the port interface for the hosting commerce platform.
// Adapters return ErrPlatformUnavailable, ErrPlatformRequestFailed,
// ErrPlatformAuthFailed or ErrPlatformRateLimited (wrapped) when a call cannot
// complete. Field validation failures are not errors; they are reported in
// WriteResult.Rejected.
type CatalogPlatform interface {
	// ReadAttributes returns key to value for every attribute of the item in namespace
	ReadAttributes(ctx context.Context, cred *Credential, itemRef, namespace string) (map[string]string, error)

	// WriteAttributes sets every attribute in the batch, overwriting existing values
	WriteAttributes(ctx context.Context, cred *Credential, attrs []AttributeInput) (*WriteResult, error)
}

// NotificationVerifier checks the authenticity of an inbound notification body
type NotificationVerifier interface {
	// Verify returns ErrPlatformInvalidSignature when signature does not match body
	Verify(body []byte, signature string) error
}

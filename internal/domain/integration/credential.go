package integration

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrCredentialNotFound is returned by a CredentialProvider when the shop has no stored session
	ErrCredentialNotFound = errors.New("integration: credential not found")
	// ErrInvalidCredential is returned when storing a credential without shop or token
	ErrInvalidCredential = errors.New("integration: invalid credential")
)

// Credential is the offline access credential of a shop
type Credential struct {
	ID          uuid.UUID
	Shop        string
	AccessToken string
	Scope       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsUsable returns true if the credential carries a token for a shop
func (c *Credential) IsUsable() bool {
	return c != nil && c.Shop != "" && c.AccessToken != ""
}

// CredentialProvider resolves the stored credential of a shop.
// Absence is reported as ErrCredentialNotFound.
type CredentialProvider interface {
	Credential(ctx context.Context, shop string) (*Credential, error)
}

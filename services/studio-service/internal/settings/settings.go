// Package settings stores studio-wide key/value settings, including the hashed master code.
package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/md-rashed-zaman/inkdesk/libs/auth"
)

const KeyMasterCodeHash = "master_code_hash"

const minMasterCodeLen = 4

var ErrWeakMasterCode = errors.New("master code must have at least 4 characters")

// Store is the key/value backend. ok is false when the key is absent.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

type Credentials struct {
	store Store
}

func NewCredentials(store Store) *Credentials {
	return &Credentials{store: store}
}

func (c *Credentials) MasterCodeHash(ctx context.Context) (string, bool, error) {
	return c.store.Get(ctx, KeyMasterCodeHash)
}

// SetMasterCode hashes plain with bcrypt before storing it.
func (c *Credentials) SetMasterCode(ctx context.Context, plain string) error {
	plain = strings.TrimSpace(plain)
	if len(plain) < minMasterCodeLen {
		return ErrWeakMasterCode
	}
	hash, err := auth.HashPassword(plain)
	if err != nil {
		return fmt.Errorf("hash master code: %w", err)
	}
	if err := c.store.Set(ctx, KeyMasterCodeHash, hash); err != nil {
		return fmt.Errorf("store master code: %w", err)
	}
	return nil
}

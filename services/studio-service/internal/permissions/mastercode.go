package permissions

import (
	"context"

	"github.com/md-rashed-zaman/inkdesk/libs/auth"
)

// CredentialStore exposes the hashed master code. ok is false when none is configured.
type CredentialStore interface {
	MasterCodeHash(ctx context.Context) (hash string, ok bool, err error)
}

// VerifyMasterCode never errors: a missing code, a lookup failure or a mismatch all yield false.
func VerifyMasterCode(ctx context.Context, plain string, store CredentialStore) bool {
	if plain == "" || store == nil {
		return false
	}
	hash, ok, err := store.MasterCodeHash(ctx)
	if err != nil || !ok || hash == "" {
		return false
	}
	return auth.VerifyPassword(hash, plain) == nil
}

package appctx

import (
	"context"

	"github.com/google/uuid"

	"github.com/qrave1/ArenaChat/internal/domain/models"
)

type ctxKey string

const identityKey ctxKey = "identity"

// Identity is the authenticated caller. Role always comes from the verified
// session token, never from wire payloads.
type Identity struct {
	UserID   uuid.UUID
	Username string
	Role     models.Role
}

// WithIdentity добавляет identity в контекст
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFrom извлекает identity из контекста
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

package accounts

import "context"

type ctxKey struct{}

// NewContext returns a copy of ctx carrying the store.
func NewContext(ctx context.Context, s *Store) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the store installed with NewContext. It panics when no
// store is present: consuming account operations outside an installed store
// is a wiring bug, not a runtime data condition.
func FromContext(ctx context.Context) *Store {
	s, ok := ctx.Value(ctxKey{}).(*Store)
	if !ok {
		panic("accounts: no Store in context; wrap the context with accounts.NewContext")
	}
	return s
}

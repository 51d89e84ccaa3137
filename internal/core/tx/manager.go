// Package tx declares the transaction boundary used by the order and
// compliance services. Implementations live in storage/postgres and
// storage/memory.
package tx

import "context"

// Manager runs fn atomically. fn receives a context carrying the
// transaction; repositories resolve their querier from it. A nested call
// joins the outer transaction, and any error from fn rolls everything back.
type Manager interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

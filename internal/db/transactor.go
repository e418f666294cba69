package db

import "context"

// Transactor runs a function with every repository call inside it bound
// to one database transaction. The transaction travels through the
// context, so repositories stay unaware of transaction boundaries.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

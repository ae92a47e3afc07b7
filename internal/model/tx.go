package model

import "context"

// TxStores exposes the stores bound to a single transaction. Writes made
// through Posts are captured for index replay when the transaction commits.
type TxStores interface {
	Users() UserStore
	Posts() PostWriter
	Follows() FollowStore
}

// Transactor runs a unit of work inside one relational transaction. The
// captured search changes are replayed only after a successful commit.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx TxStores) error) error
}

package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store is the Record Store: it hands out repositories scoped to a request
// context and runs multi-statement work inside a single transaction.
type Store struct {
	db *gorm.DB
}

// NewStore creates a store on top of an open GORM handle
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying handle
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Repositories returns repositories bound to ctx, outside any transaction
func (s *Store) Repositories(ctx context.Context) *Repositories {
	return NewRepositories(s.db.WithContext(ctx))
}

// WithTx runs fn inside a transaction. The transaction commits when fn
// returns nil and rolls back on any error or panic; the connection is
// released on every exit path.
func (s *Store) WithTx(ctx context.Context, fn func(r *Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}

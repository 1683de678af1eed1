// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"time"

	"picshare/internal/cache"

	"gorm.io/gorm"
)

type txKey struct{}

// txScope is the open transaction plus the cache keys its writes made stale.
type txScope struct {
	db    *gorm.DB
	stale []string
}

// Transactor runs a unit of work inside one database transaction. Repositories
// called with the context handed to fn join that transaction.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type gormTransactor struct {
	db *gorm.DB
}

// NewTransactor returns a Transactor backed by db.
func NewTransactor(db *gorm.DB) Transactor {
	return &gormTransactor{db: db}
}

// InTx commits when fn returns nil and rolls back otherwise. A nested call
// reuses the outer transaction. Cache entries touched by the transaction are
// dropped only after the commit, so no reader can re-cache the old row
// once the new one is visible.
func (t *gormTransactor) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if scopeFrom(ctx) != nil {
		return fn(ctx)
	}
	scope := &txScope{}
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		scope.db = tx
		return fn(context.WithValue(ctx, txKey{}, scope))
	})
	if err != nil {
		return err
	}
	for _, key := range scope.stale {
		cache.Invalidate(ctx, key)
	}
	return nil
}

func scopeFrom(ctx context.Context) *txScope {
	s, _ := ctx.Value(txKey{}).(*txScope)
	return s
}

// conn returns the transaction carried by ctx, or db when there is none.
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if s := scopeFrom(ctx); s != nil {
		return s.db.WithContext(ctx)
	}
	return db.WithContext(ctx)
}

// InTransaction reports whether ctx carries an open transaction.
func InTransaction(ctx context.Context) bool {
	return scopeFrom(ctx) != nil
}

// cachedRead serves dest through the cache outside transactions. Inside one
// it reads straight from the transaction so uncommitted rows never reach Redis.
func cachedRead(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	if InTransaction(ctx) {
		return fetch()
	}
	return cache.Aside(ctx, key, dest, ttl, fetch)
}

// invalidate drops key now, or after the surrounding transaction commits.
func invalidate(ctx context.Context, key string) {
	if s := scopeFrom(ctx); s != nil {
		s.stale = append(s.stale, key)
		return
	}
	cache.Invalidate(ctx, key)
}

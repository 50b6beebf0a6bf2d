// Package repo holds the pieces every GORM repository embeds or calls.
package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Base is embedded by repositories. Its zero value is not usable.
type Base struct {
	db *gorm.DB
}

func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the handle bound to ctx; a nil ctx returns the raw handle.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// WithTx rebinds to tx. A nil tx keeps the current handle so callers can pass
// an optional transaction straight through.
func (b Base) WithTx(tx *gorm.DB) Base {
	if tx == nil {
		return b
	}
	return Base{db: tx}
}

// First loads the first row matched by q into a new T.
func First[T any](q *gorm.DB) (*T, error) {
	var row T
	if err := q.First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// FirstOrNil is First with a missing row reported as (nil, nil).
func FirstOrNil[T any](q *gorm.DB) (*T, error) {
	row, err := First[T](q)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return row, err
}

// DeleteWhere deletes T rows matching the condition and returns
// gorm.ErrRecordNotFound when none did.
func DeleteWhere[T any](db *gorm.DB, query string, args ...any) error {
	res := db.Where(query, args...).Delete(new(T))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

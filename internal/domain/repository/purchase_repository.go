// Package repository declares the storage ports of the domain.
package repository

import (
	"context"

	"github.com/damon-houk/wex-purchase-conversion/internal/domain/entity"
)

// PurchaseRepository defines the interface for purchase storage
type PurchaseRepository interface {
	// Save persists a record and returns a copy carrying the store-assigned ID.
	// Implementations must assign unique ids under concurrent writers.
	Save(ctx context.Context, record *entity.PurchaseRecord) (*entity.PurchaseRecord, error)

	// FindByID returns entity.ErrPurchaseNotFound when no record has the id.
	FindByID(ctx context.Context, id int64) (*entity.PurchaseRecord, error)
}

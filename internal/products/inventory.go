package products

import (
	"context"
	stdErrors "errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mdnaeem95/hbbtool-sub002/pkg/db/models"
	pkgerrors "github.com/mdnaeem95/hbbtool-sub002/pkg/errors"
)

// InventoryRequest names a product and a quantity for decrement or restock.
type InventoryRequest struct {
	ProductID uuid.UUID
	Qty       int
}

// DecrementInventory applies conditional decrements for every request inside
// the caller's transaction. Each decrement is a single UPDATE guarded by
// inventory_count >= qty, so two completions racing for the same scarce unit
// cannot both succeed. Untracked products pass through untouched. Any
// shortfall fails the whole batch; the caller's transaction rolls back the
// rows already decremented.
func DecrementInventory(ctx context.Context, tx *gorm.DB, requests []InventoryRequest) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction handle required")
	}
	for _, req := range requests {
		if req.Qty < 1 {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
		}
		res := tx.WithContext(ctx).Exec(
			`UPDATE products
			 SET inventory_count = inventory_count - ?
			 WHERE id = ? AND deleted_at IS NULL AND track_inventory = ? AND inventory_count >= ?`,
			req.Qty, req.ProductID, true, req.Qty,
		)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			continue
		}

		// Nothing matched: the product is untracked (fine), gone, or short.
		var product models.Product
		err := tx.WithContext(ctx).Where("id = ?", req.ProductID).First(&product).Error
		if err != nil {
			if stdErrors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeValidation, "product is no longer available")
			}
			return err
		}
		if !product.TrackInventory {
			continue
		}
		return pkgerrors.New(pkgerrors.CodeValidation, "insufficient stock for "+product.Name)
	}
	return nil
}

// RestockInventory returns previously decremented quantities, used when a
// tracked order is cancelled. Products that vanished or stopped tracking
// inventory in the meantime are skipped.
func RestockInventory(ctx context.Context, tx *gorm.DB, requests []InventoryRequest) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction handle required")
	}
	for _, req := range requests {
		if req.Qty < 1 {
			continue
		}
		res := tx.WithContext(ctx).Exec(
			`UPDATE products
			 SET inventory_count = inventory_count + ?
			 WHERE id = ? AND deleted_at IS NULL AND track_inventory = ?`,
			req.Qty, req.ProductID, true,
		)
		if res.Error != nil {
			return res.Error
		}
	}
	return nil
}

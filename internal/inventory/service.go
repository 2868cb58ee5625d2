package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/zaliuojibanga/shop-core/pkg/db/models"
	"github.com/zaliuojibanga/shop-core/pkg/enums"
	pkgerrors "github.com/zaliuojibanga/shop-core/pkg/errors"
	"github.com/zaliuojibanga/shop-core/pkg/outbox/payloads"
)

// ReservationLine asks for qty units of one stock lot on behalf of an order
// line. The lot must already be resolved by allocation planning.
type ReservationLine struct {
	OrderLineID     uuid.UUID
	InventoryItemID uuid.UUID
	Qty             int
}

// Service is the inventory ledger. Reserve, Release and Capture must run
// inside the caller's transaction so the ledger moves atomically with the
// order state.
type Service interface {
	AvailableForVariant(ctx context.Context, variantID uuid.UUID) (int, error)
	AvailableForOffer(ctx context.Context, inventoryItemID uuid.UUID) (int, error)
	ItemsForVariant(ctx context.Context, variantID uuid.UUID) ([]models.InventoryItem, error)
	Reserve(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, lines []ReservationLine) error
	Release(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) ([]payloads.BackInStockEvent, error)
	Capture(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error
}

type service struct {
	db *gorm.DB
}

// NewService builds the inventory ledger service.
func NewService(db *gorm.DB) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle required")
	}
	return &service{db: db}, nil
}

func (s *service) AvailableForVariant(ctx context.Context, variantID uuid.UUID) (int, error) {
	items, err := s.ItemsForVariant(ctx, variantID)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, item := range items {
		total += item.Available()
	}
	return total, nil
}

func (s *service) AvailableForOffer(ctx context.Context, inventoryItemID uuid.UUID) (int, error) {
	var item models.InventoryItem
	err := s.db.WithContext(ctx).First(&item, "id = ? AND is_active = ?", inventoryItemID, true).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, pkgerrors.New(pkgerrors.CodeNotFound, "offer not found")
	}
	if err != nil {
		return 0, err
	}
	return item.Available(), nil
}

func (s *service) ItemsForVariant(ctx context.Context, variantID uuid.UUID) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	err := s.db.WithContext(ctx).
		Where("variant_id = ? AND is_active = ?", variantID, true).
		Find(&items).Error
	return items, err
}

// Reserve increments qty_reserved for every requested lot and writes one
// allocation row per line. Each increment is a conditional update guarded by
// availability; zero rows affected means another order took the stock first
// and the whole transaction must roll back. Lots are touched in ascending id
// order so concurrent reservations acquire row locks in the same sequence.
func (s *service) Reserve(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, lines []ReservationLine) error {
	if tx == nil {
		return fmt.Errorf("reserve requires a transaction")
	}
	if len(lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "nothing to reserve")
	}
	for _, line := range lines {
		if line.Qty <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "reservation quantity must be positive")
		}
	}

	byItem := groupQtyByItem(lines)
	for _, itemID := range sortedItemIDs(byItem) {
		qty := byItem[itemID]
		result := tx.WithContext(ctx).
			Model(&models.InventoryItem{}).
			Where("id = ? AND is_active = ? AND qty_on_hand - qty_reserved >= ?", itemID, true, qty).
			UpdateColumn("qty_reserved", gorm.Expr("qty_reserved + ?", qty))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock")
		}
	}

	for _, line := range lines {
		allocation := models.InventoryAllocation{
			ID:              uuid.New(),
			OrderID:         orderID,
			OrderLineID:     line.OrderLineID,
			InventoryItemID: line.InventoryItemID,
			Qty:             line.Qty,
			Status:          enums.AllocationStatusReserved,
		}
		if err := tx.WithContext(ctx).Create(&allocation).Error; err != nil {
			return err
		}
	}
	return nil
}

// Release returns an order's reserved stock. Only allocations still in the
// reserved state participate, which makes a second release a no-op. Lots
// whose availability crosses zero to positive yield a back-in-stock event.
func (s *service) Release(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) ([]payloads.BackInStockEvent, error) {
	if tx == nil {
		return nil, fmt.Errorf("release requires a transaction")
	}

	allocations, err := reservedAllocations(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if len(allocations) == 0 {
		return nil, nil
	}

	byItem := groupAllocationQty(allocations)
	var events []payloads.BackInStockEvent
	for _, itemID := range sortedItemIDs(byItem) {
		qty := byItem[itemID]

		var item models.InventoryItem
		if err := tx.WithContext(ctx).First(&item, "id = ?", itemID).Error; err != nil {
			return nil, err
		}
		wasSoldOut := item.Available() == 0

		err := tx.WithContext(ctx).
			Model(&models.InventoryItem{}).
			Where("id = ?", itemID).
			UpdateColumn("qty_reserved",
				gorm.Expr("CASE WHEN qty_reserved >= ? THEN qty_reserved - ? ELSE 0 END", qty, qty)).Error
		if err != nil {
			return nil, err
		}

		if wasSoldOut {
			reserved := item.QtyReserved - qty
			if reserved < 0 {
				reserved = 0
			}
			if available := item.QtyOnHand - reserved; available > 0 {
				events = append(events, payloads.BackInStockEvent{
					InventoryItemID: itemID,
					VariantID:       item.VariantID,
					Available:       available,
				})
			}
		}
	}

	if err := markAllocations(ctx, tx, orderID, enums.AllocationStatusReleased); err != nil {
		return nil, err
	}
	return events, nil
}

// Capture turns an order's reservations into shipped stock: both qty_on_hand
// and qty_reserved drop by the reserved quantity. Idempotent through the
// allocation status guard.
func (s *service) Capture(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	if tx == nil {
		return fmt.Errorf("capture requires a transaction")
	}

	allocations, err := reservedAllocations(ctx, tx, orderID)
	if err != nil {
		return err
	}
	if len(allocations) == 0 {
		return nil
	}

	byItem := groupAllocationQty(allocations)
	for _, itemID := range sortedItemIDs(byItem) {
		qty := byItem[itemID]
		result := tx.WithContext(ctx).
			Model(&models.InventoryItem{}).
			Where("id = ? AND qty_reserved >= ? AND qty_on_hand >= ?", itemID, qty, qty).
			UpdateColumns(map[string]interface{}{
				"qty_on_hand":  gorm.Expr("qty_on_hand - ?", qty),
				"qty_reserved": gorm.Expr("qty_reserved - ?", qty),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "captured quantity exceeds ledger state")
		}
	}

	return markAllocations(ctx, tx, orderID, enums.AllocationStatusCaptured)
}

func reservedAllocations(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) ([]models.InventoryAllocation, error) {
	var allocations []models.InventoryAllocation
	err := tx.WithContext(ctx).
		Where("order_id = ? AND status = ?", orderID, enums.AllocationStatusReserved).
		Find(&allocations).Error
	return allocations, err
}

func markAllocations(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, status enums.AllocationStatus) error {
	return tx.WithContext(ctx).
		Model(&models.InventoryAllocation{}).
		Where("order_id = ? AND status = ?", orderID, enums.AllocationStatusReserved).
		UpdateColumn("status", status).Error
}

func groupQtyByItem(lines []ReservationLine) map[uuid.UUID]int {
	byItem := make(map[uuid.UUID]int, len(lines))
	for _, line := range lines {
		byItem[line.InventoryItemID] += line.Qty
	}
	return byItem
}

func groupAllocationQty(allocations []models.InventoryAllocation) map[uuid.UUID]int {
	byItem := make(map[uuid.UUID]int, len(allocations))
	for _, allocation := range allocations {
		byItem[allocation.InventoryItemID] += allocation.Qty
	}
	return byItem
}

func sortedItemIDs(byItem map[uuid.UUID]int) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(byItem))
	for id := range byItem {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return strings.Compare(ids[i].String(), ids[j].String()) < 0
	})
	return ids
}

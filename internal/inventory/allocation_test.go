package inventory

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zaliuojibanga/shop-core/pkg/db/models"
	"github.com/zaliuojibanga/shop-core/pkg/enums"
	pkgerrors "github.com/zaliuojibanga/shop-core/pkg/errors"
)

func intPtr(v int) *int { return &v }

func lot(priority, onHand, reserved int) models.InventoryItem {
	return models.InventoryItem{
		ID:          uuid.New(),
		VariantID:   uuid.New(),
		WarehouseID: uuid.New(),
		QtyOnHand:   onHand,
		QtyReserved: reserved,
		Priority:    priority,
		Visibility:  enums.OfferVisibilityNormal,
		IsActive:    true,
	}
}

func TestPlanAllocation_PriorityThenPriceThenID(t *testing.T) {
	variant := models.Variant{PriceNet: decimal.RequireFromString("10.00")}

	cheap := lot(0, 5, 0)
	cheap.DiscountPercent = intPtr(20)
	expensive := lot(0, 5, 0)
	preferred := lot(10, 2, 0)

	plan, err := PlanAllocation(variant, []models.InventoryItem{expensive, cheap, preferred}, 8, enums.OfferVisibilityNormal)
	require.NoError(t, err)
	require.Len(t, plan, 3)

	// Highest priority first, then the cheaper lot, then the list-price lot.
	assert.Equal(t, preferred.ID, plan[0].InventoryItemID)
	assert.Equal(t, 2, plan[0].Qty)
	assert.Equal(t, cheap.ID, plan[1].InventoryItemID)
	assert.Equal(t, 5, plan[1].Qty)
	assert.Equal(t, expensive.ID, plan[2].InventoryItemID)
	assert.Equal(t, 1, plan[2].Qty)
}

func TestPlanAllocation_EqualLotsBreakOnIDAscending(t *testing.T) {
	variant := models.Variant{PriceNet: decimal.RequireFromString("10.00")}
	a := lot(0, 5, 0)
	b := lot(0, 5, 0)

	wantFirst := a.ID
	if b.ID.String() < a.ID.String() {
		wantFirst = b.ID
	}

	plan, err := PlanAllocation(variant, []models.InventoryItem{a, b}, 3, enums.OfferVisibilityNormal)
	require.NoError(t, err)
	require.Len(t, plan, 1)
	assert.Equal(t, wantFirst, plan[0].InventoryItemID)
}

func TestPlanAllocation_SkipsUnavailableAndWrongChannel(t *testing.T) {
	variant := models.Variant{PriceNet: decimal.RequireFromString("10.00")}

	soldOut := lot(5, 3, 3)
	outlet := lot(5, 10, 0)
	outlet.Visibility = enums.OfferVisibilityOutlet
	inactive := lot(5, 10, 0)
	inactive.IsActive = false
	usable := lot(0, 4, 1)

	plan, err := PlanAllocation(variant, []models.InventoryItem{soldOut, outlet, inactive, usable}, 3, enums.OfferVisibilityNormal)
	require.NoError(t, err)
	require.Len(t, plan, 1)
	assert.Equal(t, usable.ID, plan[0].InventoryItemID)
	assert.Equal(t, 3, plan[0].Qty)
}

func TestPlanAllocation_ShortfallFailsWholeRequest(t *testing.T) {
	variant := models.Variant{PriceNet: decimal.RequireFromString("10.00")}

	plan, err := PlanAllocation(variant, []models.InventoryItem{lot(0, 2, 0), lot(0, 1, 0)}, 4, enums.OfferVisibilityNormal)
	require.Error(t, err)
	assert.Nil(t, plan)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestPlanAllocation_RejectsNonPositiveQty(t *testing.T) {
	variant := models.Variant{PriceNet: decimal.RequireFromString("10.00")}

	_, err := PlanAllocation(variant, []models.InventoryItem{lot(0, 5, 0)}, 0, enums.OfferVisibilityNormal)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

package inventory

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/zaliuojibanga/shop-core/internal/pricing"
	"github.com/zaliuojibanga/shop-core/pkg/db/models"
	"github.com/zaliuojibanga/shop-core/pkg/enums"
	pkgerrors "github.com/zaliuojibanga/shop-core/pkg/errors"
)

// Assignment says how many units of a request one stock lot absorbs.
type Assignment struct {
	InventoryItemID uuid.UUID
	Qty             int
}

// PlanAllocation splits a requested quantity across a variant's stock lots.
// Candidates are filtered to the requested channel and positive availability,
// then consumed greedily in (priority desc, effective unit net asc, id asc)
// order. A shortfall fails the whole request; callers never apply a partial
// plan.
func PlanAllocation(variant models.Variant, items []models.InventoryItem, qty int, channel enums.OfferVisibility) ([]Assignment, error) {
	if qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	candidates := make([]models.InventoryItem, 0, len(items))
	for _, item := range items {
		if !item.IsActive || item.Visibility != channel {
			continue
		}
		if item.Available() <= 0 {
			continue
		}
		candidates = append(candidates, item)
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		priceA := pricing.EffectiveOfferUnitNet(variant, a)
		priceB := pricing.EffectiveOfferUnitNet(variant, b)
		if !priceA.Equal(priceB) {
			return priceA.LessThan(priceB)
		}
		return strings.Compare(a.ID.String(), b.ID.String()) < 0
	})

	remaining := qty
	plan := make([]Assignment, 0, len(candidates))
	for _, item := range candidates {
		if remaining == 0 {
			break
		}
		take := item.Available()
		if take > remaining {
			take = remaining
		}
		plan = append(plan, Assignment{InventoryItemID: item.ID, Qty: take})
		remaining -= take
	}
	if remaining > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock for variant")
	}
	return plan, nil
}

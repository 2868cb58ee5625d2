package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/zaliuojibanga/shop-core/internal/catalog"
	"github.com/zaliuojibanga/shop-core/internal/inventory"
	"github.com/zaliuojibanga/shop-core/pkg/db/models"
	"github.com/zaliuojibanga/shop-core/pkg/enums"
	pkgerrors "github.com/zaliuojibanga/shop-core/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Owner identifies whose cart an operation targets: a signed-in user or an
// anonymous session, never both.
type Owner struct {
	UserID       *uuid.UUID
	SessionToken *string
}

func (o Owner) validate() error {
	if (o.UserID == nil) == (o.SessionToken == nil) {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart owner must be exactly one of user or session")
	}
	return nil
}

// Service exposes cart operations. Carts are created lazily on the first
// write; reads against a missing cart return an empty line list.
type Service interface {
	Get(ctx context.Context, owner Owner) (*models.Cart, []models.CartItem, error)
	AddItem(ctx context.Context, owner Owner, input AddItemInput) ([]models.CartItem, error)
	UpdateItemQty(ctx context.Context, owner Owner, itemID uuid.UUID, qty int) ([]models.CartItem, error)
	RemoveItem(ctx context.Context, owner Owner, itemID uuid.UUID) ([]models.CartItem, error)
	MergeGuestCart(ctx context.Context, sessionToken string, userID uuid.UUID) error
	ClearTx(ctx context.Context, tx *gorm.DB, cartID uuid.UUID) error
}

// AddItemInput is one add-to-cart request. OfferID pins a specific stock
// lot; when nil the quantity is split across the variant's offers.
type AddItemInput struct {
	VariantID uuid.UUID
	OfferID   *uuid.UUID
	Qty       int
	Channel   enums.OfferVisibility
}

type service struct {
	repo          CartRepository
	tx            txRunner
	catalogRepo   catalog.Repository
	inventorySvc  inventory.Service
	maxQtyPerLine int
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo CartRepository, tx txRunner, catalogRepo catalog.Repository, inventorySvc inventory.Service, maxQtyPerLine int) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if inventorySvc == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	if maxQtyPerLine <= 0 {
		maxQtyPerLine = 1000
	}
	return &service{
		repo:          repo,
		tx:            tx,
		catalogRepo:   catalogRepo,
		inventorySvc:  inventorySvc,
		maxQtyPerLine: maxQtyPerLine,
	}, nil
}

func (s *service) Get(ctx context.Context, owner Owner) (*models.Cart, []models.CartItem, error) {
	if err := owner.validate(); err != nil {
		return nil, nil, err
	}
	cart, err := s.find(ctx, s.repo, owner)
	if err != nil {
		return nil, nil, err
	}
	if cart == nil {
		return nil, nil, nil
	}
	items, err := s.repo.Items(ctx, cart.ID)
	if err != nil {
		return nil, nil, err
	}
	return cart, items, nil
}

// AddItem plans the whole mutation before touching any row: on a stock
// shortfall the cart is left exactly as it was.
func (s *service) AddItem(ctx context.Context, owner Owner, input AddItemInput) ([]models.CartItem, error) {
	if err := owner.validate(); err != nil {
		return nil, err
	}
	if input.Qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if input.Channel == "" {
		input.Channel = enums.OfferVisibilityNormal
	}

	variant, err := s.catalogRepo.VariantByID(ctx, input.VariantID)
	if err != nil {
		return nil, err
	}

	var out []models.CartItem
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := s.ensure(ctx, repo, owner)
		if err != nil {
			return err
		}
		items, err := repo.Items(ctx, cart.ID)
		if err != nil {
			return err
		}

		lots, err := s.inventorySvc.ItemsForVariant(ctx, input.VariantID)
		if err != nil {
			return err
		}

		if err := s.checkVariantCap(items, lots, input, input.Channel); err != nil {
			return err
		}

		if input.OfferID != nil {
			if err := s.addPinned(ctx, repo, cart.ID, items, lots, input); err != nil {
				return err
			}
		} else {
			if err := s.addAllocated(ctx, repo, cart.ID, items, lots, *variant, input); err != nil {
				return err
			}
		}

		out, err = repo.Items(ctx, cart.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) addPinned(ctx context.Context, repo CartRepository, cartID uuid.UUID, items []models.CartItem, lots []models.InventoryItem, input AddItemInput) error {
	var lot *models.InventoryItem
	for i := range lots {
		if lots[i].ID == *input.OfferID {
			lot = &lots[i]
			break
		}
	}
	if lot == nil || lot.Visibility != input.Channel {
		return pkgerrors.New(pkgerrors.CodeNotFound, "offer not found for variant")
	}

	existing := findItem(items, input.VariantID, input.OfferID)
	newQty := input.Qty
	if existing != nil {
		newQty += existing.Qty
	}
	if newQty > s.maxQtyPerLine {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity exceeds the per-line limit")
	}
	if newQty > lot.Available() {
		return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("insufficient stock for offer %s", lot.ID))
	}

	if existing != nil {
		existing.Qty = newQty
		return repo.SaveItem(ctx, existing)
	}
	return repo.SaveItem(ctx, &models.CartItem{
		ID:        uuid.New(),
		CartID:    cartID,
		VariantID: input.VariantID,
		OfferID:   input.OfferID,
		Qty:       input.Qty,
	})
}

// addAllocated splits an unpinned quantity across the variant's offers and
// materializes one cart line per consumed offer. Offer availability is
// reduced by what the cart already holds so repeated adds cannot overbook
// a lot.
func (s *service) addAllocated(ctx context.Context, repo CartRepository, cartID uuid.UUID, items []models.CartItem, lots []models.InventoryItem, variant models.Variant, input AddItemInput) error {
	inCart := make(map[uuid.UUID]int)
	for _, item := range items {
		if item.VariantID == input.VariantID && item.OfferID != nil {
			inCart[*item.OfferID] += item.Qty
		}
	}

	adjusted := make([]models.InventoryItem, len(lots))
	copy(adjusted, lots)
	for i := range adjusted {
		adjusted[i].QtyReserved += inCart[adjusted[i].ID]
	}

	plan, err := inventory.PlanAllocation(variant, adjusted, input.Qty, input.Channel)
	if err != nil {
		return err
	}

	for _, assignment := range plan {
		offerID := assignment.InventoryItemID
		existing := findItem(items, input.VariantID, &offerID)
		if existing != nil {
			existing.Qty += assignment.Qty
			if existing.Qty > s.maxQtyPerLine {
				return pkgerrors.New(pkgerrors.CodeValidation, "quantity exceeds the per-line limit")
			}
			if err := repo.SaveItem(ctx, existing); err != nil {
				return err
			}
			continue
		}
		if assignment.Qty > s.maxQtyPerLine {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity exceeds the per-line limit")
		}
		if err := repo.SaveItem(ctx, &models.CartItem{
			ID:        uuid.New(),
			CartID:    cartID,
			VariantID: input.VariantID,
			OfferID:   &offerID,
			Qty:       assignment.Qty,
		}); err != nil {
			return err
		}
	}
	return nil
}

// checkVariantCap rejects an add that would push the cart's total for a
// variant past its physical availability, even when each lot-level check
// would pass on its own.
func (s *service) checkVariantCap(items []models.CartItem, lots []models.InventoryItem, input AddItemInput, channel enums.OfferVisibility) error {
	totalAvailable := 0
	for _, lot := range lots {
		if lot.Visibility == channel {
			totalAvailable += lot.Available()
		}
	}
	inCart := 0
	for _, item := range items {
		if item.VariantID == input.VariantID {
			inCart += item.Qty
		}
	}
	if inCart+input.Qty > totalAvailable {
		return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock for variant")
	}
	return nil
}

func (s *service) UpdateItemQty(ctx context.Context, owner Owner, itemID uuid.UUID, qty int) ([]models.CartItem, error) {
	if err := owner.validate(); err != nil {
		return nil, err
	}
	if qty < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must not be negative")
	}
	if qty > s.maxQtyPerLine {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity exceeds the per-line limit")
	}

	var out []models.CartItem
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, item, err := s.ownedItem(ctx, repo, owner, itemID)
		if err != nil {
			return err
		}

		if qty == 0 {
			if err := repo.DeleteItem(ctx, item.ID); err != nil {
				return err
			}
		} else {
			if item.OfferID != nil {
				available, err := s.inventorySvc.AvailableForOffer(ctx, *item.OfferID)
				if err != nil {
					return err
				}
				if qty > available {
					return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("insufficient stock for offer %s", *item.OfferID))
				}
			}
			item.Qty = qty
			if err := repo.SaveItem(ctx, item); err != nil {
				return err
			}
		}

		out, err = repo.Items(ctx, cart.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) RemoveItem(ctx context.Context, owner Owner, itemID uuid.UUID) ([]models.CartItem, error) {
	if err := owner.validate(); err != nil {
		return nil, err
	}

	var out []models.CartItem
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, item, err := s.ownedItem(ctx, repo, owner, itemID)
		if err != nil {
			return err
		}
		if err := repo.DeleteItem(ctx, item.ID); err != nil {
			return err
		}
		out, err = repo.Items(ctx, cart.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MergeGuestCart folds a guest session cart into the user's cart on login.
// Quantities for the same line are summed; stock is re-validated only at
// checkout, where the reservation is authoritative anyway.
func (s *service) MergeGuestCart(ctx context.Context, sessionToken string, userID uuid.UUID) error {
	if sessionToken == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "session token required")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		guest, err := repo.FindBySession(ctx, sessionToken)
		if err != nil || guest == nil {
			return err
		}

		target, err := s.ensure(ctx, repo, Owner{UserID: &userID})
		if err != nil {
			return err
		}
		targetItems, err := repo.Items(ctx, target.ID)
		if err != nil {
			return err
		}
		guestItems, err := repo.Items(ctx, guest.ID)
		if err != nil {
			return err
		}

		for _, guestItem := range guestItems {
			existing := findItem(targetItems, guestItem.VariantID, guestItem.OfferID)
			if existing != nil {
				existing.Qty += guestItem.Qty
				if existing.Qty > s.maxQtyPerLine {
					existing.Qty = s.maxQtyPerLine
				}
				if err := repo.SaveItem(ctx, existing); err != nil {
					return err
				}
				continue
			}
			if err := repo.SaveItem(ctx, &models.CartItem{
				ID:        uuid.New(),
				CartID:    target.ID,
				VariantID: guestItem.VariantID,
				OfferID:   guestItem.OfferID,
				Qty:       guestItem.Qty,
			}); err != nil {
				return err
			}
		}
		return repo.DeleteCart(ctx, guest.ID)
	})
}

// ClearTx removes a cart and its lines inside an existing transaction.
// Checkout calls this after the order graph is committed.
func (s *service) ClearTx(ctx context.Context, tx *gorm.DB, cartID uuid.UUID) error {
	return s.repo.WithTx(tx).DeleteCart(ctx, cartID)
}

func (s *service) find(ctx context.Context, repo CartRepository, owner Owner) (*models.Cart, error) {
	if owner.UserID != nil {
		return repo.FindByUser(ctx, *owner.UserID)
	}
	return repo.FindBySession(ctx, *owner.SessionToken)
}

func (s *service) ensure(ctx context.Context, repo CartRepository, owner Owner) (*models.Cart, error) {
	cart, err := s.find(ctx, repo, owner)
	if err != nil {
		return nil, err
	}
	if cart != nil {
		return cart, nil
	}
	cart = &models.Cart{
		ID:           uuid.New(),
		UserID:       owner.UserID,
		SessionToken: owner.SessionToken,
	}
	if err := repo.Create(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *service) ownedItem(ctx context.Context, repo CartRepository, owner Owner, itemID uuid.UUID) (*models.Cart, *models.CartItem, error) {
	cart, err := s.find(ctx, repo, owner)
	if err != nil {
		return nil, nil, err
	}
	if cart == nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
	}
	items, err := repo.Items(ctx, cart.ID)
	if err != nil {
		return nil, nil, err
	}
	for i := range items {
		if items[i].ID == itemID {
			return cart, &items[i], nil
		}
	}
	return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
}

func findItem(items []models.CartItem, variantID uuid.UUID, offerID *uuid.UUID) *models.CartItem {
	for i := range items {
		if items[i].VariantID != variantID {
			continue
		}
		switch {
		case offerID == nil && items[i].OfferID == nil:
			return &items[i]
		case offerID != nil && items[i].OfferID != nil && *items[i].OfferID == *offerID:
			return &items[i]
		}
	}
	return nil
}

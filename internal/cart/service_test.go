package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/zaliuojibanga/shop-core/internal/catalog"
	"github.com/zaliuojibanga/shop-core/internal/inventory"
	"github.com/zaliuojibanga/shop-core/pkg/db/models"
	"github.com/zaliuojibanga/shop-core/pkg/enums"
	pkgerrors "github.com/zaliuojibanga/shop-core/pkg/errors"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type cartFixture struct {
	db  *gorm.DB
	svc Service
}

func newCartFixture(t *testing.T) *cartFixture {
	t.Helper()
	dsn := "file:cart_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Variant{}, &models.InventoryItem{}, &models.Cart{}, &models.CartItem{},
	))

	inventorySvc, err := inventory.NewService(db)
	require.NoError(t, err)
	svc, err := NewService(NewRepository(db), gormTxRunner{db: db}, catalog.NewRepository(db), inventorySvc, 100)
	require.NoError(t, err)

	return &cartFixture{db: db, svc: svc}
}

func (f *cartFixture) seedVariant(t *testing.T) models.Variant {
	t.Helper()
	variant := models.Variant{
		ID:         uuid.New(),
		SKU:        "SKU-" + uuid.NewString()[:8],
		Name:       "Test variant",
		PriceNet:   decimal.RequireFromString("10.00"),
		TaxClassID: uuid.New(),
		IsActive:   true,
	}
	require.NoError(t, f.db.Create(&variant).Error)
	return variant
}

func (f *cartFixture) seedLot(t *testing.T, variantID uuid.UUID, priority, onHand int) models.InventoryItem {
	t.Helper()
	item := models.InventoryItem{
		ID:          uuid.New(),
		VariantID:   variantID,
		WarehouseID: uuid.New(),
		QtyOnHand:   onHand,
		Priority:    priority,
		Visibility:  enums.OfferVisibilityNormal,
		IsActive:    true,
	}
	require.NoError(t, f.db.Create(&item).Error)
	return item
}

func userOwner() (Owner, uuid.UUID) {
	userID := uuid.New()
	return Owner{UserID: &userID}, userID
}

func TestAddItem_LazyCreatesCartAndSplitsAcrossOffers(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	variant := f.seedVariant(t)
	preferred := f.seedLot(t, variant.ID, 10, 2)
	fallback := f.seedLot(t, variant.ID, 0, 5)

	owner, _ := userOwner()
	items, err := f.svc.AddItem(ctx, owner, AddItemInput{VariantID: variant.ID, Qty: 4})
	require.NoError(t, err)
	require.Len(t, items, 2)

	byOffer := map[uuid.UUID]int{}
	for _, item := range items {
		require.NotNil(t, item.OfferID)
		byOffer[*item.OfferID] = item.Qty
	}
	assert.Equal(t, 2, byOffer[preferred.ID])
	assert.Equal(t, 2, byOffer[fallback.ID])
}

func TestAddItem_RepeatedAddsDoNotOverbookALot(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	variant := f.seedVariant(t)
	f.seedLot(t, variant.ID, 0, 3)

	owner, _ := userOwner()
	_, err := f.svc.AddItem(ctx, owner, AddItemInput{VariantID: variant.ID, Qty: 2})
	require.NoError(t, err)

	// Two units already held by this cart; only one more exists.
	_, err = f.svc.AddItem(ctx, owner, AddItemInput{VariantID: variant.ID, Qty: 2})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	_, err = f.svc.AddItem(ctx, owner, AddItemInput{VariantID: variant.ID, Qty: 1})
	require.NoError(t, err)
}

func TestAddItem_ShortfallLeavesCartUntouched(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	variant := f.seedVariant(t)
	f.seedLot(t, variant.ID, 0, 2)

	owner, _ := userOwner()
	_, err := f.svc.AddItem(ctx, owner, AddItemInput{VariantID: variant.ID, Qty: 5})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	_, items, err := f.svc.Get(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestAddItem_PinnedOffer(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	variant := f.seedVariant(t)
	lot := f.seedLot(t, variant.ID, 0, 3)
	f.seedLot(t, variant.ID, 10, 10)

	owner, _ := userOwner()
	items, err := f.svc.AddItem(ctx, owner, AddItemInput{VariantID: variant.ID, OfferID: &lot.ID, Qty: 2})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, lot.ID, *items[0].OfferID)

	// Pinning past the lot's own stock conflicts even though the variant
	// as a whole has plenty.
	_, err = f.svc.AddItem(ctx, owner, AddItemInput{VariantID: variant.ID, OfferID: &lot.ID, Qty: 2})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestAddItem_UnknownVariantAndOffer(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	owner, _ := userOwner()

	_, err := f.svc.AddItem(ctx, owner, AddItemInput{VariantID: uuid.New(), Qty: 1})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	variant := f.seedVariant(t)
	f.seedLot(t, variant.ID, 0, 5)
	bogus := uuid.New()
	_, err = f.svc.AddItem(ctx, owner, AddItemInput{VariantID: variant.ID, OfferID: &bogus, Qty: 1})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestUpdateItemQty(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	variant := f.seedVariant(t)
	f.seedLot(t, variant.ID, 0, 5)

	owner, _ := userOwner()
	items, err := f.svc.AddItem(ctx, owner, AddItemInput{VariantID: variant.ID, Qty: 2})
	require.NoError(t, err)
	require.Len(t, items, 1)

	items, err = f.svc.UpdateItemQty(ctx, owner, items[0].ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, items[0].Qty)

	_, err = f.svc.UpdateItemQty(ctx, owner, items[0].ID, 6)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	// Zero removes the line.
	items, err = f.svc.UpdateItemQty(ctx, owner, items[0].ID, 0)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestRemoveItem_OtherOwnersCartIsInvisible(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	variant := f.seedVariant(t)
	f.seedLot(t, variant.ID, 0, 5)

	owner, _ := userOwner()
	items, err := f.svc.AddItem(ctx, owner, AddItemInput{VariantID: variant.ID, Qty: 1})
	require.NoError(t, err)

	stranger, _ := userOwner()
	_, err = f.svc.RemoveItem(ctx, stranger, items[0].ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	items, err = f.svc.RemoveItem(ctx, owner, items[0].ID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestMergeGuestCart(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	variant := f.seedVariant(t)
	lot := f.seedLot(t, variant.ID, 0, 10)

	token := "guest-session-token"
	guest := Owner{SessionToken: &token}
	_, err := f.svc.AddItem(ctx, guest, AddItemInput{VariantID: variant.ID, OfferID: &lot.ID, Qty: 2})
	require.NoError(t, err)

	owner, userID := userOwner()
	_, err = f.svc.AddItem(ctx, owner, AddItemInput{VariantID: variant.ID, OfferID: &lot.ID, Qty: 3})
	require.NoError(t, err)

	require.NoError(t, f.svc.MergeGuestCart(ctx, token, userID))

	_, items, err := f.svc.Get(ctx, owner)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Qty)

	// The guest cart is gone.
	_, guestItems, err := f.svc.Get(ctx, guest)
	require.NoError(t, err)
	assert.Empty(t, guestItems)

	// Merging an unknown session is a no-op.
	require.NoError(t, f.svc.MergeGuestCart(ctx, "missing", userID))
}

func TestOwnerValidation(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()

	userID := uuid.New()
	token := "tok"
	both := Owner{UserID: &userID, SessionToken: &token}
	_, _, err := f.svc.Get(ctx, both)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, _, err = f.svc.Get(ctx, Owner{})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

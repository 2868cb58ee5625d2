package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/zaliuojibanga/shop-core/pkg/db/models"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
)

// Page is one slice of a user's order history, newest first.
type Page struct {
	Orders []models.Order
	Total  int64
	Limit  int
	Offset int
}

// Detail is one order with its priced children and payment state.
type Detail struct {
	Order     models.Order
	Lines     []models.OrderLine
	Fees      []models.OrderFee
	Discounts []models.OrderDiscount
	Intent    *models.PaymentIntent
}

// Service exposes buyer-facing order reads.
type Service interface {
	List(ctx context.Context, userID uuid.UUID, limit, offset int) (*Page, error)
	Get(ctx context.Context, userID, orderID uuid.UUID) (*Detail, error)
}

type service struct {
	repo Repository
}

// NewService builds the order read service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	return &service{repo: repo}, nil
}

// List returns the user's orders newest first. The limit is clamped to
// [1, 50] and defaults to 20; a negative offset is treated as zero.
func (s *service) List(ctx context.Context, userID uuid.UUID, limit, offset int) (*Page, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	orders, err := s.repo.ListForUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	total, err := s.repo.CountForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Page{Orders: orders, Total: total, Limit: limit, Offset: offset}, nil
}

// Get returns one of the user's orders with its full graph. Orders of other
// users are indistinguishable from missing ones.
func (s *service) Get(ctx context.Context, userID, orderID uuid.UUID) (*Detail, error) {
	order, err := s.repo.ForUser(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	lines, err := s.repo.Lines(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	fees, err := s.repo.Fees(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	discounts, err := s.repo.Discounts(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	intent, err := s.repo.Intent(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	return &Detail{
		Order:     *order,
		Lines:     lines,
		Fees:      fees,
		Discounts: discounts,
		Intent:    intent,
	}, nil
}

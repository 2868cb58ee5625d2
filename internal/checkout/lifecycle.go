package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/zaliuojibanga/shop-core/internal/promotions"
	"github.com/zaliuojibanga/shop-core/pkg/enums"
	pkgerrors "github.com/zaliuojibanga/shop-core/pkg/errors"
	"github.com/zaliuojibanga/shop-core/pkg/outbox"
	"github.com/zaliuojibanga/shop-core/pkg/outbox/payloads"
)

// MarkPaid transitions a pending order to paid and captures its reserved
// stock. Calling it on an already paid order is a no-op.
func (s *service) MarkPaid(ctx context.Context, orderID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.OrderByID(ctx, orderID)
		if err != nil {
			return err
		}
		switch order.Status {
		case enums.OrderStatusPaid:
			return nil
		case enums.OrderStatusCancelled:
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is cancelled")
		}

		now := time.Now()
		order.Status = enums.OrderStatusPaid
		order.PaidAt = &now
		if err := repo.SaveOrder(ctx, order); err != nil {
			return err
		}
		if err := s.inventorySvc.Capture(ctx, tx, order.ID); err != nil {
			return err
		}
		if err := s.updateIntentStatus(ctx, repo, order.ID, enums.PaymentStatusSucceeded, nil); err != nil {
			return err
		}
		return s.outboxSvc.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data:          payloads.OrderPaidEvent{OrderID: order.ID, PaidAt: now},
			OccurredAt:    now,
		})
	})
}

// MarkFailed cancels a pending order after a payment failure, releasing its
// reservations and coupon use.
func (s *service) MarkFailed(ctx context.Context, orderID uuid.UUID, reason string) error {
	return s.cancel(ctx, orderID, reason, enums.PaymentStatusFailed)
}

// MarkCancelled cancels a pending order on buyer or operator request.
func (s *service) MarkCancelled(ctx context.Context, orderID uuid.UUID, reason string) error {
	return s.cancel(ctx, orderID, reason, enums.PaymentStatusCancelled)
}

func (s *service) cancel(ctx context.Context, orderID uuid.UUID, reason string, intentStatus enums.PaymentStatus) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.OrderByID(ctx, orderID)
		if err != nil {
			return err
		}
		switch order.Status {
		case enums.OrderStatusCancelled:
			return nil
		case enums.OrderStatusPaid:
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is already paid")
		}

		now := time.Now()
		order.Status = enums.OrderStatusCancelled
		order.CancelledAt = &now
		if err := repo.SaveOrder(ctx, order); err != nil {
			return err
		}

		restocked, err := s.inventorySvc.Release(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		if err := promotions.ReleaseForOrder(ctx, tx, order.ID); err != nil {
			return err
		}
		if order.CouponCode != nil {
			s.checkoutMx.IncCouponOutcome("released")
		}

		var failureReason *string
		if reason != "" {
			failureReason = &reason
		}
		if err := s.updateIntentStatus(ctx, repo, order.ID, intentStatus, failureReason); err != nil {
			return err
		}

		if err := s.outboxSvc.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data:          payloads.OrderCancelledEvent{OrderID: order.ID, CancelledAt: now, Reason: reason},
			OccurredAt:    now,
		}); err != nil {
			return err
		}
		for _, event := range restocked {
			if err := s.outboxSvc.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventStockBackOnSale,
				AggregateType: enums.AggregateInventoryItem,
				AggregateID:   event.InventoryItemID,
				Data:          event,
				OccurredAt:    now,
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *service) updateIntentStatus(ctx context.Context, repo Repository, orderID uuid.UUID, status enums.PaymentStatus, failureReason *string) error {
	intent, err := repo.IntentForOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if intent == nil {
		return nil
	}
	intent.Status = status
	if failureReason != nil {
		intent.FailureReason = failureReason
	}
	return repo.SaveIntent(ctx, intent)
}

// ExpirePending cancels pending orders whose reservation window has lapsed.
// Each order is cancelled in its own transaction so one failure does not
// hold the rest hostage. Returns the number of orders expired.
func (s *service) ExpirePending(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.repo.ExpiredPendingOrders(ctx,
		now.Add(-s.cfg.ReservationTTLGateway),
		now.Add(-s.cfg.ReservationTTLBankTransfer),
		0)
	if err != nil {
		return 0, err
	}

	var errs error
	cancelled := 0
	for _, order := range expired {
		if err := s.MarkCancelled(ctx, order.ID, "reservation expired"); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("expiring order %s: %w", order.ID, err))
			continue
		}
		cancelled++
	}
	s.jobMx.AddExpiredOrders(cancelled)
	return cancelled, errs
}

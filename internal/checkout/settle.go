package checkout

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"phlebcare-backend/internal/models"
	"phlebcare-backend/pkg/apperr"
)

// Capture settles a previously held amount. Scoped to the practitioner who
// placed the order; a zero amount captures the full total.
func (o *Orchestrator) Capture(ctx context.Context, callerID, orderID uint64, amount float64) (*models.Order, error) {
	order, err := o.ownedOrder(ctx, callerID, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus != models.PaymentStatusAuthorized {
		return nil, apperr.Conflict("Order is not holding funds")
	}

	gw := o.gateways[order.CheckoutType]
	if gw == nil {
		return nil, apperr.Validationf("Order has no capturable payment (%s)", order.CheckoutType)
	}

	if amount <= 0 {
		amount = order.TotalVal
	}
	if amount > order.TotalVal {
		return nil, apperr.New(apperr.KindValidation, "Capture amount exceeds the authorized total")
	}

	if err := gw.Capture(ctx, order.TransactionID, amount); err != nil {
		return nil, o.providerError(err)
	}

	if err := o.recordPaymentTransition(ctx, order, models.PaymentStatusPaid, order.Status,
		fmt.Sprintf("captured %.2f", amount)); err != nil {
		return nil, err
	}
	return order, nil
}

// Release cancels a hold without settling; the order is cancelled with it.
func (o *Orchestrator) Release(ctx context.Context, callerID, orderID uint64) (*models.Order, error) {
	order, err := o.ownedOrder(ctx, callerID, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus != models.PaymentStatusAuthorized {
		return nil, apperr.Conflict("Order is not holding funds")
	}

	gw := o.gateways[order.CheckoutType]
	if gw == nil {
		return nil, apperr.Validationf("Order has no releasable payment (%s)", order.CheckoutType)
	}

	if err := gw.Release(ctx, order.TransactionID); err != nil {
		return nil, o.providerError(err)
	}

	if err := o.recordPaymentTransition(ctx, order, models.PaymentStatusReleased, models.OrderStatusCancelled,
		"hold released"); err != nil {
		return nil, err
	}

	var customer models.User
	if err := o.db.WithContext(ctx).First(&customer, order.CustomerID).Error; err == nil {
		o.notifier.SendAsync(customer.FCMToken,
			"Order cancelled",
			fmt.Sprintf("Order %s was cancelled and the hold on your card released.", order.OrderNo),
			map[string]string{"order_id": fmt.Sprintf("%d", order.ID), "type": "order_released"})
	}
	return order, nil
}

func (o *Orchestrator) ownedOrder(ctx context.Context, callerID, orderID uint64) (*models.Order, error) {
	var order models.Order
	err := o.db.WithContext(ctx).
		Where("id = ? AND practitioner_id = ?", orderID, callerID).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Order not found")
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (o *Orchestrator) recordPaymentTransition(ctx context.Context, order *models.Order, paymentStatus, status, note string) error {
	return o.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(order).Updates(map[string]interface{}{
			"payment_status": paymentStatus,
			"status":         status,
		}).Error; err != nil {
			return err
		}
		return tx.Create(&models.OrderStatusLog{
			OrderID: order.ID,
			Status:  status,
			Note:    note,
		}).Error
	})
}

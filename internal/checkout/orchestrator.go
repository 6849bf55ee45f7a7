package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"phlebcare-backend/internal/availability"
	"phlebcare-backend/internal/coupon"
	"phlebcare-backend/internal/models"
	"phlebcare-backend/internal/notify"
	"phlebcare-backend/internal/payment"
	"phlebcare-backend/internal/pricing"
	"phlebcare-backend/pkg/apperr"
)

// Options are the explicit policy knobs of the orchestrator.
type Options struct {
	// ReleaseOnAssignFailure controls what happens when the pleb assignment
	// fails after a successful authorization hold: release the hold and
	// cancel the order, or let the order stand unassigned for a later
	// retry. Charge and credit checkouts always take the second path.
	ReleaseOnAssignFailure bool
	Currency               string
}

// Orchestrator runs one checkout end to end: totals, coupon, payment,
// order persistence, pleb assignment, notifications. The payment call is
// always made before the order commits, and the order commits before
// assignment is attempted; any failure in between releases the hold or
// refunds the charge.
type Orchestrator struct {
	db       *gorm.DB
	gateways map[string]payment.Gateway
	catalog  *pricing.Catalog
	coupons  *coupon.Ledger
	matcher  *availability.Matcher
	vault    *payment.TokenVault
	notifier *notify.Dispatcher
	opts     Options
	log      *slog.Logger
}

func NewOrchestrator(
	db *gorm.DB,
	gateways map[string]payment.Gateway,
	catalog *pricing.Catalog,
	coupons *coupon.Ledger,
	matcher *availability.Matcher,
	vault *payment.TokenVault,
	notifier *notify.Dispatcher,
	opts Options,
	log *slog.Logger,
) *Orchestrator {
	if opts.Currency == "" {
		opts.Currency = "GBP"
	}
	return &Orchestrator{
		db:       db,
		gateways: gateways,
		catalog:  catalog,
		coupons:  coupons,
		matcher:  matcher,
		vault:    vault,
		notifier: notifier,
		opts:     opts,
		log:      log,
	}
}

type Result struct {
	OrderID        uint64  `json:"order_id"`
	OrderNo        string  `json:"order_number"`
	TotalVal       float64 `json:"total_val"`
	PaymentStatus  string  `json:"payment_status"`
	Authorization  string  `json:"authorization,omitempty"`
	PaymentTokenID *uint64 `json:"payment_token_id,omitempty"`
	JobAssigned    bool    `json:"job_assigned"`
	AssignmentNote string  `json:"assignment_note,omitempty"`
}

// Checkout turns a cart into a paid, schedulable, assigned order on behalf
// of the authenticated practitioner.
func (o *Orchestrator) Checkout(ctx context.Context, practitionerID uint64, input models.CheckoutInput) (*Result, error) {
	var customer models.User
	if err := o.db.WithContext(ctx).First(&customer, input.CustomerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Customer not found")
		}
		return nil, err
	}

	var practitioner models.User
	if err := o.db.WithContext(ctx).First(&practitioner, practitionerID).Error; err != nil {
		return nil, err
	}

	items, totals, err := o.computeTotals(ctx, input)
	if err != nil {
		return nil, err
	}

	saga := newSaga(o, input.CouponCode, o.log)
	defer saga.finish()

	// Coupon consumption is a saga step: an authorization or persistence
	// failure later refunds the usage instead of burning the code.
	if input.CouponCode != "" {
		redemption, err := o.coupons.Redeem(ctx, input.CouponCode, &practitionerID)
		if err != nil {
			return nil, err
		}
		saga.couponRedeemed(redemption)
		totals.discount += couponValue(redemption, totals.subtotal)
	}

	totalVal := totals.total()
	isCredit := input.CheckoutType == models.CheckoutTypeCredit

	if !isCredit && totalVal <= 0 {
		saga.compensate(ctx)
		return nil, apperr.New(apperr.KindValidation, "Order total must be greater than zero")
	}
	if isCredit && practitioner.TotalCreditBalance <= 0 {
		saga.compensate(ctx)
		return nil, apperr.Conflict("Practitioner credit line is exhausted")
	}

	orderNo := newOrderNo()
	result := &Result{OrderNo: orderNo, TotalVal: totalVal}

	paymentStatus := models.PaymentStatusPaid
	transactionID := ""
	savedToken := ""
	var gw payment.Gateway

	if !isCredit {
		gw = o.gateways[input.CheckoutType]
		if gw == nil {
			saga.compensate(ctx)
			return nil, apperr.Validationf("Unknown checkout type %q", input.CheckoutType)
		}

		authRes, err := o.authorize(ctx, gw, practitionerID, orderNo, totalVal, customer, input)
		if err != nil {
			saga.compensate(ctx)
			return nil, err
		}
		transactionID = authRes.TransactionID
		savedToken = authRes.SavedToken
		if !authRes.Captured {
			paymentStatus = models.PaymentStatusAuthorized
			saga.held(gw, transactionID)
		} else {
			saga.charged(gw, transactionID)
		}
	}
	result.PaymentStatus = paymentStatus
	result.Authorization = transactionID

	order, err := o.persistOrder(ctx, orderNo, practitioner, customer, input, items, totals, totalVal, paymentStatus, transactionID, isCredit)
	if err != nil {
		saga.compensate(ctx)
		result.PaymentStatus = saga.paymentStatus(paymentStatus)
		return result, err
	}
	saga.committed(order.ID)
	result.OrderID = order.ID

	if savedToken != "" {
		stored, err := o.vault.SaveOrUpdate(ctx, practitionerID, gw.Name(), savedToken, "", "", 0, 0)
		if err != nil {
			o.log.Warn("failed to store returned card token",
				slog.Uint64("order_id", order.ID), slog.String("error", err.Error()))
		} else {
			result.PaymentTokenID = &stored.ID
		}
	}

	if input.PlebID != nil && input.Booking != nil {
		if err := o.assignPleb(ctx, order, *input.PlebID, *input.Booking, o.bookingAddress(customer, input)); err != nil {
			holdBased := paymentStatus == models.PaymentStatusAuthorized
			if holdBased && o.opts.ReleaseOnAssignFailure {
				saga.compensate(ctx)
				o.markReleased(ctx, order, "assignment failed, hold released")
				result.PaymentStatus = models.PaymentStatusReleased
				return result, err
			}
			// Soft failure: the order stands, the job can be assigned later.
			result.AssignmentNote = apperr.Message(err)
			o.log.Warn("pleb assignment failed, order stands unassigned",
				slog.Uint64("order_id", order.ID), slog.String("error", err.Error()))
		} else {
			result.JobAssigned = true
		}
	}

	o.notifier.SendAsync(customer.FCMToken,
		"Order confirmed",
		fmt.Sprintf("Your order %s has been placed.", order.OrderNo),
		map[string]string{"order_id": fmt.Sprintf("%d", order.ID), "type": "order_placed"})

	return result, nil
}

type totals struct {
	subtotal float64
	shipping float64
	other    float64
	discount float64
}

func (t totals) total() float64 {
	return t.subtotal + t.shipping + t.other - t.discount
}

func (o *Orchestrator) computeTotals(ctx context.Context, input models.CheckoutInput) ([]models.OrderItem, totals, error) {
	var t totals

	testItems, testTotal, err := o.catalog.TestItems(ctx, input.TestIDs)
	if err != nil {
		return nil, t, err
	}
	serviceItems, serviceTotal, err := o.catalog.ServiceItems(ctx, input.ServiceIDs)
	if err != nil {
		return nil, t, err
	}
	shipping, err := o.catalog.ShippingCharge(ctx, input.ShippingTypeID)
	if err != nil {
		return nil, t, err
	}

	t.subtotal = testTotal + serviceTotal
	t.shipping = shipping
	t.discount = input.Discount
	if input.PhlebBooking != nil {
		t.other = input.PhlebBooking.Price + input.PhlebBooking.WeekendSurcharge
	}
	return append(testItems, serviceItems...), t, nil
}

func (o *Orchestrator) authorize(ctx context.Context, gw payment.Gateway, callerID uint64, orderNo string, amount float64, customer models.User, input models.CheckoutInput) (*payment.AuthorizeResult, error) {
	ref, err := payment.SanitizeReference(orderNo)
	if err != nil {
		return nil, err
	}

	req := payment.AuthorizeRequest{
		Amount:    amount,
		Currency:  o.opts.Currency,
		Reference: ref,
		SaveCard:  input.SaveCard,
		Customer: payment.CustomerInfo{
			Name:  customer.FullName,
			Email: customer.Email,
			Phone: customer.Phone,
		},
	}

	switch {
	case input.PaymentTokenID != nil:
		stored, err := o.vault.GetForUser(ctx, callerID, *input.PaymentTokenID)
		if err != nil {
			return nil, err
		}
		req.Token = stored.Token
	case input.PaymentMethod != nil && input.PaymentMethod.Token != "":
		req.Token = input.PaymentMethod.Token
	case input.PaymentMethod != nil:
		req.Card = &payment.Card{
			Number:   input.PaymentMethod.Number,
			ExpMonth: input.PaymentMethod.ExpMonth,
			ExpYear:  input.PaymentMethod.ExpYear,
			CVV:      input.PaymentMethod.CVV,
		}
	default:
		return nil, apperr.New(apperr.KindValidation, "Payment details are required")
	}

	res, err := gw.Authorize(ctx, req)
	if err != nil {
		return nil, o.providerError(err)
	}
	return res, nil
}

// persistOrder commits the order row, its items, the booking, the status
// log and the practitioner credit mutation in one transaction, so a crash
// cannot leave the ledger and the order out of step.
func (o *Orchestrator) persistOrder(
	ctx context.Context,
	orderNo string,
	practitioner, customer models.User,
	input models.CheckoutInput,
	items []models.OrderItem,
	t totals,
	totalVal float64,
	paymentStatus, transactionID string,
	isCredit bool,
) (*models.Order, error) {
	order := &models.Order{
		OrderNo:           orderNo,
		CustomerID:        customer.ID,
		PractitionerID:    practitioner.ID,
		Subtotal:          t.subtotal,
		Discount:          t.discount,
		ShippingCharges:   t.shipping,
		OtherChargesTotal: t.other,
		TotalVal:          totalVal,
		CheckoutType:      input.CheckoutType,
		PaymentStatus:     paymentStatus,
		Status:            models.OrderStatusPlaced,
		TransactionID:     transactionID,
		CouponCode:        input.CouponCode,
	}
	if input.ShippingTypeID != 0 {
		id := input.ShippingTypeID
		order.ShippingTypeID = &id
	}

	err := o.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return err
		}

		for i := range items {
			items[i].OrderID = order.ID
		}
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return err
			}
		}

		if input.PhlebBooking != nil && input.Booking != nil {
			booking, err := buildBooking(order.ID, *input.Booking, *input.PhlebBooking)
			if err != nil {
				return err
			}
			if err := tx.Create(booking).Error; err != nil {
				return err
			}
		}

		if err := tx.Create(&models.OrderStatusLog{
			OrderID: order.ID,
			Status:  models.OrderStatusPlaced,
			Note:    "order created",
		}).Error; err != nil {
			return err
		}

		if isCredit {
			res := tx.Model(&models.User{}).
				Where("id = ? AND total_credit_balance >= ?", practitioner.ID, totalVal).
				UpdateColumns(map[string]interface{}{
					"credit_balance":       gorm.Expr("credit_balance + ?", totalVal),
					"total_credit_balance": gorm.Expr("total_credit_balance - ?", totalVal),
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return apperr.Conflict("Practitioner credit line is exhausted")
			}
			if err := tx.Create(&models.CommissionEntry{
				PractitionerID: practitioner.ID,
				OrderID:        order.ID,
				Amount:         totalVal,
			}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// assignPleb re-validates eligibility against current data and creates the
// job; the client's earlier availability search is never trusted.
func (o *Orchestrator) assignPleb(ctx context.Context, order *models.Order, plebID uint64, booking models.BookingInput, address string) error {
	q := availability.BookingQuery{Date: booking.BookingDate, Time: booking.BookingTime, Address: address}
	if err := o.matcher.ValidateAssignment(ctx, plebID, q); err != nil {
		return err
	}

	job := &models.PlebJob{
		PlebID:         plebID,
		OrderID:        order.ID,
		JobStatus:      models.JobStatusAssigned,
		TrackingNumber: newTrackingNumber(),
	}

	err := o.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(job).Error; err != nil {
			return err
		}
		if err := tx.Model(order).Update("status", models.OrderStatusAssigned).Error; err != nil {
			return err
		}
		return tx.Create(&models.OrderStatusLog{
			OrderID: order.ID,
			Status:  models.OrderStatusAssigned,
			Note:    fmt.Sprintf("assigned to pleb %d", plebID),
		}).Error
	})
	if err != nil {
		return err
	}

	var pleb models.PlebProfile
	if err := o.db.WithContext(ctx).Preload("User").First(&pleb, plebID).Error; err == nil {
		o.notifier.SendAsync(pleb.User.FCMToken,
			"New collection job",
			fmt.Sprintf("You have been assigned order %s.", order.OrderNo),
			map[string]string{"order_id": fmt.Sprintf("%d", order.ID), "type": "job_assigned"})
	}
	return nil
}

func (o *Orchestrator) markReleased(ctx context.Context, order *models.Order, note string) {
	err := o.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(order).Updates(map[string]interface{}{
			"payment_status": models.PaymentStatusReleased,
			"status":         models.OrderStatusCancelled,
		}).Error; err != nil {
			return err
		}
		return tx.Create(&models.OrderStatusLog{
			OrderID: order.ID,
			Status:  models.OrderStatusCancelled,
			Note:    note,
		}).Error
	})
	if err != nil {
		o.log.Error("failed to record released order state",
			slog.Uint64("order_id", order.ID), slog.String("error", err.Error()))
	}
}

func (o *Orchestrator) bookingAddress(customer models.User, input models.CheckoutInput) string {
	if input.Address != "" {
		return input.Address
	}
	return strings.TrimSpace(customer.AddressLine + " " + customer.Postcode)
}

// providerError keeps the raw provider code in the logs while the client
// only ever sees the sanitized payment message.
func (o *Orchestrator) providerError(err error) error {
	var pe *payment.ProviderError
	if errors.As(err, &pe) {
		o.log.Warn("payment provider rejected the request",
			slog.String("provider", pe.Provider),
			slog.String("code", pe.Code),
			slog.String("message", pe.Message))
		return pe.AsAppError()
	}
	return err
}

func couponValue(r *coupon.Redemption, subtotal float64) float64 {
	if r.Type == models.DiscountTypePercent {
		return subtotal * r.Value / 100
	}
	return r.Value
}

func buildBooking(orderID uint64, booking models.BookingInput, in models.PhlebBookingInput) (*models.PhlebBooking, error) {
	slotTimes, err := json.Marshal(in.SlotTimes)
	if err != nil {
		return nil, err
	}
	return &models.PhlebBooking{
		OrderID:          orderID,
		Zone:             in.Zone,
		ShiftType:        in.ShiftType,
		SlotTimes:        datatypes.JSON(slotTimes),
		Price:            in.Price,
		WeekendSurcharge: in.WeekendSurcharge,
		BookingDate:      booking.BookingDate,
		BookingTime:      booking.BookingTime,
	}, nil
}

func newOrderNo() string {
	return "ORD" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:15]
}

func newTrackingNumber() string {
	return "TRK" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:13]
}

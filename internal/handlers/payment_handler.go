package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"phlebcare-backend/internal/checkout"
	"phlebcare-backend/internal/middleware"
	"phlebcare-backend/internal/models"
	"phlebcare-backend/internal/notify"
	"phlebcare-backend/internal/payment"
	"phlebcare-backend/pkg/utils"
)

type PaymentHandler struct {
	DB           *gorm.DB
	Orchestrator *checkout.Orchestrator
	Gateways     map[string]payment.Gateway
	Vault        *payment.TokenVault
	Notifier     *notify.Dispatcher
	Log          *slog.Logger
}

func NewPaymentHandler(db *gorm.DB, orch *checkout.Orchestrator, gateways map[string]payment.Gateway, vault *payment.TokenVault, notifier *notify.Dispatcher, log *slog.Logger) *PaymentHandler {
	return &PaymentHandler{DB: db, Orchestrator: orch, Gateways: gateways, Vault: vault, Notifier: notifier, Log: log}
}

// Capture settles the hold on an order, fully or partially.
func (h *PaymentHandler) Capture(c *gin.Context) {
	orderID := utils.StringToUint64(c.Param("id"))

	var input models.CaptureInput
	if err := c.ShouldBindJSON(&input); err != nil && c.Request.ContentLength > 0 {
		utils.APIResponse(c, http.StatusBadRequest, false, "Invalid capture input", nil)
		return
	}

	order, err := h.Orchestrator.Capture(c.Request.Context(), middleware.CallerID(c), orderID, input.Amount)
	if err != nil {
		utils.APIError(c, err)
		return
	}
	utils.APIResponse(c, http.StatusOK, true, "Payment captured", order)
}

// Release cancels the hold on an order.
func (h *PaymentHandler) Release(c *gin.Context) {
	orderID := utils.StringToUint64(c.Param("id"))

	order, err := h.Orchestrator.Release(c.Request.Context(), middleware.CallerID(c), orderID)
	if err != nil {
		utils.APIError(c, err)
		return
	}
	utils.APIResponse(c, http.StatusOK, true, "Hold released", order)
}

type tokenizeInput struct {
	Provider string           `json:"provider"`
	Card     models.CardInput `json:"payment_method" binding:"required"`
}

// Tokenize vaults a card with a provider and stores the multi-use token for
// the caller.
func (h *PaymentHandler) Tokenize(c *gin.Context) {
	var input tokenizeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.APIResponse(c, http.StatusBadRequest, false, "Invalid card input", nil)
		return
	}
	if input.Provider == "" {
		input.Provider = models.CheckoutTypeMidtrans
	}

	gw := h.Gateways[input.Provider]
	if gw == nil {
		utils.APIResponse(c, http.StatusBadRequest, false, "Unknown payment provider", nil)
		return
	}

	res, err := gw.Tokenize(c.Request.Context(), payment.Card{
		Number:   input.Card.Number,
		ExpMonth: input.Card.ExpMonth,
		ExpYear:  input.Card.ExpYear,
		CVV:      input.Card.CVV,
	})
	if err != nil {
		var pe *payment.ProviderError
		if errors.As(err, &pe) {
			h.Log.Warn("tokenize rejected",
				slog.String("provider", pe.Provider), slog.String("code", pe.Code))
			utils.APIError(c, pe.AsAppError())
			return
		}
		utils.APIError(c, err)
		return
	}

	stored, err := h.Vault.SaveOrUpdate(c.Request.Context(), middleware.CallerID(c),
		gw.Name(), res.Token, res.Brand, res.Last4, res.ExpMonth, res.ExpYear)
	if err != nil {
		utils.APIError(c, err)
		return
	}
	utils.APIResponse(c, http.StatusCreated, true, "Card saved", stored)
}

func (h *PaymentHandler) ListTokens(c *gin.Context) {
	tokens, err := h.Vault.ListForUser(c.Request.Context(), middleware.CallerID(c))
	if err != nil {
		utils.APIError(c, err)
		return
	}
	utils.APIResponse(c, http.StatusOK, true, "Saved cards", tokens)
}

func (h *PaymentHandler) DeleteToken(c *gin.Context) {
	id := utils.StringToUint64(c.Param("id"))
	if err := h.Vault.Delete(c.Request.Context(), middleware.CallerID(c), id); err != nil {
		utils.APIError(c, err)
		return
	}
	utils.APIResponse(c, http.StatusOK, true, "Card deleted", nil)
}

// gatewayNotification is the subset of the provider webhook body we act on.
type gatewayNotification struct {
	TransactionStatus string `json:"transaction_status"`
	OrderID           string `json:"order_id"`
	FraudStatus       string `json:"fraud_status"`
}

// HandleGatewayNotification maps provider transaction states onto the
// order's payment_status. Idempotent: a repeated notification with the same
// mapped state writes nothing.
func (h *PaymentHandler) HandleGatewayNotification(c *gin.Context) {
	var notification gatewayNotification
	if err := c.ShouldBindJSON(&notification); err != nil {
		utils.APIResponse(c, http.StatusBadRequest, false, "Invalid JSON", nil)
		return
	}

	var paymentStatus string
	switch notification.TransactionStatus {
	case "capture":
		if notification.FraudStatus == "challenge" {
			paymentStatus = models.PaymentStatusPending
		} else {
			paymentStatus = models.PaymentStatusPaid
		}
	case "settlement":
		paymentStatus = models.PaymentStatusPaid
	case "deny", "cancel", "expire":
		paymentStatus = models.PaymentStatusVoided
	default:
		paymentStatus = models.PaymentStatusPending
	}

	h.Log.Info("gateway notification received",
		slog.String("order_ref", notification.OrderID),
		slog.String("transaction_status", notification.TransactionStatus),
		slog.String("mapped_status", paymentStatus))

	// The provider echoes the sanitized reference we sent at authorize.
	var order models.Order
	err := h.DB.Where("order_no = ? OR transaction_id = ?", notification.OrderID, notification.OrderID).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.APIResponse(c, http.StatusNotFound, false, "Order not found", nil)
			return
		}
		utils.APIError(c, err)
		return
	}

	if order.PaymentStatus != paymentStatus {
		err := h.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&order).Update("payment_status", paymentStatus).Error; err != nil {
				return err
			}
			return tx.Create(&models.OrderStatusLog{
				OrderID: order.ID,
				Status:  order.Status,
				Note:    fmt.Sprintf("gateway reported %s", notification.TransactionStatus),
			}).Error
		})
		if err != nil {
			utils.APIError(c, err)
			return
		}
	}

	if paymentStatus == models.PaymentStatusPaid {
		var customer models.User
		if err := h.DB.First(&customer, order.CustomerID).Error; err == nil {
			h.Notifier.SendAsync(customer.FCMToken,
				"Payment received",
				fmt.Sprintf("Payment for order %s is confirmed.", order.OrderNo),
				map[string]string{"order_id": fmt.Sprintf("%d", order.ID), "type": "payment_success"})
		}
	} else if paymentStatus == models.PaymentStatusVoided {
		var customer models.User
		if err := h.DB.First(&customer, order.CustomerID).Error; err == nil {
			h.Notifier.SendAsync(customer.FCMToken,
				"Payment failed",
				fmt.Sprintf("Payment for order %s failed or expired.", order.OrderNo),
				map[string]string{"order_id": fmt.Sprintf("%d", order.ID), "type": "payment_failed"})
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

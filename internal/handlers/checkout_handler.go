package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"phlebcare-backend/internal/checkout"
	"phlebcare-backend/internal/middleware"
	"phlebcare-backend/internal/models"
	"phlebcare-backend/pkg/utils"
)

type CheckoutHandler struct {
	Orchestrator *checkout.Orchestrator
}

func NewCheckoutHandler(orch *checkout.Orchestrator) *CheckoutHandler {
	return &CheckoutHandler{Orchestrator: orch}
}

// Checkout runs the full cart-to-order flow for the authenticated
// practitioner.
func (h *CheckoutHandler) Checkout(c *gin.Context) {
	var input models.CheckoutInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.APIResponse(c, http.StatusBadRequest, false, "Invalid checkout input", err.Error())
		return
	}
	if input.PlebID != nil && input.Booking == nil {
		utils.APIResponse(c, http.StatusBadRequest, false, "A booking date/time is required when requesting a phlebotomist", nil)
		return
	}

	result, err := h.Orchestrator.Checkout(c.Request.Context(), middleware.CallerID(c), input)
	if err != nil {
		utils.APIError(c, err)
		return
	}

	utils.APIResponse(c, http.StatusCreated, true, "Order placed", result)
}

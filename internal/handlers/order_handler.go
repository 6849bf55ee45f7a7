package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"phlebcare-backend/internal/middleware"
	"phlebcare-backend/internal/models"
	"phlebcare-backend/pkg/utils"
)

type OrderHandler struct {
	DB *gorm.DB
}

func NewOrderHandler(db *gorm.DB) *OrderHandler {
	return &OrderHandler{DB: db}
}

// MyOrders lists the orders the authenticated practitioner placed.
func (h *OrderHandler) MyOrders(c *gin.Context) {
	var orders []models.Order
	h.DB.
		Preload("Items").
		Preload("Booking").
		Preload("Job").
		Where("practitioner_id = ?", middleware.CallerID(c)).
		Order("created_at desc").
		Find(&orders)

	utils.APIResponse(c, http.StatusOK, true, "Order history", orders)
}

// OrderDetail returns one order with its booking, job and status trail.
// Scoped to the caller so order ids cannot be enumerated.
func (h *OrderHandler) OrderDetail(c *gin.Context) {
	orderID := c.Param("id")

	var order models.Order
	err := h.DB.
		Preload("Items").
		Preload("Booking").
		Preload("Job.Pleb.User").
		Preload("StatusLogs").
		Preload("Customer").
		Where("id = ? AND practitioner_id = ?", orderID, middleware.CallerID(c)).
		First(&order).Error
	if err != nil {
		utils.APIResponse(c, http.StatusNotFound, false, "Order not found", nil)
		return
	}

	utils.APIResponse(c, http.StatusOK, true, "Order detail", order)
}

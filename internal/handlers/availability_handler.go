package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"phlebcare-backend/internal/availability"
	"phlebcare-backend/internal/middleware"
	"phlebcare-backend/internal/models"
	"phlebcare-backend/pkg/utils"
)

type AvailabilityHandler struct {
	DB    *gorm.DB
	Store *availability.Store
}

func NewAvailabilityHandler(db *gorm.DB, store *availability.Store) *AvailabilityHandler {
	return &AvailabilityHandler{DB: db, Store: store}
}

// GetMine returns the caller's full week plus normalized range.
func (h *AvailabilityHandler) GetMine(c *gin.Context) {
	profile, ok := h.callerProfile(c)
	if !ok {
		return
	}

	week, err := h.Store.Get(c.Request.Context(), profile.ID)
	if err != nil {
		utils.APIError(c, err)
		return
	}
	utils.APIResponse(c, http.StatusOK, true, "Weekly availability", week)
}

// ReplaceMine swaps in a whole new week; there is no partial-day update.
func (h *AvailabilityHandler) ReplaceMine(c *gin.Context) {
	profile, ok := h.callerProfile(c)
	if !ok {
		return
	}

	var input models.ReplaceAvailabilityInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.APIResponse(c, http.StatusBadRequest, false, "Invalid availability input", err.Error())
		return
	}

	if err := h.Store.Replace(c.Request.Context(), profile.ID, input); err != nil {
		utils.APIError(c, err)
		return
	}

	week, err := h.Store.Get(c.Request.Context(), profile.ID)
	if err != nil {
		utils.APIError(c, err)
		return
	}
	utils.APIResponse(c, http.StatusOK, true, "Availability updated", week)
}

func (h *AvailabilityHandler) callerProfile(c *gin.Context) (*models.PlebProfile, bool) {
	var profile models.PlebProfile
	err := h.DB.Where("user_id = ?", middleware.CallerID(c)).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.APIResponse(c, http.StatusForbidden, false, "Phlebotomist profile not found", nil)
		c.Abort()
		return nil, false
	}
	if err != nil {
		utils.APIError(c, err)
		c.Abort()
		return nil, false
	}
	return &profile, true
}

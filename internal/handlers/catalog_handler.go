package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"phlebcare-backend/internal/models"
	"phlebcare-backend/internal/pricing"
	"phlebcare-backend/pkg/utils"
)

type CatalogHandler struct {
	DB      *gorm.DB
	Catalog *pricing.Catalog
}

func NewCatalogHandler(db *gorm.DB, catalog *pricing.Catalog) *CatalogHandler {
	return &CatalogHandler{DB: db, Catalog: catalog}
}

// ZoneSlots resolves a postcode to its pricing zone and returns the current
// visit rates for that zone. An out-of-area postcode is a normal response
// with an empty rate list, not an error.
func (h *CatalogHandler) ZoneSlots(c *gin.Context) {
	postcode := c.Query("postcode")
	town := c.Query("town")
	if postcode == "" && town == "" {
		utils.APIResponse(c, http.StatusBadRequest, false, "postcode or town is required", nil)
		return
	}

	result, err := h.Catalog.ResolveZone(c.Request.Context(), postcode, town)
	if err != nil {
		utils.APIError(c, err)
		return
	}
	utils.APIResponse(c, http.StatusOK, true, "Zone rates", result)
}

// ListTests returns the orderable lab tests.
func (h *CatalogHandler) ListTests(c *gin.Context) {
	var tests []models.LabTest
	h.DB.Where("is_active = ?", true).Order("name").Find(&tests)
	utils.APIResponse(c, http.StatusOK, true, "Lab tests", tests)
}

// ListServices returns the orderable clinic services.
func (h *CatalogHandler) ListServices(c *gin.Context) {
	var services []models.ClinicService
	h.DB.Where("is_active = ?", true).Order("name").Find(&services)
	utils.APIResponse(c, http.StatusOK, true, "Clinic services", services)
}

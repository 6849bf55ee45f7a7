package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"phlebcare-backend/internal/availability"
	"phlebcare-backend/internal/middleware"
	"phlebcare-backend/internal/models"
	"phlebcare-backend/internal/notify"
	"phlebcare-backend/pkg/utils"
)

type PlebHandler struct {
	DB       *gorm.DB
	Matcher  *availability.Matcher
	Notifier *notify.Dispatcher
}

func NewPlebHandler(db *gorm.DB, matcher *availability.Matcher, notifier *notify.Dispatcher) *PlebHandler {
	return &PlebHandler{DB: db, Matcher: matcher, Notifier: notifier}
}

// SearchEligible lists the plebs able to take a home visit at the given
// date/time/address. The result is advisory; assignment re-validates.
func (h *PlebHandler) SearchEligible(c *gin.Context) {
	q := availability.BookingQuery{
		Date:    c.Query("date"),
		Time:    c.Query("time"),
		Address: strings.TrimSpace(c.Query("address") + " " + c.Query("postcode")),
	}

	plebs, err := h.Matcher.FindEligible(c.Request.Context(), q)
	if err != nil {
		utils.APIError(c, err)
		return
	}
	utils.APIResponse(c, http.StatusOK, true, "Eligible phlebotomists", plebs)
}

// MyJobs lists the caller's assigned collection jobs.
func (h *PlebHandler) MyJobs(c *gin.Context) {
	profile, ok := h.callerProfile(c)
	if !ok {
		return
	}

	var jobs []models.PlebJob
	h.DB.
		Preload("Order.Booking").
		Preload("Order.Customer").
		Where("pleb_id = ?", profile.ID).
		Order("created_at desc").
		Find(&jobs)

	utils.APIResponse(c, http.StatusOK, true, "My jobs", jobs)
}

// jobTransitions lists the status each job state may move to.
var jobTransitions = map[string][]string{
	models.JobStatusAssigned:  {models.JobStatusEnRoute, models.JobStatusCancelled},
	models.JobStatusEnRoute:   {models.JobStatusCollected, models.JobStatusCancelled},
	models.JobStatusCollected: {models.JobStatusCompleted},
}

// UpdateJobStatus advances a job through its lifecycle. Completing the job
// marks the order fulfilled; every change appends to the order status log
// and pushes a notification to the customer.
func (h *PlebHandler) UpdateJobStatus(c *gin.Context) {
	profile, ok := h.callerProfile(c)
	if !ok {
		return
	}
	jobID := utils.StringToUint64(c.Param("id"))

	var input models.JobStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.APIResponse(c, http.StatusBadRequest, false, "Invalid status input", nil)
		return
	}

	var job models.PlebJob
	err := h.DB.Preload("Order").
		Where("id = ? AND pleb_id = ?", jobID, profile.ID).
		First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.APIResponse(c, http.StatusNotFound, false, "Job not found", nil)
		return
	}
	if err != nil {
		utils.APIError(c, err)
		return
	}

	if !transitionAllowed(job.JobStatus, input.Status) {
		utils.APIResponse(c, http.StatusConflict, false,
			fmt.Sprintf("Cannot move job from %s to %s", job.JobStatus, input.Status), nil)
		return
	}

	orderStatus := job.Order.Status
	switch input.Status {
	case models.JobStatusCollected:
		orderStatus = models.OrderStatusCollected
	case models.JobStatusCompleted:
		orderStatus = models.OrderStatusCompleted
	case models.JobStatusCancelled:
		orderStatus = models.OrderStatusPlaced // back to the unassigned pool
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&job).Update("job_status", input.Status).Error; err != nil {
			return err
		}
		if err := tx.Model(job.Order).Update("status", orderStatus).Error; err != nil {
			return err
		}
		return tx.Create(&models.OrderStatusLog{
			OrderID: job.OrderID,
			Status:  orderStatus,
			Note:    fmt.Sprintf("job %s: %s", input.Status, input.Note),
		}).Error
	})
	if err != nil {
		utils.APIError(c, err)
		return
	}

	var customer models.User
	if err := h.DB.First(&customer, job.Order.CustomerID).Error; err == nil {
		h.Notifier.SendAsync(customer.FCMToken,
			"Collection update",
			fmt.Sprintf("Order %s: %s", job.Order.OrderNo, input.Status),
			map[string]string{"order_id": fmt.Sprintf("%d", job.OrderID), "type": "job_status"})
	}

	utils.APIResponse(c, http.StatusOK, true, "Job status updated", job)
}

func transitionAllowed(from, to string) bool {
	for _, allowed := range jobTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func (h *PlebHandler) callerProfile(c *gin.Context) (*models.PlebProfile, bool) {
	var profile models.PlebProfile
	err := h.DB.Where("user_id = ?", middleware.CallerID(c)).First(&profile).Error
	if err != nil {
		utils.APIResponse(c, http.StatusForbidden, false, "Phlebotomist profile not found", nil)
		c.Abort()
		return nil, false
	}
	return &profile, true
}

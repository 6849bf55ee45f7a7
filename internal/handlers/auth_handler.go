package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"phlebcare-backend/internal/models"
	"phlebcare-backend/pkg/utils"
)

type AuthHandler struct {
	DB *gorm.DB
}

func NewAuthHandler(db *gorm.DB) *AuthHandler {
	return &AuthHandler{DB: db}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var input models.RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.APIResponse(c, http.StatusBadRequest, false, "Invalid input", err.Error())
		return
	}

	hashedPassword, err := utils.HashPassword(input.Password)
	if err != nil {
		utils.APIResponse(c, http.StatusInternalServerError, false, "Failed to process password", nil)
		return
	}

	user := models.User{
		FullName:     input.FullName,
		Email:        input.Email,
		PasswordHash: hashedPassword,
		RoleID:       input.RoleID,
		Phone:        input.Phone,
	}

	if err := h.DB.Create(&user).Error; err != nil {
		utils.APIResponse(c, http.StatusConflict, false, "Email or phone already registered", nil)
		return
	}

	utils.APIResponse(c, http.StatusCreated, true, "Registration successful, please log in", user)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var input models.LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.APIResponse(c, http.StatusBadRequest, false, "Invalid input", nil)
		return
	}

	var user models.User
	if err := h.DB.Where("email = ?", input.Email).First(&user).Error; err != nil {
		utils.APIResponse(c, http.StatusUnauthorized, false, "Wrong email or password", nil)
		return
	}

	if !utils.CheckPassword(input.Password, user.PasswordHash) {
		utils.APIResponse(c, http.StatusUnauthorized, false, "Wrong email or password", nil)
		return
	}

	// Store the device token so order/job pushes reach this device.
	if input.FCMToken != "" {
		h.DB.Model(&user).Update("fcm_token", input.FCMToken)
	}

	token, err := utils.GenerateToken(user.ID, user.RoleID)
	if err != nil {
		utils.APIResponse(c, http.StatusInternalServerError, false, "Failed to generate token", nil)
		return
	}

	utils.APIResponse(c, http.StatusOK, true, "Login successful", gin.H{
		"token": token,
		"user": gin.H{
			"id":        user.ID,
			"full_name": user.FullName,
			"role_id":   user.RoleID,
			"email":     user.Email,
		},
	})
}

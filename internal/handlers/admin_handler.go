package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/railbook/railway-booking-backend/internal/database"
	"github.com/railbook/railway-booking-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// AdminHandler handles super-admin user management
type AdminHandler struct {
	userRepo *database.UserRepository
	logger   *logrus.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(userRepo *database.UserRepository, logger *logrus.Logger) *AdminHandler {
	return &AdminHandler{
		userRepo: userRepo,
		logger:   logger,
	}
}

// UpdateUserRole promotes a user to admin
// PUT /api/v1/admin/users/role
func (h *AdminHandler) UpdateUserRole(c *gin.Context) {
	var req models.UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username of the target user is required"})
		return
	}

	user, err := h.userRepo.PromoteToAdmin(req.Username)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		case errors.Is(err, database.ErrAlreadyAdmin):
			c.JSON(http.StatusConflict, gin.H{"error": "User is already an admin"})
		default:
			h.logger.WithError(err).Error("Failed to update user role")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user role"})
		}
		return
	}

	h.logger.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"username": user.Username,
	}).Info("User promoted to admin")

	c.JSON(http.StatusOK, gin.H{
		"message": "User role updated to admin successfully",
		"user":    user,
	})
}

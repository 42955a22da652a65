package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/railbook/railway-booking-backend/internal/database"
	"github.com/railbook/railway-booking-backend/internal/middleware"
	"github.com/railbook/railway-booking-backend/internal/models"
	"github.com/railbook/railway-booking-backend/internal/services"
	"github.com/sirupsen/logrus"
)

// SeatBooker books seats; implemented by services.BookingService
type SeatBooker interface {
	BookSeat(trainID, userID int64, bookingDate string) (*models.Booking, error)
}

// BookingReader reads bookings; implemented by database.BookingRepository
type BookingReader interface {
	GetDetailByID(bookingID int64) (*models.BookingDetail, error)
	GetByUserID(userID int64) ([]models.BookingDetail, error)
}

// BookingHandler handles seat booking operations
type BookingHandler struct {
	bookingSvc  SeatBooker
	bookingRepo BookingReader
	logger      *logrus.Logger
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(bookingSvc SeatBooker, bookingRepo BookingReader, logger *logrus.Logger) *BookingHandler {
	return &BookingHandler{
		bookingSvc:  bookingSvc,
		bookingRepo: bookingRepo,
		logger:      logger,
	}
}

// CreateBooking books a seat for the authenticated user
// POST /api/v1/bookings
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "train_id and booking_date are required"})
		return
	}

	booking, err := h.bookingSvc.BookSeat(req.TrainID, userCtx.UserID, req.BookingDate)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidBookingDate):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date format. Use YYYY-MM-DD."})
		case errors.Is(err, services.ErrTrainNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Train not found"})
		case errors.Is(err, services.ErrNoSeatsAvailable):
			c.JSON(http.StatusConflict, gin.H{"error": "No seats available on this train for the selected date"})
		case errors.Is(err, services.ErrDuplicateBooking):
			c.JSON(http.StatusConflict, gin.H{"error": "You have already booked a seat on this train for this date"})
		default:
			h.logger.WithError(err).Error("Booking failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Booking is temporarily unavailable, please retry"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":    "Seat booked successfully",
		"booking_id": booking.ID,
	})
}

// GetBooking returns details of one booking. Users may only view their own
// bookings unless they are admins.
// GET /api/v1/bookings/:booking_id
func (h *BookingHandler) GetBooking(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	bookingID, err := strconv.ParseInt(c.Param("booking_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Valid booking_id parameter is required"})
		return
	}

	booking, err := h.bookingRepo.GetDetailByID(bookingID)
	if err != nil {
		if errors.Is(err, database.ErrBookingNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Booking not found"})
			return
		}
		h.logger.WithError(err).Error("Failed to fetch booking")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch booking"})
		return
	}

	if userCtx.Role != models.RoleAdmin && booking.UserID != userCtx.UserID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only view your own bookings"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"booking": booking})
}

// ListMyBookings returns all bookings of the authenticated user
// GET /api/v1/bookings
func (h *BookingHandler) ListMyBookings(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	bookings, err := h.bookingRepo.GetByUserID(userCtx.UserID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list bookings")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list bookings"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"bookings": bookings,
		"count":    len(bookings),
	})
}

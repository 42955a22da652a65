package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/railbook/railway-booking-backend/internal/database"
	"github.com/railbook/railway-booking-backend/internal/models"
	"github.com/railbook/railway-booking-backend/internal/services"
	"github.com/sirupsen/logrus"
)

// TrainHandler handles train management and availability queries
type TrainHandler struct {
	trainRepo       *database.TrainRepository
	availabilitySvc *services.AvailabilityService
	logger          *logrus.Logger
}

// NewTrainHandler creates a new train handler
func NewTrainHandler(trainRepo *database.TrainRepository, availabilitySvc *services.AvailabilityService, logger *logrus.Logger) *TrainHandler {
	return &TrainHandler{
		trainRepo:       trainRepo,
		availabilitySvc: availabilitySvc,
		logger:          logger,
	}
}

// CreateTrain adds a new train (admin only)
// POST /api/v1/admin/trains
func (h *TrainHandler) CreateTrain(c *gin.Context) {
	var req models.CreateTrainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "train_name, source_station, destination_station and a positive total_seats are required",
		})
		return
	}

	train := &models.Train{
		TrainName:          req.TrainName,
		SourceStation:      req.SourceStation,
		DestinationStation: req.DestinationStation,
		TotalSeats:         req.TotalSeats,
	}

	if err := h.trainRepo.Create(train); err != nil {
		h.logger.WithError(err).Error("Failed to create train")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add train"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":  "Train added successfully",
		"train_id": train.ID,
	})
}

// GetAvailability returns seat availability for all trains between two
// stations. The date defaults to today when omitted.
// GET /api/v1/trains/availability?source=A&destination=B[&date=YYYY-MM-DD]
func (h *TrainHandler) GetAvailability(c *gin.Context) {
	source := c.Query("source")
	destination := c.Query("destination")
	if source == "" || destination == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "source and destination query parameters are required"})
		return
	}

	date := time.Now().Truncate(24 * time.Hour)
	if dateStr := c.Query("date"); dateStr != "" {
		parsed, err := time.Parse(services.BookingDateLayout, dateStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date format. Use YYYY-MM-DD."})
			return
		}
		date = parsed
	}

	availability, err := h.availabilitySvc.SearchByRoute(source, destination, date)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get seat availability")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get seat availability"})
		return
	}

	if len(availability) == 0 {
		c.JSON(http.StatusOK, gin.H{
			"message":      "No trains found for the specified route",
			"availability": availability,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"availability": availability})
}

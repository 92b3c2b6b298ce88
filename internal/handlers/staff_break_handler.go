package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/BruksfildServices01/barbershop-booking/internal/cache"
	"github.com/BruksfildServices01/barbershop-booking/internal/models"
	"github.com/BruksfildServices01/barbershop-booking/internal/validators"
)

type StaffBreakHandler struct {
	db    *gorm.DB
	cache cache.Availability
}

func NewStaffBreakHandler(db *gorm.DB, c cache.Availability) *StaffBreakHandler {
	if c == nil {
		c = cache.Nop{}
	}
	return &StaffBreakHandler{db: db, cache: c}
}

// --------- Requests ---------

// Date set: pausa avulsa. DayOfWeek set (0 = domingo): semanal. Nenhum: diária.
type CreateStaffBreakRequest struct {
	BarberID  uint   `json:"barber_id" binding:"required"`
	Date      string `json:"date"`
	DayOfWeek *int   `json:"day_of_week"`
	StartTime string `json:"start_time" binding:"required"`
	EndTime   string `json:"end_time" binding:"required"`
	Reason    string `json:"reason"`
}

// --------- Handlers ---------

func (h *StaffBreakHandler) List(c *gin.Context) {
	q := h.db.WithContext(c.Request.Context())

	if s := strings.TrimSpace(c.Query("barberId")); s != "" {
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_barber_id"})
			return
		}
		q = q.Where("barber_id = ?", id)
	}

	var breaks []models.StaffBreak
	if err := q.
		Order("barber_id ASC").
		Order("start_time ASC").
		Find(&breaks).Error; err != nil {

		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed_to_list_breaks"})
		return
	}

	c.JSON(http.StatusOK, breaks)
}

func (h *StaffBreakHandler) Create(c *gin.Context) {
	var req CreateStaffBreakRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	if !validators.IsHM(req.StartTime) || !validators.IsHM(req.EndTime) || req.EndTime <= req.StartTime {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_time_range"})
		return
	}

	req.Date = strings.TrimSpace(req.Date)
	if req.Date != "" {
		if !validators.IsDate(req.Date) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_date"})
			return
		}
		req.DayOfWeek = nil
	}
	if req.DayOfWeek != nil && (*req.DayOfWeek < 0 || *req.DayOfWeek > 6) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_day_of_week"})
		return
	}

	ctx := c.Request.Context()

	var barber models.Barber
	if err := h.db.WithContext(ctx).First(&barber, req.BarberID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "barber_not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed_to_get_barber"})
		return
	}

	br := models.StaffBreak{
		BarberID:  barber.ID,
		Date:      req.Date,
		DayOfWeek: req.DayOfWeek,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Reason:    strings.TrimSpace(req.Reason),
	}

	if err := h.db.WithContext(ctx).Create(&br).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed_to_create_break"})
		return
	}

	h.cache.InvalidateBarber(ctx, br.BarberID)

	c.JSON(http.StatusCreated, br)
}

func (h *StaffBreakHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()

	var br models.StaffBreak
	if err := h.db.WithContext(ctx).First(&br, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "break_not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed_to_get_break"})
		return
	}

	if err := h.db.WithContext(ctx).Delete(&br).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed_to_delete_break"})
		return
	}

	h.cache.InvalidateBarber(ctx, br.BarberID)

	c.Status(http.StatusNoContent)
}

package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/BruksfildServices01/barbershop-booking/internal/httperr"
	"github.com/BruksfildServices01/barbershop-booking/internal/middleware"
	ucBooking "github.com/BruksfildServices01/barbershop-booking/internal/usecase/booking"
)

// ======================================================
// HANDLER
// ======================================================

type BookingHandler struct {
	create   *ucBooking.CreateBooking
	list     *ucBooking.ListBookings
	cancel   *ucBooking.CancelBooking
	complete *ucBooking.CompleteBooking
}

func NewBookingHandler(
	create *ucBooking.CreateBooking,
	list *ucBooking.ListBookings,
	cancel *ucBooking.CancelBooking,
	complete *ucBooking.CompleteBooking,
) *BookingHandler {
	return &BookingHandler{
		create:   create,
		list:     list,
		cancel:   cancel,
		complete: complete,
	}
}

// ======================================================
// REQUESTS
// ======================================================

type CreateBookingRequest struct {
	BarberID      uint   `json:"barberId" binding:"required"`
	ServiceID     uint   `json:"serviceId" binding:"required"`
	Date          string `json:"date" binding:"required"`
	Time          string `json:"time" binding:"required"`
	CustomerName  string `json:"customerName" binding:"required"`
	CustomerPhone string `json:"customerPhone" binding:"required"`
	CustomerEmail string `json:"customerEmail"`
	Notes         string `json:"notes"`
}

// ======================================================
// CREATE (PÚBLICO)
// ======================================================

func (h *BookingHandler) Create(c *gin.Context) {
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	b, err := h.create.Execute(c.Request.Context(), ucBooking.CreateBookingInput{
		BarberID:      req.BarberID,
		ServiceID:     req.ServiceID,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		CustomerEmail: req.CustomerEmail,
		Date:          req.Date,
		Time:          req.Time,
		Notes:         req.Notes,
	})
	if err != nil {
		writeUseCaseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, b)
}

// ======================================================
// ADMIN
// ======================================================

func (h *BookingHandler) List(c *gin.Context) {
	date := strings.TrimSpace(c.Query("date"))

	var barberID *uint
	if s := strings.TrimSpace(c.Query("barberId")); s != "" {
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			httperr.BadRequest(c, "invalid_params", "barberId inválido.")
			return
		}
		v := uint(id)
		barberID = &v
	}

	out, err := h.list.Execute(c.Request.Context(), date, barberID)
	if err != nil {
		writeUseCaseError(c, err)
		return
	}

	c.JSON(http.StatusOK, out)
}

func (h *BookingHandler) Cancel(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	b, err := h.cancel.Execute(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		writeUseCaseError(c, err)
		return
	}

	c.JSON(http.StatusOK, b)
}

func (h *BookingHandler) Complete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	b, err := h.complete.Execute(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		writeUseCaseError(c, err)
		return
	}

	c.JSON(http.StatusOK, b)
}

// parseID reads the :id path param, writing a 400 when it is not a positive
// integer.
func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		httperr.BadRequest(c, "invalid_id", "ID inválido.")
		return 0, false
	}
	return uint(id), true
}

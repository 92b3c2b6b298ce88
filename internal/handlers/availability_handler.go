package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	domain "github.com/BruksfildServices01/barbershop-booking/internal/domain/booking"
	"github.com/BruksfildServices01/barbershop-booking/internal/httperr"
	ucBooking "github.com/BruksfildServices01/barbershop-booking/internal/usecase/booking"
)

type AvailabilityHandler struct {
	getAvailability *ucBooking.GetAvailability
}

func NewAvailabilityHandler(uc *ucBooking.GetAvailability) *AvailabilityHandler {
	return &AvailabilityHandler{getAvailability: uc}
}

// Get answers GET /api/availability?barberId=&date=&serviceId= with the
// ascending list of free "HH:MM" start times.
func (h *AvailabilityHandler) Get(c *gin.Context) {
	barberStr := strings.TrimSpace(c.Query("barberId"))
	date := strings.TrimSpace(c.Query("date"))

	if barberStr == "" || date == "" {
		httperr.BadRequest(c, "missing_params", "barberId e date são obrigatórios.")
		return
	}

	barberID, err := strconv.ParseUint(barberStr, 10, 64)
	if err != nil || barberID == 0 {
		httperr.BadRequest(c, "invalid_params", "barberId inválido.")
		return
	}

	in := domain.AvailabilityInput{
		BarberID: uint(barberID),
		Date:     date,
	}

	// serviceId ilegível conta como ausente: duração padrão
	if s := strings.TrimSpace(c.Query("serviceId")); s != "" {
		if id, err := strconv.ParseUint(s, 10, 64); err == nil {
			sid := uint(id)
			in.ServiceID = &sid
		}
	}

	slots, err := h.getAvailability.Execute(c.Request.Context(), in)
	if err != nil {
		writeUseCaseError(c, err)
		return
	}

	c.JSON(http.StatusOK, slots)
}

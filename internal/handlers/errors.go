package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BruksfildServices01/barbershop-booking/internal/httperr"
	"github.com/BruksfildServices01/barbershop-booking/internal/logging"
)

var businessMessages = map[string]string{
	"missing_params":       "Parâmetros obrigatórios ausentes.",
	"invalid_date":         "Data inválida.",
	"invalid_date_or_time": "Data ou hora inválida.",
	"missing_customer":     "Nome e telefone do cliente são obrigatórios.",
	"invalid_email":        "E-mail inválido.",
	"invalid_phone":        "Telefone inválido.",
	"too_soon":             "Horário inválido.",
	"barber_not_found":     "Barbeiro não encontrado.",
	"service_not_found":    "Serviço não encontrado.",
	"booking_not_found":    "Agendamento não encontrado.",
	"slot_unavailable":     "Horário indisponível.",
	"time_conflict":        "Horário já ocupado.",
	"invalid_state":        "Status atual não permite esta operação.",
}

// writeUseCaseError maps a use case error to a JSON response. Anything that is
// not a business error is logged and answered with 500.
func writeUseCaseError(c *gin.Context, err error) {
	code, ok := httperr.BusinessCode(err)
	if !ok {
		logging.Error().
			Err(err).
			Str("path", c.FullPath()).
			Str("request_id", c.GetString(logging.RequestIDKey)).
			Msg("request failed")
		httperr.Internal(c, "internal_error", "Erro interno.")
		return
	}

	msg := businessMessages[code]
	if msg == "" {
		msg = code
	}

	httperr.Write(c, httperr.StatusFor(code), code, msg)
}

func invalidRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "invalid_request",
		"details": err.Error(),
	})
}

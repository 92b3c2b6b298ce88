package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/BruksfildServices01/barbershop-booking/internal/audit"
	"github.com/BruksfildServices01/barbershop-booking/internal/httperr"
	"github.com/BruksfildServices01/barbershop-booking/internal/middleware"
	"github.com/BruksfildServices01/barbershop-booking/internal/models"
	"github.com/BruksfildServices01/barbershop-booking/internal/reminder"
)

// ======================================================
// HANDLER
// ======================================================

type ReminderHandler struct {
	db        *gorm.DB
	scheduler *reminder.Scheduler
	audit     *audit.Dispatcher
}

func NewReminderHandler(
	db *gorm.DB,
	scheduler *reminder.Scheduler,
	audit *audit.Dispatcher,
) *ReminderHandler {
	return &ReminderHandler{
		db:        db,
		scheduler: scheduler,
		audit:     audit,
	}
}

// ======================================================
// REQUESTS
// ======================================================

type CreateReminderTemplateRequest struct {
	Name         string `json:"name"`
	Type         string `json:"type" binding:"required"`
	TriggerHours int    `json:"trigger_hours" binding:"required"`
	Message      string `json:"message" binding:"required"`
	Subject      string `json:"subject"`
	IsActive     *bool  `json:"is_active"`
}

type UpdateReminderTemplateRequest struct {
	Name         *string `json:"name,omitempty"`
	Type         *string `json:"type,omitempty"`
	TriggerHours *int    `json:"trigger_hours,omitempty"`
	Message      *string `json:"message,omitempty"`
	Subject      *string `json:"subject,omitempty"`
	IsActive     *bool   `json:"is_active,omitempty"`
}

// validateTemplate returns an error code, or "" when t is acceptable.
func validateTemplate(t *models.ReminderTemplate) string {
	if t.Type != models.ReminderTypeSMS && t.Type != models.ReminderTypeEmail {
		return "invalid_type"
	}
	if t.TriggerHours <= 0 {
		return "invalid_trigger_hours"
	}
	if strings.TrimSpace(t.Message) == "" {
		return "empty_message"
	}
	return ""
}

// ======================================================
// TEMPLATES
// ======================================================

func (h *ReminderHandler) ListTemplates(c *gin.Context) {
	var templates []models.ReminderTemplate
	if err := h.db.WithContext(c.Request.Context()).
		Order("trigger_hours DESC").
		Order("id ASC").
		Find(&templates).Error; err != nil {

		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed_to_list_templates"})
		return
	}

	c.JSON(http.StatusOK, templates)
}

func (h *ReminderHandler) CreateTemplate(c *gin.Context) {
	var req CreateReminderTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	t := models.ReminderTemplate{
		Name:         strings.TrimSpace(req.Name),
		Type:         strings.ToLower(strings.TrimSpace(req.Type)),
		TriggerHours: req.TriggerHours,
		Message:      req.Message,
		Subject:      req.Subject,
		IsActive:     true,
	}
	if req.IsActive != nil {
		t.IsActive = *req.IsActive
	}

	if code := validateTemplate(&t); code != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": code})
		return
	}

	if err := h.db.WithContext(c.Request.Context()).Create(&t).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed_to_create_template"})
		return
	}

	h.auditTemplate(c, "reminder_template_created", &t)

	c.JSON(http.StatusCreated, t)
}

func (h *ReminderHandler) UpdateTemplate(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()

	t, found := h.loadTemplate(c, id)
	if !found {
		return
	}

	var req UpdateReminderTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	if req.Name != nil {
		t.Name = strings.TrimSpace(*req.Name)
	}
	if req.Type != nil {
		t.Type = strings.ToLower(strings.TrimSpace(*req.Type))
	}
	if req.TriggerHours != nil {
		t.TriggerHours = *req.TriggerHours
	}
	if req.Message != nil {
		t.Message = *req.Message
	}
	if req.Subject != nil {
		t.Subject = *req.Subject
	}
	if req.IsActive != nil {
		t.IsActive = *req.IsActive
	}

	if code := validateTemplate(t); code != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": code})
		return
	}

	if err := h.db.WithContext(ctx).Save(t).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed_to_update_template"})
		return
	}

	h.auditTemplate(c, "reminder_template_updated", t)

	c.JSON(http.StatusOK, t)
}

// DeleteTemplate removes the template. Its logs stay, so history survives.
func (h *ReminderHandler) DeleteTemplate(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()

	t, found := h.loadTemplate(c, id)
	if !found {
		return
	}

	if err := h.db.WithContext(ctx).Delete(t).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed_to_delete_template"})
		return
	}

	h.auditTemplate(c, "reminder_template_deleted", t)

	c.Status(http.StatusNoContent)
}

func (h *ReminderHandler) loadTemplate(c *gin.Context, id uint) (*models.ReminderTemplate, bool) {
	var t models.ReminderTemplate
	if err := h.db.WithContext(c.Request.Context()).First(&t, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httperr.NotFound(c, "template_not_found", "Template não encontrado.")
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed_to_get_template"})
		return nil, false
	}
	return &t, true
}

func (h *ReminderHandler) auditTemplate(c *gin.Context, action string, t *models.ReminderTemplate) {
	h.audit.Dispatch(audit.Event{
		UserID:   middleware.UserID(c),
		Action:   action,
		Entity:   "reminder_template",
		EntityID: &t.ID,
		Metadata: map[string]any{
			"type":          t.Type,
			"trigger_hours": t.TriggerHours,
			"is_active":     t.IsActive,
		},
	})
}

// ======================================================
// LOGS
// ======================================================

func (h *ReminderHandler) ListLogs(c *gin.Context) {
	q := h.db.WithContext(c.Request.Context())

	if s := strings.TrimSpace(c.Query("bookingId")); s != "" {
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			httperr.BadRequest(c, "invalid_params", "bookingId inválido.")
			return
		}
		q = q.Where("booking_id = ?", id)
	}
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		q = q.Where("status = ?", status)
	}

	var logs []models.ReminderLog
	if err := q.
		Order("created_at DESC").
		Order("id DESC").
		Limit(500).
		Find(&logs).Error; err != nil {

		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed_to_list_logs"})
		return
	}

	c.JSON(http.StatusOK, logs)
}

// ======================================================
// SCHEDULER
// ======================================================

func (h *ReminderHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.scheduler.Status())
}

// Trigger runs one check cycle now and answers with its summary.
func (h *ReminderHandler) Trigger(c *gin.Context) {
	// um envio aceito pelo provedor precisa ser registrado mesmo se o cliente cair
	res, err := h.scheduler.TriggerCheck(context.WithoutCancel(c.Request.Context()))
	if err != nil {
		if errors.Is(err, reminder.ErrCycleInProgress) {
			httperr.Conflict(c, "cycle_in_progress", "Já existe uma verificação em andamento.")
			return
		}
		writeUseCaseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *ReminderHandler) Start(c *gin.Context) {
	// o loop sobrevive à requisição
	started := h.scheduler.Start(context.WithoutCancel(c.Request.Context()))
	c.JSON(http.StatusOK, gin.H{
		"started": started,
		"status":  h.scheduler.Status(),
	})
}

func (h *ReminderHandler) Stop(c *gin.Context) {
	stopped := h.scheduler.Stop()
	c.JSON(http.StatusOK, gin.H{
		"stopped": stopped,
		"status":  h.scheduler.Status(),
	})
}

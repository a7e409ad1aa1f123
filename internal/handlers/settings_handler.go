package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"drivebridge/backend/internal/models"
	"drivebridge/backend/internal/services"
)

// UpdateSettingsPayload carries the logical root configuration; absent
// fields stay unchanged.
type UpdateSettingsPayload struct {
	RootPathEnabled *bool   `json:"rootPathEnabled"`
	RootPath        *string `json:"rootPath"`
}

type AccessRulePayload struct {
	Action   models.AccessRuleAction `json:"action" binding:"required"`
	Path     string                  `json:"path" binding:"required"`
	Password string                  `json:"password"`
}

type SettingsHandler struct {
	settings *services.SettingsService
}

func NewSettingsHandler(settings *services.SettingsService) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// Get returns the drive's settings, creating them on first access.
func (h *SettingsHandler) Get(c *gin.Context) {
	settings, err := h.settings.GetOrCreate(c.Request.Context(), c.Param("driveId"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// Update changes the logical root configuration.
func (h *SettingsHandler) Update(c *gin.Context) {
	var payload UpdateSettingsPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload: " + err.Error()})
		return
	}

	settings, err := h.settings.UpdateRootPath(c.Request.Context(), c.Param("driveId"), payload.RootPathEnabled, payload.RootPath)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// AddRule appends a new access rule.
func (h *SettingsHandler) AddRule(c *gin.Context) {
	var payload AccessRulePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload: " + err.Error()})
		return
	}

	rule, err := h.settings.AddRule(c.Request.Context(), c.Param("driveId"), payload.Action, payload.Path, payload.Password)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rule)
}

// UpdateRule replaces an existing access rule.
func (h *SettingsHandler) UpdateRule(c *gin.Context) {
	var payload AccessRulePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload: " + err.Error()})
		return
	}

	rule, err := h.settings.UpdateRule(c.Request.Context(), c.Param("driveId"), c.Param("ruleId"), payload.Action, payload.Path, payload.Password)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

// DeleteRule removes an access rule.
func (h *SettingsHandler) DeleteRule(c *gin.Context) {
	if err := h.settings.DeleteRule(c.Request.Context(), c.Param("driveId"), c.Param("ruleId")); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Access rule deleted successfully"})
}

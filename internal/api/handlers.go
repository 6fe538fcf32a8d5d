package api

import (
	"net/http"
	"strconv"
	"strings"

	"siteguard/internal/engine"
	"siteguard/internal/models"
	"siteguard/internal/services"
	"siteguard/internal/stats"
	"siteguard/internal/storage"

	"github.com/gin-gonic/gin"
)

// Handler holds service dependencies
type Handler struct {
	store       storage.Gateway
	engine      *engine.Engine
	recorder    *stats.Recorder
	badge       *services.BadgeService
	authService *services.AuthService
}

// NewHandler creates a new API handler
func NewHandler(store storage.Gateway, eng *engine.Engine, recorder *stats.Recorder, badge *services.BadgeService, authService *services.AuthService) *Handler {
	return &Handler{
		store:       store,
		engine:      eng,
		recorder:    recorder,
		badge:       badge,
		authService: authService,
	}
}

// SetupRoutes configures all API routes
func SetupRoutes(r *gin.Engine, handler *Handler) {
	api := r.Group("/api/v1")
	{
		// Tab events from the browser shim
		api.POST("/events/navigation", handler.Navigation)
		api.POST("/events/activated", handler.Activated)
		api.POST("/events/focus-lost", handler.FocusLost)
		api.POST("/events/popup", handler.PopupOpened)
		api.GET("/badge", handler.GetBadge)

		// Authentication (no auth required)
		api.POST("/auth/login", handler.Login)
		api.POST("/auth/validate", handler.ValidateToken)

		// Budget management (password-gated when protection is on)
		edit := api.Group("", handler.RequireUnlocked)
		{
			edit.PUT("/websites", handler.UpsertWebsite)
			edit.DELETE("/websites/:domain", handler.DeleteWebsite)
			edit.PUT("/groups", handler.UpsertGroup)
			edit.DELETE("/groups/:name", handler.DeleteGroup)
			edit.PUT("/settings", handler.UpdateSettings)
		}
		api.GET("/websites", handler.ListWebsites)
		api.GET("/groups", handler.ListGroups)
		api.GET("/settings", handler.GetSettings)

		// Statistics
		api.GET("/stats/today", handler.StatsToday)
		api.GET("/stats/history", handler.StatsHistory)
		api.GET("/stats/top", handler.StatsTop)
	}
}

// RequireUnlocked rejects edit requests without a valid token while a
// settings password is configured. With no password set, the gate is
// open.
func (h *Handler) RequireUnlocked(c *gin.Context) {
	settings, err := storage.LoadSettings(c.Request.Context(), h.store)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if settings.PasswordHash == "" {
		c.Next()
		return
	}

	token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Password protection is enabled"})
		return
	}
	if _, err := h.authService.ValidateToken(token); err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}
	c.Next()
}

// Navigation evaluates a navigation event and returns the decision
func (h *Handler) Navigation(c *gin.Context) {
	var event engine.TabEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	event.Kind = engine.EventNavigation

	decision := h.engine.Evaluate(c.Request.Context(), event)
	c.JSON(http.StatusOK, decision)
}

// Activated queues a debounced evaluation of a tab-activated event
func (h *Handler) Activated(c *gin.Context) {
	var event engine.TabEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	event.Kind = engine.EventActivated

	h.engine.HandleEvent(event)
	c.JSON(http.StatusAccepted, gin.H{"message": "Event queued"})
}

// FocusLost stops the accounting timer when the window loses focus
func (h *Handler) FocusLost(c *gin.Context) {
	h.engine.HandleEvent(engine.TabEvent{Kind: engine.EventFocusLost})
	c.JSON(http.StatusOK, gin.H{"message": "Timer stopped"})
}

// PopupOpened stops the accounting timer so popup-open time is not
// charged
func (h *Handler) PopupOpened(c *gin.Context) {
	h.engine.HandleEvent(engine.TabEvent{Kind: engine.EventPopupOpen})
	c.JSON(http.StatusOK, gin.H{"message": "Timer stopped"})
}

// GetBadge returns the current badge text and color
func (h *Handler) GetBadge(c *gin.Context) {
	c.JSON(http.StatusOK, h.badge.Current())
}

// ListWebsites retrieves all per-website budgets
func (h *Handler) ListWebsites(c *gin.Context) {
	websites, err := storage.LoadBlockedWebsites(c.Request.Context(), h.store)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, websites)
}

// UpsertWebsite creates or replaces a per-website budget
func (h *Handler) UpsertWebsite(c *gin.Context) {
	var website models.BlockedWebsite
	if err := c.ShouldBindJSON(&website); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	domain, err := models.CanonicalDomain(website.Website)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid website"})
		return
	}
	website.Website = domain

	websites, err := storage.LoadBlockedWebsites(c.Request.Context(), h.store)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// A fresh record starts its day today; an edit keeps accrued time.
	if existing, ok := websites[domain]; ok {
		website.TotalTime = existing.TotalTime
		website.LastAccessedDate = existing.LastAccessedDate
	}
	websites[domain] = &website

	if err := storage.SaveBlockedWebsites(c.Request.Context(), h.store, websites); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, website)
}

// DeleteWebsite removes a per-website budget
func (h *Handler) DeleteWebsite(c *gin.Context) {
	domain := c.Param("domain")

	websites, err := storage.LoadBlockedWebsites(c.Request.Context(), h.store)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if _, ok := websites[domain]; !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Website not found"})
		return
	}
	delete(websites, domain)

	if err := storage.SaveBlockedWebsites(c.Request.Context(), h.store, websites); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Website deleted successfully"})
}

// ListGroups retrieves all group budgets
func (h *Handler) ListGroups(c *gin.Context) {
	groups, err := storage.LoadGroupBudgets(c.Request.Context(), h.store)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if groups == nil {
		groups = []*models.GroupTimeBudget{}
	}
	c.JSON(http.StatusOK, groups)
}

// UpsertGroup creates or replaces a group budget by name
func (h *Handler) UpsertGroup(c *gin.Context) {
	var group models.GroupTimeBudget
	if err := c.ShouldBindJSON(&group); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !group.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Group needs a name and at least one website"})
		return
	}

	canonical := make([]string, 0, len(group.Websites))
	for _, raw := range group.Websites {
		domain, err := models.CanonicalDomain(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid website: " + raw})
			return
		}
		canonical = append(canonical, domain)
	}
	group.Websites = canonical

	groups, err := storage.LoadGroupBudgets(c.Request.Context(), h.store)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	replaced := false
	for i, existing := range groups {
		if existing.Name == group.Name {
			group.TotalTime = existing.TotalTime
			group.LastAccessedDate = existing.LastAccessedDate
			groups[i] = &group
			replaced = true
			break
		}
	}
	if !replaced {
		groups = append(groups, &group)
	}

	if err := storage.SaveGroupBudgets(c.Request.Context(), h.store, groups); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, group)
}

// DeleteGroup removes a group budget
func (h *Handler) DeleteGroup(c *gin.Context) {
	name := c.Param("name")

	groups, err := storage.LoadGroupBudgets(c.Request.Context(), h.store)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	kept := groups[:0]
	found := false
	for _, group := range groups {
		if group.Name == name {
			found = true
			continue
		}
		kept = append(kept, group)
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Group not found"})
		return
	}

	if err := storage.SaveGroupBudgets(c.Request.Context(), h.store, kept); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Group deleted successfully"})
}

// GetSettings retrieves the installation settings
func (h *Handler) GetSettings(c *gin.Context) {
	settings, err := storage.LoadSettings(c.Request.Context(), h.store)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"password_protected":       settings.PasswordHash != "",
		"white_list_paths_enabled": settings.WhiteListPathsEnabled,
	})
}

// UpdateSettings updates the installation settings. A new password is
// hashed before storage; an empty password disables protection.
func (h *Handler) UpdateSettings(c *gin.Context) {
	var req struct {
		Password              *string `json:"password"`
		WhiteListPathsEnabled *bool   `json:"white_list_paths_enabled"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	settings, err := storage.LoadSettings(c.Request.Context(), h.store)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if req.Password != nil {
		if *req.Password == "" {
			settings.PasswordHash = ""
		} else {
			hash, err := h.authService.HashPassword(*req.Password)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
				return
			}
			settings.PasswordHash = hash
		}
	}
	if req.WhiteListPathsEnabled != nil {
		settings.WhiteListPathsEnabled = *req.WhiteListPathsEnabled
	}

	if err := storage.SaveSettings(c.Request.Context(), h.store, settings); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Settings updated successfully"})
}

// StatsToday returns the current day's counters
func (h *Handler) StatsToday(c *gin.Context) {
	today, err := h.recorder.Today(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, today)
}

// StatsHistory returns the archived per-day aggregates
func (h *Handler) StatsHistory(c *gin.Context) {
	blocked, restricted, err := h.recorder.History(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"blocked_per_day":         blocked,
		"restricted_time_per_day": restricted,
	})
}

// StatsTop returns the most-blocked websites
func (h *Handler) StatsTop(c *gin.Context) {
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	top, err := h.recorder.TopBlocked(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, top)
}

// Login exchanges the settings password for a session token
func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password is required"})
		return
	}

	settings, err := storage.LoadSettings(c.Request.Context(), h.store)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if settings.PasswordHash == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password protection is not enabled"})
		return
	}
	if !h.authService.CheckPassword(settings.PasswordHash, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Wrong password"})
		return
	}

	token, err := h.authService.GenerateToken()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// ValidateToken validates a session token
func (h *Handler) ValidateToken(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Token is required"})
		return
	}

	if _, err := h.authService.ValidateToken(req.Token); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true})
}

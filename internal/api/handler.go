package api

import (
	"context"
	"io"
	"mime"
	"net/http"
	"time"

	"excel-insights-api/internal/config"
	"excel-insights-api/internal/logger"
	"excel-insights-api/internal/model"
	"excel-insights-api/internal/service"
	"excel-insights-api/internal/storage"
	"excel-insights-api/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const healthCheckTimeout = 2 * time.Second

type Handler struct {
	files    *service.FileService
	admin    *service.AdminService
	accounts *service.AccountService
	checks   map[string]func(context.Context) error
	cfg      *config.Config
	log      zerolog.Logger
}

func NewHandler(
	files *service.FileService,
	admin *service.AdminService,
	accounts *service.AccountService,
	cfg *config.Config,
) *Handler {
	return &Handler{
		files:    files,
		admin:    admin,
		accounts: accounts,
		checks:   map[string]func(context.Context) error{},
		cfg:      cfg,
		log:      logger.Get(),
	}
}

// WithHealthCheck registers a dependency checked by the health endpoint.
func (h *Handler) WithHealthCheck(name string, check func(context.Context) error) *Handler {
	h.checks[name] = check
	return h
}

func (h *Handler) Signup(c *gin.Context) {
	var req model.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "All fields are required"})
		return
	}

	resp, err := h.accounts.Signup(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err, "User")
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
		return
	}

	resp, err := h.accounts.Login(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err, "User")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) CurrentUser(c *gin.Context) {
	user, err := h.accounts.Me(c.Request.Context(), identity(c))
	if err != nil {
		h.respondError(c, err, "User")
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	var req model.ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	user, err := h.accounts.UpdateProfile(c.Request.Context(), identity(c), req)
	if err != nil {
		h.respondError(c, err, "User")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated successfully", "user": user})
}

func (h *Handler) UploadFile(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}

	f, err := header.Open()
	if err != nil {
		h.respondError(c, err, "File")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		h.respondError(c, err, "File")
		return
	}

	record, err := h.files.Upload(c.Request.Context(), identity(c), service.UploadInput{
		Filename: header.Filename,
		MIMEType: header.Header.Get("Content-Type"),
		Size:     header.Size,
		Data:     data,
	})
	if err != nil {
		h.respondError(c, err, "File")
		return
	}

	c.JSON(http.StatusOK, model.UploadResponse{
		FileID:   record.ID,
		Filename: record.OriginalName,
		Data:     record.Data,
	})
}

func (h *Handler) ListFiles(c *gin.Context) {
	files, err := h.files.List(c.Request.Context(), identity(c))
	if err != nil {
		h.respondError(c, err, "File")
		return
	}
	c.JSON(http.StatusOK, files)
}

func (h *Handler) GetFile(c *gin.Context) {
	record, err := h.files.Get(c.Request.Context(), identity(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err, "File")
		return
	}
	c.JSON(http.StatusOK, model.UploadResponse{
		FileID:   record.ID,
		Filename: record.OriginalName,
		Data:     record.Data,
	})
}

func (h *Handler) DeleteFile(c *gin.Context) {
	if err := h.files.Delete(c.Request.Context(), identity(c), c.Param("id")); err != nil {
		h.respondError(c, err, "File")
		return
	}
	c.JSON(http.StatusOK, model.MessageResponse{Message: "File deleted successfully"})
}

func (h *Handler) DownloadFile(c *gin.Context) {
	dl, err := h.files.DownloadBinary(c.Request.Context(), identity(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err, "File")
		return
	}
	defer dl.Body.Close()

	contentType := storage.ContentType(dl.Filename)
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": dl.Filename})

	c.DataFromReader(http.StatusOK, dl.Size, contentType, dl.Body, map[string]string{
		"Content-Disposition": disposition,
	})
}

func (h *Handler) DashboardStats(c *gin.Context) {
	stats, err := h.files.DashboardStats(c.Request.Context(), identity(c))
	if err != nil {
		h.respondError(c, err, "File")
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) GetSettings(c *gin.Context) {
	settings, err := h.admin.GetSettings(c.Request.Context(), identity(c))
	if err != nil {
		h.respondError(c, err, "Settings")
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (h *Handler) UpdateSettings(c *gin.Context) {
	var req model.SettingsUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, errors.NewValidationError("body", nil, "Missing required fields"), "Settings")
		return
	}

	settings, err := h.admin.UpdateSettings(c.Request.Context(), identity(c), req)
	if err != nil {
		h.respondError(c, err, "Settings")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Settings updated successfully", "settings": settings})
}

func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.admin.ListUsers(c.Request.Context(), identity(c))
	if err != nil {
		h.respondError(c, err, "User")
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *Handler) GetUser(c *gin.Context) {
	user, err := h.admin.GetUser(c.Request.Context(), identity(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err, "User")
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) DeleteUser(c *gin.Context) {
	if err := h.admin.DeleteUser(c.Request.Context(), identity(c), c.Param("id")); err != nil {
		h.respondError(c, err, "User")
		return
	}
	c.JSON(http.StatusOK, model.MessageResponse{Message: "User deleted successfully"})
}

func (h *Handler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	status := "healthy"
	code := http.StatusOK
	deps := gin.H{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.log.Warn().Err(err).Str("dependency", name).Msg("Health check failed")
			deps[name] = "unavailable"
			status, code = "degraded", http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	c.JSON(code, gin.H{
		"status":       status,
		"service":      h.cfg.App.Name,
		"version":      h.cfg.App.Version,
		"dependencies": deps,
	})
}

package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"url-shortener/internal/apperrs"
	"url-shortener/internal/clicks"
	"url-shortener/internal/geo"
	"url-shortener/internal/service"
)

const (
	msgInvalidBody    = "Invalid request body"
	msgCreateFailed   = "Internal server error occurred while creating short URL"
	msgInternalError  = "Internal Server Error"
	msgNotFound       = "Not Found"
	defaultQRCodeSize = 256
)

// ShortURLService is what the handlers need from the service layer.
type ShortURLService interface {
	CreateShortURL(ctx context.Context, in service.CreateInput) (*service.Created, error)
	GetStats(ctx context.Context, shortCode string) (*service.Stats, error)
	ResolveAndRecord(ctx context.Context, shortCode string, visit service.Visit) (string, error)
	ShortLink(ctx context.Context, shortCode string) (string, error)
}

// Pinger reports database reachability. *sql.DB satisfies it.
type Pinger interface {
	Ping() error
}

// QueueStatusProvider exposes the asynchronous click queue, when one runs.
type QueueStatusProvider interface {
	Status() clicks.QueueStatus
}

// CreateShortURLRequest is the body of POST /shorturls. Validity is kept raw
// so that a non-integer value falls back to the default instead of failing.
type CreateShortURLRequest struct {
	URL       string          `json:"url"`
	Validity  json.RawMessage `json:"validity,omitempty"`
	Shortcode string          `json:"shortcode,omitempty"`
}

type CreateShortURLResponse struct {
	ShortLink string `json:"shortLink"`
	Expiry    string `json:"expiry"`
}

type ClickDetailResponse struct {
	Timestamp string       `json:"timestamp"`
	Referrer  string       `json:"referrer"`
	IPAddress string       `json:"ipAddress"`
	Location  geo.Location `json:"location"`
}

type StatsResponse struct {
	OriginalURL  string                `json:"originalUrl"`
	CreationDate string                `json:"creationDate"`
	ExpiryDate   string                `json:"expiryDate"`
	TotalClicks  int                   `json:"totalClicks"`
	ClickDetails []ClickDetailResponse `json:"clickDetails"`
}

// Handler serves the short URL endpoints.
type Handler struct {
	svc    ShortURLService
	log    *zap.Logger
	db     Pinger
	queue  QueueStatusProvider
	qrSize int
}

func NewHandler(svc ShortURLService, logger *zap.Logger, db Pinger, queue QueueStatusProvider, qrSize int) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if qrSize <= 0 {
		qrSize = defaultQRCodeSize
	}
	return &Handler{svc: svc, log: logger, db: db, queue: queue, qrSize: qrSize}
}

// CreateShortURL handles POST /shorturls.
func (h *Handler) CreateShortURL(c *gin.Context) {
	var req CreateShortURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("invalid create request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidBody})
		return
	}

	created, err := h.svc.CreateShortURL(c.Request.Context(), service.CreateInput{
		URL:             req.URL,
		ValidityMinutes: parseValidity(req.Validity),
		ShortCode:       req.Shortcode,
	})
	if err != nil {
		h.respondError(c, err, msgCreateFailed)
		return
	}

	c.JSON(http.StatusCreated, CreateShortURLResponse{
		ShortLink: created.ShortLink,
		Expiry:    formatTimestamp(created.Expiry),
	})
}

// GetStats handles GET /shorturls/:shortcode.
func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.svc.GetStats(c.Request.Context(), c.Param("shortcode"))
	if err != nil {
		h.respondError(c, err, msgInternalError)
		return
	}

	details := make([]ClickDetailResponse, 0, len(stats.Clicks))
	for _, click := range stats.Clicks {
		details = append(details, ClickDetailResponse{
			Timestamp: formatTimestamp(click.Timestamp),
			Referrer:  click.Referrer,
			IPAddress: click.IPAddress,
			Location:  click.Location,
		})
	}

	c.JSON(http.StatusOK, StatsResponse{
		OriginalURL:  stats.OriginalURL,
		CreationDate: formatTimestamp(stats.CreatedAt),
		ExpiryDate:   formatTimestamp(stats.ExpiresAt),
		TotalClicks:  stats.TotalClicks,
		ClickDetails: details,
	})
}

// Redirect handles GET /:shortcode.
func (h *Handler) Redirect(c *gin.Context) {
	target, err := h.svc.ResolveAndRecord(c.Request.Context(), c.Param("shortcode"), service.Visit{
		Referrer: c.GetHeader("Referer"),
		ClientIP: clientIP(c),
	})
	if err != nil {
		h.respondError(c, err, msgInternalError)
		return
	}
	c.Redirect(http.StatusFound, target)
}

// QRCode handles GET /shorturls/:shortcode/qr with a PNG of the short link.
func (h *Handler) QRCode(c *gin.Context) {
	link, err := h.svc.ShortLink(c.Request.Context(), c.Param("shortcode"))
	if err != nil {
		h.respondError(c, err, msgInternalError)
		return
	}

	png, err := qrcode.Encode(link, qrcode.Medium, h.qrSize)
	if err != nil {
		h.log.Error("failed to encode QR code", zap.String("link", link), zap.Error(err))
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgInternalError})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// HealthCheck provides a simple liveness endpoint.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}

// Status reports database reachability and click queue activity.
func (h *Handler) Status(c *gin.Context) {
	code := http.StatusOK
	resp := gin.H{"status": "UP", "database": "UP"}

	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			h.log.Error("database ping failed", zap.Error(err))
			code = http.StatusServiceUnavailable
			resp["status"] = "DEGRADED"
			resp["database"] = "DOWN"
		}
	}

	if h.queue != nil {
		resp["click_queue"] = h.queue.Status()
	} else {
		resp["click_queue"] = gin.H{"mode": "synchronous"}
	}

	c.JSON(code, resp)
}

// NotFound answers requests that match no route.
func NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": msgNotFound})
}

func (h *Handler) respondError(c *gin.Context, err error, fallback string) {
	status := apperrs.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, gin.H{"error": apperrs.PublicMessage(err, fallback)})
}

// parseValidity returns the validity in minutes when raw is a JSON integer.
func parseValidity(raw json.RawMessage) *int {
	if len(raw) == 0 {
		return nil
	}
	var minutes int
	if err := json.Unmarshal(raw, &minutes); err != nil {
		return nil
	}
	return &minutes
}

// clientIP prefers the first X-Forwarded-For hop over the peer address.
func clientIP(c *gin.Context) string {
	if forwarded := c.GetHeader("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	return c.RemoteIP()
}

// formatTimestamp renders t as ISO-8601 UTC with a Z suffix. Microseconds are
// printed only when non-zero.
func formatTimestamp(t time.Time) string {
	t = t.UTC()
	if t.Nanosecond()/int(time.Microsecond) == 0 {
		return t.Format("2006-01-02T15:04:05") + "Z"
	}
	return t.Format("2006-01-02T15:04:05.000000") + "Z"
}

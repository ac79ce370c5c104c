package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RouterParams carries the router's dependencies.
type RouterParams struct {
	Service    ShortURLService
	Logger     *zap.Logger
	DB         Pinger
	ClickQueue QueueStatusProvider // nil when clicks are recorded synchronously

	RateLimitRPS   float64 // 0 disables rate limiting
	RateLimitBurst int
	TrustedProxies []string // Proxies whose X-Forwarded-For the rate limiter believes
	QRCodeSize     int
}

// SetupRouter initializes and configures the Gin router.
func SetupRouter(p RouterParams) *gin.Engine {
	r := gin.New()
	r.RedirectTrailingSlash = false
	if err := r.SetTrustedProxies(p.TrustedProxies); err != nil && p.Logger != nil {
		p.Logger.Warn("ignoring invalid trusted proxies", zap.Strings("trusted_proxies", p.TrustedProxies), zap.Error(err))
	}

	r.Use(LoggerMiddleware(p.Logger))
	r.Use(gin.CustomRecovery(RecoveryHandler(p.Logger)))

	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	r.Use(cors.New(config))

	if p.RateLimitRPS > 0 {
		r.Use(NewRateLimiter(rate.Limit(p.RateLimitRPS), p.RateLimitBurst).Middleware())
	}

	h := NewHandler(p.Service, p.Logger, p.DB, p.ClickQueue, p.QRCodeSize)

	r.GET("/health", h.HealthCheck)
	r.GET("/status", h.Status)

	r.POST("/shorturls", h.CreateShortURL)
	r.GET("/shorturls/:shortcode", h.GetStats)
	r.GET("/shorturls/:shortcode/qr", h.QRCode)
	r.GET("/:shortcode", h.Redirect)

	r.NoRoute(NotFound)

	return r
}

package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"url-shortener/internal/apperrs"
	"url-shortener/internal/mocks"
	"url-shortener/internal/service"
)

type pingerFunc func() error

func (f pingerFunc) Ping() error { return f() }

type RouterSuite struct {
	suite.Suite

	svc    *mocks.ShortURLServiceMock
	router *gin.Engine
}

func (s *RouterSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
}

func (s *RouterSuite) SetupTest() {
	s.svc = new(mocks.ShortURLServiceMock)
	s.router = SetupRouter(RouterParams{Service: s.svc, Logger: zap.NewNop()})
}

func (s *RouterSuite) TearDownTest() {
	s.svc.AssertExpectations(s.T())
}

func (s *RouterSuite) errorOf(w *httptest.ResponseRecorder) string {
	var body map[string]string
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body["error"]
}

func (s *RouterSuite) TestCreateStorageFailureHidesDetail() {
	s.svc.On("CreateShortURL", mock.Anything, service.CreateInput{URL: "https://example.com"}).
		Return(nil, apperrs.Storage("registry.Create", errors.New("pq: password authentication failed"))).Once()

	w := doRequest(s.router, http.MethodPost, "/shorturls", map[string]any{"url": "https://example.com"}, nil)
	s.Equal(http.StatusInternalServerError, w.Code)
	s.Equal(msgCreateFailed, s.errorOf(w))
}

func (s *RouterSuite) TestCreateAllocationExhausted() {
	s.svc.On("CreateShortURL", mock.Anything, mock.Anything).
		Return(nil, apperrs.Wrap(apperrs.ErrAllocationExhausted, "registry.Create", nil)).Once()

	w := doRequest(s.router, http.MethodPost, "/shorturls", map[string]any{"url": "https://example.com"}, nil)
	s.Equal(http.StatusInternalServerError, w.Code)
	s.Equal(msgCreateFailed, s.errorOf(w))
}

func (s *RouterSuite) TestCreatePassesValidity() {
	s.svc.On("CreateShortURL", mock.Anything, mock.MatchedBy(func(in service.CreateInput) bool {
		return in.URL == "https://example.com" && in.ValidityMinutes != nil && *in.ValidityMinutes == 15 && in.ShortCode == "abcd"
	})).Return(&service.Created{
		ShortCode: "abcd",
		ShortLink: "http://sho.rt/abcd",
		Expiry:    time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}, nil).Once()

	w := doRequest(s.router, http.MethodPost, "/shorturls", map[string]any{"url": "https://example.com", "validity": 15, "shortcode": "abcd"}, nil)
	s.Equal(http.StatusCreated, w.Code)
	s.JSONEq(`{"shortLink":"http://sho.rt/abcd","expiry":"2025-01-02T03:04:05Z"}`, w.Body.String())
}

func (s *RouterSuite) TestRedirectExpired() {
	s.svc.On("ResolveAndRecord", mock.Anything, "old1", service.Visit{Referrer: "", ClientIP: "203.0.113.9"}).
		Return("", apperrs.Wrap(apperrs.ErrExpired, "service.ResolveAndRecord", nil)).Once()

	w := doRequest(s.router, http.MethodGet, "/old1", nil, map[string]string{"X-Forwarded-For": " 203.0.113.9 "})
	s.Equal(http.StatusGone, w.Code)
	s.Equal("Short URL has expired.", s.errorOf(w))
}

func (s *RouterSuite) TestStatsStorageFailure() {
	s.svc.On("GetStats", mock.Anything, "abcd").Return(nil, apperrs.Storage("clicks.ListByURL", errors.New("boom"))).Once()

	w := doRequest(s.router, http.MethodGet, "/shorturls/abcd", nil, nil)
	s.Equal(http.StatusInternalServerError, w.Code)
	s.Equal(msgInternalError, s.errorOf(w))
}

func (s *RouterSuite) TestStatsFormatsTimestamps() {
	s.svc.On("GetStats", mock.Anything, "abcd").Return(&service.Stats{
		OriginalURL: "https://example.com",
		CreatedAt:   time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
		ExpiresAt:   time.Date(2025, 1, 1, 12, 30, 0, 0, time.UTC),
		TotalClicks: 1,
		Clicks: []service.ClickDetail{{
			Timestamp: time.Date(2025, 1, 1, 12, 5, 6, 123456789, time.UTC),
			Referrer:  "Direct",
			IPAddress: "10.0.0.1",
		}},
	}, nil).Once()

	w := doRequest(s.router, http.MethodGet, "/shorturls/abcd", nil, nil)
	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`{
		"originalUrl": "https://example.com",
		"creationDate": "2025-01-01T12:00:00Z",
		"expiryDate": "2025-01-01T12:30:00Z",
		"totalClicks": 1,
		"clickDetails": [{
			"timestamp": "2025-01-01T12:05:06.123456Z",
			"referrer": "Direct",
			"ipAddress": "10.0.0.1",
			"location": {"country": "", "region": "", "city": ""}
		}]
	}`, w.Body.String())
}

func (s *RouterSuite) TestPanicBecomesJSON500() {
	s.svc.On("ShortLink", mock.Anything, "boom").Run(func(mock.Arguments) { panic("unexpected") }).Return("", nil).Once()

	w := doRequest(s.router, http.MethodGet, "/shorturls/boom/qr", nil, nil)
	s.Equal(http.StatusInternalServerError, w.Code)
	s.Equal(msgInternalError, s.errorOf(w))
}

func (s *RouterSuite) TestStatusDatabaseDown() {
	router := SetupRouter(RouterParams{
		Service: s.svc,
		DB:      pingerFunc(func() error { return errors.New("connection refused") }),
	})

	w := doRequest(router, http.MethodGet, "/status", nil, nil)
	s.Equal(http.StatusServiceUnavailable, w.Code)

	var body map[string]any
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	s.Equal("DEGRADED", body["status"])
	s.Equal("DOWN", body["database"])
}

// healthFrom sends GET /health from peer addr with the given X-Forwarded-For.
func healthFrom(router *gin.Engine, addr, forwardedFor string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = addr + ":40000"
	if forwardedFor != "" {
		req.Header.Set("X-Forwarded-For", forwardedFor)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func (s *RouterSuite) TestRateLimit() {
	router := SetupRouter(RouterParams{Service: s.svc, RateLimitRPS: 0.001, RateLimitBurst: 2})

	for i := 0; i < 2; i++ {
		s.Equal(http.StatusOK, healthFrom(router, "198.51.100.7", "").Code)
	}
	s.Equal(http.StatusTooManyRequests, healthFrom(router, "198.51.100.7", "").Code)
	s.Equal(http.StatusOK, healthFrom(router, "198.51.100.8", "").Code, "limits are per client")
}

func (s *RouterSuite) TestRateLimitIgnoresForwardedForFromUntrustedPeer() {
	router := SetupRouter(RouterParams{Service: s.svc, RateLimitRPS: 1, RateLimitBurst: 1})

	limited := 0
	for i := 0; i < 50; i++ {
		w := healthFrom(router, "10.0.0.1", fmt.Sprintf("203.0.113.%d", i))
		if w.Code == http.StatusTooManyRequests {
			limited++
		}
	}
	s.GreaterOrEqual(limited, 48, "rotating X-Forwarded-For must not open new buckets")
}

func (s *RouterSuite) TestRateLimitTrustsConfiguredProxy() {
	router := SetupRouter(RouterParams{
		Service:        s.svc,
		RateLimitRPS:   0.001,
		RateLimitBurst: 1,
		TrustedProxies: []string{"10.0.0.1"},
	})

	s.Equal(http.StatusOK, healthFrom(router, "10.0.0.1", "203.0.113.1").Code)
	s.Equal(http.StatusTooManyRequests, healthFrom(router, "10.0.0.1", "203.0.113.1").Code)
	s.Equal(http.StatusOK, healthFrom(router, "10.0.0.1", "203.0.113.2").Code, "clients behind the proxy are limited separately")
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func TestRateLimiterSweepsIdleVisitors(t *testing.T) {
	rl := NewRateLimiter(rate.Limit(1), 1)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	rl.lastSweep = now

	rl.limiter("10.0.0.1")
	rl.limiter("10.0.0.2")
	if got := rl.visitorCount(); got != 2 {
		t.Fatalf("visitorCount = %d, want 2", got)
	}

	now = now.Add(visitorIdleTimeout + time.Minute)
	rl.limiter("10.0.0.3")
	if got := rl.visitorCount(); got != 1 {
		t.Fatalf("visitorCount after sweep = %d, want 1", got)
	}
}

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want string
	}{
		{"whole seconds", time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC), "2025-01-02T03:04:05Z"},
		{"microseconds", time.Date(2025, 1, 2, 3, 4, 5, 120000, time.UTC), "2025-01-02T03:04:05.000120Z"},
		{"sub-microsecond dropped", time.Date(2025, 1, 2, 3, 4, 5, 999, time.UTC), "2025-01-02T03:04:05Z"},
		{"converted to UTC", time.Date(2025, 1, 2, 5, 4, 5, 0, time.FixedZone("EET", 2*3600)), "2025-01-02T03:04:05Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatTimestamp(tt.in); got != tt.want {
				t.Errorf("formatTimestamp() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseValidity(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want *int
	}{
		{"absent", "", nil},
		{"integer", "15", intPtr(15)},
		{"negative integer", "-3", intPtr(-3)},
		{"float", "1.5", nil},
		{"string", `"10"`, nil},
		{"bool", "true", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseValidity(json.RawMessage(tt.raw))
			if tt.want == nil {
				if got != nil {
					t.Errorf("parseValidity(%s) = %d, want nil", tt.raw, *got)
				}
				return
			}
			if got == nil || *got != *tt.want {
				t.Errorf("parseValidity(%s) = %v, want %d", tt.raw, got, *tt.want)
			}
		})
	}
}

func intPtr(v int) *int { return &v }

// Package service orchestrates short URL creation, redirects and statistics
// on top of the registry and the click recorder.
package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"url-shortener/internal/apperrs"
	"url-shortener/internal/db"
	"url-shortener/internal/geo"
	"url-shortener/internal/shortener"
)

// DefaultReferrer is stored for clicks that carry no Referer header.
const DefaultReferrer = "Direct"

// DefaultValidityMinutes applies when a create request has no usable validity.
const DefaultValidityMinutes = 30

const maxValidityMinutes = math.MaxInt64 / int64(time.Minute)

// Registry stores and resolves short URL entries.
type Registry interface {
	Create(ctx context.Context, originalURL string, validity time.Duration, requestedCode string) (*db.ShortURL, error)
	Lookup(ctx context.Context, shortCode string) (*db.ShortURL, error)
}

// ClickWriter persists click events.
type ClickWriter interface {
	Record(ctx context.Context, click *db.Click) error
}

// ClickReader lists the clicks of an entry in insertion order.
type ClickReader interface {
	ListByURL(ctx context.Context, urlID uint64) ([]db.Click, error)
}

// CreateInput is a request to shorten URL. ValidityMinutes nil or <= 0 means
// the default; an empty ShortCode means generate one.
type CreateInput struct {
	URL             string
	ValidityMinutes *int
	ShortCode       string
}

// Created describes a newly created short URL.
type Created struct {
	ShortCode string
	ShortLink string
	Expiry    time.Time
}

// Visit carries what is known about the client following a short link.
type Visit struct {
	Referrer string
	ClientIP string
}

// ClickDetail is one click as reported in statistics.
type ClickDetail struct {
	Timestamp time.Time
	Referrer  string
	IPAddress string
	Location  geo.Location
}

// Stats aggregates an entry and its clicks.
type Stats struct {
	OriginalURL string
	CreatedAt   time.Time
	ExpiresAt   time.Time
	TotalClicks int
	Clicks      []ClickDetail
}

type Service struct {
	registry        Registry
	writer          ClickWriter
	reader          ClickReader
	locator         geo.Locator
	baseURL         string
	defaultValidity time.Duration
	log             *zap.Logger
	now             func() time.Time
}

type Option func(*Service)

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithClock replaces time.Now for expiry checks and click timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithDefaultValidity overrides DefaultValidityMinutes.
func WithDefaultValidity(minutes int) Option {
	return func(s *Service) {
		if minutes > 0 {
			s.defaultValidity = time.Duration(minutes) * time.Minute
		}
	}
}

// New builds a Service. writer may be the recorder itself or a queue in
// front of it; reader is always read synchronously.
func New(baseURL string, registry Registry, writer ClickWriter, reader ClickReader, locator geo.Locator, opts ...Option) *Service {
	s := &Service{
		registry:        registry,
		writer:          writer,
		reader:          reader,
		locator:         locator,
		baseURL:         strings.TrimRight(baseURL, "/"),
		defaultValidity: DefaultValidityMinutes * time.Minute,
		log:             zap.NewNop(),
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.locator == nil {
		s.locator = geo.Static(geo.UnknownLocation)
	}
	return s
}

// ShortLinkFor returns the public link for shortCode.
func (s *Service) ShortLinkFor(shortCode string) string {
	return s.baseURL + "/" + shortCode
}

// CreateShortURL validates in and registers a new short URL.
func (s *Service) CreateShortURL(ctx context.Context, in CreateInput) (*Created, error) {
	const op = "service.CreateShortURL"

	if !shortener.ValidateURL(in.URL) {
		s.log.Warn("validation error: invalid or missing URL", zap.String("url", in.URL))
		return nil, apperrs.Wrap(apperrs.ErrInvalidURL, op, nil)
	}
	if in.ShortCode != "" && !shortener.ValidateCustomCode(in.ShortCode) {
		s.log.Warn("validation error: invalid custom shortcode format", zap.String("short_code", in.ShortCode))
		return nil, apperrs.Wrap(apperrs.ErrInvalidCode, op, nil)
	}

	entry, err := s.registry.Create(ctx, in.URL, s.validity(in.ValidityMinutes), in.ShortCode)
	if err != nil {
		if errors.Is(err, apperrs.ErrConflict) {
			s.log.Info("conflict: custom shortcode already in use", zap.String("short_code", in.ShortCode))
		} else {
			s.log.Error("failed to create short URL", zap.String("url", in.URL), zap.Error(err))
		}
		return nil, err
	}

	s.log.Info("short URL created",
		zap.String("short_code", entry.ShortCode),
		zap.String("url", entry.OriginalURL),
		zap.Time("expires_at", entry.ExpiresAt))

	return &Created{
		ShortCode: entry.ShortCode,
		ShortLink: s.ShortLinkFor(entry.ShortCode),
		Expiry:    entry.ExpiresAt,
	}, nil
}

func (s *Service) validity(minutes *int) time.Duration {
	if minutes == nil || *minutes <= 0 {
		return s.defaultValidity
	}
	if int64(*minutes) > maxValidityMinutes {
		return time.Duration(maxValidityMinutes) * time.Minute
	}
	return time.Duration(*minutes) * time.Minute
}

// GetStats returns the entry behind shortCode with every recorded click.
// Expired entries still report their statistics.
func (s *Service) GetStats(ctx context.Context, shortCode string) (*Stats, error) {
	entry, err := s.lookup(ctx, shortCode)
	if err != nil {
		return nil, err
	}

	clicks, err := s.reader.ListByURL(ctx, entry.ID)
	if err != nil {
		s.log.Error("failed to load clicks", zap.String("short_code", shortCode), zap.Error(err))
		return nil, err
	}

	details := make([]ClickDetail, 0, len(clicks))
	for _, c := range clicks {
		details = append(details, ClickDetail{
			Timestamp: c.Timestamp,
			Referrer:  c.Referrer,
			IPAddress: c.IPAddress,
			Location:  geo.Location{Country: c.Country, Region: c.Region, City: c.City},
		})
	}

	return &Stats{
		OriginalURL: entry.OriginalURL,
		CreatedAt:   entry.CreatedAt,
		ExpiresAt:   entry.ExpiresAt,
		TotalClicks: len(details),
		Clicks:      details,
	}, nil
}

// ResolveAndRecord returns the URL behind shortCode and records the visit.
// Unknown codes fail with apperrs.ErrNotFound and expired ones with
// apperrs.ErrExpired; neither records a click. A failed click write is logged
// and does not fail the redirect.
func (s *Service) ResolveAndRecord(ctx context.Context, shortCode string, visit Visit) (string, error) {
	const op = "service.ResolveAndRecord"

	entry, err := s.lookup(ctx, shortCode)
	if err != nil {
		return "", err
	}

	now := s.now().UTC()
	if entry.ExpiredAt(now) {
		s.log.Info("short URL has expired", zap.String("short_code", shortCode), zap.Time("expires_at", entry.ExpiresAt))
		return "", apperrs.Wrap(apperrs.ErrExpired, op, nil)
	}

	s.recordClick(ctx, entry, visit, now)
	return entry.OriginalURL, nil
}

// ShortLink returns the public link of an existing entry.
func (s *Service) ShortLink(ctx context.Context, shortCode string) (string, error) {
	entry, err := s.lookup(ctx, shortCode)
	if err != nil {
		return "", err
	}
	return s.ShortLinkFor(entry.ShortCode), nil
}

func (s *Service) lookup(ctx context.Context, shortCode string) (*db.ShortURL, error) {
	entry, err := s.registry.Lookup(ctx, shortCode)
	if err != nil {
		if errors.Is(err, apperrs.ErrNotFound) {
			s.log.Info("short URL not found", zap.String("short_code", shortCode))
		}
		return nil, err
	}
	return entry, nil
}

func (s *Service) recordClick(ctx context.Context, entry *db.ShortURL, visit Visit, now time.Time) {
	referrer := visit.Referrer
	if referrer == "" {
		referrer = DefaultReferrer
	}
	loc := s.locator.Locate(ctx, visit.ClientIP)

	click := &db.Click{
		URLID:     entry.ID,
		Timestamp: now.Truncate(time.Microsecond),
		Referrer:  referrer,
		IPAddress: visit.ClientIP,
		Country:   loc.Country,
		Region:    loc.Region,
		City:      loc.City,
	}

	if err := s.writer.Record(ctx, click); err != nil {
		s.log.Error("failed to record click",
			zap.String("short_code", entry.ShortCode), zap.Uint64("url_id", entry.ID), zap.Error(err))
		return
	}
	s.log.Debug("click recorded", zap.String("short_code", entry.ShortCode), zap.String("ip", visit.ClientIP))
}

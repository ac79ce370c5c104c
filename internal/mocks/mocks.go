// Package mocks holds testify mocks of the service collaborators.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"url-shortener/internal/db"
	"url-shortener/internal/service"
)

type RegistryMock struct {
	mock.Mock
}

func (m *RegistryMock) Create(ctx context.Context, originalURL string, validity time.Duration, requestedCode string) (*db.ShortURL, error) {
	args := m.Called(ctx, originalURL, validity, requestedCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*db.ShortURL), args.Error(1)
}

func (m *RegistryMock) Lookup(ctx context.Context, shortCode string) (*db.ShortURL, error) {
	args := m.Called(ctx, shortCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*db.ShortURL), args.Error(1)
}

type ClickWriterMock struct {
	mock.Mock
}

func (m *ClickWriterMock) Record(ctx context.Context, click *db.Click) error {
	return m.Called(ctx, click).Error(0)
}

type ClickReaderMock struct {
	mock.Mock
}

func (m *ClickReaderMock) ListByURL(ctx context.Context, urlID uint64) ([]db.Click, error) {
	args := m.Called(ctx, urlID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]db.Click), args.Error(1)
}

// ShortURLServiceMock stands in for the service behind the HTTP handlers.
type ShortURLServiceMock struct {
	mock.Mock
}

func (m *ShortURLServiceMock) CreateShortURL(ctx context.Context, in service.CreateInput) (*service.Created, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Created), args.Error(1)
}

func (m *ShortURLServiceMock) GetStats(ctx context.Context, shortCode string) (*service.Stats, error) {
	args := m.Called(ctx, shortCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Stats), args.Error(1)
}

func (m *ShortURLServiceMock) ResolveAndRecord(ctx context.Context, shortCode string, visit service.Visit) (string, error) {
	args := m.Called(ctx, shortCode, visit)
	return args.String(0), args.Error(1)
}

func (m *ShortURLServiceMock) ShortLink(ctx context.Context, shortCode string) (string, error) {
	args := m.Called(ctx, shortCode)
	return args.String(0), args.Error(1)
}

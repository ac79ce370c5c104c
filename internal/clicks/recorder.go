// Package clicks persists redirect events. Recording is best-effort: callers
// log failures and carry on with the redirect.
package clicks

import (
	"context"

	"github.com/jinzhu/gorm"
	"go.uber.org/zap"

	"url-shortener/internal/apperrs"
	"url-shortener/internal/db"
)

// Recorder appends click events to the clicks table.
type Recorder struct {
	conn *gorm.DB
	log  *zap.Logger
}

func NewRecorder(conn *gorm.DB, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{conn: conn, log: logger}
}

// Record inserts click. Each click is its own row, so concurrent clicks on
// the same URL never contend beyond the insert itself.
func (r *Recorder) Record(ctx context.Context, click *db.Click) error {
	const op = "clicks.Record"

	if err := ctx.Err(); err != nil {
		return apperrs.Storage(op, err)
	}
	if err := r.conn.Create(click).Error; err != nil {
		r.log.Debug("click insert failed", zap.Uint64("url_id", click.URLID), zap.Error(err))
		return apperrs.Storage(op, err)
	}
	return nil
}

// ListByURL returns the clicks of urlID in the order they happened. Queue
// workers may insert out of order, so the timestamp decides and id breaks ties.
func (r *Recorder) ListByURL(ctx context.Context, urlID uint64) ([]db.Click, error) {
	const op = "clicks.ListByURL"

	if err := ctx.Err(); err != nil {
		return nil, apperrs.Storage(op, err)
	}

	clicks := make([]db.Click, 0)
	if err := r.conn.Where("url_id = ?", urlID).Order("timestamp asc, id asc").Find(&clicks).Error; err != nil {
		r.log.Error("failed to list clicks", zap.Uint64("url_id", urlID), zap.Error(err))
		return nil, apperrs.Storage(op, err)
	}
	for i := range clicks {
		clicks[i].Timestamp = clicks[i].Timestamp.UTC()
	}
	return clicks, nil
}

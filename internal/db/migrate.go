package db

import (
	"embed"
	"path"
	"sync"

	"github.com/jinzhu/gorm"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/*/*.sql
var migrations embed.FS

// goose keeps its dialect, filesystem and logger in package globals.
var migrateMu sync.Mutex

// Migrate applies the embedded migrations for driver.
func Migrate(conn *gorm.DB, driver string, logger *zap.Logger) error {
	migrateMu.Lock()
	defer migrateMu.Unlock()

	goose.SetBaseFS(migrations)
	if logger != nil {
		goose.SetLogger(gooseLogger{logger.Named("goose").Sugar()})
	} else {
		goose.SetLogger(goose.NopLogger())
	}

	if err := goose.SetDialect(driver); err != nil {
		return errors.Wrap(err, "set migration dialect")
	}
	if err := goose.Up(conn.DB(), path.Join("migrations", driver)); err != nil {
		return errors.Wrap(err, "apply migrations")
	}
	return nil
}

type gooseLogger struct {
	log *zap.SugaredLogger
}

func (l gooseLogger) Fatalf(format string, v ...interface{}) { l.log.Fatalf(format, v...) }
func (l gooseLogger) Printf(format string, v ...interface{}) { l.log.Infof(format, v...) }

package db

import (
	"fmt"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres" // PostgreSQL driver
	_ "github.com/jinzhu/gorm/dialects/sqlite"   // SQLite driver
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Supported values for DATABASE_DRIVER.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Open connects to the database and tunes the pool for the driver.
//
// SQLite gets a single connection: writes are serialized by the pool and an
// in-memory database stays one database for every caller.
func Open(driver, dsn string, maxOpenConns int, logger *zap.Logger) (*gorm.DB, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	conn, err := gorm.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s database", driver)
	}
	if logger != nil {
		conn.SetLogger(gormLogger{logger.Named("gorm")})
	}

	switch driver {
	case DriverSQLite:
		conn.DB().SetMaxOpenConns(1)
		if err := conn.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			conn.Close()
			return nil, errors.Wrap(err, "enable sqlite foreign keys")
		}
	case DriverPostgres:
		if maxOpenConns > 0 {
			conn.DB().SetMaxOpenConns(maxOpenConns)
			conn.DB().SetMaxIdleConns(maxOpenConns)
		}
	}

	return conn, nil
}

// gormLogger routes gorm's own output to zap. gorm reports failed statements
// here too, including expected unique violations, so everything goes to debug.
type gormLogger struct {
	log *zap.Logger
}

func (l gormLogger) Print(v ...interface{}) {
	if len(v) == 0 {
		return
	}
	l.log.Debug(fmt.Sprint(v[0]), zap.String("detail", fmt.Sprint(v[1:]...)))
}

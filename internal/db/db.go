package db

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/USA-RedDragon/upmyfee/internal/config"
	"github.com/USA-RedDragon/upmyfee/internal/db/models"
	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func MakeDB(database config.Database) (db *gorm.DB, err error) {
	dialector, err := dialect(database)
	if err != nil {
		return nil, err
	}

	db, err = gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return db, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.AutoMigrate(&models.Rewrite{})
	if err != nil {
		return db, fmt.Errorf("failed to migrate database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return db, fmt.Errorf("failed to open database: %w", err)
	}
	sqlDB.SetMaxIdleConns(runtime.GOMAXPROCS(0))
	const connsPerCPU = 10
	sqlDB.SetMaxOpenConns(runtime.GOMAXPROCS(0) * connsPerCPU)
	const maxIdleTime = 10 * time.Minute
	sqlDB.SetConnMaxIdleTime(maxIdleTime)

	return
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}
	return sqlDB.Close()
}

func dialect(database config.Database) (gorm.Dialector, error) {
	switch database.Driver {
	case "", config.DatabaseDriverSQLite:
		return sqlite.Open(withParameters(database.Database+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", "&", database.ExtraParameters)), nil
	case config.DatabaseDriverMySQL:
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			database.Username, database.Password, database.Host, portOr(database.Port, 3306), database.Database)
		return mysql.Open(withParameters(dsn, "&", database.ExtraParameters)), nil
	case config.DatabaseDriverPostgres:
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d",
			database.Host, database.Username, database.Password, database.Database, portOr(database.Port, 5432))
		return postgres.Open(withParameters(dsn, " ", database.ExtraParameters)), nil
	default:
		return nil, fmt.Errorf("%w: %s", config.ErrInvalidDatabaseDriver, database.Driver)
	}
}

func withParameters(dsn, separator, extra string) string {
	extra = strings.TrimSpace(extra)
	if extra == "" {
		return dsn
	}
	return dsn + separator + extra
}

func portOr(port, fallback uint16) uint16 {
	if port == 0 {
		return fallback
	}
	return port
}

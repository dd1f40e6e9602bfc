package db

import (
	"errors"
	"fmt"
	"strings"

	"travellog/config"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var Instance *gorm.DB

var ErrForeignKeysDisabled = errors.New("store does not enforce foreign keys")

// Init opens the configured store: Postgres, then MySQL, then SQLite
func Init() {
	var dialector gorm.Dialector
	switch {
	case config.POSTGRES_DSN != "":
		dialector = postgres.Open(config.POSTGRES_DSN)
	case config.MYSQL_DSN != "":
		dialector = mysql.Open(config.MYSQL_DSN)
	case config.SQLITE_FILE != "":
		dialector = sqlite.Open(sqliteDSN(config.SQLITE_FILE))
	default:
		panic("no database configured")
	}
	if err := Open(dialector); err != nil {
		panic(err)
	}
}

func Open(dialector gorm.Dialector) error {
	logLevel := gormlogger.Warn
	if config.DEBUG_MODE {
		logLevel = gormlogger.Info
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
		Logger:                 gormlogger.Default.LogMode(logLevel),
	})
	if err != nil {
		return err
	}
	if db == nil {
		return errors.New("nil database handle")
	}
	if dialector.Name() == "sqlite" {
		// Each SQLite connection has its own PRAGMA state (and in-memory DB), keep just one
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	Instance = db
	return nil
}

// OpenSQLite is used by tests and single-user setups, file can be ":memory:"
func OpenSQLite(file string) error {
	return Open(sqlite.Open(sqliteDSN(file)))
}

func sqliteDSN(file string) string {
	if strings.Contains(file, "_foreign_keys=") || strings.Contains(file, "_fk=") {
		return file
	}
	if strings.Contains(file, "?") {
		return file + "&_foreign_keys=on"
	}
	return file + "?_foreign_keys=on"
}

// CheckForeignKeys makes sure ON DELETE CASCADE will actually be applied by the store.
// User deletion relies on it for accounts, sessions and travel logs.
func CheckForeignKeys(tx *gorm.DB) error {
	switch tx.Dialector.Name() {
	case "sqlite":
		enabled := 0
		if err := tx.Raw("PRAGMA foreign_keys").Scan(&enabled).Error; err != nil {
			return fmt.Errorf("reading foreign_keys pragma: %w", err)
		}
		if enabled != 1 {
			return ErrForeignKeysDisabled
		}
	case "mysql":
		engine := ""
		if err := tx.Raw("SELECT @@default_storage_engine").Scan(&engine).Error; err != nil {
			return fmt.Errorf("reading storage engine: %w", err)
		}
		if !strings.EqualFold(engine, "InnoDB") {
			return fmt.Errorf("%w: engine %s", ErrForeignKeysDisabled, engine)
		}
	}
	return nil
}

package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var db *gorm.DB

// InitDatabase connects using configuration values and performs automatic migrations.
func InitDatabase(modelDefs ...interface{}) *gorm.DB {
	if db != nil {
		return db
	}

	conn, err := OpenDatabase(Get())
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		log.Fatalf("failed to get sql.DB: %v", err)
	}
	if Get().Database.Driver != "sqlite" {
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
		sqlDB.SetConnMaxIdleTime(10 * time.Minute)
	}

	// Ping at startup so network/auth problems surface before the first query
	if err := sqlDB.Ping(); err != nil {
		log.Fatalf("database ping failed: %v", err)
	}

	if err := conn.AutoMigrate(modelDefs...); err != nil {
		log.Fatalf("auto migration failed: %v", err)
	}

	db = conn
	return db
}

// OpenDatabase opens a gorm connection for the configured driver without migrating.
func OpenDatabase(c AppConfig) (*gorm.DB, error) {
	dialector, err := dialectorFor(c.Database)
	if err != nil {
		return nil, err
	}

	// Derive GORM's level from the app level and keep slow-sql threshold high to reduce noise
	gLogger := logger.New(
		log.New(os.Stdout, "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             2 * time.Second,
			LogLevel:                  toGormLogLevel(c.Log.Level),
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	return gorm.Open(dialector, &gorm.Config{
		Logger: gLogger,
		// cascades and nullification are done by the repositories, not by the schema
		DisableForeignKeyConstraintWhenMigrating: true,
	})
}

func dialectorFor(d DatabaseSection) (gorm.Dialector, error) {
	switch d.Driver {
	case "mysql", "":
		dsn := d.URI
		if dsn == "" {
			dsn = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
				d.User, d.Password, d.Host, d.Port, d.Name)
		}
		return mysql.Open(dsn), nil
	case "postgres":
		dsn := d.URI
		if dsn == "" {
			dsn = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
				d.Host, d.Port, d.User, d.Password, d.Name)
		}
		return postgres.Open(dsn), nil
	case "sqlite":
		dsn := d.URI
		if dsn == "" {
			dsn = d.Name + ".db"
		}
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", d.Driver)
	}
}

// toGormLogLevel maps application LogLevel to GORM's logger level.
func toGormLogLevel(level string) logger.LogLevel {
	switch level {
	case "debug":
		// GORM 'Info' shows SQL; use with caution
		return logger.Info
	case "info", "", "warn":
		return logger.Warn
	case "error":
		return logger.Error
	case "silent":
		return logger.Silent
	default:
		return logger.Warn
	}
}

package database

import (
	"context"
	"fmt"
	"time"

	"studio-api/internal/config"
	"studio-api/internal/models"
	"studio-api/pkg/logging"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

var (
	DB          *gorm.DB
	RedisClient *redis.Client
)

// InitDatabase initializes database and Redis connections from config.AppConfig
func InitDatabase() error {
	cfg := config.AppConfig

	level := logger.Warn
	if cfg.Mode == "debug" {
		level = logger.Info
	}

	db, err := OpenDB(cfg.DatabaseURL, cfg.SQLitePath, level)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	DB = db

	client, err := OpenRedis(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to initialize Redis: %w", err)
	}
	RedisClient = client

	if err := Migrate(DB); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	return nil
}

// OpenDB connects to PostgreSQL, or to a SQLite file when databaseURL is empty
func OpenDB(databaseURL, sqlitePath string, level logger.LogLevel) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(level),
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
		},
	}

	var (
		db  *gorm.DB
		err error
	)
	if databaseURL == "" {
		logging.Infof("Database URL not set, using SQLite at %s", sqlitePath)
		db, err = gorm.Open(sqlite.Open(sqlitePath), gormConfig)
	} else {
		db, err = gorm.Open(postgres.Open(databaseURL), gormConfig)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	logging.Infof("Database connected successfully")
	return db, nil
}

// OpenRedis parses the URL and pings the server
func OpenRedis(redisURL string) (*redis.Client, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is not set")
	}

	logging.Infof("Connecting to Redis: %s", maskRedisURL(redisURL))

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logging.Infof("Redis connected successfully")
	return client, nil
}

// maskRedisURL masks sensitive information in Redis URL for logging
func maskRedisURL(url string) string {
	if len(url) > 20 {
		return url[:10] + "***" + url[len(url)-10:]
	}
	return "***"
}

// Migrate creates or updates the ledger and user tables
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Subscription{},
		&models.CreditBalance{},
		&models.Purchase{},
	)
}

// CloseDatabase closes database connections
func CloseDatabase() error {
	if DB != nil {
		if sqlDB, err := DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				logging.Errorf("Failed to close database: %v", err)
			}
		}
	}

	if RedisClient != nil {
		if err := RedisClient.Close(); err != nil {
			logging.Errorf("Failed to close Redis: %v", err)
		}
	}

	return nil
}

package models

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ConnectDatabase opens the PostgreSQL database behind the job store and, when migrate is set,
// creates the publishing tables.
func ConnectDatabase(dsnURL, env string, migrate bool) (*gorm.DB, error) {

	// Configure logger
	var logLevel logger.LogLevel
	if env == "prod" {
		logLevel = logger.Error
	} else {
		logLevel = logger.Warn
	}

	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: time.Second,
			LogLevel:      logLevel,
			Colorful:      env != "prod",
		},
	)

	database, err := gorm.Open(postgres.Open(dsnURL), &gorm.Config{
		Logger: newLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if migrate {
		if err := Migrate(database); err != nil {
			return nil, err
		}
	}

	sqlDB, err := database.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql handle: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)
	return database, nil
}

// Migrate creates or updates the publishing tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&SocialMediaAccount{}, &PostingJob{}, &PostingLog{}, &EngagementInteraction{}); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}

// ConnectRedis builds the client used for the engine lease and checks it answers.
func ConnectRedis(ctx context.Context, host, port, user, password, db, env string) (*redis.Client, error) {
	dbInt, _ := strconv.Atoi(db)
	options := &redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: password,
		DB:       dbInt,
		Username: user,
	}

	// Apply TLS configuration if environment is "prod"
	if env == "prod" {
		options.TLSConfig = &tls.Config{
			ServerName: host,
		}
	}

	rdb := redis.NewClient(options)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rdb, nil
}

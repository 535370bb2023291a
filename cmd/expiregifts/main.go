// Command expiregifts runs one gift expiry sweep and exits. It is meant to
// be scheduled by cron.
package main

import (
	"context"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"proptx/server/config"
	"proptx/server/internal/database"
	"proptx/server/internal/gift"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	db, err := database.NewDatabase(cfg.Database.Driver, cfg.Database.DSN, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	result, err := gift.NewService(db.DB(), logger).ExpireOldGifts(ctx, time.Now().UTC())
	if err != nil {
		logger.WithError(err).Error("Gift expiry sweep failed")
		os.Exit(1)
	}
	entry := logger.WithFields(logrus.Fields{
		"expired":   result.Expired,
		"converted": result.Converted,
		"failed":    result.Failed,
	})
	if result.Failed > 0 {
		entry.Error("Gift expiry sweep completed with failures")
		os.Exit(1)
	}
	entry.Info("Gift expiry sweep completed")
}

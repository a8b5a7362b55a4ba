package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"sonata/internal/config"
	"sonata/internal/database"
	"sonata/internal/server"
)

func main() {
	configPath := flag.String("config", "./config.toml", "path to configuration file")
	flag.Parse()

	// Startup logger; the server installs its own JSON logger.
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.WithError(err).Fatal("Error loading configuration")
	}

	if err := os.MkdirAll(cfg.Media.AudioDir, 0755); err != nil {
		logger.WithError(err).WithField("audio_dir", cfg.Media.AudioDir).Fatal("Could not create audio directory")
	}
	if err := os.MkdirAll(cfg.Media.CoverDir, 0755); err != nil {
		logger.WithError(err).WithField("cover_dir", cfg.Media.CoverDir).Fatal("Could not create cover directory")
	}

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		logger.WithError(err).Fatal("Error initializing database")
	}
	defer db.Close()

	musicServer, err := server.NewMusicServer(cfg, db)
	if err != nil {
		logger.WithError(err).Fatal("Error creating music server")
	}

	if err := musicServer.ScanMediaLibrary(); err != nil {
		logger.WithError(err).Warn("Media scan finished with errors")
	}

	if cfg.Media.ScanOnStartup {
		tracks, err := db.GetAllTracks()
		if err != nil {
			logger.WithError(err).Warn("Could not get track count")
		} else if len(tracks) == 0 {
			logger.WithField("supported_formats", cfg.Media.SupportedFormats).Warn("No supported audio files found in audio directory")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := musicServer.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server exited with error")
	}
	logger.Info("Server stopped")
}

package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"sonata/internal/auth"
	"sonata/internal/cache"
	"sonata/internal/config"
	"sonata/internal/database"
	"sonata/internal/metadata"
	"sonata/internal/ngrok"
)

// MusicServer represents the main music streaming server
type MusicServer struct {
	db           *database.Database
	config       *config.Config
	logger       *logrus.Logger
	extractor    *metadata.Extractor
	tokens       *auth.TokenIssuer
	validate     *validator.Validate
	covers       *cache.MemoryCache
	watcher      *fsnotify.Watcher
	ngrokService *ngrok.Service
}

// NewMusicServer creates a new music server instance
func NewMusicServer(cfg *config.Config, db *database.Database) (*MusicServer, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		logger.SetLevel(level)
	}

	ngrokSvc, err := ngrok.NewService(&cfg.Ngrok)
	if err != nil {
		log.Printf("Warning: Ngrok service not available: %v", err)
		ngrokSvc = nil
	}

	server := &MusicServer{
		db:           db,
		config:       cfg,
		logger:       logger,
		extractor:    metadata.NewExtractor(cfg.Media.SupportedFormats),
		tokens:       auth.NewTokenIssuer(cfg.Auth.JWTSecret(), time.Duration(cfg.Auth.TokenTTLHours)*time.Hour),
		validate:     validator.New(),
		covers:       cache.NewMemoryCache(time.Hour),
		ngrokService: ngrokSvc,
	}

	return server, nil
}

// ScanMediaLibrary scans the audio directory and registers any files dropped
// there out-of-band into the catalog.
func (ms *MusicServer) ScanMediaLibrary() error {
	if !ms.config.Media.ScanOnStartup {
		log.Println("Skipping media scan (disabled in config)")
		return nil
	}

	log.Printf("Scanning media directory: %s", ms.config.Media.AudioDir)

	var wg sync.WaitGroup
	var trackCount int64
	jobs := make(chan string, 100)

	numWorkers := runtime.NumCPU()
	for i := 0; i < numWorkers; i++ {
		go func() {
			for path := range jobs {
				if err := ms.registerAudioFile(path); err != nil {
					log.Printf("Error registering %s: %v", path, err)
				} else {
					atomic.AddInt64(&trackCount, 1)
				}
				wg.Done()
			}
		}()
	}

	walkErr := filepath.Walk(ms.config.Media.AudioDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if ms.extractor.IsAudioFile(path) {
			wg.Add(1)
			jobs <- path
		}
		return nil
	})

	close(jobs)
	wg.Wait()

	log.Printf("Scanned %d tracks", trackCount)
	return walkErr
}

// registerAudioFile extracts metadata from a file on disk and upserts it into
// the catalog, storing any embedded cover art.
func (ms *MusicServer) registerAudioFile(path string) error {
	track, err := ms.extractor.ExtractFromFile(path)
	if err != nil {
		return err
	}

	if art, ok := ms.extractor.ExtractArtwork(path); ok {
		coverID, err := ms.storeCoverBytes(art)
		if err != nil {
			ms.logger.WithError(err).WithField("path", path).Warn("Failed to store embedded cover art")
		} else {
			track.CoverArtID = coverID
		}
	}

	_, err = ms.db.InsertTrack(track)
	return err
}

// Router builds the HTTP routing table.
func (ms *MusicServer) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(ms.panicRecoveryMiddleware)
	r.Use(ms.requestLoggingMiddleware)

	if ms.config.Server.EnableCORS {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: ms.config.Server.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Get("/health", ms.handleHealthCheck)
	r.Get("/stream/{trackID}", ms.handleStreamTrack)
	r.Get("/covers/{coverID}", ms.handleGetCover)

	r.Post("/api/auth/register", ms.handleRegister)
	r.Post("/api/auth/login", ms.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(ms.authMiddleware)

		r.Route("/api/user", func(r chi.Router) {
			r.Get("/profile", ms.handleGetProfile)

			r.Get("/songs", ms.handleGetSongs)
			r.Get("/songs/search", ms.handleSearchSongs)
			r.Put("/songs/{trackID}/like", ms.handleToggleLike)
			r.Put("/songs/{trackID}/save", ms.handleToggleSave)
			r.Post("/songs/{trackID}/play", ms.handleRecordPlay)

			r.Get("/playlists", ms.handleGetPlaylists)
			r.Post("/playlists", ms.handleCreatePlaylist)
			r.Get("/playlists/{playlistID}", ms.handleGetPlaylist)
			r.Put("/playlists/{playlistID}", ms.handleUpdatePlaylist)
			r.Delete("/playlists/{playlistID}", ms.handleDeletePlaylist)
			r.Put("/playlists/{playlistID}/songs/{trackID}", ms.handleAddPlaylistTrack)
			r.Delete("/playlists/{playlistID}/songs/{trackID}", ms.handleRemovePlaylistTrack)
		})

		r.Route("/api/songs", func(r chi.Router) {
			r.Get("/{trackID}", ms.handleGetSong)

			r.Group(func(r chi.Router) {
				r.Use(ms.requireAdmin)
				r.Post("/", ms.handleCreateSong)
				r.Delete("/{trackID}", ms.handleDeleteSong)
			})
		})
	})

	return r
}

// Start starts the music server and blocks until the context is cancelled.
func (ms *MusicServer) Start(ctx context.Context) error {
	if ms.config.Media.WatchForChanges {
		if err := ms.startFileWatcher(); err != nil {
			log.Printf("Warning: Could not start file watcher: %v", err)
		} else {
			defer ms.stopFileWatcher()
		}
	}

	localAddress := fmt.Sprintf("http://%s", ms.config.GetAddress())
	log.Printf("Sonata server starting on %s", localAddress)

	if ms.ngrokService != nil {
		if err := ms.ngrokService.StartTunnel(ctx, localAddress); err != nil {
			log.Printf("Warning: Could not start ngrok tunnel: %v", err)
		} else {
			defer ms.ngrokService.Stop()
		}
	}

	server := &http.Server{
		Addr:        ms.config.GetAddress(),
		Handler:     ms.Router(),
		ReadTimeout: time.Duration(ms.config.Server.ReadTimeout) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hls-harvester/internal/decrypt"
	"hls-harvester/internal/fetch"
	"hls-harvester/internal/harvester"
	"hls-harvester/internal/index"
	"hls-harvester/internal/platform/config"
	"hls-harvester/internal/platform/logger"
	"hls-harvester/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = config.Load()

	port := config.GetEnv("PORT", "8080")
	logLevel := config.GetEnv("LOG_LEVEL", "info")
	logFormat := config.GetEnv("LOG_FORMAT", "json")

	log := logger.New(logLevel, logFormat)

	cfg := harvester.Config{
		ResultPath:   config.GetEnv("RESULT_PATH", "./data/result"),
		DownloadPath: config.GetEnv("DOWNLOAD_PATH", "./data/download"),
		MergePath:    config.GetEnv("MERGE_PATH", "./data/merge"),
		MaxSegments:  config.GetEnvInt("MAX_SEGMENT_NUM", harvester.DefaultMaxSegments),
		Tracks: []harvester.Track{
			{Name: harvester.TrackAudio, PlaylistName: config.GetEnv("AUDIO_PLAYLIST_NAME", "audio.m3u8")},
			{Name: harvester.TrackVideo, PlaylistName: config.GetEnv("VIDEO_PLAYLIST_NAME", "video.m3u8")},
		},
		DecryptKeyID:   config.GetEnv("DECRYPT_KEY_ID", ""),
		DecryptKey:     config.GetEnv("DECRYPT_KEY", ""),
		UpdateDuration: config.GetEnvDuration("UPDATE_DURATION", 2*time.Second),
	}

	manifests := map[string]string{
		harvester.TrackAudio: config.GetEnv("AUDIO_MANIFEST_URL", ""),
		harvester.TrackVideo: config.GetEnv("VIDEO_MANIFEST_URL", ""),
	}
	for name, manifestURL := range manifests {
		if manifestURL == "" {
			log.Error("manifest url not configured", slog.String("track", name))
			os.Exit(1)
		}
	}

	var fetchOpts []fetch.Option
	if raw := config.GetEnv("PROXY_URL", ""); raw != "" {
		proxy, err := url.Parse(raw)
		if err != nil {
			log.Error("invalid proxy url", slog.String("error", err.Error()))
			os.Exit(1)
		}
		fetchOpts = append(fetchOpts, fetch.WithProxy(proxy))
	}

	fetcher := fetch.New(fetchOpts...)
	decryptor := decrypt.NewCLI(decrypt.WithBinary(config.GetEnv("DECRYPT_BIN", "hls-decrypt")))
	met := metrics.New()
	engine := harvester.NewEngine(cfg, fetcher, decryptor, log, met)
	indexes := index.NewClient(nil)
	tokens := harvester.NewFileTokenStore(config.GetEnv("TOKEN_FILE", "./data/continuity.json"))

	h := harvester.NewHandler(cfg, log, met)
	r := chi.NewRouter()
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	r.Get("/metrics", met.Handler().ServeHTTP)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/tracks/{track}/playlist.m3u8", h.GetPlaylist)
	r.Get("/tracks/{track}/{segment}", h.GetSegment)

	addr := ":" + port
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	loopCtx, stopLoop := context.WithCancel(context.Background())
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		runHarvestLoop(loopCtx, log, engine, indexes, tokens, manifests, cfg.UpdateDuration)
	}()

	log.Info("harvester starting",
		slog.String("port", port),
		slog.Int("max_segments", cfg.MaxSegments),
		slog.String("log_level", logLevel),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, stopping harvest loop")
	stopLoop()
	<-loopDone

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("harvester stopped")
}

// runHarvestLoop drives one reconciliation cycle per manifest refresh,
// threading the continuity token between cycles. Cycles never overlap: the
// next refresh starts only after the previous cycle, including its pacing
// sleep, returns.
func runHarvestLoop(ctx context.Context, log *slog.Logger, engine *harvester.Engine, indexes *index.Client, tokens harvester.TokenStore, manifests map[string]string, updateDuration time.Duration) {
	token, err := tokens.Load()
	if err != nil {
		log.Warn("continuity token unreadable, cold start", slog.String("error", err.Error()))
		token = harvester.ContinuityToken{}
	}

	for ctx.Err() == nil {
		snapshots := make(map[string][]harvester.SegmentReference, len(manifests))
		refreshed := true
		for name, manifestURL := range manifests {
			refs, err := indexes.Get(ctx, manifestURL)
			if err != nil {
				if ctx.Err() == nil {
					log.Error("manifest refresh failed", slog.String("track", name), slog.String("error", err.Error()))
				}
				refreshed = false
				break
			}
			snapshots[name] = refs
		}
		if !refreshed {
			sleepCtx(ctx, updateDuration)
			continue
		}

		next, err := engine.RunCycle(ctx, snapshots, token)
		// Segments committed before a failure stay valid; keep the returned
		// token either way so they are not reprocessed.
		idle := err == nil && maps.Equal(token, next)
		token = next
		if err != nil {
			var streamErr *harvester.StreamError
			if errors.As(err, &streamErr) {
				log.Error("cycle failed",
					slog.String("severity", string(streamErr.Severity)),
					slog.String("category", string(streamErr.Category)),
					slog.String("code", streamErr.Code),
					slog.String("error", err.Error()))
			} else if ctx.Err() == nil {
				log.Error("cycle failed", slog.String("error", err.Error()))
			}
			sleepCtx(ctx, updateDuration)
		}

		if err := tokens.Save(token); err != nil {
			log.Warn("persist continuity token", slog.String("error", err.Error()))
		}

		// An idle cycle commits nothing and therefore paces nothing; floor
		// the poll interval at the update period so an idle or stalled
		// upstream is not refetched back-to-back.
		if idle {
			sleepCtx(ctx, updateDuration)
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stockkeeper/internal/config"
	"stockkeeper/internal/http/handlers"
	applog "stockkeeper/internal/log"
	"stockkeeper/internal/mirror"
	"stockkeeper/internal/realtime"
	"stockkeeper/internal/repos"
	"stockkeeper/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if _, err := applog.Init(cfg.Env, cfg.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer applog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repos.OpenDB(cfg.DBPath)
	if err != nil {
		applog.Fatal("db.open", err)
	}
	store := repos.NewStore(db)
	defer store.Close()

	// Realtime, optionally fanned out through Redis
	hub := realtime.NewHub()
	go hub.Run(ctx)
	if cfg.RedisURL != "" {
		rdb, err := realtime.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			applog.Warn(nil, "redis.unavailable", map[string]any{"err": err.Error()})
		} else {
			defer rdb.Close()
			relay := realtime.NewRedisRelay(rdb, hub, "")
			hub.UsePublisher(relay)
			go relay.Run(ctx)
		}
	}

	// Spreadsheet mirror and image store
	sheets, images := externalServices(ctx, cfg)
	m := mirror.New(store.Products, store.Logs, sheets, cfg.ProductsSheet, cfg.HistorySheet)
	if n, err := m.ImportOnFirstRun(ctx); err != nil {
		applog.Error(nil, "mirror.import", err, nil)
	} else if n > 0 {
		applog.Info(nil, "mirror.import", map[string]any{"rows": n})
	}
	syncer := mirror.NewSyncer(m, hub, cfg.MirrorTimeout)
	syncer.Start()

	inv := services.NewInventoryService(store.Products, store.Logs, syncer)
	auth := services.NewAuthService(store.Users)
	media := services.NewMediaService(cfg.UploadDir, images)

	app := handlers.NewApp(handlers.Deps{
		Inventory: inv,
		Auth:      auth,
		Media:     media,
		Hub:       hub,
	}, handlers.Options{
		SessionSecret: cfg.SessionKey,
		UploadDir:     cfg.UploadDir,
		ExportURL:     cfg.ExportURL(),
		BodyLimit:     cfg.MaxBodyBytes,
		AccessLog:     true,
	})

	go func() {
		<-ctx.Done()
		applog.Info(nil, "server.shutdown", nil)
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			applog.Error(nil, "server.shutdown", err, nil)
		}
	}()

	applog.Info(nil, "server.start", map[string]any{
		"url":          fmt.Sprintf("http://%s:%s/admin", lanIP(), cfg.Port),
		"sheets_id":    orUnset(cfg.SheetsID),
		"drive_folder": orUnset(cfg.DriveFolderID),
		"image_store":  cfg.ImageStore,
		"db":           cfg.DBPath,
	})
	if err := app.Listen("0.0.0.0:" + cfg.Port); err != nil {
		applog.Fatal("server.listen", err)
	}
	syncer.Close()
}

// externalServices builds the spreadsheet client and the image store. Any
// missing piece degrades to "not configured" rather than failing startup.
func externalServices(ctx context.Context, cfg config.Config) (mirror.Sheets, mirror.ImageStore) {
	var images mirror.ImageStore = mirror.NoImageStore{}
	if cfg.ImageStore == "s3" {
		s3, err := mirror.NewS3Store(ctx, mirror.S3Config{
			Bucket:        cfg.S3Bucket,
			Region:        cfg.S3Region,
			AccessKeyID:   cfg.S3AccessKeyID,
			SecretKey:     cfg.S3SecretKey,
			PublicBaseURL: cfg.S3PublicBaseURL,
		})
		if err != nil {
			applog.Warn(nil, "s3.disabled", map[string]any{"err": err.Error()})
		} else {
			images = s3
		}
	}

	keyJSON, email, key, ok := cfg.GoogleCredentials()
	if !ok {
		applog.Warn(nil, "google.disabled", map[string]any{"reason": "no service account credentials"})
		return nil, images
	}
	ts, err := mirror.TokenSource(ctx, keyJSON, email, key)
	if err != nil {
		applog.Warn(nil, "google.disabled", map[string]any{"err": err.Error()})
		return nil, images
	}

	var sheets mirror.Sheets
	if cfg.SheetsID != "" {
		gs, err := mirror.NewGoogleSheets(ctx, ts, cfg.SheetsID)
		if err != nil {
			applog.Warn(nil, "sheets.disabled", map[string]any{"err": err.Error()})
		} else {
			sheets = gs
		}
	} else {
		applog.Warn(nil, "sheets.disabled", map[string]any{"reason": "GOOGLE_SHEETS_ID not set"})
	}

	if cfg.ImageStore == "drive" && cfg.DriveFolderID != "" {
		ds, err := mirror.NewDriveStore(ctx, ts, cfg.DriveFolderID)
		if err != nil {
			applog.Warn(nil, "drive.disabled", map[string]any{"err": err.Error()})
		} else {
			images = ds
		}
	}
	return sheets, images
}

// lanIP returns the first non-loopback IPv4 address, for the startup banner.
func lanIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "0.0.0.0"
	}
	for _, a := range addrs {
		if ipn, ok := a.(*net.IPNet); ok && !ipn.IP.IsLoopback() {
			if v4 := ipn.IP.To4(); v4 != nil {
				return v4.String()
			}
		}
	}
	return "0.0.0.0"
}

func orUnset(s string) string {
	if s == "" {
		return "unset"
	}
	return s
}

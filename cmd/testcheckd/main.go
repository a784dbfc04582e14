package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	api "github.com/mind-engage/testcheck/internal/api/http"
	"github.com/mind-engage/testcheck/internal/auth"
	"github.com/mind-engage/testcheck/internal/config"
	"github.com/mind-engage/testcheck/internal/db"
	"github.com/mind-engage/testcheck/internal/exam"
	"github.com/mind-engage/testcheck/internal/export"
	"github.com/mind-engage/testcheck/internal/notify"
	"github.com/mind-engage/testcheck/internal/rbac"
	"github.com/mind-engage/testcheck/internal/storage"
	syncx "github.com/mind-engage/testcheck/internal/sync"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (overrides $CONFIG_PATH)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// --- DB ---
	driver, err := db.ParseDriver(cfg.DBDriver)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	openCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	dbh, err := db.Open(openCtx, driver, cfg.DBDSN)
	cancel()
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	defer dbh.Close()

	store := exam.NewSQLStore(dbh)

	// --- Export archive ---
	exportOpts := []export.Option{export.WithPDFFont(cfg.PDFFontPath)}
	if bs := archiveStore(cfg); bs != nil {
		exportOpts = append(exportOpts, export.WithArchive(bs))
	}
	exporter := export.New(exam.NewService(store), exportOpts...)

	// --- Service ---
	events := syncx.NewEventRepo(dbh, cfg.SiteID)
	svcOpts := []exam.ServiceOption{
		exam.WithEvents(events),
		exam.WithActor(auth.SubjectFromContext),
		exam.WithArchive(exporter),
	}
	if cfg.EnableNotify {
		tg, err := notify.NewTelegram(cfg.TelegramBotToken)
		if err != nil {
			log.Fatalf("telegram: %v", err)
		}
		svcOpts = append(svcOpts, exam.WithNotifier(tg))
	}
	svc := exam.NewService(store, svcOpts...)

	// --- Auth (local JWT) ---
	var authSvc *auth.AuthService
	if cfg.EnableAuth {
		authSvc = auth.NewAuthService(cfg.AuthHMACSecret,
			auth.Account{Username: cfg.AdminUser, PassHash: cfg.AdminPassHash, Role: rbac.RoleAdmin},
			auth.Account{Username: cfg.BotUser, PassHash: cfg.BotPassHash, Role: rbac.RoleBot},
		)
	}

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: api.NewRouter(api.Deps{
			DB:          dbh,
			Service:     svc,
			Exporter:    exporter,
			Events:      events,
			Auth:        authSvc,
			CORSOrigins: cfg.CORSOrigins,
			BotUsername: cfg.TelegramBotUsername,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("listening on %s (mode=%s, db=%s, auth=%v, notify=%v, archive=%s)",
			cfg.HTTPAddr, cfg.Mode, driver, cfg.EnableAuth, cfg.EnableNotify, cfg.ArchiveDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	svc.Wait()
}

func archiveStore(cfg config.Config) storage.BlobStore {
	switch cfg.ArchiveDriver {
	case "fs":
		bs, err := storage.NewFSStore(cfg.ArchiveBasePath)
		if err != nil {
			log.Fatalf("archive: %v", err)
		}
		return bs
	case "s3":
		bs, err := storage.NewS3Store(storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
		if err != nil {
			log.Fatalf("archive: %v", err)
		}
		return bs
	default:
		return nil
	}
}

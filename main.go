package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"barbershop/api"
	"barbershop/config"
	"barbershop/database"
	"barbershop/identity"
	"barbershop/logger"
	"barbershop/notify"
	"barbershop/photos"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config: ", err)
	}

	lg, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatal("logger: ", err)
	}
	defer func() { _ = lg.Sync() }()

	if err := run(cfg, lg); err != nil {
		lg.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, lg *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lg.Info("connecting to database")
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database connect: %w", err)
	}
	defer db.Close()

	if cfg.MigrateOnStart {
		if err := database.Migrate(db); err != nil {
			return fmt.Errorf("database migrate: %w", err)
		}
		lg.Info("database schema is up to date")
	}

	directory := identity.NewDirectory(db)
	auth := identity.NewAuthenticator(identity.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer), directory)

	var mailer notify.EmailSender = notify.NewStubSender(lg)
	if sg := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, lg); sg != nil {
		mailer = sg
	} else {
		lg.Warn("SENDGRID_API_KEY not set, confirmation emails are only logged")
	}

	deps := api.Deps{
		Auth:           auth,
		Roles:          directory,
		Mailer:         mailer,
		Logger:         lg,
		Location:       cfg.Location,
		SlotGrid:       cfg.SlotGrid,
		PublicBaseURL:  cfg.PublicBaseURL,
		AllowedOrigins: cfg.AllowedOrigins,
	}
	if cfg.PhotoBucket != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return fmt.Errorf("aws config: %w", err)
		}
		deps.Photos = photos.NewStore(s3.NewFromConfig(awsCfg), cfg.PhotoBucket, cfg.PhotoPublicBaseURL, lg)
	} else {
		lg.Warn("PHOTO_BUCKET not set, photo uploads are disabled")
	}

	service := api.NewAPI(db, deps)
	service.RegisterRoutes()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           service.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		lg.Info("server starting",
			zap.String("port", cfg.Port),
			zap.String("timezone", cfg.Location.String()),
			zap.String("slots", strings.Join(cfg.SlotGrid, ",")))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	lg.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

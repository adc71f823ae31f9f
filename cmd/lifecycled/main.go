// Command lifecycled runs scheduled publish and unpublish passes against a
// sqlite-backed content store on a cron trigger. It registers a generic
// "content" adapter so the daemon is useful standalone; embedding hosts will
// normally register their own adapters through the module API instead.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	lifecycle "github.com/goliatone/go-lifecycle"
	passcmd "github.com/goliatone/go-lifecycle/internal/commands/pass"
	"github.com/goliatone/go-lifecycle/internal/engine"
	"github.com/goliatone/go-lifecycle/internal/item"
	"github.com/goliatone/go-lifecycle/internal/logging"
	"github.com/goliatone/go-lifecycle/internal/logging/gologger"
	"github.com/goliatone/go-lifecycle/internal/policy"
)

func main() {
	var (
		driver    = flag.String("db-driver", "sqlite3", "database driver: sqlite3|postgres")
		dsn       = flag.String("db", "file:lifecycle.db?_fk=1", "DSN for the scheduler store")
		trigger   = flag.String("trigger", "", "cron expression override for the pass trigger")
		logLevel  = flag.String("log-level", "info", "log level: trace|debug|info|warn|error")
		logFormat = flag.String("log-format", "console", "log format: json|console|pretty")
		bundles   = flag.String("bundles", "page", "comma separated bundles enabled for scheduling")
		once      = flag.Bool("once", false, "run a single publish+unpublish pass and exit")
	)
	flag.Parse()

	cfg := lifecycle.DefaultConfig()
	cfg.Logging.Level = *logLevel
	cfg.Logging.Format = *logFormat
	if *trigger != "" {
		cfg.Trigger.Expression = *trigger
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("lifecycled: invalid configuration: %v", err)
	}

	provider, err := gologger.NewProvider(gologger.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.AddSource,
		Focus:     cfg.Logging.Focus,
	})
	if err != nil {
		log.Fatalf("lifecycled: initialise logging: %v", err)
	}
	logger := provider.GetLogger("lifecycled")

	db, err := lifecycle.OpenDatabase(*driver, *dsn)
	if err != nil {
		log.Fatalf("lifecycled: open database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := lifecycle.Migrate(ctx, db); err != nil {
		log.Fatalf("lifecycled: migrate: %v", err)
	}

	policyStore := policy.NewBunStore(db)
	module, err := lifecycle.New(cfg,
		lifecycle.WithItemStore(item.NewBunStore(db)),
		lifecycle.WithPolicyStore(policyStore),
		lifecycle.WithLoggerProvider(provider),
	)
	if err != nil {
		log.Fatalf("lifecycled: initialise module: %v", err)
	}

	if err := registerContentAdapter(ctx, module, policyStore, splitBundles(*bundles)); err != nil {
		log.Fatalf("lifecycled: register content adapter: %v", err)
	}

	handler := passcmd.NewRunPassHandler(
		module.Engine(),
		logging.CommandsLogger(provider),
		passcmd.RunPassWithCronExpression(cfg.Trigger.Expression),
	)

	if *once {
		if err := handler.CronHandler()(); err != nil {
			log.Fatalf("lifecycled: pass failed: %v", err)
		}
		return
	}

	location := time.Local
	if tz := strings.TrimSpace(cfg.Trigger.Timezone); tz != "" {
		location, err = time.LoadLocation(tz)
		if err != nil {
			log.Fatalf("lifecycled: invalid trigger timezone %q: %v", tz, err)
		}
	}

	runner := cron.New(cron.WithLocation(location))
	_, err = runner.AddFunc(handler.CronOptions().Expression, func() {
		if err := handler.CronHandler()(); err != nil {
			logger.Error("scheduled pass failed", "error", err)
		}
	})
	if err != nil {
		log.Fatalf("lifecycled: schedule trigger %q: %v", cfg.Trigger.Expression, err)
	}

	runner.Start()
	logger.Info("lifecycled started",
		"trigger", cfg.Trigger.Expression,
		"db", *dsn,
	)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("lifecycled stopping")
	<-runner.Stop().Done()
}

// registerContentAdapter installs the builtin generic adapter and an enabled
// policy record for each requested bundle. Hosts embedding the module register
// richer adapters through Module.Adapters directly.
func registerContentAdapter(ctx context.Context, module *lifecycle.Module, store *policy.BunStore, bundles []string) error {
	err := module.Adapters().Register(&lifecycle.AdapterDefinition{
		EntityTypeID:      "content",
		Label:             "Content",
		TypeFieldName:     "bundle",
		EventNamespace:    "content",
		PublishActionID:   engine.ActionPublishItem,
		UnpublishActionID: engine.ActionUnpublishItem,
	})
	if err != nil {
		return err
	}

	for _, bundle := range bundles {
		record := lifecycle.BundlePolicy{
			PublishEnabled:   true,
			UnpublishEnabled: true,
		}
		if err := store.Put(ctx, "content", bundle, record); err != nil {
			return err
		}
	}
	return nil
}

func splitBundles(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

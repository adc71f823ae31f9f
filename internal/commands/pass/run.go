package passcmd

import (
	"context"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	command "github.com/goliatone/go-command"

	"github.com/goliatone/go-lifecycle/internal/commands"
	"github.com/goliatone/go-lifecycle/internal/domain"
	"github.com/goliatone/go-lifecycle/internal/engine"
	"github.com/goliatone/go-lifecycle/internal/logging"
	"github.com/goliatone/go-lifecycle/pkg/interfaces"
)

const runPassMessageType = "lifecycle.pass.run"

// PassRunner is the engine surface the command drives.
type PassRunner interface {
	RunPass(ctx context.Context, process domain.Process) (*engine.Report, error)
}

// RunPassCommand triggers one scheduler pass in the given direction.
type RunPassCommand struct {
	Process string `json:"process"`
}

// Type implements command.Message.
func (RunPassCommand) Type() string { return runPassMessageType }

// Validate ensures the message names a supported pass direction.
func (m RunPassCommand) Validate() error {
	errs := validation.Errors{}
	if !domain.Process(m.Process).Valid() {
		errs["process"] = validation.NewError(
			"lifecycle.pass.run.process_invalid",
			"process must be publish or unpublish",
		)
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

type runPassHandlerConfig struct {
	cronConfig command.HandlerConfig
	timeout    time.Duration
}

// RunPassHandlerOption customises the run-pass handler.
type RunPassHandlerOption func(*runPassHandlerConfig)

// RunPassWithCronConfig overrides the cron registration options.
func RunPassWithCronConfig(config command.HandlerConfig) RunPassHandlerOption {
	return func(cfg *runPassHandlerConfig) {
		cfg.cronConfig = config
	}
}

// RunPassWithCronExpression overrides the cron expression.
func RunPassWithCronExpression(expression string) RunPassHandlerOption {
	return func(cfg *runPassHandlerConfig) {
		if trimmed := strings.TrimSpace(expression); trimmed != "" {
			cfg.cronConfig.Expression = trimmed
		}
	}
}

// RunPassWithTimeout overrides the default execution timeout.
func RunPassWithTimeout(timeout time.Duration) RunPassHandlerOption {
	return func(cfg *runPassHandlerConfig) {
		cfg.timeout = timeout
	}
}

// RunPassHandler executes scheduler passes via the engine.
type RunPassHandler struct {
	runner     PassRunner
	logger     interfaces.Logger
	cronConfig command.HandlerConfig
	timeout    time.Duration
}

// NewRunPassHandler constructs a handler wired to the provided engine.
func NewRunPassHandler(runner PassRunner, logger interfaces.Logger, opts ...RunPassHandlerOption) *RunPassHandler {
	cfg := runPassHandlerConfig{
		cronConfig: command.HandlerConfig{
			Expression: "@every 1m",
		},
		timeout: commands.DefaultCommandTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return &RunPassHandler{
		runner:     runner,
		logger:     commands.EnsureLogger(logger),
		cronConfig: cfg.cronConfig,
		timeout:    cfg.timeout,
	}
}

// Execute satisfies command.Commander[RunPassCommand].
func (h *RunPassHandler) Execute(ctx context.Context, msg RunPassCommand) error {
	if err := commands.WrapValidationError(command.ValidateMessage(msg)); err != nil {
		return err
	}
	ctx = commands.EnsureContext(ctx)
	ctx, cancel := commands.WithCommandTimeout(ctx, h.timeout)
	defer cancel()

	if err := ctx.Err(); err != nil {
		return commands.WrapContextError(err)
	}

	process := domain.Process(msg.Process)
	logger := logging.WithFields(h.logger, map[string]any{
		"operation": "pass.run",
		"process":   msg.Process,
	})

	report, err := h.runner.RunPass(ctx, process)
	if err != nil {
		logger.Error("pass.run.failed", "error", err)
		return commands.WrapExecuteError(err)
	}

	logger.Info("pass.run.finished",
		"transitioned", report.Transitioned,
		"vetoed", report.Vetoed,
		"skipped", report.Skipped,
		"failed", report.Failed,
	)
	return nil
}

// CronHandler satisfies command.CronCommand by binding both pass directions
// to a cron runner: publish first, then unpublish, matching the invariant
// that unpublish defers to a still-pending publish.
func (h *RunPassHandler) CronHandler() func() error {
	return func() error {
		ctx := context.Background()
		if err := h.Execute(ctx, RunPassCommand{Process: string(domain.ProcessPublish)}); err != nil {
			return err
		}
		return h.Execute(ctx, RunPassCommand{Process: string(domain.ProcessUnpublish)})
	}
}

// CronOptions satisfies command.CronCommand by returning the configured cron metadata.
func (h *RunPassHandler) CronOptions() command.HandlerConfig {
	return h.cronConfig
}

// Package command builds the imagegen command-line interface.
package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/phrazzld/imagegen-api/internal/config"
	"github.com/phrazzld/imagegen-api/internal/domain"
	"github.com/phrazzld/imagegen-api/internal/events"
	"github.com/phrazzld/imagegen-api/internal/generation"
	"github.com/phrazzld/imagegen-api/internal/platform/logger"
	"github.com/phrazzld/imagegen-api/internal/platform/zimage"
	"github.com/phrazzld/imagegen-api/internal/task"
)

// Exit codes returned through cli.ExitCoder.
const (
	ExitFailure = 1
	ExitUsage   = 2
)

// Deps are the seams BuildApp needs. Zero values select production behavior.
type Deps struct {
	LoadConfig func(path string) (*config.Config, error)
	NewGateway func(cfg *config.Config, logger *slog.Logger) generation.Gateway
	Stdout     io.Writer
	Stderr     io.Writer
}

// BuildApp returns the imagegen CLI. Errors are returned from RunContext,
// never turned into os.Exit calls; callers inspect cli.ExitCoder.
func BuildApp(deps Deps) *cli.App {
	stdout := deps.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	stderr := deps.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	return &cli.App{
		Name:           "imagegen",
		Usage:          "generate images with the zimageturbo task API",
		Writer:         stdout,
		ErrWriter:      stderr,
		ExitErrHandler: func(*cli.Context, error) {},
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "path to a config file"},
			&cli.BoolFlag{Name: "verbose", Usage: "log controller activity to stderr"},
		},
		Commands: []*cli.Command{
			{
				Name:  "generate",
				Usage: "submit a prompt and wait for the image",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "prompt", Aliases: []string{"p"}, Required: true},
					&cli.StringFlag{
						Name:    "aspect-ratio",
						Aliases: []string{"a"},
						Value:   string(domain.AspectRatioSquare),
						Usage:   "one of 1:1, 4:3, 3:4, 16:9, 9:16",
					},
				},
				Action: func(ctx *cli.Context) error {
					env, err := newEnv(ctx, deps)
					if err != nil {
						return err
					}
					return runGenerate(ctx.Context, env, ctx.String("prompt"), ctx.String("aspect-ratio"))
				},
			},
			{
				Name:  "status",
				Usage: "query a task once",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "task-id", Aliases: []string{"t"}, Required: true},
				},
				Action: func(ctx *cli.Context) error {
					env, err := newEnv(ctx, deps)
					if err != nil {
						return err
					}
					return runStatus(ctx.Context, env, ctx.String("task-id"))
				},
			},
		},
	}
}

// env is what a command action runs against.
type env struct {
	cfg     *config.Config
	gateway generation.Gateway
	logger  *slog.Logger
	out     io.Writer
}

func newEnv(ctx *cli.Context, deps Deps) (*env, error) {
	load := deps.LoadConfig
	if load == nil {
		load = loadConfig
	}
	cfg, err := load(ctx.String("config"))
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("failed to load configuration: %v", err), ExitUsage)
	}

	serverCfg := cfg.Server
	if !ctx.Bool("verbose") {
		serverCfg.LogLevel = "warn"
	}
	log, err := logger.SetupWithWriter(serverCfg, ctx.App.ErrWriter)
	if err != nil {
		return nil, err
	}

	newGateway := deps.NewGateway
	if newGateway == nil {
		newGateway = func(cfg *config.Config, l *slog.Logger) generation.Gateway {
			return zimage.NewClient(cfg.Upstream, l)
		}
	}

	return &env{
		cfg:     cfg,
		gateway: newGateway(cfg, log),
		logger:  log,
		out:     ctx.App.Writer,
	}, nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

// runGenerate drives one controller run to a terminal state, printing each
// progress label with the elapsed seconds.
func runGenerate(ctx context.Context, e *env, prompt, aspectRatio string) error {
	ratio, err := domain.ParseAspectRatio(aspectRatio)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Invalid aspect ratio %q; use one of 1:1, 4:3, 3:4, 16:9, 9:16", aspectRatio), ExitUsage)
	}
	req, err := domain.NewGenerationRequest(prompt, ratio)
	if err != nil {
		return cli.Exit(generation.UserMessage(err), ExitUsage)
	}

	ctrl := task.NewController(e.gateway, e.gateway,
		task.WithPolicy(task.PolicyFromConfig(e.cfg.Polling)),
		task.WithLogger(e.logger))
	defer ctrl.Close()
	policy := ctrl.Policy()

	// Handlers run under the controller lock, so they only hand events off.
	updates := make(chan *events.StateEvent, policy.MaxAttempts+2)
	ctrl.OnStateChange(events.HandlerFunc(func(_ context.Context, ev *events.StateEvent) error {
		select {
		case updates <- ev:
		default:
		}
		return nil
	}))

	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	handle, err := ctrl.Submit(ctx, req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return cli.Exit("cancelled", ExitFailure)
		}
		red.Fprintf(e.out, "✗ %s\n", generation.UserMessage(err))
		return cli.Exit(hint(err), ExitFailure)
	}
	cyan.Fprintf(e.out, "Task %s submitted (%s)\n", handle, req.AspectRatio.Label())
	e.logger.Debug("polling task",
		"task_id", handle,
		"interval", policy.Interval,
		"budget", policy.Budget())

	for {
		select {
		case <-ctx.Done():
			return cli.Exit("cancelled", ExitFailure)
		case ev := <-updates:
			switch ev.Kind {
			case events.KindInProgress:
				yellow.Fprintf(e.out, "  %s (%ds)\n", ev.Label, ev.ElapsedSeconds())
			case events.KindSucceeded:
				green.Fprintf(e.out, "✓ Image ready after %ds\n", ev.ElapsedSeconds())
				fmt.Fprintln(e.out, ev.Result.ImageURL)
				if ev.Result.Total > 1 {
					fmt.Fprintf(e.out, "  (%d images returned, showing the first)\n", ev.Result.Total)
				}
				return nil
			default:
				red.Fprintf(e.out, "✗ %s\n", ev.Message)
				return cli.Exit(hint(ev.Err), ExitFailure)
			}
		}
	}
}

// runStatus performs a single status query and prints the outcome.
func runStatus(ctx context.Context, e *env, taskID string) error {
	state, err := e.gateway.Status(ctx, generation.TaskHandle(taskID))
	if err != nil {
		color.New(color.FgRed).Fprintf(e.out, "✗ %s\n", generation.UserMessage(err))
		return cli.Exit(hint(err), ExitFailure)
	}

	fmt.Fprintf(e.out, "Task:   %s\n", state.Handle)
	switch state.Status {
	case generation.StatusSucceeded:
		color.New(color.FgGreen).Fprintf(e.out, "Status: %s\n", state.Status)
		fmt.Fprintf(e.out, "Image:  %s\n", state.Result.ImageURL)
		if state.Result.Prompt != "" {
			fmt.Fprintf(e.out, "Prompt: %s\n", state.Result.Prompt)
		}
	case generation.StatusFailed:
		color.New(color.FgRed).Fprintf(e.out, "Status: %s\n", state.Status)
		fmt.Fprintf(e.out, "Error:  %s\n", generation.FailureMessage(state.Reason))
	default:
		color.New(color.FgYellow).Fprintf(e.out, "Status: %s\n", state.Status)
	}
	return nil
}

// hint returns the exit message for a failed run or upstream call.
func hint(err error) string {
	if errors.Is(err, generation.ErrTimeoutPolicy) {
		return "the task may still finish upstream; check it later with `imagegen status --task-id`"
	}
	if zimage.IsRetryable(err) {
		return "the upstream error looks transient; try again shortly"
	}
	return ""
}

// Package cli builds the phaseworker command line:
//
//	phaseworker run -c config.yaml --phase extraction
//	phaseworker submit -c config.yaml --queue jobs.submitted --data '{"files":{...}}'
//	phaseworker version
//
// run starts an engine that moves each consumed job to the succeeded status
// of its phase and stops gracefully on SIGINT or SIGTERM. submit publishes a
// new "submitted" envelope and prints its job id.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	runtimepkg "github.com/kimvieware/phaseflow/internal/runtime"
	"github.com/kimvieware/phaseflow/internal/runtime/config"
	"github.com/kimvieware/phaseflow/internal/runtime/envelope"
	jsoncodec "github.com/kimvieware/phaseflow/internal/runtime/jsoncodec"
	loggingpkg "github.com/kimvieware/phaseflow/internal/runtime/logging"
	transportpkg "github.com/kimvieware/phaseflow/internal/runtime/transport"
)

// Version is overridden at build time with -ldflags "-X ...cli.Version=".
var Version = "dev"

// transportFactory is swapped by tests to run against an in-memory broker.
var transportFactory = transportpkg.DefaultFactory()

// logOutput receives structured logs from run and submit.
var logOutput io.Writer = os.Stderr

// BuildCLI assembles the root command and its subcommands.
func BuildCLI() *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:   "phaseworker",
		Short: "phaseworker runs one phase of the job pipeline",
		Long: `phaseworker consumes job envelopes from an input queue, advances them
through its phase and publishes them to the next queue. Settings come from a
YAML file and PHASEFLOW_* environment variables.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (optional, env overrides apply)")

	rootCmd.AddCommand(buildRunCommand(&configFile))
	rootCmd.AddCommand(buildSubmitCommand(&configFile))
	rootCmd.AddCommand(buildVersionCommand())

	return rootCmd
}

func buildRunCommand(configFile *string) *cobra.Command {
	var phase string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the phase engine until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEngine(cmd.Context(), *configFile, phase)
		},
	}

	phases := make([]string, 0, len(envelope.Phases()))
	for _, p := range envelope.Phases() {
		phases = append(phases, string(p))
	}
	cmd.Flags().StringVar(&phase, "phase", "", "phase to run: "+strings.Join(phases, ", "))
	_ = cmd.MarkFlagRequired("phase")

	return cmd
}

func runEngine(ctx context.Context, configFile, phaseName string) error {
	phase, ok := envelope.ParsePhase(phaseName)
	if !ok {
		return fmt.Errorf("unknown phase %q", phaseName)
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := loggingpkg.New(cfg.LogLevel, cfg.LogFormat, logOutput)
	if err != nil {
		return err
	}

	engine, err := runtimepkg.NewEngine(cfg, logger, runtimepkg.AdvanceTransform(phase), runtimepkg.EngineDependencies{
		TransportFactory: transportFactory,
		Hooks:            runtimepkg.LoggingHooks(logger),
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := engine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func buildSubmitCommand(configFile *string) *cobra.Command {
	var (
		queue string
		data  string
		jobID string
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Publish a new job envelope",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := submitJob(cmd.Context(), *configFile, queue, data, jobID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}

	cmd.Flags().StringVar(&queue, "queue", "", "target queue (defaults to the configured input queue)")
	cmd.Flags().StringVar(&data, "data", "{}", "JSON object placed in the envelope data")
	cmd.Flags().StringVar(&jobID, "job-id", "", "job id (generated when empty)")

	return cmd
}

func submitJob(ctx context.Context, configFile, queue, data, jobID string) (string, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return "", fmt.Errorf("failed to load config: %w", err)
	}
	if queue == "" {
		queue = cfg.InputQueue
	}
	if queue == "" {
		return "", errors.New("no queue given and no input queue configured")
	}

	var payload envelope.Fields
	if err := jsoncodec.Unmarshal([]byte(data), &payload); err != nil {
		return "", fmt.Errorf("invalid --data: %w", err)
	}
	if payload == nil {
		return "", errors.New("invalid --data: must be a JSON object")
	}

	if jobID == "" {
		jobID = envelope.NewJobID()
	}
	job := envelope.New(jobID, envelope.StatusSubmitted)
	job.Data = payload

	logger, err := loggingpkg.New(cfg.LogLevel, cfg.LogFormat, logOutput)
	if err != nil {
		return "", err
	}

	transport, err := transportFactory.Build(ctx, cfg, loggingpkg.NewWatermillAdapter(logger))
	if err != nil {
		return "", err
	}
	defer func() {
		if cerr := transport.Close(); cerr != nil {
			logger.Error("Failed to close transport", cerr, nil)
		}
	}()

	if err := runtimepkg.Publish(ctx, transport.Publisher, queue, job.Fields(), runtimepkg.PublishOptions{
		Persistent: !cfg.TransientMessages,
	}); err != nil {
		return "", fmt.Errorf("publish job: %w", err)
	}

	logger.Info("Job submitted", loggingpkg.LogFields{"job_id": jobID, "queue": queue})
	return jobID, nil
}

func buildVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the phaseworker version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "phaseworker %s\n", Version)
		},
	}
}

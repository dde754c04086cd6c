package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	logAdapter "github.com/bft-labs/batchq/internal/adapters/log"
	"github.com/bft-labs/batchq/internal/cliconfig"
	"github.com/bft-labs/batchq/pkg/batchq"
	"github.com/bft-labs/batchq/pkg/log"
	"github.com/bft-labs/batchq/pkg/sender"
	"github.com/bft-labs/batchq/plugins/configwatcher"
)

const helpDescription = `
Batch JSON requests read from stdin and send them to a batch endpoint.

Each input line is {"destination": "...", "body": {...}, "flush": false} with
an optional "id". Requests are grouped per destination and sent when a batch
is full, when a line sets "flush", or when the destination's flush timer
expires. One result line per request is written to stdout as its batch
completes.

Configure via file ($HOME/.batchq/config.toml), BATCHQ_* environment
variables, or flags. Flags win over the environment, which wins over the file.
`

var exampleUsage = strings.TrimSpace(`
  batchq --service-url https://batches.example.com --auth-key <api-key> < requests.jsonl
  batchq --config ./batchq.toml --watch --max-batch-items 25 --adaptive
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	bootstrap := log.NewZerologAdapter()

	root := &cobra.Command{
		Use:           "batchq",
		Short:         "Batch JSON requests per destination and send them to a batch endpoint",
		Long:          strings.TrimSpace(helpDescription),
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Determine config path
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			// Build set of changed flags
			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}

			// Apply environment variables (BATCHQ_*)
			// These override file config but are overridden by flags (checked via changed map)
			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, err := logAdapter.New(cfg.LogFormat, cfg.LogLevel, os.Stderr)
			if err != nil {
				return err
			}
			logConfig(logger, cfg, cfgFile)

			return run(cfg, cfgFile, changed, logger)
		},
	}

	// Flags
	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.batchq/config.toml)")
	root.Flags().StringVar(&cfg.ServiceURL, "service-url", cfg.ServiceURL, "base URL batches are posted to")
	root.Flags().StringVar(&cfg.AuthKey, "auth-key", cfg.AuthKey, "API key for authentication")
	root.Flags().DurationVar(&cfg.HTTPTimeout, "timeout", cfg.HTTPTimeout, "HTTP timeout per request")
	root.Flags().IntVar(&cfg.MaxRetries, "max-retries", cfg.MaxRetries, "retries for server errors (-1 disables)")
	root.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	root.Flags().StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format (console, json, none)")

	root.Flags().DurationVar(&cfg.VisibilityTimeout, "visibility-timeout", cfg.VisibilityTimeout, "visibility timeout forwarded with each batch (0 leaves it unset)")
	root.Flags().DurationVar(&cfg.LongPollWaitTimeout, "long-poll-wait", cfg.LongPollWaitTimeout, "long poll wait forwarded with each batch")
	root.Flags().DurationVar(&cfg.MinReceiveWaitTime, "min-receive-wait", cfg.MinReceiveWaitTime, "flush timer interval, and the floor of the adaptive interval")
	root.Flags().DurationVar(&cfg.MaxFlushInterval, "max-flush-interval", cfg.MaxFlushInterval, "ceiling of the adaptive flush interval")
	root.Flags().StringSliceVar(&cfg.MessageSystemAttributeNames, "system-attributes", cfg.MessageSystemAttributeNames, "system attribute names forwarded with each batch")
	root.Flags().StringSliceVar(&cfg.ReceiveMessageAttributeNames, "message-attributes", cfg.ReceiveMessageAttributeNames, "message attribute names forwarded with each batch")
	root.Flags().BoolVar(&cfg.AdaptivePrefetching, "adaptive", cfg.AdaptivePrefetching, "adapt the flush interval to the arrival rate")
	root.Flags().IntVar(&cfg.MaxBatchItems, "max-batch-items", cfg.MaxBatchItems, "maximum requests per batch")
	root.Flags().IntVar(&cfg.MaxInflightBatches, "max-inflight", cfg.MaxInflightBatches, "maximum batches sent concurrently")
	root.Flags().IntVar(&cfg.MaxDoneBatches, "max-done", cfg.MaxDoneBatches, "completed batch reports retained")
	root.Flags().IntVar(&cfg.MaxBufferedEntries, "max-buffered", cfg.MaxBufferedEntries, "maximum buffered requests per destination (default max(10, max-batch-items))")

	root.Flags().DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "time to wait for in-flight batches on shutdown")
	root.Flags().BoolVar(&cfg.Watch, "watch", cfg.Watch, "reload batching settings when the config file changes")

	if err := root.Execute(); err != nil {
		bootstrap.Error("batchq", log.Err(err))
		os.Exit(1)
	}
}

// run wires the manager, the optional config watcher and the stdin pipeline,
// and blocks until input ends or a signal arrives.
func run(cfg cliconfig.Config, cfgFile string, changed map[string]bool, logger log.Logger) error {
	s := sender.NewHTTP[message, json.RawMessage](sender.HTTPConfig{
		ServiceURL: cfg.ServiceURL,
		AuthKey:    cfg.AuthKey,
		MaxRetries: cfg.MaxRetries,
	}, &http.Client{Timeout: cfg.HTTPTimeout}, logger)

	m, err := batchq.New[message, json.RawMessage](s,
		batchq.WithLogger(logger),
		batchq.WithOverride(cfg.Override()),
		batchq.WithShutdownTimeout(cfg.ShutdownTimeout),
	)
	if err != nil {
		return fmt.Errorf("create manager: %w", err)
	}

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	if cfg.Watch {
		watcher := configwatcher.New(configwatcher.Config{
			Path:    cfgFile,
			Base:    cfg,
			Changed: changed,
		})
		if err := watcher.Initialize(ctx, m, logger); err != nil {
			logger.Warn("config watcher unavailable", log.Err(err))
		} else {
			defer watcher.Shutdown(context.Background())
		}
	}

	p := newPipeline(m, os.Stdout, logger)
	doneCh := make(chan error, 1)
	go func() {
		doneCh <- p.Run(ctx, os.Stdin)
	}()

	// Wait for end of input or signal
	select {
	case err := <-doneCh:
		if err != nil {
			logger.Error("read input", log.Err(err))
		}
		// Let buffered requests go out with their flush timers
		drained := make(chan struct{})
		go func() {
			p.Wait()
			close(drained)
		}()
		select {
		case <-drained:
		case sig := <-sigCh:
			logger.Info("received signal while draining, closing", log.String("signal", sig.String()))
		}
	case sig := <-sigCh:
		logger.Info("received signal, closing", log.String("signal", sig.String()))
		cancel()
	}

	closeErr := m.Close()
	p.Wait()

	stats := m.Stats()
	logger.Info("batchq finished",
		log.Uint64("submitted", stats.Submitted),
		log.Uint64("succeeded", stats.Succeeded),
		log.Uint64("failed", stats.Failed),
		log.Uint64("cancelled", stats.Cancelled),
		log.Uint64("batches", stats.Batches),
	)

	if closeErr != nil {
		return fmt.Errorf("close manager: %w", closeErr)
	}
	return nil
}

// logConfig logs the effective configuration, masking the API key.
func logConfig(logger log.Logger, cfg cliconfig.Config, cfgFile string) {
	authKey := ""
	if cfg.AuthKey != "" {
		authKey = "*****"
	}
	logger.Info("configuration",
		log.String("config_file", cfgFile),
		log.String("service_url", cfg.ServiceURL),
		log.String("auth_key", authKey),
		log.Duration("http_timeout", cfg.HTTPTimeout),
		log.Int("max_batch_items", cfg.MaxBatchItems),
		log.Int("max_inflight_batches", cfg.MaxInflightBatches),
		log.Int("max_buffered_entries", cfg.MaxBufferedEntries),
		log.Duration("min_receive_wait", cfg.MinReceiveWaitTime),
		log.Duration("max_flush_interval", cfg.MaxFlushInterval),
		log.Bool("adaptive", cfg.AdaptivePrefetching),
		log.Bool("watch", cfg.Watch),
	)
}

// Package configwatcher reloads batchq's TOML configuration file when it
// changes and applies the batching settings to a running manager.
package configwatcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/batchq/internal/cliconfig"
	"github.com/bft-labs/batchq/pkg/batchq"
	"github.com/bft-labs/batchq/pkg/log"
)

// Reconfigurer applies a new batching configuration.
// *batchq.Manager satisfies this interface.
type Reconfigurer interface {
	Reconfigure(override *batchq.Override) error
}

// Plugin watches a config file and reconfigures its target on change.
type Plugin struct {
	mu sync.Mutex

	// Configuration
	path          string
	debounceDelay time.Duration
	base          cliconfig.Config
	changed       map[string]bool

	// Runtime state
	target   Reconfigurer
	logger   log.Logger
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	debounce *time.Timer
	reloads  int
}

// Config holds configuration options for the config watcher plugin.
type Config struct {
	// Path is the TOML file to watch.
	Path string

	// DebounceDelay is the delay to wait after a file change before reloading.
	// Default: 100 milliseconds
	DebounceDelay time.Duration

	// Base is the configuration the file is layered onto, normally the
	// startup configuration after flags were applied.
	Base cliconfig.Config

	// Changed lists flags set on the command line. The file never
	// overrides them.
	Changed map[string]bool
}

// DefaultConfig returns a Config watching the default config path.
func DefaultConfig() Config {
	return Config{
		Path:          cliconfig.DefaultConfigPath(),
		DebounceDelay: 100 * time.Millisecond,
		Base:          cliconfig.DefaultConfig(),
	}
}

// New creates a new config watcher plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}
	if cfg.Changed == nil {
		cfg.Changed = map[string]bool{}
	}

	return &Plugin{
		path:          cfg.Path,
		debounceDelay: cfg.DebounceDelay,
		base:          cfg.Base,
		changed:       cfg.Changed,
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "configwatcher"
}

// Initialize starts watching the config file's directory. Reloads are
// applied to target until ctx is cancelled or Shutdown is called.
func (p *Plugin) Initialize(ctx context.Context, target Reconfigurer, logger log.Logger) error {
	if target == nil {
		return errors.New("configwatcher: nil target")
	}
	if logger == nil {
		logger = log.NewNoopLogger()
	}

	p.mu.Lock()
	p.target = target
	p.logger = log.With(logger, log.String("plugin", p.Name()), log.String("path", p.path))
	p.mu.Unlock()

	if p.path == "" {
		p.logger.Warn("config watcher disabled: no config path")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("configwatcher: create watcher: %w", err)
	}
	// Editors replace files on save; watch the directory instead of the file
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("configwatcher: watch %s: %w", filepath.Dir(p.path), err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("config watcher started")

	p.wg.Add(1)
	go p.watchLoop(watchCtx, watcher)

	return nil
}

// Shutdown stops the watcher and any pending reload.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	p.mu.Lock()
	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Reload reads the config file and applies it to the target.
func (p *Plugin) Reload() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.target == nil {
		return errors.New("configwatcher: not initialized")
	}

	cfg := p.base
	fc, err := cliconfig.LoadFileConfig(p.path)
	if err != nil {
		return fmt.Errorf("load %s: %w", p.path, err)
	}
	if err := cliconfig.ApplyFileConfig(&cfg, fc, p.changed); err != nil {
		return fmt.Errorf("apply %s: %w", p.path, err)
	}
	// The environment still outranks the file
	if err := cliconfig.ApplyEnvConfig(&cfg, p.changed); err != nil {
		return fmt.Errorf("apply environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := p.target.Reconfigure(cfg.Override()); err != nil {
		return err
	}

	p.reloads++
	p.logger.Info("configuration file reloaded", log.Int("reloads", p.reloads))
	return nil
}

// watchLoop watches for config file changes.
func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()
	defer watcher.Close()

	name := filepath.Base(p.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			p.debounceReload(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("config watcher error", log.Err(err))
		}
	}
}

func (p *Plugin) debounceReload(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.debounce != nil {
		p.debounce.Stop()
	}

	p.debounce = time.AfterFunc(p.debounceDelay, func() {
		if ctx.Err() != nil {
			return
		}
		if err := p.Reload(); err != nil {
			// Keep the previous configuration
			p.logger.Error("config reload failed", log.Err(err))
		}
	})
}

package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	ServiceURL  string `toml:"service_url"`
	AuthKey     string `toml:"auth_key"`
	HTTPTimeout string `toml:"http_timeout"`
	MaxRetries  int    `toml:"max_retries"`
	LogLevel    string `toml:"log_level"`
	LogFormat   string `toml:"log_format"`

	Batching BatchingFileConfig `toml:"batching"`

	ShutdownTimeout string `toml:"shutdown_timeout"`
}

// BatchingFileConfig is the [batching] table.
type BatchingFileConfig struct {
	VisibilityTimeout            string   `toml:"visibility_timeout"`
	LongPollWaitTimeout          string   `toml:"long_poll_wait_timeout"`
	MinReceiveWaitTime           string   `toml:"min_receive_wait_time"`
	MaxFlushInterval             string   `toml:"max_flush_interval"`
	MessageSystemAttributeNames  []string `toml:"message_system_attribute_names"`
	ReceiveMessageAttributeNames []string `toml:"receive_message_attribute_names"`
	AdaptivePrefetching          *bool    `toml:"adaptive_prefetching"`
	MaxBatchItems                int      `toml:"max_batch_items"`
	MaxInflightBatches           int      `toml:"max_inflight_batches"`
	MaxDoneBatches               int      `toml:"max_done_batches"`
	MaxBufferedEntries           int      `toml:"max_buffered_entries"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.batchq/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".batchq", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("service-url", fc.ServiceURL, &cfg.ServiceURL)
	s.setString("auth-key", fc.AuthKey, &cfg.AuthKey)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("log-format", fc.LogFormat, &cfg.LogFormat)
	s.setInt("max-retries", fc.MaxRetries, &cfg.MaxRetries)

	if err := s.setDuration("timeout", fc.HTTPTimeout, &cfg.HTTPTimeout); err != nil {
		return err
	}
	if err := s.setDuration("shutdown-timeout", fc.ShutdownTimeout, &cfg.ShutdownTimeout); err != nil {
		return err
	}

	return applyBatching(s, cfg, fc.Batching)
}

func applyBatching(s *configSetter, cfg *Config, b BatchingFileConfig) error {
	if err := s.setDuration("visibility-timeout", b.VisibilityTimeout, &cfg.VisibilityTimeout); err != nil {
		return err
	}
	if err := s.setDuration("long-poll-wait", b.LongPollWaitTimeout, &cfg.LongPollWaitTimeout); err != nil {
		return err
	}
	if err := s.setDuration("min-receive-wait", b.MinReceiveWaitTime, &cfg.MinReceiveWaitTime); err != nil {
		return err
	}
	if err := s.setDuration("max-flush-interval", b.MaxFlushInterval, &cfg.MaxFlushInterval); err != nil {
		return err
	}

	s.setStrings("system-attributes", b.MessageSystemAttributeNames, &cfg.MessageSystemAttributeNames)
	s.setStrings("message-attributes", b.ReceiveMessageAttributeNames, &cfg.ReceiveMessageAttributeNames)
	s.setBool("adaptive", b.AdaptivePrefetching, &cfg.AdaptivePrefetching)

	s.setInt("max-batch-items", b.MaxBatchItems, &cfg.MaxBatchItems)
	s.setInt("max-inflight", b.MaxInflightBatches, &cfg.MaxInflightBatches)
	s.setInt("max-done", b.MaxDoneBatches, &cfg.MaxDoneBatches)
	s.setInt("max-buffered", b.MaxBufferedEntries, &cfg.MaxBufferedEntries)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

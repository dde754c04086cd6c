package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (BATCHQ_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("service-url", os.Getenv("BATCHQ_SERVICE_URL"), &cfg.ServiceURL)
	s.setString("auth-key", os.Getenv("BATCHQ_AUTH_KEY"), &cfg.AuthKey)
	s.setString("log-level", os.Getenv("BATCHQ_LOG_LEVEL"), &cfg.LogLevel)
	s.setString("log-format", os.Getenv("BATCHQ_LOG_FORMAT"), &cfg.LogFormat)

	if err := s.setDuration("timeout", os.Getenv("BATCHQ_HTTP_TIMEOUT"), &cfg.HTTPTimeout); err != nil {
		return err
	}
	if err := s.setDuration("shutdown-timeout", os.Getenv("BATCHQ_SHUTDOWN_TIMEOUT"), &cfg.ShutdownTimeout); err != nil {
		return err
	}
	if err := s.setDuration("visibility-timeout", os.Getenv("BATCHQ_VISIBILITY_TIMEOUT"), &cfg.VisibilityTimeout); err != nil {
		return err
	}
	if err := s.setDuration("long-poll-wait", os.Getenv("BATCHQ_LONG_POLL_WAIT_TIMEOUT"), &cfg.LongPollWaitTimeout); err != nil {
		return err
	}
	if err := s.setDuration("min-receive-wait", os.Getenv("BATCHQ_MIN_RECEIVE_WAIT_TIME"), &cfg.MinReceiveWaitTime); err != nil {
		return err
	}
	if err := s.setDuration("max-flush-interval", os.Getenv("BATCHQ_MAX_FLUSH_INTERVAL"), &cfg.MaxFlushInterval); err != nil {
		return err
	}

	if err := s.setIntFromString("max-retries", os.Getenv("BATCHQ_MAX_RETRIES"), &cfg.MaxRetries); err != nil {
		return err
	}
	if err := s.setIntFromString("max-batch-items", os.Getenv("BATCHQ_MAX_BATCH_ITEMS"), &cfg.MaxBatchItems); err != nil {
		return err
	}
	if err := s.setIntFromString("max-inflight", os.Getenv("BATCHQ_MAX_INFLIGHT_BATCHES"), &cfg.MaxInflightBatches); err != nil {
		return err
	}
	if err := s.setIntFromString("max-done", os.Getenv("BATCHQ_MAX_DONE_BATCHES"), &cfg.MaxDoneBatches); err != nil {
		return err
	}
	if err := s.setIntFromString("max-buffered", os.Getenv("BATCHQ_MAX_BUFFERED_ENTRIES"), &cfg.MaxBufferedEntries); err != nil {
		return err
	}

	s.setStringsFromCSV("system-attributes", os.Getenv("BATCHQ_MESSAGE_SYSTEM_ATTRIBUTE_NAMES"), &cfg.MessageSystemAttributeNames)
	s.setStringsFromCSV("message-attributes", os.Getenv("BATCHQ_RECEIVE_MESSAGE_ATTRIBUTE_NAMES"), &cfg.ReceiveMessageAttributeNames)
	s.setBoolFromString("adaptive", os.Getenv("BATCHQ_ADAPTIVE_PREFETCHING"), &cfg.AdaptivePrefetching)
	s.setBoolFromString("watch", os.Getenv("BATCHQ_WATCH"), &cfg.Watch)

	return nil
}

package cliconfig

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bft-labs/batchq/internal/domain"
)

// DefaultServiceURL is the default endpoint batches are posted to.
const DefaultServiceURL = "http://localhost:8080"

// Config holds CLI configuration for batchq.
type Config struct {
	ServiceURL  string
	AuthKey     string
	HTTPTimeout time.Duration
	MaxRetries  int

	LogLevel  string
	LogFormat string

	VisibilityTimeout            time.Duration
	LongPollWaitTimeout          time.Duration
	MinReceiveWaitTime           time.Duration
	MaxFlushInterval             time.Duration
	MessageSystemAttributeNames  []string
	ReceiveMessageAttributeNames []string
	AdaptivePrefetching          bool
	MaxBatchItems                int
	MaxInflightBatches           int
	MaxDoneBatches               int
	MaxBufferedEntries           int

	ShutdownTimeout time.Duration
	Watch           bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		ServiceURL:          DefaultServiceURL,
		AuthKey:             os.Getenv("BATCHQ_AUTH_KEY"),
		HTTPTimeout:         15 * time.Second,
		MaxRetries:          3,
		LogLevel:            "info",
		LogFormat:           "console",
		LongPollWaitTimeout: domain.DefaultLongPollWaitTimeout,
		MinReceiveWaitTime:  domain.DefaultMinReceiveWaitTime,
		MaxFlushInterval:    domain.DefaultMaxFlushInterval,
		AdaptivePrefetching: domain.DefaultAdaptivePrefetching,
		MaxBatchItems:       domain.DefaultMaxBatchItems,
		MaxInflightBatches:  domain.DefaultMaxInflightBatches,
		MaxDoneBatches:      domain.DefaultMaxDoneBatches,
		ShutdownTimeout:     30 * time.Second,
	}
}

// Validate checks the configuration for errors and normalizes the service URL.
func (c *Config) Validate() error {
	if c.ServiceURL == "" {
		c.ServiceURL = DefaultServiceURL
	}

	// Ensure no trailing slash
	c.ServiceURL = strings.TrimRight(c.ServiceURL, "/")

	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http timeout must be positive")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}

	if err := domain.Resolve(c.Override()).Validate(); err != nil {
		return fmt.Errorf("batching config: %w", err)
	}
	return nil
}

// Override converts the batching fields to an engine override. Zero values
// are left absent so the engine default applies.
func (c Config) Override() *domain.Override {
	o := &domain.Override{
		MessageSystemAttributeNames:  c.MessageSystemAttributeNames,
		ReceiveMessageAttributeNames: c.ReceiveMessageAttributeNames,
		AdaptivePrefetching:          &c.AdaptivePrefetching,
	}
	if c.VisibilityTimeout > 0 {
		o.VisibilityTimeout = &c.VisibilityTimeout
	}
	if c.LongPollWaitTimeout > 0 {
		o.LongPollWaitTimeout = &c.LongPollWaitTimeout
	}
	if c.MinReceiveWaitTime > 0 {
		o.MinReceiveWaitTime = &c.MinReceiveWaitTime
	}
	if c.MaxFlushInterval > 0 {
		o.MaxFlushInterval = &c.MaxFlushInterval
	}
	if c.MaxBatchItems > 0 {
		o.MaxBatchItems = &c.MaxBatchItems
	}
	if c.MaxInflightBatches > 0 {
		o.MaxInflightBatches = &c.MaxInflightBatches
	}
	if c.MaxDoneBatches > 0 {
		o.MaxDoneBatches = &c.MaxDoneBatches
	}
	if c.MaxBufferedEntries > 0 {
		o.MaxBufferedEntries = &c.MaxBufferedEntries
	}
	return o
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setStrings sets a list if not empty and flag not changed.
func (s *configSetter) setStrings(flag string, value []string, dst *[]string) {
	if len(value) == 0 || s.changed[flag] {
		return
	}
	*dst = append([]string(nil), value...)
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setStringsFromCSV splits a comma-separated list and sets the destination.
// Used for environment variables that come as strings.
func (s *configSetter) setStringsFromCSV(flag, value string, dst *[]string) {
	if value == "" || s.changed[flag] {
		return
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	s.setStrings(flag, out, dst)
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}

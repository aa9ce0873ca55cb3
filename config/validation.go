package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/grovetools/lombridge/errors"
)

// Validate checks semantic constraints the schema cannot express.
func (c *Config) Validate() error {
	if err := validateAddress("host.listen", c.Host.Listen); err != nil {
		return err
	}
	if c.Host.HTTPAddr != "" {
		if err := validateAddress("host.http_addr", c.Host.HTTPAddr); err != nil {
			return err
		}
	}
	if err := validateAddress("client.address", c.Client.Address); err != nil {
		return err
	}

	if c.Host.Tick < 0 || c.Host.DispatchTimeout < 0 || c.Host.StatusInterval < 0 {
		return errors.New(errors.ErrCodeConfigValidation, "host durations must not be negative")
	}
	if c.Host.Tick.Std() >= c.Host.DispatchTimeout.Std() {
		return errors.New(errors.ErrCodeConfigValidation,
			fmt.Sprintf("host.tick (%s) must be shorter than host.dispatch_timeout (%s)", c.Host.Tick, c.Host.DispatchTimeout))
	}
	if c.Host.MaxFrameBytes < 2 {
		return errors.New(errors.ErrCodeConfigValidation, "host.max_frame_bytes is too small to hold a JSON value")
	}

	for command, timeout := range c.Client.CommandTimeouts {
		if timeout <= 0 {
			return errors.New(errors.ErrCodeConfigValidation,
				fmt.Sprintf("client.command_timeouts.%s must be positive", command)).
				WithDetail("command", command)
		}
	}

	for from, to := range c.Search.Aliases {
		if strings.TrimSpace(from) == "" || strings.TrimSpace(to) == "" {
			return errors.New(errors.ErrCodeConfigValidation, "search.aliases entries must be non-empty")
		}
	}
	if len(c.Search.DeviceRoots) == 0 || len(c.Search.SampleRoots) == 0 {
		return errors.New(errors.ErrCodeConfigValidation, "search roots must not be empty")
	}

	if c.Batch.VerifyInterval <= 0 || c.Batch.VerifyInterval > c.Batch.VerifyTimeout {
		return errors.New(errors.ErrCodeConfigValidation, "batch.verify_interval must be positive and not exceed batch.verify_timeout")
	}

	return nil
}

func validateAddress(field, addr string) error {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigValidation, fmt.Sprintf("%s is not a host:port address", field)).
			WithDetail("field", field).
			WithDetail("value", addr)
	}
	return nil
}

package config

import (
	"fmt"
	"strings"
)

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}

	if c.Tenancy.UserDSNTemplate != "" && strings.Count(c.Tenancy.UserDSNTemplate, "%s") != 1 {
		return fmt.Errorf("tenancy.user_dsn_template must contain exactly one %%s verb")
	}

	if c.Tenancy.StepTimeout <= 0 {
		return fmt.Errorf("tenancy.step_timeout must be > 0 (got %v)", c.Tenancy.StepTimeout)
	}

	if c.Sweep.Interval <= 0 {
		return fmt.Errorf("sweep.interval must be > 0 (got %v)", c.Sweep.Interval)
	}
	if c.Sweep.PageSize <= 0 {
		return fmt.Errorf("sweep.page_size must be > 0 (got %d)", c.Sweep.PageSize)
	}

	return nil
}

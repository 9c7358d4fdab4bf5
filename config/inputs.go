package config

import (
	"fmt"

	"github.com/kilianp07/loadshift/auth"
)

// InputsConfig locates the constraint and tariff files.
type InputsConfig struct {
	// Constraints is a JSON or YAML appliance constraint file. Empty means
	// every appliance gets the default constraint.
	Constraints string `json:"constraints"`
	// Tariffs is a JSON or YAML file of named tariff schedules, or an
	// http(s) URL serving one.
	Tariffs string `json:"tariffs"`
	// Tariff names the schedule used when a household does not pick one.
	Tariff string `json:"tariff"`
	// Instructions is free text narrowing the constraints, applied on load.
	Instructions string `json:"instructions"`
	// Auth holds client credentials for a remote tariff endpoint.
	Auth auth.Conf `json:"auth"`
}

// Validate requires a tariff name whenever a tariff source is given.
func (c InputsConfig) Validate() error {
	if c.Tariffs != "" && c.Tariff == "" {
		return fmt.Errorf("tariff name required with tariffs %s", c.Tariffs)
	}
	if err := c.Auth.Validate(); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	return nil
}

// Package config defines the InvoiceStudio service configuration.
// Configuration is loaded once at process start from the environment (with
// optional .env support) and is immutable thereafter. An absent AMP board
// configuration is a valid state, not an error: the board id and column ids
// are assigned by monday at a provisioning step the service does not control,
// and the billing façade substitutes mock data until then.
package config

import (
	"strings"

	"invoicestudio/internal/types"
)

// SecretString aliases the redacted secret type used for credentials.
type SecretString = types.SecretString

// Config is the top-level configuration struct, populated once during process
// initialization and never modified.
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"invoicestudio-api"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	Server   ServerConfig
	Monday   MondayConfig
	AMP      AMPConfig
	Database DatabaseConfig
}

// Production reports whether the service runs in a deployed environment where
// internal error detail must not leak to clients.
func (c *Config) Production() bool {
	return c.Environment == "staging" || c.Environment == "prod"
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8302"`
}

// MondayConfig holds monday.com API access and callback verification settings.
type MondayConfig struct {
	APIURL        string       `envconfig:"MONDAY_API_URL" default:"https://api.monday.com/v2" validate:"required,url"`
	APIVersion    string       `envconfig:"MONDAY_API_VERSION" default:"2024-10"`
	APIToken      SecretString `envconfig:"MONDAY_API_TOKEN"`
	SigningSecret SecretString `envconfig:"MONDAY_SIGNING_SECRET" validate:"required"`
}

// AMPConfig holds the late-bound AMP board identifiers plus the fallback
// behavior used before the board is provisioned. The plan column is always
// optional; the other three columns and the board id together decide whether
// the source counts as configured.
type AMPConfig struct {
	BoardID           string `envconfig:"AMP_BOARD_ID"`
	AccountColumnID   string `envconfig:"AMP_ACCOUNT_COLUMN_ID"`
	EventTypeColumnID string `envconfig:"AMP_EVENT_TYPE_COLUMN_ID"`
	PlanColumnID      string `envconfig:"AMP_PLAN_COLUMN_ID"`
	CreatedAtColumnID string `envconfig:"AMP_CREATED_AT_COLUMN_ID"`

	MockEnabled  bool   `envconfig:"MOCK_AMP_ENABLED" default:"true"`
	MockPreset   string `envconfig:"MOCK_AMP_PRESET" default:"free" validate:"oneof=free trial paid cancelled"`
	FallbackPlan string `envconfig:"AMP_FALLBACK_PLAN" validate:"omitempty,oneof=free trial paid cancelled"`
}

// BoardConfig converts the environment values into the domain configuration
// consumed by the adapter and façade.
func (a AMPConfig) BoardConfig() types.AmpConfig {
	return types.AmpConfig{
		BoardID: strings.TrimSpace(a.BoardID),
		Columns: types.AmpColumns{
			AccountID: strings.TrimSpace(a.AccountColumnID),
			EventType: strings.TrimSpace(a.EventTypeColumnID),
			Plan:      strings.TrimSpace(a.PlanColumnID),
			CreatedAt: strings.TrimSpace(a.CreatedAtColumnID),
		},
	}
}

// DatabaseConfig holds the export-archive database settings. An empty URL
// selects the in-memory export repository.
type DatabaseConfig struct {
	URL      SecretString `envconfig:"DATABASE_URL"`
	MaxConns int          `envconfig:"DB_MAX_CONNS" default:"4"`
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure parsing environment values into their
	// target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)

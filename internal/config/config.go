// Package config holds the process configuration, read once at startup and
// passed into each component at construction time.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Host string `envconfig:"HOST" default:"0.0.0.0"`
	Port int    `envconfig:"PORT" default:"8080"`

	DBPath string `envconfig:"DB_PATH" default:"data/license.db"`

	JWTAccessSecret    string `envconfig:"JWT_ACCESS_SECRET" required:"true"`
	JWTRefreshSecret   string `envconfig:"JWT_REFRESH_SECRET" required:"true"`
	AccessTokenMinutes int    `envconfig:"ACCESS_TOKEN_MINUTES" default:"15"`
	RefreshTokenDays   int    `envconfig:"REFRESH_TOKEN_DAYS" default:"30"`
	BcryptCost         int    `envconfig:"BCRYPT_COST" default:"10"`

	AdminUsername string `envconfig:"ADMIN_USERNAME" default:"admin"`
	AdminPassword string `envconfig:"ADMIN_PASSWORD" default:"admin"`

	SheetsEnabled        bool   `envconfig:"SHEETS_ENABLED" default:"false"`
	SheetsCredentialPath string `envconfig:"SHEETS_CREDENTIAL_PATH"`
	SheetsSpreadsheetID  string `envconfig:"SHEETS_SPREADSHEET_ID"`
	SheetsSheetName      string `envconfig:"SHEETS_SHEET_NAME" default:"licenses"`
}

// Load reads configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}
	return cfg, nil
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

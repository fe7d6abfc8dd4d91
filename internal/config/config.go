package config

import (
	"errors"
	"fmt"
	"time"
	_ "time/tzdata" // the bot image ships without a zoneinfo database

	"github.com/spf13/viper"
)

// The bot runs as a single process; every setting comes from the
// environment of that process. Channel and user ids are Discord snowflakes.

type Config struct {
	DiscordToken           string        `mapstructure:"DISCORD_BOT_TOKEN"`
	GuildID                string        `mapstructure:"GUILD_ID"`
	ButtonChannelID        string        `mapstructure:"BUTTON_CHANNEL_ID"`
	UpdateReportsChannelID string        `mapstructure:"UPDATE_REPORTS_CHANNEL_ID"`
	LogChannelID           string        `mapstructure:"LOG_CHANNEL_ID"`
	CategoryID             string        `mapstructure:"CATEGORY_ID"`
	AdminUserID            string        `mapstructure:"ADMIN_USER_ID"`
	ResetRoleID            string        `mapstructure:"RESET_ROLE_ID"`
	TimeZone               string        `mapstructure:"TIME_ZONE"`
	GatewayTimeout         time.Duration `mapstructure:"GATEWAY_TIMEOUT"`
	ReconcileOnStart       bool          `mapstructure:"RECONCILE_ON_START"`
	ServerPort             string        `mapstructure:"SERVER_PORT"`
	IsLocalDev             bool          `mapstructure:"IS_LOCAL_DEV"`
	OTelEndpoint           string        `mapstructure:"OTEL_EXPORTER_ENDPOINT"`
	AWSRegion              string        `mapstructure:"AWS_REGION"`
	AWSEndpoint            string        `mapstructure:"AWS_ENDPOINT"`
	AuditSQSQueueURL       string        `mapstructure:"AUDIT_SQS_QUEUE_URL"`
	AdminEmail             string        `mapstructure:"ADMIN_EMAIL"`
	SESSender              string        `mapstructure:"SES_SENDER"`
	DBHost                 string        `mapstructure:"DB_HOST"`
	DBPort                 string        `mapstructure:"DB_PORT"`
	DBUser                 string        `mapstructure:"DB_USER"`
	DBPassword             string        `mapstructure:"DB_PASSWORD"`
	DBName                 string        `mapstructure:"DB_NAME"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (config Config, err error) {
	v := viper.New()

	v.SetDefault("DISCORD_BOT_TOKEN", "")
	v.SetDefault("GUILD_ID", "")
	v.SetDefault("BUTTON_CHANNEL_ID", "")
	v.SetDefault("UPDATE_REPORTS_CHANNEL_ID", "")
	v.SetDefault("LOG_CHANNEL_ID", "")
	v.SetDefault("CATEGORY_ID", "")
	v.SetDefault("ADMIN_USER_ID", "")
	v.SetDefault("RESET_ROLE_ID", "")
	v.SetDefault("TIME_ZONE", "America/Chicago")
	v.SetDefault("GATEWAY_TIMEOUT", "10s")
	v.SetDefault("RECONCILE_ON_START", true)
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("IS_LOCAL_DEV", false)
	v.SetDefault("OTEL_EXPORTER_ENDPOINT", "")
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("AWS_ENDPOINT", "")
	v.SetDefault("AUDIT_SQS_QUEUE_URL", "") // empty disables the audit queue
	v.SetDefault("ADMIN_EMAIL", "")
	v.SetDefault("SES_SENDER", "attendance@attendance-bot.com")
	v.SetDefault("DB_HOST", "db")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "user")
	v.SetDefault("DB_PASSWORD", "password")
	v.SetDefault("DB_NAME", "attendance_db")

	// Read in environment variables that match the keys.
	v.AutomaticEnv()

	err = v.Unmarshal(&config)
	return
}

// ValidateBot reports the settings the bot cannot start without.
func (c Config) ValidateBot() error {
	var errs []error
	if c.DiscordToken == "" {
		errs = append(errs, errors.New("DISCORD_BOT_TOKEN is required"))
	}
	if c.GuildID == "" {
		errs = append(errs, errors.New("GUILD_ID is required"))
	}
	if c.GatewayTimeout <= 0 {
		errs = append(errs, fmt.Errorf("GATEWAY_TIMEOUT must be positive, got %s", c.GatewayTimeout))
	}
	return errors.Join(errs...)
}

// Location returns the civil time zone used in attendance log lines.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("loading time zone %q: %w", c.TimeZone, err)
	}
	return loc, nil
}

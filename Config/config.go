package Config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Scheduler SchedulerConfig
	Firebase  FirebaseConfig
	Slack     SlackConfig
	MQTT      MQTTConfig
	SMTP      SMTPConfig
	Logging   LoggingConfig

	HourlyRate decimal.Decimal
}

type ServerConfig struct {
	Port        string
	Environment string
}

type DatabaseConfig struct {
	Driver string
	DSN    string
	Debug  bool
}

type JWTConfig struct {
	Secret string
}

type SchedulerConfig struct {
	GenerationSchedule string
	ReminderSchedule   string
	RunOnStart         bool
	Concurrency        int
	AdvanceDays        int
	AdvanceMileage     int64
	Location           *time.Location
}

type FirebaseConfig struct {
	CredentialsPath string
	Topic           string
}

type SlackConfig struct {
	Token   string
	Channel string
	// Socket mode command bot; disabled without an app token.
	AppToken       string
	CommandChannel string
	SiteID         uint
	BotUserID      uint
}

type MQTTConfig struct {
	Broker   string
	ClientID string
	Topic    string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	TLS      bool
}

type LoggingConfig struct {
	Level  string
	Format string
	File   string
}

// Load reads .env (when present) and then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading .env: %w", err)
	}

	rate, err := decimal.NewFromString(getEnv("HOURLY_RATE", "500"))
	if err != nil {
		return nil, fmt.Errorf("HOURLY_RATE: %w", err)
	}
	loc, err := time.LoadLocation(getEnv("TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("TIMEZONE: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "3001"),
			Environment: getEnv("APP_ENV", "development"),
		},
		Database: DatabaseConfig{
			Driver: strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
			DSN:    getEnv("DB_DSN", "database.db"),
			Debug:  parseBool(getEnv("DB_DEBUG", "false"), false),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", ""),
		},
		Scheduler: SchedulerConfig{
			GenerationSchedule: getEnv("GENERATION_SCHEDULE", "0 0 6 * * *"),
			ReminderSchedule:   getEnv("REMINDER_SCHEDULE", "0 0 8 * * *"),
			RunOnStart:         parseBool(getEnv("SCHEDULER_RUN_ON_START", "false"), false),
			Concurrency:        parseInt(getEnv("SCHEDULER_CONCURRENCY", "4"), 4),
			AdvanceDays:        parseInt(getEnv("DEFAULT_ADVANCE_DAYS", "7"), 7),
			AdvanceMileage:     int64(parseInt(getEnv("DEFAULT_ADVANCE_MILEAGE", "500"), 500)),
			Location:           loc,
		},
		Firebase: FirebaseConfig{
			CredentialsPath: getEnv("FIREBASE_CREDENTIALS", ""),
			Topic:           getEnv("FIREBASE_TOPIC", "maintenance"),
		},
		Slack: SlackConfig{
			Token:          getEnv("SLACK_TOKEN", ""),
			Channel:        getEnv("SLACK_CHANNEL", ""),
			AppToken:       getEnv("SLACK_APP_TOKEN", ""),
			CommandChannel: getEnv("SLACK_COMMAND_CHANNEL", ""),
			SiteID:         uint(parseInt(getEnv("SLACK_SITE_ID", "1"), 1)),
			BotUserID:      uint(parseInt(getEnv("SLACK_BOT_USER_ID", "0"), 0)),
		},
		MQTT: MQTTConfig{
			Broker:   getEnv("MQTT_BROKER", ""),
			ClientID: getEnv("MQTT_CLIENT_ID", "gmao"),
			Topic:    getEnv("MQTT_TOPIC", "fleet/+/odometer"),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     parseInt(getEnv("SMTP_PORT", "587"), 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", ""),
			TLS:      parseBool(getEnv("SMTP_TLS", "false"), false),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
			File:   getEnv("LOG_FILE", ""),
		},
		HourlyRate: rate,
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// Validate rejects settings the services cannot run with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres", "mysql":
	default:
		return fmt.Errorf("DB_DRIVER: unsupported driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if !c.HourlyRate.IsPositive() {
		return fmt.Errorf("HOURLY_RATE must be positive, got %s", c.HourlyRate)
	}
	if c.IsProduction() && c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	if c.Scheduler.Concurrency < 1 {
		return fmt.Errorf("SCHEDULER_CONCURRENCY must be at least 1")
	}
	if c.Scheduler.AdvanceDays < 0 || c.Scheduler.AdvanceDays > 30 {
		return fmt.Errorf("DEFAULT_ADVANCE_DAYS must be between 0 and 30")
	}
	if c.Scheduler.AdvanceMileage < 0 || c.Scheduler.AdvanceMileage > 5000 {
		return fmt.Errorf("DEFAULT_ADVANCE_MILEAGE must be between 0 and 5000")
	}
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	for name, spec := range map[string]string{
		"GENERATION_SCHEDULE": c.Scheduler.GenerationSchedule,
		"REMINDER_SCHEDULE":   c.Scheduler.ReminderSchedule,
	} {
		if _, err := parser.Parse(spec); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// SetupLogging configures the global logrus logger. With a log file set,
// output goes to both stdout and logs/<file>.
func (c *Config) SetupLogging() error {
	level, err := log.ParseLevel(c.Logging.Level)
	if err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	log.SetLevel(level)

	if strings.EqualFold(c.Logging.Format, "json") {
		log.SetFormatter(&log.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	if c.Logging.File == "" {
		log.SetOutput(os.Stdout)
		return nil
	}
	if err := os.MkdirAll("logs", 0755); err != nil {
		return fmt.Errorf("creating logs directory: %w", err)
	}
	file, err := os.OpenFile(filepath.Join("logs", filepath.Base(c.Logging.File)), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	log.SetOutput(io.MultiWriter(os.Stdout, file))
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(s string, defaultValue int) int {
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	return defaultValue
}

func parseBool(s string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return defaultValue
}

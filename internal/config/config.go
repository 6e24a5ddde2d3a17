package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"StockPulse/internal/logger"
)

// Symbol is one watched ticker and its display name.
type Symbol struct {
	ID   string `yaml:"id" json:"id" validate:"required"`
	Name string `yaml:"name" json:"name"`
}

// DisplayName falls back to the ticker when no name is configured.
func (s Symbol) DisplayName() string {
	if s.Name == "" {
		return s.ID
	}
	return s.Name
}

// RetryPolicy configures bounded exponential backoff.
type RetryPolicy struct {
	Attempts     int           `yaml:"attempts" default:"6" validate:"gte=1"`
	InitialDelay time.Duration `yaml:"initial_delay" default:"5s"`
	MaxDelay     time.Duration `yaml:"max_delay" default:"60s"`
}

// Config holds all application configuration.
type Config struct {
	Timezone string   `yaml:"timezone" default:"Asia/Taipei"`
	Symbols  []Symbol `yaml:"symbols" default:"[{\"id\":\"2330\",\"name\":\"台積電\"}]" validate:"min=1,dive"`
	Proxy    string   `yaml:"proxy"`

	Line struct {
		ChannelToken string `yaml:"channel_token" validate:"required"`
		UserID       string `yaml:"user_id" validate:"required"`
	} `yaml:"line"`
	Discord struct {
		WebhookURL string `yaml:"webhook_url" validate:"omitempty,url"`
	} `yaml:"discord"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id" validate:"required_with=BotToken"`
	} `yaml:"telegram"`

	FinMind struct {
		Token   string        `yaml:"token" validate:"required"`
		BaseURL string        `yaml:"base_url" default:"https://api.finmindtrade.com/api/v4/data" validate:"url"`
		Timeout time.Duration `yaml:"timeout" default:"10s"`
	} `yaml:"finmind"`
	Yahoo struct {
		BaseURL string `yaml:"base_url" default:"https://query1.finance.yahoo.com" validate:"url"`
		Suffix  string `yaml:"suffix" default:".TW"`
	} `yaml:"yahoo"`

	Source struct {
		Tiers        []string `yaml:"tiers" default:"[\"finmind:latest\",\"finmind:today_close\",\"finmind:prior_close\",\"yahoo:latest\"]" validate:"min=1,dive,required"`
		Retries      int      `yaml:"retries" default:"3" validate:"gte=1"`
		LookbackDays int      `yaml:"lookback_days" default:"10" validate:"gte=1"`
		SeedDays     int      `yaml:"seed_days" default:"120" validate:"gte=0"`
	} `yaml:"source"`

	Guard struct {
		Enabled         bool   `yaml:"enabled"`
		ReferenceSymbol string `yaml:"reference_symbol" default:"2330"`
	} `yaml:"guard"`

	Session struct {
		PriorCloseAt string `yaml:"prior_close_at" default:"13:30" validate:"datetime=15:04"`
		PostCloseAt  string `yaml:"post_close_at" default:"14:00" validate:"datetime=15:04"`
	} `yaml:"session"`

	Store struct {
		Backend     string      `yaml:"backend" default:"sheets" validate:"oneof=sheets sqlite"`
		SheetID     string      `yaml:"sheet_id" validate:"required_if=Backend sheets"`
		Credentials string      `yaml:"credentials" validate:"required_if=Backend sheets"`
		SheetName   string      `yaml:"sheet_name" default:"Sheet1"`
		SQLitePath  string      `yaml:"sqlite_path" default:"data/history.db"`
		KeepDays    int         `yaml:"keep_days" default:"400" validate:"gte=60"`
		RateLimit   RetryPolicy `yaml:"rate_limit"`
	} `yaml:"store"`

	Backfill struct {
		Days      int           `yaml:"days" default:"365" validate:"gte=1"`
		BatchDays int           `yaml:"batch_days" default:"10" validate:"gte=1"`
		Pause     time.Duration `yaml:"pause" default:"60s"`
	} `yaml:"backfill"`

	Advisory struct {
		Mode string `yaml:"mode" default:"table" validate:"oneof=table threshold"`
	} `yaml:"advisory"`

	Cache struct {
		RedisAddr     string        `yaml:"redis_addr"`
		RedisPassword string        `yaml:"redis_password"`
		RedisDB       int           `yaml:"redis_db"`
		TTL           time.Duration `yaml:"ttl" default:"12h"`
	} `yaml:"cache"`

	Metrics struct {
		PushgatewayURL string `yaml:"pushgateway_url" validate:"omitempty,url"`
		Job            string `yaml:"job" default:"stockpulse"`
	} `yaml:"metrics"`

	Recorder struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"recorder"`

	Schedule struct {
		Cron []string `yaml:"cron" default:"[\"0 0 10 * * 1-5\",\"0 45 13 * * 1-5\",\"0 10 14 * * 1-5\"]"`
	} `yaml:"schedule"`

	Log logger.Config `yaml:"log"`
}

// MissingError lists every required setting that was absent.
type MissingError struct {
	Fields []string
}

func (e *MissingError) Error() string {
	return "missing required configuration: " + strings.Join(e.Fields, ", ")
}

// Load reads config from a YAML file (optional), a .env file (optional),
// then applies environment variable overrides and defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)

	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	str("LINE_CHANNEL_ACCESS_TOKEN", &cfg.Line.ChannelToken)
	str("LINE_USER_ID", &cfg.Line.UserID)
	str("DISCORD_WEBHOOK_URL", &cfg.Discord.WebhookURL)
	str("TELEGRAM_BOT_TOKEN", &cfg.Telegram.BotToken)
	str("TELEGRAM_CHAT_ID", &cfg.Telegram.ChatID)
	str("FINMIND_TOKEN", &cfg.FinMind.Token)
	str("GOOGLE_SHEETS_CREDENTIALS", &cfg.Store.Credentials)
	str("GOOGLE_SHEET_ID", &cfg.Store.SheetID)
	str("STORE_BACKEND", &cfg.Store.Backend)
	str("SQLITE_PATH", &cfg.Store.SQLitePath)
	str("ADVISORY_MODE", &cfg.Advisory.Mode)
	str("REDIS_ADDR", &cfg.Cache.RedisAddr)
	str("PUSHGATEWAY_URL", &cfg.Metrics.PushgatewayURL)
	str("HTTPS_PROXY", &cfg.Proxy)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("TZ_NAME", &cfg.Timezone)
	if v := os.Getenv("STOCK_LIST"); v != "" {
		cfg.Symbols = ParseSymbols(v)
	}
	if v := os.Getenv("KEEP_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Store.KeepDays = n
		}
	}
	if v := os.Getenv("TRADING_DAY_GUARD"); v != "" {
		cfg.Guard.Enabled = v == "true" || v == "1"
	}
}

// ParseSymbols parses "2330:台積電,6770:力積電,2409".
func ParseSymbols(s string) []Symbol {
	var out []Symbol
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, name, _ := strings.Cut(part, ":")
		out = append(out, Symbol{ID: strings.TrimSpace(id), Name: strings.TrimSpace(name)})
	}
	return out
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks required credentials first, then value constraints.
// Missing credentials are reported together as a *MissingError.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	var missing []string
	var invalid []string
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "Config.")
		if strings.HasPrefix(fe.Tag(), "required") {
			missing = append(missing, field)
			continue
		}
		invalid = append(invalid, fmt.Sprintf("%s (%s=%s)", field, fe.Tag(), fe.Param()))
	}
	if len(missing) > 0 {
		return &MissingError{Fields: missing}
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(invalid, ", "))
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// ClockAt parses an "HH:MM" setting into minutes after midnight.
func ClockAt(hhmm string) (int, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", hhmm, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

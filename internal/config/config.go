package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

const devSecret = "supersecret-dev-key"

type Config struct {
	Mode     Mode   `yaml:"mode"`
	HTTPAddr string `yaml:"http_addr"`

	DBDriver string `yaml:"db_driver"` // sqlite|postgres
	DBDSN    string `yaml:"db_dsn"`

	EnableAuth     bool   `yaml:"enable_auth"`
	AuthHMACSecret string `yaml:"auth_hmac_secret"`
	AdminUser      string `yaml:"admin_user"`
	AdminPassHash  string `yaml:"admin_pass_hash"` // bcrypt
	BotUser        string `yaml:"bot_user"`
	BotPassHash    string `yaml:"bot_pass_hash"` // bcrypt

	CORSOrigins []string `yaml:"cors_origins"`

	TelegramBotToken    string `yaml:"telegram_bot_token"`
	TelegramBotUsername string `yaml:"telegram_bot_username"`
	EnableNotify        bool   `yaml:"enable_notify"`

	ArchiveDriver   string `yaml:"archive_driver"` // none|fs|s3
	ArchiveBasePath string `yaml:"archive_base_path"`
	PDFFontPath     string `yaml:"pdf_font_path"`

	S3Bucket          string `yaml:"s3_bucket"`
	S3Region          string `yaml:"s3_region"`
	S3AccessKeyID     string `yaml:"s3_access_key_id"`
	S3SecretAccessKey string `yaml:"s3_secret_access_key"`

	SiteID string `yaml:"site_id"`
}

func Defaults() Config {
	return Config{
		Mode:            ModeOffline,
		HTTPAddr:        ":8000",
		DBDriver:        "sqlite",
		AuthHMACSecret:  devSecret,
		AdminUser:       "admin",
		BotUser:         "bot",
		CORSOrigins:     []string{"*"},
		ArchiveDriver:   "none",
		ArchiveBasePath: "./data",
		SiteID:          "local",
	}
}

// Load reads .env (if present), then the YAML file at path (or $CONFIG_PATH),
// then lets environment variables override. Later sources win.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path != "" {
		if err := loadYAML(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadYAML(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	defer f.Close()
	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return fmt.Errorf("config: decode %s: %w", path, err)
	}
	return nil
}

// FromEnv is Load without a YAML file and without validation.
func FromEnv() Config {
	cfg := Defaults()
	applyEnv(&cfg)
	return cfg
}

func applyEnv(c *Config) {
	c.Mode = Mode(envOr("MODE", string(c.Mode)))
	c.HTTPAddr = envOr("HTTP_ADDR", c.HTTPAddr)
	c.DBDriver = envOr("DB_DRIVER", c.DBDriver)
	c.DBDSN = envOr("DB_DSN", c.DBDSN)

	c.EnableAuth = envBool("ENABLE_AUTH", c.EnableAuth)
	c.AuthHMACSecret = envOr("AUTH_HMAC_SECRET", c.AuthHMACSecret)
	c.AdminUser = envOr("ADMIN_USER", c.AdminUser)
	c.AdminPassHash = envOr("ADMIN_PASS_HASH", c.AdminPassHash)
	c.BotUser = envOr("BOT_USER", c.BotUser)
	c.BotPassHash = envOr("BOT_PASS_HASH", c.BotPassHash)

	c.CORSOrigins = csvOr("CORS_ORIGINS", strings.Join(c.CORSOrigins, ","))

	c.TelegramBotToken = envOr("TELEGRAM_BOT_TOKEN", c.TelegramBotToken)
	c.TelegramBotUsername = strings.TrimPrefix(envOr("TELEGRAM_BOT_USERNAME", c.TelegramBotUsername), "@")
	c.EnableNotify = envBool("ENABLE_NOTIFY", c.EnableNotify)

	c.ArchiveDriver = envOr("ARCHIVE_DRIVER", c.ArchiveDriver)
	c.ArchiveBasePath = envOr("ARCHIVE_BASE_PATH", c.ArchiveBasePath)
	c.PDFFontPath = envOr("PDF_FONT_PATH", c.PDFFontPath)

	c.S3Bucket = envOr("S3_BUCKET", c.S3Bucket)
	c.S3Region = envOr("S3_REGION", c.S3Region)
	c.S3AccessKeyID = envOr("S3_ACCESS_KEY_ID", c.S3AccessKeyID)
	c.S3SecretAccessKey = envOr("S3_SECRET_ACCESS_KEY", c.S3SecretAccessKey)

	c.SiteID = envOr("SITE_ID", c.SiteID)
}

func (c Config) Validate() error {
	var errs []error
	if c.Mode != ModeOffline && c.Mode != ModeOnline {
		errs = append(errs, fmt.Errorf("MODE must be offline or online, got %q", c.Mode))
	}
	switch c.ArchiveDriver {
	case "", "none", "fs":
	case "s3":
		if c.S3Bucket == "" || c.S3Region == "" {
			errs = append(errs, errors.New("ARCHIVE_DRIVER=s3 needs S3_BUCKET and S3_REGION"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown ARCHIVE_DRIVER %q", c.ArchiveDriver))
	}
	if c.EnableNotify && c.TelegramBotToken == "" {
		errs = append(errs, errors.New("ENABLE_NOTIFY needs TELEGRAM_BOT_TOKEN"))
	}
	if c.EnableAuth {
		if c.AdminPassHash == "" && c.BotPassHash == "" {
			errs = append(errs, errors.New("ENABLE_AUTH needs ADMIN_PASS_HASH or BOT_PASS_HASH"))
		}
		if c.Mode == ModeOnline && c.AuthHMACSecret == devSecret {
			errs = append(errs, errors.New("AUTH_HMAC_SECRET must be set in online mode"))
		}
	}
	return errors.Join(errs...)
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}
func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

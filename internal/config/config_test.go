package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "testcheck.yaml")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Mode != ModeOffline || cfg.HTTPAddr != ":8000" || cfg.DBDriver != "sqlite" || cfg.ArchiveDriver != "none" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	path := writeYAML(t, `
http_addr: ":9000"
db_driver: postgres
db_dsn: postgres://yaml/db
cors_origins: ["https://admin.example.com"]
telegram_bot_username: yaml_bot
archive_driver: fs
`)
	t.Setenv("DB_DSN", "postgres://env/db")
	t.Setenv("TELEGRAM_BOT_USERNAME", "@env_bot")
	t.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HTTPAddr != ":9000" || cfg.DBDriver != "postgres" || cfg.ArchiveDriver != "fs" {
		t.Fatalf("yaml values lost: %+v", cfg)
	}
	if cfg.DBDSN != "postgres://env/db" {
		t.Fatalf("env did not override dsn: %q", cfg.DBDSN)
	}
	if cfg.TelegramBotUsername != "env_bot" {
		t.Fatalf("bot username = %q", cfg.TelegramBotUsername)
	}
	if strings.Join(cfg.CORSOrigins, "|") != "https://a.example.com|https://b.example.com" {
		t.Fatalf("cors = %v", cfg.CORSOrigins)
	}
}

func TestLoad_ConfigPathFromEnv(t *testing.T) {
	t.Setenv("CONFIG_PATH", writeYAML(t, "site_id: campus-2\n"))
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SiteID != "campus-2" {
		t.Fatalf("site id = %q", cfg.SiteID)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected missing file to fail")
	}
	if _, err := Load(writeYAML(t, "http_addr: [not, a, string]\n")); err == nil {
		t.Fatal("expected bad yaml to fail")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*Config)
		ok   bool
	}{
		{"defaults", func(*Config) {}, true},
		{"bad mode", func(c *Config) { c.Mode = "cloud" }, false},
		{"s3 without bucket", func(c *Config) { c.ArchiveDriver = "s3"; c.S3Region = "eu-north-1" }, false},
		{"s3 complete", func(c *Config) { c.ArchiveDriver = "s3"; c.S3Region = "eu-north-1"; c.S3Bucket = "b" }, true},
		{"unknown archive", func(c *Config) { c.ArchiveDriver = "gcs" }, false},
		{"notify without token", func(c *Config) { c.EnableNotify = true }, false},
		{"auth without hashes", func(c *Config) { c.EnableAuth = true }, false},
		{"online auth with dev secret", func(c *Config) {
			c.Mode = ModeOnline
			c.EnableAuth = true
			c.AdminPassHash = "$2a$10$x"
		}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Defaults()
			tc.mut(&cfg)
			err := cfg.Validate()
			if (err == nil) != tc.ok {
				t.Fatalf("Validate() = %v, want ok=%v", err, tc.ok)
			}
		})
	}
}

func TestEnvBool(t *testing.T) {
	t.Setenv("X_FLAG", "yes")
	if !envBool("X_FLAG", false) {
		t.Fatal("yes should be true")
	}
	t.Setenv("X_FLAG", "maybe")
	if envBool("X_FLAG", false) {
		t.Fatal("unknown value should fall back to default")
	}
}

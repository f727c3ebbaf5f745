package config

import (
	"reflect"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"ENV", "ALLOWED_ORIGINS", "FRONTEND_URL", "PUBLIC_SITE_URL", "QR_EXPORT_SIZE", "STORAGE_BACKEND"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	if cfg.IsProduction() {
		t.Fatalf("IsProduction: want false for default env")
	}
	if cfg.AllowedHost != "" {
		t.Fatalf("AllowedHost: want empty outside production got=%q", cfg.AllowedHost)
	}
	if cfg.QRExportSize != 1024 || cfg.QRShareSize != 400 {
		t.Fatalf("sizes: got export=%d share=%d", cfg.QRExportSize, cfg.QRShareSize)
	}
	if cfg.StorageBackend != "cloudinary" || cfg.StorageBucket != "qr-codes" {
		t.Fatalf("storage: got backend=%q bucket=%q", cfg.StorageBackend, cfg.StorageBucket)
	}
}

func TestLoadOriginsAndSite(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", " https://a.example.com, ,https://b.example.com ")
	t.Setenv("PUBLIC_SITE_URL", "https://talkback.example.com/")

	cfg := Load()
	want := []string{"https://a.example.com", "https://b.example.com"}
	if !reflect.DeepEqual(cfg.AllowedOrigins, want) {
		t.Fatalf("AllowedOrigins: want=%v got=%v", want, cfg.AllowedOrigins)
	}
	if got := cfg.FeedbackURL("my-talk-abcd1234"); got != "https://talkback.example.com/f/my-talk-abcd1234" {
		t.Fatalf("FeedbackURL: got=%q", got)
	}
}

func TestLoadProductionHost(t *testing.T) {
	t.Setenv("ENV", "Production")
	t.Setenv("HOST", "https://api.talkback.example.com:443/v1")

	cfg := Load()
	if !cfg.IsProduction() {
		t.Fatalf("IsProduction: want true")
	}
	if cfg.AllowedHost != "api.talkback.example.com" {
		t.Fatalf("AllowedHost: got=%q", cfg.AllowedHost)
	}
}

func TestGetEnvIntRejectsGarbage(t *testing.T) {
	t.Setenv("QR_EXPORT_SIZE", "huge")
	if got := getEnvInt("QR_EXPORT_SIZE", 1024); got != 1024 {
		t.Fatalf("want fallback 1024 got=%d", got)
	}
	t.Setenv("QR_EXPORT_SIZE", "-5")
	if got := getEnvInt("QR_EXPORT_SIZE", 1024); got != 1024 {
		t.Fatalf("want fallback 1024 got=%d", got)
	}
}

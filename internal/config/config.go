package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	PostgresURI         string
	RedisURI            string
	MongoURI            string // optional; empty disables the share audit log
	Port                string
	PublicSiteURL       string   // base for /f/{slug} links encoded into code images
	AllowedOrigins      []string // CORS: from ALLOWED_ORIGINS or FRONTEND_URL(s)
	StorageBackend      string   // "cloudinary" or "gcs"
	StorageBucket       string
	CloudinaryName      string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	GCSBucketName       string
	GCSCredentialsFile  string
	StoragePublicBase   string
	WebhookRelayURL     string
	QRExportSize        int
	QRShareSize         int
	Host                string
	AllowedHost         string // hostname only, production host check
	Environment         string
}

func Load() *Config {
	env := strings.ToLower(strings.TrimSpace(getEnv("ENV", "development")))
	host := getEnv("HOST", "http://localhost:8080")

	var allowedHost string
	if env == "production" {
		allowedHost = bareHost(host)
	}

	allowedOrigins := parseOrigins(getEnv("ALLOWED_ORIGINS", ""))
	if len(allowedOrigins) == 0 {
		for _, u := range []string{getEnv("FRONTEND_URL", "http://localhost:5173"), getEnv("FRONTEND_URL_2", ""), getEnv("FRONTEND_URL_3", "")} {
			u = strings.TrimSpace(u)
			if u != "" {
				allowedOrigins = append(allowedOrigins, u)
			}
		}
	}
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:5173"}
	}

	publicSite := strings.TrimRight(getEnv("PUBLIC_SITE_URL", getEnv("FRONTEND_URL", "http://localhost:5173")), "/")

	return &Config{
		PostgresURI:         getEnv("POSTGRES_URI", "postgres://localhost:5432/talkback?sslmode=disable"),
		RedisURI:            getEnv("REDIS_URI", "redis://localhost:6379/0"),
		MongoURI:            getEnv("MONGODB_URI", getEnv("MONGO_URI", "")),
		Port:                getEnv("PORT", "8080"),
		PublicSiteURL:       publicSite,
		AllowedOrigins:      allowedOrigins,
		StorageBackend:      strings.ToLower(getEnv("STORAGE_BACKEND", "cloudinary")),
		StorageBucket:       getEnv("STORAGE_BUCKET", "qr-codes"),
		CloudinaryName:      getEnv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:    getEnv("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret: getEnv("CLOUDINARY_API_SECRET", ""),
		GCSBucketName:       getEnv("GCS_BUCKET_NAME", ""),
		GCSCredentialsFile:  getEnv("GCS_CREDENTIALS_FILE", ""),
		StoragePublicBase:   strings.TrimRight(getEnv("OBJECT_STORAGE_PUBLIC_BASE_URL", ""), "/"),
		WebhookRelayURL:     getEnv("WEBHOOK_RELAY_URL", ""),
		QRExportSize:        getEnvInt("QR_EXPORT_SIZE", 1024),
		QRShareSize:         getEnvInt("QR_SHARE_SIZE", 400),
		Host:                host,
		AllowedHost:         allowedHost,
		Environment:         env,
	}
}

// FeedbackURL is the public submission link for a slug.
func (c *Config) FeedbackURL(slug string) string {
	return c.PublicSiteURL + "/f/" + slug
}

// IsProduction returns true when ENV is set to "production".
func (c *Config) IsProduction() bool {
	return strings.ToLower(strings.TrimSpace(c.Environment)) == "production"
}

func bareHost(host string) string {
	for _, prefix := range []string{"https://", "http://"} {
		host = strings.TrimPrefix(host, prefix)
	}
	if idx := strings.Index(host, "/"); idx != -1 {
		host = host[:idx]
	}
	if idx := strings.Index(host, ":"); idx != -1 {
		host = host[:idx]
	}
	return strings.TrimSpace(host)
}

func parseOrigins(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}

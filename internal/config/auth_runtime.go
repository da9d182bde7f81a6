package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	jwtsvc "tubeauth/internal/pkg/jwt"
)

const (
	defaultAccessTokenSecret  = "change-me-access-secret"
	defaultRefreshTokenSecret = "change-me-refresh-secret"
)

type AuthRuntimeConfig struct {
	AppEnv      string `env:"APP_ENV" envDefault:"dev"`
	Port        string `env:"PORT" envDefault:"8000"`
	DatabaseURL string `env:"DATABASE_URL" envDefault:"tubeauth.db"`

	AccessTokenSecret  string        `env:"ACCESS_TOKEN_SECRET" envDefault:"change-me-access-secret"`
	RefreshTokenSecret string        `env:"REFRESH_TOKEN_SECRET" envDefault:"change-me-refresh-secret"`
	AccessTokenTTL     time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"15m"`
	RefreshTokenTTL    time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"240h"`
	StoreTimeout       time.Duration `env:"STORE_TIMEOUT" envDefault:"5s"`

	// CookieSecureRaw is COOKIE_SECURE as given; CookieSecure is the resolved
	// policy (true unless running locally).
	CookieSecureRaw string `env:"COOKIE_SECURE"`
	CookieSecure    bool
	CookieSameSite  string `env:"COOKIE_SAMESITE" envDefault:"Lax"`
	CookiePath      string `env:"COOKIE_PATH" envDefault:"/"`
	CookieDomain    string `env:"COOKIE_DOMAIN"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	MetricsToken       string   `env:"METRICS_TOKEN"`
	MetricsAllowedIPs  []string `env:"METRICS_ALLOWED_IPS" envSeparator:","`

	MediaBackend    string `env:"MEDIA_BACKEND" envDefault:"local"`
	UploadDir       string `env:"UPLOAD_DIR" envDefault:"./uploads"`
	StaticURLBase   string `env:"STATIC_URL_BASE" envDefault:"/static/uploads"`
	S3Region        string `env:"S3_REGION" envDefault:"us-east-1"`
	S3Endpoint      string `env:"S3_ENDPOINT"`
	S3Bucket        string `env:"S3_BUCKET"`
	S3AccessKey     string `env:"S3_ACCESS_KEY"`
	S3SecretKey     string `env:"S3_SECRET_KEY"`
	S3PublicBaseURL string `env:"S3_PUBLIC_BASE_URL"`
}

func LoadAuthRuntimeConfig() (*AuthRuntimeConfig, error) {
	cfg := &AuthRuntimeConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.AppEnv = strings.ToLower(strings.TrimSpace(cfg.AppEnv))
	cfg.AccessTokenSecret = strings.TrimSpace(cfg.AccessTokenSecret)
	cfg.RefreshTokenSecret = strings.TrimSpace(cfg.RefreshTokenSecret)
	cfg.MediaBackend = strings.ToLower(strings.TrimSpace(cfg.MediaBackend))
	cfg.CookieSameSite = strings.TrimSpace(cfg.CookieSameSite)
	cfg.CookiePath = strings.TrimSpace(cfg.CookiePath)

	if raw := strings.TrimSpace(cfg.CookieSecureRaw); raw != "" {
		cfg.CookieSecure = parseBool(raw)
	} else {
		cfg.CookieSecure = !isLocal(cfg.AppEnv)
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	log.Printf("auth cookie config: env=%s secure=%t sameSite=%s path=%s", cfg.AppEnv, cfg.CookieSecure, cfg.CookieSameSite, cfg.CookiePath)

	return cfg, nil
}

// TokenConfig is the token codec configuration.
func (c *AuthRuntimeConfig) TokenConfig() jwtsvc.Config {
	return jwtsvc.Config{
		AccessSecret:  c.AccessTokenSecret,
		RefreshSecret: c.RefreshTokenSecret,
		AccessTTL:     c.AccessTokenTTL,
		RefreshTTL:    c.RefreshTokenTTL,
	}
}

func validateConfig(cfg *AuthRuntimeConfig) error {
	if cfg.AccessTokenTTL <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_TTL must be > 0")
	}
	if cfg.RefreshTokenTTL <= 0 {
		return fmt.Errorf("REFRESH_TOKEN_TTL must be > 0")
	}
	if cfg.RefreshTokenTTL <= cfg.AccessTokenTTL {
		return fmt.Errorf("REFRESH_TOKEN_TTL must be longer than ACCESS_TOKEN_TTL")
	}
	if cfg.StoreTimeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT must be > 0")
	}
	if cfg.AccessTokenSecret == "" || cfg.RefreshTokenSecret == "" {
		return fmt.Errorf("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must not be empty")
	}
	if cfg.AccessTokenSecret == cfg.RefreshTokenSecret {
		return fmt.Errorf("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ")
	}
	if cfg.CookiePath == "" {
		return fmt.Errorf("COOKIE_PATH must not be empty")
	}
	sameSite := strings.ToLower(cfg.CookieSameSite)
	if sameSite != "lax" && sameSite != "none" && sameSite != "strict" {
		return fmt.Errorf("COOKIE_SAMESITE must be one of: Lax, None, Strict")
	}
	if sameSite == "none" && !cfg.CookieSecure {
		return fmt.Errorf("COOKIE_SECURE must be true when COOKIE_SAMESITE=None")
	}

	switch cfg.MediaBackend {
	case "local":
		if strings.TrimSpace(cfg.UploadDir) == "" {
			return fmt.Errorf("UPLOAD_DIR must not be empty")
		}
	case "s3":
		if cfg.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when MEDIA_BACKEND=s3")
		}
		if cfg.S3PublicBaseURL == "" {
			return fmt.Errorf("S3_PUBLIC_BASE_URL is required when MEDIA_BACKEND=s3")
		}
	default:
		return fmt.Errorf("MEDIA_BACKEND must be one of: local, s3")
	}

	if isProdLike(cfg.AppEnv) {
		if isEmptyOrDefault(cfg.AccessTokenSecret, defaultAccessTokenSecret) {
			return fmt.Errorf("in prod/release ACCESS_TOKEN_SECRET must be set and not default")
		}
		if isEmptyOrDefault(cfg.RefreshTokenSecret, defaultRefreshTokenSecret) {
			return fmt.Errorf("in prod/release REFRESH_TOKEN_SECRET must be set and not default")
		}
		if !cfg.CookieSecure {
			return fmt.Errorf("in prod/release COOKIE_SECURE must be true")
		}
	}

	return nil
}

func isLocal(appEnv string) bool {
	return appEnv == "dev" || appEnv == "development" || appEnv == "local" || appEnv == "test"
}

func isProdLike(appEnv string) bool {
	return appEnv == "prod" || appEnv == "production" || appEnv == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func parseBool(value string) bool {
	value = strings.ToLower(strings.TrimSpace(value))
	return value == "1" || value == "true" || value == "yes" || value == "on"
}

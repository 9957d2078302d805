package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StorageBackendLocal = "local"
	StorageBackendR2    = "r2"
)

// Config хранит все конфигурационные параметры приложения.
// Создаётся один раз при старте и передаётся во все компоненты.
type Config struct {
	DatabaseURL  string
	JWTSecretKey string
	ServerPort   int
	Debug        bool
	Environment  string

	UploadDir         string
	QRCodeDir         string
	AllowedExtensions []string
	MaxFileSize       int64
	RegistrationFee   int64
	MaxTeamSize       int

	StorageBackend    string
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string

	CORSAllowedOrigins []string

	DBConnectRetries int
	DBRetryInterval  time.Duration
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("DEBUG", false)
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("UPLOAD_DIR", "uploads")
	v.SetDefault("QR_CODE_DIR", "qr_codes")
	v.SetDefault("ALLOWED_EXTENSIONS", "jpg,jpeg,png,pdf")
	v.SetDefault("MAX_FILE_SIZE", 5*1024*1024)
	v.SetDefault("REGISTRATION_FEE", 500)
	v.SetDefault("MAX_TEAM_SIZE", 4)
	v.SetDefault("STORAGE_BACKEND", StorageBackendLocal)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("DB_CONNECT_RETRIES", 30)
	v.SetDefault("DB_RETRY_INTERVAL", "2s")
}

func fromViper(v *viper.Viper) (*Config, error) {
	dbURL := v.GetString("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	jwtKey := v.GetString("JWT_SECRET_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	port, err := resolvePort(v)
	if err != nil {
		return nil, err
	}

	maxFileSize := v.GetInt64("MAX_FILE_SIZE")
	if maxFileSize <= 0 {
		return nil, fmt.Errorf("MAX_FILE_SIZE must be positive, got %d", maxFileSize)
	}

	fee := v.GetInt64("REGISTRATION_FEE")
	if fee < 0 {
		return nil, fmt.Errorf("REGISTRATION_FEE must not be negative, got %d", fee)
	}

	maxTeamSize := v.GetInt("MAX_TEAM_SIZE")
	if maxTeamSize < 1 {
		return nil, fmt.Errorf("MAX_TEAM_SIZE must be at least 1, got %d", maxTeamSize)
	}

	extensions := ParseExtensions(v.GetString("ALLOWED_EXTENSIONS"))
	if len(extensions) == 0 {
		return nil, fmt.Errorf("ALLOWED_EXTENSIONS must list at least one extension")
	}

	backend := strings.ToLower(strings.TrimSpace(v.GetString("STORAGE_BACKEND")))
	switch backend {
	case StorageBackendLocal, StorageBackendR2:
	default:
		return nil, fmt.Errorf("unsupported STORAGE_BACKEND %q", backend)
	}

	cfg := &Config{
		DatabaseURL:        dbURL,
		JWTSecretKey:       jwtKey,
		ServerPort:         port,
		Debug:              v.GetBool("DEBUG"),
		Environment:        v.GetString("ENVIRONMENT"),
		UploadDir:          v.GetString("UPLOAD_DIR"),
		QRCodeDir:          v.GetString("QR_CODE_DIR"),
		AllowedExtensions:  extensions,
		MaxFileSize:        maxFileSize,
		RegistrationFee:    fee,
		MaxTeamSize:        maxTeamSize,
		StorageBackend:     backend,
		R2AccountID:        v.GetString("R2_ACCOUNT_ID"),
		R2AccessKeyID:      v.GetString("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey:  v.GetString("R2_SECRET_ACCESS_KEY"),
		R2BucketName:       v.GetString("R2_BUCKET_NAME"),
		R2PublicBaseURL:    v.GetString("R2_PUBLIC_BASE_URL"),
		CORSAllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		DBConnectRetries:   v.GetInt("DB_CONNECT_RETRIES"),
		DBRetryInterval:    v.GetDuration("DB_RETRY_INTERVAL"),
	}

	return cfg, nil
}

// PORT как в исходном деплое, SERVER_PORT оставлен для совместимости.
func resolvePort(v *viper.Viper) (int, error) {
	key := "PORT"
	if !v.IsSet(key) && v.IsSet("SERVER_PORT") {
		key = "SERVER_PORT"
	}
	if !v.IsSet(key) {
		return 8000, nil
	}

	port := v.GetInt(key)
	if port <= 0 || port > 65535 {
		return 0, fmt.Errorf("%s must be between 1 and 65535, got %q", key, v.GetString(key))
	}
	return port, nil
}

// ParseExtensions нормализует список расширений: нижний регистр, без точек и пробелов.
func ParseExtensions(raw string) []string {
	parts := splitList(raw)
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		ext := strings.ToLower(strings.TrimPrefix(p, "."))
		if ext == "" {
			continue
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		out = append(out, ext)
	}
	return out
}

func splitList(raw string) []string {
	fields := strings.Split(raw, ",")
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

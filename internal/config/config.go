package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

// Store backends
const (
	StoreRedis    = "redis"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	Server     ServerConfig
	Redis      RedisConfig
	Store      StoreConfig
	JWT        JWTConfig
	RateLimit  RateLimitConfig
	Gemini     GeminiConfig
	Groq       GroqConfig
	R2         R2Config
	Styles     StylesConfig
	Generation GenerationConfig
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StoreConfig struct {
	Backend     string
	PostgresDSN string
	JobTTL      time.Duration
}

type JWTConfig struct {
	Secret     string
	Expiration int // hours
}

type RateLimitConfig struct {
	GeneratePerHour int
	ComposePerHour  int
	UploadPerHour   int
	CaptionsPerMin  int
}

type GeminiConfig struct {
	APIKey     string
	VideoModel string
}

type GroqConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string
}

type StylesConfig struct {
	CatalogPath string
}

type GenerationConfig struct {
	LockTTL        time.Duration
	SceneTimeout   time.Duration
	SignedURLTTL   time.Duration
	Concurrency    int
	RenderMaxBytes int64
}

func Load() (*Config, error) {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("POSTGRES_DSN")
	readSecret("JWT_SECRET")
	readSecret("GEMINI_API_KEY")
	readSecret("GROQ_API_KEY")
	readSecret("R2_ACCOUNT_ID")
	readSecret("R2_ACCESS_KEY_ID")
	readSecret("R2_SECRET_ACCESS_KEY")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("store.backend", "STORE_BACKEND")
	_ = viper.BindEnv("store.postgres_dsn", "POSTGRES_DSN")
	_ = viper.BindEnv("store.job_ttl", "STORE_JOB_TTL")
	_ = viper.BindEnv("jwt.secret", "JWT_SECRET")
	_ = viper.BindEnv("jwt.expiration", "JWT_EXPIRATION")
	_ = viper.BindEnv("gemini.api_key", "GEMINI_API_KEY")
	_ = viper.BindEnv("gemini.video_model", "GEMINI_VIDEO_MODEL")
	_ = viper.BindEnv("groq.api_key", "GROQ_API_KEY")
	_ = viper.BindEnv("groq.base_url", "GROQ_BASE_URL")
	_ = viper.BindEnv("groq.model", "GROQ_MODEL")
	_ = viper.BindEnv("r2.account_id", "R2_ACCOUNT_ID")
	_ = viper.BindEnv("r2.access_key_id", "R2_ACCESS_KEY_ID")
	_ = viper.BindEnv("r2.secret_access_key", "R2_SECRET_ACCESS_KEY")
	_ = viper.BindEnv("r2.bucket_name", "R2_BUCKET_NAME")
	_ = viper.BindEnv("r2.public_url", "R2_PUBLIC_URL")
	_ = viper.BindEnv("styles.catalog_path", "STYLE_CATALOG_PATH")
	_ = viper.BindEnv("generation.lock_ttl", "GENERATION_LOCK_TTL")
	_ = viper.BindEnv("generation.scene_timeout", "GENERATION_SCENE_TIMEOUT")
	_ = viper.BindEnv("generation.concurrency", "GENERATION_CONCURRENCY")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("store.backend", StoreRedis)
	viper.SetDefault("store.job_ttl", "720h")
	viper.SetDefault("jwt.secret", "change-me-in-production")
	viper.SetDefault("jwt.expiration", 24)
	viper.SetDefault("ratelimit.generate_per_hour", 10)
	viper.SetDefault("ratelimit.compose_per_hour", 60)
	viper.SetDefault("ratelimit.upload_per_hour", 50)
	viper.SetDefault("ratelimit.captions_per_min", 20)

	// Gemini defaults
	viper.SetDefault("gemini.video_model", "veo-001-preview")

	// Groq defaults
	viper.SetDefault("groq.base_url", "https://api.groq.com/openai/v1")
	viper.SetDefault("groq.model", "llama-3.3-70b-versatile")

	// Generation defaults
	viper.SetDefault("generation.lock_ttl", "15m")
	viper.SetDefault("generation.scene_timeout", "10m")
	viper.SetDefault("generation.signed_url_ttl", "1h")
	viper.SetDefault("generation.concurrency", 4)
	viper.SetDefault("generation.render_max_bytes", 200*1024*1024)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:     viper.GetString("server.port"),
			Env:      viper.GetString("server.env"),
			LogLevel: viper.GetString("server.log_level"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		Store: StoreConfig{
			Backend:     strings.ToLower(viper.GetString("store.backend")),
			PostgresDSN: viper.GetString("store.postgres_dsn"),
			JobTTL:      viper.GetDuration("store.job_ttl"),
		},
		JWT: JWTConfig{
			Secret:     viper.GetString("jwt.secret"),
			Expiration: viper.GetInt("jwt.expiration"),
		},
		RateLimit: RateLimitConfig{
			GeneratePerHour: viper.GetInt("ratelimit.generate_per_hour"),
			ComposePerHour:  viper.GetInt("ratelimit.compose_per_hour"),
			UploadPerHour:   viper.GetInt("ratelimit.upload_per_hour"),
			CaptionsPerMin:  viper.GetInt("ratelimit.captions_per_min"),
		},
		Gemini: GeminiConfig{
			APIKey:     viper.GetString("gemini.api_key"),
			VideoModel: viper.GetString("gemini.video_model"),
		},
		Groq: GroqConfig{
			APIKey:  viper.GetString("groq.api_key"),
			BaseURL: viper.GetString("groq.base_url"),
			Model:   viper.GetString("groq.model"),
		},
		R2: R2Config{
			AccountID:       viper.GetString("r2.account_id"),
			AccessKeyID:     viper.GetString("r2.access_key_id"),
			SecretAccessKey: viper.GetString("r2.secret_access_key"),
			BucketName:      viper.GetString("r2.bucket_name"),
			PublicURL:       viper.GetString("r2.public_url"),
		},
		Styles: StylesConfig{
			CatalogPath: viper.GetString("styles.catalog_path"),
		},
		Generation: GenerationConfig{
			LockTTL:        viper.GetDuration("generation.lock_ttl"),
			SceneTimeout:   viper.GetDuration("generation.scene_timeout"),
			SignedURLTTL:   viper.GetDuration("generation.signed_url_ttl"),
			Concurrency:    viper.GetInt("generation.concurrency"),
			RenderMaxBytes: viper.GetInt64("generation.render_max_bytes"),
		},
	}

	return cfg, nil
}

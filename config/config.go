package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the FRA Atlas backend
type Config struct {
	General  GeneralConfig  `mapstructure:"general"`
	Storage  StorageConfig  `mapstructure:"storage"`
	LLM      LLMConfig      `mapstructure:"llm"`
	OCR      OCRConfig      `mapstructure:"ocr"`
	Geocoder GeocoderConfig `mapstructure:"geocoder"`
	Imagery  ImageryConfig  `mapstructure:"imagery"`
	Upload   UploadConfig   `mapstructure:"upload"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
	LogLevel   string `mapstructure:"log_level"`
	JWTSecret  string `mapstructure:"jwt_secret"`
	Env        string `mapstructure:"env"`
}

// StorageConfig contains storage and persistence settings
type StorageConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// PostgresConfig contains Postgres connection settings
type PostgresConfig struct {
	URL      string        `mapstructure:"url"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	User     string        `mapstructure:"user"`
	Password string        `mapstructure:"password"`
	DBName   string        `mapstructure:"dbname"`
	SSLMode  string        `mapstructure:"sslmode"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// DSN returns the connection string, preferring the full URL when set.
func (p PostgresConfig) DSN() string {
	if p.URL != "" {
		return p.URL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DBName, p.SSLMode)
}

// LLMConfig contains LLM provider configuration
type LLMConfig struct {
	Provider  string        `mapstructure:"provider"` // openai, gemini, or empty to disable
	APIKey    string        `mapstructure:"api_key"`
	Model     string        `mapstructure:"model"`
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	MaxTokens int           `mapstructure:"max_tokens"`
}

// OCRConfig contains Tesseract settings
type OCRConfig struct {
	Languages []string `mapstructure:"languages"`
}

// GeocoderConfig contains Nominatim client settings
type GeocoderConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RatePerS  float64       `mapstructure:"rate_per_s"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
}

// ImageryConfig contains satellite imagery and land-cover model settings
type ImageryConfig struct {
	ModelPath      string        `mapstructure:"model_path"`
	ThumbEndpoint  string        `mapstructure:"thumb_endpoint"`
	ThumbDim       int           `mapstructure:"thumb_dim"`
	StartDate      string        `mapstructure:"start_date"`
	EndDate        string        `mapstructure:"end_date"`
	SavedImagesDir string        `mapstructure:"saved_images_dir"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

// UploadConfig contains document upload limits
type UploadConfig struct {
	MaxSizeBytes int64 `mapstructure:"max_size_bytes"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName("fraatlas")
		viper.SetConfigType("json")
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("FRAATLAS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	// Config file is optional; defaults + env cover everything.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	overrideFromEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("general.listen_addr", ":8000")
	viper.SetDefault("general.log_level", "info")
	viper.SetDefault("general.env", "dev")

	viper.SetDefault("storage.postgres.host", "localhost")
	viper.SetDefault("storage.postgres.port", 5432)
	viper.SetDefault("storage.postgres.user", "postgres")
	viper.SetDefault("storage.postgres.password", "")
	viper.SetDefault("storage.postgres.dbname", "fra_atlas")
	viper.SetDefault("storage.postgres.sslmode", "disable")
	viper.SetDefault("storage.postgres.timeout", "5s")

	viper.SetDefault("llm.provider", "openai")
	viper.SetDefault("llm.model", "gpt-4o-mini")
	viper.SetDefault("llm.timeout", "30s")
	viper.SetDefault("llm.max_tokens", 1024)

	viper.SetDefault("ocr.languages", []string{"eng"})

	viper.SetDefault("geocoder.base_url", "https://nominatim.openstreetmap.org")
	viper.SetDefault("geocoder.user_agent", "fra-atlas-backend/1.0")
	viper.SetDefault("geocoder.timeout", "10s")
	viper.SetDefault("geocoder.rate_per_s", 1.0)
	viper.SetDefault("geocoder.cache_ttl", "24h")

	viper.SetDefault("imagery.model_path", "./models/eurosat.onnx")
	viper.SetDefault("imagery.thumb_dim", 512)
	viper.SetDefault("imagery.start_date", "2023-01-01")
	viper.SetDefault("imagery.end_date", "2023-12-31")
	viper.SetDefault("imagery.saved_images_dir", "./saved_images")
	viper.SetDefault("imagery.timeout", "60s")

	viper.SetDefault("upload.max_size_bytes", int64(15<<20))
}

// overrideFromEnv overrides configuration with environment variables
func overrideFromEnv() {
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		viper.Set("llm.api_key", apiKey)
	}
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		viper.Set("llm.api_key", apiKey)
		viper.Set("llm.provider", "gemini")
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		viper.Set("general.jwt_secret", secret)
	}

	if url := os.Getenv("DATABASE_URL"); url != "" {
		viper.Set("storage.postgres.url", url)
	}
	if host := os.Getenv("POSTGRES_HOST"); host != "" {
		viper.Set("storage.postgres.host", host)
	}
	if port := os.Getenv("POSTGRES_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			viper.Set("storage.postgres.port", p)
		}
	}
	if user := os.Getenv("POSTGRES_USER"); user != "" {
		viper.Set("storage.postgres.user", user)
	}
	if pass := os.Getenv("POSTGRES_PASSWORD"); pass != "" {
		viper.Set("storage.postgres.password", pass)
	}
	if db := os.Getenv("POSTGRES_DB"); db != "" {
		viper.Set("storage.postgres.dbname", db)
	}
}

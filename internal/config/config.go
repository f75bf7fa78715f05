// internal/config/config.go
package config

import (
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Data       DataConfig
	Model      ModelConfig
	Thresholds ThresholdConfig
	Warehouse  WarehouseConfig
	Database   DatabaseConfig
	Cache      CacheConfig
	Storage    StorageConfig
	Logging    LoggingConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

// DataConfig holds the file paths the pipeline reads and writes.
type DataConfig struct {
	InputPath       string
	OutputPath      string // processed feature table
	PredictionsPath string
	HistoryPath     string
	DateColumn      string
}

// ModelConfig controls ARIMA order selection and artifact persistence.
// When MaxP/MaxD/MaxQ are zero the fixed Order triple is used instead of
// a grid search.
type ModelConfig struct {
	Order    [3]int
	MaxP     int
	MaxD     int
	MaxQ     int
	SavePath string
}

type ThresholdConfig struct {
	MinThreshold float64
	MaxDelayDays int
}

// WarehouseConfig describes the external fulfillment endpoint.
// Credentials come from the environment only.
type WarehouseConfig struct {
	BaseURL       string
	OrderEndpoint string
	TimeoutSec    int
	RetryAttempts int
	Username      string
	Password      string
	APIKey        string
	ScreenshotDir string
}

type DatabaseConfig struct {
	URL string // optional Postgres history store; empty means CSV only
}

type CacheConfig struct {
	Enabled       bool
	RedisURL      string
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	TTLSeconds    int
}

// StorageConfig configures the optional S3-compatible bucket the model
// artifact is synced to.
type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

type LoggingConfig struct {
	Level string
	Path  string
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		// Set default values
		viper.SetDefault("SERVER_PORT", "8080")
		viper.SetDefault("SERVER_MODE", "debug")
		viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
		viper.SetDefault("DATA_INPUT_PATH", "./data/raw/inventory.csv")
		viper.SetDefault("DATA_OUTPUT_PATH", "./data/processed/features.csv")
		viper.SetDefault("DATA_PREDICTIONS_PATH", "./data/processed/predictions.csv")
		viper.SetDefault("DATA_HISTORY_PATH", "./data/orders/history.csv")
		viper.SetDefault("DATA_DATE_COLUMN", "Date")
		viper.SetDefault("MODEL_ORDER_P", 1)
		viper.SetDefault("MODEL_ORDER_D", 1)
		viper.SetDefault("MODEL_ORDER_Q", 1)
		viper.SetDefault("MODEL_MAX_P", 3)
		viper.SetDefault("MODEL_MAX_D", 2)
		viper.SetDefault("MODEL_MAX_Q", 3)
		viper.SetDefault("MODEL_SAVE_PATH", "./data/models/sales_arima.json")
		viper.SetDefault("ORDER_MIN_THRESHOLD", 10)
		viper.SetDefault("ORDER_MAX_DELAY_DAYS", 7)
		viper.SetDefault("WAREHOUSE_BASE_URL", "")
		viper.SetDefault("WAREHOUSE_ORDER_ENDPOINT", "/api/orders")
		viper.SetDefault("WAREHOUSE_TIMEOUT", 30)
		viper.SetDefault("WAREHOUSE_RETRY_ATTEMPTS", 3)
		viper.SetDefault("WAREHOUSE_SCREENSHOT_DIR", ".")
		viper.SetDefault("DATABASE_URL", "")
		viper.SetDefault("CACHE_ENABLED", false)
		viper.SetDefault("REDIS_URL", "")
		viper.SetDefault("REDIS_HOST", "127.0.0.1")
		viper.SetDefault("REDIS_PORT", "6379")
		viper.SetDefault("REDIS_PASSWORD", "")
		viper.SetDefault("REDIS_DB", 0)
		viper.SetDefault("CACHE_TTL_SECONDS", 60)
		viper.SetDefault("STORAGE_ENDPOINT", "")
		viper.SetDefault("STORAGE_BUCKET", "")
		viper.SetDefault("STORAGE_REGION", "")
		viper.SetDefault("STORAGE_USE_SSL", true)
		viper.SetDefault("LOG_LEVEL", "info")
		viper.SetDefault("LOG_PATH", "")

		// Read from environment variables
		viper.AutomaticEnv()

		ensureDir("./data/processed")
		ensureDir("./data/models")
		ensureDir("./data/orders")

		instance = &Config{
			Server: ServerConfig{
				Port:           viper.GetString("SERVER_PORT"),
				Mode:           viper.GetString("SERVER_MODE"),
				ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
				WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
				AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
			},
			Data: DataConfig{
				InputPath:       viper.GetString("DATA_INPUT_PATH"),
				OutputPath:      viper.GetString("DATA_OUTPUT_PATH"),
				PredictionsPath: viper.GetString("DATA_PREDICTIONS_PATH"),
				HistoryPath:     viper.GetString("DATA_HISTORY_PATH"),
				DateColumn:      viper.GetString("DATA_DATE_COLUMN"),
			},
			Model: ModelConfig{
				Order: [3]int{
					viper.GetInt("MODEL_ORDER_P"),
					viper.GetInt("MODEL_ORDER_D"),
					viper.GetInt("MODEL_ORDER_Q"),
				},
				MaxP:     viper.GetInt("MODEL_MAX_P"),
				MaxD:     viper.GetInt("MODEL_MAX_D"),
				MaxQ:     viper.GetInt("MODEL_MAX_Q"),
				SavePath: viper.GetString("MODEL_SAVE_PATH"),
			},
			Thresholds: ThresholdConfig{
				MinThreshold: viper.GetFloat64("ORDER_MIN_THRESHOLD"),
				MaxDelayDays: viper.GetInt("ORDER_MAX_DELAY_DAYS"),
			},
			Warehouse: WarehouseConfig{
				BaseURL:       viper.GetString("WAREHOUSE_BASE_URL"),
				OrderEndpoint: viper.GetString("WAREHOUSE_ORDER_ENDPOINT"),
				TimeoutSec:    viper.GetInt("WAREHOUSE_TIMEOUT"),
				RetryAttempts: viper.GetInt("WAREHOUSE_RETRY_ATTEMPTS"),
				Username:      viper.GetString("WAREHOUSE_USERNAME"),
				Password:      viper.GetString("WAREHOUSE_PASSWORD"),
				APIKey:        viper.GetString("WAREHOUSE_API_KEY"),
				ScreenshotDir: viper.GetString("WAREHOUSE_SCREENSHOT_DIR"),
			},
			Database: DatabaseConfig{
				URL: viper.GetString("DATABASE_URL"),
			},
			Cache: CacheConfig{
				Enabled:       viper.GetBool("CACHE_ENABLED"),
				RedisURL:      viper.GetString("REDIS_URL"),
				RedisHost:     viper.GetString("REDIS_HOST"),
				RedisPort:     viper.GetString("REDIS_PORT"),
				RedisPassword: viper.GetString("REDIS_PASSWORD"),
				RedisDB:       viper.GetInt("REDIS_DB"),
				TTLSeconds:    viper.GetInt("CACHE_TTL_SECONDS"),
			},
			Storage: StorageConfig{
				Endpoint:  viper.GetString("STORAGE_ENDPOINT"),
				AccessKey: viper.GetString("STORAGE_ACCESS_KEY"),
				SecretKey: viper.GetString("STORAGE_SECRET_KEY"),
				Bucket:    viper.GetString("STORAGE_BUCKET"),
				Region:    viper.GetString("STORAGE_REGION"),
				UseSSL:    viper.GetBool("STORAGE_USE_SSL"),
			},
			Logging: LoggingConfig{
				Level: viper.GetString("LOG_LEVEL"),
				Path:  viper.GetString("LOG_PATH"),
			},
		}
	})

	return instance
}

// ValidateForAutomation checks the sections the dispatcher cannot run without.
// Called at startup for the automate and full modes; a failure here is fatal.
func (c *Config) ValidateForAutomation() error {
	if c.Warehouse.BaseURL == "" {
		return fmt.Errorf("config: warehouse base URL is required for automation")
	}
	if c.Warehouse.OrderEndpoint == "" {
		return fmt.Errorf("config: warehouse order endpoint is required for automation")
	}
	if c.Warehouse.RetryAttempts < 1 {
		return fmt.Errorf("config: warehouse retry attempts must be at least 1")
	}
	return nil
}

// ValidateData checks the data section common to all modes.
func (c *Config) ValidateData() error {
	if c.Data.InputPath == "" {
		return fmt.Errorf("config: data input path is required")
	}
	if c.Data.DateColumn == "" {
		return fmt.Errorf("config: date column name is required")
	}
	return nil
}

func ensureDir(dir string) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}
}

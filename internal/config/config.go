// backend-go/internal/config/config.go
package config

import (
	"log"
	"os"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Cache      CacheConfig
	Projection ProjectionConfig
	Storage    StorageConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type CacheConfig struct {
	Enabled             bool
	RedisURL            string
	RedisHost           string
	RedisPort           string
	RedisPassword       string
	RedisDB             int
	DashboardTTLSeconds int
}

// ProjectionConfig holds the run parameters for the stock flow projection.
// SafetyStockPolicy resolves the two safety-stock formulas that coexisted in
// the legacy dashboards: "buffer" adds the safety stock to every starting
// position, "reserve" holds it back from the position instead.
type ProjectionConfig struct {
	SafetyStockKg     float64
	SafetyStockPolicy string
	HorizonMonths     int
	WindingRateKgDay  float64
	Grouping          string
	WorkerCount       int
	DataDir           string
	OutputDir         string
}

type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
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
		viper.SetDefault("DB_HOST", "localhost")
		viper.SetDefault("DB_PORT", "5432")
		viper.SetDefault("DB_USER", "postgres")
		viper.SetDefault("DB_PASSWORD", "postgres")
		viper.SetDefault("DB_NAME", "stockflow")
		viper.SetDefault("DB_SSLMODE", "disable")
		viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
		viper.SetDefault("CACHE_ENABLED", false)
		viper.SetDefault("REDIS_URL", "")
		viper.SetDefault("REDIS_HOST", "127.0.0.1")
		viper.SetDefault("REDIS_PORT", "6379")
		viper.SetDefault("REDIS_PASSWORD", "")
		viper.SetDefault("REDIS_DB", 0)
		viper.SetDefault("CACHE_DASHBOARD_TTL_SECONDS", 60)
		viper.SetDefault("PROJECTION_SAFETY_STOCK_KG", 0.0)
		viper.SetDefault("PROJECTION_SAFETY_STOCK_POLICY", "buffer")
		viper.SetDefault("PROJECTION_HORIZON_MONTHS", 15)
		viper.SetDefault("PROJECTION_WINDING_RATE_KG_DAY", 500.0)
		viper.SetDefault("PROJECTION_GROUPING", "super_family")
		viper.SetDefault("PROJECTION_WORKER_COUNT", 4)
		viper.SetDefault("PROJECTION_DATA_DIR", "./data/snapshots")
		viper.SetDefault("PROJECTION_OUTPUT_DIR", "./data/results")
		viper.SetDefault("STORAGE_ENDPOINT", "")
		viper.SetDefault("STORAGE_ACCESS_KEY", "")
		viper.SetDefault("STORAGE_SECRET_KEY", "")
		viper.SetDefault("STORAGE_BUCKET", "stock-snapshots")
		viper.SetDefault("STORAGE_REGION", "us-east-1")
		viper.SetDefault("STORAGE_USE_SSL", true)

		// Read from environment variables
		viper.AutomaticEnv()

		// Ensure snapshot and result directories exist
		ensureDir(viper.GetString("PROJECTION_DATA_DIR"))
		ensureDir(viper.GetString("PROJECTION_OUTPUT_DIR"))

		instance = &Config{
			Server: ServerConfig{
				Port:           viper.GetString("SERVER_PORT"),
				Mode:           viper.GetString("SERVER_MODE"),
				ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
				WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
				AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
			},
			Database: DatabaseConfig{
				Host:     viper.GetString("DB_HOST"),
				Port:     viper.GetString("DB_PORT"),
				User:     viper.GetString("DB_USER"),
				Password: viper.GetString("DB_PASSWORD"),
				DBName:   viper.GetString("DB_NAME"),
				SSLMode:  viper.GetString("DB_SSLMODE"),
			},
			Cache: CacheConfig{
				Enabled:             viper.GetBool("CACHE_ENABLED"),
				RedisURL:            viper.GetString("REDIS_URL"),
				RedisHost:           viper.GetString("REDIS_HOST"),
				RedisPort:           viper.GetString("REDIS_PORT"),
				RedisPassword:       viper.GetString("REDIS_PASSWORD"),
				RedisDB:             viper.GetInt("REDIS_DB"),
				DashboardTTLSeconds: viper.GetInt("CACHE_DASHBOARD_TTL_SECONDS"),
			},
			Projection: ProjectionConfig{
				SafetyStockKg:     viper.GetFloat64("PROJECTION_SAFETY_STOCK_KG"),
				SafetyStockPolicy: viper.GetString("PROJECTION_SAFETY_STOCK_POLICY"),
				HorizonMonths:     viper.GetInt("PROJECTION_HORIZON_MONTHS"),
				WindingRateKgDay:  viper.GetFloat64("PROJECTION_WINDING_RATE_KG_DAY"),
				Grouping:          viper.GetString("PROJECTION_GROUPING"),
				WorkerCount:       viper.GetInt("PROJECTION_WORKER_COUNT"),
				DataDir:           viper.GetString("PROJECTION_DATA_DIR"),
				OutputDir:         viper.GetString("PROJECTION_OUTPUT_DIR"),
			},
			Storage: StorageConfig{
				Endpoint:  viper.GetString("STORAGE_ENDPOINT"),
				AccessKey: viper.GetString("STORAGE_ACCESS_KEY"),
				SecretKey: viper.GetString("STORAGE_SECRET_KEY"),
				Bucket:    viper.GetString("STORAGE_BUCKET"),
				Region:    viper.GetString("STORAGE_REGION"),
				UseSSL:    viper.GetBool("STORAGE_USE_SSL"),
			},
		}
	})

	return instance
}

func ensureDir(dir string) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}
}

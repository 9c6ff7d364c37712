package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	API      APIConfig
	Storage  StorageConfig
	Redis    RedisConfig
	Location LocationConfig
	Export   ExportConfig
	Env      string
	LogLevel string
}

type ServerConfig struct {
	Host string
	Port string
}

// APIConfig describes the remote ingestion endpoint.
type APIConfig struct {
	BaseURL            string
	Token              string // optional static token; a stored token wins
	WebCreateURL       string
	LiveTracksForceAPI bool
	DeepLinkScheme     string
}

type StorageConfig struct {
	Driver string // sqlite | redis | memory
	Path   string // sqlite file
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type LocationConfig struct {
	GPSDAddr         string
	HighAccuracy     bool
	AutoWatch        bool
	SaveWayfare      bool
	GeohashPrecision int
}

type ExportConfig struct {
	DocumentDir string
	CacheDir    string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Host: getEnv("HOST", "127.0.0.1"),
			Port: getEnv("PORT", "8195"),
		},
		API: APIConfig{
			BaseURL:            getEnv("API_BASE_URL", ""),
			Token:              getEnv("API_TOKEN", ""),
			WebCreateURL:       getEnv("WEB_CREATE_URL", ""),
			LiveTracksForceAPI: getEnvAsBool("LIVE_TRACKS_FORCE_API", false),
			DeepLinkScheme:     getEnv("DEEP_LINK_SCHEME", "catcha"),
		},
		Storage: StorageConfig{
			Driver: getEnv("STORAGE_DRIVER", "sqlite"),
			Path:   getEnv("STORAGE_PATH", "geotag.db"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Location: LocationConfig{
			GPSDAddr:         getEnv("GPSD_ADDR", "localhost:2947"),
			HighAccuracy:     getEnvAsBool("HIGH_ACCURACY", true),
			AutoWatch:        getEnvAsBool("AUTO_WATCH", false),
			SaveWayfare:      getEnvAsBool("SAVE_WAYFARE", true),
			GeohashPrecision: getEnvAsInt("GEOHASH_PRECISION", 10),
		},
		Export: ExportConfig{
			DocumentDir: getEnv("DOCUMENT_DIR", "."),
			CacheDir:    getEnv("CACHE_DIR", os.TempDir()),
		},
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if config.Location.GeohashPrecision < 1 || config.Location.GeohashPrecision > 12 {
		return nil, fmt.Errorf("GEOHASH_PRECISION must be between 1 and 12")
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

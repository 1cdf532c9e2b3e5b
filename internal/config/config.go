/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables, providing a
 * centralized and straightforward way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the api-service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort           string `mapstructure:"SERVER_PORT"`
	DatabaseURL          string `mapstructure:"DATABASE_URL"`
	RedisURL             string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	RabbitMQURL          string `mapstructure:"RABBITMQ_URL"`
	FulfillmentQueue     string `mapstructure:"FULFILLMENT_QUEUE"`
	JWTSecret            string `mapstructure:"JWT_SECRET"`
	VideoProviderBaseURL string `mapstructure:"VIDEO_PROVIDER_BASE_URL"`
	VideoProviderAPIKey  string `mapstructure:"VIDEO_PROVIDER_API_KEY"`
	APIKeyValidityDays   int    `mapstructure:"API_KEY_VALIDITY_DAYS"`
	MeterRateLimitPerMin int    `mapstructure:"METER_RATE_LIMIT_PER_MINUTE"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("FULFILLMENT_QUEUE", "api_service.order_updates")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "quickearn:rate_limit")
	viper.SetDefault("API_KEY_VALIDITY_DAYS", 30)
	viper.SetDefault("METER_RATE_LIMIT_PER_MINUTE", 60)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("FULFILLMENT_QUEUE")
	_ = viper.BindEnv("JWT_SECRET")
	_ = viper.BindEnv("VIDEO_PROVIDER_BASE_URL")
	_ = viper.BindEnv("VIDEO_PROVIDER_API_KEY")
	_ = viper.BindEnv("API_KEY_VALIDITY_DAYS")
	_ = viper.BindEnv("METER_RATE_LIMIT_PER_MINUTE")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		// If the config file is not found, we can ignore the error.
		// For other errors, we should return them.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "quickearn:rate_limit"
	}

	if config.APIKeyValidityDays <= 0 {
		log.Printf("level=warn component=config msg=\"nonpositive key validity configured; using default\" days=%d", config.APIKeyValidityDays)
		config.APIKeyValidityDays = 30
	}
	if config.MeterRateLimitPerMin < 0 {
		log.Printf("level=warn component=config msg=\"negative meter rate limit configured; disabling\" limit=%d", config.MeterRateLimitPerMin)
		config.MeterRateLimitPerMin = 0
	}

	return
}

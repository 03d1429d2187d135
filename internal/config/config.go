/**
 * @description
 * This package handles configuration for the transfer workflow tools. It uses
 * the Viper library to read an optional .env file and environment variables,
 * providing one place for both the terminal client (transferctl) and the
 * local mock bank-service (bankmock) to load their settings from.
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

// Config holds the configuration for both binaries. Unused keys are simply
// ignored by the binary that does not need them.
type Config struct {
	// Client settings.
	BankServiceURL     string `mapstructure:"BANK_SERVICE_URL"`
	BearerToken        string `mapstructure:"BANK_TOKEN"`
	BearerTokenFile    string `mapstructure:"BANK_TOKEN_FILE"`
	Username           string `mapstructure:"BANK_USERNAME"`
	Password           string `mapstructure:"BANK_PASSWORD"`
	SourceCardNumber   string `mapstructure:"SOURCE_CARD_NUMBER"`
	HTTPTimeoutSeconds int    `mapstructure:"HTTP_TIMEOUT_SECONDS"`

	// Mock bank-service settings.
	ServerPort    string `mapstructure:"SERVER_PORT"`
	JWTSigningKey string `mapstructure:"JWT_SIGNING_KEY"`
	OTPTTLSeconds int    `mapstructure:"OTP_TTL_SECONDS"`
	// FixedOTP pins the generated OTP to a known value so the full flow can
	// be exercised without an email channel. Never set outside development.
	FixedOTP string `mapstructure:"FIXED_OTP"`
}

// LoadConfig reads configuration from environment variables and an optional
// .env file at the given path.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("BANK_SERVICE_URL", "http://localhost:8080/bankservice")
	viper.SetDefault("HTTP_TIMEOUT_SECONDS", 30)
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("JWT_SIGNING_KEY", "dev-only-signing-key")
	viper.SetDefault("OTP_TTL_SECONDS", 300)

	// Bind environment variables explicitly to ensure they appear in Unmarshal.
	_ = viper.BindEnv("BANK_SERVICE_URL")
	_ = viper.BindEnv("BANK_TOKEN")
	_ = viper.BindEnv("BANK_TOKEN_FILE")
	_ = viper.BindEnv("BANK_USERNAME")
	_ = viper.BindEnv("BANK_PASSWORD")
	_ = viper.BindEnv("SOURCE_CARD_NUMBER")
	_ = viper.BindEnv("HTTP_TIMEOUT_SECONDS")
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("JWT_SIGNING_KEY")
	_ = viper.BindEnv("OTP_TTL_SECONDS")
	_ = viper.BindEnv("FIXED_OTP")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
		err = nil
	}

	if err = viper.Unmarshal(&config); err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	config.BankServiceURL = strings.TrimRight(strings.TrimSpace(config.BankServiceURL), "/")
	config.BearerToken = strings.TrimSpace(config.BearerToken)
	config.BearerTokenFile = strings.TrimSpace(config.BearerTokenFile)
	config.SourceCardNumber = strings.TrimSpace(config.SourceCardNumber)

	if config.HTTPTimeoutSeconds <= 0 {
		log.Printf("level=warn component=config msg=\"non-positive http timeout; using default\" timeout_s=%d", config.HTTPTimeoutSeconds)
		config.HTTPTimeoutSeconds = 30
	}
	if config.OTPTTLSeconds <= 0 {
		config.OTPTTLSeconds = 300
	}

	return
}

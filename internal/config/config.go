package config

import (
	"os"
	"strconv"
)

type Config struct {
	DB        DBConfig
	JWT       JWTConfig
	TwoFactor TwoFactorConfig
	Password  PasswordConfig
	Server    ServerConfig
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type JWTConfig struct {
	Secret            string
	ExpirationSeconds int
}

type TwoFactorConfig struct {
	Issuer string
}

type PasswordConfig struct {
	BcryptCost int
}

type ServerConfig struct {
	Port string
}

func Load() *Config {
	return &Config{
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "authgate"),
			Password: getEnv("DB_PASSWORD", "authgate_secret"),
			Name:     getEnv("DB_NAME", "authgate"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			Secret:            getEnv("JWT_SECRET", "change-me-in-production"),
			ExpirationSeconds: getEnvAsInt("JWT_EXPIRATION_SECONDS", 3600),
		},
		TwoFactor: TwoFactorConfig{
			Issuer: getEnv("TWO_FACTOR_APP_NAME", "AuthGate"),
		},
		Password: PasswordConfig{
			BcryptCost: getEnvAsInt("BCRYPT_COST", 10),
		},
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

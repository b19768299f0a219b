package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	AppName    string          `mapstructure:"APP_NAME"`
	AppVersion string          `mapstructure:"APP_VERSION"`
	Server     ServerConfig    `mapstructure:"SERVER"`
	Database   DatabaseConfig  `mapstructure:"DATABASE"`
	Storage    StorageConfig   `mapstructure:"STORAGE"`
	Auth       AuthConfig      `mapstructure:"AUTH"`
	WebSocket  WebSocketConfig `mapstructure:"WEBSOCKET"`
	Redis      RedisConfig     `mapstructure:"REDIS"`
	Session    SessionConfig   `mapstructure:"SESSION"`
}

// ServerConfig holds configuration for the HTTP server.
type ServerConfig struct {
	Host           string        `mapstructure:"HOST"`
	Port           string        `mapstructure:"PORT"`
	WebSocketPath  string        `mapstructure:"WEBSOCKET_PATH"`
	ReadTimeout    time.Duration `mapstructure:"READ_TIMEOUT"`
	WriteTimeout   time.Duration `mapstructure:"WRITE_TIMEOUT"`
	MaxHeaderBytes int           `mapstructure:"MAX_HEADER_BYTES"`
	CORS           CORSConfig    `mapstructure:"CORS"`
}

// CORSConfig holds configuration for CORS.
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"ALLOWED_ORIGINS"`
	AllowedMethods   []string `mapstructure:"ALLOWED_METHODS"`
	AllowedHeaders   []string `mapstructure:"ALLOWED_HEADERS"`
	AllowCredentials bool     `mapstructure:"ALLOW_CREDENTIALS"`
	MaxAge           int      `mapstructure:"MAX_AGE"`
}

// DatabaseConfig holds configuration for the database.
type DatabaseConfig struct {
	Type     string `mapstructure:"TYPE"`
	Host     string `mapstructure:"HOST"`
	Port     int    `mapstructure:"PORT"`
	User     string `mapstructure:"USER"`
	Password string `mapstructure:"PASSWORD"`
	DBName   string `mapstructure:"DB_NAME"`
	SSLMode  string `mapstructure:"SSL_MODE"`
}

// StorageConfig holds configuration for media storage.
type StorageConfig struct {
	Type          string `mapstructure:"TYPE"` // "local"
	LocalPath     string `mapstructure:"LOCAL_PATH"`
	BaseURL       string `mapstructure:"BASE_URL"`
	MaxFileSizeMB int64  `mapstructure:"MAX_FILE_SIZE_MB"`
}

// AuthConfig holds configuration for authentication.
type AuthConfig struct {
	JWTSecretKey string        `mapstructure:"JWT_SECRET_KEY"`
	JWTExpiry    time.Duration `mapstructure:"JWT_EXPIRY"`
}

// WebSocketConfig holds configuration for WebSocket connections.
type WebSocketConfig struct {
	WriteWaitSeconds    int `mapstructure:"WRITE_WAIT_SECONDS"`
	PongWaitSeconds     int `mapstructure:"PONG_WAIT_SECONDS"`
	PingPeriodSeconds   int `mapstructure:"PING_PERIOD_SECONDS"`
	MaxMessageSizeBytes int `mapstructure:"MAX_MESSAGE_SIZE_BYTES"`
	SendBufferSize      int `mapstructure:"SEND_BUFFER_SIZE"`
}

// RedisConfig holds configuration for Redis.
type RedisConfig struct {
	Addr     string `mapstructure:"ADDR"`
	Password string `mapstructure:"PASSWORD"`
	DB       int    `mapstructure:"DB"`
}

// SessionConfig holds tunables for the client-side chat session protocol.
type SessionConfig struct {
	TypingExpiry time.Duration `mapstructure:"TYPING_EXPIRY"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()

	v.SetDefault("APP_NAME", "chatlink")
	v.SetDefault("APP_VERSION", "0.1.0")

	v.SetDefault("SERVER.HOST", "0.0.0.0")
	v.SetDefault("SERVER.PORT", "8001")
	v.SetDefault("SERVER.WEBSOCKET_PATH", "/ws")
	v.SetDefault("SERVER.READ_TIMEOUT", 30*time.Second)
	v.SetDefault("SERVER.WRITE_TIMEOUT", 30*time.Second)
	v.SetDefault("SERVER.MAX_HEADER_BYTES", 1<<20) // 1 MB
	v.SetDefault("SERVER.CORS.ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("SERVER.CORS.ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("SERVER.CORS.ALLOWED_HEADERS", []string{"Accept", "Authorization", "Content-Type"})
	v.SetDefault("SERVER.CORS.ALLOW_CREDENTIALS", true)
	v.SetDefault("SERVER.CORS.MAX_AGE", 300)

	v.SetDefault("DATABASE.TYPE", "postgres")
	v.SetDefault("DATABASE.HOST", "localhost")
	v.SetDefault("DATABASE.PORT", 5432)
	v.SetDefault("DATABASE.USER", "postgres")
	v.SetDefault("DATABASE.PASSWORD", "password")
	v.SetDefault("DATABASE.DB_NAME", "chatlink_db")
	v.SetDefault("DATABASE.SSL_MODE", "disable")

	v.SetDefault("STORAGE.TYPE", "local")
	v.SetDefault("STORAGE.LOCAL_PATH", "./uploads")
	v.SetDefault("STORAGE.BASE_URL", "/uploads")
	v.SetDefault("STORAGE.MAX_FILE_SIZE_MB", 25)

	v.SetDefault("AUTH.JWT_SECRET_KEY", "a_very_secret_key_that_should_be_changed")
	v.SetDefault("AUTH.JWT_EXPIRY", time.Hour)

	v.SetDefault("WEBSOCKET.WRITE_WAIT_SECONDS", 10)
	v.SetDefault("WEBSOCKET.PONG_WAIT_SECONDS", 60)
	v.SetDefault("WEBSOCKET.PING_PERIOD_SECONDS", 54) // (60 * 9) / 10
	v.SetDefault("WEBSOCKET.MAX_MESSAGE_SIZE_BYTES", 64<<10)
	v.SetDefault("WEBSOCKET.SEND_BUFFER_SIZE", 256)

	v.SetDefault("REDIS.ADDR", "localhost:6379")
	v.SetDefault("REDIS.PASSWORD", "")
	v.SetDefault("REDIS.DB", 0)

	v.SetDefault("SESSION.TYPING_EXPIRY", 3*time.Second)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err = v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return
		}
		// Config file not found; defaults plus environment cover everything.
	}

	err = v.Unmarshal(&config)
	return
}

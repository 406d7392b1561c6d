package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
)

// DefaultMQTTFile is the credentials file read by the publish command.
const DefaultMQTTFile = ".mqtt.config.json"

// Server configures cmd/server.
type Server struct {
	Port            string        `env:"PORT" envDefault:"3000"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	DatabaseDriver string `env:"DATABASE_DRIVER" envDefault:"sqlite"`
	DatabaseURL    string `env:"DATABASE_URL" envDefault:"oz.db"`

	LLMProvider  string `env:"LLM_PROVIDER" envDefault:"openai"`
	LLMBaseURL   string `env:"LLM_BASE_URL" envDefault:"https://api.deepseek.com"`
	LLMModel     string `env:"LLM_MODEL" envDefault:"deepseek-chat"`
	LLMMaxTokens int    `env:"LLM_MAX_TOKENS" envDefault:"512"`
	OpenAIAPIKey string `env:"OPEN_API_KEY"`
	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	GeminiModel  string `env:"GEMINI_MODEL" envDefault:"gemini-2.0-flash"`

	MQTTURL       string `env:"MQTT_URL"`
	MQTTAPIKey    string `env:"MQTT_API_KEY"`
	MQTTAPISecret string `env:"MQTT_API_SECRET"`

	JWTSecret string `env:"JWT_SECRET"`

	StreamLinger time.Duration `env:"STREAM_LINGER" envDefault:"5s"`
}

// MQTTEnabled reports whether chat transcripts and device events are published.
func (s Server) MQTTEnabled() bool {
	return s.MQTTURL != ""
}

// Client configures cmd/ozctl. Flags override these values.
type Client struct {
	BaseURL   string        `env:"OZ_BASE_URL" envDefault:"http://localhost:3000"`
	StreamURL string        `env:"OZ_STREAM_URL" envDefault:"ws://localhost:3000/api/stream"`
	Token     string        `env:"OZ_TOKEN" envDefault:"1234567890"`
	DeviceID  string        `env:"OZ_DEVICE_ID" envDefault:"1"`
	DevID     string        `env:"OZ_DEV_ID" envDefault:"1"`
	UserID    string        `env:"OZ_USER_ID" envDefault:"1"`
	Timeout   time.Duration `env:"OZ_TIMEOUT" envDefault:"30s"`
	MQTTFile  string        `env:"OZ_MQTT_CONFIG" envDefault:".mqtt.config.json"`
	JWTSecret string        `env:"JWT_SECRET"`
}

// LoadServer reads .env when present, then the environment.
func LoadServer() (Server, error) {
	_ = godotenv.Load()

	cfg := Server{}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing env config: %w", err)
	}
	return cfg, nil
}

// LoadClient reads .env when present, then the environment.
func LoadClient() (Client, error) {
	_ = godotenv.Load()

	cfg := Client{}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing env config: %w", err)
	}
	return cfg, nil
}

// MQTTFile is the content of .mqtt.config.json
type MQTTFile struct {
	URL    string `json:"mqtt_url"`
	APIKey string `json:"api_key"`
	Secret string `json:"secret"`
}

// LoadMQTTFile reads broker credentials. A missing file is an error.
func LoadMQTTFile(path string) (MQTTFile, error) {
	var cfg MQTTFile

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("mqtt config %s not found: %w", path, err)
		}
		return cfg, fmt.Errorf("reading mqtt config: %w", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("decoding mqtt config %s: %w", path, err)
	}

	if cfg.URL == "" {
		return cfg, fmt.Errorf("mqtt config %s: mqtt_url is required", path)
	}
	return cfg, nil
}

// Package mqttbridge forwards QR scans published over MQTT to the intake API and
// advertises the listener's presence.
package mqttbridge

import (
	"errors"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds the listener settings.
type Config struct {
	Broker         string        `envconfig:"MQTT_BROKER" default:"tcp://broker.emqx.io:1883"`
	QRTopic        string        `envconfig:"MQTT_QR_TOPIC" default:"manufacturing/anomalies"`
	PresenceTopic  string        `envconfig:"MQTT_PRESENCE_TOPIC" default:"device/raspberry-pi/presence"`
	PresenceEvery  time.Duration `envconfig:"MQTT_PRESENCE_INTERVAL" default:"30s"`
	ConnectTimeout time.Duration `envconfig:"MQTT_CONNECT_TIMEOUT" default:"10s"`

	APIBase      string        `envconfig:"QR_API_BASE" default:"http://127.0.0.1:8080/api/v1"`
	APIUsername  string        `envconfig:"QR_API_USERNAME" required:"true"`
	APIPassword  string        `envconfig:"QR_API_PASSWORD" required:"true"`
	CompanyID    int64         `envconfig:"QR_COMPANY_ID" required:"true"`
	RequestLimit time.Duration `envconfig:"QR_REQUEST_TIMEOUT" default:"15s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
}

// LoadConfig reads the listener configuration from an optional .env file and the environment.
func LoadConfig() (*Config, error) {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.CompanyID <= 0 {
		return nil, errors.New("QR_COMPANY_ID must be positive")
	}
	if cfg.PresenceEvery <= 0 {
		return nil, errors.New("presence interval must be positive")
	}
	return &cfg, nil
}

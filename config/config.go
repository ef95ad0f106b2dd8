package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

// ErrMissingCredential is returned when a provider credential is not configured.
var ErrMissingCredential = errors.New("missing provider credential")

type Config struct {
	Mode     string `mapstructure:"mode"`
	Handlers struct {
		ExternalAPI struct {
			Port           string   `mapstructure:"port"`
			AllowedOrigins []string `mapstructure:"allowedOrigins"`
			RequestsPerMin int      `mapstructure:"requestsPerMinute"`
		} `mapstructure:"externalAPI"`
		Prometheus struct {
			Port string `mapstructure:"port"`
		} `mapstructure:"prometheus"`
	} `mapstructure:"handlers"`
	Providers struct {
		Amadeus struct {
			BaseURL           string  `mapstructure:"baseURL"`
			APIKey            string  `mapstructure:"apiKey"`
			APISecret         string  `mapstructure:"apiSecret"`
			Currency          string  `mapstructure:"currency"`
			MaxFlightResults  int     `mapstructure:"maxFlightResults"`
			MaxHotels         int     `mapstructure:"maxHotels"`
			RequestsPerSecond float64 `mapstructure:"requestsPerSecond"`
		} `mapstructure:"amadeus"`
		Places struct {
			BaseURL        string `mapstructure:"baseURL"`
			APIKey         string `mapstructure:"apiKey"`
			Language       string `mapstructure:"language"`
			MaxPerCategory int    `mapstructure:"maxPerCategory"`
		} `mapstructure:"places"`
		Gemini struct {
			BaseURL     string `mapstructure:"baseURL"`
			APIKey      string `mapstructure:"apiKey"`
			Model       string `mapstructure:"model"`
			SpeechModel string `mapstructure:"speechModel"`
		} `mapstructure:"gemini"`
		Timeout time.Duration `mapstructure:"timeout"`
		Backoff time.Duration `mapstructure:"backoff"`
	} `mapstructure:"providers"`
	Server struct {
		HTTPPort        string        `mapstructure:"HTTPPort"`
		Timeout         time.Duration `mapstructure:"HTTPTimeout"`
		ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`
	} `mapstructure:"server"`
}

// credentialEnv maps config keys to the environment variables that carry them.
var credentialEnv = map[string]string{
	"providers.amadeus.apiKey":    "AMADEUS_API_KEY",
	"providers.amadeus.apiSecret": "AMADEUS_API_SECRET",
	"providers.places.apiKey":     "GOOGLE_PLACES_KEY",
	"providers.gemini.apiKey":     "GOOGLE_GEMINI_API_KEY",
}

func InitConfig() (Config, error) {
	v := viper.New()

	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")
	v.SetConfigName("config")
	v.SetConfigType("yml")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %w", err)
		}
	}
	return load(v)
}

func load(v *viper.Viper) (Config, error) {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range credentialEnv {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}
	_ = v.BindEnv("server.HTTPPort", "HTTP_PORT")
	_ = v.BindEnv("mode", "APP_ENV")

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

// Validate reports every provider credential that is empty.
func (c Config) Validate() error {
	var missing []string
	p := c.Providers
	if p.Amadeus.APIKey == "" {
		missing = append(missing, credentialEnv["providers.amadeus.apiKey"])
	}
	if p.Amadeus.APISecret == "" {
		missing = append(missing, credentialEnv["providers.amadeus.apiSecret"])
	}
	if p.Places.APIKey == "" {
		missing = append(missing, credentialEnv["providers.places.apiKey"])
	}
	if p.Gemini.APIKey == "" {
		missing = append(missing, credentialEnv["providers.gemini.apiKey"])
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingCredential, strings.Join(missing, ", "))
	}
	return nil
}

package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

const (
	AppName     = "cartify"
	EnvFileName = "config.env"
)

// LoadEnvFile loads environment variables from the config file in the user's
// config directory. Errors are ignored since the file may not exist.
func LoadEnvFile() {
	configBase, err := os.UserConfigDir()
	if err != nil {
		return
	}
	configPath := filepath.Join(configBase, AppName, EnvFileName)
	_ = godotenv.Load(configPath)
}

// Config holds process-level settings read from the environment.
type Config struct {
	// PlatformBaseURL is the retailer platform API endpoint.
	PlatformBaseURL string

	// PlatformAPIToken authenticates platform calls. Empty means
	// anonymous access (search works, cart creation may be limited).
	PlatformAPIToken string

	// GeminiAPIKey enables the LLM list parser when set.
	GeminiAPIKey string

	// DBPath is where the preference database lives.
	DBPath string

	// TokenKeyPassphrase derives the key encrypting stored tokens.
	TokenKeyPassphrase string
}

// FromEnv builds a Config from environment variables, applying defaults
// for everything but credentials.
func FromEnv() Config {
	cfg := Config{
		PlatformBaseURL:    os.Getenv("PLATFORM_BASE_URL"),
		PlatformAPIToken:   os.Getenv("PLATFORM_API_TOKEN"),
		GeminiAPIKey:       os.Getenv("GEMINI_API_KEY"),
		DBPath:             os.Getenv("CARTIFY_DB_PATH"),
		TokenKeyPassphrase: os.Getenv("CARTIFY_TOKEN_KEY"),
	}
	if cfg.PlatformBaseURL == "" {
		cfg.PlatformBaseURL = "https://api.grocer.example.com"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = defaultDBPath()
	}
	return cfg
}

func defaultDBPath() string {
	configBase, err := os.UserConfigDir()
	if err != nil {
		return "cartify.db"
	}
	return filepath.Join(configBase, AppName, "cartify.db")
}

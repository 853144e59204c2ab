package config

import (
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// EnvServerURL is the deployment-time variable supplying the backend base URL.
const EnvServerURL = "KUPLETALK_SERVER_URL"

// Settings is everything the client needs to run.
type Settings struct {
	// ServerURL is the REST base URL; the websocket endpoint is derived from
	// it by scheme substitution.
	ServerURL string
	// Debug opens the debug drawer at startup.
	Debug bool
	// TranscriptDB enables the local sqlite archive when non-empty.
	TranscriptDB string
	LogLevel     string
	LogFile      string
}

// LoadEnv pulls a .env file into the process environment if one exists.
// Missing files are fine; explicit environment always wins.
func LoadEnv() {
	_ = godotenv.Load()
}

// ServerURLFromEnv resolves the base URL, preferring the explicit flag value.
func ServerURLFromEnv(flagValue string) string {
	if strings.TrimSpace(flagValue) != "" {
		return flagValue
	}
	return os.Getenv(EnvServerURL)
}

func (s Settings) Validate() error {
	base := strings.TrimSpace(s.ServerURL)
	if base == "" {
		return errors.Errorf("no server URL: pass --server-url or set %s", EnvServerURL)
	}
	u, err := url.Parse(base)
	if err != nil {
		return errors.Wrap(err, "invalid server URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.Errorf("server URL must be http(s), got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("server URL has no host")
	}
	return nil
}

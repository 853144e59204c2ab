package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSettings_Validate(t *testing.T) {
	require.ErrorContains(t, Settings{}.Validate(), "no server URL")
	require.ErrorContains(t, Settings{ServerURL: "ftp://x"}.Validate(), "http(s)")
	require.ErrorContains(t, Settings{ServerURL: "http://"}.Validate(), "no host")
	require.NoError(t, Settings{ServerURL: "https://kupletalk.example.com"}.Validate())
}

func TestServerURLFromEnv_FlagWins(t *testing.T) {
	t.Setenv(EnvServerURL, "https://from-env.example.com")
	require.Equal(t, "https://from-flag.example.com", ServerURLFromEnv("https://from-flag.example.com"))
	require.Equal(t, "https://from-env.example.com", ServerURLFromEnv(""))
}

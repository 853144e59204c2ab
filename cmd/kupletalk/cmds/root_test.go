package cmds

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRootCmd_HasExpectedSubcommands(t *testing.T) {
	root := NewRootCmd()

	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	require.True(t, names["chats"])
	require.True(t, names["ask"])

	require.NotNil(t, root.PersistentFlags().Lookup("server-url"))
	require.NotNil(t, root.Flags().Lookup("transcript-db"))
}

func TestBuildController_RejectsMissingServerURL(t *testing.T) {
	settings.ServerURL = ""
	_, _, err := buildController()
	require.Error(t, err)
}

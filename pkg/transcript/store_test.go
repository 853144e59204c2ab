package transcript

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kuplace/kupletalk/pkg/api"
)

func TestStore_RecordAndListRoundTrip(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "transcript.db"))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	ctx := context.Background()
	require.NoError(t, s.Record(ctx, "chat-1", api.SenderUser, "where can I charge my phone?"))
	require.NoError(t, s.Record(ctx, "chat-1", api.SenderBot, "in the media hall lobby"))
	require.NoError(t, s.Record(ctx, "chat-2", api.SenderUser, "unrelated"))

	entries, err := s.List(ctx, "chat-1", 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, api.SenderUser, entries[0].Sender)
	require.Equal(t, api.SenderBot, entries[1].Sender)
	require.Equal(t, "in the media hall lobby", entries[1].Content)

	entries, err = s.List(ctx, "chat-2", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestStore_ValidatesInput(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "transcript.db"))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	require.ErrorContains(t, s.Record(context.Background(), " ", api.SenderUser, "x"), "empty chat id")

	_, err = s.List(context.Background(), "", 0)
	require.ErrorContains(t, err, "empty chat id")

	_, err = Open("")
	require.ErrorContains(t, err, "empty path")
}

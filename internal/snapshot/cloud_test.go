package snapshot

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanitizeKey(t *testing.T) {
	require.Equal(t, "user-1", SanitizeKey("user-1"))
	require.Equal(t, "ada-example-com", SanitizeKey("ada@example.com"))
	require.Equal(t, "a_B9", SanitizeKey("a_B9"))
	require.Equal(t, "--", SanitizeKey("/."))
	require.Equal(t, "", SanitizeKey(""))
}

func TestSplitJoinChunksRoundTrip(t *testing.T) {
	data := []byte(strings.Repeat("orderdesk", 1000))
	chunks := SplitChunks(data, 128)
	require.Greater(t, len(chunks), 1)
	for i, c := range chunks {
		if i < len(chunks)-1 {
			require.Len(t, c, 128)
		}
	}
	require.Equal(t, data, JoinChunks(chunks))
}

func TestSplitChunksExactMultiple(t *testing.T) {
	data := []byte("abcdef")
	chunks := SplitChunks(data, 3)
	require.Equal(t, []string{"abc", "def"}, chunks)
}

func TestSplitChunksEmptyInput(t *testing.T) {
	chunks := SplitChunks(nil, 64)
	require.Equal(t, []string{""}, chunks, "an empty store still writes one chunk")
	require.Empty(t, JoinChunks(chunks))
}

func TestPartitionKeyUsesStableUserID(t *testing.T) {
	id := Identity{UserID: "u. 42"}
	require.Equal(t, "u--42", id.PartitionKey())
}

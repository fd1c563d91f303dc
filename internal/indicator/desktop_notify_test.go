package indicator

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestParseNotificationID(t *testing.T) {
	id, err := parseNotificationID("u 42")
	require.NoError(t, err)
	require.Equal(t, uint32(42), id)

	_, err = parseNotificationID("s nope")
	require.ErrorContains(t, err, "invalid response")

	_, err = parseNotificationID("u -1")
	require.ErrorContains(t, err, "parse id")
}

func TestNotificationArgsTruncateLongBodies(t *testing.T) {
	long := strings.Repeat("and the Word was God ", 60)
	args := notification{appName: "versecatch", replaceID: 3, summary: "JOHN 1:1 (WEB)", body: long, timeoutMS: 8000}.args()

	require.Equal(t, "susssasa{sv}i", args[0])
	require.Equal(t, "3", args[2])
	require.Equal(t, "8000", args[len(args)-1])

	body := args[5]
	require.LessOrEqual(t, utf8.RuneCountInString(body), maxBodyRunes)
	require.True(t, strings.HasSuffix(body, "…"))
	require.True(t, strings.HasPrefix(long, strings.TrimSuffix(body, "…")))
}

func TestTruncateBodyKeepsShortText(t *testing.T) {
	require.Equal(t, "Jesus wept.", truncateBody("  Jesus wept.\n"))
}

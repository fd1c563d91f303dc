package indicator

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	notifyService = "org.freedesktop.Notifications"
	notifyPath    = "/org/freedesktop/Notifications"
	notifyIcon    = "accessories-dictionary"

	// maxBodyRunes keeps long passages readable in a notification bubble.
	maxBodyRunes = 480
)

// notification is one freedesktop Notify call.
type notification struct {
	appName   string
	replaceID uint32
	summary   string
	body      string
	timeoutMS int
}

// args renders the Notify call for busctl's "susssasa{sv}i" signature with no actions or hints.
func (n notification) args() []string {
	return []string{
		"susssasa{sv}i",
		n.appName,
		strconv.FormatUint(uint64(n.replaceID), 10),
		notifyIcon,
		n.summary,
		truncateBody(n.body),
		"0",
		"0",
		strconv.Itoa(n.timeoutMS),
	}
}

// desktopNotify shows or replaces a notification and returns the server-assigned ID.
func desktopNotify(ctx context.Context, n notification) (uint32, error) {
	out, err := busctl(ctx, "Notify", n.args()...)
	if err != nil {
		return 0, err
	}
	return parseNotificationID(out)
}

// desktopDismiss requests explicit close by notification ID.
func desktopDismiss(ctx context.Context, id uint32) error {
	_, err := busctl(ctx, "CloseNotification", "u", strconv.FormatUint(uint64(id), 10))
	return err
}

// busctl calls one method on the session notification service.
func busctl(ctx context.Context, method string, args ...string) (string, error) {
	argv := append([]string{"--user", "call", notifyService, notifyPath, notifyService, method}, args...)

	out, err := exec.CommandContext(ctx, "busctl", argv...).CombinedOutput()
	trimmed := strings.TrimSpace(string(out))
	if err != nil {
		if trimmed == "" {
			return "", fmt.Errorf("desktop %s failed: %w", method, err)
		}
		return "", fmt.Errorf("desktop %s failed: %w (%s)", method, err, trimmed)
	}
	return trimmed, nil
}

// parseNotificationID reads busctl's "u <id>" reply.
func parseNotificationID(out string) (uint32, error) {
	fields := strings.Fields(out)
	if len(fields) < 2 || fields[0] != "u" {
		return 0, fmt.Errorf("desktop notify invalid response: %q", out)
	}

	value, err := strconv.ParseUint(fields[1], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("desktop notify parse id %q: %w", fields[1], err)
	}
	return uint32(value), nil
}

func truncateBody(body string) string {
	body = strings.TrimSpace(body)
	if utf8.RuneCountInString(body) <= maxBodyRunes {
		return body
	}
	runes := []rune(body)
	return strings.TrimSpace(string(runes[:maxBodyRunes-1])) + "…"
}

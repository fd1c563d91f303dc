package indicator

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rbright/versecatch/internal/config"
	"github.com/rbright/versecatch/internal/reference"
	"github.com/stretchr/testify/require"
)

func TestDesktopNotifyDispatchesAndReplaces(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "busctl-args.log")
	t.Setenv("BUSCTL_ARGS_FILE", argsFile)
	installBusctlStub(t, `
printf '%s\n' "$*" >> "${BUSCTL_ARGS_FILE}"
if [[ "${6:-}" == "Notify" ]]; then
  echo 'u 42'
fi
`)

	cfg := config.Default().Indicator
	cfg.Enable = true
	cfg.SoundEnable = false
	cfg.VerseTimeoutMS = 9000

	notify := NewDesktop(cfg, nil)
	notify.ShowListening(context.Background())
	notify.ShowVerse(context.Background(), reference.Reference{Book: "Romans", Chapter: "8", Verse: "28"}, "WEB", "And we know")
	notify.ShowStopped(context.Background())

	lines := readLines(t, argsFile)
	require.Len(t, lines, 3)
	require.Equal(t, "--user call org.freedesktop.Notifications /org/freedesktop/Notifications org.freedesktop.Notifications Notify susssasa{sv}i versecatch 0 accessories-dictionary Listening for scripture…  0 0 4000", lines[0])
	require.Equal(t, "--user call org.freedesktop.Notifications /org/freedesktop/Notifications org.freedesktop.Notifications Notify susssasa{sv}i versecatch 42 accessories-dictionary ROMANS 8:28 (WEB) And we know 0 0 9000", lines[1])
	require.Equal(t, "--user call org.freedesktop.Notifications /org/freedesktop/Notifications org.freedesktop.Notifications CloseNotification u 42", lines[2])
}

func TestDesktopShowErrorUsesDefaultText(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "busctl-args.log")
	t.Setenv("BUSCTL_ARGS_FILE", argsFile)
	installBusctlStub(t, `
printf '%s\n' "$*" >> "${BUSCTL_ARGS_FILE}"
echo 'u 7'
`)

	cfg := config.Default().Indicator
	cfg.Enable = true
	cfg.SoundEnable = false

	notify := NewDesktop(cfg, nil)
	notify.ShowError(context.Background(), "")

	lines := readLines(t, argsFile)
	require.Len(t, lines, 1)
	require.True(t, strings.HasSuffix(lines[0], "Verse lookup failed Verse lookup failed 0 0 3000"), lines[0])
}

func TestDesktopDisabledSkipsBusctl(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "busctl-args.log")
	t.Setenv("BUSCTL_ARGS_FILE", argsFile)
	installBusctlStub(t, `
printf '%s\n' "$*" >> "${BUSCTL_ARGS_FILE}"
`)

	cfg := config.Default().Indicator
	cfg.Enable = false
	cfg.SoundEnable = false

	notify := NewDesktop(cfg, nil)
	notify.ShowListening(context.Background())
	notify.ShowPaused(context.Background())
	notify.ShowVerse(context.Background(), reference.Reference{Book: "John", Chapter: "3", Verse: "16"}, "KJV", "For God")
	notify.ShowError(context.Background(), "ignored")
	notify.ShowStopped(context.Background())

	_, err := os.Stat(argsFile)
	require.True(t, os.IsNotExist(err))
}

func TestDesktopStoppedWithoutNotificationSkipsDismiss(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "busctl-args.log")
	t.Setenv("BUSCTL_ARGS_FILE", argsFile)
	installBusctlStub(t, `
printf '%s\n' "$*" >> "${BUSCTL_ARGS_FILE}"
`)

	cfg := config.Default().Indicator
	cfg.Enable = true
	cfg.SoundEnable = false

	NewDesktop(cfg, nil).ShowStopped(context.Background())

	_, err := os.Stat(argsFile)
	require.True(t, os.IsNotExist(err))
}

func TestDesktopNotifyInvalidResponseKeepsPreviousID(t *testing.T) {
	installBusctlStub(t, `
echo 'garbage'
`)

	cfg := config.Default().Indicator
	cfg.Enable = true
	cfg.SoundEnable = false

	notify := NewDesktop(cfg, nil)
	notify.ShowPaused(context.Background())
	require.Zero(t, notify.notificationID)
}

func TestDesktopPlaysCuesWhenSoundEnabled(t *testing.T) {
	cfg := config.Default().Indicator
	cfg.Enable = false
	cfg.SoundEnable = true

	var (
		mu     sync.Mutex
		played []cueKind
	)
	notify := NewDesktop(cfg, nil)
	notify.cue = func(_ context.Context, kind cueKind) error {
		mu.Lock()
		defer mu.Unlock()
		played = append(played, kind)
		return nil
	}

	notify.ShowListening(context.Background())
	notify.ShowPaused(context.Background())
	notify.ShowVerse(context.Background(), reference.Reference{Book: "John", Chapter: "3", Verse: "16"}, "WEB", "For God")
	notify.ShowStopped(context.Background())

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(played) == 4
	}, 2*time.Second, 5*time.Millisecond)
	require.ElementsMatch(t, []cueKind{cueStart, cuePause, cueVerse, cueStop}, played)
}

func installBusctlStub(t *testing.T, body string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "busctl")
	script := "#!/usr/bin/env bash\nset -euo pipefail\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))
	t.Setenv("LC_ALL", "C.UTF-8")
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

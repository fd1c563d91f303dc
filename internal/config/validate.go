package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if err := validateURL("verse.api_url", cfg.Verse.APIURL, "http", "https"); err != nil {
		return nil, err
	}
	if len(cfg.Verse.Translations) == 0 {
		return nil, fmt.Errorf("verse.translations must not be empty")
	}
	seen := make(map[string]struct{}, len(cfg.Verse.Translations))
	for _, code := range cfg.Verse.Translations {
		if _, dup := seen[code]; dup {
			warnings = append(warnings, Warning{Message: fmt.Sprintf("verse.translations lists %q more than once", code)})
		}
		seen[code] = struct{}{}
	}
	if !cfg.Verse.HasTranslation(cfg.Verse.Translation) {
		return nil, fmt.Errorf("verse.translation %q is not listed in verse.translations", cfg.Verse.Translation)
	}
	switch cfg.Verse.Ordering {
	case OrderingLatest, OrderingCompletion:
	default:
		return nil, fmt.Errorf("verse.ordering must be one of: %s, %s", OrderingLatest, OrderingCompletion)
	}

	switch cfg.Capture.Backend {
	case BackendSpeech:
		if err := validateURL("capture.asr_url", cfg.Capture.ASRURL, "ws", "wss"); err != nil {
			return nil, err
		}
	case BackendStdin:
	default:
		return nil, fmt.Errorf("capture.backend must be one of: %s, %s", BackendSpeech, BackendStdin)
	}
	if cfg.Capture.SampleRate <= 0 {
		return nil, fmt.Errorf("capture.sample_rate must be > 0")
	}

	if cfg.Indicator.Enable && strings.TrimSpace(cfg.Indicator.DesktopAppName) == "" {
		return nil, fmt.Errorf("indicator.desktop_app_name must not be empty when indicator.enable=true")
	}
	if cfg.Indicator.VerseTimeoutMS < 0 {
		return nil, fmt.Errorf("indicator.verse_timeout_ms must be >= 0")
	}

	if cfg.Overlay.Enable && strings.TrimSpace(cfg.Overlay.Addr) == "" {
		return nil, fmt.Errorf("overlay.addr must not be empty when overlay.enable=true")
	}

	if cfg.Capture.Backend == BackendStdin && cfg.Debug.EnableAudioDump {
		warnings = append(warnings, Warning{Message: "debug.audio_dump has no effect with capture.backend=stdin"})
	}

	return warnings, nil
}

// validateURL requires an absolute URL with a host and one of the allowed schemes.
func validateURL(field string, raw string, schemes ...string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("%s must not be empty", field)
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	for _, scheme := range schemes {
		if parsed.Scheme == scheme && parsed.Host != "" {
			return nil
		}
	}
	return fmt.Errorf("%s must be an absolute %s URL", field, strings.Join(schemes, "/"))
}

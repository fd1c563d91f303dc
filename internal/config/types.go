// Package config resolves, parses, validates, and defaults versecatch configuration.
package config

// Config is the fully materialized runtime configuration used by versecatch.
type Config struct {
	Verse     VerseConfig
	Capture   CaptureConfig
	Audio     AudioConfig
	Indicator IndicatorConfig
	Overlay   OverlayConfig
	Debug     DebugConfig
}

// VerseConfig controls the verse-lookup service and translation selection.
type VerseConfig struct {
	APIURL       string
	Translation  string
	Translations []string
	Ordering     string
}

// CaptureConfig selects the capture backend and its ASR endpoint.
type CaptureConfig struct {
	Backend    string
	ASRURL     string
	SampleRate int
}

// AudioConfig controls preferred and fallback input-source selection.
type AudioConfig struct {
	Input    string
	Fallback string
}

// IndicatorConfig controls desktop verse notifications and audio cues.
type IndicatorConfig struct {
	Enable         bool
	DesktopAppName string
	SoundEnable    bool
	VerseTimeoutMS int
}

// OverlayConfig controls the optional HTTP overlay surface.
type OverlayConfig struct {
	Enable bool
	Addr   string
}

// DebugConfig controls optional debug artifact output.
type DebugConfig struct {
	EnableAudioDump bool
	EnableASRDump   bool
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}

const (
	BackendSpeech = "speech"
	BackendStdin  = "stdin"

	OrderingLatest     = "latest"
	OrderingCompletion = "completion"
)

// HasTranslation reports whether code is one of the configured translations.
func (v VerseConfig) HasTranslation(code string) bool {
	for _, t := range v.Translations {
		if t == code {
			return true
		}
	}
	return false
}

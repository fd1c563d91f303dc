package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		Verse: VerseConfig{
			APIURL:       "http://127.0.0.1:8080",
			Translation:  "WEB",
			Translations: []string{"WEB", "KJV", "ASV", "BBE", "DARBY", "YLT", "WEBBE"},
			Ordering:     OrderingLatest,
		},
		Capture: CaptureConfig{
			Backend:    BackendSpeech,
			ASRURL:     "ws://127.0.0.1:2700",
			SampleRate: 16000,
		},
		Audio: AudioConfig{
			Input:    "default",
			Fallback: "default",
		},
		Indicator: IndicatorConfig{
			Enable:         true,
			DesktopAppName: "versecatch",
			SoundEnable:    true,
			VerseTimeoutMS: 8000,
		},
		Overlay: OverlayConfig{
			Enable: false,
			Addr:   "127.0.0.1:7337",
		},
		Debug: DebugConfig{},
	}
}

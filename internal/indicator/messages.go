package indicator

import (
	"os"
	"strings"
)

type locale string

const (
	localeEnglish locale = "en"
	localeSpanish locale = "es"
)

type messages struct {
	listening string
	paused    string
	errorText string
}

// indicatorMessagesFromEnv picks notification text from LC_ALL, LC_MESSAGES, then LANG.
func indicatorMessagesFromEnv() messages {
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if raw := strings.TrimSpace(os.Getenv(key)); raw != "" {
			return indicatorMessages(resolveLocale(raw))
		}
	}
	return indicatorMessages(localeEnglish)
}

func resolveLocale(raw string) locale {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if strings.HasPrefix(raw, "es") {
		return localeSpanish
	}
	return localeEnglish
}

func indicatorMessages(tag locale) messages {
	switch tag {
	case localeSpanish:
		return messages{
			listening: "Escuchando las Escrituras…",
			paused:    "Escucha en pausa",
			errorText: "No se pudo obtener el versículo",
		}
	default:
		return messages{
			listening: "Listening for scripture…",
			paused:    "Listening paused",
			errorText: "Verse lookup failed",
		}
	}
}

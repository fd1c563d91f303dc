package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

type jsoncConfig struct {
	Verse     *jsoncVerse     `json:"verse"`
	Capture   *jsoncCapture   `json:"capture"`
	Audio     *jsoncAudio     `json:"audio"`
	Indicator *jsoncIndicator `json:"indicator"`
	Overlay   *jsoncOverlay   `json:"overlay"`
	Debug     *jsoncDebug     `json:"debug"`
}

type jsoncVerse struct {
	APIURL       *string          `json:"api_url"`
	Translation  *string          `json:"translation"`
	Translations *jsoncStringList `json:"translations"`
	Ordering     *string          `json:"ordering"`
}

type jsoncCapture struct {
	Backend    *string `json:"backend"`
	ASRURL     *string `json:"asr_url"`
	SampleRate *int    `json:"sample_rate"`
}

type jsoncAudio struct {
	Input    *string `json:"input"`
	Fallback *string `json:"fallback"`
}

type jsoncIndicator struct {
	Enable         *bool   `json:"enable"`
	DesktopAppName *string `json:"desktop_app_name"`
	SoundEnable    *bool   `json:"sound_enable"`
	VerseTimeoutMS *int    `json:"verse_timeout_ms"`
}

type jsoncOverlay struct {
	Enable *bool   `json:"enable"`
	Addr   *string `json:"addr"`
}

type jsoncDebug struct {
	AudioDump *bool `json:"audio_dump"`
	ASRDump   *bool `json:"asr_dump"`
}

// jsoncStringList accepts either a string array or a comma-delimited string.
type jsoncStringList []string

func (l *jsoncStringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*l = trimNonEmpty(list)
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*l = trimNonEmpty(strings.Split(single, ","))
		return nil
	}

	return fmt.Errorf("expected string array or comma-delimited string")
}

func trimNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	cfg := base
	cfg.Verse.Translations = append([]string(nil), base.Verse.Translations...)
	payload.applyTo(&cfg)

	warnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, warnings, nil
}

func (payload jsoncConfig) applyTo(cfg *Config) {
	if v := payload.Verse; v != nil {
		setString(&cfg.Verse.APIURL, v.APIURL)
		setString(&cfg.Verse.Translation, v.Translation)
		setString(&cfg.Verse.Ordering, v.Ordering)
		if v.Translations != nil {
			cfg.Verse.Translations = append([]string(nil), (*v.Translations)...)
		}
		cfg.Verse.Ordering = strings.ToLower(cfg.Verse.Ordering)
	}

	if c := payload.Capture; c != nil {
		setString(&cfg.Capture.Backend, c.Backend)
		setString(&cfg.Capture.ASRURL, c.ASRURL)
		if c.SampleRate != nil {
			cfg.Capture.SampleRate = *c.SampleRate
		}
		cfg.Capture.Backend = strings.ToLower(cfg.Capture.Backend)
	}

	if a := payload.Audio; a != nil {
		setString(&cfg.Audio.Input, a.Input)
		setString(&cfg.Audio.Fallback, a.Fallback)
	}

	if i := payload.Indicator; i != nil {
		setBool(&cfg.Indicator.Enable, i.Enable)
		setString(&cfg.Indicator.DesktopAppName, i.DesktopAppName)
		setBool(&cfg.Indicator.SoundEnable, i.SoundEnable)
		if i.VerseTimeoutMS != nil {
			cfg.Indicator.VerseTimeoutMS = *i.VerseTimeoutMS
		}
	}

	if o := payload.Overlay; o != nil {
		setBool(&cfg.Overlay.Enable, o.Enable)
		setString(&cfg.Overlay.Addr, o.Addr)
	}

	if d := payload.Debug; d != nil {
		setBool(&cfg.Debug.EnableAudioDump, d.AudioDump)
		setBool(&cfg.Debug.EnableASRDump, d.ASRDump)
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

// normalizeJSONC blanks comments and drops trailing commas while keeping byte offsets stable
// for line/column error reporting.
func normalizeJSONC(content string) (string, error) {
	var out strings.Builder
	out.Grow(len(content))

	const (
		modeCode = iota
		modeString
		modeLineComment
		modeBlockComment
	)

	mode := modeCode
	escaped := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		switch mode {
		case modeString:
			out.WriteByte(ch)
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				mode = modeCode
			}
		case modeLineComment:
			if ch == '\n' || ch == '\r' {
				mode = modeCode
				out.WriteByte(ch)
				continue
			}
			out.WriteByte(' ')
		case modeBlockComment:
			if ch == '*' && i+1 < len(content) && content[i+1] == '/' {
				mode = modeCode
				out.WriteString("  ")
				i++
				continue
			}
			out.WriteByte(blankPreservingLayout(ch))
		default:
			switch {
			case ch == '"':
				mode = modeString
				out.WriteByte(ch)
			case ch == '/' && i+1 < len(content) && content[i+1] == '/':
				mode = modeLineComment
				out.WriteString("  ")
				i++
			case ch == '/' && i+1 < len(content) && content[i+1] == '*':
				mode = modeBlockComment
				out.WriteString("  ")
				i++
			case ch == ',' && closesAfterTrailingComma(content, i+1):
				out.WriteByte(' ')
			default:
				out.WriteByte(ch)
			}
		}
	}

	if mode == modeBlockComment {
		return "", fmt.Errorf("unterminated block comment in JSONC")
	}
	return out.String(), nil
}

// closesAfterTrailingComma reports whether the next significant token closes an object or array.
// Comments between the comma and the closer are skipped.
func closesAfterTrailingComma(content string, from int) bool {
	for i := from; i < len(content); i++ {
		switch ch := content[i]; {
		case ch == ' ' || ch == '\n' || ch == '\r' || ch == '\t':
			continue
		case ch == '/' && i+1 < len(content) && content[i+1] == '/':
			for i < len(content) && content[i] != '\n' {
				i++
			}
		case ch == '/' && i+1 < len(content) && content[i+1] == '*':
			end := strings.Index(content[i+2:], "*/")
			if end < 0 {
				return false
			}
			i += end + 3
		default:
			return ch == '}' || ch == ']'
		}
	}
	return false
}

func blankPreservingLayout(ch byte) byte {
	if ch == '\n' || ch == '\r' || ch == '\t' {
		return ch
	}
	return ' '
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra struct{}
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	return err
}

func wrapJSONDecodeError(content string, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := offsetToLineCol(content, syntaxErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, col := offsetToLineCol(content, typeErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	return err
}

func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}

	limit := int(offset)
	if limit > len(content) {
		limit = len(content)
	}

	line, col := 1, 1
	for _, ch := range content[:limit-1] {
		if ch == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}

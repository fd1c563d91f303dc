package indicator

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/jfreymuth/pulse"
)

type cueKind int

const (
	cueStart cueKind = iota + 1
	cuePause
	cueStop
	cueVerse
)

const (
	cueSampleRate = 16000
	cueGap        = 22 * time.Millisecond
	cueRamp       = 5 * time.Millisecond
)

type toneSpec struct {
	frequencyHz float64
	duration    time.Duration
	volume      float64
}

// cueTones describes each cue; start rises, stop falls, and the verse chime is softer.
var cueTones = map[cueKind][]toneSpec{
	cueStart: {
		{frequencyHz: 880, duration: 70 * time.Millisecond, volume: 0.18},
		{frequencyHz: 1175, duration: 70 * time.Millisecond, volume: 0.18},
	},
	cuePause: {
		{frequencyHz: 620, duration: 120 * time.Millisecond, volume: 0.18},
	},
	cueStop: {
		{frequencyHz: 480, duration: 75 * time.Millisecond, volume: 0.18},
		{frequencyHz: 360, duration: 90 * time.Millisecond, volume: 0.18},
	},
	cueVerse: {
		{frequencyHz: 659, duration: 60 * time.Millisecond, volume: 0.12},
		{frequencyHz: 784, duration: 60 * time.Millisecond, volume: 0.12},
		{frequencyHz: 988, duration: 110 * time.Millisecond, volume: 0.12},
	},
}

var cuePCM = synthesizeCues(cueTones)

func (k cueKind) String() string {
	switch k {
	case cueStart:
		return "start"
	case cuePause:
		return "pause"
	case cueStop:
		return "stop"
	case cueVerse:
		return "verse"
	default:
		return fmt.Sprintf("cue(%d)", int(k))
	}
}

// emitCue plays one synthesized cue through Pulse.
func emitCue(ctx context.Context, kind cueKind) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	samples := cueSamples(kind)
	if len(samples) == 0 {
		return nil
	}
	return playPCM(samples, "versecatch "+kind.String()+" cue")
}

// playPCM plays mono 16-bit samples to the default sink and blocks until drained.
func playPCM(samples []int16, mediaName string) error {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("versecatch"),
		pulse.ClientApplicationIconName("accessories-dictionary"),
	)
	if err != nil {
		return fmt.Errorf("connect pulse server: %w", err)
	}
	defer client.Close()

	stream, err := client.NewPlayback(
		pulse.Int16Reader(sampleReader(samples)),
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(cueSampleRate),
		pulse.PlaybackLatency(0.02),
		pulse.PlaybackMediaName(mediaName),
	)
	if err != nil {
		return fmt.Errorf("create pulse playback stream: %w", err)
	}
	defer stream.Close()

	stream.Start()
	stream.Drain()
	if err := stream.Error(); err != nil {
		return fmt.Errorf("play cue stream: %w", err)
	}
	return nil
}

// sampleReader yields samples once and then reports pulse.EndOfData.
func sampleReader(samples []int16) func([]int16) (int, error) {
	cursor := 0
	return func(buf []int16) (int, error) {
		if cursor >= len(samples) {
			return 0, pulse.EndOfData
		}
		n := copy(buf, samples[cursor:])
		cursor += n
		if cursor >= len(samples) {
			return n, pulse.EndOfData
		}
		return n, nil
	}
}

func cueSamples(kind cueKind) []int16 {
	return cuePCM[kind]
}

func synthesizeCues(tones map[cueKind][]toneSpec) map[cueKind][]int16 {
	out := make(map[cueKind][]int16, len(tones))
	for kind, parts := range tones {
		out[kind] = synthesizeCue(parts)
	}
	return out
}

// synthesizeCue concatenates tones with a short silence between them.
func synthesizeCue(parts []toneSpec) []int16 {
	if len(parts) == 0 {
		return nil
	}
	gap := samplesForDuration(cueGap)

	var pcm []int16
	for i, part := range parts {
		pcm = append(pcm, synthesizeTone(part)...)
		if i < len(parts)-1 {
			pcm = append(pcm, make([]int16, gap)...)
		}
	}
	return pcm
}

// synthesizeTone renders a sine tone with a linear attack/release ramp.
func synthesizeTone(spec toneSpec) []int16 {
	n := samplesForDuration(spec.duration)
	if n <= 0 || spec.frequencyHz <= 0 || spec.volume <= 0 {
		return nil
	}

	ramp := max(1, min(n/10, samplesForDuration(cueRamp)))

	pcm := make([]int16, n)
	for i := 0; i < n; i++ {
		envelope := min(1.0, float64(i)/float64(ramp), float64(n-i-1)/float64(ramp))
		t := float64(i) / cueSampleRate
		sample := math.Sin(2 * math.Pi * spec.frequencyHz * t)
		pcm[i] = int16(math.Round(sample * spec.volume * envelope * 32767))
	}
	return pcm
}

func samplesForDuration(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Seconds() * cueSampleRate))
}

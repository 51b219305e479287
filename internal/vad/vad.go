// Package vad wraps the WebRTC voice activity detector for the
// streaming pipeline's optional silence gate.
package vad

import (
	"fmt"

	webrtcvad "github.com/maxhawkins/go-webrtcvad"
)

// Detector reports whether a float32 waveform contains voiced frames.
type Detector struct {
	vad        *webrtcvad.VAD
	sampleRate int
}

// New builds a detector. The WebRTC VAD only accepts 8/16/32/48 kHz;
// aggressiveness runs 0 (permissive) to 3 (strict).
func New(sampleRate, aggressiveness int) (*Detector, error) {
	switch sampleRate {
	case 8000, 16000, 32000, 48000:
	default:
		return nil, fmt.Errorf("sample rate must be 8k/16k/32k/48k for webrtc VAD (got %d)", sampleRate)
	}
	if aggressiveness < 0 || aggressiveness > 3 {
		return nil, fmt.Errorf("aggressiveness must be 0-3 (got %d)", aggressiveness)
	}
	v, err := webrtcvad.New()
	if err != nil {
		return nil, fmt.Errorf("webrtcvad: %w", err)
	}
	if err := v.SetMode(aggressiveness); err != nil {
		return nil, fmt.Errorf("vad mode: %w", err)
	}
	return &Detector{vad: v, sampleRate: sampleRate}, nil
}

// HasVoice scans samples in 10 ms frames and reports true as soon as
// any frame is voiced. Trailing samples shorter than a frame are
// ignored.
func (d *Detector) HasVoice(samples []float32) (bool, error) {
	frameSamples := d.sampleRate / 100
	frame := make([]byte, frameSamples*2)
	for off := 0; off+frameSamples <= len(samples); off += frameSamples {
		for i := 0; i < frameSamples; i++ {
			s := samples[off+i]
			if s > 1 {
				s = 1
			}
			if s < -1 {
				s = -1
			}
			v := int16(s * 32767)
			frame[i*2] = byte(v)
			frame[i*2+1] = byte(v >> 8)
		}
		active, err := d.vad.Process(d.sampleRate, frame)
		if err != nil {
			return false, fmt.Errorf("vad process: %w", err)
		}
		if active {
			return true, nil
		}
	}
	return false, nil
}

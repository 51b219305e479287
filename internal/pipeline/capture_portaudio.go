//go:build whisper

package pipeline

import (
	"fmt"
	"strings"

	"github.com/gordonklaus/portaudio"
	"github.com/sirupsen/logrus"
)

// micCapture feeds fixed-size blocks from a PortAudio input device.
// The onBlock callback runs on PortAudio's stream thread.
type micCapture struct {
	deviceName  string
	sampleRate  int
	blockFrames int
	logger      *logrus.Logger

	stream *portaudio.Stream
}

// NewMicCapture opens the preferred (or default) input device,
// producing blockMS-sized blocks at sampleRate.
func NewMicCapture(deviceName string, sampleRate, blockMS int, logger *logrus.Logger) (Capture, error) {
	if blockMS <= 0 {
		blockMS = DefaultBlockMS
	}
	return &micCapture{
		deviceName:  deviceName,
		sampleRate:  sampleRate,
		blockFrames: sampleRate * blockMS / 1000,
		logger:      logger,
	}, nil
}

func (m *micCapture) Start(onBlock func(samples []float32)) error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("portaudio init: %w", err)
	}
	dev, err := selectDevice(m.deviceName)
	if err != nil {
		_ = portaudio.Terminate()
		return err
	}
	m.logger.Infof("listening on mic: %s @ %d Hz", dev.Name, m.sampleRate)

	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: 1,
			Latency:  dev.DefaultLowInputLatency,
		},
		SampleRate:      float64(m.sampleRate),
		FramesPerBuffer: m.blockFrames,
	}, func(in []int16) {
		block := make([]float32, len(in))
		for i, s := range in {
			block[i] = float32(s) / 32768.0
		}
		onBlock(block)
	})
	if err != nil {
		_ = portaudio.Terminate()
		return fmt.Errorf("open stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return fmt.Errorf("start stream: %w", err)
	}
	m.stream = stream
	return nil
}

func (m *micCapture) Stop() error {
	if m.stream == nil {
		return nil
	}
	if err := m.stream.Stop(); err != nil {
		m.logger.Warnf("stop stream: %v", err)
	}
	err := m.stream.Close()
	m.stream = nil
	_ = portaudio.Terminate()
	return err
}

func selectDevice(preferred string) (*portaudio.DeviceInfo, error) {
	devs, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	if preferred != "" {
		for _, d := range devs {
			if d.MaxInputChannels > 0 && strings.Contains(strings.ToLower(d.Name), strings.ToLower(preferred)) {
				return d, nil
			}
		}
	}
	if def, err := portaudio.DefaultInputDevice(); err == nil && def != nil {
		return def, nil
	}
	for _, d := range devs {
		if d.MaxInputChannels > 0 {
			return d, nil
		}
	}
	return nil, fmt.Errorf("no input devices found")
}

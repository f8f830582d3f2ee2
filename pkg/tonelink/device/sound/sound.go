package sound

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unsafe"

	"github.com/gen2brain/malgo"
	"github.com/norasector/tonelink/pkg/tonelink/device"
	"github.com/rs/zerolog/log"
)

// maxQueuedSeconds bounds how much transmit audio may wait for the sound card.
const maxQueuedSeconds = 2

// SoundDevice captures from and plays to a sound card through miniaudio.
type SoundDevice struct {
	ctx        *malgo.AllocatedContext
	capture    *malgo.Device
	playback   *malgo.Device
	sampleRate int
	windowSize int
	deviceName string

	mu       sync.Mutex
	windower *device.Windower
	queue    []float32
	underrun uint64
	overflow uint64

	stopOnce sync.Once
	stopChan chan struct{}
}

func NewSoundDevice(sampleRate, windowSize int, deviceName string) (*SoundDevice, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to init malgo context: %w", err)
	}

	return &SoundDevice{
		ctx:        ctx,
		sampleRate: sampleRate,
		windowSize: windowSize,
		deviceName: deviceName,
		stopChan:   make(chan struct{}),
	}, nil
}

func (s *SoundDevice) findDevice(kind malgo.DeviceType) (unsafe.Pointer, bool) {
	if s.deviceName == "" {
		return nil, false
	}
	infos, err := s.ctx.Devices(kind)
	if err != nil {
		return nil, false
	}
	for _, info := range infos {
		if strings.Contains(strings.ToLower(info.Name()), strings.ToLower(s.deviceName)) {
			log.Info().Str("device", "sound").Str("name", info.Name()).Msg("selected audio device")
			return info.ID.Pointer(), true
		}
	}
	return nil, false
}

func (s *SoundDevice) initCapture() error {
	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.Capture.Format = malgo.FormatF32
	cfg.Capture.Channels = 1
	cfg.SampleRate = uint32(s.sampleRate)
	cfg.Alsa.NoMMap = 1
	if id, ok := s.findDevice(malgo.Capture); ok {
		cfg.Capture.DeviceID = id
	}

	onRecvFrames := func(_, input []byte, framecount uint32) {
		if len(input) == 0 {
			return
		}
		samples := unsafe.Slice((*float32)(unsafe.Pointer(&input[0])), int(framecount))

		s.mu.Lock()
		windower := s.windower
		s.mu.Unlock()
		if windower != nil {
			windower.Push(samples...)
		}
	}

	dev, err := malgo.InitDevice(s.ctx.Context, cfg, malgo.DeviceCallbacks{Data: onRecvFrames})
	if err != nil {
		return fmt.Errorf("failed to init capture device: %w", err)
	}
	s.capture = dev
	return nil
}

func (s *SoundDevice) initPlayback() error {
	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = malgo.FormatF32
	cfg.Playback.Channels = 1
	cfg.SampleRate = uint32(s.sampleRate)
	cfg.Alsa.NoMMap = 1
	if id, ok := s.findDevice(malgo.Playback); ok {
		cfg.Playback.DeviceID = id
	}

	onSendFrames := func(output, _ []byte, framecount uint32) {
		if len(output) == 0 {
			return
		}
		out := unsafe.Slice((*float32)(unsafe.Pointer(&output[0])), int(framecount))

		s.mu.Lock()
		n := copy(out, s.queue)
		s.queue = s.queue[n:]
		s.mu.Unlock()

		if n < len(out) {
			for i := n; i < len(out); i++ {
				out[i] = 0
			}
			if n > 0 {
				s.mu.Lock()
				s.underrun++
				s.mu.Unlock()
			}
		}
	}

	dev, err := malgo.InitDevice(s.ctx.Context, cfg, malgo.DeviceCallbacks{Data: onSendFrames})
	if err != nil {
		return fmt.Errorf("failed to init playback device: %w", err)
	}
	s.playback = dev
	return nil
}

// Write queues one sample for playback. Once the queue is full the sample is
// dropped.
func (s *SoundDevice) Write(value float32) {
	s.mu.Lock()
	if len(s.queue) < s.sampleRate*maxQueuedSeconds {
		s.queue = append(s.queue, value)
	} else {
		s.overflow++
	}
	s.mu.Unlock()
}

func (s *SoundDevice) Start(ctx context.Context, sink device.WindowSink) error {
	if err := s.initCapture(); err != nil {
		return err
	}
	if err := s.initPlayback(); err != nil {
		return err
	}

	s.mu.Lock()
	s.windower = device.NewWindower(s.windowSize, sink)
	s.mu.Unlock()

	if err := s.capture.Start(); err != nil {
		return fmt.Errorf("starting capture: %w", err)
	}
	if err := s.playback.Start(); err != nil {
		return fmt.Errorf("starting playback: %w", err)
	}

	log.Info().
		Str("device", "sound").
		Int("sample_rate", s.sampleRate).
		Int("window_size", s.windowSize).
		Msg("sound device started")

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.stopChan:
		return nil
	}
}

func (s *SoundDevice) Stop() error {
	s.stopOnce.Do(func() {
		close(s.stopChan)

		if s.capture != nil {
			s.capture.Uninit()
		}
		if s.playback != nil {
			s.playback.Uninit()
		}

		s.mu.Lock()
		s.windower = nil
		underrun, overflow := s.underrun, s.overflow
		s.mu.Unlock()

		if s.ctx != nil {
			_ = s.ctx.Uninit()
			s.ctx.Free()
		}

		log.Info().
			Str("device", "sound").
			Uint64("underruns", underrun).
			Uint64("overflows", overflow).
			Msg("sound device stopped")
	})
	return nil
}

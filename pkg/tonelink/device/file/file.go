package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mjibson/go-dsp/wav"
	"github.com/norasector/tonelink/pkg/tonelink/device"
	"github.com/rs/zerolog/log"
)

// FileDevice plays a WAV recording back as capture input, one window per tick.
// Multi-channel recordings are reduced to their first channel.
type FileDevice struct {
	readFile    *os.File
	reader      *wav.Wav
	windowSize  int
	timeBetween time.Duration
	stopChan    chan struct{}
}

// NewFileDevice opens path for playback. A zero timeBetween paces windows at
// the recording's own rate.
func NewFileDevice(path string, windowSize int, timeBetween time.Duration) (*FileDevice, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	reader, err := wav.New(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("reading wav header: %w", err)
	}
	if reader.NumChannels == 0 || reader.SampleRate == 0 {
		f.Close()
		return nil, fmt.Errorf("invalid wav format in %s", path)
	}

	if timeBetween == 0 {
		timeBetween = time.Duration(float64(windowSize) / float64(reader.SampleRate) * float64(time.Second))
	}

	return &FileDevice{
		readFile:    f,
		reader:      reader,
		windowSize:  windowSize,
		timeBetween: timeBetween,
		stopChan:    make(chan struct{}),
	}, nil
}

func (f *FileDevice) SampleRate() int {
	return int(f.reader.SampleRate)
}

// Start returns nil once the recording is exhausted.
func (f *FileDevice) Start(ctx context.Context, sink device.WindowSink) error {
	channels := int(f.reader.NumChannels)
	windower := device.NewWindower(f.windowSize, sink)

	tick := time.NewTicker(f.timeBetween)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.stopChan:
			return nil
		case <-tick.C:
			samples, err := f.readFloats(f.windowSize * channels)
			if len(samples) > 0 {
				for i := 0; i < len(samples); i += channels {
					windower.Push(samples[i])
				}
			}

			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || (err == nil && len(samples) == 0) {
				log.Info().
					Str("device", "file").
					Uint64("windows", windower.Offered()).
					Uint64("rejected", windower.Rejected()).
					Msg("playback complete")
				return nil
			}
			if err != nil {
				return err
			}
		}
	}
}

// readFloats reads n samples scaled to [-1, 1]. wav.ReadFloats maps signed
// PCM onto [0, 1], which would offset every window.
func (f *FileDevice) readFloats(n int) ([]float32, error) {
	raw, err := f.reader.ReadSamples(n)
	if err != nil {
		return nil, err
	}
	return toFloats(raw)
}

func toFloats(raw interface{}) ([]float32, error) {
	switch d := raw.(type) {
	case []uint8:
		ret := make([]float32, len(d))
		for i, v := range d {
			ret[i] = (float32(v) - 128) / 128
		}
		return ret, nil
	case []int16:
		ret := make([]float32, len(d))
		for i, v := range d {
			ret[i] = float32(v) / 32768
		}
		return ret, nil
	case []float32:
		return d, nil
	default:
		return nil, fmt.Errorf("unsupported wav sample type %T", raw)
	}
}

func (f *FileDevice) Stop() error {
	select {
	case <-f.stopChan:
		return nil
	default:
		close(f.stopChan)
	}
	return f.readFile.Close()
}

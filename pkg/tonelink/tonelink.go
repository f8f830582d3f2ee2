package tonelink

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/influxdata/influxdb-client-go/api"
	"github.com/norasector/tonelink/pkg/chat"
	"github.com/norasector/tonelink/pkg/dsp/agc/rmsagc"
	"github.com/norasector/tonelink/pkg/dsp/filters/fir"
	"github.com/norasector/tonelink/pkg/dsp/processor"
	"github.com/norasector/tonelink/pkg/dsp/viz"
	"github.com/norasector/tonelink/pkg/link/frame"
	"github.com/norasector/tonelink/pkg/modem/fsk"
	"github.com/norasector/tonelink/pkg/tonelink/device"
	"github.com/norasector/tonelink/pkg/util"
	"github.com/norasector/turbine-common/types"
	"github.com/racerxdl/segdsp/dsp"
	"golang.org/x/sync/errgroup"
)

const (
	windowBuffers    = 2
	eventBufferSize  = 32
	magnitudeHistory = 256
	vizBucket        = "rx"
)

// Link is one end of the acoustic data link. It owns the detector, the bit
// accumulator and the chat log; the transmitter and the receive handler
// share a critical section around device writes and window processing.
type Link struct {
	capture   device.Capture
	output    device.Output
	opts      Options
	writeAPI  api.WriteAPI
	vizServer *viz.Server
	logger    zerolog.Logger

	handoff   *Handoff
	eventChan chan chat.Event

	critical sync.Mutex
	txMu     sync.Mutex

	framer      frame.Framer
	modulator   *fsk.Modulator
	demod       *fsk.Demodulator
	assembler   *frame.Assembler
	conditioner *processor.Processor
	agc         *rmsagc.RMSAGC
	magnitudes  *viz.MagnitudePlotter
	chatLog     *chat.Log
	counters    counters

	mu     sync.Mutex
	cancel context.CancelFunc
}

type LinkOption func(l *Link) error

func WithInfluxDB(writeAPI api.WriteAPI) LinkOption {
	return func(l *Link) error {
		l.writeAPI = writeAPI
		return nil
	}
}

func WithImageServer(vizServer *viz.Server) LinkOption {
	return func(l *Link) error {
		l.vizServer = vizServer
		return nil
	}
}

func WithLogger(logger zerolog.Logger) LinkOption {
	return func(l *Link) error {
		l.logger = logger
		return nil
	}
}

func NewLink(capture device.Capture, output device.Output, options Options, opts ...LinkOption) (*Link, error) {
	if capture == nil || output == nil {
		return nil, fmt.Errorf("must specify capture source and output device")
	}
	if err := options.validate(); err != nil {
		return nil, err
	}

	l := &Link{
		capture:   capture,
		output:    output,
		opts:      options,
		writeAPI:  &util.MockWriteAPI{}, // overwritten with option
		logger:    log.Logger,
		handoff:   NewHandoff(options.WindowSize, windowBuffers),
		eventChan: make(chan chat.Event, eventBufferSize),
		framer:    frame.NewFramer(options.MaxPacketSize),
		chatLog:   chat.NewLog(options.ChatCapacity, options.MaxNameLength, options.MaxTextLength),
	}

	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, err
		}
	}

	modOpts := []fsk.ModulatorOption{fsk.WithLocker(&l.critical)}
	if options.Pace {
		modOpts = append(modOpts, fsk.WithPacing(fsk.DefaultPacingSlack))
	}
	l.modulator = fsk.NewModulator(options.SampleRate, options.Amplitude, modOpts...)
	l.demod = fsk.NewDemodulator(options.SampleRate, options.Tone.FreqLow, options.Tone.FreqHigh, options.Decimation, options.Squelch)
	l.assembler = frame.NewAssembler(options.AccumulatorBits,
		frame.NewDeframer(options.MaxPacketSize, options.MaxTextLength),
		l.logger.With().Str("component", "assembler").Logger())

	l.conditioner = processor.NewProcessor(vizBucket, "RX Input", options.SampleRate, l.vizServer)
	if options.Bandpass {
		taps := fir.MakeToneBandPass(float64(options.SampleRate), options.Tone.FreqLow, options.Tone.FreqHigh)
		l.conditioner.AddBlock(processor.NewDSPWorker("bandpass", "Tone Bandpass", options.SampleRate,
			dsp.MakeFloatFirFilter(taps), processor.WithPlotType(viz.PlotTypeLines)))
		l.logger.Info().Int("taps", len(taps)).Int("delay_samples", (len(taps)-1)/2).Msg("bandpass prefilter enabled")
	}
	if options.AGC {
		l.agc = rmsagc.NewRMSAGC(options.AGCAlpha, options.AGCGain)
		l.conditioner.AddBlock(processor.NewDSPWorker("agc", "RMS AGC", options.SampleRate,
			l.agc, processor.WithPlotType(viz.PlotTypeLines),
			processor.WithPlotOptions([]viz.PlotOptions{viz.WithYRange(-1, 1)})))
	}
	if err := l.conditioner.Initialize(); err != nil {
		return nil, err
	}

	if l.vizServer != nil {
		l.magnitudes = viz.NewMagnitudePlotter("99. Tone Magnitudes", magnitudeHistory)
		l.vizServer.Register(vizBucket, l.magnitudes)
	}

	return l, nil
}

func (l *Link) Stop() error {
	l.mu.Lock()
	cancel := l.cancel
	l.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if l.vizServer != nil {
		l.vizServer.Stop(context.TODO())
	}
	return l.capture.Stop()
}

func (l *Link) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	l.mu.Lock()
	l.cancel = cancel
	l.mu.Unlock()

	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		if err := l.capture.Start(ctx, l.handoff); err != nil {
			return err
		}
		l.logger.Info().Msg("capture source finished")
		return nil
	})

	if l.vizServer != nil {
		eg.Go(func() error {
			return l.vizServer.Run(ctx)
		})
	}

	eg.Go(func() error {
		return l.processWindows(ctx)
	})
	eg.Go(func() error {
		return l.dispatchEvents(ctx)
	})

	for _, listener := range l.opts.Listeners {
		thisListener := listener
		eg.Go(func() error {
			return thisListener.Start(ctx)
		})
	}

	l.logger.Info().
		Int("sample_rate", l.opts.SampleRate).
		Int("window_size", l.opts.WindowSize).
		Int("decimation", l.opts.Decimation).
		Float64("freq_low", l.opts.Tone.FreqLow).
		Float64("freq_high", l.opts.Tone.FreqHigh).
		Dur("bit_period", l.opts.Tone.BitPeriod).
		Msg("Starting")

	return eg.Wait()
}

// Send frames text, transmits it and records it in the chat log. It blocks
// for the whole transmission.
func (l *Link) Send(text string) chat.Message {
	l.txMu.Lock()
	defer l.txMu.Unlock()

	framed := l.framer.Frame(text)

	start := time.Now()
	samples := l.modulator.Transmit(framed, l.opts.Tone, l.output)
	elapsed := time.Since(start)

	atomic64Add(&l.counters.samplesSent, uint64(samples))
	inc(&l.counters.messagesSent)

	msg := l.appendMessage(text, l.opts.LocalName, l.opts.RemoteName, chat.Sent)

	l.logger.Info().
		Int("bytes", len(framed)).
		Int("samples", samples).
		Dur("elapsed", elapsed).
		Msg("message sent")

	go l.writeAPI.WritePoint(influxdb2.NewPoint("tonelink.tx.message",
		map[string]string{
			"recipient": msg.Recipient,
		},
		map[string]interface{}{
			"framed_bytes":  len(framed),
			"samples":       samples,
			"duration_usec": elapsed.Microseconds(),
		}, time.Now()))

	return msg
}

func (l *Link) ChatLog() *chat.Log {
	return l.chatLog
}

func (l *Link) Stats() Stats {
	var s Stats
	l.counters.load(&s)
	s.WindowsAccepted = l.handoff.Accepted()
	s.WindowsDropped = l.handoff.Overruns()

	l.critical.Lock()
	s.AccumulatorBits = l.assembler.Accumulator().Len()
	s.AccumulatorCap = l.assembler.Accumulator().Cap()
	l.critical.Unlock()

	return s
}

func (l *Link) processWindows(ctx context.Context) error {
	var reportedOverruns uint64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case seg := <-l.handoff.Windows():
			l.handleWindow(seg)
			l.handoff.Release(seg)

			if overruns := l.handoff.Overruns(); overruns != reportedOverruns {
				l.logger.Warn().
					Uint64("dropped_windows", overruns-reportedOverruns).
					Uint64("total_dropped", overruns).
					Msg("window processing overrun")
				reportedOverruns = overruns
			}
		}
	}
}

func (l *Link) handleWindow(seg *types.SegmentFloat32) {
	l.critical.Lock()
	defer l.critical.Unlock()

	// Every window is conditioned so filter state and input plots stay
	// continuous; only detection is decimated.
	metrics := map[string]interface{}{}
	window, err := l.conditioner.Process(seg, metrics)
	if err != nil {
		l.logger.Error().Err(err).Int("segment", seg.SegmentNumber).Msg("conditioning failed")
		return
	}

	if !l.demod.Due() {
		inc(&l.counters.windowsSkipped)
		return
	}

	var decision fsk.Decision
	metrics["detect_duration"] = util.TimeOperationMicroseconds(func() {
		decision = l.demod.Demodulate(window.Data)
	})
	metrics["rms"] = decision.RMS

	defer func() {
		metrics["squelched"] = util.BoolField(decision.Squelched)
		go l.writeAPI.WritePoint(influxdb2.NewPoint("tonelink.rx.window",
			map[string]string{
				"conditioned": strconv.FormatBool(l.conditioner.Len() > 0),
			}, metrics, time.Now()))
	}()

	if decision.Squelched {
		inc(&l.counters.windowsSquelched)
		return
	}

	inc(&l.counters.bitsDecided)
	if l.magnitudes != nil {
		l.magnitudes.Append(decision.Mag0, decision.Mag1)
	}
	metrics["mag0"] = decision.Mag0
	metrics["mag1"] = decision.Mag1
	metrics["bit"] = int(decision.Bit)

	res := l.assembler.Receive(decision.Bit)
	if !res.Appended {
		inc(&l.counters.bitsDropped)
	}
	metrics["accumulator_bits"] = l.assembler.Accumulator().Len()

	switch {
	case res.Packet != nil:
		inc(&l.counters.packetsReceived)
		if res.Packet.Truncated {
			inc(&l.counters.payloadsTruncated)
			l.logger.Warn().Int("segment", seg.SegmentNumber).Msg("received payload truncated")
		}
		msg := l.appendMessage(res.Packet.Text(), l.opts.RemoteName, l.opts.LocalName, chat.Received)
		l.logger.Info().
			Str("sender", msg.Sender).
			Int("length", len(msg.Text)).
			Msg("message received")
	case errors.Is(res.Err, frame.ErrNoHeader):
		inc(&l.counters.framingNoHeader)
	case errors.Is(res.Err, frame.ErrNoFooter):
		inc(&l.counters.framingNoFooter)
	}
}

func (l *Link) appendMessage(text, sender, recipient string, direction chat.Direction) chat.Message {
	msg := l.chatLog.Append(text, sender, recipient)
	evt := chat.Event{
		Message:   msg,
		Direction: direction,
		Snapshot:  l.chatLog.Snapshot(),
	}

	select {
	case l.eventChan <- evt:
	default:
		inc(&l.counters.eventsSkipped)
	}
	return msg
}

func (l *Link) dispatchEvents(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt := <-l.eventChan:
			skippedListeners := 0
			for _, listener := range l.opts.Listeners {
				select {
				case listener.Receive() <- evt:
					// We will not wait on blocked listeners.
				default:
					skippedListeners++
				}
			}
			if skippedListeners > 0 {
				atomic64Add(&l.counters.eventsSkipped, uint64(skippedListeners))
				l.logger.Debug().Int("skipped", skippedListeners).Msg("listeners busy, event skipped")
			}
		}
	}
}

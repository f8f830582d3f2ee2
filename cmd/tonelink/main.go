package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abiosoft/ishell"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/influxdata/influxdb-client-go/api"
	"github.com/norasector/tonelink/pkg/chat"
	"github.com/norasector/tonelink/pkg/dsp/viz"
	"github.com/norasector/tonelink/pkg/tonelink"
	linkapi "github.com/norasector/tonelink/pkg/tonelink/api"
	"github.com/norasector/tonelink/pkg/tonelink/config"
	"github.com/norasector/tonelink/pkg/tonelink/device"
	"github.com/norasector/tonelink/pkg/tonelink/device/file"
	"github.com/norasector/tonelink/pkg/tonelink/device/loopback"
	"github.com/norasector/tonelink/pkg/tonelink/device/record"
	"github.com/norasector/tonelink/pkg/tonelink/device/sound"
	"github.com/norasector/tonelink/pkg/tonelink/output"
	"github.com/norasector/tonelink/pkg/util"
	"golang.org/x/sync/errgroup"
)

// startupDelay gives the capture source time to come up before a one-shot send.
const startupDelay = 250 * time.Millisecond

// lazySender lets listeners be built before the link they send through.
type lazySender struct {
	link *tonelink.Link
}

func (s *lazySender) Send(text string) chat.Message {
	return s.link.Send(text)
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.InfoLevel)
	configFile := flag.String("config", "tonelink.yaml", "YAML config file")
	interactive := flag.Bool("interactive", false, "run an interactive chat shell")
	sendText := flag.String("send", "", "send this text once the link is up")

	flag.Parse()

	opts, err := config.Load(*configFile)
	if err != nil {
		log.Fatal().Err(err).Str("config", *configFile).Msg("error loading config")
	}

	if opts.LogLevel != "" {
		level, err := zerolog.ParseLevel(opts.LogLevel)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid log level")
		}
		log.Logger = log.Logger.Level(level)
	}

	for _, warning := range opts.Warnings() {
		log.Warn().Msg(warning)
	}

	var capture device.Capture
	var out device.Output

	switch opts.Device {
	case "file":
		log.Info().Str("device", "file").Str("path", opts.PlaybackLocation).Msg("initializing device...")
		fileDevice, err := file.NewFileDevice(opts.PlaybackLocation, opts.Audio.WindowSize, 0)
		if err != nil {
			log.Fatal().Str("device", "file").Err(err).Msg("failed to init file reader")
		}
		if fileDevice.SampleRate() != opts.Audio.SampleRate {
			log.Warn().Int("file_rate", fileDevice.SampleRate()).Int("sample_rate", opts.Audio.SampleRate).Msg("file sample rate does not match config")
		}
		capture, out = fileDevice, device.Discard
	case "sound":
		log.Info().Str("device", "sound").Str("name", opts.SoundDevice).Msg("initializing device...")
		soundDevice, err := sound.NewSoundDevice(opts.Audio.SampleRate, opts.Audio.WindowSize, opts.SoundDevice)
		if err != nil {
			log.Fatal().Str("device", "sound").Err(err).Msg("failed to initialize sound device")
		}
		capture, out = soundDevice, soundDevice
	default:
		log.Info().Str("device", "loopback").Float64("noise", opts.Loopback.Noise).Msg("initializing device...")
		var loopbackOpts []loopback.Option
		if opts.Loopback.Noise > 0 {
			loopbackOpts = append(loopbackOpts, loopback.WithNoise(opts.Loopback.Noise, opts.Loopback.Seed))
		}
		loopbackDevice := loopback.NewLoopbackDevice(opts.Audio.WindowSize, loopbackOpts...)
		capture, out = loopbackDevice, loopbackDevice
	}

	if opts.RecordLocation != "" {
		recorder := record.NewRecorder(opts.RecordLocation, opts.Audio.SampleRate, out)
		defer func() {
			if err := recorder.Close(); err != nil {
				log.Error().Err(err).Msg("failed to write recording")
			}
		}()
		out = recorder
	}

	linkOpts := []tonelink.LinkOption{tonelink.WithLogger(log.Logger)}

	if opts.VizServer.Port > 0 {
		linkOpts = append(linkOpts, tonelink.WithImageServer(viz.NewServer(opts.VizServer.Port, opts.VizServer.UpdateInterval)))
	}

	options := tonelink.OptionsFromConfig(opts)

	var writeAPI api.WriteAPI = &util.MockWriteAPI{}
	if opts.InfluxDB.Host != "" {
		influxClient := influxdb2.NewClient(opts.InfluxDB.Host, opts.InfluxDB.Token)
		defer influxClient.Close()
		writeAPI = influxClient.WriteAPI(opts.InfluxDB.Organization, opts.InfluxDB.Bucket)
		defer writeAPI.Flush()
		linkOpts = append(linkOpts, tonelink.WithInfluxDB(writeAPI))
	}

	if len(opts.Outputs) > 0 {
		options.Listeners = append(options.Listeners, output.NewEventUDPOutput(opts.Outputs, writeAPI))
	}

	var shell *ishell.Shell
	if *interactive {
		shell = newShell()
		options.Listeners = append(options.Listeners, newShellPrinter(shell))
	} else {
		options.Listeners = append(options.Listeners, output.NewConsolePrinter(os.Stdout))
	}

	sender := &lazySender{}
	if opts.MQTT.Broker != "" {
		options.Listeners = append(options.Listeners, output.NewMQTTBridge(opts.MQTT, sender))
	}

	link, err := tonelink.NewLink(capture, out, options, linkOpts...)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create link")
	}
	sender.link = link

	eg, ctx := errgroup.WithContext(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	shellDone := make(chan struct{})

	eg.Go(func() error {
		select {
		case <-sigChan:
		case <-shellDone:
		case <-ctx.Done():
		}

		return link.Stop()
	})

	eg.Go(func() error {
		return link.Start(ctx)
	})

	if opts.APIServer.Port > 0 {
		apiServer := linkapi.NewServer(opts.APIServer.Port, link)
		eg.Go(func() error {
			return apiServer.Run(ctx)
		})
	}

	if *sendText != "" {
		eg.Go(func() error {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(startupDelay):
			}
			link.Send(*sendText)
			return nil
		})
	}

	if shell != nil {
		shell.Set(linkKey, link)
		shell.Println("tonelink interactive shell, type help for commands")
		go func() {
			shell.Run()
			close(shellDone)
		}()
	}

	if err := eg.Wait(); err != nil && err != context.Canceled {
		log.Fatal().Err(err).Msg("exited program")
	}
}

package processor

import (
	"errors"
	"fmt"
	"time"

	"github.com/norasector/tonelink/pkg/dsp/viz"
	"github.com/norasector/turbine-common/types"
)

const (
	defaultTimeVizLength = 256
	defaultFFTVizLength  = 1024
)

// Processor runs a chain of float blocks over each window. A chain with no
// blocks passes windows through unchanged.
type Processor struct {
	Name        string
	InputName   string
	SampleRate  int
	blocks      []*DSPWorker
	vizServer   *viz.Server
	initialized bool
	inputTime   *viz.TimeDomainPlotter
	inputFFT    *viz.FFTPlotter
}

func NewProcessor(name, inputName string, sampleRate int, vizServer *viz.Server) *Processor {
	ret := &Processor{
		Name:       name,
		InputName:  inputName,
		SampleRate: sampleRate,
		vizServer:  vizServer,
	}

	return ret
}

func (p *Processor) AddBlock(worker *DSPWorker) {
	p.blocks = append(p.blocks, worker)
}

func (p *Processor) Len() int {
	return len(p.blocks)
}

func (p *Processor) Initialize() error {
	if p.initialized {
		return nil
	}

	for _, block := range p.blocks {
		if block.worker == nil {
			return fmt.Errorf("block %s has no worker", block.Name)
		}
		if block.SampleRate != p.SampleRate {
			return fmt.Errorf("block %s rate mismatch (%d %d)", block.Name, block.SampleRate, p.SampleRate)
		}
	}

	if p.vizServer != nil {
		vizIndex := 0
		nextIndexString := func(s string) string {
			vizIndex++
			return fmt.Sprintf("%02d. %s", vizIndex, s)
		}

		p.inputTime = viz.NewTimeDomainPlotter(nextIndexString(p.InputName), defaultTimeVizLength)
		p.inputTime.SetPlotType(viz.PlotTypeLines)
		p.vizServer.Register(p.Name, p.inputTime)
		p.inputFFT = viz.NewFFTPlotter(nextIndexString(p.InputName+" (FFT)"), defaultFFTVizLength, p.SampleRate)
		p.vizServer.Register(p.Name, p.inputFFT)

		for _, block := range p.blocks {
			vizLength := defaultTimeVizLength
			if block.vizSize > 0 {
				vizLength = block.vizSize
			}
			block.timeDomain = viz.NewTimeDomainPlotter(nextIndexString(block.DisplayName), vizLength)
			if block.plotType != viz.PlotTypeDefault {
				block.timeDomain.SetPlotType(block.plotType)
			}
			for _, opt := range block.plotOptions {
				block.timeDomain.AddPlotOption(opt)
			}
			p.vizServer.Register(p.Name, block.timeDomain)

			block.spectrum = viz.NewFFTPlotter(nextIndexString(block.DisplayName+" (FFT)"), defaultFFTVizLength, block.SampleRate)
			p.vizServer.Register(p.Name, block.spectrum)
		}
	}

	p.initialized = true

	return nil
}

// Process runs input through every block, recording each block's duration in
// microseconds under "<name>_duration". The returned data is owned by the
// processor and valid until the next call.
func (p *Processor) Process(input *types.SegmentFloat32, metrics map[string]interface{}) (*types.SegmentFloat32, error) {
	if !p.initialized {
		if err := p.Initialize(); err != nil {
			return nil, err
		}
	}
	if input == nil || len(input.Data) == 0 {
		return nil, errors.New("must specify input")
	}

	if p.inputTime != nil {
		p.inputTime.AppendFloat(input.Data)
		p.inputFFT.AppendFloat(input.Data)
	}

	data := input.Data
	for _, block := range p.blocks {
		size := block.worker.PredictOutputSize(len(data))
		if len(block.outputBuffer) < size {
			block.outputBuffer = make([]float32, size)
		}

		start := time.Now()
		length := block.worker.WorkBuffer(data, block.outputBuffer)
		metrics[fmt.Sprintf("%s_duration", block.Name)] = time.Since(start).Microseconds()

		data = block.outputBuffer[:length]
		if block.timeDomain != nil {
			block.timeDomain.AppendFloat(data)
			block.spectrum.AppendFloat(data)
		}
	}

	return &types.SegmentFloat32{
		SegmentNumber: input.SegmentNumber,
		Data:          data,
	}, nil
}

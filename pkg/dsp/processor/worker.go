package processor

import "github.com/norasector/tonelink/pkg/dsp/viz"

// FFWorker is a float in, float out block.
type FFWorker interface {
	WorkBuffer([]float32, []float32) int
	PredictOutputSize(int) int
}

type DSPWorker struct {
	Name        string
	DisplayName string
	SampleRate  int

	worker       FFWorker
	outputBuffer []float32

	timeDomain  *viz.TimeDomainPlotter
	spectrum    *viz.FFTPlotter
	vizSize     int
	plotType    viz.PlotType
	plotOptions []viz.PlotOptions
}

type DSPWorkerOption func(r *DSPWorker)

func WithPlotOptions(opts []viz.PlotOptions) DSPWorkerOption {
	return func(r *DSPWorker) {
		r.plotOptions = append(r.plotOptions, opts...)
	}
}

func WithVizLength(length int) DSPWorkerOption {
	return func(r *DSPWorker) {
		r.vizSize = length
	}
}

func WithPlotType(plotType viz.PlotType) DSPWorkerOption {
	return func(r *DSPWorker) {
		r.plotType = plotType
	}
}

func NewDSPWorker(name, displayName string, sampleRate int, worker FFWorker, opts ...DSPWorkerOption) *DSPWorker {
	ret := &DSPWorker{
		Name:        name,
		DisplayName: displayName,
		SampleRate:  sampleRate,
		worker:      worker,
	}

	for _, opt := range opts {
		opt(ret)
	}

	return ret
}

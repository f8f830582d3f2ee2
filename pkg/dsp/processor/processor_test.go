package processor

import (
	"testing"
	"time"

	"github.com/norasector/tonelink/pkg/dsp/agc/rmsagc"
	"github.com/norasector/tonelink/pkg/dsp/viz"
	"github.com/norasector/turbine-common/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gain struct {
	k float32
}

func (g gain) WorkBuffer(in, out []float32) int {
	for i, v := range in {
		out[i] = v * g.k
	}
	return len(in)
}

func (g gain) PredictOutputSize(n int) int {
	return n
}

func TestPassThrough(t *testing.T) {
	p := NewProcessor("rx", "input", 8000, nil)
	in := &types.SegmentFloat32{SegmentNumber: 3, Data: []float32{1, 2, 3}}

	out, err := p.Process(in, map[string]interface{}{})
	require.NoError(t, err)
	assert.Equal(t, in.Data, out.Data)
	assert.Equal(t, 3, out.SegmentNumber)
}

func TestChainAndMetrics(t *testing.T) {
	vizServer := viz.NewServer(0, time.Second)
	p := NewProcessor("rx", "input", 8000, vizServer)
	p.AddBlock(NewDSPWorker("double", "Double", 8000, gain{2}))
	p.AddBlock(NewDSPWorker("agc", "AGC", 8000, rmsagc.NewRMSAGC(0.01, 0.61), WithPlotType(viz.PlotTypeLines)))
	p.AddBlock(NewDSPWorker("half", "Half", 8000, gain{0.5}))
	require.Equal(t, 3, p.Len())

	metrics := map[string]interface{}{}
	out, err := p.Process(&types.SegmentFloat32{Data: []float32{0, 0, 0, 0}}, metrics)
	require.NoError(t, err)
	assert.Len(t, out.Data, 4)
	assert.Contains(t, metrics, "double_duration")
	assert.Contains(t, metrics, "agc_duration")
	assert.Contains(t, metrics, "half_duration")
}

func TestRateMismatch(t *testing.T) {
	p := NewProcessor("rx", "input", 8000, nil)
	p.AddBlock(NewDSPWorker("double", "Double", 48000, gain{2}))
	_, err := p.Process(&types.SegmentFloat32{Data: []float32{1}}, map[string]interface{}{})
	assert.Error(t, err)
}

func TestEmptyInput(t *testing.T) {
	p := NewProcessor("rx", "input", 8000, nil)
	_, err := p.Process(&types.SegmentFloat32{}, map[string]interface{}{})
	assert.Error(t, err)
}

package viz

import (
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpectrumPeak(t *testing.T) {
	const sampleRate = 8000
	p := NewFFTPlotter("test", 512, sampleRate)

	samples := make([]float32, 512)
	for i := range samples {
		samples[i] = float32(math.Sin(2 * math.Pi * 1000 * float64(i) / sampleRate))
	}
	p.AppendFloat(samples)

	points := p.Spectrum()
	require.NotEmpty(t, points)

	peak := points[0]
	for _, pt := range points {
		if pt.Y > peak.Y {
			peak = pt
		}
	}
	assert.InDelta(t, 1000, peak.X, float64(sampleRate)/512)
}

func TestTimeDomainKeepsLatest(t *testing.T) {
	p := NewTimeDomainPlotter("t", 4)
	assert.Nil(t, p.GetImage())

	p.AppendFloat([]float32{1, 2, 3})
	p.AppendFloat([]float32{4, 5, 6})
	pts := p.points()
	require.Len(t, pts, 4)
	assert.Equal(t, 3.0, pts[0].Y)
	assert.Equal(t, 6.0, pts[3].Y)
}

func TestServerServesImages(t *testing.T) {
	s := NewServer(0, 10*time.Millisecond)
	mags := NewMagnitudePlotter("magnitudes", 16)
	s.Register("rx", mags)

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := client.Get(ts.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/view/rx", resp.Header.Get("Location"))

	resp, err = http.Get(ts.URL + "/view/rx")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/img/rx/magnitudes")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	for i := 0; i < 8; i++ {
		mags.Append(float64(i), float64(8-i))
	}
	s.Refresh()

	resp, err = http.Get(ts.URL + "/img/rx/magnitudes")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	resp, err = http.Get(ts.URL + "/view/tx")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPlotDefaults(t *testing.T) {
	p := plotWithDefaults("tones", "Decision", "Magnitude")
	WithYRange(-1, 1)(p)
	assert.Equal(t, "tones", p.Title.Text)
	assert.Equal(t, "Magnitude", p.Y.Label.Text)
	assert.Equal(t, -1.0, p.Y.Min)
	assert.Equal(t, 1.0, p.Y.Max)

	img := render("tones", p)
	require.NotNil(t, img)
	// PNG signature
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, img.Data()[:4])
}

func TestMagnitudePlotter(t *testing.T) {
	m := NewMagnitudePlotter("mags", 4)
	assert.Nil(t, m.GetImage())
	for i := 0; i < 6; i++ {
		m.Append(float64(i), float64(6-i))
	}
	img := m.GetImage()
	require.NotNil(t, img)
	assert.Equal(t, "mags", img.Name())
}

package viz

import (
	"bytes"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

const (
	imageWidth  = 8 * vg.Inch
	imageHeight = 6 * vg.Inch
)

type PlotOptions func(p *plot.Plot)

// WithYRange fixes the vertical axis.
func WithYRange(min, max float64) PlotOptions {
	return func(p *plot.Plot) {
		p.Y.Min = min
		p.Y.Max = max
	}
}

// plotWithDefaults returns a gridded plot styled for the dark viz page.
func plotWithDefaults(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.BackgroundColor = color.Black
	p.Title.Text = title
	p.Title.TextStyle.Color = color.White
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	for _, axis := range []*plot.Axis{&p.X, &p.Y} {
		axis.Color = color.White
		axis.Label.TextStyle.Color = color.White
		axis.Tick.Color = color.White
		axis.Tick.Label.Color = color.White
	}
	p.Legend.TextStyle.Color = color.White
	p.Add(plotter.NewGrid())

	return p
}

func render(name string, p *plot.Plot) *ImageContainer {
	var imageData bytes.Buffer
	w, err := p.WriterTo(imageWidth, imageHeight, "png")
	if err != nil {
		return nil
	}
	if _, err := w.WriteTo(&imageData); err != nil {
		return nil
	}
	return &ImageContainer{name: name, data: imageData.Bytes()}
}

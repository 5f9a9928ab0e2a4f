// Package render draws measurement heatmaps (frequency on X, time on Y,
// colored by received power) as raster images for offline snapshots and the
// dashboard snapshot endpoint.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/sallai/pltapp/sensor"
)

var (
	// Colors defining the gradient in the heatmap. The higher the index, the warmer.
	colors = map[int]color.RGBA{
		0: {0, 0, 0, 255},       // black
		1: {0, 0, 255, 255},     // blue
		2: {0, 255, 255, 255},   // cyan
		3: {0, 255, 0, 255},     // green
		4: {255, 255, 0, 255},   // yellow
		5: {255, 0, 0, 255},     // red
		6: {255, 255, 255, 255}, // white
	}

	gridColor           = color.RGBA{0, 0, 0, 255}
	gridBackgroundColor = color.RGBA{255, 255, 255, 255}
)

const (
	timeFmt        = "2006-01-02T15:04:05"
	gridMarginTop  = 20  // pixels
	gridMarginLeft = 150 // pixels
	gridTickLen    = 10  // pixel
	gridMinStepX   = 100 // pixels
	gridMinStepY   = 20  // pixels
)

// Options controls the raster output.
type Options struct {
	Width  int
	Height int

	AddGrid bool
}

// Metadata describes the rendered value ranges.
type Metadata struct {
	LowMHz    float64
	HighMHz   float64
	StartTime time.Time
	EndTime   time.Time

	MinDBm float64
	MaxDBm float64
}

// Result is a rendered heatmap plus the ranges it covers.
type Result struct {
	Image image.Image
	Meta  *Metadata
}

// GetColor determines the color of a pixel based on a color gradient and a pixel "level".
// http://www.andrewnoske.com/wiki/Code_-_heatmaps_and_color_gradients
func GetColor(lvl uint16) color.RGBA {
	// Find the first color in the gradient where the "level" is higher than the level we're looking for.
	// Then determine how far along we are between the previous and next color in the gradient and use that
	// to calculate the color between the two.
	for i := 0; i < len(colors); i++ {
		currC := colors[i]
		currV := uint16(i * math.MaxUint16 / len(colors))
		if lvl < currV {
			prevC := colors[int(math.Max(0.0, float64(i-1)))]
			diff := uint16(math.Max(0.0, float64(i-1)))*math.MaxUint16/uint16(len(colors)) - currV
			fract := 0.0
			if diff != 0 {
				fract = float64(lvl) - float64(currV)/float64(diff)
			}
			return color.RGBA{
				uint8(float64(prevC.R-currC.R)*fract + float64(currC.R)),
				uint8(float64(prevC.G-currC.G)*fract + float64(currC.G)),
				uint8(float64(prevC.B-currC.B)*fract + float64(currC.B)),
				uint8(float64(prevC.A-currC.A)*fract + float64(currC.A)),
			}
		}
	}
	return colors[len(colors)-1]
}

// Heatmap buckets the measurements into a Width x Height grid (frequency on
// X, time on Y) keeping the strongest power per cell, then maps power levels
// onto the color gradient.
func Heatmap(measurements []sensor.Measurement, opts *Options) (*Result, error) {
	if len(measurements) == 0 {
		return nil, fmt.Errorf("no measurements to render")
	}
	if opts == nil {
		opts = &Options{}
	}
	width := opts.Width
	if width <= 0 {
		width = 640
	}
	height := opts.Height
	if height <= 0 {
		height = 480
	}

	meta := &Metadata{
		LowMHz:    math.MaxFloat64,
		HighMHz:   -math.MaxFloat64,
		StartTime: measurements[0].Time,
		EndTime:   measurements[0].Time,
		MinDBm:    math.MaxFloat64,
		MaxDBm:    -math.MaxFloat64,
	}
	for _, m := range measurements {
		if m.FrequencyMHz < meta.LowMHz {
			meta.LowMHz = m.FrequencyMHz
		}
		if m.FrequencyMHz > meta.HighMHz {
			meta.HighMHz = m.FrequencyMHz
		}
		if m.Time.Before(meta.StartTime) {
			meta.StartTime = m.Time
		}
		if m.Time.After(meta.EndTime) {
			meta.EndTime = m.Time
		}
		if m.PowerDBm < meta.MinDBm {
			meta.MinDBm = m.PowerDBm
		}
		if m.PowerDBm > meta.MaxDBm {
			meta.MaxDBm = m.PowerDBm
		}
	}

	freqSpan := meta.HighMHz - meta.LowMHz
	timeSpan := meta.EndTime.Sub(meta.StartTime)

	// Bucket measurements, keeping the strongest reading per cell.
	cells := map[int]map[int]float64{}
	for _, m := range measurements {
		col := 0
		if freqSpan > 0 {
			col = int((m.FrequencyMHz - meta.LowMHz) / freqSpan * float64(width-1))
		}
		row := 0
		if timeSpan > 0 {
			row = int(float64(m.Time.Sub(meta.StartTime)) / float64(timeSpan) * float64(height-1))
		}
		if _, ok := cells[row]; !ok {
			cells[row] = map[int]float64{}
		}
		if stored, ok := cells[row][col]; !ok || m.PowerDBm > stored {
			cells[row][col] = m.PowerDBm
		}
	}

	canvas := image.NewRGBA(image.Rectangle{
		Min: image.Point{0, 0},
		Max: image.Point{width, height},
	})

	dbRange := meta.MaxDBm - meta.MinDBm
	for rowIdx, row := range cells {
		for colIdx, dBm := range row {
			lvl := uint16(math.MaxUint16)
			if dbRange > 0 {
				lvl = uint16((dBm - meta.MinDBm) * math.MaxUint16 / dbRange)
			}
			canvas.SetRGBA(colIdx, rowIdx, GetColor(lvl))
		}
	}

	result := &Result{Image: canvas, Meta: meta}
	if opts.AddGrid {
		result.Image = drawGrid(canvas, meta)
	}
	return result, nil
}

func drawTick(canvas *image.RGBA, start image.Point, length int, horizontal bool) {
	for i := 0; i <= length; i++ {
		if horizontal {
			canvas.SetRGBA(start.X+i, start.Y, gridColor)
		} else {
			canvas.SetRGBA(start.X, start.Y+i, gridColor)
		}
	}
}

func findGridStepSize(step int, horizontal bool) int {
	gridMinStep := gridMinStepY
	if horizontal {
		gridMinStep = gridMinStepX
	}
	for step > gridMinStep {
		n := step / 2
		if n < gridMinStep {
			return step
		}
		step = n
	}
	return step
}

// drawGrid enlarges the heatmap with margins and draws labeled frequency and
// time ticks along the axes.
func drawGrid(source *image.RGBA, meta *Metadata) *image.RGBA {
	canvas := image.NewRGBA(image.Rectangle{
		Min: image.Point{source.Bounds().Min.X, source.Bounds().Min.Y},
		Max: image.Point{source.Bounds().Max.X - 1 + gridMarginLeft, source.Bounds().Max.Y - 1 + gridMarginTop},
	})
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{gridBackgroundColor}, canvas.Bounds().Min, draw.Src)
	r := canvas.Bounds()
	r.Min.X += gridMarginLeft
	r.Min.Y += gridMarginTop
	draw.Draw(canvas, r, source, source.Bounds().Min, draw.Src)

	// X ticks: frequency.
	xStep := findGridStepSize(source.Bounds().Max.X, true)
	for i := source.Bounds().Min.X; i < source.Bounds().Max.X; i += xStep {
		drawTick(canvas, image.Point{
			canvas.Bounds().Min.X + gridMarginLeft + i,
			canvas.Bounds().Min.Y + gridMarginTop - gridTickLen,
		}, gridTickLen, false)
		point := fixed.Point26_6{
			X: fixed.Int26_6((canvas.Bounds().Min.X + gridMarginLeft + i + 5) * 64),
			Y: fixed.Int26_6((canvas.Bounds().Min.Y + gridMarginTop - 2) * 64),
		}
		d := &font.Drawer{
			Dst:  canvas,
			Src:  image.NewUniform(gridColor),
			Face: basicfont.Face7x13,
			Dot:  point,
		}
		freq := meta.LowMHz + (float64(i)*(meta.HighMHz-meta.LowMHz))/float64(source.Bounds().Max.X)
		d.DrawString(fmt.Sprintf("%.1f MHz", freq))
	}

	// Y ticks: time and offset since the start.
	yStep := findGridStepSize(source.Bounds().Max.Y, false)
	for i := source.Bounds().Min.Y; i < source.Bounds().Max.Y; i += yStep {
		drawTick(canvas, image.Point{
			canvas.Bounds().Min.X + gridMarginLeft - gridTickLen,
			canvas.Bounds().Min.Y + gridMarginTop + i,
		}, gridTickLen, true)
		timePoint := fixed.Point26_6{
			X: fixed.Int26_6((canvas.Bounds().Min.X + 5) * 64),
			Y: fixed.Int26_6((canvas.Bounds().Min.Y + gridMarginTop + i + 17) * 64),
		}
		timeDrawer := &font.Drawer{
			Dst:  canvas,
			Src:  image.NewUniform(gridColor),
			Face: basicfont.Face7x13,
			Dot:  timePoint,
		}
		durPoint := fixed.Point26_6{
			X: fixed.Int26_6((canvas.Bounds().Min.X + 5) * 64),
			Y: fixed.Int26_6((canvas.Bounds().Min.Y + gridMarginTop + i + 5) * 64),
		}
		durDrawer := &font.Drawer{
			Dst:  canvas,
			Src:  image.NewUniform(gridColor),
			Face: basicfont.Face7x13,
			Dot:  durPoint,
		}
		t := (int64(i) * meta.EndTime.Sub(meta.StartTime).Milliseconds()) / int64(source.Bounds().Max.Y)
		dur := time.Duration(t) * time.Millisecond
		timeDrawer.DrawString(meta.StartTime.Add(dur).Format(timeFmt))
		durDrawer.DrawString(dur.String())
	}

	return canvas
}

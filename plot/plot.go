// Package plot draws benchmark-versus-computed scatter plots as standalone HTML (plotly).
package plot

import (
	"fmt"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	grob "github.com/MetalBlueberry/go-plotly/graph_objects"
	"github.com/MetalBlueberry/go-plotly/offline"
)

const (
	pointColor  = "#1f77b4"
	parityColor = "black"
	bandColor   = "gray"
)

type Plot struct {
	Fig *grob.Fig
	Lay *grob.Layout

	title  string
	xlabel string
	ylabel string
}

type Opt func(plot *Plot) *Plot

func NewPlot(opt ...Opt) *Plot {
	fig := &grob.Fig{}
	lay := &grob.Layout{}
	fig.Layout = lay
	p := &Plot{Fig: fig, Lay: lay}
	for _, o := range opt {
		o(p)
	}

	return p
}

func WithWidth(w float64) Opt {
	if w < 0.0 {
		panic(fmt.Errorf("negative width"))
	}
	return func(p *Plot) *Plot {
		p.Lay.Width = w
		return p
	}
}

func WithHeight(h float64) Opt {
	if h < 0.0 {
		panic(fmt.Errorf("negative height"))
	}
	return func(p *Plot) *Plot {
		p.Lay.Height = h
		return p
	}
}

func WithTitle(title string) Opt {
	return func(p *Plot) *Plot { p.title = title; p.Lay.Title = &grob.LayoutTitle{Text: title}; return p }
}

func WithLegend(show bool) Opt {
	return func(p *Plot) *Plot {
		if show {
			p.Lay.Showlegend = grob.True
		} else {
			p.Lay.Showlegend = grob.False
		}

		return p
	}
}

// WithXlabel labels the x axis.  FacetScatter repeats the label under every panel.
func WithXlabel(label string) Opt {
	return func(p *Plot) *Plot {
		p.xlabel = label
		if p.Lay.Xaxis == nil {
			p.Lay.Xaxis = &grob.LayoutXaxis{}
		}

		p.Lay.Xaxis.Title = &grob.LayoutXaxisTitle{Text: label}
		return p
	}
}

func WithYlabel(label string) Opt {
	return func(p *Plot) *Plot {
		p.ylabel = label
		if p.Lay.Yaxis == nil {
			p.Lay.Yaxis = &grob.LayoutYaxis{}
		}

		p.Lay.Yaxis.Title = &grob.LayoutYaxisTitle{Text: label}
		return p
	}
}

// Facet is one panel: benchmark on x, computed on y, one labelled point per state.
type Facet struct {
	Name   string
	X      []float64
	Y      []float64
	Labels []string
}

// annotation is a plotly layout annotation.  go-plotly leaves layout.annotations untyped.
type annotation struct {
	Text      string  `json:"text"`
	Xref      string  `json:"xref"`
	Yref      string  `json:"yref"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Textangle float64 `json:"textangle,omitempty"`
	Showarrow bool    `json:"showarrow"`
}

// axisTitles labels the axes of panel ind.  Layout only types the first pair of axes, so the others are
// titled with annotations placed relative to their domains.
func axisTitles(ind int, xlabel, ylabel string) []annotation {
	var out []annotation
	id := axisID(ind)
	if xlabel != "" {
		out = append(out, annotation{Text: xlabel, Xref: "x" + id + " domain", Yref: "y" + id + " domain",
			X: 0.5, Y: -0.15})
	}

	if ylabel != "" {
		out = append(out, annotation{Text: ylabel, Xref: "x" + id + " domain", Yref: "y" + id + " domain",
			X: -0.2, Y: 0.5, Textangle: -90})
	}

	return out
}

// axisID returns the plotly axis suffix for panel ind: "", "2", "3", ...
func axisID(ind int) string {
	if ind == 0 {
		return ""
	}

	return strconv.Itoa(ind + 1)
}

// FacetScatter lays facets out side by side.  Each panel gets a parity line and lines at
// parity * (1 +/- tol).
func FacetScatter(facets []Facet, tol float64, opt ...Opt) (*Plot, error) {
	if len(facets) == 0 {
		return nil, fmt.Errorf("no facets to plot")
	}

	p := NewPlot(opt...)
	p.Lay.Grid = &grob.LayoutGrid{Rows: 1, Columns: int64(len(facets)), Pattern: grob.LayoutGridPatternIndependent}

	var (
		names  []string
		titles []annotation
	)
	for ind, f := range facets {
		if len(f.X) != len(f.Y) || len(f.Labels) != len(f.X) {
			return nil, fmt.Errorf("facet %s: x, y and labels differ in length", f.Name)
		}

		xa, ya := "x"+axisID(ind), "y"+axisID(ind)
		p.Fig.AddTraces(&grob.Scatter{
			Name:         f.Name,
			X:            f.X,
			Y:            f.Y,
			Text:         f.Labels,
			Mode:         grob.ScatterModeMarkers + "+" + grob.ScatterModeText,
			Textposition: grob.ScatterTextpositionTopCenter,
			Marker:       &grob.ScatterMarker{Color: pointColor},
			Xaxis:        xa,
			Yaxis:        ya,
		})

		lo, hi := extent(f.X, f.Y)
		for _, ref := range []struct {
			name string
			mult float64
		}{
			{"parity", 1},
			{fmt.Sprintf("+%.0f%%", 100*tol), 1 + tol},
			{fmt.Sprintf("-%.0f%%", 100*tol), 1 - tol},
		} {
			line := &grob.ScatterLine{Color: bandColor}
			if ref.mult == 1 {
				line = &grob.ScatterLine{Color: parityColor}
			}

			p.Fig.AddTraces(&grob.Scatter{
				Name:       ref.name,
				X:          []float64{lo, hi},
				Y:          []float64{lo * ref.mult, hi * ref.mult},
				Mode:       grob.ScatterModeLines,
				Line:       line,
				Showlegend: grob.False,
				Xaxis:      xa,
				Yaxis:      ya,
			})
		}

		names = append(names, f.Name)
		if ind > 0 {
			titles = append(titles, axisTitles(ind, p.xlabel, p.ylabel)...)
		}
	}

	if len(titles) > 0 {
		p.Lay.Annotations = titles
	}

	title := strings.Join(names, " | ")
	if p.title != "" {
		title = p.title + "<br>" + title
	}
	p.Lay.Title = &grob.LayoutTitle{Text: title}

	return p, nil
}

// extent returns a range covering x and y, padded by 5%, ignoring NaNs.
func extent(x, y []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, s := range [][]float64{x, y} {
		for _, v := range s {
			if math.IsNaN(v) {
				continue
			}

			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
	}

	if math.IsInf(lo, 1) {
		return 0, 1
	}

	pad := 0.05 * (hi - lo)
	if pad == 0 {
		pad = 0.05 * math.Max(math.Abs(hi), 1)
	}

	return math.Max(0, lo-pad), hi + pad
}

// Save writes the figure as a standalone HTML file.
func (p *Plot) Save(fileName string) error {
	offline.ToHtml(p.Fig, fileName)

	if _, e := os.Stat(fileName); e != nil {
		return fmt.Errorf("plot not written to %s: %w", fileName, e)
	}

	return nil
}

// Show saves the figure to fileName and opens it in browser (xdg-open by default).
func (p *Plot) Show(browser, fileName string) error {
	if e := p.Save(fileName); e != nil {
		return e
	}

	if browser == "" {
		browser = "xdg-open"
	}

	cmd := exec.Command(browser, fileName)
	if e := cmd.Start(); e != nil {
		return e
	}

	// give the browser time to read the file
	time.Sleep(time.Second)

	return nil
}

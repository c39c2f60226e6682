// Package editor composes optional editor behaviours around a base editor
// and renders documents to HTML.
package editor

// BaseLabel names the editor with no layers applied.
const BaseLabel = "Basic editor"

// Rendered is the output of the pipeline for one piece of content.
type Rendered struct {
	Raw       string         `json:"raw"`
	Formatted string         `json:"formatted"`
	Metadata  map[string]any `json:"metadata"`
}

// Layer transforms the result of the layers beneath it.
type Layer interface {
	Label() string
	Apply(r Rendered) Rendered
}

// Pipeline is an immutable ordered list of layers.
type Pipeline struct {
	layers []Layer
}

func New(layers ...Layer) Pipeline {
	return Pipeline{layers: append([]Layer(nil), layers...)}
}

// With returns a pipeline with l wrapped around the current one.
func (p Pipeline) With(l Layer) Pipeline {
	layers := make([]Layer, 0, len(p.layers)+1)
	layers = append(layers, p.layers...)
	return Pipeline{layers: append(layers, l)}
}

func (p Pipeline) Layers() []Layer {
	return append([]Layer(nil), p.layers...)
}

// Render runs content through every layer, innermost first.
func (p Pipeline) Render(content string) Rendered {
	r := Rendered{Raw: content, Formatted: content, Metadata: map[string]any{}}
	for _, l := range p.layers {
		r = l.Apply(r)
	}
	return r
}

// Features lists the base label followed by each layer label in wrap order.
func (p Pipeline) Features() []string {
	out := make([]string, 0, len(p.layers)+1)
	out = append(out, BaseLabel)
	for _, l := range p.layers {
		out = append(out, l.Label())
	}
	return out
}

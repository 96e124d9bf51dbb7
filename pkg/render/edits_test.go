package render

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsEdited(t *testing.T) {
	tests := []struct {
		name   string
		change func(*Edits)
		want   bool
	}{
		{"defaults", func(*Edits) {}, false},
		{"brightness", func(e *Edits) { e.Brightness = 101 }, true},
		{"contrast", func(e *Edits) { e.Contrast = 0 }, true},
		{"saturate", func(e *Edits) { e.Saturate = 200 }, true},
		{"zoom", func(e *Edits) { e.Zoom = 1.01 }, true},
		{"pan x", func(e *Edits) { e.Pan.X = -1 }, true},
		{"pan y", func(e *Edits) { e.Pan.Y = 0.5 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := DefaultEdits()
			tt.change(&e)
			assert.Equal(t, tt.want, e.IsEdited())
		})
	}
}

func TestEditsRoundTrip(t *testing.T) {
	orig := Edits{Brightness: 123.25, Contrast: 0, Saturate: 199.999, Zoom: 2.5, Pan: Point{X: -12.75, Y: 3e-7}}

	bs, err := json.Marshal(orig)
	require.NoError(t, err)
	assert.JSONEq(t, `{"brightness":123.25,"contrast":0,"saturate":199.999,"zoom":2.5,"pan":{"x":-12.75,"y":3e-7}}`, string(bs))

	var got Edits
	require.NoError(t, json.Unmarshal(bs, &got))
	assert.Equal(t, orig, got)

	got.Pan.X = 99
	assert.Equal(t, -12.75, orig.Pan.X, "copies never share the pan offset")
}

func TestNormalize(t *testing.T) {
	e := Edits{Brightness: -5, Contrast: 250, Saturate: math.NaN(), Zoom: 0.5, Pan: Point{X: math.Inf(1), Y: 4}}
	got, fixes := e.Normalize()

	assert.Equal(t, Edits{Brightness: 0, Contrast: 200, Saturate: 100, Zoom: 1, Pan: Point{X: 0, Y: 4}}, got)
	assert.Len(t, fixes, 5)
	assert.Error(t, e.Validate())

	got, fixes = DefaultEdits().Normalize()
	assert.Equal(t, DefaultEdits(), got)
	assert.Empty(t, fixes)
	assert.NoError(t, DefaultEdits().Validate())
}

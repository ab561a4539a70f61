package export

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/lqrdrive/internal/dynamo"
)

func decay(e0 float64) *dynamo.Result {
	res := &dynamo.Result{}
	e := e0
	for i := 0; i <= 100; i++ {
		res.Times = append(res.Times, float64(i)*0.01)
		res.States = append(res.States, dynamo.State{e, 0})
		if i < 100 {
			res.Controls = append(res.Controls, dynamo.Control{-e})
		}
		e *= 0.95
	}
	return res
}

func TestSeriesData(t *testing.T) {
	s := Series{Label: "a", Result: decay(2)}
	ts, es := s.lateral()
	assert.Len(t, ts, 101)
	assert.Equal(t, 2.0, es[0])

	ts, us := s.steering()
	assert.Len(t, ts, 100)
	assert.Equal(t, -2.0, us[0])
}

func TestSavePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "figs", "run.png")
	series := []Series{
		{Label: "aggressive", Result: decay(2)},
		{Label: "comfort", Result: decay(1)},
	}
	require.NoError(t, SavePNG(path, "lateral control", series))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")), "not a PNG")
}

func TestSaveHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, SaveHTML(&buf, "lateral control", []Series{{Label: "aggressive", Result: decay(2)}}))

	html := buf.String()
	assert.Contains(t, html, "echarts")
	assert.Contains(t, html, "aggressive")
	assert.Contains(t, html, "lateral error (m)")
}

func TestSaveHTMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.html")
	require.NoError(t, SaveHTMLFile(path, "run", []Series{{Label: "lqr", Result: decay(1)}}))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestNoData(t *testing.T) {
	dir := t.TempDir()
	assert.ErrorIs(t, SavePNG(filepath.Join(dir, "x.png"), "", nil), ErrNoData)
	assert.ErrorIs(t, SaveHTML(&bytes.Buffer{}, "", []Series{{Label: "empty", Result: &dynamo.Result{}}}), ErrNoData)
}

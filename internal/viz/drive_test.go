package viz

import (
	"io"
	"math"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/san-kum/lqrdrive/internal/control"
	"github.com/san-kum/lqrdrive/internal/plant"
	"github.com/san-kum/lqrdrive/internal/track"
)

func newTestModel(t *testing.T) DriveModel {
	t.Helper()
	cfg := track.DefaultConfig()
	tc := control.DefaultTunerConfig()
	tc.Secondary = 1

	tuner, err := control.NewTuner(plant.NewBicycle(cfg.StartSpeed, 2.5), tc)
	if err != nil {
		t.Fatal(err)
	}
	driver, err := control.NewDriver(tuner, control.Limits{MaxControl: 30 * math.Pi / 180}, log.New(io.Discard))
	if err != nil {
		t.Fatal(err)
	}
	world, err := track.NewWorld(cfg, 2.5)
	if err != nil {
		t.Fatal(err)
	}
	s, err := track.NewSession(world, driver, nil, log.New(io.Discard))
	if err != nil {
		t.Fatal(err)
	}
	return NewDriveModel(s, 1.0/60)
}

func key(s string) tea.KeyMsg {
	switch s {
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "space":
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{' '}}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func send(m DriveModel, msg tea.Msg) (DriveModel, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(DriveModel), cmd
}

func TestMenuTuning(t *testing.T) {
	m := newTestModel(t)
	tuner := m.session.Driver().Tuner()

	m, _ = send(m, key("up"))
	m, _ = send(m, key("left"))
	q, r := tuner.Weights()
	if q != 15 || math.Abs(r-1/1.5) > 1e-12 {
		t.Errorf("weights = (%g, %g), want (15, 0.667)", q, r)
	}
	if math.Abs(m.gain[0]-math.Sqrt(q/r)) > 1e-6 {
		t.Errorf("K[0] = %f, want %f", m.gain[0], math.Sqrt(q/r))
	}
	if m.screen != screenMenu || m.session.Active() {
		t.Error("tuning should not start a run")
	}
	if !strings.Contains(m.View(), "space:drive") {
		t.Error("menu view missing help")
	}
}

func TestStartAndStep(t *testing.T) {
	m := newTestModel(t)
	m, cmd := send(m, key("space"))
	if cmd == nil || m.screen != screenDriving || !m.session.Active() {
		t.Fatal("space should start a run and schedule a frame")
	}

	for i := 0; i < 5; i++ {
		m, cmd = send(m, frameMsg{gen: m.gen})
		if cmd == nil {
			t.Fatalf("frame %d: no next frame scheduled", i)
		}
	}
	if m.frame.Tick != 5 || len(m.trace) != 5 {
		t.Errorf("tick %d, trace %d, want 5 and 5", m.frame.Tick, len(m.trace))
	}
	if m.frame.Distance <= 0 {
		t.Error("vehicle did not move")
	}

	view := m.View()
	for _, want := range []string{"DRIVING", "lateral error", "km/h"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestStaleFramesAreDropped(t *testing.T) {
	m := newTestModel(t)
	m, _ = send(m, key("space"))
	stale := frameMsg{gen: m.gen}
	m, _ = send(m, key("r"))

	m, cmd := send(m, stale)
	if cmd != nil || m.frame.Tick != 0 {
		t.Error("frame from the previous run was applied")
	}
	if m.session.Runs() != 2 {
		t.Errorf("runs = %d, want 2", m.session.Runs())
	}
}

func TestEscReturnsToMenu(t *testing.T) {
	m := newTestModel(t)
	m, _ = send(m, key("space"))
	m, _ = send(m, key("esc"))
	if m.screen != screenMenu || m.session.Active() {
		t.Error("esc should stop the run")
	}
	if _, cmd := send(m, frameMsg{gen: m.gen}); cmd != nil {
		t.Error("frames should stop in the menu")
	}
}

func TestRunEndReturnsToMenu(t *testing.T) {
	m := newTestModel(t)
	m, _ = send(m, key("space"))
	m.session.World().X = 20

	m, cmd := send(m, frameMsg{gen: m.gen})
	if cmd != nil || m.screen != screenMenu {
		t.Fatal("expected the run to end")
	}
	if !strings.HasPrefix(m.status, "off road") {
		t.Errorf("status = %q", m.status)
	}
}

func TestQuit(t *testing.T) {
	m := newTestModel(t)
	_, cmd := send(m, key("q"))
	if cmd == nil {
		t.Fatal("expected a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func TestThemeCycle(t *testing.T) {
	m := newTestModel(t)
	for range Themes {
		m, _ = send(m, key("t"))
	}
	if m.theme != 0 {
		t.Errorf("theme = %d after a full cycle", m.theme)
	}
	if GetTheme("retro").Name != "retro" || GetTheme("nope").Name != Themes[0].Name {
		t.Error("GetTheme lookup")
	}
}

func TestCanvas(t *testing.T) {
	c := NewCanvas(2, 1)
	if w, h := c.Dots(); w != 4 || h != 4 {
		t.Fatalf("dots = %dx%d", w, h)
	}
	c.Set(0, 0)
	c.Set(3, 3)
	c.Set(-1, 0)
	c.Set(4, 0)
	if got := c.String(); got != "⠁⢀" {
		t.Errorf("canvas = %q", got)
	}

	c.Clear()
	c.Rect(0, 0, 3, 3, true)
	if got := c.String(); got != "⣿⣿" {
		t.Errorf("filled = %q", got)
	}

	c.Clear()
	c.VLine(0, 0, 3, 2, 0)
	// dots at y=0,1 only
	if got := c.String(); got != "⠃⠀" {
		t.Errorf("dashed = %q", got)
	}
}

func TestGauge(t *testing.T) {
	if got := Gauge(0, 1, 4); got != "░░|░░" {
		t.Errorf("zero = %q", got)
	}
	if got := Gauge(-1, 1, 4); got != "██|░░" {
		t.Errorf("full left = %q", got)
	}
	if got := Gauge(5, 1, 4); got != "░░|██" {
		t.Errorf("clamped right = %q", got)
	}
}

package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/lqrdrive/internal/track"
)

const (
	frameRate     = 60
	traceCapacity = 240
	canvasWidth   = 28
	canvasHeight  = 20
	rearView      = 6.0 // metres of road drawn behind the vehicle
)

type screen int

const (
	screenMenu screen = iota
	screenDriving
)

// frameMsg drives one step of a run. gen ties it to the run that asked
// for it, so frames left over from an earlier run are dropped.
type frameMsg struct {
	gen int
	at  time.Time
}

// DriveModel is the Bubble Tea model for the drive surface. The session
// holds all simulation state; the model only keeps what it draws.
type DriveModel struct {
	session *track.Session
	dt      float64
	screen  screen
	gen     int

	frame    track.Frame
	gain     []float64
	degraded bool
	trace    []float64
	status   string

	theme  int
	styles styles
	canvas *Canvas
}

// NewDriveModel steps the session by dt once per frame.
func NewDriveModel(s *track.Session, dt float64) DriveModel {
	m := DriveModel{
		session: s,
		dt:      dt,
		styles:  newStyles(Themes[0]),
		canvas:  NewCanvas(canvasWidth, canvasHeight),
		trace:   make([]float64, 0, traceCapacity),
		status:  "press space to drive",
	}
	m.frame = s.Step(dt)
	m.refreshGain()
	return m
}

func (m DriveModel) Init() tea.Cmd { return nil }

func (m DriveModel) nextFrame() tea.Cmd {
	gen := m.gen
	return tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg { return frameMsg{gen: gen, at: t} })
}

func (m DriveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case frameMsg:
		if m.screen != screenDriving || msg.gen != m.gen {
			return m, nil
		}
		return m.step()
	}
	return m, nil
}

func (m DriveModel) handleKey(msg tea.KeyMsg) (DriveModel, tea.Cmd) {
	tuner := m.session.Driver().Tuner()
	switch msg.String() {
	case "q", "ctrl+c":
		m.session.Driver().Stop()
		return m, tea.Quit
	case "up", "k":
		tuner.IncreaseQ()
	case "down", "j":
		tuner.DecreaseQ()
	case "right", "l":
		tuner.IncreaseR()
	case "left", "h":
		tuner.DecreaseR()
	case "t":
		m.theme = (m.theme + 1) % len(Themes)
		m.styles = newStyles(Themes[m.theme])
	case " ", "enter":
		if m.screen == screenMenu {
			return m.start()
		}
	case "r":
		if m.screen == screenDriving {
			return m.start()
		}
	case "esc":
		if m.screen == screenDriving {
			m.session.Driver().Stop()
			m.screen = screenMenu
			m.status = "stopped"
		}
	}
	m.refreshGain()
	return m, nil
}

func (m DriveModel) start() (DriveModel, tea.Cmd) {
	m.session.Start()
	m.screen = screenDriving
	m.gen++
	m.trace = m.trace[:0]
	m.status = fmt.Sprintf("run %d", m.session.Runs())
	m.refreshGain()
	return m, m.nextFrame()
}

func (m DriveModel) step() (DriveModel, tea.Cmd) {
	f := m.session.Step(m.dt)
	m.frame = f
	m.trace = append(m.trace, f.X-f.Target)
	if len(m.trace) > traceCapacity {
		m.trace = m.trace[1:]
	}
	m.refreshGain()

	if f.Over {
		m.screen = screenMenu
		reason := f.Event.String()
		if f.Output.Terminated {
			reason = "lost control"
		}
		m.status = fmt.Sprintf("%s after %.3f km", reason, f.Distance)
		return m, nil
	}
	return m, m.nextFrame()
}

func (m *DriveModel) refreshGain() {
	res := m.session.Driver().Tuner().Gain()
	m.gain, m.degraded = res.Gain(), res.Degraded()
}

func (m DriveModel) View() string {
	road := m.styles.road.Render(m.drawRoad())
	return lipgloss.JoinHorizontal(lipgloss.Top, road, m.styles.panel.Render(m.readout()))
}

func (m DriveModel) readout() string {
	st := m.styles
	q, r := m.session.Driver().Tuner().Weights()
	limit := m.session.Driver().Limits().MaxControl
	f := m.frame

	var s strings.Builder
	s.WriteString(st.header.Render("LQR LANE KEEPING") + "\n")

	status := st.warn.Render(strings.ToUpper(m.status))
	if m.screen == screenDriving {
		status = st.good.Render("DRIVING") + st.muted.Render("  "+m.status)
	}
	s.WriteString(status + "\n\n")

	row := func(label, value string) {
		s.WriteString(st.label.Render(label) + st.value.Render(value) + "\n")
	}
	row("q", fmt.Sprintf("%.3g", q))
	row("r", fmt.Sprintf("%.3g", r))
	k := fmt.Sprintf("[%s]", joinFloats(m.gain))
	if m.degraded {
		k += st.bad.Render(" fallback")
	}
	row("K", k)
	row("steer", fmt.Sprintf("%+6.1f° %s", f.Steer*180/math.Pi, Gauge(f.Steer, limit, 16)))
	row("speed", fmt.Sprintf("%.0f km/h", f.Speed*3.6))
	row("distance", fmt.Sprintf("%.3f km", f.Distance))
	row("best", fmt.Sprintf("%.3f km", m.session.Best()))
	row("passed", fmt.Sprintf("%d", f.Passed))

	if len(m.trace) > 1 {
		chart := asciigraph.Plot(m.trace, asciigraph.Height(5), asciigraph.Width(30), asciigraph.Caption("lateral error (m)"))
		s.WriteString(st.graph.Render(chart) + "\n")
	}

	help := "space:drive ↑↓:q ←→:r t:theme q:quit"
	if m.screen == screenDriving {
		help = "↑↓:q ←→:r r:restart esc:menu q:quit"
	}
	s.WriteString(st.help.Render(help))
	return s.String()
}

func joinFloats(v []float64) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = fmt.Sprintf("%.3f", x)
	}
	return strings.Join(parts, ", ")
}

// drawRoad draws the road top-down: road edges, a centre line that
// scrolls with distance, the obstacles and the vehicle near the bottom.
func (m DriveModel) drawRoad() string {
	c := m.canvas
	c.Clear()
	cfg := m.session.World().Config()
	w, h := c.Dots()

	ahead := cfg.LookAhead * 3
	px := func(x float64) int {
		return int(math.Round((x + cfg.HalfWidth) / (2 * cfg.HalfWidth) * float64(w-1)))
	}
	py := func(y float64) int {
		return h - 1 - int(math.Round((y+rearView)/(ahead+rearView)*float64(h-1)))
	}

	c.VLine(0, 0, h-1, 0, 0)
	c.VLine(w-1, 0, h-1, 0, 0)
	scroll := int(m.frame.Distance*1000) % 8
	c.VLine(px(0), 0, h-1, 4, 8-scroll)

	for _, o := range m.frame.Obstacles {
		c.Rect(px(o.X-o.HalfWidth), py(o.Y+o.HalfLength), px(o.X+o.HalfWidth), py(o.Y-o.HalfLength), false)
	}
	c.Rect(px(m.frame.X-cfg.CarHalfWidth), py(cfg.CarHalfLength), px(m.frame.X+cfg.CarHalfWidth), py(-cfg.CarHalfLength), true)
	return c.String()
}

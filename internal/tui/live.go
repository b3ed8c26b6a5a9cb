// Package tui runs a Kuramoto model interactively in the terminal.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/primesync/internal/config"
	"github.com/san-kum/primesync/internal/dynamo"
	"github.com/san-kum/primesync/internal/kuramoto"
	"github.com/san-kum/primesync/internal/metrics"
	"github.com/san-kum/primesync/internal/sim"
	"github.com/san-kum/primesync/internal/viz"
)

const (
	canvasWidth     = 30
	canvasHeight    = 14
	historyCapacity = 600
	frameRate       = 30
	kappaFactor     = 1.05
	minKappa        = 1e-3
)

type TickMsg time.Time

// Model advances one simulation in real time and draws the phase circle
// and the r(t) history.
type Model struct {
	model      *kuramoto.Model
	integrator dynamo.Integrator
	initial    dynamo.State
	state      dynamo.State
	t, dt      float64
	baseDt     float64
	kappa      float64
	steps      int
	running    bool
	history    []float64
	canvas     *viz.Canvas
	err        error
}

// NewModel starts from x0 at coupling kappa, taking stepsPerFrame steps on
// every tick. The step is dt, capped like the batch simulator so the fastest
// rotation is sampled config.DefaultSamplesPerPeriod times per period.
func NewModel(m *kuramoto.Model, integ dynamo.Integrator, x0 dynamo.State, kappa, dt float64, stepsPerFrame int) Model {
	if stepsPerFrame < 1 {
		stepsPerFrame = 1
	}
	model := m.WithKappa(kappa)
	return Model{
		model:      model,
		integrator: integ,
		initial:    x0.Clone(),
		state:      x0.Clone(),
		dt:         stepSize(model, integ, dt),
		baseDt:     dt,
		kappa:      kappa,
		steps:      stepsPerFrame,
		running:    true,
		history:    make([]float64, 0, historyCapacity),
		canvas:     viz.NewCanvas(canvasWidth, canvasHeight),
	}
}

func stepSize(m *kuramoto.Model, integ dynamo.Integrator, dt float64) float64 {
	cfg := dynamo.Config{Dt: dt, SamplesPerPeriod: config.DefaultSamplesPerPeriod}
	return sim.New(m, integ).StepSize(cfg)
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd { return tick() }

func (m Model) Kappa() float64      { return m.kappa }
func (m Model) Time() float64       { return m.t }
func (m Model) Running() bool       { return m.running }
func (m Model) History() []float64  { return m.history }
func (m Model) State() dynamo.State { return m.state }
func (m Model) Err() error          { return m.err }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.reset()
		case "up", "k":
			m.setKappa(max(m.kappa*kappaFactor, minKappa))
		case "down", "j":
			k := m.kappa / kappaFactor
			if k < minKappa {
				k = 0
			}
			m.setKappa(k)
		case "0":
			m.setKappa(0)
		}
	case TickMsg:
		if m.running && m.err == nil {
			m.advance()
		}
		return m, tick()
	}
	return m, nil
}

func (m *Model) setKappa(k float64) {
	if k < 0 {
		k = 0
	}
	m.kappa = k
	m.model = m.model.WithKappa(k)
	m.dt = stepSize(m.model, m.integrator, m.baseDt)
}

func (m *Model) reset() {
	m.state = m.initial.Clone()
	m.t = 0
	m.err = nil
	m.history = m.history[:0]
}

func (m *Model) advance() {
	for range m.steps {
		next := m.integrator.Step(m.model, m.state, m.t, m.dt)
		if !next.IsValid() {
			m.err = &dynamo.SimulationError{Step: len(m.history), Time: m.t, State: m.state, Wrapped: dynamo.ErrDivergedSimulation}
			m.running = false
			return
		}
		next.Wrap()
		m.state = next
		m.t += m.dt
	}
	r, _ := metrics.OrderParameter(m.state)
	m.history = append(m.history, r)
	if len(m.history) > historyCapacity {
		m.history = m.history[1:]
	}
}

var (
	canvasStyle = lipgloss.NewStyle().Padding(1, 2)
	statsStyle  = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 2).
			Width(46)
)

func (m Model) View() string {
	r, phi := metrics.OrderParameter(m.state)

	m.canvas.Clear()
	m.canvas.DrawPhases(m.state, r, phi)
	left := canvasStyle.Render(m.canvas.String())

	var b strings.Builder
	b.WriteString(viz.Title.Render(fmt.Sprintf("Goldbach oscillators  N=%d", m.model.Graph().Target())) + "\n\n")

	status := viz.StatusRunning.Render("running")
	switch {
	case m.err != nil:
		status = viz.StatusError.Render("diverged")
	case !m.running:
		status = viz.StatusPaused.Render("paused")
	}
	b.WriteString(viz.KeyValue("status", "") + status + "\n")
	b.WriteString(viz.KeyValue("oscillators", m.model.StateDim()) + "\n")
	b.WriteString(viz.KeyValue("edges", m.model.Graph().EdgeCount()) + "\n")
	b.WriteString(viz.KeyValue("κ", fmt.Sprintf("%.4f", m.kappa)) + "\n")
	b.WriteString(viz.KeyValue("t", fmt.Sprintf("%.2f", m.t)) + "\n")
	b.WriteString(viz.KeyValue("r", fmt.Sprintf("%.4f", r)) + "\n")
	b.WriteString(viz.Bar(r, 30) + "\n\n")

	if len(m.history) > 1 {
		graph := asciigraph.Plot(m.history,
			asciigraph.Height(8),
			asciigraph.Width(36),
			asciigraph.LowerBound(0),
			asciigraph.UpperBound(1),
			asciigraph.Caption("r(t)"),
		)
		b.WriteString(viz.ChartStyle.Render(graph) + "\n")
	} else {
		b.WriteString(viz.Sparkline(m.history, 36) + "\n")
	}
	if m.err != nil {
		b.WriteString(viz.StatusError.Render(m.err.Error()) + "\n")
	}

	right := statsStyle.Render(b.String())
	help := viz.KeyHint.Render("space pause · ↑/↓ κ · 0 uncouple · r reset · q quit")
	return lipgloss.JoinVertical(lipgloss.Left, lipgloss.JoinHorizontal(lipgloss.Top, left, right), help)
}

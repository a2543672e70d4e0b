package cli

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gitscape/gitscape/pkg/engine"
	"github.com/gitscape/gitscape/pkg/gitsource"
	"github.com/gitscape/gitscape/pkg/layout"
	"github.com/gitscape/gitscape/pkg/repotree"
	"github.com/gitscape/gitscape/pkg/visibility"
)

// Scene styles
var (
	sceneDirStyle    = lipgloss.NewStyle().Foreground(colorWhite)
	sceneFileStyle   = lipgloss.NewStyle().Foreground(colorGray)
	sceneRootStyle   = lipgloss.NewStyle().Foreground(colorCyan).Bold(true)
	sceneMatchStyle  = lipgloss.NewStyle().Foreground(colorYellow).Bold(true)
	sceneHoverStyle  = lipgloss.NewStyle().Foreground(colorCyan)
	sceneCursorStyle = lipgloss.NewStyle().Foreground(colorGreen).Bold(true).Reverse(true)
	sceneFlightStyle = lipgloss.NewStyle().Foreground(colorYellow)
	sceneLabelStyle  = lipgloss.NewStyle().Foreground(colorDim)
)

// Node glyphs by kind.
const (
	glyphRoot   = "◎"
	glyphDir    = "●"
	glyphFile   = "·"
	glyphFlight = "✦"
)

// frameInterval is the render tick period (~30 fps). The engine receives the
// real elapsed time per frame, so a slow terminal only drops frames, not
// simulation time.
const frameInterval = 33 * time.Millisecond

// autoplayInterval is the pause between commits during playback.
const autoplayInterval = 900 * time.Millisecond

// chromeRows is the number of screen rows reserved for header and footer.
const chromeRows = 4

// =============================================================================
// Messages
// =============================================================================

// frameMsg drives the cooperative tick loop.
type frameMsg time.Time

// rebindMsg carries a fresh scan result after a watched repository changed.
type rebindMsg struct {
	res *gitsource.Result
}

// rescanFailedMsg reports a failed background rescan; the scene keeps the
// previous model.
type rescanFailedMsg struct {
	err error
}

func frameTick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return frameMsg(t) })
}

// =============================================================================
// SceneModel - Interactive repository scene
// =============================================================================

// SceneModel is the bubbletea model hosting the scene engine. All engine
// access happens inside Update and View, which bubbletea serializes, so the
// single-threaded engine never sees concurrent calls.
type SceneModel struct {
	Engine   *engine.Engine
	RepoPath string
	HeadSHA  string

	width  int
	height int

	autoplay bool
	lastStep time.Time
	lastTick time.Time

	queryMode bool
	queryBuf  string

	status string
}

// NewSceneModel creates a scene model over a bound engine.
func NewSceneModel(e *engine.Engine, repoPath, headSHA string) SceneModel {
	return SceneModel{Engine: e, RepoPath: repoPath, HeadSHA: headSHA}
}

func (m SceneModel) Init() tea.Cmd {
	return frameTick()
}

func (m SceneModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case frameMsg:
		return m.tick(time.Time(msg))

	case tea.KeyMsg:
		if m.queryMode {
			return m.updateQuery(msg)
		}
		return m.updateKeys(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		// Terminal cells are roughly twice as tall as wide; the world keeps
		// a square aspect by doubling the vertical extent.
		m.Engine.Resize(float64(msg.Width), float64((msg.Height-chromeRows)*2))
		return m, nil

	case rebindMsg:
		m.Engine.Rebind(msg.res.Tree, msg.res.History)
		m.HeadSHA = msg.res.HeadSHA
		m.autoplay = false
		m.status = "repository changed, model rebuilt"
		return m, nil

	case rescanFailedMsg:
		m.status = fmt.Sprintf("rescan failed: %v", msg.err)
		return m, nil
	}
	return m, nil
}

// tick advances the simulation by the real elapsed frame time and drives
// autoplay.
func (m SceneModel) tick(now time.Time) (tea.Model, tea.Cmd) {
	dt := frameInterval
	if !m.lastTick.IsZero() {
		dt = now.Sub(m.lastTick)
		// A suspended terminal must not dump hours into the simulation.
		if dt < 0 || dt > time.Second {
			dt = frameInterval
		}
	}
	m.lastTick = now
	m.Engine.Tick(dt)

	if m.autoplay && now.Sub(m.lastStep) >= autoplayInterval {
		next := m.Engine.CommitIndex() + 1
		if next < m.Engine.History().Len() {
			m.Engine.SetCommitIndex(next)
			m.lastStep = now
		} else {
			m.autoplay = false
			m.status = "playback finished"
		}
	}
	return m, frameTick()
}

func (m SceneModel) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.queryBuf = ""
		m.Engine.SetQuery("")
		m.Engine.SetExtension("")
		m.Engine.SetHover("")
		m.status = ""
	case "/":
		m.queryMode = true
	case "up", "k":
		m.Engine.MoveCursor(-1)
		m.Engine.SetHover(m.Engine.CursorNode())
	case "down", "j":
		m.Engine.MoveCursor(1)
		m.Engine.SetHover(m.Engine.CursorNode())
	case "enter":
		if id := m.Engine.Select(); id != "" {
			m.status = id
		}
	case "f":
		m.Engine.SwitchLayout(engine.ForceDirected)
	case "p":
		m.Engine.SwitchLayout(engine.CirclePack)
	case "m":
		m.Engine.SwitchVisibility(nextVisibility(m.Engine.VisibilityMode()))
	case "left", "h":
		if idx := m.Engine.CommitIndex(); idx > 0 {
			m.Engine.SetCommitIndex(idx - 1)
		}
	case "right", "l":
		if idx := m.Engine.CommitIndex(); idx+1 < m.Engine.History().Len() {
			m.Engine.SetCommitIndex(idx + 1)
		}
	case " ":
		m.autoplay = !m.autoplay
		m.lastStep = time.Time{}
	}
	return m, nil
}

// updateQuery handles key input while the search prompt is open. A query
// starting with "ext:" filters by file extension instead of name substring.
func (m SceneModel) updateQuery(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.queryMode = false
		m.queryBuf = ""
		m.Engine.SetQuery("")
		m.Engine.SetExtension("")
		return m, nil
	case "enter":
		m.queryMode = false
		return m, nil
	case "backspace":
		if len(m.queryBuf) > 0 {
			m.queryBuf = m.queryBuf[:len(m.queryBuf)-1]
		}
	default:
		if msg.Type == tea.KeyRunes {
			m.queryBuf += string(msg.Runes)
		}
	}

	if ext, ok := strings.CutPrefix(m.queryBuf, "ext:"); ok {
		m.Engine.SetQuery("")
		m.Engine.SetExtension(ext)
	} else {
		m.Engine.SetQuery(m.queryBuf)
		m.Engine.SetExtension("")
	}
	return m, nil
}

func nextVisibility(mode visibility.Mode) visibility.Mode {
	switch mode {
	case visibility.Full:
		return visibility.FoldersOnly
	case visibility.FoldersOnly:
		return visibility.CollapsibleTree
	default:
		return visibility.Full
	}
}

// =============================================================================
// View
// =============================================================================

func (m SceneModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "loading..."
	}

	var b strings.Builder
	b.WriteString(m.viewHeader())
	b.WriteString("\n")
	b.WriteString(m.viewScene())
	b.WriteString(m.viewFooter())
	return b.String()
}

func (m SceneModel) viewHeader() string {
	sha := m.HeadSHA
	if len(sha) > 7 {
		sha = sha[:7]
	}
	left := StyleTitle.Render(m.RepoPath) + " " + StyleDim.Render("@"+sha)
	right := StyleDim.Render(fmt.Sprintf("%s · %s", m.Engine.LayoutMode(), m.Engine.VisibilityMode()))
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

// cell is one rendered screen position: a glyph plus its style, kept apart so
// overdraws replace both.
type cell struct {
	ch    string
	style lipgloss.Style
}

// viewScene projects node positions onto the character grid. Draw order is
// labels, nodes, flights, cursor, so the interactive markers win overdraws.
func (m SceneModel) viewScene() string {
	rows := m.height - chromeRows
	if rows < 1 {
		rows = 1
	}
	grid := make([][]cell, rows)
	for i := range grid {
		grid[i] = make([]cell, m.width)
		for j := range grid[i] {
			grid[i][j] = cell{ch: " "}
		}
	}

	tree := m.Engine.Tree()
	visible := m.Engine.VisibleNodes()
	positions := m.Engine.Positions()
	highlight := m.Engine.Highlight()
	hoverNodes, _ := m.Engine.HoverPath()
	cursorID := m.Engine.CursorNode()

	proj := newProjector(visible, positions, m.width, rows)

	// Labels first so node glyphs stay visible on top of them.
	for _, id := range visible {
		p, ok := positions[id]
		if !ok || !m.Engine.LabelEligible(p) {
			continue
		}
		n, ok := tree.Node(id)
		if !ok {
			continue
		}
		col, row := proj.project(p)
		drawText(grid, col+2, row, n.Name, sceneLabelStyle)
	}

	for _, id := range visible {
		p, ok := positions[id]
		if !ok {
			continue
		}
		n, _ := tree.Node(id)
		col, row := proj.project(p)

		glyph := glyphFile
		style := sceneFileStyle
		switch {
		case id == repotree.RootID:
			glyph = glyphRoot
			style = sceneRootStyle
		case n.IsDirectory():
			glyph = glyphDir
			style = sceneDirStyle
		}
		if _, ok := hoverNodes[id]; ok {
			style = sceneHoverStyle
		}
		if _, ok := highlight[id]; ok {
			style = sceneMatchStyle
		}
		if id == cursorID {
			style = sceneCursorStyle
		}
		drawText(grid, col, row, glyph, style)
	}

	now := m.Engine.Now()
	for _, f := range m.Engine.Flights() {
		col, row := proj.project(f.PositionAt(now))
		drawText(grid, col, row, glyphFlight, sceneFlightStyle)
	}

	var b strings.Builder
	for _, line := range grid {
		for _, c := range line {
			if c.ch == " " {
				b.WriteString(" ")
				continue
			}
			b.WriteString(c.style.Render(c.ch))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m SceneModel) viewFooter() string {
	var status string
	switch {
	case m.queryMode:
		status = StyleHighlight.Render("search: ") + StyleValue.Render(m.queryBuf+"▏")
	case m.status != "":
		status = StyleDim.Render(m.status)
	default:
		status = m.viewCommitLine()
	}

	help := StyleDim.Render("q quit · / search · j/k cursor · enter select · f/p layout · m visibility · h/l commits · space play")
	return status + "\n" + help
}

// viewCommitLine shows the playback scrubber position and current message.
func (m SceneModel) viewCommitLine() string {
	total := m.Engine.History().Len()
	if total == 0 {
		return StyleDim.Render("no commits")
	}
	idx := m.Engine.CommitIndex()
	indicator := "⏸"
	if m.autoplay {
		indicator = "▶"
	}
	if idx < 0 {
		return StyleDim.Render(fmt.Sprintf("%s commit —/%d · press l or space", indicator, total))
	}

	msg := ""
	if c, ok := m.Engine.History().At(idx); ok {
		msg = c.Message
		if len(msg) > 60 {
			msg = msg[:57] + "..."
		}
	}
	return StyleNumber.Render(fmt.Sprintf("%s %d/%d", indicator, idx+1, total)) + " " + StyleDim.Render(msg)
}

// =============================================================================
// Projection
// =============================================================================

// projector maps world coordinates onto the cell grid, fitting the bounding
// box of the visible nodes with a one-cell margin. Terminal cells are taller
// than wide, so vertical distances compress by half.
type projector struct {
	minX, minY  float64
	scaleX      float64
	scaleY      float64
	width, rows int
}

func newProjector(visible []string, positions map[string]layout.Point, width, rows int) projector {
	pr := projector{minX: -1, minY: -1, scaleX: 1, scaleY: 0.5, width: width, rows: rows}

	first := true
	var minX, maxX, minY, maxY float64
	for _, id := range visible {
		p, ok := positions[id]
		if !ok {
			continue
		}
		if first {
			minX, maxX, minY, maxY = p.X, p.X, p.Y, p.Y
			first = false
			continue
		}
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}
	if first {
		return pr
	}

	spanX := maxX - minX
	spanY := maxY - minY
	if spanX < 1 {
		spanX = 1
	}
	if spanY < 1 {
		spanY = 1
	}
	pr.minX, pr.minY = minX, minY
	pr.scaleX = float64(width-4) / spanX
	pr.scaleY = float64(rows-2) / spanY
	return pr
}

func (pr projector) project(p layout.Point) (col, row int) {
	col = 2 + int((p.X-pr.minX)*pr.scaleX)
	row = 1 + int((p.Y-pr.minY)*pr.scaleY)
	return col, row
}

// drawText writes s into the grid starting at (col, row), clipping at the
// edges.
func drawText(grid [][]cell, col, row int, s string, style lipgloss.Style) {
	if row < 0 || row >= len(grid) {
		return
	}
	for _, r := range s {
		if col < 0 {
			col++
			continue
		}
		if col >= len(grid[row]) {
			return
		}
		grid[row][col] = cell{ch: string(r), style: style}
		col++
	}
}

package repl

import (
	"narrative-cli/internal/grouping"
	tuirender "narrative-cli/internal/tui/render"
)

// HistoryCell is an append-only render block for terminal output.
// Each closed render group maps to exactly one cell.
type HistoryCell interface {
	// ID is the id of the first event in the cell.
	ID() string
	// Render returns styled lines for the given terminal width.
	Render(width int) []tuirender.Line
}

type groupCell struct {
	group grouping.RenderGroup
	opts  tuirender.LayoutOptions
}

func newGroupCell(g grouping.RenderGroup, opts tuirender.LayoutOptions) groupCell {
	opts.Focus = -1
	return groupCell{group: g, opts: opts}
}

func (c groupCell) ID() string { return c.group.First().ID }

func (c groupCell) Render(width int) []tuirender.Line {
	opts := c.opts
	opts.Width = width
	return tuirender.BuildLayout([]grouping.RenderGroup{c.group}, opts).Lines
}

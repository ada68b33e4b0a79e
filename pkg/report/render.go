package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dd0wney/cluso-flowscope/pkg/workflow"
	"gopkg.in/yaml.v3"
)

// Formats accepted by Render.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

type renderOptions struct {
	color bool
}

// RenderOption tunes text output.
type RenderOption func(*renderOptions)

// WithColor enables styling in text output. Styles are still dropped when the
// writer is not a terminal.
func WithColor(on bool) RenderOption {
	return func(o *renderOptions) {
		o.color = on
	}
}

// Render writes r in the given format.
func Render(w io.Writer, r *Report, format string, opts ...RenderOption) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	case FormatText, "":
		o := renderOptions{}
		for _, opt := range opts {
			opt(&o)
		}
		_, err := io.WriteString(w, renderText(w, r, o))
		return err
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

type styles struct {
	title  lipgloss.Style
	header lipgloss.Style
	cell   lipgloss.Style
	bad    lipgloss.Style
	good   lipgloss.Style
	border lipgloss.Style
}

func newStyles(w io.Writer, color bool) styles {
	re := lipgloss.NewRenderer(w)
	if !color {
		plain := re.NewStyle()
		return styles{title: plain, header: plain, cell: plain.Padding(0, 1), bad: plain, good: plain, border: plain}
	}
	return styles{
		title:  re.NewStyle().Bold(true).Foreground(lipgloss.Color("99")),
		header: re.NewStyle().Bold(true).Foreground(lipgloss.Color("252")).Padding(0, 1),
		cell:   re.NewStyle().Padding(0, 1),
		bad:    re.NewStyle().Foreground(lipgloss.Color("196")).Padding(0, 1),
		good:   re.NewStyle().Foreground(lipgloss.Color("42")),
		border: re.NewStyle().Foreground(lipgloss.Color("240")),
	}
}

func stackText(ids []workflow.NodeID) string {
	if len(ids) == 0 {
		return "-"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, " > ")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func renderText(w io.Writer, r *Report, o renderOptions) string {
	st := newStyles(w, o.color)

	rows := make([][]string, 0, len(r.Nodes))
	for _, n := range r.Nodes {
		rows = append(rows, []string{
			string(n.ID),
			n.Name,
			n.State,
			n.Role,
			strconv.Itoa(n.Depth),
			stackText(n.ForwardStack),
			stackText(n.BackwardStack),
			yesNo(n.CanExecute),
			yesNo(n.CanReset),
			n.Error,
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(st.border).
		Headers("ID", "NAME", "STATE", "ROLE", "DEPTH", "FORWARD", "BACKWARD", "EXEC", "RESET", "ERROR").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return st.header
			case row >= 0 && row < len(r.Nodes) && r.Nodes[row].Error != "":
				return st.bad
			default:
				return st.cell
			}
		})

	var b strings.Builder
	b.WriteString(st.title.Render(fmt.Sprintf("%s %s (%s)", r.Workflow, r.Name, r.Container)))
	b.WriteString("\n")
	b.WriteString(t.String())
	b.WriteString("\n")
	if r.HasErrors() {
		b.WriteString(st.bad.UnsetPadding().Render(fmt.Sprintf("%d structural error(s)", r.ErrorCount)))
	} else {
		b.WriteString(st.good.Render("no structural errors"))
	}
	b.WriteString("\n")
	return b.String()
}

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/danmuck/artwire/internal/protocol"
)

// printer renders server replies. Plain mode writes replies byte for byte.
type printer struct {
	out   io.Writer
	plain bool

	statusStyle  lipgloss.Style
	captionStyle lipgloss.Style
	imageStyle   lipgloss.Style
	warnStyle    lipgloss.Style
	promptStyle  lipgloss.Style
}

func newPrinter(out io.Writer, plain bool) *printer {
	r := lipgloss.NewRenderer(out)
	return &printer{
		out:   out,
		plain: plain,
		statusStyle: r.NewStyle().
			Foreground(lipgloss.Color("252")),
		captionStyle: r.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("57")).
			Padding(0, 1),
		imageStyle: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1),
		warnStyle: r.NewStyle().
			Foreground(lipgloss.Color("1")),
		promptStyle: r.NewStyle().
			Foreground(lipgloss.Color("12")),
	}
}

func (p *printer) status(reply []byte) {
	if p.plain {
		_, _ = p.out.Write(reply)
		return
	}
	text := strings.TrimRight(string(reply), "\n")
	style := p.statusStyle
	if isWarning(text) {
		style = p.warnStyle
	}
	fmt.Fprintln(p.out, style.Render(text))
}

// image renders a get reply as a captioned box. Anything that is not an
// image reply falls back to status.
func (p *printer) image(reply []byte) {
	text := string(reply)
	if p.plain || !strings.HasPrefix(text, protocol.ReplyImageHeader) {
		p.status(reply)
		return
	}
	rest := strings.TrimPrefix(text, protocol.ReplyImageHeader)
	caption, body, _ := strings.Cut(rest, "\n")
	body = strings.TrimRight(body, "\n")
	if caption == "" {
		caption = "(untitled)"
	}
	fmt.Fprintln(p.out, p.captionStyle.Render(caption))
	fmt.Fprintln(p.out, p.imageStyle.Render(body))
}

func (p *printer) prompt() {
	if p.plain {
		fmt.Fprint(p.out, "> ")
		return
	}
	fmt.Fprint(p.out, p.promptStyle.Render("artwire>")+" ")
}

func isWarning(text string) bool {
	for _, marker := range []string{"restricted", "unsuccessful", "Sorry", "Unrecognised", "Malformed", "must be"} {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

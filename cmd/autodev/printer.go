package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/fyrsmithlabs/autodev/internal/orchestrator"
	"github.com/fyrsmithlabs/autodev/internal/progress"
	"github.com/jedib0t/go-pretty/v6/table"
)

var (
	agentStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	aiCallStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	unitTestStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
	issueStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	questionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	failedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

// printer writes colored agent messages, one per line.
type printer struct {
	out io.Writer
}

func (p *printer) callback() progress.Callback {
	return p.print
}

func (p *printer) print(e progress.Event) {
	fmt.Fprintf(p.out, "%s%s\n",
		agentStyle.Render("Agent: "+e.Position+": "),
		styleFor(e.Kind).Render(e.Statement),
	)
}

func styleFor(kind progress.Kind) lipgloss.Style {
	switch kind {
	case progress.KindUnitTest:
		return unitTestStyle
	case progress.KindIssue:
		return issueStyle
	default:
		return aiCallStyle
	}
}

// promptRequest asks the user what to build and reads one line.
func promptRequest(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprintln(out, questionStyle.Render("What are we building today?"))

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("reading request: %w", err)
	}
	request := strings.TrimSpace(line)
	if request == "" {
		return "", errors.New("request cannot be empty")
	}
	return request, nil
}

// renderSummary prints one row per executed agent.
func renderSummary(w io.Writer, result *orchestrator.Result) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetTitle("Run " + result.RunID)
	tw.AppendHeader(table.Row{"Agent", "Objective", "State", "Duration", "Error"})
	for _, r := range result.Reports {
		errText := ""
		if r.Err != nil {
			errText = failedStyle.Render(r.Err.Error())
		}
		tw.AppendRow(table.Row{r.Position, r.Objective, r.State, r.Duration.Round(time.Millisecond), errText})
	}
	tw.Render()
}

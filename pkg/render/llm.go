package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dkoosis/quarantine/pkg/pattern"
)

const (
	statusFail        = "fail"
	statusSkip        = "skip"
	statusQuarantined = "quarantined"
	statusCovered     = "covered"

	llmDetailLines = 3
)

// LLM renders patterns as terse plain text optimized for AI consumption.
// Zero ANSI codes, deterministic sort, SCOPE line, importance-budgeted truncation.
type LLM struct{}

// NewLLM creates an LLM renderer.
func NewLLM() *LLM {
	return &LLM{}
}

// Render formats all patterns for LLM consumption.
func (l *LLM) Render(patterns []pattern.Pattern) string {
	var summary *pattern.Summary
	var tables []*pattern.TestTable
	var boards []*pattern.Leaderboard
	var sparks []*pattern.Sparkline

	for _, p := range patterns {
		switch v := p.(type) {
		case *pattern.Summary:
			if summary == nil {
				summary = v
			}
		case *pattern.TestTable:
			tables = append(tables, v)
		case *pattern.Leaderboard:
			boards = append(boards, v)
		case *pattern.Sparkline:
			sparks = append(sparks, v)
		}
	}
	if summary == nil {
		return l.renderTables(tables, false)
	}

	var sb strings.Builder
	sb.WriteString("SCOPE: " + summary.Label + "\n")
	for _, m := range summary.Metrics {
		sb.WriteString(m.Label + ": " + m.Value + "\n")
	}

	switch summary.Kind {
	case pattern.SummaryKindBuild:
		// Failures that count against the build come first.
		sb.WriteString(l.renderTables(sortTables(tables), true))
	case pattern.SummaryKindReport:
		sb.WriteString(l.renderTables(tables, true))
		for _, b := range boards {
			sb.WriteString(l.renderLeaderboard(b))
		}
	case pattern.SummaryKindStatus:
		for _, s := range sparks {
			sb.WriteString(l.renderSparkline(s))
		}
		sb.WriteString(l.renderTables(tables, false))
	default:
		sb.WriteString(l.renderTables(tables, false))
	}
	return sb.String()
}

func (l *LLM) renderTables(tables []*pattern.TestTable, withDetails bool) string {
	var sb strings.Builder
	for _, t := range tables {
		if len(t.Results) == 0 {
			continue
		}
		sb.WriteString("\n" + t.Label + "\n")
		for _, item := range t.Results {
			sb.WriteString("  " + llmStatus(item.Status) + " " + item.Name)
			var attrs []string
			if item.Owner != "" {
				attrs = append(attrs, "owner="+item.Owner)
			}
			if item.Duration != "" {
				attrs = append(attrs, item.Duration)
			}
			if item.Note != "" {
				attrs = append(attrs, item.Note)
			}
			if len(attrs) > 0 {
				sb.WriteString(" (" + strings.Join(attrs, ", ") + ")")
			}
			sb.WriteString("\n")
			if withDetails && item.Details != "" {
				writeDetails(&sb, item.Details)
			}
		}
	}
	return sb.String()
}

func (l *LLM) renderLeaderboard(b *pattern.Leaderboard) string {
	if len(b.Items) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("\n" + b.Label)
	if b.TotalCount > len(b.Items) {
		sb.WriteString(fmt.Sprintf(" (top %d of %d)", len(b.Items), b.TotalCount))
	}
	sb.WriteString("\n")
	for _, item := range b.Items {
		sb.WriteString(fmt.Sprintf("  %d. %s %s\n", item.Rank, item.Name, item.Metric))
	}
	return sb.String()
}

func (l *LLM) renderSparkline(s *pattern.Sparkline) string {
	parts := make([]string, len(s.Values))
	for i, v := range s.Values {
		parts[i] = fmt.Sprintf("%g", v)
	}
	line := "\n" + s.Label + ": " + strings.Join(parts, " ")
	if s.Caption != "" {
		line += " (" + strings.TrimSpace(s.Caption) + ")"
	}
	return line + "\n"
}

func writeDetails(sb *strings.Builder, details string) {
	lines := strings.Split(details, "\n")
	n := min(len(lines), llmDetailLines)
	for _, line := range lines[:n] {
		sb.WriteString("    " + line + "\n")
	}
	if len(lines) > llmDetailLines {
		sb.WriteString(fmt.Sprintf("    ... (%d more lines)\n", len(lines)-llmDetailLines))
	}
}

// sortTables orders tables by the worst status they contain, keeping the
// original order among equals.
func sortTables(tables []*pattern.TestTable) []*pattern.TestTable {
	out := append([]*pattern.TestTable(nil), tables...)
	sort.SliceStable(out, func(i, j int) bool {
		return tablePriority(out[i]) < tablePriority(out[j])
	})
	return out
}

func tablePriority(t *pattern.TestTable) int {
	best := 3
	for _, item := range t.Results {
		best = min(best, statusPriority(item.Status))
	}
	return best
}

func statusPriority(status string) int {
	switch status {
	case statusFail:
		return 0
	case statusQuarantined, statusCovered:
		return 1
	case statusSkip:
		return 2
	default:
		return 3
	}
}

func llmStatus(status string) string {
	switch status {
	case statusFail:
		return "FAIL"
	case statusSkip:
		return "SKIP"
	case statusQuarantined, statusCovered:
		return "QUAR"
	default:
		return "PASS"
	}
}

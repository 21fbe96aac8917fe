// Package mapper turns quarantine results into visualization patterns.
package mapper

import (
	"fmt"
	"strings"
	"time"
)

const (
	statusPass        = "pass"
	statusFail        = "fail"
	statusSkip        = "skip"
	statusQuarantined = "quarantined"
	statusCovered     = "covered"

	kindSuccess = "success"
	kindError   = "error"
	kindWarning = "warning"
	kindInfo    = "info"
)

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return "0s"
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func truncateLines(lines []string, max int) string {
	if len(lines) <= max {
		return strings.Join(lines, "\n")
	}
	result := strings.Join(lines[:max], "\n")
	return result + fmt.Sprintf("\n... (%d more lines)", len(lines)-max)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}

func verdictKind(verdict string) string {
	switch verdict {
	case "SUCCESS":
		return kindSuccess
	case "UNSTABLE":
		return kindWarning
	default:
		return kindError
	}
}

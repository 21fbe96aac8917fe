package pattern

// SummaryKind identifies what a summary describes, so renderers can dispatch on it.
type SummaryKind string

const (
	SummaryKindBuild   SummaryKind = "build"   // verdict of one archived build
	SummaryKindReport  SummaryKind = "report"  // currently quarantined tests
	SummaryKindStatus  SummaryKind = "status"  // one test across history
	SummaryKindHistory SummaryKind = "history" // list of builds
)

// Summary represents high-level metrics and counts.
type Summary struct {
	Label   string
	Kind    SummaryKind
	Metrics []SummaryItem
}

// SummaryItem is a single metric in a summary.
type SummaryItem struct {
	Label string // e.g., "Failed", "Quarantined", "Remaining"
	Value string // formatted value
	Kind  string // "success", "error", "warning", "info"; affects coloring
}

func (s *Summary) Type() PatternType { return PatternTypeSummary }

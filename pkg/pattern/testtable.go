package pattern

// TestTable represents test cases with status and quarantine details.
type TestTable struct {
	Label   string
	Results []TestTableItem
}

// TestTableItem is a single test row.
type TestTableItem struct {
	Name     string // full test name
	Status   string // "pass", "fail", "skip", "quarantined", "covered"
	Duration string // formatted duration
	Owner    string // who quarantined the test, if anyone
	Note     string // short trailing annotation, e.g. "3 passes"
	Details  string // reason or failure output; may span lines
}

func (t *TestTable) Type() PatternType { return PatternTypeTestTable }

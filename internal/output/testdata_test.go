package output

import (
	"github.com/routable/routable-lint/internal/routable"
	"github.com/routable/routable-lint/internal/rules"
	"github.com/routable/routable-lint/internal/sarif"
	"github.com/routable/routable-lint/internal/store"
)

func finding(line, col int, code routable.Code) routable.Finding {
	return routable.Finding{Line: line, Column: col, Code: code, Message: code.Message()}
}

// testSARIFLog builds a log with findings across two files and a source
// error in a third.
func testSARIFLog() *sarif.Log {
	return sarif.NewAssembler().
		WithRules([]rules.Rule{
			{ID: "ROU106", Level: "error", Message: routable.ROU106.Message()},
			{ID: "ROU103", Level: "warning", Message: routable.ROU103.Message()},
			{ID: "ROU105", Level: "note", Message: routable.ROU105.Message()},
		}).
		AddFindings("app/views.py", []routable.Finding{
			finding(3, 0, routable.ROU106),
			finding(1, 4, routable.ROU103),
		}).
		AddFindings("app/constants.py", []routable.Finding{
			finding(2, 0, routable.ROU105),
			finding(7, 0, routable.ROU103),
		}).
		AddSourceError("app/broken.py", "invalid syntax at 1:4", 1, 4).
		Build()
}

func testOutput() *AnalysisOutput {
	return &AnalysisOutput{
		Verdict: &store.Verdict{
			Decision: store.DecisionReject,
			Reason:   "Decision: reject based on 5 findings",
		},
		SARIFLog: testSARIFLog(),
	}
}

func cleanOutput() *AnalysisOutput {
	return &AnalysisOutput{
		Verdict:  &store.Verdict{Decision: store.DecisionPass, Reason: "clean"},
		SARIFLog: sarif.NewAssembler().Build(),
	}
}

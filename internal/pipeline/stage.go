package pipeline

import "time"

// StageReport records how one context source fared during a turn. A failed
// or timed-out stage never fails the turn; it just leaves its context out.
type StageReport struct {
	Name    string
	OK      bool
	Skipped bool
	Reason  string
	Elapsed time.Duration
}

func stageOK(name string, elapsed time.Duration) StageReport {
	return StageReport{Name: name, OK: true, Elapsed: elapsed}
}

func stageFailed(name, reason string, elapsed time.Duration) StageReport {
	return StageReport{Name: name, Reason: reason, Elapsed: elapsed}
}

func stageSkipped(name, reason string) StageReport {
	return StageReport{Name: name, Skipped: true, Reason: reason}
}

// TurnResult is what a single conversational turn produced.
type TurnResult struct {
	Response string
	Degraded bool // at least one context source was unavailable
	Flagged  bool // response served despite failing format checks
	Stages   []StageReport
}

func (r *TurnResult) noteStage(report StageReport) {
	r.Stages = append(r.Stages, report)
	if !report.OK && !report.Skipped {
		r.Degraded = true
	}
}

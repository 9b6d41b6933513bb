package enums

// PipelineRunStatus tracks a batch run from start to its terminal state.
type PipelineRunStatus string

const (
	PipelineRunStatusRunning   PipelineRunStatus = "running"
	PipelineRunStatusSucceeded PipelineRunStatus = "succeeded"
	PipelineRunStatusFailed    PipelineRunStatus = "failed"
)

// String implements fmt.Stringer.
func (p PipelineRunStatus) String() string {
	return string(p)
}

// IsTerminal reports whether the run has finished.
func (p PipelineRunStatus) IsTerminal() bool {
	return p == PipelineRunStatusSucceeded || p == PipelineRunStatusFailed
}

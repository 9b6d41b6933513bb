package enums

// PipelineStage names one step of the trip ETL.
type PipelineStage string

const (
	PipelineStageClean  PipelineStage = "clean"
	PipelineStageImpute PipelineStage = "impute"
	PipelineStageEnrich PipelineStage = "enrich"
)

// String implements fmt.Stringer.
func (p PipelineStage) String() string {
	return string(p)
}

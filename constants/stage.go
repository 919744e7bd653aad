package constants

// Stage identifies one of the external extraction services.
type Stage string

const (
	StageFilingDate Stage = "filing_date"
	StageCategory   Stage = "category"
	StageFineAmount Stage = "fine_amount"
)

// AllStages lists the stages in dispatch order.
var AllStages = []Stage{StageFilingDate, StageCategory, StageFineAmount}

// StageEndpoint is the HTTP path and the result value key a stage service uses.
type StageEndpoint struct {
	Path     string
	ValueKey string
}

var stageEndpoints = map[Stage]StageEndpoint{
	StageFilingDate: {Path: "/extractDate", ValueKey: "date"},
	StageCategory:   {Path: "/classifyText", ValueKey: "category"},
	StageFineAmount: {Path: "/findFineAmount", ValueKey: "response"},
}

// EndpointFor returns the wire contract for a stage.
func EndpointFor(s Stage) (StageEndpoint, bool) {
	ep, ok := stageEndpoints[s]
	return ep, ok
}

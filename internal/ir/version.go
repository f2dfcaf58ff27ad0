package ir

// Version constants for the report schema and engine.
const (
	// ReportVersion is the schema version of the consolidated JSON report.
	ReportVersion = "1"

	// EngineVersion is the seqscore engine version.
	EngineVersion = "0.1.0"
)

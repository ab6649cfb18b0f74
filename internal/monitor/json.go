package monitor

import (
	"encoding/json"
	"io"
)

// jsonOutput wraps a report with the exit code for pipeline parsing.
type jsonOutput struct {
	Report
	ExitCode int `json:"exitCode"`
}

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, r Report, exitCode int) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonOutput{Report: r, ExitCode: exitCode})
}

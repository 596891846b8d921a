package crmsync

import (
	"fmt"
	"strings"
	"time"
)

const (
	logTimeLayout = "2006-01-02 15:04"
	logMessage    = "Automatisk oppdatering fra Salgsmotor"
	// pipelineEntry names the pipeline item in an update log summary.
	pipelineEntry = "pipeline"
)

// PipelineMarker is the dedupe marker written to the update log once a
// pipeline item exists for orgnr.
func PipelineMarker(orgnr string) string {
	return "[pipeline:" + orgnr + "]"
}

// HasPipelineMarker reports whether log records a pipeline item for orgnr.
func HasPipelineMarker(log, orgnr string) bool {
	return orgnr != "" && strings.Contains(log, PipelineMarker(orgnr))
}

// LogEntry renders one update log line:
//
//	2026-10-19 14:05: Automatisk oppdatering fra Salgsmotor (brreg_navn, pipeline) [pipeline:923609016]
func LogEntry(at time.Time, changed []string, marker string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s", at.Format(logTimeLayout), logMessage)
	if len(changed) > 0 {
		fmt.Fprintf(&sb, " (%s)", strings.Join(changed, ", "))
	}
	if marker != "" {
		sb.WriteByte(' ')
		sb.WriteString(marker)
	}
	return sb.String()
}

// AppendLog appends entry to the previous log value, one entry per line.
func AppendLog(previous, entry string) string {
	previous = strings.TrimRight(previous, " \n")
	if previous == "" {
		return entry
	}
	return previous + "\n" + entry
}

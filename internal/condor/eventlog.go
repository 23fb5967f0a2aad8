package condor

import (
	"log/slog"
	"os"
	"regexp"
	"strconv"
)

// ResourceMetrics maps metric names to values extracted from a job event
// log. A field the log does not contain is absent from the map; zero is a
// valid observed value and never stands in for "unknown".
type ResourceMetrics map[string]float64

// Event log patterns. HTCondor writes a termination block like:
//
//	005 (123.000.000) 2024-01-15 12:34:56 Job terminated.
//	        (1) Normal termination (return value 0)
//	                Usr 0 00:41:02, Sys 0 00:00:08  -  Total Remote Usage
//	        ...
//	        Run Time: total run time was 01:02:03
//	        Partitionable Resources :    Usage  Request Allocated
//	           Disk (KB)            :   512000  1048576   1203503
//	           Memory (MB)          :     2048     4096      4096
//
// Each field is matched independently so one missing field never blocks the
// others.
var (
	runtimePattern = regexp.MustCompile(`(?is)Job terminated.*?run time.*?(\d+):(\d+):(\d+)`)
	memoryPattern  = regexp.MustCompile(`Memory \(MB\)\s*:\s*(\d+)`)
	diskPattern    = regexp.MustCompile(`Disk \(KB\)\s*:\s*(\d+)`)
)

// ParseEventLog extracts resource-usage metrics from an HTCondor job event
// log. Returns an empty map when the file is unreadable or none of the
// known fields match.
func ParseEventLog(path string) ResourceMetrics {
	metrics := ResourceMetrics{}

	content, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("could not read event log", "file", path, "error", err)
		return metrics
	}
	text := string(content)

	if m := runtimePattern.FindStringSubmatch(text); m != nil {
		h, _ := strconv.Atoi(m[1])
		mins, _ := strconv.Atoi(m[2])
		s, _ := strconv.Atoi(m[3])
		metrics["runtime_seconds"] = float64(h*3600 + mins*60 + s)
	}

	if m := memoryPattern.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			metrics["memory_mb"] = v
		}
	}

	if m := diskPattern.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			metrics["disk_kb"] = v
		}
	}

	return metrics
}

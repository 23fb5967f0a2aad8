// Package condor extracts structured resource fields from HTCondor's
// semi-structured text formats: submit description files and job event logs.
//
// Both extraction entry points are best-effort. Scheduler file formats are
// not contractually stable, so a field that cannot be found is omitted from
// the result and everything else is still returned. An unreadable file
// yields an empty result and a warning, never an error.
package condor

import (
	"bufio"
	"log/slog"
	"os"
	"strings"
)

// SubmitConfig holds the resource-request fields recognized in a submit
// description file, keyed by the lower-cased submit file keyword.
type SubmitConfig map[string]string

// submitKeys is the fixed allow-list of submit file keywords worth recording
// on a run. Everything else in the file is scheduler plumbing.
var submitKeys = map[string]bool{
	"request_cpus":   true,
	"request_memory": true,
	"request_disk":   true,
	"executable":     true,
	"universe":       true,
}

// ParseSubmitFile extracts allow-listed key/value pairs from an HTCondor
// submit description file. Keys are matched case-insensitively and values
// are trimmed of surrounding whitespace. Comment lines (#), blank lines,
// and lines without '=' are skipped.
func ParseSubmitFile(path string) SubmitConfig {
	cfg := SubmitConfig{}

	f, err := os.Open(path)
	if err != nil {
		slog.Warn("could not read submit file", "file", path, "error", err)
		return cfg
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}

		key = strings.ToLower(strings.TrimSpace(key))
		if submitKeys[key] {
			cfg[key] = strings.TrimSpace(value)
		}
	}
	if err := scanner.Err(); err != nil {
		slog.Warn("error while reading submit file", "file", path, "error", err)
	}

	return cfg
}

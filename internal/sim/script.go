// internal/sim/script.go
package sim

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dealdesk/jobsync/pkg/schema"
)

// Script is a YAML scenario: one scripted analysis per deal, each a timeline
// of status steps replayed on every start request for that deal.
type Script struct {
	Jobs []JobScript `yaml:"jobs"`
}

type JobScript struct {
	ScopeID string `yaml:"scope_id"`
	// DropPush suppresses push events for this deal, forcing trackers onto
	// the poll fallback.
	DropPush bool   `yaml:"drop_push"`
	Steps    []Step `yaml:"steps"`
}

type Step struct {
	AfterMS     int              `yaml:"after_ms"`
	Status      schema.JobStatus `yaml:"status"`
	ProgressPct *int             `yaml:"progress_pct"`
	Message     string           `yaml:"message"`
}

// ParseScript parses YAML content into a Script and validates it.
func ParseScript(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	if len(s.Jobs) == 0 {
		return nil, fmt.Errorf("script defines no jobs")
	}
	for _, j := range s.Jobs {
		if j.ScopeID == "" {
			return nil, fmt.Errorf("job missing scope_id")
		}
		if len(j.Steps) == 0 {
			return nil, fmt.Errorf("job %s has no steps", j.ScopeID)
		}
		for i, st := range j.Steps {
			if !st.Status.Valid() {
				return nil, fmt.Errorf("job %s step %d: unknown status %q", j.ScopeID, i, st.Status)
			}
			if st.AfterMS < 0 {
				return nil, fmt.Errorf("job %s step %d: negative after_ms", j.ScopeID, i)
			}
			if st.ProgressPct != nil && (*st.ProgressPct < 0 || *st.ProgressPct > 100) {
				return nil, fmt.Errorf("job %s step %d: progress_pct out of range", j.ScopeID, i)
			}
		}
	}
	return &s, nil
}

// LoadScript reads a scenario file and returns the parsed Script.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScript(data)
}

// ForScope returns the scripted job for a deal, or nil if the deal is not
// eligible under this scenario.
func (s *Script) ForScope(scopeID string) *JobScript {
	for i := range s.Jobs {
		if s.Jobs[i].ScopeID == scopeID {
			return &s.Jobs[i]
		}
	}
	return nil
}

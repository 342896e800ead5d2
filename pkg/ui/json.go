package ui

import (
	"encoding/json"

	"github.com/arthur-debert/confit/pkg/errors"
	"github.com/arthur-debert/confit/pkg/status"
	"github.com/arthur-debert/confit/pkg/types"
	"github.com/arthur-debert/confit/pkg/validate"
)

// JSON reports whether the renderer emits machine-readable documents
// instead of line-oriented text. Commands check this before assembling
// their styled output.
func (r *Renderer) JSON() bool {
	return r.format == FormatJSON
}

type statusEntry struct {
	Target string `json:"target"`
	Kind   string `json:"kind"`
	State  string `json:"state"`
	Diff   string `json:"diff,omitempty"`
}

// StatusJSON renders a status report as one JSON document
func (r *Renderer) StatusJSON(statuses []status.TargetStatus, rel func(string) string) (string, error) {
	doc := struct {
		Targets []statusEntry `json:"targets"`
		Clean   bool          `json:"clean"`
	}{
		Targets: make([]statusEntry, 0, len(statuses)),
		Clean:   status.Clean(statuses),
	}
	for _, s := range statuses {
		doc.Targets = append(doc.Targets, statusEntry{
			Target: rel(s.Target),
			Kind:   string(s.Kind),
			State:  string(s.State),
			Diff:   s.Diff,
		})
	}
	return marshalDoc(doc)
}

type findingEntry struct {
	Severity string `json:"severity"`
	Path     string `json:"path"`
	Message  string `json:"message"`
}

// FindingsJSON renders a validation report as one JSON document
func (r *Renderer) FindingsJSON(report *validate.Report, rel func(string) string) (string, error) {
	doc := struct {
		Findings []findingEntry `json:"findings"`
		Errors   int            `json:"errors"`
		Warnings int            `json:"warnings"`
	}{
		Findings: make([]findingEntry, 0, len(report.Findings)),
		Errors:   report.Errors(),
		Warnings: report.Warnings(),
	}
	for _, f := range report.Findings {
		doc.Findings = append(doc.Findings, findingEntry{
			Severity: string(f.Severity),
			Path:     rel(f.Path),
			Message:  f.Message,
		})
	}
	return marshalDoc(doc)
}

type actionEntry struct {
	Kind   string `json:"kind"`
	Target string `json:"target"`
}

// ResultJSON renders an apply run (or its dry-run plan) as one JSON document
func (r *Renderer) ResultJSON(actions []types.Action, applied, failed int, dryRun bool, rel func(string) string) (string, error) {
	doc := struct {
		DryRun  bool          `json:"dry_run"`
		Applied int           `json:"applied"`
		Failed  int           `json:"failed"`
		Actions []actionEntry `json:"actions"`
	}{
		DryRun:  dryRun,
		Applied: applied,
		Failed:  failed,
		Actions: make([]actionEntry, 0, len(actions)),
	}
	for _, action := range actions {
		doc.Actions = append(doc.Actions, actionEntry{
			Kind:   string(action.Kind),
			Target: rel(action.Target),
		})
	}
	return marshalDoc(doc)
}

func marshalDoc(v interface{}) (string, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, errors.ErrInternal, "cannot encode JSON output")
	}
	return string(out), nil
}

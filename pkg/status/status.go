// Package status compares the on-disk state of every planned target with
// what an apply run would produce, without writing anything.
package status

import (
	goerrors "errors"
	"io/fs"
	"path/filepath"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/arthur-debert/confit/pkg/errors"
	"github.com/arthur-debert/confit/pkg/logging"
	"github.com/arthur-debert/confit/pkg/types"
)

// State classifies one target
type State string

const (
	// StateOK means the target matches what apply would produce
	StateOK State = "ok"

	// StateMissing means the target does not exist yet
	StateMissing State = "missing"

	// StateDrift means the target exists but differs from the expected
	// content or link destination
	StateDrift State = "drift"

	// StateStale means a target slated for removal still exists
	StateStale State = "stale"
)

// TargetStatus is the report line for one target
type TargetStatus struct {
	Target string
	Kind   types.ActionKind
	State  State

	// Diff holds a unified diff for drifted write targets, empty otherwise
	Diff string
}

// Clean reports whether every target is in the expected state
func Clean(statuses []TargetStatus) bool {
	for _, s := range statuses {
		if s.State != StateOK {
			return false
		}
	}
	return true
}

// Reporter inspects targets against a plan
type Reporter struct {
	fs    types.FS
	paths types.Pather
}

// New creates a Reporter
func New(filesys types.FS, pather types.Pather) *Reporter {
	return &Reporter{fs: filesys, paths: pather}
}

// Report classifies every action's target. Unreadable targets surface as
// errors rather than guesses.
func (r *Reporter) Report(actions []types.Action) ([]TargetStatus, error) {
	logger := logging.GetLogger("status")

	statuses := make([]TargetStatus, 0, len(actions))
	for _, action := range actions {
		status, err := r.classify(action)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, status)
	}

	logger.Debug().Int("targets", len(statuses)).Msg("status computed")
	return statuses, nil
}

func (r *Reporter) classify(action types.Action) (TargetStatus, error) {
	status := TargetStatus{Target: action.Target, Kind: action.Kind}

	info, err := r.fs.Lstat(action.Target)
	exists := err == nil
	if err != nil && !goerrors.Is(err, fs.ErrNotExist) {
		return status, errors.Wrapf(err, errors.ErrFileAccess, "cannot stat %s", action.Target)
	}

	switch action.Kind {
	case types.ActionRemove:
		if exists {
			status.State = StateStale
		} else {
			status.State = StateOK
		}
		return status, nil

	case types.ActionLink:
		if !exists {
			status.State = StateMissing
			return status, nil
		}
		if info.Mode()&fs.ModeSymlink == 0 {
			status.State = StateDrift
			return status, nil
		}
		dest, err := r.fs.Readlink(action.Target)
		if err != nil {
			return status, errors.Wrapf(err, errors.ErrFileAccess, "cannot read link %s", action.Target)
		}
		if !filepath.IsAbs(dest) {
			dest = filepath.Join(filepath.Dir(action.Target), dest)
		}
		if filepath.Clean(dest) == filepath.Clean(action.Source) {
			status.State = StateOK
		} else {
			status.State = StateDrift
		}
		return status, nil

	case types.ActionCopy:
		if !exists {
			status.State = StateMissing
			return status, nil
		}
		expected, err := r.fs.ReadFile(action.Source)
		if err != nil {
			return status, errors.Wrapf(err, errors.ErrFileAccess, "cannot read %s", action.Source)
		}
		return r.compare(status, string(expected))

	case types.ActionWrite:
		if !exists {
			status.State = StateMissing
			return status, nil
		}
		return r.compare(status, action.Content)

	default:
		return status, errors.Newf(errors.ErrInternal, "unknown action kind %q", action.Kind)
	}
}

func (r *Reporter) compare(status TargetStatus, expected string) (TargetStatus, error) {
	actual, err := r.fs.ReadFile(status.Target)
	if err != nil {
		return status, errors.Wrapf(err, errors.ErrFileAccess, "cannot read %s", status.Target)
	}
	if string(actual) == expected {
		status.State = StateOK
		return status, nil
	}

	status.State = StateDrift
	rel, err := filepath.Rel(r.paths.ProjectRoot(), status.Target)
	if err != nil {
		rel = status.Target
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(actual)),
		B:        difflib.SplitLines(expected),
		FromFile: rel,
		ToFile:   rel + " (expected)",
		Context:  3,
	})
	if err != nil {
		return status, errors.Wrap(err, errors.ErrInternal, "cannot compute diff")
	}
	status.Diff = diff
	return status, nil
}

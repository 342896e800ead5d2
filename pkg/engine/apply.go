package engine

import (
	goerrors "errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/arthur-debert/confit/pkg/errors"
	"github.com/arthur-debert/confit/pkg/logging"
	"github.com/arthur-debert/confit/pkg/types"
)

// TargetError records a per-target failure that did not abort the run
type TargetError struct {
	Target string
	Err    error
}

// Result summarizes one apply run
type Result struct {
	Actions []types.Action
	Applied int
	DryRun  bool
	Errors  []TargetError
}

// Failed reports whether any target failed
func (r *Result) Failed() bool {
	return len(r.Errors) > 0
}

// Apply plans and executes a run. In dry-run mode the plan is returned
// without any filesystem effect. A filesystem failure aborts only the
// target it occurred on; later groups still run. There is no rollback of
// already-written targets.
func (e *Engine) Apply(dryRun bool) (*Result, error) {
	logger := logging.GetLogger("engine")
	done := logging.LogOperationStart(logger, "apply")
	defer done()

	actions, err := e.Plan()
	if err != nil {
		return nil, err
	}

	result := &Result{Actions: actions, DryRun: dryRun}
	if dryRun {
		return result, nil
	}

	for _, action := range actions {
		if err := e.execute(action); err != nil {
			logger.Error().Err(err).Str("target", action.Target).Msg("target failed")
			result.Errors = append(result.Errors, TargetError{Target: action.Target, Err: err})
			continue
		}
		result.Applied++
	}
	return result, nil
}

func (e *Engine) execute(action types.Action) error {
	switch action.Kind {
	case types.ActionLink:
		return e.link(action.Source, action.Target)
	case types.ActionCopy:
		return e.copy(action.Source, action.Target)
	case types.ActionWrite:
		return e.write(action.Target, action.Content)
	case types.ActionRemove:
		return e.remove(action.Target)
	default:
		return errors.Newf(errors.ErrInternal, "unknown action kind %q", action.Kind)
	}
}

// link replaces the target with a relative symlink to the source
func (e *Engine) link(source, target string) error {
	if err := e.fs.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return errors.Wrapf(err, errors.ErrDirCreate, "cannot create parent of %s", target)
	}
	if err := e.clearTarget(target); err != nil {
		return err
	}

	rel, err := filepath.Rel(filepath.Dir(target), source)
	if err != nil {
		rel = source
	}
	if err := e.fs.Symlink(rel, target); err != nil {
		return errors.Wrapf(err, errors.ErrSymlinkCreate, "cannot link %s", target)
	}
	return nil
}

func (e *Engine) copy(source, target string) error {
	data, err := e.fs.ReadFile(source)
	if err != nil {
		return errors.Wrapf(err, errors.ErrFileAccess, "cannot read %s", source)
	}
	return e.write(target, string(data))
}

// write removes a symlink at the target first (so the write cannot follow
// it back into a source file), then writes via a temporary file and
// rename in the target's directory.
func (e *Engine) write(target, content string) error {
	if err := e.fs.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return errors.Wrapf(err, errors.ErrDirCreate, "cannot create parent of %s", target)
	}
	if err := e.clearTarget(target); err != nil {
		return err
	}

	tmp := filepath.Join(filepath.Dir(target), fmt.Sprintf(".%s.confit.tmp", filepath.Base(target)))
	if err := e.fs.WriteFile(tmp, []byte(content), 0644); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "cannot write %s", tmp)
	}
	if err := e.fs.Rename(tmp, target); err != nil {
		// Best effort cleanup of the temp file before surfacing the error
		_ = e.fs.Remove(tmp)
		return errors.Wrapf(err, errors.ErrFileWrite, "cannot move %s into place", target)
	}
	return nil
}

func (e *Engine) remove(target string) error {
	err := e.fs.Remove(target)
	if err != nil && !goerrors.Is(err, fs.ErrNotExist) {
		return errors.Wrapf(err, errors.ErrFileAccess, "cannot remove %s", target)
	}
	return nil
}

// clearTarget unlinks whatever currently sits at the target path.
// Missing targets are fine.
func (e *Engine) clearTarget(target string) error {
	info, err := e.fs.Lstat(target)
	if err != nil {
		if goerrors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return errors.Wrapf(err, errors.ErrFileAccess, "cannot stat %s", target)
	}
	if info.IsDir() {
		return errors.Newf(errors.ErrInvalidInput, "target %s is a directory", target)
	}
	if err := e.fs.Remove(target); err != nil {
		return errors.Wrapf(err, errors.ErrFileAccess, "cannot replace %s", target)
	}
	return nil
}

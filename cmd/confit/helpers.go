package main

import (
	"os"
	"path/filepath"

	"github.com/arthur-debert/confit/pkg/config"
	"github.com/arthur-debert/confit/pkg/engine"
	"github.com/arthur-debert/confit/pkg/filesystem"
	"github.com/arthur-debert/confit/pkg/paths"
	"github.com/arthur-debert/confit/pkg/types"
	"github.com/arthur-debert/confit/pkg/ui"
)

// runContext bundles what every command needs: the project layout, loaded
// settings, an engine over the real filesystem and a renderer for the
// resolved output format.
type runContext struct {
	fs       types.FS
	paths    types.Pather
	settings *config.Settings
	engine   *engine.Engine
	renderer *ui.Renderer
}

func newRunContext(filters []string) (*runContext, error) {
	pather, err := paths.New(projectRoot)
	if err != nil {
		return nil, err
	}
	settings, err := config.Load(pather.ProjectRoot())
	if err != nil {
		return nil, err
	}
	if len(filters) > 0 {
		settings.Filters = filters
	}

	format, err := ui.ParseFormat(formatFlag)
	if err != nil {
		return nil, err
	}

	filesys := filesystem.NewOS()
	return &runContext{
		fs:       filesys,
		paths:    pather,
		settings: settings,
		engine:   engine.New(filesys, pather, settings),
		renderer: ui.NewRenderer(ui.Resolve(format, os.Stdout)),
	}, nil
}

// rel shortens an absolute path to the project root for display
func (rc *runContext) rel(path string) string {
	r, err := filepath.Rel(rc.paths.ProjectRoot(), path)
	if err != nil {
		return path
	}
	return r
}

// abs resolves a command argument against the working directory
func abs(path string) (string, error) {
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, path), nil
}

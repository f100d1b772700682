package cmd

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cottand/tsz/project"
	"github.com/pkg/errors"
)

// loadTarget checks the programs at target, which is a program file or a folder
// searched recursively
func loadTarget(target string, settings project.LoadSettings) (*project.Project, error) {
	target, err := filepath.Abs(target)
	if err != nil {
		return nil, errors.Wrap(err, "could not get absolute path of target")
	}
	stat, err := os.Stat(target)
	if err != nil {
		return nil, errors.Wrap(err, "could not stat target")
	}

	rootDir := target
	if !stat.IsDir() {
		rootDir = filepath.Dir(target)
		settings.Only = []string{filepath.Base(target)}
	}
	loaded, err := project.Load(os.DirFS(rootDir), settings)
	if err != nil {
		return nil, errors.Wrapf(err, "could not load programs at %s", target)
	}
	return loaded, nil
}

// parseOverrides reads name=true|false compiler option flags. A bare name sets the option.
func parseOverrides(flags []string) (map[string]bool, error) {
	overrides := make(map[string]bool, len(flags))
	for _, o := range flags {
		name, value, found := strings.Cut(o, "=")
		switch {
		case !found, value == "true":
			overrides[name] = true
		case value == "false":
			overrides[name] = false
		default:
			return nil, errors.Errorf("option %s: expected true or false, got %q", name, value)
		}
	}
	return overrides, nil
}

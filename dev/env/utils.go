package devenv

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var modName = regexp.MustCompile(`(?m)^module *([\w\-_/.]+)$`)

func isWorkspaceRoot(currentdir string) bool {
	mod, err := os.ReadFile(filepath.Join(currentdir, "go.mod"))
	if err != nil {
		return false
	}
	matches := modName.FindSubmatch(mod)
	return len(matches) >= 2 && string(matches[1]) == "boxdstats"
}

// GetWorkspaceRoot walks up from the working directory to the directory holding the
// module's go.mod.
func GetWorkspaceRoot() (string, error) {
	currentdir, err := filepath.Abs(".")
	if err != nil {
		return "", err
	}
	for {
		if isWorkspaceRoot(currentdir) {
			return currentdir, nil
		}
		parent := filepath.Dir(currentdir)
		if parent == currentdir {
			return "", os.ErrNotExist
		}
		currentdir = parent
	}
}

// GetStateFilePath returns where `path` lives inside dev/.state, the directory is
// created if needed.
func GetStateFilePath(path string) (string, error) {
	root, err := GetWorkspaceRoot()
	if err != nil {
		return "", err
	}
	state := filepath.Join(root, "dev", ".state")
	err = os.MkdirAll(state, 0777)
	if err != nil {
		return "", err
	}
	return filepath.Join(state, path), nil
}

// ResolvePath resolves paths starting with "<dev_state>/" to dev/.state, anything else
// is returned as is.
func ResolvePath(path string) (string, error) {
	const prefix = "<dev_state>/"
	if !strings.HasPrefix(path, prefix) {
		return path, nil
	}
	return GetStateFilePath(strings.TrimPrefix(path, prefix))
}

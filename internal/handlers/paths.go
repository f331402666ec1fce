package handlers

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	errNoDocumentsDir   = errors.New("no documents directory is configured")
	errOutsideDocuments = errors.New("path is outside the documents directory")
)

// documentPath confines requested to root. Relative paths are resolved
// against the working directory, the same way registry sources are recorded.
// Symlinks are followed, so a link inside root cannot reach outside it.
// The result is root joined with the path's location inside root, which is
// the form directory ingestion records.
func documentPath(root, requested string) (string, error) {
	if root == "" {
		return "", errNoDocumentsDir
	}
	realRoot, err := realPath(root)
	if err != nil {
		return "", err
	}
	realTarget, err := realPath(requested)
	if err != nil {
		return "", err
	}

	rel, err := filepath.Rel(realRoot, realTarget)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", errOutsideDocuments, requested)
	}
	return filepath.Join(root, rel), nil
}

// realPath returns the absolute path with symlinks resolved. Missing trailing
// elements are kept as given once the longest existing prefix is resolved.
func realPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	parent := filepath.Dir(abs)
	if parent == abs {
		return abs, nil
	}
	resolvedParent, err := realPath(parent)
	if err != nil {
		return "", err
	}
	return filepath.Join(resolvedParent, filepath.Base(abs)), nil
}

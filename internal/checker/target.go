package checker

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// MetadataFile marks the root directory of a mod
const MetadataFile = ".metadata.yml"

var meshExtensions = map[string]bool{
	".stl": true,
}

// Target is one file to check
type Target struct {
	Path string
	// Name is the path shown in reports, relative to the input directory
	// when the file lies inside it
	Name   string
	ModDir string
}

// IsMeshFile reports whether path has a recognized mesh extension, ignoring case
func IsMeshFile(path string) bool {
	return meshExtensions[strings.ToLower(filepath.Ext(path))]
}

// CollectTargets resolves the files to check. Explicit paths are used in
// the given order, directories among them are searched; without paths the
// input directory is searched. Files without a mesh extension are skipped.
// When maxFiles > 0 the list is truncated and the number of dropped files
// is returned.
func CollectTargets(inputDir string, paths []string, maxFiles int) ([]Target, int, error) {
	if len(paths) == 0 {
		if inputDir == "" {
			return nil, 0, errors.New("no input files or input directory given")
		}
		paths = []string{inputDir}
	}

	var files []string
	seen := make(map[string]bool)
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to access %s: %w", p, err)
		}
		var found []string
		if info.IsDir() {
			found, err = discover(p)
			if err != nil {
				return nil, 0, err
			}
		} else if IsMeshFile(p) {
			found = []string{p}
		}
		for _, f := range found {
			clean := filepath.Clean(f)
			if !seen[clean] {
				seen[clean] = true
				files = append(files, clean)
			}
		}
	}

	dropped := 0
	if maxFiles > 0 && len(files) > maxFiles {
		dropped = len(files) - maxFiles
		files = files[:maxFiles]
	}

	targets := make([]Target, len(files))
	for i, f := range files {
		targets[i] = Target{
			Path:   f,
			Name:   displayName(inputDir, f),
			ModDir: ModDir(inputDir, f),
		}
	}
	return targets, dropped, nil
}

// discover walks root in lexical order and returns every mesh file,
// skipping hidden directories
func discover(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if IsMeshFile(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search %s: %w", root, err)
	}
	return files, nil
}

func displayName(inputDir, path string) string {
	if inputDir == "" {
		return filepath.ToSlash(path)
	}
	rel, err := filepath.Rel(inputDir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// ModDir returns the nearest directory above path that holds a metadata
// file, without leaving root when path lies inside it. It returns "" when
// there is none.
func ModDir(root, path string) string {
	dir := filepath.Dir(path)
	stop := ""
	if root != "" {
		if rel, err := filepath.Rel(root, dir); err == nil && !strings.HasPrefix(rel, "..") {
			stop = filepath.Clean(root)
		}
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, MetadataFile)); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if dir == stop || parent == dir {
			return ""
		}
		dir = parent
	}
}

package checker

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/philipparndt/stlcheck/pkg/analysis"
)

// IssueKind classifies a problem with the layout of a mod repository
type IssueKind string

const (
	IssueMissingMetadata   IssueKind = "missing-metadata"
	IssueInvalidMetadata   IssueKind = "invalid-metadata"
	IssueEmptyFileList     IssueKind = "empty-file-list"
	IssueMissingListedFile IssueKind = "missing-listed-file"
	IssueUnlistedMesh      IssueKind = "unlisted-mesh"
	IssueOutsideModFolder  IssueKind = "outside-mod-folder"
	IssueWhitespaceInPath  IssueKind = "whitespace-in-path"
	IssueLicenseFile       IssueKind = "license-file"
	IssueFileTooLarge      IssueKind = "file-too-large"
)

// Severity returns the severity every issue of the kind is reported with
func (k IssueKind) Severity() analysis.Severity {
	switch k {
	case IssueUnlistedMesh, IssueLicenseFile, IssueFileTooLarge:
		return analysis.SeverityWarning
	}
	return analysis.SeverityError
}

// Issue is one layout problem. Path and ModDir are slash separated and
// relative to the checked root.
type Issue struct {
	Kind     IssueKind         `json:"kind" yaml:"kind"`
	Severity analysis.Severity `json:"severity" yaml:"severity"`
	Path     string            `json:"path" yaml:"path"`
	ModDir   string            `json:"mod_dir,omitempty" yaml:"mod_dir,omitempty"`
	Message  string            `json:"message" yaml:"message"`
}

func newIssue(kind IssueKind, p, modDir, format string, args ...interface{}) Issue {
	return Issue{
		Kind:     kind,
		Severity: kind.Severity(),
		Path:     p,
		ModDir:   modDir,
		Message:  fmt.Sprintf(format, args...),
	}
}

// repoFile is a regular file found below the root
type repoFile struct {
	rel  string
	size int64
}

// CheckStructure inspects the layout of the mod repository below root:
// every directory at the configured mod depth must hold a valid metadata
// file whose listed files exist and which lists every mesh of the mod.
// Files above mod depth, paths with whitespace and optionally license
// files and oversized files are reported as well. Issues are returned in
// path order.
func (c *Checker) CheckStructure(ctx context.Context, root string) ([]Issue, error) {
	opts := c.cfg.Structure
	files, mods, err := scanRepository(ctx, root, opts.ModDepth)
	if err != nil {
		return nil, err
	}

	ignored := make(map[string]bool, len(opts.Ignore))
	for _, name := range opts.Ignore {
		ignored[name] = true
	}
	limit := int64(opts.MaxFileSizeMB * 1024 * 1024)

	var issues []Issue
	for _, f := range files {
		if depth(path.Dir(f.rel)) < opts.ModDepth && !ignored[path.Base(f.rel)] && !isHidden(path.Base(f.rel)) {
			issues = append(issues, newIssue(IssueOutsideModFolder, f.rel, "",
				"file is outside the expected %s folder structure", modPattern(opts.ModDepth)))
		}
		if strings.IndexFunc(f.rel, unicode.IsSpace) >= 0 {
			issues = append(issues, newIssue(IssueWhitespaceInPath, f.rel, modOf(f.rel, opts.ModDepth),
				"path contains whitespace"))
		}
		if opts.CheckLicense && strings.Contains(strings.ToLower(f.rel), "license") {
			issues = append(issues, newIssue(IssueLicenseFile, f.rel, modOf(f.rel, opts.ModDepth),
				"file looks like a license file"))
		}
		if limit > 0 && f.size > limit {
			issues = append(issues, newIssue(IssueFileTooLarge, f.rel, modOf(f.rel, opts.ModDepth),
				"file is larger than %g MB", opts.MaxFileSizeMB))
		}
	}

	present := make(map[string]bool, len(files))
	for _, f := range files {
		present[f.rel] = true
	}
	for _, mod := range mods {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		issues = append(issues, c.checkMod(root, mod, files, present)...)
	}

	sort.SliceStable(issues, func(i, j int) bool {
		return issues[i].Path < issues[j].Path
	})
	return issues, nil
}

// checkMod validates the metadata of one mod directory against its files
func (c *Checker) checkMod(root, mod string, files []repoFile, present map[string]bool) []Issue {
	metaRel := path.Join(mod, MetadataFile)
	if !present[metaRel] {
		return []Issue{newIssue(IssueMissingMetadata, mod, mod, "mod has no %s file", MetadataFile)}
	}

	md, err := LoadMetadata(filepath.Join(root, filepath.FromSlash(metaRel)))
	if err != nil {
		var merr *MetadataError
		reason := err.Error()
		if errors.As(err, &merr) {
			reason = merr.Reason
		}
		c.log.Warn("invalid mod metadata", zap.String("mod", mod), zap.Error(err))
		return []Issue{newIssue(IssueInvalidMetadata, metaRel, mod, "%s", reason)}
	}

	var issues []Issue
	if len(md.CAD) == 0 {
		issues = append(issues, newIssue(IssueEmptyFileList, metaRel, mod, "mod does not list any CAD files"))
	}
	if len(md.STL) == 0 {
		issues = append(issues, newIssue(IssueEmptyFileList, metaRel, mod, "mod does not list any STL files"))
	}

	listed := make(map[string]bool)
	for _, group := range [][]string{md.CAD, md.Images, md.STL} {
		for _, entry := range group {
			rel := path.Join(mod, filepath.ToSlash(entry))
			listed[rel] = true
			if !present[rel] {
				issues = append(issues, newIssue(IssueMissingListedFile, rel, mod,
					"file is listed in %s but does not exist", MetadataFile))
			}
		}
	}

	prefix := mod + "/"
	for _, f := range files {
		if strings.HasPrefix(f.rel, prefix) && IsMeshFile(f.rel) && !listed[f.rel] {
			issues = append(issues, newIssue(IssueUnlistedMesh, f.rel, mod,
				"mesh file is not listed in %s", MetadataFile))
		}
	}
	return issues
}

// scanRepository walks root in lexical order, skipping hidden directories.
// It returns every regular file and every directory at mod depth.
func scanRepository(ctx context.Context, root string, modDepth int) ([]repoFile, []string, error) {
	var (
		files []repoFile
		mods  []string
	)
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel == "." {
				return nil
			}
			if isHidden(d.Name()) {
				return filepath.SkipDir
			}
			if depth(rel) == modDepth {
				mods = append(mods, rel)
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		files = append(files, repoFile{rel: rel, size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to search %s: %w", root, err)
	}
	return files, mods, nil
}

// depth counts the segments of a slash separated relative directory
func depth(dir string) int {
	if dir == "." || dir == "" {
		return 0
	}
	return strings.Count(dir, "/") + 1
}

// modOf returns the mod directory rel belongs to, or "" above mod depth
func modOf(rel string, modDepth int) string {
	parts := strings.Split(rel, "/")
	if len(parts) <= modDepth {
		return ""
	}
	return strings.Join(parts[:modDepth], "/")
}

func modPattern(modDepth int) string {
	if modDepth == 2 {
		return "user/mod"
	}
	return fmt.Sprintf("%d level", modDepth)
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

func issueSeverity(issues []Issue) analysis.Severity {
	sev := analysis.SeverityOK
	for _, i := range issues {
		sev = analysis.MaxSeverity(sev, i.Severity)
	}
	return sev
}

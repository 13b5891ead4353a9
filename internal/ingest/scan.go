package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SourceFile is one session transcript found on disk.
type SourceFile struct {
	Path        string
	ProjectPath string
	Size        int64
	ModTime     time.Time
}

// DefaultRoots returns the standard transcript locations under the
// user's home directory.
func DefaultRoots() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	return []string{filepath.Join(home, ".claude", "projects")}
}

// SkippedSource is a transcript source the run could not read. The
// source stays untouched and is retried on the next run.
type SkippedSource struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// ScanRoots walks the given log roots and returns every .jsonl
// transcript. Files last modified before the days cutoff are excluded
// (days <= 0 means no cutoff), and a non-empty project filter keeps
// only files whose decoded project path contains it. An unreadable
// root or project directory never aborts the scan; it is reported as
// skipped and the walk continues.
func ScanRoots(roots []string, days int, project string) ([]SourceFile, []SkippedSource) {
	var cutoff time.Time
	if days > 0 {
		cutoff = time.Now().AddDate(0, 0, -days)
	}

	var files []SourceFile
	var skipped []SkippedSource
	for _, root := range roots {
		dirs, err := os.ReadDir(root)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			skipped = append(skipped, SkippedSource{Path: root, Reason: err.Error()})
			continue
		}
		for _, d := range dirs {
			if !d.IsDir() {
				continue
			}
			projectPath := DecodeProjectDir(d.Name())
			if project != "" && !strings.Contains(projectPath, project) {
				continue
			}
			dir := filepath.Join(root, d.Name())
			entries, err := os.ReadDir(dir)
			if err != nil {
				skipped = append(skipped, SkippedSource{Path: dir, Reason: err.Error()})
				continue
			}
			for _, e := range entries {
				if e.IsDir() || !strings.HasSuffix(e.Name(), ".jsonl") {
					continue
				}
				info, err := e.Info()
				if err != nil {
					continue
				}
				if !cutoff.IsZero() && info.ModTime().Before(cutoff) {
					continue
				}
				files = append(files, SourceFile{
					Path:        filepath.Join(dir, e.Name()),
					ProjectPath: projectPath,
					Size:        info.Size(),
					ModTime:     info.ModTime(),
				})
			}
		}
	}
	return files, skipped
}

// DecodeProjectDir converts an encoded project directory name back to
// a filesystem path. Transcript directories encode the project path by
// replacing separators with dashes, so "-home-sb-proj" decodes to
// "/home/sb/proj". The encoding is lossy for hyphenated directory
// names; the decoded form is used as an opaque project key, not
// resolved on disk.
func DecodeProjectDir(name string) string {
	if strings.HasPrefix(name, "-") {
		return "/" + strings.ReplaceAll(name[1:], "-", "/")
	}
	return strings.ReplaceAll(name, "-", "/")
}

package commit

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"gik/internal/ignore"
	"gik/internal/paths"
)

// errTooLarge signals that readCapped's size or line cap was exceeded;
// the caller translates it into a gikerrors.SourceTooLarge.
var errTooLarge = errors.New("source exceeds size or line cap")

// skipDirs mirrors internal/stack's scan skip-list: build output and
// dependency caches the commit pipeline should never walk into.
var skipDirs = map[string]bool{
	".git": true, "node_modules": true, "vendor": true, "target": true,
	"dist": true, "build": true, ".guided": true, "__pycache__": true,
}

// candidateFile is one file discovered while enumerating a pending
// source, before the size/line caps are applied.
type candidateFile struct {
	AbsPath string
	RelPath string
}

// enumerate walks a filePath or directory source rooted at absPath
// (workspaceRoot-relative paths are returned), applying ignore rules.
func enumerate(workspaceRoot, absPath string, matcher *ignore.Matcher) ([]candidateFile, error) {
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		rel, err := paths.CanonicalizePath(absPath, workspaceRoot)
		if err != nil {
			rel = paths.NormalizePath(absPath)
		}
		if matcher.Match(rel, false) {
			return nil, nil
		}
		return []candidateFile{{AbsPath: absPath, RelPath: rel}}, nil
	}

	var out []candidateFile
	err = filepath.WalkDir(absPath, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, relErr := paths.CanonicalizePath(path, workspaceRoot)
		if relErr != nil {
			return relErr
		}
		if d.IsDir() {
			if skipDirs[d.Name()] || matcher.Match(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if matcher.Match(rel, false) {
			return nil
		}
		out = append(out, candidateFile{AbsPath: path, RelPath: rel})
		return nil
	})
	return out, err
}

// readCapped reads a file's full content, enforcing the size and line
// caps of §4.4 step 3 (B1: a file exactly at the cap is accepted). It
// returns the content and line count, or a sentinel error identifying
// which cap was exceeded.
func readCapped(path string, maxBytes int64, maxLines int) (content string, lineCount int, err error) {
	info, statErr := os.Stat(path)
	if statErr != nil {
		return "", 0, statErr
	}
	if maxBytes > 0 && info.Size() > maxBytes {
		return "", 0, errTooLarge
	}

	f, openErr := os.Open(path)
	if openErr != nil {
		return "", 0, openErr
	}
	defer f.Close()

	data, readErr := io.ReadAll(f)
	if readErr != nil {
		return "", 0, readErr
	}

	lines := countLines(data)
	if maxLines > 0 && lines > maxLines {
		return "", 0, errTooLarge
	}
	return string(data), lines, nil
}

func countLines(data []byte) int {
	if len(data) == 0 {
		return 0
	}
	n := 1
	for _, b := range data {
		if b == '\n' {
			n++
		}
	}
	if data[len(data)-1] == '\n' {
		n--
	}
	return n
}

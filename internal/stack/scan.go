package stack

import (
	"io/fs"
	"path/filepath"
	"sort"
	"time"

	"gik/internal/kg"
)

// skipDirs lists directory names the scan never descends into: build
// output and dependency caches that would otherwise dominate the file
// tree and dependency list with content the workspace doesn't own.
var skipDirs = map[string]bool{
	".git": true, "node_modules": true, "vendor": true, "target": true,
	"dist": true, "build": true, ".guided": true, "__pycache__": true,
}

// ScanOptions bounds a scan.
type ScanOptions struct {
	Now time.Time
}

// Result is the full output of one workspace scan.
type Result struct {
	Files        []FileEntry
	Dependencies []DependencyEntry
	Tech         []TechEntry
	Stats        Stats
}

// Scan walks root, building the file tree, parsing every recognized
// manifest it encounters, and deriving a per-scan Stats summary.
func Scan(root string, opts ScanOptions) (Result, error) {
	var files []FileEntry
	var deps []DependencyEntry
	var tech []TechEntry
	languageCounts := make(map[string]int)
	dirFileCounts := make(map[string]int)
	managerSet := make(map[string]bool)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		if rel == "." {
			return nil
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			files = append(files, FileEntry{Path: rel, Kind: KindDir})
			return nil
		}

		parent := filepath.Dir(rel)
		dirFileCounts[parent]++

		lang := string(kg.DetectLanguage(rel))
		var langs []string
		if lang != "" {
			langs = []string{lang}
			languageCounts[lang]++
		}
		files = append(files, FileEntry{Path: rel, Kind: KindFile, Languages: langs})

		if parser, ok := manifestFor(d.Name()); ok {
			data, readErr := readManifest(path)
			if readErr != nil {
				return nil
			}
			parsedDeps, parsedTech, parseErr := parser(rel, data)
			if parseErr != nil {
				return nil
			}
			deps = append(deps, parsedDeps...)
			tech = append(tech, parsedTech...)
			for _, dep := range parsedDeps {
				managerSet[dep.Manager] = true
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	for i := range files {
		if files[i].Kind == KindDir {
			if count, ok := dirFileCounts[files[i].Path]; ok {
				c := count
				files[i].FileCount = &c
			}
		}
	}

	var managers []string
	for m := range managerSet {
		managers = append(managers, m)
	}
	sort.Strings(managers)

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	sort.Slice(deps, func(i, j int) bool {
		if deps[i].Manager != deps[j].Manager {
			return deps[i].Manager < deps[j].Manager
		}
		return deps[i].Name < deps[j].Name
	})
	sort.Slice(tech, func(i, j int) bool {
		if tech[i].Kind != tech[j].Kind {
			return tech[i].Kind < tech[j].Kind
		}
		return tech[i].Name < tech[j].Name
	})

	stats := Stats{
		TotalFiles:  countFiles(files),
		Languages:   languageCounts,
		Managers:    managers,
		GeneratedAt: opts.Now,
	}

	return Result{Files: files, Dependencies: deps, Tech: tech, Stats: stats}, nil
}

func countFiles(files []FileEntry) int {
	n := 0
	for _, f := range files {
		if f.Kind == KindFile {
			n++
		}
	}
	return n
}

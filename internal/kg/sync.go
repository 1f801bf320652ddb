package kg

import (
	"sort"
	"time"
)

// FileContent pairs a path with the text to extract symbols/imports from,
// the unit Sync consumes for one base's worth of files.
type FileContent struct {
	Path string
	Text string
}

// Sync rebuilds store's entire graph from files in one pass: extract every
// file independently, resolve relative import targets against the full
// file set, then Rebuild. This is the "full rebuild" KG sync strategy
// named in §4.4 step 9 and §4.9 ("current contract — simple to reason
// about; future versions may incrementalize").
func Sync(store *Store, branch string, files []FileContent, opts ExtractOptions, now time.Time) error {
	sorted := make([]FileContent, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	knownFiles := make(map[string]bool, len(sorted))
	for _, f := range sorted {
		knownFiles[f.Path] = true
	}

	var allNodes []Node
	var allEdges []Edge
	for _, f := range sorted {
		nodes, edges := ExtractFile(f.Path, branch, []byte(f.Text), opts, now)
		allNodes = append(allNodes, nodes...)
		allEdges = append(allEdges, edges...)
	}
	allEdges = ResolveImports(allEdges, knownFiles)

	return store.Rebuild(allNodes, allEdges, now)
}

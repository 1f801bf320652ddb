package kg

import (
	"path"
	"strings"
)

// resolvableExtensions lists the extensions resolveRelativeImport tries
// appending to a bare module specifier, in order, when looking for a
// matching indexed file.
var resolvableExtensions = []string{"", ".ts", ".tsx", ".js", ".jsx", ".py", ".rs", ".go", "/index.ts", "/index.js"}

// ResolveImports rewrites import edges whose target is still the raw
// "module:<specifier>" placeholder into a concrete "file:<path>" edge when
// the specifier resolves, relative to the importing file's directory, to
// one of knownFiles. Edges that don't resolve (external packages, crates
// not in this workspace) are left as unresolved module edges. This runs
// once per KG sync, after every file in the batch has been extracted, since
// resolution needs the full set of known files rather than one file at a
// time.
func ResolveImports(edges []Edge, knownFiles map[string]bool) []Edge {
	out := make([]Edge, len(edges))
	for i, e := range edges {
		out[i] = e
		if e.Kind != EdgeImports || !strings.HasPrefix(e.To, "module:") {
			continue
		}
		spec := strings.TrimPrefix(e.To, "module:")
		fromPath := strings.TrimPrefix(e.From, "file:")
		if resolved, ok := resolveRelativeImport(fromPath, spec, knownFiles); ok {
			out[i].To = FileNodeID(resolved)
			out[i].ID = edgeID(e.From, "imports", resolved)
			if out[i].Props != nil {
				delete(out[i].Props, "unresolved")
			}
		}
	}
	return out
}

func resolveRelativeImport(fromPath, spec string, knownFiles map[string]bool) (string, bool) {
	if !strings.HasPrefix(spec, "./") && !strings.HasPrefix(spec, "../") {
		return "", false
	}
	dir := path.Dir(fromPath)
	joined := path.Join(dir, spec)
	for _, ext := range resolvableExtensions {
		candidate := joined + ext
		if knownFiles[candidate] {
			return candidate, true
		}
	}
	return "", false
}

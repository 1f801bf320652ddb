package kg

import (
	"encoding/hex"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"
)

var (
	classExtendsRe    = regexp.MustCompile(`\bclass\s+(\w+)\s+extends\s+(\w+)`)
	classImplementsRe = regexp.MustCompile(`\bclass\s+(\w+)[^{]*\bimplements\s+([\w,\s]+)\{`)
	newInstanceRe     = regexp.MustCompile(`\bnew\s+([A-Z]\w*)\s*\(`)
)

// ExtractOptions bounds a single file's extraction.
type ExtractOptions struct {
	// MaxSymbolsPerFile caps symbol nodes emitted for one file; 0 means
	// unbounded.
	MaxSymbolsPerFile int
}

// ExtractFile runs every applicable extractor over one file's content and
// returns the nodes and edges it produces: a file node, import edges,
// an endpoint node/edge if the path is a route file, and symbol nodes with
// relation edges. now stamps CreatedAt/UpdatedAt on the returned nodes/edges
// (Store.Upsert* will preserve the true CreatedAt on replay).
func ExtractFile(path, branch string, content []byte, opts ExtractOptions, now time.Time) ([]Node, []Edge) {
	lang := DetectLanguage(path)
	text := string(content)

	fileID := FileNodeID(path)
	nodes := []Node{{
		ID: fileID, Kind: NodeFile, Label: path, Branch: branch,
		Props: map[string]any{"language": string(lang)},
	}}
	var edges []Edge

	for _, imp := range extractImports(lang, text) {
		edges = append(edges, Edge{
			ID:    edgeID(fileID, "imports", imp.raw),
			From:  fileID,
			To:    "module:" + imp.raw,
			Kind:  EdgeImports,
			Branch: branch,
			Props: map[string]any{"unresolved": true},
		})
	}

	if route := extractEndpointRoute(path); route != "" {
		endpointID := EndpointNodeID(route)
		nodes = append(nodes, Node{
			ID: endpointID, Kind: NodeEndpoint, Label: route, Branch: branch,
			Props: map[string]any{"route": route},
		})
		edges = append(edges, Edge{
			ID:   edgeID(fileID, "definesEndpoint", endpointID),
			From: fileID, To: endpointID, Kind: EdgeDefinesEndpoint, Branch: branch,
		})
	}

	symbols := extractFileSymbols(lang, text)
	if opts.MaxSymbolsPerFile > 0 && len(symbols) > opts.MaxSymbolsPerFile {
		symbols = symbols[:opts.MaxSymbolsPerFile]
	}

	seen := make(map[string]int)
	for _, sym := range symbols {
		idx := seen[sym.name]
		seen[sym.name] = idx + 1

		symID := SymbolNodeID(string(lang), path, sym.kind, sym.name, idx)
		props := map[string]any{}
		if sym.framework != "" {
			props["framework"] = sym.framework
		}
		nodes = append(nodes, Node{ID: symID, Kind: NodeSymbol, Label: sym.name, Branch: branch, Props: props})
		edges = append(edges, Edge{
			ID: edgeID(fileID, "defines", symID), From: fileID, To: symID, Kind: EdgeDefines, Branch: branch,
		})

		switch sym.kind {
		case SymUIComponent:
			edges = append(edges, Edge{
				ID: edgeID(fileID, "usesUiComponent", symID), From: fileID, To: symID,
				Kind: EdgeUsesUIComponent, Branch: branch, Props: map[string]any{"unresolved": true},
			})
		case SymNgModule:
			edges = append(edges, Edge{
				ID: edgeID(fileID, "belongsToModule", symID), From: fileID, To: symID,
				Kind: EdgeBelongsToModule, Branch: branch,
			})
		}
	}

	for _, m := range classExtendsRe.FindAllStringSubmatch(text, -1) {
		subID := SymbolNodeID(string(lang), path, SymClass, m[1], 0)
		edges = append(edges, Edge{
			ID: edgeID(subID, "extends", m[2]), From: subID, To: "sym:" + m[2],
			Kind: EdgeExtends, Branch: branch, Props: map[string]any{"unresolved": true},
		})
	}
	for _, m := range classImplementsRe.FindAllStringSubmatch(text, -1) {
		subID := SymbolNodeID(string(lang), path, SymClass, m[1], 0)
		for _, iface := range strings.Split(m[2], ",") {
			iface = strings.TrimSpace(iface)
			if iface == "" {
				continue
			}
			edges = append(edges, Edge{
				ID: edgeID(subID, "implements", iface), From: subID, To: "sym:" + iface,
				Kind: EdgeImplements, Branch: branch, Props: map[string]any{"unresolved": true},
			})
		}
	}
	for _, m := range newInstanceRe.FindAllStringSubmatch(text, -1) {
		edges = append(edges, Edge{
			ID: edgeID(fileID, "usesClass", m[1]), From: fileID, To: "sym:" + m[1],
			Kind: EdgeUsesClass, Branch: branch, Props: map[string]any{"unresolved": true},
		})
	}

	for i := range nodes {
		nodes[i].CreatedAt, nodes[i].UpdatedAt = now, now
	}
	for i := range edges {
		edges[i].CreatedAt, edges[i].UpdatedAt = now, now
	}

	return nodes, edges
}

// edgeID derives a short, deterministic id from an edge's endpoints and
// kind. Endpoint strings (especially symbol ids) can be long, so the id is
// a hash rather than their concatenation; blake2b-256 gives a stable,
// collision-resistant digest without pulling in a general hashing package
// for what is fundamentally a fingerprint.
func edgeID(from, kind, to string) string {
	sum := blake2b.Sum256([]byte(from + "->" + kind + "->" + to))
	return "edge:" + hex.EncodeToString(sum[:8])
}

// Package kg implements the knowledge graph: a store of nodes and edges
// extracted from a branch's code and docs bases, plus the per-language
// regex-driven extractors that produce them. The graph is not built from a
// parser — imports, endpoints, and symbols are all recognized by pattern,
// trading precision for coverage across many languages with one code path.
package kg

import (
	"strconv"
	"time"
)

// NodeKind identifies what a node represents.
type NodeKind string

const (
	NodeFile     NodeKind = "file"
	NodeEndpoint NodeKind = "endpoint"
	NodeSymbol   NodeKind = "symbol"
)

// SymbolKind enumerates the symbol shapes extractors recognize, spanning
// general-purpose language constructs and frontend-specific ones.
type SymbolKind string

const (
	SymFunction       SymbolKind = "function"
	SymClass          SymbolKind = "class"
	SymInterface      SymbolKind = "interface"
	SymStruct         SymbolKind = "struct"
	SymTrait          SymbolKind = "trait"
	SymModule         SymbolKind = "module"
	SymConstant       SymbolKind = "constant"
	SymType           SymbolKind = "type"
	SymReactComponent SymbolKind = "reactComponent"
	SymUIComponent    SymbolKind = "uiComponent"
	SymNgComponent    SymbolKind = "ngComponent"
	SymNgModule       SymbolKind = "ngModule"
	SymNgService      SymbolKind = "ngService"
	SymNgRoute        SymbolKind = "ngRoute"
	SymStyleClass     SymbolKind = "styleClass"
	SymStyleID        SymbolKind = "styleId"
	SymCSSVariable    SymbolKind = "cssVariable"
	SymTailwindDir    SymbolKind = "tailwindDirective"
	SymHTMLTemplate   SymbolKind = "htmlTemplate"
	SymHTMLSection    SymbolKind = "htmlSection"
	SymHTMLAnchor     SymbolKind = "htmlAnchor"
)

// EdgeKind identifies the relation an edge represents.
type EdgeKind string

const (
	EdgeImports         EdgeKind = "imports"
	EdgeDefines         EdgeKind = "defines"
	EdgeDefinesEndpoint EdgeKind = "definesEndpoint"
	EdgeCalls           EdgeKind = "calls"
	EdgeContains        EdgeKind = "contains"
	EdgeExtends         EdgeKind = "extends"
	EdgeImplements      EdgeKind = "implements"
	EdgeUsesClass       EdgeKind = "usesClass"
	EdgeUsesUIComponent EdgeKind = "usesUiComponent"
	EdgeBelongsToModule EdgeKind = "belongsToModule"
	EdgeDependsOn       EdgeKind = "dependsOn"
	EdgeRelatedTo       EdgeKind = "relatedTo"
)

// Node is one vertex in the knowledge graph.
type Node struct {
	ID        string            `json:"id"`
	Kind      NodeKind          `json:"kind"`
	Label     string            `json:"label"`
	Props     map[string]any    `json:"props,omitempty"`
	Branch    string            `json:"branch,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// Edge is one directed relation between two nodes. Both endpoints SHOULD
// reference existing nodes, but extractors may emit an edge to a symbol
// they have not yet seen defined; such edges carry props["unresolved"]=true.
type Edge struct {
	ID        string         `json:"id"`
	From      string         `json:"from"`
	To        string         `json:"to"`
	Kind      EdgeKind       `json:"kind"`
	Props     map[string]any `json:"props,omitempty"`
	Branch    string         `json:"branch,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// FileNodeID returns the node id convention for a file path.
func FileNodeID(path string) string {
	return "file:" + path
}

// EndpointNodeID returns the node id convention for a route.
func EndpointNodeID(route string) string {
	return "endpoint:" + route
}

// SymbolNodeID returns the node id convention for a symbol, with idx > 0
// appended to disambiguate duplicate names within the same file.
func SymbolNodeID(lang, path string, kind SymbolKind, name string, idx int) string {
	id := "sym:" + lang + ":" + path + ":" + string(kind) + ":" + name
	if idx > 0 {
		id += "#" + strconv.Itoa(idx)
	}
	return id
}

// Stats summarizes the graph's current size.
type Stats struct {
	NodeCount   int       `json:"nodeCount"`
	EdgeCount   int       `json:"edgeCount"`
	GeneratedAt time.Time `json:"generatedAt"`
}

package kg

import "regexp"

var (
	jsImportRe    = regexp.MustCompile(`(?m)^\s*import\s+(?:[\w*{}\s,]+\s+from\s+)?['"]([^'"]+)['"]`)
	jsRequireRe   = regexp.MustCompile(`require\(\s*['"]([^'"]+)['"]\s*\)`)
	rustUseRe     = regexp.MustCompile(`(?m)^\s*use\s+((?:crate|super|self)::[\w:{}, ]+);`)
	rustModRe     = regexp.MustCompile(`(?m)^\s*mod\s+(\w+)\s*;`)
	pyImportRe    = regexp.MustCompile(`(?m)^\s*import\s+([\w.]+)`)
	pyFromRe      = regexp.MustCompile(`(?m)^\s*from\s+([\w.]+)\s+import\s+`)
)

// importTarget is a raw module/path reference found in source text before
// it is resolved to a node id. The extractor does not resolve relative
// paths against the filesystem; it records the literal reference as an
// edge target, matching the "edges SHOULD reference existing nodes (soft)"
// contract in the data model.
type importTarget struct {
	raw string
}

// extractImports returns the raw import/use/require targets found in
// content, using the pattern set appropriate to lang.
func extractImports(lang Language, content string) []importTarget {
	var out []importTarget
	switch lang {
	case LangJavaScript, LangTypeScript:
		for _, m := range jsImportRe.FindAllStringSubmatch(content, -1) {
			out = append(out, importTarget{raw: m[1]})
		}
		for _, m := range jsRequireRe.FindAllStringSubmatch(content, -1) {
			out = append(out, importTarget{raw: m[1]})
		}
	case LangRust:
		for _, m := range rustUseRe.FindAllStringSubmatch(content, -1) {
			out = append(out, importTarget{raw: m[1]})
		}
		for _, m := range rustModRe.FindAllStringSubmatch(content, -1) {
			out = append(out, importTarget{raw: m[1]})
		}
	case LangPython:
		for _, m := range pyImportRe.FindAllStringSubmatch(content, -1) {
			out = append(out, importTarget{raw: m[1]})
		}
		for _, m := range pyFromRe.FindAllStringSubmatch(content, -1) {
			out = append(out, importTarget{raw: m[1]})
		}
	}
	return out
}

// Package ignore implements the ignore-file layer named as an external
// collaborator in spec §6: ".does this path match ignore rules?" against
// the workspace-root ignore file (.gikignore) and source-control ignore
// (.git/info/exclude, root .gitignore), with the project file winning ties
// per §9's design note ("Ignore rule precedence").
package ignore

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// rule is one parsed line from an ignore file.
type rule struct {
	pattern   string
	negate    bool
	dirOnly   bool
	anchored  bool // pattern contained a '/' other than a trailing one
}

// Matcher evaluates a path against an ordered set of rule sets. Per §4.4
// step 2, the project ignore file's rules are applied, then source-control
// rules; the project file wins on conflict, which this implementation
// achieves by evaluating project rules last (last match wins in gitignore
// semantics) so a project-file re-inclusion (negation) overrides an
// exclusion from .gitignore/.git/info/exclude.
type Matcher struct {
	vcsRules     []rule
	projectRules []rule
}

// Load builds a Matcher for workspaceRoot: .gikignore is the project
// ignore file; .gitignore and .git/info/exclude are the source-control
// ignore files. Missing files are simply empty rule sets.
func Load(workspaceRoot string) (*Matcher, error) {
	m := &Matcher{}

	vcsFiles := []string{
		filepath.Join(workspaceRoot, ".gitignore"),
		filepath.Join(workspaceRoot, ".git", "info", "exclude"),
	}
	for _, f := range vcsFiles {
		rules, err := parseFile(f)
		if err != nil {
			return nil, err
		}
		m.vcsRules = append(m.vcsRules, rules...)
	}

	projectRules, err := parseFile(filepath.Join(workspaceRoot, ".gikignore"))
	if err != nil {
		return nil, err
	}
	m.projectRules = projectRules

	return m, nil
}

func parseFile(path string) ([]rule, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var rules []rule
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimRight(line, " ")
		if trimmed == "" || strings.HasPrefix(strings.TrimSpace(trimmed), "#") {
			continue
		}
		r := rule{pattern: trimmed}
		if strings.HasPrefix(r.pattern, "!") {
			r.negate = true
			r.pattern = r.pattern[1:]
		}
		if strings.HasSuffix(r.pattern, "/") {
			r.dirOnly = true
			r.pattern = strings.TrimSuffix(r.pattern, "/")
		}
		if strings.Contains(strings.TrimPrefix(r.pattern, "/"), "/") {
			r.anchored = true
		}
		r.pattern = strings.TrimPrefix(r.pattern, "/")
		rules = append(rules, r)
	}
	return rules, scanner.Err()
}

// Match reports whether relPath (slash-separated, relative to the
// workspace root) should be ignored. isDir tells dirOnly patterns whether
// they apply. Rule sets are evaluated in gitignore's "last match wins"
// order, first the source-control rules, then the project rules, so a
// project-file rule always has the final say.
func (m *Matcher) Match(relPath string, isDir bool) bool {
	if m == nil {
		return false
	}
	relPath = filepath.ToSlash(relPath)
	ignored := false
	for _, r := range m.vcsRules {
		if r.matches(relPath, isDir) {
			ignored = !r.negate
		}
	}
	for _, r := range m.projectRules {
		if r.matches(relPath, isDir) {
			ignored = !r.negate
		}
	}
	return ignored
}

func (r rule) matches(relPath string, isDir bool) bool {
	if r.dirOnly && !isDir {
		return false
	}
	candidate := relPath
	if r.anchored {
		ok, _ := filepath.Match(r.pattern, candidate)
		if ok {
			return true
		}
		// Also allow the pattern to match a parent directory prefix.
		return strings.HasPrefix(candidate, r.pattern+"/")
	}
	// Unanchored patterns match the basename at any depth.
	base := candidate
	if idx := strings.LastIndex(candidate, "/"); idx >= 0 {
		base = candidate[idx+1:]
	}
	if ok, _ := filepath.Match(r.pattern, base); ok {
		return true
	}
	ok, _ := filepath.Match(r.pattern, candidate)
	return ok
}

// Package release implements read-only changelog generation (§4.12):
// walking the timeline between two revisions, parsing Commit messages as
// Conventional Commits, grouping by canonical type, and rendering Markdown.
// The release operation never appends a revision; Release stays reserved
// in the operation union for a future "record release" behavior.
package release

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	gikerrors "gik/internal/errors"
	"gik/internal/fsutil"
	"gik/internal/timeline"
)

// Dependencies are the collaborators Run needs.
type Dependencies struct {
	WorkspaceRoot string
	Branch        string
	Timeline      *timeline.Timeline
}

// Options parameterizes one release invocation.
type Options struct {
	Tag    string
	From   string
	To     string
	DryRun bool
}

// Entry is one parsed Conventional Commit.
type Entry struct {
	Type        string
	Scope       string
	Breaking    bool
	Description string
	RevisionID  string
}

// Group is every entry of one canonical commit type.
type Group struct {
	Type    string
	Entries []Entry
}

// Summary is the changelog Run produced.
type Summary struct {
	Tag          string
	From         string
	To           string
	Groups       []Group
	WrittenPath  string
	DryRun       bool
}

// canonicalOrder fixes the grouping order §4.12 names.
var canonicalOrder = []string{
	"feat", "fix", "perf", "refactor", "docs", "style",
	"test", "build", "ci", "chore", "revert", "other",
}

var conventionalPattern = regexp.MustCompile(`^(\w+)(?:\(([^)]*)\))?(!)?:\s*(.+)$`)

// Run walks the timeline between opts.From (exclusive, root if empty) and
// opts.To (inclusive, HEAD if empty), parses every Commit revision's
// message, groups by canonical type, and renders a Markdown file at
// <workspaceRoot>/CHANGELOG.md — fully regenerated, never merged. DryRun
// returns the summary without writing.
func Run(deps Dependencies, opts Options) (Summary, error) {
	revs, err := deps.Timeline.Between(opts.From, opts.To)
	if err != nil {
		return Summary{}, err
	}

	byType := make(map[string][]Entry)
	for _, rev := range revs {
		if !hasCommitOp(rev) {
			continue
		}
		entry, ok := parseConventional(rev.Message, rev.ID)
		if !ok {
			entry = Entry{Type: "other", Description: rev.Message, RevisionID: rev.ID}
		}
		byType[entry.Type] = append(byType[entry.Type], entry)
	}

	var groups []Group
	for _, t := range canonicalOrder {
		if entries, ok := byType[t]; ok {
			groups = append(groups, Group{Type: t, Entries: entries})
		}
	}

	summary := Summary{Tag: opts.Tag, From: opts.From, To: resolvedTo(opts.To), Groups: groups, DryRun: opts.DryRun}

	if opts.DryRun {
		return summary, nil
	}

	path := filepath.Join(deps.WorkspaceRoot, "CHANGELOG.md")
	if err := fsutil.WriteFileAtomic(path, []byte(render(summary)), 0o644); err != nil {
		return Summary{}, gikerrors.Wrap(gikerrors.IoFailed, err, "writing changelog")
	}
	summary.WrittenPath = path
	return summary, nil
}

func resolvedTo(to string) string {
	if to == "" {
		return "HEAD"
	}
	return to
}

func hasCommitOp(rev timeline.Revision) bool {
	for _, op := range rev.Operations {
		if op.Type == timeline.OpCommit {
			return true
		}
	}
	return false
}

// parseConventional parses "type(scope)!?: description" per §4.12. Commits
// not matching the pattern are the caller's responsibility to bucket under
// "other".
func parseConventional(message, revisionID string) (Entry, bool) {
	m := conventionalPattern.FindStringSubmatch(strings.TrimSpace(message))
	if m == nil {
		return Entry{}, false
	}
	commitType := strings.ToLower(m[1])
	if !isCanonicalType(commitType) {
		commitType = "other"
	}
	return Entry{
		Type:        commitType,
		Scope:       m[2],
		Breaking:    m[3] == "!",
		Description: m[4],
		RevisionID:  revisionID,
	}, true
}

func isCanonicalType(t string) bool {
	for _, c := range canonicalOrder {
		if c == t {
			return true
		}
	}
	return false
}

// render produces the changelog Markdown, one heading per non-empty group
// in canonical order.
func render(s Summary) string {
	var b strings.Builder
	title := "Changelog"
	if s.Tag != "" {
		title = fmt.Sprintf("Changelog — %s", s.Tag)
	}
	fmt.Fprintf(&b, "# %s\n\n", title)

	if len(s.Groups) == 0 {
		b.WriteString("No changes.\n")
		return b.String()
	}

	for _, g := range s.Groups {
		fmt.Fprintf(&b, "## %s\n\n", strings.Title(g.Type))
		for _, e := range g.Entries {
			line := e.Description
			if e.Scope != "" {
				line = fmt.Sprintf("**%s:** %s", e.Scope, line)
			}
			if e.Breaking {
				line = "**BREAKING** " + line
			}
			fmt.Fprintf(&b, "- %s (%s)\n", line, shortID(e.RevisionID))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

package release

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gik/internal/timeline"
)

func fixedNow() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }

func seedRevisions(t *testing.T, tl *timeline.Timeline) (initID, v1ID string) {
	t.Helper()
	init := timeline.NewRevision("", "main", "", "init", fixedNow(), timeline.InitOp())
	if err := tl.Append(init); err != nil {
		t.Fatalf("append init: %v", err)
	}

	feat := timeline.NewRevision(init.ID, "main", "", "feat(auth): add login flow", fixedNow().Add(time.Minute), timeline.CommitOp([]string{"code"}, 1))
	if err := tl.Append(feat); err != nil {
		t.Fatalf("append feat: %v", err)
	}

	fix := timeline.NewRevision(feat.ID, "main", "", "fix: correct nil check", fixedNow().Add(2*time.Minute), timeline.CommitOp([]string{"code"}, 1))
	if err := tl.Append(fix); err != nil {
		t.Fatalf("append fix: %v", err)
	}

	breaking := timeline.NewRevision(fix.ID, "main", "", "feat(api)!: drop legacy endpoint", fixedNow().Add(3*time.Minute), timeline.CommitOp([]string{"code"}, 1))
	if err := tl.Append(breaking); err != nil {
		t.Fatalf("append breaking: %v", err)
	}

	malformed := timeline.NewRevision(breaking.ID, "main", "", "cleaned up some stuff", fixedNow().Add(4*time.Minute), timeline.CommitOp([]string{"code"}, 1))
	if err := tl.Append(malformed); err != nil {
		t.Fatalf("append malformed: %v", err)
	}

	return init.ID, malformed.ID
}

func TestRunGroupsByCanonicalTypeAndWritesChangelog(t *testing.T) {
	branchDir := t.TempDir()
	tl := timeline.Open(branchDir)
	initID, _ := seedRevisions(t, tl)

	workspaceRoot := t.TempDir()
	deps := Dependencies{WorkspaceRoot: workspaceRoot, Branch: "main", Timeline: tl}

	summary, err := Run(deps, Options{Tag: "v1.0.0", From: initID})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(summary.Groups) == 0 {
		t.Fatalf("expected at least one group")
	}
	if summary.Groups[0].Type != "feat" {
		t.Fatalf("expected feat group first, got %q", summary.Groups[0].Type)
	}
	if len(summary.Groups[0].Entries) != 2 {
		t.Fatalf("expected 2 feat entries, got %d", len(summary.Groups[0].Entries))
	}

	var sawBreaking bool
	for _, e := range summary.Groups[0].Entries {
		if e.Breaking {
			sawBreaking = true
		}
	}
	if !sawBreaking {
		t.Fatalf("expected one feat entry flagged breaking")
	}

	path := filepath.Join(workspaceRoot, "CHANGELOG.md")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected changelog file: %v", err)
	}
	if !strings.Contains(string(data), "BREAKING") {
		t.Fatalf("expected changelog to mark breaking change, got: %s", data)
	}
	if summary.WrittenPath != path {
		t.Fatalf("expected WrittenPath %q, got %q", path, summary.WrittenPath)
	}
}

func TestRunBucketsNonConventionalMessageAsOther(t *testing.T) {
	branchDir := t.TempDir()
	tl := timeline.Open(branchDir)
	initID, headID := seedRevisions(t, tl)

	deps := Dependencies{WorkspaceRoot: t.TempDir(), Branch: "main", Timeline: tl}
	summary, err := Run(deps, Options{From: initID, To: headID})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	var other *Group
	for i := range summary.Groups {
		if summary.Groups[i].Type == "other" {
			other = &summary.Groups[i]
		}
	}
	if other == nil || len(other.Entries) != 1 {
		t.Fatalf("expected exactly one other-bucketed entry, got %+v", summary.Groups)
	}
	if other.Entries[0].Description != "cleaned up some stuff" {
		t.Fatalf("expected raw message preserved, got %q", other.Entries[0].Description)
	}
}

func TestRunDryRunDoesNotWriteOrAppendRevision(t *testing.T) {
	branchDir := t.TempDir()
	tl := timeline.Open(branchDir)
	initID, _ := seedRevisions(t, tl)

	headBefore, err := tl.Head()
	if err != nil {
		t.Fatalf("head before: %v", err)
	}

	workspaceRoot := t.TempDir()
	deps := Dependencies{WorkspaceRoot: workspaceRoot, Branch: "main", Timeline: tl}
	summary, err := Run(deps, Options{From: initID, DryRun: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.WrittenPath != "" {
		t.Fatalf("expected no file written in dry run, got %q", summary.WrittenPath)
	}
	if _, err := os.Stat(filepath.Join(workspaceRoot, "CHANGELOG.md")); err == nil {
		t.Fatalf("expected no changelog file on disk for dry run")
	}

	headAfter, err := tl.Head()
	if err != nil {
		t.Fatalf("head after: %v", err)
	}
	if headAfter != headBefore {
		t.Fatalf("expected release to never append a revision, HEAD moved from %q to %q", headBefore, headAfter)
	}
}

func TestRunWithNoMatchingCommitsProducesEmptyChangelog(t *testing.T) {
	branchDir := t.TempDir()
	tl := timeline.Open(branchDir)
	init := timeline.NewRevision("", "main", "", "init", fixedNow(), timeline.InitOp())
	if err := tl.Append(init); err != nil {
		t.Fatalf("append init: %v", err)
	}

	deps := Dependencies{WorkspaceRoot: t.TempDir(), Branch: "main", Timeline: tl}
	summary, err := Run(deps, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(summary.Groups) != 0 {
		t.Fatalf("expected no groups, got %+v", summary.Groups)
	}

	data, err := os.ReadFile(summary.WrittenPath)
	if err != nil {
		t.Fatalf("expected changelog file: %v", err)
	}
	if !strings.Contains(string(data), "No changes.") {
		t.Fatalf("expected empty-changelog message, got: %s", data)
	}
}

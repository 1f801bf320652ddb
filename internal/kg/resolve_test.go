package kg

import "testing"

func TestResolveImportsRewritesRelativeTarget(t *testing.T) {
	nodesA, edgesA := ExtractFile("a.ts", "main", []byte(`import { x } from './b'`), ExtractOptions{}, fixedNow)
	_, edgesB := ExtractFile("b.ts", "main", []byte(`export const x = 1`), ExtractOptions{}, fixedNow)
	_ = nodesA

	known := map[string]bool{"a.ts": true, "b.ts": true}
	resolved := ResolveImports(append(edgesA, edgesB...), known)

	found := false
	for _, e := range resolved {
		if e.Kind == EdgeImports && e.From == "file:a.ts" && e.To == "file:b.ts" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected resolved import edge file:a.ts -> file:b.ts, got %+v", resolved)
	}
}

func TestResolveImportsLeavesExternalUnresolved(t *testing.T) {
	_, edges := ExtractFile("a.ts", "main", []byte(`import { useState } from 'react'`), ExtractOptions{}, fixedNow)
	resolved := ResolveImports(edges, map[string]bool{"a.ts": true})
	for _, e := range resolved {
		if e.Kind == EdgeImports && e.To != "module:react" {
			t.Fatalf("expected external import to remain unresolved, got %+v", e)
		}
	}
}

package kg

import (
	"testing"
	"time"
)

var fixedNow = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestExtractFileJSImportsAndFunctions(t *testing.T) {
	content := []byte(`
import { useState } from 'react'
const helper = require('./helper')

export function DoThing() {
  return useState(0)
}
`)
	nodes, edges := ExtractFile("src/thing.js", "main", content, ExtractOptions{}, fixedNow)

	if nodes[0].Kind != NodeFile || nodes[0].ID != "file:src/thing.js" {
		t.Fatalf("expected file node first, got %+v", nodes[0])
	}

	var importEdges int
	for _, e := range edges {
		if e.Kind == EdgeImports {
			importEdges++
		}
	}
	if importEdges != 2 {
		t.Fatalf("expected 2 import edges, got %d: %+v", importEdges, edges)
	}

	foundFunc := false
	for _, n := range nodes {
		if n.Kind == NodeSymbol && n.Label == "DoThing" {
			foundFunc = true
		}
	}
	if !foundFunc {
		t.Fatalf("expected symbol node for DoThing, got %+v", nodes)
	}
}

func TestExtractFileEndpointNextAppRouter(t *testing.T) {
	nodes, edges := ExtractFile("app/api/users/route.ts", "main", []byte("export async function GET() {}"), ExtractOptions{}, fixedNow)

	var endpoint *Node
	for i := range nodes {
		if nodes[i].Kind == NodeEndpoint {
			endpoint = &nodes[i]
		}
	}
	if endpoint == nil {
		t.Fatalf("expected an endpoint node, got %+v", nodes)
	}
	if endpoint.ID != "endpoint:/users" {
		t.Fatalf("unexpected endpoint id %q", endpoint.ID)
	}

	found := false
	for _, e := range edges {
		if e.Kind == EdgeDefinesEndpoint && e.To == endpoint.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected definesEndpoint edge to %s", endpoint.ID)
	}
}

func TestExtractFileDuplicateSymbolNamesDisambiguate(t *testing.T) {
	content := []byte(`
function handler() {}
function handler() {}
`)
	nodes, _ := ExtractFile("src/dup.js", "main", content, ExtractOptions{}, fixedNow)

	var ids []string
	for _, n := range nodes {
		if n.Kind == NodeSymbol {
			ids = append(ids, n.ID)
		}
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 symbol nodes, got %v", ids)
	}
	if ids[0] == ids[1] {
		t.Fatalf("expected disambiguated ids, got duplicate %q", ids[0])
	}
}

func TestExtractFileMaxSymbolsPerFile(t *testing.T) {
	content := []byte(`
function a() {}
function b() {}
function c() {}
`)
	nodes, _ := ExtractFile("src/many.js", "main", content, ExtractOptions{MaxSymbolsPerFile: 1}, fixedNow)

	count := 0
	for _, n := range nodes {
		if n.Kind == NodeSymbol {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly 1 symbol node under the cap, got %d", count)
	}
}

func TestExtractFilePythonImportsAndClass(t *testing.T) {
	content := []byte(`
import os
from pkg.mod import thing

class Widget:
    def render(self):
        pass
`)
	nodes, edges := ExtractFile("app/widget.py", "main", content, ExtractOptions{}, fixedNow)

	importCount := 0
	for _, e := range edges {
		if e.Kind == EdgeImports {
			importCount++
		}
	}
	if importCount != 2 {
		t.Fatalf("expected 2 import edges, got %d", importCount)
	}

	foundClass := false
	for _, n := range nodes {
		if n.Kind == NodeSymbol && n.Label == "Widget" {
			foundClass = true
		}
	}
	if !foundClass {
		t.Fatalf("expected symbol node for Widget class")
	}
}

func TestExtractFileRustUseAndStruct(t *testing.T) {
	content := []byte(`
use crate::engine::Config;
use super::util;

pub struct Engine {
    name: String,
}
`)
	nodes, edges := ExtractFile("src/engine.rs", "main", content, ExtractOptions{}, fixedNow)

	importCount := 0
	for _, e := range edges {
		if e.Kind == EdgeImports {
			importCount++
		}
	}
	if importCount != 2 {
		t.Fatalf("expected 2 import edges, got %d", importCount)
	}

	foundStruct := false
	for _, n := range nodes {
		if n.Kind == NodeSymbol && n.Label == "Engine" {
			foundStruct = true
		}
	}
	if !foundStruct {
		t.Fatalf("expected symbol node for Engine struct")
	}
}

func TestExtractFileCSSClassesAndVariables(t *testing.T) {
	content := []byte(`
.card { color: red; }
#header { color: blue; }
:root { --brand-color: #fff; }
@tailwind base;
`)
	nodes, _ := ExtractFile("styles/app.css", "main", content, ExtractOptions{}, fixedNow)

	var labels []string
	for _, n := range nodes {
		if n.Kind == NodeSymbol {
			labels = append(labels, n.Label)
		}
	}
	if len(labels) < 3 {
		t.Fatalf("expected at least 3 css symbol nodes, got %v", labels)
	}
}

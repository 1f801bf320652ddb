package kg

import (
	"encoding/json"
	"path/filepath"
	"sort"
	"time"

	gikerrors "gik/internal/errors"
	"gik/internal/fsutil"
)

// Store persists a branch's knowledge graph as two append-only JSONL logs,
// nodes.jsonl and edges.jsonl, plus a stats.json summary. The directory is
// created lazily: Store never creates it on Open, only on the first Upsert.
type Store struct {
	dir string
}

// Open returns a Store rooted at dir (the branch's kg/ directory). It does
// not touch the filesystem.
func Open(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) nodesPath() string { return filepath.Join(s.dir, "nodes.jsonl") }
func (s *Store) edgesPath() string { return filepath.Join(s.dir, "edges.jsonl") }
func (s *Store) statsPath() string { return filepath.Join(s.dir, "stats.json") }

// Nodes returns every node currently in the store, folding the append-only
// log down to the latest version of each id. Returns an empty slice, not
// an error, when the store has never been written to.
func (s *Store) Nodes() ([]Node, error) {
	latest := make(map[string]Node)
	var order []string
	err := fsutil.ReadJSONLines(s.nodesPath(), func(line []byte) error {
		var n Node
		if err := json.Unmarshal(line, &n); err != nil {
			return gikerrors.Wrap(gikerrors.SerializationFailed, err, "parsing kg node")
		}
		if _, seen := latest[n.ID]; !seen {
			order = append(order, n.ID)
		}
		latest[n.ID] = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]Node, 0, len(order))
	for _, id := range order {
		out = append(out, latest[id])
	}
	return out, nil
}

// Edges returns every edge currently in the store, folded the same way.
func (s *Store) Edges() ([]Edge, error) {
	latest := make(map[string]Edge)
	var order []string
	err := fsutil.ReadJSONLines(s.edgesPath(), func(line []byte) error {
		var e Edge
		if err := json.Unmarshal(line, &e); err != nil {
			return gikerrors.Wrap(gikerrors.SerializationFailed, err, "parsing kg edge")
		}
		if _, seen := latest[e.ID]; !seen {
			order = append(order, e.ID)
		}
		latest[e.ID] = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]Edge, 0, len(order))
	for _, id := range order {
		out = append(out, latest[id])
	}
	return out, nil
}

// UpsertNodes appends a node record for each of nodes, stamping CreatedAt
// on first appearance and UpdatedAt always, per the "update props and bump
// updatedAt on conflict" contract. now is supplied by the caller.
func (s *Store) UpsertNodes(nodes []Node, now time.Time) error {
	if len(nodes) == 0 {
		return nil
	}
	existing, err := s.Nodes()
	if err != nil {
		return err
	}
	createdAt := make(map[string]time.Time, len(existing))
	for _, n := range existing {
		createdAt[n.ID] = n.CreatedAt
	}

	for _, n := range nodes {
		if t, ok := createdAt[n.ID]; ok {
			n.CreatedAt = t
		} else {
			n.CreatedAt = now
		}
		n.UpdatedAt = now
		data, err := json.Marshal(n)
		if err != nil {
			return gikerrors.Wrap(gikerrors.SerializationFailed, err, "encoding kg node")
		}
		if err := fsutil.AppendLine(s.nodesPath(), data); err != nil {
			return gikerrors.Wrap(gikerrors.IoFailed, err, "appending kg node")
		}
	}
	return nil
}

// UpsertEdges appends an edge record for each of edges, with the same
// created/updated bookkeeping as UpsertNodes.
func (s *Store) UpsertEdges(edges []Edge, now time.Time) error {
	if len(edges) == 0 {
		return nil
	}
	existing, err := s.Edges()
	if err != nil {
		return err
	}
	createdAt := make(map[string]time.Time, len(existing))
	for _, e := range existing {
		createdAt[e.ID] = e.CreatedAt
	}

	for _, e := range edges {
		if t, ok := createdAt[e.ID]; ok {
			e.CreatedAt = t
		} else {
			e.CreatedAt = now
		}
		e.UpdatedAt = now
		data, err := json.Marshal(e)
		if err != nil {
			return gikerrors.Wrap(gikerrors.SerializationFailed, err, "encoding kg edge")
		}
		if err := fsutil.AppendLine(s.edgesPath(), data); err != nil {
			return gikerrors.Wrap(gikerrors.IoFailed, err, "appending kg edge")
		}
	}
	return nil
}

// Rebuild replaces the entire graph with nodes and edges in one pass,
// matching the "full rebuild" sync strategy (commit/reindex regenerate a
// branch's KG from scratch rather than incrementalizing).
func (s *Store) Rebuild(nodes []Node, edges []Edge, now time.Time) error {
	if err := clearFile(s.nodesPath()); err != nil {
		return err
	}
	if err := clearFile(s.edgesPath()); err != nil {
		return err
	}
	if err := s.UpsertNodes(nodes, now); err != nil {
		return err
	}
	if err := s.UpsertEdges(edges, now); err != nil {
		return err
	}
	return s.writeStats(len(nodes), len(edges), now)
}

func clearFile(path string) error {
	if err := fsutil.WriteFileAtomic(path, nil, 0o644); err != nil {
		return gikerrors.Wrap(gikerrors.IoFailed, err, "clearing "+path)
	}
	return nil
}

func (s *Store) writeStats(nodeCount, edgeCount int, now time.Time) error {
	stats := Stats{NodeCount: nodeCount, EdgeCount: edgeCount, GeneratedAt: now}
	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return gikerrors.Wrap(gikerrors.SerializationFailed, err, "encoding kg stats")
	}
	if err := fsutil.WriteFileAtomic(s.statsPath(), data, 0o644); err != nil {
		return gikerrors.Wrap(gikerrors.IoFailed, err, "writing kg stats")
	}
	return nil
}

// NodesByKind filters Nodes() by kind, sorted by id for deterministic output.
func (s *Store) NodesByKind(kind NodeKind) ([]Node, error) {
	all, err := s.Nodes()
	if err != nil {
		return nil, err
	}
	var out []Node
	for _, n := range all {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// EdgesFrom returns every edge whose From field equals id.
func (s *Store) EdgesFrom(id string) ([]Edge, error) {
	all, err := s.Edges()
	if err != nil {
		return nil, err
	}
	var out []Edge
	for _, e := range all {
		if e.From == id {
			out = append(out, e)
		}
	}
	return out, nil
}

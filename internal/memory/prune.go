package memory

import (
	"time"

	gikerrors "gik/internal/errors"
	"gik/internal/vectorindex"
)

// PruneMode selects what happens to an entry selected for pruning.
type PruneMode string

const (
	PruneModeDelete  PruneMode = "delete"
	PruneModeArchive PruneMode = "archive"
)

// PruningPolicy bounds the memory base's size. An entry is pruned when it
// matches ANY configured condition (the conditions OR together, not AND).
type PruningPolicy struct {
	MaxEntries          *int     `json:"maxEntries,omitempty"`
	MaxEstimatedTokens   *int     `json:"maxEstimatedTokens,omitempty"`
	MaxAgeDays           *int     `json:"maxAgeDays,omitempty"`
	ObsoleteTags         []string `json:"obsoleteTags,omitempty"`
	Mode                 PruneMode `json:"mode"`
}

// Validate checks that a policy names a recognized mode and at least one
// bound; a policy with no conditions would prune nothing, which is almost
// certainly a configuration mistake the caller should be told about.
func (p PruningPolicy) Validate() error {
	switch p.Mode {
	case PruneModeDelete, PruneModeArchive:
	default:
		return gikerrors.Newf(gikerrors.MissingPruningPolicy, "pruning policy mode %q is not recognized", p.Mode)
	}
	if p.MaxEntries == nil && p.MaxEstimatedTokens == nil && p.MaxAgeDays == nil && len(p.ObsoleteTags) == 0 {
		return gikerrors.New(gikerrors.MissingPruningPolicy, "pruning policy has no conditions configured").
			WithNextAction("set at least one of maxEntries, maxEstimatedTokens, maxAgeDays, or obsoleteTags")
	}
	return nil
}

// PruneResult reports what a prune pass did. Count is the total number of
// entries removed from the live set (archived + deleted).
type PruneResult struct {
	Count         int
	ArchivedCount int
	DeletedCount  int
}

// Prune applies policy to the store's current live entries and returns what
// was removed. It does not write a revision; callers emit MemoryPrune only
// when Count > 0. When index is non-nil, every condemned entry's vector is
// also deleted from it, matching the contract that pruned entries drop out
// of retrieval entirely regardless of mode.
func Prune(store *Store, index *vectorindex.Adapter, policy PruningPolicy, now time.Time) (PruneResult, error) {
	if err := policy.Validate(); err != nil {
		return PruneResult{}, err
	}
	entries, err := store.Entries()
	if err != nil {
		return PruneResult{}, err
	}

	obsolete := make(map[string]bool, len(policy.ObsoleteTags))
	for _, t := range policy.ObsoleteTags {
		obsolete[t] = true
	}

	var survivors, condemned []Entry
	for _, e := range entries {
		if hasObsoleteTag(e, obsolete) || exceedsMaxAge(e, policy.MaxAgeDays, now) {
			condemned = append(condemned, e)
			continue
		}
		survivors = append(survivors, e)
	}

	survivors = sortedByCreatedAt(survivors)
	survivors, overflow := evictOverflow(survivors, policy)
	condemned = append(condemned, overflow...)

	var result PruneResult
	for _, e := range condemned {
		switch policy.Mode {
		case PruneModeArchive:
			if err := store.Archive(e, now); err != nil {
				return result, err
			}
			result.ArchivedCount++
		case PruneModeDelete:
			if err := store.Delete(e.ID, now); err != nil {
				return result, err
			}
			result.DeletedCount++
		}
		if index != nil {
			if _, err := index.Delete([]uint64{VectorID(e.ID)}); err != nil {
				return result, err
			}
		}
		result.Count++
	}
	return result, nil
}

func hasObsoleteTag(e Entry, obsolete map[string]bool) bool {
	for _, tag := range e.Tags {
		if obsolete[tag] {
			return true
		}
	}
	return false
}

func exceedsMaxAge(e Entry, maxAgeDays *int, now time.Time) bool {
	if maxAgeDays == nil {
		return false
	}
	age := now.Sub(e.CreatedAt)
	return age > time.Duration(*maxAgeDays)*24*time.Hour
}

// evictOverflow removes the oldest survivors until maxEntries and
// maxEstimatedTokens (whichever configured) are satisfied, returning the
// entries still kept and the ones evicted for size.
func evictOverflow(survivors []Entry, policy PruningPolicy) ([]Entry, []Entry) {
	var evicted []Entry
	for len(survivors) > 0 && violatesSizeBound(survivors, policy) {
		evicted = append(evicted, survivors[0])
		survivors = survivors[1:]
	}
	return survivors, evicted
}

func violatesSizeBound(survivors []Entry, policy PruningPolicy) bool {
	if policy.MaxEntries != nil && len(survivors) > *policy.MaxEntries {
		return true
	}
	if policy.MaxEstimatedTokens != nil {
		total := 0
		for _, e := range survivors {
			total += EstimatedTokenCount(e.Text)
		}
		if total > *policy.MaxEstimatedTokens {
			return true
		}
	}
	return false
}

package task

import "github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/domain"

type leaseEntry struct {
	ref   domain.ArtifactRef
	count int
}

// leaseTable counts holders per artifact. It is not safe for concurrent use;
// the dispatcher guards it with its own mutex.
type leaseTable struct {
	entries map[string]*leaseEntry
}

func newLeaseTable() *leaseTable {
	return &leaseTable{entries: make(map[string]*leaseEntry)}
}

// acquire adds a holder for ref.
func (t *leaseTable) acquire(ref domain.ArtifactRef) {
	if ref.IsZero() {
		return
	}
	e, ok := t.entries[ref.ID]
	if !ok {
		e = &leaseEntry{ref: ref}
		t.entries[ref.ID] = e
	}
	e.count++
}

// drop removes a holder for ref and reports whether it was the last one, in
// which case the caller must release the artifact.
func (t *leaseTable) drop(ref domain.ArtifactRef) (domain.ArtifactRef, bool) {
	e, ok := t.entries[ref.ID]
	if !ok {
		return domain.ArtifactRef{}, false
	}
	e.count--
	if e.count > 0 {
		return domain.ArtifactRef{}, false
	}
	delete(t.entries, ref.ID)
	return e.ref, true
}

// held reports the number of holders of ref.
func (t *leaseTable) held(ref domain.ArtifactRef) int {
	if e, ok := t.entries[ref.ID]; ok {
		return e.count
	}
	return 0
}

func (t *leaseTable) len() int {
	return len(t.entries)
}

package crdt

import (
	"sort"
	"strings"
	"sync"
)

// holds the merged state of one session's document.
//
// The state is the set of all accepted updates keyed by (origin, seq).
// Merge is set union, which is commutative, associative and idempotent, so
// replicas converge regardless of delivery order or duplication. The
// visible text is a deterministic fold over that set and is recomputed on
// demand rather than kept as shared mutable state.
type Document struct {
	mu      sync.RWMutex
	updates map[updateKey]Update
	clock   uint64
}

// creates an empty document
func NewDocument() *Document {
	return &Document{
		updates: make(map[updateKey]Update),
	}
}

// merges a single update into the document.
//
// Returns true if the update was new, false if it had already been applied
// (idempotent no-op). A structurally invalid update is rejected and never
// stored.
func (d *Document) Apply(u Update) (bool, error) {
	if err := ValidateUpdate(&u); err != nil {
		return false, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	key := updateKey{origin: u.Origin, seq: u.Seq}

	if _, exists := d.updates[key]; exists {
		return false, nil
	}

	d.updates[key] = u

	if u.Clock > d.clock {
		d.clock = u.Clock
	}

	return true, nil
}

// merges a batch of updates, returning how many were new
func (d *Document) ApplyAll(updates []Update) (int, error) {
	applied := 0

	for _, u := range updates {
		fresh, err := d.Apply(u)
		if err != nil {
			return applied, err
		}

		if fresh {
			applied++
		}
	}

	return applied, nil
}

// returns the highest sequence seen per origin
func (d *Document) StateVector() StateVector {
	d.mu.RLock()
	defer d.mu.RUnlock()

	vector := make(StateVector)

	for key := range d.updates {
		if key.seq > vector[key.origin] {
			vector[key.origin] = key.seq
		}
	}

	return vector
}

// returns every update the remote replica is missing, in deterministic order
func (d *Document) Diff(remote StateVector) []Update {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var missing []Update

	for key, u := range d.updates {
		if key.seq > remote[key.origin] {
			missing = append(missing, u)
		}
	}

	sortUpdates(missing)
	return missing
}

// returns the next lamport clock value for a local mutation
func (d *Document) NextClock() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.clock++
	return d.clock
}

// returns the number of stored updates
func (d *Document) UpdateCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.updates)
}

// materializes the document text.
//
// Updates fold in (clock, origin, seq) order; the order is total and depends
// only on the update set, so any two replicas holding the same set produce
// byte-identical text. Out-of-range positions are clamped, never rejected.
func (d *Document) Text() string {
	d.mu.RLock()
	ordered := make([]Update, 0, len(d.updates))
	for _, u := range d.updates {
		ordered = append(ordered, u)
	}
	d.mu.RUnlock()

	sortUpdates(ordered)

	var text []rune

	for _, u := range ordered {
		for _, op := range u.Ops {
			text = applyOp(text, op)
		}
	}

	return string(text)
}

// applies one op to the text, clamping positions into range
func applyOp(text []rune, op Op) []rune {
	pos := op.Pos
	if pos > len(text) {
		pos = len(text)
	}

	switch op.Kind {
	case OpInsert:
		inserted := []rune(op.Text)
		out := make([]rune, 0, len(text)+len(inserted))
		out = append(out, text[:pos]...)
		out = append(out, inserted...)
		out = append(out, text[pos:]...)
		return out

	case OpDelete:
		end := pos + op.Len
		if end > len(text) {
			end = len(text)
		}
		out := make([]rune, 0, len(text)-(end-pos))
		out = append(out, text[:pos]...)
		out = append(out, text[end:]...)
		return out
	}

	return text
}

// orders updates by (clock, origin, seq)
func sortUpdates(updates []Update) {
	sort.Slice(updates, func(i, j int) bool {
		if updates[i].Clock != updates[j].Clock {
			return updates[i].Clock < updates[j].Clock
		}

		if cmp := strings.Compare(updates[i].Origin, updates[j].Origin); cmp != 0 {
			return cmp < 0
		}

		return updates[i].Seq < updates[j].Seq
	})
}

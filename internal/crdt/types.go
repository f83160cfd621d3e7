package crdt

import "errors"

// operation kinds carried inside an update
const (
	OpInsert = "insert"
	OpDelete = "delete"
)

// errors
var (
	ErrInvalidUpdate = errors.New("invalid update")
	ErrEmptyOrigin   = errors.New("update has no origin")
	ErrZeroSequence  = errors.New("update sequence must be positive")
)

// a single text mutation within an update
type Op struct {
	Kind string `json:"kind"`           // "insert" or "delete"
	Pos  int    `json:"pos"`            // rune offset the op targets
	Text string `json:"text,omitempty"` // inserted text (insert only)
	Len  int    `json:"len,omitempty"`  // number of runes removed (delete only)
}

// an atomic, mergeable document mutation emitted by one connection.
//
// The (Origin, Seq) pair identifies the update globally: merging is a keyed
// set union, so redelivery and reordering are both harmless. Clock is a
// lamport timestamp used only to order updates deterministically when the
// document text is materialized.
type Update struct {
	Origin string `json:"origin"`
	Seq    uint64 `json:"seq"`
	Clock  uint64 `json:"clock"`
	Ops    []Op   `json:"ops"`
}

// maps each origin to the highest update sequence seen from it
type StateVector map[string]uint64

// key identifying one update within the document set
type updateKey struct {
	origin string
	seq    uint64
}

// checks an update for structural validity before it may be merged
func ValidateUpdate(u *Update) error {
	if u.Origin == "" {
		return ErrEmptyOrigin
	}

	if u.Seq == 0 {
		return ErrZeroSequence
	}

	if len(u.Ops) == 0 {
		return ErrInvalidUpdate
	}

	for _, op := range u.Ops {
		switch op.Kind {
		case OpInsert:
			if op.Pos < 0 || op.Text == "" {
				return ErrInvalidUpdate
			}
		case OpDelete:
			if op.Pos < 0 || op.Len <= 0 {
				return ErrInvalidUpdate
			}
		default:
			return ErrInvalidUpdate
		}
	}

	return nil
}

package crdt

import "encoding/json"

// payload of a sync1 message: the sender's state vector
type Sync1Payload struct {
	Vector StateVector `json:"vector"`
}

// payload of a sync2 message: the delta the receiver is missing plus the
// sender's own vector, so the receiver can answer with what the sender lacks
type Sync2Payload struct {
	Updates []Update    `json:"updates"`
	Vector  StateVector `json:"vector"`
}

// computes the sync2 reply for a peer's sync1 vector
func (d *Document) SyncReply(remote StateVector) Sync2Payload {
	return Sync2Payload{
		Updates: d.Diff(remote),
		Vector:  d.StateVector(),
	}
}

// decodes an update message payload
func DecodeUpdate(payload []byte) (Update, error) {
	var u Update
	if err := json.Unmarshal(payload, &u); err != nil {
		return Update{}, err
	}

	if err := ValidateUpdate(&u); err != nil {
		return Update{}, err
	}

	return u, nil
}

// decodes a sync1 message payload
func DecodeSync1(payload []byte) (Sync1Payload, error) {
	var p Sync1Payload
	if err := json.Unmarshal(payload, &p); err != nil {
		return Sync1Payload{}, err
	}

	if p.Vector == nil {
		p.Vector = make(StateVector)
	}

	return p, nil
}

// decodes a sync2 message payload
func DecodeSync2(payload []byte) (Sync2Payload, error) {
	var p Sync2Payload
	if err := json.Unmarshal(payload, &p); err != nil {
		return Sync2Payload{}, err
	}

	for i := range p.Updates {
		if err := ValidateUpdate(&p.Updates[i]); err != nil {
			return Sync2Payload{}, err
		}
	}

	return p, nil
}

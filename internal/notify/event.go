package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/nerrad567/gray-logic-records/internal/store"
)

// Event is a store mutation with a delivery identity.
type Event struct {
	ID           string    `json:"id" msgpack:"id"`
	Op           store.Op  `json:"op" msgpack:"op"`
	Table        string    `json:"table" msgpack:"table"`
	RowsAffected int64     `json:"rows_affected" msgpack:"rows_affected"`
	IDs          []int64   `json:"ids,omitempty" msgpack:"ids,omitempty"`
	At           time.Time `json:"at" msgpack:"at"`
}

func newEvent(id string, ev store.MutationEvent) Event {
	return Event{
		ID:           id,
		Op:           ev.Op,
		Table:        ev.Table,
		RowsAffected: ev.RowsAffected,
		IDs:          ev.IDs,
		At:           ev.At,
	}
}

// Payload encodings.
const (
	EncodingJSON    = "json"
	EncodingMsgpack = "msgpack"
)

// Encoder serialises an event for an external transport.
type Encoder func(Event) ([]byte, error)

// EncodeJSON encodes ev as a JSON object.
func EncodeJSON(ev Event) ([]byte, error) {
	return json.Marshal(ev)
}

// EncodeMsgpack encodes ev as a MessagePack map keyed like the JSON form.
func EncodeMsgpack(ev Event) ([]byte, error) {
	return msgpack.Marshal(ev)
}

// EncoderFor returns the encoder for name. Empty selects JSON.
func EncoderFor(name string) (Encoder, error) {
	switch name {
	case "", EncodingJSON:
		return EncodeJSON, nil
	case EncodingMsgpack:
		return EncodeMsgpack, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
	}
}

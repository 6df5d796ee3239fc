// Package txbuilder turns validated domain input into unsigned move-call
// descriptors. Builders are pure: same input, same bytes.
package txbuilder

import (
	"encoding/json"
	"strconv"

	"github.com/geocoder89/suiticket/internal/contract"
	"github.com/geocoder89/suiticket/internal/domain/event"
)

type ArgKind string

const (
	ArgObject ArgKind = "object"
	ArgString ArgKind = "string"
	ArgU64    ArgKind = "u64"
)

type Argument struct {
	Kind  ArgKind `json:"kind"`
	Value string  `json:"value"`
}

// Call is a single move call. Arguments are positional and match the
// entry point's signature.
type Call struct {
	Target    string     `json:"target"`
	Arguments []Argument `json:"arguments"`
}

func Object(id string) Argument { return Argument{Kind: ArgObject, Value: id} }

func String(s string) Argument { return Argument{Kind: ArgString, Value: s} }

func U64(n uint64) Argument {
	return Argument{Kind: ArgU64, Value: strconv.FormatUint(n, 10)}
}

func InitEventCounter(reg contract.Registry) Call {
	return Call{
		Target:    reg.Target(contract.FunctionEventCounterInit),
		Arguments: []Argument{},
	}
}

// CreateEvent expects a form that already passed Validate, so MaxTickets
// is positive.
func CreateEvent(reg contract.Registry, form event.Form, counterID string) Call {
	return Call{
		Target: reg.Target(contract.FunctionCreateEvent),
		Arguments: []Argument{
			Object(counterID),
			String(form.Name),
			String(form.Description),
			String(form.Date),
			String(form.Location),
			String(form.Image),
			U64(uint64(form.MaxTickets)),
		},
	}
}

func MintTicket(reg contract.Registry, eventID string, seatNumber uint64) Call {
	return Call{
		Target:    reg.Target(contract.FunctionCreateTicket),
		Arguments: []Argument{Object(eventID), U64(seatNumber)},
	}
}

// Encode is the wire form handed to the signer.
func (c Call) Encode() ([]byte, error) {
	return json.Marshal(c)
}

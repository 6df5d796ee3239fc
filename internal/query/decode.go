package query

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/geocoder89/suiticket/internal/domain/event"
	"github.com/geocoder89/suiticket/internal/domain/ticket"
	"github.com/geocoder89/suiticket/internal/suirpc"
)

// u64 accepts both the string form the fullnode uses for u64 fields and a
// plain JSON number.
type u64 uint64

func (n *u64) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*n = 0
		return nil
	}

	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return err
		}
		*n = u64(v)
		return nil
	}

	v, err := strconv.ParseUint(string(b), 10, 64)
	if err != nil {
		return err
	}
	*n = u64(v)
	return nil
}

type eventFields struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Location    string `json:"location"`
	Image       string `json:"image"`
	MaxTickets  u64    `json:"max_tickets"`
	TicketsSold u64    `json:"tickets_sold"`
	Organizer   string `json:"organizer"`
}

type ticketFields struct {
	Owner      string `json:"owner"`
	EventID    string `json:"event_id"`
	SeatNumber u64    `json:"seat_number"`
}

func fieldsOf(obj suirpc.ObjectData) (json.RawMessage, bool) {
	if obj.ObjectID == "" || obj.Content == nil || len(obj.Content.Fields) == 0 {
		return nil, false
	}
	if string(obj.Content.Fields) == "null" {
		return nil, false
	}
	return obj.Content.Fields, true
}

func decodeEvent(obj suirpc.ObjectData) (event.Event, bool) {
	raw, ok := fieldsOf(obj)
	if !ok {
		return event.Event{}, false
	}

	var f eventFields
	if err := json.Unmarshal(raw, &f); err != nil {
		return event.Event{}, false
	}

	return event.Event{
		ID:          obj.ObjectID,
		Name:        f.Name,
		Description: f.Description,
		Date:        f.Date,
		Location:    f.Location,
		Image:       f.Image,
		MaxTickets:  uint64(f.MaxTickets),
		TicketsSold: uint64(f.TicketsSold),
		Organizer:   f.Organizer,
	}, true
}

func decodeTicket(obj suirpc.ObjectData) (ticket.Ticket, bool) {
	raw, ok := fieldsOf(obj)
	if !ok {
		return ticket.Ticket{}, false
	}

	var f ticketFields
	if err := json.Unmarshal(raw, &f); err != nil {
		return ticket.Ticket{}, false
	}

	return ticket.Ticket{
		ID:         obj.ObjectID,
		EventID:    f.EventID,
		Owner:      f.Owner,
		SeatNumber: uint64(f.SeatNumber),
	}, true
}

func decodeCreatedEventID(parsed json.RawMessage) (string, bool) {
	var body struct {
		EventID string `json:"event_id"`
	}
	if len(parsed) == 0 || json.Unmarshal(parsed, &body) != nil || body.EventID == "" {
		return "", false
	}
	return body.EventID, true
}

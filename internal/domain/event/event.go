package event

import (
	"encoding/json"
	"errors"
	"strings"
)

// Event is a read snapshot of the on-chain object. The contract owns
// capacity and sold counts; nothing here mutates them.
type Event struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Location    string `json:"location"`
	Image       string `json:"image,omitempty"`
	MaxTickets  uint64 `json:"maxTickets"`
	TicketsSold uint64 `json:"ticketsSold"`
	Organizer   string `json:"organizer"`
}

var ErrNotFound = errors.New("event not found")

func (e Event) SoldOut() bool {
	return e.TicketsSold >= e.MaxTickets
}

// PercentSold is rounded to the nearest whole percent.
func (e Event) PercentSold() int {
	if e.MaxTickets == 0 {
		return 0
	}
	return int((e.TicketsSold*100 + e.MaxTickets/2) / e.MaxTickets)
}

// MarshalJSON adds the derived percentSold and soldOut fields the panels
// display next to each event.
func (e Event) MarshalJSON() ([]byte, error) {
	type plain Event
	return json.Marshal(struct {
		plain
		PercentSold int  `json:"percentSold"`
		SoldOut     bool `json:"soldOut"`
	}{plain(e), e.PercentSold(), e.SoldOut()})
}

// FilterByOrganizer keeps events whose organizer equals addr.
func FilterByOrganizer(events []Event, addr string) []Event {
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if e.Organizer == addr {
			out = append(out, e)
		}
	}
	return out
}

func FindByID(events []Event, id string) (Event, error) {
	for _, e := range events {
		if e.ID == id {
			return e, nil
		}
	}
	return Event{}, ErrNotFound
}

// Form is the organizer's create-event input.
type Form struct {
	Name        string
	Description string
	Date        string
	Location    string
	Image       string
	MaxTickets  int64
}

const (
	MsgNameRequired        = "Event name is required"
	MsgDescriptionRequired = "Event description is required"
	MsgDateRequired        = "Event date is required"
	MsgLocationRequired    = "Event location is required"
	MsgMaxTicketsPositive  = "Maximum tickets must be greater than 0"
)

// Validate returns every problem with the form, in field order. An empty
// result means the form can be submitted.
func (f Form) Validate() []string {
	errs := make([]string, 0)

	if strings.TrimSpace(f.Name) == "" {
		errs = append(errs, MsgNameRequired)
	}
	if strings.TrimSpace(f.Description) == "" {
		errs = append(errs, MsgDescriptionRequired)
	}
	if strings.TrimSpace(f.Date) == "" {
		errs = append(errs, MsgDateRequired)
	}
	if strings.TrimSpace(f.Location) == "" {
		errs = append(errs, MsgLocationRequired)
	}
	if f.MaxTickets <= 0 {
		errs = append(errs, MsgMaxTicketsPositive)
	}

	return errs
}

// CreateEventRequest is the HTTP shape of Form. Emptiness is left to
// Form.Validate so clients get the same messages the form shows.
type CreateEventRequest struct {
	Name        string `json:"name" binding:"max=120"`
	Description string `json:"description" binding:"max=1000"`
	Date        string `json:"date" binding:"max=80"`
	Location    string `json:"location" binding:"max=120"`
	Image       string `json:"image" binding:"omitempty,url,max=2048"`
	MaxTickets  int64  `json:"maxTickets"`
}

func (r CreateEventRequest) Form() Form {
	return Form{
		Name:        r.Name,
		Description: r.Description,
		Date:        r.Date,
		Location:    r.Location,
		Image:       r.Image,
		MaxTickets:  r.MaxTickets,
	}
}

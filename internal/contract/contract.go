package contract

import "strings"

const (
	ModuleEventTicketing = "event_ticketing"

	FunctionCreateEvent      = "create_event"
	FunctionCreateTicket     = "create_ticket"
	FunctionEventCounterInit = "event_counter_init"

	structEvent        = "Event"
	structTicket       = "Ticket"
	structEventCounter = "EventCounter"
	structEventCreated = "EventCreated"
)

// Registry names the deployed package. Everything else is derived from the
// package id so a redeploy only changes one value.
type Registry struct {
	PackageID string
}

func New(packageID string) Registry {
	return Registry{PackageID: strings.TrimSpace(packageID)}
}

func (r Registry) Target(function string) string {
	return r.PackageID + "::" + ModuleEventTicketing + "::" + function
}

func (r Registry) typeTag(name string) string {
	return r.PackageID + "::" + ModuleEventTicketing + "::" + name
}

func (r Registry) EventType() string { return r.typeTag(structEvent) }

func (r Registry) TicketType() string { return r.typeTag(structTicket) }

func (r Registry) EventCounterType() string { return r.typeTag(structEventCounter) }

// EventCreatedType is the move event emitted by create_event.
func (r Registry) EventCreatedType() string { return r.typeTag(structEventCreated) }

package ticket

type Ticket struct {
	ID         string `json:"id"`
	EventID    string `json:"eventId,omitempty"`
	Owner      string `json:"owner"`
	SeatNumber uint64 `json:"seatNumber"`
}

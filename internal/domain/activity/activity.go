package activity

import (
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindInitCounter Kind = "init_counter"
	KindCreateEvent Kind = "create_event"
	KindMintTicket  Kind = "mint_ticket"
)

// Record is one transaction this gateway handed to the signer. The ledger
// stays the source of truth; this is only the caller's own history.
type Record struct {
	ID        string    `json:"id"`
	Account   string    `json:"account"`
	Kind      Kind      `json:"kind"`
	Digest    string    `json:"digest"`
	Target    string    `json:"target"`
	ObjectID  string    `json:"objectId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type CreateRequest struct {
	Account  string
	Kind     Kind
	Digest   string
	Target   string
	ObjectID string
}

func New(req CreateRequest) Record {
	return Record{
		ID:        uuid.NewString(),
		Account:   req.Account,
		Kind:      req.Kind,
		Digest:    req.Digest,
		Target:    req.Target,
		ObjectID:  req.ObjectID,
		CreatedAt: time.Now().UTC(),
	}
}

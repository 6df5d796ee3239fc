// Package wallet is the boundary to the external wallet. The gateway never
// holds keys: it hands unsigned calls to a signer and gets a digest back.
package wallet

import (
	"context"
	"errors"

	"github.com/geocoder89/suiticket/internal/txbuilder"
)

var (
	ErrNoDigest       = errors.New("signer returned no transaction digest")
	ErrUnknownAccount = errors.New("account is not managed by the connected wallet")
	ErrSignerRejected = errors.New("signer rejected the transaction")
)

type Signer interface {
	// Accounts lists the addresses the wallet can sign for.
	Accounts(ctx context.Context) ([]string, error)
	// SignAndExecute submits call on behalf of sender and returns the
	// transaction digest as soon as the wallet has it.
	SignAndExecute(ctx context.Context, sender string, call txbuilder.Call) (string, error)
}

// HasAccount reports whether s can sign for addr.
func HasAccount(ctx context.Context, s Signer, addr string) (bool, error) {
	accounts, err := s.Accounts(ctx)
	if err != nil {
		return false, err
	}
	for _, a := range accounts {
		if a == addr {
			return true, nil
		}
	}
	return false, nil
}

// Package network holds the static table of fullnode endpoints per
// deployment environment.
package network

import (
	"errors"
	"sort"
)

var ErrUnknownNetwork = errors.New("unknown network")

type Endpoints struct {
	Name      string `json:"name"`
	RPCURL    string `json:"rpcUrl"`
	WSURL     string `json:"wsUrl"`
	FaucetURL string `json:"faucetUrl,omitempty"`
}

const (
	Testnet  = "testnet"
	Mainnet  = "mainnet"
	Localnet = "localnet"
)

var table = map[string]Endpoints{
	Testnet: {
		Name:      Testnet,
		RPCURL:    "https://fullnode.testnet.sui.io:443",
		WSURL:     "wss://fullnode.testnet.sui.io:443",
		FaucetURL: "https://faucet.testnet.sui.io/gas",
	},
	Mainnet: {
		Name:   Mainnet,
		RPCURL: "https://fullnode.mainnet.sui.io:443",
		WSURL:  "wss://fullnode.mainnet.sui.io:443",
	},
	Localnet: {
		Name:   Localnet,
		RPCURL: "http://127.0.0.1:9000",
		WSURL:  "ws://127.0.0.1:9000",
	},
}

// Select returns the endpoints for name. A non-empty rpcOverride replaces
// the table's RPC URL (useful for private fullnodes and tests).
func Select(name, rpcOverride string) (Endpoints, error) {
	ep, ok := table[name]
	if !ok {
		return Endpoints{}, ErrUnknownNetwork
	}

	if rpcOverride != "" {
		ep.RPCURL = rpcOverride
	}

	return ep, nil
}

func Names() []string {
	out := make([]string, 0, len(table))
	for name := range table {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

package suirpc

import (
	"encoding/json"
	"fmt"
)

type ObjectResponse struct {
	Data  *ObjectData     `json:"data,omitempty"`
	Error json.RawMessage `json:"error,omitempty"`
}

type ObjectData struct {
	ObjectID string          `json:"objectId"`
	Version  string          `json:"version"`
	Digest   string          `json:"digest"`
	Type     string          `json:"type,omitempty"`
	Owner    json.RawMessage `json:"owner,omitempty"`
	Content  *ObjectContent  `json:"content,omitempty"`
}

// ObjectContent is the parsed move object. Fields is left raw; callers
// decode it into their own record types.
type ObjectContent struct {
	DataType string          `json:"dataType"`
	Type     string          `json:"type,omitempty"`
	Fields   json.RawMessage `json:"fields,omitempty"`
}

type ObjectDataOptions struct {
	ShowType    bool `json:"showType,omitempty"`
	ShowContent bool `json:"showContent,omitempty"`
	ShowOwner   bool `json:"showOwner,omitempty"`
}

type ObjectFilter struct {
	StructType string `json:"StructType,omitempty"`
}

type OwnedObjectsQuery struct {
	Filter  *ObjectFilter     `json:"filter,omitempty"`
	Options ObjectDataOptions `json:"options"`
}

type OwnedObjectsPage struct {
	Data        []ObjectResponse `json:"data"`
	NextCursor  *string          `json:"nextCursor"`
	HasNextPage bool             `json:"hasNextPage"`
}

type EventID struct {
	TxDigest string `json:"txDigest"`
	EventSeq string `json:"eventSeq"`
}

type EventFilter struct {
	MoveEventType string `json:"MoveEventType,omitempty"`
}

type MoveEvent struct {
	ID                EventID         `json:"id"`
	PackageID         string          `json:"packageId"`
	TransactionModule string          `json:"transactionModule"`
	Sender            string          `json:"sender"`
	Type              string          `json:"type"`
	ParsedJSON        json.RawMessage `json:"parsedJson"`
	TimestampMs       string          `json:"timestampMs,omitempty"`
}

type EventPage struct {
	Data        []MoveEvent `json:"data"`
	NextCursor  *EventID    `json:"nextCursor"`
	HasNextPage bool        `json:"hasNextPage"`
}

type TransactionBlockOptions struct {
	ShowEffects       bool `json:"showEffects,omitempty"`
	ShowObjectChanges bool `json:"showObjectChanges,omitempty"`
}

type TransactionBlock struct {
	Digest        string         `json:"digest"`
	Effects       *Effects       `json:"effects,omitempty"`
	ObjectChanges []ObjectChange `json:"objectChanges,omitempty"`
}

type Effects struct {
	Status ExecutionStatus `json:"status"`
}

type ExecutionStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

const (
	StatusSuccess = "success"
	ChangeCreated = "created"
)

type ObjectChange struct {
	Type       string `json:"type"`
	Sender     string `json:"sender,omitempty"`
	ObjectType string `json:"objectType,omitempty"`
	ObjectID   string `json:"objectId,omitempty"`
	Version    string `json:"version,omitempty"`
	Digest     string `json:"digest,omitempty"`
}

// RPCError is a JSON-RPC error object returned by the node.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}

// Package bridge speaks the request/reply protocol of the external host that
// relays queries to live database servers.
package bridge

import (
	"context"
	"encoding/json"
)

// Envelope types.
const (
	TypeExecuteRemoteQuery  = "EXECUTE_REMOTE_QUERY"
	TypeGetSavedCredentials = "GET_SAVED_CREDENTIALS"
	TypeOrigin              = "MUULORIGIN"
)

// Request is the envelope sent to the host.
type Request struct {
	Type         string `json:"type"`
	RequestID    string `json:"requestId"`
	CredentialID string `json:"credentialId,omitempty"`
	SQL          string `json:"sql,omitempty"`
	Href         string `json:"href,omitempty"`
	Ts           int64  `json:"ts,omitempty"`
}

// Reply is the envelope received from the host. Rows are kept raw since
// hosts return either positional arrays or objects.
type Reply struct {
	OK              bool            `json:"ok"`
	RequestID       string          `json:"requestId,omitempty"`
	Error           string          `json:"error,omitempty"`
	Columns         []string        `json:"columns,omitempty"`
	Rows            json.RawMessage `json:"rows,omitempty"`
	RowCount        *int            `json:"rowCount,omitempty"`
	ExecutionTimeMs *float64        `json:"executionTimeMs,omitempty"`
	Entries         []Credential    `json:"entries,omitempty"`
	Data            *struct {
		Entries []Credential `json:"entries"`
	} `json:"data,omitempty"`
}

// Credential is a saved remote connection owned by the host.
type Credential struct {
	ID             string `json:"id"`
	ConnectionName string `json:"connectionName,omitempty"`
	DBType         string `json:"dbType,omitempty"`
}

// Sender delivers one serialized request and returns the correlated reply.
type Sender interface {
	Send(ctx context.Context, request []byte) ([]byte, error)
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, request []byte) ([]byte, error)

func (f SenderFunc) Send(ctx context.Context, request []byte) ([]byte, error) {
	return f(ctx, request)
}

package bridge

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"querybridge/internal/introspect"
	"querybridge/internal/logger"
)

// ErrUnavailable is reported when no host channel is present.
var ErrUnavailable = errors.New("bridge unavailable")

// Client issues protocol requests over a Sender. A Client with a nil Sender
// is valid: every call reports the bridge as absent.
type Client struct {
	sender Sender
}

func NewClient(sender Sender) *Client {
	return &Client{sender: sender}
}

// Available reports whether a host channel is present.
func (c *Client) Available() bool {
	return c != nil && c.sender != nil
}

func (c *Client) roundTrip(ctx context.Context, req Request) (Reply, error) {
	if !c.Available() {
		return Reply{}, ErrUnavailable
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return Reply{}, fmt.Errorf("encode %s: %w", req.Type, err)
	}
	raw, err := c.sender.Send(ctx, payload)
	if err != nil {
		return Reply{}, fmt.Errorf("%s: %w", req.Type, err)
	}
	var reply Reply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return Reply{}, fmt.Errorf("decode %s reply: %w", req.Type, err)
	}
	return reply, nil
}

// Execute runs sql against the saved credential. An empty requestID gets a
// fresh one. Failures are reported in the result's Error field.
func (c *Client) Execute(ctx context.Context, credentialID, sql, requestID string) introspect.QueryResult {
	requestID = cmp.Or(requestID, uuid.NewString())
	res := c.execute(ctx, credentialID, sql, requestID)
	res.RequestID = requestID
	return res
}

func (c *Client) execute(ctx context.Context, credentialID, sql, requestID string) introspect.QueryResult {
	reply, err := c.roundTrip(ctx, Request{
		Type:         TypeExecuteRemoteQuery,
		RequestID:    requestID,
		CredentialID: credentialID,
		SQL:          sql,
	})
	if err != nil {
		return introspect.ErrorResult("%v", err)
	}
	if !reply.OK {
		return introspect.ErrorResult("%s", cmp.Or(reply.Error, "remote query failed"))
	}

	columns, rows, err := tabulate(reply.Columns, reply.Rows)
	if err != nil {
		return introspect.ErrorResult("malformed reply: %v", err)
	}
	res := introspect.NewResult(columns, rows, 0)
	if reply.RowCount != nil {
		res.RowCount = *reply.RowCount
	}
	if reply.ExecutionTimeMs != nil {
		res.ExecutionTimeMs = *reply.ExecutionTimeMs
	}
	return res
}

// tabulate turns the reply rows into positional tuples. Rows given as
// objects are projected onto columns; without columns, the key order of the
// first object defines them.
func tabulate(columns []string, raw json.RawMessage) ([]string, [][]any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return columns, nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, nil, fmt.Errorf("rows: %w", err)
	}
	if len(items) == 0 {
		return columns, nil, nil
	}

	if first := bytes.TrimSpace(items[0]); len(first) > 0 && first[0] == '{' {
		if len(columns) == 0 {
			keys, err := objectKeys(first)
			if err != nil {
				return nil, nil, err
			}
			columns = keys
		}
		rows := make([][]any, 0, len(items))
		for i, item := range items {
			var obj map[string]any
			if err := json.Unmarshal(item, &obj); err != nil {
				return nil, nil, fmt.Errorf("row %d: %w", i, err)
			}
			row := make([]any, len(columns))
			for j, col := range columns {
				row[j] = obj[col]
			}
			rows = append(rows, row)
		}
		return columns, rows, nil
	}

	rows := make([][]any, 0, len(items))
	for i, item := range items {
		var values []any
		if err := json.Unmarshal(item, &values); err != nil {
			return nil, nil, fmt.Errorf("row %d: %w", i, err)
		}
		rows = append(rows, values)
	}
	if len(columns) == 0 {
		for i := range rows[0] {
			columns = append(columns, fmt.Sprintf("column%d", i+1))
		}
	}
	// Positional rows are fitted to the column count.
	for i, row := range rows {
		fitted := make([]any, len(columns))
		copy(fitted, row)
		rows[i] = fitted
	}
	return columns, rows, nil
}

// objectKeys returns the keys of a JSON object in document order.
func objectKeys(obj json.RawMessage) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(obj))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		keys = append(keys, key)
		// Skip the value whatever its shape.
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

// SavedCredentials lists the host's saved connections. Failures yield an
// empty list.
func (c *Client) SavedCredentials(ctx context.Context) []Credential {
	reply, err := c.roundTrip(ctx, Request{Type: TypeGetSavedCredentials, RequestID: uuid.NewString()})
	if err != nil {
		if !errors.Is(err, ErrUnavailable) {
			logger.Warn("saved credentials: %v", err)
		}
		return []Credential{}
	}
	if !reply.OK {
		logger.Warn("saved credentials: %s", cmp.Or(reply.Error, "host refused"))
		return []Credential{}
	}

	entries := reply.Entries
	if len(entries) == 0 && reply.Data != nil {
		entries = reply.Data.Entries
	}
	out := make([]Credential, 0, len(entries))
	for _, e := range entries {
		if e.ID == "" {
			continue
		}
		e.ConnectionName = cmp.Or(e.ConnectionName, e.ID)
		e.DBType = cmp.Or(e.DBType, "postgres")
		out = append(out, e)
	}
	return out
}

// Detect announces href to the host and reports whether it answered ok.
func (c *Client) Detect(ctx context.Context, href string) bool {
	reply, err := c.roundTrip(ctx, Request{
		Type:      TypeOrigin,
		RequestID: uuid.NewString(),
		Href:      href,
		Ts:        time.Now().UnixMilli(),
	})
	if err != nil {
		logger.Debug("bridge detect: %v", err)
		return false
	}
	return reply.OK
}

// Package native is an in-process bridge host: it serves bridge envelopes
// against the credentials in the configuration using real drivers.
package native

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	"go.mongodb.org/mongo-driver/mongo"

	"querybridge/internal/bridge"
	"querybridge/internal/db"
	"querybridge/internal/logger"
	"querybridge/pkg/config"
)

// Host serves bridge envelopes. Connections are opened on first use and
// kept until Close.
type Host struct {
	creds          []config.CredentialConfig
	connectTimeout int

	mu    sync.Mutex
	pools map[string]*sqlx.DB
	mongo map[string]*mongo.Client
}

var _ bridge.Sender = (*Host)(nil)

func New(creds []config.CredentialConfig, connectTimeout int) *Host {
	return &Host{
		creds:          creds,
		connectTimeout: connectTimeout,
		pools:          make(map[string]*sqlx.DB),
		mongo:          make(map[string]*mongo.Client),
	}
}

// Send handles one serialized request. Failures to serve it are reported
// in the reply, so the error is only set for undecodable requests.
func (h *Host) Send(ctx context.Context, raw []byte) ([]byte, error) {
	var req bridge.Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}

	var reply bridge.Reply
	switch req.Type {
	case bridge.TypeOrigin:
		reply.OK = true
	case bridge.TypeGetSavedCredentials:
		reply.OK = true
		reply.Entries = make([]bridge.Credential, 0, len(h.creds))
		for _, c := range h.creds {
			reply.Entries = append(reply.Entries, bridge.Credential{
				ID:             c.ID,
				ConnectionName: c.Name,
				DBType:         config.NormalizeDriver(c.Database.Type),
			})
		}
	case bridge.TypeExecuteRemoteQuery:
		var err error
		if reply, err = h.execute(ctx, req.CredentialID, req.SQL); err != nil {
			logger.Warn("native bridge %s: %v", req.CredentialID, err)
			reply = bridge.Reply{Error: err.Error()}
		}
	default:
		reply.Error = fmt.Sprintf("unsupported request type: %s", req.Type)
	}
	reply.RequestID = req.RequestID
	return json.Marshal(reply)
}

func (h *Host) credential(id string) (config.CredentialConfig, bool) {
	for _, c := range h.creds {
		if c.ID == id {
			return c, true
		}
	}
	return config.CredentialConfig{}, false
}

func (h *Host) execute(ctx context.Context, credentialID, query string) (bridge.Reply, error) {
	cred, ok := h.credential(credentialID)
	if !ok {
		return bridge.Reply{}, fmt.Errorf("unknown credential: %s", credentialID)
	}
	driver, dsn, err := config.BuildDriverAndDSN(cred.Database)
	if err != nil {
		return bridge.Reply{}, err
	}
	if driver == "mongodb" {
		return h.executeMongo(ctx, cred, dsn, query)
	}

	conn, err := h.pool(ctx, cred.ID, driver, dsn)
	if err != nil {
		return bridge.Reply{}, err
	}
	res := db.Run(ctx, conn, query)
	if res.Failed() {
		return bridge.Reply{}, errors.New(res.Error)
	}
	rows, err := json.Marshal(res.Rows)
	if err != nil {
		return bridge.Reply{}, fmt.Errorf("encode rows: %w", err)
	}
	return bridge.Reply{
		OK:              true,
		Columns:         res.Columns,
		Rows:            rows,
		RowCount:        &res.RowCount,
		ExecutionTimeMs: &res.ExecutionTimeMs,
	}, nil
}

func (h *Host) pool(ctx context.Context, id, driver, dsn string) (*sqlx.DB, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conn, ok := h.pools[id]; ok {
		return conn, nil
	}
	conn, err := db.Connect(ctx, driver, dsn, h.connectTimeout)
	if err != nil {
		return nil, err
	}
	logger.Info("native bridge connected %s (%s)", id, driver)
	h.pools[id] = conn
	return conn, nil
}

// Close releases every connection.
func (h *Host) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	var errs []error
	for id, conn := range h.pools {
		errs = append(errs, conn.Close())
		delete(h.pools, id)
	}
	for id, client := range h.mongo {
		errs = append(errs, client.Disconnect(context.Background()))
		delete(h.mongo, id)
	}
	return errors.Join(errs...)
}

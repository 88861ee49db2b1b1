package native

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"querybridge/internal/bridge"
	"querybridge/internal/db"
	"querybridge/pkg/config"
)

func sqliteCredential(t *testing.T) config.CredentialConfig {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "remote.db")
	conn, err := db.Connect(ctx, "sqlite", "file:"+path, 5)
	require.NoError(t, err)
	_, err = conn.ExecContext(ctx, `
CREATE TABLE accounts (id INTEGER PRIMARY KEY, owner TEXT);
INSERT INTO accounts VALUES (1, 'ada'), (2, 'grace');`)
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	return config.CredentialConfig{
		ID:       "local",
		Name:     "Local file",
		Database: config.DBConfig{Type: "sqlite3", DatabaseName: path},
	}
}

func TestSavedCredentials(t *testing.T) {
	h := New([]config.CredentialConfig{
		{ID: "pg", Name: "Reporting", Database: config.DBConfig{Type: "postgresql"}},
		{ID: "ms", Name: "Billing", Database: config.DBConfig{Type: "mssql"}},
	}, 5)
	defer h.Close()

	got := bridge.NewClient(h).SavedCredentials(context.Background())
	assert.Equal(t, []bridge.Credential{
		{ID: "pg", ConnectionName: "Reporting", DBType: "postgres"},
		{ID: "ms", ConnectionName: "Billing", DBType: "sqlserver"},
	}, got)
}

func TestExecuteSQL(t *testing.T) {
	h := New([]config.CredentialConfig{sqliteCredential(t)}, 5)
	defer h.Close()
	client := bridge.NewClient(h)

	res := client.Execute(context.Background(), "local", "SELECT id, owner FROM accounts ORDER BY id", "q1")
	require.Empty(t, res.Error)
	require.NoError(t, res.Validate())
	assert.Equal(t, "q1", res.RequestID)
	assert.Equal(t, []string{"id", "owner"}, res.Columns)
	assert.Equal(t, [][]any{{float64(1), "ada"}, {float64(2), "grace"}}, res.Rows)
	assert.Equal(t, 2, res.RowCount)

	// The pool is reused.
	res = client.Execute(context.Background(), "local", "SELECT count(*) AS n FROM accounts", "")
	assert.Equal(t, [][]any{{float64(2)}}, res.Rows)
	assert.Len(t, h.pools, 1)

	res = client.Execute(context.Background(), "local", "SELECT * FROM nope", "")
	assert.Contains(t, res.Error, "nope")
}

func TestExecuteFailures(t *testing.T) {
	h := New([]config.CredentialConfig{
		{ID: "mongo", Database: config.DBConfig{Type: "mongodb", Host: "127.0.0.1"}},
		{ID: "odd", Database: config.DBConfig{Type: "oracle"}},
	}, 1)
	defer h.Close()
	client := bridge.NewClient(h)
	ctx := context.Background()

	assert.Contains(t, client.Execute(ctx, "missing", "SELECT 1", "").Error, "unknown credential")
	assert.Contains(t, client.Execute(ctx, "odd", "SELECT 1", "").Error, "unsupported database type")
	assert.Contains(t, client.Execute(ctx, "mongo", "db.users.find({})", "").Error, "database name is required")
}

func TestOriginAndUnknownType(t *testing.T) {
	h := New(nil, 1)
	assert.True(t, bridge.NewClient(h).Detect(context.Background(), "http://localhost"))

	raw, err := h.Send(context.Background(), []byte(`{"type":"PING","requestId":"p"}`))
	require.NoError(t, err)
	var reply bridge.Reply
	require.NoError(t, json.Unmarshal(raw, &reply))
	assert.False(t, reply.OK)
	assert.Equal(t, "p", reply.RequestID)
	assert.Contains(t, reply.Error, "PING")

	_, err = h.Send(context.Background(), []byte(`not json`))
	assert.Error(t, err)
}

func TestMongoReplyKeepsKeyOrder(t *testing.T) {
	reply, err := mongoReply([]bson.D{
		{{Key: "_id", Value: "x"}, {Key: "address", Value: bson.D{{Key: "city", Value: "Oslo"}}}, {Key: "age", Value: int32(3)}},
	}, 0)
	require.NoError(t, err)
	reply.OK = true

	raw, err := json.Marshal(reply)
	require.NoError(t, err)
	res := bridge.NewClient(bridge.SenderFunc(func(context.Context, []byte) ([]byte, error) {
		return raw, nil
	})).Execute(context.Background(), "c", "q", "")
	require.Empty(t, res.Error)
	assert.Equal(t, []string{"_id", "address.city", "age"}, res.Columns)
	assert.Equal(t, [][]any{{"x", "Oslo", float64(3)}}, res.Rows)
}

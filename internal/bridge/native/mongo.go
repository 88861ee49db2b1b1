package native

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"querybridge/internal/bridge"
	"querybridge/internal/db/docstore"
	"querybridge/internal/logger"
	"querybridge/pkg/config"
)

// executeMongo runs a shell statement. Rows are returned as objects in
// document order with nested documents flattened one level.
func (h *Host) executeMongo(ctx context.Context, cred config.CredentialConfig, uri, query string) (bridge.Reply, error) {
	name := strings.TrimSpace(cred.Database.DatabaseName)
	if name == "" {
		return bridge.Reply{}, fmt.Errorf("database name is required for MongoDB credential %s", cred.ID)
	}
	cmd, err := docstore.Parse(query)
	if err != nil {
		return bridge.Reply{}, err
	}
	client, err := h.mongoClient(ctx, cred.ID, uri)
	if err != nil {
		return bridge.Reply{}, err
	}
	database := client.Database(name)

	start := time.Now()
	var docs []bson.D
	switch {
	case cmd.Op == docstore.OpListCollections:
		names, err := database.ListCollectionNames(ctx, bson.D{})
		if err != nil {
			return bridge.Reply{}, err
		}
		for _, n := range names {
			docs = append(docs, bson.D{{Key: "name", Value: n}})
		}
	case cmd.Explain:
		docs, err = explainMongo(ctx, database, cmd)
	case cmd.Op == docstore.OpCountDocuments:
		var n int64
		n, err = database.Collection(cmd.Collection).CountDocuments(ctx, cmd.Filter)
		docs = []bson.D{{{Key: "count", Value: n}}}
	case cmd.Op == docstore.OpFind || cmd.Op == docstore.OpFindOne:
		docs, err = findMongo(ctx, database.Collection(cmd.Collection), cmd)
	default:
		err = fmt.Errorf("unsupported operation: %s", cmd.Op)
	}
	if err != nil {
		return bridge.Reply{}, err
	}
	return mongoReply(docs, time.Since(start))
}

func findMongo(ctx context.Context, coll *mongo.Collection, cmd docstore.Command) ([]bson.D, error) {
	opts := options.Find()
	if cmd.Op == docstore.OpFindOne {
		opts.SetLimit(1)
	} else if cmd.Limit > 0 {
		opts.SetLimit(cmd.Limit)
	}
	cursor, err := coll.Find(ctx, cmd.Filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []bson.D
	for cursor.Next(ctx) {
		var doc bson.D
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, cursor.Err()
}

func explainMongo(ctx context.Context, database *mongo.Database, cmd docstore.Command) ([]bson.D, error) {
	find := bson.D{{Key: "find", Value: cmd.Collection}, {Key: "filter", Value: cmd.Filter}}
	if cmd.Limit > 0 {
		find = append(find, bson.E{Key: "limit", Value: cmd.Limit})
	}
	var plan bson.D
	err := database.RunCommand(ctx, bson.D{
		{Key: "explain", Value: find},
		{Key: "verbosity", Value: "executionStats"},
	}).Decode(&plan)
	if err != nil {
		return nil, err
	}
	text, err := bson.MarshalExtJSON(plan, false, false)
	if err != nil {
		return nil, err
	}
	return []bson.D{{{Key: "explain", Value: string(text)}}}, nil
}

// mongoReply encodes docs as relaxed extended JSON objects, which keeps
// their key order for column inference on the client. Ids and dates are
// rendered as plain strings.
func mongoReply(docs []bson.D, elapsed time.Duration) (bridge.Reply, error) {
	items := make([]json.RawMessage, 0, len(docs))
	for _, d := range docs {
		flat := docstore.Flatten(d)
		for i := range flat {
			flat[i].Value = docstore.Cell(flat[i].Value)
		}
		b, err := bson.MarshalExtJSON(flat, false, false)
		if err != nil {
			return bridge.Reply{}, fmt.Errorf("encode document: %w", err)
		}
		items = append(items, b)
	}
	rows, err := json.Marshal(items)
	if err != nil {
		return bridge.Reply{}, err
	}
	ms := float64(elapsed.Microseconds()) / 1000
	return bridge.Reply{OK: true, Rows: rows, ExecutionTimeMs: &ms}, nil
}

func (h *Host) mongoClient(ctx context.Context, id, uri string) (*mongo.Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.mongo[id]; ok {
		return c, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, time.Duration(max(h.connectTimeout, 1))*time.Second)
	defer cancel()
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	logger.Info("native bridge connected %s (mongodb)", id)
	h.mongo[id] = client
	return client, nil
}

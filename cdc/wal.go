package main

import (
	"encoding/json"
	"fmt"

	"github.com/de7fp/restaurant-rag/queue"
)

// walMessage is one wal2json (format version 1) transaction.
type walMessage struct {
	Changes []walChange `json:"change"`
}

type walChange struct {
	Kind    string        `json:"kind"`
	Schema  string        `json:"schema"`
	Table   string        `json:"table"`
	Columns []string      `json:"columnnames,omitempty"`
	Values  []interface{} `json:"columnvalues,omitempty"`
}

func decodeWAL(data []byte) ([]walChange, error) {
	var msg walMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode wal2json message: %w", err)
	}
	return msg.Changes, nil
}

func (c walChange) column(name string) (interface{}, bool) {
	for i, col := range c.Columns {
		if col == name && i < len(c.Values) {
			return c.Values[i], true
		}
	}
	return nil, false
}

// id returns the primary key of the row, or 0 when it is missing.
func (c walChange) id() uint64 {
	v, _ := c.column("id")
	if n, ok := v.(float64); ok && n > 0 {
		return uint64(n)
	}
	return 0
}

func (c walChange) embedded() bool {
	v, ok := c.column("embedding")
	return ok && v != nil
}

// needsEmbedding holds for inserts and updates that left the embedding NULL.
// wal2json sends every column of inserted and updated rows, so rows the
// ingest pipeline or the embedder already embedded are recognised here.
func (c walChange) needsEmbedding(table string) bool {
	if c.Table != table {
		return false
	}
	switch c.Kind {
	case "insert", "update":
		return !c.embedded()
	default:
		return false
	}
}

func embedRequests(changes []walChange, table string) []queue.EmbedRequest {
	var reqs []queue.EmbedRequest
	for _, c := range changes {
		if !c.needsEmbedding(table) {
			continue
		}
		if id := c.id(); id != 0 {
			reqs = append(reqs, queue.EmbedRequest{Table: c.Table, Kind: c.Kind, ID: id})
		}
	}
	return reqs
}

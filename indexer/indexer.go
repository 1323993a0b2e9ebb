// Package indexer maintains secondary indexes over committed batches so
// clients can look up executed intents by account without replaying the
// event stream.
package indexer

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/solvernet/intentd/core"
	"github.com/solvernet/intentd/events"
	"github.com/solvernet/intentd/storage"
)

const (
	prefixAccountIntents = "idx:account:intent:"
	prefixBatchIntents   = "idx:batch:intent:"
)

// Indexer subscribes to ledger events and updates secondary lookup tables.
type Indexer struct {
	db      storage.DB
	emitter *events.Emitter
}

// New creates an Indexer backed by db and subscribes to relevant events.
func New(db storage.DB, emitter *events.Emitter) *Indexer {
	idx := &Indexer{db: db, emitter: emitter}
	emitter.Subscribe(events.EventIntentExecuted, idx.onIntentExecuted)
	emitter.Subscribe(events.EventTransfer, idx.onTransfer)
	return idx
}

// GetIntentsByAccount returns the hashes of every executed payload signed
// by or transferring to the given account, oldest first.
func (idx *Indexer) GetIntentsByAccount(account string) ([]string, error) {
	return idx.getList(prefixAccountIntents + account)
}

// GetIntentsByBatch returns the payload hashes committed under one batch id.
func (idx *Indexer) GetIntentsByBatch(batchID string) ([]string, error) {
	return idx.getList(prefixBatchIntents + batchID)
}

// ---- event handlers ----

func (idx *Indexer) onIntentExecuted(ev events.Event) {
	if ev.Account == "" || ev.IntentHash == "" {
		return
	}
	_ = idx.addToList(prefixAccountIntents+ev.Account, ev.IntentHash)
	if ev.BatchID != "" {
		_ = idx.addToList(prefixBatchIntents+ev.BatchID, ev.IntentHash)
	}
}

func (idx *Indexer) onTransfer(ev events.Event) {
	receiver, _ := ev.Data["receiver"].(string)
	if receiver == "" || ev.IntentHash == "" {
		return
	}
	_ = idx.addToList(prefixAccountIntents+receiver, ev.IntentHash)
}

// ---- list helpers ----

func (idx *Indexer) getList(key string) ([]string, error) {
	data, err := idx.db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, nil // empty list
		}
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("indexer unmarshal: %w", err)
	}
	return ids, nil
}

func (idx *Indexer) addToList(key, value string) error {
	ids, _ := idx.getList(key)
	for _, id := range ids {
		if id == value {
			return nil
		}
	}
	ids = append(ids, value)
	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return idx.db.Set([]byte(key), data)
}

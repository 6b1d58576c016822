// Package storetest provides an in-memory store.Client for tests that
// exercise the transactional merge and confirmation flows without a
// database.
package storetest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/tutorlane/server/internal/apperrors"
	"github.com/tutorlane/server/internal/store"
)

// Memory is a store.Client backed by maps. Writes inside WithTransaction
// are buffered and applied only when fn succeeds, mirroring the real
// store's all-or-nothing contract. FailSet, when non-nil, is consulted
// before every write and lets a test inject a persistence failure for a
// specific document.
type Memory struct {
	mu      sync.Mutex
	docs    map[string]map[string]json.RawMessage
	FailSet func(collection, id string) error
}

func NewMemory() *Memory {
	return &Memory{docs: make(map[string]map[string]json.RawMessage)}
}

// Seed stores a document directly, bypassing failure hooks.
func (m *Memory) Seed(collection, id string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		panic(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(collection, id, data)
}

func (m *Memory) put(collection, id string, data json.RawMessage) {
	if m.docs[collection] == nil {
		m.docs[collection] = make(map[string]json.RawMessage)
	}
	m.docs[collection][id] = data
}

func (m *Memory) Get(ctx context.Context, collection, id string, out any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.docs[collection][id]
	if !ok {
		return fmt.Errorf("%s/%s: %w", collection, id, store.ErrNotFound)
	}
	return json.Unmarshal(data, out)
}

func (m *Memory) List(ctx context.Context, collection, field, value string) ([][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var docs [][]byte
	for _, data := range m.docs[collection] {
		var fields map[string]any
		if err := json.Unmarshal(data, &fields); err != nil {
			return nil, err
		}
		if s, ok := fields[field].(string); ok && s == value {
			docs = append(docs, data)
		}
	}
	return docs, nil
}

func (m *Memory) Set(ctx context.Context, collection, id string, value any) error {
	if err := m.checkFail(collection, id); err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(collection, id, data)
	return nil
}

func (m *Memory) Merge(ctx context.Context, collection, id string, patch any) error {
	if err := m.checkFail(collection, id); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.docs[collection][id]
	if !ok {
		return apperrors.Persistence(store.ErrNotFound, "merge %s/%s", collection, id)
	}

	merged, err := mergeJSON(current, patch)
	if err != nil {
		return err
	}
	m.put(collection, id, merged)
	return nil
}

func (m *Memory) checkFail(collection, id string) error {
	if m.FailSet == nil {
		return nil
	}
	return m.FailSet(collection, id)
}

func mergeJSON(current json.RawMessage, patch any) (json.RawMessage, error) {
	patchData, err := json.Marshal(patch)
	if err != nil {
		return nil, err
	}
	var base, overlay map[string]json.RawMessage
	if err := json.Unmarshal(current, &base); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(patchData, &overlay); err != nil {
		return nil, err
	}
	for k, v := range overlay {
		base[k] = v
	}
	return json.Marshal(base)
}

type memTx struct {
	m       *Memory
	pending []func() error
}

func (t *memTx) Get(ctx context.Context, collection, id string, out any) error {
	return t.m.Get(ctx, collection, id, out)
}

func (t *memTx) Set(ctx context.Context, collection, id string, value any) error {
	if err := t.m.checkFail(collection, id); err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	t.pending = append(t.pending, func() error {
		t.m.put(collection, id, data)
		return nil
	})
	return nil
}

func (t *memTx) Merge(ctx context.Context, collection, id string, patch any) error {
	if err := t.m.checkFail(collection, id); err != nil {
		return err
	}
	t.pending = append(t.pending, func() error {
		current, ok := t.m.docs[collection][id]
		if !ok {
			return apperrors.Persistence(store.ErrNotFound, "merge %s/%s", collection, id)
		}
		merged, err := mergeJSON(current, patch)
		if err != nil {
			return err
		}
		t.m.put(collection, id, merged)
		return nil
	})
	return nil
}

func (t *memTx) Delete(ctx context.Context, collection, id string) error {
	t.pending = append(t.pending, func() error {
		delete(t.m.docs[collection], id)
		return nil
	})
	return nil
}

func (m *Memory) WithTransaction(ctx context.Context, fn func(tx store.DocTx) error) error {
	tx := &memTx{m: m}
	if err := fn(tx); err != nil {
		if apperrors.KindOf(err) != "" {
			return err
		}
		return apperrors.Persistence(err, "transaction failed")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, apply := range tx.pending {
		if err := apply(); err != nil {
			return err
		}
	}
	return nil
}

var _ store.Client = (*Memory)(nil)

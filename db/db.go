// Copyright (c) 2024 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package db

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/iotexproject/iotex-sbt/db/batch"
	"github.com/iotexproject/iotex-sbt/pkg/lifecycle"
)

var (
	// ErrBucketNotExist indicates certain bucket does not exist in db
	ErrBucketNotExist = errors.New("bucket not exist in DB")
	// ErrNotExist indicates certain item does not exist in database
	ErrNotExist = errors.New("not exist in DB")
	// ErrIO indicates the generic error of DB I/O operation
	ErrIO = errors.New("DB I/O operation error")
	// ErrDBNotStarted indicates the DB has not been started or was stopped
	ErrDBNotStarted = errors.New("DB is not started")
)

// KVStore is the interface of KV store.
type KVStore interface {
	lifecycle.StartStopper

	// Put insert or update a record identified by (namespace, key)
	Put(string, []byte, []byte) error
	// Get gets a record by (namespace, key)
	Get(string, []byte) ([]byte, error)
	// Delete deletes a record by (namespace, key)
	Delete(string, []byte) error
	// WriteBatch commits a batch
	WriteBatch(batch.KVStoreBatch) error
	// ForEach iterates over all <k, v> pairs in a bucket in key order
	ForEach(string, func([]byte, []byte) error) error
}

// memKVStore is the in-memory implementation of KVStore
type memKVStore struct {
	lifecycle.Readiness
	mutex  sync.RWMutex
	bucket map[string]map[string][]byte
}

// NewMemKVStore instantiates an in-memory KV store
func NewMemKVStore() KVStore {
	return &memKVStore{
		bucket: make(map[string]map[string][]byte),
	}
}

func (m *memKVStore) Start(_ context.Context) error { return m.TurnOn() }

func (m *memKVStore) Stop(_ context.Context) error { return m.TurnOff() }

// Put inserts a <key, value> record
func (m *memKVStore) Put(namespace string, key, value []byte) error {
	if !m.IsReady() {
		return ErrDBNotStarted
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.put(namespace, key, value)
	return nil
}

// Get retrieves a record
func (m *memKVStore) Get(namespace string, key []byte) ([]byte, error) {
	if !m.IsReady() {
		return nil, ErrDBNotStarted
	}
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	kv, ok := m.bucket[namespace]
	if !ok {
		return nil, errors.Wrapf(ErrNotExist, "namespace = %s doesn't exist", namespace)
	}
	value, ok := kv[string(key)]
	if !ok {
		return nil, errors.Wrapf(ErrNotExist, "key = %x doesn't exist", key)
	}
	return copyBytes(value), nil
}

// Delete deletes a record
func (m *memKVStore) Delete(namespace string, key []byte) error {
	if !m.IsReady() {
		return ErrDBNotStarted
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.delete(namespace, key)
	return nil
}

// WriteBatch commits a batch
func (m *memKVStore) WriteBatch(b batch.KVStoreBatch) error {
	if !m.IsReady() {
		return ErrDBNotStarted
	}
	b.Lock()
	defer b.ClearAndUnlock()
	m.mutex.Lock()
	defer m.mutex.Unlock()
	for i := 0; i < b.Size(); i++ {
		write, err := b.Entry(i)
		if err != nil {
			return err
		}
		switch write.WriteType() {
		case batch.Put:
			m.put(write.Namespace(), write.Key(), write.Value())
		case batch.Delete:
			m.delete(write.Namespace(), write.Key())
		}
	}
	return nil
}

// ForEach iterates over all <k, v> pairs in a bucket
func (m *memKVStore) ForEach(namespace string, fn func(k, v []byte) error) error {
	if !m.IsReady() {
		return ErrDBNotStarted
	}
	m.mutex.RLock()
	kv := m.bucket[namespace]
	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	values := make([][]byte, len(keys))
	for i, k := range keys {
		values[i] = copyBytes(kv[k])
	}
	m.mutex.RUnlock()

	for i, k := range keys {
		if err := fn([]byte(k), values[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *memKVStore) put(namespace string, key, value []byte) {
	kv, ok := m.bucket[namespace]
	if !ok {
		kv = make(map[string][]byte)
		m.bucket[namespace] = kv
	}
	kv[string(key)] = copyBytes(value)
}

func (m *memKVStore) delete(namespace string, key []byte) {
	if kv, ok := m.bucket[namespace]; ok {
		delete(kv, string(key))
	}
}

func copyBytes(b []byte) []byte {
	c := make([]byte, len(b))
	copy(c, b)
	return c
}

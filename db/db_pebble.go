// Copyright (c) 2024 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package db

import (
	"bytes"
	"context"
	"syscall"

	"github.com/cockroachdb/pebble"
	"github.com/iotexproject/go-pkgs/hash"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/iotexproject/iotex-sbt/db/batch"
	"github.com/iotexproject/iotex-sbt/pkg/lifecycle"
	"github.com/iotexproject/iotex-sbt/pkg/log"
)

const (
	prefixLength = 8
)

var (
	pebbledbMtc = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "iotex_sbt_pebbledb_ops",
		Help: "pebbledb operations.",
	}, []string{"method", "result"})
)

func init() {
	prometheus.MustRegister(pebbledbMtc)
}

// PebbleDB is KVStore implementation based on pebble DB
type PebbleDB struct {
	lifecycle.Readiness
	db     *pebble.DB
	path   string
	config Config
}

// NewPebbleDB creates a new PebbleDB instance
func NewPebbleDB(cfg Config) *PebbleDB {
	return &PebbleDB{
		db:     nil,
		path:   cfg.DbPath,
		config: cfg,
	}
}

// Start opens the DB (creates new file if not existing yet)
func (b *PebbleDB) Start(_ context.Context) error {
	comparer := *pebble.DefaultComparer
	comparer.Split = func(a []byte) int {
		return prefixLength
	}
	db, err := pebble.Open(b.path, &pebble.Options{
		Comparer:           &comparer,
		FormatMajorVersion: pebble.FormatPrePebblev1MarkedCompacted,
		ReadOnly:           b.config.ReadOnly,
	})
	if err != nil {
		return errors.Wrap(ErrIO, err.Error())
	}
	b.db = db
	return b.TurnOn()
}

// Stop closes the DB
func (b *PebbleDB) Stop(_ context.Context) error {
	if err := b.TurnOff(); err != nil {
		return err
	}
	if err := b.db.Close(); err != nil {
		return errors.Wrap(ErrIO, err.Error())
	}
	return nil
}

// Get retrieves a record
func (b *PebbleDB) Get(ns string, key []byte) ([]byte, error) {
	if !b.IsReady() {
		return nil, ErrDBNotStarted
	}
	v, closer, err := b.db.Get(nsKey(ns, key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, errors.Wrapf(ErrNotExist, "ns %s key = %x doesn't exist, %s", ns, key, err.Error())
		}
		pebbledbMtc.WithLabelValues("get", "failure").Inc()
		return nil, errors.Wrap(ErrIO, err.Error())
	}
	val := make([]byte, len(v))
	copy(val, v)
	pebbledbMtc.WithLabelValues("get", "success").Inc()
	return val, closer.Close()
}

// Put inserts a <key, value> record
func (b *PebbleDB) Put(ns string, key, value []byte) error {
	if !b.IsReady() {
		return ErrDBNotStarted
	}
	if err := b.db.Set(nsKey(ns, key), value, pebble.Sync); err != nil {
		return b.writeFailure("put", err)
	}
	pebbledbMtc.WithLabelValues("put", "success").Inc()
	return nil
}

// Delete deletes a record
func (b *PebbleDB) Delete(ns string, key []byte) error {
	if !b.IsReady() {
		return ErrDBNotStarted
	}
	if err := b.db.Delete(nsKey(ns, key), pebble.Sync); err != nil {
		return b.writeFailure("delete", err)
	}
	pebbledbMtc.WithLabelValues("delete", "success").Inc()
	return nil
}

// WriteBatch commits a batch
func (b *PebbleDB) WriteBatch(kvsb batch.KVStoreBatch) error {
	if !b.IsReady() {
		return ErrDBNotStarted
	}

	pb, err := b.dedup(kvsb)
	if err != nil {
		return err
	}
	if err := pb.Commit(pebble.Sync); err != nil {
		return b.writeFailure("writeBatch", err)
	}
	kvsb.Clear()
	pebbledbMtc.WithLabelValues("writeBatch", "success").Inc()
	return nil
}

func (b *PebbleDB) writeFailure(method string, err error) error {
	pebbledbMtc.WithLabelValues(method, "failure").Inc()
	if errors.Is(err, syscall.ENOSPC) {
		log.L().Fatal("Failed to write db.", zap.String("method", method), zap.Error(err))
	}
	return errors.Wrap(ErrIO, err.Error())
}

func (b *PebbleDB) dedup(kvsb batch.KVStoreBatch) (*pebble.Batch, error) {
	kvsb.Lock()
	defer kvsb.Unlock()

	type doubleKey struct {
		ns  string
		key string
	}
	// remove duplicate keys, only keep the last write for each key
	var (
		entryKeySet = make(map[doubleKey]struct{})
		ch          = b.db.NewBatch()
	)
	for i := kvsb.Size() - 1; i >= 0; i-- {
		write, e := kvsb.Entry(i)
		if e != nil {
			return nil, e
		}
		key := write.Key()
		k := doubleKey{ns: write.Namespace(), key: string(key)}
		if _, ok := entryKeySet[k]; ok {
			continue
		}
		entryKeySet[k] = struct{}{}
		switch write.WriteType() {
		case batch.Put:
			if err := ch.Set(nsKey(write.Namespace(), key), write.Value(), nil); err != nil {
				return nil, write.Wrap(err)
			}
		case batch.Delete:
			if err := ch.Delete(nsKey(write.Namespace(), key), nil); err != nil {
				return nil, write.Wrap(err)
			}
		}
	}
	return ch, nil
}

// ForEach iterates over all <k, v> pairs in a bucket
func (b *PebbleDB) ForEach(ns string, fn func(k, v []byte) error) error {
	if !b.IsReady() {
		return ErrDBNotStarted
	}
	prefix := nsToPrefix(ns)
	iter, err := b.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return errors.Wrap(err, "failed to create iterator")
	}
	defer func() {
		if e := iter.Close(); e != nil {
			log.L().Error("Failed to close iterator", zap.Error(e))
		}
	}()
	for iter.SeekPrefixGE(prefix); iter.Valid(); iter.Next() {
		ck, v := iter.Key(), iter.Value()
		if !bytes.HasPrefix(ck, prefix) {
			break
		}
		k, err := decodeKey(ck)
		if err != nil {
			return err
		}
		if err := fn(copyBytes(k), copyBytes(v)); err != nil {
			return err
		}
	}
	return nil
}

func nsKey(ns string, key []byte) []byte {
	nk := nsToPrefix(ns)
	return append(nk, key...)
}

func nsToPrefix(ns string) []byte {
	h := hash.Hash160b([]byte(ns))
	return h[:prefixLength]
}

func decodeKey(k []byte) (key []byte, err error) {
	if len(k) < prefixLength {
		return nil, errors.New("key is too short")
	}
	return k[prefixLength:], nil
}

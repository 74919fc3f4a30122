// Copyright (c) 2024 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package credential

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/iotexproject/go-pkgs/hash"
	"github.com/pkg/errors"

	"github.com/iotexproject/iotex-sbt/db"
	"github.com/iotexproject/iotex-sbt/db/batch"
	"github.com/iotexproject/iotex-sbt/pkg/util/byteutil"
)

// kv namespaces
const (
	RegistryNS   = "Registry"
	HolderNS     = "Holder"
	CredentialNS = "Credential"
	ClaimedNS    = "Claimed"
)

var (
	rootKey    = []byte("root")
	baseURIKey = []byte("uri")
	ownerKey   = []byte("owner")
	nextIDKey  = []byte("next")

	claimedValue = []byte{1}

	// ErrCorruptedIndex indicates the persisted indices disagree with each other
	ErrCorruptedIndex = errors.New("corrupted credential index")
)

type (
	// Genesis is the registry state written when the store is empty
	Genesis struct {
		Owner   common.Address
		Root    hash.Hash256
		BaseURI string
	}

	// cache is the in-memory view of the persisted registry
	cache struct {
		holders map[common.Address]uint64
		tokens  map[uint64]*Credential
		claimed map[common.Address]struct{}
		nextID  uint64
		root    hash.Hash256
		baseURI string
		owner   common.Address
	}

	// Store keeps the two credential indices and the claim markers, backed by a KVStore
	Store struct {
		kv    db.KVStore
		cache *cache
	}
)

func newCache() *cache {
	return &cache{
		holders: make(map[common.Address]uint64),
		tokens:  make(map[uint64]*Credential),
		claimed: make(map[common.Address]struct{}),
	}
}

// NewStore creates a store on top of kv
func NewStore(kv db.KVStore) *Store {
	return &Store{
		kv:    kv,
		cache: newCache(),
	}
}

// Load reads the persisted state, initializing it from genesis on an empty store
func (s *Store) Load(g Genesis) error {
	c := newCache()
	owner, err := s.kv.Get(RegistryNS, ownerKey)
	switch errors.Cause(err) {
	case nil:
		c.owner = common.BytesToAddress(owner)
	case db.ErrNotExist, db.ErrBucketNotExist:
		return s.init(g)
	default:
		return err
	}
	if c.nextID, err = s.getUint64(nextIDKey); err != nil {
		return err
	}
	root, err := s.kv.Get(RegistryNS, rootKey)
	if err != nil {
		return errors.Wrap(err, "failed to read merkle root")
	}
	c.root = hash.BytesToHash256(root)
	// an empty uri may read back as missing
	uri, err := s.kv.Get(RegistryNS, baseURIKey)
	if err != nil && errors.Cause(err) != db.ErrNotExist {
		return errors.Wrap(err, "failed to read base uri")
	}
	c.baseURI = string(uri)

	if err := s.kv.ForEach(CredentialNS, func(k, v []byte) error {
		if len(k) != 8 {
			return errors.Wrapf(ErrCorruptedIndex, "credential key %x", k)
		}
		cred := &Credential{ID: byteutil.BytesToUint64BigEndian(k)}
		if err := cred.Deserialize(v); err != nil {
			return errors.Wrapf(err, "credential %d", cred.ID)
		}
		if cred.ID >= c.nextID {
			return errors.Wrapf(ErrCorruptedIndex, "credential %d beyond counter %d", cred.ID, c.nextID)
		}
		c.tokens[cred.ID] = cred
		return nil
	}); err != nil {
		return err
	}
	if err := s.kv.ForEach(HolderNS, func(k, v []byte) error {
		holder := common.BytesToAddress(k)
		id, r, err := deserializeHolder(v)
		if err != nil {
			return errors.Wrapf(err, "holder %s", holder.Hex())
		}
		cred, ok := c.tokens[id]
		if !ok || cred.Holder != holder || cred.Record != r {
			return errors.Wrapf(ErrCorruptedIndex, "holder %s and credential %d disagree", holder.Hex(), id)
		}
		c.holders[holder] = id
		return nil
	}); err != nil {
		return err
	}
	if len(c.holders) != len(c.tokens) {
		return errors.Wrapf(ErrCorruptedIndex, "%d holders for %d credentials", len(c.holders), len(c.tokens))
	}
	if err := s.kv.ForEach(ClaimedNS, func(k, _ []byte) error {
		c.claimed[common.BytesToAddress(k)] = struct{}{}
		return nil
	}); err != nil {
		return err
	}
	s.cache = c
	return nil
}

func (s *Store) init(g Genesis) error {
	b := batch.NewBatch()
	b.Put(RegistryNS, ownerKey, g.Owner.Bytes(), "failed to put owner")
	b.Put(RegistryNS, rootKey, g.Root[:], "failed to put merkle root")
	b.Put(RegistryNS, baseURIKey, []byte(g.BaseURI), "failed to put base uri")
	b.Put(RegistryNS, nextIDKey, byteutil.Uint64ToBytesBigEndian(0), "failed to put counter")
	if err := s.kv.WriteBatch(b); err != nil {
		return errors.Wrap(err, "failed to initialize registry")
	}
	c := newCache()
	c.owner = g.Owner
	c.root = g.Root
	c.baseURI = g.BaseURI
	s.cache = c
	return nil
}

func (s *Store) getUint64(key []byte) (uint64, error) {
	v, err := s.kv.Get(RegistryNS, key)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to read %s", key)
	}
	if len(v) != 8 {
		return 0, errors.Wrapf(ErrCorruptedIndex, "%s length %d", key, len(v))
	}
	return byteutil.BytesToUint64BigEndian(v), nil
}

// HolderRecord returns the record of holder, the zero record if it holds none
func (s *Store) HolderRecord(holder common.Address) (uint64, Record, bool) {
	id, ok := s.cache.holders[holder]
	if !ok {
		return 0, Record{}, false
	}
	return id, s.cache.tokens[id].Record, true
}

// Credential returns the active credential of id
func (s *Store) Credential(id uint64) (*Credential, bool) {
	cred, ok := s.cache.tokens[id]
	if !ok {
		return nil, false
	}
	return cred.Clone(), true
}

// Credentials returns all active credentials
func (s *Store) Credentials() []*Credential {
	creds := make([]*Credential, 0, len(s.cache.tokens))
	for _, cred := range s.cache.tokens {
		creds = append(creds, cred.Clone())
	}
	return creds
}

// IsClaimUsed returns true if identity has spent its self-claim
func (s *Store) IsClaimUsed(identity common.Address) bool {
	_, ok := s.cache.claimed[identity]
	return ok
}

// NextID returns the id the next registration will receive
func (s *Store) NextID() uint64 { return s.cache.nextID }

// Root returns the committed merkle root
func (s *Store) Root() hash.Hash256 { return s.cache.root }

// BaseURI returns the metadata uri prefix
func (s *Store) BaseURI() string { return s.cache.baseURI }

// Owner returns the persisted administrator
func (s *Store) Owner() common.Address { return s.cache.owner }

// Size returns the number of active credentials
func (s *Store) Size() int { return len(s.cache.tokens) }

// newWorkingSet starts a staged mutation over the current state
func (s *Store) newWorkingSet() *workingSet {
	return newWorkingSet(s.cache)
}

// commit persists the working set and then applies it to memory
func (s *Store) commit(ws *workingSet) error {
	if err := s.kv.WriteBatch(ws.delta); err != nil {
		return errors.Wrap(err, "failed to write credential delta")
	}
	ws.apply(s.cache)
	return nil
}

// Copyright (c) 2024 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package credential

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/iotexproject/go-pkgs/hash"
	"github.com/pkg/errors"

	"github.com/iotexproject/iotex-sbt/db/batch"
	"github.com/iotexproject/iotex-sbt/pkg/util/byteutil"
)

// workingSet stages one operation: reads go through the dirty overlay to the
// base cache, writes land in the overlay and in the kv delta
type workingSet struct {
	base    *cache
	holders map[common.Address]*uint64 // nil marks a cleared holder
	tokens  map[uint64]*Credential     // nil marks a revoked credential
	claimed map[common.Address]struct{}
	nextID  uint64
	root    hash.Hash256
	baseURI string
	owner   common.Address
	delta   batch.KVStoreBatch
}

func newWorkingSet(base *cache) *workingSet {
	return &workingSet{
		base:    base,
		holders: make(map[common.Address]*uint64),
		tokens:  make(map[uint64]*Credential),
		claimed: make(map[common.Address]struct{}),
		nextID:  base.nextID,
		root:    base.root,
		baseURI: base.baseURI,
		owner:   base.owner,
		delta:   batch.NewBatch(),
	}
}

func (ws *workingSet) holderID(holder common.Address) (uint64, bool) {
	if id, ok := ws.holders[holder]; ok {
		if id == nil {
			return 0, false
		}
		return *id, true
	}
	id, ok := ws.base.holders[holder]
	return id, ok
}

func (ws *workingSet) credential(id uint64) (*Credential, bool) {
	if cred, ok := ws.tokens[id]; ok {
		if cred == nil {
			return nil, false
		}
		return cred.Clone(), true
	}
	cred, ok := ws.base.tokens[id]
	if !ok {
		return nil, false
	}
	return cred.Clone(), true
}

func (ws *workingSet) isClaimUsed(identity common.Address) bool {
	if _, ok := ws.claimed[identity]; ok {
		return true
	}
	_, ok := ws.base.claimed[identity]
	return ok
}

// register allocates the next id and binds it to holder
func (ws *workingSet) register(holder common.Address, blockNumber uint16, tier Tier) (uint64, error) {
	if !tier.IsValid() {
		return 0, errors.Wrapf(ErrInvalidTier, "tier %d", tier)
	}
	if holder == (common.Address{}) {
		return 0, errors.Wrap(ErrInvalidRecipient, "zero address")
	}
	if id, ok := ws.holderID(holder); ok {
		return 0, errors.Wrapf(ErrAlreadyHeld, "%s holds credential %d", holder.Hex(), id)
	}
	id := ws.nextID
	ws.nextID++
	ws.putCredential(&Credential{
		ID:     id,
		Holder: holder,
		Record: Record{
			Active:      true,
			BlockNumber: blockNumber,
			Tier:        tier,
		},
	})
	ws.putHolder(holder, id)
	ws.delta.Put(RegistryNS, nextIDKey, byteutil.Uint64ToBytesBigEndian(ws.nextID), "failed to put counter %d", ws.nextID)
	return id, nil
}

// revoke clears both indices of id and returns its last holder
func (ws *workingSet) revoke(id uint64) (common.Address, error) {
	cred, ok := ws.credential(id)
	if !ok {
		return common.Address{}, errors.Wrapf(ErrNotMinted, "credential %d", id)
	}
	ws.delCredential(id)
	ws.delHolder(cred.Holder)
	return cred.Holder, nil
}

// relocate moves custody of id from one holder to another
func (ws *workingSet) relocate(id uint64, from, to common.Address) error {
	if from == to {
		return errors.Wrapf(ErrInvalidRecord, "credential %d moved onto its holder", id)
	}
	if to == (common.Address{}) {
		return errors.Wrap(ErrInvalidRecipient, "zero address")
	}
	cred, ok := ws.credential(id)
	if !ok || cred.Holder != from {
		return errors.Wrapf(ErrInvalidRecord, "credential %d is not held by %s", id, from.Hex())
	}
	if held, ok := ws.holderID(to); ok {
		return errors.Wrapf(ErrAlreadyHeld, "%s holds credential %d", to.Hex(), held)
	}
	cred.Holder = to
	ws.putCredential(cred)
	ws.delHolder(from)
	ws.putHolder(to, id)
	return nil
}

// correct applies f to the active credential of holder
func (ws *workingSet) correct(holder common.Address, f func(*Record)) (uint64, error) {
	id, ok := ws.holderID(holder)
	if !ok {
		return 0, errors.Wrapf(ErrNotMinted, "%s holds no credential", holder.Hex())
	}
	cred, ok := ws.credential(id)
	if !ok {
		return 0, errors.Wrapf(ErrCorruptedIndex, "holder %s points to missing credential %d", holder.Hex(), id)
	}
	f(&cred.Record)
	ws.putCredential(cred)
	ws.putHolder(holder, id)
	return id, nil
}

func (ws *workingSet) correctTier(holder common.Address, tier Tier) (uint64, error) {
	if !tier.IsValid() {
		return 0, errors.Wrapf(ErrInvalidTier, "tier %d", tier)
	}
	return ws.correct(holder, func(r *Record) { r.Tier = tier })
}

func (ws *workingSet) correctBlockNumber(holder common.Address, blockNumber uint16) (uint64, error) {
	return ws.correct(holder, func(r *Record) { r.BlockNumber = blockNumber })
}

func (ws *workingSet) markClaimUsed(identity common.Address) {
	ws.claimed[identity] = struct{}{}
	ws.delta.Put(ClaimedNS, identity.Bytes(), claimedValue, "failed to mark claim of %s", identity.Hex())
}

func (ws *workingSet) setRoot(root hash.Hash256) {
	ws.root = root
	ws.delta.Put(RegistryNS, rootKey, root[:], "failed to put merkle root")
}

func (ws *workingSet) setBaseURI(uri string) {
	ws.baseURI = uri
	ws.delta.Put(RegistryNS, baseURIKey, []byte(uri), "failed to put base uri")
}

func (ws *workingSet) setOwner(owner common.Address) {
	ws.owner = owner
	ws.delta.Put(RegistryNS, ownerKey, owner.Bytes(), "failed to put owner")
}

func (ws *workingSet) putCredential(cred *Credential) {
	ws.tokens[cred.ID] = cred
	ws.delta.Put(CredentialNS, byteutil.Uint64ToBytesBigEndian(cred.ID), cred.Serialize(), "failed to put credential %d", cred.ID)
}

func (ws *workingSet) delCredential(id uint64) {
	ws.tokens[id] = nil
	ws.delta.Delete(CredentialNS, byteutil.Uint64ToBytesBigEndian(id), "failed to delete credential %d", id)
}

// putHolder must follow putCredential of the same id
func (ws *workingSet) putHolder(holder common.Address, id uint64) {
	ws.holders[holder] = &id
	ws.delta.Put(HolderNS, holder.Bytes(), serializeHolder(id, ws.tokens[id].Record), "failed to put holder %s", holder.Hex())
}

func (ws *workingSet) delHolder(holder common.Address) {
	ws.holders[holder] = nil
	ws.delta.Delete(HolderNS, holder.Bytes(), "failed to delete holder %s", holder.Hex())
}

// apply swaps the overlay into c
func (ws *workingSet) apply(c *cache) {
	for holder, id := range ws.holders {
		if id == nil {
			delete(c.holders, holder)
			continue
		}
		c.holders[holder] = *id
	}
	for id, cred := range ws.tokens {
		if cred == nil {
			delete(c.tokens, id)
			continue
		}
		c.tokens[id] = cred
	}
	for identity := range ws.claimed {
		c.claimed[identity] = struct{}{}
	}
	c.nextID = ws.nextID
	c.root = ws.root
	c.baseURI = ws.baseURI
	c.owner = ws.owner
}

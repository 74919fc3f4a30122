// Copyright (c) 2024 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package credential

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/iotexproject/go-pkgs/hash"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/iotexproject/iotex-sbt/access"
	"github.com/iotexproject/iotex-sbt/allowlist"
	"github.com/iotexproject/iotex-sbt/db"
	"github.com/iotexproject/iotex-sbt/erc721"
	"github.com/iotexproject/iotex-sbt/pkg/log"
)

type (
	// Controller runs the credential lifecycle: self-claim against the
	// committed allowlist, administrator issuance, correction, custody
	// transfer and revocation
	Controller struct {
		mutex   sync.RWMutex
		kv      db.KVStore
		store   *Store
		gate    *access.Ownable
		ledger  erc721.Ledger
		genesis Genesis
		name    string
		symbol  string
	}

	// Option is the option to create a controller
	Option func(*Controller)
)

// WithLedger sets the ownership ledger, an in-memory book by default
func WithLedger(ledger erc721.Ledger) Option {
	return func(c *Controller) {
		c.ledger = ledger
	}
}

// WithMetadata sets the collection name and symbol
func WithMetadata(name, symbol string) Option {
	return func(c *Controller) {
		c.name = name
		c.symbol = symbol
	}
}

// NewController creates a controller over kv
func NewController(kv db.KVStore, genesis Genesis, opts ...Option) *Controller {
	c := &Controller{
		kv:      kv,
		store:   NewStore(kv),
		gate:    access.NewOwnable(genesis.Owner),
		genesis: genesis,
		name:    DefaultConfig.Name,
		symbol:  DefaultConfig.Symbol,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.ledger == nil {
		c.ledger = erc721.NewBook()
	}
	return c
}

// Start opens the store, loads the registry and rebuilds the ledger
func (c *Controller) Start(ctx context.Context) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if err := c.kv.Start(ctx); err != nil {
		return errors.Wrap(err, "failed to start kv store")
	}
	if err := c.store.Load(c.genesis); err != nil {
		return errors.Wrap(err, "failed to load registry")
	}
	c.gate.SetOwner(c.store.Owner())
	creds := c.store.Credentials()
	sort.Slice(creds, func(i, j int) bool { return creds[i].ID < creds[j].ID })
	for _, cred := range creds {
		if err := c.ledger.Mint(cred.Holder, cred.ID); err != nil {
			if errors.Cause(err) != erc721.ErrTokenExists {
				return errors.Wrapf(err, "failed to restore credential %d", cred.ID)
			}
			owner, err := c.ledger.OwnerOf(cred.ID)
			if err != nil || owner != cred.Holder {
				return errors.Wrapf(ErrCorruptedIndex, "ledger disagrees on credential %d", cred.ID)
			}
		}
	}
	log.L().Info("Registry loaded.",
		zap.String("owner", c.store.Owner().Hex()),
		zap.String("root", hexDigest(c.store.Root())),
		zap.Int("active", c.store.Size()),
		zap.Uint64("nextID", c.store.NextID()))
	return nil
}

// Stop closes the store
func (c *Controller) Stop(ctx context.Context) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.kv.Stop(ctx)
}

// Claim lets the caller spend its one-time claim, proving its own allowlist
// membership and directing the credential to recipient
func (c *Controller) Claim(ctx context.Context, recipient common.Address, blockNumber uint16, tier Tier, proof []hash.Hash256) (r *Receipt, err error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	defer func() { err = c.done("claim", err) }()

	caller, err := callerOf(ctx)
	if err != nil {
		return nil, err
	}
	ws := c.store.newWorkingSet()
	if !allowlist.Verify(ws.root, caller, blockNumber, uint8(tier), proof) {
		return nil, errors.Wrapf(ErrInvalidProof, "caller %s", caller.Hex())
	}
	if ws.isClaimUsed(caller) {
		return nil, errors.Wrapf(ErrClaimed, "caller %s", caller.Hex())
	}
	if !tier.IsValid() {
		return nil, errors.Wrapf(ErrInvalidTier, "tier %d", tier)
	}
	if recipient == (common.Address{}) {
		return nil, errors.Wrap(ErrInvalidRecipient, "zero address")
	}
	id, err := ws.register(recipient, blockNumber, tier)
	if err != nil {
		return nil, err
	}
	ws.markClaimUsed(caller)
	if err := c.checkMintable(id); err != nil {
		return nil, err
	}
	if err := c.store.commit(ws); err != nil {
		return nil, err
	}
	receipt := newReceipt()
	c.mint(receipt, recipient, id)
	log.L().Info("Credential claimed.",
		zap.String("caller", caller.Hex()),
		zap.String("holder", recipient.Hex()),
		zap.Uint64("id", id),
		zap.Stringer("tier", tier))
	return receipt, nil
}

// BatchIssue issues one credential per address, all or nothing
func (c *Controller) BatchIssue(ctx context.Context, addresses []common.Address, blockNumbers []uint16, tiers []Tier) (r *Receipt, err error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	defer func() { err = c.done("batchIssue", err) }()

	if err := c.onlyOwner(ctx); err != nil {
		return nil, err
	}
	n := len(addresses)
	if n == 0 || len(blockNumbers) != n || len(tiers) != n {
		return nil, errors.Wrapf(ErrInconsistentLength, "%d addresses, %d block numbers, %d tiers", n, len(blockNumbers), len(tiers))
	}
	ws := c.store.newWorkingSet()
	ids := make([]uint64, n)
	for i, addr := range addresses {
		id, err := ws.register(addr, blockNumbers[i], tiers[i])
		if err != nil {
			if errors.Cause(err) == ErrAlreadyHeld {
				return nil, errors.Wrapf(ErrAlreadyMinted, "address %s at index %d", addr.Hex(), i)
			}
			return nil, errors.Wrapf(err, "index %d", i)
		}
		if err := c.checkMintable(id); err != nil {
			return nil, err
		}
		ids[i] = id
	}
	if err := c.store.commit(ws); err != nil {
		return nil, err
	}
	receipt := newReceipt()
	for i, addr := range addresses {
		c.mint(receipt, addr, ids[i])
	}
	log.L().Info("Credentials issued.", zap.Int("count", n), zap.Uint64("firstID", ids[0]))
	return receipt, nil
}

// CorrectTier updates the tier of holder's active credential
func (c *Controller) CorrectTier(ctx context.Context, holder common.Address, tier Tier) (r *Receipt, err error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	defer func() { err = c.done("correctTier", err) }()

	if err := c.onlyOwner(ctx); err != nil {
		return nil, err
	}
	ws := c.store.newWorkingSet()
	id, err := ws.correctTier(holder, tier)
	if err != nil {
		return nil, err
	}
	if err := c.store.commit(ws); err != nil {
		return nil, err
	}
	log.L().Info("Credential tier corrected.", zap.Uint64("id", id), zap.Stringer("tier", tier))
	return newReceipt(), nil
}

// CorrectBlockNumber updates the block number of holder's active credential
func (c *Controller) CorrectBlockNumber(ctx context.Context, holder common.Address, blockNumber uint16) (r *Receipt, err error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	defer func() { err = c.done("correctBlockNumber", err) }()

	if err := c.onlyOwner(ctx); err != nil {
		return nil, err
	}
	ws := c.store.newWorkingSet()
	id, err := ws.correctBlockNumber(holder, blockNumber)
	if err != nil {
		return nil, err
	}
	if err := c.store.commit(ws); err != nil {
		return nil, err
	}
	log.L().Info("Credential block number corrected.", zap.Uint64("id", id), zap.Uint16("blockNumber", blockNumber))
	return newReceipt(), nil
}

// TransferFrom moves a credential. Only the administrator may transfer.
func (c *Controller) TransferFrom(ctx context.Context, from, to common.Address, id uint64) (*Receipt, error) {
	return c.transfer(ctx, "transferFrom", from, to, id)
}

// SafeTransferFrom is TransferFrom with the data argument of the ERC-721 variant
func (c *Controller) SafeTransferFrom(ctx context.Context, from, to common.Address, id uint64, _ []byte) (*Receipt, error) {
	return c.transfer(ctx, "safeTransferFrom", from, to, id)
}

func (c *Controller) transfer(ctx context.Context, method string, from, to common.Address, id uint64) (r *Receipt, err error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	defer func() { err = c.done(method, err) }()

	if err := c.onlyOwner(ctx); err != nil {
		return nil, err
	}
	if from == to {
		return nil, errors.Wrapf(ErrSelfTransfer, "credential %d", id)
	}
	ws := c.store.newWorkingSet()
	if err := ws.relocate(id, from, to); err != nil {
		return nil, err
	}
	if owner, err := c.ledger.OwnerOf(id); err != nil || owner != from {
		return nil, errors.Wrapf(ErrCorruptedIndex, "ledger disagrees on credential %d", id)
	}
	if err := c.store.commit(ws); err != nil {
		return nil, err
	}
	if err := c.ledger.Transfer(from, to, id); err != nil {
		log.L().Error("Ledger failed to transfer committed credential.", zap.Uint64("id", id), zap.Error(err))
	}
	receipt := newReceipt()
	receipt.addLogs(transferLog(from, to, id))
	log.L().Info("Credential transferred.",
		zap.Uint64("id", id),
		zap.String("from", from.Hex()),
		zap.String("to", to.Hex()))
	return receipt, nil
}

// Revoke burns a credential. The claim marker of its claimant is kept.
func (c *Controller) Revoke(ctx context.Context, id uint64) (r *Receipt, err error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	defer func() { err = c.done("revoke", err) }()

	if err := c.onlyOwner(ctx); err != nil {
		return nil, err
	}
	ws := c.store.newWorkingSet()
	holder, err := ws.revoke(id)
	if err != nil {
		return nil, err
	}
	if err := c.store.commit(ws); err != nil {
		return nil, err
	}
	if err := c.ledger.Burn(id); err != nil {
		log.L().Error("Ledger failed to burn committed credential.", zap.Uint64("id", id), zap.Error(err))
	}
	receipt := newReceipt()
	receipt.addLogs(transferLog(holder, common.Address{}, id))
	log.L().Info("Credential revoked.", zap.Uint64("id", id), zap.String("holder", holder.Hex()))
	return receipt, nil
}

// SetMerkleRoot replaces the committed allowlist root
func (c *Controller) SetMerkleRoot(ctx context.Context, root hash.Hash256) (r *Receipt, err error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	defer func() { err = c.done("setMerkleRoot", err) }()

	if err := c.onlyOwner(ctx); err != nil {
		return nil, err
	}
	ws := c.store.newWorkingSet()
	ws.setRoot(root)
	if err := c.store.commit(ws); err != nil {
		return nil, err
	}
	log.L().Info("Merkle root updated.", zap.String("root", hexDigest(root)))
	return newReceipt(), nil
}

// SetBaseURI replaces the metadata uri prefix
func (c *Controller) SetBaseURI(ctx context.Context, uri string) (r *Receipt, err error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	defer func() { err = c.done("setBaseURI", err) }()

	if err := c.onlyOwner(ctx); err != nil {
		return nil, err
	}
	ws := c.store.newWorkingSet()
	ws.setBaseURI(uri)
	if err := c.store.commit(ws); err != nil {
		return nil, err
	}
	log.L().Info("Base uri updated.", zap.String("uri", uri))
	return newReceipt(), nil
}

// TransferOwnership hands the administrator role to newOwner
func (c *Controller) TransferOwnership(ctx context.Context, newOwner common.Address) (r *Receipt, err error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	defer func() { err = c.done("transferOwnership", err) }()

	caller, err := callerOf(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.gate.CheckTransfer(caller, newOwner); err != nil {
		if errors.Cause(err) == access.ErrZeroOwner {
			return nil, errors.Wrap(ErrInvalidRecipient, err.Error())
		}
		return nil, err
	}
	ws := c.store.newWorkingSet()
	ws.setOwner(newOwner)
	if err := c.store.commit(ws); err != nil {
		return nil, err
	}
	c.gate.SetOwner(newOwner)
	receipt := newReceipt()
	receipt.addLogs(ownershipTransferredLog(caller, newOwner))
	log.L().Info("Ownership transferred.", zap.String("previous", caller.Hex()), zap.String("owner", newOwner.Hex()))
	return receipt, nil
}

// Locked returns true for every existing credential
func (c *Controller) Locked(id uint64) (bool, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	if _, err := c.ledger.OwnerOf(id); err != nil {
		return false, toReceiptError(errors.Wrapf(ErrInvalidToken, "credential %d", id))
	}
	return true, nil
}

// OwnerOf returns the custodian of a credential
func (c *Controller) OwnerOf(id uint64) (common.Address, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	owner, err := c.ledger.OwnerOf(id)
	if err != nil {
		return common.Address{}, toReceiptError(errors.Wrapf(ErrNotMinted, "credential %d", id))
	}
	return owner, nil
}

// BalanceOf returns the number of credentials held by owner
func (c *Controller) BalanceOf(owner common.Address) uint64 {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.ledger.BalanceOf(owner)
}

// TokenURI returns base uri | decimal id | ".json"
func (c *Controller) TokenURI(id uint64) (string, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	if _, err := c.ledger.OwnerOf(id); err != nil {
		return "", toReceiptError(errors.Wrapf(ErrNotMinted, "credential %d", id))
	}
	return c.store.BaseURI() + strconv.FormatUint(id, 10) + ".json", nil
}

// Credential returns a credential and its custodian
func (c *Controller) Credential(id uint64) (*Credential, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	cred, ok := c.store.Credential(id)
	if !ok {
		return nil, toReceiptError(errors.Wrapf(ErrNotMinted, "credential %d", id))
	}
	return cred, nil
}

// BlockNumberOf returns the block number attribute of a credential
func (c *Controller) BlockNumberOf(id uint64) (uint16, error) {
	cred, err := c.Credential(id)
	if err != nil {
		return 0, err
	}
	return cred.BlockNumber, nil
}

// TierOf returns the tier attribute of a credential
func (c *Controller) TierOf(id uint64) (Tier, error) {
	cred, err := c.Credential(id)
	if err != nil {
		return 0, err
	}
	return cred.Tier, nil
}

// HolderRecord returns the record of holder, inactive if it holds nothing
func (c *Controller) HolderRecord(holder common.Address) Record {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	_, r, _ := c.store.HolderRecord(holder)
	return r
}

// Holding returns the id and record of holder's active credential in one read
func (c *Controller) Holding(holder common.Address) (uint64, Record, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.store.HolderRecord(holder)
}

// CredentialIDOf returns the id of holder's active credential
func (c *Controller) CredentialIDOf(holder common.Address) (uint64, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	id, _, ok := c.store.HolderRecord(holder)
	if !ok {
		return 0, toReceiptError(errors.Wrapf(ErrNotMinted, "%s holds no credential", holder.Hex()))
	}
	return id, nil
}

// IsClaimUsed returns true if identity has spent its self-claim
func (c *Controller) IsClaimUsed(identity common.Address) bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.store.IsClaimUsed(identity)
}

// MerkleRoot returns the committed root
func (c *Controller) MerkleRoot() hash.Hash256 {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.store.Root()
}

// BaseURI returns the metadata uri prefix
func (c *Controller) BaseURI() string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.store.BaseURI()
}

// Owner returns the administrator
func (c *Controller) Owner() common.Address {
	return c.gate.Owner()
}

// Name returns the collection name
func (c *Controller) Name() string { return c.name }

// Symbol returns the collection symbol
func (c *Controller) Symbol() string { return c.symbol }

// TotalSupply returns the number of active credentials
func (c *Controller) TotalSupply() uint64 {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return uint64(c.store.Size())
}

// SupportsInterface reports ERC-165 capabilities
func (c *Controller) SupportsInterface(id [4]byte) bool {
	return erc721.SupportsInterface(id)
}

func (c *Controller) onlyOwner(ctx context.Context) error {
	caller, err := callerOf(ctx)
	if err != nil {
		return err
	}
	return c.gate.OnlyOwner(caller)
}

func (c *Controller) checkMintable(id uint64) error {
	if _, err := c.ledger.OwnerOf(id); err == nil {
		return errors.Wrapf(ErrCorruptedIndex, "credential %d already in ledger", id)
	}
	return nil
}

func (c *Controller) mint(receipt *Receipt, to common.Address, id uint64) {
	if err := c.ledger.Mint(to, id); err != nil {
		log.L().Error("Ledger failed to mint committed credential.", zap.Uint64("id", id), zap.Error(err))
	}
	receipt.addMint(to, id)
}

func (c *Controller) done(method string, err error) error {
	err = toReceiptError(err)
	c.observe(method, err)
	if err != nil {
		log.L().Debug("Operation rejected.", zap.String("method", method), zap.Stringer("status", StatusOf(err)), zap.Error(err))
	}
	return err
}

func callerOf(ctx context.Context) (common.Address, error) {
	ac, ok := GetActionCtx(ctx)
	if !ok {
		return common.Address{}, ErrMissingActionCtx
	}
	return ac.Caller, nil
}

func hexDigest(h hash.Hash256) string {
	return hexutil.Encode(h[:])
}

// Copyright (c) 2024 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package credential

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/iotexproject/go-pkgs/hash"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/iotexproject/iotex-sbt/allowlist"
	"github.com/iotexproject/iotex-sbt/db"
	"github.com/iotexproject/iotex-sbt/erc721"
	"github.com/iotexproject/iotex-sbt/test/identityset"
	"github.com/iotexproject/iotex-sbt/test/mock/mock_erc721"
)

var (
	_admin = identityset.Address(0)
	_a1    = identityset.Address(1)
	_a2    = identityset.Address(2)
	_a3    = identityset.Address(3)
	_a4    = identityset.Address(4)
	_a5    = identityset.Address(5)
	_a6    = identityset.Address(6)

	_entries = []allowlist.Entry{
		{Address: _a1, BlockNumber: 1, Tier: uint8(TierOG)},
		{Address: _a2, BlockNumber: 4, Tier: uint8(TierAlum)},
		{Address: _a3, BlockNumber: 7, Tier: uint8(TierEngineers)},
		{Address: _a4, BlockNumber: 1, Tier: uint8(TierHonors)},
	}
)

func callAs(caller common.Address) context.Context {
	return WithActionCtx(context.Background(), ActionCtx{Caller: caller})
}

func newTestController(t *testing.T, opts ...Option) (*Controller, *allowlist.Tree) {
	require := require.New(t)
	tree, err := allowlist.BuildTree(_entries)
	require.NoError(err)
	c := NewController(db.NewMemKVStore(), Genesis{
		Owner:   _admin,
		Root:    tree.Root(),
		BaseURI: "ipfs://sbt/",
	}, opts...)
	require.NoError(c.Start(context.Background()))
	t.Cleanup(func() {
		require.NoError(c.Stop(context.Background()))
	})
	return c, tree
}

func proofOf(t *testing.T, tree *allowlist.Tree, i int) []hash.Hash256 {
	proof, err := tree.Proof(_entries[i].Leaf())
	require.NoError(t, err)
	return proof
}

func requireStatus(t *testing.T, expected ReceiptStatus, err error) {
	require.Error(t, err)
	require.Equal(t, expected, StatusOf(err), err.Error())
}

func TestControllerScenarios(t *testing.T) {
	require := require.New(t)
	c, tree := newTestController(t)
	proof := proofOf(t, tree, 0)

	t.Run("claim to self", func(t *testing.T) {
		c, _ := newTestController(t)
		r, err := c.Claim(callAs(_a1), _a1, 1, TierOG, proof)
		require.NoError(err)
		require.Equal(ReceiptStatusSuccess, r.Status)
		require.Equal([]uint64{0}, r.CredentialIDs)
		owner, err := c.OwnerOf(0)
		require.NoError(err)
		require.Equal(_a1, owner)
		require.Equal(Record{Active: true, BlockNumber: 1, Tier: TierOG}, c.HolderRecord(_a1))
		locked, err := c.Locked(0)
		require.NoError(err)
		require.True(locked)
	})

	// claim to a5, revoke, re-issue, then transfer to a6
	r, err := c.Claim(callAs(_a1), _a5, 1, TierOG, proof)
	require.NoError(err)
	require.Equal([]uint64{0}, r.CredentialIDs)
	owner, err := c.OwnerOf(0)
	require.NoError(err)
	require.Equal(_a5, owner)
	require.False(c.HolderRecord(_a1).Active)
	require.True(c.IsClaimUsed(_a1))
	require.False(c.IsClaimUsed(_a5))
	_, err = c.Claim(callAs(_a1), _a1, 1, TierOG, proof)
	requireStatus(t, ReceiptStatusClaimed, err)

	r, err = c.Revoke(callAs(_admin), 0)
	require.NoError(err)
	require.Len(r.Logs, 1)
	require.Equal(TransferEvent, r.Logs[0].Topics[0])
	require.Equal(hash.ZeroHash256, r.Logs[0].Topics[2])
	_, err = c.OwnerOf(0)
	requireStatus(t, ReceiptStatusNotMinted, err)
	require.False(c.HolderRecord(_a5).Active)

	r, err = c.BatchIssue(callAs(_admin), []common.Address{_a5}, []uint16{1}, []Tier{TierOG})
	require.NoError(err)
	require.Equal([]uint64{1}, r.CredentialIDs)
	require.Equal(Record{Active: true, BlockNumber: 1, Tier: TierOG}, c.HolderRecord(_a5))
	_, err = c.Claim(callAs(_a1), _a1, 1, TierOG, proof)
	requireStatus(t, ReceiptStatusClaimed, err)

	r, err = c.TransferFrom(callAs(_admin), _a5, _a6, 1)
	require.NoError(err)
	require.Len(r.Logs, 1)
	require.False(c.HolderRecord(_a5).Active)
	require.Equal(Record{Active: true, BlockNumber: 1, Tier: TierOG}, c.HolderRecord(_a6))
	owner, err = c.OwnerOf(1)
	require.NoError(err)
	require.Equal(_a6, owner)
	require.Zero(c.BalanceOf(_a5))
	require.Equal(uint64(1), c.BalanceOf(_a6))
	_, err = c.TransferFrom(callAs(_a6), _a6, _a5, 1)
	requireStatus(t, ReceiptStatusUnauthorized, err)
	require.Equal(uint64(2), c.store.NextID())
	require.Equal(uint64(1), c.TotalSupply())
}

func TestControllerClaim(t *testing.T) {
	require := require.New(t)
	c, tree := newTestController(t)

	t.Run("mint logs", func(t *testing.T) {
		r, err := c.Claim(callAs(_a2), _a2, 4, TierAlum, proofOf(t, tree, 1))
		require.NoError(err)
		require.Len(r.Logs, 2)
		transfer, locked := r.Logs[0], r.Logs[1]
		require.Equal([]hash.Hash256{
			TransferEvent,
			hash.ZeroHash256,
			hash.BytesToHash256(common.BytesToHash(_a2.Bytes()).Bytes()),
			hash.ZeroHash256,
		}, transfer.Topics)
		require.Equal([]hash.Hash256{LockedEvent}, locked.Topics)
		require.Equal(make([]byte, 32), locked.Data)
	})
	t.Run("check order", func(t *testing.T) {
		proof := proofOf(t, tree, 2)
		_, err := c.Claim(callAs(_a3), _a3, 7, Tier(5), proof)
		requireStatus(t, ReceiptStatusInvalidProof, err)
		_, err = c.Claim(callAs(_a3), common.Address{}, 9, TierEngineers, proof)
		requireStatus(t, ReceiptStatusInvalidProof, err)
		_, err = c.Claim(callAs(_a3), common.Address{}, 7, TierEngineers, proof)
		requireStatus(t, ReceiptStatusInvalidRecipient, err)
		_, err = c.Claim(callAs(_a3), _a3, 7, TierOG, proof)
		requireStatus(t, ReceiptStatusInvalidProof, err)
		_, err = c.Claim(callAs(_a3), _a3, 8, TierEngineers, proof)
		requireStatus(t, ReceiptStatusInvalidProof, err)
		// the proof binds the caller, not the recipient
		_, err = c.Claim(callAs(_a6), _a3, 7, TierEngineers, proof)
		requireStatus(t, ReceiptStatusInvalidProof, err)
		_, err = c.Claim(callAs(_a3), _a2, 7, TierEngineers, proof)
		requireStatus(t, ReceiptStatusAlreadyHeld, err)
		require.False(c.IsClaimUsed(_a3))
		_, err = c.Claim(callAs(_a3), _a3, 7, TierEngineers, proof)
		require.NoError(err)
		_, err = c.Claim(callAs(_a3), _a6, 7, TierEngineers, proof)
		requireStatus(t, ReceiptStatusClaimed, err)
	})
	t.Run("tier checked after proof", func(t *testing.T) {
		c, _ := newTestController(t)
		_, err := c.SetMerkleRoot(callAs(_admin), allowlist.Leaf(_a6, 2, 9))
		require.NoError(err)
		_, err = c.Claim(callAs(_a6), _a6, 2, Tier(9), nil)
		requireStatus(t, ReceiptStatusInvalidTier, err)
		require.False(c.IsClaimUsed(_a6))
		_, err = c.Claim(callAs(_a6), _a6, 2, Tier(8), nil)
		requireStatus(t, ReceiptStatusInvalidProof, err)
	})
	t.Run("missing caller", func(t *testing.T) {
		_, err := c.Claim(context.Background(), _a4, 1, TierHonors, proofOf(t, tree, 3))
		require.Equal(ErrMissingActionCtx, errors.Cause(err))
		require.Equal(ReceiptStatusFailure, StatusOf(err))
	})
	t.Run("root replaced", func(t *testing.T) {
		_, err := c.SetMerkleRoot(callAs(_a4), hash.ZeroHash256)
		requireStatus(t, ReceiptStatusUnauthorized, err)
		_, err = c.SetMerkleRoot(callAs(_admin), hash.ZeroHash256)
		require.NoError(err)
		require.Equal(hash.ZeroHash256, c.MerkleRoot())
		_, err = c.Claim(callAs(_a4), _a4, 1, TierHonors, proofOf(t, tree, 3))
		requireStatus(t, ReceiptStatusInvalidProof, err)
	})
}

func TestControllerBatchIssue(t *testing.T) {
	require := require.New(t)
	c, _ := newTestController(t)

	_, err := c.BatchIssue(callAs(_a1), []common.Address{_a1}, []uint16{1}, []Tier{TierOG})
	requireStatus(t, ReceiptStatusUnauthorized, err)
	for _, v := range []struct {
		addrs []common.Address
		bns   []uint16
		tiers []Tier
	}{
		{nil, nil, nil},
		{[]common.Address{}, []uint16{}, []Tier{}},
		{[]common.Address{_a1, _a2}, []uint16{1}, []Tier{TierOG, TierOG}},
		{[]common.Address{_a1}, []uint16{1, 2}, []Tier{TierOG}},
		{[]common.Address{_a1}, []uint16{1}, []Tier{TierOG, TierAlum}},
	} {
		_, err = c.BatchIssue(callAs(_admin), v.addrs, v.bns, v.tiers)
		requireStatus(t, ReceiptStatusInconsistentLength, err)
	}

	r, err := c.BatchIssue(callAs(_admin), []common.Address{_a3}, []uint16{9}, []Tier{TierFounders})
	require.NoError(err)
	require.Equal([]uint64{0}, r.CredentialIDs)

	// the 3rd of 4 already holds a credential
	_, err = c.BatchIssue(callAs(_admin),
		[]common.Address{_a1, _a2, _a3, _a4},
		[]uint16{1, 2, 3, 4},
		[]Tier{TierOG, TierOG, TierOG, TierOG})
	requireStatus(t, ReceiptStatusAlreadyMinted, err)
	for _, a := range []common.Address{_a1, _a2, _a4} {
		require.False(c.HolderRecord(a).Active)
		require.Zero(c.BalanceOf(a))
	}
	require.Equal(Record{Active: true, BlockNumber: 9, Tier: TierFounders}, c.HolderRecord(_a3))
	require.Equal(uint64(1), c.store.NextID())

	_, err = c.BatchIssue(callAs(_admin), []common.Address{_a1, _a1}, []uint16{1, 1}, []Tier{TierOG, TierOG})
	requireStatus(t, ReceiptStatusAlreadyMinted, err)
	_, err = c.BatchIssue(callAs(_admin), []common.Address{_a1, {}}, []uint16{1, 1}, []Tier{TierOG, TierOG})
	requireStatus(t, ReceiptStatusInvalidRecipient, err)
	_, err = c.BatchIssue(callAs(_admin), []common.Address{_a1}, []uint16{1}, []Tier{Tier(9)})
	requireStatus(t, ReceiptStatusInvalidTier, err)

	r, err = c.BatchIssue(callAs(_admin), []common.Address{_a1, _a2}, []uint16{1, 2}, []Tier{TierHonors, TierAlum})
	require.NoError(err)
	require.Equal([]uint64{1, 2}, r.CredentialIDs)
	require.Len(r.Logs, 4)
	for id := uint64(0); id < 3; id++ {
		locked, err := c.Locked(id)
		require.NoError(err)
		require.True(locked)
	}
	// issuance does not spend the claim
	require.False(c.IsClaimUsed(_a1))
}

func TestControllerCorrect(t *testing.T) {
	require := require.New(t)
	c, _ := newTestController(t)
	_, err := c.BatchIssue(callAs(_admin), []common.Address{_a1}, []uint16{1}, []Tier{TierOG})
	require.NoError(err)

	_, err = c.CorrectTier(callAs(_a1), _a1, TierAlum)
	requireStatus(t, ReceiptStatusUnauthorized, err)
	_, err = c.CorrectTier(callAs(_admin), _a1, Tier(5))
	requireStatus(t, ReceiptStatusInvalidTier, err)
	_, err = c.CorrectTier(callAs(_admin), _a2, TierAlum)
	requireStatus(t, ReceiptStatusNotMinted, err)
	_, err = c.CorrectBlockNumber(callAs(_admin), _a2, 3)
	requireStatus(t, ReceiptStatusNotMinted, err)

	_, err = c.CorrectTier(callAs(_admin), _a1, TierAlum)
	require.NoError(err)
	_, err = c.CorrectBlockNumber(callAs(_admin), _a1, 42)
	require.NoError(err)
	expected := Record{Active: true, BlockNumber: 42, Tier: TierAlum}
	require.Equal(expected, c.HolderRecord(_a1))
	cred, err := c.Credential(0)
	require.NoError(err)
	require.Equal(_a1, cred.Holder)
	require.Equal(expected, cred.Record)
	tier, err := c.TierOf(0)
	require.NoError(err)
	require.Equal(TierAlum, tier)
	bn, err := c.BlockNumberOf(0)
	require.NoError(err)
	require.Equal(uint16(42), bn)
	_, err = c.TierOf(1)
	requireStatus(t, ReceiptStatusNotMinted, err)
}

func TestControllerTransfer(t *testing.T) {
	require := require.New(t)
	c, _ := newTestController(t)
	_, err := c.BatchIssue(callAs(_admin), []common.Address{_a1, _a2}, []uint16{1, 2}, []Tier{TierOG, TierAlum})
	require.NoError(err)

	for _, caller := range []common.Address{_a1, _a2, _a3} {
		_, err = c.TransferFrom(callAs(caller), _a1, _a3, 0)
		requireStatus(t, ReceiptStatusUnauthorized, err)
		_, err = c.SafeTransferFrom(callAs(caller), _a1, _a3, 0, nil)
		requireStatus(t, ReceiptStatusUnauthorized, err)
	}
	_, err = c.TransferFrom(callAs(_admin), _a1, _a1, 0)
	requireStatus(t, ReceiptStatusSelfTransfer, err)
	_, err = c.TransferFrom(callAs(_admin), _a1, _a2, 0)
	requireStatus(t, ReceiptStatusAlreadyHeld, err)
	_, err = c.TransferFrom(callAs(_admin), _a1, common.Address{}, 0)
	requireStatus(t, ReceiptStatusInvalidRecipient, err)
	_, err = c.TransferFrom(callAs(_admin), _a2, _a3, 0)
	requireStatus(t, ReceiptStatusInvalidRecord, err)
	_, err = c.TransferFrom(callAs(_admin), _a1, _a3, 7)
	requireStatus(t, ReceiptStatusInvalidRecord, err)

	r, err := c.SafeTransferFrom(callAs(_admin), _a1, _a3, 0, []byte("data"))
	require.NoError(err)
	require.Equal(TransferEvent, r.Logs[0].Topics[0])
	require.False(c.HolderRecord(_a1).Active)
	require.Equal(Record{Active: true, BlockNumber: 1, Tier: TierOG}, c.HolderRecord(_a3))
	id, err := c.CredentialIDOf(_a3)
	require.NoError(err)
	require.Zero(id)
	_, err = c.CredentialIDOf(_a1)
	requireStatus(t, ReceiptStatusNotMinted, err)
	id, rec, ok := c.Holding(_a3)
	require.True(ok)
	require.Zero(id)
	require.Equal(Record{Active: true, BlockNumber: 1, Tier: TierOG}, rec)
	_, rec, ok = c.Holding(_a1)
	require.False(ok)
	require.False(rec.Active)
	locked, err := c.Locked(0)
	require.NoError(err)
	require.True(locked)
}

func TestControllerRevoke(t *testing.T) {
	require := require.New(t)
	c, tree := newTestController(t)
	_, err := c.Claim(callAs(_a4), _a4, 1, TierHonors, proofOf(t, tree, 3))
	require.NoError(err)

	_, err = c.Revoke(callAs(_a4), 0)
	requireStatus(t, ReceiptStatusUnauthorized, err)
	_, err = c.Revoke(callAs(_admin), 1)
	requireStatus(t, ReceiptStatusNotMinted, err)
	_, err = c.Revoke(callAs(_admin), 0)
	require.NoError(err)
	_, err = c.Revoke(callAs(_admin), 0)
	requireStatus(t, ReceiptStatusNotMinted, err)
	_, err = c.Locked(0)
	requireStatus(t, ReceiptStatusInvalidToken, err)
	_, err = c.TokenURI(0)
	requireStatus(t, ReceiptStatusNotMinted, err)
	require.True(c.IsClaimUsed(_a4))
	require.Zero(c.TotalSupply())

	// a revoked id is never reused
	r, err := c.BatchIssue(callAs(_admin), []common.Address{_a4}, []uint16{1}, []Tier{TierHonors})
	require.NoError(err)
	require.Equal([]uint64{1}, r.CredentialIDs)
	_, err = c.Claim(callAs(_a4), _a4, 1, TierHonors, proofOf(t, tree, 3))
	requireStatus(t, ReceiptStatusClaimed, err)
}

func TestControllerOwnership(t *testing.T) {
	require := require.New(t)
	c, _ := newTestController(t)
	require.Equal(_admin, c.Owner())

	_, err := c.TransferOwnership(callAs(_a1), _a1)
	requireStatus(t, ReceiptStatusUnauthorized, err)
	_, err = c.TransferOwnership(callAs(_admin), common.Address{})
	requireStatus(t, ReceiptStatusInvalidRecipient, err)
	r, err := c.TransferOwnership(callAs(_admin), _a1)
	require.NoError(err)
	require.Len(r.Logs, 1)
	require.Equal(OwnershipTransferredEvent, r.Logs[0].Topics[0])
	require.Equal(_a1, c.Owner())

	_, err = c.BatchIssue(callAs(_admin), []common.Address{_a2}, []uint16{1}, []Tier{TierOG})
	requireStatus(t, ReceiptStatusUnauthorized, err)
	_, err = c.BatchIssue(callAs(_a1), []common.Address{_a2}, []uint16{1}, []Tier{TierOG})
	require.NoError(err)
}

func TestControllerMetadata(t *testing.T) {
	require := require.New(t)
	c, _ := newTestController(t, WithMetadata("Alumni", "ALUM"))
	require.Equal("Alumni", c.Name())
	require.Equal("ALUM", c.Symbol())
	require.Equal("ipfs://sbt/", c.BaseURI())

	_, err := c.BatchIssue(callAs(_admin), []common.Address{_a1}, []uint16{1}, []Tier{TierOG})
	require.NoError(err)
	uri, err := c.TokenURI(0)
	require.NoError(err)
	require.Equal("ipfs://sbt/0.json", uri)

	_, err = c.SetBaseURI(callAs(_a1), "https://x/")
	requireStatus(t, ReceiptStatusUnauthorized, err)
	_, err = c.SetBaseURI(callAs(_admin), "https://sbt.iotex.io/meta/")
	require.NoError(err)
	uri, err = c.TokenURI(0)
	require.NoError(err)
	require.Equal("https://sbt.iotex.io/meta/0.json", uri)

	for _, id := range [][4]byte{
		{0x01, 0xff, 0xc9, 0xa7},
		{0x80, 0xac, 0x58, 0xcd},
		{0x5b, 0x5e, 0x13, 0x9f},
		{0xb4, 0x5a, 0x3c, 0x0e},
	} {
		require.True(c.SupportsInterface(id))
	}
	require.False(c.SupportsInterface([4]byte{0xff, 0xff, 0xff, 0xff}))
}

func TestControllerLedger(t *testing.T) {
	require := require.New(t)
	ctrl := gomock.NewController(t)
	ledger := mock_erc721.NewMockLedger(ctrl)
	c, _ := newTestController(t, WithLedger(ledger))

	// the ledger already knows id 0
	ledger.EXPECT().OwnerOf(uint64(0)).Return(_a6, nil).Times(1)
	_, err := c.BatchIssue(callAs(_admin), []common.Address{_a1}, []uint16{1}, []Tier{TierOG})
	require.Equal(ErrCorruptedIndex, errors.Cause(err))
	require.False(c.HolderRecord(_a1).Active)
	require.Zero(c.store.NextID())

	ledger.EXPECT().OwnerOf(uint64(0)).Return(common.Address{}, erc721.ErrNonexistentToken).Times(1)
	ledger.EXPECT().Mint(_a1, uint64(0)).Return(nil).Times(1)
	_, err = c.BatchIssue(callAs(_admin), []common.Address{_a1}, []uint16{1}, []Tier{TierOG})
	require.NoError(err)

	ledger.EXPECT().OwnerOf(uint64(0)).Return(_a1, nil).Times(1)
	ledger.EXPECT().Transfer(_a1, _a2, uint64(0)).Return(nil).Times(1)
	_, err = c.TransferFrom(callAs(_admin), _a1, _a2, 0)
	require.NoError(err)

	ledger.EXPECT().Burn(uint64(0)).Return(nil).Times(1)
	_, err = c.Revoke(callAs(_admin), 0)
	require.NoError(err)

	ledger.EXPECT().BalanceOf(_a2).Return(uint64(0)).Times(1)
	require.Zero(c.BalanceOf(_a2))
}

// Copyright (c) 2024 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package api

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/facebookgo/clock"
	"github.com/iotexproject/go-pkgs/crypto"
	"github.com/iotexproject/go-pkgs/hash"
	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"

	"github.com/iotexproject/iotex-sbt/pkg/util/byteutil"
)

const _requestPrefix = "\x19IoTeX SBT Request:\n"

var (
	// ErrSignature indicates the request signature does not recover to a caller
	ErrSignature = errors.New("invalid request signature")
	// ErrDeadline indicates the request deadline is in the past or too far ahead
	ErrDeadline = errors.New("request deadline out of window")
	// ErrReplayed indicates the signed request was already accepted
	ErrReplayed = errors.New("request already processed")
)

// Authenticator recovers the caller of a signed write request
type Authenticator struct {
	window time.Duration
	clock  clock.Clock
	seen   *cache.Cache
}

// NewAuthenticator creates an authenticator accepting deadlines up to window ahead
func NewAuthenticator(window time.Duration, clk clock.Clock) *Authenticator {
	return &Authenticator{
		window: window,
		clock:  clk,
		seen:   cache.New(window, window),
	}
}

// RequestDigest returns keccak256(prefix | method | payload | deadline)
func RequestDigest(method string, payload []byte, deadline uint64) hash.Hash256 {
	b := make([]byte, 0, len(_requestPrefix)+len(method)+len(payload)+8)
	b = append(b, _requestPrefix...)
	b = append(b, method...)
	b = append(b, payload...)
	b = append(b, byteutil.Uint64ToBytesBigEndian(deadline)...)
	return hash.BytesToHash256(ethcrypto.Keccak256(b))
}

// SignRequest signs a write request with sk
func SignRequest(sk crypto.PrivateKey, method string, payload []byte, deadline uint64) ([]byte, error) {
	h := RequestDigest(method, payload, deadline)
	return sk.Sign(h[:])
}

// Recover checks the deadline and returns the signer, each digest is accepted once per signer
func (a *Authenticator) Recover(method string, payload []byte, deadline uint64, sig []byte) (common.Address, error) {
	now := a.clock.Now()
	dl := time.Unix(int64(deadline), 0)
	if deadline > uint64(now.Add(a.window).Unix()) || dl.Before(now) {
		return common.Address{}, errors.Wrapf(ErrDeadline, "deadline %d", deadline)
	}
	h := RequestDigest(method, payload, deadline)
	pk, err := crypto.RecoverPubkey(h[:], sig)
	if err != nil {
		return common.Address{}, errors.Wrap(ErrSignature, err.Error())
	}
	signer := common.BytesToAddress(pk.Address().Bytes())
	if err := a.seen.Add(hexutil.Encode(h[:])+signer.Hex(), struct{}{}, dl.Sub(now)+time.Second); err != nil {
		return common.Address{}, errors.Wrapf(ErrReplayed, "digest %x from %s", h[:], signer.Hex())
	}
	return signer, nil
}

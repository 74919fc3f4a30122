// Copyright (c) 2024 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package api

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/iotexproject/go-pkgs/hash"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/iotexproject/iotex-sbt/credential"
)

type (
	// Registry is the credential registry served by the api
	Registry interface {
		Claim(context.Context, common.Address, uint16, credential.Tier, []hash.Hash256) (*credential.Receipt, error)
		BatchIssue(context.Context, []common.Address, []uint16, []credential.Tier) (*credential.Receipt, error)
		CorrectTier(context.Context, common.Address, credential.Tier) (*credential.Receipt, error)
		CorrectBlockNumber(context.Context, common.Address, uint16) (*credential.Receipt, error)
		TransferFrom(context.Context, common.Address, common.Address, uint64) (*credential.Receipt, error)
		Revoke(context.Context, uint64) (*credential.Receipt, error)
		SetMerkleRoot(context.Context, hash.Hash256) (*credential.Receipt, error)
		SetBaseURI(context.Context, string) (*credential.Receipt, error)
		TransferOwnership(context.Context, common.Address) (*credential.Receipt, error)

		OwnerOf(uint64) (common.Address, error)
		BalanceOf(common.Address) uint64
		Locked(uint64) (bool, error)
		TokenURI(uint64) (string, error)
		Credential(uint64) (*credential.Credential, error)
		Holding(common.Address) (uint64, credential.Record, bool)
		IsClaimUsed(common.Address) bool
		MerkleRoot() hash.Hash256
		BaseURI() string
		Owner() common.Address
		Name() string
		Symbol() string
		TotalSupply() uint64
		SupportsInterface([4]byte) bool
	}

	writeFunc func(context.Context, gjson.Result) (*credential.Receipt, error)

	logObject struct {
		Topics []string `json:"topics"`
		Data   string   `json:"data"`
	}

	receiptObject struct {
		Status        string      `json:"status"`
		CredentialIDs []uint64    `json:"credentialIds,omitempty"`
		Logs          []logObject `json:"logs"`
	}

	credentialObject struct {
		ID          uint64 `json:"id"`
		Holder      string `json:"holder"`
		Active      bool   `json:"active"`
		BlockNumber uint16 `json:"blockNumber"`
		Tier        uint8  `json:"tier"`
		TierName    string `json:"tierName"`
	}

	holderObject struct {
		ID          *uint64 `json:"id,omitempty"`
		Active      bool    `json:"active"`
		BlockNumber uint16  `json:"blockNumber"`
		Tier        uint8   `json:"tier"`
		TierName    string  `json:"tierName"`
	}
)

func newReceiptObject(r *credential.Receipt) *receiptObject {
	obj := &receiptObject{
		Status:        r.Status.String(),
		CredentialIDs: r.CredentialIDs,
		Logs:          make([]logObject, 0, len(r.Logs)),
	}
	for _, l := range r.Logs {
		topics := make([]string, len(l.Topics))
		for i := range l.Topics {
			topics[i] = hexutil.Encode(l.Topics[i][:])
		}
		obj.Logs = append(obj.Logs, logObject{
			Topics: topics,
			Data:   hexutil.Encode(l.Data),
		})
	}
	return obj
}

// write authenticates params [payload, {deadline, signature}] and runs f on the payload
func (h *rpcHandler) write(ctx context.Context, method string, params gjson.Result, f writeFunc) (interface{}, error) {
	payload, err := param(params, 0)
	if err != nil {
		return nil, err
	}
	auth, err := param(params, 1)
	if err != nil {
		return nil, err
	}
	if !payload.IsObject() || !auth.IsObject() {
		return nil, errors.Wrap(errInvalidParams, "expect [payload, auth] objects")
	}
	deadline, err := parseUint(auth.Get("deadline"), 64)
	if err != nil {
		return nil, err
	}
	sig, err := hexutil.Decode(auth.Get("signature").String())
	if err != nil {
		return nil, errors.Wrap(ErrSignature, err.Error())
	}
	caller, err := h.auth.Recover(method, []byte(payload.Raw), deadline, sig)
	if err != nil {
		return nil, err
	}
	r, err := f(credential.WithActionCtx(ctx, credential.ActionCtx{Caller: caller}), payload)
	if err != nil {
		return nil, err
	}
	return newReceiptObject(r), nil
}

func (h *rpcHandler) claim(ctx context.Context, in gjson.Result) (*credential.Receipt, error) {
	recipient, err := parseAddress(in.Get("recipient"))
	if err != nil {
		return nil, err
	}
	bn, err := parseUint(in.Get("blockNumber"), 16)
	if err != nil {
		return nil, err
	}
	tier, err := parseTier(in.Get("tier"))
	if err != nil {
		return nil, err
	}
	proofIn := in.Get("proof")
	if !proofIn.IsArray() {
		return nil, errors.Wrap(errInvalidParams, "proof is not an array")
	}
	var proof []hash.Hash256
	for _, p := range proofIn.Array() {
		node, err := parseHash(p)
		if err != nil {
			return nil, err
		}
		proof = append(proof, node)
	}
	return h.registry.Claim(ctx, recipient, uint16(bn), tier, proof)
}

func (h *rpcHandler) batchIssue(ctx context.Context, in gjson.Result) (*credential.Receipt, error) {
	var (
		addrs []common.Address
		bns   []uint16
		tiers []credential.Tier
	)
	for _, field := range []string{"addresses", "blockNumbers", "tiers"} {
		if !in.Get(field).IsArray() {
			return nil, errors.Wrapf(errInvalidParams, "%s is not an array", field)
		}
	}
	for _, a := range in.Get("addresses").Array() {
		addr, err := parseAddress(a)
		if err != nil {
			return nil, err
		}
		addrs = append(addrs, addr)
	}
	for _, b := range in.Get("blockNumbers").Array() {
		bn, err := parseUint(b, 16)
		if err != nil {
			return nil, err
		}
		bns = append(bns, uint16(bn))
	}
	for _, t := range in.Get("tiers").Array() {
		tier, err := parseTier(t)
		if err != nil {
			return nil, err
		}
		tiers = append(tiers, tier)
	}
	return h.registry.BatchIssue(ctx, addrs, bns, tiers)
}

func (h *rpcHandler) correctTier(ctx context.Context, in gjson.Result) (*credential.Receipt, error) {
	holder, err := parseAddress(in.Get("holder"))
	if err != nil {
		return nil, err
	}
	tier, err := parseTier(in.Get("tier"))
	if err != nil {
		return nil, err
	}
	return h.registry.CorrectTier(ctx, holder, tier)
}

func (h *rpcHandler) correctBlockNumber(ctx context.Context, in gjson.Result) (*credential.Receipt, error) {
	holder, err := parseAddress(in.Get("holder"))
	if err != nil {
		return nil, err
	}
	bn, err := parseUint(in.Get("blockNumber"), 16)
	if err != nil {
		return nil, err
	}
	return h.registry.CorrectBlockNumber(ctx, holder, uint16(bn))
}

func (h *rpcHandler) transferFrom(ctx context.Context, in gjson.Result) (*credential.Receipt, error) {
	from, err := parseAddress(in.Get("from"))
	if err != nil {
		return nil, err
	}
	to, err := parseAddress(in.Get("to"))
	if err != nil {
		return nil, err
	}
	id, err := parseUint(in.Get("id"), 64)
	if err != nil {
		return nil, err
	}
	return h.registry.TransferFrom(ctx, from, to, id)
}

func (h *rpcHandler) revoke(ctx context.Context, in gjson.Result) (*credential.Receipt, error) {
	id, err := parseUint(in.Get("id"), 64)
	if err != nil {
		return nil, err
	}
	return h.registry.Revoke(ctx, id)
}

func (h *rpcHandler) setMerkleRoot(ctx context.Context, in gjson.Result) (*credential.Receipt, error) {
	root, err := parseHash(in.Get("root"))
	if err != nil {
		return nil, err
	}
	return h.registry.SetMerkleRoot(ctx, root)
}

func (h *rpcHandler) setBaseURI(ctx context.Context, in gjson.Result) (*credential.Receipt, error) {
	uri := in.Get("uri")
	if uri.Type != gjson.String {
		return nil, errors.Wrap(errInvalidParams, "uri is not a string")
	}
	return h.registry.SetBaseURI(ctx, uri.String())
}

func (h *rpcHandler) transferOwnership(ctx context.Context, in gjson.Result) (*credential.Receipt, error) {
	owner, err := parseAddress(in.Get("owner"))
	if err != nil {
		return nil, err
	}
	return h.registry.TransferOwnership(ctx, owner)
}

func (h *rpcHandler) idParam(params gjson.Result) (uint64, error) {
	p, err := param(params, 0)
	if err != nil {
		return 0, err
	}
	return parseUint(p, 64)
}

func (h *rpcHandler) addressParam(params gjson.Result) (common.Address, error) {
	p, err := param(params, 0)
	if err != nil {
		return common.Address{}, err
	}
	return parseAddress(p)
}

func (h *rpcHandler) ownerOf(params gjson.Result) (interface{}, error) {
	id, err := h.idParam(params)
	if err != nil {
		return nil, err
	}
	owner, err := h.registry.OwnerOf(id)
	if err != nil {
		return nil, err
	}
	return owner.Hex(), nil
}

func (h *rpcHandler) balanceOf(params gjson.Result) (interface{}, error) {
	owner, err := h.addressParam(params)
	if err != nil {
		return nil, err
	}
	return h.registry.BalanceOf(owner), nil
}

func (h *rpcHandler) locked(params gjson.Result) (interface{}, error) {
	id, err := h.idParam(params)
	if err != nil {
		return nil, err
	}
	return h.registry.Locked(id)
}

func (h *rpcHandler) tokenURI(params gjson.Result) (interface{}, error) {
	id, err := h.idParam(params)
	if err != nil {
		return nil, err
	}
	return h.registry.TokenURI(id)
}

func (h *rpcHandler) credential(params gjson.Result) (interface{}, error) {
	id, err := h.idParam(params)
	if err != nil {
		return nil, err
	}
	cred, err := h.registry.Credential(id)
	if err != nil {
		return nil, err
	}
	return &credentialObject{
		ID:          cred.ID,
		Holder:      cred.Holder.Hex(),
		Active:      cred.Active,
		BlockNumber: cred.BlockNumber,
		Tier:        uint8(cred.Tier),
		TierName:    cred.Tier.String(),
	}, nil
}

func (h *rpcHandler) holder(params gjson.Result) (interface{}, error) {
	addr, err := h.addressParam(params)
	if err != nil {
		return nil, err
	}
	id, r, ok := h.registry.Holding(addr)
	obj := &holderObject{
		Active:      r.Active,
		BlockNumber: r.BlockNumber,
		Tier:        uint8(r.Tier),
		TierName:    r.Tier.String(),
	}
	if ok {
		obj.ID = &id
	}
	return obj, nil
}

func (h *rpcHandler) isClaimed(params gjson.Result) (interface{}, error) {
	addr, err := h.addressParam(params)
	if err != nil {
		return nil, err
	}
	return h.registry.IsClaimUsed(addr), nil
}

func (h *rpcHandler) supportsInterface(params gjson.Result) (interface{}, error) {
	p, err := param(params, 0)
	if err != nil {
		return nil, err
	}
	b, err := hexutil.Decode(p.String())
	if err != nil || len(b) != 4 {
		return nil, errors.Wrapf(errInvalidParams, "interface id: %s", p.Raw)
	}
	var id [4]byte
	copy(id[:], b)
	return h.registry.SupportsInterface(id), nil
}

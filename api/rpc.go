// Copyright (c) 2024 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package api

import (
	"context"
	"encoding/json"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/iotexproject/go-pkgs/hash"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/iotexproject/iotex-sbt/credential"
	"github.com/iotexproject/iotex-sbt/pkg/log"
	"github.com/iotexproject/iotex-sbt/pkg/nodestats"
	"github.com/iotexproject/iotex-sbt/pkg/tracer"
	"github.com/iotexproject/iotex-sbt/pkg/util/addrutil"
)

const _maxBodySize = 1 << 20

var (
	errInvalidFormat  = errors.New("invalid format of request")
	errMethodNotFound = errors.New("method not found")
	errInvalidParams  = errors.New("invalid params")
	errBatchLimit     = errors.New("batch request limit exceeded")
)

type (
	rpcResp struct {
		Jsonrpc string          `json:"jsonrpc"`
		ID      json.RawMessage `json:"id"`
		Result  interface{}     `json:"result,omitempty"`
		Error   *rpcErr         `json:"error,omitempty"`
	}

	rpcErr struct {
		Code    int         `json:"code"`
		Message string      `json:"message"`
		Data    interface{} `json:"data,omitempty"`
	}

	rpcHandler struct {
		registry   Registry
		auth       *Authenticator
		batchLimit int
		stats      nodestats.RPCLocalStats
	}
)

func newRPCHandler(registry Registry, auth *Authenticator, batchLimit int, stats nodestats.RPCLocalStats) *rpcHandler {
	return &rpcHandler{
		registry:   registry,
		auth:       auth,
		batchLimit: batchLimit,
		stats:      stats,
	}
}

// HandlePOSTReq handles a single or batch json-rpc request
func (h *rpcHandler) HandlePOSTReq(ctx context.Context, body io.Reader) interface{} {
	data, err := io.ReadAll(io.LimitReader(body, _maxBodySize))
	if err != nil {
		return packAPIResult(nil, errors.Wrap(errInvalidFormat, err.Error()), gjson.Result{})
	}
	if !gjson.ValidBytes(data) {
		return packAPIResult(nil, errors.Wrap(errInvalidFormat, "malformed json"), gjson.Result{})
	}
	parsed := gjson.ParseBytes(data)
	if !parsed.IsArray() {
		return h.handleReq(ctx, &parsed)
	}
	reqs := parsed.Array()
	if len(reqs) == 0 {
		return packAPIResult(nil, errors.Wrap(errInvalidFormat, "empty batch"), gjson.Result{})
	}
	if h.batchLimit > 0 && len(reqs) > h.batchLimit {
		return packAPIResult(nil, errors.Wrapf(errBatchLimit, "%d requests", len(reqs)), gjson.Result{})
	}
	resps := make([]rpcResp, 0, len(reqs))
	for i := range reqs {
		resps = append(resps, h.handleReq(ctx, &reqs[i]))
	}
	return resps
}

func (h *rpcHandler) handleReq(ctx context.Context, req *gjson.Result) rpcResp {
	id := req.Get("id")
	method := req.Get("method")
	if !req.IsObject() || !id.Exists() || method.Type != gjson.String {
		return packAPIResult(nil, errors.Wrap(errInvalidFormat, "request field is incomplete"), id)
	}
	ctx, span := tracer.NewSpan(ctx, method.String())
	defer span.End()
	start := time.Now()

	var (
		res    interface{}
		err    error
		params = req.Get("params")
	)
	switch method.String() {
	case "sbt_name":
		res = h.registry.Name()
	case "sbt_symbol":
		res = h.registry.Symbol()
	case "sbt_totalSupply":
		res = h.registry.TotalSupply()
	case "sbt_owner":
		res = h.registry.Owner().Hex()
	case "sbt_merkleRoot":
		root := h.registry.MerkleRoot()
		res = hexutil.Encode(root[:])
	case "sbt_baseURI":
		res = h.registry.BaseURI()
	case "sbt_ownerOf":
		res, err = h.ownerOf(params)
	case "sbt_balanceOf":
		res, err = h.balanceOf(params)
	case "sbt_locked":
		res, err = h.locked(params)
	case "sbt_tokenURI":
		res, err = h.tokenURI(params)
	case "sbt_credential":
		res, err = h.credential(params)
	case "sbt_holder":
		res, err = h.holder(params)
	case "sbt_isClaimed":
		res, err = h.isClaimed(params)
	case "sbt_supportsInterface":
		res, err = h.supportsInterface(params)
	case "sbt_claim":
		res, err = h.write(ctx, method.String(), params, h.claim)
	case "sbt_batchIssue":
		res, err = h.write(ctx, method.String(), params, h.batchIssue)
	case "sbt_correctTier":
		res, err = h.write(ctx, method.String(), params, h.correctTier)
	case "sbt_correctBlockNumber":
		res, err = h.write(ctx, method.String(), params, h.correctBlockNumber)
	case "sbt_transferFrom":
		res, err = h.write(ctx, method.String(), params, h.transferFrom)
	case "sbt_revoke":
		res, err = h.write(ctx, method.String(), params, h.revoke)
	case "sbt_setMerkleRoot":
		res, err = h.write(ctx, method.String(), params, h.setMerkleRoot)
	case "sbt_setBaseURI":
		res, err = h.write(ctx, method.String(), params, h.setBaseURI)
	case "sbt_transferOwnership":
		res, err = h.write(ctx, method.String(), params, h.transferOwnership)
	default:
		err = errors.Wrapf(errMethodNotFound, "method: %s", method.String())
	}
	if err != nil {
		span.SetAttributes(attribute.String("error", err.Error()))
		log.L().Debug("Failed to handle request.", zap.String("method", method.String()), zap.Error(err))
	}
	if h.stats != nil && errors.Cause(err) != errMethodNotFound {
		h.stats.ReportCall(nodestats.APIReport{
			Method:       method.String(),
			HandlingTime: time.Since(start),
			Success:      err == nil,
		}, int64(len(req.Raw)))
	}
	return packAPIResult(res, err, id)
}

// error code: https://eth.wiki/json-rpc/json-rpc-error-codes-improvement-proposal
func packAPIResult(res interface{}, err error, id gjson.Result) rpcResp {
	rawID := json.RawMessage("null")
	if id.Exists() {
		rawID = json.RawMessage(id.Raw)
	}
	if err == nil {
		return rpcResp{
			Jsonrpc: "2.0",
			ID:      rawID,
			Result:  res,
		}
	}
	e := &rpcErr{
		Code:    -32603,
		Message: err.Error(),
	}
	var re credential.ReceiptError
	switch cause := errors.Cause(err); {
	case cause == errInvalidFormat, cause == errBatchLimit:
		e.Code = -32600
	case cause == errMethodNotFound:
		e.Code = -32601
	case cause == errInvalidParams:
		e.Code = -32602
	case cause == ErrSignature, cause == ErrDeadline, cause == ErrReplayed:
		e.Code = -32001
	case errors.As(err, &re):
		e.Code = -32000
		e.Message = re.ReceiptStatus().String()
		e.Data = err.Error()
	}
	return rpcResp{
		Jsonrpc: "2.0",
		ID:      rawID,
		Error:   e,
	}
}

func param(params gjson.Result, i int) (gjson.Result, error) {
	if !params.IsArray() {
		return gjson.Result{}, errors.Wrap(errInvalidParams, "params is not an array")
	}
	p := params.Get(strconv.Itoa(i))
	if !p.Exists() {
		return gjson.Result{}, errors.Wrapf(errInvalidParams, "missing param %d", i)
	}
	return p, nil
}

func parseAddress(in gjson.Result) (common.Address, error) {
	if in.Type != gjson.String {
		return common.Address{}, errors.Wrapf(errInvalidParams, "address: %s", in.Raw)
	}
	addr, err := addrutil.ParseAddress(in.String())
	if err != nil {
		return common.Address{}, errors.Wrap(errInvalidParams, err.Error())
	}
	return addr, nil
}

func parseUint(in gjson.Result, bitSize int) (uint64, error) {
	var (
		v   uint64
		err error
	)
	switch in.Type {
	case gjson.Number:
		v, err = strconv.ParseUint(in.Raw, 10, bitSize)
	case gjson.String:
		s := in.String()
		if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
			v, err = strconv.ParseUint(s[2:], 16, bitSize)
		} else {
			v, err = strconv.ParseUint(s, 10, bitSize)
		}
	default:
		err = errors.New("not a number")
	}
	if err != nil {
		return 0, errors.Wrapf(errInvalidParams, "uint: %s", in.Raw)
	}
	return v, nil
}

func parseTier(in gjson.Result) (credential.Tier, error) {
	if in.Type != gjson.Number && in.Type != gjson.String {
		return 0, errors.Wrapf(errInvalidParams, "tier: %s", in.Raw)
	}
	// range errors surface as receipt errors
	if in.Type == gjson.Number {
		v, err := parseUint(in, 8)
		if err != nil {
			return 0, err
		}
		return credential.Tier(v), nil
	}
	t, err := credential.ParseTier(in.String())
	if err != nil {
		return 0, errors.Wrap(errInvalidParams, err.Error())
	}
	return t, nil
}

func parseHash(in gjson.Result) (hash.Hash256, error) {
	if in.Type != gjson.String {
		return hash.ZeroHash256, errors.Wrapf(errInvalidParams, "hash: %s", in.Raw)
	}
	h, err := credential.ParseRoot(in.String())
	if err != nil {
		return hash.ZeroHash256, errors.Wrap(errInvalidParams, err.Error())
	}
	return h, nil
}

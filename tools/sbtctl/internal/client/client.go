// Copyright (c) 2024 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/facebookgo/clock"
	"github.com/go-resty/resty/v2"
	"github.com/iotexproject/go-pkgs/crypto"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/iotexproject/iotex-sbt/api"
)

// ErrEmptyResponse indicates the endpoint answered without result or error
var ErrEmptyResponse = errors.New("empty json-rpc response")

type (
	// Client calls a registry json-rpc endpoint
	Client struct {
		rc       *resty.Client
		clock    clock.Clock
		validity time.Duration
		nextID   uint64
	}

	// Option is the option to create a client
	Option func(*Client)

	// RPCError is an error object returned by the endpoint
	RPCError struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Data    string `json:"data,omitempty"`
	}

	// Log is a receipt log
	Log struct {
		Topics []string `json:"topics"`
		Data   string   `json:"data"`
	}

	// Receipt is the result of a write method
	Receipt struct {
		Status        string   `json:"status"`
		CredentialIDs []uint64 `json:"credentialIds"`
		Logs          []Log    `json:"logs"`
	}

	request struct {
		JSONRPC string        `json:"jsonrpc"`
		ID      uint64        `json:"id"`
		Method  string        `json:"method"`
		Params  []interface{} `json:"params"`
	}

	authObject struct {
		Deadline  uint64 `json:"deadline"`
		Signature string `json:"signature"`
	}
)

func (e *RPCError) Error() string {
	if e.Data != "" {
		return fmt.Sprintf("json-rpc error %d: %s: %s", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("json-rpc error %d: %s", e.Code, e.Message)
}

// WithClock sets the clock computing request deadlines
func WithClock(clk clock.Clock) Option {
	return func(c *Client) {
		c.clock = clk
	}
}

// WithValidity sets how long a signed request stays valid
func WithValidity(d time.Duration) Option {
	return func(c *Client) {
		c.validity = d
	}
}

// WithTimeout sets the http timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.rc.SetTimeout(d)
	}
}

// New creates a client of endpoint
func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		rc: resty.New().
			SetBaseURL(endpoint).
			SetHeader("Content-Type", "application/json").
			SetTimeout(30 * time.Second),
		clock:    clock.New(),
		validity: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Call invokes method and returns its raw result
func (c *Client) Call(ctx context.Context, method string, params ...interface{}) (gjson.Result, error) {
	if params == nil {
		params = []interface{}{}
	}
	c.nextID++
	resp, err := c.rc.R().
		SetContext(ctx).
		SetBody(&request{
			JSONRPC: "2.0",
			ID:      c.nextID,
			Method:  method,
			Params:  params,
		}).
		Post("/")
	if err != nil {
		return gjson.Result{}, errors.Wrapf(err, "failed to call %s", method)
	}
	if resp.IsError() {
		return gjson.Result{}, errors.Errorf("failed to call %s: http status %s", method, resp.Status())
	}
	out := gjson.ParseBytes(resp.Body())
	if e := out.Get("error"); e.Exists() {
		rpcErr := &RPCError{}
		if err := json.Unmarshal([]byte(e.Raw), rpcErr); err != nil {
			return gjson.Result{}, errors.Wrap(err, "failed to decode error object")
		}
		return gjson.Result{}, rpcErr
	}
	res := out.Get("result")
	if !res.Exists() {
		return gjson.Result{}, errors.Wrap(ErrEmptyResponse, method)
	}
	return res, nil
}

// Send signs payload with sk and invokes the write method
func (c *Client) Send(ctx context.Context, sk crypto.PrivateKey, method string, payload interface{}) (*Receipt, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode payload")
	}
	deadline := uint64(c.clock.Now().Add(c.validity).Unix())
	sig, err := api.SignRequest(sk, method, raw, deadline)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign request")
	}
	res, err := c.Call(ctx, method, json.RawMessage(raw), &authObject{
		Deadline:  deadline,
		Signature: hexutil.Encode(sig),
	})
	if err != nil {
		return nil, err
	}
	r := &Receipt{}
	if err := json.Unmarshal([]byte(res.Raw), r); err != nil {
		return nil, errors.Wrap(err, "failed to decode receipt")
	}
	return r, nil
}

// Caller returns the account address of sk
func Caller(sk crypto.PrivateKey) common.Address {
	return common.BytesToAddress(sk.PublicKey().Address().Bytes())
}

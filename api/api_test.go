// Copyright (c) 2024 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/facebookgo/clock"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/iotexproject/iotex-sbt/allowlist"
	"github.com/iotexproject/iotex-sbt/credential"
	"github.com/iotexproject/iotex-sbt/db"
	"github.com/iotexproject/iotex-sbt/pkg/nodestats"
	"github.com/iotexproject/iotex-sbt/test/identityset"
)

var _ Registry = (*credential.Controller)(nil)

var _entries = []allowlist.Entry{
	{Address: identityset.Address(1), BlockNumber: 1, Tier: 3},
	{Address: identityset.Address(2), BlockNumber: 4, Tier: 4},
	{Address: identityset.Address(3), BlockNumber: 7, Tier: 1},
}

type testServer struct {
	t       *testing.T
	handler http.Handler
	clock   *clock.Mock
	tree    *allowlist.Tree
}

func newTestServer(t *testing.T, cfg Config, opts ...Option) *testServer {
	require := require.New(t)
	tree, err := allowlist.BuildTree(_entries)
	require.NoError(err)
	ctrl := credential.NewController(db.NewMemKVStore(), credential.Genesis{
		Owner:   identityset.Address(0),
		Root:    tree.Root(),
		BaseURI: "ipfs://sbt/",
	})
	require.NoError(ctrl.Start(context.Background()))
	t.Cleanup(func() {
		require.NoError(ctrl.Stop(context.Background()))
	})
	clk := clock.NewMock()
	clk.Add(1700000000 * time.Second)
	return &testServer{
		t:       t,
		handler: NewHandler(cfg, ctrl, append([]Option{WithClock(clk)}, opts...)...),
		clock:   clk,
		tree:    tree,
	}
}

func (s *testServer) post(body string) (int, gjson.Result) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	s.handler.ServeHTTP(rec, req)
	return rec.Code, gjson.ParseBytes(rec.Body.Bytes())
}

func (s *testServer) call(method string, params string) gjson.Result {
	code, resp := s.post(fmt.Sprintf(`{"jsonrpc":"2.0","id":1,"method":"%s","params":%s}`, method, params))
	require.Equal(s.t, http.StatusOK, code)
	return resp
}

func (s *testServer) signed(signer int, method, payload string, deadline uint64) string {
	sig, err := SignRequest(identityset.PrivateKey(signer), method, []byte(payload), deadline)
	require.NoError(s.t, err)
	return fmt.Sprintf(`{"jsonrpc":"2.0","id":7,"method":"%s","params":[%s,{"deadline":%d,"signature":"%s"}]}`,
		method, payload, deadline, hexutil.Encode(sig))
}

func (s *testServer) deadline() uint64 {
	return uint64(s.clock.Now().Add(time.Minute).Unix())
}

func (s *testServer) claimPayload(i int) string {
	e := _entries[i]
	proof, err := s.tree.Proof(e.Leaf())
	require.NoError(s.t, err)
	nodes := make([]string, len(proof))
	for j := range proof {
		nodes[j] = `"` + hexutil.Encode(proof[j][:]) + `"`
	}
	return fmt.Sprintf(`{"recipient":"%s","blockNumber":%d,"tier":%d,"proof":[%s]}`,
		e.Address.Hex(), e.BlockNumber, e.Tier, strings.Join(nodes, ","))
}

func TestHandlerGet(t *testing.T) {
	require := require.New(t)
	s := newTestServer(t, DefaultConfig)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(http.StatusOK, rec.Code)
	require.Equal("IoTeX SBT RPC endpoint is ready.", rec.Body.String())
}

func TestHandlerQueries(t *testing.T) {
	require := require.New(t)
	s := newTestServer(t, DefaultConfig)

	resp := s.call("sbt_owner", "[]")
	require.Equal(identityset.Address(0).Hex(), resp.Get("result").String())
	root := s.tree.Root()
	require.Equal(hexutil.Encode(root[:]), s.call("sbt_merkleRoot", "[]").Get("result").String())
	require.Equal("ipfs://sbt/", s.call("sbt_baseURI", "[]").Get("result").String())
	require.Equal(credential.DefaultConfig.Symbol, s.call("sbt_symbol", "[]").Get("result").String())
	require.True(s.call("sbt_supportsInterface", `["0xb45a3c0e"]`).Get("result").Bool())
	require.False(s.call("sbt_supportsInterface", `["0x12345678"]`).Get("result").Bool())
	require.Equal(int64(-32602), s.call("sbt_supportsInterface", `["0x1234"]`).Get("error.code").Int())

	resp = s.call("sbt_ownerOf", "[0]")
	require.Equal(int64(-32000), resp.Get("error.code").Int())
	require.Equal("NOT_MINTED", resp.Get("error.message").String())
	resp = s.call("sbt_locked", `["0x0"]`)
	require.Equal("INVALID_TOKEN", resp.Get("error.message").String())
	resp = s.call("sbt_isClaimed", fmt.Sprintf(`["%s"]`, identityset.IoAddress(1).String()))
	require.True(resp.Get("result").Exists())
	require.False(resp.Get("result").Bool())

	require.Equal(int64(-32601), s.call("sbt_mint", "[]").Get("error.code").Int())
	require.Equal(int64(-32602), s.call("sbt_ownerOf", "[]").Get("error.code").Int())
	require.Equal(int64(-32602), s.call("sbt_ownerOf", `["ten"]`).Get("error.code").Int())
	require.Equal(int64(-32602), s.call("sbt_balanceOf", `["0x12"]`).Get("error.code").Int())
	_, resp = s.post(`{"jsonrpc":"2.0","id":1,`)
	require.Equal(int64(-32600), resp.Get("error.code").Int())
	_, resp = s.post(`{"jsonrpc":"2.0","method":"sbt_owner"}`)
	require.Equal(int64(-32600), resp.Get("error.code").Int())
}

func TestHandlerStats(t *testing.T) {
	require := require.New(t)
	stats := nodestats.NewAPILocalStats()
	s := newTestServer(t, DefaultConfig, WithStats(stats))

	s.call("sbt_owner", "[]")
	s.call("sbt_ownerOf", "[0]")
	s.call("sbt_mint", "[]")
	require.Equal(1, stats.AllTimeCalls("sbt_owner"))
	require.Equal(1, stats.AllTimeCalls("sbt_ownerOf"))
	require.Zero(stats.AllTimeCalls("sbt_mint"))
	require.Contains(stats.BuildReport(), "sbt_ownerOf")
}

func TestHandlerClaim(t *testing.T) {
	require := require.New(t)
	s := newTestServer(t, DefaultConfig)

	req := s.signed(1, "sbt_claim", s.claimPayload(0), s.deadline())
	_, resp := s.post(req)
	require.Equal(int64(7), resp.Get("id").Int())
	require.Equal("SUCCESS", resp.Get("result.status").String(), resp.Raw)
	require.Equal(int64(1), resp.Get("result.credentialIds.#").Int())
	require.Equal(uint64(0), resp.Get("result.credentialIds.0").Uint())
	require.Equal(int64(2), resp.Get("result.logs.#").Int())
	require.Equal(hexutil.Encode(credential.LockedEvent[:]), resp.Get("result.logs.1.topics.0").String())

	// replayed
	_, resp = s.post(req)
	require.Equal(int64(-32001), resp.Get("error.code").Int())

	resp = s.call("sbt_ownerOf", "[0]")
	require.Equal(identityset.Address(1).Hex(), resp.Get("result").String())
	require.True(s.call("sbt_locked", "[0]").Get("result").Bool())
	require.Equal("ipfs://sbt/0.json", s.call("sbt_tokenURI", `["0"]`).Get("result").String())
	require.True(s.call("sbt_isClaimed", fmt.Sprintf(`["%s"]`, identityset.Address(1).Hex())).Get("result").Bool())
	resp = s.call("sbt_holder", fmt.Sprintf(`["%s"]`, identityset.Address(1).Hex()))
	require.True(resp.Get("result.active").Bool())
	require.Equal(int64(0), resp.Get("result.id").Int())
	require.Equal("OG", resp.Get("result.tierName").String())
	resp = s.call("sbt_credential", "[0]")
	require.Equal(identityset.Address(1).Hex(), resp.Get("result.holder").String())
	require.Equal(int64(1), resp.Get("result.blockNumber").Int())

	// a fresh signature on the same claim hits the claim marker
	_, resp = s.post(s.signed(1, "sbt_claim", s.claimPayload(0), s.deadline()+1))
	require.Equal("CLAIMED", resp.Get("error.message").String())

	// the signer, not the payload, is proven
	_, resp = s.post(s.signed(4, "sbt_claim", s.claimPayload(1), s.deadline()))
	require.Equal("INVALID_PROOF", resp.Get("error.message").String())
}

func TestHandlerSignature(t *testing.T) {
	require := require.New(t)
	s := newTestServer(t, DefaultConfig)
	payload := s.claimPayload(1)

	_, resp := s.post(s.signed(2, "sbt_claim", payload, uint64(s.clock.Now().Unix()-1)))
	require.Equal(int64(-32001), resp.Get("error.code").Int())
	_, resp = s.post(s.signed(2, "sbt_claim", payload, uint64(s.clock.Now().Add(DefaultConfig.RequestWindow+time.Minute).Unix())))
	require.Equal(int64(-32001), resp.Get("error.code").Int())

	// signature over another method
	sig, err := SignRequest(identityset.PrivateKey(2), "sbt_revoke", []byte(payload), s.deadline())
	require.NoError(err)
	_, resp = s.post(fmt.Sprintf(`{"jsonrpc":"2.0","id":1,"method":"sbt_claim","params":[%s,{"deadline":%d,"signature":"%s"}]}`,
		payload, s.deadline(), hexutil.Encode(sig)))
	require.Equal("INVALID_PROOF", resp.Get("error.message").String())

	_, resp = s.post(fmt.Sprintf(`{"jsonrpc":"2.0","id":1,"method":"sbt_claim","params":[%s,{"deadline":%d,"signature":"0xzz"}]}`,
		payload, s.deadline()))
	require.Equal(int64(-32001), resp.Get("error.code").Int())
	_, resp = s.post(fmt.Sprintf(`{"jsonrpc":"2.0","id":1,"method":"sbt_claim","params":[%s]}`, payload))
	require.Equal(int64(-32602), resp.Get("error.code").Int())
}

func TestHandlerAdmin(t *testing.T) {
	require := require.New(t)
	s := newTestServer(t, DefaultConfig)
	a4, a5 := identityset.Address(4), identityset.Address(5)
	issue := fmt.Sprintf(`{"addresses":["%s","%s"],"blockNumbers":[3,"0x4"],"tiers":["ALUM",2]}`,
		a4.Hex(), identityset.IoAddress(5).String())

	// a rejected caller sending the same request first does not consume it
	_, resp := s.post(s.signed(1, "sbt_batchIssue", issue, s.deadline()))
	require.Equal(int64(-32000), resp.Get("error.code").Int())
	require.Equal("Ownable: caller is not the owner", resp.Get("error.message").String())

	for _, bad := range []string{
		fmt.Sprintf(`{"addresses":"%s","blockNumbers":[3],"tiers":[1]}`, a4.Hex()),
		fmt.Sprintf(`{"addresses":["%s"],"blockNumbers":3,"tiers":[1]}`, a4.Hex()),
		fmt.Sprintf(`{"addresses":["%s"],"blockNumbers":[3]}`, a4.Hex()),
	} {
		_, resp = s.post(s.signed(0, "sbt_batchIssue", bad, s.deadline()))
		require.Equal(int64(-32602), resp.Get("error.code").Int(), bad)
	}

	req := s.signed(0, "sbt_batchIssue", issue, s.deadline())
	_, resp = s.post(req)
	require.Equal("SUCCESS", resp.Get("result.status").String(), resp.Raw)
	_, resp = s.post(req)
	require.Equal(int64(-32001), resp.Get("error.code").Int())
	require.Equal(`[0,1]`, resp.Get("result.credentialIds").Raw)
	require.Equal(int64(4), resp.Get("result.logs.#").Int())
	resp = s.call("sbt_holder", fmt.Sprintf(`["%s"]`, a5.Hex()))
	require.Equal(int64(2), resp.Get("result.tier").Int())
	require.Equal(int64(4), resp.Get("result.blockNumber").Int())

	_, resp = s.post(s.signed(0, "sbt_correctTier", fmt.Sprintf(`{"holder":"%s","tier":"og"}`, a4.Hex()), s.deadline()))
	require.Equal("SUCCESS", resp.Get("result.status").String(), resp.Raw)
	_, resp = s.post(s.signed(0, "sbt_correctBlockNumber", fmt.Sprintf(`{"holder":"%s","blockNumber":9}`, a4.Hex()), s.deadline()))
	require.Equal("SUCCESS", resp.Get("result.status").String(), resp.Raw)
	resp = s.call("sbt_credential", "[0]")
	require.Equal("OG", resp.Get("result.tierName").String())
	require.Equal(int64(9), resp.Get("result.blockNumber").Int())

	a6 := identityset.Address(6)
	_, resp = s.post(s.signed(0, "sbt_transferFrom", fmt.Sprintf(`{"from":"%s","to":"%s","id":0}`, a4.Hex(), a6.Hex()), s.deadline()))
	require.Equal("SUCCESS", resp.Get("result.status").String(), resp.Raw)
	require.Equal(a6.Hex(), s.call("sbt_ownerOf", "[0]").Get("result").String())
	_, resp = s.post(s.signed(0, "sbt_revoke", `{"id":1}`, s.deadline()))
	require.Equal("SUCCESS", resp.Get("result.status").String(), resp.Raw)
	require.Equal(uint64(1), s.call("sbt_totalSupply", "[]").Get("result").Uint())

	_, resp = s.post(s.signed(0, "sbt_setBaseURI", `{"uri":"https://sbt/"}`, s.deadline()))
	require.Equal("SUCCESS", resp.Get("result.status").String(), resp.Raw)
	require.Equal("https://sbt/0.json", s.call("sbt_tokenURI", "[0]").Get("result").String())
	root := "0x" + strings.Repeat("ab", 32)
	_, resp = s.post(s.signed(0, "sbt_setMerkleRoot", fmt.Sprintf(`{"root":"%s"}`, root), s.deadline()))
	require.Equal("SUCCESS", resp.Get("result.status").String(), resp.Raw)
	require.Equal(root, s.call("sbt_merkleRoot", "[]").Get("result").String())
	_, resp = s.post(s.signed(0, "sbt_transferOwnership", fmt.Sprintf(`{"owner":"%s"}`, a5.Hex()), s.deadline()))
	require.Equal("SUCCESS", resp.Get("result.status").String(), resp.Raw)
	require.Equal(a5.Hex(), s.call("sbt_owner", "[]").Get("result").String())
	_, resp = s.post(s.signed(0, "sbt_revoke", `{"id":0}`, s.deadline()))
	require.Equal("Ownable: caller is not the owner", resp.Get("error.message").String())
}

func TestHandlerBatch(t *testing.T) {
	require := require.New(t)
	cfg := DefaultConfig
	cfg.BatchRequestLimit = 2
	s := newTestServer(t, cfg)

	_, resp := s.post(`[{"jsonrpc":"2.0","id":1,"method":"sbt_owner","params":[]},{"jsonrpc":"2.0","id":"b","method":"sbt_ownerOf","params":[3]}]`)
	require.True(resp.IsArray())
	require.Equal(int64(2), resp.Get("#").Int())
	require.Equal(identityset.Address(0).Hex(), resp.Get("0.result").String())
	require.Equal("b", resp.Get("1.id").String())
	require.Equal("NOT_MINTED", resp.Get("1.error.message").String())

	_, resp = s.post(`[{"id":1,"method":"sbt_owner"},{"id":2,"method":"sbt_owner"},{"id":3,"method":"sbt_owner"}]`)
	require.Equal(int64(-32600), resp.Get("error.code").Int())
	_, resp = s.post(`[]`)
	require.Equal(int64(-32600), resp.Get("error.code").Int())
}

func TestHandlerRateLimit(t *testing.T) {
	require := require.New(t)
	cfg := DefaultConfig
	cfg.RateLimit = 0.001
	cfg.RateBurst = 1
	s := newTestServer(t, cfg)

	code, _ := s.post(`{"jsonrpc":"2.0","id":1,"method":"sbt_owner","params":[]}`)
	require.Equal(http.StatusOK, code)
	code, _ = s.post(`{"jsonrpc":"2.0","id":1,"method":"sbt_owner","params":[]}`)
	require.Equal(http.StatusTooManyRequests, code)
}

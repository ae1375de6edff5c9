// SPDX-License-Identifier: MPL-2.0

package subnet

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
)

// JSON-RPC method names served by the subnet node.
const (
	MethodQueryAddresses = "subnet_queryAddresses"
	MethodQueryWeights   = "subnet_queryWeights"
	MethodQueryKeys      = "subnet_queryKeys"
	MethodVote           = "subnet_vote"
)

// ErrNoSigner is returned by Vote when the client has no signer.
var ErrNoSigner = errors.New("rpc client has no signer")

type (
	// Signer signs vote payloads. *keys.KeyPair implements it.
	Signer interface {
		Address() string
		Sign(msg []byte) []byte
	}

	// RPCClient talks JSON-RPC 2.0 over HTTP to a subnet node. It implements
	// Querier and Voter.
	RPCClient struct {
		url    string
		client *http.Client
		signer Signer
		nextID atomic.Uint64
	}

	// RPCError is an error object returned by the node.
	RPCError struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}

	// VoteBody is the signed part of a vote request.
	VoteBody struct {
		Netuid  int      `json:"netuid"`
		UIDs    []UID    `json:"uids"`
		Weights []uint16 `json:"weights"`
	}

	// VoteParams is the vote request: the body, the voter's address and a
	// hex ed25519 signature over the body's JSON encoding.
	VoteParams struct {
		VoteBody
		Address   string `json:"address"`
		Signature string `json:"signature"`
	}

	rpcRequest struct {
		JSONRPC string `json:"jsonrpc"`
		ID      uint64 `json:"id"`
		Method  string `json:"method"`
		Params  any    `json:"params"`
	}

	rpcResponse struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      uint64          `json:"id"`
		Result  json.RawMessage `json:"result"`
		Error   *RPCError       `json:"error"`
	}
)

// NewRPCClient returns a client for the node at url. A nil httpClient uses
// http.DefaultClient; a nil signer disables Vote.
func NewRPCClient(url string, httpClient *http.Client, signer Signer) *RPCClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &RPCClient{url: url, client: httpClient, signer: signer}
}

// Error implements the error interface.
func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// QueryAddresses implements Querier.
func (c *RPCClient) QueryAddresses(ctx context.Context, netuid int) (map[UID]string, error) {
	var out map[UID]string
	err := c.call(ctx, MethodQueryAddresses, []int{netuid}, &out)
	return out, err
}

// QueryWeights implements Querier.
func (c *RPCClient) QueryWeights(ctx context.Context, netuid int) (map[UID]Weights, error) {
	var out map[UID]Weights
	err := c.call(ctx, MethodQueryWeights, []int{netuid}, &out)
	return out, err
}

// QueryKeys implements Querier.
func (c *RPCClient) QueryKeys(ctx context.Context, netuid int) (map[UID]string, error) {
	var out map[UID]string
	err := c.call(ctx, MethodQueryKeys, []int{netuid}, &out)
	return out, err
}

// Vote implements Voter. The request carries the signer's address and its
// signature over the JSON encoding of VoteBody.
func (c *RPCClient) Vote(ctx context.Context, netuid int, uids []UID, weights []uint16) (Receipt, error) {
	if c.signer == nil {
		return Receipt{}, ErrNoSigner
	}
	body := VoteBody{Netuid: netuid, UIDs: uids, Weights: weights}
	msg, err := json.Marshal(body)
	if err != nil {
		return Receipt{}, fmt.Errorf("encode vote: %w", err)
	}
	params := VoteParams{
		VoteBody:  body,
		Address:   c.signer.Address(),
		Signature: hex.EncodeToString(c.signer.Sign(msg)),
	}

	var receipt Receipt
	if err := c.call(ctx, MethodVote, params, &receipt); err != nil {
		return Receipt{}, err
	}
	return receipt, nil
}

func (c *RPCClient) call(ctx context.Context, method string, params, result any) error {
	id := c.nextID.Add(1)
	payload, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("encode %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s: unexpected status %d: %s", method, resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("%s: %w", method, rpcResp.Error)
	}
	if rpcResp.ID != id {
		return fmt.Errorf("%s: response id %d does not match request id %d", method, rpcResp.ID, id)
	}
	if err := json.Unmarshal(rpcResp.Result, result); err != nil {
		return fmt.Errorf("decode %s result: %w", method, err)
	}
	return nil
}

// Package helius lists Solana NFTs with the DAS getAssetsByOwner RPC.
package helius

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"nftvault/internal/fetcher"
)

const (
	maxPageSize = 1000
	// JSON-RPC invalid params, returned for malformed owner addresses.
	rpcInvalidParams = -32602
)

type Client struct {
	host       string
	apiKey     string
	httpClient *http.Client
}

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.Status, e.Body)
}

type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

func NewClient(httpClient *http.Client, host, apiKey string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if host == "" {
		host = "https://mainnet.helius-rpc.com"
	}
	return &Client{
		host:       strings.TrimRight(host, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type assetsByOwnerParams struct {
	OwnerAddress   string         `json:"ownerAddress"`
	Page           int            `json:"page"`
	Limit          int            `json:"limit"`
	DisplayOptions map[string]any `json:"displayOptions,omitempty"`
}

type rpcResponse struct {
	Result *struct {
		Total int               `json:"total"`
		Limit int               `json:"limit"`
		Page  int               `json:"page"`
		Items []json.RawMessage `json:"items"`
	} `json:"result"`
	Error *RPCError `json:"error"`
}

// Fetch uses the 1-based DAS page number as the cursor.
func (c *Client) Fetch(ctx context.Context, req fetcher.FetchRequest) (fetcher.Page, error) {
	page := 1
	if req.Cursor != "" {
		n, err := strconv.Atoi(req.Cursor)
		if err != nil || n < 1 {
			return fetcher.Page{}, &fetcher.NetworkUnavailableError{Network: fetcher.NetworkSolana, Err: fmt.Errorf("bad cursor %q", req.Cursor)}
		}
		page = n
	}
	limit := req.PageSize
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}

	body, err := c.call(ctx, rpcRequest{
		JSONRPC: "2.0",
		ID:      "nftvault",
		Method:  "getAssetsByOwner",
		Params: assetsByOwnerParams{
			OwnerAddress: req.Address,
			Page:         page,
			Limit:        limit,
		},
	})
	if err != nil {
		return fetcher.Page{}, c.classify(req.Address, err)
	}

	var resp rpcResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fetcher.Page{}, &fetcher.NetworkUnavailableError{Network: fetcher.NetworkSolana, Err: fmt.Errorf("decode response: %w", err)}
	}
	if resp.Error != nil {
		return fetcher.Page{}, c.classify(req.Address, resp.Error)
	}
	if resp.Result == nil {
		return fetcher.Page{}, &fetcher.NetworkUnavailableError{Network: fetcher.NetworkSolana, Err: fmt.Errorf("empty result")}
	}

	records := make([]fetcher.RawRecord, 0, len(resp.Result.Items))
	for _, raw := range resp.Result.Items {
		records = append(records, toRecord(raw))
	}
	out := fetcher.Page{Records: records, Total: resp.Result.Total}
	if len(resp.Result.Items) >= limit {
		out.Cursor = strconv.Itoa(page + 1)
	}
	return out, nil
}

func (c *Client) classify(address string, err error) error {
	switch e := err.(type) {
	case *RPCError:
		if e.Code == rpcInvalidParams {
			return &fetcher.InvalidAddressError{Address: address, Network: fetcher.NetworkSolana, Reason: e.Message}
		}
		return &fetcher.NetworkUnavailableError{Network: fetcher.NetworkSolana, Err: e}
	case *APIError:
		if e.Status == http.StatusBadRequest {
			return &fetcher.InvalidAddressError{Address: address, Network: fetcher.NetworkSolana, Reason: e.Body}
		}
		return &fetcher.NetworkUnavailableError{Network: fetcher.NetworkSolana, Status: e.Status, Err: e}
	default:
		return &fetcher.NetworkUnavailableError{Network: fetcher.NetworkSolana, Err: err}
	}
}

func (c *Client) call(ctx context.Context, payload rpcRequest) ([]byte, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	fullURL := c.host + "/"
	if c.apiKey != "" {
		fullURL += "?" + url.Values{"api-key": []string{c.apiKey}}.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

// toRecord reshapes a DAS asset into the field layout the normalizer reads:
// the collection (or the mint itself) becomes contract.address.
func toRecord(raw json.RawMessage) fetcher.RawRecord {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var asset map[string]any
	if err := dec.Decode(&asset); err != nil {
		return fetcher.RawRecord{}
	}
	id, _ := asset["id"].(string)
	rec := fetcher.RawRecord{
		"tokenId":   id,
		"tokenType": "SPL",
		"raw":       asset,
	}
	if id != "" {
		rec["contract"] = map[string]any{"address": collectionOf(asset, id)}
	}
	content, _ := asset["content"].(map[string]any)
	if content == nil {
		return rec
	}
	rec["content"] = content
	if meta, ok := content["metadata"].(map[string]any); ok {
		rec["metadata"] = meta
		if name, ok := meta["name"].(string); ok {
			rec["name"] = name
		}
		if desc, ok := meta["description"].(string); ok {
			rec["description"] = desc
		}
	}
	if files, ok := content["files"].([]any); ok && len(files) > 0 {
		if f, ok := files[0].(map[string]any); ok {
			if mime, ok := f["mime"].(string); ok && mime != "" {
				rec["contentType"] = mime
			}
		}
	}
	return rec
}

func collectionOf(asset map[string]any, fallback string) string {
	groups, _ := asset["grouping"].([]any)
	for _, g := range groups {
		m, ok := g.(map[string]any)
		if !ok {
			continue
		}
		if m["group_key"] == "collection" {
			if v, ok := m["group_value"].(string); ok && v != "" {
				return v
			}
		}
	}
	return fallback
}

var _ fetcher.Fetcher = (*Client)(nil)

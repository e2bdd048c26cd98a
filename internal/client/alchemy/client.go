// Package alchemy lists EVM NFTs through the Alchemy NFT API v3.
package alchemy

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

const maxPageSize = 100

type Client struct {
	host       string
	apiKey     string
	network    string
	httpClient *http.Client
}

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.Status, e.Body)
}

func NewClient(httpClient *http.Client, network, host, apiKey string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if host == "" {
		host = "https://" + network + "-mainnet.g.alchemy.com"
	}
	return &Client{
		host:       strings.TrimRight(host, "/"),
		apiKey:     apiKey,
		network:    network,
		httpClient: httpClient,
	}
}

type ownedNFTsResponse struct {
	OwnedNFTs  []json.RawMessage `json:"ownedNfts"`
	PageKey    *string           `json:"pageKey"`
	TotalCount json.Number       `json:"totalCount"`
}

func (c *Client) Fetch(ctx context.Context, req fetcher.FetchRequest) (fetcher.Page, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return fetcher.Page{}, &fetcher.NetworkUnavailableError{Network: c.network, Err: fmt.Errorf("alchemy api key not configured")}
	}
	query := url.Values{}
	query.Set("owner", req.Address)
	query.Set("withMetadata", "true")
	query.Set("pageSize", strconv.Itoa(clampPageSize(req.PageSize)))
	if req.Cursor != "" {
		query.Set("pageKey", req.Cursor)
	}
	path := "/nft/v3/" + url.PathEscape(c.apiKey) + "/getNFTsForOwner"

	body, err := c.doRequest(ctx, path, query)
	if err != nil {
		return fetcher.Page{}, c.classify(req.Address, err)
	}

	var resp ownedNFTsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fetcher.Page{}, &fetcher.NetworkUnavailableError{Network: c.network, Err: fmt.Errorf("decode response: %w", err)}
	}
	records := make([]fetcher.RawRecord, 0, len(resp.OwnedNFTs))
	for _, raw := range resp.OwnedNFTs {
		rec, err := decodeRecord(raw)
		if err != nil {
			// kept so the normalizer can count it as malformed.
			records = append(records, fetcher.RawRecord{})
			continue
		}
		records = append(records, rec)
	}
	page := fetcher.Page{Records: records}
	if resp.PageKey != nil {
		page.Cursor = *resp.PageKey
	}
	if n, err := resp.TotalCount.Int64(); err == nil {
		page.Total = int(n)
	}
	return page, nil
}

func (c *Client) classify(address string, err error) error {
	if apiErr, ok := err.(*APIError); ok {
		switch {
		case apiErr.Status == http.StatusBadRequest:
			return &fetcher.InvalidAddressError{Address: address, Network: c.network, Reason: truncate(apiErr.Body, 200)}
		default:
			return &fetcher.NetworkUnavailableError{Network: c.network, Status: apiErr.Status, Err: apiErr}
		}
	}
	return &fetcher.NetworkUnavailableError{Network: c.network, Err: err}
}

func (c *Client) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	fullURL := c.host + path
	if len(query) > 0 {
		fullURL = fullURL + "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
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

func decodeRecord(raw json.RawMessage) (fetcher.RawRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var rec fetcher.RawRecord
	if err := dec.Decode(&rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func clampPageSize(n int) int {
	if n <= 0 || n > maxPageSize {
		return maxPageSize
	}
	return n
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n]
}

var _ fetcher.Fetcher = (*Client)(nil)

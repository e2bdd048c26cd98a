package helius

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"nftvault/internal/fetcher"
)

const owner = "So11111111111111111111111111111111111111112"

func TestFetch_ReshapesAssets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Query().Get("api-key") != "hk" {
			t.Errorf("method=%s query=%v", r.Method, r.URL.Query())
		}
		var req struct {
			Method string `json:"method"`
			Params struct {
				OwnerAddress string `json:"ownerAddress"`
				Page         int    `json:"page"`
				Limit        int    `json:"limit"`
			} `json:"params"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Method != "getAssetsByOwner" || req.Params.OwnerAddress != owner || req.Params.Page != 2 || req.Params.Limit != 2 {
			t.Errorf("req=%+v", req)
		}
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":"nftvault","result":{"total":5,"limit":2,"page":2,"items":[
			{"id":"mintA","grouping":[{"group_key":"collection","group_value":"collX"}],
			 "content":{"metadata":{"name":"Mad Lad #1","description":"d","attributes":[{"trait_type":"Sound","value":"on"}]},
			            "links":{"image":"ar://img"},"files":[{"uri":"ar://img","mime":"image/png"}]}},
			{"id":"mintB","content":{"metadata":{"name":"solo"}}}
		]}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, "hk")
	page, err := c.Fetch(context.Background(), fetcher.FetchRequest{Address: owner, Cursor: "2", PageSize: 2})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(page.Records) != 2 || page.Cursor != "3" || page.Total != 5 {
		t.Fatalf("page=%+v", page)
	}
	first := page.Records[0]
	if first["tokenId"] != "mintA" || first["name"] != "Mad Lad #1" || first["contentType"] != "image/png" {
		t.Fatalf("first=%v", first)
	}
	if contract := first["contract"].(map[string]any); contract["address"] != "collX" {
		t.Fatalf("contract=%v", contract)
	}
	second := page.Records[1]
	if contract := second["contract"].(map[string]any); contract["address"] != "mintB" {
		t.Fatalf("uncollected mint should be its own contract, got %v", contract)
	}
}

func TestFetch_LastPageHasNoCursor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":{"total":1,"limit":10,"page":1,"items":[{"id":"m"}]}}`))
	}))
	defer srv.Close()

	page, err := NewClient(srv.Client(), srv.URL, "").Fetch(context.Background(), fetcher.FetchRequest{Address: owner, PageSize: 10})
	if err != nil || page.Cursor != "" {
		t.Fatalf("page=%+v err=%v", page, err)
	}
}

func TestFetch_Errors(t *testing.T) {
	cases := []struct {
		name        string
		status      int
		body        string
		wantInvalid bool
	}{
		{name: "rpc invalid params", status: 200, body: `{"error":{"code":-32602,"message":"Invalid owner"}}`, wantInvalid: true},
		{name: "rpc internal", status: 200, body: `{"error":{"code":-32603,"message":"boom"}}`},
		{name: "rate limited", status: 429, body: `slow down`},
		{name: "bad request", status: 400, body: `bad`, wantInvalid: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.Client(), srv.URL, "k").Fetch(context.Background(), fetcher.FetchRequest{Address: owner})
			if tc.wantInvalid {
				if !fetcher.IsInvalidAddress(err) {
					t.Fatalf("err=%v want InvalidAddressError", err)
				}
				return
			}
			var nue *fetcher.NetworkUnavailableError
			if !errors.As(err, &nue) {
				t.Fatalf("err=%v want NetworkUnavailableError", err)
			}
		})
	}
}

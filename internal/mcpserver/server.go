// Package mcpserver exposes ingestion and media resolution as MCP tools.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"nftvault/internal/auth"
	"nftvault/internal/media"
	"nftvault/internal/service"
)

const (
	Name    = "nftvault"
	Version = "0.1.0"
)

// Server wraps the mcp-go server. Tools act as User, since stdio clients
// carry no bearer token.
type Server struct {
	Wallets   *service.WalletService
	Artifacts *service.ArtifactService
	Media     *service.MediaService
	User      string
	Logger    *zap.Logger

	mcpServer *server.MCPServer
}

func New(s *Server) *Server {
	s.mcpServer = server.NewMCPServer(Name, Version, server.WithToolCapabilities(true))
	s.registerTools()
	return s
}

func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio blocks until stdin closes.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("ingest_wallet",
		mcp.WithDescription("Fetch every NFT owned by an address across networks. Tracked wallets are persisted."),
		mcp.WithString("address", mcp.Required(), mcp.Description("EVM 0x address or Solana base58 public key")),
		mcp.WithArray("networks", mcp.Description("Network ids such as eth, polygon, solana; defaults by address family")),
	), s.ingestWallet)

	s.mcpServer.AddTool(mcp.NewTool("resolve_media",
		mcp.WithDescription("Resolve an ipfs://, ar:// or http(s) media URL to a gateway URL and classify it"),
		mcp.WithString("url", mcp.Required(), mcp.Description("Media URL")),
		mcp.WithString("type", mcp.Description("Explicit media type or MIME type")),
	), s.resolveMedia)

	s.mcpServer.AddTool(mcp.NewTool("list_artifacts",
		mcp.WithDescription("List stored artifacts for the acting user"),
		mcp.WithString("wallet_id", mcp.Description("Only this wallet")),
		mcp.WithString("network", mcp.Description("Only this network")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of artifacts to return")),
		mcp.WithNumber("offset", mcp.Description("Number of artifacts to skip")),
	), s.listArtifacts)
}

func (s *Server) userCtx(ctx context.Context) context.Context {
	if _, ok := auth.UserFromContext(ctx); ok {
		return ctx
	}
	return auth.WithUser(ctx, s.User)
}

func (s *Server) ingestWallet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.Wallets == nil {
		return mcp.NewToolResultError("ingestion unavailable"), nil
	}
	address, err := request.RequireString("address")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	networks := request.GetStringSlice("networks", nil)
	result, err := s.Wallets.IngestAddress(s.userCtx(ctx), address, networks)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("ingest failed: %v", err)), nil
	}
	return jsonResult(struct {
		*service.IngestionResult
		Artifacts any `json:"artifacts"`
	}{result, result.Artifacts})
}

func (s *Server) resolveMedia(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.Media == nil {
		return mcp.NewToolResultError("media service unavailable"), nil
	}
	raw, err := request.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(s.Media.Resolve(ctx, raw, media.Hint{Explicit: request.GetString("type", "")}))
}

func (s *Server) listArtifacts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.Artifacts == nil {
		return mcp.NewToolResultError("artifact store unavailable"), nil
	}
	items, total, err := s.Artifacts.List(s.userCtx(ctx), service.ArtifactFilter{
		WalletID: request.GetString("wallet_id", ""),
		Network:  request.GetString("network", ""),
		Limit:    request.GetInt("limit", 50),
		Offset:   request.GetInt("offset", 0),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list artifacts failed: %v", err)), nil
	}
	return jsonResult(map[string]any{"total": total, "items": items})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}

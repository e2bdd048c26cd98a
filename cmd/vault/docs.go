package main

//go:generate swag init -g cmd/vault/main.go -o docs

// @title           NFT Vault API
// @version         0.1.0
// @description     Multi-chain NFT ingestion, media resolution, and CORS-bypass media proxy.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization

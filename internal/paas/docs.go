package paas

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func RegisterDocs(r *gin.Engine) {
	r.GET("/docs", func(c *gin.Context) {
		c.Header("Content-Type", "text/markdown; charset=utf-8")
		c.String(http.StatusOK, `# nftvault

Ingests NFTs held by wallet addresses across EVM networks and Solana, and
resolves their media through IPFS/Arweave gateways and a proxy chain.

## Auth

With auth enabled, /api/* routes read a Bearer JWT (HS256). Calls without a
token are anonymous: POST /api/ingest still works but nothing is stored.

## Routes

- GET /healthz, GET /readyz, GET /metrics
- GET /swagger/index.html
- POST /api/wallets, GET /api/wallets, GET|DELETE /api/wallets/:id
- POST /api/wallets/:id/ingest, GET /api/wallets/:id/ingestion-state
- POST /api/ingest
- GET /api/artifacts, PATCH /api/artifacts/:id/spam, GET /api/artifacts/:id/media
- GET /api/media/resolve?url=, GET /api/media/proxy?url=
- POST /api/catalogs, GET|POST /api/catalogs/:id/items, DELETE /api/catalogs/:id/items/:artifact_id
- GET /api/settings/features, PUT /api/settings/features/:key
- GET /api/ws/events (websocket)
`)
	})
}

// Package media turns artifact media references into fetchable URLs, classifies
// them, and fetches them through an ordered chain of CORS-bypass strategies.
package media

import (
	"net/url"
	"strings"
)

const (
	DefaultIPFSGateway    = "https://ipfs.io/ipfs/"
	DefaultArweaveGateway = "https://arweave.net/"

	ipfsScheme    = "ipfs://"
	arweaveScheme = "ar://"
	ipfsSegment   = "/ipfs/"
)

// Resolver rewrites content-addressed URIs onto HTTP gateways.
type Resolver struct {
	IPFSGateway    string
	ArweaveGateway string
}

var defaultResolver = Resolver{IPFSGateway: DefaultIPFSGateway, ArweaveGateway: DefaultArweaveGateway}

// Resolve maps ipfs:// and ar:// onto the canonical gateways and re-anchors
// gatewayed /ipfs/ URLs. Anything else is returned verbatim.
func Resolve(uri string) string {
	return defaultResolver.Resolve(uri)
}

func NewResolver(ipfsGateway, arweaveGateway string) Resolver {
	r := defaultResolver
	if strings.TrimSpace(ipfsGateway) != "" {
		r.IPFSGateway = withSlash(ipfsGateway)
	}
	if strings.TrimSpace(arweaveGateway) != "" {
		r.ArweaveGateway = withSlash(arweaveGateway)
	}
	return r
}

func (r Resolver) Resolve(uri string) string {
	trimmed := strings.TrimSpace(uri)
	lower := strings.ToLower(trimmed)
	switch {
	case strings.HasPrefix(lower, ipfsScheme):
		rest := trimmed[len(ipfsScheme):]
		rest = strings.TrimPrefix(rest, "ipfs/")
		return r.gateway(r.IPFSGateway, DefaultIPFSGateway) + rest
	case strings.HasPrefix(lower, arweaveScheme):
		return r.gateway(r.ArweaveGateway, DefaultArweaveGateway) + trimmed[len(arweaveScheme):]
	case isHTTP(lower):
		if idx := strings.Index(trimmed, ipfsSegment); idx >= 0 {
			return r.gateway(r.IPFSGateway, DefaultIPFSGateway) + trimmed[idx+len(ipfsSegment):]
		}
	}
	return uri
}

func (r Resolver) gateway(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// IPFSPath returns the CID and path of an IPFS-addressed URI.
func IPFSPath(uri string) (string, bool) {
	trimmed := strings.TrimSpace(uri)
	lower := strings.ToLower(trimmed)
	if strings.HasPrefix(lower, ipfsScheme) {
		return strings.TrimPrefix(trimmed[len(ipfsScheme):], "ipfs/"), true
	}
	if isHTTP(lower) {
		if idx := strings.Index(trimmed, ipfsSegment); idx >= 0 {
			return trimmed[idx+len(ipfsSegment):], true
		}
	}
	return "", false
}

func IsIPFS(uri string) bool {
	_, ok := IPFSPath(uri)
	return ok
}

func IsArweave(uri string) bool {
	lower := strings.ToLower(strings.TrimSpace(uri))
	if strings.HasPrefix(lower, arweaveScheme) {
		return true
	}
	host := hostOf(lower)
	return host == "arweave.net" || strings.HasSuffix(host, ".arweave.net")
}

func IsContentAddressed(uri string) bool {
	return IsIPFS(uri) || IsArweave(uri)
}

func isHTTP(lower string) bool {
	return strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "http://")
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

func withSlash(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasSuffix(s, "/") {
		s += "/"
	}
	return s
}

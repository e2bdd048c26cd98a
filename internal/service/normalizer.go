package service

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"nftvault/internal/fetcher"
	"nftvault/internal/media"
	"nftvault/internal/models"
)

// MalformedRecordError marks a provider record that lacks its identity.
type MalformedRecordError struct {
	Network string
	Reason  string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record on %s: %s", e.Network, e.Reason)
}

// Metadata is either the parsed metadata object or, when the provider sent
// text that is not a JSON object, that text verbatim.
type Metadata struct {
	Raw    string
	Parsed map[string]any
}

// ParseMetadata decodes v once. Objects stay parsed, strings holding a JSON
// object are parsed, and any other string is kept raw.
func ParseMetadata(v any) Metadata {
	switch t := v.(type) {
	case map[string]any:
		return Metadata{Parsed: t}
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return Metadata{}
		}
		dec := json.NewDecoder(strings.NewReader(s))
		dec.UseNumber()
		var m map[string]any
		if err := dec.Decode(&m); err == nil && m != nil {
			return Metadata{Parsed: m}
		}
		return Metadata{Raw: t}
	}
	return Metadata{}
}

func (m Metadata) IsRaw() bool {
	return m.Parsed == nil && m.Raw != ""
}

func (m Metadata) Get(key string) any {
	if m.Parsed == nil {
		return nil
	}
	return m.Parsed[key]
}

// JSON is the stored form: the object, a JSON string for raw text, or {}.
func (m Metadata) JSON() datatypes.JSON {
	var v any = map[string]any{}
	switch {
	case m.Parsed != nil:
		v = m.Parsed
	case m.Raw != "":
		v = m.Raw
	}
	b, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(b)
}

// Normalizer turns provider records into canonical artifacts.
type Normalizer struct {
	Resolver media.Resolver
}

// Normalize returns nil when the record has no token id or contract address.
func (n *Normalizer) Normalize(raw fetcher.RawRecord, walletID, network string) *models.Artifact {
	item, _ := n.NormalizeRecord(raw, walletID, network)
	return item
}

func (n *Normalizer) NormalizeRecord(raw fetcher.RawRecord, walletID, network string) (*models.Artifact, error) {
	tokenID := stringOf(raw["tokenId"])
	if tokenID == "" {
		tokenID = stringOf(raw["token_id"])
	}
	if tokenID == "" {
		return nil, &MalformedRecordError{Network: network, Reason: "missing token id"}
	}
	contract := contractAddress(raw)
	if contract == "" {
		return nil, &MalformedRecordError{Network: network, Reason: "missing contract address"}
	}

	meta := recordMetadata(raw)
	item := &models.Artifact{
		WalletID:        walletID,
		Network:         network,
		ContractAddress: contract,
		TokenID:         tokenID,
		TokenType:       tokenType(raw["tokenType"]),
		Metadata:        meta.JSON(),
		IsSpam:          spamFlag(raw),
	}
	if item.TokenType == models.TokenTypeERC1155 {
		if bal, err := decimal.NewFromString(stringOf(raw["balance"])); err == nil {
			item.Balance = &bal
		}
	}

	item.MediaURL = n.Resolver.Resolve(mediaURL(raw, meta))
	item.Title = firstString(raw["title"], raw["name"], meta.Get("name"))
	if item.Title == "" {
		item.Title = "Token ID: " + tokenID
	}
	item.Description = firstString(raw["description"], meta.Get("description"))

	if attrs, ok := meta.Get("attributes").([]any); ok {
		if b, err := json.Marshal(attrs); err == nil {
			item.Attributes = datatypes.JSON(b)
		}
	}
	if t := explicitType(raw); t != media.TypeUnknown {
		s := string(t)
		item.MediaType = &s
	}
	return item, nil
}

// recordMetadata prefers raw.metadata (Alchemy v3) over a top-level metadata field.
func recordMetadata(raw fetcher.RawRecord) Metadata {
	if inner, ok := raw["raw"].(map[string]any); ok {
		if m := ParseMetadata(inner["metadata"]); m.Parsed != nil || m.Raw != "" {
			return m
		}
	}
	return ParseMetadata(raw["metadata"])
}

func contractAddress(raw fetcher.RawRecord) string {
	addr := ""
	if c, ok := raw["contract"].(map[string]any); ok {
		addr = stringOf(c["address"])
	}
	if addr == "" {
		addr = stringOf(raw["contractAddress"])
	}
	if strings.HasPrefix(addr, "0x") || strings.HasPrefix(addr, "0X") {
		addr = strings.ToLower(addr)
	}
	return addr
}

func tokenType(v any) string {
	switch strings.ToUpper(stringOf(v)) {
	case models.TokenTypeERC721:
		return models.TokenTypeERC721
	case models.TokenTypeERC1155:
		return models.TokenTypeERC1155
	case models.TokenTypeSPL:
		return models.TokenTypeSPL
	}
	return models.TokenTypeUnknown
}

func spamFlag(raw fetcher.RawRecord) bool {
	c, ok := raw["contract"].(map[string]any)
	if !ok {
		return false
	}
	switch v := c["isSpam"].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	}
	return false
}

func mediaURL(raw fetcher.RawRecord, meta Metadata) string {
	var image, links map[string]any
	image, _ = raw["image"].(map[string]any)
	if content, ok := raw["content"].(map[string]any); ok {
		links, _ = content["links"].(map[string]any)
	}
	return firstString(
		lookup(image, "originalUrl"),
		lookup(image, "cachedUrl"),
		raw["image"],
		meta.Get("image"),
		meta.Get("image_url"),
		meta.Get("animation_url"),
		lookup(links, "image"),
	)
}

func explicitType(raw fetcher.RawRecord) media.Type {
	if t := media.ParseType(firstString(raw["contentType"], raw["mimetype"])); t != media.TypeUnknown {
		return t
	}
	if image, ok := raw["image"].(map[string]any); ok {
		return media.ParseType(stringOf(image["contentType"]))
	}
	return media.TypeUnknown
}

func lookup(m map[string]any, key string) any {
	if m == nil {
		return nil
	}
	return m[key]
}

func firstString(values ...any) string {
	for _, v := range values {
		if s := stringOf(v); s != "" {
			return s
		}
	}
	return ""
}

func stringOf(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	}
	return ""
}

package transaction

import (
	"encoding/json"
	"fmt"
)

// signAlgorithms is the fixed algorithm whitelist a transaction header may
// declare. Anything else is rejected outright, the same validation
// transaction.rs performs before attempting verification.
var signAlgorithms = map[string]bool{
	"ES256": true, "ES384": true, "ES512": true,
	"PS256": true, "PS384": true, "PS512": true,
}

// header is the JOSE protected header of a transaction, RFC 7515's common
// fields plus the network's private "ver"/"sigt"/"prevs" claims.
type header struct {
	Algorithm   string          `json:"alg"`
	ContentType string          `json:"cty"`
	KeyID       string          `json:"kid,omitempty"`
	JWK         json.RawMessage `json:"jwk,omitempty"`

	Version  int      `json:"ver"`
	SignTime int64    `json:"sigt"`
	Previous []string `json:"prevs,omitempty"`
}

func parseHeader(data []byte) (header, error) {
	var h header
	if err := json.Unmarshal(data, &h); err != nil {
		return header{}, fmt.Errorf("%w: %v", ErrBadJSON, err)
	}
	if !signAlgorithms[h.Algorithm] {
		return header{}, ErrUnsupportedAlgorithm
	}
	if h.ContentType == "" {
		return header{}, ErrMissingPayloadType
	}
	return h, nil
}

// resolveKeyID implements the key-resolution rule shared by parse_unsafe
// and parse: when a jwk is embedded, its own kid wins, falling back to the
// header's kid (MissingKeyId if both are empty); without an embedded jwk
// the header's kid is required (MissingKeyOrKeyId if absent).
func (h header) resolveKeyID(inlineKeyID string) (string, error) {
	if len(h.JWK) > 0 {
		if inlineKeyID != "" {
			return inlineKeyID, nil
		}
		if h.KeyID != "" {
			return h.KeyID, nil
		}
		return "", ErrMissingKeyID
	}
	if h.KeyID == "" {
		return "", ErrMissingKeyOrKeyID
	}
	return h.KeyID, nil
}

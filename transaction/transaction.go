// Package transaction parses and verifies the compact-JWS transactions
// that make up the content-addressed graph (C3). The header schema and
// parse/verify split are adapted from transaction.rs's parse_transaction,
// Transaction::parse_unsafe and Transaction::parse.
package transaction

import (
	"encoding/base64"
	"encoding/hex"
	"strings"

	"github.com/nuts-foundation/nuts-go/hashid"
	"github.com/nuts-foundation/nuts-go/keystore"
)

// Transaction is a single parsed, structurally-valid node of the graph.
// ID addresses the transaction by the sha256 of its full compact-JWS
// serialization, so two byte-identical transactions collapse to one node.
type Transaction struct {
	ID          hashid.Hash
	Raw         []byte
	Prevs       []hashid.Hash
	Payload     hashid.Hash
	PayloadType string
	Version     int
	KeyID       string
	InlineKey   *keystore.PublicKey
	SignAt      int64
	SignAlgo    string
}

// IsRoot reports whether this transaction has no parents.
func (t Transaction) IsRoot() bool { return len(t.Prevs) == 0 }

// ParseUnsafe decodes a compact JWS transaction without verifying its
// signature: structural validation only (header well-formedness, the
// algorithm whitelist, the hex-decodable payload and previous hashes).
// Used by replay from local storage and by the dispatcher for inbound
// batches; neither path verifies signatures.
func ParseUnsafe(raw []byte) (Transaction, error) {
	parts := strings.Split(string(raw), ".")
	if len(parts) != 3 {
		return Transaction{}, ErrBadBase64
	}
	headerB64, payloadB64 := parts[0], parts[1]

	headerJSON, err := base64.RawURLEncoding.DecodeString(headerB64)
	if err != nil {
		return Transaction{}, ErrBadBase64
	}
	h, err := parseHeader(headerJSON)
	if err != nil {
		return Transaction{}, err
	}

	payloadHex, err := base64.RawURLEncoding.DecodeString(payloadB64)
	if err != nil {
		return Transaction{}, ErrBadBase64
	}
	payload, err := decodePayloadHash(payloadHex)
	if err != nil {
		return Transaction{}, err
	}

	prevs := make([]hashid.Hash, 0, len(h.Previous))
	for _, p := range h.Previous {
		b, err := hex.DecodeString(p)
		if err != nil {
			return Transaction{}, ErrBadParentHash
		}
		hh, err := hashid.FromBytes(b)
		if err != nil {
			return Transaction{}, ErrBadParentHash
		}
		prevs = append(prevs, hh)
	}

	t := Transaction{
		ID:          hashid.Sum(raw),
		Raw:         append([]byte(nil), raw...),
		Prevs:       prevs,
		Payload:     payload,
		PayloadType: h.ContentType,
		Version:     h.Version,
		SignAt:      h.SignTime,
		SignAlgo:    h.Algorithm,
	}

	var inlineKeyID string
	if len(h.JWK) > 0 {
		key, err := keystore.ParsePublicKeyJWK(h.JWK)
		if err != nil {
			return Transaction{}, err
		}
		t.InlineKey = &key
		inlineKeyID = key.KeyID
	}

	keyID, err := h.resolveKeyID(inlineKeyID)
	if err != nil {
		return Transaction{}, err
	}
	t.KeyID = keyID

	return t, nil
}

// decodePayloadHash requires the JWS payload to be exactly 64 ASCII
// lower-hex characters, decoding it to the 32-byte payload Hash.
func decodePayloadHash(payload []byte) (hashid.Hash, error) {
	if len(payload) != 64 {
		return hashid.Hash{}, ErrBadHexPayload
	}
	for _, c := range payload {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return hashid.Hash{}, ErrBadHexPayload
		}
	}
	h, err := hashid.FromHex(string(payload))
	if err != nil {
		return hashid.Hash{}, ErrBadHexPayload
	}
	return h, nil
}

// Parse decodes raw like ParseUnsafe and additionally verifies the
// signature, resolving the signing key from the header's embedded jwk or,
// failing that, from ks by key id.
func Parse(raw []byte, ks *keystore.KeyStore) (Transaction, error) {
	t, err := ParseUnsafe(raw)
	if err != nil {
		return Transaction{}, err
	}

	key := t.InlineKey
	if key == nil {
		resolved, err := ks.Get(t.KeyID)
		if err != nil {
			return Transaction{}, ErrUnknownKey
		}
		key = &resolved
	}

	parts := strings.SplitN(string(raw), ".", 3)
	signingInput := parts[0] + "." + parts[1]
	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return Transaction{}, ErrBadBase64
	}

	if err := verify(t.SignAlgo, *key, signingInput, sig); err != nil {
		return Transaction{}, err
	}

	return t, nil
}

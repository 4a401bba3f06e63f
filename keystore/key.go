// Package keystore implements the persistent key_id -> PublicKey mapping
// (C2) and the polymorphic JWK public key type used to verify transaction
// signatures. The EC verification path is adapted from jose.jwkECPub;
// octet and RSA support are added for the full algorithm family the
// transaction codec needs.
package keystore

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
)

// Family identifies the cryptographic key family a PublicKey belongs to.
type Family int

const (
	// FamilyUnsupported marks a JWK whose "kty" this store can't use.
	FamilyUnsupported Family = iota
	FamilyRSA
	FamilyEllipticCurve
	FamilyOctetKey
)

func (f Family) String() string {
	switch f {
	case FamilyRSA:
		return "RSA"
	case FamilyEllipticCurve:
		return "EllipticCurve"
	case FamilyOctetKey:
		return "OctetKey"
	default:
		return "Unsupported"
	}
}

// PublicKey is an opaque JWK value carrying its algorithm family and key
// id. Only the fields needed for verification are parsed out; the raw JWK
// JSON is kept so the store can re-persist and re-embed it verbatim.
type PublicKey struct {
	KeyID  string
	Family Family

	raw json.RawMessage

	rsaKey *rsa.PublicKey
	ecKey  *ecdsa.PublicKey
	ecAlg  string // ES256 | ES384 | ES512, matching the key's curve
	octet  []byte
}

// jwkData holds the fields common to all JWKs (RFC 7517 section 4).
type jwkData struct {
	KeyType string `json:"kty"`
	KeyID   string `json:"kid"`
}

type jwkRSA struct {
	jwkData
	N string `json:"n"`
	E string `json:"e"`
}

type jwkEC struct {
	jwkData
	Curve string `json:"crv"`
	X     string `json:"x"`
	Y     string `json:"y"`
}

type jwkOctet struct {
	jwkData
	K string `json:"k"`
}

// ParsePublicKeyJWK parses a single JWK (as embedded in a JWS header's
// "jwk" field, or as persisted in the key store) into a PublicKey.
func ParsePublicKeyJWK(data []byte) (PublicKey, error) {
	var common jwkData
	if err := json.Unmarshal(data, &common); err != nil {
		return PublicKey{}, fmt.Errorf("keystore: invalid jwk: %w", err)
	}

	pk := PublicKey{KeyID: common.KeyID, raw: append(json.RawMessage(nil), data...)}

	switch common.KeyType {
	case "RSA":
		var jwk jwkRSA
		if err := json.Unmarshal(data, &jwk); err != nil {
			return PublicKey{}, fmt.Errorf("keystore: invalid RSA jwk: %w", err)
		}
		key, err := decodeRSAPublicKey(jwk)
		if err != nil {
			return PublicKey{}, err
		}
		pk.Family = FamilyRSA
		pk.rsaKey = key
	case "EC":
		var jwk jwkEC
		if err := json.Unmarshal(data, &jwk); err != nil {
			return PublicKey{}, fmt.Errorf("keystore: invalid EC jwk: %w", err)
		}
		key, alg, err := decodeECPublicKey(jwk)
		if err != nil {
			return PublicKey{}, err
		}
		pk.Family = FamilyEllipticCurve
		pk.ecKey = key
		pk.ecAlg = alg
	case "oct":
		var jwk jwkOctet
		if err := json.Unmarshal(data, &jwk); err != nil {
			return PublicKey{}, fmt.Errorf("keystore: invalid octet jwk: %w", err)
		}
		k, err := base64.RawURLEncoding.DecodeString(jwk.K)
		if err != nil {
			return PublicKey{}, fmt.Errorf("keystore: invalid octet key material: %w", err)
		}
		pk.Family = FamilyOctetKey
		pk.octet = k
	default:
		pk.Family = FamilyUnsupported
	}
	return pk, nil
}

func decodeRSAPublicKey(jwk jwkRSA) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(jwk.N)
	if err != nil {
		return nil, fmt.Errorf("keystore: invalid RSA modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(jwk.E)
	if err != nil {
		return nil, fmt.Errorf("keystore: invalid RSA exponent: %w", err)
	}
	n := new(big.Int).SetBytes(nBytes)
	e := new(big.Int).SetBytes(eBytes)
	return &rsa.PublicKey{N: n, E: int(e.Int64())}, nil
}

func decodeECPublicKey(jwk jwkEC) (*ecdsa.PublicKey, string, error) {
	var curve elliptic.Curve
	var alg string
	switch jwk.Curve {
	case "P-256":
		curve, alg = elliptic.P256(), "ES256"
	case "P-384":
		curve, alg = elliptic.P384(), "ES384"
	case "P-521":
		curve, alg = elliptic.P521(), "ES512"
	default:
		return nil, "", fmt.Errorf("keystore: unsupported EC curve: %s", jwk.Curve)
	}
	xBytes, err := base64.RawURLEncoding.DecodeString(jwk.X)
	if err != nil {
		return nil, "", fmt.Errorf("keystore: invalid EC x coordinate: %w", err)
	}
	yBytes, err := base64.RawURLEncoding.DecodeString(jwk.Y)
	if err != nil {
		return nil, "", fmt.Errorf("keystore: invalid EC y coordinate: %w", err)
	}
	x := new(big.Int).SetBytes(xBytes)
	y := new(big.Int).SetBytes(yBytes)
	return &ecdsa.PublicKey{Curve: curve, X: x, Y: y}, alg, nil
}

// RSAKey returns the underlying *rsa.PublicKey, or nil if Family != FamilyRSA.
func (k PublicKey) RSAKey() *rsa.PublicKey { return k.rsaKey }

// ECKey returns the underlying *ecdsa.PublicKey and its ESxxx algorithm
// name, or (nil, "") if Family != FamilyEllipticCurve.
func (k PublicKey) ECKey() (*ecdsa.PublicKey, string) { return k.ecKey, k.ecAlg }

// OctetKey returns the raw symmetric key material, or nil if
// Family != FamilyOctetKey.
func (k PublicKey) OctetKey() []byte { return k.octet }

// MarshalJWK returns the raw JWK JSON this key was parsed from.
func (k PublicKey) MarshalJWK() []byte {
	return append([]byte(nil), k.raw...)
}

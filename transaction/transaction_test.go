package transaction

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/nuts-foundation/nuts-go/hashid"
	"github.com/nuts-foundation/nuts-go/keystore"
	"github.com/nuts-foundation/nuts-go/store"
)

func b64(b []byte) string { return base64.RawURLEncoding.EncodeToString(b) }

// payloadHex derives a valid 64-lower-hex-character payload from seed, the
// way a real transaction's payload would be a 32-byte digest rendered as
// hex ASCII.
func payloadHex(seed string) string {
	return hashid.Sum([]byte(seed)).String()
}

func ecJWK(pub *ecdsa.PublicKey, kid string) string {
	size := (pub.Curve.Params().BitSize + 7) / 8
	x := pub.X.FillBytes(make([]byte, size))
	y := pub.Y.FillBytes(make([]byte, size))
	return fmt.Sprintf(`{"kty":"EC","kid":%q,"crv":"P-256","x":%q,"y":%q}`, kid, b64(x), b64(y))
}

func signCompact(t *testing.T, priv *ecdsa.PrivateKey, headerJSON []byte, payloadHexStr string) []byte {
	t.Helper()
	headerB64 := b64(headerJSON)
	payloadB64 := b64([]byte(payloadHexStr))
	signingInput := headerB64 + "." + payloadB64

	h := sha256.Sum256([]byte(signingInput))
	r, s, err := ecdsa.Sign(rand.Reader, priv, h[:])
	if err != nil {
		t.Fatal(err)
	}
	size := (priv.Curve.Params().BitSize + 7) / 8
	sig := append(r.FillBytes(make([]byte, size)), s.FillBytes(make([]byte, size))...)

	return []byte(signingInput + "." + b64(sig))
}

func buildHeader(t *testing.T, kid string, inlineJWK string, prevs []string) []byte {
	t.Helper()
	m := map[string]interface{}{
		"alg":  "ES256",
		"cty":  "application/nuts-transaction+octet-stream",
		"ver":  1,
		"sigt": 1700000000,
	}
	if len(prevs) > 0 {
		m["prevs"] = prevs
	}
	if inlineJWK != "" {
		var raw json.RawMessage = json.RawMessage(inlineJWK)
		m["jwk"] = raw
	} else {
		m["kid"] = kid
	}
	b, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestParseUnsafeRootTransaction(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	jwk := ecJWK(&priv.PublicKey, "key-1")
	header := buildHeader(t, "", jwk, nil)
	payload := payloadHex("hello")
	raw := signCompact(t, priv, header, payload)

	tx, err := ParseUnsafe(raw)
	if err != nil {
		t.Fatal(err)
	}
	if !tx.IsRoot() {
		t.Fatal("expected root transaction")
	}
	if tx.KeyID != "key-1" {
		t.Fatalf("expected key-1, got %s", tx.KeyID)
	}
	if tx.Payload.String() != payload {
		t.Fatalf("unexpected payload: %s", tx.Payload.String())
	}
}

func TestParseVerifiesSignature(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	jwk := ecJWK(&priv.PublicKey, "key-1")
	header := buildHeader(t, "", jwk, nil)
	raw := signCompact(t, priv, header, payloadHex("hello"))

	ks, _ := keystore.Open(store.NewMemory())
	tx, err := Parse(raw, ks)
	if err != nil {
		t.Fatal(err)
	}
	if tx.ID.IsZero() {
		t.Fatal("expected non-zero transaction id")
	}
}

func TestParseDetectsTamperedSignature(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	jwk := ecJWK(&priv.PublicKey, "key-1")
	header := buildHeader(t, "", jwk, nil)
	raw := signCompact(t, priv, header, payloadHex("hello"))
	raw[len(raw)-1] ^= 0xFF

	ks, _ := keystore.Open(store.NewMemory())
	if _, err := Parse(raw, ks); err != ErrSignatureInvalid && err != ErrBadBase64 {
		t.Fatalf("expected signature rejection, got %v", err)
	}
}

func TestParseUnsafeRejectsUnsupportedAlgorithm(t *testing.T) {
	headerJSON := []byte(`{"alg":"HS256","cty":"x","kid":"k","ver":1,"sigt":1}`)
	raw := []byte(b64(headerJSON) + "." + b64([]byte(payloadHex("p"))) + "." + b64([]byte("sig")))
	if _, err := ParseUnsafe(raw); err != ErrUnsupportedAlgorithm {
		t.Fatalf("expected ErrUnsupportedAlgorithm, got %v", err)
	}
}

func TestParseUnsafeRequiresPayloadType(t *testing.T) {
	headerJSON := []byte(`{"alg":"ES256","kid":"k","ver":1,"sigt":1}`)
	raw := []byte(b64(headerJSON) + "." + b64([]byte(payloadHex("p"))) + "." + b64([]byte("sig")))
	if _, err := ParseUnsafe(raw); err != ErrMissingPayloadType {
		t.Fatalf("expected ErrMissingPayloadType, got %v", err)
	}
}

func TestParseUnsafeRejectsBadHexPayload(t *testing.T) {
	headerJSON := []byte(`{"alg":"ES256","cty":"x","kid":"k","ver":1,"sigt":1}`)
	raw := []byte(b64(headerJSON) + "." + b64([]byte("not-hex-and-wrong-length")) + "." + b64([]byte("sig")))
	if _, err := ParseUnsafe(raw); err != ErrBadHexPayload {
		t.Fatalf("expected ErrBadHexPayload, got %v", err)
	}
}

func TestParseUnsafeWithParents(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	jwk := ecJWK(&priv.PublicKey, "key-1")
	parent := sha256.Sum256([]byte("parent"))
	header := buildHeader(t, "", jwk, []string{hex.EncodeToString(parent[:])})
	raw := signCompact(t, priv, header, payloadHex("child"))

	tx, err := ParseUnsafe(raw)
	if err != nil {
		t.Fatal(err)
	}
	if tx.IsRoot() {
		t.Fatal("expected non-root transaction")
	}
	if len(tx.Prevs) != 1 {
		t.Fatalf("expected 1 parent, got %d", len(tx.Prevs))
	}
}

func TestParseUnknownKeyID(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	header := buildHeader(t, "missing-key", "", nil)
	raw := signCompact(t, priv, header, payloadHex("hello"))

	ks, _ := keystore.Open(store.NewMemory())
	if _, err := Parse(raw, ks); err != ErrUnknownKey {
		t.Fatalf("expected ErrUnknownKey, got %v", err)
	}
}

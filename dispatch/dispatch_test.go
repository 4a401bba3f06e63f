package dispatch

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/nuts-foundation/nuts-go/graphstore"
	"github.com/nuts-foundation/nuts-go/hashid"
	"github.com/nuts-foundation/nuts-go/keystore"
	"github.com/nuts-foundation/nuts-go/store"
)

func b64(b []byte) string { return base64.RawURLEncoding.EncodeToString(b) }

func payloadHex(seed string) string { return hashid.Sum([]byte(seed)).String() }

type testFixture struct {
	priv *ecdsa.PrivateKey
	kid  string
}

func newTestFixture(t *testing.T) testFixture {
	t.Helper()
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	return testFixture{priv: priv, kid: "key-1"}
}

func (f testFixture) jwk() string {
	size := (f.priv.Curve.Params().BitSize + 7) / 8
	x := f.priv.PublicKey.X.FillBytes(make([]byte, size))
	y := f.priv.PublicKey.Y.FillBytes(make([]byte, size))
	return fmt.Sprintf(`{"kty":"EC","kid":%q,"crv":"P-256","x":%q,"y":%q}`, f.kid, b64(x), b64(y))
}

func (f testFixture) sign(t *testing.T, prevs []string, payloadSeed string, embedJWK bool) []byte {
	t.Helper()
	m := map[string]interface{}{
		"alg": "ES256", "cty": "x", "ver": 1, "sigt": 1,
	}
	if len(prevs) > 0 {
		m["prevs"] = prevs
	}
	if embedJWK {
		m["jwk"] = json.RawMessage(f.jwk())
	} else {
		m["kid"] = f.kid
	}
	headerJSON, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	headerB64 := b64(headerJSON)
	payloadB64 := b64([]byte(payloadHex(payloadSeed)))
	signingInput := headerB64 + "." + payloadB64

	h := sha256.Sum256([]byte(signingInput))
	r, s, err := ecdsa.Sign(rand.Reader, f.priv, h[:])
	if err != nil {
		t.Fatal(err)
	}
	size := (f.priv.Curve.Params().BitSize + 7) / 8
	sig := append(r.FillBytes(make([]byte, size)), s.FillBytes(make([]byte, size))...)
	return []byte(signingInput + "." + b64(sig))
}

func newDispatcher(t *testing.T) (*Dispatcher, *keystore.KeyStore, *graphstore.Graph) {
	t.Helper()
	s := store.NewMemory()
	ks, err := keystore.Open(s)
	if err != nil {
		t.Fatal(err)
	}
	g, err := graphstore.Open(s)
	if err != nil {
		t.Fatal(err)
	}
	return New(ks, g), ks, g
}

func TestDispatcherBootstrapsRootFromBatch(t *testing.T) {
	f := newTestFixture(t)
	d, ks, g := newDispatcher(t)

	root := f.sign(t, nil, "root", true)
	child := f.sign(t, []string{hashid.Sum(root).String()}, "child", false)

	ctx, cancel := context.WithCancel(context.Background())
	go d.Run(ctx)
	defer cancel()

	err := d.Enqueue(ctx, InboundMessage{
		PeerID: "peer-1",
		TransactionList: &TransactionList{
			Transactions: [][]byte{root, child},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool { return g.Len() == 2 })

	if ok, _ := ks.Contains(f.kid); !ok {
		t.Fatal("expected inline key to be bound by dispatcher")
	}
	if _, err := g.Root(); err != nil {
		t.Fatalf("expected root present, got %v", err)
	}
}

func TestDispatcherMissingRootWhenBatchHasNoRoot(t *testing.T) {
	f := newTestFixture(t)
	d, _, g := newDispatcher(t)

	orphan := f.sign(t, []string{fmt.Sprintf("%064x", 1)}, "orphan", true)

	ctx, cancel := context.WithCancel(context.Background())
	go d.Run(ctx)
	defer cancel()

	d.Enqueue(ctx, InboundMessage{
		PeerID:          "peer-1",
		TransactionList: &TransactionList{Transactions: [][]byte{orphan}},
	})

	time.Sleep(50 * time.Millisecond)
	if g.Len() != 0 {
		t.Fatalf("expected no transactions inserted, got %d", g.Len())
	}
}

func TestDispatcherSkipsAlreadyPresentTransaction(t *testing.T) {
	f := newTestFixture(t)
	d, ks, g := newDispatcher(t)

	root := f.sign(t, nil, "root", true)

	ctx, cancel := context.WithCancel(context.Background())
	go d.Run(ctx)
	defer cancel()

	d.Enqueue(ctx, InboundMessage{
		PeerID:          "peer-1",
		TransactionList: &TransactionList{Transactions: [][]byte{root}},
	})
	waitFor(t, func() bool { return g.Len() == 1 })

	// Re-advertising the same root a second time must not error or
	// duplicate it.
	d.Enqueue(ctx, InboundMessage{
		PeerID:          "peer-2",
		TransactionList: &TransactionList{Transactions: [][]byte{root}},
	})
	time.Sleep(50 * time.Millisecond)
	if g.Len() != 1 {
		t.Fatalf("expected graph to remain at 1 transaction, got %d", g.Len())
	}
	_ = ks
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

// Package graphstore implements the persisted, replayable DAG of
// transactions (C4). The replay-by-ordinal strategy, single-root and
// parent-presence checks, and — deliberately — the "only the last listed
// parent becomes a graph edge" quirk are all carried over from graph.rs's
// Graph::open/add_local, which this package is a direct port of.
package graphstore

import (
	"fmt"
	"sort"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/nuts-foundation/nuts-go/hashid"
	"github.com/nuts-foundation/nuts-go/keystore"
	"github.com/nuts-foundation/nuts-go/store"
	"github.com/nuts-foundation/nuts-go/transaction"
)

const namespace = "dag"

// record is the on-disk shape of a single graph node: its insertion
// ordinal and the raw transaction bytes, the way graph.rs's Node struct
// (idx, tx_id, tx_data) is persisted with bincode.
type record struct {
	Idx    uint64 `msgpack:"idx"`
	TxID   string `msgpack:"tx_id"`
	TxData []byte `msgpack:"tx_data"`
}

// Graph is a persisted, in-memory-mirrored DAG of transactions.
//
// Edges are NOT a full reflection of every prevs entry: in keeping with
// the reference implementation's behavior, addLocal links a new
// transaction to the graph only from the last entry of its prevs list.
// Earlier-listed parents are still required to exist (and are recorded on
// the transaction itself) but do not receive a graph edge. This is
// preserved intentionally rather than "fixed".
type Graph struct {
	mu      sync.Mutex
	bucket  store.Bucket
	nextIdx uint64

	nodes    map[hashid.Hash]transaction.Transaction
	children map[hashid.Hash][]hashid.Hash
	root     hashid.Hash
	hasRoot  bool
}

// Open replays the "dag" namespace of s into memory, in ordinal order.
func Open(s store.Store) (*Graph, error) {
	b, err := s.Namespace(namespace)
	if err != nil {
		return nil, fmt.Errorf("graphstore: open namespace: %w", err)
	}

	g := &Graph{
		bucket:   b,
		nodes:    make(map[hashid.Hash]transaction.Transaction),
		children: make(map[hashid.Hash][]hashid.Hash),
	}

	type indexed struct {
		idx uint64
		raw []byte
	}
	var records []indexed
	err = b.ForEach(func(key, value []byte) error {
		var rec record
		if err := msgpack.Unmarshal(value, &rec); err != nil {
			return fmt.Errorf("graphstore: corrupt record at key %x: %w", key, err)
		}
		records = append(records, indexed{idx: rec.Idx, raw: rec.TxData})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(records, func(i, j int) bool { return records[i].idx < records[j].idx })

	for _, r := range records {
		tx, err := transaction.ParseUnsafe(r.raw)
		if err != nil {
			return nil, fmt.Errorf("graphstore: replay: %w", err)
		}
		if err := g.addLocal(tx); err != nil {
			return nil, fmt.Errorf("graphstore: replay: %w", err)
		}
		if r.idx+1 > g.nextIdx {
			g.nextIdx = r.idx + 1
		}
	}
	return g, nil
}

// Add verifies raw against ks, links it into the graph and persists it.
func (g *Graph) Add(raw []byte, ks *keystore.KeyStore) (transaction.Transaction, error) {
	tx, err := transaction.Parse(raw, ks)
	if err != nil {
		return transaction.Transaction{}, err
	}
	return tx, g.insert(tx)
}

// AddParsed links an already-parsed transaction into the graph and
// persists it, without re-running signature verification. Used by the
// dispatcher, which works from transaction.ParseUnsafe results.
func (g *Graph) AddParsed(tx transaction.Transaction) error {
	return g.insert(tx)
}

func (g *Graph) insert(tx transaction.Transaction) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.addLocal(tx); err != nil {
		return err
	}
	return g.persist(tx)
}

// addLocal links tx into the in-memory graph without persisting it.
func (g *Graph) addLocal(tx transaction.Transaction) error {
	if _, exists := g.nodes[tx.ID]; exists {
		return ErrDuplicateTransaction
	}

	if tx.IsRoot() {
		if g.hasRoot {
			return ErrRootAlreadyPresent
		}
		g.hasRoot = true
		g.root = tx.ID
	} else {
		for _, p := range tx.Prevs {
			if _, ok := g.nodes[p]; !ok {
				return ErrMissingParent
			}
		}
	}

	g.nodes[tx.ID] = tx

	if len(tx.Prevs) > 0 {
		last := tx.Prevs[len(tx.Prevs)-1]
		g.children[last] = append(g.children[last], tx.ID)
	}
	return nil
}

func (g *Graph) persist(tx transaction.Transaction) error {
	rec := record{Idx: g.nextIdx, TxID: tx.ID.String(), TxData: tx.Raw}
	buf, err := msgpack.Marshal(rec)
	if err != nil {
		return fmt.Errorf("graphstore: encode record: %w", err)
	}
	if err := g.bucket.Put(tx.ID.Bytes(), buf); err != nil {
		return fmt.Errorf("graphstore: persist: %w", err)
	}
	g.nextIdx++
	return nil
}

// Find returns the transaction with the given id.
func (g *Graph) Find(id hashid.Hash) (transaction.Transaction, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	tx, ok := g.nodes[id]
	return tx, ok
}

// Root returns the graph's single root transaction.
func (g *Graph) Root() (transaction.Transaction, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.hasRoot {
		return transaction.Transaction{}, ErrMissingRoot
	}
	return g.nodes[g.root], nil
}

// Walk performs a pre-order depth-first traversal from the root, calling
// fn for each visited transaction, mirroring walk_recursive in graph.rs.
func (g *Graph) Walk(fn func(transaction.Transaction) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.hasRoot {
		return ErrMissingRoot
	}
	return g.walk(g.root, fn)
}

func (g *Graph) walk(id hashid.Hash, fn func(transaction.Transaction) error) error {
	tx, ok := g.nodes[id]
	if !ok {
		return nil
	}
	if err := fn(tx); err != nil {
		return err
	}
	for _, child := range g.children[id] {
		if err := g.walk(child, fn); err != nil {
			return err
		}
	}
	return nil
}

// ToVec returns every transaction reachable from the root, in pre-order.
func (g *Graph) ToVec() ([]transaction.Transaction, error) {
	var out []transaction.Transaction
	err := g.Walk(func(tx transaction.Transaction) error {
		out = append(out, tx)
		return nil
	})
	return out, err
}

// Len returns the number of transactions currently in the graph.
func (g *Graph) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.nodes)
}

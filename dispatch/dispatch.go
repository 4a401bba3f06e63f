// Package dispatch is the single serialized writer over the key store and
// graph (C5). It owns the bounded inbound message queue fed by peer
// sessions and drains it strictly in order, the same "one mux, named
// handlers" shape oauth2/handler.go uses for HTTP, retargeted to a
// message-typed internal queue instead of HTTP routes.
package dispatch

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/nuts-foundation/nuts-go/graphstore"
	"github.com/nuts-foundation/nuts-go/keystore"
	"github.com/nuts-foundation/nuts-go/transaction"
)

// QueueCapacity is the bounded size of the inbound message queue (spec §5).
const QueueCapacity = 10

// TransactionList is the domain-level decoding of a wire TransactionList
// message: raw compact-JWS bytes per transaction, block_date reserved.
type TransactionList struct {
	BlockDate    int64
	Transactions [][]byte
}

// TransactionListQuery is the domain-level decoding of a wire
// TransactionListQuery message.
type TransactionListQuery struct {
	BlockDate int64
}

// InboundMessage is one item drained from the queue: the originating
// peer id plus exactly one populated message variant. A message with both
// fields nil is logged, then ignored; the session pump drops unrecognized
// wire variants before they reach the queue.
type InboundMessage struct {
	PeerID               string
	TransactionList      *TransactionList
	TransactionListQuery *TransactionListQuery
}

// Dispatcher is the sole writer of the key store and graph.
type Dispatcher struct {
	queue    chan InboundMessage
	keystore *keystore.KeyStore
	graph    *graphstore.Graph
}

// New creates a Dispatcher over ks and graph with the spec-mandated
// capacity-10 inbound queue.
func New(ks *keystore.KeyStore, graph *graphstore.Graph) *Dispatcher {
	return &Dispatcher{
		queue:    make(chan InboundMessage, QueueCapacity),
		keystore: ks,
		graph:    graph,
	}
}

// Enqueue places msg on the inbound queue, blocking while it's full — the
// backpressure mechanism spec §5 relies on to throttle slow peers. It
// returns early if ctx is done before the message is accepted.
func (d *Dispatcher) Enqueue(ctx context.Context, msg InboundMessage) error {
	select {
	case d.queue <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drains the queue strictly serially until ctx is cancelled or the
// queue's sending side is closed, mirroring Server::run's description in
// spec §4.7.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case msg, ok := <-d.queue:
			if !ok {
				return nil
			}
			d.handle(msg)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (d *Dispatcher) handle(msg InboundMessage) {
	start := time.Now()
	var kind string
	switch {
	case msg.TransactionList != nil:
		kind = "transaction_list"
		if err := d.handleTransactionList(msg.PeerID, msg.TransactionList); err != nil {
			log.WithFields(log.Fields{
				"peer_id": msg.PeerID,
				"error":   err,
			}).Warn("error handling message for peer")
		}
	case msg.TransactionListQuery != nil:
		kind = "transaction_list_query"
		// Queries carry no further action for this node today beyond the
		// outbound advertisement loop owned by the session itself.
		log.WithField("peer_id", msg.PeerID).Debug("received transaction list query")
	default:
		kind = "unknown"
		log.WithField("peer_id", msg.PeerID).Debug("ignoring unrecognized message variant")
	}
	dispatchDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

// handleTransactionList implements spec §4.5's batch handling: parse every
// transaction with parse_unsafe, abort the whole batch on the first parse
// failure, bootstrap the root if the graph doesn't have one yet, then
// insert the remaining transactions, skipping ones already present.
func (d *Dispatcher) handleTransactionList(peerID string, list *TransactionList) error {
	parsed := make([]transaction.Transaction, 0, len(list.Transactions))
	for i, raw := range list.Transactions {
		tx, err := transaction.ParseUnsafe(raw)
		if err != nil {
			transactionsRejected.WithLabelValues("parse_error").Inc()
			return fmt.Errorf("dispatch: parsing transaction %d of batch: %w", i, err)
		}
		parsed = append(parsed, tx)
	}

	if _, err := d.graph.Root(); err == graphstore.ErrMissingRoot {
		rootIdx := -1
		for i, tx := range parsed {
			if tx.IsRoot() {
				rootIdx = i
				break
			}
		}
		if rootIdx == -1 {
			transactionsRejected.WithLabelValues("missing_root").Inc()
			return graphstore.ErrMissingRoot
		}
		root := parsed[rootIdx]
		parsed = append(parsed[:rootIdx], parsed[rootIdx+1:]...)
		if err := d.addTransaction(peerID, root); err != nil {
			return err
		}
	}

	for _, tx := range parsed {
		if _, ok := d.graph.Find(tx.ID); ok {
			continue
		}
		if err := d.addTransaction(peerID, tx); err != nil {
			return err
		}
	}
	return nil
}

// addTransaction implements spec §4.5's add_transaction: bind any inline
// key that isn't already known, then link the transaction into the graph.
func (d *Dispatcher) addTransaction(peerID string, tx transaction.Transaction) error {
	if tx.InlineKey != nil {
		contains, err := d.keystore.Contains(tx.KeyID)
		if err != nil {
			transactionsRejected.WithLabelValues("keystore_error").Inc()
			return fmt.Errorf("dispatch: checking key store: %w", err)
		}
		if !contains {
			if err := d.keystore.Add(tx.KeyID, *tx.InlineKey); err != nil && err != keystore.ErrKeyExists {
				transactionsRejected.WithLabelValues("keystore_error").Inc()
				return fmt.Errorf("dispatch: binding key %s: %w", tx.KeyID, err)
			}
		}
	}
	if err := d.graph.AddParsed(tx); err != nil {
		transactionsRejected.WithLabelValues("insert_error").Inc()
		return err
	}
	transactionsAccepted.WithLabelValues(peerID).Inc()
	return nil
}

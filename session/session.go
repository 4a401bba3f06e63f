// Package session implements the peer session protocol (C6): an mTLS
// gRPC bidi stream with a peer-id/version handshake, a periodic outbound
// advertisement loop, and an inbound pump feeding the dispatcher's queue.
// Client and server sides are deliberately symmetric, the only design
// capable of gossip per spec §4.6.
package session

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/metadata"

	"github.com/nuts-foundation/nuts-go/dispatch"
	"github.com/nuts-foundation/nuts-go/transport"
)

// SupportedVersion is the only protocol version this node understands.
const SupportedVersion = "1"

// advertiseInterval is how often the outbound side re-advertises after its
// initial TransactionListQuery.
const advertiseInterval = 60 * time.Second

var (
	ErrMissingRemotePeerID      = errors.New("session: remote did not send a peerid")
	ErrUnsupportedProtocolVersion = errors.New("session: unsupported protocol version")
)

// stream is satisfied by both transport.Network_ConnectClient and
// transport.Network_ConnectServer.
type stream interface {
	Send(*transport.NetworkMessage) error
	Recv() (*transport.NetworkMessage, error)
}

// Config carries the per-node settings a session needs: its own identity,
// the mTLS material, and the strict-mode policy toggle (spec §4.6's
// "Strict mode").
type Config struct {
	LocalPeerID string
	Strict      bool
	TLS         *tls.Config

	// OnClose, if set, is called once the outbound session's stream
	// terminates, so callers can track session lifetime (e.g. gauge
	// metrics) without polling.
	OnClose func()
}

// Session represents one established, symmetric peer connection.
type Session struct {
	RemotePeerID string
	PeerAddr     string
}

// ConnectToPeer dials addr, performs the handshake, and runs the session
// until ctx is cancelled or the stream terminates. It implements the
// outbound client half of spec §4.6.
func ConnectToPeer(ctx context.Context, addr string, cfg Config, d *dispatch.Dispatcher) (*Session, error) {
	creds := credentials.NewTLS(cfg.TLS)
	conn, err := grpc.DialContext(ctx, addr,
		grpc.WithTransportCredentials(creds),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(transport.CodecName)),
	)
	if err != nil {
		return nil, fmt.Errorf("session: dial %s: %w", addr, err)
	}

	client := transport.NewNetworkClient(conn)
	outCtx := metadata.AppendToOutgoingContext(ctx, "peerid", cfg.LocalPeerID, "version", SupportedVersion)

	clientStream, err := client.Connect(outCtx)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("session: connect rpc: %w", err)
	}

	header, err := clientStream.Header()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("session: read response header: %w", err)
	}
	remotePeerID, err := resolvePeerID(header, cfg.Strict)
	if err != nil {
		conn.Close()
		return nil, err
	}

	sess := &Session{RemotePeerID: remotePeerID, PeerAddr: addr}
	go runOutboundLoop(ctx, clientStream)
	go func() {
		runInboundPump(ctx, clientStream, remotePeerID, d)
		if cfg.OnClose != nil {
			cfg.OnClose()
		}
	}()

	return sess, nil
}

// resolvePeerID extracts the remote's peerid (required) and validates its
// version, applying spec §4.6's strict-mode default for a missing version.
func resolvePeerID(md metadata.MD, strict bool) (string, error) {
	peerIDs := md.Get("peerid")
	if len(peerIDs) == 0 {
		return "", ErrMissingRemotePeerID
	}

	versions := md.Get("version")
	version := ""
	if len(versions) > 0 {
		version = versions[0]
	}
	if version == "" {
		if strict {
			return "", ErrUnsupportedProtocolVersion
		}
		version = SupportedVersion
	}
	if version != SupportedVersion {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedProtocolVersion, version)
	}
	return peerIDs[0], nil
}

// runOutboundLoop emits the lazy sequence spec §4.6 step 3 describes: an
// immediate TransactionListQuery, then periodic empty TransactionList
// advertisements every 60 seconds.
func runOutboundLoop(ctx context.Context, s stream) {
	if err := s.Send(&transport.NetworkMessage{
		TransactionListQuery: &transport.TransactionListQuery{BlockDate: 0},
	}); err != nil {
		log.WithError(err).Warn("session: failed to send initial transaction list query")
	}

	ticker := time.NewTicker(advertiseInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := s.Send(&transport.NetworkMessage{
				TransactionList: &transport.TransactionList{BlockDate: 0},
			})
			if err != nil {
				log.WithError(err).Warn("session: failed to send periodic advertisement")
			}
		}
	}
}

// runInboundPump reads frames off s and enqueues them on the dispatcher,
// logging (not terminating on) individual enqueue errors. A Recv error
// means the stream has terminated; it is logged and the pump returns.
// Frames carrying no recognized variant are dropped without enqueueing.
func runInboundPump(ctx context.Context, s stream, peerID string, d *dispatch.Dispatcher) {
	for {
		msg, err := s.Recv()
		if err != nil {
			log.WithFields(log.Fields{"peer_id": peerID, "error": err}).Info("session: stream terminated")
			return
		}

		inbound := dispatch.InboundMessage{PeerID: peerID}
		switch {
		case msg.TransactionList != nil:
			raws := make([][]byte, 0, len(msg.TransactionList.Transactions))
			for _, tx := range msg.TransactionList.Transactions {
				raws = append(raws, tx.Data)
			}
			inbound.TransactionList = &dispatch.TransactionList{
				BlockDate:    msg.TransactionList.BlockDate,
				Transactions: raws,
			}
		case msg.TransactionListQuery != nil:
			inbound.TransactionListQuery = &dispatch.TransactionListQuery{
				BlockDate: msg.TransactionListQuery.BlockDate,
			}
		default:
			continue
		}

		if err := d.Enqueue(ctx, inbound); err != nil {
			log.WithFields(log.Fields{"peer_id": peerID, "error": err}).Warn("session: failed to enqueue inbound message")
		}
	}
}

// Package node is the server orchestrator (C7): it owns the key store,
// graph, dispatcher and peer sessions, and drives their lifecycle. Its
// shape follows main.go's bind-address/listen/signal-shutdown structure,
// retargeted from an oauth2.Handler to a gossip node.
package node

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"

	"github.com/nuts-foundation/nuts-go/dispatch"
	"github.com/nuts-foundation/nuts-go/graphstore"
	"github.com/nuts-foundation/nuts-go/keystore"
	"github.com/nuts-foundation/nuts-go/session"
	"github.com/nuts-foundation/nuts-go/store"
	"github.com/nuts-foundation/nuts-go/transport"
)

// Server owns every long-lived component of a running node.
type Server struct {
	PeerID     string
	Strict     bool
	TLSConfig  *tls.Config
	KeyStore   *keystore.KeyStore
	Graph      *graphstore.Graph
	Dispatcher *dispatch.Dispatcher

	store store.Store
}

// New opens the key store and graph against storage and generates a
// fresh ephemeral peer id, the way Server::new does in the reference
// implementation.
func New(storage store.Store, tlsConfig *tls.Config, strict bool) (*Server, error) {
	ks, err := keystore.Open(storage)
	if err != nil {
		return nil, fmt.Errorf("node: open key store: %w", err)
	}
	g, err := graphstore.Open(storage)
	if err != nil {
		return nil, fmt.Errorf("node: open graph: %w", err)
	}

	return &Server{
		PeerID:     uuid.New().String(),
		Strict:     strict,
		TLSConfig:  tlsConfig,
		KeyStore:   ks,
		Graph:      g,
		Dispatcher: dispatch.New(ks, g),
		store:      storage,
	}, nil
}

// ConnectToPeer initiates one outbound session to addr (spec §4.6/§4.7).
func (s *Server) ConnectToPeer(ctx context.Context, addr string) (*session.Session, error) {
	cfg := session.Config{
		LocalPeerID: s.PeerID,
		Strict:      s.Strict,
		TLS:         s.TLSConfig,
		OnClose: func() {
			activePeerSessions.WithLabelValues("outbound").Dec()
		},
	}
	sess, err := session.ConnectToPeer(ctx, addr, cfg, s.Dispatcher)
	if err != nil {
		return nil, fmt.Errorf("node: connect to peer %s: %w", addr, err)
	}
	activePeerSessions.WithLabelValues("outbound").Inc()
	log.WithFields(log.Fields{"addr": addr, "remote_peer_id": sess.RemotePeerID}).Info("connected to peer")
	return sess, nil
}

// Run starts the gRPC listener, the debug HTTP surface, and the
// dispatcher loop, blocking until ctx is cancelled.
func (s *Server) Run(ctx context.Context, bindAddr, debugBindAddr string) error {
	lis, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return fmt.Errorf("node: listen on %s: %w", bindAddr, err)
	}

	grpcServer := grpc.NewServer(grpc.Creds(credentials.NewTLS(s.TLSConfig)))
	transport.RegisterNetworkServer(grpcServer, &session.Server{
		LocalPeerID: s.PeerID,
		Strict:      s.Strict,
		Dispatcher:  s.Dispatcher,
		OnSession: func(remotePeerID string) {
			activePeerSessions.WithLabelValues("inbound").Inc()
			log.WithField("remote_peer_id", remotePeerID).Info("accepted peer session")
		},
		OnClose: func(remotePeerID string) {
			activePeerSessions.WithLabelValues("inbound").Dec()
			log.WithField("remote_peer_id", remotePeerID).Info("peer session closed")
		},
	})

	debugServer := &http.Server{Addr: debugBindAddr, Handler: newDebugHandler(s)}

	errCh := make(chan error, 3)
	go func() {
		log.Printf("Listening for peers on %s.\n", bindAddr)
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("node: grpc serve: %w", err)
		}
	}()
	go func() {
		log.Printf("Serving debug endpoints on %s.\n", debugBindAddr)
		if err := debugServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("node: debug http serve: %w", err)
		}
	}()
	go func() {
		errCh <- s.Dispatcher.Run(ctx)
	}()

	select {
	case <-ctx.Done():
		log.Infoln("Signal received, stopping service.")
		grpcServer.GracefulStop()
		debugServer.Shutdown(context.Background())
		return nil
	case err := <-errCh:
		grpcServer.GracefulStop()
		debugServer.Shutdown(context.Background())
		return err
	}
}

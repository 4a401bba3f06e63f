// Command nuts-go runs a gossip node synchronizing a verifiable
// transaction graph with mutually-authenticated peers.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/nuts-foundation/nuts-go/graphstore"
	"github.com/nuts-foundation/nuts-go/hashid"
	"github.com/nuts-foundation/nuts-go/keystore"
	"github.com/nuts-foundation/nuts-go/node"
	"github.com/nuts-foundation/nuts-go/store"
)

func main() {
	configPath := flag.String("config", "", "Path to a configuration file.")
	flag.Parse()

	conf, err := loadConfig(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	if conf.LogJSON {
		log.SetFormatter(&log.JSONFormatter{})
	}

	args := flag.Args()
	if len(args) == 0 {
		log.Fatal("expected a subcommand: run, pki, graph")
	}

	var cmdErr error
	switch args[0] {
	case "run":
		cmdErr = cmdRun(conf, args[1:])
	case "pki":
		cmdErr = cmdPki(conf, args[1:])
	case "graph":
		cmdErr = cmdGraph(conf, args[1:])
	default:
		cmdErr = fmt.Errorf("unknown subcommand %q", args[0])
	}

	if cmdErr != nil {
		log.Warnf("Error: %v\n", cmdErr)
		os.Exit(1)
	}
}

// openStorage opens the configured backing store: Redis when enabled in
// config, otherwise the default embedded bbolt database under data-dir.
func openStorage(conf *config) (store.Store, error) {
	if conf.Redis.Enabled {
		return store.NewRedisStore(conf.Redis.Address, conf.Redis.Password), nil
	}
	if err := os.MkdirAll(conf.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", conf.DataDir, err)
	}
	return store.OpenBolt(conf.DataDir + "/nuts.db")
}

// cmdRun starts the gossip node, bootstrapping outbound sessions to the
// given peer addresses, and blocks until a termination signal arrives.
func cmdRun(conf *config, bootstrapAddrs []string) error {
	storage, err := openStorage(conf)
	if err != nil {
		return err
	}
	defer storage.Close()

	tlsConfig, err := node.LoadTLSConfig(conf.TLS.CertFile, conf.TLS.KeyFile, conf.TLS.TrustRootFile)
	if err != nil {
		return err
	}

	server, err := node.New(storage, tlsConfig, conf.StrictMode)
	if err != nil {
		return err
	}
	log.Printf("Node peer id: %s\n", server.PeerID)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		signalChan := make(chan os.Signal, 1)
		signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)
		<-signalChan
		cancel()
	}()

	for _, addr := range bootstrapAddrs {
		if _, err := server.ConnectToPeer(ctx, addr); err != nil {
			log.Warnf("Failed to connect to bootstrap peer %s: %v\n", addr, err)
		}
	}

	bindAddr := fmt.Sprintf("%s:%d", conf.BindHost, conf.BindPort)
	debugBindAddr := fmt.Sprintf("%s:%d", conf.DebugBindHost, conf.DebugBindPort)
	return server.Run(ctx, bindAddr, debugBindAddr)
}

// cmdPki implements the "pki list-keys" subcommand.
func cmdPki(conf *config, args []string) error {
	if len(args) == 0 || args[0] != "list-keys" {
		return fmt.Errorf("usage: pki list-keys")
	}
	storage, err := openStorage(conf)
	if err != nil {
		return err
	}
	defer storage.Close()

	ks, err := keystore.Open(storage)
	if err != nil {
		return err
	}
	ids, err := ks.List()
	if err != nil {
		return err
	}
	for _, id := range ids {
		fmt.Println(id)
	}
	return nil
}

// cmdGraph implements the "graph list" and "graph get <hex_id>"
// subcommands.
func cmdGraph(conf *config, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: graph list | graph get <hex_id>")
	}
	storage, err := openStorage(conf)
	if err != nil {
		return err
	}
	defer storage.Close()

	g, err := graphstore.Open(storage)
	if err != nil {
		return err
	}

	switch args[0] {
	case "list":
		txs, err := g.ToVec()
		if err != nil {
			return err
		}
		for _, tx := range txs {
			fmt.Printf("%s prevs=%d payload_type=%s\n", tx.ID, len(tx.Prevs), tx.PayloadType)
		}
		return nil
	case "get":
		if len(args) != 2 {
			return fmt.Errorf("usage: graph get <hex_id>")
		}
		id, err := hashid.FromHex(args[1])
		if err != nil {
			return err
		}
		tx, ok := g.Find(id)
		if !ok {
			return fmt.Errorf("transaction %s not found", args[1])
		}
		fmt.Printf("id=%s version=%d sign_algo=%s key_id=%s payload=%s\n",
			tx.ID, tx.Version, tx.SignAlgo, tx.KeyID, tx.Payload)
		return nil
	default:
		return fmt.Errorf("unknown graph subcommand %q", args[0])
	}
}

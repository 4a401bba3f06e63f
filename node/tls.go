package node

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io/ioutil"
)

// LoadTLSConfig builds the mutual-TLS configuration both peer sides use:
// a local identity (certificate + private key) and a trust root bundle
// both sides validate each other's chain against, the way config.go loads
// file paths out of the TOML config into runtime values.
func LoadTLSConfig(certPath, keyPath, trustRootPath string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, fmt.Errorf("node: load identity cert/key: %w", err)
	}

	trustRootPEM, err := ioutil.ReadFile(trustRootPath)
	if err != nil {
		return nil, fmt.Errorf("node: read trust root: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(trustRootPEM) {
		return nil, fmt.Errorf("node: no certificates found in trust root %s", trustRootPath)
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		RootCAs:      pool,
		ClientCAs:    pool,
		ClientAuth:   tls.RequireAndVerifyClientCert,
		MinVersion:   tls.VersionTLS12,
	}, nil
}

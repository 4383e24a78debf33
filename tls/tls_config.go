package tls

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// GetHTTPServerTLSConfig builds the server TLS config. When caCertFile is
// set, clients must present a certificate signed by it.
func GetHTTPServerTLSConfig(caCertFile string) (*tls.Config, error) {
	cfg := &tls.Config{
		MinVersion: tls.VersionTLS12, // TLS versions below 1.2 are considered insecure - see https://www.rfc-editor.org/rfc/rfc7525.txt for details
	}

	if caCertFile == "" {
		return cfg, nil
	}

	caCert, err := os.ReadFile(caCertFile)
	if err != nil {
		return nil, fmt.Errorf("reading CA cert: %w", err)
	}

	caCertPool := x509.NewCertPool()
	if !caCertPool.AppendCertsFromPEM(caCert) {
		return nil, fmt.Errorf("no certificates found in %s", caCertFile)
	}

	cfg.ClientAuth = tls.RequireAndVerifyClientCert
	cfg.ClientCAs = caCertPool
	return cfg, nil
}

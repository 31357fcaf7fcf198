package devserver

import (
	"crypto/tls"
	"fmt"

	"github.com/wolfeidau/devconf/internal/buildconfig"
)

// TLSConfig parses the certificate material. This is the first point where the PEM
// bytes are checked, it runs before the listener opens.
func TLSConfig(material buildconfig.CertificateMaterial) (*tls.Config, error) {
	cert, err := tls.X509KeyPair(material.Cert(), material.Key())
	if err != nil {
		return nil, fmt.Errorf("failed to parse server certificate: %w", err)
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

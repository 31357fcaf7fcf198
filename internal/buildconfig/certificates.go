package buildconfig

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
)

const (
	resourceKey  = "tls key"
	resourceCert = "tls certificate"
)

// CertificateMaterial holds PEM encoded key and certificate bytes exactly as read from disk.
// The bytes are not parsed, structural checks are left to the TLS stack.
type CertificateMaterial struct {
	key  []byte
	cert []byte
}

// NewCertificateMaterial copies the given key and certificate bytes.
func NewCertificateMaterial(key, cert []byte) CertificateMaterial {
	return CertificateMaterial{
		key:  bytes.Clone(key),
		cert: bytes.Clone(cert),
	}
}

// Key returns a copy of the private key bytes
func (m CertificateMaterial) Key() []byte {
	return bytes.Clone(m.key)
}

// Cert returns a copy of the certificate bytes
func (m CertificateMaterial) Cert() []byte {
	return bytes.Clone(m.cert)
}

// ReadFileFunc reads a named file, it has the same contract as os.ReadFile.
type ReadFileFunc func(name string) ([]byte, error)

// Loader reads certificate material from the filesystem.
type Loader struct {
	readFile ReadFileFunc
}

// NewLoader returns a Loader backed by os.ReadFile, or by readFile when it is non nil.
func NewLoader(readFile ReadFileFunc) *Loader {
	if readFile == nil {
		readFile = os.ReadFile
	}
	return &Loader{readFile: readFile}
}

// Load reads the key then the certificate, one read per path with no retry.
func (l *Loader) Load(keyPath, certPath string) (CertificateMaterial, error) {
	key, err := l.ReadResource(resourceKey, keyPath)
	if err != nil {
		return CertificateMaterial{}, err
	}

	cert, err := l.ReadResource(resourceCert, certPath)
	if err != nil {
		return CertificateMaterial{}, err
	}

	return CertificateMaterial{key: key, cert: cert}, nil
}

// Read reads a file, classifying failures as ErrResourceNotFound or
// ErrResourceUnreadable. A zero-byte file is returned as is.
func (l *Loader) Read(resource, path string) ([]byte, error) {
	data, err := l.readFile(path)
	if err != nil {
		kind := ErrResourceUnreadable
		if errors.Is(err, fs.ErrNotExist) {
			kind = ErrResourceNotFound
		}
		return nil, &ResourceError{Resource: resource, Path: path, Kind: kind, Err: err}
	}
	return data, nil
}

// ReadResource is Read for files that must hold at least one byte.
func (l *Loader) ReadResource(resource, path string) ([]byte, error) {
	data, err := l.Read(resource, path)
	if err != nil {
		return nil, err
	}

	if len(data) == 0 {
		return nil, &ResourceError{Resource: resource, Path: path, Kind: ErrResourceUnreadable, Err: errEmptyResource}
	}

	return data, nil
}

// LoadCertificateMaterial reads the key and certificate files from disk.
func LoadCertificateMaterial(keyPath, certPath string) (CertificateMaterial, error) {
	return NewLoader(nil).Load(keyPath, certPath)
}

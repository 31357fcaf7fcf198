package buildconfig

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0600))
	return path
}

func TestLoadCertificateMaterial_roundTrip(t *testing.T) {
	dir := t.TempDir()
	keyPath := writeFile(t, dir, "key.pem", "KEYDATA")
	certPath := writeFile(t, dir, "cert.pem", "CERTDATA")

	material, err := LoadCertificateMaterial(keyPath, certPath)
	require.NoError(t, err)
	require.Equal(t, []byte("KEYDATA"), material.Key())
	require.Equal(t, []byte("CERTDATA"), material.Cert())
}

func TestLoadCertificateMaterial_binaryBytesPreserved(t *testing.T) {
	dir := t.TempDir()
	raw := string([]byte{0x00, 0xff, '\r', '\n', 0x7f})
	keyPath := writeFile(t, dir, "key.pem", raw)
	certPath := writeFile(t, dir, "cert.pem", raw+raw)

	material, err := LoadCertificateMaterial(keyPath, certPath)
	require.NoError(t, err)
	require.Equal(t, []byte(raw), material.Key())
	require.Equal(t, []byte(raw+raw), material.Cert())
}

func TestLoadCertificateMaterial_notFound(t *testing.T) {
	dir := t.TempDir()
	existing := writeFile(t, dir, "present.pem", "DATA")
	missing := filepath.Join(dir, "missing.pem")

	tests := []struct {
		name     string
		keyPath  string
		certPath string
		resource string
		path     string
	}{
		{
			name:     "missing key",
			keyPath:  missing,
			certPath: existing,
			resource: "tls key",
			path:     missing,
		},
		{
			name:     "missing cert",
			keyPath:  existing,
			certPath: missing,
			resource: "tls certificate",
			path:     missing,
		},
		{
			name:     "both missing reports key first",
			keyPath:  missing,
			certPath: filepath.Join(dir, "also-missing.pem"),
			resource: "tls key",
			path:     missing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			material, err := LoadCertificateMaterial(tt.keyPath, tt.certPath)
			require.ErrorIs(t, err, ErrResourceNotFound)
			require.NotErrorIs(t, err, ErrResourceUnreadable)
			require.ErrorIs(t, err, fs.ErrNotExist)
			require.Empty(t, material.Key())
			require.Empty(t, material.Cert())

			var resErr *ResourceError
			require.True(t, errors.As(err, &resErr))
			require.Equal(t, tt.resource, resErr.Resource)
			require.Equal(t, tt.path, resErr.Path)
			require.Contains(t, err.Error(), tt.path)
		})
	}
}

func TestLoadCertificateMaterial_unreadable(t *testing.T) {
	t.Run("simulated permission denial", func(t *testing.T) {
		loader := NewLoader(func(name string) ([]byte, error) {
			if name == "cert.pem" {
				return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrPermission}
			}
			return []byte("KEYDATA"), nil
		})

		_, err := loader.Load("key.pem", "cert.pem")
		require.ErrorIs(t, err, ErrResourceUnreadable)
		require.NotErrorIs(t, err, ErrResourceNotFound)
		require.ErrorIs(t, err, fs.ErrPermission)
		require.Contains(t, err.Error(), "cert.pem")
	})

	t.Run("directory instead of file", func(t *testing.T) {
		dir := t.TempDir()
		certPath := writeFile(t, dir, "cert.pem", "CERTDATA")

		_, err := LoadCertificateMaterial(dir, certPath)
		require.ErrorIs(t, err, ErrResourceUnreadable)
	})

	t.Run("empty file", func(t *testing.T) {
		dir := t.TempDir()
		keyPath := writeFile(t, dir, "key.pem", "KEYDATA")
		certPath := writeFile(t, dir, "cert.pem", "")

		_, err := LoadCertificateMaterial(keyPath, certPath)
		require.ErrorIs(t, err, ErrResourceUnreadable)
		require.ErrorIs(t, err, errEmptyResource)
	})

	t.Run("file mode denies read", func(t *testing.T) {
		if os.Geteuid() == 0 {
			t.Skip("root ignores file permissions")
		}
		dir := t.TempDir()
		keyPath := writeFile(t, dir, "key.pem", "KEYDATA")
		certPath := writeFile(t, dir, "cert.pem", "CERTDATA")
		require.NoError(t, os.Chmod(keyPath, 0))

		_, err := LoadCertificateMaterial(keyPath, certPath)
		require.ErrorIs(t, err, ErrResourceUnreadable)
	})
}

func TestLoader_readsEachPathOnce(t *testing.T) {
	reads := map[string]int{}
	loader := NewLoader(func(name string) ([]byte, error) {
		reads[name]++
		return []byte(name), nil
	})

	_, err := loader.Load("key.pem", "cert.pem")
	require.NoError(t, err)
	require.Equal(t, map[string]int{"key.pem": 1, "cert.pem": 1}, reads)
}

func TestLoader_noRetryOnFailure(t *testing.T) {
	calls := 0
	loader := NewLoader(func(name string) ([]byte, error) {
		calls++
		return nil, fs.ErrNotExist
	})

	_, err := loader.Load("key.pem", "cert.pem")
	require.ErrorIs(t, err, ErrResourceNotFound)
	require.Equal(t, 1, calls)
}

func TestCertificateMaterial_accessorsReturnCopies(t *testing.T) {
	key := []byte("KEYDATA")
	material := NewCertificateMaterial(key, []byte("CERTDATA"))

	key[0] = 'X'
	require.Equal(t, []byte("KEYDATA"), material.Key())

	got := material.Cert()
	got[0] = 'X'
	require.Equal(t, []byte("CERTDATA"), material.Cert())
}

func TestLoader_Read_acceptsEmptyFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "empty.yaml", "")

	loader := NewLoader(nil)

	data, err := loader.Read("config file", path)
	require.NoError(t, err)
	require.Empty(t, data)

	_, err = loader.ReadResource("config file", path)
	require.ErrorIs(t, err, ErrResourceUnreadable)
}

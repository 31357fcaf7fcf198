package devserver

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"io"
	"math/big"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/devconf/internal/assets"
	"github.com/wolfeidau/devconf/internal/buildconfig"
)

func selfSignedPEM(t *testing.T) (key, cert []byte) {
	t.Helper()

	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "localhost"},
		DNSNames:     []string{"localhost"},
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &priv.PublicKey, priv)
	require.NoError(t, err)

	keyDER, err := x509.MarshalECPrivateKey(priv)
	require.NoError(t, err)

	return pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}),
		pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
}

func writeSource(t *testing.T, dir, name, contents string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0600))
}

func builtPipeline(t *testing.T, source string) *assets.Pipeline {
	t.Helper()

	root := t.TempDir()
	writeSource(t, root, "src/main.js", source)

	p, err := assets.New(assets.Config{
		Root:           root,
		EntryPointGlob: "src/*.js",
		OutputDir:      "dist",
		MetafilePath:   filepath.Join("dist", "meta.json"),
	}, nil, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, p.Start())
	t.Cleanup(p.Close)
	require.NoError(t, p.Build(context.Background()))

	return p
}

func TestTLSConfig(t *testing.T) {
	key, cert := selfSignedPEM(t)

	t.Run("valid material", func(t *testing.T) {
		cfg, err := TLSConfig(buildconfig.NewCertificateMaterial(key, cert))
		require.NoError(t, err)
		require.Len(t, cfg.Certificates, 1)
		require.Equal(t, uint16(tls.VersionTLS12), cfg.MinVersion)
	})

	t.Run("material that is not PEM", func(t *testing.T) {
		_, err := TLSConfig(buildconfig.NewCertificateMaterial([]byte("KEYDATA"), []byte("CERTDATA")))
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to parse server certificate")
	})

	t.Run("key and cert swapped", func(t *testing.T) {
		_, err := TLSConfig(buildconfig.NewCertificateMaterial(cert, key))
		require.Error(t, err)
	})
}

func TestServer_Handler(t *testing.T) {
	p := builtPipeline(t, `console.log("`+strings.Repeat("devconf ", 400)+`");`)
	cfg := buildconfig.NewBuildConfig([]api.Plugin{}, buildconfig.NewServerOptions("127.0.0.1:0", nil))

	srv := New(cfg, p, Options{CORSOrigins: []string{"https://app.localhost"}}, zerolog.Nop())
	handler, err := srv.Handler()
	require.NoError(t, err)

	ts := httptest.NewServer(handler)
	defer ts.Close()

	t.Run("serves built assets", func(t *testing.T) {
		res, err := http.Get(ts.URL + "/dist/main.js")
		require.NoError(t, err)
		defer res.Body.Close()

		body, err := io.ReadAll(res.Body)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, res.StatusCode)
		require.Equal(t, "no-store", res.Header.Get("Cache-Control"))
		require.Contains(t, string(body), "devconf devconf")
	})

	t.Run("compresses when asked", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, ts.URL+"/dist/main.js", nil)
		require.NoError(t, err)
		req.Header.Set("Accept-Encoding", "gzip")

		res, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer res.Body.Close()

		require.Equal(t, "gzip", res.Header.Get("Content-Encoding"))
	})

	t.Run("allows configured origin", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, ts.URL+"/dist/main.js", nil)
		require.NoError(t, err)
		req.Header.Set("Origin", "https://app.localhost")

		res, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer res.Body.Close()

		require.Equal(t, "https://app.localhost", res.Header.Get("Access-Control-Allow-Origin"))
	})

	t.Run("ignores other origins", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, ts.URL+"/dist/main.js", nil)
		require.NoError(t, err)
		req.Header.Set("Origin", "https://evil.example")

		res, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer res.Body.Close()

		require.Empty(t, res.Header.Get("Access-Control-Allow-Origin"))
	})

	t.Run("missing asset", func(t *testing.T) {
		res, err := http.Get(ts.URL + "/dist/missing.js")
		require.NoError(t, err)
		defer res.Body.Close()
		require.Equal(t, http.StatusNotFound, res.StatusCode)
	})
}

func TestServer_Serve_https(t *testing.T) {
	key, cert := selfSignedPEM(t)
	material := buildconfig.NewCertificateMaterial(key, cert)

	p := builtPipeline(t, `console.log("served over tls");`)
	cfg := buildconfig.NewBuildConfig([]api.Plugin{}, buildconfig.NewServerOptions("127.0.0.1:0", &material))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- New(cfg, p, Options{}, zerolog.Nop()).Serve(ctx, ln)
	}()

	client := &http.Client{
		Timeout: 5 * time.Second,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
		},
	}

	res, err := client.Get("https://" + ln.Addr().String() + "/dist/main.js")
	require.NoError(t, err)
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	res.Body.Close()

	require.Equal(t, http.StatusOK, res.StatusCode)
	require.NotNil(t, res.TLS)
	require.Contains(t, string(body), "served over tls")

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServer_Serve_invalidMaterialFailsBeforeServing(t *testing.T) {
	material := buildconfig.NewCertificateMaterial([]byte("KEYDATA"), []byte("CERTDATA"))

	p := builtPipeline(t, `console.log("never served");`)
	cfg := buildconfig.NewBuildConfig([]api.Plugin{}, buildconfig.NewServerOptions("127.0.0.1:0", &material))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()

	err = New(cfg, p, Options{}, zerolog.Nop()).Serve(context.Background(), ln)
	require.Error(t, err)

	_, dialErr := net.DialTimeout("tcp", addr, time.Second)
	require.Error(t, dialErr)
}

// Package devserver serves the bundle described by an assembled BuildConfig.
package devserver

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/devconf/internal/assets"
	"github.com/wolfeidau/devconf/internal/buildconfig"
	httpmiddleware "github.com/wolfeidau/devconf/internal/http"
)

const shutdownTimeout = 5 * time.Second

// Options holds host settings that are not part of the assembled config
type Options struct {
	CORSOrigins []string
	// Title and EntryPoint feed the index template
	Title      string
	EntryPoint string
}

// Server hosts the bundle over HTTP or HTTPS.
type Server struct {
	config   *buildconfig.BuildConfig[api.Plugin]
	pipeline *assets.Pipeline
	opts     Options
	log      zerolog.Logger
}

func New(config *buildconfig.BuildConfig[api.Plugin], pipeline *assets.Pipeline, opts Options, log zerolog.Logger) *Server {
	return &Server{
		config:   config,
		pipeline: pipeline,
		opts:     opts,
		log:      log,
	}
}

// Handler returns the full middleware chain around the asset routes.
func (s *Server) Handler() (http.Handler, error) {
	mux := http.NewServeMux()

	assetPrefix := s.pipeline.URLPrefix()
	files := http.StripPrefix(assetPrefix, http.FileServer(http.Dir(s.pipeline.OutputDir())))
	mux.Handle(assetPrefix, noCache(files))

	if s.pipeline.HasTemplate() {
		index, err := s.pipeline.Handler(s.opts.Title, s.opts.EntryPoint)
		if err != nil {
			return nil, err
		}
		mux.Handle("/", noCache(index))
	} else {
		mux.Handle("/", noCache(http.FileServer(http.Dir(s.pipeline.OutputDir()))))
	}

	var handler http.Handler = gzhttp.GzipHandler(mux)

	if len(s.opts.CORSOrigins) > 0 {
		handler = cors.New(cors.Options{
			AllowedOrigins:   s.opts.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodHead, http.MethodOptions},
			AllowCredentials: true,
		}).Handler(handler)
	}

	return httpmiddleware.RequestLogger(s.log)(handler), nil
}

// Run listens on the configured address until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	tlsConfig, err := s.tlsConfig()
	if err != nil {
		return err
	}

	addr := s.config.Server().Listen()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	return s.serve(ctx, ln, tlsConfig)
}

// Serve is Run on an existing listener
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	tlsConfig, err := s.tlsConfig()
	if err != nil {
		_ = ln.Close()
		return err
	}
	return s.serve(ctx, ln, tlsConfig)
}

func (s *Server) tlsConfig() (*tls.Config, error) {
	material, ok := s.config.Server().TLS()
	if !ok {
		return nil, nil
	}
	return TLSConfig(material)
}

func (s *Server) serve(ctx context.Context, ln net.Listener, tlsConfig *tls.Config) error {
	handler, err := s.Handler()
	if err != nil {
		_ = ln.Close()
		return err
	}

	srv := configureHTTPServer(handler)

	scheme := "http"
	errCh := make(chan error, 1)
	if tlsConfig != nil {
		scheme = "https"
		srv.TLSConfig = tlsConfig
		go func() {
			// certificates come from TLSConfig, no file paths are read here
			errCh <- srv.ServeTLS(ln, "", "")
		}()
	} else {
		go func() {
			errCh <- srv.Serve(ln)
		}()
	}

	s.log.Info().
		Str("url", fmt.Sprintf("%s://%s/", scheme, ln.Addr())).
		Bool("tls", tlsConfig != nil).
		Int("plugins", len(s.config.Plugins())).
		Msg("Dev server listening")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.log.Info().Msg("Shutting down dev server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown dev server: %w", err)
	}
	return nil
}

func configureHTTPServer(handler http.Handler) *http.Server {
	return &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       time.Minute,
		WriteTimeout:      time.Minute,
		IdleTimeout:       5 * time.Minute,
		MaxHeaderBytes:    8 * 1024, // 8KiB
	}
}

// noCache stops the browser holding on to assets between rebuilds
func noCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// Package buildconfig assembles the immutable configuration handed to the dev server host.
//
// Assembly runs once at startup: certificate material is loaded when TLS is requested,
// plugins are registered in order, and the result is frozen in a BuildConfig. Plugin
// descriptors are a type parameter and are never inspected here.
package buildconfig

import (
	"context"
	"slices"
	"time"

	"github.com/wolfeidau/devconf/internal/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

const tracerName = "github.com/wolfeidau/devconf/internal/buildconfig"

// ServerSettings is the declarative server section before any file has been read.
type ServerSettings struct {
	Listen   string
	TLS      bool
	KeyPath  string
	CertPath string
}

// ServerOptions is the resolved server section, TLS is enabled when material is present.
type ServerOptions struct {
	listen string
	tls    *CertificateMaterial
}

// NewServerOptions returns options listening on addr. Passing nil material disables TLS.
func NewServerOptions(listen string, material *CertificateMaterial) ServerOptions {
	opts := ServerOptions{listen: listen}
	if material != nil {
		m := NewCertificateMaterial(material.key, material.cert)
		opts.tls = &m
	}
	return opts
}

func (o ServerOptions) Listen() string {
	return o.listen
}

func (o ServerOptions) TLSEnabled() bool {
	return o.tls != nil
}

// TLS returns the certificate material and whether TLS is enabled.
func (o ServerOptions) TLS() (CertificateMaterial, bool) {
	if o.tls == nil {
		return CertificateMaterial{}, false
	}
	return NewCertificateMaterial(o.tls.key, o.tls.cert), true
}

// BuildConfig is the frozen result of assembly.
type BuildConfig[P any] struct {
	plugins []P
	server  ServerOptions
}

// Plugins returns a copy of the registered plugins in registration order
func (c *BuildConfig[P]) Plugins() []P {
	return slices.Clone(c.plugins)
}

// Server returns the resolved server options
func (c *BuildConfig[P]) Server() ServerOptions {
	return c.server
}

// NewBuildConfig composes already validated inputs. It performs no I/O.
func NewBuildConfig[P any](plugins []P, server ServerOptions) *BuildConfig[P] {
	return &BuildConfig[P]{
		plugins: RegisterPlugins(plugins),
		server:  NewServerOptions(server.listen, server.tls),
	}
}

type options struct {
	loader *Loader
}

// Option customises Assemble.
type Option func(*options)

// WithReadFile replaces the function used to read certificate files.
func WithReadFile(fn ReadFileFunc) Option {
	return func(o *options) {
		o.loader = NewLoader(fn)
	}
}

// Assemble loads any requested certificate material, registers the plugins and returns
// the frozen config. A load failure is returned as is and no config is built; TLS is
// never silently disabled.
func Assemble[P any](ctx context.Context, plugins []P, settings ServerSettings, opts ...Option) (*BuildConfig[P], error) {
	o := &options{loader: NewLoader(nil)}
	for _, opt := range opts {
		opt(o)
	}

	_, span := otel.Tracer(tracerName).Start(ctx, "buildconfig.Assemble")
	defer span.End()

	span.SetAttributes(
		attribute.Int("plugins.count", len(plugins)),
		attribute.Bool("server.tls", settings.TLS),
	)

	started := time.Now()
	m := telemetry.GetMetrics()
	tlsAttr := metric.WithAttributes(attribute.Bool("tls", settings.TLS))

	var material *CertificateMaterial
	if settings.TLS {
		loaded, err := o.loader.Load(settings.KeyPath, settings.CertPath)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "certificate load failed")
			m.AssembleErrorsTotal.Add(ctx, 1, tlsAttr)
			return nil, err
		}
		material = &loaded
	}

	cfg := &BuildConfig[P]{
		plugins: RegisterPlugins(plugins),
		server:  ServerOptions{listen: settings.Listen, tls: material},
	}

	m.AssembleTotal.Add(ctx, 1, tlsAttr)
	m.AssembleDuration.Record(ctx, float64(time.Since(started).Milliseconds()), tlsAttr)

	return cfg, nil
}

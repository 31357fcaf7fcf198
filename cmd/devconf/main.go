package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/wolfeidau/devconf/cmd/devconf/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Serve   commands.ServeCmd `cmd:"" default:"withargs" help:"Assemble the config and start the dev server"`
		Check   commands.CheckCmd `cmd:"" help:"Assemble the config and print a summary"`
		Debug   bool              `help:"Enable debug mode."`
		Version kong.VersionFlag
	}
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := kong.Parse(&cli,
		kong.Name("devconf"),
		kong.Description("Frontend dev server bootstrapper."),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version})
	cmd.FatalIfErrorf(err)
}

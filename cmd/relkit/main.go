package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/relkit/cmd/relkit/commands"
	ferrors "git.home.luguber.info/inful/relkit/internal/foundation/errors"
	"git.home.luguber.info/inful/relkit/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("relkit"),
		kong.Description("Release automation tasks: ant builds and GitHub release notes."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
		kong.Bind(&commands.Global{Out: os.Stdout}),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	err := parser.Run()
	stop()
	if err != nil {
		adapter := ferrors.NewCLIErrorAdapter(cli.Verbose, slog.Default())
		os.Exit(adapter.Handle(err))
	}
}

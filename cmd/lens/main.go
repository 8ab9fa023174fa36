package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
)

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("lens"),
		kong.Description("Browse, search, sample and read conversational datasets as chat transcripts."),
		kong.UsageOnError(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	app := NewApp(ctx, &cli.Globals, os.Stdout, newLogger(cli.LogLevel, os.Stderr))

	err := kctx.Run(app)
	app.Close()
	stop()
	kctx.FatalIfErrorf(err)
}

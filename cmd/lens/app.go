package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/tidwall/pretty"

	"github.com/MikeSquared-Agency/chatlens/internal/backend"
	"github.com/MikeSquared-Agency/chatlens/internal/explorer"
	"github.com/MikeSquared-Agency/chatlens/internal/multiwoz"
	"github.com/MikeSquared-Agency/chatlens/internal/provider"
	"github.com/MikeSquared-Agency/chatlens/internal/record"
)

// Globals are shared by every command and bound to the same environment
// variables as the service.
type Globals struct {
	LogLevel      string        `help:"Log level (debug, info, warn, error)." env:"LOG_LEVEL" default:"warn"`
	Backend       string        `help:"Row backend for remote datasets." env:"ROW_BACKEND" default:"hub" enum:"hub,postgres"`
	HubURL        string        `help:"datasets-server base URL." env:"HUB_URL" default:"https://datasets-server.huggingface.co"`
	HubTimeout    time.Duration `help:"datasets-server request timeout." env:"HUB_TIMEOUT" default:"30s"`
	DatabaseURL   string        `help:"Postgres DSN for the postgres backend and import." env:"DATABASE_URL"`
	RedisURL      string        `help:"Cache remote rows in Redis." env:"REDIS_URL"`
	CacheTTL      time.Duration `help:"Lifetime of cached rows; zero disables the memory cache." env:"CACHE_TTL" default:"0s"`
	Streaming     bool          `help:"Read remote datasets as a stream of their first rows." env:"LENS_STREAMING"`
	DefaultSource string        `help:"Source listed first by 'sources'." env:"LENS_DEFAULT_SOURCE" default:"jihyoung/MiSC"`
	DataDir       string        `help:"Directory scanned for local sources." env:"LENS_DATA_DIR" default:"./data/misc"`
	MultiWOZDir   string        `name:"multiwoz-dir" help:"MultiWOZ 2.2 data root." env:"MULTIWOZ_DIR" default:"./multiwoz/data/MultiWOZ_2.2"`
	NatsURL       string        `help:"NATS server for 'watch'." env:"NATS_URL"`
	NatsToken     string        `help:"NATS auth token." env:"NATS_TOKEN"`
}

// App carries what commands need. The row backend is opened on first use so
// commands that only read local files never dial out.
type App struct {
	ctx    context.Context
	g      *Globals
	out    io.Writer
	logger *slog.Logger

	rows      provider.RowSource
	closeRows func()
	lens      *explorer.Explorer
}

func NewApp(ctx context.Context, g *Globals, out io.Writer, logger *slog.Logger) *App {
	return &App{ctx: ctx, g: g, out: out, logger: logger}
}

func (a *App) Rows() (provider.RowSource, error) {
	if a.rows != nil {
		return a.rows, nil
	}
	rows, closeFn, err := backend.Open(a.ctx, backend.Settings{
		Kind:        a.g.Backend,
		HubURL:      a.g.HubURL,
		HubTimeout:  a.g.HubTimeout,
		DatabaseURL: a.g.DatabaseURL,
		RedisURL:    a.g.RedisURL,
		CacheTTL:    a.g.CacheTTL,
	}, a.logger)
	if err != nil {
		return nil, err
	}
	a.rows, a.closeRows = rows, closeFn
	return rows, nil
}

func (a *App) Explorer() (*explorer.Explorer, error) {
	if a.lens != nil {
		return a.lens, nil
	}
	rows, err := a.Rows()
	if err != nil {
		return nil, err
	}
	a.lens = explorer.New(
		explorer.WithRows(rows),
		explorer.WithStreaming(a.g.Streaming),
		explorer.WithDefaultSource(a.g.DefaultSource),
		explorer.WithDataDir(a.g.DataDir),
		explorer.WithLogger(a.logger),
	)
	return a.lens, nil
}

func (a *App) Corpus() *multiwoz.Corpus {
	return multiwoz.New(a.g.MultiWOZDir)
}

func (a *App) Close() {
	if a.closeRows != nil {
		a.closeRows()
	}
}

// printJSON writes v as indented JSON, keeping record field order.
func (a *App) printJSON(v any) error {
	s := record.JSON(v)
	if s == "" {
		return fmt.Errorf("encode output: unsupported value %T", v)
	}
	_, err := a.out.Write(pretty.Pretty([]byte(s)))
	return err
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}

func newLogger(level string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelWarn
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
}

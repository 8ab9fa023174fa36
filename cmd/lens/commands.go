package main

import (
	"fmt"
	"math/rand/v2"

	"github.com/MikeSquared-Agency/chatlens/internal/conversation"
	"github.com/MikeSquared-Agency/chatlens/internal/explorer"
	"github.com/MikeSquared-Agency/chatlens/internal/hermes"
	"github.com/MikeSquared-Agency/chatlens/internal/provider"
	"github.com/MikeSquared-Agency/chatlens/internal/slice"
	"github.com/MikeSquared-Agency/chatlens/internal/source"
	"github.com/MikeSquared-Agency/chatlens/internal/store"
)

type CLI struct {
	Globals

	Sources SourcesCmd `cmd:"" help:"List the default source and the local dataset files."`
	Configs ConfigsCmd `cmd:"" help:"List the configs of a remote dataset."`
	Fields  FieldsCmd  `cmd:"" help:"List the fields of the first record."`
	Search  SearchCmd  `cmd:"" help:"Print records matching a keyword."`
	Random  RandomCmd  `cmd:"" help:"Print one random record."`
	Chat    ChatCmd    `cmd:"" help:"Show one record as a chat transcript."`
	Import  ImportCmd  `cmd:"" help:"Load a local file into the Postgres row store."`
	Watch   WatchCmd   `cmd:"" help:"Print activity events published by the service."`
	Woz     WozCmd     `cmd:"" name:"woz" help:"Browse a MultiWOZ 2.2 checkout."`
}

// SourceArgs address one split of a source.
type SourceArgs struct {
	Source string `arg:"" help:"Dataset id (optionally hf://), or a local .jsonl/.json/.csv file."`
	Config string `short:"c" help:"Dataset config."`
	Split  string `short:"s" default:"train" help:"Split to read."`
}

func (s SourceArgs) request() explorer.Request {
	return explorer.Request{Source: s.Source, Config: s.Config, Split: s.Split}
}

type SourcesCmd struct{}

func (c *SourcesCmd) Run(app *App) error {
	lens, err := app.Explorer()
	if err != nil {
		return err
	}
	for _, s := range lens.Sources() {
		app.println(s)
	}
	return nil
}

type ConfigsCmd struct {
	Source string `arg:"" help:"Dataset id."`
}

func (c *ConfigsCmd) Run(app *App) error {
	lens, err := app.Explorer()
	if err != nil {
		return err
	}
	for _, cfg := range lens.Configs(app.ctx, c.Source) {
		app.println(cfg)
	}
	return nil
}

type FieldsCmd struct {
	Src SourceArgs `embed:""`
}

func (c *FieldsCmd) Run(app *App) error {
	lens, err := app.Explorer()
	if err != nil {
		return err
	}
	for _, f := range lens.Fields(app.ctx, c.Src.request()) {
		app.println(f)
	}
	return nil
}

type SearchCmd struct {
	Src     SourceArgs `embed:""`
	Keyword string     `short:"k" help:"Case-insensitive keyword."`
	Field   string     `short:"f" help:"Match the keyword against this field only."`
	Limit   int        `short:"n" default:"10" help:"Maximum records to print."`
}

func (c *SearchCmd) Run(app *App) error {
	if c.Limit < 1 {
		return fmt.Errorf("limit must be positive")
	}
	lens, err := app.Explorer()
	if err != nil {
		return err
	}
	recs, err := lens.Search(app.ctx, c.Src.request(), slice.Query{Keyword: c.Keyword, Field: c.Field, Limit: c.Limit})
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		app.println("No matches.")
		return nil
	}
	for i, rec := range recs {
		if i > 0 {
			app.println("---")
		}
		if err := app.printJSON(rec); err != nil {
			return err
		}
	}
	return nil
}

type RandomCmd struct {
	Src SourceArgs `embed:""`
}

func (c *RandomCmd) Run(app *App) error {
	lens, err := app.Explorer()
	if err != nil {
		return err
	}
	rec, err := lens.Random(app.ctx, c.Src.request())
	if err != nil {
		return err
	}
	return app.printJSON(rec)
}

type ChatCmd struct {
	Src  SourceArgs `embed:""`
	Item string     `short:"i" help:"Record index, or a value of its id / dialogue_id field."`
	JSON bool       `help:"Print turn pairs as JSON."`
}

func (c *ChatCmd) Run(app *App) error {
	lens, err := app.Explorer()
	if err != nil {
		return err
	}
	pairs, err := lens.Chat(app.ctx, c.Src.request(), c.Item)
	if err != nil {
		return err
	}
	return printPairs(app, pairs, c.JSON)
}

func printPairs(app *App, pairs []conversation.TurnPair, asJSON bool) error {
	if asJSON {
		return app.printJSON(pairs)
	}
	fmt.Fprint(app.out, conversation.FormatTranscript(pairs))
	return nil
}

type ImportCmd struct {
	File    string `arg:"" type:"existingfile" help:"Local .jsonl/.json/.csv file."`
	Dataset string `required:"" help:"Dataset id to store the rows under."`
	Config  string `short:"c" help:"Dataset config."`
	Split   string `short:"s" default:"train" help:"Split name."`
}

func (c *ImportCmd) Run(app *App) error {
	if app.g.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required for import")
	}
	p, err := provider.Open(app.ctx, source.Descriptor{Kind: source.LocalFile, Location: c.File}, provider.WithLogger(app.logger))
	if err != nil {
		return err
	}
	n, err := p.Length(app.ctx)
	if err != nil {
		return err
	}
	recs, err := p.Materialize(app.ctx, 0, n)
	if err != nil {
		return err
	}

	db, err := store.New(app.ctx, app.g.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Migrate(app.ctx); err != nil {
		return err
	}

	ds := provider.Dataset{ID: c.Dataset, Config: c.Config, Split: c.Split}
	if err := db.PutRows(app.ctx, ds, recs); err != nil {
		return err
	}
	app.println(fmt.Sprintf("imported %d rows into %s", len(recs), ds))
	return nil
}

type WatchCmd struct {
	Subject string `default:"chatlens.>" help:"Subject to subscribe to."`
}

func (c *WatchCmd) Run(app *App) error {
	if app.g.NatsURL == "" {
		return fmt.Errorf("NATS_URL is required for watch")
	}
	client, err := hermes.NewClient(app.ctx, app.g.NatsURL, app.g.NatsToken, app.logger)
	if err != nil {
		return err
	}
	defer client.Close()

	events := make(chan hermes.Event, 64)
	err = client.Watch(c.Subject, func(ev hermes.Event) {
		select {
		case events <- ev:
		default:
			app.logger.Warn("dropping event, output is behind", "id", ev.ID)
		}
	})
	if err != nil {
		return err
	}

	for {
		select {
		case <-app.ctx.Done():
			return nil
		case ev := <-events:
			line := fmt.Sprintf("%s %-16s %s results=%d", ev.At.Format("15:04:05"), ev.Kind, ev.Source, ev.Results)
			if ev.Error != "" {
				line += " error=" + ev.Error
			}
			app.println(line)
		}
	}
}

type WozCmd struct {
	Services WozServicesCmd `cmd:"" help:"List the service domains."`
	Shards   WozShardsCmd   `cmd:"" help:"List the shard files of a split."`
	IDs      WozIDsCmd      `cmd:"" name:"ids" help:"List the dialogue ids in a shard."`
	Search   WozSearchCmd   `cmd:"" help:"Print dialogues by domain and keyword."`
	Random   WozRandomCmd   `cmd:"" help:"Print a random dialogue."`
	Chat     WozChatCmd     `cmd:"" help:"Show a dialogue as a chat transcript."`
}

type WozServicesCmd struct{}

func (c *WozServicesCmd) Run(app *App) error {
	services, err := app.Corpus().Services()
	if err != nil {
		return err
	}
	for _, s := range services {
		app.println(s)
	}
	return nil
}

type WozShardsCmd struct {
	Split string `arg:"" enum:"train,dev,test" help:"Split."`
}

func (c *WozShardsCmd) Run(app *App) error {
	shards, err := app.Corpus().Shards(c.Split)
	if err != nil {
		return err
	}
	for _, s := range shards {
		app.println(s)
	}
	return nil
}

type WozIDsCmd struct {
	Split string `arg:"" enum:"train,dev,test" help:"Split."`
	Shard string `help:"Shard file name; defaults to the first shard."`
}

func (c *WozIDsCmd) Run(app *App) error {
	ids, err := app.Corpus().DialogueIDs(c.Split, c.Shard)
	if err != nil {
		return err
	}
	for _, id := range ids {
		app.println(id)
	}
	return nil
}

type WozSearchCmd struct {
	Split   string `arg:"" enum:"train,dev,test" help:"Split."`
	Shard   string `help:"Shard file name; defaults to the first shard."`
	Service string `help:"Service domain, e.g. hotel."`
	Keyword string `short:"k" help:"Case-insensitive keyword."`
	Limit   int    `short:"n" default:"5" help:"Maximum dialogues to print."`
}

func (c *WozSearchCmd) Run(app *App) error {
	dialogues, err := app.Corpus().Search(c.Split, c.Shard, c.Service, c.Keyword, c.Limit)
	if err != nil {
		return err
	}
	if len(dialogues) == 0 {
		app.println("No matching dialogues. Try a different shard, domain, or keyword.")
		return nil
	}
	for i, d := range dialogues {
		if i > 0 {
			fmt.Fprint(app.out, "\n---\n\n")
		}
		app.println(d.Markdown())
	}
	return nil
}

type WozRandomCmd struct{}

func (c *WozRandomCmd) Run(app *App) error {
	d, err := app.Corpus().Random(rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))
	if err != nil {
		return err
	}
	app.println(d.Markdown())
	return nil
}

type WozChatCmd struct {
	Split string `arg:"" enum:"train,dev,test" help:"Split."`
	ID    string `arg:"" help:"Dialogue id."`
	Shard string `help:"Shard file name; defaults to the first shard."`
	JSON  bool   `help:"Print turn pairs as JSON."`
}

func (c *WozChatCmd) Run(app *App) error {
	pairs, err := app.Corpus().Chat(c.Split, c.Shard, c.ID)
	if err != nil {
		return err
	}
	return printPairs(app, pairs, c.JSON)
}

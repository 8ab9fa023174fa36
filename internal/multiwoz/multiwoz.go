// Package multiwoz browses a MultiWOZ 2.2 checkout: split directories of
// dialogues_*.json shards plus a schema.json listing the service domains.
package multiwoz

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"

	"github.com/tidwall/gjson"

	"github.com/MikeSquared-Agency/chatlens/internal/conversation"
	"github.com/MikeSquared-Agency/chatlens/internal/provider"
	"github.com/MikeSquared-Agency/chatlens/internal/slice"
)

// Splits are the split directories of a MultiWOZ 2.2 release.
var Splits = []string{"train", "dev", "test"}

const (
	shardPattern = "dialogues_*.json"
	schemaFile   = "schema.json"
)

var errNoSplit = errors.New("split required")

// Corpus is a MultiWOZ data root on disk. Every call reads the files again.
type Corpus struct {
	Root string
}

func New(root string) *Corpus {
	return &Corpus{Root: root}
}

// Shards returns the shard file names of split, sorted.
func (c *Corpus) Shards(split string) ([]string, error) {
	if split == "" {
		return nil, errNoSplit
	}
	paths, err := filepath.Glob(filepath.Join(c.Root, split, shardPattern))
	if err != nil {
		return nil, fmt.Errorf("list shards: %w", err)
	}
	names := make([]string, len(paths))
	for i, p := range paths {
		names[i] = filepath.Base(p)
	}
	sort.Strings(names)
	return names, nil
}

// ResolveShard returns the path of the shard called name in split, falling
// back to the first shard when name is empty or unknown.
func (c *Corpus) ResolveShard(split, name string) (string, error) {
	names, err := c.Shards(split)
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", fmt.Errorf("no shards for split %q: %w", split, provider.ErrSourceNotFound)
	}
	chosen := names[0]
	for _, n := range names {
		if n == name {
			chosen = n
			break
		}
	}
	return filepath.Join(c.Root, split, chosen), nil
}

// LoadShard decodes one shard file.
func LoadShard(path string) ([]conversation.Dialogue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, provider.ErrSourceNotFound)
		}
		return nil, fmt.Errorf("read shard: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: %s: invalid json", provider.ErrDecodeFailure, path)
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsArray() {
		return nil, fmt.Errorf("%w: %s: expected array of dialogues", provider.ErrDecodeFailure, path)
	}

	dialogues := []conversation.Dialogue{}
	doc.ForEach(func(_, d gjson.Result) bool {
		if d.IsObject() {
			dialogues = append(dialogues, dialogueFrom(d))
		}
		return true
	})
	return dialogues, nil
}

func dialogueFrom(d gjson.Result) conversation.Dialogue {
	out := conversation.Dialogue{
		ID:       d.Get("dialogue_id").String(),
		Services: []string{},
		Turns:    []conversation.Turn{},
	}
	for _, s := range d.Get("services").Array() {
		out.Services = append(out.Services, s.String())
	}
	for _, t := range d.Get("turns").Array() {
		out.Turns = append(out.Turns, conversation.Turn{
			Speaker: t.Get("speaker").String(),
			Text:    t.Get("utterance").String(),
		})
	}
	return out
}

// Load reads the shard chosen by ResolveShard.
func (c *Corpus) Load(split, shard string) ([]conversation.Dialogue, error) {
	path, err := c.ResolveShard(split, shard)
	if err != nil {
		return nil, err
	}
	return LoadShard(path)
}

// DialogueIDs lists the ids in a shard, in file order.
func (c *Corpus) DialogueIDs(split, shard string) ([]string, error) {
	dialogues, err := c.Load(split, shard)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(dialogues))
	for i, d := range dialogues {
		ids[i] = d.ID
		if ids[i] == "" {
			ids[i] = conversation.UnknownID
		}
	}
	return ids, nil
}

// Services returns the service_name of every entry in schema.json.
func (c *Corpus) Services() ([]string, error) {
	path := filepath.Join(c.Root, schemaFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, provider.ErrSourceNotFound)
		}
		return nil, fmt.Errorf("read schema: %w", err)
	}
	if !gjson.ValidBytes(data) || !gjson.ParseBytes(data).IsArray() {
		return nil, fmt.Errorf("%w: %s: expected array of services", provider.ErrDecodeFailure, path)
	}
	services := []string{}
	for _, name := range gjson.GetBytes(data, "#.service_name").Array() {
		services = append(services, name.String())
	}
	return services, nil
}

// Search filters one shard by service and keyword.
func (c *Corpus) Search(split, shard, service, keyword string, limit int) ([]conversation.Dialogue, error) {
	dialogues, err := c.Load(split, shard)
	if err != nil {
		return nil, err
	}
	return slice.FilterDialogues(dialogues, service, keyword, limit), nil
}

// Random picks a split, then a shard in it, then a dialogue in that shard.
func (c *Corpus) Random(rng *rand.Rand) (conversation.Dialogue, error) {
	split := Splits[rng.IntN(len(Splits))]
	names, err := c.Shards(split)
	if err != nil {
		return conversation.Dialogue{}, err
	}
	if len(names) == 0 {
		return conversation.Dialogue{}, fmt.Errorf("no shards for split %q: %w", split, provider.ErrEmptySource)
	}
	dialogues, err := LoadShard(filepath.Join(c.Root, split, names[rng.IntN(len(names))]))
	if err != nil {
		return conversation.Dialogue{}, err
	}
	if len(dialogues) == 0 {
		return conversation.Dialogue{}, provider.ErrEmptySource
	}
	return dialogues[rng.IntN(len(dialogues))], nil
}

// Find returns the dialogue with the given id.
func (c *Corpus) Find(split, shard, id string) (conversation.Dialogue, error) {
	dialogues, err := c.Load(split, shard)
	if err != nil {
		return conversation.Dialogue{}, err
	}
	for _, d := range dialogues {
		if d.ID != "" && d.ID == id {
			return d, nil
		}
	}
	return conversation.Dialogue{}, fmt.Errorf("dialogue %q: %w", id, provider.ErrIndexOutOfRange)
}

// Chat returns the dialogue with the given id as turn pairs.
func (c *Corpus) Chat(split, shard, id string) ([]conversation.TurnPair, error) {
	d, err := c.Find(split, shard, id)
	if err != nil {
		return nil, err
	}
	return conversation.PairMultiWOZ(d.Turns), nil
}

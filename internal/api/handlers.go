package api

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/MikeSquared-Agency/chatlens/internal/conversation"
	"github.com/MikeSquared-Agency/chatlens/internal/explorer"
	"github.com/MikeSquared-Agency/chatlens/internal/hermes"
	"github.com/MikeSquared-Agency/chatlens/internal/record"
	"github.com/MikeSquared-Agency/chatlens/internal/slice"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

var errBadRequest = errors.New("bad request")

type searchResponse struct {
	Records []record.Record `json:"records"`
	Count   int             `json:"count"`
}

type chatResponse struct {
	Pairs      []conversation.TurnPair `json:"pairs"`
	Transcript string                  `json:"transcript"`
}

type dialoguesResponse struct {
	Dialogues []conversation.Dialogue `json:"dialogues"`
	Markdown  []string                `json:"markdown"`
	Count     int                     `json:"count"`
}

func requestFrom(r *http.Request) explorer.Request {
	q := r.URL.Query()
	return explorer.Request{
		Source: q.Get("source"),
		Config: q.Get("config"),
		Split:  q.Get("split"),
	}
}

func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return DefaultLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: limit must be a positive integer", errBadRequest)
	}
	return min(n, MaxLimit), nil
}

func requireSource(req explorer.Request) error {
	if req.Source == "" {
		return fmt.Errorf("%w: source is required", errBadRequest)
	}
	return nil
}

// sources handles GET /api/v1/sources
func (s *Server) sources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"sources": s.lens.Sources()})
}

// configs handles GET /api/v1/configs
func (s *Server) configs(w http.ResponseWriter, r *http.Request) {
	req := requestFrom(r)
	if err := requireSource(req); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"configs": s.lens.Configs(r.Context(), req.Source)})
}

// fields handles GET /api/v1/fields
func (s *Server) fields(w http.ResponseWriter, r *http.Request) {
	req := requestFrom(r)
	if err := requireSource(req); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"fields": s.lens.Fields(r.Context(), req)})
}

// search handles GET /api/v1/search
func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	req := requestFrom(r)
	if err := requireSource(req); err != nil {
		s.fail(w, r, err)
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	q := slice.Query{
		Keyword: r.URL.Query().Get("keyword"),
		Field:   r.URL.Query().Get("field"),
		Limit:   limit,
	}

	recs, err := s.lens.Search(r.Context(), req, q)

	ev := hermes.NewEvent(hermes.KindSearch)
	ev.Source, ev.Config, ev.Split, ev.Keyword = req.Source, req.Config, req.Split, q.Keyword
	ev.Results = len(recs)
	if err != nil {
		ev.Error = err.Error()
	}
	s.emit(ev)

	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{Records: recs, Count: len(recs)})
}

// random handles GET /api/v1/random
func (s *Server) random(w http.ResponseWriter, r *http.Request) {
	req := requestFrom(r)
	if err := requireSource(req); err != nil {
		s.fail(w, r, err)
		return
	}

	rec, err := s.lens.Random(r.Context(), req)

	ev := hermes.NewEvent(hermes.KindRandom)
	ev.Source, ev.Config, ev.Split = req.Source, req.Config, req.Split
	if err != nil {
		ev.Error = err.Error()
	} else {
		ev.Results = 1
	}
	s.emit(ev)

	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]record.Record{"record": rec})
}

// chat handles GET /api/v1/chat
func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	req := requestFrom(r)
	if err := requireSource(req); err != nil {
		s.fail(w, r, err)
		return
	}
	item := r.URL.Query().Get("item")

	pairs, err := s.lens.Chat(r.Context(), req, item)

	ev := hermes.NewEvent(hermes.KindChat)
	ev.Source, ev.Config, ev.Split, ev.Item = req.Source, req.Config, req.Split, item
	ev.Results = len(pairs)
	if err != nil {
		ev.Error = err.Error()
	}
	s.emit(ev)

	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{Pairs: pairs, Transcript: conversation.FormatTranscript(pairs)})
}

// multiwozServices handles GET /api/v1/multiwoz/services
func (s *Server) multiwozServices(w http.ResponseWriter, r *http.Request) {
	services, err := s.corpus.Services()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"services": services})
}

// multiwozShards handles GET /api/v1/multiwoz/{split}/shards
func (s *Server) multiwozShards(w http.ResponseWriter, r *http.Request) {
	shards, err := s.corpus.Shards(chi.URLParam(r, "split"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"shards": shards})
}

// multiwozDialogues handles GET /api/v1/multiwoz/{split}/dialogues
func (s *Server) multiwozDialogues(w http.ResponseWriter, r *http.Request) {
	ids, err := s.corpus.DialogueIDs(chi.URLParam(r, "split"), r.URL.Query().Get("shard"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"ids": ids})
}

// multiwozSearch handles GET /api/v1/multiwoz/{split}/search
func (s *Server) multiwozSearch(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	q := r.URL.Query()
	split := chi.URLParam(r, "split")

	dialogues, err := s.corpus.Search(split, q.Get("shard"), q.Get("service"), q.Get("keyword"), limit)

	ev := hermes.NewEvent(hermes.KindMultiWOZSearch)
	ev.Split, ev.Keyword, ev.Results = split, q.Get("keyword"), len(dialogues)
	if err != nil {
		ev.Error = err.Error()
	}
	s.emit(ev)

	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dialoguesFor(dialogues))
}

// multiwozRandom handles GET /api/v1/multiwoz/random
func (s *Server) multiwozRandom(w http.ResponseWriter, r *http.Request) {
	rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	d, err := s.corpus.Random(rng)

	ev := hermes.NewEvent(hermes.KindMultiWOZRandom)
	if err != nil {
		ev.Error = err.Error()
	} else {
		ev.Item, ev.Results = d.ID, 1
	}
	s.emit(ev)

	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dialoguesFor([]conversation.Dialogue{d}))
}

// multiwozChat handles GET /api/v1/multiwoz/{split}/chat
func (s *Server) multiwozChat(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	split := chi.URLParam(r, "split")
	id := q.Get("id")
	if id == "" {
		s.fail(w, r, fmt.Errorf("%w: id is required", errBadRequest))
		return
	}

	pairs, err := s.corpus.Chat(split, q.Get("shard"), id)

	ev := hermes.NewEvent(hermes.KindMultiWOZChat)
	ev.Split, ev.Item, ev.Results = split, id, len(pairs)
	if err != nil {
		ev.Error = err.Error()
	}
	s.emit(ev)

	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{Pairs: pairs, Transcript: conversation.FormatTranscript(pairs)})
}

func dialoguesFor(dialogues []conversation.Dialogue) dialoguesResponse {
	md := make([]string, len(dialogues))
	for i, d := range dialogues {
		md[i] = d.Markdown()
	}
	return dialoguesResponse{Dialogues: dialogues, Markdown: md, Count: len(dialogues)}
}

// Package orchestrator turns a transcript into a stored, parsed corpus.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/edmo-corpus/clients"
	cfg "github.com/maastricht-university/edmo-corpus/config"
	"github.com/maastricht-university/edmo-corpus/corpus"
	"github.com/maastricht-university/edmo-corpus/meta"
	"github.com/maastricht-university/edmo-corpus/parse"
)

var log = logrus.WithField("component", "orchestrator")

// ErrSummary reports a corpus that was stored but whose summary.json was not
// written.
var ErrSummary = errors.New("summary not written")

// Parser is the dependency-parser service.
type Parser interface {
	Parse(ctx context.Context, url, text string) (*clients.ParseResp, error)
}

type Pipeline struct {
	cfg    *cfg.Root
	parser Parser
	now    func() time.Time
}

func NewPipeline(c *cfg.Root) *Pipeline {
	return &Pipeline{
		cfg:    c,
		parser: clients.NewHTTP(cfg.DurSeconds(c.Services.NLP.Timeout)),
		now:    time.Now,
	}
}

// WithParser replaces the HTTP parser client.
func (p *Pipeline) WithParser(pr Parser) *Pipeline {
	p.parser = pr
	return p
}

type RunOptions struct {
	CorpusID string // fresh id when empty
	NoParse  bool
}

type Result struct {
	Corpus      *corpus.Corpus
	Summary     Summary
	SummaryPath string
}

// Run reads the transcript at path, annotates every utterance with its
// dependency parse when a parser is configured, and dumps the corpus under
// storage.base_path. If only the summary cannot be written, the corpus is
// already stored: Run returns its Result together with an error wrapping
// ErrSummary.
func (p *Pipeline) Run(ctx context.Context, path string, opt RunOptions) (*Result, error) {
	id := opt.CorpusID
	if id == "" {
		id = corpus.NewID()
	}
	if err := corpus.ValidateID(id); err != nil {
		return nil, err
	}

	segs, err := readTranscript(path)
	if err != nil {
		return nil, err
	}
	c, err := buildCorpus(segs, corpus.WithMeta(meta.Map{
		"pipeline":   meta.String(p.cfg.Pipeline.Name),
		"transcript": meta.String(filepath.Base(path)),
	}))
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"path":       path,
		"speakers":   c.NumSpeakers(),
		"utterances": c.NumUtterances(),
	}).Info("transcript loaded")

	parsed := !opt.NoParse && p.cfg.Services.NLP.URL != ""
	if parsed {
		if err := p.annotate(ctx, c); err != nil {
			return nil, err
		}
	}

	durable, err := c.Dump(ctx, id, p.cfg.Storage.BasePath)
	if err != nil {
		return nil, err
	}

	sum := Summary{
		CorpusID:      id,
		Transcript:    path,
		GeneratedAt:   p.now().UTC(),
		Parsed:        parsed,
		NumSpeakers:   durable.NumSpeakers(),
		NumUtterances: durable.NumUtterances(),
		Stats:         aggregate(segs),
	}
	res := &Result{Corpus: durable, Summary: sum}
	sumPath, err := persist(p.cfg.Storage.BasePath, sum)
	if err != nil {
		log.WithError(err).WithField("corpus_id", id).Warn("corpus stored without summary")
		return res, fmt.Errorf("%w: %w", ErrSummary, err)
	}
	res.SummaryPath = sumPath
	log.WithFields(logrus.Fields{"corpus_id": id, "summary": sumPath}).Info("corpus built")
	return res, nil
}

// annotate stores the parse trees and sentence texts of every non-empty
// utterance.
func (p *Pipeline) annotate(ctx context.Context, c *corpus.Corpus) error {
	url := p.cfg.Services.NLP.URL
	n := 0
	for u := range c.IterUtterances() {
		if u.Text() == "" {
			continue
		}
		resp, err := p.parser.Parse(ctx, url, u.Text())
		if err != nil {
			return fmt.Errorf("utterance %q: %w", u.ID(), err)
		}
		trees, err := resp.Trees()
		if err != nil {
			return fmt.Errorf("utterance %q: %w", u.ID(), err)
		}
		u.AddMeta(parse.KeyParsed, parse.ToValue(trees))
		u.AddMeta(parse.KeySentences, meta.Strings(resp.Texts()...))
		n++
	}
	log.WithField("utterances", n).Debug("parse annotations added")
	return nil
}

// Package engine assembles the analysis pipeline with its optional
// dictionary and narrative collaborators from configuration. The api and
// the analyzer worker share one Engine per process
package engine

import (
	"context"
	"errors"
	"fmt"

	"chatlens/internal/core/dictionary"
	"chatlens/internal/core/model"
	"chatlens/internal/core/narrative"
	"chatlens/internal/core/pipeline"
	"chatlens/internal/core/version"
	"chatlens/internal/platform/logger"

	"github.com/openai/openai-go/option"
)

// Info describes the loaded engine for meta endpoints and logs
type Info struct {
	EngineVersion  string `json:"engine_version" example:"1.4.0"`
	Taxonomy       string `json:"taxonomy"       example:"business"`
	Culture        string `json:"culture,omitempty"`
	Dictionary     string `json:"dictionary"     example:"none"`
	Narrative      bool   `json:"narrative"`
	NarrativeModel string `json:"narrative_model,omitempty" example:"gpt-4.1-mini"`
}

// Engine runs analyses. Safe for concurrent use
type Engine struct {
	pipe *pipeline.Pipeline
	narr *narrative.Synthesizer
	dict *dictionary.Client
	opts Options
}

type extras struct {
	gen  narrative.Generator
	dict dictionary.Provider
}

// Option overrides a collaborator built from Options
type Option func(*extras)

// WithGenerator replaces the OpenAI narrative generator
func WithGenerator(g narrative.Generator) Option { return func(e *extras) { e.gen = g } }

// WithDictionary replaces the configured dictionary provider
func WithDictionary(p dictionary.Provider) Option { return func(e *extras) { e.dict = p } }

// New builds the pipeline and collaborators. Dictionary providers are
// opened lazily on first lookup
func New(opts Options, overrides ...Option) (*Engine, error) {
	var x extras
	for _, fn := range overrides {
		fn(&x)
	}
	log := logger.Named("engine")

	prov := x.dict
	if prov == nil {
		var err error
		if prov, err = provider(opts); err != nil {
			return nil, err
		}
	}

	var popts []pipeline.Option
	var dict *dictionary.Client
	if prov != nil {
		dict = dictionary.NewClient(prov, opts.DictionaryTimeout)
		popts = append(popts, pipeline.WithThesaurus(dict))
	}

	p, err := pipeline.New(opts.Pipeline(), popts...)
	if err != nil {
		if dict != nil {
			_ = dict.Close()
		}
		return nil, err
	}

	gen := x.gen
	if gen == nil && opts.OpenAIKey != "" {
		var req []option.RequestOption
		if opts.OpenAIBaseURL != "" {
			req = append(req, option.WithBaseURL(opts.OpenAIBaseURL))
		}
		gen = narrative.NewOpenAI(opts.OpenAIKey, opts.OpenAIModel, req)
	}

	e := &Engine{
		pipe: p,
		narr: narrative.NewSynthesizer(gen, opts.NarrativeTimeout),
		dict: dict,
		opts: opts,
	}
	info := e.Info()
	log.Info().
		Str("taxonomy", info.Taxonomy).
		Str("culture", info.Culture).
		Str("dictionary", info.Dictionary).
		Bool("narrative", info.Narrative).
		Msg("engine ready")
	return e, nil
}

func provider(opts Options) (dictionary.Provider, error) {
	switch opts.Dictionary {
	case DictionaryRedis:
		if opts.RedisURL == "" {
			return nil, errors.New("engine: redis dictionary needs SERVICE_REDIS_URL")
		}
		r, err := dictionary.DialRedis(opts.RedisURL, opts.RedisPrefix)
		if err != nil {
			return nil, err
		}
		return r, nil
	case DictionaryFile:
		if opts.DictionaryFile == "" {
			return nil, errors.New("engine: file dictionary needs CHATLENS_ENGINE_DICTIONARY_FILE")
		}
		s, err := dictionary.LoadFile(opts.DictionaryFile)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "", DictionaryNone:
		return nil, nil
	}
	return nil, fmt.Errorf("engine: unknown dictionary provider %q", opts.Dictionary)
}

// Analyze runs the pipeline over one conversation and, when narrate is set,
// attaches a narrative. Narrative failures never fail the analysis
func (e *Engine) Analyze(ctx context.Context, raws []model.RawMessage, meta model.Metadata, narrate bool, progress pipeline.Progress) (model.Result, error) {
	res, err := e.pipe.Run(ctx, raws, meta, progress)
	if err != nil {
		return model.Result{}, err
	}
	if narrate {
		n := e.narr.Synthesize(ctx, res)
		res.Metadata.Narrative = &n
		if !n.Generated {
			logger.C(ctx).Debug().Str("chat_id", res.Metadata.ChatID).Str("reason", n.Reason).Msg("narrative skipped")
		}
	}
	return res, nil
}

// AnalyzeMany runs independent conversations concurrently, bounded by the
// configured worker count. Outcomes keep input order
func (e *Engine) AnalyzeMany(ctx context.Context, convs []pipeline.Conversation, narrate bool) []pipeline.Outcome {
	out := e.pipe.RunMany(ctx, convs)
	if !narrate {
		return out
	}
	for i := range out {
		if out[i].Err != nil {
			continue
		}
		n := e.narr.Synthesize(ctx, out[i].Result)
		out[i].Result.Metadata.Narrative = &n
	}
	return out
}

// Info reports the engine configuration
func (e *Engine) Info() Info {
	tax, culture := e.pipe.Taxonomy()
	dict := DictionaryNone
	if e.dict != nil {
		dict = e.opts.Dictionary
		if dict == "" || dict == DictionaryNone {
			dict = "custom"
		}
	}
	info := Info{
		EngineVersion: version.Engine,
		Taxonomy:      tax,
		Culture:       culture,
		Dictionary:    dict,
		Narrative:     e.narr.Enabled(),
	}
	if info.Narrative {
		info.NarrativeModel = e.narr.Model()
	}
	return info
}

// Close releases the dictionary provider
func (e *Engine) Close() error {
	if e == nil || e.dict == nil {
		return nil
	}
	return e.dict.Close()
}

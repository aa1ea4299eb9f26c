// Package pipeline chains the analysis layers over one conversation:
// canonical transform, lexical intent, behavior, segmentation and intent
// evolution. A run is a pure function of its input and configuration.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"chatlens/internal/core/behavior"
	"chatlens/internal/core/canonical"
	"chatlens/internal/core/evolution"
	"chatlens/internal/core/langhint"
	"chatlens/internal/core/lexical"
	"chatlens/internal/core/lexicon"
	"chatlens/internal/core/model"
	"chatlens/internal/core/segment"
	"chatlens/internal/core/version"
)

// Stage names a pipeline layer in progress reports and layer statuses
type Stage string

// Stages in run order
const (
	StageCanonical  Stage = "canonical"
	StageLexical    Stage = "lexical"
	StageBehavioral Stage = "behavioral"
	StageSegmented  Stage = "segmented"
	StageEvolution  Stage = "evolution"
)

// checkpoint is the overall fraction reported once a stage finishes
var checkpoint = map[Stage]float64{
	StageCanonical:  0.20,
	StageLexical:    0.45,
	StageBehavioral: 0.60,
	StageSegmented:  0.80,
	StageEvolution:  1.00,
}

var previous = map[Stage]Stage{
	StageLexical:    StageCanonical,
	StageBehavioral: StageLexical,
	StageSegmented:  StageBehavioral,
	StageEvolution:  StageSegmented,
}

// Progress receives the current stage and the overall completed fraction
type Progress func(stage Stage, fraction float64)

// Config bundles the per-layer configurations
type Config struct {
	Taxonomy string
	Culture  string

	Canonical canonical.Config
	Lexical   lexical.Config
	// Behavior replaces the 1:1 or group defaults when set
	Behavior  *behavior.Config
	Segment   segment.Config
	Evolution evolution.Config

	// Workers bounds RunMany concurrency
	Workers int
}

// messageLayer is an enrichment layer that returns annotated copies
type messageLayer interface {
	AnalyzeAll(ctx context.Context, msgs []model.Message, progress func(done, total int)) ([]model.Message, error)
}

// Pipeline is immutable after New and safe for concurrent Run calls
type Pipeline struct {
	cfg         Config
	tax         *lexicon.Taxonomy
	transformer *canonical.Transformer
	lex         messageLayer
	seg         *segment.Segmenter
	evo         *evolution.Engine

	// behaviorFor builds the behavioral layer once group mode is known
	behaviorFor func(group bool) messageLayer
}

type options struct {
	thes lexical.Thesaurus
	now  func() time.Time
}

// Option configures a Pipeline
type Option func(*options)

// WithThesaurus enables the lexical synonym pass
func WithThesaurus(t lexical.Thesaurus) Option {
	return func(o *options) { o.thes = t }
}

// WithClock sets the clock used for unparseable timestamps
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New resolves the taxonomy and pattern packs and builds every layer
func New(cfg Config, opts ...Option) (*Pipeline, error) {
	var o options
	for _, fn := range opts {
		fn(&o)
	}
	tax, err := lexicon.Resolve(cfg.Taxonomy, cfg.Culture)
	if err != nil {
		return nil, err
	}
	pat, err := lexicon.LoadPatterns()
	if err != nil {
		return nil, err
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}

	var lexOpts []lexical.Option
	if o.thes != nil {
		lexOpts = append(lexOpts, lexical.WithThesaurus(o.thes))
	}
	p := &Pipeline{
		cfg:         cfg,
		tax:         tax,
		transformer: canonical.New(cfg.Canonical, pat, canonical.WithClock(o.now)),
		lex:         lexical.New(tax, pat, cfg.Lexical, lexOpts...),
		seg:         segment.New(tax.Schema, cfg.Segment),
		evo:         evolution.New(tax.Schema, cfg.Evolution),
	}
	p.behaviorFor = func(group bool) messageLayer {
		if cfg.Behavior != nil {
			return behavior.New(*cfg.Behavior)
		}
		return behavior.New(behavior.Defaults(group))
	}
	return p, nil
}

// Taxonomy is the resolved taxonomy name and culture
func (p *Pipeline) Taxonomy() (name, culture string) { return p.tax.Name, p.tax.Culture }

// Run analyzes one conversation. The only error is context cancellation,
// in which case no partial result is returned
func (p *Pipeline) Run(ctx context.Context, raws []model.RawMessage, meta model.Metadata, progress Progress) (model.Result, error) {
	report := func(s Stage, f float64) {
		if progress != nil {
			progress(s, f)
		}
	}
	within := func(s Stage) func(done, total int) {
		lo, hi := 0.0, checkpoint[s]
		if prev, ok := previous[s]; ok {
			lo = checkpoint[prev]
		}
		return func(done, total int) {
			if total > 0 {
				report(s, lo+(hi-lo)*float64(done)/float64(total))
			}
		}
	}
	layers := make([]model.LayerStatus, 0, 5)

	batch, err := p.transformer.Transform(ctx, raws, meta, within(StageCanonical))
	if err != nil {
		return model.Result{}, err
	}
	layers = append(layers, model.LayerStatus{Layer: string(StageCanonical), OK: true})
	report(StageCanonical, checkpoint[StageCanonical])

	msgs, st, err := guard(StageLexical, batch.Messages, func() ([]model.Message, error) {
		return p.lex.AnalyzeAll(ctx, batch.Messages, within(StageLexical))
	})
	if err != nil {
		return model.Result{}, err
	}
	layers = append(layers, st)
	report(StageLexical, checkpoint[StageLexical])
	if err := ctx.Err(); err != nil {
		return model.Result{}, err
	}

	group := p.seg.Config().Group || segment.IsGroup(msgs)
	lexed := msgs
	msgs, st, err = guard(StageBehavioral, lexed, func() ([]model.Message, error) {
		return p.behaviorFor(group).AnalyzeAll(ctx, lexed, within(StageBehavioral))
	})
	if err != nil {
		return model.Result{}, err
	}
	layers = append(layers, st)
	report(StageBehavioral, checkpoint[StageBehavioral])
	if err := ctx.Err(); err != nil {
		return model.Result{}, err
	}

	out, err := p.seg.Segment(ctx, msgs)
	if err != nil {
		return model.Result{}, err
	}
	layers = append(layers, model.LayerStatus{Layer: string(StageSegmented), OK: true})
	report(StageSegmented, checkpoint[StageSegmented])
	if err := ctx.Err(); err != nil {
		return model.Result{}, err
	}

	md := p.metadata(meta, batch, out)
	tl := p.evo.Evolve(md.ChatID, out.Segments)
	layers = append(layers, model.LayerStatus{Layer: string(StageEvolution), OK: true})
	md.Layers = layers
	report(StageEvolution, checkpoint[StageEvolution])

	return model.Result{
		Messages:  out.Messages,
		Segments:  out.Segments,
		Evolution: tl,
		Metadata:  md,
	}, nil
}

// guard runs an optional layer. A panic is recorded on the returned status
// and the untouched input flows on; errors are passed through
func guard(s Stage, in []model.Message, fn func() ([]model.Message, error)) (out []model.Message, st model.LayerStatus, err error) {
	st = model.LayerStatus{Layer: string(s), OK: true}
	defer func() {
		if r := recover(); r != nil {
			out, err = in, nil
			st = model.LayerStatus{Layer: string(s), Reason: fmt.Sprintf("panic: %v", r)}
		}
	}()
	out, err = fn()
	return out, st, err
}

func (p *Pipeline) metadata(meta model.Metadata, batch canonical.Batch, out segment.Output) model.ResultMetadata {
	md := model.ResultMetadata{
		ChatID:        meta.ChatID,
		Source:        meta.Source,
		Participants:  batch.Participants,
		StartDate:     meta.StartDate,
		EndDate:       meta.EndDate,
		MessageCount:  len(out.Messages),
		SegmentCount:  len(out.Segments),
		IsGroup:       out.Group,
		Taxonomy:      p.tax.Name,
		Culture:       p.tax.Culture,
		Warnings:      batch.Warnings,
		EngineVersion: version.Engine,
	}
	if md.Participants == nil {
		md.Participants = []string{}
	}
	if n := len(out.Messages); n > 0 {
		if md.ChatID == "" {
			md.ChatID = "chat_" + out.Messages[0].ID
		}
		if md.StartDate == nil {
			ts := out.Messages[0].Timestamp
			md.StartDate = &ts
		}
		if md.EndDate == nil {
			ts := out.Messages[n-1].Timestamp
			md.EndDate = &ts
		}
		scripts := make([]string, n)
		for i, m := range out.Messages {
			scripts[i] = m.Script
		}
		md.Script = langhint.Dominant(scripts)
	}
	return md
}

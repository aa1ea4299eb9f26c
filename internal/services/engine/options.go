package engine

import (
	"time"

	"chatlens/internal/core/lexicon"
	"chatlens/internal/core/pipeline"
	"chatlens/internal/core/segment"
	"chatlens/internal/platform/config"
)

// Dictionary providers
const (
	DictionaryNone  = "none"
	DictionaryRedis = "redis"
	DictionaryFile  = "file"
)

// Options holds configuration settings for the analysis engine
type Options struct {
	Taxonomy string
	Culture  string
	Workers  int

	Aggressive    bool
	PreserveOrder bool
	Group         bool
	Inactivity    time.Duration
	MaxSegment    int
	MinSegment    int

	Dictionary        string
	DictionaryFile    string
	DictionaryTimeout time.Duration
	RedisURL          string
	RedisPrefix       string

	OpenAIKey        string
	OpenAIModel      string
	OpenAIBaseURL    string
	NarrativeTimeout time.Duration
}

// FromConfig reads CHATLENS_ENGINE_*, SERVICE_REDIS_* and OPENAI_*
func FromConfig(cfg config.Conf) Options {
	ec := cfg.Prefix("CHATLENS_ENGINE_")
	rc := cfg.Prefix("SERVICE_REDIS_")
	oc := cfg.Prefix("OPENAI_")
	return Options{
		Taxonomy: ec.MayString("TAXONOMY", lexicon.Default),
		Culture:  ec.MayString("CULTURE", ""),
		Workers:  ec.MayInt("WORKERS", 4),

		Aggressive:    ec.MayBool("AGGRESSIVE", false),
		PreserveOrder: ec.MayBool("PRESERVE_ORDER", false),
		Group:         ec.MayBool("GROUP", false),
		Inactivity:    ec.MayDuration("INACTIVITY", segment.DefaultConfig().Inactivity),
		MaxSegment:    ec.MayInt("MAX_SEGMENT", segment.DefaultConfig().MaxSize),
		MinSegment:    ec.MayInt("MIN_SEGMENT", segment.DefaultConfig().MinSize),

		Dictionary:        ec.MayEnum("DICTIONARY", DictionaryNone, DictionaryNone, DictionaryRedis, DictionaryFile),
		DictionaryFile:    ec.MayString("DICTIONARY_FILE", ""),
		DictionaryTimeout: ec.MayDuration("DICTIONARY_TIMEOUT", 50*time.Millisecond),
		RedisURL:          rc.MayString("URL", ""),
		RedisPrefix:       rc.MayString("PREFIX", ""),

		OpenAIKey:        oc.MayString("API_KEY", ""),
		OpenAIModel:      oc.MayString("MODEL", ""),
		OpenAIBaseURL:    oc.MayString("BASE_URL", ""),
		NarrativeTimeout: oc.MayDuration("TIMEOUT", 90*time.Second),
	}
}

// Pipeline maps the options onto layer configs; anything left zero takes
// the layer default
func (o Options) Pipeline() pipeline.Config {
	pc := pipeline.Config{
		Taxonomy: o.Taxonomy,
		Culture:  o.Culture,
		Workers:  o.Workers,
	}
	pc.Canonical.Aggressive = o.Aggressive
	pc.Canonical.PreserveOrder = o.PreserveOrder

	pc.Segment = segment.DefaultConfig()
	pc.Segment.Group = o.Group
	if o.Inactivity > 0 {
		pc.Segment.Inactivity = o.Inactivity
	}
	if o.MaxSegment > 0 {
		pc.Segment.MaxSize = o.MaxSegment
	}
	if o.MinSegment > 0 {
		pc.Segment.MinSize = o.MinSegment
	}
	return pc
}

package behavior

import "time"

// Config holds every behavioral threshold. Use Defaults to get the 1:1 or
// group preset and override fields from there
type Config struct {
	// latency bucket upper bounds; anything at or past Delayed is very_delayed
	Immediate time.Duration
	Quick     time.Duration
	Normal    time.Duration
	Delayed   time.Duration

	// Lookback is the trailing message window for turn counts
	Lookback int

	BurstWindow      time.Duration
	BurstMinMessages int

	// business hours are [BusinessStart, BusinessEnd) on weekdays in Location
	BusinessStart int
	BusinessEnd   int
	Location      *time.Location

	SilenceThreshold time.Duration
	// severity upper bounds; past LongSilence is very_long
	BriefSilence    time.Duration
	ModerateSilence time.Duration
	LongSilence     time.Duration
	ContextReset    time.Duration

	InitiationGap time.Duration

	BatchSize int
}

// Defaults returns the preset for 1:1 or group conversations
func Defaults(group bool) Config {
	c := Config{
		Immediate:        time.Minute,
		Quick:            5 * time.Minute,
		Normal:           30 * time.Minute,
		Delayed:          3 * time.Hour,
		Lookback:         10,
		BurstWindow:      2 * time.Minute,
		BurstMinMessages: 3,
		BusinessStart:    9,
		BusinessEnd:      17,
		Location:         time.UTC,
		SilenceThreshold: time.Hour,
		BriefSilence:     3 * time.Hour,
		ModerateSilence:  12 * time.Hour,
		LongSilence:      48 * time.Hour,
		ContextReset:     8 * time.Hour,
		InitiationGap:    2 * time.Hour,
		BatchSize:        500,
	}
	if group {
		c.Immediate = 30 * time.Second
		c.Quick = 2 * time.Minute
		c.Normal = 15 * time.Minute
		c.Delayed = 2 * time.Hour
		c.Lookback = 20
		c.BurstWindow = time.Minute
		c.SilenceThreshold = 30 * time.Minute
		c.ContextReset = 4 * time.Hour
	}
	return c
}

// Normalize replaces unset or out of range values with the 1:1 defaults and
// keeps ordered thresholds ordered
func (c Config) Normalize() Config {
	d := Defaults(false)
	dur := func(v *time.Duration, def time.Duration) {
		if *v <= 0 {
			*v = def
		}
	}
	dur(&c.Immediate, d.Immediate)
	dur(&c.Quick, d.Quick)
	dur(&c.Normal, d.Normal)
	dur(&c.Delayed, d.Delayed)
	c.Quick = max(c.Quick, c.Immediate)
	c.Normal = max(c.Normal, c.Quick)
	c.Delayed = max(c.Delayed, c.Normal)

	if c.Lookback < 1 {
		c.Lookback = d.Lookback
	}
	dur(&c.BurstWindow, d.BurstWindow)
	if c.BurstMinMessages < 2 {
		c.BurstMinMessages = d.BurstMinMessages
	}

	if c.BusinessStart < 0 || c.BusinessStart > 23 || c.BusinessEnd <= c.BusinessStart || c.BusinessEnd > 24 {
		c.BusinessStart, c.BusinessEnd = d.BusinessStart, d.BusinessEnd
	}
	if c.Location == nil {
		c.Location = time.UTC
	}

	dur(&c.SilenceThreshold, d.SilenceThreshold)
	dur(&c.BriefSilence, d.BriefSilence)
	dur(&c.ModerateSilence, d.ModerateSilence)
	dur(&c.LongSilence, d.LongSilence)
	c.ModerateSilence = max(c.ModerateSilence, c.BriefSilence)
	c.LongSilence = max(c.LongSilence, c.ModerateSilence)
	dur(&c.ContextReset, d.ContextReset)
	c.ContextReset = max(c.ContextReset, c.SilenceThreshold)

	dur(&c.InitiationGap, d.InitiationGap)
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	return c
}

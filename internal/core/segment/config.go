package segment

import "time"

// Config holds boundary and finalization thresholds
type Config struct {
	// Inactivity is the gap that forces a boundary; halved for group chats
	Inactivity time.Duration
	// Group forces group mode; otherwise it is detected from 3+ senders
	Group bool

	TopicWindow int
	// TopicShift is the Jaccard similarity below which topics differ
	TopicShift float64
	// TopicMinMessages is the open segment size before topic checks start
	TopicMinMessages int
	// TopicMinTokens is the distinct token count an incoming message needs
	TopicMinTokens int

	// DominanceThreshold is the share under which a majority counts as weak
	DominanceThreshold   float64
	DominanceMinMessages int
	// DominanceRun is how many trailing messages the challenger must own
	DominanceRun int

	ReversalMagnitude float64
	// ReversalLeaning is the minimum |leaning| on both sides of a reversal
	ReversalLeaning float64

	MaxSize     int
	MinSize     int
	TopKeywords int

	EscalationThreshold   float64
	BreakthroughThreshold float64
	// ResolutionShare is the closure mass share required in the last third
	ResolutionShare float64
	// ResolutionPeak is the closure score some last third message must reach
	ResolutionPeak float64

	BatchSize int
}

// DefaultConfig returns the stock thresholds
func DefaultConfig() Config {
	return Config{
		Inactivity:            180 * time.Minute,
		TopicWindow:           5,
		TopicShift:            0.1,
		TopicMinMessages:      3,
		TopicMinTokens:        3,
		DominanceThreshold:    0.6,
		DominanceMinMessages:  8,
		DominanceRun:          3,
		ReversalMagnitude:     0.4,
		ReversalLeaning:       0.05,
		MaxSize:               50,
		MinSize:               3,
		TopKeywords:           5,
		EscalationThreshold:   0.3,
		BreakthroughThreshold: 0.3,
		ResolutionShare:       0.6,
		ResolutionPeak:        0.2,
		BatchSize:             500,
	}
}

// Normalize fills unset values from DefaultConfig and clamps the rest
func (c Config) Normalize() Config {
	d := DefaultConfig()
	if c.Inactivity <= 0 {
		c.Inactivity = d.Inactivity
	}
	if c.TopicWindow < 1 {
		c.TopicWindow = d.TopicWindow
	}
	if c.TopicShift <= 0 || c.TopicShift >= 1 {
		c.TopicShift = d.TopicShift
	}
	if c.TopicMinMessages < 1 {
		c.TopicMinMessages = d.TopicMinMessages
	}
	if c.TopicMinTokens < 1 {
		c.TopicMinTokens = d.TopicMinTokens
	}
	if c.DominanceThreshold <= 0.5 || c.DominanceThreshold > 1 {
		c.DominanceThreshold = d.DominanceThreshold
	}
	if c.DominanceMinMessages < 2 {
		c.DominanceMinMessages = d.DominanceMinMessages
	}
	if c.DominanceRun < 1 {
		c.DominanceRun = d.DominanceRun
	}
	if c.ReversalMagnitude <= 0 || c.ReversalMagnitude > 1 {
		c.ReversalMagnitude = d.ReversalMagnitude
	}
	if c.ReversalLeaning <= 0 {
		c.ReversalLeaning = d.ReversalLeaning
	}
	if c.MinSize < 1 {
		c.MinSize = d.MinSize
	}
	if c.MaxSize <= 0 {
		c.MaxSize = d.MaxSize
	}
	c.MaxSize = max(c.MaxSize, c.MinSize)
	if c.TopKeywords <= 0 {
		c.TopKeywords = d.TopKeywords
	}
	if c.EscalationThreshold <= 0 || c.EscalationThreshold > 1 {
		c.EscalationThreshold = d.EscalationThreshold
	}
	if c.BreakthroughThreshold <= 0 || c.BreakthroughThreshold > 1 {
		c.BreakthroughThreshold = d.BreakthroughThreshold
	}
	if c.ResolutionShare <= 0 || c.ResolutionShare > 1 {
		c.ResolutionShare = d.ResolutionShare
	}
	if c.ResolutionPeak <= 0 || c.ResolutionPeak > 1 {
		c.ResolutionPeak = d.ResolutionPeak
	}
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	return c
}

// inactivity is the effective gap threshold
func (c Config) inactivity(group bool) time.Duration {
	if group {
		return c.Inactivity / 2
	}
	return c.Inactivity
}

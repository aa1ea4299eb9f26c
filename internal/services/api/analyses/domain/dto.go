// Package domain holds DTOs for the analyses http and service contracts
package domain

import (
	"chatlens/internal/core/model"
	adom "chatlens/internal/services/analyses/domain"
)

// AnalyzeInput is one conversation submitted for analysis
type AnalyzeInput struct {
	ChatID       string             `json:"chat_id,omitempty" validate:"omitempty,max=200" example:"support-4411"`
	Source       string             `json:"source,omitempty" validate:"omitempty,max=64" example:"whatsapp"`
	Participants []string           `json:"participants,omitempty" validate:"omitempty,max=500,dive,max=200"`
	Messages     []model.RawMessage `json:"messages" validate:"required,min=1"`
	// Narrate asks for an LLM summary on top of the deterministic result
	Narrate bool `json:"narrate,omitempty" example:"false"`
	// Persist defaults to true for synchronous runs
	Persist *bool `json:"persist,omitempty" example:"true"`
}

// Meta returns the pipeline metadata for the input
func (in AnalyzeInput) Meta() model.Metadata {
	return model.Metadata{ChatID: in.ChatID, Source: in.Source, Participants: in.Participants}
}

// AnalyzeOutput is the result of a synchronous run
type AnalyzeOutput struct {
	AnalysisID string       `json:"analysis_id,omitempty"`
	Result     model.Result `json:"result"`
}

// MomentQuery filters critical moments of one chat. ChatID comes from the path
type MomentQuery struct {
	ChatID   string
	Type     string `query:"type" validate:"omitempty,oneof=escalation breakthrough resolution"`
	Severity string `query:"severity" validate:"omitempty,oneof=low medium high critical"`
	Limit    int    `query:"limit" validate:"omitempty,min=1,max=1000"`
}

// RecentQuery pages the cross chat listing
type RecentQuery struct {
	Limit int `query:"limit" validate:"omitempty,min=1,max=500"`
}

// Filter converts the query for the storage port
func (q MomentQuery) Filter() adom.MomentFilter {
	return adom.MomentFilter{ChatID: q.ChatID, Type: q.Type, Severity: q.Severity, Limit: q.Limit}
}

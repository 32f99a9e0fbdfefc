package models

import (
	"time"
)

// Message represents a chat completion message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatSignalSummary is the mood summary derived from recent chat lines
type ChatSignalSummary struct {
	TotalLines  int      `json:"totalLines"`
	Laugh       int      `json:"laugh"`
	Clap        int      `json:"clap"`
	Hype        int      `json:"hype"`
	Praise      int      `json:"praise"`
	Question    int      `json:"question"`
	Surprise    int      `json:"surprise"`
	Frustration int      `json:"frustration"`
	MoodTags    []string `json:"moodTags"`
}

// ChatContext is the live page context sent by the extension
type ChatContext struct {
	Title       string             `json:"title"`
	Game        string             `json:"game"`
	ChannelName string             `json:"channelName"`
	Tags        []string           `json:"tags"`
	IsFirstTime bool               `json:"isFirstTime"`
	ChatLogs    []string           `json:"chatLogs"`
	UserHistory []string           `json:"userHistory"`
	ChatSignals *ChatSignalSummary `json:"chatSignals,omitempty"`
}

// Normalized returns a copy with nil slices replaced and signals defaulted.
// Callers coerce once at the entry point instead of guarding every field.
func (c *ChatContext) Normalized() ChatContext {
	if c == nil {
		return ChatContext{
			Tags:        []string{},
			ChatLogs:    []string{},
			UserHistory: []string{},
			ChatSignals: &ChatSignalSummary{MoodTags: []string{}},
		}
	}

	out := *c
	if out.Tags == nil {
		out.Tags = []string{}
	}
	if out.ChatLogs == nil {
		out.ChatLogs = []string{}
	}
	if out.UserHistory == nil {
		out.UserHistory = []string{}
	}
	if out.ChatSignals == nil {
		out.ChatSignals = &ChatSignalSummary{MoodTags: []string{}}
	} else {
		signals := *out.ChatSignals
		if signals.MoodTags == nil {
			signals.MoodTags = []string{}
		}
		out.ChatSignals = &signals
	}
	return out
}

// Signals returns the precomputed signals or a zero summary
func (c *ChatContext) Signals() ChatSignalSummary {
	if c == nil || c.ChatSignals == nil {
		return ChatSignalSummary{}
	}
	return *c.ChatSignals
}

// Template is a canned chat message shown in the panel
type Template struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	CategoryID string `json:"categoryId"`
}

// Position is the saved panel position in pixels
type Position struct {
	Left float64 `json:"left"`
	Top  float64 `json:"top"`
}

// GlobalSettings represents panel-wide settings
type GlobalSettings struct {
	AutoSend   bool      `json:"autoSend"`
	CoolDownMs int64     `json:"coolDownMs"`
	Position   *Position `json:"position"`
}

// SettingsPatch carries a partial settings update
type SettingsPatch struct {
	AutoSend   *bool     `json:"autoSend,omitempty"`
	CoolDownMs *int64    `json:"coolDownMs,omitempty"`
	Position   *Position `json:"position,omitempty"`
}

// Category is a panel tab
type Category struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// AISettings holds runtime overrides for the completion endpoint
type AISettings struct {
	APIKey      string    `json:"api_key"`
	AutoModel   string    `json:"auto_model,omitempty"`
	ManualModel string    `json:"manual_model,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CacheEntry represents a cached suggestion batch
type CacheEntry struct {
	Key         string
	Suggestions []string
	Model       string
	CreatedAt   time.Time
}

package domain

import (
	"strings"
	"time"
)

// Candidate is a stored news item considered as a possible duplicate source.
// It is a read-only snapshot fetched fresh for every detection call.
type Candidate struct {
	ID             string
	Title          string
	Content        string
	AISummary      string
	RelevanceScore float32
	CreatedAt      time.Time
}

// ComparableText returns the raw text used for similarity comparison:
// the title followed by the content, or by the AI summary when the content is empty.
func (c Candidate) ComparableText() string {
	body := strings.TrimSpace(c.Content)
	if body == "" {
		body = strings.TrimSpace(c.AISummary)
	}

	switch {
	case body == "":
		return c.Title
	case strings.TrimSpace(c.Title) == "":
		return body
	default:
		return c.Title + " " + body
	}
}

// Post is an incoming news post from a source channel.
type Post struct {
	SourceID  string
	SourceURL string
	Title     string
	Content   string
}

// NewItem describes a news item to be created in the store.
type NewItem struct {
	Title          string
	Content        string
	AISummary      string
	RelevanceScore float32
	SourceID       string
	SourceURL      string
}

// SourceLink is an origin reference attached to a stored news item.
type SourceLink struct {
	ItemID    string
	SourceID  string
	SourceURL string
	CreatedAt time.Time
}

// Embedding is a unit vector together with the model that produced it.
// Vectors of different models live in different spaces and are never compared.
type Embedding struct {
	Vector []float32
	Model  string
}

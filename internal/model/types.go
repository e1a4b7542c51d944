package model

import "time"

// Tag is a single classification result for a bookmark.
type Tag struct {
	Name          string  `json:"name"`
	CanonicalName string  `json:"canonical_name,omitempty"`
	Confidence    float64 `json:"confidence"`
}

// Canonical returns the cross-language identity key for the tag.
// Falls back to the display name when no canonical form was supplied.
func (t Tag) Canonical() string {
	if t.CanonicalName != "" {
		return t.CanonicalName
	}
	return t.Name
}

// Metadata holds best-effort page metadata extracted from a URL.
type Metadata struct {
	URL           string `json:"url"`
	Title         string `json:"title,omitempty"`
	Description   string `json:"description,omitempty"`
	OGTitle       string `json:"og_title,omitempty"`
	OGDescription string `json:"og_description,omitempty"`
	OGType        string `json:"og_type,omitempty"`
	ExtractedText string `json:"extracted_text,omitempty"`
}

// BestTitle returns the most useful title for display: the page title,
// then the OpenGraph title, then the URL itself.
func (m Metadata) BestTitle() string {
	if m.Title != "" {
		return m.Title
	}
	if m.OGTitle != "" {
		return m.OGTitle
	}
	return m.URL
}

// BookmarkResponse is the server's record of a classified bookmark.
type BookmarkResponse struct {
	ID         int64  `json:"id"`
	URL        string `json:"url"`
	Title      string `json:"title"`
	PrimaryTag string `json:"primary_tag"`
	Tags       []Tag  `json:"tags"`
}

// BookmarkList is the response of the list endpoint.
type BookmarkList struct {
	Bookmarks []BookmarkResponse `json:"bookmarks"`
	Total     int                `json:"total"`
}

// SaveRequest is the body of a classify-and-store submission.
type SaveRequest struct {
	URL      string `json:"url"`
	Title    string `json:"title,omitempty"`
	Language string `json:"language,omitempty"`
}

// LastBookmark caches the most recently classified bookmark for display.
type LastBookmark struct {
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Tags      []Tag     `json:"tags"`
	Timestamp time.Time `json:"timestamp"`
}

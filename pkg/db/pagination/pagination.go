package pagination

import (
	"encoding/base64"
	"encoding/json"
	"time"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 250
)

// Pagination binds cursor query parameters.
type Pagination struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size"`
}

// Limit clamps the requested page size into [1, MaxPageSize].
func (p Pagination) Limit() int {
	switch {
	case p.PageSize <= 0:
		return DefaultPageSize
	case p.PageSize > MaxPageSize:
		return MaxPageSize
	default:
		return p.PageSize
	}
}

// Cursor marks the last row of the previous page. Listings order by
// (created_at, id) descending, so both fields travel in the token.
type Cursor struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

type PageInfo struct {
	NextPageToken string `json:"next_page_token,omitempty"`
	HasMore       bool   `json:"has_more"`
}

func EncodeCursor(cursor Cursor) (string, error) {
	b, err := json.Marshal(cursor)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

func DecodeCursor(token string) (*Cursor, error) {
	b, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return nil, err
	}
	var cursor Cursor
	if err := json.Unmarshal(b, &cursor); err != nil {
		return nil, err
	}
	return &cursor, nil
}

// TrimPage expects one row beyond limit to have been fetched. It trims
// the overshoot and builds the next-page token from the last kept row.
func TrimPage[T any](rows []T, limit int, cursorOf func(T) Cursor) ([]T, *PageInfo, error) {
	if len(rows) <= limit {
		return rows, &PageInfo{HasMore: false}, nil
	}
	rows = rows[:limit]
	token, err := EncodeCursor(cursorOf(rows[len(rows)-1]))
	if err != nil {
		return nil, nil, err
	}
	return rows, &PageInfo{HasMore: true, NextPageToken: token}, nil
}

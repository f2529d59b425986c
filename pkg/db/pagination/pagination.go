package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

const (
	DefaultPageSize = 25
	MaxPageSize     = 250
)

var ErrInvalidPageToken = errors.New("invalid_page_token")

type Pagination struct {
	PageToken string `form:"page_token" json:"page_token"`
	PageSize  int    `form:"page_size" json:"page_size"`
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

type Cursor struct {
	ID        string `json:"id,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

type PageInfo struct {
	NextPageToken string `json:"next_page_token"`
	HasMore       bool   `json:"has_more"`
}

func EncodeCursor(data Cursor) (string, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return "", err
	}

	return base64.URLEncoding.EncodeToString(b), nil
}

func DecodeCursor(data string) (*Cursor, error) {
	b, err := base64.URLEncoding.DecodeString(strings.TrimSpace(data))
	if err != nil {
		return nil, ErrInvalidPageToken
	}

	var cursor Cursor
	if err := json.Unmarshal(b, &cursor); err != nil {
		return nil, ErrInvalidPageToken
	}
	if cursor.ID == "" || cursor.CreatedAt == "" {
		return nil, ErrInvalidPageToken
	}

	return &cursor, nil
}

// TimeCursor is the decoded (created_at, id) keyset position.
type TimeCursor struct {
	ID        int64
	CreatedAt time.Time
}

// ParseTimeCursor decodes a page token into a keyset position. An empty token yields nil.
func ParseTimeCursor(token string, parseID func(string) (int64, error)) (*TimeCursor, error) {
	if strings.TrimSpace(token) == "" {
		return nil, nil
	}
	decoded, err := DecodeCursor(token)
	if err != nil {
		return nil, err
	}
	createdAt, err := time.Parse(time.RFC3339Nano, decoded.CreatedAt)
	if err != nil {
		return nil, ErrInvalidPageToken
	}
	id, err := parseID(decoded.ID)
	if err != nil || id == 0 {
		return nil, ErrInvalidPageToken
	}
	return &TimeCursor{ID: id, CreatedAt: createdAt}, nil
}

// BuildCursorPageInfo expects data fetched with limit+1 rows and trims nothing itself.
func BuildCursorPageInfo[T any](data []*T, limit int, extractCursor func(*T) string) *PageInfo {
	if len(data) == 0 {
		return &PageInfo{HasMore: false}
	}

	hasMore := false
	if len(data) > limit {
		hasMore = true
		data = data[:limit]
	}

	pageInfo := &PageInfo{HasMore: hasMore}
	if hasMore {
		pageInfo.NextPageToken = extractCursor(data[len(data)-1])
	}

	return pageInfo
}

// Page trims a limit+1 result set and builds its page info.
func Page[T any](data []*T, limit int, cursorOf func(*T) Cursor) ([]*T, PageInfo) {
	info := BuildCursorPageInfo(data, limit, func(item *T) string {
		token, err := EncodeCursor(cursorOf(item))
		if err != nil {
			return ""
		}
		return token
	})
	if len(data) > limit {
		data = data[:limit]
	}
	return data, *info
}

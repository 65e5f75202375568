package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// CursorVersion is stamped on cursors that do not carry one.
const CursorVersion = 1

var (
	ErrEmptyToken = errors.New("pagination: empty cursor token")
	ErrMalformed  = errors.New("pagination: malformed cursor")
)

// Cursor is the decoded form of a preview page token. It pins the dataset,
// the offset into its normalized rows, the page size and the row count seen
// when the token was issued, so a reload can invalidate outstanding tokens.
type Cursor struct {
	V   int    `json:"v"`
	Did string `json:"did"`
	Off int    `json:"off"`
	Ps  int    `json:"ps"`
	N   int    `json:"n"`
	Iat int64  `json:"iat"`
}

// EncodeCursor returns c as unpadded URL-safe base64 JSON.
func EncodeCursor(c Cursor) (string, error) {
	if err := c.check(); err != nil {
		return "", err
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("pagination: marshal cursor: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// DecodeCursor reverses EncodeCursor and rejects structurally invalid cursors.
func DecodeCursor(token string) (*Cursor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrEmptyToken
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	c := new(Cursor)
	if err := json.Unmarshal(raw, c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := c.check(); err != nil {
		return nil, err
	}
	return c, nil
}

// check fills the version and issue time and validates the remaining fields.
func (c *Cursor) check() error {
	if c.V <= 0 {
		c.V = CursorVersion
	}
	if c.Iat == 0 {
		c.Iat = time.Now().Unix()
	}
	switch {
	case strings.TrimSpace(c.Did) == "":
		return fmt.Errorf("%w: missing dataset id", ErrMalformed)
	case c.Off < 0:
		return fmt.Errorf("%w: negative offset %d", ErrMalformed, c.Off)
	case c.Ps <= 0:
		return fmt.Errorf("%w: page size %d", ErrMalformed, c.Ps)
	case c.N < 0:
		return fmt.Errorf("%w: negative row count %d", ErrMalformed, c.N)
	}
	return nil
}

// Page clamps [off, off+size) to total rows and reports the next offset.
// next is 0 when the page reaches the end.
func Page(off, size, total int) (start, end, next int) {
	start = min(max(off, 0), total)
	end = min(start+max(size, 0), total)
	if end < total {
		next = end
	}
	return start, end, next
}

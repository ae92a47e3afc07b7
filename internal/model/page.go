package model

import (
	"encoding/base64"
	"strconv"
	"strings"
)

const pageTokenPrefix = "p1:"

const (
	// MaxPageNumber bounds decoded page tokens.
	MaxPageNumber = 1 << 24
	// MaxPageSize bounds the configured page size, so that
	// Offset(MaxPageNumber, MaxPageSize) cannot overflow.
	MaxPageSize = 1000
)

// Page is one slice of an ordered sequence.
type Page[T any] struct {
	Items   []T
	Number  int
	Size    int
	HasNext bool
	HasPrev bool
	Next    string
	Prev    string
}

// NewPage builds page number n from rows fetched with limit size+1. The
// extra row, when present, only signals that a next page exists.
func NewPage[T any](rows []T, number, size int) Page[T] {
	p := Page[T]{
		Number:  number,
		Size:    size,
		HasPrev: number > 1,
	}
	if len(rows) > size {
		rows = rows[:size]
		p.HasNext = true
	}
	if rows == nil {
		rows = []T{}
	}
	p.Items = rows
	if p.HasNext {
		p.Next = EncodePageToken(number + 1)
	}
	if p.HasPrev {
		p.Prev = EncodePageToken(number - 1)
	}
	return p
}

// Offset returns the first row index of page number n. Callers keep
// number and size within MaxPageNumber and MaxPageSize.
func Offset(number, size int) int {
	return (number - 1) * size
}

// EncodePageToken returns the opaque token for page number n.
func EncodePageToken(number int) string {
	return base64.RawURLEncoding.EncodeToString([]byte(pageTokenPrefix + strconv.Itoa(number)))
}

// DecodePageToken returns the page number carried by token. An empty token
// means the first page.
func DecodePageToken(token string) (int, error) {
	if token == "" {
		return 1, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return 0, &ValidationError{Field: "page", Reason: "malformed page token"}
	}
	s, ok := strings.CutPrefix(string(raw), pageTokenPrefix)
	if !ok {
		return 0, &ValidationError{Field: "page", Reason: "unsupported page token"}
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, &ValidationError{Field: "page", Reason: "malformed page token"}
	}
	if n > MaxPageNumber {
		return 0, &ValidationError{Field: "page", Reason: "page is out of range"}
	}
	return n, nil
}

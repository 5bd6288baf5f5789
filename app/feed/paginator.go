package feed

import (
	"errors"
	"strconv"
	"strings"
)

// Page is one window of a paginated sequence.
type Page[T any] struct {
	Items    []T `json:"items"`
	Number   int `json:"number"`
	NumPages int `json:"num_pages"`
	Count    int `json:"count"`
	PerPage  int `json:"per_page"`
}

// Paginate returns the page named by rawNumber. A missing or non-numeric
// number yields the first page; a number outside 1..NumPages, including
// one too large to parse, yields the last page. An empty sequence still
// has one (empty) page.
func Paginate[T any](items []T, perPage int, rawNumber string) *Page[T] {
	if perPage < 1 {
		perPage = PageSize
	}

	count := len(items)
	numPages := (count + perPage - 1) / perPage
	if numPages == 0 {
		numPages = 1
	}

	number, err := strconv.Atoi(strings.TrimSpace(rawNumber))
	switch {
	case errors.Is(err, strconv.ErrRange):
		number = numPages
	case err != nil:
		number = 1
	case number < 1 || number > numPages:
		number = numPages
	}

	start := (number - 1) * perPage
	end := start + perPage
	if end > count {
		end = count
	}

	window := make([]T, 0, end-start)
	window = append(window, items[start:end]...)

	return &Page[T]{
		Items:    window,
		Number:   number,
		NumPages: numPages,
		Count:    count,
		PerPage:  perPage,
	}
}

func (p *Page[T]) Len() int { return len(p.Items) }

func (p *Page[T]) HasNext() bool { return p.Number < p.NumPages }

func (p *Page[T]) HasPrevious() bool { return p.Number > 1 }

func (p *Page[T]) HasOtherPages() bool { return p.HasNext() || p.HasPrevious() }

func (p *Page[T]) NextPageNumber() int {
	if !p.HasNext() {
		return p.Number
	}
	return p.Number + 1
}

func (p *Page[T]) PreviousPageNumber() int {
	if !p.HasPrevious() {
		return p.Number
	}
	return p.Number - 1
}

// StartIndex is the 1-based position of the first item on the page, or 0
// for an empty page.
func (p *Page[T]) StartIndex() int {
	if p.Count == 0 {
		return 0
	}
	return (p.Number-1)*p.PerPage + 1
}

// PageRange lists every page number, for rendering page links.
func (p *Page[T]) PageRange() []int {
	r := make([]int, p.NumPages)
	for i := range r {
		r[i] = i + 1
	}
	return r
}

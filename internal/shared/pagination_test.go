package shared

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPagination(t *testing.T) {
	p := NewPagination(0, 0, 45)
	assert.Equal(t, Pagination{Page: 1, PerPage: 20, Total: 45, TotalPages: 3}, p)
}

func TestPageFromQuery(t *testing.T) {
	page, perPage, offset := PageFromQuery(url.Values{"page": {"3"}, "per_page": {"10"}})
	assert.Equal(t, 3, page)
	assert.Equal(t, 10, perPage)
	assert.Equal(t, 20, offset)

	page, perPage, offset = PageFromQuery(url.Values{"per_page": {"5000"}})
	assert.Equal(t, 1, page)
	assert.Equal(t, 200, perPage)
	assert.Equal(t, 0, offset)
}

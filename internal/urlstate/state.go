package urlstate

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/rebelice/lazyadmin/internal/models"
)

// Query parameter names
const (
	ParamFilters  = "filters"
	ParamSearch   = "search"
	ParamSort     = "sort"
	ParamOrder    = "order"
	ParamPage     = "page"
	ParamPageSize = "pageSize"
)

// Defaults bounds the page size accepted from a URL
type Defaults struct {
	PageSize    int
	MaxPageSize int
}

// QueryState is the complete state of a list view. It is a value type: every
// With* method returns a modified copy.
type QueryState struct {
	Filters  []models.FilterValue
	Search   string
	Sort     string
	Order    models.SortOrder
	Page     int
	PageSize int
}

// ParseQuery reads the list state from URL parameters. It always returns a
// usable state: malformed parameters fall back to their defaults and are
// reported through the returned error.
func ParseQuery(values url.Values, d Defaults) (QueryState, error) {
	s := QueryState{
		Search:   values.Get(ParamSearch),
		Page:     1,
		PageSize: d.PageSize,
	}

	var errs []error

	if raw := values.Get(ParamFilters); raw != "" {
		filters, err := DecodeFilters(raw)
		if err != nil {
			errs = append(errs, err)
			filters = []models.FilterValue{}
		}
		s.Filters = filters
	}

	if sort := values.Get(ParamSort); sort != "" {
		switch order := models.SortOrder(strings.ToLower(values.Get(ParamOrder))); order {
		case models.SortAsc, models.SortDesc:
			s.Sort = sort
			s.Order = order
		case models.SortNone:
			// a column without an order is an unsorted list
		default:
			errs = append(errs, fmt.Errorf("invalid sort order %q", values.Get(ParamOrder)))
		}
	}

	if raw := values.Get(ParamPage); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			errs = append(errs, fmt.Errorf("invalid page %q", raw))
		} else {
			s.Page = page
		}
	}

	if raw := values.Get(ParamPageSize); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 1 {
			errs = append(errs, fmt.Errorf("invalid page size %q", raw))
		} else {
			s.PageSize = size
		}
	}
	if d.MaxPageSize > 0 && s.PageSize > d.MaxPageSize {
		s.PageSize = d.MaxPageSize
	}

	return s, errors.Join(errs...)
}

// Values serializes the state. The filters parameter holds the output of
// EncodeFilters and is escaped once more by url.Values.Encode.
func (s QueryState) Values() (url.Values, error) {
	v := url.Values{}

	if len(s.Filters) > 0 {
		encoded, err := EncodeFilters(s.Filters)
		if err != nil {
			return nil, err
		}
		v.Set(ParamFilters, encoded)
	}
	if s.Search != "" {
		v.Set(ParamSearch, s.Search)
	}
	if s.Sort != "" && s.Order != models.SortNone {
		v.Set(ParamSort, s.Sort)
		v.Set(ParamOrder, string(s.Order))
	}
	if s.Page > 1 {
		v.Set(ParamPage, strconv.Itoa(s.Page))
	}
	if s.PageSize > 0 {
		v.Set(ParamPageSize, strconv.Itoa(s.PageSize))
	}
	return v, nil
}

// Encode returns the state as a query string without the leading '?'
func (s QueryState) Encode() (string, error) {
	v, err := s.Values()
	if err != nil {
		return "", err
	}
	return v.Encode(), nil
}

// WithFilters replaces the filters and goes back to the first page
func (s QueryState) WithFilters(filters []models.FilterValue) QueryState {
	s.Filters = append([]models.FilterValue(nil), filters...)
	s.Page = 1
	return s
}

// WithSearch replaces the search text and goes back to the first page
func (s QueryState) WithSearch(search string) QueryState {
	s.Search = search
	s.Page = 1
	return s
}

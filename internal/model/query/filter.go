package query

import (
	"strconv"
	"time"

	"github.com/looprhq/analytics-server/internal/entity/transaction"
	"github.com/looprhq/analytics-server/internal/model/customerr"
)

const (
	defaultPage     = 1
	defaultPageSize = 10

	sortAsc  = "asc"
	sortDesc = "desc"
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// RawFilter carries the untyped request parameters exactly as they arrived.
// Empty string means the parameter was absent.
type RawFilter struct {
	Category  string
	Status    string
	DateFrom  string
	DateTo    string
	AmountMin string
	AmountMax string
	Page      string
	PageSize  string
	SortBy    string
	SortDir   string
}

// Filter is the validated query. Optional predicates are
// pointers so absent and zero-valued filters stay distinguishable.
type Filter struct {
	Category  *string
	Status    *string
	DateFrom  *time.Time
	DateTo    *time.Time
	AmountMin *float64
	AmountMax *float64
	Page      int
	PageSize  int
	SortBy    string
	SortDesc  bool
}

// ParseFilter validates raw parameters into a Filter. Malformed dates and
// non-numeric bounds fail with a ValidationError; a page below 1 is
// normalized to 1 and the page size is capped at maxPageSize.
func ParseFilter(raw RawFilter, maxPageSize int) (Filter, error) {
	f := Filter{
		Page:     defaultPage,
		PageSize: defaultPageSize,
		SortBy:   transaction.SortByDate,
	}

	if raw.Category != "" {
		f.Category = &raw.Category
	}
	if raw.Status != "" {
		f.Status = &raw.Status
	}

	if raw.DateFrom != "" {
		t, err := parseDate(raw.DateFrom)
		if err != nil {
			return Filter{}, &customerr.ValidationError{Field: "dateFrom", Reason: "unparsable date " + raw.DateFrom}
		}
		f.DateFrom = &t
	}
	if raw.DateTo != "" {
		t, err := parseDate(raw.DateTo)
		if err != nil {
			return Filter{}, &customerr.ValidationError{Field: "dateTo", Reason: "unparsable date " + raw.DateTo}
		}
		f.DateTo = &t
	}

	if raw.AmountMin != "" {
		v, err := strconv.ParseFloat(raw.AmountMin, 64)
		if err != nil {
			return Filter{}, &customerr.ValidationError{Field: "amountMin", Reason: "not a number"}
		}
		f.AmountMin = &v
	}
	if raw.AmountMax != "" {
		v, err := strconv.ParseFloat(raw.AmountMax, 64)
		if err != nil {
			return Filter{}, &customerr.ValidationError{Field: "amountMax", Reason: "not a number"}
		}
		f.AmountMax = &v
	}

	if raw.Page != "" {
		p, err := strconv.Atoi(raw.Page)
		if err != nil {
			return Filter{}, &customerr.ValidationError{Field: "page", Reason: "not a number"}
		}
		f.Page = p
	}
	if f.Page < 1 {
		f.Page = 1
	}

	if raw.PageSize != "" {
		ps, err := strconv.Atoi(raw.PageSize)
		if err != nil {
			return Filter{}, &customerr.ValidationError{Field: "pageSize", Reason: "not a number"}
		}
		if ps < 1 {
			return Filter{}, &customerr.ValidationError{Field: "pageSize", Reason: "must be at least 1"}
		}
		f.PageSize = ps
	}
	if maxPageSize > 0 && f.PageSize > maxPageSize {
		f.PageSize = maxPageSize
	}

	if raw.SortBy != "" {
		switch raw.SortBy {
		case transaction.SortByDate, transaction.SortByAmount,
			transaction.SortByCategory, transaction.SortByStatus:
			f.SortBy = raw.SortBy
		default:
			return Filter{}, &customerr.ValidationError{Field: "sortBy", Reason: "unknown sort field " + raw.SortBy}
		}
	}

	switch raw.SortDir {
	case "", sortAsc:
	case sortDesc:
		f.SortDesc = true
	default:
		return Filter{}, &customerr.ValidationError{Field: "sortDir", Reason: "must be asc or desc"}
	}

	return f, nil
}

func parseDate(s string) (time.Time, error) {
	var err error
	for _, layout := range dateLayouts {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, err
}

func (f Filter) recordFilter() transaction.Filter {
	return transaction.Filter{
		Category:  f.Category,
		Status:    f.Status,
		DateFrom:  f.DateFrom,
		DateTo:    f.DateTo,
		AmountMin: f.AmountMin,
		AmountMax: f.AmountMax,
		SortBy:    f.SortBy,
		SortDesc:  f.SortDesc,
		Limit:     f.PageSize,
		Offset:    (f.Page - 1) * f.PageSize,
	}
}

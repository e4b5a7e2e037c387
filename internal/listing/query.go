// Package listing turns client-supplied list parameters into a bounded, validated
// product query. It performs no I/O; storage backends translate the Query.
package listing

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"catalog-api/internal/apperror"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100

	// MaxPage keeps (page-1)*limit within an int32 offset on every platform
	MaxPage = math.MaxInt32 / MaxLimit

	MaxSearchLength = 200
)

// SortOrder represents the sort direction
type SortOrder string

const (
	SortOrderAsc  SortOrder = "ASC"
	SortOrderDesc SortOrder = "DESC"
)

// Sortable product fields, named as they appear in JSON responses
const (
	FieldName      = "name"
	FieldPrice     = "price"
	FieldStock     = "stock"
	FieldCreatedAt = "created_at"
	FieldUpdatedAt = "updated_at"
)

var sortFields = map[string]string{
	"name":       FieldName,
	"price":      FieldPrice,
	"stock":      FieldStock,
	"created_at": FieldCreatedAt,
	"createdAt":  FieldCreatedAt,
	"updated_at": FieldUpdatedAt,
	"updatedAt":  FieldUpdatedAt,
}

// Params holds the raw query-string values of a list request
type Params struct {
	Page   string
	Limit  string
	Search string
	Sort   string
}

// Filter restricts which products match
type Filter struct {
	ActiveOnly bool
	Search     string
}

// SortField is one key of a multi-field sort
type SortField struct {
	Field string
	Order SortOrder
}

// Query is the validated form of Params
type Query struct {
	Filter Filter
	Sort   []SortField
	Page   int
	Skip   int
	Limit  int
}

// DefaultSort is applied when the client does not ask for an order
var DefaultSort = []SortField{{Field: FieldCreatedAt, Order: SortOrderDesc}}

// Build validates params and returns the query they describe. All violations are
// reported together as a single validation error.
func Build(params Params) (Query, error) {
	var violations []apperror.FieldError

	page, err := parseBounded(params.Page, DefaultPage, 1, MaxPage)
	if err != nil {
		violations = append(violations, apperror.FieldError{
			Field:   "page",
			Message: fmt.Sprintf("must be an integer between 1 and %d", MaxPage),
		})
	}

	limit, err := parseBounded(params.Limit, DefaultLimit, 1, MaxLimit)
	if err != nil {
		violations = append(violations, apperror.FieldError{
			Field:   "limit",
			Message: fmt.Sprintf("must be an integer between 1 and %d", MaxLimit),
		})
	}

	search := strings.TrimSpace(params.Search)
	if utf8.RuneCountInString(search) > MaxSearchLength {
		violations = append(violations, apperror.FieldError{
			Field:   "search",
			Message: fmt.Sprintf("must be at most %d characters", MaxSearchLength),
		})
	}

	sort, sortViolations := parseSort(params.Sort)
	violations = append(violations, sortViolations...)

	if len(violations) > 0 {
		return Query{}, apperror.NewValidation(violations)
	}

	return Query{
		Filter: Filter{ActiveOnly: true, Search: search},
		Sort:   sort,
		Page:   page,
		Skip:   (page - 1) * limit,
		Limit:  limit,
	}, nil
}

// parseBounded parses an optional integer within [min, max]
func parseBounded(raw string, def, min, max int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n < min || n > max {
		return 0, fmt.Errorf("value %d out of range", n)
	}
	return n, nil
}

func parseSort(raw string) ([]SortField, []apperror.FieldError) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return append([]SortField(nil), DefaultSort...), nil
	}

	var (
		fields     []SortField
		violations []apperror.FieldError
		seen       = make(map[string]bool)
	)

	for _, token := range strings.Split(raw, ",") {
		token = strings.TrimSpace(token)
		order := SortOrderAsc
		if strings.HasPrefix(token, "-") {
			order = SortOrderDesc
			token = token[1:]
		}

		if token == "" {
			violations = append(violations, apperror.FieldError{Field: "sort", Message: "contains an empty field"})
			continue
		}

		field, ok := sortFields[token]
		if !ok {
			violations = append(violations, apperror.FieldError{
				Field:   "sort",
				Message: fmt.Sprintf("unknown sort field %q", token),
			})
			continue
		}

		if seen[field] {
			violations = append(violations, apperror.FieldError{
				Field:   "sort",
				Message: fmt.Sprintf("field %q is listed more than once", token),
			})
			continue
		}
		seen[field] = true

		fields = append(fields, SortField{Field: field, Order: order})
	}

	return fields, violations
}

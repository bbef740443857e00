package service

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/satishbabariya/celquery/internal/core/query/domain"
	"github.com/satishbabariya/celquery/internal/core/schema"
)

// ErrInvalidOption wraps every error produced by a QueryOption.
var ErrInvalidOption = errors.New("invalid query option")

// QueryOption shapes a query before it is compiled.
type QueryOption func(*EntityService, *domain.Query) error

// WithOrderBy sorts by a root field of the entity's model.
func WithOrderBy(field string, direction domain.SortDirection) QueryOption {
	return func(s *EntityService, q *domain.Query) error {
		f, err := s.deps.Registry.GetField(s.model, field)
		if err != nil {
			return fmt.Errorf("%w: cannot order by %q: %w", ErrInvalidOption, field, err)
		}
		if f.IsList || s.deps.Registry.Classify(f.Type.Name) == schema.ModelType {
			return fmt.Errorf("%w: cannot order by %q: not a scalar field", ErrInvalidOption, field)
		}
		if slices.Contains(s.blacklist, field) {
			return fmt.Errorf("%w: cannot order by %q: field is not exposed", ErrInvalidOption, field)
		}
		column, err := s.deps.Registry.GetColumnName(s.model, field)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidOption, err)
		}
		q.Ordering = append(q.Ordering, domain.OrderBy{Column: column, Direction: direction})
		return nil
	}
}

// WithTake limits the number of rows returned.
func WithTake(n int) QueryOption {
	return func(_ *EntityService, q *domain.Query) error {
		if n < 0 {
			return fmt.Errorf("%w: take must not be negative, got %d", ErrInvalidOption, n)
		}
		q.Pagination.Take = &n
		return nil
	}
}

// WithSkip skips the first n rows.
func WithSkip(n int) QueryOption {
	return func(_ *EntityService, q *domain.Query) error {
		if n < 0 {
			return fmt.Errorf("%w: skip must not be negative, got %d", ErrInvalidOption, n)
		}
		q.Pagination.Skip = &n
		return nil
	}
}

// ParseOrder parses "field" or "field:desc" into a WithOrderBy option.
func ParseOrder(spec string) (QueryOption, error) {
	field, dir, _ := strings.Cut(spec, ":")
	switch strings.ToLower(dir) {
	case "", "asc":
		return WithOrderBy(field, domain.Asc), nil
	case "desc":
		return WithOrderBy(field, domain.Desc), nil
	}
	return nil, fmt.Errorf("%w: invalid sort direction %q", ErrInvalidOption, dir)
}

// Package service exposes models as filterable entities: it translates filter
// expressions, compiles them to SQL and runs them.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/satishbabariya/celquery/internal/adapters/telemetry"
	"github.com/satishbabariya/celquery/internal/cache"
	filter "github.com/satishbabariya/celquery/internal/core/filter/domain"
	"github.com/satishbabariya/celquery/internal/core/filter/translator"
	"github.com/satishbabariya/celquery/internal/core/query/domain"
	"github.com/satishbabariya/celquery/internal/core/schema"
)

// ErrEmptyFilter is returned when Filter receives a blank expression.
var ErrEmptyFilter = errors.New("filter cannot be empty")

// Deps are the collaborators shared by every entity service.
type Deps struct {
	Registry   *schema.MetadataRegistry
	Translator *translator.Translator
	Compiler   domain.QueryCompiler
	Executor   domain.QueryExecutor
	// Cache may be nil to disable translation caching.
	Cache     *cache.LRU[*filter.Translation]
	Telemetry telemetry.Telemetry
	Logger    *slog.Logger
}

// EntityService serves one entity backed by one root model.
type EntityService struct {
	name      string
	model     string
	table     string
	blacklist []string
	deps      Deps
}

// NewEntityService creates the service for model exposed as name.
func NewEntityService(name, model string, blacklist []string, deps Deps) (*EntityService, error) {
	table, err := deps.Registry.GetTableName(model)
	if err != nil {
		return nil, fmt.Errorf("entity %s: %w", name, err)
	}
	if deps.Telemetry == nil {
		deps.Telemetry = telemetry.NewNoopTelemetry()
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	return &EntityService{
		name:      strings.ToLower(name),
		model:     model,
		table:     table,
		blacklist: blacklist,
		deps:      deps,
	}, nil
}

// Name returns the entity name.
func (s *EntityService) Name() string { return s.name }

// Model returns the root model name.
func (s *EntityService) Model() string { return s.model }

// Blacklist returns the paths hidden from filters.
func (s *EntityService) Blacklist() []string { return s.blacklist }

// FindAll returns every row of the entity's table.
func (s *EntityService) FindAll(ctx context.Context, opts ...QueryOption) ([]domain.Row, error) {
	return s.run(ctx, s.newQuery(nil), opts)
}

// FindByID returns the row whose primary key equals id.
func (s *EntityService) FindByID(ctx context.Context, id int64) (domain.Row, bool, error) {
	pk, err := s.deps.Registry.GetPrimaryKey(s.model)
	if err != nil {
		return nil, false, err
	}
	if len(pk) != 1 {
		return nil, false, fmt.Errorf("%s has a composite primary key", s.model)
	}
	column, err := s.deps.Registry.GetColumnName(s.model, pk[0])
	if err != nil {
		return nil, false, err
	}

	q := s.newQuery(nil)
	q.Operation = domain.FindFirst
	q.Filter = filter.Compare{
		Field: filter.FieldRef{Path: pk[0], Column: column, Type: filter.TypeInt, Model: s.model},
		Op:    filter.OpEq,
		Value: id,
	}

	rows, err := s.run(ctx, q, nil)
	if err != nil || len(rows) == 0 {
		return nil, false, err
	}
	return rows[0], true, nil
}

// Filter returns the rows matching expr.
func (s *EntityService) Filter(ctx context.Context, expr string, opts ...QueryOption) ([]domain.Row, error) {
	translation, err := s.Translate(ctx, expr)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, domain.FromTranslation(translation), opts)
}

// Count returns the number of rows matching expr, or all rows when expr is blank.
func (s *EntityService) Count(ctx context.Context, expr string) (int64, error) {
	q := s.newQuery(nil)
	if strings.TrimSpace(expr) != "" {
		translation, err := s.Translate(ctx, expr)
		if err != nil {
			return 0, err
		}
		q = domain.FromTranslation(translation)
	}
	q.Operation = domain.Count

	rows, err := s.run(ctx, q, nil)
	if err != nil {
		return 0, err
	}
	return domain.CountOf(rows)
}

// Translate compiles expr against the entity's model, consulting the cache first.
func (s *EntityService) Translate(ctx context.Context, expr string) (*filter.Translation, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, ErrEmptyFilter
	}

	key := cache.Key(s.name, expr, strings.Join(s.blacklist, ","))
	if s.deps.Cache != nil {
		if t, ok := s.deps.Cache.Get(key); ok {
			s.deps.Telemetry.RecordCache(ctx, true)
			return t, nil
		}
		s.deps.Telemetry.RecordCache(ctx, false)
	}

	start := time.Now()
	t, err := s.deps.Translator.Translate(ctx, expr, s.model, s.blacklist)

	info := telemetry.TranslationInfo{Root: s.model, Duration: time.Since(start)}
	if err != nil {
		kind, ok := filter.KindOf(err)
		if !ok {
			kind = "Internal"
		}
		info.ErrorKind = string(kind)
		s.deps.Telemetry.RecordTranslation(ctx, info)
		s.deps.Logger.Debug("translation rejected", "entity", s.name, "expr", expr, "error", err)
		return nil, err
	}
	info.Joins = len(t.Joins)
	s.deps.Telemetry.RecordTranslation(ctx, info)

	if s.deps.Cache != nil {
		s.deps.Cache.Set(key, t)
	}
	return t, nil
}

func (s *EntityService) newQuery(pred filter.Predicate) *domain.Query {
	return &domain.Query{
		Model:     s.model,
		Table:     s.table,
		Operation: domain.FindMany,
		Filter:    pred,
	}
}

func (s *EntityService) run(ctx context.Context, q *domain.Query, opts []QueryOption) ([]domain.Row, error) {
	for _, opt := range opts {
		if err := opt(s, q); err != nil {
			return nil, err
		}
	}

	compiled, err := s.deps.Compiler.Compile(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to compile query: %w", err)
	}
	s.deps.Logger.Debug("executing query", "entity", s.name, "sql", compiled.SQL.Query, "args", len(compiled.SQL.Args))

	return s.deps.Executor.Execute(ctx, compiled)
}

// Package translator is the entry point of the filter engine: it parses CEL filter
// text and compiles it into a predicate tree over a root model.
package translator

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/google/cel-go/common/ast"

	"github.com/satishbabariya/celquery/internal/core/filter/compiler"
	"github.com/satishbabariya/celquery/internal/core/filter/domain"
	"github.com/satishbabariya/celquery/internal/core/filter/environment"
	"github.com/satishbabariya/celquery/internal/core/filter/resolver"
	"github.com/satishbabariya/celquery/internal/core/schema"
)

// Translator compiles filter expressions. It is safe for concurrent use; built
// environments are cached per root model and blacklist.
type Translator struct {
	registry  *schema.MetadataRegistry
	builder   *environment.Builder
	typeCheck bool
	opts      compiler.Options
	logger    *slog.Logger

	mu   sync.Mutex
	envs map[string]*environment.Environment
}

// Option configures a Translator.
type Option func(*Translator)

// WithTypeCheck runs the cel-go checker on parsed expressions after compiling.
// The checker is stricter than the compiler: it rejects int literals against
// double fields and strings against timestamp fields.
func WithTypeCheck(enabled bool) Option {
	return func(t *Translator) {
		t.typeCheck = enabled
	}
}

// WithLegacyTautologies enables compiler.Options.LegacyTautologies.
func WithLegacyTautologies(enabled bool) Option {
	return func(t *Translator) {
		t.opts.LegacyTautologies = enabled
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Translator) {
		t.logger = logger
	}
}

// New creates a translator over registry.
func New(registry *schema.MetadataRegistry, opts ...Option) *Translator {
	t := &Translator{
		registry: registry,
		logger:   slog.New(slog.DiscardHandler),
		envs:     make(map[string]*environment.Environment),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.builder = environment.NewBuilder(registry, t.logger)
	return t
}

// Environment returns the environment of root minus blacklist, building it on first use.
func (t *Translator) Environment(root string, blacklist []string) (*environment.Environment, error) {
	key := envKey(root, blacklist)

	t.mu.Lock()
	env, ok := t.envs[key]
	t.mu.Unlock()
	if ok {
		return env, nil
	}

	env, err := t.builder.Build(root, blacklist)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if cached, ok := t.envs[key]; ok {
		return cached, nil
	}
	t.envs[key] = env
	return env, nil
}

// Invalidate drops every cached environment, e.g. after the schema was reloaded.
func (t *Translator) Invalidate() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.envs = make(map[string]*environment.Environment)
}

func envKey(root string, blacklist []string) string {
	sorted := slices.Clone(blacklist)
	slices.Sort(sorted)
	return root + "|" + strings.Join(slices.Compact(sorted), ",")
}

// Translate parses src and compiles it against root.
func (t *Translator) Translate(ctx context.Context, src, root string, blacklist []string) (*domain.Translation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	env, err := t.Environment(root, blacklist)
	if err != nil {
		return nil, err
	}
	celEnv, err := env.CELEnv()
	if err != nil {
		return nil, err
	}

	parsed, iss := celEnv.Parse(src)
	if iss.Err() != nil {
		return nil, domain.Errorf(domain.KindSyntax, "%s", strings.TrimSpace(iss.Err().Error()))
	}

	result, err := t.compile(env, parsed.NativeRep().Expr())
	if err != nil {
		return nil, err
	}

	if t.typeCheck {
		if _, iss := celEnv.Check(parsed); iss.Err() != nil {
			return nil, domain.Errorf(domain.KindTypeMismatch, "%s", strings.TrimSpace(iss.Err().Error()))
		}
	}
	return result, nil
}

// TranslateAST compiles an already parsed expression against root.
func (t *Translator) TranslateAST(ctx context.Context, expr ast.Expr, root string, blacklist []string) (*domain.Translation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	env, err := t.Environment(root, blacklist)
	if err != nil {
		return nil, err
	}
	return t.compile(env, expr)
}

func (t *Translator) compile(env *environment.Environment, expr ast.Expr) (*domain.Translation, error) {
	rc := resolver.NewContext(env, t.registry)
	pred, err := compiler.New(rc, t.opts, t.logger).Compile(expr)
	if err != nil {
		t.logger.Debug("translation failed", "root", env.Root(), "error", err)
		return nil, err
	}

	return &domain.Translation{
		Root:      env.Root(),
		Table:     env.Table(),
		Predicate: pred,
		Joins:     rc.Joins(),
		Distinct:  rc.HasJoins(),
	}, nil
}

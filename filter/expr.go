package filter

import (
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// exprFilter implements CompiledFilter using the expr language
type exprFilter struct {
	expression string
	program    *vm.Program
}

// ExprCompilerOption configures an expr compiler
type ExprCompilerOption func(*exprCompiler)

// WithCache enables filter caching with the specified size
func WithCache(size int) ExprCompilerOption {
	return func(c *exprCompiler) {
		if size > 0 {
			c.cache = newLRUCache[CompiledFilter](size)
		}
	}
}

// WithCustomFunctions adds custom helper functions
func WithCustomFunctions(funcs map[string]any) ExprCompilerOption {
	return func(c *exprCompiler) {
		maps.Copy(c.helperFuncs, funcs)
	}
}

// NewExprCompiler creates a new expr-based filter compiler
func NewExprCompiler(opts ...ExprCompilerOption) CachingCompiler {
	c := &exprCompiler{
		helperFuncs: createHelperFunctions(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// exprCompiler implements Compiler for expr-based filters
type exprCompiler struct {
	helperFuncs map[string]any
	cache       *lruCache[CompiledFilter]
}

// Compile compiles an expression into an executable filter
func (c *exprCompiler) Compile(expression string) (CompiledFilter, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "empty expression",
		}
	}

	if c.cache != nil {
		if cached, ok := c.cache.Get(expression); ok {
			return cached, nil
		}
	}

	// Manga fields are only known at run time, helpers are checked now.
	program, err := expr.Compile(expression,
		expr.Env(c.helperFuncs),
		expr.AllowUndefinedVariables(),
		expr.AsBool(),
	)
	if err != nil {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "failed to compile expression",
			Err:        err,
		}
	}

	filter := &exprFilter{
		expression: expression,
		program:    program,
	}

	if c.cache != nil {
		c.cache.Put(expression, filter)
	}

	return filter, nil
}

// Clear removes all cached filters
func (c *exprCompiler) Clear() {
	if c.cache != nil {
		c.cache.Clear()
	}
}

// Size returns the number of cached filters
func (c *exprCompiler) Size() int {
	if c.cache != nil {
		return c.cache.Size()
	}
	return 0
}

// Evaluate reports whether the manga matches. A runtime error counts as no
// match.
func (f *exprFilter) Evaluate(manga MangaInfo) bool {
	ok, err := f.Match(manga)
	return err == nil && ok
}

// Match runs the filter against a manga.
func (f *exprFilter) Match(manga MangaInfo) (bool, error) {
	result, err := expr.Run(f.program, createRuntimeEnvironment(manga))
	if err != nil {
		return false, &EvaluationError{
			Expression: f.expression,
			MangaTitle: manga.Title,
			Err:        err,
		}
	}

	// AsBool guarantees the type
	return result.(bool), nil
}

// Expression returns the original expression
func (f *exprFilter) Expression() string {
	return f.expression
}

func createHelperFunctions() map[string]any {
	funcs := make(map[string]any, 32)
	addHelperFunctions(funcs)
	addMangaHelpers(funcs, MangaInfo{})
	return funcs
}

// addHelperFunctions adds the helpers that do not depend on the manga
func addHelperFunctions(env map[string]any) {
	// Date helpers
	env["daysSince"] = func(t time.Time) int {
		return int(time.Since(t).Hours() / 24)
	}
	env["daysAgo"] = func(days int) time.Time {
		return time.Now().AddDate(0, 0, -days)
	}
	env["monthsAgo"] = func(months int) time.Time {
		return time.Now().AddDate(0, -months, 0)
	}
	env["yearsAgo"] = func(years int) time.Time {
		return time.Now().AddDate(-years, 0, 0)
	}
	env["parseDate"] = func(dateStr string) time.Time {
		t, _ := time.Parse("2006-01-02", dateStr)
		return t
	}
	// String helpers
	env["contains"] = func(str, substr string) bool {
		return strings.Contains(strings.ToLower(str), strings.ToLower(substr))
	}
	env["startsWith"] = func(str, prefix string) bool {
		return strings.HasPrefix(strings.ToLower(str), strings.ToLower(prefix))
	}
	env["endsWith"] = func(str, suffix string) bool {
		return strings.HasSuffix(strings.ToLower(str), strings.ToLower(suffix))
	}
	env["lower"] = strings.ToLower
	env["upper"] = strings.ToUpper
	env["now"] = time.Now
}

// addMangaHelpers adds helpers that close over one manga
func addMangaHelpers(env map[string]any, manga MangaInfo) {
	env["hasTag"] = containsFold(manga.Tags)
	env["hasLanguage"] = containsFold(manga.Languages)
	env["byAuthor"] = func(name string) bool {
		for _, a := range manga.Authors {
			if strings.Contains(strings.ToLower(a), strings.ToLower(name)) {
				return true
			}
		}
		return false
	}
	env["titleMatches"] = func(substr string) bool {
		substr = strings.ToLower(substr)
		if strings.Contains(strings.ToLower(manga.Title), substr) {
			return true
		}
		return slices.ContainsFunc(manga.AltTitles, func(t string) bool {
			return strings.Contains(strings.ToLower(t), substr)
		})
	}
}

// createRuntimeEnvironment creates the runtime environment for filter evaluation
func createRuntimeEnvironment(manga MangaInfo) map[string]any {
	env := make(map[string]any, 48)

	addHelperFunctions(env)
	addMangaHelpers(env, manga)

	env["Manga"] = manga

	// Direct manga properties for convenience
	env["ID"] = manga.ID
	env["Title"] = manga.Title
	env["AltTitles"] = manga.AltTitles
	env["Status"] = manga.Status
	env["ContentRating"] = manga.ContentRating
	env["Demographic"] = manga.Demographic
	env["Year"] = manga.Year
	env["OriginalLanguage"] = manga.OriginalLanguage
	env["Languages"] = manga.Languages
	env["Tags"] = manga.Tags
	env["Authors"] = manga.Authors
	env["LastChapter"] = manga.LastChapter
	env["CreatedAt"] = manga.CreatedAt
	env["UpdatedAt"] = manga.UpdatedAt
	// Statistics
	env["Follows"] = manga.Follows
	env["Rating"] = manga.Rating
	env["Bayesian"] = manga.Bayesian

	return env
}

func containsFold(values []string) func(string) bool {
	lower := make([]string, len(values))
	for i, v := range values {
		lower[i] = strings.ToLower(v)
	}
	return func(s string) bool {
		return slices.Contains(lower, strings.ToLower(s))
	}
}

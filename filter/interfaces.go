package filter

import (
	"context"
)

// Filter defines the basic interface for manga filters
type Filter interface {
	// Evaluate checks if a manga matches the filter criteria
	Evaluate(manga MangaInfo) bool
}

// CompiledFilter represents a pre-compiled filter ready for evaluation
type CompiledFilter interface {
	Filter

	// Match is Evaluate with the runtime error, if any
	Match(manga MangaInfo) (bool, error)

	// Expression returns the original filter expression
	Expression() string
}

// Compiler compiles filter expressions into executable filters
type Compiler interface {
	// Compile parses and compiles a filter expression
	Compile(expression string) (CompiledFilter, error)
}

// Evaluator evaluates filters against manga
type Evaluator interface {
	// Evaluate evaluates a filter against all manga, keeping their order
	Evaluate(ctx context.Context, filter CompiledFilter, manga []MangaInfo) ([]MangaInfo, error)
}

// BatchEvaluator evaluates multiple filters concurrently
type BatchEvaluator interface {
	// EvaluateBatch evaluates multiple filters against manga concurrently
	EvaluateBatch(ctx context.Context, filters map[string]CompiledFilter, manga []MangaInfo) (map[string][]MangaInfo, error)
}

// CachingCompiler provides caching for compiled filters
type CachingCompiler interface {
	Compiler

	// Clear removes all cached filters
	Clear()

	// Size returns the number of cached filters
	Size() int
}

package mangadex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"golang.org/x/sync/errgroup"
)

// maxSuggestions caps the "did you mean" list of an UnknownTagError.
const maxSuggestions = 3

// UnknownTagError is returned for a tag name missing from the catalog.
type UnknownTagError struct {
	Name        string
	Suggestions []string
}

func (e *UnknownTagError) Error() string {
	if len(e.Suggestions) == 0 {
		return fmt.Sprintf("unknown tag %q", e.Name)
	}
	return fmt.Sprintf("unknown tag %q, did you mean %s?", e.Name, strings.Join(e.Suggestions, ", "))
}

// Catalog holds the lookup tables that turn human names into MangaDex ids:
// tag names and report reasons per category. It is safe for concurrent use.
type Catalog struct {
	mu      sync.RWMutex
	tags    map[string]string
	reasons map[ReportCategory]map[string]string
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		tags:    make(map[string]string),
		reasons: make(map[ReportCategory]map[string]string),
	}
}

// SetTags replaces the tag table.
func (c *Catalog) SetTags(tags map[string]string) {
	cp := make(map[string]string, len(tags))
	for k, v := range tags {
		cp[k] = v
	}
	c.mu.Lock()
	c.tags = cp
	c.mu.Unlock()
}

// Tags returns a copy of the tag table.
func (c *Catalog) Tags() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cp := make(map[string]string, len(c.tags))
	for k, v := range c.tags {
		cp[k] = v
	}
	return cp
}

// TagNames returns the tag names in sorted order.
func (c *Catalog) TagNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.tags))
	for name := range c.tags {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TagID resolves a tag name case-insensitively.
func (c *Catalog) TagID(name string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if id, ok := c.tags[name]; ok {
		return id, nil
	}
	for tag, id := range c.tags {
		if strings.EqualFold(tag, name) {
			return id, nil
		}
	}
	return "", &UnknownTagError{Name: name, Suggestions: c.suggest(name)}
}

// TagIDs resolves several tag names, failing on the first unknown one.
func (c *Catalog) TagIDs(names ...string) ([]string, error) {
	ids := make([]string, 0, len(names))
	for _, name := range names {
		id, err := c.TagID(name)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// suggest ranks close tag names. The caller must hold c.mu.
func (c *Catalog) suggest(name string) []string {
	names := make([]string, 0, len(c.tags))
	for tag := range c.tags {
		names = append(names, tag)
	}
	sort.Strings(names)

	ranks := fuzzy.RankFindFold(name, names)
	sort.Sort(ranks)

	var out []string
	for _, r := range ranks {
		out = append(out, r.Target)
		if len(out) == maxSuggestions {
			return out
		}
	}
	if len(out) > 0 {
		return out
	}

	// Subsequence matching misses typos, so fall back to edit distance.
	type scored struct {
		name string
		dist int
	}
	var close []scored
	lower := strings.ToLower(name)
	for _, tag := range names {
		if d := fuzzy.LevenshteinDistance(lower, strings.ToLower(tag)); d <= 3 {
			close = append(close, scored{tag, d})
		}
	}
	sort.SliceStable(close, func(i, j int) bool { return close[i].dist < close[j].dist })
	for _, s := range close {
		out = append(out, s.name)
		if len(out) == maxSuggestions {
			break
		}
	}
	return out
}

// NormalizeReasonKey turns a report reason's English text into its lookup
// key, e.g. "Duplicate/Spam" becomes "duplicate_or_spam".
func NormalizeReasonKey(reason string) string {
	key := strings.ToLower(reason)
	key = strings.ReplaceAll(key, "-", "")
	key = strings.ReplaceAll(key, "/", " or ")
	return strings.ReplaceAll(key, " ", "_")
}

// SetReportReasons replaces the reason table of one category.
func (c *Catalog) SetReportReasons(category ReportCategory, reasons map[string]string) {
	cp := make(map[string]string, len(reasons))
	for k, v := range reasons {
		cp[k] = v
	}
	c.mu.Lock()
	c.reasons[category] = cp
	c.mu.Unlock()
}

// ReportReasons returns a copy of every reason table.
func (c *Catalog) ReportReasons() map[ReportCategory]map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[ReportCategory]map[string]string, len(c.reasons))
	for cat, reasons := range c.reasons {
		cp := make(map[string]string, len(reasons))
		for k, v := range reasons {
			cp[k] = v
		}
		out[cat] = cp
	}
	return out
}

// ReportReasonID resolves a reason key, normalising it first so the English
// text works as well as the key.
func (c *Catalog) ReportReasonID(category ReportCategory, reason string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	reasons, ok := c.reasons[category]
	if !ok {
		return "", fmt.Errorf("no report reasons loaded for category %q", category)
	}
	if id, ok := reasons[reason]; ok {
		return id, nil
	}
	if id, ok := reasons[NormalizeReasonKey(reason)]; ok {
		return id, nil
	}
	return "", fmt.Errorf("unknown %s report reason %q", category, reason)
}

// LoadTags reads a name to id JSON object from path.
func (c *Catalog) LoadTags(path string) error {
	var tags map[string]string
	if err := readJSON(path, &tags); err != nil {
		return err
	}
	c.SetTags(tags)
	return nil
}

// SaveTags writes the tag table to path as an indented JSON object. Keys
// come out sorted because encoding/json sorts map keys.
func (c *Catalog) SaveTags(path string) error {
	return writeJSON(path, c.Tags())
}

// LoadReportReasons reads a category to reason table JSON object from path.
func (c *Catalog) LoadReportReasons(path string) error {
	var reasons map[ReportCategory]map[string]string
	if err := readJSON(path, &reasons); err != nil {
		return err
	}
	for cat, table := range reasons {
		c.SetReportReasons(cat, table)
	}
	return nil
}

// SaveReportReasons writes every reason table to path.
func (c *Catalog) SaveReportReasons(path string) error {
	return writeJSON(path, c.ReportReasons())
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// UpdateTags refreshes the catalog's tag table from the API and returns it.
func (c *Client) UpdateTags(ctx context.Context) (map[string]string, error) {
	tags, err := c.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tags: %w", err)
	}

	table := make(map[string]string, len(tags))
	for _, tag := range tags {
		table[tag.Attributes.Name.Get("en")] = tag.ID
	}
	c.catalog.SetTags(table)

	c.logger.Debug().Int("count", len(table)).Msg("Updated tag catalog")
	return table, nil
}

// UpdateReportReasons refreshes the reason tables of every category. It
// costs one authenticated request per category.
func (c *Client) UpdateReportReasons(ctx context.Context) (map[ReportCategory]map[string]string, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(2)

	var mu sync.Mutex
	out := make(map[ReportCategory]map[string]string, len(ReportCategories))

	for _, category := range ReportCategories {
		g.Go(func() error {
			reasons, err := c.ListReportReasons(ctx, category)
			if err != nil {
				return fmt.Errorf("failed to fetch %s report reasons: %w", category, err)
			}

			table := make(map[string]string, len(reasons))
			for _, r := range reasons {
				text := r.Attributes.Reason.Get("en")
				if text == "" {
					continue
				}
				table[NormalizeReasonKey(text)] = r.ID
			}

			mu.Lock()
			out[category] = table
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for category, table := range out {
		c.catalog.SetReportReasons(category, table)
	}
	return out, nil
}

// ListReportReasons fetches the report reasons of one category.
func (c *Client) ListReportReasons(ctx context.Context, category ReportCategory) ([]ReportReason, error) {
	route := MustRoute(http.MethodGet, "/report/reasons/{report_category}", map[string]string{
		"report_category": string(category),
	}).WithAuth()
	resp, err := fetch[CollectionResponse[ReportReasonAttributes]](ctx, c, route, nil)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// errNoReason is returned when a report is created without a reason.
var errNoReason = errors.New("report reason is required")

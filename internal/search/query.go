package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// DefaultLimit caps the number of hits returned when a query sets no limit.
const DefaultLimit = 1000

// SearchParams configures a catalog query.
type SearchParams struct {
	Query      string   // Free text matched against title, author and publisher
	LibraryID  string   // Restrict to one library
	Categories []string // Restrict to these categories (OR)
	Limit      int
}

// SearchResult holds the hits of a query, best match first.
type SearchResult struct {
	Query  string      `json:"query"`
	Total  uint64      `json:"total"`
	TookMs int64       `json:"took_ms"`
	Hits   []SearchHit `json:"hits"`
}

// SearchHit is a single matching book.
type SearchHit struct {
	ID       string  `json:"id"`
	Score    float64 `json:"score"`
	Title    string  `json:"title"`
	Author   string  `json:"author"`
	Category string  `json:"category,omitempty"`
}

// IDs returns the book IDs of the hits in rank order.
func (r *SearchResult) IDs() []string {
	ids := make([]string, len(r.Hits))
	for i, h := range r.Hits {
		ids[i] = h.ID
	}
	return ids
}

// Search executes a catalog query.
func (s *SearchIndex) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := params.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	req := bleve.NewSearchRequestOptions(buildSearchQuery(params), limit, 0, false)
	req.SortBy([]string{"-_score", "-created_at"})
	req.Fields = []string{"title", "author", "category"}

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &SearchResult{
		Query:  params.Query,
		Total:  res.Total,
		TookMs: res.Took.Milliseconds(),
		Hits:   make([]SearchHit, 0, len(res.Hits)),
	}
	for _, hit := range res.Hits {
		h := SearchHit{ID: hit.ID, Score: hit.Score}
		if v, ok := hit.Fields["title"].(string); ok {
			h.Title = v
		}
		if v, ok := hit.Fields["author"].(string); ok {
			h.Author = v
		}
		if v, ok := hit.Fields["category"].(string); ok {
			h.Category = v
		}
		result.Hits = append(result.Hits, h)
	}

	return result, nil
}

// buildSearchQuery constructs the Bleve query from params.
func buildSearchQuery(params SearchParams) query.Query {
	var queries []query.Query

	if q := strings.TrimSpace(params.Query); q != "" {
		titleMatch := bleve.NewMatchQuery(q)
		titleMatch.SetField("title")
		titleMatch.SetBoost(3.0)

		authorMatch := bleve.NewMatchQuery(q)
		authorMatch.SetField("author")
		authorMatch.SetBoost(2.0)

		publisherMatch := bleve.NewMatchQuery(q)
		publisherMatch.SetField("publisher")

		isbnTerm := bleve.NewTermQuery(q)
		isbnTerm.SetField("isbn")
		isbnTerm.SetBoost(5.0)

		// Typo tolerance on titles.
		fuzzy := bleve.NewFuzzyQuery(strings.ToLower(q))
		fuzzy.SetFuzziness(1)
		fuzzy.SetField("title")
		fuzzy.SetBoost(0.8)

		text := []query.Query{titleMatch, authorMatch, publisherMatch, isbnTerm, fuzzy}

		// Prefix matching for search-as-you-type.
		if len([]rune(q)) >= 2 {
			prefix := bleve.NewPrefixQuery(strings.ToLower(q))
			prefix.SetField("title")
			prefix.SetBoost(0.5)
			text = append(text, prefix)
		}

		queries = append(queries, bleve.NewDisjunctionQuery(text...))
	}

	if params.LibraryID != "" {
		lq := bleve.NewTermQuery(params.LibraryID)
		lq.SetField("library_id")
		queries = append(queries, lq)
	}

	if len(params.Categories) > 0 {
		cats := make([]query.Query, len(params.Categories))
		for i, c := range params.Categories {
			cq := bleve.NewTermQuery(c)
			cq.SetField("category")
			cats[i] = cq
		}
		queries = append(queries, bleve.NewDisjunctionQuery(cats...))
	}

	switch len(queries) {
	case 0:
		return bleve.NewMatchAllQuery()
	case 1:
		return queries[0]
	default:
		return bleve.NewConjunctionQuery(queries...)
	}
}

package schema

import (
	"context"
	"log/slog"
	"sort"

	"github.com/duplocloud/dcaf-sub001/internal/config"
)

// fallbackResultCount is how many raw matches are kept when nothing clears
// the similarity threshold. The selector never returns an empty list while
// the index has content.
const fallbackResultCount = 5

// Selector orchestrates the vector index into a relevance pipeline: query
// expansion, per-variant search, de-duplication by highest score, threshold
// filtering with a raw-match fallback, a top-K cap, and an optional one-hop
// relationship closure.
type Selector struct {
	index     VectorIndex
	topK      int
	threshold float64
	expand    bool
	logger    *slog.Logger
}

// NewSelector creates a Selector over the given index.
func NewSelector(index VectorIndex, cfg config.IndexConfig, logger *slog.Logger) *Selector {
	return &Selector{
		index:     index,
		topK:      cfg.TopK,
		threshold: cfg.SimilarityThreshold,
		expand:    cfg.ExpandRelationships,
		logger:    logger,
	}
}

// SelectRelevant returns the schema elements most relevant to the query,
// ranked by similarity. Index transport failures propagate to the caller;
// "no good matches" never does.
func (s *Selector) SelectRelevant(ctx context.Context, query string) ([]Element, error) {
	variants := ExpandQuery(query)
	s.logger.Debug("expanded retrieval query", "variants", len(variants))

	best := make(map[string]Element)
	for _, variant := range variants {
		hits, err := s.index.Search(ctx, variant, s.topK)
		if err != nil {
			return nil, err
		}
		for _, hit := range hits {
			key := hit.Key()
			if existing, ok := best[key]; !ok || hit.Similarity > existing.Similarity {
				best[key] = hit
			}
		}
	}

	all := make([]Element, 0, len(best))
	for _, elem := range best {
		all = append(all, elem)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Similarity > all[j].Similarity })

	selected := make([]Element, 0, len(all))
	for _, elem := range all {
		if elem.Similarity >= s.threshold {
			selected = append(selected, elem)
		}
	}
	if len(selected) == 0 && len(all) > 0 {
		// nothing cleared the threshold; top raw matches beat an empty answer
		n := fallbackResultCount
		if n > len(all) {
			n = len(all)
		}
		selected = all[:n]
		s.logger.Debug("similarity threshold filtered all hits, falling back to raw matches",
			"kept", len(selected), "threshold", s.threshold)
	}

	if s.topK > 0 && len(selected) > s.topK {
		selected = selected[:s.topK]
	}

	if s.expand {
		var err error
		selected, err = s.expandRelationships(ctx, selected)
		if err != nil {
			return nil, err
		}
	}

	return selected, nil
}

// expandRelationships performs the bounded one-hop closure: for every
// selected node label, search for relationships mentioning that label and
// add those whose endpoints are already in the selected label set. A single
// hop only; full neighborhood expansion is deliberately avoided.
func (s *Selector) expandRelationships(ctx context.Context, selected []Element) ([]Element, error) {
	labels := make(map[string]bool)
	present := make(map[string]bool)
	for _, elem := range selected {
		present[elem.Key()] = true
		if elem.Kind == KindNode && elem.Label != "" {
			labels[elem.Label] = true
		}
	}
	if len(labels) == 0 {
		return selected, nil
	}

	for label := range labels {
		hits, err := s.index.Search(ctx, label+" relationship", s.topK)
		if err != nil {
			return nil, err
		}
		for _, hit := range hits {
			if hit.Kind != KindRelationship || present[hit.Key()] {
				continue
			}
			if labels[hit.StartLabel] || labels[hit.EndLabel] {
				present[hit.Key()] = true
				selected = append(selected, hit)
			}
		}
	}
	return selected, nil
}

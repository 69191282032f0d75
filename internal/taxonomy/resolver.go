// Package taxonomy resolves free-text genre, subgenre, theme and trope labels
// against the canonical term list and ranks the resulting selections.
package taxonomy

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	domainerrors "github.com/shelfwise/shelfwise-server/internal/errors"
)

// TermStore looks up canonical terms by case-folded name key.
type TermStore interface {
	LookupTerms(ctx context.Context, category domain.Category, keys []string) (map[string]*domain.TaxonomyTerm, error)
}

// Label is one raw input label, reported back when it could not be linked.
type Label struct {
	Category domain.Category `json:"category"`
	Text     string          `json:"text"`
	Reason   string          `json:"reason,omitempty"` // set on capped labels
}

func (l Label) String() string {
	return fmt.Sprintf("%s %q", l.Category, l.Text)
}

// Resolution is the outcome of resolving one book's labels.
type Resolution struct {
	Selections   []domain.TaxonomySelection
	Unresolved   []Label
	Capped       []Label
	Duplicates   []Label
	BelowMinimum bool
}

// Warnings renders the non-fatal outcomes in a stable order.
func (r *Resolution) Warnings() []domain.Warning {
	var out []domain.Warning
	for _, l := range r.Unresolved {
		out = append(out, domain.Warning{Kind: domain.WarningTaxonomyUnresolved, Subject: l.String()})
	}
	for _, l := range r.Capped {
		out = append(out, domain.Warning{Kind: domain.WarningTaxonomyCapped, Subject: l.String(), Detail: l.Reason})
	}
	for _, l := range r.Duplicates {
		out = append(out, domain.Warning{Kind: domain.WarningTaxonomyDuplicate, Subject: l.String()})
	}
	if r.BelowMinimum {
		out = append(out, domain.Warning{
			Kind:   domain.WarningTaxonomyBelowMinimum,
			Detail: fmt.Sprintf("%d of %d recommended", len(r.Selections), RecommendedMinimum),
		})
	}
	return out
}

// Resolver maps labels to term selections.
type Resolver struct {
	terms  TermStore
	logger *slog.Logger
}

// NewResolver creates a resolver backed by terms.
func NewResolver(terms TermStore, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Resolver{terms: terms, logger: logger}
}

// Resolve matches labels category by category in priority order, applies the
// mode's caps and assigns dense ranks. Only lookup failures return an error;
// label problems are reported on the Resolution.
func (r *Resolver) Resolve(ctx context.Context, labels domain.TaxonomyLabels, mode Mode) (*Resolution, error) {
	policy := mode.Policy()
	res := &Resolution{}
	selected := make(map[int64]bool)

	for _, category := range domain.Categories {
		raw := labels.ByCategory(category)
		if len(raw) == 0 {
			continue
		}

		keys := make([]string, 0, len(raw))
		for _, text := range raw {
			if k := Key(text); k != "" && !slices.Contains(keys, k) {
				keys = append(keys, k)
			}
		}
		if len(keys) == 0 {
			continue
		}

		found, err := r.terms.LookupTerms(ctx, category, keys)
		if err != nil {
			return nil, fmt.Errorf("lookup %s terms: %w", category, err)
		}

		limit := policy.Cap(category)
		inCategory := 0
		for _, text := range raw {
			key := Key(text)
			if key == "" {
				continue
			}
			label := Label{Category: category, Text: strings.TrimSpace(text)}

			term, ok := found[key]
			if !ok {
				res.Unresolved = append(res.Unresolved, label)
				continue
			}
			if selected[term.ID] {
				res.Duplicates = append(res.Duplicates, label)
				continue
			}
			if limit > 0 && inCategory >= limit {
				label.Reason = fmt.Sprintf("%s limit %d", category, limit)
				res.Capped = append(res.Capped, label)
				continue
			}
			if len(res.Selections) >= policy.MaxTotal {
				label.Reason = fmt.Sprintf("total limit %d", policy.MaxTotal)
				res.Capped = append(res.Capped, label)
				continue
			}

			selected[term.ID] = true
			inCategory++
			res.Selections = append(res.Selections, domain.TaxonomySelection{
				TaxonomyID: term.ID,
				Category:   category,
				Rank:       len(res.Selections) + 1,
				Name:       term.Name,
				Slug:       term.Slug,
			})
		}
	}

	res.BelowMinimum = policy.MinTotal > 0 && len(res.Selections) < policy.MinTotal

	if len(res.Unresolved)+len(res.Capped)+len(res.Duplicates) > 0 {
		r.logger.Debug("taxonomy labels dropped",
			"mode", string(mode),
			"selected", len(res.Selections),
			"unresolved", len(res.Unresolved),
			"capped", len(res.Capped),
			"duplicates", len(res.Duplicates),
		)
	}
	return res, nil
}

// Rerank applies a new ordering to a book's current selections. Every ID in
// order must already be linked; IDs left out are dropped. Ranks are
// recomputed densely from 1.
func Rerank(current []domain.TaxonomySelection, order []int64) ([]domain.TaxonomySelection, error) {
	byID := make(map[int64]domain.TaxonomySelection, len(current))
	for _, s := range current {
		byID[s.TaxonomyID] = s
	}

	out := make([]domain.TaxonomySelection, 0, len(order))
	seen := make(map[int64]bool, len(order))
	for _, id := range order {
		if seen[id] {
			return nil, domainerrors.Validationf("taxonomy %d listed more than once", id)
		}
		seen[id] = true

		s, ok := byID[id]
		if !ok {
			return nil, domainerrors.Validationf("taxonomy %d is not linked to this book", id)
		}
		s.Rank = len(out) + 1
		out = append(out, s)
	}
	return out, nil
}

// Importance is the display weight for a rank: 1 / (1 + ln(rank)).
func Importance(rank int) float64 {
	return domain.Importance(rank)
}

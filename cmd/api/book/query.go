package book

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Scope selects the candidate set of a query: every book, or the books of one owner.
type Scope struct {
	public bool
	owner  uuid.UUID
}

func PublicScope() Scope {
	return Scope{public: true}
}

func OwnedBy(ownerID uuid.UUID) Scope {
	return Scope{owner: ownerID}
}

func (sc Scope) Public() bool {
	return sc.public
}

func (sc Scope) Owner() uuid.UUID {
	return sc.owner
}

// Filter holds optional predicates; nil or empty fields impose no constraint.
type Filter struct {
	Search   string
	Category string
	MinPrice *float64
	MaxPrice *float64
}

/* Returns the books matching every predicate of the filter, newest first. */
func Query(books []Book, filter Filter) []Book {
	search := strings.ToLower(filter.Search)

	matching := []Book{}
	for _, b := range books {
		if search != "" &&
			!strings.Contains(strings.ToLower(b.Name), search) &&
			!strings.Contains(strings.ToLower(b.Description), search) {
			continue
		}
		if filter.Category != "" && b.Category != filter.Category {
			continue
		}
		if filter.MinPrice != nil && b.Price < *filter.MinPrice {
			continue
		}
		if filter.MaxPrice != nil && b.Price > *filter.MaxPrice {
			continue
		}
		matching = append(matching, b)
	}

	sortNewestFirst(matching)
	return matching
}

func sortNewestFirst(books []Book) {
	sort.SliceStable(books, func(i, j int) bool {
		if !books[i].CreatedAt.Equal(books[j].CreatedAt) {
			return books[i].CreatedAt.After(books[j].CreatedAt)
		}
		return books[i].ID.String() < books[j].ID.String()
	})
}

/* Fetches the scoped candidate set and applies the filter to it. */
func (s *Service) ListBooks(ctx context.Context, scope Scope, filter Filter) ([]Book, error) {
	candidates, err := s.candidates(ctx, scope, "ListBooks")
	if err != nil {
		return nil, err
	}
	return Query(candidates, filter), nil
}

func (s *Service) candidates(ctx context.Context, scope Scope, op string) ([]Book, error) {
	var books []Book
	var err error
	if scope.Public() {
		books, err = s.repo.ListBooks(ctx)
	} else {
		if scope.Owner() == uuid.Nil {
			return nil, ErrResponseUnauthenticated
		}
		books, err = s.repo.ListBooksByOwner(ctx, scope.Owner())
	}
	if err != nil {
		return nil, repoErr(op, err)
	}
	return books, nil
}

/* Aggregates the owner's catalog: number of books, sum of prices and distinct categories. */
func (s *Service) ComputeStats(ctx context.Context, ownerID uuid.UUID) (Stats, error) {
	books, err := s.candidates(ctx, OwnedBy(ownerID), "ComputeStats")
	if err != nil {
		return Stats{}, err
	}

	var total float64
	categories := map[string]struct{}{}
	for _, b := range books {
		total += b.Price
		categories[b.Category] = struct{}{}
	}

	return Stats{
		TotalBooks:         len(books),
		TotalValue:         roundCents(total),
		DistinctCategories: len(categories),
	}, nil
}

/* Returns the sorted distinct categories present in the owner's books. */
func (s *Service) ListCategories(ctx context.Context, ownerID uuid.UUID) ([]string, error) {
	books, err := s.candidates(ctx, OwnedBy(ownerID), "ListCategories")
	if err != nil {
		return nil, err
	}

	seen := map[string]struct{}{}
	categories := []string{}
	for _, b := range books {
		if _, ok := seen[b.Category]; ok {
			continue
		}
		seen[b.Category] = struct{}{}
		categories = append(categories, b.Category)
	}
	sort.Strings(categories)
	return categories, nil
}

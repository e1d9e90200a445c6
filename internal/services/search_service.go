package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	apierrors "github.com/yukikurage/projecthub-api/internal/errors"
	"github.com/yukikurage/projecthub-api/internal/models"
	"github.com/yukikurage/projecthub-api/internal/repository"
)

const (
	maxSearchQueryLength = 200
	searchResultLimit    = 20
)

var ErrInvalidSearchQuery = apierrors.New(apierrors.KindValidation, "INVALID_QUERY", "Search query must be 1-200 characters")

// SearchService looks tasks up across an organization.
type SearchService struct {
	store *repository.Store
}

func NewSearchService(store *repository.Store) *SearchService {
	return &SearchService{store: store}
}

// SearchTasks returns at most 20 tasks whose title contains query.
func (s *SearchService) SearchTasks(ctx context.Context, member *models.OrganizationMember, query string) ([]repository.TaskSearchRow, error) {
	query = strings.TrimSpace(query)
	if query == "" || utf8.RuneCountInString(query) > maxSearchQueryLength {
		return nil, ErrInvalidSearchQuery
	}
	rows, err := s.store.Tasks.Search(ctx, member.OrganizationID, query, searchResultLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to search tasks: %w", err)
	}
	return rows, nil
}

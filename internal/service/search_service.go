package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"iskrib/internal/embedding"
	"iskrib/internal/featureflags"
	"iskrib/internal/models"
	"iskrib/internal/observability"
	"iskrib/internal/pagination"
	"iskrib/internal/personalize"
	"iskrib/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// FlagVectorSearch switches search between vector ranking and substring
// matching.
const FlagVectorSearch = "vector_search"

const maxQueryLen = 200

type SearchService struct {
	journals repository.JournalRepository
	overlay  *personalize.Overlay
	embedder embedding.Provider
	flags    *featureflags.Manager
}

type SearchInput struct {
	Query    string
	ViewerID uint
	Limit    int
}

func NewSearchService(
	journals repository.JournalRepository,
	overlay *personalize.Overlay,
	embedder embedding.Provider,
	flags *featureflags.Manager,
) *SearchService {
	return &SearchService{
		journals: journals,
		overlay:  overlay,
		embedder: embedder,
		flags:    flags,
	}
}

// Search ranks visible journals by similarity to the query. When vector
// search is off or fails, it falls back to substring matching.
func (s *SearchService) Search(ctx context.Context, in SearchInput) (pagination.Page[*models.Journal], error) {
	query := strings.TrimSpace(in.Query)
	if n := utf8.RuneCountInString(query); n < 1 || n > maxQueryLen {
		return pagination.Page[*models.Journal]{}, models.NewValidationError("query should be between 1 and 200 characters")
	}
	if err := pagination.RankedRange.Validate(in.Limit); err != nil {
		return pagination.Page[*models.Journal]{}, err
	}

	vctx, span := observability.GetTraceLayer().TraceServiceToRepository(ctx, "journals", "MatchEmbedding")
	journals, reason, err := s.vectorSearch(vctx, query, in.ViewerID, in.Limit)
	span.SetAttributes(attribute.String("search.fallback", reason))
	observability.RecordErrorInContext(vctx, err)
	span.End()
	if reason != "" {
		observability.SearchFallbacks.WithLabelValues(reason).Inc()
		if err != nil {
			slog.WarnContext(ctx, "vector search failed, using substring search", "reason", reason, "error", err.Error())
		}
		journals, err = s.journals.SearchText(ctx, query, in.ViewerID, in.Limit)
		if err != nil {
			return pagination.Page[*models.Journal]{}, models.MapStoreError("search journals", err)
		}
	}

	for _, j := range journals {
		decorate(j)
	}
	if err := s.overlay.Apply(ctx, in.ViewerID, personalize.Targets(journals), personalize.Like, personalize.Bookmark); err != nil {
		return pagination.Page[*models.Journal]{}, models.MapStoreError("personalize journals", err)
	}
	if journals == nil {
		journals = []*models.Journal{}
	}
	return pagination.Page[*models.Journal]{Data: journals}, nil
}

// vectorSearch returns a non-empty fallback reason when the caller should
// use substring matching instead.
func (s *SearchService) vectorSearch(ctx context.Context, query string, viewerID uint, limit int) ([]*models.Journal, string, error) {
	if s.embedder == nil || !s.flags.Enabled(FlagVectorSearch, viewerID) {
		return nil, "disabled", nil
	}
	vec, err := s.embedder.Embed(ctx, query, "")
	if errors.Is(err, embedding.ErrUnavailable) {
		return nil, "unavailable", err
	}
	if err != nil {
		return nil, "embedding_error", err
	}
	ids, err := s.journals.MatchEmbedding(ctx, embedding.Encode(vec), viewerID, limit)
	if err != nil {
		return nil, "rpc_error", err
	}
	journals, err := s.journals.ListByIDs(ctx, ids, viewerID)
	if err != nil {
		return nil, "rpc_error", err
	}
	return journals, "", nil
}

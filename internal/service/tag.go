package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/inkwell/internal/model"
	"github.com/sakif/inkwell/internal/repository"
)

// ParseTags splits a comma-separated tag field into names. Whitespace around
// each name is trimmed, empty pieces are dropped and repeats collapse onto
// their first occurrence. Case is preserved: "Go" and "go" are two tags.
//
//	ParseTags(" go, rust,, go ") → ["go", "rust"]
func ParseTags(raw string) []string {
	names := []string{}
	seen := make(map[string]bool)
	for _, piece := range strings.Split(raw, ",") {
		name := strings.TrimSpace(piece)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// JoinTags is the inverse of ParseTags for already parsed names.
func JoinTags(names []string) string {
	return strings.Join(names, ", ")
}

// TagService is the tag catalog: tags are created on first use and never
// deleted.
type TagService struct {
	repo   repository.TagRepository
	logger *slog.Logger
}

func NewTagService(repo repository.TagRepository, logger *slog.Logger) *TagService {
	return &TagService{repo: repo, logger: logger}
}

// Resolve parses raw and returns one tag per distinct name, in first
// occurrence order, creating the missing ones. Resolving the same input
// again returns the same tags.
func (s *TagService) Resolve(ctx context.Context, raw string) ([]model.Tag, error) {
	names := ParseTags(raw)
	if len(names) == 0 {
		return []model.Tag{}, nil
	}

	tags, err := s.repo.ResolveTags(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("service/tag: resolving %v: %w", names, err)
	}
	return tags, nil
}

// List returns every tag in the catalog ordered by name.
func (s *TagService) List(ctx context.Context) ([]model.Tag, error) {
	tags, err := s.repo.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/tag: listing tags: %w", err)
	}
	return tags, nil
}

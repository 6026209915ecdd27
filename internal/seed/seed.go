// Package seed fills a database with fake users, posts, tags, comments and
// follow edges for local development. Everything goes through the service
// layer, so seeded data obeys the same rules as data created over HTTP.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/sakif/inkwell/internal/apperror"
	"github.com/sakif/inkwell/internal/service"
)

// DefaultPassword is the password of every seeded account.
const DefaultPassword = "password123"

// Options controls how much data is generated.
type Options struct {
	Users          int
	PostsPerUser   int
	MaxComments    int   // per post, picked uniformly in [0, MaxComments]
	FollowsPerUser int
	Seed           int64 // same seed, same data
}

// DefaultOptions is a small but busy blog.
func DefaultOptions() Options {
	return Options{
		Users:          20,
		PostsPerUser:   5,
		MaxComments:    4,
		FollowsPerUser: 5,
		Seed:           1,
	}
}

// Result counts what was created.
type Result struct {
	Usernames []string
	Posts     int
	Comments  int
	Follows   int
}

type seededUser struct {
	id       string
	username string
}

// Seeder drives the services with gofakeit data.
type Seeder struct {
	auth    *service.AuthService
	posts   *service.PostService
	follows *service.FollowService
	logger  *slog.Logger
}

func NewSeeder(auth *service.AuthService, posts *service.PostService, follows *service.FollowService, logger *slog.Logger) *Seeder {
	return &Seeder{auth: auth, posts: posts, follows: follows, logger: logger}
}

// Run creates opts.Users accounts, then their posts with comments from
// random users, then follow edges.
func (s *Seeder) Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Users <= 0 {
		return nil, errors.New("seed: at least one user is required")
	}
	faker := gofakeit.New(opts.Seed)
	result := &Result{}

	users := make([]seededUser, 0, opts.Users)
	for i := range opts.Users {
		username := fakeUsername(faker, i)
		u, err := s.auth.Register(ctx, username, username+"@example.com", DefaultPassword)
		if err != nil {
			return nil, fmt.Errorf("seed: registering %q: %w", username, err)
		}
		users = append(users, seededUser{id: u.ID, username: u.Username})
		result.Usernames = append(result.Usernames, u.Username)
	}
	s.logger.Info("seeded users", slog.Int("count", len(users)))

	for _, author := range users {
		for range opts.PostsPerUser {
			postID, err := s.createPost(ctx, faker, author.id)
			if err != nil {
				return nil, err
			}
			result.Posts++

			for range faker.Number(0, max(opts.MaxComments, 0)) {
				commenter := users[faker.Number(0, len(users)-1)]
				body := faker.Sentence(faker.Number(4, 14))
				if _, err := s.posts.AddComment(ctx, postID, commenter.id, body); err != nil {
					return nil, fmt.Errorf("seed: commenting on %s: %w", postID, err)
				}
				result.Comments++
			}
		}
	}
	s.logger.Info("seeded posts",
		slog.Int("posts", result.Posts),
		slog.Int("comments", result.Comments),
	)

	if len(users) > 1 {
		for _, follower := range users {
			followed := make(map[string]bool)
			for range min(opts.FollowsPerUser, len(users)-1) {
				target := users[faker.Number(0, len(users)-1)]
				if target.id == follower.id || followed[target.id] {
					continue
				}
				if err := s.follows.Follow(ctx, follower.id, target.username); err != nil {
					return nil, fmt.Errorf("seed: %s following %s: %w", follower.username, target.username, err)
				}
				followed[target.id] = true
				result.Follows++
			}
		}
	}
	s.logger.Info("seeded follows", slog.Int("count", result.Follows))

	return result, nil
}

// createPost retries with a numbered title when the fake sentence collides
// with an existing one.
func (s *Seeder) createPost(ctx context.Context, faker *gofakeit.Faker, ownerID string) (string, error) {
	title := strings.TrimSuffix(faker.Sentence(faker.Number(3, 7)), ".")
	body := faker.Paragraph(faker.Number(1, 4), faker.Number(3, 6), 12, "\n\n")
	tags := fakeTags(faker)

	candidate := title
	for attempt := 2; ; attempt++ {
		post, err := s.posts.CreatePost(ctx, ownerID, candidate, body, tags)
		if err == nil {
			return post.ID, nil
		}
		if !errors.Is(err, apperror.ErrDuplicateTitle) || attempt > 10 {
			return "", fmt.Errorf("seed: creating post %q: %w", candidate, err)
		}
		candidate = fmt.Sprintf("%s (%d)", title, attempt)
	}
}

// fakeUsername builds a lowercase name that stays within 4..20 characters
// and is unique per index.
func fakeUsername(faker *gofakeit.Faker, i int) string {
	name := strings.ToLower(faker.FirstName())
	name = strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' {
			return r
		}
		return -1
	}, name)
	if len(name) > 14 {
		name = name[:14]
	}
	if name == "" {
		name = "user"
	}
	return fmt.Sprintf("%s%03d", name, i)
}

// fakeTags returns a raw tag field with up to three programming languages.
func fakeTags(faker *gofakeit.Faker) string {
	n := faker.Number(0, 3)
	names := make([]string, n)
	for i := range names {
		names[i] = strings.ToLower(faker.ProgrammingLanguage())
	}
	return service.JoinTags(names)
}

// Package seed fills a database with demo feed data for development and
// manual testing.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"fitprove/internal/models"
	"fitprove/internal/observability"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	Profiles int
	Posts    int
	// MaxComments caps the comments generated per post.
	MaxComments int
	// ReactionRate is the chance, 0..1, that a profile reacts to a post.
	ReactionRate float64
	// MaxDays spreads created_at over the last MaxDays days.
	MaxDays int
	// RandSeed makes a run reproducible when non-zero.
	RandSeed int64
}

// DefaultOptions is a small but lively feed.
func DefaultOptions() Options {
	return Options{
		Profiles:     12,
		Posts:        40,
		MaxComments:  6,
		ReactionRate: 0.3,
		MaxDays:      14,
	}
}

// Summary reports what a run created.
type Summary struct {
	Profiles  int
	Posts     int
	Comments  int
	Reactions int
}

// Seeder writes generated rows straight through GORM.
type Seeder struct {
	db   *gorm.DB
	opts Options
	fake *gofakeit.Faker
	now  time.Time
}

// NewSeeder creates a Seeder bound to db.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	seed := opts.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if opts.MaxDays <= 0 {
		opts.MaxDays = 14
	}
	return &Seeder{db: db, opts: opts, fake: gofakeit.New(seed), now: time.Now().UTC()}
}

var (
	workoutLines = []string{
		"Leg day done 💪",
		"New deadlift PR: %d kg",
		"Ran %d km before breakfast",
		"%d push-ups, no breaks",
		"Mobility session, %d minutes. Hips say thanks",
		"Back squats %dx5, felt smooth",
		"Swim intervals: %d x 100m",
	}
	achievementLines = []string{
		"%d day streak 🔥",
		"Finally hit %d pull-ups!",
		"Finished my first %dk race",
	}
	generalLines = []string{
		"Rest day. Meal prep instead",
		"Who else trains at 5am?",
		"Looking for a lifting partner downtown",
		"Protein pancakes are underrated",
	}
	commentLines = []string{
		"Let's go!",
		"Beast mode 🦍",
		"What program are you running?",
		"Nice work, keep it up",
		"Form check video?",
		"Same here, legs are toast",
		"Inspiring 🙌",
	}
)

// ClearAll removes every feed row, children first.
func (s *Seeder) ClearAll(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	for _, m := range []any{&models.Reaction{}, &models.Comment{}, &models.Post{}, &models.Profile{}} {
		if err := db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m).Error; err != nil {
			return fmt.Errorf("clear %T: %w", m, err)
		}
	}
	observability.Logger.InfoContext(ctx, "Seed data cleared")
	return nil
}

// Run generates profiles, posts, threaded comments and reactions, then
// rewrites the cached counters from the generated rows.
func (s *Seeder) Run(ctx context.Context) (Summary, error) {
	var sum Summary
	db := s.db.WithContext(ctx)

	profiles := make([]*models.Profile, 0, s.opts.Profiles)
	for i := 0; i < s.opts.Profiles; i++ {
		profiles = append(profiles, s.buildProfile(i))
	}
	if len(profiles) == 0 {
		return sum, fmt.Errorf("at least one profile is required")
	}
	if err := db.CreateInBatches(profiles, 100).Error; err != nil {
		return sum, fmt.Errorf("create profiles: %w", err)
	}
	sum.Profiles = len(profiles)

	for i := 0; i < s.opts.Posts; i++ {
		author := profiles[s.fake.Number(0, len(profiles)-1)]
		post := s.buildPost(author)

		comments := s.buildThread(post, profiles)
		reactions := s.buildReactions(post, profiles)
		post.CommentsCount = len(comments)
		post.LikesCount = len(reactions)

		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(post).Error; err != nil {
				return err
			}
			if len(comments) > 0 {
				if err := tx.Create(&comments).Error; err != nil {
					return err
				}
			}
			if len(reactions) > 0 {
				if err := tx.Create(&reactions).Error; err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return sum, fmt.Errorf("create post %d: %w", i, err)
		}
		sum.Posts++
		sum.Comments += len(comments)
		sum.Reactions += len(reactions)
	}

	observability.Logger.InfoContext(ctx, "Seed data created",
		slog.Int("profiles", sum.Profiles),
		slog.Int("posts", sum.Posts),
		slog.Int("comments", sum.Comments),
		slog.Int("reactions", sum.Reactions),
	)
	return sum, nil
}

func (s *Seeder) buildProfile(i int) *models.Profile {
	first := s.fake.FirstName()
	id := s.fake.UUID()
	return &models.Profile{
		ID:          id,
		Username:    fmt.Sprintf("%s%d", s.fake.Username(), i),
		DisplayName: first + " " + s.fake.LastName(),
		AvatarURL:   fmt.Sprintf("https://i.pravatar.cc/150?u=%s", id),
		CreatedAt:   s.pastTime(),
	}
}

func (s *Seeder) buildPost(author *models.Profile) *models.Post {
	created := s.pastTime()
	post := &models.Post{
		ID:             s.fake.UUID(),
		UserID:         author.ID,
		CreatedAt:      created,
		UpdatedAt:      created,
		ReactionCounts: models.ReactionCounts{},
	}

	switch roll := s.fake.Number(0, 9); {
	case roll < 5:
		post.Category = models.PostCategoryWorkout
		post.Content = s.line(workoutLines)
		workout := s.fake.UUID()
		post.WorkoutID = &workout
	case roll < 7:
		post.Category = models.PostCategoryAchievement
		post.Content = s.line(achievementLines)
		achievement := s.fake.UUID()
		post.AchievementID = &achievement
	default:
		post.Category = models.PostCategoryGeneral
		post.Content = s.line(generalLines)
	}
	if s.fake.Number(0, 3) == 0 {
		post.MediaURLs = []string{fmt.Sprintf("https://picsum.photos/seed/%s/800/800", s.fake.UUID())}
	}
	return post
}

// buildThread creates up to MaxComments comments. Each new comment replies
// to an earlier one about half the time, never deeper than a reply can go.
func (s *Seeder) buildThread(post *models.Post, profiles []*models.Profile) []*models.Comment {
	if s.opts.MaxComments <= 0 {
		return nil
	}
	n := s.fake.Number(0, s.opts.MaxComments)
	comments := make([]*models.Comment, 0, n)
	depth := make(map[string]int, n)
	at := post.CreatedAt
	for i := 0; i < n; i++ {
		at = at.Add(time.Duration(s.fake.Number(1, 180)) * time.Minute)
		c := &models.Comment{
			ID:        s.fake.UUID(),
			PostID:    post.ID,
			UserID:    profiles[s.fake.Number(0, len(profiles)-1)].ID,
			Content:   commentLines[s.fake.Number(0, len(commentLines)-1)],
			CreatedAt: at,
			UpdatedAt: at,
		}
		if len(comments) > 0 && s.fake.Bool() {
			parent := comments[s.fake.Number(0, len(comments)-1)]
			if depth[parent.ID] < maxSeedDepth {
				pid := parent.ID
				c.ParentID = &pid
				depth[c.ID] = depth[parent.ID] + 1
			}
		}
		comments = append(comments, c)
	}
	return comments
}

// maxSeedDepth matches the deepest level that still offers a reply.
const maxSeedDepth = 3

func (s *Seeder) buildReactions(post *models.Post, profiles []*models.Profile) []*models.Reaction {
	var out []*models.Reaction
	for _, p := range profiles {
		if s.fake.Float64() >= s.opts.ReactionRate {
			continue
		}
		pid := post.ID
		out = append(out, &models.Reaction{
			ID:        s.fake.UUID(),
			UserID:    p.ID,
			PostID:    &pid,
			Type:      models.ReactionTypes[s.fake.Number(0, len(models.ReactionTypes)-1)],
			CreatedAt: post.CreatedAt.Add(time.Duration(s.fake.Number(1, 600)) * time.Minute),
		})
	}
	return out
}

func (s *Seeder) line(options []string) string {
	tmpl := options[s.fake.Number(0, len(options)-1)]
	if strings.Contains(tmpl, "%d") {
		return fmt.Sprintf(tmpl, s.fake.Number(3, 120))
	}
	return tmpl
}

func (s *Seeder) pastTime() time.Time {
	back := time.Duration(s.fake.Number(0, s.opts.MaxDays*24*60)) * time.Minute
	return s.now.Add(-back)
}

// Package feedctl implements the feedctl command line client. Each command
// loads the feed into a controller, performs one operation as the configured
// user, and prints the result.
package feedctl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"fitprove/internal/auth"
	"fitprove/internal/cache"
	"fitprove/internal/featureflags"
	"fitprove/internal/feed"
	"fitprove/internal/gateway"
	"fitprove/internal/repository"
	"fitprove/internal/service"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// Deps are the connections a command runs against.
type Deps struct {
	DB       *gorm.DB
	Redis    *redis.Client
	Flags    string
	PageSize int
	Timeout  time.Duration
	// ReadRetries is how many times a failed read is retried.
	ReadRetries int
}

// Opener connects to the store. It is called once per command.
type Opener func(ctx context.Context) (*Deps, func(), error)

type options struct {
	userID string
	json   bool
}

// NewRootCommand builds the command tree. defaultUser is used when --user
// is not given.
func NewRootCommand(open Opener, defaultUser string) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "feedctl",
		Short:         "Read and write the FITProve social feed",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.userID, "user", defaultUser, "act as this user id (empty for anonymous)")
	root.PersistentFlags().BoolVar(&opts.json, "json", false, "print JSON instead of text")

	run := func(fn func(ctx context.Context, c *feed.Controller, out io.Writer, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			deps, closeFn, err := open(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			c := NewController(deps, opts.userID)
			if _, err := c.LoadPosts(ctx); err != nil {
				return err
			}
			return fn(ctx, c, cmd.OutOrStdout(), args)
		}
	}

	root.AddCommand(
		newListCommand(opts, run),
		newPostCommand(opts, run),
		newEditCommand(opts, run),
		newDeleteCommand(run),
		newReactCommand(opts, run),
		newPressCommand(opts, run),
		newCommentsCommand(opts, run),
		newCommentCommand(opts, run),
	)
	return root
}

// NewController wires a feed controller over deps acting as userID.
func NewController(deps *Deps, userID string) *feed.Controller {
	gw := gateway.NewGormGateway(deps.DB, gateway.Options{Timeout: deps.Timeout, ReadRetries: deps.ReadRetries})
	store := cache.NewStore(deps.Redis)
	flags := featureflags.NewManager(deps.Flags)
	provider := auth.StaticProvider{UserID: userID}

	profiles := repository.NewProfileRepository(gw, store)
	posts := repository.NewPostRepository(gw, profiles, flags)
	reactions := repository.NewReactionRepository(gw)
	comments := repository.NewCommentRepository(gw, profiles, flags)

	return feed.NewController(
		service.NewPostService(posts, reactions, provider, store, deps.PageSize),
		service.NewReactionService(posts, reactions, provider, store),
		service.NewCommentService(comments, posts, provider, store),
		provider,
		flags,
	)
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

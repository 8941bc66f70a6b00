package feedctl

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"fitprove/internal/feed"
	"fitprove/internal/models"
	"fitprove/internal/reaction"
	"fitprove/internal/service"
	"fitprove/internal/thread"

	"github.com/spf13/cobra"
)

type runner func(fn func(ctx context.Context, c *feed.Controller, out io.Writer, args []string) error) func(*cobra.Command, []string) error

func newListCommand(opts *options, run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the newest posts",
		Args:  cobra.NoArgs,
		RunE: run(func(_ context.Context, c *feed.Controller, out io.Writer, _ []string) error {
			posts := c.Posts()
			if opts.json {
				return printJSON(out, posts)
			}
			return writePosts(out, posts)
		}),
	}
}

func newPostCommand(opts *options, run runner) *cobra.Command {
	var media []string
	var category string
	cmd := &cobra.Command{
		Use:   "post <content>",
		Short: "Create a post",
		Args:  cobra.MaximumNArgs(1),
		RunE: run(func(ctx context.Context, c *feed.Controller, out io.Writer, args []string) error {
			in := service.CreatePostInput{MediaURLs: media, Category: models.PostCategory(category)}
			if len(args) == 1 {
				in.Content = args[0]
			}
			post, err := c.CreatePost(ctx, in)
			if err != nil {
				return err
			}
			if opts.json {
				return printJSON(out, post)
			}
			_, err = fmt.Fprintf(out, "created %s\n", post.ID)
			return err
		}),
	}
	cmd.Flags().StringSliceVar(&media, "media", nil, "media URL to attach (repeatable)")
	cmd.Flags().StringVar(&category, "category", string(models.PostCategoryGeneral), "general, workout or achievement")
	return cmd
}

func newEditCommand(opts *options, run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <post-id> <content>",
		Short: "Replace the content of your post",
		Args:  cobra.ExactArgs(2),
		RunE: run(func(ctx context.Context, c *feed.Controller, out io.Writer, args []string) error {
			if err := c.BeginEdit(args[0]); err != nil {
				return err
			}
			post, err := c.UpdatePost(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			if opts.json {
				return printJSON(out, post)
			}
			_, err = fmt.Fprintf(out, "updated %s\n", post.ID)
			return err
		}),
	}
}

func newDeleteCommand(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <post-id>",
		Short: "Delete your post",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, c *feed.Controller, out io.Writer, args []string) error {
			if err := c.DeletePost(ctx, args[0]); err != nil {
				return err
			}
			_, err := fmt.Fprintf(out, "deleted %s\n", args[0])
			return err
		}),
	}
}

func newReactCommand(opts *options, run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "react <post-id> <like|love|fire|strong>",
		Short: "Toggle a reaction on a post",
		Args:  cobra.ExactArgs(2),
		RunE: run(func(ctx context.Context, c *feed.Controller, out io.Writer, args []string) error {
			state, err := c.ToggleReaction(ctx, args[0], models.ReactionType(strings.ToLower(args[1])))
			if err != nil {
				return err
			}
			if opts.json {
				return printJSON(out, state)
			}
			return writeState(out, state)
		}),
	}
}

func newPressCommand(opts *options, run runner) *cobra.Command {
	var hold time.Duration
	cmd := &cobra.Command{
		Use:   "press <post-id>",
		Short: "Press the reaction button; a long press opens the picker",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, c *feed.Controller, out io.Writer, args []string) error {
			res, err := c.Press(ctx, args[0], hold)
			if err != nil {
				return err
			}
			if opts.json {
				return printJSON(out, res)
			}
			if res.Action == reaction.OpenPicker {
				names := make([]string, len(res.Choices))
				for i, t := range res.Choices {
					names[i] = string(t)
				}
				_, err := fmt.Fprintf(out, "pick one: %s\n", strings.Join(names, ", "))
				return err
			}
			return writeState(out, res.State)
		}),
	}
	cmd.Flags().DurationVar(&hold, "hold", 0, "how long the button is held")
	return cmd
}

func newCommentsCommand(opts *options, run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "comments <post-id>",
		Short: "Show the comment thread of a post",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, c *feed.Controller, out io.Writer, args []string) error {
			nodes, err := c.ExpandComments(ctx, args[0])
			if err != nil {
				return err
			}
			if opts.json {
				return printJSON(out, nodes)
			}
			return writeThread(out, nodes)
		}),
	}
}

func newCommentCommand(opts *options, run runner) *cobra.Command {
	var parent string
	cmd := &cobra.Command{
		Use:   "comment <post-id> <content>",
		Short: "Comment on a post or reply to a comment",
		Args:  cobra.ExactArgs(2),
		RunE: run(func(ctx context.Context, c *feed.Controller, out io.Writer, args []string) error {
			if _, err := c.ExpandComments(ctx, args[0]); err != nil {
				return err
			}
			var parentID *string
			if parent != "" {
				parentID = &parent
			}
			nodes, err := c.CreateComment(ctx, args[0], args[1], parentID)
			if err != nil {
				return err
			}
			if opts.json {
				return printJSON(out, nodes)
			}
			return writeThread(out, nodes)
		}),
	}
	cmd.Flags().StringVar(&parent, "parent", "", "comment id to reply to")
	return cmd
}

func writePosts(out io.Writer, posts []*models.Post) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tAUTHOR\tCATEGORY\tREACTIONS\tCOMMENTS\tCONTENT")
	for _, p := range posts {
		author := p.UserID
		if p.Author != nil && p.Author.Username != "" {
			author = "@" + p.Author.Username
		}
		mine := ""
		if p.UserReaction != nil {
			mine = " (" + string(*p.UserReaction) + ")"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d%s\t%d\t%s\n",
			p.ID, author, p.Category, p.LikesCount, mine, p.CommentsCount, oneLine(p.Content))
	}
	return tw.Flush()
}

func writeState(out io.Writer, s reaction.State) error {
	shown := "none"
	if t, ok := reaction.Display(s); ok {
		shown = string(t)
	}
	parts := make([]string, 0, len(models.ReactionTypes))
	for _, t := range models.ReactionTypes {
		parts = append(parts, fmt.Sprintf("%s=%d", t, s.Counts.Get(t)))
	}
	_, err := fmt.Fprintf(out, "reactions %d [%s] shown: %s\n", s.LikesCount, strings.Join(parts, " "), shown)
	return err
}

func writeThread(out io.Writer, nodes []*thread.Node) error {
	if len(nodes) == 0 {
		_, err := fmt.Fprintln(out, "no comments yet")
		return err
	}
	var err error
	thread.Walk(nodes, func(n *thread.Node) {
		if err != nil {
			return
		}
		reply := ""
		if !n.CanReply {
			reply = " [no replies]"
		}
		_, err = fmt.Fprintf(out, "%s%s %s%s\n", strings.Repeat("  ", n.Depth), n.Comment.ID, oneLine(n.Comment.Content), reply)
	})
	return err
}

func oneLine(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if r := []rune(s); len(r) > 60 {
		return string(r[:57]) + "..."
	}
	return s
}

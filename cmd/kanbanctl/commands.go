package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"kanbanlive/internal/board"
	"kanbanlive/internal/boardview"
	"kanbanlive/internal/logging"
	"kanbanlive/internal/model"
)

func boardsCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "boards",
		Short: "List boards you are a member of",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(v)
			if err != nil {
				return err
			}
			boards, err := c.Boards(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tOWNER")
			for _, b := range boards {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", b.ID, b.Name, b.OwnerID)
			}
			return tw.Flush()
		},
	}
}

func watchCmd(v *viper.Viper) *cobra.Command {
	var poll time.Duration
	cmd := &cobra.Command{
		Use:   "watch [board-id]",
		Short: "Follow a board live, reprinting it on every change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			boardID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid board id: %w", err)
			}
			c, err := newClient(v)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			view := boardview.New(boardID, c, c, boardview.Options{
				PollInterval: poll,
				Logger:       logging.New(v.GetString("log_level"), false),
			})
			if err := view.Subscribe(ctx); err != nil {
				return err
			}
			defer view.Close()

			for {
				select {
				case <-ctx.Done():
					return nil
				case <-view.Changes():
					printBoard(cmd.OutOrStdout(), view)
				}
			}
		},
	}
	cmd.Flags().DurationVar(&poll, "poll", boardview.DefaultPollInterval, "Fallback poll interval")
	return cmd
}

func printBoard(w io.Writer, view *boardview.View) {
	fmt.Fprintf(w, "\n== board %s [%s] ==\n", view.BoardID(), view.State())
	for _, l := range view.Lists() {
		fmt.Fprintf(w, "%d. %s%s\n", l.Position+1, l.Name, pendingMark(view, l.ID))
		for _, t := range view.TasksIn(l.ID) {
			fmt.Fprintf(w, "   - %s (%s)%s\n", t.Title, t.Priority, pendingMark(view, t.ID))
		}
	}
	if entries := view.Activity(); len(entries) > 0 {
		e := entries[0]
		fmt.Fprintf(w, "last: %s %s %s by %s\n", e.CreatedAt.Format(time.Kitchen), e.Action, e.EntityType, e.Actor.DisplayName())
	}
}

func pendingMark(view *boardview.View, id uuid.UUID) string {
	if view.Pending(id) {
		return " *"
	}
	return ""
}

func moveTaskCmd(v *viper.Viper) *cobra.Command {
	var (
		listID  string
		index   int
		retries int
	)
	cmd := &cobra.Command{
		Use:   "move-task [task-id]",
		Short: "Move a task to a list and position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid task id: %w", err)
			}
			dest, err := uuid.Parse(listID)
			if err != nil {
				return fmt.Errorf("invalid list id: %w", err)
			}
			c, err := newClient(v)
			if err != nil {
				return err
			}

			var task *model.Task
			err = withRetries(cmd.Context(), retries, func(ctx context.Context) error {
				task, err = c.MoveTask(ctx, taskID, dest, index)
				return err
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> list %s position %d\n", task.Title, task.ListID, task.Position)
			return nil
		},
	}
	cmd.Flags().StringVar(&listID, "list", "", "Destination list ID")
	cmd.Flags().IntVar(&index, "index", 0, "Destination position (0-based)")
	cmd.Flags().IntVar(&retries, "retries", 2, "Retries on transient failures")
	_ = cmd.MarkFlagRequired("list")
	return cmd
}

func moveListCmd(v *viper.Viper) *cobra.Command {
	var (
		index   int
		retries int
	)
	cmd := &cobra.Command{
		Use:   "move-list [list-id]",
		Short: "Move a list to another position on its board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			listID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid list id: %w", err)
			}
			c, err := newClient(v)
			if err != nil {
				return err
			}

			var list *model.List
			err = withRetries(cmd.Context(), retries, func(ctx context.Context) error {
				list, err = c.MoveList(ctx, listID, index)
				return err
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> position %d\n", list.Name, list.Position)
			return nil
		},
	}
	cmd.Flags().IntVar(&index, "index", 0, "Destination position (0-based)")
	cmd.Flags().IntVar(&retries, "retries", 2, "Retries on transient failures")
	return cmd
}

func activityCmd(v *viper.Viper) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "activity [board-id]",
		Short: "Show the latest activity of a board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			boardID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid board id: %w", err)
			}
			c, err := newClient(v)
			if err != nil {
				return err
			}
			entries, err := c.Activity(cmd.Context(), boardID, limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "WHEN\tWHO\tACTION\tENTITY")
			for _, e := range entries {
				name := string(e.EntityType)
				if e.EntityName != nil {
					name += " " + *e.EntityName
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.CreatedAt.Format(time.DateTime), e.Actor.DisplayName(), e.Action, name)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of entries")
	return cmd
}

// withRetries reruns fn while it fails with a retryable error.
func withRetries(ctx context.Context, retries int, fn func(context.Context) error) error {
	backoff := 200 * time.Millisecond
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil || attempt >= retries || !board.IsRetryable(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

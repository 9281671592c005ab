package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/chatdesk/chatdesk/internal/conversation"
)

// newConversationsCmd creates the 'conversations' command group.
func newConversationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"conv"},
		Short:   "Browse saved conversations",
	}

	cmd.AddCommand(newConversationsListCmd())
	cmd.AddCommand(newConversationsShowCmd())
	cmd.AddCommand(newConversationsDeleteCmd())

	return cmd
}

func newConversationsListCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List conversations, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv()
			if err != nil {
				return err
			}
			defer env.close()

			list, err := env.conversations.List()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if asJSON {
				summaries := make([]conversation.Summary, 0, len(list))
				for _, c := range list {
					summaries = append(summaries, c.Summary())
				}
				data, err := json.MarshalIndent(summaries, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
				return nil
			}

			if len(list) == 0 {
				fmt.Fprintln(out, "No conversations yet.")
				return nil
			}

			fmt.Fprintf(out, "%-18s %-17s %-5s %s\n", "ID", "UPDATED", "MSGS", "SUBJECT")
			for _, c := range list {
				fmt.Fprintf(out, "%-18s %-17s %-5d %s\n", c.ID, formatTimestamp(c.Timestamp), len(c.Content.Messages), c.Subject)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newConversationsShowCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv()
			if err != nil {
				return err
			}
			defer env.close()

			c, err := env.conversations.Load(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if asJSON {
				data, err := json.MarshalIndent(c, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
				return nil
			}

			fmt.Fprintf(out, "%s\n", c.Subject)
			fmt.Fprintf(out, "Updated: %s", formatTimestamp(c.Timestamp))
			if c.Content.Model != "" {
				fmt.Fprintf(out, "  Model: %s", c.Content.Model)
			}
			fmt.Fprintln(out)
			if c.Content.SystemPrompt != "" {
				fmt.Fprintf(out, "\n[system]\n%s\n", c.Content.SystemPrompt)
			}
			for _, m := range c.Content.Messages {
				fmt.Fprintf(out, "\n[%s]\n%s\n", m.Role, m.Content)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newConversationsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a conversation",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv()
			if err != nil {
				return err
			}
			defer env.close()

			if err := env.conversations.Delete(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted conversation %s\n", args[0])
			return nil
		},
	}
}

func formatTimestamp(ms int64) string {
	return time.UnixMilli(ms).Local().Format("2006-01-02 15:04")
}

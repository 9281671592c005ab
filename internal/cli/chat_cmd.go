package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/chatdesk/chatdesk/internal/chat"
	"github.com/chatdesk/chatdesk/internal/conversation"
	"github.com/chatdesk/chatdesk/internal/credentials"
	"github.com/chatdesk/chatdesk/internal/events"
	inthttp "github.com/chatdesk/chatdesk/internal/http"
	"github.com/chatdesk/chatdesk/internal/llm"
	"github.com/chatdesk/chatdesk/internal/progress"
)

// newChatCmd creates the 'chat' command.
func newChatCmd() *cobra.Command {
	var continueID string
	var quiet bool

	cmd := &cobra.Command{
		Use:   "chat [prompt...]",
		Short: "Send one prompt and stream the reply",
		Long: `Send a prompt to the configured provider and stream the reply.
The exchange is saved like a desktop conversation.

Without arguments the prompt is read from stdin.

Examples:
  chatdesk chat "Summarize RFC 9110 in three sentences"
  chatdesk chat --continue lz1abc2def3ghi4j "And in one?"
  git diff | chatdesk chat`,
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt, err := readPrompt(args, cmd.InOrStdin())
			if err != nil {
				return err
			}

			env, err := openEnv()
			if err != nil {
				return err
			}
			defer env.close()

			log := GetLogger()
			inthttp.SetLogger(log)
			registry := llm.NewRegistry(env.config, llm.Deps{
				Accessor: credentials.NewAccessor(),
				Proxy:    &env.settings.Proxy,
				Logger:   log,
			})
			session := chat.NewSession(env.conversations, registry, env.config, env.bus, log)

			if continueID != "" {
				if _, err := session.Open(continueID); err != nil {
					return err
				}
			}

			var reporter progress.Reporter = progress.NewNoOpProgress()
			if !quiet {
				errOut := cmd.ErrOrStderr()
				reporter = progress.NewCLIProgress(cmd.OutOrStdout(), errOut, progress.IsTerminal(errOut))
			}

			conv, err := streamReply(cmd, env.bus, session, prompt, reporter)
			if err != nil {
				return err
			}
			if conv == nil {
				return nil
			}
			if quiet {
				if reply, ok := lastReply(conv, prompt); ok {
					fmt.Fprintln(cmd.OutOrStdout(), reply)
				}
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Conversation: %s\n", conv.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&continueID, "continue", "", "Append to an existing conversation")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Print only the final reply")

	return cmd
}

type sendResult struct {
	conv *conversation.Conversation
	err  error
}

// streamReply sends prompt and feeds the session's chunk events to reporter
// until the exchange is saved or fails. Ctrl+C aborts the stream and keeps
// what arrived.
func streamReply(cmd *cobra.Command, bus *events.EventBus, session *chat.Session, prompt string, reporter progress.Reporter) (*conversation.Conversation, error) {
	ctx := GetContext()
	interrupted := ctx.Done()
	requestID := uuid.NewString()

	chunks := bus.Subscribe(events.EventChatChunk)
	defer bus.Unsubscribe(events.EventChatChunk, chunks)

	done := make(chan sendResult, 1)
	reporter.Start("Waiting for reply")
	go func() {
		// Cancellation goes through Abort so the partial reply is saved
		conv, err := session.Send(context.WithoutCancel(ctx), requestID, prompt)
		done <- sendResult{conv: conv, err: err}
	}()

	for {
		select {
		case ev, ok := <-chunks:
			if !ok {
				chunks = nil
				continue
			}
			if ce, isChat := ev.(*events.ChatEvent); isChat && ce.RequestID == requestID {
				reporter.Update(ce.Text)
			}

		case <-interrupted:
			interrupted = nil
			session.Abort()

		case res := <-done:
			if res.err != nil {
				reporter.Error(res.err)
				return nil, res.err
			}
			if reply, ok := lastReply(res.conv, prompt); ok {
				reporter.Update(reply)
			}
			reporter.Finish()
			return res.conv, nil
		}
	}
}

// lastReply returns the assistant message answering prompt, if conv ends with one.
func lastReply(conv *conversation.Conversation, prompt string) (string, bool) {
	if conv == nil {
		return "", false
	}
	msgs := conv.Content.Messages
	if len(msgs) < 2 {
		return "", false
	}
	question, answer := msgs[len(msgs)-2], msgs[len(msgs)-1]
	if question.Role != conversation.RoleUser || answer.Role != conversation.RoleAssistant {
		return "", false
	}
	if question.Content != strings.TrimSpace(prompt) {
		return "", false
	}
	return answer.Content, true
}

// readPrompt joins args, or reads stdin when there are none.
func readPrompt(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if f, ok := stdin.(*os.File); ok && progress.IsTerminal(f) {
		fmt.Fprint(os.Stderr, "Prompt (end with Ctrl+D): ")
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt: %w", err)
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", chat.ErrEmptyPrompt
	}
	return prompt, nil
}

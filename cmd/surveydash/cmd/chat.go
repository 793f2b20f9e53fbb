package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/surveydash/internal/chat"
	"github.com/Aman-CERP/surveydash/internal/output"
)

// chatOptions holds CLI flags for chat.
type chatOptions struct {
	format      string
	contextOnly bool
}

func newChatCmd(root *rootOptions) *cobra.Command {
	var opts chatOptions

	cmd := &cobra.Command{
		Use:   "chat <message>",
		Short: "Ask a question grounded on the survey quotes",
		Long: `Ask the assistant a question. The most relevant quotes are sent to the
model as numbered context and returned as sources.

Requires an API key in the environment variable named by chat.api_key_env
(OPENAI_API_KEY by default). Use --context-only to see the grounding
context without calling the provider.

Examples:
  surveydash chat "What frustrates people about parking?"
  surveydash chat --context-only "staff friendliness"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), cmd, root, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", formatText, "Output format: text, json")
	cmd.Flags().BoolVar(&opts.contextOnly, "context-only", false, "Print the grounding context without calling the provider")

	return cmd
}

// contextOutput is the JSON shape of --context-only.
type contextOutput struct {
	Context string        `json:"context"`
	Sources []chat.Source `json:"sources"`
}

func runChat(ctx context.Context, cmd *cobra.Command, root *rootOptions, message string, opts chatOptions) error {
	if err := validateFormat(opts.format); err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(root.dir, slog.Default())
	if err != nil {
		return err
	}
	out := output.New(cmd.OutOrStdout())

	if opts.contextOnly {
		text, sources := a.chat.Context(message)
		if opts.format == formatJSON {
			return out.JSON(contextOutput{Context: text, Sources: sources})
		}
		out.Code(text)
		out.Sources(sources)
		return nil
	}

	resp, err := a.chat.Chat(ctx, chat.Request{Message: message})
	if err != nil {
		return err
	}
	if opts.format == formatJSON {
		return out.JSON(resp)
	}
	out.ChatReply(resp)
	return nil
}

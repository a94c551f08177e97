package cli

import (
	"fmt"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/spf13/cobra"

	"github.com/jsahoo/recall/internal/agent/anthropic"
	"github.com/jsahoo/recall/internal/runner"
)

func init() {
	cmd := &cobra.Command{
		Use:   "chat <prompt> [key=value ...]",
		Short: "Run one agent turn with memory-enriched context",
		Long: `Send a prompt to an Anthropic-backed agent. The prompt is enriched with
recent conversation history, session short-term memory and the user's
long-term memory, and the exchange is recorded in the session.

Trailing key=value arguments become additional prompt context.`,
		Args: cobra.MinimumNArgs(1),
		Run:  runChat,
	}

	cmd.Flags().StringP("session", "s", "", "Continue an existing session")
	cmd.Flags().StringP("user", "u", "", "User id for session and memory scoping")
	cmd.Flags().String("agent-name", "recall-agent", "Agent name on the session record")
	cmd.Flags().String("model", "", "Anthropic model override")
	cmd.Flags().Bool("close", false, "Close the session after this turn")

	RootCmd.AddCommand(cmd)
}

func runChat(cmd *cobra.Command, args []string) {
	session, _ := cmd.Flags().GetString("session")
	user, _ := cmd.Flags().GetString("user")
	agentName, _ := cmd.Flags().GetString("agent-name")
	modelName, _ := cmd.Flags().GetString("model")
	closeAfter, _ := cmd.Flags().GetBool("close")

	prompt := args[0]
	extra, err := parseContextArgs(args[1:])
	if err != nil {
		exitErr("chat", err)
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	a := anthropic.New(agentName, func(o *anthropic.Options) {
		if modelName != "" {
			o.Model = sdk.Model(modelName)
		}
	})

	r, err := runner.New(cmd.Context(), a, s, s, func(o *runner.Options) {
		o.SessionID = session
		o.UserID = user
		o.AgentName = agentName
		o.Logger = cliLogger()
	})
	if err != nil {
		exitErr("chat", err)
	}

	result, err := r.Run(cmd.Context(), prompt, extra)
	if err != nil {
		exitErr("chat", err)
	}

	if closeAfter {
		if err := r.CloseSession(cmd.Context()); err != nil {
			exitErr("chat", err)
		}
	}
	printJSON(result)
}

func parseContextArgs(args []string) (map[string]any, error) {
	if len(args) == 0 {
		return nil, nil
	}
	extra := make(map[string]any, len(args))
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("context argument %q is not key=value", arg)
		}
		extra[k] = v
	}
	return extra, nil
}

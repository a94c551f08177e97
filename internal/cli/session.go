package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jsahoo/recall/internal/store"
)

func init() {
	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "Manage conversation sessions",
	}

	newCmd := &cobra.Command{
		Use:   "new",
		Short: "Create a session",
		Run:   runSessionNew,
	}
	newCmd.Flags().StringP("user", "u", "", "Owning user id")
	newCmd.Flags().StringP("agent", "a", "", "Agent name")
	newCmd.Flags().String("meta", "", "JSON metadata")

	showCmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show a session",
		Args:  cobra.ExactArgs(1),
		Run:   runSessionShow,
	}

	historyCmd := &cobra.Command{
		Use:   "history <session-id>",
		Short: "Show conversation history, oldest first",
		Args:  cobra.ExactArgs(1),
		Run:   runSessionHistory,
	}
	historyCmd.Flags().IntP("limit", "l", 0, "Max turns")
	historyCmd.Flags().Int("before", 0, "Only turns strictly before this number")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List a user's sessions, newest first",
		Run:   runSessionList,
	}
	listCmd.Flags().StringP("user", "u", "", "User id (required)")
	listCmd.Flags().String("status", "", "Filter by status")
	listCmd.Flags().IntP("limit", "l", 0, "Max sessions")
	listCmd.MarkFlagRequired("user")

	closeCmd := &cobra.Command{
		Use:   "close <session-id>",
		Short: "Mark a session completed",
		Args:  cobra.ExactArgs(1),
		Run:   runSessionClose,
	}

	rmCmd := &cobra.Command{
		Use:   "rm <session-id>",
		Short: "Delete a session and its history",
		Args:  cobra.ExactArgs(1),
		Run:   runSessionRm,
	}

	sessionCmd.AddCommand(newCmd, showCmd, historyCmd, listCmd, closeCmd, rmCmd)
	RootCmd.AddCommand(sessionCmd)
}

func runSessionNew(cmd *cobra.Command, args []string) {
	user, _ := cmd.Flags().GetString("user")
	agentName, _ := cmd.Flags().GetString("agent")
	meta, _ := cmd.Flags().GetString("meta")

	metadata, err := parseMetaFlag(meta)
	if err != nil {
		exitErr("session new", err)
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	id, err := s.CreateSession(cmd.Context(), store.CreateSessionParams{
		UserID:    user,
		AgentName: agentName,
		Metadata:  metadata,
	})
	if err != nil {
		exitErr("session new", err)
	}
	fmt.Printf(`{"session_id":%q}`+"\n", id)
}

func runSessionShow(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	sess, err := s.GetSession(cmd.Context(), args[0])
	if err != nil {
		exitErr("session show", err)
	}
	printJSON(sess)
}

func runSessionHistory(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")
	before, _ := cmd.Flags().GetInt("before")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	turns, err := s.History(cmd.Context(), store.HistoryParams{
		SessionID:  args[0],
		Limit:      limit,
		BeforeTurn: before,
	})
	if err != nil {
		exitErr("session history", err)
	}
	printJSON(turns)
}

func runSessionList(cmd *cobra.Command, args []string) {
	user, _ := cmd.Flags().GetString("user")
	status, _ := cmd.Flags().GetString("status")
	limit, _ := cmd.Flags().GetInt("limit")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	sessions, err := s.SessionsByUser(cmd.Context(), store.SessionsByUserParams{
		UserID: user,
		Status: status,
		Limit:  limit,
	})
	if err != nil {
		exitErr("session list", err)
	}
	printJSON(sessions)
}

func runSessionClose(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if err := s.CloseSession(cmd.Context(), args[0]); err != nil {
		exitErr("session close", err)
	}
	fmt.Printf(`{"ok":true,"session_id":%q,"status":"completed"}`+"\n", args[0])
}

func runSessionRm(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if err := s.DeleteSession(cmd.Context(), args[0]); err != nil {
		exitErr("session rm", err)
	}
	fmt.Printf(`{"ok":true,"session_id":%q}`+"\n", args[0])
}

func parseMetaFlag(meta string) (map[string]any, error) {
	if meta == "" {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(meta), &m); err != nil {
		return nil, fmt.Errorf("invalid --meta JSON: %w", err)
	}
	return m, nil
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

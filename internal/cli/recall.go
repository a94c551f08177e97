package cli

import (
	"github.com/spf13/cobra"

	"github.com/jsahoo/recall/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "recall",
		Short: "Retrieve memories",
		Long:  "Retrieve long-term memories (access-tracked), or short-term memories for a session with --short.",
		Run:   runRecall,
	}

	cmd.Flags().StringP("key", "k", "", "Filter by key")
	cmd.Flags().StringP("user", "u", "", "Filter by user (also matches global memories)")
	cmd.Flags().StringP("session", "s", "", "Filter by session (required with --short)")
	cmd.Flags().StringP("type", "t", "", "Filter by memory type")
	cmd.Flags().Float64("min-importance", 0, "Minimum importance (long-term only)")
	cmd.Flags().IntP("limit", "l", 0, "Max results")
	cmd.Flags().Bool("short", false, "Query short-term memory instead")

	RootCmd.AddCommand(cmd)
}

func runRecall(cmd *cobra.Command, args []string) {
	key, _ := cmd.Flags().GetString("key")
	user, _ := cmd.Flags().GetString("user")
	session, _ := cmd.Flags().GetString("session")
	memoryType, _ := cmd.Flags().GetString("type")
	minImportance, _ := cmd.Flags().GetFloat64("min-importance")
	limit, _ := cmd.Flags().GetInt("limit")
	short, _ := cmd.Flags().GetBool("short")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if short {
		memories, err := s.RetrieveShortTerm(cmd.Context(), store.ShortTermQuery{
			SessionID:  session,
			Key:        key,
			MemoryType: memoryType,
			Limit:      limit,
		})
		if err != nil {
			exitErr("recall", err)
		}
		printJSON(memories)
		return
	}

	memories, err := s.RetrieveLongTerm(cmd.Context(), store.LongTermQuery{
		Key:           key,
		UserID:        user,
		SessionID:     session,
		MemoryType:    memoryType,
		MinImportance: minImportance,
		Limit:         limit,
	})
	if err != nil {
		exitErr("recall", err)
	}
	printJSON(memories)
}

package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jsahoo/recall/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "remember <key> <value>",
		Short: "Store a memory",
		Long:  "Store a long-term memory, or a session-scoped short-term memory with --short. Values parse as JSON when possible, else as plain text.",
		Args:  cobra.ExactArgs(2),
		Run:   runRemember,
	}

	cmd.Flags().StringP("user", "u", "", "Owning user id")
	cmd.Flags().StringP("session", "s", "", "Originating session id")
	cmd.Flags().StringP("type", "t", "", "Memory type (default: fact, or context with --short)")
	cmd.Flags().Float64P("importance", "i", 0.5, "Importance in [0,1] (long-term only)")
	cmd.Flags().Bool("short", false, "Store as short-term memory (requires --session)")
	cmd.Flags().Float64("ttl", 24, "Short-term TTL in hours")
	cmd.Flags().Bool("no-expiry", false, "Disable short-term expiry")
	cmd.Flags().String("meta", "", "JSON metadata")

	RootCmd.AddCommand(cmd)
}

func runRemember(cmd *cobra.Command, args []string) {
	key, value := args[0], parseValueArg(args[1])
	user, _ := cmd.Flags().GetString("user")
	session, _ := cmd.Flags().GetString("session")
	memoryType, _ := cmd.Flags().GetString("type")
	importance, _ := cmd.Flags().GetFloat64("importance")
	short, _ := cmd.Flags().GetBool("short")
	ttl, _ := cmd.Flags().GetFloat64("ttl")
	noExpiry, _ := cmd.Flags().GetBool("no-expiry")
	meta, _ := cmd.Flags().GetString("meta")

	metadata, err := parseMetaFlag(meta)
	if err != nil {
		exitErr("remember", err)
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	var id string
	if short {
		if session == "" {
			exitErr("remember", fmt.Errorf("--short requires --session"))
		}
		id, err = s.StoreShortTerm(cmd.Context(), store.ShortTermParams{
			SessionID:  session,
			Key:        key,
			Value:      value,
			MemoryType: memoryType,
			TTLHours:   &ttl,
			NoExpiry:   noExpiry,
			Metadata:   metadata,
		})
	} else {
		id, err = s.StoreLongTerm(cmd.Context(), store.LongTermParams{
			Key:        key,
			Value:      value,
			UserID:     user,
			SessionID:  session,
			MemoryType: memoryType,
			Importance: &importance,
			Metadata:   metadata,
		})
	}
	if err != nil {
		exitErr("remember", err)
	}
	fmt.Printf(`{"memory_id":%q}`+"\n", id)
}

// parseValueArg keeps JSON values structured and falls back to plain text.
func parseValueArg(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}

package cli

import (
	"github.com/spf13/cobra"

	"github.com/jsahoo/recall/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "link <memory-id-1> [memory-id-2]",
		Short: "Associate two long-term memories, or list neighbors",
		Long:  "With two ids, upsert an association edge for the unordered pair. With --neighbors and one id, list associated memories by descending strength.",
		Args:  cobra.RangeArgs(1, 2),
		Run:   runLink,
	}

	cmd.Flags().StringP("type", "t", "related", "Association type")
	cmd.Flags().Float64("strength", 0.5, "Association strength in [0,1]")
	cmd.Flags().Bool("neighbors", false, "List associated memories for one id")
	cmd.Flags().Float64("min-strength", 0, "Minimum strength (with --neighbors)")

	RootCmd.AddCommand(cmd)
}

func runLink(cmd *cobra.Command, args []string) {
	associationType, _ := cmd.Flags().GetString("type")
	strength, _ := cmd.Flags().GetFloat64("strength")
	neighbors, _ := cmd.Flags().GetBool("neighbors")
	minStrength, _ := cmd.Flags().GetFloat64("min-strength")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if neighbors {
		typeFilter := ""
		if cmd.Flags().Changed("type") {
			typeFilter = associationType
		}
		memories, err := s.Associated(cmd.Context(), store.AssociatedQuery{
			MemoryID:        args[0],
			AssociationType: typeFilter,
			MinStrength:     minStrength,
		})
		if err != nil {
			exitErr("link", err)
		}
		printJSON(memories)
		return
	}

	if len(args) != 2 {
		exitErr("link", cobra.ExactArgs(2)(cmd, args))
	}
	if err := s.Associate(cmd.Context(), store.AssociateParams{
		MemoryID1:       args[0],
		MemoryID2:       args[1],
		AssociationType: associationType,
		Strength:        &strength,
	}); err != nil {
		exitErr("link", err)
	}
	printJSON(map[string]any{
		"memory_id_1":      args[0],
		"memory_id_2":      args[1],
		"association_type": associationType,
		"strength":         strength,
	})
}

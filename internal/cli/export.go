package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jsahoo/recall/internal/model"
)

func init() {
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export long-term memories as JSON",
		Run:   runExport,
	}
	exportCmd.Flags().StringP("user", "u", "", "Only export this user's memories")
	exportCmd.Flags().StringP("out", "o", "", "Output file (default: stdout)")

	importCmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import long-term memories from a JSON export",
		Long:  "Reads a JSON array produced by export and stores each memory under a fresh id.",
		Args:  cobra.ExactArgs(1),
		Run:   runImport,
	}

	RootCmd.AddCommand(exportCmd, importCmd)
}

func runExport(cmd *cobra.Command, args []string) {
	user, _ := cmd.Flags().GetString("user")
	out, _ := cmd.Flags().GetString("out")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	memories, err := s.ExportLongTerm(cmd.Context(), user)
	if err != nil {
		exitErr("export", err)
	}

	w := os.Stdout
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			exitErr("export", err)
		}
		defer f.Close()
		w = f
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(memories); err != nil {
		exitErr("export", err)
	}
}

func runImport(cmd *cobra.Command, args []string) {
	data, err := os.ReadFile(args[0])
	if err != nil {
		exitErr("import", err)
	}

	var memories []model.LongTermMemory
	if err := json.Unmarshal(data, &memories); err != nil {
		exitErr("import", err)
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	n, err := s.ImportLongTerm(cmd.Context(), memories)
	if err != nil {
		exitErr("import", fmt.Errorf("%w (imported %d before failure)", err, n))
	}
	fmt.Printf(`{"imported":%d}`+"\n", n)
}

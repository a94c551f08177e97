package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jsahoo/recall/internal/sweeper"
)

func init() {
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove expired short-term memories",
		Long:  "One-shot by default. With --schedule, keep running sweeps on a cron schedule until interrupted. Long-term memory is never purged.",
		Run:   runCleanup,
	}

	cmd.Flags().String("schedule", "", `Cron schedule, e.g. "@hourly" or "*/15 * * * *"`)

	RootCmd.AddCommand(cmd)
}

func runCleanup(cmd *cobra.Command, args []string) {
	schedule, _ := cmd.Flags().GetString("schedule")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if schedule == "" {
		n, err := s.CleanupExpired(cmd.Context())
		if err != nil {
			exitErr("cleanup", err)
		}
		fmt.Printf(`{"removed":%d}`+"\n", n)
		return
	}

	sw, err := sweeper.New(s, schedule, cliLogger())
	if err != nil {
		exitErr("cleanup", err)
	}
	sw.Start()
	fmt.Fprintf(os.Stderr, "sweeping on schedule %q, ctrl-c to stop\n", schedule)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	sw.Stop()
}

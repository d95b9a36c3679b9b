package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/andresmejia3/facegate/internal/types"
	"github.com/andresmejia3/facegate/internal/utils"
	"github.com/spf13/cobra"
)

var attemptsLimit int

var attemptsCmd = &cobra.Command{
	Use:   "attempts",
	Short: "List recorded face login attempts, newest first",
	Run: func(cmd *cobra.Command, args []string) {
		if err := openStore(cmd.Context(), true); err != nil {
			utils.Die("Failed to open attempt history", err, nil)
		}
		attempts, err := DB.ListAttempts(cmd.Context(), attemptsLimit)
		if err != nil {
			utils.Die("Failed to list attempts", err, nil)
		}
		printAttempts(os.Stdout, attempts)
	},
}

func init() {
	attemptsCmd.Flags().IntVarP(&attemptsLimit, "limit", "n", 20, "Number of attempts to show (0 = all)")
	rootCmd.AddCommand(attemptsCmd)
}

func printAttempts(out io.Writer, attempts []types.Attempt) {
	if len(attempts) == 0 {
		fmt.Fprintln(out, "No attempts recorded.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "TIME\tUSER\tRESULT\tMESSAGE")
	fmt.Fprintln(w, "----\t----\t------\t-------")
	for _, a := range attempts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.CreatedAt.Local().Format("2006-01-02 15:04:05"), a.Username, a.Kind, truncate(a.Message, 60))
	}
	w.Flush()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

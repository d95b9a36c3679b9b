package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/andresmejia3/facegate/internal/utils"
	"github.com/spf13/cobra"
)

var resetYes bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the recorded attempt history",
	Run: func(cmd *cobra.Command, args []string) {
		reader := bufio.NewReader(os.Stdin)
		if !resetYes && !confirm(reader, os.Stdout, "⚠️  Are you sure you want to DROP the attempt history?") {
			fmt.Println("Nothing changed.")
			return
		}

		if err := openStore(cmd.Context(), true); err != nil {
			utils.Die("Failed to open attempt history", err, nil)
		}
		fmt.Println("🗑️  Clearing attempt history...")
		if err := DB.Reset(cmd.Context()); err != nil {
			utils.Die("Failed to reset database", err, nil)
		}
		fmt.Println("✨ History cleared.")
	},
}

func init() {
	resetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "Do not ask for confirmation")
	rootCmd.AddCommand(resetCmd)
}

func confirm(r *bufio.Reader, out io.Writer, prompt string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", prompt)
	res, _ := r.ReadString('\n')
	res = strings.TrimSpace(strings.ToLower(res))
	return res == "y" || res == "yes"
}

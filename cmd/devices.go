package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/andresmejia3/facegate/internal/camera"
	"github.com/andresmejia3/facegate/internal/utils"
	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List local camera devices",
	Run: func(cmd *cobra.Command, args []string) {
		runDevices()
	},
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}

func runDevices() {
	devices, err := camera.ListDevices()
	if err != nil {
		utils.Die("Failed to list camera devices", err, nil)
	}

	if len(devices) == 0 {
		fmt.Println("No camera devices found.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "#\tDEVICE")
	fmt.Fprintln(w, "-\t------")
	for i, d := range devices {
		fmt.Fprintf(w, "%d\t%s\n", i, d)
	}
	w.Flush()
}

package main

import "fmt"
import "os"

import "github.com/spf13/cobra"

import "github.com/neurlang/sincnet/device"

var (
	count   int
	useCUDA bool
	list    bool
)

var rootCmd = &cobra.Command{
	Use:          "select_gpu -n COUNT",
	Short:        "Pick the GPUs with the most free memory",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		var e device.Enumerator = device.NvidiaSMI{}
		if useCUDA {
			e = device.CUDA{}
		}
		devs, err := e.Devices(cmd.Context())
		if err != nil {
			return err
		}
		if list {
			for _, d := range devs {
				fmt.Fprintln(os.Stderr, d)
			}
		}
		ids, err := device.Select(devs, count)
		if err != nil {
			return err
		}
		fmt.Println(device.VisibleDevices(ids))
		return nil
	},
}

func init() {
	rootCmd.Flags().IntVarP(&count, "count", "n", 1, "number of devices")
	rootCmd.Flags().BoolVar(&useCUDA, "cuda", false, "query the CUDA driver instead of nvidia-smi (needs -tags cuda)")
	rootCmd.Flags().BoolVarP(&list, "list", "l", false, "print every device to stderr")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

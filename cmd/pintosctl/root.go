// Command pintosctl drives the storage/paging core from the shell:
// formatting a device, running a scripted workload against it, and
// dumping cache counters. Grounded on go-apfs's cmd/root.go
// (Execute/PersistentFlags shape) and go-nfsd's cmd/*/main.go
// (one-binary-per-scenario layout, collapsed here into subcommands of
// one binary since the workloads are much smaller).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ziqian2000/PintOS/internal/klog"
)

var (
	verbose    bool
	configFile string
)

var rootCmd = &cobra.Command{
	Use:     "pintosctl",
	Short:   "Drive the block cache, inode layer, and paging core from the shell",
	Version: "0.1.0-dev",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to a YAML/TOML config file")
	rootCmd.AddCommand(mkfsCmd, runCmd, statsCmd)
}

func loadViper() *viper.Viper {
	if verbose {
		klog.SetLevel(klog.LevelDebug)
	}
	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			klog.Fatalf("reading config file %s: %v", configFile, err)
		}
	}
	return v
}

func main() {
	Execute()
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziqian2000/PintOS/block"
	"github.com/ziqian2000/PintOS/cache"
	"github.com/ziqian2000/PintOS/config"
	"github.com/ziqian2000/PintOS/freemap"
)

var mkfsSectors uint32

var mkfsCmd = &cobra.Command{
	Use:   "mkfs",
	Short: "Create and format a fresh filesystem image (no swap image)",
	RunE: func(cmd *cobra.Command, args []string) error {
		v := loadViper()
		cfg, err := config.Load(v)
		if err != nil {
			return err
		}

		dev, err := block.OpenFileDevice(cfg.FilesysImage, mkfsSectors, true)
		if err != nil {
			return fmt.Errorf("creating filesys image: %w", err)
		}
		defer dev.Close()

		c := cache.New(dev)
		freemap.Format(c, 0, mkfsSectors)
		c.Flush()

		fmt.Printf("formatted %s (%d sectors) as device %s\n", cfg.FilesysImage, mkfsSectors, cfg.DeviceID)
		return nil
	},
}

func init() {
	mkfsCmd.Flags().Uint32Var(&mkfsSectors, "sectors", 8192, "number of sectors in the new filesystem image")
}

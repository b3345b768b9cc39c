package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziqian2000/PintOS/block"
	"github.com/ziqian2000/PintOS/cache"
	"github.com/ziqian2000/PintOS/config"
	stat "github.com/ziqian2000/PintOS/stats"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Warm the cache with one read pass and print its counters",
	RunE: func(cmd *cobra.Command, args []string) error {
		v := loadViper()
		cfg, err := config.Load(v)
		if err != nil {
			return err
		}

		dev, err := block.OpenFileDevice(cfg.FilesysImage, 0, false)
		if err != nil {
			return fmt.Errorf("opening filesys image: %w", err)
		}
		defer dev.Close()

		c := cache.New(dev)
		for s := block.Sector(0); s < block.Sector(dev.NumSectors()) && s < 64; s++ {
			e := c.Lock(s, cache.ModeShared)
			c.Read(e)
			c.Unlock(e)
		}
		stat.Print(c, nil, 0)
		return nil
	},
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziqian2000/PintOS/block"
	"github.com/ziqian2000/PintOS/cache"
	"github.com/ziqian2000/PintOS/config"
	"github.com/ziqian2000/PintOS/freemap"
	"github.com/ziqian2000/PintOS/inode"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Open the filesystem image and exercise create/write/read/remove once",
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
		free := freemap.New(c, 0, dev.NumSectors())
		fs := inode.NewFS(c, free)

		ip, code := fs.Create(inode.TypeFile)
		if code != 0 {
			return fmt.Errorf("create: %s", code)
		}
		msg := []byte("pintosctl smoke test payload")
		if _, code := fs.WriteAt(ip, msg, 0); code != 0 {
			return fmt.Errorf("write: %s", code)
		}
		out := make([]byte, len(msg))
		if _, code := fs.ReadAt(ip, out, 0); code != 0 {
			return fmt.Errorf("read: %s", code)
		}
		fmt.Printf("round-trip ok: %q\n", string(out))

		fs.Remove(ip)
		fs.Close(ip)
		c.Flush()
		return nil
	},
}

// Package stats renders cache and frame counters as an aligned
// table via github.com/rodaine/table, the same library go-nfsd's
// util/stats package uses to print its own operation counters.
package stats

import (
	"os"

	"github.com/rodaine/table"

	"github.com/ziqian2000/PintOS/cache"
	"github.com/ziqian2000/PintOS/frame"
)

// Print writes a two-column "metric / value" table summarizing the
// block cache's hit/miss/evict/IO counters and the frame table's
// current occupancy.
func Print(c *cache.Cache, frames *frame.Table, poolTotal int) {
	tbl := table.New("Metric", "Value")
	tbl.WithWriter(os.Stdout)

	cs := c.Stats()
	tbl.AddRow("cache hits", cs.Hits)
	tbl.AddRow("cache misses", cs.Misses)
	tbl.AddRow("cache evictions", cs.Evicts)
	tbl.AddRow("disk reads", cs.Reads)
	tbl.AddRow("disk writes", cs.Writes)
	if frames != nil {
		tbl.AddRow("frames occupied", frames.Occupied())
		tbl.AddRow("frames total", poolTotal)
	}
	tbl.Print()
}

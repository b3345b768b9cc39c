package cache

import (
	"time"

	"github.com/ziqian2000/PintOS/block"
)

// StartFlushDaemon periodically flushes dirty, idle buffers, matching
// the commented-out flush_daemon in pintos's filesys/cache.c. Off by
// default: callers that want it invoke this explicitly.
func (c *Cache) StartFlushDaemon(interval time.Duration) {
	c.daemonStop = make(chan struct{})
	c.daemonWg.Add(1)
	go func() {
		defer c.daemonWg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-c.daemonStop:
				return
			case <-t.C:
				c.Flush()
			}
		}
	}()
}

// StopFlushDaemon stops a daemon started with StartFlushDaemon.
func (c *Cache) StopFlushDaemon() {
	if c.daemonStop == nil {
		return
	}
	close(c.daemonStop)
	c.daemonWg.Wait()
	c.daemonStop = nil
}

// readaheadQueueSize bounds the read-ahead backlog so a runaway
// producer of read-ahead hints cannot exhaust memory, matching the
// design note next to pintos's (disabled) cache_readahead: a malloc
// failure there silently drops the hint rather than blocking.
const readaheadQueueSize = 32

// StartReadahead launches a worker that warms sectors pushed via
// Readahead, mirroring the commented-out readahead_daemon in
// filesys/cache.c. Off by default.
func (c *Cache) StartReadahead() {
	c.readaheadCh = make(chan block.Sector, readaheadQueueSize)
	c.daemonWg.Add(1)
	go func() {
		defer c.daemonWg.Done()
		for s := range c.readaheadCh {
			e := c.Lock(s, ModeShared)
			c.Read(e)
			c.Unlock(e)
		}
	}()
}

// StopReadahead stops a worker started with StartReadahead.
func (c *Cache) StopReadahead() {
	if c.readaheadCh == nil {
		return
	}
	close(c.readaheadCh)
	c.daemonWg.Wait()
	c.readaheadCh = nil
}

// Readahead enqueues a hint to prefetch s. Non-blocking: if the bounded
// queue is full, the hint is dropped, exactly as a failed malloc drops
// a hint in the original's cache_readahead.
func (c *Cache) Readahead(s block.Sector) {
	if c.readaheadCh == nil {
		return
	}
	select {
	case c.readaheadCh <- s:
	default:
	}
}

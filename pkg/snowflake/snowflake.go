// Package snowflake wraps bwmarrin/snowflake behind a process-wide node.
package snowflake

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	mu   sync.RWMutex
	node *snowflake.Node
)

// Init creates the process-wide snowflake node. Node IDs must be in [0, 1023].
func Init(nodeID int64) error {
	n, err := snowflake.NewNode(nodeID)
	if err != nil {
		return fmt.Errorf("create snowflake node: %w", err)
	}

	mu.Lock()
	node = n
	mu.Unlock()
	return nil
}

// NextID returns the next unique ID. Panics if Init was never called.
func NextID() int64 {
	mu.RLock()
	n := node
	mu.RUnlock()

	if n == nil {
		panic("snowflake: NextID called before Init")
	}
	return n.Generate().Int64()
}

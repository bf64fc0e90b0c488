// Package id issues the snowflake ids used as primary keys for tickets,
// responses, insights, analysis runs and FAQ drafts.
package id

import (
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Node ids per binary. Processes running at the same time must not share one.
const (
	NodeServer int64 = 1
	NodeWorker int64 = 2
	NodeCLI    int64 = 3
)

var (
	mu   sync.RWMutex
	node *snowflake.Node
)

// Init selects the node id for this process. Later calls are ignored so that
// test suites can call it from every BeforeSuite.
func Init(nodeID int64) error {
	mu.Lock()
	defer mu.Unlock()

	if node != nil {
		return nil
	}
	n, err := snowflake.NewNode(nodeID)
	if err != nil {
		return fmt.Errorf("snowflake node %d: %w", nodeID, err)
	}
	node = n
	return nil
}

// New returns a fresh id. It panics if Init was never called.
func New() int64 {
	mu.RLock()
	n := node
	mu.RUnlock()

	if n == nil {
		panic("id: New called before Init")
	}
	return n.Generate().Int64()
}

// Time reports when id was issued.
func Time(id int64) time.Time {
	return time.UnixMilli(snowflake.ID(id).Time())
}

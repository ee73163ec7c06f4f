package generic

import (
	"sync"

	"github.com/bwmarrin/snowflake"
)

// DefaultNodeID is used when InitIDs was never called (tests, CLI tools).
const DefaultNodeID int64 = 1

var (
	idNode *snowflake.Node
	idErr  error
	idOnce sync.Once
)

// InitIDs initializes the Snowflake node used for row ids. Only the first
// call has an effect.
func InitIDs(nodeID int64) error {
	idOnce.Do(func() {
		idNode, idErr = snowflake.NewNode(nodeID)
	})
	return idErr
}

// NewID generates a time-ordered int64 row id. Rows get their id before the
// bulk insert so a whole batch can be written in one statement.
func NewID() int64 {
	if err := InitIDs(DefaultNodeID); err != nil {
		panic(err)
	}
	return idNode.Generate().Int64()
}

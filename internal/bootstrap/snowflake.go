package bootstrap

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"os"

	"github.com/jt828/users-api/pkg/snowflake"
	snowflakeImpl "github.com/jt828/users-api/pkg/snowflake/implementation"
)

func InitializeSnowflake() (snowflake.Snowflake, error) {
	nodeID, err := PodNodeID()
	if err != nil {
		return nil, err
	}
	return snowflakeImpl.NewSnowflake(nodeID)
}

// PodNodeID derives a snowflake node id in [0, 1023] from HOSTNAME, falling
// back to the kernel hostname when the variable is not exported.
func PodNodeID() (int64, error) {
	hostname := os.Getenv("HOSTNAME")
	if hostname == "" {
		h, err := os.Hostname()
		if err != nil || h == "" {
			return 0, fmt.Errorf("HOSTNAME is not set")
		}
		hostname = h
	}

	return NodeIDFor(hostname), nil
}

func NodeIDFor(hostname string) int64 {
	h := fnv.New64a()
	h.Write([]byte(hostname))
	return int64(binary.BigEndian.Uint64(h.Sum(nil)) % 1024)
}

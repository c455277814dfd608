package common

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spaolacci/murmur3"
)

// PartitionOf maps an aggregate identifier to a Kafka partition. The mapping
// is a pure function of the identifier bytes and the partition count, so
// every process that computes it agrees on the result. That agreement is
// what keeps all events of one aggregate on the same partition and therefore
// in order.
func PartitionOf(id uuid.UUID, numPartitions int32) (int32, error) {
	if numPartitions <= 0 {
		return 0, fmt.Errorf("invalid partition count: %d", numPartitions)
	}

	hash := murmur3.Sum32WithSeed(id[:], 0)

	// Non-negative remainder regardless of the hash's sign when interpreted
	// as a signed value.
	return int32(hash % uint32(numPartitions)), nil
}

package common

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartitionOfIsDeterministic(t *testing.T) {
	id := uuid.MustParse("a2e1a5e0-6f2b-4c8e-9a3d-0b1c2d3e4f50")

	first, err := PartitionOf(id, 6)
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		p, err := PartitionOf(id, 6)
		require.NoError(t, err)
		assert.Equal(t, first, p)
	}
}

func TestPartitionOfStaysInRange(t *testing.T) {
	for _, numPartitions := range []int32{1, 2, 3, 6, 12, 100} {
		for i := 0; i < 200; i++ {
			p, err := PartitionOf(uuid.New(), numPartitions)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, p, int32(0))
			assert.Less(t, p, numPartitions)
		}
	}
}

func TestPartitionOfSpreadsAcrossPartitions(t *testing.T) {
	const numPartitions = 8

	seen := make(map[int32]bool)
	for i := 0; i < 1000; i++ {
		p, err := PartitionOf(uuid.New(), numPartitions)
		require.NoError(t, err)
		seen[p] = true
	}

	// With 1000 random ids every partition should receive traffic.
	assert.Len(t, seen, numPartitions)
}

func TestPartitionOfRejectsInvalidCount(t *testing.T) {
	_, err := PartitionOf(uuid.New(), 0)
	require.Error(t, err)

	_, err = PartitionOf(uuid.New(), -3)
	require.Error(t, err)
}

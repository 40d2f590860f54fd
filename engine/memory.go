package engine

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/core1_0"
)

// HostMemory is the property set required for CPU-writable buffers that
// need no explicit flush.
const HostMemory = core1_0.MemoryPropertyHostVisible | core1_0.MemoryPropertyHostCoherent

// FindMemoryType returns the first memory type index whose bit is set in
// typeFilter and whose property flags are a superset of properties.
func FindMemoryType(memoryTypes []core1_0.MemoryType, typeFilter uint32, properties core1_0.MemoryPropertyFlags) (int, error) {
	for i, memoryType := range memoryTypes {
		if i >= 32 {
			break
		}
		typeBit := uint32(1) << uint(i)

		if (typeFilter&typeBit) != 0 && (memoryType.PropertyFlags&properties) == properties {
			return i, nil
		}
	}

	return 0, errors.Mark(
		errors.AssertionFailedf("no memory type matches filter %#x with properties %s", typeFilter, properties),
		ErrNoMemoryType)
}

func isHostMemory(properties core1_0.MemoryPropertyFlags) bool {
	return properties&HostMemory == HostMemory
}

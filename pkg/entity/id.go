package entity

// ID is the 64-bit entity identifier shared by nodes and edges (spec §3).
// The top bit is reserved by the matrix layer's multi-edge slot encoding; it
// is never a valid entity id on its own (entity ids are dense and allocated
// starting at 0, so the reservation only matters once ids approach 2^63,
// which this block allocator will not reach in practice).
type ID uint64

// Invalid is the sentinel value 2^64-1, spec §3.
const Invalid ID = ID(^uint64(0))

func (id ID) IsValid() bool { return id != Invalid }

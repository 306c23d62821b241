package wasmbridge

// Memory is host-side access to a guest's linear memory. Offsets and
// lengths are guest addresses; accesses beyond the current memory size
// fail without partial effect.
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
	MemorySize() (uint32, error)
}

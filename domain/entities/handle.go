package entities

// Handle is the guest-visible name of a function binding.
// It packs a generation with a module slot and a binding slot:
//
//	bits 20-31  generation (never 0)
//	bits 10-19  module slot (1-based)
//	bits  0-9   binding slot (1-based)
//
// NoBinding (0) is the "no binding" sentinel returned on resolution failure.
type Handle uint32

const (
	NoBinding Handle = 0

	slotBits       = 10
	generationBits = 12

	// MaxSlots is the number of usable slots per table; slot 0 is reserved.
	MaxSlots = 1<<slotBits - 1
	// MaxGeneration is the last generation a slot issues before it is retired.
	MaxGeneration = 1<<generationBits - 1
)

// NewHandle packs the three fields. Out-of-range fields are masked.
func NewHandle(generation uint16, module, binding uint16) Handle {
	return Handle(uint32(generation&MaxGeneration)<<(2*slotBits) |
		uint32(module&MaxSlots)<<slotBits |
		uint32(binding&MaxSlots))
}

// Generation returns the generation field.
func (h Handle) Generation() uint16 {
	return uint16(uint32(h) >> (2 * slotBits) & MaxGeneration)
}

// ModuleSlot returns the module slot index.
func (h Handle) ModuleSlot() uint16 {
	return uint16(uint32(h) >> slotBits & MaxSlots)
}

// BindingSlot returns the binding slot index.
func (h Handle) BindingSlot() uint16 {
	return uint16(uint32(h) & MaxSlots)
}

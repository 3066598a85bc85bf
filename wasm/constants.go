package wasm

// WebAssembly binary format magic number and version.
const (
	// Magic is the WebAssembly binary magic number ("\0asm" in little-endian).
	Magic uint32 = 0x6D736100

	// Version is the supported WebAssembly binary format version.
	Version uint32 = 0x01
)

// Section IDs define the binary identifiers for each module section.
// Sections must appear in increasing order by ID (except custom sections).
const (
	SectionCustom   byte = 0  // Custom section (can appear anywhere)
	SectionType     byte = 1  // Type section (function signatures)
	SectionImport   byte = 2  // Import section
	SectionFunction byte = 3  // Function section (type indices)
	SectionMemory   byte = 5  // Memory section
	SectionExport   byte = 7  // Export section
	SectionCode     byte = 10 // Code section (function bodies)
	SectionData     byte = 11 // Data section
)

// Import/Export descriptor kinds identify the type of imported or exported item.
const (
	KindFunc   byte = 0 // Function import/export
	KindMemory byte = 2 // Memory import/export
)

// Value type encodings as defined in the WebAssembly binary format.
const (
	ValI32 ValType = 0x7F // 32-bit integer
	ValI64 ValType = 0x7E // 64-bit integer
	ValF32 ValType = 0x7D // 32-bit float
	ValF64 ValType = 0x7C // 64-bit float
)

// FuncTypeByte prefixes every function type in the type section.
const FuncTypeByte byte = 0x60

// BlockTypeVoid is the empty block type (0x40 as a single byte).
const BlockTypeVoid byte = 0x40

// Limits flags
const (
	LimitsNoMax  byte = 0x00
	LimitsHasMax byte = 0x01
)

// PageSize is the size of one linear memory page in bytes.
const PageSize = 65536

// Control flow opcodes
const (
	OpUnreachable byte = 0x00
	OpNop         byte = 0x01
	OpBlock       byte = 0x02
	OpLoop        byte = 0x03
	OpEnd         byte = 0x0B
	OpBr          byte = 0x0C
	OpBrIf        byte = 0x0D
	OpReturn      byte = 0x0F
	OpCall        byte = 0x10
)

// Parametric opcodes
const (
	OpDrop byte = 0x1A
)

// Variable opcodes
const (
	OpLocalGet byte = 0x20
	OpLocalSet byte = 0x21
)

// Memory opcodes
const (
	OpI32Load  byte = 0x28
	OpI32Store byte = 0x36
)

// Numeric opcodes (i32 subset)
const (
	OpI32Const byte = 0x41
	OpI32Eqz   byte = 0x45
	OpI32Eq    byte = 0x46
	OpI32Ne    byte = 0x47
	OpI32LtS   byte = 0x48
	OpI32LtU   byte = 0x49
	OpI32GeS   byte = 0x4E
	OpI32GeU   byte = 0x4F
	OpI32Add   byte = 0x6A
	OpI32Sub   byte = 0x6B
	OpI32Mul   byte = 0x6C
	OpI32Shl   byte = 0x74
)

package pickle

// Protocol is the pickle protocol version written and accepted.
const Protocol = 2

// Opcodes of the protocol 2 subset this format uses. Values are the wire
// bytes of the pickle format.
const (
	opMark        byte = '('  // push a marker onto the stack
	opStop        byte = '.'  // end of stream; top of stack is the result
	opNone        byte = 'N'  // push None
	opBinInt      byte = 'J'  // push 4-byte signed little-endian int
	opBinInt1     byte = 'K'  // push 1-byte unsigned int
	opBinInt2     byte = 'M'  // push 2-byte unsigned little-endian int
	opBinFloat    byte = 'G'  // push 8-byte big-endian IEEE 754 float
	opBinUnicode  byte = 'X'  // push UTF-8 string, 4-byte length prefix
	opEmptyList   byte = ']'  // push empty list
	opAppend      byte = 'a'  // append top of stack to the list below
	opAppends     byte = 'e'  // extend list below mark with stack items
	opEmptyDict   byte = '}'  // push empty dict
	opSetItem     byte = 's'  // dict[key] = value from top of stack
	opSetItems    byte = 'u'  // add key/value pairs above mark to dict
	opEmptyTuple  byte = ')'  // push empty tuple
	opTuple       byte = 't'  // build tuple from items above mark
	opBinGet      byte = 'h'  // push memo value, 1-byte id
	opLongBinGet  byte = 'j'  // push memo value, 4-byte id
	opBinPut      byte = 'q'  // memoize top of stack, 1-byte id
	opLongBinPut  byte = 'r'  // memoize top of stack, 4-byte id
	opGlobal      byte = 'c'  // push class or builtin by qualified name
	opBinPersID   byte = 'Q'  // resolve persistent id from top of stack
	opReduce      byte = 'R'  // apply callable to argument tuple
	opBuild       byte = 'b'  // restore object state
	opProto       byte = 0x80 // protocol version marker
	opNewTrue     byte = 0x88 // push True
	opNewFalse    byte = 0x89 // push False
	opTuple1      byte = 0x85 // build 1-tuple from top of stack
	opTuple2      byte = 0x86 // build 2-tuple
	opTuple3      byte = 0x87 // build 3-tuple
	opLong1       byte = 0x8a // push arbitrary-precision int, 1-byte length
)

// Well-known callables pushed by opGlobal.
const (
	builtinRebuildTensor = "torch._utils._rebuild_tensor_v2"
	builtinOrderedDict   = "collections.OrderedDict"
)

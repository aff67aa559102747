package vm

import (
	"encoding/binary"
	"math"

	"github.com/vertexvm/vertexvm/opcode"
	"github.com/vertexvm/vertexvm/value"
	"github.com/vertexvm/vertexvm/wasm"
)

// execMemory handles every scalar load/store instruction. Effective
// address computation (offset + dynamic address) is done in uint64 so
// a wraparound can't silently alias into bounds; instance.Memory.Read
// and .Write each do their own bounds check against the backing slice.
func (v *VM) execMemory(instr wasm.Instruction) {
	arg := instr.Imm.(wasm.MemoryImm).Arg
	mem := v.mems[arg.MemIdx]

	switch instr.Op {
	case opcode.I32Load:
		addr := v.effectiveAddr(arg)
		v.pushU32(binary.LittleEndian.Uint32(v.readMem(mem, addr, 4)))
	case opcode.I64Load:
		addr := v.effectiveAddr(arg)
		v.pushU64(binary.LittleEndian.Uint64(v.readMem(mem, addr, 8)))
	case opcode.F32Load:
		addr := v.effectiveAddr(arg)
		bits := binary.LittleEndian.Uint32(v.readMem(mem, addr, 4))
		v.push(value.F32Val(math.Float32frombits(bits)))
	case opcode.F64Load:
		addr := v.effectiveAddr(arg)
		bits := binary.LittleEndian.Uint64(v.readMem(mem, addr, 8))
		v.push(value.F64Val(math.Float64frombits(bits)))
	case opcode.I32Load8S:
		addr := v.effectiveAddr(arg)
		v.pushI32(int32(int8(v.readMem(mem, addr, 1)[0])))
	case opcode.I32Load8U:
		addr := v.effectiveAddr(arg)
		v.pushU32(uint32(v.readMem(mem, addr, 1)[0]))
	case opcode.I32Load16S:
		addr := v.effectiveAddr(arg)
		v.pushI32(int32(int16(binary.LittleEndian.Uint16(v.readMem(mem, addr, 2)))))
	case opcode.I32Load16U:
		addr := v.effectiveAddr(arg)
		v.pushU32(uint32(binary.LittleEndian.Uint16(v.readMem(mem, addr, 2))))
	case opcode.I64Load8S:
		addr := v.effectiveAddr(arg)
		v.pushI64(int64(int8(v.readMem(mem, addr, 1)[0])))
	case opcode.I64Load8U:
		addr := v.effectiveAddr(arg)
		v.pushU64(uint64(v.readMem(mem, addr, 1)[0]))
	case opcode.I64Load16S:
		addr := v.effectiveAddr(arg)
		v.pushI64(int64(int16(binary.LittleEndian.Uint16(v.readMem(mem, addr, 2)))))
	case opcode.I64Load16U:
		addr := v.effectiveAddr(arg)
		v.pushU64(uint64(binary.LittleEndian.Uint16(v.readMem(mem, addr, 2))))
	case opcode.I64Load32S:
		addr := v.effectiveAddr(arg)
		v.pushI64(int64(int32(binary.LittleEndian.Uint32(v.readMem(mem, addr, 4)))))
	case opcode.I64Load32U:
		addr := v.effectiveAddr(arg)
		v.pushU64(uint64(binary.LittleEndian.Uint32(v.readMem(mem, addr, 4))))

	case opcode.I32Store:
		val := v.popU32()
		addr := v.effectiveAddr(arg)
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], val)
		v.writeMem(mem, addr, buf[:])
	case opcode.I64Store:
		val := v.popU64()
		addr := v.effectiveAddr(arg)
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], val)
		v.writeMem(mem, addr, buf[:])
	case opcode.F32Store:
		val := v.popF32()
		addr := v.effectiveAddr(arg)
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(val))
		v.writeMem(mem, addr, buf[:])
	case opcode.F64Store:
		val := v.popF64()
		addr := v.effectiveAddr(arg)
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(val))
		v.writeMem(mem, addr, buf[:])
	case opcode.I32Store8:
		val := v.popU32()
		addr := v.effectiveAddr(arg)
		v.writeMem(mem, addr, []byte{byte(val)})
	case opcode.I32Store16:
		val := v.popU32()
		addr := v.effectiveAddr(arg)
		var buf [2]byte
		binary.LittleEndian.PutUint16(buf[:], uint16(val))
		v.writeMem(mem, addr, buf[:])
	case opcode.I64Store8:
		val := v.popU64()
		addr := v.effectiveAddr(arg)
		v.writeMem(mem, addr, []byte{byte(val)})
	case opcode.I64Store16:
		val := v.popU64()
		addr := v.effectiveAddr(arg)
		var buf [2]byte
		binary.LittleEndian.PutUint16(buf[:], uint16(val))
		v.writeMem(mem, addr, buf[:])
	case opcode.I64Store32:
		val := v.popU64()
		addr := v.effectiveAddr(arg)
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], uint32(val))
		v.writeMem(mem, addr, buf[:])
	}
}

func (v *VM) effectiveAddr(arg wasm.MemArg) uint64 {
	dyn := v.popU32()
	return uint64(dyn) + uint64(arg.Offset)
}

func (v *VM) readMem(mem interface {
	Read([]byte, uint64) (int, error)
}, addr uint64, n int) []byte {
	buf := make([]byte, n)
	if _, err := mem.Read(buf, addr); err != nil {
		panic(ErrOutOfBoundMemoryAccess)
	}
	return buf
}

func (v *VM) writeMem(mem interface {
	Write([]byte, uint64) (int, error)
}, addr uint64, data []byte) {
	if _, err := mem.Write(data, addr); err != nil {
		panic(ErrOutOfBoundMemoryAccess)
	}
}

package engine

import (
	"encoding/binary"
	"math"
)

// Value types and opcodes used by the stub engine module.
const (
	wasmI32 = 0x7f
	wasmF64 = 0x7c

	opEnd        = 0x0b
	opLocalGet   = 0x20
	opGlobalGet  = 0x23
	opGlobalSet  = 0x24
	opI32Load    = 0x28
	opF64Load    = 0x2b
	opI32Store   = 0x36
	opF64Store   = 0x39
	opI32Store8  = 0x3a
	opI32Const   = 0x41
	opF64Const   = 0x44
	opI32Add     = 0x6a
	opI32Sub     = 0x6b
	opI32Mul     = 0x6c
	opI32And     = 0x71
	opI32Shl     = 0x74
	opF64Mul     = 0xa2
	opF64FromI32 = 0xb7
)

// Fixed addresses the stub engine records its inputs at. The bump heap
// starts above them at stubHeap.
const (
	stubMallocs      = 8
	stubFrees        = 12
	stubOpenPath     = 32
	stubHydPath      = 36
	stubInitFlag     = 40
	stubOutPath      = 44
	stubMsxPath      = 48
	stubIndexName    = 52
	stubIDMaxLen     = 56
	stubErrorCode    = 60
	stubErrorLen     = 64
	stubConstIndex   = 68
	stubConstValue   = 72
	stubParamValue   = 80
	stubInitValue    = 88
	stubSourceLevel  = 96
	stubSourcePat    = 104
	stubSourceType   = 108
	stubPatternLast  = 112
	stubPatternN     = 120
	stubPatternValue = 128
	stubPatternName  = 136

	stubHeap = 1024
)

type wasmFunc struct {
	name    string
	params  []byte
	results []byte
	body    []byte
}

func uleb(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
			continue
		}
		return append(out, b)
	}
}

func sleb(v int32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

func name(s string) []byte {
	return append(uleb(uint32(len(s))), s...)
}

func vec(n int, items ...[]byte) []byte {
	out := uleb(uint32(n))
	for _, it := range items {
		out = append(out, it...)
	}
	return out
}

func section(id byte, body []byte) []byte {
	return append(append([]byte{id}, uleb(uint32(len(body)))...), body...)
}

func seq(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func i32c(v int32) []byte { return append([]byte{opI32Const}, sleb(v)...) }

func f64c(v float64) []byte {
	return binary.LittleEndian.AppendUint64([]byte{opF64Const}, math.Float64bits(v))
}

func get(local uint32) []byte { return append([]byte{opLocalGet}, uleb(local)...) }

func op(b ...byte) []byte { return b }

func storeI32(offset uint32) []byte { return append([]byte{opI32Store, 2}, uleb(offset)...) }

func storeF64(offset uint32) []byte { return append([]byte{opF64Store, 3}, uleb(offset)...) }

func storeByte(offset uint32) []byte { return append([]byte{opI32Store8, 0}, uleb(offset)...) }

func loadI32(offset uint32) []byte { return append([]byte{opI32Load, 2}, uleb(offset)...) }

func loadF64(offset uint32) []byte { return append([]byte{opF64Load, 3}, uleb(offset)...) }

// record stores local at a fixed address.
func record(addr int32, local uint32) []byte {
	return seq(i32c(addr), get(local), storeI32(0))
}

// recordF64 stores an f64 local at a fixed address.
func recordF64(addr int32, local uint32) []byte {
	return seq(i32c(addr), get(local), storeF64(0))
}

// text writes s byte by byte through the pointer in local.
func text(local uint32, s string) []byte {
	var out []byte
	for i := 0; i < len(s); i++ {
		out = seq(out, get(local), i32c(int32(s[i])), storeByte(uint32(i)))
	}
	return out
}

func incr(addr int32) []byte {
	return seq(i32c(addr), i32c(addr), loadI32(0), i32c(1), op(opI32Add), storeI32(0))
}

func ret(code int32) []byte { return i32c(code) }

func ints(n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = wasmI32
	}
	return out
}

// stubEngineFuncs describes every engine entry point. Getters write values
// derived from their arguments; setters and path calls record what they
// received at the stub* addresses.
func stubEngineFuncs() []wasmFunc {
	status := []byte{wasmI32}
	quality := func(sym string, scale int32) wasmFunc {
		// out = index*scale + column
		return wasmFunc{sym, ints(4), status, seq(
			get(3), get(1), i32c(scale), op(opI32Mul), get(2), op(opI32Add),
			op(opF64FromI32), storeF64(0), ret(0))}
	}
	return []wasmFunc{
		{mallocExport, ints(1), []byte{wasmI32}, seq(
			op(opGlobalGet, 0),
			op(opGlobalGet, 0), get(0), op(opI32Add), i32c(7), op(opI32Add), i32c(-8), op(opI32And),
			op(opGlobalSet, 0),
			incr(stubMallocs))},
		{freeExport, ints(1), nil, incr(stubFrees)},

		{SymOpen, ints(1), status, seq(record(stubOpenPath, 0), ret(0))},
		{SymClose, nil, status, ret(519)},
		{SymUseHydFile, ints(1), status, seq(record(stubHydPath, 0), ret(0))},
		{SymSolveH, nil, status, ret(0)},
		{SymInit, ints(1), status, seq(record(stubInitFlag, 0), ret(0))},
		{SymSolveQ, nil, status, ret(0)},
		{SymStep, ints(2), status, seq(
			get(0), i32c(3600), storeI32(0),
			get(1), i32c(7200), storeI32(0),
			ret(0))},
		{SymSaveOutFile, ints(1), status, seq(record(stubOutPath, 0), ret(0))},
		{SymSaveMsxFile, ints(1), status, seq(record(stubMsxPath, 0), ret(0))},
		{SymReport, nil, status, ret(0)},
		{SymGetIndex, ints(3), status, seq(
			record(stubIndexName, 1),
			get(2), get(0), i32c(40), op(opI32Add), storeI32(0),
			ret(0))},
		{SymGetIDLen, ints(3), status, seq(get(2), i32c(5), storeI32(0), ret(0))},
		{SymGetID, ints(4), status, seq(record(stubIDMaxLen, 3), text(2, "AS3"), ret(0))},
		quality(SymGetInitQual, 10),
		quality(SymGetQual, 100),
		quality(SymGetParameter, 1000),
		{SymGetConstant, ints(2), status, seq(
			get(1), get(0), op(opF64FromI32), f64c(1.5), op(opF64Mul), storeF64(0), ret(0))},
		{SymGetSource, ints(5), status, seq(
			get(2), i32c(2), storeI32(0),
			get(3), f64c(2.5), storeF64(0),
			get(4), i32c(3), storeI32(0),
			ret(0))},
		{SymGetPatternLen, ints(2), status, seq(get(1), i32c(24), storeI32(0), ret(0))},
		{SymGetPatternValue, ints(3), status, seq(
			get(2), get(1), op(opF64FromI32), f64c(0.5), op(opF64Mul), storeF64(0), ret(0))},
		{SymGetCount, ints(2), status, seq(get(1), i32c(11), storeI32(0), ret(0))},
		{SymGetSpecies, ints(5), status, seq(
			get(1), i32c(1), storeI32(0),
			text(2, "UG"),
			get(3), f64c(0.001), storeF64(0),
			get(4), f64c(0.0001), storeF64(0),
			ret(0))},
		{SymGetError, ints(3), status, seq(
			record(stubErrorCode, 0), record(stubErrorLen, 2), text(1, "E!"), ret(0))},
		{SymSetConstant, []byte{wasmI32, wasmF64}, status, seq(
			record(stubConstIndex, 0), recordF64(stubConstValue, 1), ret(0))},
		{SymSetParameter, []byte{wasmI32, wasmI32, wasmI32, wasmF64}, status, seq(
			recordF64(stubParamValue, 3), ret(0))},
		{SymSetInitQual, []byte{wasmI32, wasmI32, wasmI32, wasmF64}, status, seq(
			recordF64(stubInitValue, 3), ret(0))},
		{SymSetSource, []byte{wasmI32, wasmI32, wasmI32, wasmF64, wasmI32}, status, seq(
			recordF64(stubSourceLevel, 3), record(stubSourcePat, 4), record(stubSourceType, 2), ret(0))},
		{SymSetPattern, ints(3), status, seq(
			// last = mult[n-1]
			i32c(stubPatternLast),
			get(1), get(2), i32c(1), op(opI32Sub), i32c(3), op(opI32Shl), op(opI32Add), loadF64(0),
			storeF64(0),
			record(stubPatternN, 2),
			ret(0))},
		{SymSetPatternValue, []byte{wasmI32, wasmI32, wasmF64}, status, seq(
			recordF64(stubPatternValue, 2), ret(0))},
		{SymAddPattern, ints(1), status, seq(record(stubPatternName, 0), ret(0))},
	}
}

// assembleModule encodes funcs, one page of memory and a mutable i32 heap
// pointer into a binary module exporting memory and every function by name.
func assembleModule(funcs []wasmFunc) []byte {
	var types [][]byte
	typeIndex := map[string]uint32{}
	var funcTypes, exports, bodies [][]byte

	for i, fn := range funcs {
		sig := seq([]byte{0x60}, vec(len(fn.params), fn.params), vec(len(fn.results), fn.results))
		idx, ok := typeIndex[string(sig)]
		if !ok {
			idx = uint32(len(types))
			typeIndex[string(sig)] = idx
			types = append(types, sig)
		}
		funcTypes = append(funcTypes, uleb(idx))
		exports = append(exports, seq(name(fn.name), []byte{0x00}, uleb(uint32(i))))

		code := seq([]byte{0x00}, fn.body, []byte{opEnd})
		bodies = append(bodies, seq(uleb(uint32(len(code))), code))
	}
	exports = append(exports, seq(name("memory"), []byte{0x02, 0x00}))

	heap := seq([]byte{wasmI32, 0x01}, i32c(stubHeap), []byte{opEnd})

	return seq(
		[]byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00},
		section(1, vec(len(types), types...)),
		section(3, vec(len(funcTypes), funcTypes...)),
		section(5, vec(1, []byte{0x00, 0x01})),
		section(6, vec(1, heap)),
		section(7, vec(len(exports), exports...)),
		section(10, vec(len(bodies), bodies...)),
	)
}

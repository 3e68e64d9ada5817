package engine

import (
	"context"
	"sync"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/msx-toolkit/errors"
)

// Allocator export names, tried in order.
const (
	mallocExport      = "malloc"
	freeExport        = "free"
	cabiReallocExport = "cabi_realloc"
)

// WazeroMemory wraps guest linear memory with bounds-checked accessors.
type WazeroMemory struct {
	mem api.Memory
}

// Size returns the current linear memory size in bytes.
func (m *WazeroMemory) Size() uint32 {
	return m.mem.Size()
}

func (m *WazeroMemory) Read(op string, offset, length uint32) ([]byte, error) {
	data, ok := m.mem.Read(offset, length)
	if !ok {
		return nil, errors.OutOfBounds(errors.PhaseDecode, op, offset, length)
	}
	return data, nil
}

func (m *WazeroMemory) Write(op string, offset uint32, data []byte) error {
	if !m.mem.Write(offset, data) {
		return errors.OutOfBounds(errors.PhaseMarshal, op, offset, uint32(len(data)))
	}
	return nil
}

// ReadI32 reads a little-endian C int.
func (m *WazeroMemory) ReadI32(op string, offset uint32) (int32, error) {
	v, ok := m.mem.ReadUint32Le(offset)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseDecode, op, offset, 4)
	}
	return int32(v), nil
}

// ReadF64 reads a little-endian C double.
func (m *WazeroMemory) ReadF64(op string, offset uint32) (float64, error) {
	v, ok := m.mem.ReadFloat64Le(offset)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseDecode, op, offset, 8)
	}
	return v, nil
}

// ReadCString decodes a character buffer of size bytes up to its first NUL.
func (m *WazeroMemory) ReadCString(op string, offset, size uint32) (string, error) {
	data, err := m.Read(op, offset, size)
	if err != nil {
		return "", err
	}
	return cText(data), nil
}

// guestAllocator calls the module's exported allocator. EPANET-MSX builds
// export malloc/free; cabi_realloc is accepted for toolchains that only emit
// the component-model allocator.
type guestAllocator struct {
	allocFn  api.Function
	freeFn   api.Function
	stackBuf []uint64
	isCabi   bool
	mu       sync.Mutex
}

func newGuestAllocator(mod api.Module) (*guestAllocator, error) {
	a := &guestAllocator{stackBuf: make([]uint64, 4)}
	if fn := mod.ExportedFunction(mallocExport); fn != nil {
		a.allocFn = fn
	} else if fn := mod.ExportedFunction(cabiReallocExport); fn != nil {
		a.allocFn = fn
		a.isCabi = true
	} else {
		return nil, errors.MissingSymbol(mallocExport, nil)
	}
	a.freeFn = mod.ExportedFunction(freeExport)
	return a, nil
}

func (a *guestAllocator) Alloc(ctx context.Context, size uint32) (uint32, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.isCabi {
		a.stackBuf[0] = 0
		a.stackBuf[1] = 0
		a.stackBuf[2] = 8
		a.stackBuf[3] = uint64(size)
		if err := a.allocFn.CallWithStack(ctx, a.stackBuf[:4]); err != nil {
			return 0, err
		}
	} else {
		a.stackBuf[0] = uint64(size)
		if err := a.allocFn.CallWithStack(ctx, a.stackBuf[:1]); err != nil {
			return 0, err
		}
	}
	ptr := uint32(a.stackBuf[0])
	if ptr == 0 {
		return 0, errors.AllocationFailed("", size, nil)
	}
	return ptr, nil
}

func (a *guestAllocator) Free(ctx context.Context, ptr uint32) {
	if a.freeFn == nil || ptr == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stackBuf[0] = uint64(ptr)
	if err := a.freeFn.CallWithStack(ctx, a.stackBuf[:1]); err != nil {
		Logger().Warn("free: guest deallocation failed",
			zap.Uint32("ptr", ptr),
			zap.Error(err))
	}
}

// frame owns the guest buffers of a single engine call. release frees them
// all; nothing allocated in a frame outlives the call.
type frame struct {
	ctx   context.Context
	alloc *guestAllocator
	mem   *WazeroMemory
	op    string
	ptrs  []uint32
}

func (f *frame) buffer(size uint32) (uint32, error) {
	ptr, err := f.alloc.Alloc(f.ctx, size)
	if err != nil {
		return 0, errors.AllocationFailed(f.op, size, err)
	}
	f.ptrs = append(f.ptrs, ptr)
	// Zero it so an engine that writes nothing still decodes as empty/0.
	if err := f.mem.Write(f.op, ptr, make([]byte, size)); err != nil {
		return 0, err
	}
	return ptr, nil
}

func (f *frame) cstring(s string) (uint32, error) {
	if err := checkText(f.op, s); err != nil {
		return 0, err
	}
	ptr, err := f.buffer(uint32(len(s)) + 1)
	if err != nil {
		return 0, err
	}
	if err := f.mem.Write(f.op, ptr, []byte(s)); err != nil {
		return 0, err
	}
	return ptr, nil
}

func (f *frame) doubles(vals []float64) (uint32, error) {
	if len(vals) == 0 {
		return 0, nil
	}
	ptr, err := f.buffer(uint32(len(vals)) * 8)
	if err != nil {
		return 0, err
	}
	for i, v := range vals {
		if !f.mem.mem.WriteFloat64Le(ptr+uint32(i)*8, v) {
			return 0, errors.OutOfBounds(errors.PhaseMarshal, f.op, ptr+uint32(i)*8, 8)
		}
	}
	return ptr, nil
}

func (f *frame) release() {
	for i := len(f.ptrs) - 1; i >= 0; i-- {
		f.alloc.Free(f.ctx, f.ptrs[i])
	}
	f.ptrs = nil
}

package enginetest

import (
	"context"
	"testing"

	"github.com/wippyai/msx-toolkit/engine"
)

func openNet1(t *testing.T) *Fake {
	t.Helper()
	f := New()
	f.AddProject("net1.msx", Net1())
	if s, err := f.Open(context.Background(), "net1.msx"); err != nil || s != engine.OK {
		t.Fatalf("Open = %d, %v", s, err)
	}
	return f
}

func TestFake_OpenClose(t *testing.T) {
	ctx := context.Background()
	f := New()
	f.AddProject("net1.msx", Net1())

	tests := []struct {
		name string
		call func() (engine.Status, error)
		want engine.Status
	}{
		{"close before open", func() (engine.Status, error) { return f.Close(ctx) }, engine.ErrNotOpened},
		{"unknown file", func() (engine.Status, error) { return f.Open(ctx, "missing.msx") }, engine.ErrOpenMsxFile},
		{"open", func() (engine.Status, error) { return f.Open(ctx, "net1.msx") }, engine.OK},
		{"open twice", func() (engine.Status, error) { return f.Open(ctx, "net1.msx") }, engine.ErrAlreadyOpened},
		{"close", func() (engine.Status, error) { return f.Close(ctx) }, engine.OK},
		{"close twice", func() (engine.Status, error) { return f.Close(ctx) }, engine.ErrNotOpened},
	}

	for _, tc := range tests {
		s, err := tc.call()
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if s != tc.want {
			t.Errorf("%s: status %d, want %d", tc.name, s, tc.want)
		}
	}
}

func TestFake_Lookups(t *testing.T) {
	ctx := context.Background()
	f := openNet1(t)

	idx, s, _ := f.GetIndex(ctx, typeSpecies, "NH2CL")
	if s != engine.OK || idx != 5 {
		t.Errorf("GetIndex(NH2CL) = %d, %d", idx, s)
	}
	if _, s, _ := f.GetIndex(ctx, typeSpecies, "CL2"); s != engine.ErrUndefinedObjID {
		t.Errorf("unknown ID status = %d", s)
	}
	if _, s, _ := f.GetIndex(ctx, 9, "AS3"); s != engine.ErrInvalidObjType {
		t.Errorf("bad type status = %d", s)
	}

	n, s, _ := f.GetCount(ctx, typeNode)
	if s != engine.OK || n != 11 {
		t.Errorf("GetCount(node) = %d, %d", n, s)
	}

	id, _, _ := f.GetID(ctx, typeSpecies, 3, 3)
	if id != "ASt" {
		t.Errorf("truncated GetID = %q", id)
	}
	if _, s, _ := f.GetID(ctx, typeSpecies, 6, 31); s != engine.ErrInvalidObjIndex {
		t.Errorf("index out of range status = %d", s)
	}
}

func TestFake_NamedLookupsOnly(t *testing.T) {
	ctx := context.Background()
	f := openNet1(t)

	for _, typ := range []int32{typeNode, typeLink, typeTank, typeTerm} {
		if _, s, _ := f.GetIndex(ctx, typ, "10"); s != engine.ErrInvalidObjType {
			t.Errorf("GetIndex(%d) status = %d", typ, s)
		}
		if _, s, _ := f.GetIDLen(ctx, typ, 1); s != engine.ErrInvalidObjType {
			t.Errorf("GetIDLen(%d) status = %d", typ, s)
		}
		if _, s, _ := f.GetID(ctx, typ, 1, 31); s != engine.ErrInvalidObjType {
			t.Errorf("GetID(%d) status = %d", typ, s)
		}
		if n, s, _ := f.GetCount(ctx, typ); s != engine.OK || n == 0 {
			t.Errorf("GetCount(%d) = %d, %d", typ, n, s)
		}
	}
}

func TestFake_StepClock(t *testing.T) {
	ctx := context.Background()
	f := openNet1(t)

	if _, _, s, _ := f.Step(ctx); s != engine.ErrIntegrate {
		t.Errorf("step before init = %d", s)
	}
	if s, _ := f.Init(ctx, 0); s != engine.ErrOpenHydFile {
		t.Errorf("init before hydraulics = %d", s)
	}
	f.SolveH(ctx)
	if s, _ := f.Init(ctx, 0); s != engine.OK {
		t.Fatalf("init = %d", s)
	}

	var prev int64 = -1
	steps := 0
	for {
		tm, tleft, s, err := f.Step(ctx)
		if err != nil || s != engine.OK {
			t.Fatalf("step = %d, %v", s, err)
		}
		if tm <= prev {
			t.Fatalf("time not increasing: %d after %d", tm, prev)
		}
		prev = tm
		steps++
		if tleft == 0 {
			break
		}
	}
	if steps != 480 {
		t.Errorf("steps = %d, want 480", steps)
	}

	tm, tleft, _, _ := f.Step(ctx)
	if tm != 48*3600 || tleft != 0 {
		t.Errorf("after end: t=%d tleft=%d", tm, tleft)
	}

	c, _, _ := f.GetQual(ctx, typeNode, 1, 1)
	if c <= 0 || c >= 10 {
		t.Errorf("decayed AS3 = %v", c)
	}
}

func TestFake_Failures(t *testing.T) {
	ctx := context.Background()
	f := openNet1(t)

	f.Fail(engine.SymSolveH, 200)
	if s, _ := f.SolveH(ctx); s != 200 {
		t.Errorf("injected status = %d", s)
	}
	f.Heal(engine.SymSolveH)
	if s, _ := f.SolveH(ctx); s != engine.OK {
		t.Errorf("healed status = %d", s)
	}

	if got := f.CallCount(engine.SymSolveH); got != 2 {
		t.Errorf("CallCount = %d", got)
	}
	f.Reset()
	if got := f.CallCount(""); got != 0 {
		t.Errorf("after Reset = %d", got)
	}
}

func TestFake_GetError(t *testing.T) {
	ctx := context.Background()
	f := New()

	msg, err := f.GetError(ctx, 519, engine.ErrorBufLen)
	if err != nil || msg != engine.Messages[engine.ErrNotOpened] {
		t.Errorf("GetError(519) = %q, %v", msg, err)
	}
	msg, _ = f.GetError(ctx, 519, 6)
	if msg != "Error" {
		t.Errorf("truncated = %q", msg)
	}
	msg, _ = f.GetError(ctx, 999, engine.ErrorBufLen)
	if msg != "" {
		t.Errorf("undocumented = %q", msg)
	}
}

func TestFake_Patterns(t *testing.T) {
	ctx := context.Background()
	f := openNet1(t)

	if s, _ := f.AddPattern(ctx, "PAT1"); s != engine.OK {
		t.Fatalf("AddPattern = %d", s)
	}
	if s, _ := f.AddPattern(ctx, "PAT1"); s != engine.ErrInvalidObjParam {
		t.Errorf("duplicate AddPattern = %d", s)
	}
	if s, _ := f.SetPattern(ctx, 1, []float64{1, 2, 3}, 3); s != engine.OK {
		t.Fatalf("SetPattern = %d", s)
	}
	n, _, _ := f.GetPatternLen(ctx, 1)
	v, _, _ := f.GetPatternValue(ctx, 1, 2)
	if n != 3 || v != 2 {
		t.Errorf("pattern len=%d value=%v", n, v)
	}
}

func TestFake_Released(t *testing.T) {
	ctx := context.Background()
	f := openNet1(t)
	f.Release(ctx)
	if _, err := f.Open(ctx, "net1.msx"); err == nil {
		t.Error("expected error after Release")
	}
	if !f.Released() {
		t.Error("Released() = false")
	}
}

package pktbuf

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/soypat/lgate"
)

func newPool(t testing.TB, n int) *Pool {
	t.Helper()
	var p Pool
	err := p.Reset(Config{Buffers: n, Size: 128, Headroom: DefaultHeadroom})
	if err != nil {
		t.Fatal(err)
	}
	return &p
}

func TestAcquireRelease(t *testing.T) {
	p := newPool(t, 2)
	h1, err := p.Acquire(1)
	if err != nil {
		t.Fatal(err)
	}
	h2, err := p.Acquire(2)
	if err != nil {
		t.Fatal(err)
	}
	if h1.Index() == h2.Index() {
		t.Fatal("same slot handed out twice")
	}
	if p.Free() != 0 {
		t.Fatalf("want 0 free, got %d", p.Free())
	}
	buf := p.Buffer(h1)
	copy(buf.ReceiveWindow(), "hello")
	if err := buf.Commit(5); err != nil {
		t.Fatal(err)
	}
	if string(buf.Frame()) != "hello" || buf.Off() != DefaultHeadroom {
		t.Fatalf("unexpected frame %q at %d", buf.Frame(), buf.Off())
	}
	old := h1
	p.Release(&h1)
	if !h1.IsZero() {
		t.Fatal("handle not consumed by release")
	}
	if p.Free() != 1 {
		t.Fatalf("want 1 free, got %d", p.Free())
	}
	for _, b := range p.bufs[old.Index()].Raw() {
		if b != 0 {
			t.Fatal("buffer not cleared on release")
		}
	}
	h3, err := p.Acquire(3)
	if err != nil {
		t.Fatal(err)
	}
	if h3 == old {
		t.Fatal("reacquired slot has same generation")
	}
	if p.Owner(h3) != 3 || p.Owner(h2) != 2 {
		t.Fatal("owner mismatch")
	}
}

func TestExhausted(t *testing.T) {
	p := newPool(t, 1)
	h, err := p.Acquire(1)
	if err != nil {
		t.Fatal(err)
	}
	copy(p.Buffer(h).ReceiveWindow(), "data")
	p.Buffer(h).Commit(4)
	before := string(p.Buffer(h).Frame())
	for i := 1; i <= 3; i++ {
		_, err = p.Acquire(2)
		if !errors.Is(err, lgate.ErrExhausted) {
			t.Fatalf("want exhausted, got %v", err)
		}
		if p.Exhausted() != uint64(i) {
			t.Fatalf("want exhausted counter %d, got %d", i, p.Exhausted())
		}
	}
	if string(p.Buffer(h).Frame()) != before || p.Owner(h) != 1 {
		t.Fatal("exhaustion mutated owned buffer")
	}
}

func TestSendTransitions(t *testing.T) {
	p := newPool(t, 1)
	h, _ := p.Acquire(1)
	p.Send(h, 1)
	if st, iface := p.State(h.Index()); st != StateInFlight || iface != 1 {
		t.Fatalf("want in-flight on 1, got %s on %d", st, iface)
	}
	mustPanic(t, "double send", func() { p.Send(h, 0) })
	p.Release(&h)
	if st, _ := p.State(0); st != StateFree {
		t.Fatalf("want free, got %s", st)
	}
}

func TestStaleHandlePanics(t *testing.T) {
	p := newPool(t, 1)
	h, _ := p.Acquire(1)
	stale := h
	p.Release(&h)
	mustPanic(t, "stale buffer", func() { p.Buffer(stale) })
	mustPanic(t, "stale release", func() { p.Release(&stale) })
	mustPanic(t, "zero handle", func() { p.Release(&h) })
	// Reacquired slot does not resurrect the stale handle.
	p.Acquire(1)
	mustPanic(t, "stale after reuse", func() { p.Send(stale, 0) })
}

func TestReframe(t *testing.T) {
	p := newPool(t, 1)
	h, _ := p.Acquire(1)
	buf := p.Buffer(h)
	n := copy(buf.ReceiveWindow(), "HHHHHHHHHHHHHHpayload")
	buf.Commit(n)
	// Replace a 14 byte header with a 20 byte one, growing into headroom.
	frame, err := buf.Reframe(14, 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(frame) != 20+7 || string(frame[20:]) != "payload" || buf.Off() != DefaultHeadroom-6 {
		t.Fatalf("unexpected reframe %q off=%d", frame, buf.Off())
	}
	if _, err := buf.Reframe(0, DefaultHeadroom); !errors.Is(err, lgate.ErrCapacity) {
		t.Fatalf("want capacity error, got %v", err)
	}
	if err := buf.Commit(buf.Cap()); !errors.Is(err, lgate.ErrCapacity) {
		t.Fatalf("commit beyond receive window: want capacity error, got %v", err)
	}
}

func TestResetInvalid(t *testing.T) {
	var p Pool
	for _, cfg := range []Config{
		{},
		{Buffers: 1, Size: 32, Headroom: 32},
		{Buffers: -1, Size: 64},
		{Buffers: maxBuffers + 1, Size: 64},
	} {
		if err := p.Reset(cfg); !errors.Is(err, lgate.ErrInvalidConfig) {
			t.Errorf("%+v: want invalid config, got %v", cfg, err)
		}
	}
}

func TestRandomOwnership(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		ops := make([]byte, 200)
		rng.Read(ops)
		checkOwnership(t, uint8(rng.Intn(8)), ops)
	}
}

func FuzzOwnership(f *testing.F) {
	f.Add(uint8(3), []byte{0, 0, 0, 0, 1, 2, 3, 0x41, 0x82, 0xc3})
	f.Add(uint8(0), []byte{0, 0x40, 0x80, 0xc0, 0})
	f.Fuzz(checkOwnership)
}

// checkOwnership runs a sequence of pool operations against a model and checks
// no buffer is ever held by two handles at once.
func checkOwnership(t *testing.T, nbufM1 uint8, ops []byte) {
	const (
		opAcquire = iota
		opSend
		opRelease
		opWrite
	)
	n := int(nbufM1%8) + 1
	p := newPool(t, n)
	var live []Handle
	var exhausted uint64
	for _, b := range ops {
		op := b >> 6
		arg := int(b & 0x3f)
		switch op {
		case opAcquire:
			h, err := p.Acquire(Owner(arg))
			if len(live) == n {
				if !errors.Is(err, lgate.ErrExhausted) {
					t.Fatalf("full pool: want exhausted, got %v", err)
				}
				exhausted++
				continue
			} else if err != nil {
				t.Fatal(err)
			}
			for _, l := range live {
				if l.Index() == h.Index() {
					t.Fatalf("slot %d owned twice", h.Index())
				}
			}
			live = append(live, h)
		case opSend:
			if len(live) == 0 {
				continue
			}
			h := live[arg%len(live)]
			if st, _ := p.State(h.Index()); st == StateOwned {
				p.Send(h, uint8(arg&1))
			}
		case opRelease:
			if len(live) == 0 {
				continue
			}
			i := arg % len(live)
			p.Release(&live[i])
			live = append(live[:i], live[i+1:]...)
		case opWrite:
			if len(live) == 0 {
				continue
			}
			buf := p.Buffer(live[arg%len(live)])
			w := buf.ReceiveWindow()
			w[0] = b
			buf.Commit(1)
		}
		if p.Free() != n-len(live) {
			t.Fatalf("free count %d, want %d", p.Free(), n-len(live))
		}
	}
	if p.Exhausted() != exhausted {
		t.Fatalf("exhausted %d, want %d", p.Exhausted(), exhausted)
	}
	for len(live) > 0 {
		p.Release(&live[0])
		live = live[1:]
	}
	for i := 0; i < n; i++ {
		if st, _ := p.State(i); st != StateFree {
			t.Fatalf("slot %d not free after releasing all", i)
		}
	}
}

func mustPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s: expected panic", name)
		}
	}()
	fn()
}

package link

import (
	"errors"
	"io"
	"math/rand"
	"testing"

	"github.com/soypat/lgate"
)

func TestQueueFIFO(t *testing.T) {
	var q Queue
	if err := q.Reset(QueueConfig{Size: 64, MaxFrame: 20}); err != nil {
		t.Fatal(err)
	}
	frames := []string{"first", "second frame", "3"}
	for _, f := range frames {
		if err := q.Push([]byte(f)); err != nil {
			t.Fatal(err)
		}
	}
	var buf [20]byte
	for _, want := range frames {
		n, err := q.Pop(buf[:])
		if err != nil {
			t.Fatal(err)
		}
		if string(buf[:n]) != want {
			t.Fatalf("want %q, got %q", want, buf[:n])
		}
	}
	if _, err := q.Pop(buf[:]); err != ErrNoFrame {
		t.Fatalf("want ErrNoFrame, got %v", err)
	}
}

func TestQueueShortBufferDiscards(t *testing.T) {
	var q Queue
	q.Reset(QueueConfig{Size: 64, MaxFrame: 32})
	q.Push([]byte("a long frame here"))
	q.Push([]byte("next"))
	q.Push([]byte("third"))
	var small [4]byte
	if _, err := q.Pop(small[:2]); err != io.ErrShortBuffer {
		t.Fatalf("want io.ErrShortBuffer, got %v", err)
	}
	// Discard by nil destination.
	if _, err := q.Pop(nil); err != nil {
		t.Fatal(err)
	}
	var buf [32]byte
	n, err := q.Pop(buf[:])
	if err != nil || string(buf[:n]) != "third" {
		t.Fatalf("got %q,%v", buf[:n], err)
	}
}

func TestQueueFull(t *testing.T) {
	var q Queue
	q.Reset(QueueConfig{Size: 12, MaxFrame: 10})
	if err := q.Push(make([]byte, 11)); !errors.Is(err, lgate.ErrCapacity) {
		t.Fatalf("oversized: want capacity error, got %v", err)
	}
	if err := q.Push(make([]byte, 8)); err != nil {
		t.Fatal(err)
	}
	if err := q.Push(make([]byte, 1)); err != ErrBusy {
		t.Fatalf("full: want ErrBusy, got %v", err)
	}
	if q.Dropped() != 2 || q.Len() != 1 {
		t.Fatalf("dropped=%d len=%d", q.Dropped(), q.Len())
	}
}

func TestQueueRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	var q Queue
	q.Reset(QueueConfig{Size: 100, MaxFrame: 30})
	var model [][]byte
	buf := make([]byte, 30)
	for i := 0; i < 20000; i++ {
		if rng.Intn(2) == 0 {
			f := make([]byte, 1+rng.Intn(30))
			rng.Read(f)
			err := q.Push(f)
			if err == nil {
				model = append(model, f)
			} else if err != ErrBusy {
				t.Fatal(err)
			}
			continue
		}
		n, err := q.Pop(buf)
		if len(model) == 0 {
			if err != ErrNoFrame {
				t.Fatalf("want ErrNoFrame, got %v", err)
			}
			continue
		}
		if err != nil || string(buf[:n]) != string(model[0]) {
			t.Fatalf("%d: got %x,%v want %x", i, buf[:n], err, model[0])
		}
		model = model[1:]
	}
}

func TestLoopback(t *testing.T) {
	var l Loopback
	if err := l.Reset(QueueConfig{Size: 256, MaxFrame: 64}); err != nil {
		t.Fatal(err)
	}
	var notified int
	l.OnReceive(func() { notified++ })
	l.Inject([]byte("from wire"))
	if notified != 1 || l.Pending() != 1 {
		t.Fatalf("notified=%d pending=%d", notified, l.Pending())
	}
	var buf [64]byte
	n, err := l.TryReceive(buf[:])
	if err != nil || string(buf[:n]) != "from wire" {
		t.Fatalf("got %q,%v", buf[:n], err)
	}
	if err := l.Transmit([]byte("to wire")); err != nil {
		t.Fatal(err)
	}
	n, err = l.Collect(buf[:])
	if err != nil || string(buf[:n]) != "to wire" {
		t.Fatalf("got %q,%v", buf[:n], err)
	}
	l.FailTransmit(ErrBusy, 1)
	if err := l.Transmit([]byte("x")); err != ErrBusy {
		t.Fatalf("want ErrBusy, got %v", err)
	}
	l.SetStatus(Down)
	if err := l.Transmit([]byte("x")); err != ErrLink {
		t.Fatalf("down link: want ErrLink, got %v", err)
	}
	if l.Status().String() != "down" {
		t.Fatalf("status %s", l.Status())
	}
}

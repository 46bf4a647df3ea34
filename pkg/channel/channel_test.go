package channel

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/sync/errgroup"

	"phpcore/pkg/memory"
	"phpcore/pkg/value"
)

func leakCheck(t *testing.T) func() {
	t.Helper()
	before := memory.Snapshot()
	return func() {
		t.Helper()
		if live := memory.Snapshot().Sub(before).Live(); live != 0 {
			t.Errorf("leaked %d boxes", live)
		}
	}
}

// sendAsync starts a blocking Send and returns a channel carrying its result
func sendAsync(ch *Channel, v value.Value) <-chan error {
	done := make(chan error, 1)
	go func() { done <- ch.Send(v) }()
	return done
}

func expectBlocked(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		t.Fatalf("send should block on a full channel, returned %v", err)
	case <-time.After(50 * time.Millisecond):
	}
}

func expectDone(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("send did not unblock")
		return nil
	}
}

func TestCapacityCoercion(t *testing.T) {
	for _, c := range []int{-3, 0, 1} {
		if got := New(c).Cap(); got != 1 {
			t.Errorf("New(%d).Cap() = %d, want 1", c, got)
		}
	}
	if New(8).Cap() != 8 {
		t.Error("explicit capacity should be kept")
	}
}

func TestBlockingSendAndClose(t *testing.T) {
	ch := New(2)
	if err := ch.Send(value.NewInt(1)); err != nil {
		t.Fatal(err)
	}
	if err := ch.Send(value.NewInt(2)); err != nil {
		t.Fatal(err)
	}

	done := sendAsync(ch, value.NewInt(3))
	expectBlocked(t, done)

	v, ok := ch.Recv()
	if !ok || v.Int() != 1 {
		t.Fatalf("expected 1, got %s", v)
	}
	if err := expectDone(t, done); err != nil {
		t.Fatalf("third send should succeed after a recv: %v", err)
	}

	blocked := sendAsync(ch, value.NewInt(4))
	expectBlocked(t, blocked)
	ch.Close()
	if err := expectDone(t, blocked); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}

	var got []int64
	for {
		v, ok := ch.Recv()
		if !ok {
			break
		}
		got = append(got, v.Int())
	}
	if diff := cmp.Diff([]int64{2, 3}, got); diff != "" {
		t.Errorf("drained values (-want +got):\n%s", diff)
	}
	if _, ok := ch.Recv(); ok {
		t.Error("recv on a closed, empty channel should report none")
	}
}

func TestSendOnClosed(t *testing.T) {
	ch := New(4)
	ch.Close()
	ch.Close()
	if !ch.IsClosed() {
		t.Fatal("expected closed")
	}
	if err := ch.Send(value.NewInt(1)); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if ch.TrySend(value.NewInt(1)) {
		t.Error("TrySend on a closed channel should fail")
	}
}

func TestCloseWakesReceivers(t *testing.T) {
	ch := New(1)
	var g errgroup.Group
	for i := 0; i < 4; i++ {
		g.Go(func() error {
			if v, ok := ch.Recv(); ok {
				return fmt.Errorf("unexpected value %s", v)
			}
			return nil
		})
	}
	time.Sleep(20 * time.Millisecond)
	ch.Close()
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
}

func TestNonBlocking(t *testing.T) {
	ch := New(1)
	if _, ok := ch.TryRecv(); ok {
		t.Error("TryRecv on empty channel should report none")
	}
	if !ch.TrySend(value.NewInt(1)) {
		t.Fatal("TrySend into an empty slot should succeed")
	}
	if ch.TrySend(value.NewInt(2)) {
		t.Error("TrySend on a full channel should fail")
	}
	v, ok := ch.TryRecv()
	if !ok || v.Int() != 1 {
		t.Errorf("expected 1, got %s", v)
	}
	if ch.SendCount() != 1 || ch.RecvCount() != 1 {
		t.Errorf("counters: sends=%d recvs=%d", ch.SendCount(), ch.RecvCount())
	}
}

func TestFIFOWrapAround(t *testing.T) {
	ch := New(3)
	var got []int64
	for i := int64(0); i < 10; i++ {
		if err := ch.Send(value.NewInt(i)); err != nil {
			t.Fatal(err)
		}
		if i%2 == 1 {
			for ch.Len() > 1 {
				v, _ := ch.TryRecv()
				got = append(got, v.Int())
			}
		}
	}
	ch.Close()
	for {
		v, ok := ch.Recv()
		if !ok {
			break
		}
		got = append(got, v.Int())
	}
	want := []int64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestOwnershipTransfer(t *testing.T) {
	defer leakCheck(t)()
	ch := New(2)

	v := value.NewString("hello")
	if err := ch.Send(v); err != nil {
		t.Fatal(err)
	}
	if v.RefCount() != 2 {
		t.Errorf("channel should hold its own reference, refcount=%d", v.RefCount())
	}
	v.Release()

	got, ok := ch.Recv()
	if !ok || got.RefCount() != 1 {
		t.Fatalf("receiver should own the only reference, refcount=%d", got.RefCount())
	}
	got.Release()
}

func TestDestroyReleasesBuffered(t *testing.T) {
	defer leakCheck(t)()
	ch := New(4)
	for i := 0; i < 3; i++ {
		v := value.NewString(fmt.Sprintf("item-%d", i))
		if err := ch.Send(v); err != nil {
			t.Fatal(err)
		}
		v.Release()
	}
	ch.Destroy()
	if ch.Len() != 0 || !ch.IsClosed() {
		t.Errorf("destroyed channel should be closed and empty, len=%d", ch.Len())
	}
}

func TestProducersConsumers(t *testing.T) {
	defer leakCheck(t)()
	const producers, items = 4, 250
	ch := New(8)

	var prod errgroup.Group
	for p := 0; p < producers; p++ {
		prod.Go(func() error {
			for i := 0; i < items; i++ {
				v := value.NewString(fmt.Sprintf("%d/%d", p, i))
				err := ch.Send(v)
				v.Release()
				if err != nil {
					return err
				}
			}
			return nil
		})
	}

	results := make(chan int, producers)
	var cons errgroup.Group
	for c := 0; c < 3; c++ {
		cons.Go(func() error {
			n := 0
			for {
				v, ok := ch.Recv()
				if !ok {
					results <- n
					return nil
				}
				v.Release()
				n++
			}
		})
	}

	if err := prod.Wait(); err != nil {
		t.Fatal(err)
	}
	ch.Close()
	if err := cons.Wait(); err != nil {
		t.Fatal(err)
	}
	close(results)

	total := 0
	for n := range results {
		total += n
	}
	if total != producers*items {
		t.Errorf("received %d values, want %d", total, producers*items)
	}
	if ch.SendCount() != ch.RecvCount() {
		t.Errorf("sends=%d recvs=%d", ch.SendCount(), ch.RecvCount())
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"golang.org/x/sync/errgroup"

	"phpcore/pkg/channel"
	"phpcore/pkg/conc"
	"phpcore/pkg/dump"
	"phpcore/pkg/logging"
	"phpcore/pkg/memory"
	"phpcore/pkg/registry"
	"phpcore/pkg/store"
	"phpcore/pkg/value"
)

// sampleSize is how many stored entries a Report keeps for dumping
const sampleSize = 3

// Workload drives producers and consumers over a shared channel. Every
// producer sends Items arrays of the form [producer, seq, "p<producer>-<seq>"];
// consumers file each one in a keyed store under its name and append the
// name to a mutex-guarded index.
type Workload struct {
	Producers   int
	Consumers   int
	Items       int
	Capacity    int
	TrackOwners bool
}

type Report struct {
	Sent          uint64
	Received      uint64
	Stored        int
	StoreAccesses uint64
	Counter       int64
	Indexed       int
	LockCount     uint64
	LastOwner     int64
	PeakBytes     int64
	Memory        memory.Stats

	sample value.Value
}

type shared struct {
	ch      *channel.Channel
	st      *store.Store
	counter *conc.AtomicInt
	mu      *conc.Mutex
	index   *value.Array
}

func (w Workload) validate() error {
	switch {
	case w.Producers < 1:
		return fmt.Errorf("need at least one producer, got %d", w.Producers)
	case w.Consumers < 1:
		return fmt.Errorf("need at least one consumer, got %d", w.Consumers)
	case w.Items < 0:
		return fmt.Errorf("items must not be negative, got %d", w.Items)
	}
	return nil
}

// Run executes the workload and tears down everything it created except
// the report's sample, which the caller releases.
func (w Workload) Run(log logging.Logger) (*Report, error) {
	if err := w.validate(); err != nil {
		return nil, err
	}
	base := memory.Snapshot()

	reg := registry.New(log)
	_, ch := reg.NewChannel(w.Capacity)
	_, st := reg.NewStore()
	_, counter := reg.NewAtomic(0)
	_, mu := reg.NewMutex()
	s := &shared{ch: ch, st: st, counter: counter, mu: mu, index: value.NewArray()}
	defer func() {
		reg.Close()
		s.index.Clear()
	}()

	log.Infof("running %d producers x %d items, %d consumers, capacity %d",
		w.Producers, w.Items, w.Consumers, ch.Cap())

	cons, ctx := errgroup.WithContext(context.Background())
	go func() {
		<-ctx.Done()
		ch.Close()
	}()
	for c := 0; c < w.Consumers; c++ {
		cons.Go(func() error { return w.consume(s, int64(c+1)) })
	}

	var prod errgroup.Group
	for p := 0; p < w.Producers; p++ {
		prod.Go(func() error { return w.produce(ch, int64(p)) })
	}

	prodErr := prod.Wait()
	ch.Close()
	if err := cons.Wait(); err != nil {
		return nil, err
	}
	if prodErr != nil {
		return nil, prodErr
	}

	rep := &Report{
		Sent:      ch.SendCount(),
		Received:  ch.RecvCount(),
		Stored:    st.Size(),
		Counter:   counter.Load(),
		Indexed:   s.index.Count(),
		LockCount: mu.LockCount(),
		LastOwner: mu.LastOwner(),
		PeakBytes: memory.Default().Peak(),
	}
	sample, err := takeSample(st)
	if err != nil {
		return nil, err
	}
	rep.sample = sample
	rep.StoreAccesses = st.AccessCount()

	reg.Close()
	s.index.Clear()
	rep.Memory = memory.Snapshot().Sub(base)
	log.Debugf("workload done: sent=%d received=%d", rep.Sent, rep.Received)
	return rep, nil
}

func (w Workload) produce(ch *channel.Channel, id int64) error {
	for i := 0; i < w.Items; i++ {
		list, err := value.NewList(
			value.NewInt(id),
			value.NewInt(int64(i)),
			value.NewString(fmt.Sprintf("p%d-%d", id, i)),
		)
		if err != nil {
			return fmt.Errorf("producer %d: %w", id, err)
		}
		v := value.FromArray(list)
		err = ch.Send(v)
		v.Release()
		if err != nil {
			return fmt.Errorf("producer %d: %w", id, err)
		}
	}
	return nil
}

func (w Workload) consume(s *shared, id int64) error {
	for {
		v, ok := s.ch.Recv()
		if !ok {
			return nil
		}
		if err := w.file(s, id, v); err != nil {
			v.Release()
			return fmt.Errorf("consumer %d: %w", id, err)
		}
		v.Release()
	}
}

func (w Workload) file(s *shared, id int64, v value.Value) error {
	name, ok := v.Array().Get(value.IntKey(2))
	if !ok || name.Kind() != value.KindString {
		return errors.New("malformed item " + v.String())
	}
	key := name.Str()
	s.st.Set(key, v)
	s.counter.Increment()

	if w.TrackOwners {
		s.mu.LockAs(id)
	} else {
		s.mu.Lock()
	}
	defer s.mu.Unlock()
	entry := value.NewString(key)
	if err := s.index.Push(entry); err != nil {
		entry.Release()
		return err
	}
	return nil
}

func takeSample(st *store.Store) (value.Value, error) {
	sample := value.NewArray()
	for _, k := range st.Keys() {
		if sample.Count() == sampleSize {
			break
		}
		v, ok := st.Get(k)
		if !ok {
			continue
		}
		if err := sample.Set(value.StrKey(k), v); err != nil {
			v.Release()
			sample.Clear()
			return value.Null, err
		}
	}
	return value.FromArray(sample), nil
}

// Rows lists the report as table rows
func (r *Report) Rows() []dump.Row {
	u := func(n uint64) string { return strconv.FormatUint(n, 10) }
	i := func(n int64) string { return strconv.FormatInt(n, 10) }
	rows := []dump.Row{
		{Key: "sent", Value: u(r.Sent)},
		{Key: "received", Value: u(r.Received)},
		{Key: "stored", Value: strconv.Itoa(r.Stored)},
		{Key: "store accesses", Value: u(r.StoreAccesses)},
		{Key: "counter", Value: i(r.Counter)},
		{Key: "indexed", Value: strconv.Itoa(r.Indexed)},
		{Key: "index locks", Value: u(r.LockCount)},
	}
	if r.LastOwner != conc.NoOwner {
		rows = append(rows, dump.Row{Key: "last index owner", Value: i(r.LastOwner)})
	}
	return append(rows,
		dump.Row{Key: "peak array bytes", Value: i(r.PeakBytes)},
		dump.Row{Key: "boxes created", Value: u(r.Memory.BoxesCreated)},
		dump.Row{Key: "boxes live", Value: u(r.Memory.Live())},
		dump.Row{Key: "refcount faults", Value: u(r.Memory.Faults)},
	)
}

// Dump renders the sample in one of the print_r, var_dump or zval layouts
func (r *Report) Dump(mode string) (string, error) {
	switch mode {
	case "print_r":
		return dump.PrintR(r.sample), nil
	case "var_dump":
		return dump.VarDump(r.sample), nil
	case "zval":
		return dump.DebugZvalDump(r.sample), nil
	}
	return "", fmt.Errorf("unknown dump mode %q", mode)
}

// Release frees the sample
func (r *Report) Release() {
	r.sample.Release()
	r.sample = value.Null
}

package slab

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/gesturelink/internal/domain"
	"github.com/bft-labs/gesturelink/internal/testutil"
)

func TestNew_InvalidSizes(t *testing.T) {
	tests := []struct {
		name      string
		blockSize int
		count     int
	}{
		{"zero block size", 0, 4},
		{"zero count", 16, 0},
		{"negative block size", -1, 4},
		{"negative count", 16, -3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.blockSize, tt.count)
			if s != nil {
				t.Error("New returned a slab for invalid sizes")
			}
			if !errors.Is(err, domain.ErrInitialization) {
				t.Errorf("New error = %v, want ErrInitialization", err)
			}
		})
	}
}

func TestSlab_Conservation(t *testing.T) {
	s, err := New(132, 4)
	if err != nil {
		t.Fatalf("New error = %v", err)
	}
	if s.Capacity() != 4 || s.BlockSize() != 132 {
		t.Fatalf("Capacity/BlockSize = %d/%d, want 4/132", s.Capacity(), s.BlockSize())
	}

	var held []*Block
	for i := 0; i < 4; i++ {
		b, err := s.Alloc()
		if err != nil {
			t.Fatalf("Alloc(%d) error = %v", i, err)
		}
		if len(b.Bytes()) != 132 {
			t.Errorf("block %d has %d bytes, want 132", i, len(b.Bytes()))
		}
		held = append(held, b)
		if got := s.InUse() + s.Available(); got != s.Capacity() {
			t.Fatalf("InUse+Available = %d, want %d", got, s.Capacity())
		}
	}

	seen := map[int]bool{}
	for _, b := range held {
		if seen[b.Index()] {
			t.Errorf("block %d handed out twice", b.Index())
		}
		seen[b.Index()] = true
	}

	for _, b := range held {
		if err := b.Release(); err != nil {
			t.Fatalf("Release error = %v", err)
		}
	}
	if s.InUse() != 0 || s.Available() != 4 {
		t.Errorf("after release InUse/Available = %d/%d, want 0/4", s.InUse(), s.Available())
	}
}

func TestSlab_BlocksDoNotOverlap(t *testing.T) {
	s, _ := New(8, 3)
	a, _ := s.Alloc()
	b, _ := s.Alloc()

	for i := range a.Bytes() {
		a.Bytes()[i] = 0xAA
	}
	for i, v := range b.Bytes() {
		if v != 0 {
			t.Fatalf("neighbouring block byte %d = %#x after writing to another block", i, v)
		}
	}

	if cap(a.Bytes()) != 8 {
		t.Errorf("cap(Bytes()) = %d, want 8", cap(a.Bytes()))
	}
}

func TestSlab_AllocBlocksUntilFree(t *testing.T) {
	s, _ := New(16, 1)
	first, err := s.Alloc()
	if err != nil {
		t.Fatalf("Alloc error = %v", err)
	}

	got := make(chan *Block, 1)
	go func() {
		b, err := s.Alloc()
		if err == nil {
			got <- b
		}
	}()

	testutil.RequireBlocked(t, got, 20*time.Millisecond, "Alloc returned on exhausted slab")
	if err := s.Free(first); err != nil {
		t.Fatalf("Free error = %v", err)
	}
	b := testutil.RequireReceive(t, got, time.Second, "Alloc not woken by Free")
	if b != first {
		t.Error("woken Alloc should receive the freed block")
	}
}

func TestSlab_TryAlloc(t *testing.T) {
	s, _ := New(4, 1)
	b, err := s.TryAlloc()
	if err != nil {
		t.Fatalf("TryAlloc error = %v", err)
	}
	if _, err := s.TryAlloc(); !errors.Is(err, ErrExhausted) || !errors.Is(err, domain.ErrAllocation) {
		t.Errorf("TryAlloc on exhausted slab error = %v, want ErrExhausted", err)
	}
	_ = b.Release()
	if _, err := s.TryAlloc(); err != nil {
		t.Errorf("TryAlloc after release error = %v", err)
	}
}

func TestSlab_AllocContext(t *testing.T) {
	s, _ := New(4, 1)
	_, _ = s.Alloc()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := s.AllocContext(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("AllocContext error = %v, want DeadlineExceeded", err)
	}
}

func TestSlab_FreeMisuse(t *testing.T) {
	s, _ := New(4, 2)
	other, _ := New(4, 2)

	b, _ := s.Alloc()
	foreign, _ := other.Alloc()

	tests := []struct {
		name  string
		block *Block
		want  error
	}{
		{"nil", nil, domain.ErrInvalidArgument},
		{"foreign", foreign, ErrForeignBlock},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.Free(tt.block); !errors.Is(err, tt.want) {
				t.Errorf("Free error = %v, want %v", err, tt.want)
			}
		})
	}

	if err := s.Free(b); err != nil {
		t.Fatalf("Free error = %v", err)
	}
	err := s.Free(b)
	if !errors.Is(err, ErrDoubleFree) || !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("second Free error = %v, want ErrDoubleFree", err)
	}
	if s.Available() != 2 {
		t.Errorf("Available() = %d after double free, want 2", s.Available())
	}
}

func TestSlab_ZeroOnFree(t *testing.T) {
	s, _ := New(4, 1, WithZeroOnFree())
	b, _ := s.Alloc()
	copy(b.Bytes(), []byte{1, 2, 3, 4})
	_ = b.Release()

	b, _ = s.Alloc()
	for i, v := range b.Bytes() {
		if v != 0 {
			t.Errorf("byte %d = %d after zeroing free", i, v)
		}
	}
}

func TestSlab_CloseWakesWaiters(t *testing.T) {
	s, _ := New(4, 1)
	held, _ := s.Alloc()

	errCh := make(chan error, 1)
	go func() {
		_, err := s.Alloc()
		errCh <- err
	}()
	time.Sleep(10 * time.Millisecond)

	err := s.Close()
	if !errors.Is(err, ErrBlocksOutstanding) {
		t.Errorf("Close error = %v, want ErrBlocksOutstanding", err)
	}
	if err := testutil.RequireReceive(t, errCh, time.Second, "Alloc not woken by Close"); !errors.Is(err, ErrClosed) {
		t.Errorf("woken Alloc error = %v, want ErrClosed", err)
	}

	if err := held.Release(); err != nil {
		t.Errorf("Release after Close error = %v", err)
	}
	if _, err := s.TryAlloc(); !errors.Is(err, ErrClosed) {
		t.Errorf("TryAlloc after Close error = %v, want ErrClosed", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close error = %v", err)
	}
}

func TestSlab_CloseClean(t *testing.T) {
	s, _ := New(4, 3)
	if err := s.Close(); err != nil {
		t.Errorf("Close error = %v", err)
	}
	if _, err := s.Alloc(); !errors.Is(err, ErrClosed) {
		t.Errorf("Alloc after Close error = %v, want ErrClosed", err)
	}
	if s.Available() != 0 {
		t.Errorf("Available() = %d after Close, want 0", s.Available())
	}
}

func TestSlab_Contention(t *testing.T) {
	s, _ := New(8, 3)
	const workers, rounds = 8, 100

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				b, err := s.Alloc()
				if err != nil {
					t.Errorf("Alloc error = %v", err)
					return
				}
				if in := s.InUse(); in > s.Capacity() {
					t.Errorf("InUse() = %d exceeds capacity", in)
				}
				if err := b.Release(); err != nil {
					t.Errorf("Release error = %v", err)
					return
				}
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	testutil.RequireClosed(t, done, 5*time.Second, "allocators deadlocked")

	if s.InUse() != 0 || s.Available() != 3 {
		t.Errorf("InUse/Available = %d/%d, want 0/3", s.InUse(), s.Available())
	}
}

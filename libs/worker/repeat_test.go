package worker

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestRepeatWorker(t *testing.T) {
	var cycles int64
	w := NewRepeat(time.Millisecond*10, func() {
		atomic.AddInt64(&cycles, 1)
	})
	w.Start()
	time.Sleep(time.Millisecond * 35)
	w.Stop(time.Second)
	if n := atomic.LoadInt64(&cycles); n < 2 {
		t.Fatalf("Expected at least 2 cycles, got %d", n)
	}
	n := atomic.LoadInt64(&cycles)
	time.Sleep(time.Millisecond * 30)
	if n2 := atomic.LoadInt64(&cycles); n2 != n {
		t.Fatalf("Worker kept running after Stop: %d != %d", n2, n)
	}
}

func TestRepeatWorkerPanicRecovery(t *testing.T) {
	var cycles int64
	w := NewRepeat(time.Millisecond*5, func() {
		atomic.AddInt64(&cycles, 1)
		panic("boom")
	})
	w.Start()
	time.Sleep(time.Millisecond * 25)
	w.Stop(time.Second)
	if n := atomic.LoadInt64(&cycles); n < 2 {
		t.Fatalf("Expected worker to survive panics, got %d cycles", n)
	}
}

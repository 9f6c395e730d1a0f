package editor

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncer_ZeroDurationIsSynchronous(t *testing.T) {
	d := newDebouncer(0)
	var calls int32
	d.schedule(func() { atomic.AddInt32(&calls, 1) })
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("calls = %d, want immediate invocation", got)
	}
}

func TestDebouncer_CoalescesRapidCalls(t *testing.T) {
	d := newDebouncer(20 * time.Millisecond)
	var calls int32
	var last int32
	for i := int32(1); i <= 3; i++ {
		i := i
		d.schedule(func() {
			atomic.AddInt32(&calls, 1)
			atomic.StoreInt32(&last, i)
		})
	}

	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(&calls) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(50 * time.Millisecond)

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("calls = %d, want rapid schedules coalesced into one", got)
	}
	if got := atomic.LoadInt32(&last); got != 3 {
		t.Errorf("last = %d, want the trailing schedule to win", got)
	}
}

func TestDebouncer_Cancel(t *testing.T) {
	d := newDebouncer(10 * time.Millisecond)
	var calls int32
	d.schedule(func() { atomic.AddInt32(&calls, 1) })
	d.cancel()

	time.Sleep(60 * time.Millisecond)
	if got := atomic.LoadInt32(&calls); got != 0 {
		t.Errorf("calls = %d, want canceled schedule never to run", got)
	}
}

func TestDebouncer_ReusableAfterCancel(t *testing.T) {
	d := newDebouncer(5 * time.Millisecond)
	var calls int32
	d.schedule(func() { atomic.AddInt32(&calls, 1) })
	d.cancel()
	d.schedule(func() { atomic.AddInt32(&calls, 1) })

	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(&calls) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("calls = %d, want exactly the re-scheduled call", got)
	}
}

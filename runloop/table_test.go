package runloop

import (
	"errors"
	"testing"
)

func TestAddTaskValidation(t *testing.T) {
	ok := func(any) Status { return StatusOK }

	testCases := []struct {
		name       string
		fn         TaskFunc
		executions uint16
		periodMS   uint32
		delayMS    uint32
		wantErr    error
	}{
		{"nil callback", nil, 0, 10, 0, ErrNilCallback},
		{"recurring without period", ok, 0, 0, 0, ErrZeroPeriod},
		{"finite without period", ok, 2, 0, 0, ErrZeroPeriod},
		{"one-shot without period", ok, 1, 0, 100, nil},
		{"period overflow", ok, 0, 300000, 0, ErrPeriodOverflow},
		{"delay overflow", ok, 1, 0, 300000, ErrPeriodOverflow},
		{"largest period", ok, 0, 268435, 0, nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := New(DefaultConfig())
			_, err := r.AddTask(tc.fn, nil, tc.executions, tc.periodMS, tc.delayMS)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("Expected %v, got %v", tc.wantErr, err)
			}
			if err != nil && len(r.Tasks()) != 0 {
				t.Errorf("Rejected task left in table")
			}
		})
	}
}

func TestAddTaskSlowClock(t *testing.T) {
	ok := func(any) Status { return StatusOK }

	testCases := []struct {
		name       string
		clockHz    uint32
		executions uint16
		periodMS   uint32
		wantErr    error
	}{
		{"recurring below 1kHz", 999, 0, 10, ErrZeroPeriod},
		{"finite below 1kHz", 500, 3, 10, ErrZeroPeriod},
		{"one-shot below 1kHz", 999, 1, 10, nil},
		{"recurring at 1kHz", 1000, 0, 10, nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := New(Config{ClockHz: tc.clockHz})
			_, err := r.AddTask(ok, nil, tc.executions, tc.periodMS, 0)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("Expected %v, got %v", tc.wantErr, err)
			}

			// Whatever was accepted must survive a tick without a zero period
			r.tick(0)
			r.tick(1)
			for _, info := range r.Tasks() {
				if info.CyclesPerPeriod == 0 && info.Remaining != 1 {
					t.Errorf("Task %d resident with zero period", info.ID)
				}
			}
		})
	}
}

func TestAddTaskStoresPending(t *testing.T) {
	r := New(DefaultConfig())
	ctx := &struct{ n int }{}

	id, err := r.AddTask(func(any) Status { return StatusOK }, ctx, 4, 25, 3)
	if err != nil {
		t.Fatalf("AddTask failed: %v", err)
	}
	if id != 0 {
		t.Errorf("Expected first slot, got %d", id)
	}
	if !r.taskAdded.Load() {
		t.Error("taskAdded flag not set")
	}

	infos := r.Tasks()
	if len(infos) != 1 {
		t.Fatalf("Expected one task, got %d", len(infos))
	}
	want := TaskInfo{
		ID:              0,
		State:           TaskPending,
		Remaining:       4,
		CyclesToNext:    3 * 16000,
		CyclesPerPeriod: 25 * 16000,
	}
	if infos[0] != want {
		t.Errorf("Expected %+v, got %+v", want, infos[0])
	}
	if r.tasks[0].ctx != ctx {
		t.Error("Context not stored")
	}
}

func TestAddTaskReusesLowestFreeSlot(t *testing.T) {
	r := New(Config{MaxTasks: 3})
	abortFirst := func(any) Status { return StatusAbort }
	keep := func(any) Status { return StatusOK }

	first, _ := r.AddTask(abortFirst, nil, 0, 1, 0)
	r.AddTask(keep, nil, 0, 1, 5)
	r.tick(0)

	id, err := r.AddTask(keep, nil, 0, 1, 0)
	if err != nil {
		t.Fatalf("AddTask failed: %v", err)
	}
	if id != first {
		t.Errorf("Expected retired slot %d to be reused, got %d", first, id)
	}
}

func TestAddTaskConcurrent(t *testing.T) {
	r := New(Config{MaxTasks: 64})
	keep := func(any) Status { return StatusOK }

	ids := make(chan TaskID, 64)
	done := make(chan struct{})
	for g := 0; g < 8; g++ {
		go func() {
			for i := 0; i < 8; i++ {
				id, err := r.AddTask(keep, nil, 0, 1, 0)
				if err != nil {
					t.Errorf("AddTask failed: %v", err)
					continue
				}
				ids <- id
			}
			done <- struct{}{}
		}()
	}
	for g := 0; g < 8; g++ {
		<-done
	}
	close(ids)

	seen := make(map[TaskID]bool)
	for id := range ids {
		if seen[id] {
			t.Fatalf("Slot %d handed out twice", id)
		}
		seen[id] = true
	}
	if len(seen) != 64 {
		t.Errorf("Expected 64 distinct slots, got %d", len(seen))
	}
}

func TestCapacityClamp(t *testing.T) {
	if got := New(Config{MaxTasks: 1000}).Capacity(); got != 255 {
		t.Errorf("Expected capacity clamped to 255, got %d", got)
	}
	if got := New(Config{}).Capacity(); got != MaxTasks {
		t.Errorf("Expected default capacity %d, got %d", MaxTasks, got)
	}
}

func TestStatusAndStateNames(t *testing.T) {
	if StatusOK.IsError() || StatusAbort.IsError() || !StatusError.IsError() {
		t.Error("Unexpected error classification")
	}
	if TaskReady.String() != "ready" || Paused.String() != "paused" {
		t.Error("Unexpected state names")
	}
}

package sim

import (
	"container/heap"
	"testing"
)

func TestEventQueue_OrdersByTimestamp(t *testing.T) {
	// GIVEN events scheduled out of order
	sim := &Simulator{EventQueue: make(EventQueue, 0)}
	sim.Schedule(&RegionStepEvent{time: 0.003, Region: 0})
	sim.Schedule(&RegionStepEvent{time: 0.001, Region: 1})
	sim.Schedule(&RegionStepEvent{time: 0.002, Region: 2})

	// WHEN the queue drains
	var times []float64
	for sim.EventQueue.Len() > 0 {
		ev := heap.Pop(&sim.EventQueue).(scheduledEvent).ev
		times = append(times, ev.Timestamp())
	}

	// THEN events come out in timestamp order
	want := []float64{0.001, 0.002, 0.003}
	for i, ts := range want {
		if times[i] != ts {
			t.Errorf("pop %d: got %g, want %g", i, times[i], ts)
		}
	}
}

func TestEventQueue_TiesBreakByScheduleOrder(t *testing.T) {
	// GIVEN three events at the same timestamp
	sim := &Simulator{EventQueue: make(EventQueue, 0)}
	for i := 0; i < 3; i++ {
		sim.Schedule(&RegionStepEvent{time: 0.001, Region: RegionID(i)})
	}

	// WHEN the queue drains
	var regions []RegionID
	for sim.EventQueue.Len() > 0 {
		ev := heap.Pop(&sim.EventQueue).(scheduledEvent).ev
		regions = append(regions, ev.(*RegionStepEvent).Region)
	}

	// THEN insertion order decides, keeping replays deterministic
	for i, r := range regions {
		if r != RegionID(i) {
			t.Errorf("pop %d: got region %d, want %d", i, r, i)
		}
	}
}

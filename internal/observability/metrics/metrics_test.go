package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNilReceiversAreSafe(t *testing.T) {
	var bm *BookingMetrics
	bm.ObserveAttempt("book", "success")
	bm.ObserveConflict("commit")
	bm.ObserveSearchLatency("routine", 0.1)

	var cm *CallMetrics
	cm.ObserveTurn("reply")
	cm.ObserveTool("book_appointment", "ok")
	cm.ObserveLoopExhausted()
	cm.ObserveEscalation("emergency")
	cm.ObserveTurnLatency("collecting_info", 0.2)
}

func TestRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	bm := NewBookingMetrics(reg)
	cm := NewCallMetrics(reg)

	bm.ObserveAttempt("book", "conflict")
	bm.ObserveConflict("precheck")
	cm.ObserveTool("check_availability", "ok")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("expected registered metric families")
	}
}

package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"fermi-notifier/internal/domain/model"
)

func TestObserveRunAndBusy(t *testing.T) {
	before := testutil.ToFloat64(pipelineRunsTotal.WithLabelValues("done", ""))
	ObserveRun("Done", "", 2*time.Second)
	if got := testutil.ToFloat64(pipelineRunsTotal.WithLabelValues("done", "")); got != before+1 {
		t.Errorf("pipeline_runs_total{done} = %v, want %v", got, before+1)
	}

	busy := testutil.ToFloat64(triggersRejectedTotal)
	IncBusy()
	if testutil.ToFloat64(triggersRejectedTotal) != busy+1 {
		t.Error("busy counter did not increase")
	}

	SetInFlight(true)
	if testutil.ToFloat64(pipelineInFlight) != 1 {
		t.Error("in-flight gauge should be 1")
	}
	SetInFlight(false)
	if testutil.ToFloat64(pipelineInFlight) != 0 {
		t.Error("in-flight gauge should be 0")
	}
}

func TestPublishAttemptLabels(t *testing.T) {
	IncPublishAttempt("")
	IncPublishAttempt("NotificationTransient")
	if testutil.ToFloat64(notificationsTotal.WithLabelValues("ok")) < 1 {
		t.Error("empty reason should count as ok")
	}
	if testutil.ToFloat64(notificationsTotal.WithLabelValues("notificationtransient")) < 1 {
		t.Error("reason label should be normalized")
	}
}

func TestHandlerExposesCollectors(t *testing.T) {
	ObserveGeneration("Gemini", "gemini-2.0-flash", 10, 20, 150*time.Millisecond, "")
	SetBuildInfo("v-test", "abc")
	ObserveRun("done", "ok", time.Second)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	for _, name := range []string{"ai_tokens_in", "ai_calls_latency_ms", "fermi_notifier_build_info", "pipeline_runs_total"} {
		if !strings.Contains(string(body), name) {
			t.Errorf("expected %s in exposition", name)
		}
	}
}

func TestPipelineObserver(t *testing.T) {
	var obs PipelineObserver
	failed := testutil.ToFloat64(pipelineRunsTotal.WithLabelValues("failed", "timeout"))
	busy := testutil.ToFloat64(triggersRejectedTotal)

	obs.RunStarted()
	if testutil.ToFloat64(pipelineInFlight) != 1 {
		t.Error("RunStarted should raise the in-flight gauge")
	}
	obs.Busy()
	obs.RunFinished(&model.RunResult{Status: model.RunStatusFailed, Reason: "Timeout", Latency: time.Second})
	obs.RunFinished(nil)

	if testutil.ToFloat64(pipelineInFlight) != 0 {
		t.Error("RunFinished should clear the in-flight gauge")
	}
	if got := testutil.ToFloat64(pipelineRunsTotal.WithLabelValues("failed", "timeout")); got != failed+1 {
		t.Errorf("failed runs = %v, want %v", got, failed+1)
	}
	if testutil.ToFloat64(triggersRejectedTotal) != busy+1 {
		t.Error("Busy should count a rejected trigger")
	}
}

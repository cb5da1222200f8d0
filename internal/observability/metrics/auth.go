package metrics

import (
	"time"

	obserrors "github.com/target/stockcam/internal/observability/errors"
	"github.com/target/stockcam/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// Metric names.
const (
	AuthOperationCount    = "auth.operation"
	AuthOperationDuration = "auth.operation.duration"
	AuthTransitionCount   = "auth.state.transition"
)

// AuthOperation describes one state machine operation for metric emission.
type AuthOperation struct {
	Operation string
	Result    string
	Duration  time.Duration
	Err       error
}

// EmitAuthOperation emits a counter and, when timed, a duration for op.
func EmitAuthOperation(sink statsd.Sink, op AuthOperation) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"operation": op.Operation,
		"result":    op.Result,
	}
	if op.Err != nil && op.Result == ResultError {
		if class := obserrors.Classify(op.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count(AuthOperationCount, 1, tags)
	if op.Duration > 0 {
		sink.Timing(AuthOperationDuration, op.Duration, CloneTags(tags))
	}
}

// EmitStateTransition counts a move between two state kinds.
func EmitStateTransition(sink statsd.Sink, from, to string) {
	if sink == nil {
		return
	}
	sink.Count(AuthTransitionCount, 1, map[string]string{"from": from, "to": to})
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

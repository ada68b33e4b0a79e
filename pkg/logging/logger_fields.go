package logging

import (
	"time"

	"github.com/dd0wney/cluso-flowscope/pkg/workflow"
)

// Common field constructors
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

func Any(key string, value any) Field {
	return Field{Key: key, Value: value}
}

func Component(name string) Field {
	return String("component", name)
}

func Operation(op string) Field {
	return String("operation", op)
}

func Latency(d time.Duration) Field {
	return Duration("latency", d)
}

func Count(n int) Field {
	return Int("count", n)
}

// Workflow-specific fields

func NodeID(id workflow.NodeID) Field {
	return String("node_id", id.String())
}

func Workflow(id workflow.NodeID) Field {
	return String("workflow", id.String())
}

func Pass(name string) Field {
	return String("pass", name)
}

func Visited(n int) Field {
	return Int("visited", n)
}

func ScopeError(msg string) Field {
	return String("scope_error", msg)
}

package interceptor_test

import (
	"sync"

	"github.com/jt828/users-api/pkg/observability"
)

type logCall struct {
	level  observability.Level
	msg    string
	fields []observability.Field
}

type mockLogger struct {
	mu    sync.Mutex
	calls []logCall
}

func (m *mockLogger) record(level observability.Level, msg string, fields []observability.Field) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, logCall{level: level, msg: msg, fields: fields})
}

func (m *mockLogger) Debug(msg string, fields ...observability.Field) {
	m.record(observability.DebugLevel, msg, fields)
}
func (m *mockLogger) Error(msg string, fields ...observability.Field) {
	m.record(observability.ErrorLevel, msg, fields)
}
func (m *mockLogger) Fatal(msg string, fields ...observability.Field) {}
func (m *mockLogger) Info(msg string, fields ...observability.Field) {
	m.record(observability.InfoLevel, msg, fields)
}
func (m *mockLogger) Log(level observability.Level, msg string, fields ...observability.Field) {
	m.record(level, msg, fields)
}
func (m *mockLogger) Warn(msg string, fields ...observability.Field) {
	m.record(observability.WarnLevel, msg, fields)
}
func (m *mockLogger) With(fields ...observability.Field) observability.Logger { return m }

func (m *mockLogger) at(level observability.Level) []logCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []logCall
	for _, c := range m.calls {
		if c.level == level {
			out = append(out, c)
		}
	}
	return out
}

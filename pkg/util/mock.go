package util

import (
	"sync"

	"github.com/influxdata/influxdb-client-go/api/write"
)

// MockWriteAPI stands in for an influx WriteAPI when no server is configured.
// It keeps the names of the measurements it was handed.
type MockWriteAPI struct {
	mu     sync.Mutex
	points []string
}

func (m *MockWriteAPI) WriteRecord(line string) {}

func (m *MockWriteAPI) WritePoint(point *write.Point) {
	if point == nil {
		return
	}
	m.mu.Lock()
	m.points = append(m.points, point.Name())
	m.mu.Unlock()
}

// Measurements returns every measurement name written so far, in order.
func (m *MockWriteAPI) Measurements() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.points...)
}

func (m *MockWriteAPI) Flush() {}

func (m *MockWriteAPI) Close() {}

func (m *MockWriteAPI) Errors() <-chan error { return nil }

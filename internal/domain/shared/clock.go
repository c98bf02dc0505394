package shared

import "time"

// Clock is an abstraction for time operations, allowing time to be controlled in tests
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the actual system time
type RealClock struct{}

// Now returns the current system time in UTC
func (r *RealClock) Now() time.Time {
	return time.Now().UTC()
}

// NewRealClock creates a RealClock instance
func NewRealClock() Clock {
	return &RealClock{}
}

// MockClock implements Clock with a controllable time for testing
type MockClock struct {
	CurrentTime time.Time
}

// Now returns the mock's current time
func (m *MockClock) Now() time.Time {
	return m.CurrentTime
}

// Advance moves the mock clock forward by the given duration
func (m *MockClock) Advance(d time.Duration) {
	m.CurrentTime = m.CurrentTime.Add(d)
}

// NewMockClock creates a MockClock starting at the given time
// If zero time is provided, starts at current time
func NewMockClock(startTime time.Time) *MockClock {
	if startTime.IsZero() {
		startTime = time.Now()
	}
	return &MockClock{CurrentTime: startTime}
}

// SimulationEpoch is the instant simulation time starts counting from
var SimulationEpoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// SimulationClock is driven purely by the deltas fed into the simulation loop,
// so two runs with the same delta sequence observe the same timestamps.
type SimulationClock struct {
	elapsed float64
}

// NewSimulationClock creates a clock at the simulation epoch
func NewSimulationClock() *SimulationClock {
	return &SimulationClock{}
}

// Advance moves simulation time forward by delta seconds; negative deltas are ignored
func (c *SimulationClock) Advance(delta float64) {
	if delta > 0 {
		c.elapsed += delta
	}
}

// Elapsed returns the simulated seconds since the epoch
func (c *SimulationClock) Elapsed() float64 {
	return c.elapsed
}

// SetElapsed restores simulation time from a snapshot
func (c *SimulationClock) SetElapsed(seconds float64) {
	c.elapsed = seconds
}

// Now returns the epoch offset by elapsed simulation time
func (c *SimulationClock) Now() time.Time {
	return SimulationEpoch.Add(time.Duration(c.elapsed * float64(time.Second)))
}

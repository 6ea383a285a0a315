package core

// MaxLimits is the capacity of a LimitManager
const MaxLimits = 8

// LimitManager is an ordered, fixed-capacity set of limits.
// The first registered limit that is reached wins.
type LimitManager struct {
	limits [MaxLimits]Limit
	count  int
}

// NewLimitManager creates an empty manager
func NewLimitManager() *LimitManager {
	return &LimitManager{}
}

// Add registers a limit; returns false if the manager is full or l is nil
func (m *LimitManager) Add(l Limit) bool {
	if l == nil || m.count >= MaxLimits {
		return false
	}
	m.limits[m.count] = l
	m.count++
	return true
}

// CheckLimits returns the first limit reached, or nil
func (m *LimitManager) CheckLimits(position int32, dir Direction) Limit {
	for i := 0; i < m.count; i++ {
		if m.limits[i].IsReached(position, dir) {
			return m.limits[i]
		}
	}
	return nil
}

// CheckLimitsExcept is CheckLimits with skip left out of the scan
func (m *LimitManager) CheckLimitsExcept(position int32, dir Direction, skip Limit) Limit {
	for i := 0; i < m.count; i++ {
		if m.limits[i] != skip && m.limits[i].IsReached(position, dir) {
			return m.limits[i]
		}
	}
	return nil
}

// ResetAll resets every limit that carries state
func (m *LimitManager) ResetAll() {
	for i := 0; i < m.count; i++ {
		if r, ok := m.limits[i].(Resetter); ok {
			r.Reset()
		}
	}
}

// SetReference arms every distance-based limit at position
func (m *LimitManager) SetReference(position int32) {
	for i := 0; i < m.count; i++ {
		if r, ok := m.limits[i].(Referencer); ok {
			r.SetReference(position)
		}
	}
}

// Count returns the number of registered limits
func (m *LimitManager) Count() int {
	return m.count
}

// At returns the limit registered at index i, or nil
func (m *LimitManager) At(i int) Limit {
	if i < 0 || i >= m.count {
		return nil
	}
	return m.limits[i]
}

// Find returns the limit with the given name, or nil
func (m *LimitManager) Find(name string) Limit {
	for i := 0; i < m.count; i++ {
		if m.limits[i].Name() == name {
			return m.limits[i]
		}
	}
	return nil
}

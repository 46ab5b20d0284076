package oplog

// Memory is an in-memory Store. It is used by tests and offers none of the
// durability of Log.
type Memory struct {
	rows map[string]string
}

// NewMemory returns a Memory seeded with the given rows. An empty value seeds
// a tombstone.
func NewMemory(rows map[string]string) *Memory {
	m := &Memory{rows: make(map[string]string, len(rows))}
	for id, statusID := range rows {
		m.rows[id] = statusID
	}
	return m
}

func (m *Memory) Contains(id string) (bool, error) {
	_, ok := m.rows[id]
	return ok, nil
}

func (m *Memory) Get(id string) (string, bool, error) {
	statusID, ok := m.rows[id]
	return statusID, ok, nil
}

func (m *Memory) Set(id, statusID string) error {
	m.rows[id] = statusID
	return nil
}

func (m *Memory) Remove(id string) error {
	delete(m.rows, id)
	return nil
}

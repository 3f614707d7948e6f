package pool

import (
	"encoding/json"
	"os"
	"time"

	"YieldPool/internal/model"
)

// LoadState reads the pool state from a JSON file. Returns a zero state when
// the file does not exist or no path is configured.
func LoadState(filePath string) (*model.PoolState, error) {
	if filePath == "" {
		return &model.PoolState{}, nil
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &model.PoolState{}, nil
		}
		return nil, err
	}
	var state model.PoolState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// SaveState writes the pool state to a JSON file.
func SaveState(filePath string, state *model.PoolState) error {
	state.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filePath, data, 0644)
}

// SaveState forces a snapshot write, used by the scheduler's snapshot task.
func (e *Engine) SaveState() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.persist()
}

package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	StatusOK           = "ok"
	StatusSampleFailed = "sample_failed"
	StatusApplyFailed  = "apply_failed"
)

// Tick is the record of one monitoring iteration.
type Tick struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	GPUIndex    int       `json:"gpu_index"`
	Utilization int       `json:"utilization"`
	Color       RGB       `json:"color"`
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
}

func NewTick(gpuIndex, utilization int, color RGB, status, errText string) *Tick {
	return &Tick{
		ID:          uuid.New().String(),
		Timestamp:   time.Now().UTC(),
		GPUIndex:    gpuIndex,
		Utilization: utilization,
		Color:       color,
		Status:      status,
		Error:       errText,
	}
}

func (t *Tick) ToJSON() ([]byte, error) {
	return json.Marshal(t)
}

func TickFromJSON(data []byte) (*Tick, error) {
	var t Tick
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

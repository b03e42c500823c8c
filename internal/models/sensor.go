package models

import "time"

// SensorReading is one stored measurement. ID and Timestamp are assigned on insert.
type SensorReading struct {
	ID          int64     `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Temperature float64   `json:"temperature"`
	Gas         float64   `json:"gas"`
}

// Measurement is a decoded broker payload that has not been stored yet.
type Measurement struct {
	Temperature float64
	Gas         float64
	ReceivedAt  time.Time
}

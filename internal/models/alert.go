package models

import (
	"fmt"
	"time"
)

const FireAlertSubject = "Fire Alert - High Temperature Detected"

// FireAlert is what alert transports deliver to each recipient.
type FireAlert struct {
	Temperature float64   `json:"temperature"`
	Gas         float64   `json:"gas"`
	Threshold   float64   `json:"threshold"`
	TriggeredAt time.Time `json:"triggered_at"`
}

func (a FireAlert) Subject() string {
	return FireAlertSubject
}

func (a FireAlert) Body() string {
	return fmt.Sprintf(
		"Fire alert!\n\nTemperature has exceeded the safe limit.\n"+
			"Temperature: %.2f (limit %.2f)\nGas: %.2f\nTime: %s\n\n"+
			"Please check immediately.\n\n- IoT Monitoring System\n",
		a.Temperature, a.Threshold, a.Gas, a.TriggeredAt.Format(time.RFC3339),
	)
}

package models

// LedColor is the color shown by the hardware status LED.
type LedColor string

const (
	LedRed    LedColor = "red"
	LedYellow LedColor = "yellow"
	LedGreen  LedColor = "green"
)

func (c LedColor) Valid() bool {
	switch c {
	case LedRed, LedYellow, LedGreen:
		return true
	}
	return false
}

// Request bodies for the device control endpoints. Pointers distinguish
// an explicit false from a missing field.
type RelayState struct {
	OnRelay *bool `json:"onRelay" binding:"required"`
}

type BuzzerState struct {
	OnBuzzer *bool `json:"onBuzzer" binding:"required"`
}

type LedState struct {
	LedColor LedColor `json:"ledColor" binding:"required,oneof=red yellow green"`
}

package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/responses"

	"fireguard/internal/models"
)

const defaultReadingLimit = 10

// ReadingQuerier reads stored sensor history.
type ReadingQuerier interface {
	ReadingsSince(ctx context.Context, since time.Time) ([]models.SensorReading, error)
	LatestReadings(ctx context.Context, limit int) ([]models.SensorReading, error)
}

// PollSwitch turns periodic sensor polling on or off.
type PollSwitch interface {
	Set(enabled bool) bool
}

// DeviceController publishes actuator commands.
type DeviceController interface {
	SetRelay(on bool) error
	SetBuzzer(on bool) error
}

type toolHandler func(ctx context.Context, args map[string]any) string

type tool struct {
	definition responses.ToolUnionParam
	handler    toolHandler
}

func sensorParams() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"timeDelta": map[string]any{
				"type":        []string{"number", "null"},
				"description": "Optional time interval (in seconds) to retrieve data from. Should be omitted if limit is used.",
			},
			"limit": map[string]any{
				"type":        []string{"number", "null"},
				"description": "Optional maximum number of latest data points to retrieve. Should be omitted if timeDelta is used.",
			},
		},
		"required":             []string{"timeDelta", "limit"},
		"additionalProperties": false,
	}
}

func boolStateParams() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"enabled": map[string]any{
				"type":        "boolean",
				"description": "Whether to enable (true) or disable (false) the device.",
			},
		},
		"required":             []string{"enabled"},
		"additionalProperties": false,
	}
}

// Toolbox holds the functions the assistant may call.
type Toolbox struct {
	readings ReadingQuerier
	poller   PollSwitch
	devices  DeviceController
	now      func() time.Time
	tools    map[string]tool
	order    []string
}

func NewToolbox(readings ReadingQuerier, poller PollSwitch, devices DeviceController) *Toolbox {
	t := &Toolbox{readings: readings, poller: poller, devices: devices, now: time.Now, tools: map[string]tool{}}
	t.add("get_temperature", "Retrieve the temperature sensor reading", sensorParams(), t.getTemperature)
	t.add("get_gas", "Retrieve the gas/smoke sensor reading", sensorParams(), t.getGas)
	t.add("set_sensor_polling", "Start or stop the sensor polling task that periodically reads sensor data", boolStateParams(), t.setSensorPolling)
	t.add("set_relay", "Activate or deactivate the water relay/sprinkler for fire suppression", boolStateParams(), t.setRelay)
	t.add("set_buzzer", "Activate or deactivate the buzzer alarm", boolStateParams(), t.setBuzzer)
	return t
}

func (t *Toolbox) add(name, description string, params map[string]any, h toolHandler) {
	t.tools[name] = tool{
		definition: responses.ToolUnionParam{OfFunction: &responses.FunctionToolParam{
			Name:        name,
			Description: openai.String(description),
			Parameters:  params,
			Strict:      openai.Bool(true),
		}},
		handler: h,
	}
	t.order = append(t.order, name)
}

// Definitions lists the tools in registration order.
func (t *Toolbox) Definitions() []responses.ToolUnionParam {
	defs := make([]responses.ToolUnionParam, 0, len(t.order))
	for _, name := range t.order {
		defs = append(defs, t.tools[name].definition)
	}
	return defs
}

// Call runs the named tool. Failures are reported to the model as text.
func (t *Toolbox) Call(ctx context.Context, name string, args map[string]any) string {
	tl, ok := t.tools[name]
	if !ok {
		return "Unknown tool: " + name
	}
	return tl.handler(ctx, args)
}

func (t *Toolbox) history(ctx context.Context, args map[string]any) ([]models.SensorReading, error) {
	if delta, ok := args["timeDelta"].(float64); ok {
		since := t.now().Add(-time.Duration(delta * float64(time.Second)))
		return t.readings.ReadingsSince(ctx, since)
	}
	limit := defaultReadingLimit
	if l, ok := args["limit"].(float64); ok {
		limit = int(l)
	}
	return t.readings.LatestReadings(ctx, limit)
}

func (t *Toolbox) getTemperature(ctx context.Context, args map[string]any) string {
	data, err := t.history(ctx, args)
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	if len(data) == 0 {
		return "No temperature data available."
	}
	return table("Temperature (°C)", data, func(r models.SensorReading) float64 { return r.Temperature })
}

func (t *Toolbox) getGas(ctx context.Context, args map[string]any) string {
	data, err := t.history(ctx, args)
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	if len(data) == 0 {
		return "No gas data available."
	}
	return table("Gas Level", data, func(r models.SensorReading) float64 { return r.Gas })
}

func table(column string, data []models.SensorReading, value func(models.SensorReading) float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "| Timestamp | %s |\n", column)
	fmt.Fprintf(&b, "|-----------|%s|", strings.Repeat("-", len([]rune(column))+2))
	for _, r := range data {
		fmt.Fprintf(&b, "\n| %s | %.2f |", r.Timestamp.Format("2006-01-02 15:04:05"), value(r))
	}
	return b.String()
}

func enabledArg(args map[string]any) (bool, bool) {
	v, ok := args["enabled"].(bool)
	return v, ok
}

func (t *Toolbox) setSensorPolling(_ context.Context, args map[string]any) string {
	enabled, ok := enabledArg(args)
	if !ok {
		return "Error: 'enabled' must be a boolean value."
	}
	changed := t.poller.Set(enabled)
	switch {
	case enabled && changed:
		return "Sensor polling started."
	case !enabled && changed:
		return "Sensor polling stopped."
	case enabled:
		return "Sensor polling is already running."
	default:
		return "Sensor polling is already stopped."
	}
}

func (t *Toolbox) setRelay(_ context.Context, args map[string]any) string {
	enabled, ok := enabledArg(args)
	if !ok {
		return "Error: 'enabled' must be a boolean value."
	}
	if err := t.devices.SetRelay(enabled); err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	return "Relay " + activated(enabled) + "."
}

func (t *Toolbox) setBuzzer(_ context.Context, args map[string]any) string {
	enabled, ok := enabledArg(args)
	if !ok {
		return "Error: 'enabled' must be a boolean value."
	}
	if err := t.devices.SetBuzzer(enabled); err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	return "Buzzer " + activated(enabled) + "."
}

func activated(on bool) string {
	if on {
		return "activated"
	}
	return "deactivated"
}

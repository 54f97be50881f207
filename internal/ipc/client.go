package ipc

import (
	"encoding/json"
	"fmt"

	"github.com/godbus/dbus/v5"

	"restbreak/internal/core/widget"
)

// Client drives a running daemon over the session bus.
type Client struct {
	conn *dbus.Conn
	obj  dbus.BusObject
}

// Dial connects to the session bus and binds the daemon object. It
// does not verify the daemon is running; the first call will fail with
// a service-unknown error if it is not.
func Dial() (*Client, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	return &Client{
		conn: conn,
		obj:  conn.Object(BusName, ObjectPath),
	}, nil
}

// Close releases the bus connection.
func (client *Client) Close() error {
	return client.conn.Close()
}

// SnoozeForMinutes suspends break prompts for the given span.
func (client *Client) SnoozeForMinutes(minutes int64) error {
	return client.call("SnoozeForMinutes", minutes)
}

// Mute suspends break prompts until further notice.
func (client *Client) Mute() error {
	return client.call("Mute")
}

// MuteForMinutes suspends break prompts for the given span.
func (client *Client) MuteForMinutes(minutes int64) error {
	return client.call("MuteForMinutes", minutes)
}

// Unmute clears any snooze or mute.
func (client *Client) Unmute() error {
	return client.call("Unmute")
}

// TriggerBreak starts a break immediately.
func (client *Client) TriggerBreak() error {
	return client.call("TriggerBreak")
}

// SetReadingMode flips the daemon's reading-mode flag.
func (client *Client) SetReadingMode(enabled bool) error {
	return client.call("SetReadingMode", enabled)
}

// GetWidgetInfo fetches the current widget frame.
func (client *Client) GetWidgetInfo() (widget.Info, error) {
	var payload string
	if err := client.obj.Call(InterfaceName+".GetWidgetInfo", 0).Store(&payload); err != nil {
		return widget.Info{}, fmt.Errorf("call GetWidgetInfo: %w", err)
	}
	var info widget.Info
	if err := json.Unmarshal([]byte(payload), &info); err != nil {
		return widget.Info{}, fmt.Errorf("decode widget info: %w", err)
	}
	return info, nil
}

func (client *Client) call(method string, args ...interface{}) error {
	if call := client.obj.Call(InterfaceName+"."+method, 0, args...); call.Err != nil {
		return fmt.Errorf("call %s: %w", method, call.Err)
	}
	return nil
}

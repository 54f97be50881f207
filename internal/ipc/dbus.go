// Package ipc exposes the scheduler on the D-Bus session bus so
// widgets and the CLI can control the daemon and follow its state.
package ipc

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/rs/zerolog"

	"restbreak/internal/core/model"
	"restbreak/internal/core/scheduler"
	"restbreak/internal/core/widget"
)

const (
	// BusName is the well-known session bus name the daemon claims.
	BusName = "io.github.restbreak.Daemon"
	// ObjectPath is where the control interface is served.
	ObjectPath dbus.ObjectPath = "/io/github/restbreak/Daemon"
	// InterfaceName is the control interface.
	InterfaceName = "io.github.restbreak.Daemon"

	signalWidgetInfoUpdated = InterfaceName + ".WidgetInfoUpdated"
)

// ErrNameTaken indicates the bus name is already owned, meaning a
// daemon is already serving this session.
var ErrNameTaken = errors.New("bus name already taken")

// Commander is the slice of the scheduler the bus handler needs.
type Commander interface {
	SnoozeFor(duration time.Duration) error
	Mute() error
	MuteFor(duration time.Duration) error
	Unmute() error
	TriggerBreak() error
	SetReadingMode(enabled bool) error
	Snapshot() (scheduler.State, model.Config, error)
	Subscribe(buffer int) <-chan scheduler.Event
}

// Server owns the bus connection and the exported control object.
type Server struct {
	commander Commander
	logger    zerolog.Logger
	conn      *dbus.Conn
	doneCh    chan struct{}
}

// NewServer creates a server around commander.
func NewServer(commander Commander, logger zerolog.Logger) *Server {
	return &Server{
		commander: commander,
		logger:    logger.With().Str("component", "ipc").Logger(),
		doneCh:    make(chan struct{}),
	}
}

// Start connects to the session bus, claims the well-known name and
// begins broadcasting widget updates. Stop the scheduler to end the
// broadcast loop; Close releases the connection.
func (server *Server) Start() error {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return fmt.Errorf("connect session bus: %w", err)
	}
	server.conn = conn

	handler := &busHandler{commander: server.commander}
	if err := conn.Export(handler, ObjectPath, InterfaceName); err != nil {
		server.abort()
		return fmt.Errorf("export control interface: %w", err)
	}
	if err := conn.Export(introspect.Introspectable(introspectXML), ObjectPath,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		server.abort()
		return fmt.Errorf("export introspection: %w", err)
	}

	reply, err := conn.RequestName(BusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		server.abort()
		return fmt.Errorf("request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		server.abort()
		return fmt.Errorf("%s: %w", BusName, ErrNameTaken)
	}

	go server.broadcast()
	server.logger.Info().Str("bus_name", BusName).Msg("control interface online")
	return nil
}

func (server *Server) abort() {
	server.conn.Close()
	server.conn = nil
}

// Close releases the bus connection after the broadcast loop drains.
func (server *Server) Close() error {
	if server.conn == nil {
		return nil
	}
	<-server.doneCh
	return server.conn.Close()
}

// broadcast mirrors scheduler events onto the bus as WidgetInfoUpdated
// signals. Identical consecutive frames are not re-sent.
func (server *Server) broadcast() {
	defer close(server.doneCh)

	events := server.commander.Subscribe(16)
	var lastFrame string
	for event := range events {
		_, config, err := server.commander.Snapshot()
		if err != nil {
			return
		}
		payload, err := json.Marshal(widget.Project(event.State, config))
		if err != nil {
			server.logger.Error().Err(err).Msg("encode widget info")
			continue
		}
		frame := string(payload)
		if frame == lastFrame {
			continue
		}
		lastFrame = frame
		if err := server.conn.Emit(ObjectPath, signalWidgetInfoUpdated, frame); err != nil {
			server.logger.Warn().Err(err).Msg("emit widget info")
		}
	}
}

// busHandler implements the exported control methods. Methods run on
// godbus worker goroutines; the scheduler serializes them internally.
type busHandler struct {
	commander Commander
}

func (handler *busHandler) SnoozeForMinutes(minutes int64) *dbus.Error {
	return asBusError(handler.commander.SnoozeFor(time.Duration(minutes) * time.Minute))
}

func (handler *busHandler) Mute() *dbus.Error {
	return asBusError(handler.commander.Mute())
}

func (handler *busHandler) MuteForMinutes(minutes int64) *dbus.Error {
	return asBusError(handler.commander.MuteFor(time.Duration(minutes) * time.Minute))
}

func (handler *busHandler) Unmute() *dbus.Error {
	return asBusError(handler.commander.Unmute())
}

func (handler *busHandler) TriggerBreak() *dbus.Error {
	return asBusError(handler.commander.TriggerBreak())
}

func (handler *busHandler) SetReadingMode(enabled bool) *dbus.Error {
	return asBusError(handler.commander.SetReadingMode(enabled))
}

func (handler *busHandler) GetWidgetInfo() (string, *dbus.Error) {
	state, config, err := handler.commander.Snapshot()
	if err != nil {
		return "", asBusError(err)
	}
	payload, err := json.Marshal(widget.Project(state, config))
	if err != nil {
		return "", asBusError(err)
	}
	return string(payload), nil
}

func asBusError(err error) *dbus.Error {
	if err == nil {
		return nil
	}
	return dbus.MakeFailedError(err)
}

const introspectXML = `
<node>
	<interface name="` + InterfaceName + `">
		<method name="SnoozeForMinutes">
			<arg direction="in" type="x" name="minutes"/>
		</method>
		<method name="Mute"/>
		<method name="MuteForMinutes">
			<arg direction="in" type="x" name="minutes"/>
		</method>
		<method name="Unmute"/>
		<method name="TriggerBreak"/>
		<method name="SetReadingMode">
			<arg direction="in" type="b" name="enabled"/>
		</method>
		<method name="GetWidgetInfo">
			<arg direction="out" type="s" name="widget_info"/>
		</method>
		<signal name="WidgetInfoUpdated">
			<arg type="s" name="widget_info"/>
		</signal>
	</interface>` + introspect.IntrospectDataString + `</node>`

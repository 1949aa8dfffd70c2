// Package screencast talks to the GNOME Shell screencast service over the
// D-Bus session bus.
package screencast

import (
	"fmt"
	"math"
	"strings"

	"github.com/godbus/dbus/v5"

	"github.com/tiroq/screenrec/internal/diaglog"
)

const (
	ServiceName = "org.gnome.Shell.Screencast"
	ObjectPath  = dbus.ObjectPath("/org/gnome/Shell/Screencast")
	Interface   = "org.gnome.Shell.Screencast"
)

// DefaultPipeline encodes the compositor stream to VP8 in a WebM container.
const DefaultPipeline = "vp8enc min_quantizer=10 max_quantizer=50 cq_level=13 cpu-used=5 deadline=1000000 threads=%T ! queue ! webmmux"

// Options are the capture options passed with every screencast call.
type Options struct {
	FrameRate  float64 // the service takes whole frames per second; rounded
	DrawCursor bool
	Pipeline   string
}

func (o Options) variants() map[string]dbus.Variant {
	pipeline := o.Pipeline
	if pipeline == "" {
		pipeline = DefaultPipeline
	}
	return map[string]dbus.Variant{
		"framerate":   dbus.MakeVariant(o.wholeFrameRate()),
		"draw-cursor": dbus.MakeVariant(o.DrawCursor),
		"pipeline":    dbus.MakeVariant(pipeline),
	}
}

func (o Options) wholeFrameRate() int32 {
	r := int32(math.Round(o.FrameRate))
	if r < 1 {
		return 1
	}
	return r
}

// Error reports a failed or refused screencast call.
type Error struct {
	Method string
	Err    error // nil when the service answered success=false
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("screencast %s: request refused by compositor", e.Method)
	}
	return fmt.Sprintf("screencast %s: %v", e.Method, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Refused reports a call the service answered with success=false, as
// opposed to one that failed on the bus.
func (e *Error) Refused() bool { return e.Err == nil }

// Screencaster is the subset of the service the recorder needs.
type Screencaster interface {
	// Screencast records the whole screen into a file built from template.
	Screencast(template string, opts Options) (string, error)
	// ScreencastArea records a rectangle of the screen.
	ScreencastArea(x, y, width, height int, template string, opts Options) (string, error)
	// StopScreencast ends the active capture.
	StopScreencast() error
}

// Client is a Screencaster backed by a session bus connection.
type Client struct {
	conn *dbus.Conn
	obj  dbus.BusObject
	log  *diaglog.Logger
}

// Connect opens a private connection to the session bus.
func Connect() (*Client, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, &Error{Method: "connect", Err: err}
	}
	return NewClient(conn), nil
}

// NewClient wraps an existing bus connection.
func NewClient(conn *dbus.Conn) *Client {
	return &Client{
		conn: conn,
		obj:  conn.Object(ServiceName, ObjectPath),
		log:  diaglog.NewNoOp(),
	}
}

// SetLogger attaches a diagnostic logger.
func (c *Client) SetLogger(l *diaglog.Logger) {
	if l == nil {
		l = diaglog.NewNoOp()
	}
	c.log = l
}

// Ping checks that the service owns its name on the bus.
func (c *Client) Ping() error {
	var owner string
	err := c.conn.BusObject().Call("org.freedesktop.DBus.GetNameOwner", 0, ServiceName).Store(&owner)
	if err != nil {
		return &Error{Method: "ping", Err: err}
	}
	return nil
}

func (c *Client) Screencast(template string, opts Options) (string, error) {
	return c.start("Screencast", template, opts)
}

func (c *Client) ScreencastArea(x, y, width, height int, template string, opts Options) (string, error) {
	return c.start("ScreencastArea", template, opts, int32(x), int32(y), int32(width), int32(height))
}

func (c *Client) start(method, template string, opts Options, area ...interface{}) (string, error) {
	args := append(area, template, opts.variants())

	var (
		success bool
		written string
	)
	call := c.obj.Call(Interface+"."+method, 0, args...)
	if call.Err != nil {
		c.logCall(method, call.Err)
		return "", &Error{Method: method, Err: call.Err}
	}
	if err := call.Store(&success, &written); err != nil {
		c.logCall(method, err)
		return "", &Error{Method: method, Err: err}
	}
	if !success {
		c.logCall(method, fmt.Errorf("refused"))
		return "", &Error{Method: method}
	}
	c.logCall(method, nil)
	return written, nil
}

// StopScreencast ends the active capture. The service answers false when
// no capture is running; that is returned as a refused *Error.
func (c *Client) StopScreencast() error {
	var success bool
	if err := c.obj.Call(Interface+".StopScreencast", 0).Store(&success); err != nil {
		c.logCall("StopScreencast", err)
		return &Error{Method: "StopScreencast", Err: err}
	}
	if !success {
		c.logCall("StopScreencast", fmt.Errorf("refused"))
		return &Error{Method: "StopScreencast"}
	}
	c.logCall("StopScreencast", nil)
	return nil
}

// Close releases the bus connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) logCall(method string, err error) {
	entry := diaglog.LogEntry{
		Component: diaglog.ComponentScreencast,
		Event:     diaglog.EventIPCCall,
		Payload:   map[string]interface{}{"method": method},
	}
	if err != nil {
		entry.Event = diaglog.EventIPCFailed
		entry.Reason = err.Error()
	}
	c.log.Log(entry)
}

// Template turns path into a file name template. The shell expands %d and
// %t in templates, so literal percent signs are doubled.
func Template(path string) string {
	return strings.ReplaceAll(path, "%", "%%")
}

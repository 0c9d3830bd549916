// Package thermocalc talks to a Thermo-Calc gateway process over a
// newline-delimited JSON protocol, and ships a simulated engine for
// running without one.
package thermocalc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/faridf/Phase-Diagram-Calculator-ThermoCalc/pkg/results"
	"github.com/faridf/Phase-Diagram-Calculator-ThermoCalc/pkg/types"
)

// Protocol constants
const (
	// GatewayEnvVar overrides the gateway address when set
	GatewayEnvVar = "PHASECALC_GATEWAY"

	// Default unix socket the gateway listens on
	defaultSocketName = "phasecalc-gateway.sock"
)

// Gateway methods
const (
	methodPing         = "ping"
	methodOpenSession  = "open_session"
	methodCloseSession = "close_session"
	methodCalculate    = "calculate_phase_diagram"
)

// GatewayRequest is one command sent to the gateway
type GatewayRequest struct {
	ID        string                    `json:"id"`
	Method    string                    `json:"method"`
	SessionID string                    `json:"sessionId,omitempty"`
	Database  string                    `json:"database,omitempty"`
	Elements  []string                  `json:"elements,omitempty"`
	Request   *types.CalculationRequest `json:"request,omitempty"`
}

// GatewayResponse is the gateway's reply to a single request
type GatewayResponse struct {
	ID            string                    `json:"id"`
	Version       string                    `json:"version,omitempty"`
	SessionID     string                    `json:"sessionId,omitempty"`
	Error         string                    `json:"error,omitempty"`
	Unrecoverable bool                      `json:"unrecoverable,omitempty"`
	Data          *results.PhaseDiagramData `json:"data,omitempty"`
}

// GatewayConnection is a connection to the gateway
type GatewayConnection struct {
	conn   net.Conn
	reader *bufio.Reader
	writer *bufio.Writer
	mu     sync.Mutex
}

// ResolveAddress picks the gateway address: explicit configuration first,
// then the PHASECALC_GATEWAY environment variable, then the default
// unix socket
func ResolveAddress(configured string) string {
	if configured != "" {
		return configured
	}
	if env := os.Getenv(GatewayEnvVar); env != "" {
		return env
	}
	return "unix://" + filepath.Join(os.TempDir(), defaultSocketName)
}

// DialGateway connects to the gateway at the given address. Addresses take
// the form "unix:///path/to/sock" or "tcp://host:port"; a bare path dials
// a unix socket and anything else dials TCP.
func DialGateway(ctx context.Context, address string) (*GatewayConnection, error) {
	network, target := splitAddress(address)

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, network, target)
	if err != nil {
		return nil, fmt.Errorf("%w at %s: %v", ErrGatewayUnavailable, address, err)
	}

	return NewGatewayConnection(conn), nil
}

// NewGatewayConnection wraps an established connection
func NewGatewayConnection(conn net.Conn) *GatewayConnection {
	return &GatewayConnection{
		conn:   conn,
		reader: bufio.NewReader(conn),
		writer: bufio.NewWriter(conn),
	}
}

func splitAddress(address string) (network, target string) {
	switch {
	case strings.HasPrefix(address, "unix://"):
		return "unix", strings.TrimPrefix(address, "unix://")
	case strings.HasPrefix(address, "tcp://"):
		return "tcp", strings.TrimPrefix(address, "tcp://")
	case strings.HasPrefix(address, "/"):
		return "unix", address
	default:
		return "tcp", address
	}
}

// Close closes the connection
func (gc *GatewayConnection) Close() error {
	return gc.conn.Close()
}

// SetDeadline bounds all pending and future I/O on the connection
func (gc *GatewayConnection) SetDeadline(t time.Time) error {
	return gc.conn.SetDeadline(t)
}

// Send sends a request to the gateway
func (gc *GatewayConnection) Send(req *GatewayRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}

	// Write the JSON data followed by newline
	if _, err := gc.writer.Write(data); err != nil {
		return err
	}
	if err := gc.writer.WriteByte('\n'); err != nil {
		return err
	}

	return gc.writer.Flush()
}

// Receive reads one response from the gateway. A response carrying an error
// with the unrecoverable flag maps to ErrUnrecoverableCalculation so callers
// can skip the point and continue.
func (gc *GatewayConnection) Receive() (*GatewayResponse, error) {
	line, err := gc.reader.ReadBytes('\n')
	if err != nil {
		return nil, err
	}

	var resp GatewayResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, err
	}

	if resp.Error != "" {
		if resp.Unrecoverable {
			return &resp, fmt.Errorf("%w: %s", ErrUnrecoverableCalculation, resp.Error)
		}
		return &resp, fmt.Errorf("gateway error: %s", resp.Error)
	}

	return &resp, nil
}

// SendReceive sends a request and waits for its response. The pair is
// serialized so concurrent callers cannot interleave frames.
func (gc *GatewayConnection) SendReceive(req *GatewayRequest) (*GatewayResponse, error) {
	gc.mu.Lock()
	defer gc.mu.Unlock()

	if err := gc.Send(req); err != nil {
		return nil, err
	}
	return gc.Receive()
}

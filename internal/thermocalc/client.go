package thermocalc

import (
	"context"
	"fmt"
	"sync"
	"time"

	pkgcontext "github.com/faridf/Phase-Diagram-Calculator-ThermoCalc/pkg/context"
	"github.com/faridf/Phase-Diagram-Calculator-ThermoCalc/pkg/interfaces"
	"github.com/faridf/Phase-Diagram-Calculator-ThermoCalc/pkg/logger"
	"github.com/faridf/Phase-Diagram-Calculator-ThermoCalc/pkg/results"
	"github.com/faridf/Phase-Diagram-Calculator-ThermoCalc/pkg/types"
)

// GatewayEngine runs calculations through an external Thermo-Calc gateway
// process. One connection is opened per session, so a crashed calculation
// never poisons the next grid point.
type GatewayEngine struct {
	address string
	logger  logger.Logger
}

var _ interfaces.Engine = (*GatewayEngine)(nil)

// NewGatewayEngine creates an engine client for the given gateway address.
// An empty address falls back to PHASECALC_GATEWAY, then the default socket.
func NewGatewayEngine(address string, log logger.Logger) *GatewayEngine {
	return &GatewayEngine{
		address: ResolveAddress(address),
		logger:  log,
	}
}

// Mode reports the engine mode
func (e *GatewayEngine) Mode() types.EngineMode {
	return types.EngineModeGateway
}

// Address returns the resolved gateway address
func (e *GatewayEngine) Address() string {
	return e.address
}

// Ping verifies the gateway is reachable and speaking the protocol
func (e *GatewayEngine) Ping(ctx context.Context) error {
	conn, err := DialGateway(ctx, e.address)
	if err != nil {
		return err
	}
	defer conn.Close()

	resp, err := conn.SendReceive(&GatewayRequest{
		ID:     pkgcontext.GenerateRequestID(),
		Method: methodPing,
	})
	if err != nil {
		return fmt.Errorf("gateway ping failed: %w", err)
	}

	e.logger.Debug("Gateway responded",
		logger.WithField("version", resp.Version))
	return nil
}

// NewSession opens a fresh calculation session on the gateway
func (e *GatewayEngine) NewSession(ctx context.Context) (interfaces.EngineSession, error) {
	conn, err := DialGateway(ctx, e.address)
	if err != nil {
		return nil, err
	}

	resp, err := conn.SendReceive(&GatewayRequest{
		ID:     pkgcontext.GenerateRequestID(),
		Method: methodOpenSession,
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open gateway session: %w", err)
	}

	e.logger.Debug("Opened gateway session",
		logger.WithField("session_id", resp.SessionID))

	return &gatewaySession{
		conn:      conn,
		sessionID: resp.SessionID,
		logger:    e.logger,
	}, nil
}

// gatewaySession is one open session on the gateway. Sessions are not safe
// for concurrent calculations; the run loop drives them one point at a time.
type gatewaySession struct {
	conn      *GatewayConnection
	sessionID string
	logger    logger.Logger

	mu     sync.Mutex
	closed bool
}

var _ interfaces.EngineSession = (*gatewaySession)(nil)

// CalculatePhaseDiagram runs one phase diagram calculation in this session
func (s *gatewaySession) CalculatePhaseDiagram(ctx context.Context, req *types.CalculationRequest) (*results.PhaseDiagramData, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	s.mu.Unlock()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	// Bound the calculation by the request timeout
	if req.Timeout > 0 {
		s.conn.SetDeadline(time.Now().Add(req.Timeout))
		defer s.conn.SetDeadline(time.Time{})
	}

	// Unblock pending I/O if the run is interrupted mid-calculation
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			s.conn.SetDeadline(time.Now())
		case <-done:
		}
	}()
	defer close(done)

	resp, err := s.conn.SendReceive(&GatewayRequest{
		ID:        pkgcontext.GenerateRequestID(),
		Method:    methodCalculate,
		SessionID: s.sessionID,
		Database:  req.Database,
		Elements:  req.Elements,
		Request:   req,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("gateway returned no data for request %s", req.RequestID)
	}

	resp.Data.SortGroups()
	return resp.Data, nil
}

// Close releases the session on the gateway. Safe to call more than once.
func (s *gatewaySession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	// Best-effort handshake; drop the connection either way
	s.conn.SetDeadline(time.Now().Add(5 * time.Second))
	_, err := s.conn.SendReceive(&GatewayRequest{
		ID:        pkgcontext.GenerateRequestID(),
		Method:    methodCloseSession,
		SessionID: s.sessionID,
	})
	if closeErr := s.conn.Close(); err == nil {
		err = closeErr
	}
	return err
}

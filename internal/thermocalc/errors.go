package thermocalc

import "errors"

// Sentinel errors for engine operations. These enable reliable error
// checking with errors.Is()
var (
	// ErrUnrecoverableCalculation indicates the engine could not converge
	// for a single grid point. The run skips the point and continues.
	ErrUnrecoverableCalculation = errors.New("unrecoverable calculation error")

	// ErrGatewayUnavailable indicates no gateway could be reached
	ErrGatewayUnavailable = errors.New("thermocalc gateway unavailable")

	// ErrSessionClosed indicates a calculation was attempted on a closed session
	ErrSessionClosed = errors.New("engine session is closed")
)

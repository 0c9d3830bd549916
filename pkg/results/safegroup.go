package results

import (
	"context"
	"fmt"
	"runtime/debug"

	"golang.org/x/sync/errgroup"

	"github.com/faridf/Phase-Diagram-Calculator-ThermoCalc/pkg/logger"
)

// SafeGroup wraps errgroup.Group with panic recovery
type SafeGroup struct {
	group  *errgroup.Group
	ctx    context.Context
	logger logger.Logger
}

// NewSafeGroup creates a new SafeGroup with panic recovery
func NewSafeGroup(ctx context.Context, log logger.Logger) (*SafeGroup, context.Context) {
	group, gctx := errgroup.WithContext(ctx)
	return &SafeGroup{
		group:  group,
		ctx:    gctx,
		logger: log,
	}, gctx
}

// Go runs a function in a goroutine with panic recovery
func (sg *SafeGroup) Go(fn func() error) {
	sg.group.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				stack := debug.Stack()
				if sg.logger != nil {
					sg.logger.Error("Panic recovered in goroutine",
						logger.WithField("panic", r),
						logger.WithField("stack", string(stack)))
				}
				err = fmt.Errorf("panic in goroutine: %v", r)
			}
		}()
		return fn()
	})
}

// Wait waits for all goroutines to complete
func (sg *SafeGroup) Wait() error {
	return sg.group.Wait()
}

// SetLimit sets the maximum number of concurrent goroutines
func (sg *SafeGroup) SetLimit(n int) {
	sg.group.SetLimit(n)
}

/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: engine.go
Description: Recovery engine. Runs the extraction stages in their fixed order over a
loaded corpus (enums first so later stages can classify enum references, then structs,
then services) and exposes the populated context for emission.
*/

package recovery

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/kleascm/thrift-miner/pkg/interfaces"
)

// Engine runs the recovery pipeline over one corpus.
type Engine struct {
	ctx    *Context
	logger *logrus.Logger
	stages []interfaces.Extractor
}

// NewEngine creates an engine with the standard stage order. The order
// is load-bearing: structs classify fields against recovered enums, and
// services resolve signatures against recovered structs.
func NewEngine(logger *logrus.Logger) *Engine {
	ctx := NewContext()
	return &Engine{
		ctx:    ctx,
		logger: logger,
		stages: []interfaces.Extractor{
			NewEnumExtractor(ctx, logger),
			NewStructExtractor(ctx, logger),
			NewServiceExtractor(ctx, logger),
		},
	}
}

// Context exposes the recovery tables for the emitter.
func (e *Engine) Context() *Context {
	return e.ctx
}

// Run resets the context and executes every stage in order.
func (e *Engine) Run(c interfaces.Corpus) error {
	e.ctx.Reset()
	e.logger.WithFields(logrus.Fields{
		"files": c.Len(),
		"root":  c.Root(),
	}).Info("Starting recovery run")

	for _, stage := range e.stages {
		if err := stage.Extract(c); err != nil {
			return fmt.Errorf("stage %s failed: %w", stage.Name(), err)
		}
	}
	return nil
}

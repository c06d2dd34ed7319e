// Package cpy copies a file to another through a segmented bounded buffer,
// using exactly one producer and one consumer running concurrently.
package cpy

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Stage defines the interface for a generic stage.
type Stage interface {
	// Init initializes the stage.
	Init(ctx context.Context) error
	// Run runs the stage until its work is done.
	Run(ctx context.Context) error
	// Close closes (forever) the stage.
	Close()
}

// Pipeline represents a set of stages running concurrently.
// It is the orchestrator of the copy.
type Pipeline struct {
	stages []Stage

	group     *errgroup.Group
	isRunning bool
}

// NewPipeline returns a new pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{
		stages: []Stage{},

		isRunning: false,
	}
}

// AddStage adds a stage to the pipeline.
// The order of the stages is the order of initialization.
func (p *Pipeline) AddStage(stage Stage) {
	if p.isRunning {
		return
	}

	p.stages = append(p.stages, stage)
}

// Init initializes all the stages.
// If a stage fails, the stages initialized so far are closed.
func (p *Pipeline) Init(ctx context.Context) error {
	for idx, stage := range p.stages {
		if err := stage.Init(ctx); err != nil {
			for _, initialized := range p.stages[:idx+1] {
				initialized.Close()
			}

			return err
		}
	}

	return nil
}

// Start runs all the stages, each one in its own goroutine.
// The first stage returning an error cancels the context of the others,
// so a stage never waits forever for a counterpart that has given up.
func (p *Pipeline) Start(ctx context.Context) {
	p.isRunning = true

	group, groupCtx := errgroup.WithContext(ctx)
	p.group = group

	for _, stage := range p.stages {
		group.Go(func() error {
			return stage.Run(groupCtx)
		})
	}
}

// Wait blocks until all the stages have returned.
// It returns the first error returned by a stage.
func (p *Pipeline) Wait() error {
	if p.group == nil {
		return nil
	}

	return p.group.Wait()
}

// Run starts all the stages and waits for them.
func (p *Pipeline) Run(ctx context.Context) error {
	p.Start(ctx)
	return p.Wait()
}

// Close closes all the stages.
// It must be called after Wait has returned.
func (p *Pipeline) Close() {
	for _, stage := range p.stages {
		stage.Close()
	}
}

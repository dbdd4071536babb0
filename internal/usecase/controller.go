package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"voxquery/internal/domain"
	"voxquery/internal/ports"
)

// Gateways are the external services the workflow calls.
type Gateways struct {
	Transcriber ports.Transcriber
	Converter   ports.QueryConverter
	Executor    ports.QueryExecutor
}

// WorkflowController drives the NaturalLanguageQuery → FormalQuery →
// QueryResult sequence and is the only writer of the session.
type WorkflowController struct {
	capture   *CaptureStage
	converter ports.QueryConverter
	executor  ports.QueryExecutor
	events    ports.EventSink
	logger    *zap.Logger

	mu      sync.Mutex
	session domain.Session
	convert requestSlot
	execute requestSlot
}

func NewWorkflowController(
	recorder ports.Recorder,
	loader ports.ClipLoader,
	gateways Gateways,
	rules ports.RulesEngine,
	events ports.EventSink,
	logger *zap.Logger,
) *WorkflowController {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &WorkflowController{
		converter: gateways.Converter,
		executor:  gateways.Executor,
		events:    events,
		logger:    logger,
		session:   domain.NewSession(),
	}
	c.capture = newCaptureStage(recorder, loader, gateways.Transcriber, rules, events, logger.Named("capture"), c.publish)
	return c
}

// Snapshot returns a read-only projection of the workflow.
func (c *WorkflowController) Snapshot() domain.Snapshot {
	capture := c.capture.Status()

	c.mu.Lock()
	defer c.mu.Unlock()
	return domain.NewSnapshot(c.session, capture, c.convert.pending, c.execute.pending)
}

// SubmitIntent converts raw intent text into a formal query and advances
// to the FormalQuery stage.
func (c *WorkflowController) SubmitIntent(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", domain.ErrEmptyInput
	}

	c.mu.Lock()
	if current := c.session.Current(); current != domain.StageNaturalLanguageQuery {
		c.mu.Unlock()
		return "", fmt.Errorf("%w: intent is submitted from %s, not %s",
			domain.ErrStageInactive, domain.StageNaturalLanguageQuery, current)
	}
	if c.convert.pending {
		c.mu.Unlock()
		return "", fmt.Errorf("%w: conversion in progress", domain.ErrRequestPending)
	}
	generation := c.convert.begin()
	// Checked after begin so a transcription starting before it is seen.
	if c.capture.Transcribing() {
		c.convert.settle(generation)
		c.mu.Unlock()
		return "", fmt.Errorf("%w: transcription in progress", domain.ErrRequestPending)
	}
	c.mu.Unlock()
	c.publish()

	formalQuery, err := c.converter.Convert(ctx, text)

	c.mu.Lock()
	if !c.convert.settle(generation) {
		c.mu.Unlock()
		c.logger.Debug("dropping superseded conversion", zap.Uint64("generation", generation))
		return "", domain.ErrStaleResponse
	}
	if err == nil {
		c.session = c.session.WithFormalQuery(text, formalQuery)
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("conversion failed", zap.Error(err))
		c.events.Failure(domain.CodeFor(err), err.Error())
		c.publish()
		return "", err
	}

	c.logger.Info("intent converted", zap.Int("query_chars", len(formalQuery)))
	c.publish()
	return formalQuery, nil
}

// SubmitFormalQuery executes query, which may be an edited version of the
// converted one, and advances to the QueryResult stage.
func (c *WorkflowController) SubmitFormalQuery(ctx context.Context, query string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", domain.ErrEmptyInput
	}

	c.mu.Lock()
	if current := c.session.Current(); current != domain.StageFormalQuery {
		c.mu.Unlock()
		return "", fmt.Errorf("%w: formal query is submitted from %s, not %s",
			domain.ErrStageInactive, domain.StageFormalQuery, current)
	}
	if c.execute.pending {
		c.mu.Unlock()
		return "", fmt.Errorf("%w: execution in progress", domain.ErrRequestPending)
	}
	generation := c.execute.begin()
	c.mu.Unlock()
	c.publish()

	result, err := c.executor.Execute(ctx, query)
	if err == nil && strings.TrimSpace(result) == "" {
		result = domain.NoResults
	}

	c.mu.Lock()
	if !c.execute.settle(generation) {
		c.mu.Unlock()
		c.logger.Debug("dropping superseded execution", zap.Uint64("generation", generation))
		return "", domain.ErrStaleResponse
	}
	if err == nil {
		c.session, err = c.session.WithResult(query, result)
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("execution failed", zap.Error(err))
		c.events.Failure(domain.CodeFor(err), err.Error())
		c.publish()
		return "", err
	}

	c.logger.Info("formal query executed", zap.Int("result_chars", len(result)))
	c.publish()
	return result, nil
}

// Restart re-displays an earlier stage without calling any gateway.
// Requests issued from the stages being left are dropped when they land.
func (c *WorkflowController) Restart(to domain.Stage) error {
	c.mu.Lock()
	if to == c.session.Current() {
		c.mu.Unlock()
		return nil
	}
	session, err := c.session.Rewind(to)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.session = session
	if to < domain.StageFormalQuery {
		c.execute.invalidate()
	}
	c.mu.Unlock()

	c.logger.Debug("stage selected", zap.Stringer("stage", to))
	c.publish()
	return nil
}

func (c *WorkflowController) SetMode(mode domain.InputMode) error {
	return c.capture.SetMode(mode)
}

func (c *WorkflowController) SetDraft(text string) error {
	return c.capture.SetDraft(text)
}

func (c *WorkflowController) StartRecording(ctx context.Context) error {
	return c.capture.StartRecording(ctx)
}

func (c *WorkflowController) StopRecording(ctx context.Context) (string, error) {
	return c.capture.StopRecording(ctx)
}

func (c *WorkflowController) TranscribeFile(ctx context.Context, path string) (string, error) {
	return c.capture.TranscribeFile(ctx, path)
}

// GenerateFormalQuery submits the current draft.
func (c *WorkflowController) GenerateFormalQuery(ctx context.Context) (string, error) {
	return c.SubmitIntent(ctx, c.capture.Draft())
}

func (c *WorkflowController) publish() {
	c.events.SessionChanged(c.Snapshot())
}

package submission

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cv-app-yz/cv-app/internal/analyzer"
	"github.com/cv-app-yz/cv-app/internal/document"
	"github.com/cv-app-yz/cv-app/internal/logger"
	"github.com/cv-app-yz/cv-app/internal/model"
	"github.com/cv-app-yz/cv-app/internal/result"
)

const (
	// ErrorPrefix starts the feedback text of a failed submission.
	ErrorPrefix = "❌ Error: "
	// MissingDocumentNotice is raised when submit is attempted without a file.
	MissingDocumentNotice = "Please select a PDF file first."
)

// Analyzer sends one document to the analysis service.
type Analyzer interface {
	Analyze(ctx context.Context, mode analyzer.Mode, req *analyzer.Request) (result.Raw, error)
}

// Input is what the user supplied for one submission.
type Input struct {
	// Document is nil until the user picks a file.
	Document *document.Document
	Location string
}

// Controller owns a single submission lifecycle. All state changes go through it.
type Controller struct {
	analyzer Analyzer
	logger   *zap.Logger
	newID    func() string

	mu        sync.Mutex
	state     Snapshot
	seq       uint64
	listeners map[int]func(Snapshot)
	nextID    int

	// publishMu orders deliveries; published is the newest seq delivered.
	publishMu sync.Mutex
	published uint64
}

func New(a Analyzer, log *zap.Logger) *Controller {
	return &Controller{
		analyzer:  a,
		logger:    logger.WithFields(log),
		newID:     uuid.NewString,
		state:     Snapshot{Status: Idle},
		listeners: make(map[int]func(Snapshot)),
	}
}

// Optimize submits in to the optimize endpoint.
func (c *Controller) Optimize(ctx context.Context, in Input) (Outcome, error) {
	return c.Submit(ctx, analyzer.ModeOptimize, in)
}

// AnalyzeAndMatch submits in to the analyze-and-match endpoint.
func (c *Controller) AnalyzeAndMatch(ctx context.Context, in Input) (Outcome, error) {
	return c.Submit(ctx, analyzer.ModeAnalyzeAndMatch, in)
}

// Submit runs one submission to completion.
//
// While another submission is in flight it returns OutcomeBlocked and changes
// nothing. Without a document it raises a notice, keeps the previous result and
// returns a *model.ValidationError. Otherwise the previous result is cleared,
// exactly one call is made and its resolution is always applied. Service and
// transport failures end up in the feedback text, not in the returned error.
func (c *Controller) Submit(ctx context.Context, mode analyzer.Mode, in Input) (Outcome, error) {
	if !mode.Valid() {
		return OutcomeRejected, &model.ValidationError{Field: "mode", Reason: fmt.Sprintf("unknown mode %q", string(mode))}
	}

	c.mu.Lock()
	if c.state.Status == InFlight {
		attempt := c.state.AttemptID
		c.mu.Unlock()
		logger.WithAttemptFields(c.logger, attempt, string(mode)).Debug("submission blocked")
		return OutcomeBlocked, nil
	}

	if in.Document == nil {
		next := c.state
		next.Notice = MissingDocumentNotice
		snap := c.setLocked(next)
		c.mu.Unlock()
		c.publish(snap)
		c.logger.Info("submission rejected", zap.String("reason", "no document"))
		return OutcomeRejected, &model.ValidationError{Field: analyzer.FileField, Reason: "no document selected"}
	}

	attempt := c.newID()
	snap := c.setLocked(Snapshot{Status: InFlight, AttemptID: attempt})
	c.mu.Unlock()
	c.publish(snap)

	log := logger.WithAttemptFields(c.logger, attempt, string(mode))
	log.Info("submission dispatched", zap.String("file", in.Document.Name), zap.String("location", in.Location))

	raw, err := c.analyzer.Analyze(ctx, mode, &analyzer.Request{
		Filename:    in.Document.Name,
		ContentType: in.Document.ContentType,
		Data:        in.Document.Data,
		Location:    in.Location,
		RequestID:   attempt,
	})

	outcome := OutcomeSucceeded
	next := Snapshot{Status: Succeeded, AttemptID: attempt}
	if err != nil {
		outcome = OutcomeFailed
		next.Status = Failed
		next.FeedbackText = ErrorPrefix + FailureText(err)
		log.Warn("submission failed", zap.Error(err))
	} else {
		analysis := result.Normalize(raw)
		next.FeedbackText = analysis.FeedbackText
		next.DownloadURL = analysis.DownloadURL
		next.Jobs = analysis.Jobs
		log.Info("submission succeeded",
			zap.Int("jobs", len(analysis.Jobs)),
			zap.Bool("download", analysis.HasDownload()),
		)
	}

	c.mu.Lock()
	snap = c.setLocked(next)
	c.mu.Unlock()
	c.publish(snap)

	return outcome, nil
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state.clone()
}

func (c *Controller) Blocked() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state.Blocked()
}

// OnChange registers fn to receive new snapshots in order. A snapshot that is
// already stale when its turn comes is skipped. fn runs on the goroutine that
// caused the change and must not call Submit. The returned func removes it.
func (c *Controller) OnChange(fn func(Snapshot)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
		})
	}
}

// setLocked replaces the state and stamps it with the next sequence number.
// c.mu must be held.
func (c *Controller) setLocked(next Snapshot) Snapshot {
	c.seq++
	next.seq = c.seq
	c.state = next
	return c.state.clone()
}

// publish delivers snap to every listener. Deliveries are serialized and a
// snapshot older than one already delivered is dropped, so listeners always
// end on the current state even when two goroutines race to publish.
func (c *Controller) publish(snap Snapshot) {
	c.publishMu.Lock()
	defer c.publishMu.Unlock()

	if snap.seq <= c.published {
		return
	}
	c.published = snap.seq

	c.mu.Lock()
	fns := make([]func(Snapshot), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(snap.clone())
	}
}

// FailureText picks the message shown for a failed submission: the service's
// own detail first, then the transport or decode error, then the bare status.
func FailureText(err error) string {
	var svcErr *model.ServiceError
	if errors.As(err, &svcErr) {
		if svcErr.Detail != "" {
			return svcErr.Detail
		}
		return fmt.Sprintf("HTTP %d", svcErr.StatusCode)
	}

	if text := strings.TrimSpace(err.Error()); text != "" {
		return text
	}
	return "unknown error"
}

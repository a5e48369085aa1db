package reports

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/vbonduro/floodzone/internal/api"
	"github.com/vbonduro/floodzone/internal/domain"
)

// FallbackMessage is shown when the server gives no reason for a failure.
const FallbackMessage = "failed to create report"

// ErrSubmitInProgress rejects a submission while another one is in flight.
var ErrSubmitInProgress = errors.New("a report submission is already in progress")

// creator is the subset of service.ReportService that Collection requires.
type creator interface {
	Create(ctx context.Context, draft domain.ReportDraft) (*domain.Report, error)
}

// Collection holds the reports submitted in this process, newest first.
type Collection struct {
	svc    creator
	logger *slog.Logger

	mu      sync.RWMutex
	reports []domain.Report
	loading bool
	errMsg  string
}

func NewCollection(svc creator, logger *slog.Logger) *Collection {
	return &Collection{svc: svc, logger: logger}
}

// Add submits draft and prepends the canonical report on success. On failure
// Err reports the server message (or FallbackMessage) and the error is returned.
func (c *Collection) Add(ctx context.Context, draft domain.ReportDraft) (*domain.Report, error) {
	c.mu.Lock()
	if c.loading {
		c.mu.Unlock()
		return nil, ErrSubmitInProgress
	}
	c.loading = true
	c.errMsg = ""
	c.mu.Unlock()

	report, err := c.svc.Create(ctx, draft)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false
	if err != nil {
		c.errMsg = api.ServerMessage(err)
		if c.errMsg == "" {
			c.errMsg = FallbackMessage
		}
		c.logger.Error("report submission failed", "error", err)
		return nil, err
	}

	c.reports = append([]domain.Report{*report}, c.reports...)
	return report, nil
}

// Refresh returns the in-memory list. There is no list endpoint on the
// backend, so nothing is fetched.
func (c *Collection) Refresh(_ context.Context) []domain.Report {
	c.logger.Debug("report refresh has no server source, returning local list")
	return c.Reports()
}

// Reports returns a copy of the list, newest first.
func (c *Collection) Reports() []domain.Report {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Report, len(c.reports))
	copy(out, c.reports)
	return out
}

func (c *Collection) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loading
}

// Err is the user-facing message of the last failed submission, or "".
func (c *Collection) Err() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.errMsg
}

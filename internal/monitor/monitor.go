package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/repowatch/internal/scan"
)

const (
	repositoryServiceMissingMessageConstant = "repository service not configured"
	summarizerMissingMessageConstant        = "summarizer not configured"
	checkIntervalInvalidMessageConstant     = "check interval must be positive"
	monitorAlreadyRunningMessageConstant    = "monitor already running"

	tickCompletedLogMessageConstant         = "monitor tick completed"
	repositoryCheckFailedLogMessageConstant = "repository check failed"
	repositoryCommittedLogMessageConstant   = "repository changes committed and pushed"

	logFieldRepositoryConstant     = "repository"
	logFieldOperationConstant      = "operation"
	logFieldCommitMessageConstant  = "commit_message"
	logFieldProcessedCountConstant = "processed_count"
	logFieldCommittedCountConstant = "committed_count"
	logFieldFailureCountConstant   = "failure_count"

	operationChangeDetectionConstant = "change_detection"
	operationDiffConstant            = "diff"
	operationCommitConstant          = "commit"
	operationPushConstant            = "push"
)

// ErrRepositoryServiceNotConfigured indicates the repository service dependency was missing.
var ErrRepositoryServiceNotConfigured = errors.New(repositoryServiceMissingMessageConstant)

// ErrSummarizerNotConfigured indicates the summarizer dependency was missing.
var ErrSummarizerNotConfigured = errors.New(summarizerMissingMessageConstant)

// ErrCheckIntervalInvalid indicates a non-positive check interval.
var ErrCheckIntervalInvalid = errors.New(checkIntervalInvalidMessageConstant)

// ErrMonitorAlreadyRunning indicates Start was called while the monitor was running.
var ErrMonitorAlreadyRunning = errors.New(monitorAlreadyRunningMessageConstant)

// RepositoryService exposes the git operations one tick performs per repository.
type RepositoryService interface {
	HasChanges(executionContext context.Context, repositoryPath string) (bool, error)
	Diff(executionContext context.Context, repositoryPath string) (string, error)
	Commit(executionContext context.Context, repositoryPath string, commitMessage string) error
	Push(executionContext context.Context, repositoryPath string, remoteName string) error
}

// Summarizer turns diff text into a commit message.
type Summarizer interface {
	Summarize(diffText string) string
}

// Dependencies enumerates external collaborators required by the monitor.
type Dependencies struct {
	RepositoryService RepositoryService
	Summarizer        Summarizer
	Logger            *zap.Logger
}

// Options configures the monitor's repository snapshot and cadence.
type Options struct {
	Entries       []scan.RepositoryEntry
	CheckInterval time.Duration
}

// TickFailure records one isolated per-repository failure within a tick.
type TickFailure struct {
	RepositoryPath string
	Operation      string
	Cause          error
}

// TickReport summarizes one completed tick.
type TickReport struct {
	ProcessedCount int
	CommittedCount int
	Failures       []TickFailure
}

// Monitor periodically checks a fixed repository snapshot for uncommitted
// changes and drives the summarize, commit, and push sequence.
//
// Ticks are strictly serialized: the wait for the next tick starts only after
// the previous tick completed, so a slow tick delays rather than overlaps the
// next one.
type Monitor struct {
	repositoryService RepositoryService
	summarizer        Summarizer
	logger            *zap.Logger
	entries           []scan.RepositoryEntry
	checkInterval     time.Duration

	stateMutex  sync.Mutex
	running     bool
	stopChannel chan struct{}
	waitGroup   sync.WaitGroup
}

// NewMonitor validates dependencies and constructs a Monitor over an immutable
// snapshot of the supplied entries.
func NewMonitor(dependencies Dependencies, options Options) (*Monitor, error) {
	if dependencies.RepositoryService == nil {
		return nil, ErrRepositoryServiceNotConfigured
	}
	if dependencies.Summarizer == nil {
		return nil, ErrSummarizerNotConfigured
	}
	if options.CheckInterval <= 0 {
		return nil, ErrCheckIntervalInvalid
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	entriesSnapshot := make([]scan.RepositoryEntry, len(options.Entries))
	copy(entriesSnapshot, options.Entries)

	return &Monitor{
		repositoryService: dependencies.RepositoryService,
		summarizer:        dependencies.Summarizer,
		logger:            logger,
		entries:           entriesSnapshot,
		checkInterval:     options.CheckInterval,
	}, nil
}

// Start launches the monitoring loop: one immediate tick, then one tick every
// check interval until Stop is called or the context is cancelled.
func (monitor *Monitor) Start(executionContext context.Context) error {
	monitor.stateMutex.Lock()
	defer monitor.stateMutex.Unlock()

	if monitor.running {
		return ErrMonitorAlreadyRunning
	}
	monitor.running = true
	monitor.stopChannel = make(chan struct{})

	monitor.waitGroup.Add(1)
	go monitor.runLoop(executionContext, monitor.stopChannel)

	return nil
}

// Stop prevents any further tick from beginning and waits for an in-flight
// tick to finish. It never interrupts a tick in progress and is safe to call
// from any goroutine, including repeatedly.
func (monitor *Monitor) Stop() {
	monitor.stateMutex.Lock()
	defer monitor.stateMutex.Unlock()

	if !monitor.running {
		return
	}
	close(monitor.stopChannel)
	monitor.waitGroup.Wait()
	monitor.running = false
}

func (monitor *Monitor) runLoop(executionContext context.Context, stopChannel <-chan struct{}) {
	defer monitor.waitGroup.Done()

	for {
		tickReport := monitor.performTick(executionContext)
		monitor.logger.Info(
			tickCompletedLogMessageConstant,
			zap.Int(logFieldProcessedCountConstant, tickReport.ProcessedCount),
			zap.Int(logFieldCommittedCountConstant, tickReport.CommittedCount),
			zap.Int(logFieldFailureCountConstant, len(tickReport.Failures)),
		)

		// The wait begins only after the tick above finished.
		select {
		case <-stopChannel:
			return
		case <-executionContext.Done():
			return
		case <-time.After(monitor.checkInterval):
		}
	}
}

// performTick processes every non-excluded repository in snapshot order.
// Failures are isolated per repository and never abort the tick.
func (monitor *Monitor) performTick(executionContext context.Context) TickReport {
	tickReport := TickReport{}

	for _, repositoryEntry := range monitor.entries {
		if repositoryEntry.ExcludedFromChecks {
			continue
		}
		tickReport.ProcessedCount++

		hasChanges, changesError := monitor.repositoryService.HasChanges(executionContext, repositoryEntry.Path)
		if changesError != nil {
			monitor.recordFailure(&tickReport, repositoryEntry.Path, operationChangeDetectionConstant, changesError)
			continue
		}
		if !hasChanges {
			continue
		}

		diffText, diffError := monitor.repositoryService.Diff(executionContext, repositoryEntry.Path)
		if diffError != nil {
			monitor.recordFailure(&tickReport, repositoryEntry.Path, operationDiffConstant, diffError)
			continue
		}

		commitMessage := monitor.summarizer.Summarize(diffText)

		if commitError := monitor.repositoryService.Commit(executionContext, repositoryEntry.Path, commitMessage); commitError != nil {
			monitor.recordFailure(&tickReport, repositoryEntry.Path, operationCommitConstant, commitError)
			continue
		}

		// A push failure never rolls back the commit: local history stays
		// correct and the next tick sees a clean worktree.
		if pushError := monitor.repositoryService.Push(executionContext, repositoryEntry.Path, repositoryEntry.AlternativeRemote); pushError != nil {
			monitor.recordFailure(&tickReport, repositoryEntry.Path, operationPushConstant, pushError)
			continue
		}

		tickReport.CommittedCount++
		monitor.logger.Info(
			repositoryCommittedLogMessageConstant,
			zap.String(logFieldRepositoryConstant, repositoryEntry.Path),
			zap.String(logFieldCommitMessageConstant, commitMessage),
		)
	}

	return tickReport
}

func (monitor *Monitor) recordFailure(tickReport *TickReport, repositoryPath string, operation string, cause error) {
	tickReport.Failures = append(tickReport.Failures, TickFailure{
		RepositoryPath: repositoryPath,
		Operation:      operation,
		Cause:          cause,
	})
	monitor.logger.Warn(
		repositoryCheckFailedLogMessageConstant,
		zap.String(logFieldRepositoryConstant, repositoryPath),
		zap.String(logFieldOperationConstant, operation),
		zap.Error(cause),
	)
}

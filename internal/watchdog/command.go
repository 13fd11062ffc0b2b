package watchdog

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/repowatch/internal/execshell"
	"github.com/temirov/repowatch/internal/gitrepo"
	"github.com/temirov/repowatch/internal/ui"
	"github.com/temirov/repowatch/internal/utils"
)

const (
	watchCommandUseConstant              = "watch"
	watchCommandShortDescriptionConstant = "Monitor discovered repositories and publish their changes"
	watchCommandLongDescriptionConstant  = "watch scans the configured root for git repositories, then periodically commits and pushes any uncommitted changes until interrupted."

	watchdogStartedLogMessageConstant        = "watchdog started"
	watchdogStoppingLogMessageConstant       = "watchdog stopping"
	configurationFileInUseLogMessageConstant = "configuration file in use"

	logFieldRootConstant              = "root"
	logFieldIntervalConstant          = "check_interval"
	logFieldConfigurationFileConstant = "config_file"
)

// LoggerProvider yields a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider yields the watchdog configuration resolved at startup.
type ConfigurationProvider func() Configuration

// CommandBuilder assembles the watch command.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	ConfigurationProvider        ConfigurationProvider
	HumanReadableLoggingProvider func() bool
	RepositoryOperator           RepositoryOperator
}

// Build constructs the watch command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   watchCommandUseConstant,
		Short: watchCommandShortDescriptionConstant,
		Long:  watchCommandLongDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE:  builder.run,
	}
	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, _ []string) error {
	logger := resolveLogger(builder.LoggerProvider)
	configuration := resolveConfiguration(builder.ConfigurationProvider)
	logConfigurationFileInUse(logger, command)

	repositoryOperator, operatorError := resolveRepositoryOperator(builder.RepositoryOperator, logger, humanReadableLoggingEnabled(builder.HumanReadableLoggingProvider))
	if operatorError != nil {
		return operatorError
	}

	manager, managerError := NewManager(
		Dependencies{RepositoryOperator: repositoryOperator, Logger: logger},
		configuration,
	)
	if managerError != nil {
		return managerError
	}

	if startError := manager.Start(command.Context()); startError != nil {
		return startError
	}
	logger.Info(
		watchdogStartedLogMessageConstant,
		zap.String(logFieldRootConstant, configuration.Sanitize().RootDirectory),
		zap.Duration(logFieldIntervalConstant, configuration.CheckInterval),
	)

	signalContext, stopNotifications := signal.NotifyContext(command.Context(), os.Interrupt, syscall.SIGTERM)
	defer stopNotifications()
	<-signalContext.Done()

	logger.Info(watchdogStoppingLogMessageConstant)
	manager.Stop()
	return nil
}

func resolveLogger(provider LoggerProvider) *zap.Logger {
	if provider == nil {
		return zap.NewNop()
	}
	logger := provider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func resolveConfiguration(provider ConfigurationProvider) Configuration {
	if provider == nil {
		return DefaultConfiguration()
	}
	return provider()
}

// logConfigurationFileInUse reports the configuration file the root command
// resolved, carried through the command context for subcommands to surface.
func logConfigurationFileInUse(logger *zap.Logger, command *cobra.Command) {
	if command == nil {
		return
	}
	configurationFilePath, configurationFilePathAvailable := utils.NewCommandContextAccessor().ConfigurationFilePath(command.Context())
	if !configurationFilePathAvailable || len(configurationFilePath) == 0 {
		return
	}
	logger.Debug(
		configurationFileInUseLogMessageConstant,
		zap.String(logFieldConfigurationFileConstant, configurationFilePath),
	)
}

func humanReadableLoggingEnabled(provider func() bool) bool {
	if provider == nil {
		return false
	}
	return provider()
}

// resolveRepositoryOperator returns the supplied operator or builds the
// default git-backed one, attaching console command events when requested.
func resolveRepositoryOperator(operator RepositoryOperator, logger *zap.Logger, humanReadableLogging bool) (RepositoryOperator, error) {
	if operator != nil {
		return operator, nil
	}

	shellExecutor, executorError := execshell.NewShellExecutor(logger, execshell.NewOSCommandRunner())
	if executorError != nil {
		return nil, executorError
	}
	if humanReadableLogging {
		shellExecutor.RegisterCommandEventObserver(ui.NewConsoleCommandEventLogger(logger))
	}

	return gitrepo.NewRepositoryManager(shellExecutor)
}

package utils_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/repowatch/internal/utils"
)

func TestCommandContextAccessorRoundTrip(testInstance *testing.T) {
	accessor := utils.NewCommandContextAccessor()

	decoratedContext := accessor.WithConfigurationFilePath(context.Background(), "/etc/repowatch/config.yaml")

	configurationFilePath, configurationFilePathAvailable := accessor.ConfigurationFilePath(decoratedContext)
	require.True(testInstance, configurationFilePathAvailable)
	require.Equal(testInstance, "/etc/repowatch/config.yaml", configurationFilePath)
}

func TestCommandContextAccessorMissingValue(testInstance *testing.T) {
	accessor := utils.NewCommandContextAccessor()

	testCases := []struct {
		name             string
		executionContext context.Context
	}{
		{name: "undecorated_context", executionContext: context.Background()},
		{name: "nil_context", executionContext: nil},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			configurationFilePath, configurationFilePathAvailable := accessor.ConfigurationFilePath(testCase.executionContext)
			require.False(testInstance, configurationFilePathAvailable)
			require.Empty(testInstance, configurationFilePath)
		})
	}
}

func TestCommandContextAccessorToleratesNilParent(testInstance *testing.T) {
	accessor := utils.NewCommandContextAccessor()

	decoratedContext := accessor.WithConfigurationFilePath(nil, "/etc/repowatch/config.yaml")

	configurationFilePath, configurationFilePathAvailable := accessor.ConfigurationFilePath(decoratedContext)
	require.True(testInstance, configurationFilePathAvailable)
	require.Equal(testInstance, "/etc/repowatch/config.yaml", configurationFilePath)
}

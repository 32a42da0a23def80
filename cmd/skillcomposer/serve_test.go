package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/skillcomposer/pkg/catalog"
)

func TestValidateServeConfig(t *testing.T) {
	tests := []struct {
		name          string
		config        *ServeConfig
		expectedError string
	}{
		{
			name:   "valid config",
			config: &ServeConfig{Host: "localhost", Port: 8080},
		},
		{
			name:   "valid IP address",
			config: &ServeConfig{Host: "127.0.0.1", Port: 8080},
		},
		{
			name:   "valid 0.0.0.0",
			config: &ServeConfig{Host: "0.0.0.0", Port: 3000},
		},
		{
			name:          "empty host",
			config:        &ServeConfig{Host: "", Port: 8080},
			expectedError: "host cannot be empty",
		},
		{
			name:          "invalid host with space",
			config:        &ServeConfig{Host: "local host", Port: 8080},
			expectedError: "invalid host: local host",
		},
		{
			name:          "invalid host with colon",
			config:        &ServeConfig{Host: "localhost:8080", Port: 8080},
			expectedError: "invalid host: localhost:8080",
		},
		{
			name:          "port too low",
			config:        &ServeConfig{Host: "localhost", Port: 0},
			expectedError: "port must be between 1 and 65535",
		},
		{
			name:          "port too high",
			config:        &ServeConfig{Host: "localhost", Port: 65536},
			expectedError: "port must be between 1 and 65535",
		},
		{
			name:   "privileged port warning",
			config: &ServeConfig{Host: "localhost", Port: 80},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateServeConfig(tt.config)
			if tt.expectedError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGetServeConfigFromFlags(t *testing.T) {
	newCommand := func(t *testing.T, flags ...string) *cobra.Command {
		cmd := &cobra.Command{Use: "serve"}
		defaults := NewServeConfig()
		cmd.Flags().String("host", defaults.Host, "")
		cmd.Flags().Int("port", defaults.Port, "")
		cmd.Flags().Bool("watch", defaults.Watch, "")
		cmd.Flags().Bool("history", defaults.History, "")
		cmd.Flags().Bool("metrics", defaults.Metrics, "")
		require.NoError(t, cmd.ParseFlags(flags))
		return cmd
	}

	t.Run("config keys apply when flags are unset", func(t *testing.T) {
		viper.Set("catalog.watch", false)
		viper.Set("history.enabled", true)
		t.Cleanup(viper.Reset)

		config := getServeConfigFromFlags(newCommand(t, "--port", "9090"))

		assert.Equal(t, "localhost", config.Host)
		assert.Equal(t, 9090, config.Port)
		assert.False(t, config.Watch)
		assert.True(t, config.History)
		assert.True(t, config.Metrics)
	})

	t.Run("flags win over config keys", func(t *testing.T) {
		viper.Set("catalog.watch", false)
		viper.Set("history.enabled", true)
		t.Cleanup(viper.Reset)

		config := getServeConfigFromFlags(newCommand(t, "--watch", "--history=false", "--metrics=false"))

		assert.True(t, config.Watch)
		assert.False(t, config.History)
		assert.False(t, config.Metrics)
	})
}

func TestWatchPath(t *testing.T) {
	tests := []struct {
		name     string
		source   catalog.Source
		expected string
		ok       bool
	}{
		{name: "file source", source: catalog.FileSource{Path: "skills.yaml"}, expected: "skills.yaml", ok: true},
		{name: "directory source", source: catalog.DirSource{Dir: "skills"}, expected: "skills", ok: true},
		{name: "built-in catalog", source: catalog.BuiltinSource(), ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, ok := watchPath(tt.source)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, path)
		})
	}
}

package main

import (
	"bytes"
	"context"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/srg/blectl/internal/gatt"
	"github.com/srg/blectl/internal/testutils"
	"github.com/srg/blectl/pkg/config"
)

// CommandTestSuite extends MockPeripheralSuite with command testing utilities.
// Every command is executed against the suite's simulated peripheral.
type CommandTestSuite struct {
	testutils.MockPeripheralSuite

	// Stderr collects logs and cobra diagnostics of the last command.
	Stderr *bytes.Buffer

	originalPlatform func(*config.Config, *logrus.Logger) gatt.Platform
	originalProgress io.Writer
}

// SetupTest routes commands to the simulated peripheral and resets every flag.
func (s *CommandTestSuite) SetupTest() {
	s.MockPeripheralSuite.SetupTest()

	s.originalPlatform = newPlatform
	s.originalProgress = progressOutput
	newPlatform = func(*config.Config, *logrus.Logger) gatt.Platform { return s.Platform }
	progressOutput = io.Discard

	resetFlags(rootCmd)
}

// TearDownTest restores the command globals.
func (s *CommandTestSuite) TearDownTest() {
	newPlatform = s.originalPlatform
	progressOutput = s.originalProgress
	s.MockPeripheralSuite.TearDownTest()
}

// ExecuteCommand runs the root command with args and returns its stdout.
func (s *CommandTestSuite) ExecuteCommand(args ...string) (string, error) {
	return s.ExecuteCommandContext(context.Background(), args...)
}

// ExecuteCommandContext runs the root command under ctx.
func (s *CommandTestSuite) ExecuteCommandContext(ctx context.Context, args ...string) (string, error) {
	setContexts(rootCmd, ctx)
	out := new(bytes.Buffer)
	s.Stderr = new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetErr(s.Stderr)
	rootCmd.SetArgs(args)
	defer resetFlags(rootCmd)

	err := rootCmd.ExecuteContext(ctx)
	return out.String(), err
}

// setContexts replaces the context cobra keeps on every command between runs.
func setContexts(cmd *cobra.Command, ctx context.Context) {
	cmd.SetContext(ctx)
	for _, sub := range cmd.Commands() {
		setContexts(sub, ctx)
	}
}

// resetFlags restores the default value of every flag in the command tree.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

package cli

import (
	"bytes"
	"context"
	"errors"
	flag "github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func testCommandSet(t *testing.T, executed *int, message *string) (*CommandSet, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	set := NewCommandSet("typebus")
	set.Printer().Redirect(&buf)
	cmd := set.AddCommand("Demo", "Runs a demo", "d", " ")
	cmd.Flags().String("message", "", "Sets a message")
	cmd.Usage("[FLAGS]").Does(func(_ context.Context, flags *flag.FlagSet, printer *Printer) error {
		*executed++
		msg, err := flags.GetString("message")
		if err != nil {
			return err
		}
		*message = msg
		printer.Println("ran")
		return nil
	})
	return set, &buf
}

func TestCommandSet_Exec(t *testing.T) {
	var (
		executed int
		message  string
	)
	set, buf := testCommandSet(t, &executed, &message)
	ctx := context.Background()

	require.NoError(t, set.Exec(ctx, []string{"DEMO", "--message", "hi"}))
	assert.Equal(t, 1, executed)
	assert.Equal(t, "hi", message)
	assert.Equal(t, "ran\n", buf.String())

	require.NoError(t, set.Exec(ctx, []string{"d"}), "Aliases should run the same command")
	assert.Equal(t, 2, executed)

	assert.ErrorIs(t, set.Exec(ctx, nil), ErrUnknownCommand)
	assert.ErrorIs(t, set.Exec(ctx, []string{"missing"}), ErrUnknownCommand)
	assert.Equal(t, 2, executed)
}

func TestCommandSet_Exec_Usage(t *testing.T) {
	var (
		executed int
		message  string
	)
	set, buf := testCommandSet(t, &executed, &message)
	ctx := context.Background()

	require.NoError(t, set.Exec(ctx, []string{"--help"}))
	assert.Contains(t, buf.String(), "demo, d")
	assert.Contains(t, buf.String(), "Runs a demo")

	buf.Reset()
	require.NoError(t, set.Exec(ctx, []string{"demo", "-h"}))
	assert.Equal(t, 0, executed)
	assert.Contains(t, buf.String(), "typebus demo [FLAGS]")
	assert.Contains(t, buf.String(), "--message")

	buf.Reset()
	err := set.Exec(ctx, []string{"demo", "--unknown"})
	assert.ErrorIs(t, err, &UsageError{})
	assert.Contains(t, buf.String(), "--message", "Usage should be printed for usage errors")
}

func TestCommand_NoFunc(t *testing.T) {
	var buf bytes.Buffer
	set := NewCommandSet("typebus")
	set.Printer().Redirect(&buf)
	set.AddCommand("empty", "Does nothing")
	require.NoError(t, set.Exec(context.Background(), []string{"empty"}))
	assert.Contains(t, buf.String(), "Does nothing")
}

func TestUsageError(t *testing.T) {
	errTesting := errors.New("test")
	err := NewUsageError("%w", errTesting)
	assert.ErrorIs(t, err, &UsageError{})
	assert.ErrorIs(t, err, errTesting)
	assert.Equal(t, "usage error: test", err.Error())
	assert.Equal(t, "usage error", (&UsageError{}).Error())
}

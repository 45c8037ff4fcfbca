package osutil

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type closeRecorder struct {
	name  string
	order *[]string
	err   error
}

func (c closeRecorder) Close() error {
	*c.order = append(*c.order, c.name)
	return c.err
}

func TestFatalClosesBeforeExit(t *testing.T) {
	var order []string
	exit = func(code int) {
		order = append(order, "exit")
		require.Equal(t, 1, code)
	}
	t.Cleanup(func() { exit = osExit })

	Fatal(
		"harvest did not complete",
		errors.New("page 2 timed out"),
		closeRecorder{name: "session", order: &order, err: errors.New("already closed")},
		closeRecorder{name: "dump", order: &order},
	)

	require.Equal(t, []string{"session", "dump", "exit"}, order)
}

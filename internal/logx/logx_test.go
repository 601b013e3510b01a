package logx

import (
	"bytes"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })
	return &buf
}

func TestL_TaskPrefix(t *testing.T) {
	buf := captureLog(t)

	L("task-1", "Dispatcher", "executing against %s", "local-wp")

	out := buf.String()
	require.Contains(t, out, "[Dispatcher]")
	require.Contains(t, out, "[task-1]")
	require.Contains(t, out, "executing against local-wp")
}

func TestG_ComponentPrefix(t *testing.T) {
	buf := captureLog(t)

	G("App", "started (env=%s)", "dev")

	out := buf.String()
	require.Contains(t, out, "[App]")
	require.Contains(t, out, "started (env=dev)")
}

func TestInfo_PlainFormatWithoutColorEnv(t *testing.T) {
	t.Setenv("ENV", "prod")
	buf := captureLog(t)

	Info("Registry", "loaded %d capabilities", 7)

	out := buf.String()
	require.Contains(t, out, "[INFO] [Registry] loaded 7 capabilities")
}

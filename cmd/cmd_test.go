package cmd

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/substation/core/model"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		simTicks, simSeed, simFault, simFormat = 10, 0, 0, "json"
		tokenSubject = ""
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func decodeLines(t *testing.T, s string) []model.Snapshot {
	t.Helper()
	var snaps []model.Snapshot
	sc := bufio.NewScanner(bytes.NewBufferString(s))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		var snap model.Snapshot
		require.NoError(t, json.Unmarshal(sc.Bytes(), &snap))
		snaps = append(snaps, snap)
	}
	return snaps
}

func TestSimulateDeterministic(t *testing.T) {
	first, err := runCLI(t, "simulate", "-c", "", "--ticks", "3", "--seed", "11")
	require.NoError(t, err)
	second, err := runCLI(t, "simulate", "-c", "", "--ticks", "3", "--seed", "11")
	require.NoError(t, err)

	a, b := decodeLines(t, first), decodeLines(t, second)
	require.Len(t, a, 3)
	require.Len(t, b, 3)
	for i := range a {
		assert.Equal(t, uint64(i+1), a[i].Seq)
		assert.Equal(t, a[i].Buses, b[i].Buses)
		assert.Equal(t, a[i].TemperatureC, b[i].TemperatureC)
	}
}

func TestSimulateFault(t *testing.T) {
	out, err := runCLI(t, "simulate", "-c", "", "--ticks", "1", "--fault", "2")
	require.NoError(t, err)
	snaps := decodeLines(t, out)
	require.Len(t, snaps, 1)
	assert.Equal(t, model.AlarmFaultDetected, snaps[0].Alarm)
	assert.Equal(t, model.BreakerOpen, snaps[0].Breakers[1])

	_, err = runCLI(t, "simulate", "-c", "", "--ticks", "1", "--fault", "5")
	assert.ErrorIs(t, err, model.ErrInvalidDevice)
}

func TestSimulateCSV(t *testing.T) {
	out, err := runCLI(t, "simulate", "-c", "", "--ticks", "2", "--format", "csv")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "seq,time,load_bus1"))
	assert.True(t, strings.HasPrefix(lines[2], "2,"))

	_, err = runCLI(t, "simulate", "-c", "", "--format", "xml")
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestVersion(t *testing.T) {
	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("SUB_API__JWT_SECRET", "0123456789abcdef")
	out, err := runCLI(t, "token", "-c", "", "--subject", "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(strings.TrimSpace(out), "."), "compact JWT")

	_, err = runCLI(t, "token", "-c", "", "--subject", "")
	assert.Error(t, err)
}

func TestScenarioCommand(t *testing.T) {
	out, err := runCLI(t, "scenario", "../qa/scenarios/bus_fault.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "ok   bus_fault")

	_, err = runCLI(t, "scenario", "missing.yaml")
	assert.Error(t, err)
}

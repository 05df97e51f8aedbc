package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/substation/core/model"
)

func sampleSnapshot() model.Snapshot {
	s := model.Snapshot{Seq: 4, Time: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), TemperatureC: 61.25, PressurePa: 101400, Alarm: model.AlarmFaultDetected}
	for i := range s.Buses {
		s.Buses[i] = model.BusMeasurement{Bus: i + 1, LoadMW: 100, VoltageKV: 400.5, CurrentA: 120}
	}
	s.Breakers[0] = model.BreakerOpen
	s.Overload[0] = true
	return s
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []model.Snapshot{sampleSnapshot()}))
	recs, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, SnapshotHeader(), recs[0])
	row := recs[1]
	require.Len(t, row, len(recs[0]))
	assert.Equal(t, "4", row[0])
	assert.Equal(t, "2024-05-01T12:00:00Z", row[1])
	assert.Equal(t, "400.5", row[3])
	assert.Equal(t, "61.25", row[14])
	assert.Equal(t, "Fault Detected", row[16])
	assert.Equal(t, "Open", row[17])
	assert.Equal(t, "true", row[23])
}

func TestWriteSnapshotsFormats(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSnapshots(&buf, FormatJSON, []model.Snapshot{sampleSnapshot(), sampleSnapshot()}))
	assert.Equal(t, 2, strings.Count(buf.String(), "\n"))
	assert.ErrorIs(t, WriteSnapshots(&buf, "xml", nil), model.ErrInvalidInput)
}

// Package export renders the snapshots of a simulation run as JSON lines or
// CSV.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/kilianp07/substation/core/model"
)

// Formats accepted by WriteSnapshots.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// WriteSnapshots writes snaps to w in the given format.
func WriteSnapshots(w io.Writer, format string, snaps []model.Snapshot) error {
	switch format {
	case "", FormatJSON:
		return WriteJSON(w, snaps)
	case FormatCSV:
		return WriteCSV(w, snaps)
	default:
		return fmt.Errorf("%w: unknown export format %q", model.ErrInvalidInput, format)
	}
}

// WriteJSON writes one JSON snapshot per line.
func WriteJSON(w io.Writer, snaps []model.Snapshot) error {
	enc := json.NewEncoder(w)
	for _, s := range snaps {
		if err := enc.Encode(s); err != nil {
			return err
		}
	}
	return nil
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// SnapshotHeader returns the CSV columns written by WriteCSV.
func SnapshotHeader() []string {
	h := []string{"seq", "time"}
	for b := 1; b <= model.NumBuses; b++ {
		h = append(h, fmt.Sprintf("load_bus%d", b), fmt.Sprintf("voltage_bus%d", b), fmt.Sprintf("current_bus%d", b))
	}
	h = append(h, "temp", "sf6", "alarm")
	for i := 1; i <= model.NumBreakers; i++ {
		h = append(h, fmt.Sprintf("breaker%d", i))
	}
	for j := 1; j <= model.NumTransformers; j++ {
		h = append(h, fmt.Sprintf("overload_transformer%d", j))
	}
	return h
}

// WriteCSV writes one row per snapshot.
func WriteCSV(w io.Writer, snaps []model.Snapshot) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(SnapshotHeader()); err != nil {
		return err
	}
	for _, s := range snaps {
		rec := []string{strconv.FormatUint(s.Seq, 10), s.Time.UTC().Format(time.RFC3339)}
		for _, b := range s.Buses {
			rec = append(rec, formatFloat(b.LoadMW), formatFloat(b.VoltageKV), formatFloat(b.CurrentA))
		}
		rec = append(rec, formatFloat(s.TemperatureC), formatFloat(s.PressurePa), string(s.Alarm))
		for _, st := range s.Breakers {
			rec = append(rec, st.String())
		}
		for _, l := range s.Overload {
			rec = append(rec, strconv.FormatBool(l))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

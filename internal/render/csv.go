package render

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// WriteSeriesCSV writes a per-frame metric series as a two-column CSV
// indexed by elapsed time.
func WriteSeriesCSV(path, timeHeader, valueHeader string, times, values []float64) error {
	if len(times) != len(values) {
		return fmt.Errorf("have %d time points for %d values", len(times), len(values))
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{timeHeader, valueHeader}); err != nil {
		return err
	}
	for i := range times {
		rec := []string{
			strconv.FormatFloat(times[i], 'g', -1, 64),
			strconv.FormatFloat(values[i], 'g', -1, 64),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

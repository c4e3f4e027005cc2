// Package export renders a finished schedule for downstream consumers: the
// plain-text .dat format the observers read, plus CSV and JSON variants.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/richardjcool/MMTQueue/core/model"
)

// datLayout is the timestamp format of the plain-text schedule.
const datLayout = "2006/01/02 15:04:05"

// WriteDat writes the schedule to w in the classic "start end id visits"
// format.
func WriteDat(w io.Writer, entries []model.ScheduleEntry) error {
	for _, e := range entries {
		_, err := fmt.Fprintf(w, "%s %s %s %d\n",
			e.Start.Format(datLayout),
			e.End().Format(datLayout),
			e.RequestID,
			e.Visits,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// WriteJSON writes the schedule to w in JSON format.
func WriteJSON(w io.Writer, entries []model.ScheduleEntry) error {
	type jsonEntry struct {
		Start     time.Time `json:"start"`
		End       time.Time `json:"end"`
		RequestID string    `json:"request_id"`
		Visits    int       `json:"visits"`
	}
	out := make([]jsonEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, jsonEntry{
			Start:     e.Start,
			End:       e.End(),
			RequestID: e.RequestID,
			Visits:    e.Visits,
		})
	}
	enc := json.NewEncoder(w)
	return enc.Encode(out)
}

// WriteCSV writes the schedule to w in CSV format with headers.
func WriteCSV(w io.Writer, entries []model.ScheduleEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"start", "end", "request_id", "visits"}); err != nil {
		return err
	}
	for _, e := range entries {
		rec := []string{
			e.Start.Format(time.RFC3339),
			e.End().Format(time.RFC3339),
			e.RequestID,
			strconv.Itoa(e.Visits),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

package catalog

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/richardjcool/MMTQueue/core/model"
)

// ApplyDoneLedger folds previously observed work into the completion table.
// Each line is "id program visits hours complete". An id the catalog does not
// know, or one listed twice, aborts the run: a stale ledger silently skewing
// the fairness weights is worse than a restart.
func ApplyDoneLedger(path string, table *model.CompletionTable) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("catalog: done ledger: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 5 {
			return fmt.Errorf("catalog: %s:%d: expected \"id program visits hours complete\"", path, lineNo)
		}
		id, program := fields[0], fields[1]
		visits, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return fmt.Errorf("catalog: %s:%d: visits: %w", path, lineNo, err)
		}
		hours, err := strconv.ParseFloat(fields[3], 64)
		if err != nil {
			return fmt.Errorf("catalog: %s:%d: hours: %w", path, lineNo, err)
		}
		complete, err := strconv.Atoi(fields[4])
		if err != nil {
			return fmt.Errorf("catalog: %s:%d: complete: %w", path, lineNo, err)
		}

		st := table.Get(id)
		if st == nil {
			return fmt.Errorf("catalog: %s:%d: no match found for %s", path, lineNo, id)
		}
		if st.VisitsDone > 0 {
			return fmt.Errorf("catalog: %s:%d: field %s is listed multiple times", path, lineNo, id)
		}
		st.VisitsDone = int(visits)
		st.Complete = complete == 1
		table.Charge(program, hours)
	}
	return scanner.Err()
}

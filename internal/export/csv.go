// Package export renders record collections to interchange formats.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"neuronbudget/internal/core"
)

var transactionHeader = []string{"date", "type", "category", "amount", "description"}

// TransactionsCSV writes the transactions to w as CSV, one row per record
// in the order given, preceded by a header row.
func TransactionsCSV(w io.Writer, transactions []core.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(transactionHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, t := range transactions {
		row := []string{
			t.Date.String(),
			string(t.Type),
			t.Category,
			t.Amount.String(),
			t.Description,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

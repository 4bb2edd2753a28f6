package history

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// ExportJSON writes every record in the store to w as a JSON array,
// newest first.
func ExportJSON(ctx context.Context, store Store, w io.Writer) error {
	records, err := store.ListAll(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to list records: %w", err)
	}
	if records == nil {
		records = []Record{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}
	return nil
}

// ImportJSON reads a JSON array of records from r and saves each one.
// Record IDs are reassigned by the store. Returns the number imported;
// a failed record stops the import.
func ImportJSON(ctx context.Context, store Store, r io.Reader) (int, error) {
	var records []Record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return 0, fmt.Errorf("failed to decode records: %w", err)
	}

	for i := range records {
		rec := records[i]
		rec.ID = 0
		if err := store.SaveSubmission(ctx, &rec); err != nil {
			return i, fmt.Errorf("failed to import order %s: %w", rec.OrderID, err)
		}
	}
	return len(records), nil
}

package sheets

import (
	"context"

	"financebro/internal/core"
)

// Ports for the spreadsheet export backend.
type (
	// TransactionExporter appends a transaction row to the export sheet.
	TransactionExporter interface {
		Export(ctx context.Context, t core.Transaction) (rowRef string, err error)
	}

	// TransactionRemover removes a previously exported transaction row.
	TransactionRemover interface {
		Remove(ctx context.Context, transactionID string) error
	}
)

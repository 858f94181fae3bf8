package mirror

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"stockkeeper/internal/domain"
	applog "stockkeeper/internal/log"
	"stockkeeper/internal/repos"
	"stockkeeper/internal/validate"
)

// HistoryRows caps the number of log entries copied to the history sheet.
const HistoryRows = 1000

var (
	productHeader = []any{"SKU", "Name", "Location", "Quantity", "Image"}
	historyHeader = []any{"Timestamp", "User", "Action", "SKU", "Quantity", "Balance"}
)

// Sheets is the subset of the spreadsheet API the mirror needs.
type Sheets interface {
	Clear(ctx context.Context, rng string) error
	Write(ctx context.Context, rng string, rows [][]any) error
	Read(ctx context.Context, rng string) ([][]any, error)
}

// Mirror copies the store into two sheets of an external spreadsheet.
// A nil Sheets disables every write and read.
type Mirror struct {
	Products      *repos.ProductRepo
	Logs          *repos.LogRepo
	Sheets        Sheets
	ProductsSheet string
	HistorySheet  string

	mu sync.Mutex
}

func New(products *repos.ProductRepo, logs *repos.LogRepo, sheets Sheets, productsSheet, historySheet string) *Mirror {
	return &Mirror{
		Products:      products,
		Logs:          logs,
		Sheets:        sheets,
		ProductsSheet: productsSheet,
		HistorySheet:  historySheet,
	}
}

// Enabled reports whether a spreadsheet is attached.
func (m *Mirror) Enabled() bool { return m.Sheets != nil }

// SyncAll rewrites both sheets from the current store. Only store read
// failures are returned; sheet failures are logged.
func (m *Mirror) SyncAll(ctx context.Context) error {
	products, err := m.Products.List()
	if err != nil {
		return fmt.Errorf("reading products: %w", err)
	}
	logs, err := m.Logs.Recent(HistoryRows)
	if err != nil {
		return fmt.Errorf("reading history: %w", err)
	}

	if !m.Enabled() {
		applog.Warn(nil, "mirror.skip", map[string]any{"reason": "spreadsheet not configured"})
		return nil
	}

	m.replace(ctx, m.ProductsSheet, productHeader, productRows(products))
	m.replace(ctx, m.HistorySheet, historyHeader, historyRows(logs))
	return nil
}

// replace clears a sheet and writes header + rows. The pair is never
// interleaved with another replace.
func (m *Mirror) replace(ctx context.Context, sheet string, header []any, rows [][]any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.Sheets.Clear(ctx, sheet+"!A1:Z1000"); err != nil {
		applog.Error(nil, "mirror.clear", err, map[string]any{"sheet": sheet})
		return
	}
	values := make([][]any, 0, len(rows)+1)
	values = append(values, header)
	values = append(values, rows...)
	if err := m.Sheets.Write(ctx, sheet+"!A1", values); err != nil {
		applog.Error(nil, "mirror.write", err, map[string]any{"sheet": sheet})
		return
	}
	applog.Info(nil, "mirror.synced", map[string]any{"sheet": sheet, "rows": len(rows)})
}

// ImportOnFirstRun seeds an empty product table from the products sheet and
// returns the number of rows imported. A non-empty store is never touched.
func (m *Mirror) ImportOnFirstRun(ctx context.Context) (int, error) {
	n, err := m.Products.Count()
	if err != nil {
		return 0, fmt.Errorf("counting products: %w", err)
	}
	if n > 0 || !m.Enabled() {
		return 0, nil
	}

	rows, err := m.Sheets.Read(ctx, m.ProductsSheet+"!A2:Z1000")
	if err != nil {
		applog.Error(nil, "mirror.read", err, map[string]any{"sheet": m.ProductsSheet})
		return 0, nil
	}

	ps := make([]domain.Product, 0, len(rows))
	for _, r := range rows {
		if p, ok := rowProduct(r); ok {
			ps = append(ps, p)
		}
	}
	imported, err := m.Products.BulkUpsert(ps)
	if err != nil {
		return imported, fmt.Errorf("importing products: %w", err)
	}
	applog.Info(nil, "mirror.imported", map[string]any{"rows": imported})
	return imported, nil
}

func productRows(ps []domain.Product) [][]any {
	out := make([][]any, 0, len(ps))
	for _, p := range ps {
		out = append(out, []any{p.SKU, p.Name, p.Location, p.Quantity, p.Image})
	}
	return out
}

func historyRows(ls []domain.LogEntry) [][]any {
	out := make([][]any, 0, len(ls))
	for _, l := range ls {
		out = append(out, []any{l.Timestamp, l.User, l.Action, l.SKU, l.Quantity, l.Balance})
	}
	return out
}

// rowProduct maps a sheet row to a product; rows with an empty first cell
// are skipped.
func rowProduct(r []any) (domain.Product, bool) {
	cell := func(i int) string {
		if i >= len(r) || r[i] == nil {
			return ""
		}
		return strings.TrimSpace(fmt.Sprint(r[i]))
	}
	sku := cell(0)
	if sku == "" {
		return domain.Product{}, false
	}
	return domain.Product{
		SKU:      sku,
		Name:     cell(1),
		Location: cell(2),
		Quantity: validate.Quantity(cell(3)),
		Image:    cell(4),
	}, true
}

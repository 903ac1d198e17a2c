package archive

import (
	"context"

	"github.com/kmoganti/stock-trading-system-sub001/services/scanner"
)

// Fanout forwards a scan summary to every configured archiver.
type Fanout []scanner.ScanArchiver

// ArchiveScan implements scanner.ScanArchiver.
func (f Fanout) ArchiveScan(ctx context.Context, result *scanner.ScanResult) {
	for _, a := range f {
		a.ArchiveScan(ctx, result)
	}
}

package health

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Pinger is satisfied by database pools that expose a Ping probe, such as
// *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StorageDir returns a checker verifying that the segment directory exists
// and is writable, by creating and removing a probe file.
func StorageDir(dir string) Checker {
	return Checker{
		Name: "storage",
		Check: func(_ context.Context) error {
			probe := filepath.Join(dir, ".readyz")
			if err := os.WriteFile(probe, nil, 0o644); err != nil {
				return fmt.Errorf("segment dir not writable: %w", err)
			}
			return os.Remove(probe)
		},
	}
}

// ReportDB returns a checker verifying connectivity to the report database.
func ReportDB(db Pinger) Checker {
	return Checker{
		Name: "report_db",
		Check: func(ctx context.Context) error {
			if err := db.Ping(ctx); err != nil {
				return fmt.Errorf("report db unreachable: %w", err)
			}
			return nil
		},
	}
}

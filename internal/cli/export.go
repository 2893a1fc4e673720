package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/datalens-tech/datalens-backend-sub013/internal/store"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Database string
	Catalog  string
	Force    bool

	// IDs generates snapshot IDs. Nil means UUIDv7.
	IDs store.IDGenerator
}

// ExportResult describes the snapshot an export produced or reused.
type ExportResult struct {
	SnapshotID  string `json:"snapshot_id"`
	CatalogHash string `json:"catalog_hash"`
	Entries     int    `json:"entries"`
	Seq         int64  `json:"seq"`
	Unchanged   bool   `json:"unchanged,omitempty"`
}

func (r ExportResult) String() string {
	if r.Unchanged {
		return fmt.Sprintf("Catalog unchanged since snapshot %s (seq %d, %d entries)", r.SnapshotID, r.Seq, r.Entries)
	}
	return fmt.Sprintf("Wrote snapshot %s (seq %d, %d entries, hash %s)", r.SnapshotID, r.Seq, r.Entries, r.CatalogHash)
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	return newExportCommand(&ExportOptions{RootOptions: rootOpts})
}

func newExportCommand(opts *ExportOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a documentation snapshot of the catalog",
		Long: `Write every registered function variant to a SQLite database as a
documentation snapshot.

Snapshots are content-addressed by catalog hash. Exporting a catalog that
matches the latest snapshot with the same hash writes nothing unless
--force is given.

Examples:
  formulacore export --db ./docs.db
  formulacore export --db ./docs.db --catalog ./catalog --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite database path (required)")
	cmd.Flags().StringVar(&opts.Catalog, "catalog", "", "directory of CUE catalog files (default: built-in catalog)")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "write a new snapshot even if the catalog is unchanged")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runExport(ctx context.Context, opts *ExportOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := newLogger(opts.RootOptions, formatter.GetErrWriter())

	reg, err := LoadRegistry(opts.Catalog)
	if err != nil {
		_ = formatter.Error(loadErrorCode(err), err.Error(), nil)
		return WrapExitError(ExitCommandError, "cannot load catalog", err)
	}

	ids := opts.IDs
	if ids == nil {
		ids = store.UUIDv7Generator{}
	}
	snap, err := store.SnapshotFromRegistry(reg, ids.Generate())
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "cannot build snapshot", err)
	}
	logger.Debug("snapshot built", "id", snap.ID, "hash", snap.CatalogHash, "entries", snap.EntryCount)

	logger.Info("opening database", "path", opts.Database)
	st, err := store.Open(opts.Database)
	if err != nil {
		_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "cannot open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	if !opts.Force {
		latest, err := st.LatestSnapshotForHash(ctx, snap.CatalogHash)
		switch {
		case err == nil:
			logger.Info("catalog unchanged", "snapshot", latest.ID)
			return outputExport(formatter, ExportResult{
				SnapshotID:  latest.ID,
				CatalogHash: latest.CatalogHash,
				Entries:     latest.EntryCount,
				Seq:         latest.Seq,
				Unchanged:   true,
			})
		case !errors.Is(err, store.ErrSnapshotNotFound):
			_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
			return WrapExitError(ExitCommandError, "cannot read snapshots", err)
		}
	}

	seq, err := st.WriteSnapshot(ctx, snap)
	if err != nil {
		_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "cannot write snapshot", err)
	}
	logger.Info("snapshot written", "id", snap.ID, "seq", seq)

	return outputExport(formatter, ExportResult{
		SnapshotID:  snap.ID,
		CatalogHash: snap.CatalogHash,
		Entries:     snap.EntryCount,
		Seq:         seq,
	})
}

func outputExport(formatter *OutputFormatter, result ExportResult) error {
	if formatter.JSON() {
		return formatter.Success(result)
	}
	return formatter.Success(result.String())
}

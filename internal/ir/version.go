package ir

const (
	// CatalogFormatVersion is the version of the stored catalog snapshot layout.
	CatalogFormatVersion = "1"

	// CompilerVersion is the formulacore version reported by the CLI.
	CompilerVersion = "0.1.0"
)

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/datalens-tech/datalens-backend-sub013/internal/dialect"
	"github.com/datalens-tech/datalens-backend-sub013/internal/registry"
	"github.com/datalens-tech/datalens-backend-sub013/internal/translation"
)

// FunctionsOptions holds flags for the functions command.
type FunctionsOptions struct {
	*RootOptions
	Catalog       string
	Dialects      []string
	Scopes        []string
	OnlyFunctions bool
}

// FunctionInfo is one listed key.
type FunctionInfo struct {
	Name      string `json:"name"`
	ArgCnt    int    `json:"arg_cnt"`
	Window    bool   `json:"window,omitempty"`
	Aggregate bool   `json:"aggregate,omitempty"`
	Operator  bool   `json:"operator,omitempty"`
}

func (f FunctionInfo) String() string {
	key := registry.FuncKey{Name: f.Name, ArgCnt: f.ArgCnt, IsWindow: f.Window}.String()
	var tags []string
	if f.Aggregate {
		tags = append(tags, "aggregate")
	}
	if f.Operator {
		tags = append(tags, "operator")
	}
	if len(tags) == 0 {
		return key
	}
	return key + " (" + strings.Join(tags, ", ") + ")"
}

// FunctionsResult is the output of the functions command.
type FunctionsResult struct {
	Dialects  string         `json:"dialects,omitempty"`
	Functions []FunctionInfo `json:"functions"`
	Total     int            `json:"total"`
}

// NewFunctionsCommand creates the functions command.
func NewFunctionsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FunctionsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "functions",
		Short: "List supported functions",
		Long: `List the functions and operators supported by every requested dialect.

A key is listed when its variants, taken together, cover all of the
dialects given with --dialect. Without --dialect every key with an
eligible variant is listed.

Examples:
  formulacore functions --dialect clickhouse --dialect postgresql
  formulacore functions --catalog ./catalog --only-functions
  formulacore functions --scope suggested --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFunctions(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Catalog, "catalog", "", "directory of CUE catalog files (default: built-in catalog)")
	cmd.Flags().StringSliceVar(&opts.Dialects, "dialect", nil, "dialect every listed key must support (repeatable)")
	cmd.Flags().StringSliceVar(&opts.Scopes, "scope", []string{"documented"}, "scopes a variant must carry to count")
	cmd.Flags().BoolVar(&opts.OnlyFunctions, "only-functions", false, "skip operators")

	return cmd
}

func runFunctions(opts *FunctionsOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	dialects, err := dialect.ParseList(opts.Dialects...)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid --dialect", err)
	}
	scopes, err := translation.ParseScopes(opts.Scopes...)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid --scope", err)
	}

	reg, err := LoadRegistry(opts.Catalog)
	if err != nil {
		_ = formatter.Error(loadErrorCode(err), err.Error(), nil)
		return WrapExitError(ExitCommandError, "cannot load catalog", err)
	}
	formatter.VerboseLog("Registry has %d variant(s)", reg.Len())

	keys := reg.GetSupportedFunctions(dialects, opts.OnlyFunctions, scopes)
	result := FunctionsResult{
		Functions: make([]FunctionInfo, 0, len(keys)),
		Total:     len(keys),
	}
	if dialects != dialect.Empty {
		result.Dialects = dialects.String()
	}
	for _, k := range keys {
		info, _ := reg.Info(k)
		result.Functions = append(result.Functions, FunctionInfo{
			Name:      k.Name,
			ArgCnt:    k.ArgCnt,
			Window:    k.IsWindow,
			Aggregate: info.IsAggregate,
			Operator:  info.IsOperator,
		})
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}
	for _, f := range result.Functions {
		fmt.Fprintln(formatter.Writer, f)
	}
	fmt.Fprintf(formatter.Writer, "%d function(s)\n", result.Total)
	return nil
}

package formerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorKind_CodePaths(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want string
	}{
		{KindFormula, "FORMULA"},
		{KindUnknownFunction, "FORMULA.UNKNOWN_FUNCTION"},
		{KindDataType, "FORMULA.DATA_TYPE"},
		{KindTypeConflict, "FORMULA.DATA_TYPE.TYPE_CONFLICT"},
		{KindDoubleAggregation, "FORMULA.VALIDATION.AGG.DOUBLE"},
		{KindUnknownWindowDimension, "FORMULA.VALIDATION.WIN.UNKNOWN_DIMENSION"},
		{KindLodIncompatibleDimensions, "FORMULA.VALIDATION.LOD.INCOMPATIBLE_DIMENSIONS"},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.CodeString())

			back, ok := KindByCode(tt.want)
			require.True(t, ok)
			assert.Equal(t, tt.kind, back)
		})
	}
}

func TestErrorKind_ChildPathExtendsParent(t *testing.T) {
	for i := range kinds {
		k := ErrorKind(i)
		if k == KindFormula {
			continue
		}
		parent := k.Parent().Code()
		code := k.Code()
		require.Len(t, code, len(parent)+1, k.String())
		assert.Equal(t, parent, code[:len(parent)], k.String())
	}
}

func TestErrorKind_IsA(t *testing.T) {
	assert.True(t, KindDoubleAggregation.IsA(KindAggregation))
	assert.True(t, KindDoubleAggregation.IsA(KindValidation))
	assert.True(t, KindDoubleAggregation.IsA(KindFormula))
	assert.False(t, KindDoubleAggregation.IsA(KindWindow))
	assert.False(t, KindValidation.IsA(KindAggregation))
}

func TestNew_WrapsMessage(t *testing.T) {
	err := New(KindUnknownFunction, "unknown 1-argument function FOO",
		WithToken("foo"),
		WithPosition(Position{Start: 0, End: 8, Line: 1, Column: 1}),
	)

	require.Len(t, err.Contexts, 1)
	ctx := err.Contexts[0]
	assert.Equal(t, "unknown 1-argument function FOO", ctx.Message)
	assert.Equal(t, LevelError, ctx.Level)
	assert.Equal(t, "foo", ctx.Token)
	assert.Equal(t, []string{"FORMULA", "UNKNOWN_FUNCTION"}, ctx.Code)
	assert.Equal(t, "FORMULA.UNKNOWN_FUNCTION", err.Code())
	assert.Contains(t, err.Error(), "unknown 1-argument function FOO")
	assert.Contains(t, err.Error(), "1:1")
}

func TestFromContext_OverridesOnlyExplicitFields(t *testing.T) {
	base := ErrorContext{
		Message:  "already structured",
		Level:    LevelWarning,
		Position: Position{Start: 3, End: 7},
		Token:    "orig",
		Code:     []string{"FORMULA", "CUSTOM"},
	}

	kept := FromContext(KindValidation, base)
	assert.Equal(t, base.Position, kept.Contexts[0].Position)
	assert.Equal(t, "orig", kept.Contexts[0].Token)
	assert.Equal(t, []string{"FORMULA", "CUSTOM"}, kept.Contexts[0].Code)
	assert.Equal(t, LevelWarning, kept.Contexts[0].Level)

	overridden := FromContext(KindValidation, base, WithToken("new"), WithCode("FORMULA", "OTHER"))
	assert.Equal(t, base.Position, overridden.Contexts[0].Position)
	assert.Equal(t, "new", overridden.Contexts[0].Token)
	assert.Equal(t, []string{"FORMULA", "OTHER"}, overridden.Contexts[0].Code)

	// Source context is untouched.
	assert.Equal(t, "orig", base.Token)
}

func TestNewBatch_CarriesAllContexts(t *testing.T) {
	err := NewBatch(KindAggregation,
		ErrorContext{Message: "first", Code: KindDoubleAggregation.Code()},
		ErrorContext{Message: "second"},
	)

	require.Len(t, err.Contexts, 2)
	assert.Equal(t, "FORMULA.VALIDATION.AGG.DOUBLE", err.Contexts[0].CodeString())
	assert.Equal(t, "FORMULA.VALIDATION.AGG", err.Contexts[1].CodeString())
	assert.Contains(t, err.Error(), "2 errors")
}

func TestIsKind_MatchesThroughWrapping(t *testing.T) {
	var err error = New(KindUnknownWindowDimension, "unknown dimension")
	wrapped := fmt.Errorf("compile field %q: %w", "profit", err)

	assert.True(t, IsKind(wrapped, KindUnknownWindowDimension))
	assert.True(t, IsKind(wrapped, KindWindow))
	assert.True(t, IsKind(wrapped, KindValidation))
	assert.False(t, IsKind(wrapped, KindAggregation))
	assert.False(t, IsKind(errors.New("plain"), KindFormula))

	assert.True(t, errors.Is(wrapped, &FormulaError{Kind: KindUnknownWindowDimension}))
	assert.False(t, errors.Is(wrapped, &FormulaError{Kind: KindWindow}))
}

func TestWithLocator_ReturnsPrefixedCopy(t *testing.T) {
	err := New(KindDataType, "bad argument types")
	located := err.WithLocator("profit")

	assert.Equal(t, "profit: bad argument types", located.Contexts[0].Message)
	assert.Equal(t, "bad argument types", err.Contexts[0].Message)
}

func TestMerge_UsesCommonKind(t *testing.T) {
	merged := Merge(
		New(KindDoubleAggregation, "a"),
		nil,
		New(KindWindowWithoutAggregation, "b"),
	)

	require.NotNil(t, merged)
	assert.Equal(t, KindValidation, merged.Kind)
	assert.Len(t, merged.Contexts, 2)
	assert.Nil(t, Merge(nil, nil))
}

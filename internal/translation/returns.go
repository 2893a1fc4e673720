package translation

import (
	"github.com/datalens-tech/datalens-backend-sub013/internal/datatype"
	"github.com/datalens-tech/datalens-backend-sub013/internal/formerr"
)

// ReturnType computes a variant's result type from its argument types.
type ReturnType func(args []datatype.DataType) (datatype.DataType, error)

// Fixed always returns t.
func Fixed(t datatype.DataType) ReturnType {
	return func([]datatype.DataType) (datatype.DataType, error) {
		return t, nil
	}
}

// FromArg returns the non-const type of the i-th argument.
func FromArg(i int) ReturnType {
	return func(args []datatype.DataType) (datatype.DataType, error) {
		if i < 0 || i >= len(args) {
			return datatype.Unsupported, formerr.Newf(formerr.KindDataType,
				"return type refers to argument %d of %d", i, len(args))
		}
		return args[i].NonConstType(), nil
	}
}

// Common returns the common cast type of the non-const argument types.
func Common() ReturnType {
	return func(args []datatype.DataType) (datatype.DataType, error) {
		if len(args) == 0 {
			return datatype.Null, nil
		}
		nonConst := make([]datatype.DataType, len(args))
		for i, a := range args {
			nonConst[i] = a.NonConstType()
		}
		return datatype.CommonCastType(nonConst...)
	}
}

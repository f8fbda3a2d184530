package profile

import (
	"statflow/domain/table"
)

// Inferencer classifies columns as numeric, categorical, or mixed from
// their value multiset. Classification is deterministic: no sampling
// randomness, no dependence on row order.
type Inferencer struct {
	config Config
}

// NewInferencer creates a type inferencer
func NewInferencer(config Config) *Inferencer {
	return &Inferencer{config: config}
}

// InferType classifies one column's values. An all-null column is
// categorical with zero unique non-null values; that is a documented
// edge case, not an error.
func (in *Inferencer) InferType(values []interface{}) table.ColumnType {
	nonNull := 0
	numeric := 0
	distinct := make(map[string]struct{})

	for _, v := range values {
		if v == nil {
			continue
		}
		nonNull++
		if _, ok := v.(float64); ok {
			numeric++
		}
		distinct[table.FormatCell(v)] = struct{}{}
	}

	if nonNull == 0 {
		return table.TypeCategorical
	}
	if float64(numeric)/float64(nonNull) > in.config.NumericThreshold {
		return table.TypeNumeric
	}
	if len(distinct) <= in.config.CategoricalMaxCard {
		return table.TypeCategorical
	}
	return table.TypeMixed
}

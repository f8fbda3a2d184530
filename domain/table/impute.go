package table

// Impute fills missing cells using the column profiles: numeric columns
// take the mean, categorical and mixed columns take the most frequent
// value. The source dataset is never mutated; a new Dataset with copied
// rows is returned. Columns whose profile has no usable fill value (all
// missing) are left as-is.
func Impute(d *Dataset, profiles map[string]*ColumnStatistics) *Dataset {
	rows := make([]Record, len(d.Rows))
	for i, row := range d.Rows {
		copied := make(Record, len(d.Columns))
		for _, col := range d.Columns {
			copied[col] = row[col]
		}
		rows[i] = copied
	}

	for _, col := range d.Columns {
		profile, ok := profiles[col]
		if !ok {
			continue
		}
		fill, ok := fillValue(profile)
		if !ok {
			continue
		}
		for _, row := range rows {
			if row[col] == nil {
				row[col] = fill
			}
		}
	}

	columns := make([]string, len(d.Columns))
	copy(columns, d.Columns)

	imputed := NewDataset(d.Source, columns, rows)
	imputed.Truncated = d.Truncated
	return imputed
}

// fillValue picks the imputation value for a column, if one exists
func fillValue(profile *ColumnStatistics) (interface{}, bool) {
	if profile.Count == 0 {
		return nil, false
	}
	switch profile.Type {
	case TypeNumeric:
		if profile.Numeric == nil {
			return nil, false
		}
		return profile.Numeric.Mean, true
	default:
		if profile.Categorical == nil || len(profile.Categorical.TopValues) == 0 {
			return nil, false
		}
		return profile.Categorical.TopValues[0].Value, true
	}
}

package bands

// SystolicTable returns the built-in systolic pressure tiers (mmHg).
func SystolicTable() Table {
	return Table{
		Name: TableSystolic,
		Unit: "mmHg",
		Bands: []Band{
			{Code: 1, Name: "normal", Expression: `v < 130`},
			{Code: 2, Name: "elevated", Expression: `v >= 130 && v <= 139`},
			{Code: 3, Name: "hypertension", Expression: `v >= 140 && v < 180`},
			{Code: 4, Name: "crisis", Expression: `v >= 180`},
		},
		Fallback: 1,
	}
}

// DiastolicTable returns the built-in diastolic pressure tiers (mmHg).
func DiastolicTable() Table {
	return Table{
		Name: TableDiastolic,
		Unit: "mmHg",
		Bands: []Band{
			{Code: 1, Name: "normal", Expression: `v < 85`},
			{Code: 2, Name: "elevated", Expression: `v >= 85 && v <= 89`},
			{Code: 3, Name: "hypertension", Expression: `v >= 90 && v <= 99`},
			{Code: 4, Name: "crisis", Expression: `v > 99`},
		},
		Fallback: 1,
	}
}

// DefaultTables returns every built-in table.
func DefaultTables() []Table {
	return []Table{SystolicTable(), DiastolicTable()}
}

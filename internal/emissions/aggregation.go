package emissions

// Recompute derives the per-scope totals of a record from its current
// non-deleted line items. The aggregate is always a pure function of the items
// passed in; callers re-sum from source on every mutation instead of applying
// incremental deltas, so partial or out-of-order updates cannot drift the
// totals. Plain floating addition, no intermediate rounding; rounding is a
// presentation concern.
func Recompute(items []EmissionLineItem) AggregateTotals {
	var totals AggregateTotals
	for _, item := range items {
		switch item.Scope {
		case Scope1:
			totals.Scope1Total += item.ComputedEmissions
		case Scope2:
			totals.Scope2Total += item.ComputedEmissions
		case Scope3:
			totals.Scope3Total += item.ComputedEmissions
		}
	}
	totals.TotalEmissions = totals.Scope1Total + totals.Scope2Total + totals.Scope3Total
	return totals
}

// Consistent reports whether the record's stored totals match a from-scratch
// recomputation over the given items. Used by tests and integrity sweeps; a
// mismatch means a mutation escaped the unit of work.
func Consistent(record *EmissionRecord, items []EmissionLineItem) bool {
	want := Recompute(items)
	return record.Scope1Total == want.Scope1Total &&
		record.Scope2Total == want.Scope2Total &&
		record.Scope3Total == want.Scope3Total &&
		record.TotalEmissions == want.TotalEmissions
}

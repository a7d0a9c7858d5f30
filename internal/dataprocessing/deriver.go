package dataprocessing

import (
	"sort"

	"tradestat/internal/schema"
	"tradestat/pkg/contracts/domain"
)

// DeriveMetrics sorts records by period and fills in the table's derived
// fields in declaration order, so later formulas may read earlier results.
// Missing inputs absorb: a derived value over a missing input is missing,
// never zero. Zero divisors also yield missing, with a warning.
func DeriveMetrics(records []domain.CanonicalRecord, spec *schema.TableSpec) []domain.ValidationFinding {
	sort.SliceStable(records, func(i, j int) bool {
		pi, _ := records[i].Period(spec.PeriodField)
		pj, _ := records[j].Period(spec.PeriodField)
		return pi.Before(pj)
	})

	var findings []domain.ValidationFinding
	for _, d := range spec.Derived {
		switch d.Formula {
		case schema.FormulaGrowthRate:
			findings = append(findings, deriveGrowthRate(records, spec, d)...)
		case schema.FormulaShareOfTotal:
			findings = append(findings, deriveShare(records, spec, d)...)
		case schema.FormulaBalance:
			deriveBalance(records, d)
		case schema.FormulaCumulative:
			deriveCumulative(records, spec, d)
		}
	}
	return findings
}

// deriveGrowthRate computes year-over-year growth: an annual row compares
// with the previous year, a monthly row with the same month of the
// previous year. No base period in the series leaves the rate missing.
func deriveGrowthRate(records []domain.CanonicalRecord, spec *schema.TableSpec, d schema.DerivedSpec) []domain.ValidationFinding {
	byPeriod := make(map[domain.Period]domain.CanonicalRecord, len(records))
	for _, rec := range records {
		if p, ok := rec.Period(spec.PeriodField); ok {
			byPeriod[p] = rec
		}
	}

	var findings []domain.ValidationFinding
	for _, rec := range records {
		p, _ := rec.Period(spec.PeriodField)
		base := domain.Period{Year: p.Year - 1, Month: p.Month}

		prev, ok := byPeriod[base]
		if !ok {
			continue
		}
		cur, curOK := rec.Get(d.Source).Float()
		ref, refOK := prev.Get(d.Source).Float()
		if !curOK || !refOK {
			continue
		}
		if ref == 0 {
			findings = append(findings, domain.Warnf(domain.RuleDerivation, d.ID, p.String(),
				"growth rate undefined: base period %s has zero %s", base, d.Source))
			continue
		}
		rec.Set(d.ID, domain.Number((cur-ref)/ref))
	}
	return findings
}

func deriveShare(records []domain.CanonicalRecord, spec *schema.TableSpec, d schema.DerivedSpec) []domain.ValidationFinding {
	var findings []domain.ValidationFinding
	for _, rec := range records {
		value, valueOK := rec.Get(d.Value).Float()
		total, totalOK := rec.Get(d.Total).Float()
		if !valueOK || !totalOK {
			continue
		}
		if total == 0 {
			p, _ := rec.Period(spec.PeriodField)
			findings = append(findings, domain.Warnf(domain.RuleDerivation, d.ID, p.String(),
				"share undefined: %s is zero", d.Total))
			continue
		}
		rec.Set(d.ID, domain.Number(value/total))
	}
	return findings
}

func deriveBalance(records []domain.CanonicalRecord, d schema.DerivedSpec) {
	for _, rec := range records {
		minuend, mOK := rec.Get(d.Minuend).Float()
		subtrahend, sOK := rec.Get(d.Subtrahend).Float()
		if !mOK || !sOK {
			continue
		}
		rec.Set(d.ID, domain.Number(minuend-subtrahend))
	}
}

// deriveCumulative keeps a running sum of the source in period order. A
// missing source value poisons the sum until the next reset boundary: a
// partial running total would misstate every later row.
func deriveCumulative(records []domain.CanonicalRecord, spec *schema.TableSpec, d schema.DerivedSpec) {
	var (
		sum      float64
		poisoned bool
		year     int
	)
	started := false

	for _, rec := range records {
		p, _ := rec.Period(spec.PeriodField)
		if !started || (d.ResetYearly && p.Year != year) {
			sum, poisoned = 0, false
			year = p.Year
			started = true
		}

		v, ok := rec.Get(d.Source).Float()
		if !ok {
			poisoned = true
		}
		if poisoned {
			continue
		}
		sum += v
		rec.Set(d.ID, domain.Number(sum))
	}
}

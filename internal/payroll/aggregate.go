package payroll

import (
	"sort"

	"github.com/shopspring/decimal"
)

// ClientSubtotal groups the trips sharing a client and a rate.
type ClientSubtotal struct {
	ClientName      string
	RatePerKg       float64
	TripCount       int
	TotalWeightKg   float64
	SubtotalPayable float64
}

// Totals is the locally computed view of a payroll's trips.
type Totals struct {
	TripCount       int
	TotalWeightKg   float64
	ComputedPayable float64
	Subtotals       []ClientSubtotal
}

type groupKey struct {
	client string
	rate   float64
}

type group struct {
	trips   int
	weight  decimal.Decimal
	payable decimal.Decimal
}

// Aggregate computes totals and per (client, rate) subtotals from effective weights.
// Subtotals are ordered by client name, then rate.
func Aggregate(trips []TripLine) Totals {
	totalWeight := decimal.Zero
	totalPayable := decimal.Zero
	groups := make(map[groupKey]*group)

	for _, t := range trips {
		rate := toDecimal(t.ClientRatePerKg)
		weight := effectiveWeight(t.OriginalWeightKg, t.EditedWeightKg)
		payable := weight.Mul(rate)

		totalWeight = totalWeight.Add(weight)
		totalPayable = totalPayable.Add(payable)

		key := groupKey{client: t.ClientName, rate: rate.InexactFloat64()}

		g, ok := groups[key]
		if !ok {
			g = &group{weight: decimal.Zero, payable: decimal.Zero}
			groups[key] = g
		}

		g.trips++
		g.weight = g.weight.Add(weight)
		g.payable = g.payable.Add(payable)
	}

	subtotals := make([]ClientSubtotal, 0, len(groups))
	for key, g := range groups {
		subtotals = append(subtotals, ClientSubtotal{
			ClientName:      key.client,
			RatePerKg:       key.rate,
			TripCount:       g.trips,
			TotalWeightKg:   round2(g.weight).InexactFloat64(),
			SubtotalPayable: round2(g.payable).InexactFloat64(),
		})
	}

	sort.Slice(subtotals, func(i, j int) bool {
		if subtotals[i].ClientName != subtotals[j].ClientName {
			return subtotals[i].ClientName < subtotals[j].ClientName
		}

		return subtotals[i].RatePerKg < subtotals[j].RatePerKg
	})

	return Totals{
		TripCount:       len(trips),
		TotalWeightKg:   round2(totalWeight).InexactFloat64(),
		ComputedPayable: round2(totalPayable).InexactFloat64(),
		Subtotals:       subtotals,
	}
}

// Differs reports whether the local totals disagree with the backend's figures on the row.
func (t Totals) Differs(r Row) bool {
	return Round2(t.TotalWeightKg) != Round2(r.TotalWeightKg) || Round2(t.ComputedPayable) != Round2(r.Payable)
}

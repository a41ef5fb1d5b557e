package weighticket

// weightMode determines how the net weight is extracted from a row.
type weightMode int

const (
	// weightNet means one column carrying the net weight.
	weightNet weightMode = iota
	// weightGrossTare means gross and tare columns; net is their difference.
	weightGrossTare
)

// Profile describes the column layout of a weigh-bridge ticket export.
// Header names are matched case-insensitively.
type Profile struct {
	Name       string
	ReceiptCol string
	DateCol    string // optional
	WeightMode weightMode
	NetCol     string // used when WeightMode == weightNet
	GrossCol   string // used when WeightMode == weightGrossTare
	TareCol    string // used when WeightMode == weightGrossTare
}

func (p Profile) requiredCols() []string {
	cols := []string{p.ReceiptCol}

	switch p.WeightMode {
	case weightNet:
		cols = append(cols, p.NetCol)
	case weightGrossTare:
		cols = append(cols, p.GrossCol, p.TareCol)
	}

	return cols
}

// profiles is tried in order; layouts with more required columns come first
// so a gross/tare export is not mistaken for a net-only one.
var profiles = []Profile{
	{
		Name:       "gross-tare",
		ReceiptCol: "receipt no",
		DateCol:    "date",
		WeightMode: weightGrossTare,
		GrossCol:   "gross (kg)",
		TareCol:    "tare (kg)",
	},
	{
		Name:       "balança",
		ReceiptCol: "talão",
		DateCol:    "data",
		WeightMode: weightNet,
		NetCol:     "peso líquido (kg)",
	},
	{
		Name:       "scale-house",
		ReceiptCol: "ticket no",
		DateCol:    "date",
		WeightMode: weightNet,
		NetCol:     "net weight (kg)",
	},
	{
		Name:       "receipt-net",
		ReceiptCol: "receipt no",
		DateCol:    "date",
		WeightMode: weightNet,
		NetCol:     "net (kg)",
	},
}

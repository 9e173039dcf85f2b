package spot

import "github.com/uhyunpark/crossbook/pkg/app/core/orderbook"

// PriceSeries is an intraday price sample, Labels[i] being the time of Prices[i].
type PriceSeries struct {
	Labels []string
	Prices []float64
}

func (s PriceSeries) Len() int { return len(s.Prices) }

// PriceSamples holds 15-minute SPY and MSFT prices from 2025-05-29, used to
// generate realistic demo orders.
var PriceSamples = map[orderbook.Symbol]PriceSeries{
	"SPY": {
		Labels: []string{
			"09:30", "09:45", "10:00", "10:15", "10:30", "10:45", "11:00", "11:15",
			"11:30", "11:45", "12:00", "12:15", "12:30", "12:45", "13:00", "13:15",
			"13:30", "13:45", "14:00", "14:15", "14:30", "14:45", "15:00", "15:15",
			"15:30", "15:45", "16:00", "16:15", "16:30", "16:45", "17:00", "17:15",
			"17:30", "17:45", "18:00", "18:15", "18:30", "18:45", "19:00", "19:15",
			"19:30", "19:45",
		},
		Prices: []float64{
			591.03, 591.2308, 589.7, 590.09, 589.735, 590.93, 589.61, 590.72,
			589.19, 587.19, 588.58, 588.99, 589.515, 589.795, 589.81, 589.32,
			589.21, 588.5551, 589.09, 588.03, 589.215, 588.7901, 588.525, 588.89,
			589.28, 590.0, 589.45, 589.91, 589.66, 589.4, 589.5098, 589.45,
			589.31, 589.0012, 589.64, 588.66, 588.45, 588.7784, 588.9299, 588.95,
			588.42, 588.1,
		},
	},
	"MSFT": {
		Labels: []string{
			"09:30", "09:45", "10:00", "10:15", "10:30", "10:45", "11:00", "11:15",
			"11:30", "11:45", "12:00", "12:15", "12:30", "12:45", "13:00", "13:15",
			"13:30", "13:45", "14:00", "14:15", "14:30", "14:45", "15:00", "15:15",
			"15:30", "15:45", "16:00", "16:15", "16:30", "16:45", "17:00", "17:15",
			"17:30", "17:45", "18:00", "18:15", "19:00", "19:15", "19:45",
		},
		Prices: []float64{
			459.51, 458.745, 458.0, 458.77, 459.23, 459.725, 458.6, 459.27,
			458.73, 456.05, 458.2, 458.55, 458.96, 459.1085, 458.83, 458.5372,
			458.415, 458.08, 458.16, 457.51, 458.2941, 457.86, 457.68, 458.075,
			458.3, 458.45, 457.7, 458.12, 458.66, 458.44, 458.0514, 458.25,
			458.47, 458.47, 458.25, 457.6701, 457.946, 457.98, 457.0,
		},
	},
}

// LookupPrices returns the sample series for instrument.
func LookupPrices(instrument string) (PriceSeries, bool) {
	sym, err := orderbook.ParseSymbol(instrument)
	if err != nil {
		return PriceSeries{}, false
	}
	s, ok := PriceSamples[sym]
	return s, ok
}

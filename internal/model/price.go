package model

// PricePoint is one daily close.
type PricePoint struct {
	Date  Date
	Close float64
}

package model

// Direction is the outcome of classifying one symbol for one cycle.
type Direction string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
	DirectionHold Direction = "hold"
)

// Signal is produced fresh each cycle and never persisted.
// Momentum is the sole determinant of the direction.
type Signal struct {
	Symbol    string    `json:"symbol"`
	Direction Direction `json:"direction"`
	Momentum  float64   `json:"momentum"`
}

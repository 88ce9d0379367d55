package model

// CrossDirection indicates which way the big moving average crossed the
// small one.
type CrossDirection string

const (
	// CrossedUp means the big average overtook the small average.
	CrossedUp CrossDirection = "CROSSED_UP"
	// CrossedDown means the big average fell below the small average.
	CrossedDown CrossDirection = "CROSSED_DOWN"
)

// CrossoverEvent is one detected moving-average crossover for a symbol.
type CrossoverEvent struct {
	Symbol       string
	Date         string // session date of today's observation
	Direction    CrossDirection
	BigWindow    int
	SmallWindow  int
	PrevBig      float64
	PrevSmall    float64
	CurrentBig   float64
	CurrentSmall float64
}

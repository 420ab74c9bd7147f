package domain

// MarketEvent is a discrete one-shot shock applied by the trend evolver.
type MarketEvent int

const (
	EventNone MarketEvent = iota
	EventBullishNews
	EventBearishNews
	EventWhaleTrade
	EventTechnicalBreakout
)

// MarketEvents lists the events that can fire, in selection order.
var MarketEvents = [...]MarketEvent{
	EventBullishNews,
	EventBearishNews,
	EventWhaleTrade,
	EventTechnicalBreakout,
}

// String returns the string representation of MarketEvent
func (e MarketEvent) String() string {
	switch e {
	case EventBullishNews:
		return "bullish_news"
	case EventBearishNews:
		return "bearish_news"
	case EventWhaleTrade:
		return "whale_trade"
	case EventTechnicalBreakout:
		return "technical_breakout"
	default:
		return "none"
	}
}

// Apply mutates s by the event's one-shot adjustment.
// Every field touched stays inside its documented bounds.
func (e MarketEvent) Apply(s *MarketState) {
	switch e {
	case EventBullishNews:
		s.Trend = Clamp(s.Trend+0.3, -1, 1)
		s.Volatility = Clamp(s.Volatility*1.5, InitialVolatility, MaxVolatility)
	case EventBearishNews:
		s.Trend = Clamp(s.Trend-0.3, -1, 1)
		s.Volatility = Clamp(s.Volatility*1.5, InitialVolatility, MaxVolatility)
	case EventWhaleTrade:
		s.Volatility = Clamp(s.Volatility*2, InitialVolatility, MaxVolatility)
		s.Momentum = Clamp(s.Momentum*1.5, -1, 1)
	case EventTechnicalBreakout:
		s.Trend = Clamp(s.Trend*1.3, -1, 1)
	}
}

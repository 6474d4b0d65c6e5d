package strategy

import "fmt"

// FactoryFor returns the rule factory registered under the given name.
func FactoryFor(name string) (Factory, error) {
	switch name {
	case "breakout", "donchian_breakout":
		return NewBreakout, nil
	case "mean_reversion", "sma_mean_reversion":
		return NewMeanReversion, nil
	default:
		return nil, fmt.Errorf("unknown rule %q (want breakout or mean_reversion)", name)
	}
}

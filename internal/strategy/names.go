package strategy

import (
	boterrors "github.com/ducminhle1904/smart-ea/internal/errors"
)

// Name identifies one of the fixed trading strategies.
type Name string

const (
	Scalping       Name = "scalping"
	Breakout       Name = "breakout"
	Reversal       Name = "reversal"
	News           Name = "news"
	TrendFollowing Name = "trend_following"

	// None is returned by selection when no strategy qualifies.
	None Name = "none"
)

// Names lists every strategy in declaration order. Ties in selection are
// broken by this order.
var Names = []Name{Scalping, Breakout, Reversal, News, TrendFollowing}

// Valid reports whether n is one of the fixed strategies. None is not valid.
func (n Name) Valid() bool {
	switch n {
	case Scalping, Breakout, Reversal, News, TrendFollowing:
		return true
	}
	return false
}

func (n Name) String() string { return string(n) }

// ParseName maps a string to a strategy Name.
func ParseName(s string) (Name, error) {
	n := Name(s)
	if !n.Valid() {
		return "", boterrors.NewInvalidStrategyError("strategy", "ParseName", s)
	}
	return n, nil
}

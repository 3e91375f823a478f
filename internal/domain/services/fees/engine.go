package fees

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/aurum-ledger/aurum_service/internal/domain/entities"
	"github.com/aurum-ledger/aurum_service/internal/infrastructure/config"
)

var hundred = decimal.NewFromInt(100)

// Engine prices every transfer. It is a pure function of the request and a
// market snapshot: given the same inputs it always returns the same rate,
// and the rate is always within [0, MaxRate].
type Engine struct {
	baseRate         decimal.Decimal
	maxRate          decimal.Decimal
	volumeThreshold  decimal.Decimal
	volumeSurcharge  decimal.Decimal
	impactThreshold  decimal.Decimal
	impactSurcharge  decimal.Decimal
	rapidWindow      time.Duration
	rapidSurcharge   decimal.Decimal
	defaultPoolDepth decimal.Decimal
}

// NewEngine creates a fee engine from configuration
func NewEngine(cfg config.FeeConfig) *Engine {
	return &Engine{
		baseRate:         decimal.NewFromFloat(cfg.BaseRate),
		maxRate:          decimal.NewFromFloat(cfg.MaxRate),
		volumeThreshold:  decimal.NewFromFloat(cfg.VolumeThreshold),
		volumeSurcharge:  decimal.NewFromFloat(cfg.VolumeSurcharge),
		impactThreshold:  decimal.NewFromFloat(cfg.ImpactThresholdPct),
		impactSurcharge:  decimal.NewFromFloat(cfg.ImpactSurcharge),
		rapidWindow:      time.Duration(cfg.RapidTradeWindowSecs) * time.Second,
		rapidSurcharge:   decimal.NewFromFloat(cfg.RapidTradeSurcharge),
		defaultPoolDepth: decimal.NewFromFloat(cfg.DefaultPoolDepth),
	}
}

// ComputeRate returns the fee rate in percent for a transfer of amount
// under the given market snapshot. lastTrade is the account's previous
// trade time, zero when the account has never traded.
func (e *Engine) ComputeRate(amount decimal.Decimal, market entities.MarketState, lastTrade time.Time, now time.Time) decimal.Decimal {
	rate := e.baseRate

	if e.volumeThreshold.IsPositive() && market.TrailingHourVolume.GreaterThan(e.volumeThreshold) {
		rate = rate.Add(e.volumeSurcharge)
	}

	if e.impactThreshold.IsPositive() {
		impact := e.PriceImpact(amount, market.PoolDepth)
		if impact.GreaterThan(e.impactThreshold) {
			rate = rate.Add(e.impactSurcharge)
		}
	}

	if !lastTrade.IsZero() && now.Sub(lastTrade) < e.rapidWindow {
		rate = rate.Add(e.rapidSurcharge)
	}

	if rate.GreaterThan(e.maxRate) {
		rate = e.maxRate
	}
	if rate.IsNegative() {
		rate = decimal.Zero
	}
	return rate
}

// PriceImpact estimates the percentage move a trade of amount causes
// against a constant-product pool of the given depth. With depth D and
// trade x the output shortfall is x/(D+x), reported in percent.
func (e *Engine) PriceImpact(amount, poolDepth decimal.Decimal) decimal.Decimal {
	depth := poolDepth
	if !depth.IsPositive() {
		depth = e.defaultPoolDepth
	}
	if !depth.IsPositive() {
		return decimal.Zero
	}
	return amount.Div(depth.Add(amount)).Mul(hundred)
}

// FeeFor splits a gross amount at the given rate. The fee and net parts
// always sum back to the gross amount exactly.
func (e *Engine) FeeFor(amount, rate decimal.Decimal) (fee, net decimal.Decimal) {
	fee = amount.Mul(rate).Div(hundred)
	net = amount.Sub(fee)
	return fee, net
}

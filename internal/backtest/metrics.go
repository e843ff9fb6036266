package backtest

import (
	"math"
	"time"

	"tradesim/internal/domain"
)

// tradingDaysPerYear is the annualization base for daily bars.
const tradingDaysPerYear = 252

// Metrics summarizes the risk/return profile of a completed backtest.
type Metrics struct {
	FinalReturnPct      float64 `json:"final_return_pct"`
	AnnualizedReturnPct float64 `json:"annualized_return_pct"`
	SharpeRatio         float64 `json:"sharpe_ratio"`
	SortinoRatio        float64 `json:"sortino_ratio"`
	MaxDrawdownPct      float64 `json:"max_drawdown_pct"`
	TotalTrades         int     `json:"total_trades"`
	WinRate             float64 `json:"win_rate"`
	ProfitFactor        float64 `json:"profit_factor"`
}

// computeMetrics derives all metrics from a completed equity curve and the
// round-trip trades recorded during the run. The curve must be non-empty.
func computeMetrics(curve []domain.EquityPoint, trades []domain.Trade) Metrics {
	returns := simpleReturns(curve)
	factor := annualizationFactor(curve)

	m := Metrics{
		FinalReturnPct:      finalReturnPct(curve),
		AnnualizedReturnPct: annualizedReturnPct(curve, factor),
		SharpeRatio:         sharpeRatio(returns, factor),
		SortinoRatio:        sortinoRatio(returns, factor),
		MaxDrawdownPct:      maxDrawdownPct(curve),
		TotalTrades:         len(trades),
	}

	var wins int
	var gains, losses float64
	for _, t := range trades {
		if t.PnL >= 0 {
			wins++
			gains += t.PnL
		} else {
			losses += -t.PnL
		}
	}
	if len(trades) > 0 {
		m.WinRate = 100 * float64(wins) / float64(len(trades))
	}
	m.ProfitFactor = profitFactor(gains, losses)

	return m
}

// finalReturnPct is the total return over the curve, as a percentage.
func finalReturnPct(curve []domain.EquityPoint) float64 {
	if len(curve) < 2 || curve[0].Equity == 0 {
		return 0
	}
	return (curve[len(curve)-1].Equity/curve[0].Equity - 1) * 100
}

// simpleReturns is the per-bar simple return series, length len(curve)-1.
func simpleReturns(curve []domain.EquityPoint) []float64 {
	if len(curve) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		returns = append(returns, curve[i].Equity/curve[i-1].Equity-1)
	}
	return returns
}

// sharpeRatio is the annualized mean/stddev of the per-bar returns. A
// zero-variance return series yields 0 by convention, never Inf or NaN.
func sharpeRatio(returns []float64, annualization float64) float64 {
	mean, stddev := meanStddev(returns)
	if stddev == 0 {
		return 0
	}
	return mean / stddev * math.Sqrt(annualization)
}

// sortinoRatio annualizes mean return over downside deviation, considering
// only negative per-bar returns. Zero downside yields 0 by convention.
func sortinoRatio(returns []float64, annualization float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	mean, _ := meanStddev(returns)

	var sumSq float64
	var n int
	for _, r := range returns {
		if r < 0 {
			sumSq += r * r
			n++
		}
	}
	if n == 0 {
		return 0
	}
	downside := math.Sqrt(sumSq / float64(n))
	if downside == 0 {
		return 0
	}
	return mean / downside * math.Sqrt(annualization)
}

// maxDrawdownPct is the largest peak-to-trough decline of the curve as a
// percentage of the peak, computed in a single forward pass over a running
// peak.
func maxDrawdownPct(curve []domain.EquityPoint) float64 {
	if len(curve) == 0 {
		return 0
	}
	peak := curve[0].Equity
	var maxDD float64
	for _, p := range curve {
		if p.Equity > peak {
			peak = p.Equity
		}
		if peak > 0 {
			if dd := (peak - p.Equity) / peak * 100; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// annualizedReturnPct converts the total return into a compound annual rate
// using the number of return periods implied by the curve.
func annualizedReturnPct(curve []domain.EquityPoint, annualization float64) float64 {
	if len(curve) < 2 || annualization <= 0 {
		return 0
	}
	years := float64(len(curve)-1) / annualization
	if years <= 0 {
		return 0
	}
	growth := 1 + finalReturnPct(curve)/100
	if growth <= 0 {
		return -100
	}
	return (math.Pow(growth, 1/years) - 1) * 100
}

// annualizationFactor estimates bars per year from the curve's bar spacing.
// Daily-or-wider spacing maps to the 252-bar trading year; intraday spacing
// scales that by the number of bars in a 24-hour day.
func annualizationFactor(curve []domain.EquityPoint) float64 {
	if len(curve) < 2 {
		return tradingDaysPerYear
	}
	spacing := curve[1].Timestamp.Sub(curve[0].Timestamp)
	if spacing <= 0 || spacing >= 23*time.Hour {
		return tradingDaysPerYear
	}
	return tradingDaysPerYear * float64(24*time.Hour) / float64(spacing)
}

// meanStddev returns the mean and population standard deviation of xs.
func meanStddev(xs []float64) (mean, stddev float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean = sum / float64(len(xs))

	var sumSq float64
	for _, x := range xs {
		d := x - mean
		sumSq += d * d
	}
	stddev = math.Sqrt(sumSq / float64(len(xs)))
	return mean, stddev
}

// profitFactor is gross gains over gross losses across round trips. With no
// losing trades it is capped at 999 when profitable and 0 otherwise, keeping
// the value finite and serializable.
func profitFactor(gains, losses float64) float64 {
	if losses == 0 {
		if gains > 0 {
			return 999
		}
		return 0
	}
	return gains / losses
}

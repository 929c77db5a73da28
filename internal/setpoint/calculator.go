// Copyright (C) 2025 Josh Simonot
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package setpoint implements the predictive setpoint calculator: a pure
// function from a ControlContext to a PredictionResult, built as five
// additive layers (outdoor reset, forecast look-ahead, solar gain, error
// correction, cold-weather boost) each individually clamped before the sum
// is clamped and rounded.
package setpoint

import (
	"fmt"
	"math"
	"strings"

	"hvaccore/v2/internal/hvac"
)

// Calculate runs all five layers against ctx and returns the predicted room
// target, its component breakdown, and a human-readable reason.
func Calculate(ctx hvac.ControlContext, cfg Config) hvac.PredictionResult {
	winter := ctx.SeasonMode == hvac.SeasonWinter

	comp := hvac.PredictionComponents{Base: ctx.UserComfortTarget}
	comp.OutdoorReset = layer1OutdoorReset(ctx, cfg, winter)
	comp.ForecastAdjustment = layer2ForecastLookahead(ctx, cfg, winter)
	comp.SolarOffset = layer3SolarGain(ctx, cfg, winter)
	comp.ErrorCorrection = layer4ErrorCorrection(ctx, cfg)
	comp.ColdWeatherBoost = layer5ColdWeatherBoost(ctx, cfg, winter)

	sum := comp.Base + comp.OutdoorReset + comp.ForecastAdjustment +
		comp.SolarOffset + comp.ErrorCorrection + comp.ColdWeatherBoost

	bounded, boundClamped := applyFinalBounds(sum, ctx, cfg, winter)
	final := clamp(bounded, cfg.FinalClampMin, cfg.FinalClampMax)
	rangeClamped := final != bounded
	final = roundTo(final, cfg.RoundStep)

	return hvac.PredictionResult{
		PredictedRoomTarget: final,
		Components:          comp,
		Reason:              buildReason(comp, boundClamped, rangeClamped),
	}
}

// layer1OutdoorReset implements spec.md §4.3 L1: offset = gain *
// (designOutdoor - outdoorTemp), clamped symmetrically.
func layer1OutdoorReset(ctx hvac.ControlContext, cfg Config, winter bool) float64 {
	if ctx.OutdoorTemp == nil {
		return 0
	}
	designOutdoor := cfg.DesignOutdoorSummerC
	if winter {
		designOutdoor = cfg.DesignOutdoorWinterC
	}
	raw := cfg.OutdoorResetGain * (designOutdoor - *ctx.OutdoorTemp)
	return clamp(raw, -cfg.OutdoorResetClamp, cfg.OutdoorResetClamp)
}

// layer2ForecastLookahead implements spec.md §4.3 L2. The sign is flipped
// in winter only, exactly as specified; see SPEC_FULL.md §9 for the
// asymmetry this preserves relative to summer (an Open Question spec.md
// itself raises and declines to resolve).
func layer2ForecastLookahead(ctx hvac.ControlContext, cfg Config, winter bool) float64 {
	if len(ctx.ForecastTemps) == 0 || ctx.OutdoorTemp == nil {
		return 0
	}
	h := cfg.ForecastHorizonHours
	if h > len(ctx.ForecastTemps) {
		h = len(ctx.ForecastTemps)
	}

	var weightedSum, weightSum float64
	for i := 0; i < h; i++ {
		w := math.Exp(-float64(i) / cfg.ForecastTimeConstantHours)
		weightedSum += w * ctx.ForecastTemps[i]
		weightSum += w
	}
	if weightSum == 0 {
		return 0
	}
	weightedFuture := weightedSum / weightSum

	expectedChange := weightedFuture - *ctx.OutdoorTemp
	raw := cfg.ForecastGain * expectedChange
	if winter {
		raw = -raw
	}
	return clamp(raw, -cfg.ForecastClamp, cfg.ForecastClamp)
}

// layer3SolarGain implements spec.md §4.3 L3, winter only.
func layer3SolarGain(ctx hvac.ControlContext, cfg Config, winter bool) float64 {
	if !winter || len(ctx.ForecastSolar) == 0 {
		return 0
	}
	n := cfg.SolarLookaheadHours
	if n > len(ctx.ForecastSolar) {
		n = len(ctx.ForecastSolar)
	}
	if n == 0 {
		return 0
	}
	var sum float64
	for _, v := range ctx.ForecastSolar[:n] {
		sum += v
	}
	avg := sum / float64(n)
	if avg <= cfg.SolarThresholdWm2 {
		return 0
	}
	reduction := cfg.SolarGain * (avg - cfg.SolarThresholdWm2)
	return clamp(-reduction, cfg.SolarClampMin, 0)
}

// layer4ErrorCorrection implements spec.md §4.3 L4.
func layer4ErrorCorrection(ctx hvac.ControlContext, cfg Config) float64 {
	if ctx.RoomTemp == nil {
		return 0
	}
	raw := cfg.ErrorCorrectionKp * (ctx.UserComfortTarget - *ctx.RoomTemp)
	return clamp(raw, -cfg.ErrorCorrectionClamp, cfg.ErrorCorrectionClamp)
}

// layer5ColdWeatherBoost implements spec.md §4.3 L5, winter only.
func layer5ColdWeatherBoost(ctx hvac.ControlContext, cfg Config, winter bool) float64 {
	if !winter {
		return 0
	}

	var boost float64
	if ctx.OutdoorTemp != nil {
		o := *ctx.OutdoorTemp
		switch {
		case o < cfg.ColdBoostThreshold1C:
			boost = cfg.ColdBoostAmount1
		case o < cfg.ColdBoostThreshold2C:
			boost = cfg.ColdBoostAmount2
		case o < cfg.ColdBoostThreshold3C:
			boost = cfg.ColdBoostAmount3
		}
	}

	if len(ctx.ForecastTemps) > 0 {
		n := 25 // forecast[0..24] inclusive
		if n > len(ctx.ForecastTemps) {
			n = len(ctx.ForecastTemps)
		}
		minF := ctx.ForecastTemps[0]
		for _, v := range ctx.ForecastTemps[:n] {
			if v < minF {
				minF = v
			}
		}
		if minF < cfg.ColdBoostThreshold1C && boost < 2 {
			boost = 2
		}
		if minF < cfg.ColdBoostThreshold2C && boost < 1 {
			boost = 1
		}
	}

	return boost
}

// applyFinalBounds clamps sum to userComfortTarget +/- the season-specific
// bound (spec.md §4.3 "Final bounds"). It returns whether clamping changed
// the value.
func applyFinalBounds(sum float64, ctx hvac.ControlContext, cfg Config, winter bool) (float64, bool) {
	lower := ctx.UserComfortTarget - cfg.FinalBoundWinterNorm
	upper := ctx.UserComfortTarget + cfg.FinalBoundWinterNorm

	if winter {
		if ctx.OutdoorTemp != nil && *ctx.OutdoorTemp < 0 {
			upper = ctx.UserComfortTarget + cfg.FinalBoundWinterCold
		}
	} else {
		lower = ctx.UserComfortTarget - cfg.FinalBoundSummer
		upper = ctx.UserComfortTarget + cfg.FinalBoundSummer
	}

	bounded := clamp(sum, lower, upper)
	return bounded, bounded != sum
}

func buildReason(comp hvac.PredictionComponents, boundClamped, rangeClamped bool) string {
	var parts []string
	add := func(name string, v float64) {
		if math.Abs(v) > 0.3 {
			parts = append(parts, fmt.Sprintf("%s=%+.2f", name, v))
		}
	}
	add("outdoorReset", comp.OutdoorReset)
	add("forecastAdjustment", comp.ForecastAdjustment)
	add("solarOffset", comp.SolarOffset)
	add("errorCorrection", comp.ErrorCorrection)
	add("coldWeatherBoost", comp.ColdWeatherBoost)

	if boundClamped {
		parts = append(parts, "clamped to comfort bound")
	}
	if rangeClamped {
		parts = append(parts, "clamped to [16,30]")
	}
	if len(parts) == 0 {
		return "no significant adjustment"
	}
	return strings.Join(parts, ", ")
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func roundTo(v, step float64) float64 {
	if step <= 0 {
		return v
	}
	return math.Round(v/step) * step
}

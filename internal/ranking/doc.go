// Package ranking provides the signal weights and helper curves used by the
// For You feed scorer, with calibration support.
//
// # Signal Weights
//
// Every constant the scorer uses lives in Weights. DefaultWeights returns:
//
//	following tier:      none 0, light 10, medium 30, heavy 50
//	interest match:      30 + min(5 * matches, 25)
//	profile similarity:  round(min(35, similarity * 35))
//	liked topic:         +25
//	muted topic:         -100
//	bookmarks:           min(25, count * 3), quality score * 20
//	rechirps:            min(20, log10(count+1) * 8), quality score * 15
//	conversation:        min(20, log10(metric+1) * 5)
//	recency:             max(0, 15 - hours * 0.5)
//	value score:         total * 40 * max(0.5, confidence), minus (0.35 - total) * 30 below 0.35
//	moderation:          blocked -50, needs review -20, flagged -15
//
// # Calibration
//
// Weights can be tuned without code changes through a JSON file:
//
//	{
//	  "version": "1.0",
//	  "weights": {
//	    "following": {"heavy": 60},
//	    "recency": {"max": 20, "decay_per_hour": 0.25}
//	  }
//	}
//
// Load with LoadCalibration. Omitted or zero fields keep their default values,
// and negative values cause the whole file to be rejected in favor of defaults.
// Overrides are logged at startup.
package ranking

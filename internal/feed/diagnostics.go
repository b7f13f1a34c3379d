package feed

import (
	"log/slog"

	"github.com/onnwee/chirpfeed/internal/chirp"
	"github.com/onnwee/chirpfeed/internal/user"
)

// Diagnostics receives reports about anomalous tuned-audience states.
// Reports are informational; the chirp is simply treated as ineligible.
type Diagnostics interface {
	// TunedAudienceMissing is called for a tuned chirp without an audience descriptor.
	TunedAudienceMissing(c *chirp.Chirp, viewer *user.User)

	// TunedAudienceExcluded is called when a tuned chirp's rules, including
	// the semantic fallback, exclude the viewer.
	TunedAudienceExcluded(c *chirp.Chirp, viewer *user.User)
}

// NopDiagnostics discards every report.
type NopDiagnostics struct{}

func (NopDiagnostics) TunedAudienceMissing(*chirp.Chirp, *user.User)  {}
func (NopDiagnostics) TunedAudienceExcluded(*chirp.Chirp, *user.User) {}

// LogDiagnostics writes reports as warnings and counts them.
type LogDiagnostics struct {
	logger  *slog.Logger
	metrics *Metrics
}

// NewLogDiagnostics creates a LogDiagnostics. A nil logger means slog.Default()
// at report time; nil metrics are allowed.
func NewLogDiagnostics(logger *slog.Logger, metrics *Metrics) *LogDiagnostics {
	return &LogDiagnostics{logger: logger, metrics: metrics}
}

// TunedAudienceMissing logs a tuned chirp that no viewer can reach.
func (d *LogDiagnostics) TunedAudienceMissing(c *chirp.Chirp, viewer *user.User) {
	d.metrics.IncTunedAudienceAnomaly(AnomalyMissingAudience)
	d.log().Warn("tuned chirp missing audience descriptor",
		"chirp_id", c.ID,
		"author_id", c.AuthorID,
		"viewer_id", viewer.ID,
	)
}

// TunedAudienceExcluded logs a tuned chirp whose rules exclude the viewer.
func (d *LogDiagnostics) TunedAudienceExcluded(c *chirp.Chirp, viewer *user.User) {
	d.metrics.IncTunedAudienceAnomaly(AnomalyViewerExcluded)
	d.log().Warn("tuned chirp audience excludes viewer",
		"chirp_id", c.ID,
		"author_id", c.AuthorID,
		"viewer_id", viewer.ID,
	)
}

func (d *LogDiagnostics) log() *slog.Logger {
	if d.logger == nil {
		return slog.Default()
	}
	return d.logger
}

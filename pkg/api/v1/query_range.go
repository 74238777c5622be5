package v1

import (
	"fmt"
	"net/http"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/vasiliyffedorov/corridor-proxy/internal/grouping"
	"github.com/vasiliyffedorov/corridor-proxy/internal/telemetry"
	"github.com/vasiliyffedorov/corridor-proxy/pkg/config"
	"github.com/vasiliyffedorov/corridor-proxy/pkg/corerr"
	"github.com/vasiliyffedorov/corridor-proxy/pkg/models"
)

// QueryRange handles GET /api/v1/query_range.
// @Summary Evaluate the DFT corridor over a time range
// @Description Splits the query's results by label set, rebuilds or reuses each series' corridor from the persistent cache, computes current-window anomaly concern, and re-emits a Prometheus-shaped matrix annotated with corridor bounds.
// @Tags query
// @Produce json
// @Param query query string true "selector, optionally suffixed with #dotted.key=value;... overrides"
// @Param start query string true "range start, unix seconds or RFC3339"
// @Param end query string true "range end, unix seconds or RFC3339"
// @Param step query string false "resolution step, seconds or a duration like 60s"
// @Success 200 {object} successResponse
// @Failure 400 {object} errorResponse
// @Failure 502 {object} errorResponse
// @Router /api/v1/query_range [get]
func (h *Handler) QueryRange(w http.ResponseWriter, r *http.Request) {
	requestStart := time.Now()
	defer telemetry.ObserveRequestDuration("query_range", requestStart)

	rawQuery := r.URL.Query().Get("query")
	if rawQuery == "" {
		h.respondError(w, http.StatusBadRequest, "bad_data", "query parameter is required")
		return
	}

	startSec, err := parseTimeParam(r.URL.Query().Get("start"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "bad_data", fmt.Sprintf("invalid start: %v", err))
		return
	}
	endSec, err := parseTimeParam(r.URL.Query().Get("end"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "bad_data", fmt.Sprintf("invalid end: %v", err))
		return
	}
	stepSec, err := parseStepParam(r.URL.Query().Get("step"), h.Cfg.Corridor.Step)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "bad_data", fmt.Sprintf("invalid step: %v", err))
		return
	}

	metricQuery, overrides := config.ParseOverrides(rawQuery)
	cfg := h.Cfg.WithOverrides(overrides)
	if err := cfg.Validate(); err != nil {
		h.respondError(w, http.StatusBadRequest, "bad_data", err.Error())
		return
	}
	configHash := config.ConfigHash(cfg, overrides)

	if !h.DS.IsAvailable() {
		h.respondError(w, http.StatusBadGateway, "internal", "datasource not configured")
		return
	}

	now := time.Now()
	historyEnd := now.Unix() - int64(cfg.Corridor.HistoricalOffsetDays)*86400
	historyStart := historyEnd - int64(cfg.Corridor.HistoricalPeriodDays)*86400

	ctx := r.Context()
	historyRaw, err := h.DS.QueryRange(ctx, metricQuery, historyStart, historyEnd, int64(cfg.Corridor.Step))
	if err != nil {
		h.respondDataSourceError(w, err)
		return
	}
	liveRaw, err := h.DS.QueryRange(ctx, metricQuery, startSec, endSec, stepSec)
	if err != nil {
		h.respondDataSourceError(w, err)
		return
	}

	historyGroups := grouping.Group(historyRaw)
	liveGroups := grouping.Group(liveRaw)

	fingerprints := make([]string, 0, len(liveGroups))
	for fp := range liveGroups {
		fingerprints = append(fingerprints, fp)
	}
	sort.Strings(fingerprints)

	limit := cfg.Timeout.MaxMetrics
	if limit <= 0 {
		limit = 1
	}
	processed := fingerprints
	if len(fingerprints) > limit {
		skipped := len(fingerprints) - limit
		processed = fingerprints[:limit]
		telemetry.RecordGroupsSkipped(skipped)
		h.Log.Warnf("query_range: skipping %d of %d series groups (timeout.max_metrics=%d)", skipped, len(fingerprints), limit)
	}

	results := make([]seriesResult, len(processed))
	group, gctx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(int64(limit))
	for i, fp := range processed {
		i, fp := i, fp
		group.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			liveSeries := liveGroups[fp]
			var historySamples []models.Sample
			if hs, ok := historyGroups[fp]; ok {
				historySamples = hs.Samples
			}

			build, procErr := h.Orch.Process(metricQuery, fp, liveSeries.Labels, historySamples, liveSeries.Samples, startSec, endSec, cfg, configHash, now)
			if procErr != nil && !corerr.Is(procErr, corerr.KindCacheStore) {
				return procErr
			}
			results[i] = seriesResult{labels: liveSeries.Labels, build: build}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		h.respondDataSourceError(w, err)
		return
	}

	h.respondSuccess(w, formatMatrix(results))
}

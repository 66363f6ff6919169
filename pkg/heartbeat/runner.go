package heartbeat

import (
	"context"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/omega-agent/omega/pkg/channel"
	"github.com/omega-agent/omega/pkg/config"
	"github.com/omega-agent/omega/pkg/marker"
	"github.com/omega-agent/omega/pkg/provider"
	"github.com/omega-agent/omega/pkg/store"
	"github.com/omega-agent/omega/pkg/textfs"
)

const systemPrompt = `You are running a periodic self-check for your user.

Review the checklist below. For each item, decide whether anything
needs the user's attention right now.

If everything is fine, reply with exactly:
HEARTBEAT_OK

Otherwise, send a brief alert describing only what needs attention.
You may maintain your own checklist with HEARTBEAT_ADD: <item>,
HEARTBEAT_REMOVE: <substring>, and HEARTBEAT_INTERVAL: <minutes>.`

// Runner is the heartbeat loop. The interval is an atomic counter so a
// HEARTBEAT_INTERVAL: marker applied on any other goroutine takes
// effect at the next tick without locking.
type Runner struct {
	Provider   provider.Provider
	Channels   *channel.Registry
	Layout     textfs.Layout
	ConfigPath string
	Log        zerolog.Logger

	// Apply processes markers in the model's reply (the heartbeat can
	// mutate its own checklist and interval) and returns the cleaned
	// text. Wired by the gateway to the pipeline's marker applier.
	Apply func(ctx context.Context, text string) string

	cfg             config.HeartbeatConfig
	intervalMinutes atomic.Int64
}

// NewRunner constructs a Runner from config; the live interval starts
// at the configured value.
func NewRunner(p provider.Provider, channels *channel.Registry, layout textfs.Layout, configPath string, cfg config.HeartbeatConfig, log zerolog.Logger) *Runner {
	r := &Runner{
		Provider:   p,
		Channels:   channels,
		Layout:     layout,
		ConfigPath: configPath,
		Log:        log.With().Str("component", "heartbeat").Logger(),
		cfg:        cfg,
	}
	r.intervalMinutes.Store(int64(cfg.IntervalMinutes))
	return r
}

// IntervalMinutes reads the live interval.
func (r *Runner) IntervalMinutes() int {
	return int(r.intervalMinutes.Load())
}

// SetInterval updates the live interval and persists it to the config
// file so a restart keeps the new value.
func (r *Runner) SetInterval(minutes int) error {
	if minutes < 1 || minutes > 1440 {
		return nil
	}
	r.intervalMinutes.Store(int64(minutes))
	if r.ConfigPath == "" {
		return nil
	}
	if err := config.PersistHeartbeatInterval(r.ConfigPath, minutes); err != nil {
		r.Log.Warn().Err(err).Msg("persisting heartbeat interval")
		return err
	}
	r.Log.Info().Int("minutes", minutes).Msg("heartbeat interval updated")
	return nil
}

// Run ticks until ctx is cancelled. The sleep duration is recomputed
// every iteration from the atomic interval.
func (r *Runner) Run(ctx context.Context) {
	r.Log.Info().Int("interval_minutes", r.IntervalMinutes()).Msg("heartbeat loop started")
	for {
		interval := time.Duration(r.IntervalMinutes()) * time.Minute
		select {
		case <-ctx.Done():
			r.Log.Info().Msg("heartbeat loop stopped")
			return
		case <-time.After(interval):
		}
		r.Tick(ctx, time.Now())
	}
}

// Tick runs one heartbeat check. Exported so tests can drive it
// directly.
func (r *Runner) Tick(ctx context.Context, now time.Time) {
	if !r.withinActiveHours(now) {
		r.Log.Debug().Msg("outside active hours, skipping tick")
		return
	}

	checklist, ok := r.loadChecklist()
	if !ok {
		return
	}

	resp, err := r.Provider.Complete(ctx, provider.Context{
		SystemPrompt: systemPrompt,
		Message:      "Current time: " + now.Format("2006-01-02 15:04") + "\n\nChecklist:\n" + checklist,
	})
	if err != nil {
		r.Log.Warn().Err(err).Msg("heartbeat provider call failed")
		return
	}

	text := resp.Text
	if r.Apply != nil {
		text = r.Apply(ctx, text)
	} else {
		text = marker.StripAll(text)
	}

	if stripped, present := marker.StripHeartbeatOK(text); present && strings.TrimSpace(stripped) == "" {
		r.Log.Info().Msg("heartbeat OK")
		return
	} else if present {
		text = stripped
	}
	if strings.TrimSpace(text) == "" {
		return
	}
	r.send(ctx, text)
}

// loadChecklist reads and filters HEARTBEAT.md; ok is false when this
// tick should be skipped (no file, or everything suppressed).
func (r *Runner) loadChecklist() (string, bool) {
	data, err := os.ReadFile(r.Layout.HeartbeatFile())
	if err != nil {
		return "", false
	}
	suppressData, _ := os.ReadFile(r.Layout.HeartbeatSuppressFile())
	filtered := ParseChecklist(string(data)).Filter(ParseSuppressions(string(suppressData)))
	if filtered.Empty() {
		r.Log.Debug().Msg("all heartbeat sections suppressed, skipping tick")
		return "", false
	}
	return filtered.Render(), true
}

func (r *Runner) send(ctx context.Context, text string) {
	ch := r.Channels.Get(r.cfg.Channel)
	if ch == nil {
		ch = r.Channels.Default()
	}
	if ch == nil {
		r.Log.Warn().Msg("no channel available for heartbeat alert")
		return
	}
	err := ch.Send(ctx, store.OutgoingMessage{Text: text, ReplyTarget: r.cfg.Target, ProviderName: r.Provider.Name()})
	if err != nil {
		r.Log.Error().Err(err).Msg("sending heartbeat alert")
	}
}

// withinActiveHours applies the configured window, which wraps across
// midnight when end < start. An unconfigured window is always active.
func (r *Runner) withinActiveHours(now time.Time) bool {
	start, okS := parseClock(r.cfg.ActiveStart)
	end, okE := parseClock(r.cfg.ActiveEnd)
	if !okS || !okE {
		return true
	}
	minute := now.Hour()*60 + now.Minute()
	if start == end {
		return true
	}
	if start < end {
		return minute >= start && minute < end
	}
	return minute >= start || minute < end
}

func parseClock(s string) (int, bool) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, false
	}
	hh, err1 := strconv.Atoi(h)
	mm, err2 := strconv.Atoi(m)
	if err1 != nil || err2 != nil || hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return 0, false
	}
	return hh*60 + mm, true
}

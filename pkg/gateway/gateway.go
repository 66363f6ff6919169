// Package gateway wires the core subsystems together and owns the
// process lifecycle: start every long-lived loop, fan channel ingress
// into the message pipeline, and on shutdown summarize active
// conversations before stopping channels.
package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/omega-agent/omega/pkg/build"
	"github.com/omega-agent/omega/pkg/channel"
	"github.com/omega-agent/omega/pkg/config"
	ctxbuilder "github.com/omega-agent/omega/pkg/context"
	"github.com/omega-agent/omega/pkg/heartbeat"
	"github.com/omega-agent/omega/pkg/pipeline"
	"github.com/omega-agent/omega/pkg/provider"
	"github.com/omega-agent/omega/pkg/scheduler"
	"github.com/omega-agent/omega/pkg/sender"
	"github.com/omega-agent/omega/pkg/skills"
	"github.com/omega-agent/omega/pkg/store"
	"github.com/omega-agent/omega/pkg/summarizer"
	"github.com/omega-agent/omega/pkg/textfs"
	"github.com/omega-agent/omega/pkg/webhook"
)

// Gateway is the assembled process.
type Gateway struct {
	cfg        *config.Config
	configPath string
	store      store.Store
	audit      store.AuditLogger
	provider   provider.Provider
	channels   *channel.Registry
	log        zerolog.Logger

	layout     textfs.Layout
	pipeline   *pipeline.Pipeline
	scheduler  *scheduler.Loop
	heartbeat  *heartbeat.Runner
	summarizer *summarizer.Summarizer
	webhook    *webhook.Server
}

// New assembles a Gateway from its external collaborators. configPath
// is where heartbeat-interval updates persist.
func New(cfg *config.Config, configPath, dbInfo string, st store.Store, audit store.AuditLogger, prov provider.Provider, channels *channel.Registry, log zerolog.Logger) *Gateway {
	layout := textfs.Layout{DataDir: cfg.DataDir}
	catalog := skills.Load(layout.SkillsDir(), log)
	started := time.Now()

	hb := heartbeat.NewRunner(prov, channels, layout, configPath, cfg.Heartbeat, log)

	effects := &pipeline.Effects{
		Store:     st,
		Skills:    catalog,
		Layout:    layout,
		Heartbeat: hb,
		Log:       log.With().Str("component", "effects").Logger(),
	}
	if wa := channels.WhatsApp(); wa != nil {
		effects.RestartWhatsAppPairing = func(ctx context.Context) error {
			_, err := wa.RestartPairing(ctx)
			return err
		}
	}

	buildPipe := build.NewPipeline(prov, layout)

	pipe := &pipeline.Pipeline{
		Store:       st,
		Audit:       audit,
		Provider:    prov,
		Builder:     ctxbuilder.NewBuilder(st),
		Channels:    channels,
		Skills:      catalog,
		Layout:      layout,
		Effects:     effects,
		Serializer:  sender.New(),
		Build:       buildPipe,
		BasePrompt:  cfg.BasePrompt,
		ChannelAuth: cfg.Channels,
		DBInfo:      dbInfo,
		StartedAt:   started,
		Log:         log.With().Str("component", "pipeline").Logger(),
	}

	hb.Apply = func(ctx context.Context, text string) string {
		clean, _ := effects.Apply(ctx, pipeline.Scope{
			Channel:     cfg.Heartbeat.Channel,
			SenderID:    cfg.Heartbeat.Target,
			ReplyTarget: cfg.Heartbeat.Target,
			Language:    "English",
		}, text)
		return clean
	}

	sched := &scheduler.Loop{
		Store:      st,
		Audit:      audit,
		Provider:   prov,
		Channels:   channels,
		Skills:     catalog,
		Effects:    effects,
		BasePrompt: cfg.BasePrompt,
		Poll:       scheduler.ParseInterval(cfg.Scheduler.PollInterval, 30*time.Second),
		Log:        log.With().Str("component", "scheduler").Logger(),
	}
	if sched.BasePrompt == "" {
		sched.BasePrompt = "You are OMEGA, a personal agent executing a scheduled action for your user."
	}

	summ := &summarizer.Summarizer{
		Store:         st,
		Provider:      prov,
		Log:           log.With().Str("component", "summarizer").Logger(),
		IdleThreshold: time.Duration(cfg.Summarizer.IdleMinutes) * time.Minute,
		SummaryPrompt: cfg.Summarizer.SummaryPrompt,
		FactsPrompt:   cfg.Summarizer.FactsPrompt,
	}

	hook := &webhook.Server{
		Channels:    channels,
		ChannelAuth: cfg.Channels,
		BearerToken: cfg.Webhook.BearerToken,
		Log:         log.With().Str("component", "webhook").Logger(),
		StartedAt:   started,
	}

	return &Gateway{
		cfg:        cfg,
		configPath: configPath,
		store:      st,
		audit:      audit,
		provider:   prov,
		channels:   channels,
		log:        log,
		layout:     layout,
		pipeline:   pipe,
		scheduler:  sched,
		heartbeat:  hb,
		summarizer: summ,
		webhook:    hook,
	}
}

// Pipeline exposes the assembled message pipeline, used by tests and
// by embedding processes that feed messages directly.
func (g *Gateway) Pipeline() *pipeline.Pipeline { return g.pipeline }

// Run starts every subsystem and blocks until ctx is cancelled
// (SIGINT via signal.NotifyContext in cmd/omega), then performs the
// ordered shutdown: stop loops, summarize active conversations, stop
// channels.
func (g *Gateway) Run(ctx context.Context) error {
	if err := g.layout.EnsureDirs(); err != nil {
		return err
	}
	if err := g.layout.PurgeInbox(); err != nil {
		g.log.Warn().Err(err).Msg("purging inbox orphans")
	}

	loopCtx, cancelLoops := context.WithCancel(ctx)
	defer cancelLoops()

	var wg sync.WaitGroup
	var msgWG sync.WaitGroup

	g.webhook.Enqueue = func(msg store.IncomingMessage) {
		msgWG.Add(1)
		go func() {
			defer msgWG.Done()
			g.pipeline.Dispatch(loopCtx, msg)
		}()
	}

	for _, name := range g.channels.Names() {
		ch := g.channels.Get(name)
		stream, err := ch.Start(loopCtx)
		if err != nil {
			g.log.Error().Err(err).Str("channel", name).Msg("starting channel")
			continue
		}
		wg.Add(1)
		go func(name string, stream <-chan store.IncomingMessage) {
			defer wg.Done()
			g.log.Info().Str("channel", name).Msg("channel ingress started")
			for msg := range stream {
				msgWG.Add(1)
				go func(m store.IncomingMessage) {
					defer msgWG.Done()
					g.pipeline.Dispatch(loopCtx, m)
				}(msg)
			}
		}(name, stream)
	}

	wg.Add(3)
	go func() { defer wg.Done(); g.scheduler.Run(loopCtx) }()
	go func() { defer wg.Done(); g.heartbeat.Run(loopCtx) }()
	go func() { defer wg.Done(); g.summarizer.Run(loopCtx) }()

	webhookErr := make(chan error, 1)
	go func() { webhookErr <- g.webhook.Run(loopCtx, g.cfg.Webhook.Listen) }()

	g.log.Info().Msg("gateway running")
	select {
	case <-ctx.Done():
	case err := <-webhookErr:
		if err != nil {
			g.log.Error().Err(err).Msg("webhook server failed")
		}
	}

	g.log.Info().Msg("shutting down")
	cancelLoops()
	msgWG.Wait()
	wg.Wait()

	// Summarize with a fresh context: the run context is already
	// cancelled, but active conversations must not be left open.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	g.summarizer.SummarizeAll(shutdownCtx)

	for _, name := range g.channels.Names() {
		if err := g.channels.Get(name).Stop(); err != nil {
			g.log.Warn().Err(err).Str("channel", name).Msg("stopping channel")
		}
	}
	g.log.Info().Msg("gateway stopped")
	return nil
}

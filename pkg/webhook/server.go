// Package webhook implements the HTTP shim (C10): an auth-gated
// endpoint that either delivers text straight to a channel or
// synthesizes an IncomingMessage and pushes it through the message
// pipeline, plus health and WhatsApp-pairing endpoints.
package webhook

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/omega-agent/omega/pkg/channel"
	"github.com/omega-agent/omega/pkg/config"
	"github.com/omega-agent/omega/pkg/shared/media"
	"github.com/omega-agent/omega/pkg/shared/stringutil"
	"github.com/omega-agent/omega/pkg/store"
)

const maxBodyBytes = 1 << 20 // 1 MiB

// Server is the webhook HTTP surface.
type Server struct {
	Channels    *channel.Registry
	ChannelAuth map[string]config.ChannelConfig
	BearerToken string
	Log         zerolog.Logger
	StartedAt   time.Time

	// Enqueue pushes an AI-mode message into the pipeline; wired to
	// pipeline.Dispatch on a fresh goroutine by the gateway.
	Enqueue func(msg store.IncomingMessage)

	httpServer *http.Server
}

// request is the /api/webhook body.
type request struct {
	Source     string `json:"source"`
	Message    string `json:"message"`
	Mode       string `json:"mode"`
	Channel    string `json:"channel"`
	Target     string `json:"target"`
	Attachment string `json:"attachment"` // optional base64 or data URI
}

// Router builds the gin engine with all routes attached.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
		c.Next()
	})

	r.GET("/api/health", s.handleHealth)
	r.POST("/api/webhook", s.requireAuth, s.handleWebhook)
	r.POST("/api/pair", s.requireAuth, s.handlePair)
	r.GET("/api/pair/status", s.requireAuth, s.handlePairStatus)
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, listen string) error {
	s.httpServer = &http.Server{Addr: listen, Handler: s.Router()}
	errCh := make(chan error, 1)
	go func() {
		s.Log.Info().Str("listen", listen).Msg("webhook server started")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

// requireAuth enforces the bearer token with a constant-time
// comparison. An empty configured token disables auth.
func (s *Server) requireAuth(c *gin.Context) {
	if s.BearerToken == "" {
		return
	}
	header := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.BearerToken)) != 1 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(s.StartedAt).Round(time.Second).String(),
	})
}

func (s *Server) handleWebhook(c *gin.Context) {
	var req request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	ch := s.resolveChannel(req.Channel)
	if ch == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no channel available"})
		return
	}
	target := stringutil.FirstNonEmpty(req.Target, s.defaultTarget(ch.Name()))

	switch req.Mode {
	case "direct":
		err := ch.Send(c.Request.Context(), store.OutgoingMessage{Text: req.Message, ReplyTarget: target})
		if err != nil {
			s.Log.Error().Err(err).Str("channel", ch.Name()).Msg("webhook direct send")
			c.JSON(http.StatusBadGateway, gin.H{"error": "channel send failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "sent", "channel": ch.Name()})

	case "ai", "":
		requestID := uuid.NewString()
		msg := store.IncomingMessage{
			ID:            requestID,
			Channel:       ch.Name(),
			SenderID:      target,
			Text:          "[webhook:" + req.Source + "] " + req.Message,
			Timestamp:     time.Now(),
			ReplyTarget:   target,
			WebhookSource: req.Source,
		}
		if att, ok := s.decodeAttachment(req.Attachment); ok {
			msg.Attachments = append(msg.Attachments, att)
		}
		if s.Enqueue == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "pipeline unavailable"})
			return
		}
		s.Enqueue(msg)
		c.JSON(http.StatusAccepted, gin.H{"request_id": requestID})

	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be \"direct\" or \"ai\""})
	}
}

// decodeAttachment turns an optional base64/data-URI payload into an
// inbound attachment, typed from its mime prefix.
func (s *Server) decodeAttachment(raw string) (store.Attachment, bool) {
	if strings.TrimSpace(raw) == "" {
		return store.Attachment{}, false
	}
	data, mimeType, err := media.DecodeBase64(raw)
	if err != nil {
		s.Log.Warn().Err(err).Msg("webhook attachment decode failed")
		return store.Attachment{}, false
	}
	attType := "document"
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		attType = "image"
	case strings.HasPrefix(mimeType, "audio/"):
		attType = "audio"
	}
	return store.Attachment{Data: data, Type: attType}, true
}

// resolveChannel picks the named channel, or the default preference
// order (telegram > whatsapp) when the request names none.
func (s *Server) resolveChannel(name string) channel.Channel {
	if name != "" {
		return s.Channels.Get(name)
	}
	return s.Channels.Default()
}

// defaultTarget is the first entry of the selected channel's
// allow-list.
func (s *Server) defaultTarget(channelName string) string {
	if cfg, ok := s.ChannelAuth[channelName]; ok && len(cfg.AllowList) > 0 {
		return cfg.AllowList[0]
	}
	return ""
}

func (s *Server) handlePair(c *gin.Context) {
	wa := s.Channels.WhatsApp()
	if wa == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no WhatsApp channel configured"})
		return
	}
	pairCtx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()
	qr, err := wa.RestartPairing(pairCtx)
	if err != nil {
		s.Log.Error().Err(err).Msg("whatsapp pairing restart")
		c.JSON(http.StatusBadGateway, gin.H{"error": "pairing failed"})
		return
	}
	png, err := qrcode.Encode(qr, qrcode.Medium, 256)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "QR encode failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"qr_png": base64.StdEncoding.EncodeToString(png)})
}

// handlePairStatus long-polls pairing completion for up to 60 seconds.
func (s *Server) handlePairStatus(c *gin.Context) {
	wa := s.Channels.WhatsApp()
	if wa == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no WhatsApp channel configured"})
		return
	}
	deadline := time.Now().Add(60 * time.Second)
	for {
		paired, err := wa.PairStatus(c.Request.Context())
		if err == nil && paired {
			c.JSON(http.StatusOK, gin.H{"paired": true})
			return
		}
		if time.Now().After(deadline) || c.Request.Context().Err() != nil {
			c.JSON(http.StatusOK, gin.H{"paired": false})
			return
		}
		time.Sleep(time.Second)
	}
}

package pipeline

import (
	"context"
	"time"

	"github.com/omega-agent/omega/pkg/channel"
	"github.com/omega-agent/omega/pkg/i18n"
	"github.com/omega-agent/omega/pkg/store"
)

const (
	typingInterval  = 5 * time.Second
	firstNudgeAfter = 20 * time.Second
	nudgeInterval   = 45 * time.Second
	maxNudges       = 3
)

// startTypingAndNudges emits the initial typing action, then keeps the
// indicator alive every 5 seconds and posts up to three localized
// progress nudges (one "thinking" at 20s, then "still on it" every 45s)
// until the returned stop function is called.
func startTypingAndNudges(ctx context.Context, ch channel.Channel, target, language string) (stop func()) {
	done := make(chan struct{})
	_ = ch.SendTyping(ctx, target)

	go func() {
		typing := time.NewTicker(typingInterval)
		defer typing.Stop()
		nudge := time.NewTimer(firstNudgeAfter)
		defer nudge.Stop()
		nudges := 0
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-typing.C:
				_ = ch.SendTyping(ctx, target)
			case <-nudge.C:
				if nudges >= maxNudges {
					continue
				}
				key := "thinking"
				if nudges > 0 {
					key = "still_on_it"
				}
				_ = ch.Send(ctx, store.OutgoingMessage{Text: i18n.T(key, language), ReplyTarget: target})
				nudges++
				if nudges < maxNudges {
					nudge.Reset(nudgeInterval)
				}
			}
		}
	}()

	var once bool
	return func() {
		if !once {
			once = true
			close(done)
		}
	}
}

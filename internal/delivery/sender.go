package delivery

import (
	"context"
	"fmt"

	"insightbot/internal/feed"
	"insightbot/internal/render"
	"insightbot/pkg/logx"
)

// Config controls representation selection.
type Config struct {
	// UseImageOverlay enables the composited-card representation.
	UseImageOverlay bool

	// InsightBaseURL is the public site root for per-item links.
	InsightBaseURL string
}

// Sender delivers one insight, walking the representation chain
// composite -> photo-by-reference -> text until one attempt succeeds.
//
// Every step is recoverable: a failed compose or a rejected send falls
// through to the next simpler shape. Only when the plain-text attempt
// also fails does Deliver return an error, and even then the caller just
// skips the item rather than aborting the batch.
type Sender struct {
	msg      Messenger
	renderer render.Renderer // nil disables the composite representation
	cfg      Config
	log      logx.Logger
}

func NewSender(msg Messenger, renderer render.Renderer, cfg Config, log logx.Logger) *Sender {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Sender{msg: msg, renderer: renderer, cfg: cfg, log: log}
}

type attempt struct {
	rep     Representation
	bgKind  string
	bgValue string
	send    func(ctx context.Context) (MessageRef, error)
}

func (s *Sender) Deliver(ctx context.Context, in feed.Insight) (Receipt, error) {
	attempts := s.plan(in)

	var lastErr error
	for _, a := range attempts {
		ref, err := a.send(ctx)
		if err != nil {
			lastErr = err
			s.log.Warn("representation failed",
				logx.String("id", in.ID),
				logx.String("representation", a.rep.String()),
				logx.Err(err))
			continue
		}
		return Receipt{
			Representation:  a.rep,
			Ref:             ref,
			BackgroundKind:  a.bgKind,
			BackgroundValue: a.bgValue,
		}, nil
	}
	return Receipt{}, fmt.Errorf("all representations failed for %s: %w", in.ID, lastErr)
}

// plan orders the representations worth trying for this item. The text
// attempt is always present, so the chain can only be empty for an empty
// item, which the feed does not produce.
func (s *Sender) plan(in feed.Insight) []attempt {
	var out []attempt

	if s.cfg.UseImageOverlay && s.renderer != nil {
		kind, value := backgroundMeta(in)
		out = append(out, attempt{
			rep:     RepComposite,
			bgKind:  kind,
			bgValue: value,
			send: func(ctx context.Context) (MessageRef, error) {
				data, err := s.renderer.Compose(ctx, in)
				if err != nil {
					return MessageRef{}, err
				}
				return s.msg.SendPhotoData(ctx, data, photoCaption(in, s.cfg.InsightBaseURL))
			},
		})
	}

	if u := in.PhotoURL(); u != "" {
		out = append(out, attempt{
			rep:     RepPhoto,
			bgKind:  "image",
			bgValue: u,
			send: func(ctx context.Context) (MessageRef, error) {
				return s.msg.SendPhotoURL(ctx, u, photoCaption(in, s.cfg.InsightBaseURL))
			},
		})
	}

	out = append(out, attempt{
		rep: RepText,
		send: func(ctx context.Context) (MessageRef, error) {
			return s.msg.SendText(ctx, messageText(in, s.cfg.InsightBaseURL))
		},
	})
	return out
}

func backgroundMeta(in feed.Insight) (kind, value string) {
	switch {
	case in.Background == "":
		return "color", "" // renderer falls back to its configured color
	case in.BackgroundIsColor():
		return "color", in.Background
	default:
		return "image", in.Background
	}
}

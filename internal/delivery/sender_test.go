package delivery

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"insightbot/internal/feed"
	"insightbot/pkg/logx"
)

type fakeMessenger struct {
	texts     []string
	photoURLs []string
	uploads   int

	failText  bool
	failPhoto bool
	failData  bool
}

func (m *fakeMessenger) SendText(ctx context.Context, text string) (MessageRef, error) {
	if m.failText {
		return MessageRef{}, errors.New("text rejected")
	}
	m.texts = append(m.texts, text)
	return MessageRef{MessageID: 1}, nil
}

func (m *fakeMessenger) SendPhotoURL(ctx context.Context, photoURL, caption string) (MessageRef, error) {
	if m.failPhoto {
		return MessageRef{}, errors.New("photo rejected")
	}
	m.photoURLs = append(m.photoURLs, photoURL)
	return MessageRef{MessageID: 2}, nil
}

func (m *fakeMessenger) SendPhotoData(ctx context.Context, data []byte, caption string) (MessageRef, error) {
	if m.failData {
		return MessageRef{}, errors.New("upload rejected")
	}
	m.uploads++
	return MessageRef{MessageID: 3}, nil
}

type fakeRenderer struct {
	err error
}

func (r *fakeRenderer) Compose(ctx context.Context, in feed.Insight) ([]byte, error) {
	if r.err != nil {
		return nil, r.err
	}
	return []byte("png"), nil
}

func testInsight() feed.Insight {
	return feed.Insight{
		ID:          "ins-1",
		Text:        "Compound interest is patient money",
		PublishedAt: time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC),
		Background:  "https://example.com/bg.jpg",
		ReadTime:    "2 min",
	}
}

func TestDeliverCompositePreferred(t *testing.T) {
	m := &fakeMessenger{}
	s := NewSender(m, &fakeRenderer{}, Config{UseImageOverlay: true}, logx.Nop())

	got, err := s.Deliver(context.Background(), testInsight())
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if got.Representation != RepComposite {
		t.Fatalf("representation = %s, want composite", got.Representation)
	}
	if m.uploads != 1 || len(m.photoURLs) != 0 || len(m.texts) != 0 {
		t.Fatalf("expected a single upload, got %+v", m)
	}
	if got.BackgroundKind != "image" || got.BackgroundValue != "https://example.com/bg.jpg" {
		t.Fatalf("unexpected background meta: %+v", got)
	}
}

func TestDeliverFallsBackToPhotoWhenComposeFails(t *testing.T) {
	m := &fakeMessenger{}
	s := NewSender(m, &fakeRenderer{err: errors.New("font exploded")}, Config{UseImageOverlay: true}, logx.Nop())

	got, err := s.Deliver(context.Background(), testInsight())
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if got.Representation != RepPhoto {
		t.Fatalf("representation = %s, want photo", got.Representation)
	}
	if len(m.photoURLs) != 1 || m.photoURLs[0] != "https://example.com/bg.jpg" {
		t.Fatalf("photo fallback not used: %+v", m)
	}
}

func TestDeliverFallsBackToText(t *testing.T) {
	// Composite disabled, photo send rejected: text is the last resort.
	m := &fakeMessenger{failPhoto: true}
	s := NewSender(m, nil, Config{UseImageOverlay: true, InsightBaseURL: "https://site.example"}, logx.Nop())

	got, err := s.Deliver(context.Background(), testInsight())
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if got.Representation != RepText {
		t.Fatalf("representation = %s, want text", got.Representation)
	}
	if len(m.texts) != 1 || !strings.Contains(m.texts[0], "https://site.example/insights/ins-1") {
		t.Fatalf("text body missing link: %q", m.texts)
	}
}

func TestDeliverAllRepresentationsFail(t *testing.T) {
	m := &fakeMessenger{failText: true, failPhoto: true, failData: true}
	s := NewSender(m, &fakeRenderer{}, Config{UseImageOverlay: true}, logx.Nop())

	if _, err := s.Deliver(context.Background(), testInsight()); err == nil {
		t.Fatal("expected error when every representation fails")
	}
}

func TestDeliverSkipsPhotoWithoutReference(t *testing.T) {
	m := &fakeMessenger{}
	in := testInsight()
	in.Background = "#112233" // color token, not a photo URL
	s := NewSender(m, nil, Config{UseImageOverlay: false}, logx.Nop())

	got, err := s.Deliver(context.Background(), in)
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if got.Representation != RepText || len(m.photoURLs) != 0 {
		t.Fatalf("expected straight-to-text, got %+v / %+v", got, m)
	}
}

func TestMessageTextEscapesUpstreamContent(t *testing.T) {
	in := testInsight()
	in.Text = "a < b & c"
	body := messageText(in, "https://site.example")
	if !strings.Contains(body, "a &lt; b &amp; c") {
		t.Fatalf("upstream text not escaped: %q", body)
	}
	if !strings.Contains(body, "⏱ 2 min") {
		t.Fatalf("read time missing: %q", body)
	}
}

func TestPhotoCaptionFallsBackToTruncatedText(t *testing.T) {
	in := testInsight()
	in.ReadTime = ""
	caption := photoCaption(in, "")
	if caption != in.Text {
		t.Fatalf("caption = %q, want item text", caption)
	}

	in.Text = strings.Repeat("x", 3000)
	caption = photoCaption(in, "")
	if n := utf8.RuneCountInString(caption); n != 1024 {
		t.Fatalf("caption = %d chars, want 1024", n)
	}
	if !strings.HasSuffix(caption, "…") {
		t.Fatal("truncated caption should end with ellipsis")
	}

	// Multibyte text gets the full character budget, not a byte budget.
	in.Text = strings.Repeat("é", 2000)
	caption = photoCaption(in, "")
	if n := utf8.RuneCountInString(caption); n != 1024 {
		t.Fatalf("multibyte caption = %d chars, want 1024", n)
	}
	if !strings.HasSuffix(caption, "é…") {
		t.Fatal("multibyte caption should keep whole characters before the ellipsis")
	}
}

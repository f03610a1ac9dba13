package schedule

import (
	"testing"
	"time"
)

func TestParseVariants(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		raw   string
		kind  Kind
		cron  string
		every time.Duration
	}{
		{name: "cron", raw: "*/10 * * * *", kind: KindCron, cron: "*/10 * * * *"},
		{name: "descriptor", raw: "@hourly", kind: KindCron, cron: "@hourly"},
		{name: "prefixed cron", raw: "cron:0 9 * * 1-5", kind: KindCron, cron: "0 9 * * 1-5"},
		{name: "duration", raw: "30m", kind: KindInterval, every: 30 * time.Minute},
		{name: "prefixed interval", raw: "every:2h15m", kind: KindInterval, every: 2*time.Hour + 15*time.Minute},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.raw)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.raw, err)
			}
			if got.Kind != tt.kind {
				t.Fatalf("Kind = %v, want %v", got.Kind, tt.kind)
			}
			if tt.kind == KindCron && got.Cron != tt.cron {
				t.Fatalf("Cron = %q, want %q", got.Cron, tt.cron)
			}
			if tt.kind == KindInterval && got.Every != tt.every {
				t.Fatalf("Every = %v, want %v", got.Every, tt.every)
			}
		})
	}
}

func TestParseInvalid(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{"", "  ", "not-a-schedule", "every:", "cron:", "-5m", "every:0s"} {
		if _, err := Parse(raw); err == nil {
			t.Fatalf("Parse(%q) should fail", raw)
		}
	}
}

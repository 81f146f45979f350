package game

import (
	"context"
	"testing"
)

func TestScriptedInputTicksOnQuitPolls(t *testing.T) {
	in := &ScriptedInput{JumpTicks: map[int]bool{0: true, 2: true}}
	want := []bool{true, false, true, false}
	for tick, jump := range want {
		if in.Quit() {
			t.Fatalf("tick %d: unexpected quit", tick)
		}
		// Asking twice in the same tick must not skip the next one.
		if got := in.Jump(); got != jump {
			t.Errorf("tick %d: Jump = %v, want %v", tick, got, jump)
		}
		if got := in.Jump(); got != jump {
			t.Errorf("tick %d: second Jump = %v, want %v", tick, got, jump)
		}
		if in.Tick() != tick {
			t.Errorf("Tick = %d, want %d", in.Tick(), tick)
		}
	}
}

func TestScriptedInputFollowsEpisodeTicks(t *testing.T) {
	tests := []struct {
		name      string
		variant   string
		mode      Mode
		wantJumps int
	}{
		{"manual", "demo", ModeManual, 3},
		// Jumps are never asked for, but the script still advances.
		{"ai", "demo", ModeAI, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			opts := variantOptions(t, cfg, tt.variant)
			opts.Mode = tt.mode
			opts.MaxTicks = 30

			ep := NewEpisode(cfg, opts, testSprites(t, cfg))
			ep.AddBird(0, constDecider(0), nil)
			in := &ScriptedInput{JumpTicks: EveryN(10, 30)}
			ep.SetInput(in)
			rec := &recorder{}
			ep.Attach(rec)

			res := ep.Run(context.Background(), nil)
			t.Logf("reason=%s ticks=%d script tick=%d", res.Reason, res.Ticks, in.Tick())
			if in.Tick() != res.Ticks-1 {
				t.Errorf("script tick = %d, want %d", in.Tick(), res.Ticks-1)
			}
			jumps := 0
			for _, f := range rec.frames {
				jumps += f.Events.Jumps
			}
			if jumps != tt.wantJumps {
				t.Errorf("jumps = %d, want %d", jumps, tt.wantJumps)
			}
		})
	}
}

func TestScriptedInputCarriesAcrossEpisodes(t *testing.T) {
	cfg := testConfig(t)
	in := &ScriptedInput{JumpTicks: map[int]bool{12: true}}

	ai := variantOptions(t, cfg, "demo")
	ai.Mode = ModeAI
	ai.MaxTicks = 10
	first := NewEpisode(cfg, ai, testSprites(t, cfg))
	first.AddBird(0, constDecider(0), nil)
	first.SetInput(in)
	if res := first.Run(context.Background(), nil); res.Ticks != 10 {
		t.Fatalf("first episode ran %d ticks, want 10", res.Ticks)
	}

	manual := variantOptions(t, cfg, "demo")
	manual.MaxTicks = 5
	second := NewEpisode(cfg, manual, testSprites(t, cfg))
	second.AddBird(0, nil, nil)
	second.SetInput(in)
	rec := &recorder{}
	second.Attach(rec)
	second.Run(context.Background(), nil)

	// Script tick 12 is the third tick of the second episode.
	jumps := 0
	for _, f := range rec.frames {
		if f.Events.Jumps > 0 {
			t.Logf("jump published on frame tick %d", f.Tick)
		}
		jumps += f.Events.Jumps
	}
	if jumps != 1 {
		t.Errorf("jumps = %d, want the single scripted jump", jumps)
	}
}

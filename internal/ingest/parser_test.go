package ingest

import (
	"strings"
	"testing"
	"time"
)

const sampleCSV = `
"Legs · Day 2 · Week 4 · Push-Pull-Legs";"2026-02-19 4:54 h";"1:02 hr"
"1. Hack Squats · Machine · 8 reps";"WU1 · 37,5 kg · 9 reps<br>WU2 · 72,5 kg · 7 reps"
#;KG;REPS;RIR
1;115;8;1
2;115;10;1
3;115;10;1
"2. Sumo Squats · Smith machine · 10 reps";"WU1 · 35 kg · 8 reps"
#;KG;REPS;RIR
1;70;8;1
2;70;12;0,5
"3. Hyperextensions on Roman Chair · Bodyweight · 10 reps";"WU1 · +0 kg · 8 reps"
#;KG;REPS;RIR
1;+35;10;0
2;+35;9;1
"4. Hanging Leg Raises · Bodyweight · 12 reps · 2 dropsets"
#;KG;REPS;RIR
1;+0;12;1
2;+0;12;

"Push · Day 1 · Week 4 · Push-Pull-Legs";"2026-02-17 17:04 h";"45 min"
"1. Bench Press · Barbell · 6 reps";"WU1 · 22,5 kg · 10 reps<br>WU2 · 47,5 kg · 8 reps"
#;KG;REPS;RIR
1;102,5;6;0
2;102,5;6;0
3;100;6;0
`

// TestParseSessions covers a two-session export end to end.
func TestParseSessions(t *testing.T) {
	sessions, err := Parse(strings.NewReader(sampleCSV), nil)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("sessions = %d, want 2", len(sessions))
	}

	legs := sessions[0]
	if legs.Name != "Legs · Day 2 · Week 4 · Push-Pull-Legs" {
		t.Errorf("name = %q", legs.Name)
	}
	if want := time.Date(2026, 2, 19, 4, 54, 0, 0, time.UTC); !legs.Date.Equal(want) {
		t.Errorf("date = %v, want %v", legs.Date, want)
	}
	if legs.Duration != 62*time.Minute {
		t.Errorf("duration = %v, want 1h2m", legs.Duration)
	}
	if len(legs.Exercises) != 4 {
		t.Fatalf("exercises = %d, want 4", len(legs.Exercises))
	}

	hack := legs.Exercises[0]
	if hack.Name != "Hack Squats" || hack.Equipment != "Machine" || hack.TargetReps != 8 {
		t.Errorf("hack squats header = %+v", hack)
	}
	if len(hack.Sets) != 5 {
		t.Errorf("hack squat sets = %d, want 5 (2 warmup + 3 working)", len(hack.Sets))
	}
	if got := len(hack.WorkingSets()); got != 3 {
		t.Errorf("working sets = %d, want 3", got)
	}
	if !hack.Sets[0].Warmup || hack.Sets[0].Weight != 37.5 {
		t.Errorf("first warmup = %+v, want 37.5 kg warmup", hack.Sets[0])
	}

	sumo := legs.Exercises[1]
	if sumo.Equipment != "Smith machine" {
		t.Errorf("equipment = %q, want Smith machine", sumo.Equipment)
	}
	last := sumo.Sets[len(sumo.Sets)-1]
	if last.RIR == nil || *last.RIR != 0.5 {
		t.Errorf("fractional rir = %v, want 0.5", last.RIR)
	}

	hyper := legs.Exercises[2]
	if hyper.Name != "Hyperextensions on Roman Chair" {
		t.Errorf("name = %q", hyper.Name)
	}
	if s := hyper.WorkingSets()[0]; !s.Bodyweight || s.Weight != 35 {
		t.Errorf("bodyweight-plus set = %+v, want +35", s)
	}

	raises := legs.Exercises[3]
	if raises.TargetReps != 12 {
		t.Errorf("target reps with modifier = %d, want 12", raises.TargetReps)
	}
	if raises.Sets[1].RIR != nil {
		t.Errorf("missing rir = %v, want nil", *raises.Sets[1].RIR)
	}

	push := sessions[1]
	if push.Duration != 45*time.Minute {
		t.Errorf("duration = %v, want 45m", push.Duration)
	}
	if push.Date.Hour() != 17 {
		t.Errorf("hour = %d, want 17", push.Date.Hour())
	}
}

// TestParseLocation verifies that session times are read in the given zone.
func TestParseLocation(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	sessions, err := Parse(strings.NewReader(sampleCSV), loc)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if got := sessions[0].Date.UTC().Hour(); got != 3 {
		t.Errorf("UTC hour = %d, want 3", got)
	}
}

// TestParseErrors verifies structural errors carry the line number.
func TestParseErrors(t *testing.T) {
	tests := []struct {
		name, input, want string
	}{
		{"set before exercise", "\"S\";\"2026-02-19 4:54 h\";\"1:00 hr\"\n1;100;5;1\n", "line 2"},
		{"exercise before session", "\"1. Bench Press · Barbell · 6 reps\"\n", "line 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input), nil)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

// TestParseEmpty verifies that empty input yields no sessions.
func TestParseEmpty(t *testing.T) {
	sessions, err := Parse(strings.NewReader(""), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("sessions = %d, want 0", len(sessions))
	}
}

func TestParseWeight(t *testing.T) {
	tests := []struct {
		in     string
		weight float64
		bw     bool
	}{
		{"102,5", 102.5, false},
		{"+35", 35, true},
		{"+0", 0, true},
		{"80", 80, false},
	}
	for _, tt := range tests {
		w, bw := parseWeight(tt.in)
		if w != tt.weight || bw != tt.bw {
			t.Errorf("parseWeight(%q) = (%v, %v), want (%v, %v)", tt.in, w, bw, tt.weight, tt.bw)
		}
	}
}

func TestParseDuration(t *testing.T) {
	tests := map[string]time.Duration{
		"1:02 hr": 62 * time.Minute,
		"0:45 h":  45 * time.Minute,
		"50 min":  50 * time.Minute,
		"n/a":     0,
	}
	for in, want := range tests {
		if got := parseDuration(in); got != want {
			t.Errorf("parseDuration(%q) = %v, want %v", in, got, want)
		}
	}
}

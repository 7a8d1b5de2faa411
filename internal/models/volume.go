package models

import "time"

// VolumeSnapshot is the weekly hard-set count per muscle group.
// It is derived from sets and never stored as a source of truth.
type VolumeSnapshot struct {
	VolumeByGroup map[string]int `json:"volumeByGroup" yaml:"volumeByGroup"`
	TotalSets     int            `json:"totalSets" yaml:"totalSets"`
	TargetSets    int            `json:"targetSets" yaml:"targetSets"`
	WeekStart     time.Time      `json:"weekStart" yaml:"weekStart"`
}

// DeloadRecommendation says whether the user should deload and why.
type DeloadRecommendation struct {
	ShouldDeload  bool    `json:"shouldDeload" yaml:"shouldDeload"`
	Reason        *string `json:"reason" yaml:"reason"`
	CurrentWeek   int     `json:"currentWeek" yaml:"currentWeek"`
	TotalWeeks    int     `json:"totalWeeks" yaml:"totalWeeks"`
	MesocycleName string  `json:"mesocycleName" yaml:"mesocycleName"`
}

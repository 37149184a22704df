// pkg/core/battle.go
package core

import "time"

// Battle describes one simulation run.
type Battle struct {
	ID        uint          `json:"id"`
	Name      string        `json:"name"`
	MapName   string        `json:"mapName"`
	Width     int           `json:"width"`
	Height    int           `json:"height"`
	StartTime time.Time     `json:"startTime"`
	TickRate  time.Duration `json:"tickRate"`
	Seed      int64         `json:"seed"`
	Tag       string        `json:"tag"`
}

// BattleSummary is written when a battle ends.
type BattleSummary struct {
	EndTime    time.Time     `json:"endTime"`
	Ticks      uint64        `json:"ticks"`
	Events     uint64        `json:"events"`
	Survivors  map[Side]int  `json:"survivors"`
	Casualties map[Side]int  `json:"casualties"`
	Duration   time.Duration `json:"duration"`
	Reason     string        `json:"reason"`
}

// UploadMetadata describes an exported replay for upload.
type UploadMetadata struct {
	BattleName string
	MapName    string
	Duration   float64
	Tag        string
}

// StepSample is a periodic reading of the simulation loop.
type StepSample struct {
	Time     time.Time
	Tick     uint64
	Step     time.Duration
	Entities int
	Alive    int
	Pending  int
	Dropped  uint64
	Events   uint64
}

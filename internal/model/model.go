package model

import (
	"database/sql"
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&Battle{},
	&Entity{},
	&Event{},
	&StepStat{},
}

// Battle is one simulation run.
type Battle struct {
	gorm.Model
	Name       string         `json:"name" gorm:"size:128"`
	MapName    string         `json:"mapName" gorm:"size:128"`
	Width      int            `json:"width"`
	Height     int            `json:"height"`
	Tag        string         `json:"tag" gorm:"size:64"`
	Seed       int64          `json:"seed"`
	TickRateMs float32        `json:"tickRateMs"`
	StartTime  time.Time      `json:"startTime"`
	EndTime    sql.NullTime   `json:"endTime" gorm:"default:NULL"`
	Ticks      uint64         `json:"ticks"`
	EventCount uint64         `json:"eventCount"`
	Reason     string         `json:"reason" gorm:"size:32"`
	Survivors  datatypes.JSON `json:"survivors"`  // side -> count
	Casualties datatypes.JSON `json:"casualties"` // side -> count
}

func (*Battle) TableName() string {
	return "battles"
}

// Entity is a unit spawned into a battle.
//
// Track is filled when the battle ends and holds every tile the entity
// stood on, in order.
type Entity struct {
	ID            uint            `json:"id" gorm:"primarykey;autoIncrement;"`
	BattleID      uint            `json:"battleId" gorm:"index:idx_entity_battle_id"`
	Battle        Battle          `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:BattleID;"`
	ObjectID      uint16          `json:"objectId" gorm:"index:idx_entity_object_id"`
	SpawnTick     uint64          `json:"spawnTick"`
	SpawnTime     time.Time       `json:"spawnTime"`
	Name          string          `json:"name" gorm:"size:64"`
	Kind          string          `json:"kind" gorm:"size:16"`
	Side          string          `json:"side" gorm:"size:16"`
	Weapon        string          `json:"weapon" gorm:"size:64"`
	SpawnPosition geom.Point      `json:"spawnPosition"`
	Direction     float32         `json:"direction"`
	Alive         bool            `json:"alive" gorm:"default:true"`
	DeathTick     sql.NullInt64   `json:"deathTick" gorm:"default:NULL"`
	Track         geom.LineString `json:"track"`
}

func (*Entity) TableName() string {
	return "entities"
}

// Event is one simulation event. Position is the tile the event points at
// when it has one. Payload holds the full event as JSON.
type Event struct {
	ID        uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	Time      time.Time      `json:"time"`
	BattleID  uint           `json:"battleId" gorm:"index:idx_event_battle_id"`
	Battle    Battle         `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:BattleID;"`
	Tick      uint64         `json:"tick" gorm:"index:idx_event_tick"`
	Type      string         `json:"type" gorm:"size:32;index:idx_event_type"`
	SubjectID uint16         `json:"subjectId" gorm:"index:idx_event_subject_id"`
	TargetID  sql.NullInt32  `json:"targetId" gorm:"default:NULL"`
	Position  geom.Point     `json:"position"`
	Payload   datatypes.JSON `json:"payload"`
}

func (*Event) TableName() string {
	return "events"
}

// StepStat samples the simulation loop.
type StepStat struct {
	Time       time.Time `json:"time" gorm:"index:idx_stepstat_time"`
	BattleID   uint      `json:"battleId" gorm:"index:idx_stepstat_battle_id"`
	Battle     Battle    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:BattleID;"`
	Tick       uint64    `json:"tick"`
	StepMs     float32   `json:"stepMs"`
	Entities   int       `json:"entities"`
	Alive      int       `json:"alive"`
	Pending    int       `json:"pending"`
	Dropped    uint64    `json:"dropped"`
	EventCount uint64    `json:"eventCount"`
}

func (*StepStat) TableName() string {
	return "step_stats"
}

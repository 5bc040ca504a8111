package model

import (
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
	&GeoanchorInfo{},
	&Session{},
	&DeviceSample{},
	&PlacementEvent{},
}

////////////////////////
// SYSTEM MODELS
////////////////////////

// GeoanchorInfo records the schema owner of the database
type GeoanchorInfo struct {
	gorm.Model
	AppName       string `json:"appName" gorm:"size:127"`
	SchemaVersion string `json:"schemaVersion" gorm:"size:32"`
}

func (*GeoanchorInfo) TableName() string {
	return "geoanchor_infos"
}

////////////////////////
// JOURNAL MODELS
////////////////////////

// Session is one run of the placement engine against a catalog
type Session struct {
	gorm.Model
	UUID        string    `json:"uuid" gorm:"size:36;uniqueIndex"`
	Name        string    `json:"name" gorm:"size:200"`
	CatalogName string    `json:"catalogName" gorm:"size:200"`
	AssetCount  int       `json:"assetCount"`
	StartTime   time.Time `json:"startTime" gorm:"index:idx_session_start"`
	EndTime     time.Time `json:"endTime"`
	Tag         string    `json:"tag" gorm:"size:127"`

	DeviceSamples   []DeviceSample
	PlacementEvents []PlacementEvent
}

func (*Session) TableName() string {
	return "sessions"
}

// DeviceSample journals one location fix and the gate decision
type DeviceSample struct {
	ID                 uint       `json:"id" gorm:"primarykey;autoIncrement;"`
	Time               time.Time  `json:"time"`
	SessionID          uint       `json:"sessionId" gorm:"index:idx_sample_session_id"`
	Session            Session    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	Tick               uint       `json:"tick" gorm:"index:idx_sample_tick"`
	Position           geom.Point `json:"position"`
	AltitudeValid      bool       `json:"altitudeValid"`
	HorizontalAccuracy float64    `json:"horizontalAccuracy"`
	VerticalAccuracy   float64    `json:"verticalAccuracy"`
	Floor              *int       `json:"floor"`
	Accepted           bool       `json:"accepted"`
	State              string     `json:"state" gorm:"size:32"`
	Placed             int        `json:"placed"`
}

func (*DeviceSample) TableName() string {
	return "device_samples"
}

// PlacementEvent journals one renderer command issued by the manager
type PlacementEvent struct {
	ID        uint       `json:"id" gorm:"primarykey;autoIncrement;"`
	Time      time.Time  `json:"time"`
	SessionID uint       `json:"sessionId" gorm:"index:idx_placement_session_id"`
	Session   Session    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	Tick      uint       `json:"tick" gorm:"index:idx_placement_tick"`
	Kind      string     `json:"kind" gorm:"size:16;index:idx_placement_kind"`
	AssetID   string     `json:"assetId" gorm:"size:64;index:idx_placement_asset_id"`
	AssetName string     `json:"assetName" gorm:"size:200"`
	Position  geom.Point `json:"position"`
	OffsetX   float64    `json:"offsetX"`
	OffsetY   float64    `json:"offsetY"`
	OffsetZ   float64    `json:"offsetZ"`
	// Translation is the position in virtual space, device pose included
	TranslationX float64        `json:"translationX"`
	TranslationY float64        `json:"translationY"`
	TranslationZ float64        `json:"translationZ"`
	Visual       datatypes.JSON `json:"visual"`
}

func (*PlacementEvent) TableName() string {
	return "placement_events"
}

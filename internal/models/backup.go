package models

import (
	"encoding/json"
	"time"
)

const EnvelopeVersion = "1.0"

// Envelope is the backup file format: one JSON object holding the raw
// value of every exported storage key.
type Envelope struct {
	Version   string                     `json:"version" validate:"required"`
	CreatedAt time.Time                  `json:"createdAt"`
	Data      map[string]json.RawMessage `json:"data" validate:"required"`
}

// Metadata holds per-entity counts extracted from a backup payload. A nil
// field means the expected shape was absent, not that the count is zero.
type Metadata struct {
	Customers       *int `json:"customers,omitempty" bson:"customers,omitempty"`
	Contracts       *int `json:"contracts,omitempty" bson:"contracts,omitempty"`
	SalesTargets    *int `json:"salesTargets,omitempty" bson:"salesTargets,omitempty"`
	Estimates       *int `json:"estimates,omitempty" bson:"estimates,omitempty"`
	NewVehicles     *int `json:"newVehicles,omitempty" bson:"newVehicles,omitempty"`
	UsedVehicles    *int `json:"usedVehicles,omitempty" bson:"usedVehicles,omitempty"`
	SalesReps       *int `json:"salesReps,omitempty" bson:"salesReps,omitempty"`
	SurveyResponses *int `json:"surveyResponses,omitempty" bson:"surveyResponses,omitempty"`
}

// BackupRecord is one row of the remote backup list.
type BackupRecord struct {
	ID        string    `json:"id" bson:"_id"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
	Payload   string    `json:"-" bson:"payload,omitempty"`
	SizeBytes int       `json:"sizeBytes" bson:"size_bytes"`
	Hash      string    `json:"dataHash" bson:"data_hash"`
	Metadata  Metadata  `json:"metadata" bson:"metadata"`
}

// BackupListResponse is the body of GET /api/backups.
type BackupListResponse struct {
	Success bool           `json:"success"`
	Backups []BackupRecord `json:"backups"`
}

// BackupSaveRequest is the body of POST /api/backups.
type BackupSaveRequest struct {
	Data       json.RawMessage `json:"data" binding:"required"`
	DataHash   string          `json:"dataHash,omitempty"`
	SkipIfSame bool            `json:"skipIfSame,omitempty"`
}

// BackupSaveResponse is the body returned by POST /api/backups.
type BackupSaveResponse struct {
	Success   bool      `json:"success"`
	Skipped   bool      `json:"skipped,omitempty"`
	BackupID  string    `json:"backupId,omitempty"`
	SizeBytes int       `json:"sizeBytes,omitempty"`
	DataHash  string    `json:"dataHash,omitempty"`
	Metadata  *Metadata `json:"metadata,omitempty"`
}

// BackupGetResponse is the body of GET /api/backups/:id.
type BackupGetResponse struct {
	Success bool            `json:"success"`
	Backup  BackupRecord    `json:"backup"`
	Data    json.RawMessage `json:"data"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Package models provides data model definitions for LiftLog.
package models

// SyncCredential holds the cloud mirror connection settings for this
// device. Keys are stored encrypted at rest; rows are local only.
type SyncCredential struct {
	ID                 UUID   `db:"id" json:"id"`
	Endpoint           string `db:"endpoint" json:"endpoint"`
	BucketName         string `db:"bucket_name" json:"bucket_name"`
	Region             string `db:"region" json:"region"`
	AccessKeyEncrypted string `db:"access_key_encrypted" json:"-"`
	SecretKeyEncrypted string `db:"secret_key_encrypted" json:"-"`
	ForcePathStyle     bool   `db:"force_path_style" json:"force_path_style"`
	IsEnabled          bool   `db:"is_enabled" json:"is_enabled"`
	CreatedAt          int64  `db:"created_at" json:"created_at"`
	UpdatedAt          int64  `db:"updated_at" json:"updated_at"`
}

// TableName returns the table name for SyncCredential.
func (SyncCredential) TableName() string {
	return "sync_credentials"
}

package transfer

import (
	"context"
	"errors"
	"time"
)

// Kind separates the two link flavors: the external party either uploads a
// file to us or downloads one we prepared.
type Kind string

const (
	KindUpload   Kind = "upload"
	KindDownload Kind = "download"
)

var (
	// ErrTempUserNotFound is returned for unknown or already-consumed
	// temporary accounts.
	ErrTempUserNotFound = errors.New("transfer: temp user not found")
	// ErrInvalidLink is returned when a transfer link fails validation.
	ErrInvalidLink = errors.New("transfer: invalid or expired link")
	// ErrKindMismatch is returned when a link is used for the opposite
	// direction, e.g. a download link trying to upload.
	ErrKindMismatch = errors.New("transfer: operation not allowed for this link")
)

// TempUser is the throwaway account backing one transfer link. The secret is
// stored as a bcrypt digest; the record is deleted once the transfer
// completes, which is what invalidates the link before its expiry.
type TempUser struct {
	ID          string
	Username    string
	SecretHash  string
	CompanyName string
	Kind        Kind
	FileName    string

	ExpiresAt time.Time
	CreatedAt time.Time
}

// Store persists temporary transfer accounts. Lookups for unknown accounts
// must return [ErrTempUserNotFound].
type Store interface {
	Create(ctx context.Context, user *TempUser) error
	GetByID(ctx context.Context, id string) (*TempUser, error)
	GetByUsername(ctx context.Context, username string) (*TempUser, error)
	Delete(ctx context.Context, id string) error
}

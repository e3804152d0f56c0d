package svcwatch

import (
	"context"
	"time"
)

// UserRecord is the full account record exchanged with [UserDirectory].
// It carries the credential digest, activity and privilege flags, and the
// TOTP enrollment state.
//
// IsTOTPEnabled and TOTPSecret together form a three-state machine: secret
// empty means TOTP was never initialized; secret set with the flag false
// means enrollment is pending confirmation; secret set with the flag true
// means every login owes a TOTP step-up.
type UserRecord struct {
	ID             string
	Username       string
	Email          string
	HashedPassword string

	IsActive    bool
	IsSuperuser bool
	CanEdit     bool

	IsTOTPEnabled bool
	TOTPSecret    string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserDirectory is the primary interface that callers must implement to
// integrate svcwatch with their user database. Lookups for unknown
// identifiers must return [ErrUserNotFound]; Create and Update must return
// [ErrEmailExists] on an email uniqueness violation.
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (*UserRecord, error)
	GetByEmail(ctx context.Context, email string) (*UserRecord, error)
	List(ctx context.Context, offset, limit int) ([]UserRecord, int, error)
	Create(ctx context.Context, user *UserRecord) error
	Update(ctx context.Context, user *UserRecord) error
	Delete(ctx context.Context, id string) error
}

// ServiceDirectory answers user/service association questions for the tiered
// privilege model. Unknown services must return [ErrServiceNotFound].
type ServiceDirectory interface {
	IsAssociated(ctx context.Context, userID, serviceID string) (bool, error)
}

// ServiceRecord describes a monitored service. Name and SubName are both
// unique across the fleet.
type ServiceRecord struct {
	ID      string
	Name    string
	SubName string

	CreatedAt time.Time
}

// ServiceConfig is the per-service alerting configuration. Every field is
// optional; empty strings mean "not configured".
type ServiceConfig struct {
	EmailFrom          string
	EmailCC            string
	EmailTo            string
	AlertEmailTitle    string
	AlertEmailBody     string
	RecoveryEmailTitle string
	RecoveryEmailBody  string
	SlackLink          string
	TeamsLink          string
}

// ServiceLogEntry is one monitoring probe result appended to a service's log.
type ServiceLogEntry struct {
	ID          int64
	ServiceID   string
	StartTime   time.Time
	EndTime     time.Time
	ElapsedTime float64
	IsOK        bool
	Screenshot  string
	Content     string
}

// ServiceStore is the persistence surface for the service fleet. It extends
// [ServiceDirectory] with the CRUD and association operations the HTTP layer
// needs. Unknown service identifiers must return [ErrServiceNotFound];
// Create must return [ErrServiceExists] on a name uniqueness violation.
type ServiceStore interface {
	ServiceDirectory

	List(ctx context.Context, offset, limit int) ([]ServiceRecord, int, error)
	ListByUser(ctx context.Context, userID string, offset, limit int) ([]ServiceRecord, int, error)
	GetByID(ctx context.Context, id string) (*ServiceRecord, error)
	Create(ctx context.Context, service *ServiceRecord) error
	Delete(ctx context.Context, id string) error

	// Users returns the accounts associated with a service.
	Users(ctx context.Context, serviceID string) ([]UserRecord, error)
	// UserServices returns the services a user is associated with.
	UserServices(ctx context.Context, userID string) ([]ServiceRecord, error)
	// ReplaceUserServices makes serviceIDs the user's exact association set,
	// adding and removing links as needed. Every id must name an existing
	// service or the whole call fails with [ErrServiceNotFound].
	ReplaceUserServices(ctx context.Context, userID string, serviceIDs []string) error
}

// ServiceConfigStore persists per-service alerting configuration. A service
// without a stored config must return [ErrServiceNotFound] from GetConfig.
type ServiceConfigStore interface {
	GetConfig(ctx context.Context, serviceID string) (*ServiceConfig, error)
	UpsertConfig(ctx context.Context, serviceID string, config *ServiceConfig) error
}

// ServiceLogStore persists monitoring log entries per service.
type ServiceLogStore interface {
	Logs(ctx context.Context, serviceID string, offset, limit int) ([]ServiceLogEntry, error)
	AppendLog(ctx context.Context, serviceID string, entry *ServiceLogEntry) error
}

// Mailer delivers the account emails the engine depends on: password reset
// links, first-login setup links, and account-created notices. Enabled
// reports whether outbound mail is configured; flows that require mail fail
// with [ErrMailDelivery] when it is not.
type Mailer interface {
	Enabled() bool
	SendPasswordReset(ctx context.Context, to, token string) error
	SendPasswordSetup(ctx context.Context, to, token string) error
	SendAccountCreated(ctx context.Context, to, username, token string) error
}

// TokenTypeBearer and TokenTypeTOTP are the two values of
// [LoginResult.TokenType]. A "totp" result carries a short-lived pending
// token that only the TOTP validation step accepts.
const (
	TokenTypeBearer = "bearer"
	TokenTypeTOTP   = "totp"
)

// LoginResult defines a public type used by svcwatch APIs.
//
// LoginResult instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type LoginResult struct {
	AccessToken  string
	TokenType    string
	RefreshToken string
	TOTPRequired bool
}

// TOTPSetup holds the base32-encoded TOTP secret and otpauth:// URI returned
// by [Engine.EnableTOTP].
type TOTPSetup struct {
	SecretBase32 string
	ProvisionURI string
}

// RegisterInput defines a public type used by svcwatch APIs.
//
// RegisterInput instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RegisterInput struct {
	Username    string
	Email       string
	IsActive    bool
	IsSuperuser bool
	CanEdit     bool
}

// UserUpdate carries a partial admin-side update. Nil fields are left
// untouched.
type UserUpdate struct {
	Username    *string
	Email       *string
	IsActive    *bool
	IsSuperuser *bool
	CanEdit     *bool
}

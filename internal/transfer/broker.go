package transfer

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/svcwatch/svcwatch/password"
	"github.com/svcwatch/svcwatch/token"
)

// ObjectAPI is the slice of the S3 client the broker calls directly.
type ObjectAPI interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// PresignAPI mints presigned requests; satisfied by *s3.PresignClient.
type PresignAPI interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Config holds the broker's bucket layout and link parameters.
type Config struct {
	Bucket string
	// Prefix is the parent directory for all transfer objects.
	Prefix string
	// LinkBaseURL is the public page external parties land on; the link
	// token is appended as a query parameter.
	LinkBaseURL string

	PutTTL time.Duration
	GetTTL time.Duration
}

// Broker coordinates temp accounts, link tokens, and presigned S3 traffic.
type Broker struct {
	config  Config
	store   Store
	tokens  *token.Manager
	hasher  *password.Bcrypt
	objects ObjectAPI
	presign PresignAPI
}

func NewBroker(cfg Config, store Store, tokens *token.Manager, hasher *password.Bcrypt, objects ObjectAPI, presign PresignAPI) *Broker {
	if cfg.Prefix == "" {
		cfg.Prefix = "transfer"
	}
	if cfg.PutTTL <= 0 {
		cfg.PutTTL = 15 * time.Minute
	}
	if cfg.GetTTL <= 0 {
		cfg.GetTTL = 30 * time.Second
	}
	return &Broker{
		config:  cfg,
		store:   store,
		tokens:  tokens,
		hasher:  hasher,
		objects: objects,
		presign: presign,
	}
}

// GenerateInput describes the link an operator wants to hand out.
type GenerateInput struct {
	CompanyName string
	Kind        Kind
	FileName    string
	Expiry      time.Duration
}

// Link is the generated URL plus the one-time credentials to share with the
// external party. The password is returned exactly once; only its bcrypt
// digest is stored.
type Link struct {
	URL      string
	Username string
	Password string
}

// GenerateURL creates a temp account and the link that activates it.
func (b *Broker) GenerateURL(ctx context.Context, in GenerateInput) (*Link, error) {
	if in.Kind != KindUpload && in.Kind != KindDownload {
		return nil, fmt.Errorf("transfer: unknown link kind %q", in.Kind)
	}
	if in.Expiry <= 0 {
		return nil, fmt.Errorf("transfer: expiry must be positive")
	}

	username, err := randomString(10)
	if err != nil {
		return nil, err
	}
	secret, err := randomString(16)
	if err != nil {
		return nil, err
	}
	digest, err := b.hasher.Hash(secret)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &TempUser{
		ID:          uuid.NewString(),
		Username:    username,
		SecretHash:  digest,
		CompanyName: in.CompanyName,
		Kind:        in.Kind,
		FileName:    in.FileName,
		ExpiresAt:   now.Add(in.Expiry),
		CreatedAt:   now,
	}
	if err := b.store.Create(ctx, user); err != nil {
		return nil, err
	}

	linkToken, err := b.tokens.IssueAction(user.ID, token.PurposeTransfer)
	if err != nil {
		return nil, err
	}
	return &Link{
		URL:      b.config.LinkBaseURL + "?token=" + linkToken,
		Username: username,
		Password: secret,
	}, nil
}

// ValidateURL reports whether a link is still usable: its token must not be
// expired and the temp account behind it must still exist. A consumed link
// fails the second check even inside the token's validity window.
func (b *Broker) ValidateURL(ctx context.Context, rawToken string) bool {
	id, err := b.tokens.ParseAction(rawToken, token.PurposeTransfer)
	if err != nil {
		return false
	}
	user, err := b.store.GetByID(ctx, id)
	if err != nil {
		return false
	}
	return time.Now().Before(user.ExpiresAt)
}

// Login exchanges the one-time credentials for a transfer token.
func (b *Broker) Login(ctx context.Context, username, secret string) (string, Kind, error) {
	user, err := b.store.GetByUsername(ctx, username)
	if err != nil {
		return "", "", ErrInvalidLink
	}
	if !b.hasher.Verify(secret, user.SecretHash) {
		return "", "", ErrInvalidLink
	}
	if time.Now().After(user.ExpiresAt) {
		return "", "", ErrInvalidLink
	}
	accessToken, err := b.tokens.IssueAction(user.ID, token.PurposeTransfer)
	if err != nil {
		return "", "", err
	}
	return accessToken, user.Kind, nil
}

// Authenticate resolves a transfer token back to its temp account.
func (b *Broker) Authenticate(ctx context.Context, rawToken string) (*TempUser, error) {
	id, err := b.tokens.ParseAction(rawToken, token.PurposeTransfer)
	if err != nil {
		return nil, ErrInvalidLink
	}
	user, err := b.store.GetByID(ctx, id)
	if err != nil {
		return nil, ErrInvalidLink
	}
	if time.Now().After(user.ExpiresAt) {
		return nil, ErrInvalidLink
	}
	return user, nil
}

// PresignInboundUpload gives an external party a PUT URL for their file and
// consumes the temp account, so the link works exactly once.
func (b *Broker) PresignInboundUpload(ctx context.Context, user *TempUser, fileName string) (string, error) {
	if user.Kind != KindUpload {
		return "", ErrKindMismatch
	}
	key := fmt.Sprintf("%s/from_customer/%s/%s", b.config.Prefix, user.CompanyName, fileName)
	req, err := b.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.config.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(b.config.PutTTL))
	if err != nil {
		return "", err
	}
	if err := b.store.Delete(ctx, user.ID); err != nil {
		return "", err
	}
	return req.URL, nil
}

// PresignOwnDownload gives an external party the GET URL for the file that
// was prepared for them and consumes the temp account.
func (b *Broker) PresignOwnDownload(ctx context.Context, user *TempUser) (string, error) {
	if user.Kind != KindDownload {
		return "", ErrKindMismatch
	}
	key := b.config.Prefix + "/" + user.FileName
	url, err := b.presignGet(ctx, key)
	if err != nil {
		return "", err
	}
	if err := b.store.Delete(ctx, user.ID); err != nil {
		return "", err
	}
	return url, nil
}

// PresignOutboundUpload gives an operator a PUT URL for a file destined to an
// external party.
func (b *Broker) PresignOutboundUpload(ctx context.Context, operator, fileName string) (string, error) {
	key := fmt.Sprintf("%s/to_customer/%s/%s", b.config.Prefix, operator, fileName)
	req, err := b.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.config.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(b.config.PutTTL))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

// PresignDownload gives an operator the GET URL for any transfer object.
// The key is relative to the transfer prefix, e.g. "from_customer/acme/report.pdf".
func (b *Broker) PresignDownload(ctx context.Context, key string) (string, error) {
	return b.presignGet(ctx, b.config.Prefix+"/"+key)
}

func (b *Broker) presignGet(ctx context.Context, key string) (string, error) {
	req, err := b.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket:                     aws.String(b.config.Bucket),
		Key:                        aws.String(key),
		ResponseContentDisposition: aws.String("attachment"),
	}, s3.WithPresignExpires(b.config.GetTTL))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

// Object is one stored transfer file.
type Object struct {
	Key          string
	LastModified time.Time
	Size         int64
}

// ListFiles lists the objects under one transfer folder, with keys trimmed
// back to folder/name/file form. Zero-byte directory markers are skipped.
func (b *Broker) ListFiles(ctx context.Context, folder string) ([]Object, error) {
	out, err := b.objects.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.config.Bucket),
		Prefix: aws.String(b.config.Prefix + "/" + folder + "/"),
	})
	if err != nil {
		return nil, err
	}

	objects := make([]Object, 0, len(out.Contents))
	for _, item := range out.Contents {
		if item.Key == nil || aws.ToInt64(item.Size) == 0 {
			continue
		}
		parts := strings.Split(*item.Key, "/")
		if len(parts) > 3 {
			parts = parts[len(parts)-3:]
		}
		objects = append(objects, Object{
			Key:          strings.Join(parts, "/"),
			LastModified: aws.ToTime(item.LastModified),
			Size:         aws.ToInt64(item.Size),
		})
	}
	return objects, nil
}

// DeleteFile removes one transfer object. The key is relative to the
// transfer prefix.
func (b *Broker) DeleteFile(ctx context.Context, key string) error {
	_, err := b.objects.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.config.Bucket),
		Key:    aws.String(b.config.Prefix + "/" + key),
	})
	return err
}

const credentialAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func randomString(length int) (string, error) {
	var sb strings.Builder
	max := big.NewInt(int64(len(credentialAlphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		sb.WriteByte(credentialAlphabet[n.Int64()])
	}
	return sb.String(), nil
}

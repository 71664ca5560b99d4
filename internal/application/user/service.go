package user

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/mealtrack-api/internal/domain"
)

// DynamoDB attribute names used in partial update maps.
const (
	fieldFirstName      = "first_name"
	fieldLastName       = "last_name"
	fieldProfilePicture = "profile_picture"
)

// pictureURLTTL bounds how long a handed-out profile picture link stays valid.
const pictureURLTTL = 15 * time.Minute

type Service interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	Update(ctx context.Context, userID string, req domain.UpdateProfileRequest) (*domain.User, error)
	// UploadProfilePicture stores the image and records its object key on the user.
	UploadProfilePicture(ctx context.Context, userID, filename string, r io.Reader, contentType string) (*domain.User, error)
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

type objectStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) error
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

type service struct {
	repo    userStore
	objects objectStore
}

func NewService(repo userStore, objects objectStore) Service {
	return &service{repo: repo, objects: objects}
}

// Get returns the user with profile_picture resolved from object key to a
// time-limited presigned URL. The bucket is private; the raw key is never a
// fetchable address.
func (s *service) Get(ctx context.Context, userID string) (*domain.User, error) {
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	if u.ProfilePicture != "" {
		url, err := s.objects.PresignedURL(ctx, u.ProfilePicture, pictureURLTTL)
		if err != nil {
			return nil, fmt.Errorf("presign picture: %w", domain.ErrInternal)
		}
		u.ProfilePicture = url
	}
	return u, nil
}

func (s *service) Update(ctx context.Context, userID string, req domain.UpdateProfileRequest) (*domain.User, error) {
	updates := map[string]interface{}{}
	if req.FirstName != nil {
		updates[fieldFirstName] = *req.FirstName
	}
	if req.LastName != nil {
		updates[fieldLastName] = *req.LastName
	}
	if len(updates) == 0 {
		return s.Get(ctx, userID)
	}
	if err := s.repo.Update(ctx, userID, updates); err != nil {
		return nil, fmt.Errorf("update user: %w", domain.ErrInternal)
	}
	return s.Get(ctx, userID)
}

func (s *service) UploadProfilePicture(ctx context.Context, userID, filename string, r io.Reader, contentType string) (*domain.User, error) {
	current, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	key := fmt.Sprintf("profile-pictures/%s/%d-%s", userID, time.Now().UTC().Unix(), filename)
	if err := s.objects.Upload(ctx, key, r, contentType); err != nil {
		return nil, fmt.Errorf("upload picture: %w", domain.ErrInternal)
	}
	if err := s.repo.Update(ctx, userID, map[string]interface{}{fieldProfilePicture: key}); err != nil {
		return nil, fmt.Errorf("record picture: %w", domain.ErrInternal)
	}
	// The replaced object is garbage once the key is swapped; losing the
	// cleanup only leaks storage, so it never fails the upload.
	if old := current.ProfilePicture; old != "" && old != key {
		if err := s.objects.Delete(ctx, old); err != nil {
			slog.Warn("failed to delete replaced profile picture", "user_id", userID, "key", old, "err", err)
		}
	}
	return s.Get(ctx, userID)
}

// Package service holds the business rules behind the HTTP handlers.
package service

import (
	"context"

	"picshare/internal/models"
	"picshare/internal/repository"
)

// ensureOwner returns the same NotFound error for "missing" and "not yours",
// so callers cannot probe for other users' resources.
func ensureOwner(resource string, id, ownerID, callerID uint) error {
	if callerID == 0 || callerID != ownerID {
		return models.NewNotFoundError(resource, id)
	}
	return nil
}

func canView(isPublic bool, ownerID, viewerID uint) bool {
	return isPublic || (viewerID != 0 && viewerID == ownerID)
}

func requireUser(userID uint) error {
	if userID == 0 {
		return models.NewUnauthorizedError("Authentication required")
	}
	return nil
}

// visibleImage loads the bare image row and hides it unless viewerID may see it.
func visibleImage(ctx context.Context, images repository.ImageRepository, imageID, viewerID uint) (*models.Image, error) {
	img, err := images.GetByID(ctx, imageID)
	if err != nil {
		return nil, err
	}
	if !canView(img.IsPublic, img.OwnerID, viewerID) {
		return nil, models.NewNotFoundError("Image", imageID)
	}
	return img, nil
}

func summaries(users []*models.User) []models.UserSummary {
	out := make([]models.UserSummary, 0, len(users))
	for _, u := range users {
		out = append(out, u.Summary())
	}
	return out
}

func dedupeIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

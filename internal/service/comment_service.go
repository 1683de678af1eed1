package service

import (
	"context"
	"strings"

	"picshare/internal/models"
	"picshare/internal/observability"
	"picshare/internal/repository"
	"picshare/internal/validation"
)

type CommentService struct {
	comments repository.CommentRepository
	images   repository.ImageRepository
	tx       repository.Transactor
}

type CreateCommentInput struct {
	UserID  uint
	ImageID uint
	Content string
}

type UpdateCommentInput struct {
	UserID    uint
	ImageID   uint
	CommentID uint
	Content   string
}

type DeleteCommentInput struct {
	UserID    uint
	ImageID   uint
	CommentID uint
}

func NewCommentService(comments repository.CommentRepository, images repository.ImageRepository, tx repository.Transactor) *CommentService {
	return &CommentService{comments: comments, images: images, tx: tx}
}

// ListComments returns every comment on a visible image, oldest first.
func (s *CommentService) ListComments(ctx context.Context, viewerID, imageID uint) ([]*models.Comment, error) {
	if _, err := visibleImage(ctx, s.images, imageID, viewerID); err != nil {
		return nil, err
	}
	return s.comments.ListByImage(ctx, imageID)
}

func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (*models.Comment, error) {
	if err := requireUser(in.UserID); err != nil {
		return nil, err
	}
	content := strings.TrimSpace(in.Content)
	if err := validation.ValidateComment(content); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	comment := &models.Comment{
		Content: content,
		UserID:  in.UserID,
		ImageID: in.ImageID,
	}
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := visibleImage(ctx, s.images, in.ImageID, in.UserID); err != nil {
			return err
		}
		return s.comments.Create(ctx, comment)
	})
	if err != nil {
		return nil, err
	}
	observability.SocialActions.WithLabelValues("comment").Inc()
	return s.comments.GetByID(ctx, comment.ID)
}

func (s *CommentService) UpdateComment(ctx context.Context, in UpdateCommentInput) (*models.Comment, error) {
	if err := requireUser(in.UserID); err != nil {
		return nil, err
	}
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.authoredComment(ctx, in.UserID, in.ImageID, in.CommentID); err != nil {
			return err
		}
		content := strings.TrimSpace(in.Content)
		if err := validation.ValidateComment(content); err != nil {
			return models.NewValidationError(err.Error())
		}
		return s.comments.UpdateContent(ctx, in.CommentID, content)
	})
	if err != nil {
		return nil, err
	}
	return s.comments.GetByID(ctx, in.CommentID)
}

func (s *CommentService) DeleteComment(ctx context.Context, in DeleteCommentInput) error {
	if err := requireUser(in.UserID); err != nil {
		return err
	}
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.authoredComment(ctx, in.UserID, in.ImageID, in.CommentID); err != nil {
			return err
		}
		return s.comments.Delete(ctx, in.CommentID)
	})
}

// authoredComment succeeds only for the comment's author addressing it under
// its own image. The image owner gets no override.
func (s *CommentService) authoredComment(ctx context.Context, userID, imageID, commentID uint) error {
	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.ImageID != imageID {
		return models.NewNotFoundError("Comment", commentID)
	}
	return ensureOwner("Comment", commentID, comment.UserID, userID)
}

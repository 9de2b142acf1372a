package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/yatube/models"
)

type CommentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

func (r *CommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(comment).Error; err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

// ListByPost returns the comments of a post with authors loaded, newest first.
func (r *CommentRepository) ListByPost(ctx context.Context, postID uint) ([]models.Comment, error) {
	var comments []models.Comment
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("post_id = ?", postID).
		Order("created DESC, id DESC").
		Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("list comments of post %d: %w", postID, err)
	}
	return comments, nil
}

func (r *CommentRepository) CountByPost(ctx context.Context, postID uint) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Comment{}).Where("post_id = ?", postID).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

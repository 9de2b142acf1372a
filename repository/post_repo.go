package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/yatube/models"
)

// PostFilter narrows a post listing. Nil fields do not filter.
type PostFilter struct {
	GroupID  *uint
	AuthorID *uint
}

type PostRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) *PostRepository {
	return &PostRepository{db: db}
}

// Create inserts a single post row; associations are not written.
func (r *PostRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error; err != nil {
		return fmt.Errorf("create post: %w", err)
	}
	return nil
}

func (r *PostRepository) FindByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Preload("Author").Preload("Group").First(&post, id).Error; err != nil {
		return nil, translate(err)
	}
	return &post, nil
}

// FindByAuthor loads a post only if it was written by authorID.
func (r *PostRepository) FindByAuthor(ctx context.Context, authorID, postID uint) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).
		Preload("Author").
		Preload("Group").
		Where("id = ? AND author_id = ?", postID, authorID).
		First(&post).Error
	if err != nil {
		return nil, translate(err)
	}
	return &post, nil
}

// List returns posts matching f, newest first.
func (r *PostRepository) List(ctx context.Context, f PostFilter, offset, limit int) ([]models.Post, error) {
	var posts []models.Post
	err := r.filtered(ctx, f).
		Preload("Author").
		Preload("Group").
		Order("pub_date DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

func (r *PostRepository) Count(ctx context.Context, f PostFilter) (int64, error) {
	var total int64
	if err := r.filtered(ctx, f).Model(&models.Post{}).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return total, nil
}

// Update writes the editable columns only; author and pub_date never change.
func (r *PostRepository) Update(ctx context.Context, post *models.Post) error {
	res := r.db.WithContext(ctx).
		Model(&models.Post{ID: post.ID}).
		Select("text", "group_id", "image").
		Updates(map[string]interface{}{
			"text":     post.Text,
			"group_id": post.GroupID,
			"image":    post.Image,
		})
	if res.Error != nil {
		return fmt.Errorf("update post %d: %w", post.ID, res.Error)
	}
	return nil
}

// Delete removes the post and all of its comments.
func (r *PostRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return fmt.Errorf("delete comments of post %d: %w", id, err)
		}
		res := tx.Delete(&models.Post{}, id)
		if res.Error != nil {
			return fmt.Errorf("delete post %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *PostRepository) filtered(ctx context.Context, f PostFilter) *gorm.DB {
	q := r.db.WithContext(ctx)
	if f.GroupID != nil {
		q = q.Where("group_id = ?", *f.GroupID)
	}
	if f.AuthorID != nil {
		q = q.Where("author_id = ?", *f.AuthorID)
	}
	return q
}

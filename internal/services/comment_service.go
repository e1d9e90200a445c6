package services

import (
	"context"
	"encoding/json"
	"fmt"

	apierrors "github.com/yukikurage/projecthub-api/internal/errors"
	"github.com/yukikurage/projecthub-api/internal/models"
	"github.com/yukikurage/projecthub-api/internal/notify"
	"github.com/yukikurage/projecthub-api/internal/repository"
	"github.com/yukikurage/projecthub-api/internal/richtext"
	"github.com/yukikurage/projecthub-api/internal/tenancy"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const entityComment = "comment"

var (
	ErrCommentNotFound  = apierrors.New(apierrors.KindNotFound, "COMMENT_NOT_FOUND", "Comment not found")
	ErrCommentForbidden = apierrors.New(apierrors.KindForbidden, "COMMENT_FORBIDDEN", "Only the author or an owner/admin can change this comment")
	ErrCommentBodyEmpty = apierrors.New(apierrors.KindValidation, "COMMENT_BODY_REQUIRED", "Comment body is required")
)

// CommentService handles comments and the mention notifications they trigger.
type CommentService struct {
	store      *repository.Store
	dispatcher *notify.Dispatcher
	log        *zap.Logger
}

func NewCommentService(store *repository.Store, dispatcher *notify.Dispatcher, log *zap.Logger) *CommentService {
	return &CommentService{
		store:      store,
		dispatcher: dispatcher,
		log:        log.Named("comments"),
	}
}

// CreateComment stores a comment and notifies every other member it mentions.
func (s *CommentService) CreateComment(ctx context.Context, member *models.OrganizationMember, taskID uint64, body json.RawMessage) (*models.Comment, error) {
	if err := validateDocument(body); err != nil {
		return nil, err
	}

	var (
		comment *models.Comment
		task    *models.Task
		project *models.Project
	)
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		task, err = loadTask(ctx, tx, member.OrganizationID, taskID)
		if err != nil {
			return err
		}
		project, err = loadProject(ctx, tx, task.OrganizationID, task.ProjectID)
		if err != nil {
			return err
		}
		comment = &models.Comment{
			OrganizationID: task.OrganizationID,
			TaskID:         task.ID,
			AuthorID:       member.UserID,
			Body:           datatypes.JSON(body),
		}
		if err := tx.Comments.Create(ctx, comment); err != nil {
			return fmt.Errorf("failed to create comment: %w", err)
		}
		return NewActivityRecorder(tx.Activity).Record(ctx, ActivityEntry{
			OrganizationID: task.OrganizationID,
			TaskID:         &task.ID,
			ActorID:        member.UserID,
			Action:         models.ActionCommentAdded,
			EntityType:     entityComment,
			EntityID:       comment.ID,
		})
	})
	if err != nil {
		return nil, err
	}

	comment, err = s.store.Comments.FindByID(ctx, comment.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load comment: %w", err)
	}

	isMember := func(userID uint64) bool {
		_, err := s.store.Organizations.FindMember(ctx, task.OrganizationID, userID)
		return err == nil
	}
	msgs, err := notify.MentionNotices(&comment.Author, taskRef(project, task), body, isMember)
	if err != nil {
		// The body parsed above, so this only happens on a programming error.
		s.log.Error("failed to extract mentions", zap.Uint64("comment_id", comment.ID), zap.Error(err))
	}
	s.dispatcher.Enqueue(ctx, msgs...)

	return comment, nil
}

func (s *CommentService) ListComments(ctx context.Context, member *models.OrganizationMember, taskID uint64) ([]models.Comment, error) {
	task, err := loadTask(ctx, s.store, member.OrganizationID, taskID)
	if err != nil {
		return nil, err
	}
	comments, err := s.store.Comments.ListByTask(ctx, task.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, nil
}

func (s *CommentService) GetComment(ctx context.Context, member *models.OrganizationMember, commentID uint64) (*models.Comment, error) {
	return s.loadComment(ctx, member, commentID)
}

// UpdateComment replaces the body. Edits do not notify mentioned users again.
func (s *CommentService) UpdateComment(ctx context.Context, member *models.OrganizationMember, commentID uint64, body json.RawMessage) (*models.Comment, error) {
	if err := validateDocument(body); err != nil {
		return nil, err
	}
	comment, err := s.loadComment(ctx, member, commentID)
	if err != nil {
		return nil, err
	}
	if !tenancy.CanModerate(member, comment.AuthorID) {
		return nil, ErrCommentForbidden
	}
	comment.Body = datatypes.JSON(body)
	comment.IsEdited = true
	if err := s.store.Comments.Update(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to update comment: %w", err)
	}
	return comment, nil
}

func (s *CommentService) DeleteComment(ctx context.Context, member *models.OrganizationMember, commentID uint64) error {
	comment, err := s.loadComment(ctx, member, commentID)
	if err != nil {
		return err
	}
	if !tenancy.CanModerate(member, comment.AuthorID) {
		return ErrCommentForbidden
	}
	if err := s.store.Comments.Delete(ctx, comment.ID); err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	return nil
}

func (s *CommentService) loadComment(ctx context.Context, member *models.OrganizationMember, commentID uint64) (*models.Comment, error) {
	comment, err := s.store.Comments.FindByID(ctx, commentID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrCommentNotFound
		}
		return nil, fmt.Errorf("failed to find comment: %w", err)
	}
	if comment.OrganizationID != member.OrganizationID {
		return nil, ErrCommentNotFound
	}
	return comment, nil
}

func validateDocument(body json.RawMessage) error {
	if len(body) == 0 {
		return ErrCommentBodyEmpty
	}
	if !isJSONObject(body) {
		return ErrInvalidDocument
	}
	if _, err := richtext.Parse(body); err != nil {
		return ErrInvalidDocument.Wrap(err)
	}
	return nil
}

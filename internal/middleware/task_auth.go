package middleware

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/projecthub-api/internal/constants"
	apierrors "github.com/yukikurage/projecthub-api/internal/errors"
	"github.com/yukikurage/projecthub-api/internal/repository"
	"github.com/yukikurage/projecthub-api/internal/tenancy"
)

// OrganizationOf returns the organization that owns the resource with id.
type OrganizationOf func(ctx context.Context, id uint64) (uint64, error)

// RequireResourceAccess authorizes routes that address a resource by id
// alone, such as links carried in notifications. The owning organization is
// looked up first and the caller must be a member of it. A missing resource
// and a foreign one both produce notFound.
func RequireResourceAccess(guard *tenancy.Guard, param string, lookup OrganizationOf, notFound error) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param(param), 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid "+param)
			c.Abort()
			return
		}

		userID, exists := GetUserID(c)
		if !exists {
			apierrors.Unauthorized(c, "Authentication required")
			c.Abort()
			return
		}

		ctx := c.Request.Context()
		orgID, err := lookup(ctx, id)
		if err != nil {
			if repository.IsNotFound(err) {
				apierrors.Respond(c, notFound)
			} else {
				apierrors.Respond(c, err)
			}
			c.Abort()
			return
		}

		member, err := guard.Authorize(ctx, userID, orgID, tenancy.AnyMember)
		if err != nil {
			if apierrors.KindOf(err) == apierrors.KindNotFound {
				err = notFound
			}
			apierrors.Respond(c, err)
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyOrganizationMember, member)
		c.Next()
	}
}

// RequireTaskAccess checks the caller belongs to the organization of task :task_id.
func RequireTaskAccess(guard *tenancy.Guard, tasks repository.TaskRepository, notFound error) gin.HandlerFunc {
	return RequireResourceAccess(guard, "task_id", func(ctx context.Context, id uint64) (uint64, error) {
		task, err := tasks.FindByID(ctx, id)
		if err != nil {
			return 0, err
		}
		return task.OrganizationID, nil
	}, notFound)
}

// RequireCommentAccess checks the caller belongs to the organization of comment :comment_id.
func RequireCommentAccess(guard *tenancy.Guard, comments repository.CommentRepository, notFound error) gin.HandlerFunc {
	return RequireResourceAccess(guard, "comment_id", func(ctx context.Context, id uint64) (uint64, error) {
		comment, err := comments.FindByID(ctx, id)
		if err != nil {
			return 0, err
		}
		return comment.OrganizationID, nil
	}, notFound)
}

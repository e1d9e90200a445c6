package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/projecthub-api/internal/auth"
	"github.com/yukikurage/projecthub-api/internal/middleware"
	"github.com/yukikurage/projecthub-api/internal/notify"
	"github.com/yukikurage/projecthub-api/internal/repository"
	"github.com/yukikurage/projecthub-api/internal/services"
	"github.com/yukikurage/projecthub-api/internal/tenancy"
	"go.uber.org/zap"
)

// Routes holds everything needed to mount the /api tree.
type Routes struct {
	Guard         *tenancy.Guard
	Authn         auth.Authenticator
	Store         *repository.Store
	Auth          *AuthHandler
	Organizations *OrganizationHandler
	Projects      *ProjectHandler
	Tasks         *TaskHandler
	Comments      *CommentHandler
	Notifications *NotificationHandler
	Search        *SearchHandler
}

// NewRoutes wires the services and handlers over store.
func NewRoutes(store *repository.Store, tokens *auth.JWTService, dispatcher *notify.Dispatcher, log *zap.Logger) *Routes {
	return &Routes{
		Guard:         tenancy.NewGuard(store.Organizations),
		Authn:         tokens,
		Store:         store,
		Auth:          NewAuthHandler(services.NewAuthService(store.Users), tokens, log),
		Organizations: NewOrganizationHandler(services.NewOrganizationService(store, log)),
		Projects:      NewProjectHandler(services.NewProjectService(store), services.NewSprintService(store, log), services.NewLabelService(store)),
		Tasks:         NewTaskHandler(services.NewTaskService(store, dispatcher, log)),
		Comments:      NewCommentHandler(services.NewCommentService(store, dispatcher, log)),
		Notifications: NewNotificationHandler(services.NewNotificationService(store.Notifications)),
		Search:        NewSearchHandler(services.NewSearchService(store)),
	}
}

// Register mounts every API route on api.
func (rt *Routes) Register(api *gin.RouterGroup) {
	requireAuth := middleware.RequireAuth(rt.Authn)
	managers := middleware.RequireRole(tenancy.Managers)

	// Auth routes (public)
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/signup", rt.Auth.Signup)
		authGroup.POST("/login", rt.Auth.Login)
		authGroup.POST("/logout", requireAuth, rt.Auth.Logout)
		authGroup.GET("/me", requireAuth, rt.Auth.GetCurrentUser)
	}

	api.POST("/invitations/accept", requireAuth, rt.Organizations.AcceptInvitation)

	orgs := api.Group("/orgs")
	orgs.Use(requireAuth)
	{
		orgs.POST("", rt.Organizations.CreateOrganization)
		orgs.GET("", rt.Organizations.ListOrganizations)
	}

	org := orgs.Group("/:slug")
	org.Use(middleware.RequireOrganizationAccess(rt.Guard, tenancy.AnyMember))
	{
		org.GET("", rt.Organizations.GetOrganization)
		org.PATCH("", managers, rt.Organizations.UpdateOrganization)

		org.GET("/members", rt.Organizations.ListMembers)
		org.PATCH("/members/:user_id", managers, rt.Organizations.UpdateMemberRole)
		org.DELETE("/members/:user_id", managers, rt.Organizations.RemoveMember)

		org.POST("/invitations", managers, rt.Organizations.CreateInvitation)
		org.GET("/invitations", managers, rt.Organizations.ListInvitations)
		org.DELETE("/invitations/:invitation_id", managers, rt.Organizations.RevokeInvitation)

		org.POST("/projects", managers, rt.Projects.CreateProject)
		org.GET("/projects", rt.Projects.ListProjects)
		org.GET("/projects/:project_id", rt.Projects.GetProject)
		org.PATCH("/projects/:project_id", managers, rt.Projects.UpdateProject)
		org.POST("/projects/:project_id/archive", managers, rt.Projects.ArchiveProject)
		org.GET("/projects/:project_id/statuses", rt.Projects.ListStatuses)
		org.POST("/projects/:project_id/statuses", managers, rt.Projects.CreateStatus)
		org.GET("/projects/:project_id/labels", rt.Projects.ListLabels)
		org.POST("/projects/:project_id/labels", managers, rt.Projects.CreateLabel)

		org.POST("/projects/:project_id/sprints", managers, rt.Projects.CreateSprint)
		org.GET("/projects/:project_id/sprints", rt.Projects.ListSprints)
		org.PATCH("/projects/:project_id/sprints/:sprint_id", managers, rt.Projects.UpdateSprint)
		org.DELETE("/projects/:project_id/sprints/:sprint_id", managers, rt.Projects.DeleteSprint)
		org.POST("/projects/:project_id/sprints/:sprint_id/start", managers, rt.Projects.StartSprint)
		org.POST("/projects/:project_id/sprints/:sprint_id/complete", managers, rt.Projects.CompleteSprint)

		org.POST("/projects/:project_id/tasks", rt.Tasks.CreateTask)
		org.GET("/projects/:project_id/tasks", rt.Tasks.ListTasks)
		org.GET("/projects/:project_id/tasks/number/:number", rt.Tasks.GetTaskByNumber)
		org.POST("/projects/:project_id/tasks/reorder", rt.Tasks.ReorderTasks)

		org.GET("/tasks/:task_id", rt.Tasks.GetTask)
		org.PATCH("/tasks/:task_id", rt.Tasks.UpdateTask)
		org.DELETE("/tasks/:task_id", rt.Tasks.DeleteTask)
		org.POST("/tasks/:task_id/move", rt.Tasks.MoveTask)
		org.GET("/tasks/:task_id/activity", rt.Tasks.ListActivity)
		org.GET("/tasks/:task_id/comments", rt.Comments.ListComments)
		org.POST("/tasks/:task_id/comments", rt.Comments.CreateComment)
		org.PATCH("/comments/:comment_id", rt.Comments.UpdateComment)
		org.DELETE("/comments/:comment_id", rt.Comments.DeleteComment)

		org.GET("/search", rt.Search.Search)

		org.GET("/notifications", rt.Notifications.ListNotifications)
		org.POST("/notifications/read-all", rt.Notifications.MarkAllRead)
		org.POST("/notifications/:notification_id/read", rt.Notifications.MarkRead)
	}

	// Id-only routes for links that do not carry the organization slug.
	tasks := api.Group("/tasks/:task_id")
	tasks.Use(requireAuth, middleware.RequireTaskAccess(rt.Guard, rt.Store.Tasks, services.ErrTaskNotFound))
	{
		tasks.GET("", rt.Tasks.GetTask)
		tasks.GET("/comments", rt.Comments.ListComments)
	}
	api.GET("/comments/:comment_id", requireAuth,
		middleware.RequireCommentAccess(rt.Guard, rt.Store.Comments, services.ErrCommentNotFound),
		rt.Comments.GetComment)
}

// Package tasks exposes the task HTTP surface: listing with effective
// grades, creation, acknowledgement and soft deletion. All routes are
// tenant scoped.
package tasks

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fieldops/console/pkg/apiresponses"
	"github.com/fieldops/console/pkg/audit"
	"github.com/fieldops/console/pkg/grading"
	"github.com/fieldops/console/pkg/metrics"
	"github.com/fieldops/console/pkg/store"
	"github.com/fieldops/console/pkg/system"
)

// TaskStore is the slice of the task repository the controller needs.
type TaskStore interface {
	Create(ctx context.Context, t *store.Task) error
	GetByID(ctx context.Context, tenantID, id string) (*store.Task, error)
	ListByTenant(ctx context.Context, tenantID string, f store.TaskFilter) ([]store.Task, error)
	Acknowledge(ctx context.Context, tenantID, id string, now time.Time) (bool, error)
	SoftDelete(ctx context.Context, tenantID, id string, now time.Time) error
}

// ProjectStore resolves projects for grading and create validation.
type ProjectStore interface {
	GetByID(ctx context.Context, tenantID, id string) (*store.Project, error)
	MapByID(ctx context.Context, tenantID string) (map[string]store.Project, error)
}

// TaskView is a task plus its grades at response time.
type TaskView struct {
	store.Task
	BinaryGrade grading.BinaryGrade `json:"binaryGrade"`
	SLAGrade    grading.SLAGrade    `json:"slaGrade"`
	GradeLabel  string              `json:"gradeLabel"`
}

// Controller mounts under /api/tenants/:tenant/tasks.
type Controller struct {
	tasks    TaskStore
	projects ProjectStore
	audit    *audit.Service
	log      *zap.SugaredLogger

	// warnMinutes parameterises the binary grade's warning window.
	warnMinutes int

	// now is swappable for tests.
	now func() time.Time
}

// NewController creates the tasks controller.
func NewController(tasks TaskStore, projects ProjectStore, auditSvc *audit.Service, log *zap.SugaredLogger) *Controller {
	return &Controller{
		tasks:       tasks,
		projects:    projects,
		audit:       auditSvc,
		log:         log,
		warnMinutes: 24 * 60,
		now:         time.Now,
	}
}

func (tc *Controller) BasePath() string { return "tenants/:tenant/tasks" }

func (tc *Controller) Handlers() []gin.HandlerFunc { return nil }

func (tc *Controller) Register(rg *gin.RouterGroup) error {
	rg.GET("", tc.listTasks)
	rg.POST("", tc.createTask)
	rg.GET(":id", tc.getTask)
	rg.POST(":id/acknowledge", tc.acknowledgeTask)
	rg.DELETE(":id", tc.deleteTask)
	return nil
}

func (tc *Controller) listTasks(c *gin.Context) {
	metrics.APIEndpointRequests.WithLabelValues("tasks_list").Inc()
	tenantID := c.Param("tenant")

	filter := store.TaskFilter{
		ProjectID:        c.Query("project"),
		Kind:             store.TaskKind(c.Query("kind")),
		IncludeSubmitted: c.Query("includeSubmitted") == "true",
	}
	tasks, err := tc.tasks.ListByTenant(c.Request.Context(), tenantID, filter)
	if err != nil {
		metrics.APIEndpointErrors.WithLabelValues("tasks_list").Inc()
		apiresponses.RespondInternalError(c, "list tasks", err, tc.log)
		return
	}
	projects, err := tc.projects.MapByID(c.Request.Context(), tenantID)
	if err != nil {
		metrics.APIEndpointErrors.WithLabelValues("tasks_list").Inc()
		apiresponses.RespondInternalError(c, "list tasks", err, tc.log)
		return
	}

	now := tc.now()
	views := make([]TaskView, 0, len(tasks))
	for _, t := range tasks {
		views = append(views, tc.grade(t, projects, now))
	}
	apiresponses.RespondOK(c, gin.H{"tasks": views})
}

func (tc *Controller) getTask(c *gin.Context) {
	metrics.APIEndpointRequests.WithLabelValues("tasks_get").Inc()
	tenantID := c.Param("tenant")
	id := c.Param("id")

	task, err := tc.tasks.GetByID(c.Request.Context(), tenantID, id)
	if errors.Is(err, store.ErrNotFound) {
		apiresponses.RespondNotFound(c, "task", id)
		return
	}
	if err != nil {
		metrics.APIEndpointErrors.WithLabelValues("tasks_get").Inc()
		apiresponses.RespondInternalError(c, "get task", err, tc.log)
		return
	}

	projects, err := tc.projects.MapByID(c.Request.Context(), tenantID)
	if err != nil {
		metrics.APIEndpointErrors.WithLabelValues("tasks_get").Inc()
		apiresponses.RespondInternalError(c, "get task", err, tc.log)
		return
	}
	apiresponses.RespondOK(c, tc.grade(*task, projects, tc.now()))
}

type createTaskRequest struct {
	ProjectID string    `json:"projectId" binding:"required"`
	Kind      string    `json:"kind" binding:"required"`
	Title     string    `json:"title" binding:"required"`
	DueAt     time.Time `json:"dueAt" binding:"required"`
}

func (tc *Controller) createTask(c *gin.Context) {
	metrics.APIEndpointRequests.WithLabelValues("tasks_create").Inc()
	tenantID := c.Param("tenant")
	reqLog := system.GetReqLogger(c, tc.log)

	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apiresponses.RespondBadRequestWithDetails(c, "invalid task payload", err.Error())
		return
	}
	kind := store.TaskKind(req.Kind)
	if kind != store.KindUpdate && kind != store.KindChangeRequest {
		apiresponses.RespondUnprocessableEntity(c, "kind must be UPDATE or CHANGE_REQUEST")
		return
	}

	if _, err := tc.projects.GetByID(c.Request.Context(), tenantID, req.ProjectID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			apiresponses.RespondNotFound(c, "project", req.ProjectID)
			return
		}
		metrics.APIEndpointErrors.WithLabelValues("tasks_create").Inc()
		apiresponses.RespondInternalError(c, "create task", err, reqLog)
		return
	}

	task := &store.Task{
		ID:        uuid.NewString(),
		ProjectID: req.ProjectID,
		TenantID:  tenantID,
		Kind:      kind,
		Title:     req.Title,
		DueAt:     req.DueAt,
		CreatedAt: tc.now(),
	}
	if err := tc.tasks.Create(c.Request.Context(), task); err != nil {
		metrics.APIEndpointErrors.WithLabelValues("tasks_create").Inc()
		apiresponses.RespondInternalError(c, "create task", err, reqLog)
		return
	}

	reqLog.Infow("Task created", system.TenantFields(tenantID, task.ID)...)
	tc.audit.Record(c.Request.Context(), audit.Event{
		Type:      audit.EventTaskCreated,
		TenantID:  tenantID,
		ProjectID: task.ProjectID,
		TaskID:    task.ID,
		Details:   map[string]string{"kind": string(task.Kind), "dueAt": task.DueAt.Format(time.RFC3339)},
	})
	apiresponses.RespondCreated(c, task)
}

// acknowledgeTask marks a task submitted. The write is conditional on
// the task still being open, so a repeat acknowledgement answers 409
// and never moves the original submission time.
func (tc *Controller) acknowledgeTask(c *gin.Context) {
	metrics.APIEndpointRequests.WithLabelValues("tasks_acknowledge").Inc()
	tenantID := c.Param("tenant")
	id := c.Param("id")
	reqLog := system.GetReqLogger(c, tc.log)

	acknowledged, err := tc.tasks.Acknowledge(c.Request.Context(), tenantID, id, tc.now())
	if errors.Is(err, store.ErrNotFound) {
		apiresponses.RespondNotFound(c, "task", id)
		return
	}
	if err != nil {
		metrics.APIEndpointErrors.WithLabelValues("tasks_acknowledge").Inc()
		apiresponses.RespondInternalError(c, "acknowledge task", err, reqLog)
		return
	}
	if !acknowledged {
		apiresponses.RespondConflict(c, "task is already submitted")
		return
	}

	metrics.TasksAcknowledged.WithLabelValues(tenantID).Inc()
	tc.audit.Record(c.Request.Context(), audit.Event{
		Type:     audit.EventTaskAcknowledged,
		TenantID: tenantID,
		TaskID:   id,
	})

	task, err := tc.tasks.GetByID(c.Request.Context(), tenantID, id)
	if err != nil {
		metrics.APIEndpointErrors.WithLabelValues("tasks_acknowledge").Inc()
		apiresponses.RespondInternalError(c, "acknowledge task", err, reqLog)
		return
	}
	apiresponses.RespondOK(c, task)
}

func (tc *Controller) deleteTask(c *gin.Context) {
	metrics.APIEndpointRequests.WithLabelValues("tasks_delete").Inc()
	tenantID := c.Param("tenant")
	id := c.Param("id")
	reqLog := system.GetReqLogger(c, tc.log)

	if err := tc.tasks.SoftDelete(c.Request.Context(), tenantID, id, tc.now()); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			apiresponses.RespondNotFound(c, "task", id)
			return
		}
		metrics.APIEndpointErrors.WithLabelValues("tasks_delete").Inc()
		apiresponses.RespondInternalError(c, "delete task", err, reqLog)
		return
	}

	metrics.TasksDeleted.WithLabelValues(tenantID).Inc()
	tc.audit.Record(c.Request.Context(), audit.Event{
		Type:     audit.EventTaskDeleted,
		TenantID: tenantID,
		TaskID:   id,
	})
	apiresponses.RespondNoContent(c)
}

// grade attaches both grade vocabularies to a task using the owning
// project's SLA policy when it has one.
func (tc *Controller) grade(t store.Task, projects map[string]store.Project, now time.Time) TaskView {
	policy := grading.DefaultSLAPolicy
	if p, ok := projects[t.ProjectID]; ok {
		if p.AtRiskMinutes != nil {
			policy.AtRiskMinutes = *p.AtRiskMinutes
		}
		if p.RedMinutes != nil {
			policy.RedMinutes = *p.RedMinutes
		}
	}
	binary := grading.BinaryWindow(t.DueAt, t.SubmittedAt, tc.warnMinutes, now)
	sla := grading.TriStateSLA(t.DueAt, t.SubmittedAt, policy, now)
	return TaskView{
		Task:        t,
		BinaryGrade: binary,
		SLAGrade:    sla,
		GradeLabel:  sla.Label(),
	}
}

// WithClock overrides the controller's clock. Test hook.
func (tc *Controller) WithClock(now func() time.Time) *Controller {
	tc.now = now
	return tc
}

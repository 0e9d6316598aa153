package scheduler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fieldops/console/pkg/apiresponses"
	"github.com/fieldops/console/pkg/metrics"
	"github.com/fieldops/console/pkg/ratelimit"
)

// Controller exposes the job surface: listing registered jobs and
// triggering a sweep on demand. Triggers are rate limited per IP
// because each one fans out datastore scans and notifications.
type Controller struct {
	runner  *Runner
	limiter *ratelimit.IPRateLimiter
	log     *zap.SugaredLogger
}

// NewController creates the jobs controller with the default trigger
// rate limit.
func NewController(runner *Runner, log *zap.SugaredLogger) *Controller {
	return &Controller{
		runner:  runner,
		limiter: ratelimit.New(ratelimit.DefaultJobTriggerConfig()),
		log:     log,
	}
}

func (jc *Controller) BasePath() string { return "jobs" }

func (jc *Controller) Handlers() []gin.HandlerFunc { return nil }

func (jc *Controller) Register(rg *gin.RouterGroup) error {
	rg.GET("", jc.listJobs)
	rg.POST(":name/run", jc.limiter.Middleware(), jc.runJob)
	return nil
}

func (jc *Controller) listJobs(c *gin.Context) {
	metrics.APIEndpointRequests.WithLabelValues("jobs_list").Inc()
	apiresponses.RespondOK(c, gin.H{"jobs": jc.runner.JobNames()})
}

// runJob triggers one sweep synchronously and returns the per-tenant
// results. An optional tenant query parameter narrows the sweep.
func (jc *Controller) runJob(c *gin.Context) {
	metrics.APIEndpointRequests.WithLabelValues("jobs_run").Inc()
	name := c.Param("name")
	tenantID := c.Query("tenant")

	results, err := jc.runner.RunJob(c.Request.Context(), name, tenantID)
	if err != nil {
		if errors.Is(err, ErrUnknownJob) {
			apiresponses.RespondNotFound(c, "job", name)
			return
		}
		if errors.Is(err, ErrUnknownTenant) {
			apiresponses.RespondNotFound(c, "tenant", tenantID)
			return
		}
		metrics.APIEndpointErrors.WithLabelValues("jobs_run").Inc()
		apiresponses.RespondInternalError(c, "run job", err, jc.log)
		return
	}
	apiresponses.RespondOK(c, gin.H{"job": name, "results": results})
}

package escalation

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fieldops/console/pkg/apiresponses"
	"github.com/fieldops/console/pkg/metrics"
)

// Controller exposes the configured escalation ladders read-only.
// Ladders are process configuration; changing them means editing the
// ladder file and restarting.
type Controller struct {
	ladders *Ladders
}

// NewController creates the ladders controller.
func NewController(ladders *Ladders) *Controller {
	return &Controller{ladders: ladders}
}

func (lc *Controller) BasePath() string { return "ladders" }

func (lc *Controller) Handlers() []gin.HandlerFunc { return nil }

func (lc *Controller) Register(rg *gin.RouterGroup) error {
	rg.GET("", lc.listLadders)
	rg.GET(":category", lc.getLadder)
	return nil
}

func (lc *Controller) listLadders(c *gin.Context) {
	metrics.APIEndpointRequests.WithLabelValues("ladders_list").Inc()
	apiresponses.RespondOK(c, gin.H{"ladders": lc.ladders.All()})
}

// getLadder returns the ladder that would apply to the given category,
// fallback included, so callers see the effective policy.
func (lc *Controller) getLadder(c *gin.Context) {
	metrics.APIEndpointRequests.WithLabelValues("ladders_get").Inc()
	category := strings.ToLower(c.Param("category"))
	apiresponses.RespondOK(c, lc.ladders.For(category))
}

package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"donation-console/internal/delivery/http/respond"
	"donation-console/internal/metrics"
	"donation-console/internal/middleware"
	"donation-console/pkg/utils"
)

type MetricsHandler struct {
	dashboard *metrics.Dashboard
}

func NewMetricsHandler(dashboard *metrics.Dashboard) *MetricsHandler {
	return &MetricsHandler{dashboard: dashboard}
}

func (h *MetricsHandler) RegisterRoutes(router *gin.RouterGroup) {
	m := router.Group("/metrics")
	{
		m.GET("", h.Get)
		m.GET("/donors", h.Donors)
		m.GET("/report.pdf", h.Report)
	}
}

type metricsView struct {
	*metrics.Metrics
	ByMonth    []metrics.Count `json:"porMes"`
	ByProvince []metrics.Count `json:"porProvincia"`
	Top        []metrics.Count `json:"topProductos"`
	FetchedAt  time.Time       `json:"actualizado"`
}

func (h *MetricsHandler) Get(c *gin.Context) {
	m, err := h.dashboard.Metrics(c.Request.Context(), middleware.GetSession(c), c.Query("refresh") == "true")
	if err != nil {
		respond.Error(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", metricsView{
		Metrics:    m,
		ByMonth:    metrics.SortedByMonth(m.RequestsByMonth),
		ByProvince: metrics.SortedByValue(m.RequestsByProvince),
		Top:        metrics.SortedByValue(m.TopProducts),
		FetchedAt:  h.dashboard.FetchedAt(),
	})
}

type donorView struct {
	metrics.DonationDonors
	Gratitude string `json:"agradecimiento"`
}

func (h *MetricsHandler) Donors(c *gin.Context) {
	items, err := h.dashboard.Donors(c.Request.Context(), middleware.GetSession(c))
	if err != nil {
		respond.Error(c, err)
		return
	}

	views := make([]donorView, 0, len(items))
	for _, d := range items {
		views = append(views, donorView{DonationDonors: d, Gratitude: d.Gratitude()})
	}
	utils.SuccessResponse(c, http.StatusOK, "", views)
}

// Report renders the PDF in memory so a failure can still be answered as JSON.
func (h *MetricsHandler) Report(c *gin.Context) {
	ctx := c.Request.Context()
	sess := middleware.GetSession(c)

	m, err := h.dashboard.Metrics(ctx, sess, false)
	if err != nil {
		respond.Error(c, err)
		return
	}
	var donors []metrics.DonationDonors
	if c.Query("donantes") != "false" {
		if donors, err = h.dashboard.Donors(ctx, sess); err != nil {
			respond.Error(c, err)
			return
		}
	}

	now := time.Now()
	var buf bytes.Buffer
	if err := (metrics.Report{Metrics: m, Donors: donors, GeneratedAt: now}).Write(&buf); err != nil {
		respond.Error(c, err)
		return
	}

	filename := fmt.Sprintf("reporte-distribucion-%s.pdf", now.Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

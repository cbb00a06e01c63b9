package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gokaycavdar/go-vpnsense/pkg/config"
	"github.com/gokaycavdar/go-vpnsense/pkg/detector"
	"github.com/gokaycavdar/go-vpnsense/pkg/engine"
	"github.com/gokaycavdar/go-vpnsense/pkg/geoip"
	"github.com/gokaycavdar/go-vpnsense/pkg/models"
	"github.com/gokaycavdar/go-vpnsense/pkg/netaddr"
	"github.com/gokaycavdar/go-vpnsense/pkg/probes"
	"github.com/gokaycavdar/go-vpnsense/pkg/reputation"
	"github.com/gokaycavdar/go-vpnsense/pkg/storage"
)

const (
	defaultListLimit = 20
	maxListLimit     = 200
)

// Server scores client-submitted reports.
type Server struct {
	cfg     config.Config
	logger  *zap.Logger
	geo     *geoip.Service
	history storage.HistoryStore
	proxies *reputation.ProxyList
}

// NewServer creates the service. geo and history may be nil.
func NewServer(cfg config.Config, logger *zap.Logger, geo *geoip.Service, history storage.HistoryStore) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{cfg: cfg, logger: logger, geo: geo, history: history}
}

// WithProxyList flags submissions from, and exits through, listed proxies.
func (s *Server) WithProxyList(l *reputation.ProxyList) *Server {
	s.proxies = l
	return s
}

// ClientInfo describes the address the report was submitted from.
// It is informational and never scored.
type ClientInfo struct {
	Prefix     string `json:"prefix,omitempty"`
	Country    string `json:"country,omitempty"`
	ASN        uint   `json:"asn,omitempty"`
	Org        string `json:"org,omitempty"`
	Datacenter string `json:"datacenter,omitempty"`
	KnownProxy bool   `json:"known_proxy,omitempty"`

	// Timezone is the zone GeoIP places the address in. TimezoneMismatch is set
	// when the browser reported a different one.
	Timezone         string `json:"timezone,omitempty"`
	TimezoneMismatch bool   `json:"timezone_mismatch,omitempty"`
}

// VerdictResponse is returned by POST /api/v1/verdict.
type VerdictResponse struct {
	*models.Verdict
	Client ClientInfo `json:"client"`
}

// Router builds the gin engine.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger(), cors())

	r.GET("/healthz", s.handleHealth)

	v1 := r.Group("/api/v1")
	v1.POST("/verdict", s.handleVerdict)
	v1.GET("/verdicts", s.handleListVerdicts)
	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		s.logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()))
	}
}

// cors lets browser-side collectors on any origin submit reports.
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleVerdict(c *gin.Context) {
	var report models.Report
	if err := c.ShouldBindJSON(&report); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var ann detector.Annotations
	if s.geo != nil {
		ann.ASN = s.geo
	}
	if s.proxies != nil {
		ann.Proxies = s.proxies
	}

	d := engine.New(s.cfg.EngineConfig(), s.logger, detector.ForReport(s.cfg, report, ann)...)
	if s.history != nil {
		d.WithHistory(s.history)
	}

	v := d.Detect(c.Request.Context())
	c.JSON(http.StatusOK, VerdictResponse{Verdict: v, Client: s.describeClient(c.ClientIP(), report.Environment.Timezone)})
}

func (s *Server) describeClient(ip, clientTimezone string) ClientInfo {
	info := ClientInfo{Prefix: netaddr.MaskIP(ip)}
	if s.proxies != nil {
		info.KnownProxy = s.proxies.Contains(ip)
	}
	if s.geo == nil || !netaddr.IsPublicIPv4(ip) {
		return info
	}

	geo, err := s.geo.Lookup(ip)
	if err != nil {
		return info
	}
	info.Country = geo.CountryCode
	info.ASN = geo.ASN
	info.Org = geo.OrgName
	if provider, ok := probes.DatacenterProvider(geo.ASN); ok {
		info.Datacenter = provider
	}

	info.Timezone = geo.Timezone
	info.TimezoneMismatch = timezoneMismatch(geo.Timezone, clientTimezone)
	return info
}

// timezoneMismatch compares IANA zone names. Either side missing is not a mismatch.
func timezoneMismatch(ipZone, clientZone string) bool {
	if ipZone == "" || clientZone == "" {
		return false
	}
	return ipZone != clientZone
}

func (s *Server) handleListVerdicts(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "history is disabled"})
		return
	}

	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxListLimit)
	}

	verdicts, err := s.history.Recent(c.Request.Context(), limit)
	if err != nil {
		s.logger.Error("failed to read history", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "history unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"verdicts": verdicts, "count": len(verdicts)})
}

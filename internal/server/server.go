// Package server exposes the matching pipeline as an authenticated web job
// API: upload a workbook, poll the job, download the result.
package server

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"shop-dedup/internal/calculator"
	"shop-dedup/internal/config"
	"shop-dedup/internal/jobs"
	"shop-dedup/internal/pipeline"
)

const sessionName = "shopdedup"

// RunFunc runs one pipeline; tests substitute it.
type RunFunc func(mode pipeline.Mode, in pipeline.Input, output string, opts calculator.Options) (*pipeline.Summary, error)

type Server struct {
	cfg      *config.Config
	log      *zap.Logger
	store    *jobs.Store
	metrics  *jobs.Metrics
	registry *prometheus.Registry
	run      RunFunc
	level    *zap.AtomicLevel
}

type Option func(*Server)

func WithRunFunc(fn RunFunc) Option {
	return func(s *Server) { s.run = fn }
}

// WithLogLevel exposes level at /log-level for authenticated users.
func WithLogLevel(level zap.AtomicLevel) Option {
	return func(s *Server) { s.level = &level }
}

func New(cfg *config.Config, log *zap.Logger, opts ...Option) *Server {
	reg := prometheus.NewRegistry()
	s := &Server{
		cfg:      cfg,
		log:      log,
		store:    jobs.NewStore(),
		metrics:  jobs.NewMetrics(reg),
		registry: reg,
		run:      pipeline.Run,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Server) Store() *jobs.Store {
	return s.store
}

func (s *Server) authRequired(c *gin.Context) {
	session := sessions.Default(c)
	if session.Get("user") == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "login required"})
		return
	}
	c.Next()
}

// Router builds the gin engine.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(s.cfg.Server.SessionSecret))
	r.Use(sessions.Sessions(sessionName, store))

	r.POST("/login", s.login)
	r.GET("/logout", s.logout)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	authorized := r.Group("/")
	authorized.Use(s.authRequired)
	{
		authorized.POST("/run", s.startRun)
		authorized.GET("/logs", s.jobLogs)
		authorized.GET("/status", s.jobStatus)
		authorized.POST("/cancel", s.cancel)
		authorized.GET("/download-result/:filename", s.download)
		if s.level != nil {
			authorized.GET("/log-level", gin.WrapH(s.level))
			authorized.PUT("/log-level", gin.WrapH(s.level))
		}
	}
	return r
}

// Run serves until the listener fails.
func (s *Server) Run() error {
	gin.SetMode(gin.ReleaseMode)
	if err := os.MkdirAll(s.cfg.Server.UploadDir, 0o750); err != nil {
		return fmt.Errorf("creating upload dir: %w", err)
	}
	if err := os.MkdirAll(s.cfg.Server.OutputDir, 0o750); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	s.log.Info("server listening", zap.String("port", s.cfg.Server.Port))
	return s.Router().Run(":" + s.cfg.Server.Port)
}

func (s *Server) login(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")

	if s.cfg.Server.Username == "" || username != s.cfg.Server.Username || password != s.cfg.Server.Password {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "invalid username or password"})
		return
	}
	session := sessions.Default(c)
	session.Set("user", username)
	if err := session.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	_ = session.Save()
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) startRun(c *gin.Context) {
	file, err := c.FormFile("input_file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "input_file is required"})
		return
	}
	mode, err := pipeline.ParseMode(c.PostForm("mode"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}

	opts, err := s.cfg.MatchOptions()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	if v := c.PostForm("threshold_km"); v != "" {
		km, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", "."), 64)
		if err != nil || km < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "threshold_km must be a non-negative number"})
			return
		}
		opts.DuplicateThresholdKm = km
	}

	if err := os.MkdirAll(s.cfg.Server.UploadDir, 0o750); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	if err := os.MkdirAll(s.cfg.Server.OutputDir, 0o750); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	base := fmt.Sprintf("%s_%s", uuid.New().String(), filepath.Base(file.Filename))
	inputPath := filepath.Join(s.cfg.Server.UploadDir, base)
	if err := c.SaveUploadedFile(file, inputPath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "could not store upload"})
		return
	}
	ext := filepath.Ext(base)
	outputPath := filepath.Join(s.cfg.Server.OutputDir, fmt.Sprintf("%s_%s.xlsx", strings.TrimSuffix(base, ext), mode))

	job := s.store.New()
	s.metrics.Started.WithLabelValues(string(mode)).Inc()
	go s.processJob(job, mode, inputPath, outputPath, opts)

	c.JSON(http.StatusAccepted, gin.H{"ok": true, "job_id": job.ID})
}

func (s *Server) processJob(job *jobs.Job, mode pipeline.Mode, inputPath, outputPath string, opts calculator.Options) {
	start := time.Now()
	log := s.log.With(zap.String("job_id", job.ID), zap.String("mode", string(mode)))

	defer func() {
		if r := recover(); r != nil {
			log.Error("job panicked", zap.Any("panic", r))
			s.metrics.Finished.WithLabelValues(string(mode), string(jobs.StatusError)).Inc()
			job.Fail(fmt.Sprintf("panic: %v", r))
		}
	}()

	job.Log(fmt.Sprintf("Processing %s (mode %s, threshold %.3f km)", filepath.Base(inputPath), mode, opts.DuplicateThresholdKm))

	opts.Logger = log
	opts.OnProgress = job.SetProgress

	in := pipeline.Input{
		Path:    inputPath,
		Sheet:   s.cfg.Columns.Sheet,
		Columns: s.cfg.ExcelColumns(),
	}
	sum, err := s.run(mode, in, outputPath, opts)
	s.metrics.Duration.WithLabelValues(string(mode)).Observe(time.Since(start).Seconds())
	if err != nil {
		log.Error("job failed", zap.Error(err))
		s.metrics.Finished.WithLabelValues(string(mode), string(jobs.StatusError)).Inc()
		job.Fail(err.Error())
		return
	}

	s.metrics.Processed.WithLabelValues(string(mode)).Add(float64(sum.Read))
	s.metrics.Finished.WithLabelValues(string(mode), string(jobs.StatusDone)).Inc()
	job.Log(fmt.Sprintf("%d rows read, %d skipped, %d secured, %d unsecured", sum.Read, sum.Skipped, sum.Secured, sum.Unsecured))
	job.Complete(&jobs.Result{
		Mode:     string(sum.Mode),
		Rows:     sum.Rows,
		Sheet:    sum.Sheet,
		Output:   sum.Output,
		Filename: filepath.Base(sum.Output),
	})
}

func (s *Server) jobFromQuery(c *gin.Context) *jobs.Job {
	job := s.store.Get(c.Query("job_id"))
	if job == nil {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "job not found"})
	}
	return job
}

func (s *Server) jobLogs(c *gin.Context) {
	job := s.jobFromQuery(c)
	if job == nil {
		return
	}
	snap := job.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"ok":       true,
		"logs":     snap.Logs,
		"status":   snap.Status,
		"progress": snap.Progress,
	})
}

func (s *Server) jobStatus(c *gin.Context) {
	job := s.jobFromQuery(c)
	if job == nil {
		return
	}
	snap := job.Snapshot()
	res := gin.H{
		"ok":     true,
		"status": snap.Status,
		"error":  snap.Error,
	}
	if snap.Result != nil {
		res["result"] = snap.Result
	}
	c.JSON(http.StatusOK, res)
}

// Matching runs to completion; a cancel request is only recorded.
func (s *Server) cancel(c *gin.Context) {
	if job := s.store.Get(c.Query("job_id")); job != nil {
		job.Log("Cancellation requested by user; the run will complete.")
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) download(c *gin.Context) {
	name := filepath.Base(c.Param("filename"))
	target := filepath.Join(s.cfg.Server.OutputDir, name)
	if _, err := os.Stat(target); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "result not found"})
		return
	}
	c.FileAttachment(target, name)
}

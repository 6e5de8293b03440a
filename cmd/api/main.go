package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rollcall/internal/apperr"
	"rollcall/internal/attendance"
	"rollcall/internal/auth"
	"rollcall/internal/config"
	"rollcall/internal/httpmiddleware"
	"rollcall/internal/roster"
	"rollcall/internal/store"
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		if db == nil {
			return err
		}
		log.Printf("warning: db not reachable: %v", err)
	}
	defer func() {
		if db != nil {
			_ = db.Close()
		}
	}()

	redisClient := store.NewRedis(cfg.RedisAddr)

	rosterRepo := roster.NewRepository(db.Client)
	attRepo := attendance.NewRepository(db.Client)

	directory := roster.NewService(rosterRepo, cfg.DefaultPassword)
	att := attendance.NewService(attRepo)
	login := auth.NewService(rosterRepo, cfg.StudentDomain, cfg.TeacherDomain)
	tokens := auth.NewTokenStore(redisClient.Client)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := httpmiddleware.NewRequestMetrics(reg)

	var limiter httpmiddleware.Limiter
	if cfg.RateLimitBackend == "redis" {
		limiter = httpmiddleware.NewRedisWindow(redisClient.Client, cfg.RateLimitPerMin)
	} else {
		limiter = httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/health", "/metrics"},
	}))
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:          24 * time.Hour,
	}))
	r.Use(securityHeaders())
	r.Use(httpmiddleware.RateLimit(limiter))
	r.Use(metrics.Middleware())

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	r.GET("/health", func(c *gin.Context) {
		ctx := c.Request.Context()
		if !db.Healthy(ctx) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "DB_DOWN"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "UP", "redis": redisClient.Healthy(ctx)})
	})

	r.POST("/login", func(c *gin.Context) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
			DeviceID string `json:"device_id"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" || req.Password == "" {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Email, Password required"})
			return
		}

		user, userType, err := login.Login(c.Request.Context(), req.Email, req.Password, req.DeviceID)
		if err != nil {
			respondError(c, err)
			return
		}

		pair, err := auth.Issue(user.ID, userType, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "token issue failed"})
			return
		}
		if err := tokens.SaveRefresh(c.Request.Context(), user.ID, pair.RefreshToken, pair.RefreshExp); err != nil {
			log.Printf("refresh token save failed for %s: %v", user.ID, err)
		}

		c.JSON(http.StatusOK, gin.H{
			"message":   "Login successful",
			"user":      user,
			"user_type": userType,
			"tokens": gin.H{
				"access_token":  pair.AccessToken,
				"refresh_token": pair.RefreshToken,
				"expires_at":    pair.AccessExp.Unix(),
			},
		})
	})

	r.POST("/refresh-token", func(c *gin.Context) {
		var req struct {
			RefreshToken string `json:"refresh_token" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Refresh token required"})
			return
		}

		claims, err := auth.Parse(req.RefreshToken, cfg.JWTSigningKey, cfg.JWTIssuer)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid refresh token"})
			return
		}
		if err := tokens.CheckRefresh(c.Request.Context(), claims.Subject, req.RefreshToken); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid refresh token"})
			return
		}

		pair, err := auth.Issue(claims.Subject, claims.Role, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "token issue failed"})
			return
		}
		if err := tokens.SaveRefresh(c.Request.Context(), claims.Subject, pair.RefreshToken, pair.RefreshExp); err != nil {
			log.Printf("refresh token save failed for %s: %v", claims.Subject, err)
		}

		c.JSON(http.StatusOK, gin.H{
			"access_token":  pair.AccessToken,
			"refresh_token": pair.RefreshToken,
			"expires_at":    pair.AccessExp.Unix(),
		})
	})

	r.GET("/students/:dept", func(c *gin.Context) {
		students, err := directory.ListByDept(c.Request.Context(), c.Param("dept"))
		if err != nil {
			respondError(c, err)
			return
		}
		if len(students) == 0 {
			c.JSON(http.StatusNotFound, gin.H{"message": "No students found for this department"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"count": len(students), "students": students})
	})

	r.GET("/student/:id", func(c *gin.Context) {
		student, err := directory.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, student)
	})

	r.GET("/attendance/:dept", func(c *gin.Context) {
		records, err := att.TodayByDept(c.Request.Context(), c.Param("dept"))
		if err != nil {
			respondError(c, err)
			return
		}
		if len(records) == 0 {
			c.JSON(http.StatusNotFound, gin.H{"message": "No attendance found for today"})
			return
		}
		c.JSON(http.StatusOK, records)
	})

	// Unconditional insert: no same-day dedup, the caller supplies the
	// denormalized fields. POST /mark-attendance is the safe path.
	r.POST("/attendance", func(c *gin.Context) {
		var req struct {
			StudentID   string `json:"studentId" binding:"required"`
			StudentName string `json:"studentName" binding:"required"`
			StudentDept string `json:"studentDept" binding:"required"`
			Status      string `json:"status" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Missing required fields"})
			return
		}

		rec, err := att.Record(c.Request.Context(), req.StudentID, req.StudentName, req.StudentDept, req.Status)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": "Attendance recorded successfully", "data": rec})
	})

	r.POST("/mark-attendance", func(c *gin.Context) {
		var req struct {
			StudentID string `json:"student_id" binding:"required"`
			Status    string `json:"status" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Missing student_id or status"})
			return
		}

		rec, created, err := att.Mark(c.Request.Context(), req.StudentID, req.Status)
		if err != nil {
			respondError(c, err)
			return
		}
		if created {
			c.JSON(http.StatusCreated, gin.H{"message": "New attendance entry created for today", "data": rec})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Attendance updated successfully", "data": rec})
	})

	r.GET("/student-attendance/:id", func(c *gin.Context) {
		statuses, err := att.TodayStatus(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		// An empty list means absent; the client interprets it, not us.
		out := make([]gin.H, 0, len(statuses))
		for _, s := range statuses {
			out = append(out, gin.H{"status": s})
		}
		c.JSON(http.StatusOK, out)
	})

	r.POST("/add-student", func(c *gin.Context) {
		var req struct {
			UserID    string `json:"userId" binding:"required"`
			UserName  string `json:"userName" binding:"required"`
			UserEmail string `json:"userEmail" binding:"required"`
			UserDept  string `json:"userDept" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "All fields required"})
			return
		}

		student, err := directory.Add(c.Request.Context(), req.UserID, req.UserName, req.UserEmail, req.UserDept)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": "Student added successfully", "student": student})
	})

	r.POST("/reset-device", func(c *gin.Context) {
		var req struct {
			UserID string `json:"userId" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Student ID required"})
			return
		}

		student, err := directory.ResetDevice(c.Request.Context(), req.UserID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Device ID reset successfully", "student": student})
	})

	r.POST("/update-device", func(c *gin.Context) {
		var req struct {
			StudentID string `json:"student_id" binding:"required"`
			DeviceID  string `json:"device_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Missing student_id or device_id"})
			return
		}

		student, err := directory.SetDevice(c.Request.Context(), req.StudentID, req.DeviceID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Device ID updated successfully", "student": student})
	})

	r.GET("/device/:studentId", func(c *gin.Context) {
		studentID := c.Param("studentId")
		device, err := directory.Device(c.Request.Context(), studentID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message":    "Device ID fetched successfully",
			"student_id": studentID,
			"device_id":  device,
		})
	})

	r.POST("/update/:studentId", func(c *gin.Context) {
		edit, err := bindStudentEdit(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
			return
		}

		student, err := directory.Edit(c.Request.Context(), c.Param("studentId"), edit)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Student updated successfully", "student": student})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

// bindStudentEdit reads a partial student edit from the request body. An
// empty body is a valid edit that changes nothing.
func bindStudentEdit(c *gin.Context) (roster.StudentEdit, error) {
	var edit roster.StudentEdit
	if err := c.ShouldBindJSON(&edit); err != nil {
		if errors.Is(err, io.EOF) {
			return roster.StudentEdit{}, nil
		}
		return roster.StudentEdit{}, err
	}
	return edit, nil
}

// respondError maps service error kinds to HTTP statuses. Anything outside
// the taxonomy is a store failure and surfaces as a 500.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperr.ErrMissingField):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Missing required fields"})
	case errors.Is(err, apperr.ErrInvalidDomain):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid email domain"})
	case errors.Is(err, apperr.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials"})
	case errors.Is(err, apperr.ErrStudentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Student not found"})
	case errors.Is(err, apperr.ErrTeacherNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Teacher not found"})
	case errors.Is(err, apperr.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"message": "Student ID or Email already exists"})
	default:
		log.Printf("request failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}

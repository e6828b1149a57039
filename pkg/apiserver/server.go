package apiserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/staffdir/staffdir/pkg/apiserver/handlers"
	"github.com/staffdir/staffdir/pkg/apiserver/middleware"
	"github.com/staffdir/staffdir/pkg/apperr"
	"github.com/staffdir/staffdir/pkg/bulkimport"
	"github.com/staffdir/staffdir/pkg/config"
	"github.com/staffdir/staffdir/pkg/iam"
	"github.com/staffdir/staffdir/pkg/queue"
	"github.com/staffdir/staffdir/pkg/service"
	"github.com/staffdir/staffdir/pkg/store/postgres"
)

type Server struct {
	router *gin.Engine
	cfg    *config.Config
	logger *zap.Logger

	staff       *service.StaffService
	departments *service.DepartmentService
	roleTitles  *service.RoleTitleService
	teams       *service.TeamService
	companies   *service.CompanyService
	locations   *service.LocationService
	importer    *bulkimport.Importer
}

func NewServer(db *postgres.Store, iamClient *iam.Client, tasks *queue.TaskQueue,
	artifacts bulkimport.ArtifactStore, cfg *config.Config, logger *zap.Logger) *Server {
	s := &Server{
		cfg:         cfg,
		logger:      logger,
		staff:       service.NewStaffService(db, iamClient, tasks, logger),
		departments: service.NewDepartmentService(db, logger),
		roleTitles:  service.NewRoleTitleService(db, logger),
		teams:       service.NewTeamService(db, logger),
		companies:   service.NewCompanyService(db),
		locations:   service.NewLocationService(db),
		importer:    bulkimport.NewImporter(db, artifacts, tasks, logger),
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.Logger(s.logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.CORS(s.cfg.Server.CORSAllowedOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	{
		api.Use(middleware.Auth())
		if s.cfg.Server.Maintenance {
			api.Use(func(c *gin.Context) {
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
					"code":    apperr.CodeMaintenance,
					"message": "service is under maintenance",
				})
			})
		}

		staffHandler := handlers.NewStaffHandler(s.staff, s.importer, s.logger)
		api.POST("/staffs", staffHandler.Create)
		api.GET("/staffs", staffHandler.List)
		api.GET("/staffs/by-email", staffHandler.GetByEmail)
		api.GET("/staffs/:id", staffHandler.Get)
		api.PUT("/staffs/:id", staffHandler.Update)
		api.POST("/staffs/import", staffHandler.Import)
		api.POST("/staffs/reconcile", staffHandler.Reconcile)

		departmentHandler := handlers.NewDepartmentHandler(s.departments, s.logger)
		api.POST("/departments", departmentHandler.Create)
		api.GET("/departments", departmentHandler.List)
		api.GET("/departments/:id", departmentHandler.Get)
		api.PUT("/departments/:id", departmentHandler.Update)
		api.PUT("/departments/:id/staffs/:staff_id", departmentHandler.UpdateStaff)

		roleTitleHandler := handlers.NewRoleTitleHandler(s.roleTitles, s.logger)
		api.POST("/role-titles", roleTitleHandler.Create)
		api.GET("/role-titles", roleTitleHandler.List)
		api.GET("/role-titles/:id", roleTitleHandler.Get)
		api.PUT("/role-titles/:id", roleTitleHandler.Update)

		teamHandler := handlers.NewTeamHandler(s.teams, s.logger)
		api.POST("/teams", teamHandler.Create)
		api.GET("/teams", teamHandler.List)
		api.GET("/teams/:id", teamHandler.Get)
		api.PUT("/teams/:id", teamHandler.Update)
		api.PUT("/teams/:id/staffs", teamHandler.UpdateStaffs)

		companyHandler := handlers.NewCompanyHandler(s.companies, s.logger)
		api.GET("/companies", companyHandler.List)
		api.GET("/companies/:id", companyHandler.Get)
		api.GET("/companies/:id/staff-tree", staffHandler.Tree)
		api.GET("/companies/:id/department-tree", departmentHandler.Tree)
		api.GET("/corporations", companyHandler.ListCorporations)

		locationHandler := handlers.NewLocationHandler(s.locations, s.logger)
		api.GET("/locations", locationHandler.List)
		api.PUT("/locations/:code", locationHandler.Assign)
		api.GET("/locations/:code/staff", locationHandler.GetStaff)
	}

	s.router = r
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

package app

import (
	"coder_edu_assessment/docs"
	"coder_edu_assessment/internal/config"
	"coder_edu_assessment/internal/middleware"
	"coder_edu_assessment/internal/model"
	"coder_edu_assessment/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())
	router.GET("/api/health", c.health.HealthCheck)

	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg.JWT.Secret))
	{
		// 学生接口
		a.registerStudentRoutes(authGroup, c)

		// 教师接口
		a.registerTeacherRoutes(authGroup, c)
	}
}

func (a *App) registerStudentRoutes(group *gin.RouterGroup, c *controllers) {
	assessments := group.Group("/assessments")
	{
		assessments.GET("/:id", c.assessment.GetAssessment)
		assessments.POST("/:id/submit", c.assessment.Submit)
		assessments.GET("/:id/attempts", c.assessment.GetAttempts)
		assessments.GET("/:id/submissions/mine", c.assessment.ListMySubmissions)
	}
}

func (a *App) registerTeacherRoutes(group *gin.RouterGroup, c *controllers) {
	teacher := group.Group("/teacher/assessments")
	teacher.Use(middleware.RoleMiddleware(model.Teacher, model.Admin))
	{
		teacher.POST("", c.assessment.CreateAssessment)
		teacher.GET("", c.assessment.ListAssessments)

		teacher.GET("/submissions/:sid", c.assessment.GetSubmission)
		teacher.POST("/submissions/:sid/review", c.assessment.ReviewSubmission)

		teacher.GET("/:id", c.assessment.GetAssessmentDetail)
		teacher.PUT("/:id", c.assessment.UpdateAssessment)
		teacher.POST("/:id/publish", c.assessment.Publish)
		teacher.POST("/:id/archive", c.assessment.Archive)
		teacher.GET("/:id/submissions", c.assessment.ListSubmissions)

		teacher.POST("/:id/questions", c.assessment.AddQuestion)
		teacher.PUT("/:id/questions/order", c.assessment.ReorderQuestions)
		teacher.PUT("/:id/questions/:qid", c.assessment.UpdateQuestion)
		teacher.DELETE("/:id/questions/:qid", c.assessment.RemoveQuestion)
	}
}

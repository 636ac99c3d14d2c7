package controller

import (
	"coder_edu_assessment/internal/service"
	"coder_edu_assessment/internal/util"

	"github.com/gin-gonic/gin"
)

type AssessmentController struct {
	Service *service.AssessmentService
}

func NewAssessmentController(svc *service.AssessmentService) *AssessmentController {
	return &AssessmentController{Service: svc}
}

// actor 从 JWT claims 构造当前身份，缺失时已写出 401
func actor(ctx *gin.Context) (service.Actor, bool) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return service.Actor{}, false
	}
	return service.Actor{UserID: claims.UserID, Role: claims.Role}, true
}

// @Summary 提交测评答案
// @Description 评分并记录一次提交，受次数上限约束
// @Tags 测评
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "测评ID"
// @Param body body service.SubmitRequest true "答案列表"
// @Success 200 {object} util.Response{data=service.SubmitResult}
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/assessments/{id}/submit [post]
func (c *AssessmentController) Submit(ctx *gin.Context) {
	user, ok := actor(ctx)
	if !ok {
		return
	}

	var req service.SubmitRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, "answers: malformed request body")
		return
	}

	res, err := c.Service.Submit(ctx.Request.Context(), ctx.Param("id"), user.UserID, req.Answers)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, res)
}

// @Summary 获取测评（学生视图）
// @Description 不包含正确答案和解析
// @Tags 测评
// @Produce json
// @Security BearerAuth
// @Param id path string true "测评ID"
// @Success 200 {object} util.Response{data=service.StudentAssessmentView}
// @Router /api/assessments/{id} [get]
func (c *AssessmentController) GetAssessment(ctx *gin.Context) {
	view, err := c.Service.GetStudentView(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// @Summary 查询剩余作答次数
// @Tags 测评
// @Produce json
// @Security BearerAuth
// @Param id path string true "测评ID"
// @Success 200 {object} util.Response{data=service.AttemptInfo}
// @Router /api/assessments/{id}/attempts [get]
func (c *AssessmentController) GetAttempts(ctx *gin.Context) {
	user, ok := actor(ctx)
	if !ok {
		return
	}
	info, err := c.Service.AttemptInfo(ctx.Request.Context(), ctx.Param("id"), user.UserID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, info)
}

// @Summary 我的提交记录
// @Tags 测评
// @Produce json
// @Security BearerAuth
// @Param id path string true "测评ID"
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/assessments/{id}/submissions/mine [get]
func (c *AssessmentController) ListMySubmissions(ctx *gin.Context) {
	user, ok := actor(ctx)
	if !ok {
		return
	}
	page, limit := util.ParsePage(ctx)
	list, total, err := c.Service.ListMySubmissions(ctx.Request.Context(), ctx.Param("id"), user.UserID, page, limit)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: list, Total: total, Page: page, Limit: limit})
}

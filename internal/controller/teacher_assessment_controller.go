package controller

import (
	"coder_edu_assessment/internal/model"
	"coder_edu_assessment/internal/service"
	"coder_edu_assessment/internal/util"

	"github.com/gin-gonic/gin"
)

// @Summary 创建测评
// @Tags 测评管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.CreateAssessmentRequest true "测评信息"
// @Success 201 {object} util.Response{data=model.Assessment}
// @Router /api/teacher/assessments [post]
func (c *AssessmentController) CreateAssessment(ctx *gin.Context) {
	user, ok := actor(ctx)
	if !ok {
		return
	}
	var req service.CreateAssessmentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	a, err := c.Service.CreateAssessment(ctx.Request.Context(), user, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, a)
}

// @Summary 测评列表
// @Tags 测评管理
// @Produce json
// @Security BearerAuth
// @Param status query string false "draft/published/archived"
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/teacher/assessments [get]
func (c *AssessmentController) ListAssessments(ctx *gin.Context) {
	page, limit := util.ParsePage(ctx)
	status := model.AssessmentStatus(ctx.Query("status"))

	list, total, err := c.Service.ListAssessments(ctx.Request.Context(), status, page, limit)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: list, Total: total, Page: page, Limit: limit})
}

// @Summary 测评详情（含答案）
// @Tags 测评管理
// @Produce json
// @Security BearerAuth
// @Param id path string true "测评ID"
// @Success 200 {object} util.Response{data=model.Assessment}
// @Router /api/teacher/assessments/{id} [get]
func (c *AssessmentController) GetAssessmentDetail(ctx *gin.Context) {
	a, err := c.Service.GetAssessment(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, a)
}

// @Summary 更新测评信息
// @Tags 测评管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "测评ID"
// @Param body body service.UpdateAssessmentRequest true "更新字段"
// @Success 200 {object} util.Response{data=model.Assessment}
// @Router /api/teacher/assessments/{id} [put]
func (c *AssessmentController) UpdateAssessment(ctx *gin.Context) {
	user, ok := actor(ctx)
	if !ok {
		return
	}
	var req service.UpdateAssessmentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	a, err := c.Service.UpdateAssessment(ctx.Request.Context(), user, ctx.Param("id"), req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, a)
}

// @Summary 发布测评
// @Tags 测评管理
// @Produce json
// @Security BearerAuth
// @Param id path string true "测评ID"
// @Success 200 {object} util.Response{data=model.Assessment}
// @Router /api/teacher/assessments/{id}/publish [post]
func (c *AssessmentController) Publish(ctx *gin.Context) {
	user, ok := actor(ctx)
	if !ok {
		return
	}
	a, err := c.Service.Publish(ctx.Request.Context(), user, ctx.Param("id"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, a)
}

// @Summary 归档测评
// @Tags 测评管理
// @Produce json
// @Security BearerAuth
// @Param id path string true "测评ID"
// @Success 200 {object} util.Response{data=model.Assessment}
// @Router /api/teacher/assessments/{id}/archive [post]
func (c *AssessmentController) Archive(ctx *gin.Context) {
	user, ok := actor(ctx)
	if !ok {
		return
	}
	a, err := c.Service.Archive(ctx.Request.Context(), user, ctx.Param("id"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, a)
}

// @Summary 添加题目
// @Tags 测评管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "测评ID"
// @Param body body service.QuestionInput true "题目"
// @Success 201 {object} util.Response{data=model.AssessmentQuestion}
// @Router /api/teacher/assessments/{id}/questions [post]
func (c *AssessmentController) AddQuestion(ctx *gin.Context) {
	user, ok := actor(ctx)
	if !ok {
		return
	}
	var req service.QuestionInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	q, err := c.Service.AddQuestion(ctx.Request.Context(), user, ctx.Param("id"), req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, q)
}

// @Summary 修改题目
// @Tags 测评管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "测评ID"
// @Param qid path string true "题目ID"
// @Param body body service.UpdateQuestionRequest true "更新字段"
// @Success 200 {object} util.Response{data=model.AssessmentQuestion}
// @Router /api/teacher/assessments/{id}/questions/{qid} [put]
func (c *AssessmentController) UpdateQuestion(ctx *gin.Context) {
	user, ok := actor(ctx)
	if !ok {
		return
	}
	var req service.UpdateQuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	q, err := c.Service.UpdateQuestion(ctx.Request.Context(), user, ctx.Param("id"), ctx.Param("qid"), req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, q)
}

// @Summary 删除题目
// @Tags 测评管理
// @Produce json
// @Security BearerAuth
// @Param id path string true "测评ID"
// @Param qid path string true "题目ID"
// @Success 200 {object} util.Response{data=model.Assessment}
// @Router /api/teacher/assessments/{id}/questions/{qid} [delete]
func (c *AssessmentController) RemoveQuestion(ctx *gin.Context) {
	user, ok := actor(ctx)
	if !ok {
		return
	}
	a, err := c.Service.RemoveQuestion(ctx.Request.Context(), user, ctx.Param("id"), ctx.Param("qid"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, a)
}

// @Summary 调整题目顺序
// @Tags 测评管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "测评ID"
// @Param body body service.ReorderQuestionsRequest true "完整的题目ID顺序"
// @Success 200 {object} util.Response{data=model.Assessment}
// @Router /api/teacher/assessments/{id}/questions/order [put]
func (c *AssessmentController) ReorderQuestions(ctx *gin.Context) {
	user, ok := actor(ctx)
	if !ok {
		return
	}
	var req service.ReorderQuestionsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	a, err := c.Service.ReorderQuestions(ctx.Request.Context(), user, ctx.Param("id"), req.QuestionIDs)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, a)
}

// @Summary 测评的提交列表
// @Tags 测评管理
// @Produce json
// @Security BearerAuth
// @Param id path string true "测评ID"
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/teacher/assessments/{id}/submissions [get]
func (c *AssessmentController) ListSubmissions(ctx *gin.Context) {
	user, ok := actor(ctx)
	if !ok {
		return
	}
	page, limit := util.ParsePage(ctx)
	list, total, err := c.Service.ListSubmissions(ctx.Request.Context(), user, ctx.Param("id"), page, limit)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: list, Total: total, Page: page, Limit: limit})
}

// @Summary 提交详情
// @Tags 测评管理
// @Produce json
// @Security BearerAuth
// @Param sid path string true "提交ID"
// @Success 200 {object} util.Response{data=model.AssessmentSubmission}
// @Router /api/teacher/assessments/submissions/{sid} [get]
func (c *AssessmentController) GetSubmission(ctx *gin.Context) {
	user, ok := actor(ctx)
	if !ok {
		return
	}
	sub, err := c.Service.GetSubmission(ctx.Request.Context(), user, ctx.Param("sid"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, sub)
}

// @Summary 标记提交已复核
// @Tags 测评管理
// @Produce json
// @Security BearerAuth
// @Param sid path string true "提交ID"
// @Success 200 {object} util.Response{data=model.AssessmentSubmission}
// @Router /api/teacher/assessments/submissions/{sid}/review [post]
func (c *AssessmentController) ReviewSubmission(ctx *gin.Context) {
	user, ok := actor(ctx)
	if !ok {
		return
	}
	sub, err := c.Service.ReviewSubmission(ctx.Request.Context(), user, ctx.Param("sid"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, sub)
}

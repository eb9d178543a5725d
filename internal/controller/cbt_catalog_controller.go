package controller

import (
	"bizbox_backend/internal/repository"
	"bizbox_backend/internal/service"
	"bizbox_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// CatalogController exposes staff CRUD over the CBT catalog.
type CatalogController struct {
	Catalog *service.CatalogService
}

func NewCatalogController(catalog *service.CatalogService) *CatalogController {
	return &CatalogController{Catalog: catalog}
}

// Years

// CreateYear godoc
// @Summary Create an exam year
// @Tags CBT Catalog
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.CreateYearRequest true "Year"
// @Success 201 {object} util.Response{data=model.Year}
// @Router /api/cbt/years [post]
func (c *CatalogController) CreateYear(ctx *gin.Context) {
	var req service.CreateYearRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	year, err := c.Catalog.CreateYear(ctx.Request.Context(), req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, year)
}

// ListYears godoc
// @Summary List exam years, latest first
// @Tags CBT Catalog
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.Year}
// @Router /api/cbt/years [get]
func (c *CatalogController) ListYears(ctx *gin.Context) {
	years, err := c.Catalog.ListYears(ctx.Request.Context())
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, years)
}

// @Router /api/cbt/years/{id} [get]
func (c *CatalogController) GetYear(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	year, err := c.Catalog.GetYear(ctx.Request.Context(), id)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, year)
}

// @Router /api/cbt/years/{id} [patch]
func (c *CatalogController) UpdateYear(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.UpdateYearRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	year, err := c.Catalog.UpdateYear(ctx.Request.Context(), id, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, year)
}

// DeleteYear godoc
// @Summary Delete a year and every test of that year
// @Tags CBT Catalog
// @Security ApiKeyAuth
// @Param id path int true "Year ID"
// @Success 200 {object} util.Response
// @Router /api/cbt/years/{id} [delete]
func (c *CatalogController) DeleteYear(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	if err := c.Catalog.DeleteYear(ctx.Request.Context(), id); err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// Test types

// @Router /api/cbt/test-types [post]
func (c *CatalogController) CreateTestType(ctx *gin.Context) {
	var req service.CreateTestTypeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	tt, err := c.Catalog.CreateTestType(ctx.Request.Context(), req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, tt)
}

// @Router /api/cbt/test-types [get]
func (c *CatalogController) ListTestTypes(ctx *gin.Context) {
	types, err := c.Catalog.ListTestTypes(ctx.Request.Context())
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, types)
}

// @Router /api/cbt/test-types/{id} [get]
func (c *CatalogController) GetTestType(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	tt, err := c.Catalog.GetTestType(ctx.Request.Context(), id)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, tt)
}

// @Router /api/cbt/test-types/{id} [patch]
func (c *CatalogController) UpdateTestType(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.UpdateTestTypeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	tt, err := c.Catalog.UpdateTestType(ctx.Request.Context(), id, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, tt)
}

// DeleteTestType godoc
// @Summary Delete a test type and every test of that type
// @Tags CBT Catalog
// @Security ApiKeyAuth
// @Param id path int true "Test type ID"
// @Success 200 {object} util.Response
// @Router /api/cbt/test-types/{id} [delete]
func (c *CatalogController) DeleteTestType(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	if err := c.Catalog.DeleteTestType(ctx.Request.Context(), id); err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// Subjects

// CreateSubject godoc
// @Summary Create a subject, optionally linking existing questions
// @Tags CBT Catalog
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.CreateSubjectRequest true "Subject"
// @Success 201 {object} util.Response{data=model.Subject}
// @Failure 404 {object} util.Response "Unknown question id"
// @Router /api/cbt/subjects [post]
func (c *CatalogController) CreateSubject(ctx *gin.Context) {
	var req service.CreateSubjectRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	subject, err := c.Catalog.CreateSubject(ctx.Request.Context(), req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, subject)
}

// @Router /api/cbt/subjects [get]
func (c *CatalogController) ListSubjects(ctx *gin.Context) {
	subjects, err := c.Catalog.ListSubjects(ctx.Request.Context())
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, subjects)
}

// @Router /api/cbt/subjects/{id} [get]
func (c *CatalogController) GetSubject(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	subject, err := c.Catalog.GetSubject(ctx.Request.Context(), id)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, subject)
}

// @Router /api/cbt/subjects/{id} [patch]
func (c *CatalogController) UpdateSubject(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.UpdateSubjectRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	subject, err := c.Catalog.UpdateSubject(ctx.Request.Context(), id, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, subject)
}

// SetSubjectQuestions godoc
// @Summary Replace the questions linked to a subject
// @Tags CBT Catalog
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Subject ID"
// @Param body body service.SetSubjectQuestionsRequest true "Question ids"
// @Success 200 {object} util.Response{data=model.Subject}
// @Router /api/cbt/subjects/{id}/questions [put]
func (c *CatalogController) SetSubjectQuestions(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.SetSubjectQuestionsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	subject, err := c.Catalog.SetSubjectQuestions(ctx.Request.Context(), id, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, subject)
}

// DeleteSubject godoc
// @Summary Delete a subject
// @Description Links to tests and questions are removed; the tests and questions stay.
// @Tags CBT Catalog
// @Security ApiKeyAuth
// @Param id path int true "Subject ID"
// @Success 200 {object} util.Response
// @Router /api/cbt/subjects/{id} [delete]
func (c *CatalogController) DeleteSubject(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	if err := c.Catalog.DeleteSubject(ctx.Request.Context(), id); err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// Answers

// @Router /api/cbt/answers [post]
func (c *CatalogController) CreateAnswer(ctx *gin.Context) {
	var req service.CreateAnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	answer, err := c.Catalog.CreateAnswer(ctx.Request.Context(), req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, answer)
}

// @Router /api/cbt/answers [get]
func (c *CatalogController) ListAnswers(ctx *gin.Context) {
	answers, err := c.Catalog.ListAnswers(ctx.Request.Context())
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, answers)
}

// @Router /api/cbt/answers/{id} [get]
func (c *CatalogController) GetAnswer(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	answer, err := c.Catalog.GetAnswer(ctx.Request.Context(), id)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, answer)
}

// @Router /api/cbt/answers/{id} [patch]
func (c *CatalogController) UpdateAnswer(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.UpdateAnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	answer, err := c.Catalog.UpdateAnswer(ctx.Request.Context(), id, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, answer)
}

// DeleteAnswer godoc
// @Summary Delete an answer
// @Description Questions that used it as their correct answer are left without one.
// @Tags CBT Catalog
// @Security ApiKeyAuth
// @Param id path int true "Answer ID"
// @Success 200 {object} util.Response
// @Router /api/cbt/answers/{id} [delete]
func (c *CatalogController) DeleteAnswer(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	if err := c.Catalog.DeleteAnswer(ctx.Request.Context(), id); err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// Questions

// CreateQuestion godoc
// @Summary Create a question from existing answers
// @Tags CBT Catalog
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.CreateQuestionRequest true "Question"
// @Success 201 {object} util.Response{data=model.Question}
// @Failure 400 {object} util.Response "Correct answer is not one of the answers"
// @Router /api/cbt/questions [post]
func (c *CatalogController) CreateQuestion(ctx *gin.Context) {
	var req service.CreateQuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	question, err := c.Catalog.CreateQuestion(ctx.Request.Context(), req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, question)
}

// ListQuestions godoc
// @Summary List questions, optionally of one subject
// @Tags CBT Catalog
// @Produce json
// @Security ApiKeyAuth
// @Param subjectId query int false "Subject ID"
// @Success 200 {object} util.Response{data=[]model.Question}
// @Router /api/cbt/questions [get]
func (c *CatalogController) ListQuestions(ctx *gin.Context) {
	subjectID := uint(queryInt(ctx, "subjectId", 0))
	questions, err := c.Catalog.ListQuestions(ctx.Request.Context(), subjectID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, questions)
}

// @Router /api/cbt/questions/{id} [get]
func (c *CatalogController) GetQuestion(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	question, err := c.Catalog.GetQuestion(ctx.Request.Context(), id)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, question)
}

// @Router /api/cbt/questions/{id} [patch]
func (c *CatalogController) UpdateQuestion(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.UpdateQuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	question, err := c.Catalog.UpdateQuestion(ctx.Request.Context(), id, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, question)
}

// @Router /api/cbt/questions/{id}/answers [put]
func (c *CatalogController) SetQuestionAnswers(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.SetQuestionAnswersRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	question, err := c.Catalog.SetQuestionAnswers(ctx.Request.Context(), id, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, question)
}

// @Router /api/cbt/questions/{id} [delete]
func (c *CatalogController) DeleteQuestion(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	if err := c.Catalog.DeleteQuestion(ctx.Request.Context(), id); err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// Tests

// CreateTest godoc
// @Summary Create a test in the caller's organization
// @Tags CBT Catalog
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.CreateTestRequest true "Test"
// @Success 201 {object} util.Response{data=model.Test}
// @Router /api/cbt/tests [post]
func (c *CatalogController) CreateTest(ctx *gin.Context) {
	var req service.CreateTestRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	claims := util.GetUserFromContext(ctx)
	test, err := c.Catalog.CreateTest(ctx.Request.Context(), claims.OrganizationID, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, test)
}

// @Router /api/cbt/tests [get]
func (c *CatalogController) ListTests(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	tests, err := c.Catalog.ListTests(ctx.Request.Context(), repository.TestFilter{
		OrganizationID: claims.OrganizationID,
		YearID:         uint(queryInt(ctx, "yearId", 0)),
		TestTypeID:     uint(queryInt(ctx, "testTypeId", 0)),
	})
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, tests)
}

// @Router /api/cbt/tests/{id} [get]
func (c *CatalogController) GetTest(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	claims := util.GetUserFromContext(ctx)
	test, err := c.Catalog.GetTest(ctx.Request.Context(), claims.OrganizationID, id)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, test)
}

// @Router /api/cbt/tests/{id} [patch]
func (c *CatalogController) UpdateTest(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.UpdateTestRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	claims := util.GetUserFromContext(ctx)
	test, err := c.Catalog.UpdateTest(ctx.Request.Context(), claims.OrganizationID, id, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, test)
}

// @Router /api/cbt/tests/{id}/subjects [put]
func (c *CatalogController) SetTestSubjects(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.SetTestSubjectsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	claims := util.GetUserFromContext(ctx)
	test, err := c.Catalog.SetTestSubjects(ctx.Request.Context(), claims.OrganizationID, id, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, test)
}

// DeleteTest godoc
// @Summary Delete a test
// @Description Existing results keep their marks and breakdown; their link to the test is removed.
// @Tags CBT Catalog
// @Security ApiKeyAuth
// @Param id path int true "Test ID"
// @Success 200 {object} util.Response
// @Router /api/cbt/tests/{id} [delete]
func (c *CatalogController) DeleteTest(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	claims := util.GetUserFromContext(ctx)
	if err := c.Catalog.DeleteTest(ctx.Request.Context(), claims.OrganizationID, id); err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

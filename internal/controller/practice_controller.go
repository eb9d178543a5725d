package controller

import (
	"bizbox_backend/internal/repository"
	"bizbox_backend/internal/service"
	"bizbox_backend/internal/util"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// PracticeController serves the learner side of CBT: picking a test,
// taking it, submitting and reviewing results. Staff get exports and
// spreadsheet imports.
type PracticeController struct {
	Practice *service.PracticeService
	Grading  *service.GradingService
	Results  *service.ResultService
	Importer *service.QuestionImportService
}

func NewPracticeController(practice *service.PracticeService, grading *service.GradingService, results *service.ResultService, importer *service.QuestionImportService) *PracticeController {
	return &PracticeController{
		Practice: practice,
		Grading:  grading,
		Results:  results,
		Importer: importer,
	}
}

// AvailableTests godoc
// @Summary Tests the caller can practise
// @Tags CBT
// @Produce json
// @Security ApiKeyAuth
// @Param yearId query int false "Year ID"
// @Param testTypeId query int false "Test type ID"
// @Success 200 {object} util.Response{data=[]service.AvailableTest}
// @Router /api/cbt/tests/available [get]
func (c *PracticeController) AvailableTests(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	tests, err := c.Practice.ListAvailableTests(ctx.Request.Context(), repository.TestFilter{
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

// Session godoc
// @Summary Assemble a test for taking
// @Description Correct answers are never included.
// @Tags CBT
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Test ID"
// @Param subjects query string false "Comma separated subject ids; all subjects when omitted"
// @Success 200 {object} util.Response{data=service.PracticeSession}
// @Failure 404 {object} util.Response
// @Router /api/cbt/tests/{id}/session [get]
func (c *PracticeController) Session(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	subjectIDs := util.ParseUintList(ctx.Query("subjects"))
	claims := util.GetUserFromContext(ctx)

	session, err := c.Practice.BuildSession(ctx.Request.Context(), claims.OrganizationID, id, subjectIDs)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, session)
}

// Submit godoc
// @Summary Grade a submission
// @Description Every call creates a new result. Unknown ids reject the whole submission.
// @Tags CBT
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.SubmitRequest true "Answers"
// @Success 201 {object} util.Response{data=service.ResultView}
// @Failure 404 {object} util.Response
// @Router /api/cbt/submit [post]
func (c *PracticeController) Submit(ctx *gin.Context) {
	var req service.SubmitRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	result, err := c.Grading.Submit(ctx.Request.Context(), claims.UserID, claims.OrganizationID, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	view, err := c.Results.GetForUser(ctx.Request.Context(), claims.UserID, result.ID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, view)
}

// ListResults godoc
// @Summary The caller's results, newest first
// @Tags CBT
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]service.ResultView}
// @Router /api/cbt/results [get]
func (c *PracticeController) ListResults(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	results, err := c.Results.ListForUser(ctx.Request.Context(), claims.UserID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, results)
}

// GetResult godoc
// @Summary One of the caller's results
// @Tags CBT
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Result ID"
// @Success 200 {object} util.Response{data=service.ResultView}
// @Failure 404 {object} util.Response "Missing or owned by another user"
// @Router /api/cbt/results/{id} [get]
func (c *PracticeController) GetResult(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	claims := util.GetUserFromContext(ctx)
	view, err := c.Results.GetForUser(ctx.Request.Context(), claims.UserID, id)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// ExportResults godoc
// @Summary Download every result of a test as a spreadsheet
// @Tags CBT Catalog
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security ApiKeyAuth
// @Param id path int true "Test ID"
// @Success 200 {file} file
// @Router /api/cbt/tests/{id}/results/export [get]
func (c *PracticeController) ExportResults(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	claims := util.GetUserFromContext(ctx)

	// Look the test up first so a 404 is still answered as JSON.
	if _, err := c.Results.Catalog.GetTest(ctx.Request.Context(), claims.OrganizationID, id); err != nil {
		util.RespondError(ctx, err)
		return
	}

	filename := fmt.Sprintf("test-%d-results-%s.xlsx", id, time.Now().Format("20060102"))
	ctx.Header("Content-Disposition", "attachment; filename="+filename)
	ctx.Header("Content-Type", util.MimeXLSX)
	ctx.Status(http.StatusOK)
	if err := c.Results.ExportForTest(ctx.Request.Context(), claims.OrganizationID, id, ctx.Writer); err != nil {
		util.LogInternalError(ctx, err)
	}
}

// ImportQuestions godoc
// @Summary Import questions from a spreadsheet into a subject
// @Description Columns: question, mark, required, explanation, correct answer number, answers...
// @Tags CBT Catalog
// @Accept multipart/form-data
// @Produce json
// @Security ApiKeyAuth
// @Param subjectId formData int true "Subject ID"
// @Param file formData file true "xlsx workbook"
// @Success 200 {object} util.Response{data=service.ImportResult}
// @Router /api/cbt/questions/import [post]
func (c *PracticeController) ImportQuestions(ctx *gin.Context) {
	subjectID := util.MustParseUint(ctx.PostForm("subjectId"))
	if subjectID == 0 {
		util.BadRequest(ctx, "subjectId is required")
		return
	}
	fh, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}
	if !util.HasAllowedExtension(fh.Filename, []string{".xlsx"}) {
		util.BadRequest(ctx, "only .xlsx workbooks are accepted")
		return
	}

	f, err := fh.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer f.Close()

	result, err := c.Importer.Import(ctx.Request.Context(), subjectID, f)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

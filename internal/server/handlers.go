package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tallyup/tallyup/internal/models"
	"github.com/tallyup/tallyup/internal/service"
	"github.com/tallyup/tallyup/internal/storage"
	"github.com/tallyup/tallyup/pkg/money"
)

type memberDTO struct {
	Name   string `json:"name"`
	Weight int64  `json:"weight,omitempty"`
}

type recordDTO struct {
	ID          string   `json:"id"`
	Payer       string   `json:"payer"`
	Amount      string   `json:"amount"`
	Date        int64    `json:"date"`
	ExpenseType string   `json:"expense_type,omitempty"`
	Remark      string   `json:"remark,omitempty"`
	Consumers   []string `json:"consumers"`
}

type projectDTO struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Description  string      `json:"description,omitempty"`
	CreateUserID string      `json:"create_user_id"`
	Locked       bool        `json:"locked"`
	Version      int64       `json:"version"`
	CreatedAt    int64       `json:"created_at"`
	TotalExpense string      `json:"total_expense"`
	Members      []memberDTO `json:"members"`
	Records      []recordDTO `json:"records"`
}

func toProjectDTO(p *models.ExpenseProject) projectDTO {
	dto := projectDTO{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		CreateUserID: p.CreateUserID,
		Locked:       p.Locked,
		Version:      p.Version,
		CreatedAt:    p.CreatedAt,
		TotalExpense: p.TotalExpense().String(),
		Members:      []memberDTO{},
		Records:      []recordDTO{},
	}
	for _, m := range p.Members() {
		dto.Members = append(dto.Members, memberDTO{Name: m.Name, Weight: m.Weight})
	}
	for _, r := range p.Records() {
		dto.Records = append(dto.Records, recordDTO{
			ID:          r.ID,
			Payer:       r.Payer,
			Amount:      r.Amount.String(),
			Date:        r.Date,
			ExpenseType: r.ExpenseType,
			Remark:      r.Remark,
			Consumers:   r.Consumers,
		})
	}
	return dto
}

func operatorID(c *gin.Context) (string, bool) {
	op := c.GetHeader("X-User-ID")
	if op == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing X-User-ID header"})
		return "", false
	}
	return op, true
}

// writeError maps the error taxonomy onto HTTP status codes.
func writeError(c *gin.Context, err error) {
	var validationErr *models.ValidationError
	switch {
	case errors.As(err, &validationErr),
		errors.Is(err, models.ErrDuplicateMember),
		errors.Is(err, models.ErrMemberNotInProject),
		errors.Is(err, models.ErrProjectLocked):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrRecordNotFound),
		errors.Is(err, storage.ErrProjectNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, storage.ErrConcurrentModification):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

type createProjectRequest struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Members     []memberDTO `json:"members"`
}

func (s *Server) createProject(c *gin.Context) {
	op, ok := operatorID(c)
	if !ok {
		return
	}
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	cmd := service.CreateProjectCmd{
		OperatorID:  op,
		Name:        req.Name,
		Description: req.Description,
	}
	for _, m := range req.Members {
		cmd.Members = append(cmd.Members, service.MemberInput{Name: m.Name, Weight: m.Weight})
	}

	project, err := s.svc.CreateProject(c.Request.Context(), cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toProjectDTO(project))
}

func (s *Server) listProjects(c *gin.Context) {
	op, ok := operatorID(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))

	projects, total, err := s.svc.ListProjects(c.Request.Context(), service.ListProjectsQry{
		OperatorID: op,
		Name:       c.Query("name"),
		Page:       page,
		Size:       size,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	items := make([]projectDTO, 0, len(projects))
	for _, p := range projects {
		items = append(items, toProjectDTO(p))
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": total})
}

func (s *Server) getProject(c *gin.Context) {
	op, ok := operatorID(c)
	if !ok {
		return
	}
	project, err := s.svc.GetProject(c.Request.Context(), c.Param("id"), op)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProjectDTO(project))
}

func (s *Server) deleteProject(c *gin.Context) {
	op, ok := operatorID(c)
	if !ok {
		return
	}
	if err := s.svc.DeleteProject(c.Request.Context(), c.Param("id"), op); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type renameProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *Server) renameProject(c *gin.Context) {
	op, ok := operatorID(c)
	if !ok {
		return
	}
	var req renameProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	project, err := s.svc.RenameProject(c.Request.Context(), service.RenameProjectCmd{
		ProjectID:   c.Param("id"),
		OperatorID:  op,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProjectDTO(project))
}

type setLockedRequest struct {
	Locked bool `json:"locked"`
}

func (s *Server) setLocked(c *gin.Context) {
	op, ok := operatorID(c)
	if !ok {
		return
	}
	var req setLockedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	project, err := s.svc.SetLocked(c.Request.Context(), c.Param("id"), op, req.Locked)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProjectDTO(project))
}

type addMembersRequest struct {
	Members []memberDTO `json:"members"`
}

func (s *Server) addMembers(c *gin.Context) {
	op, ok := operatorID(c)
	if !ok {
		return
	}
	var req addMembersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	cmd := service.AddMembersCmd{ProjectID: c.Param("id"), OperatorID: op}
	for _, m := range req.Members {
		cmd.Members = append(cmd.Members, service.MemberInput{Name: m.Name, Weight: m.Weight})
	}

	project, err := s.svc.AddMembers(c.Request.Context(), cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProjectDTO(project))
}

type recordRequest struct {
	Payer       string   `json:"payer"`
	Amount      string   `json:"amount"`
	Date        int64    `json:"date"`
	ExpenseType string   `json:"expense_type"`
	Remark      string   `json:"remark"`
	Consumers   []string `json:"consumers"`
}

func (s *Server) recordCmd(c *gin.Context, op, recordID string) (service.RecordCmd, bool) {
	var req recordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return service.RecordCmd{}, false
	}
	amount, err := money.Parse(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return service.RecordCmd{}, false
	}
	return service.RecordCmd{
		ProjectID:   c.Param("id"),
		OperatorID:  op,
		RecordID:    recordID,
		Payer:       req.Payer,
		Amount:      amount,
		Date:        req.Date,
		ExpenseType: req.ExpenseType,
		Remark:      req.Remark,
		Consumers:   req.Consumers,
	}, true
}

func (s *Server) addRecord(c *gin.Context) {
	op, ok := operatorID(c)
	if !ok {
		return
	}
	cmd, ok := s.recordCmd(c, op, "")
	if !ok {
		return
	}
	project, err := s.svc.AddRecord(c.Request.Context(), cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toProjectDTO(project))
}

func (s *Server) updateRecord(c *gin.Context) {
	op, ok := operatorID(c)
	if !ok {
		return
	}
	cmd, ok := s.recordCmd(c, op, c.Param("recordId"))
	if !ok {
		return
	}
	project, err := s.svc.UpdateRecord(c.Request.Context(), cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProjectDTO(project))
}

func (s *Server) deleteRecord(c *gin.Context) {
	op, ok := operatorID(c)
	if !ok {
		return
	}
	project, err := s.svc.DeleteRecord(c.Request.Context(), c.Param("id"), c.Param("recordId"), op)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProjectDTO(project))
}

type memberFeeDTO struct {
	Member        string         `json:"member"`
	RecordAmount  string         `json:"record_amount"`
	PaidAmount    string         `json:"paid_amount"`
	ConsumeAmount string         `json:"consume_amount"`
	NetBalance    string         `json:"net_balance"`
	Details       []recordFeeDTO `json:"details"`
}

type recordFeeDTO struct {
	RecordID      string `json:"record_id"`
	RecordAmount  string `json:"record_amount"`
	PaidAmount    string `json:"paid_amount"`
	ConsumeAmount string `json:"consume_amount"`
}

type transferDTO struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

func (s *Server) getSharing(c *gin.Context) {
	op, ok := operatorID(c)
	if !ok {
		return
	}
	fee, err := s.svc.Sharing(c.Request.Context(), c.Param("id"), op)
	if err != nil {
		writeError(c, err)
		return
	}

	members := make([]memberFeeDTO, 0)
	for _, mf := range fee.Members() {
		dto := memberFeeDTO{
			Member:        mf.Member,
			RecordAmount:  mf.RecordAmount.String(),
			PaidAmount:    mf.PaidAmount.String(),
			ConsumeAmount: mf.ConsumeAmount.String(),
			NetBalance:    mf.NetBalance().String(),
			Details:       []recordFeeDTO{},
		}
		for _, d := range mf.Details {
			dto.Details = append(dto.Details, recordFeeDTO{
				RecordID:      d.RecordID,
				RecordAmount:  d.RecordAmount.String(),
				PaidAmount:    d.PaidAmount.String(),
				ConsumeAmount: d.ConsumeAmount.String(),
			})
		}
		members = append(members, dto)
	}

	transfers := make([]transferDTO, 0)
	for _, t := range fee.SuggestTransfers() {
		transfers = append(transfers, transferDTO{From: t.From, To: t.To, Amount: t.Amount.String()})
	}

	c.JSON(http.StatusOK, gin.H{"members": members, "transfers": transfers})
}

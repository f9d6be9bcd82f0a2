package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/multierr"

	"gaming_lounge_backend/internal/middleware"
	"gaming_lounge_backend/internal/models"
	"gaming_lounge_backend/internal/services"
)

type GroupHandler struct {
	groups services.GroupCoordinator
}

func NewGroupHandler(gc services.GroupCoordinator) *GroupHandler {
	return &GroupHandler{groups: gc}
}

func (h *GroupHandler) CreateGroup(c *gin.Context) {
	var req services.CreateGroupRequest
	if !bindJSON(c, "CreateGroup", &req) {
		return
	}
	group, err := h.groups.CreateGroup(c.Request.Context(), middleware.ActorFromContext(c), req)
	if err != nil {
		respondServiceError(c, err, "CreateGroup", "Failed to create group.")
		return
	}
	c.JSON(http.StatusCreated, group)
}

func (h *GroupHandler) GetGroup(c *gin.Context) {
	group, err := h.groups.GetGroup(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "GetGroup", "Failed to fetch group.")
		return
	}
	c.JSON(http.StatusOK, group)
}

func (h *GroupHandler) AddMember(c *gin.Context) {
	var req services.AddMemberRequest
	if !bindJSON(c, "AddMember", &req) {
		return
	}
	group, err := h.groups.AddMember(c.Request.Context(), middleware.ActorFromContext(c), c.Param("id"), req.BookingID)
	if err != nil {
		respondServiceError(c, err, "AddMember", "Failed to add group member.")
		return
	}
	c.JSON(http.StatusOK, group)
}

type groupOp func(ctx context.Context, actor models.Actor, groupID string) (*services.GroupResult, error)

type memberFailure struct {
	BookingID string `json:"booking_id"`
	Error     string `json:"error"`
}

// runGroupOp answers 200 when every member succeeded and 207 with the
// per-member failures otherwise.
func (h *GroupHandler) runGroupOp(c *gin.Context, name string, op groupOp) {
	result, err := op(c.Request.Context(), middleware.ActorFromContext(c), c.Param("id"))
	if err != nil {
		respondServiceError(c, err, name, "Group operation failed.")
		return
	}
	failures := []memberFailure{}
	for _, e := range multierr.Errors(result.Err) {
		f := memberFailure{Error: e.Error()}
		if me, ok := e.(*services.MemberError); ok {
			f.BookingID = me.BookingID
			f.Error = me.Err.Error()
		}
		failures = append(failures, f)
	}
	status := http.StatusOK
	if len(failures) > 0 {
		status = http.StatusMultiStatus
	}
	c.JSON(status, gin.H{
		"group":   result.Group,
		"done":    result.Done,
		"skipped": result.Skipped,
		"failed":  failures,
	})
}

func (h *GroupHandler) PauseAll(c *gin.Context)    { h.runGroupOp(c, "PauseAll", h.groups.PauseAll) }
func (h *GroupHandler) ResumeAll(c *gin.Context)   { h.runGroupOp(c, "ResumeAll", h.groups.ResumeAll) }
func (h *GroupHandler) CompleteAll(c *gin.Context) { h.runGroupOp(c, "CompleteAll", h.groups.CompleteAll) }
func (h *GroupHandler) CancelAll(c *gin.Context)   { h.runGroupOp(c, "CancelAll", h.groups.CancelAll) }

package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/crmdesk/crm-service/internal/api/dto"
	"github.com/crmdesk/crm-service/internal/domain"
	"github.com/crmdesk/crm-service/internal/service"
)

// WorkspaceHandler serves activities, tasks, notifications and the dashboard.
type WorkspaceHandler struct {
	activities    *service.ActivityService
	notifications *service.NotificationService
	reports       *service.ReportService
}

// NewWorkspaceHandler constructs handler.
func NewWorkspaceHandler(activities *service.ActivityService, notifications *service.NotificationService, reports *service.ReportService) *WorkspaceHandler {
	return &WorkspaceHandler{activities: activities, notifications: notifications, reports: reports}
}

// CreateActivity POST /activities.
func (h *WorkspaceHandler) CreateActivity(c *fiber.Ctx) error {
	agent, err := currentAgent(c)
	if err != nil {
		return err
	}
	var req dto.ActivityCreateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	activity, err := h.activities.Create(c.UserContext(), agent, service.ActivityCreateInput{
		Type:         req.Type,
		Subject:      req.Subject,
		Description:  req.Description,
		RecordType:   req.RecordType,
		RecordID:     req.RecordID,
		ScheduledFor: req.ScheduledFor,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": activityResponse(activity)})
}

// Timeline GET /activities/timeline/:record_type/:record_id.
func (h *WorkspaceHandler) Timeline(c *fiber.Ctx) error {
	agent, err := currentAgent(c)
	if err != nil {
		return err
	}
	recordID, err := pathID(c, "record_id", "record")
	if err != nil {
		return err
	}
	items, err := h.activities.Timeline(c.UserContext(), agent, domain.RecordType(c.Params("record_type")), recordID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": activityResponses(items)})
}

// Tasks GET /activities/tasks.
func (h *WorkspaceHandler) Tasks(c *fiber.Ctx) error {
	agent, err := currentAgent(c)
	if err != nil {
		return err
	}
	f := service.TaskListFilters{
		Completed: parseBool(c.Query("completed")),
		DueBefore: parseTime(c.Query("due_before")),
	}
	f.Limit, f.Offset = page(c)
	items, err := h.activities.Tasks(c.UserContext(), agent, f)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": activityResponses(items)})
}

// CompleteTask POST /activities/:id/complete.
func (h *WorkspaceHandler) CompleteTask(c *fiber.Ctx) error {
	agent, err := currentAgent(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "activity")
	if err != nil {
		return err
	}
	activity, err := h.activities.Complete(c.UserContext(), agent, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": activityResponse(activity)})
}

// ListNotifications GET /notifications.
func (h *WorkspaceHandler) ListNotifications(c *fiber.Ctx) error {
	agent, err := currentAgent(c)
	if err != nil {
		return err
	}
	unreadOnly := false
	if v := parseBool(c.Query("unread")); v != nil {
		unreadOnly = *v
	}
	items, err := h.notifications.List(c.UserContext(), agent, unreadOnly)
	if err != nil {
		return err
	}
	resp := make([]dto.NotificationResponse, 0, len(items))
	for i := range items {
		resp = append(resp, notificationResponse(&items[i]))
	}
	return c.JSON(fiber.Map{"data": resp})
}

// UnreadCount GET /notifications/unread-count.
func (h *WorkspaceHandler) UnreadCount(c *fiber.Ctx) error {
	agent, err := currentAgent(c)
	if err != nil {
		return err
	}
	count, err := h.notifications.UnreadCount(c.UserContext(), agent)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"count": count}})
}

// MarkRead POST /notifications/:id/read.
func (h *WorkspaceHandler) MarkRead(c *fiber.Ctx) error {
	agent, err := currentAgent(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "notification")
	if err != nil {
		return err
	}
	n, err := h.notifications.MarkRead(c.UserContext(), agent, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": notificationResponse(n)})
}

// MarkAllRead POST /notifications/read-all.
func (h *WorkspaceHandler) MarkAllRead(c *fiber.Ctx) error {
	agent, err := currentAgent(c)
	if err != nil {
		return err
	}
	updated, err := h.notifications.MarkAllRead(c.UserContext(), agent)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"updated": updated}})
}

// Dashboard GET /reports/dashboard.
func (h *WorkspaceHandler) Dashboard(c *fiber.Ctx) error {
	agent, err := currentAgent(c)
	if err != nil {
		return err
	}
	d, err := h.reports.Dashboard(c.UserContext(), agent)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.DashboardResponse{
		Tickets:     d.Tickets,
		BoardCounts: d.BoardCounts,
		AtRisk:      ticketResponses(d.AtRisk),
		Sales:       d.Sales,
		Referrals:   d.Referrals,
		Commissions: d.Commissions,
		WindowHours: d.WindowHours,
		GeneratedAt: d.GeneratedAt,
	}})
}

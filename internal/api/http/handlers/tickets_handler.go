package handlers

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/crmdesk/crm-service/internal/api/dto"
	"github.com/crmdesk/crm-service/internal/domain"
	"github.com/crmdesk/crm-service/internal/pipeline"
	"github.com/crmdesk/crm-service/internal/service"
	apperrors "github.com/crmdesk/crm-service/pkg/util/errorutil"
)

// TicketsHandler serves the agent ticket desk and queues.
type TicketsHandler struct {
	tickets    *service.TicketService
	assignment *service.AssignmentService
	queues     *service.QueueService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets *service.TicketService, assignment *service.AssignmentService, queues *service.QueueService) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, assignment: assignment, queues: queues}
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	agent, err := currentAgent(c)
	if err != nil {
		return err
	}
	tickets, err := h.tickets.List(c.UserContext(), agent, parseTicketQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponses(tickets)})
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	agent, err := currentAgent(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ticket, err := h.tickets.Create(c.UserContext(), agent, service.TicketCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		TicketType:  req.TicketType,
		Source:      req.Source,
		QueueID:     req.QueueID,
		AgentID:     req.AgentID,
		ContactID:   req.ContactID,
		SLADeadline: req.SLADeadline,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// Board GET /tickets/board.
func (h *TicketsHandler) Board(c *fiber.Ctx) error {
	agent, err := currentAgent(c)
	if err != nil {
		return err
	}
	board, err := h.tickets.Board(c.UserContext(), agent, parseTicketQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TicketBoardResponse{
		Columns: ticketColumns(board.Columns),
		Counts:  board.Counts,
	}})
}

// Export GET /tickets/export.csv.
func (h *TicketsHandler) Export(c *fiber.Ctx) error {
	agent, err := currentAgent(c)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := h.tickets.Export(c.UserContext(), agent, parseTicketQuery(c), &buf); err != nil {
		return err
	}
	return sendCSV(c, "tickets", buf.Bytes())
}

// AssignToMe POST /tickets/assign-to-me.
func (h *TicketsHandler) AssignToMe(c *fiber.Ctx) error {
	agent, err := currentAgent(c)
	if err != nil {
		return err
	}
	var req dto.AssignToMeRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	result, err := h.assignment.AssignToMe(c.UserContext(), agent, req.TicketIDs)
	if err != nil {
		return err
	}
	failed := result.Failed
	if failed == nil {
		failed = map[string]string{}
	}
	return c.JSON(fiber.Map{"data": dto.BulkResultResponse{
		Updated: ticketResponses(result.Updated),
		Failed:  failed,
	}})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	agent, err := currentAgent(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "ticket")
	if err != nil {
		return err
	}
	ticket, err := h.tickets.Get(c.UserContext(), agent, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// UpdateStatus POST /tickets/:id/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	agent, err := currentAgent(c)
	if err != nil {
		return err
	}
	var req dto.StatusRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	id, err := pathID(c, "id", "ticket")
	if err != nil {
		return err
	}
	ticket, err := h.tickets.UpdateStatus(c.UserContext(), agent, id, req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// Assign POST /tickets/:id/assign.
func (h *TicketsHandler) Assign(c *fiber.Ctx) error {
	agent, err := currentAgent(c)
	if err != nil {
		return err
	}
	var req dto.AssignRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	id, err := pathID(c, "id", "ticket")
	if err != nil {
		return err
	}
	ticket, err := h.assignment.Assign(c.UserContext(), agent, id, req.AgentID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// Move POST /tickets/:id/move.
func (h *TicketsHandler) Move(c *fiber.Ctx) error {
	agent, err := currentAgent(c)
	if err != nil {
		return err
	}
	var req dto.DropRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	id, err := pathID(c, "id", "ticket")
	if err != nil {
		return err
	}
	drop, err := ticketDrop(req)
	if err != nil {
		return err
	}
	ticket, err := h.assignment.Move(c.UserContext(), agent, id, drop)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// ListQueues GET /queues.
func (h *TicketsHandler) ListQueues(c *fiber.Ctx) error {
	activeOnly := true
	if v := parseBool(c.Query("active")); v != nil {
		activeOnly = *v
	}
	queues, err := h.queues.List(c.UserContext(), activeOnly)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": queueResponses(queues)})
}

// CreateQueue POST /queues.
func (h *TicketsHandler) CreateQueue(c *fiber.Ctx) error {
	agent, err := currentAgent(c)
	if err != nil {
		return err
	}
	var req dto.QueueCreateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	queue, err := h.queues.Create(c.UserContext(), agent, service.QueueCreateInput{
		Name:       req.Name,
		TicketType: req.TicketType,
		TeamID:     req.TeamID,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": queueResponse(queue)})
}

// QueueBoard GET /queues/board.
func (h *TicketsHandler) QueueBoard(c *fiber.Ctx) error {
	agent, err := currentAgent(c)
	if err != nil {
		return err
	}
	var ticketType *domain.TicketType
	if raw := c.Query("ticket_type"); raw != "" {
		t := domain.TicketType(raw)
		ticketType = &t
	}
	cols, queues, err := h.tickets.QueueBoard(c.UserContext(), agent, ticketType)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.QueueBoardResponse{
		Columns: ticketColumns(cols),
		Queues:  queueResponses(queues),
	}})
}

func parseTicketQuery(c *fiber.Ctx) service.TicketListFilters {
	f := service.TicketListFilters{
		QueueID:     optional(c.Query("queue_id")),
		AgentID:     optional(c.Query("agent_id")),
		Statuses:    splitList[domain.TicketStatus](c.Query("status")),
		Priorities:  splitList[domain.TicketPriority](c.Query("priority")),
		Types:       splitList[domain.TicketType](c.Query("ticket_type")),
		SearchTerm:  optional(c.Query("q")),
		CreatedFrom: parseTime(c.Query("created_from")),
		CreatedTo:   parseTime(c.Query("created_to")),
	}
	f.Limit, f.Offset = page(c)
	return f
}

func dropEvent(req dto.DropRequest) pipeline.DropEvent {
	return pipeline.DropEvent{
		DraggableID:   req.DraggableID,
		DestinationID: req.DestinationID,
		SourceID:      req.SourceID,
	}
}

// ticketDrop checks the ids of a ticket board drop. The destination is a
// ticket status, the unqueued column or a queue id.
func ticketDrop(req dto.DropRequest) (pipeline.DropEvent, error) {
	drop := dropEvent(req)
	if id, err := uuid.Parse(drop.DraggableID); err == nil {
		drop.DraggableID = id.String()
	}
	if _, isStatus := domain.ParseTicketStatus(drop.DestinationID); isStatus || drop.DestinationID == pipeline.Unqueued {
		return drop, nil
	}
	queueID, err := uuid.Parse(drop.DestinationID)
	if err != nil {
		return drop, apperrors.NewNotFound("queue", map[string]any{"id": drop.DestinationID})
	}
	drop.DestinationID = queueID.String()
	return drop, nil
}

func sendCSV(c *fiber.Ctx, name string, body []byte) error {
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+name+"-"+time.Now().UTC().Format("20060102")+`.csv"`)
	return c.Send(body)
}

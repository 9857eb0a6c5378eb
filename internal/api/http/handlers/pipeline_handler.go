package handlers

import (
	"bytes"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/crmdesk/crm-service/internal/api/dto"
	"github.com/crmdesk/crm-service/internal/domain"
	"github.com/crmdesk/crm-service/internal/pipeline"
	"github.com/crmdesk/crm-service/internal/service"
)

// PipelineHandler serves the sales and referral pipelines.
type PipelineHandler struct {
	service   *service.PipelineService
	proposals *service.ProposalService
}

// NewPipelineHandler constructs handler.
func NewPipelineHandler(pipelineService *service.PipelineService, proposals *service.ProposalService) *PipelineHandler {
	return &PipelineHandler{service: pipelineService, proposals: proposals}
}

// ListLeads GET /leads.
func (h *PipelineHandler) ListLeads(c *fiber.Ctx) error {
	agent, err := currentAgent(c)
	if err != nil {
		return err
	}
	leads, err := h.service.ListLeads(c.UserContext(), agent, parseLeadQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": leadResponses(leads)})
}

// CreateLead POST /leads.
func (h *PipelineHandler) CreateLead(c *fiber.Ctx) error {
	agent, err := currentAgent(c)
	if err != nil {
		return err
	}
	var req dto.LeadCreateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	lead, err := h.service.CreateLead(c.UserContext(), agent, service.LeadCreateInput{
		Kind:     req.Kind,
		Name:     req.Name,
		Company:  req.Company,
		Document: req.Document,
		Email:    req.Email,
		Phone:    req.Phone,
		Value:    req.Value,
		AgentID:  req.AgentID,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": leadResponse(lead)})
}

// LeadBoard GET /leads/board.
func (h *PipelineHandler) LeadBoard(c *fiber.Ctx) error {
	agent, err := currentAgent(c)
	if err != nil {
		return err
	}
	var kind *domain.LeadKind
	if raw := c.Query("kind"); raw != "" {
		k := domain.LeadKind(raw)
		kind = &k
	}
	cols, err := h.service.LeadBoard(c.UserContext(), agent, kind)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": leadColumns(cols)})
}

// ExportLeads GET /leads/export.csv.
func (h *PipelineHandler) ExportLeads(c *fiber.Ctx) error {
	agent, err := currentAgent(c)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := h.service.ExportLeads(c.UserContext(), agent, parseLeadQuery(c), &buf); err != nil {
		return err
	}
	return sendCSV(c, "leads", buf.Bytes())
}

// GetLead GET /leads/:id.
func (h *PipelineHandler) GetLead(c *fiber.Ctx) error {
	agent, err := currentAgent(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "lead")
	if err != nil {
		return err
	}
	lead, err := h.service.GetLead(c.UserContext(), agent, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": leadResponse(lead)})
}

// LeadProposals GET /leads/:id/proposals.
func (h *PipelineHandler) LeadProposals(c *fiber.Ctx) error {
	agent, err := currentAgent(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "lead")
	if err != nil {
		return err
	}
	proposals, err := h.proposals.ListByLead(c.UserContext(), agent, id)
	if err != nil {
		return err
	}
	items := make([]dto.ProposalResponse, 0, len(proposals))
	for i := range proposals {
		items = append(items, proposalResponse(&proposals[i], true))
	}
	return c.JSON(fiber.Map{"data": items})
}

// MoveLead POST /leads/:id/stage.
func (h *PipelineHandler) MoveLead(c *fiber.Ctx) error {
	agent, err := currentAgent(c)
	if err != nil {
		return err
	}
	var req dto.StageRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	id, err := pathID(c, "id", "lead")
	if err != nil {
		return err
	}
	lead, err := h.service.MoveLead(c.UserContext(), agent, id, req.Stage, req.LostReason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": leadResponse(lead)})
}

// DropLead POST /leads/move.
func (h *PipelineHandler) DropLead(c *fiber.Ctx) error {
	agent, err := currentAgent(c)
	if err != nil {
		return err
	}
	var req dto.DropRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	lead, err := h.service.DropLead(c.UserContext(), agent, dropEvent(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": leadResponse(lead)})
}

// ListReferrals GET /referrals.
func (h *PipelineHandler) ListReferrals(c *fiber.Ctx) error {
	agent, err := currentAgent(c)
	if err != nil {
		return err
	}
	f := service.ReferralListFilters{
		Stages:             splitList[domain.Stage](c.Query("stage")),
		CommissionStatuses: splitList[domain.CommissionStatus](c.Query("commission_status")),
	}
	f.Limit, f.Offset = page(c)
	referrals, err := h.service.ListReferrals(c.UserContext(), agent, f)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": referralResponses(referrals)})
}

// CreateReferral POST /referrals.
func (h *PipelineHandler) CreateReferral(c *fiber.Ctx) error {
	agent, err := currentAgent(c)
	if err != nil {
		return err
	}
	var req dto.ReferralCreateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	referral, err := h.service.CreateReferral(c.UserContext(), agent, service.ReferralCreateInput{
		ReferrerName:    req.ReferrerName,
		ReferrerContact: req.ReferrerContact,
		ReferredName:    req.ReferredName,
		ReferredContact: req.ReferredContact,
		CommissionValue: req.CommissionValue,
		AgentID:         req.AgentID,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": referralResponse(referral)})
}

// ReferralBoard GET /referrals/board.
func (h *PipelineHandler) ReferralBoard(c *fiber.Ctx) error {
	agent, err := currentAgent(c)
	if err != nil {
		return err
	}
	cols, err := h.service.ReferralBoard(c.UserContext(), agent)
	if err != nil {
		return err
	}
	out := make([]dto.ReferralColumn, 0, len(cols))
	for _, col := range cols {
		out = append(out, dto.ReferralColumn{Key: col.Key, Count: col.Count, Items: referralResponses(col.Items)})
	}
	return c.JSON(fiber.Map{"data": out})
}

// MoveReferral POST /referrals/:id/stage.
func (h *PipelineHandler) MoveReferral(c *fiber.Ctx) error {
	agent, err := currentAgent(c)
	if err != nil {
		return err
	}
	var req dto.StageRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	id, err := pathID(c, "id", "referral")
	if err != nil {
		return err
	}
	referral, err := h.service.MoveReferral(c.UserContext(), agent, id, req.Stage)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": referralResponse(referral)})
}

// DropReferral POST /referrals/move.
func (h *PipelineHandler) DropReferral(c *fiber.Ctx) error {
	agent, err := currentAgent(c)
	if err != nil {
		return err
	}
	var req dto.DropRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	referral, err := h.service.DropReferral(c.UserContext(), agent, dropEvent(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": referralResponse(referral)})
}

// CreateProposal POST /proposals.
func (h *PipelineHandler) CreateProposal(c *fiber.Ctx) error {
	agent, err := currentAgent(c)
	if err != nil {
		return err
	}
	var req dto.ProposalCreateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	proposal, err := h.proposals.Create(c.UserContext(), agent, service.ProposalCreateInput{
		LeadID:      req.LeadID,
		Title:       req.Title,
		Description: req.Description,
		Value:       req.Value,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": proposalResponse(proposal, true)})
}

// PublicProposal GET /public/proposals/:token.
func (h *PipelineHandler) PublicProposal(c *fiber.Ctx) error {
	pub, err := h.proposals.Public(c.UserContext(), c.Params("token"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.PublicProposalResponse{
		LeadName: pub.LeadName,
		Proposal: proposalResponse(pub.Proposal, false),
	}})
}

// RespondProposal POST /public/proposals/:token/respond.
func (h *PipelineHandler) RespondProposal(c *fiber.Ctx) error {
	var req dto.ProposalRespondRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	proposal, err := h.proposals.Respond(c.UserContext(), c.Params("token"), *req.Accept, req.Note)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": proposalResponse(proposal, false)})
}

func parseLeadQuery(c *fiber.Ctx) service.LeadListFilters {
	f := service.LeadListFilters{
		Stages:     splitList[domain.Stage](c.Query("stage")),
		AgentID:    optional(c.Query("agent_id")),
		SearchTerm: optional(c.Query("q")),
	}
	if raw := c.Query("kind"); raw != "" {
		k := domain.LeadKind(raw)
		f.Kind = &k
	}
	f.Limit, f.Offset = page(c)
	return f
}

func leadColumns(cols []pipeline.Column[domain.Lead]) []dto.LeadColumn {
	out := make([]dto.LeadColumn, 0, len(cols))
	for _, col := range cols {
		out = append(out, dto.LeadColumn{Key: col.Key, Count: col.Count, Items: leadResponses(col.Items)})
	}
	return out
}

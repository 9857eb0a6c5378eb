package handlers

import (
	"github.com/crmdesk/crm-service/internal/api/dto"
	"github.com/crmdesk/crm-service/internal/domain"
	"github.com/crmdesk/crm-service/internal/pipeline"
)

func agentResponse(a *domain.Agent) dto.AgentResponse {
	return dto.AgentResponse{
		ID:          a.ID,
		Name:        a.Name,
		Email:       a.Email,
		AgentType:   a.AgentType,
		TeamID:      a.TeamID,
		Permissions: a.Permissions,
		Active:      a.Active,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

func ticketResponse(t *domain.Ticket) dto.TicketResponse {
	return dto.TicketResponse{
		ID:                    t.ID,
		ExternalKey:           t.ExternalKey,
		Title:                 t.Title,
		Description:           t.Description,
		Status:                t.Status,
		Priority:              t.Priority,
		TicketType:            t.TicketType,
		Source:                t.Source,
		QueueID:               t.QueueID,
		AgentID:               t.AgentID,
		TeamID:                t.TeamID,
		ContactID:             t.ContactID,
		SLAResolutionDeadline: t.SLAResolutionDeadline,
		SLABreached:           t.SLABreached,
		ResolvedAt:            t.ResolvedAt,
		ClosedAt:              t.ClosedAt,
		CreatedAt:             t.CreatedAt,
		UpdatedAt:             t.UpdatedAt,
	}
}

func ticketResponses(tickets []domain.Ticket) []dto.TicketResponse {
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i]))
	}
	return items
}

func ticketColumns(cols []pipeline.Column[domain.Ticket]) []dto.TicketColumn {
	out := make([]dto.TicketColumn, 0, len(cols))
	for _, col := range cols {
		out = append(out, dto.TicketColumn{Key: col.Key, Count: col.Count, Items: ticketResponses(col.Items)})
	}
	return out
}

func portalTicketResponse(t *domain.Ticket) dto.PortalTicketResponse {
	return dto.PortalTicketResponse{
		ID:          t.ID,
		ExternalKey: t.ExternalKey,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		TicketType:  t.TicketType,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func queueResponse(q *domain.Queue) dto.QueueResponse {
	return dto.QueueResponse{ID: q.ID, Name: q.Name, TicketType: q.TicketType, TeamID: q.TeamID, Active: q.Active}
}

func queueResponses(queues []domain.Queue) []dto.QueueResponse {
	items := make([]dto.QueueResponse, 0, len(queues))
	for i := range queues {
		items = append(items, queueResponse(&queues[i]))
	}
	return items
}

func leadResponse(l *domain.Lead) dto.LeadResponse {
	history := l.StageHistory
	if history == nil {
		history = []domain.StageHistoryEntry{}
	}
	return dto.LeadResponse{
		ID:           l.ID,
		Kind:         l.Kind,
		Name:         l.Name,
		Company:      l.Company,
		Document:     l.Document,
		Email:        l.Email,
		Phone:        l.Phone,
		Stage:        l.Stage,
		StageHistory: history,
		Value:        l.Value,
		AgentID:      l.AgentID,
		TeamID:       l.TeamID,
		Concluded:    l.Concluded,
		ConcludedAt:  l.ConcludedAt,
		Lost:         l.Lost,
		LostAt:       l.LostAt,
		LostReason:   l.LostReason,
		CreatedAt:    l.CreatedAt,
		UpdatedAt:    l.UpdatedAt,
	}
}

func leadResponses(leads []domain.Lead) []dto.LeadResponse {
	items := make([]dto.LeadResponse, 0, len(leads))
	for i := range leads {
		items = append(items, leadResponse(&leads[i]))
	}
	return items
}

func referralResponse(r *domain.Referral) dto.ReferralResponse {
	history := r.StageHistory
	if history == nil {
		history = []domain.StageHistoryEntry{}
	}
	return dto.ReferralResponse{
		ID:               r.ID,
		ReferrerName:     r.ReferrerName,
		ReferrerContact:  r.ReferrerContact,
		ReferredName:     r.ReferredName,
		ReferredContact:  r.ReferredContact,
		Stage:            r.Stage,
		StageHistory:     history,
		Status:           r.Status,
		ConvertedAt:      r.ConvertedAt,
		CommissionValue:  r.CommissionValue,
		CommissionStatus: r.CommissionStatus,
		AgentID:          r.AgentID,
		TeamID:           r.TeamID,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

func referralResponses(referrals []domain.Referral) []dto.ReferralResponse {
	items := make([]dto.ReferralResponse, 0, len(referrals))
	for i := range referrals {
		items = append(items, referralResponse(&referrals[i]))
	}
	return items
}

func activityResponse(a *domain.Activity) dto.ActivityResponse {
	return dto.ActivityResponse{
		ID:           a.ID,
		Type:         a.Type,
		Subject:      a.Subject,
		Description:  a.Description,
		RecordType:   a.RecordType,
		RecordID:     a.RecordID,
		AgentID:      a.AgentID,
		Completed:    a.Completed,
		CompletedAt:  a.CompletedAt,
		ScheduledFor: a.ScheduledFor,
		CreatedAt:    a.CreatedAt,
	}
}

func activityResponses(activities []domain.Activity) []dto.ActivityResponse {
	items := make([]dto.ActivityResponse, 0, len(activities))
	for i := range activities {
		items = append(items, activityResponse(&activities[i]))
	}
	return items
}

func notificationResponse(n *domain.Notification) dto.NotificationResponse {
	return dto.NotificationResponse{
		ID:        n.ID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		Priority:  n.Priority,
		Link:      n.Link,
		Read:      n.Read,
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
	}
}

func categoryResponse(c *domain.KBCategory) dto.CategoryResponse {
	return dto.CategoryResponse{ID: c.ID, Name: c.Name, Description: c.Description, Position: c.Position, CreatedAt: c.CreatedAt}
}

func articleResponse(a *domain.KBArticle) dto.ArticleResponse {
	tags := a.Tags
	if tags == nil {
		tags = []string{}
	}
	return dto.ArticleResponse{
		ID:          a.ID,
		CategoryID:  a.CategoryID,
		Title:       a.Title,
		Content:     a.Content,
		Tags:        tags,
		Published:   a.Published,
		Views:       a.Views,
		Helpful:     a.Helpful,
		NotHelpful:  a.NotHelpful,
		NeedsReview: a.NeedsReview,
		AuthorID:    a.AuthorID,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

// proposalResponse hides the public token unless withToken is set; only the
// creating agent needs it to share the link.
func proposalResponse(p *domain.Proposal, withToken bool) dto.ProposalResponse {
	resp := dto.ProposalResponse{
		ID:           p.ID,
		LeadID:       p.LeadID,
		Title:        p.Title,
		Description:  p.Description,
		Value:        p.Value,
		Status:       p.Status,
		ResponseNote: p.ResponseNote,
		RespondedAt:  p.RespondedAt,
		CreatedAt:    p.CreatedAt,
	}
	if withToken {
		resp.PublicToken = p.PublicToken
	}
	return resp
}

func contactResponse(c *domain.Contact) dto.ContactResponse {
	return dto.ContactResponse{ID: c.ID, Name: c.Name, Email: c.Email, Phone: c.Phone}
}

func contractResponse(c *domain.Contract) dto.ContractResponse {
	return dto.ContractResponse{ID: c.ID, Number: c.Number, Status: c.Status, MonthlyValue: c.MonthlyValue, DueDay: c.DueDay}
}

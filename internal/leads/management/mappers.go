package management

import (
	"dealer_crm_backend/internal/leads/repository"
	"dealer_crm_backend/internal/leads/transport"
)

// ToLeadResponse converts a repository Lead to a transport LeadResponse.
func ToLeadResponse(lead repository.Lead) transport.LeadResponse {
	return transport.LeadResponse{
		ID:                lead.ID,
		Name:              lead.Name,
		Phone:             lead.Phone,
		City:              lead.City,
		Region:            lead.Region,
		TenantID:          lead.TenantID,
		AssignedManagerID: lead.AssignedManagerID,
		Status:            string(lead.Status),
		RejectionReason:   lead.RejectionReason,
		ConversionValue:   lead.ConversionValue,
		Source:            string(lead.Source),
		Comment:           lead.Comment,
		SentToTelegram:    lead.SentToTelegram,
		CreatedAt:         lead.CreatedAt,
		UpdatedAt:         lead.UpdatedAt,
		ClosedAt:          lead.ClosedAt,
	}
}

// ToHistoryResponse converts an audit row.
func ToHistoryResponse(h repository.History) transport.HistoryResponse {
	var old *string
	if h.OldStatus != nil {
		s := string(*h.OldStatus)
		old = &s
	}
	return transport.HistoryResponse{
		ID:        h.ID,
		LeadID:    h.LeadID,
		ChangedBy: h.ChangedBy,
		OldStatus: old,
		NewStatus: string(h.NewStatus),
		Comment:   h.Comment,
		CreatedAt: h.CreatedAt,
	}
}

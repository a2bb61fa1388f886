package transport

import (
	"time"

	"github.com/google/uuid"
)

// PublicLeadRequest is the anonymous form submission.
type PublicLeadRequest struct {
	Name    string  `json:"name" validate:"required,min=1,max=200"`
	Phone   string  `json:"phone" validate:"required,min=5,max=32"`
	City    string  `json:"city" validate:"required,min=1,max=100"`
	Region  *string `json:"region,omitempty" validate:"omitempty,max=100"`
	Comment *string `json:"comment,omitempty" validate:"omitempty,max=2000"`
}

type PublicLeadResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// CreateLeadRequest is a manual lead entered from the dashboard.
type CreateLeadRequest struct {
	Name      string     `json:"name" validate:"required,min=1,max=200"`
	Phone     string     `json:"phone" validate:"required,min=5,max=32"`
	City      string     `json:"city" validate:"required,min=1,max=100"`
	Region    *string    `json:"region,omitempty" validate:"omitempty,max=100"`
	Comment   *string    `json:"comment,omitempty" validate:"omitempty,max=2000"`
	Source    string     `json:"source,omitempty" validate:"omitempty,oneof=website instagram facebook manual other"`
	TenantID  *uuid.UUID `json:"tenantId,omitempty"`
	ManagerID *uuid.UUID `json:"managerId,omitempty"`
	Notify    bool       `json:"notify"`
}

// UpdateLeadRequest carries the full editable field set. Absent optional
// fields are written as empty.
type UpdateLeadRequest struct {
	Name            string     `json:"name" validate:"required,min=1,max=200"`
	Phone           string     `json:"phone" validate:"required,min=5,max=32"`
	City            string     `json:"city" validate:"required,min=1,max=100"`
	Region          *string    `json:"region,omitempty" validate:"omitempty,max=100"`
	TenantID        *uuid.UUID `json:"tenantId,omitempty"`
	ManagerID       *uuid.UUID `json:"managerId,omitempty"`
	Status          string     `json:"status" validate:"required,oneof=new processing closed rejected"`
	Comment         *string    `json:"comment,omitempty" validate:"omitempty,max=2000"`
	RejectionReason *string    `json:"rejectionReason,omitempty" validate:"omitempty,max=500"`
	ConversionValue *int64     `json:"conversionValue,omitempty" validate:"omitempty,gte=0"`
	// Note is appended to the history comments produced by this edit.
	Note string `json:"note,omitempty" validate:"omitempty,max=500"`
}

type ListLeadsRequest struct {
	Status    string `form:"status" validate:"omitempty,oneof=new processing closed rejected"`
	Source    string `form:"source" validate:"omitempty,oneof=website instagram facebook manual other"`
	TenantID  string `form:"tenantId" validate:"omitempty,uuid"`
	ManagerID string `form:"managerId" validate:"omitempty,uuid"`
	Search    string `form:"search" validate:"omitempty,max=100"`
	Page      int    `form:"page" validate:"omitempty,min=1"`
	PageSize  int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

type LeadResponse struct {
	ID                uuid.UUID  `json:"id"`
	Name              string     `json:"name"`
	Phone             string     `json:"phone"`
	City              string     `json:"city"`
	Region            *string    `json:"region,omitempty"`
	TenantID          *uuid.UUID `json:"tenantId,omitempty"`
	AssignedManagerID *uuid.UUID `json:"assignedManagerId,omitempty"`
	Status            string     `json:"status"`
	RejectionReason   *string    `json:"rejectionReason,omitempty"`
	ConversionValue   *int64     `json:"conversionValue,omitempty"`
	Source            string     `json:"source"`
	Comment           *string    `json:"comment,omitempty"`
	SentToTelegram    bool       `json:"sentToTelegram"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
	ClosedAt          *time.Time `json:"closedAt,omitempty"`
}

type LeadListResponse struct {
	Items      []LeadResponse `json:"items"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalPages int            `json:"totalPages"`
}

type CreateLeadResponse struct {
	Lead     LeadResponse `json:"lead"`
	Notified bool         `json:"notified"`
}

type HistoryResponse struct {
	ID        uuid.UUID  `json:"id"`
	LeadID    uuid.UUID  `json:"leadId"`
	ChangedBy *uuid.UUID `json:"changedBy,omitempty"`
	OldStatus *string    `json:"oldStatus"`
	NewStatus string     `json:"newStatus"`
	Comment   string     `json:"comment"`
	CreatedAt time.Time  `json:"createdAt"`
}

type BoardResponse struct {
	Counts map[string]int `json:"counts"`
	Total  int            `json:"total"`
}

// NotifyLeadRequest triggers dispatch for an existing lead.
type NotifyLeadRequest struct {
	LeadID string `json:"leadId"`
}

type NotifyLeadResponse struct {
	Success    *bool  `json:"success,omitempty"`
	AssignedTo string `json:"assignedTo,omitempty"`
	Message    string `json:"message,omitempty"`
}
